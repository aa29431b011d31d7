package candrive

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Mode of operation codes (object 0x6060)
type OperationMode int8

const (
	ModeProfilePosition OperationMode = 1
	ModeProfileVelocity OperationMode = 3
	ModeProfileTorque   OperationMode = 4
	ModeCurrent         OperationMode = 6 // vendor current mode
)

var modeDescription = map[OperationMode]string{
	ModeProfilePosition: "PROFILE POSITION",
	ModeProfileVelocity: "PROFILE VELOCITY",
	ModeProfileTorque:   "PROFILE TORQUE",
	ModeCurrent:         "CURRENT",
}

func (mode OperationMode) String() string {
	description, ok := modeDescription[mode]
	if !ok {
		return "UNKNOWN"
	}
	return description
}

// MotionProfile holds the kinematic parameters of a profile velocity
// move, all in CAN units of the drive.
type MotionProfile struct {
	Speed int32
	Accel int32
	Decel int32
	Mode  OperationMode // zero value means profile velocity
}

// MoveOptions tunes what happens around the velocity set-point write
type MoveOptions struct {
	// Duration keeps the bus observed for this long after the
	// set-point is written. Zero returns immediately. There is no
	// motion complete acknowledgment, the window is purely an
	// observation period.
	Duration time.Duration
	// DisableAfter removes drive voltage once the window closes
	DisableAfter bool
	// MonitorNode selects the heartbeat producer observed during the
	// window. Zero means the controlled node itself.
	MonitorNode uint8
}

// Controller orchestrates motion sequences on a single drive.
// It owns an SDO client and a heartbeat monitor on the same bus,
// used strictly one after the other, never concurrently.
type Controller struct {
	client  *SDOClient
	drive   *Drive
	monitor *HeartbeatMonitor
	nodeId  uint8
}

func NewController(bus Bus, nodeId uint8) (*Controller, error) {
	client := NewSDOClient(bus)
	drive, err := NewDrive(client, nodeId)
	if err != nil {
		return nil, err
	}
	return &Controller{
		client:  client,
		drive:   drive,
		monitor: NewHeartbeatMonitor(bus),
		nodeId:  nodeId,
	}, nil
}

func (controller *Controller) Client() *SDOClient {
	return controller.client
}

func (controller *Controller) Drive() *Drive {
	return controller.drive
}

func (controller *Controller) Monitor() *HeartbeatMonitor {
	return controller.monitor
}

// SetMode writes the requested mode of operation, unconditionally
func (controller *Controller) SetMode(mode OperationMode) error {
	log.Infof("[MOTION][x%x] setting mode of operation to %v", controller.nodeId, mode)
	return controller.client.WriteUint16(controller.nodeId, IndexModeOfOperation, 0, uint16(uint8(mode)))
}

// MoveProfileVelocity runs a profile velocity move :
// acceleration and deceleration ramps are rewritten only when they
// differ from what the drive reports (they are latched parameters, so
// the drive is disabled first), likewise the mode of operation. The
// drive is enabled if it is not already, then the velocity set-point
// is written. Calling this twice with an identical profile performs
// zero ramp or mode writes on the second call.
func (controller *Controller) MoveProfileVelocity(profile MotionProfile, opts MoveOptions) error {
	nodeId := controller.nodeId
	mode := profile.Mode
	if mode == 0 {
		mode = ModeProfileVelocity
	}

	accel, err := controller.client.ReadUint32(nodeId, IndexProfileAcceleration, 0)
	if err != nil {
		return err
	}
	decel, err := controller.client.ReadUint32(nodeId, IndexProfileDeceleration, 0)
	if err != nil {
		return err
	}
	if accel != uint32(profile.Accel) || decel != uint32(profile.Decel) {
		log.Infof("[MOTION][x%x] updating ramps : accel %v -> %v, decel %v -> %v",
			nodeId, accel, profile.Accel, decel, profile.Decel)
		// Ramps are latched, the drive must be disabled to take them
		if err := controller.drive.Disable(); err != nil {
			return err
		}
		if err := controller.client.WriteInt32(nodeId, IndexProfileAcceleration, 0, profile.Accel); err != nil {
			return err
		}
		if err := controller.client.WriteInt32(nodeId, IndexProfileDeceleration, 0, profile.Decel); err != nil {
			return err
		}
	}

	display, err := controller.client.ReadUint32(nodeId, IndexModeOfOperationDisplay, 0)
	if err != nil {
		return err
	}
	if OperationMode(int8(uint8(display))) != mode {
		if err := controller.drive.Disable(); err != nil {
			return err
		}
		if err := controller.SetMode(mode); err != nil {
			return err
		}
		if err := controller.drive.Enable(); err != nil {
			return err
		}
	}

	status, err := controller.drive.Statusword()
	if err != nil {
		return err
	}
	if status&StatusMaskEnabled != statusOperationEnabled {
		if err := controller.drive.Enable(); err != nil {
			return err
		}
	}

	log.Infof("[MOTION][x%x] setting target velocity to %v", nodeId, profile.Speed)
	if err := controller.client.WriteInt32(nodeId, IndexTargetVelocity, 0, profile.Speed); err != nil {
		return err
	}

	controller.observe(opts)
	if opts.DisableAfter {
		return controller.drive.Disable()
	}
	return nil
}

// MoveProfilePosition moves to an absolute target position :
// profile position mode, enable, target write, then controlword with
// the new set-point bits raised to latch and execute the move.
func (controller *Controller) MoveProfilePosition(position int32, opts MoveOptions) error {
	nodeId := controller.nodeId
	if err := controller.SetMode(ModeProfilePosition); err != nil {
		return err
	}
	if err := controller.drive.Enable(); err != nil {
		return err
	}
	log.Infof("[MOTION][x%x] setting target position to %v", nodeId, position)
	if err := controller.client.WriteInt32(nodeId, IndexTargetPosition, 0, position); err != nil {
		return err
	}
	if err := controller.drive.Command(ControlStartMotion); err != nil {
		return err
	}
	controller.observe(opts)
	if opts.DisableAfter {
		return controller.drive.Disable()
	}
	return nil
}

// SetTargetTorque switches to profile torque mode, enables the drive
// and writes the torque set-point (object 0x6071).
func (controller *Controller) SetTargetTorque(torque int16) error {
	if err := controller.SetMode(ModeProfileTorque); err != nil {
		return err
	}
	if err := controller.drive.Enable(); err != nil {
		return err
	}
	log.Infof("[MOTION][x%x] setting target torque to %v", controller.nodeId, torque)
	return controller.client.WriteUint16(controller.nodeId, IndexTargetTorque, 0, uint16(torque))
}

// SetTargetCurrent switches to the vendor current mode, enables the
// drive and writes the current set-point (vendor object 0x2030).
func (controller *Controller) SetTargetCurrent(current int16) error {
	if err := controller.SetMode(ModeCurrent); err != nil {
		return err
	}
	if err := controller.drive.Enable(); err != nil {
		return err
	}
	log.Infof("[MOTION][x%x] setting target current to %v", controller.nodeId, current)
	return controller.client.WriteUint16(controller.nodeId, IndexTargetCurrent, 0, uint16(current))
}

// observe blocks for the configured window while counting heartbeats,
// keeping the bus drained while the motion runs
func (controller *Controller) observe(opts MoveOptions) {
	if opts.Duration <= 0 {
		return
	}
	monitored := opts.MonitorNode
	if monitored == 0 {
		monitored = controller.nodeId
	}
	controller.monitor.Monitor(monitored, opts.Duration)
}
