package candrive

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// Object dictionary entries of the CiA 402 drive profile used here
const (
	IndexControlword            uint16 = 0x6040
	IndexStatusword             uint16 = 0x6041
	IndexModeOfOperation        uint16 = 0x6060
	IndexModeOfOperationDisplay uint16 = 0x6061
	IndexTargetTorque           uint16 = 0x6071
	IndexTargetPosition         uint16 = 0x607A
	IndexProfileAcceleration    uint16 = 0x6083
	IndexProfileDeceleration    uint16 = 0x6084
	IndexTargetVelocity         uint16 = 0x60FF
	IndexTargetCurrent          uint16 = 0x2030 // vendor specific
)

// Controlword command patterns (object 0x6040)
const (
	ControlDisableVoltage  uint16 = 0x00 // transition T9 back to switch on disabled
	ControlShutdown        uint16 = 0x06
	ControlSwitchOn        uint16 = 0x07
	ControlEnableOperation uint16 = 0x0F
	ControlStartMotion     uint16 = 0x3F // latch new set-point in profile position mode
	ControlFaultReset      uint16 = 0x80 // rising edge triggers transition T15
)

// Statusword masks & patterns (object 0x6041)
const (
	StatusMaskState   uint16 = 0x4F // ready, switched on, op enabled, fault bits
	StatusMaskEnabled uint16 = 0x6F // same plus voltage enabled

	statusFaultReactionActive uint16 = 0x0F // masked with StatusMaskState
	statusFault               uint16 = 0x08 // masked with StatusMaskState
	statusSwitchOnDisabled    uint16 = 0x40 // masked with StatusMaskState
	statusReadyToSwitchOn     uint16 = 0x21 // masked with StatusMaskEnabled
	statusSwitchedOn          uint16 = 0x23 // masked with StatusMaskEnabled
	statusOperationEnabled    uint16 = 0x27 // masked with StatusMaskEnabled
)

// State of the CiA 402 power drive state machine
type State uint8

const (
	StateNotReadyToSwitchOn State = iota
	StateSwitchOnDisabled
	StateReadyToSwitchOn
	StateSwitchedOn
	StateOperationEnabled
	StateQuickStopActive
	StateFaultReactionActive
	StateFault
	StateUnknown
)

var stateDescription = map[State]string{
	StateNotReadyToSwitchOn:  "NOT READY TO SWITCH ON",
	StateSwitchOnDisabled:    "SWITCH ON DISABLED",
	StateReadyToSwitchOn:     "READY TO SWITCH ON",
	StateSwitchedOn:          "SWITCHED ON",
	StateOperationEnabled:    "OPERATION ENABLED",
	StateQuickStopActive:     "QUICK STOP ACTIVE",
	StateFaultReactionActive: "FAULT REACTION ACTIVE",
	StateFault:               "FAULT",
	StateUnknown:             "UNKNOWN",
}

func (state State) String() string {
	description, ok := stateDescription[state]
	if !ok {
		return "UNKNOWN"
	}
	return description
}

// StateFromStatusword decodes the drive state from a statusword
func StateFromStatusword(status uint16) State {
	switch {
	case status&StatusMaskState == 0x00:
		return StateNotReadyToSwitchOn
	case status&StatusMaskState == statusSwitchOnDisabled:
		return StateSwitchOnDisabled
	case status&StatusMaskEnabled == statusReadyToSwitchOn:
		return StateReadyToSwitchOn
	case status&StatusMaskEnabled == statusSwitchedOn:
		return StateSwitchedOn
	case status&StatusMaskEnabled == statusOperationEnabled:
		return StateOperationEnabled
	case status&StatusMaskEnabled == 0x07:
		return StateQuickStopActive
	case status&StatusMaskState == statusFaultReactionActive:
		return StateFaultReactionActive
	case status&StatusMaskState == statusFault:
		return StateFault
	default:
		return StateUnknown
	}
}

const (
	DefaultSettleTimeout      = 2000 * time.Millisecond
	DefaultStatusPollInterval = 50 * time.Millisecond
)

// Drive commands a single CiA 402 drive through an SDO client.
// It keeps no state of its own, every decision is made from a freshly
// read statusword.
type Drive struct {
	client *SDOClient
	nodeId uint8
	// SettleTimeout bounds the wait for a commanded state transition
	SettleTimeout time.Duration
	// PollInterval is the statusword re-read period during a transition
	PollInterval time.Duration
}

func NewDrive(client *SDOClient, nodeId uint8) (*Drive, error) {
	if client == nil || nodeId < 1 || nodeId > 127 {
		return nil, ErrIllegalArgument
	}
	return &Drive{
		client:        client,
		nodeId:        nodeId,
		SettleTimeout: DefaultSettleTimeout,
		PollInterval:  DefaultStatusPollInterval,
	}, nil
}

func (drive *Drive) NodeId() uint8 {
	return drive.nodeId
}

// Statusword reads object 0x6041
func (drive *Drive) Statusword() (uint16, error) {
	value, err := drive.client.ReadUint32(drive.nodeId, IndexStatusword, 0)
	return uint16(value), err
}

// State reads the statusword and decodes the drive state
func (drive *Drive) State() (State, error) {
	status, err := drive.Statusword()
	if err != nil {
		return StateUnknown, err
	}
	return StateFromStatusword(status), nil
}

// Command writes a controlword pattern to object 0x6040
func (drive *Drive) Command(control uint16) error {
	return drive.client.WriteUint16(drive.nodeId, IndexControlword, 0, control)
}

// waitStatus polls the statusword until status & mask == want or the
// settle deadline passes. The drive acknowledges most transitions well
// before the deadline, so this is much faster than a fixed settle
// sleep while still bounding the worst case.
func (drive *Drive) waitStatus(mask uint16, want uint16) (uint16, error) {
	deadline := time.Now().Add(drive.SettleTimeout)
	for {
		status, err := drive.Statusword()
		if err == nil && status&mask == want {
			return status, nil
		}
		if time.Now().After(deadline) {
			if err != nil {
				return status, err
			}
			return status, &UnexpectedStatusError{Status: status, Mask: mask, Want: want}
		}
		time.Sleep(drive.PollInterval)
	}
}

// clearFault checks for a pending fault and issues a fault reset
// (transition T15) if one is active. Shared by Enable and Disable.
func (drive *Drive) clearFault() error {
	status, err := drive.Statusword()
	if err != nil {
		return err
	}
	switch status & StatusMaskState {
	case statusFaultReactionActive:
		log.Errorf("[CIA402][x%x] drive in fault reaction active state", drive.nodeId)
		return ErrFaultReactionActive
	case statusFault:
		log.Infof("[CIA402][x%x] drive in fault state, issuing fault reset", drive.nodeId)
		if err := drive.Command(ControlFaultReset); err != nil {
			return err
		}
		status, err = drive.waitStatus(StatusMaskState, statusSwitchOnDisabled)
		if err != nil {
			var unexpected *UnexpectedStatusError
			if errors.As(err, &unexpected) {
				return &FaultNotClearedError{Status: status}
			}
			return err
		}
	}
	return nil
}

// One step of the enable chain : controlword to issue and the masked
// statusword pattern that confirms the transition
type transitionStep struct {
	control     uint16
	mask        uint16
	want        uint16
	description string
}

// Walks switch on disabled -> ready to switch on -> switched on ->
// operation enabled. The leading disable voltage command makes the
// chain valid from any non-fault starting state.
var enableSequence = []transitionStep{
	{ControlDisableVoltage, StatusMaskState, statusSwitchOnDisabled, "disable voltage"},
	{ControlShutdown, StatusMaskEnabled, statusReadyToSwitchOn, "shutdown"},
	{ControlSwitchOn, StatusMaskEnabled, statusSwitchedOn, "switch on"},
	{ControlEnableOperation, StatusMaskEnabled, statusOperationEnabled, "switch on and enable"},
}

// Enable clears any pending fault and walks the CiA 402 transition
// graph up to the operation enabled state. Intermediate steps that do
// not confirm in time are logged and the chain continues, only the
// final state is checked strictly : an *UnexpectedStatusError is
// returned if the drive did not reach operation enabled.
func (drive *Drive) Enable() error {
	if err := drive.clearFault(); err != nil {
		return err
	}
	for i, step := range enableSequence {
		log.Debugf("[CIA402][x%x] issuing %s command", drive.nodeId, step.description)
		if err := drive.Command(step.control); err != nil {
			return err
		}
		status, err := drive.waitStatus(step.mask, step.want)
		if err != nil {
			var unexpected *UnexpectedStatusError
			if !errors.As(err, &unexpected) {
				return err
			}
			if i == len(enableSequence)-1 {
				return err
			}
			log.Warnf("[CIA402][x%x] statusword x%x after %s command (%v)",
				drive.nodeId, status, step.description, StateFromStatusword(status))
		}
	}
	log.Infof("[CIA402][x%x] drive enabled", drive.nodeId)
	return nil
}

// Disable clears any pending fault, then removes voltage (transition
// T9 from any enabled state back to switch on disabled).
func (drive *Drive) Disable() error {
	if err := drive.clearFault(); err != nil {
		return err
	}
	log.Debugf("[CIA402][x%x] issuing disable voltage command", drive.nodeId)
	if err := drive.Command(ControlDisableVoltage); err != nil {
		return err
	}
	if _, err := drive.waitStatus(StatusMaskState, statusSwitchOnDisabled); err != nil {
		return err
	}
	log.Infof("[CIA402][x%x] drive disabled", drive.nodeId)
	return nil
}
