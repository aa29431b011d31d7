package candrive

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Scripted in-memory Bus shared by the package tests.
// Frames pushed to the queue are returned by Recv in order, a drained
// queue behaves like a quiet bus.
type testBus struct {
	sent        []Frame
	queue       []Frame
	sendErr     error
	recvErrOnce error
	onSend      func(frame Frame)
}

func newTestBus() *testBus {
	return &testBus{}
}

func (bus *testBus) Connect(...any) error {
	return nil
}

func (bus *testBus) Disconnect() error {
	return nil
}

func (bus *testBus) Send(frame Frame) error {
	if bus.sendErr != nil {
		return bus.sendErr
	}
	bus.sent = append(bus.sent, frame)
	if bus.onSend != nil {
		bus.onSend(frame)
	}
	return nil
}

func (bus *testBus) Recv(timeout time.Duration) (Frame, error) {
	if bus.recvErrOnce != nil {
		err := bus.recvErrOnce
		bus.recvErrOnce = nil
		return Frame{}, err
	}
	if len(bus.queue) == 0 {
		time.Sleep(timeout)
		return Frame{}, ErrNoMessage
	}
	frame := bus.queue[0]
	bus.queue = bus.queue[1:]
	return frame, nil
}

func (bus *testBus) push(frame Frame) {
	bus.queue = append(bus.queue, frame)
}

// driveSim emulates the happy path of a CiA 402 drive behind the
// expedited SDO protocol : reads answer from its registers, writes
// update them, controlword commands walk the state machine.
type driveSim struct {
	bus      *testBus
	nodeId   uint8
	status   uint16
	accel    uint32
	decel    uint32
	mode     uint8
	velocity int32
	position int32

	// stuckFault makes fault reset commands ineffective
	stuckFault bool

	writes        map[uint16]int
	controlWrites []uint16
	history       []string
}

func newDriveSim(bus *testBus, nodeId uint8) *driveSim {
	sim := &driveSim{
		bus:    bus,
		nodeId: nodeId,
		status: statusSwitchOnDisabled,
		writes: map[uint16]int{},
	}
	bus.onSend = sim.handle
	return sim
}

func (sim *driveSim) handle(frame Frame) {
	if frame.ID != SDORequestId(sim.nodeId) {
		return
	}
	index := binary.LittleEndian.Uint16(frame.Data[1:3])
	subindex := frame.Data[3]
	switch frame.Data[0] {
	case sdoRequestUpload:
		response := NewFrame(SDOResponseId(sim.nodeId), 0, 8)
		response.Data[0] = 0x43 // upload response, expedited, 4 bytes
		binary.LittleEndian.PutUint16(response.Data[1:3], index)
		response.Data[3] = subindex
		binary.LittleEndian.PutUint32(response.Data[4:8], sim.read(index))
		sim.bus.push(response)
	case sdoDownloadExpedited2Byte, sdoDownloadExpedited4Byte:
		value := binary.LittleEndian.Uint32(frame.Data[4:8])
		sim.writes[index]++
		sim.history = append(sim.history, fmt.Sprintf("%04X=%08X", index, value))
		sim.write(index, value)
		// No download confirmation is queued, the client never waits
		// for one
	}
}

func (sim *driveSim) read(index uint16) uint32 {
	switch index {
	case IndexStatusword:
		return uint32(sim.status)
	case IndexProfileAcceleration:
		return sim.accel
	case IndexProfileDeceleration:
		return sim.decel
	case IndexModeOfOperationDisplay:
		return uint32(sim.mode)
	}
	return 0
}

func (sim *driveSim) write(index uint16, value uint32) {
	switch index {
	case IndexControlword:
		sim.controlWrites = append(sim.controlWrites, uint16(value))
		sim.applyControl(uint16(value))
	case IndexProfileAcceleration:
		sim.accel = value
	case IndexProfileDeceleration:
		sim.decel = value
	case IndexModeOfOperation:
		sim.mode = uint8(value)
	case IndexTargetVelocity:
		sim.velocity = int32(value)
	case IndexTargetPosition:
		sim.position = int32(value)
	}
}

func (sim *driveSim) applyControl(control uint16) {
	faulted := sim.status&StatusMaskState == statusFault ||
		sim.status&StatusMaskState == statusFaultReactionActive
	if control == ControlFaultReset {
		if sim.status&StatusMaskState == statusFault && !sim.stuckFault {
			sim.status = statusSwitchOnDisabled
		}
		return
	}
	if faulted {
		// Ignore anything but a fault reset while faulted
		return
	}
	switch control {
	case ControlDisableVoltage:
		sim.status = statusSwitchOnDisabled
	case ControlShutdown:
		sim.status = statusReadyToSwitchOn
	case ControlSwitchOn:
		sim.status = statusSwitchedOn
	case ControlEnableOperation:
		sim.status = statusOperationEnabled
	}
}

// historyIndex returns the position of the first write matching index
// and value, -1 if absent
func (sim *driveSim) historyIndex(index uint16, value uint32) int {
	entry := fmt.Sprintf("%04X=%08X", index, value)
	for i, recorded := range sim.history {
		if recorded == entry {
			return i
		}
	}
	return -1
}

// newTestController wires a controller with timing suited for tests
func newTestController(bus *testBus, nodeId uint8) *Controller {
	controller, err := NewController(bus, nodeId)
	if err != nil {
		panic(err)
	}
	controller.Client().Timeout = 100 * time.Millisecond
	controller.Client().PollInterval = time.Millisecond
	controller.Drive().SettleTimeout = 50 * time.Millisecond
	controller.Drive().PollInterval = time.Millisecond
	controller.Monitor().PollTimeout = time.Millisecond
	return controller
}
