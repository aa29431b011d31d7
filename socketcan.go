package candrive

import (
	"time"

	"github.com/brutella/can"
	log "github.com/sirupsen/logrus"
)

// Basic wrapper around socketcan (brutella/can implementation).
// brutella/can publishes received frames through a subscriber
// callback, the internal rx channel turns that into the polled Recv
// this package expects.
type SocketcanBus struct {
	bus *can.Bus
	rx  chan Frame
}

func NewSocketcanBus(name string) (*SocketcanBus, error) {
	bus, err := can.NewBusForInterfaceWithName(name)
	if err != nil {
		return nil, err
	}
	return &SocketcanBus{bus: bus, rx: make(chan Frame, 128)}, nil
}

// "Connect" implementation of Bus interface
func (socketcan *SocketcanBus) Connect(...any) error {
	socketcan.bus.Subscribe(socketcan)
	go socketcan.bus.ConnectAndPublish()
	return nil
}

// "Disconnect" implementation of Bus interface
func (socketcan *SocketcanBus) Disconnect() error {
	return socketcan.bus.Disconnect()
}

// "Send" implementation of Bus interface
func (socketcan *SocketcanBus) Send(frame Frame) error {
	return socketcan.bus.Publish(
		can.Frame{
			ID:     frame.ID,
			Length: frame.DLC,
			Flags:  frame.Flags,
			Res0:   0,
			Res1:   0,
			Data:   frame.Data,
		})
}

// "Recv" implementation of Bus interface
func (socketcan *SocketcanBus) Recv(timeout time.Duration) (Frame, error) {
	select {
	case frame := <-socketcan.rx:
		return frame, nil
	case <-time.After(timeout):
		return Frame{}, ErrNoMessage
	}
}

// brutella/can specific "Handle" implementation, feeds the rx channel
func (socketcan *SocketcanBus) Handle(frame can.Frame) {
	select {
	case socketcan.rx <- Frame{ID: frame.ID & CanSffMask, DLC: frame.Length, Flags: frame.Flags, Data: frame.Data}:
	default:
		log.Warnf("[CAN] rx buffer full, dropping frame x%x", frame.ID)
	}
}
