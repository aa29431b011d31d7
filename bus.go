package candrive

import "time"

// A CAN Bus interface
// Reception is polled : there is no background dispatcher, the caller
// owns the bus and drains it at its own pace. Exactly one routine uses
// the bus at any given time, ownership is handed off by call order.
type Bus interface {
	Connect(...any) error   // Connect to the CAN bus
	Disconnect() error      // Disconnect from CAN bus
	Send(frame Frame) error // Send a frame on the bus
	// Recv returns the next received frame, waiting at most timeout.
	// A quiet bus yields ErrNoMessage, which is not a failure.
	// Any other error is a transport failure.
	Recv(timeout time.Duration) (Frame, error)
}
