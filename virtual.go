package candrive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Virtual CAN bus implementation used for running without hardware.
// This uses TCP as transport, client side of the virtualcan server
// from windelbouwman/virtualcan.
// Supports only standard frame format.

// Helper function for serializing a CAN frame into the expected binary format
func serializeFrame(frame Frame) ([]byte, error) {
	buffer := new(bytes.Buffer)
	err := binary.Write(buffer, binary.BigEndian, frame)
	if err != nil {
		return nil, err
	}
	dataBytes := buffer.Bytes()
	headerBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(headerBytes, uint32(len(dataBytes)))
	return append(headerBytes, dataBytes...), nil
}

// Helper function for deserializing a CAN frame from expected binary format
func deserializeFrame(buffer []byte) (*Frame, error) {
	var frame Frame
	err := binary.Read(bytes.NewBuffer(buffer), binary.BigEndian, &frame)
	if err != nil {
		return nil, err
	}
	return &frame, nil
}

type VirtualCanBus struct {
	channel string
	conn    net.Conn
}

func NewVirtualCanBus(channel string) *VirtualCanBus {
	return &VirtualCanBus{channel: channel}
}

// "Connect" to server e.g. localhost:18000
func (client *VirtualCanBus) Connect(...any) error {
	conn, err := net.Dial("tcp", client.channel)
	if err != nil {
		return err
	}
	client.conn = conn
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		return tcpConn.SetNoDelay(true)
	}
	return nil
}

// "Disconnect" from server
func (client *VirtualCanBus) Disconnect() error {
	if client.conn == nil {
		return nil
	}
	return client.conn.Close()
}

// "Send" implementation of Bus interface
func (client *VirtualCanBus) Send(frame Frame) error {
	if client.conn == nil {
		return errors.New("no active connection, abort send")
	}
	frameBytes, err := serializeFrame(frame)
	if err != nil {
		return err
	}
	client.conn.SetWriteDeadline(time.Now().Add(10 * time.Millisecond))
	_, err = client.conn.Write(frameBytes)
	return err
}

// "Recv" implementation of Bus interface. A read deadline expiring
// maps to ErrNoMessage so callers keep polling.
func (client *VirtualCanBus) Recv(timeout time.Duration) (Frame, error) {
	if client.conn == nil {
		return Frame{}, errors.New("no active connection, abort receive")
	}
	client.conn.SetReadDeadline(time.Now().Add(timeout))
	headerBytes := make([]byte, 4)
	if _, err := io.ReadFull(client.conn, headerBytes); err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return Frame{}, ErrNoMessage
		}
		return Frame{}, fmt.Errorf("error reading frame header : %w", err)
	}
	length := binary.BigEndian.Uint32(headerBytes)
	frameBytes := make([]byte, length)
	// The header already arrived, the body follows immediately
	client.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, err := io.ReadFull(client.conn, frameBytes); err != nil {
		return Frame{}, fmt.Errorf("error reading frame body : %w", err)
	}
	frame, err := deserializeFrame(frameBytes)
	if err != nil {
		return Frame{}, err
	}
	return *frame, nil
}
