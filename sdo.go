package candrive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// SDO command specifiers for expedited transfers
const (
	sdoRequestUpload          uint8 = 0x40 // initiate upload (read)
	sdoDownloadExpedited2Byte uint8 = 0x2B // initiate download, 2 data bytes
	sdoDownloadExpedited4Byte uint8 = 0x23 // initiate download, 4 data bytes
)

const (
	DefaultSDOClientTimeout = 1000 * time.Millisecond
	DefaultSDOPollInterval  = 10 * time.Millisecond
)

// SDOClient accesses the object dictionary of remote nodes using
// expedited SDO transfers, one transaction at a time.
// Segmented and block transfers are not supported.
type SDOClient struct {
	bus Bus
	// Timeout is the per-call deadline for reads
	Timeout time.Duration
	// PollInterval is the receive wait used on each poll of the bus
	PollInterval time.Duration
}

func NewSDOClient(bus Bus) *SDOClient {
	return &SDOClient{
		bus:          bus,
		Timeout:      DefaultSDOClientTimeout,
		PollInterval: DefaultSDOPollInterval,
	}
}

// buildRequest creates the 8 byte expedited request frame layout :
// [command, index low, index high, subindex, data 0..3]
func buildRequest(command uint8, nodeId uint8, index uint16, subindex uint8) Frame {
	frame := NewFrame(SDORequestId(nodeId), 0, 8)
	frame.Data[0] = command
	binary.LittleEndian.PutUint16(frame.Data[1:3], index)
	frame.Data[3] = subindex
	return frame
}

// ReadUint32 reads an object dictionary entry from a remote node.
// The request is sent once, then the bus is polled until the matching
// response arrives (COB-ID of the request minus 0x80) or the client
// timeout elapses, in which case ErrSDOTimeout is returned.
// Frames with any other COB-ID are silently discarded.
func (client *SDOClient) ReadUint32(nodeId uint8, index uint16, subindex uint8) (uint32, error) {
	if nodeId < 1 || nodeId > 127 || client.Timeout <= 0 {
		return 0, ErrIllegalArgument
	}
	deadline := time.Now().Add(client.Timeout)
	request := buildRequest(sdoRequestUpload, nodeId, index, subindex)
	if err := client.bus.Send(request); err != nil {
		return 0, fmt.Errorf("failed to send SDO read request : %w", err)
	}
	log.Debugf("[SDO][x%x] read request x%x|x%x", nodeId, index, subindex)

	responseId := SDOResponseId(nodeId)
	for time.Now().Before(deadline) {
		frame, err := client.bus.Recv(client.PollInterval)
		if errors.Is(err, ErrNoMessage) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to receive SDO response : %w", err)
		}
		if frame.ID != responseId {
			// Not addressed to this transaction
			continue
		}
		value := binary.LittleEndian.Uint32(frame.Data[4:8])
		log.Debugf("[SDO][x%x] read x%x|x%x : %v", nodeId, index, subindex, value)
		return value, nil
	}
	log.Warnf("[SDO][x%x] timed out reading x%x|x%x", nodeId, index, subindex)
	return 0, ErrSDOTimeout
}

// WriteUint16 writes a 2 byte value to an object dictionary entry.
// The request is sent once and the write confirmation from the server
// is deliberately not awaited : the drives this package targets
// acknowledge asynchronously and CiA 301 confirmation waiting could
// stall against them. Callers that need certainty should read the
// entry back.
func (client *SDOClient) WriteUint16(nodeId uint8, index uint16, subindex uint8, value uint16) error {
	if nodeId < 1 || nodeId > 127 {
		return ErrIllegalArgument
	}
	request := buildRequest(sdoDownloadExpedited2Byte, nodeId, index, subindex)
	binary.LittleEndian.PutUint16(request.Data[4:6], value)
	if err := client.bus.Send(request); err != nil {
		return fmt.Errorf("failed to send SDO write request : %w", err)
	}
	log.Debugf("[SDO][x%x] write x%x|x%x : %v", nodeId, index, subindex, value)
	return nil
}

// WriteUint32 writes a 4 byte value, same send-only semantics as
// WriteUint16.
func (client *SDOClient) WriteUint32(nodeId uint8, index uint16, subindex uint8, value uint32) error {
	if nodeId < 1 || nodeId > 127 {
		return ErrIllegalArgument
	}
	request := buildRequest(sdoDownloadExpedited4Byte, nodeId, index, subindex)
	binary.LittleEndian.PutUint32(request.Data[4:8], value)
	if err := client.bus.Send(request); err != nil {
		return fmt.Errorf("failed to send SDO write request : %w", err)
	}
	log.Debugf("[SDO][x%x] write x%x|x%x : %v", nodeId, index, subindex, value)
	return nil
}

// WriteInt32 writes a signed 4 byte value (speeds, ramps, positions)
func (client *SDOClient) WriteInt32(nodeId uint8, index uint16, subindex uint8, value int32) error {
	return client.WriteUint32(nodeId, index, subindex, uint32(value))
}
