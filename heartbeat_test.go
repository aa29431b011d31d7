package candrive

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonitorCountsOnlyMatchingHeartbeats(t *testing.T) {
	bus := newTestBus()
	monitor := NewHeartbeatMonitor(bus)
	monitor.PollTimeout = time.Millisecond

	// Three heartbeats from x25 interleaved with other traffic
	bus.push(Frame{ID: HeartbeatId(0x25), DLC: 1, Data: [8]byte{0x05}})
	bus.push(Frame{ID: HeartbeatId(0x26), DLC: 1, Data: [8]byte{0x05}})
	bus.push(Frame{ID: SDOResponseId(0x25), DLC: 8})
	bus.push(Frame{ID: HeartbeatId(0x25), DLC: 1, Data: [8]byte{0x05}})
	bus.push(Frame{ID: 0x181, DLC: 8})
	bus.push(Frame{ID: HeartbeatId(0x25), DLC: 1, Data: [8]byte{0x7F}})

	count := monitor.Monitor(0x25, 50*time.Millisecond)
	assert.Equal(t, 3, count)
}

func TestMonitorBlocksForFullWindow(t *testing.T) {
	bus := newTestBus()
	monitor := NewHeartbeatMonitor(bus)
	monitor.PollTimeout = time.Millisecond

	start := time.Now()
	count := monitor.Monitor(0x25, 50*time.Millisecond)
	assert.Equal(t, 0, count)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestMonitorSurvivesTransportError(t *testing.T) {
	bus := newTestBus()
	monitor := NewHeartbeatMonitor(bus)
	monitor.PollTimeout = time.Millisecond

	bus.recvErrOnce = errors.New("bus off")
	bus.push(Frame{ID: HeartbeatId(0x25), DLC: 1, Data: [8]byte{0x05}})

	count := monitor.Monitor(0x25, 50*time.Millisecond)
	assert.Equal(t, 1, count)
}
