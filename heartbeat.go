package candrive

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultHeartbeatPollTimeout = 100 * time.Millisecond

// HeartbeatMonitor passively counts heartbeat frames from a producer
// node during a bounded observation window. It never transmits.
type HeartbeatMonitor struct {
	bus Bus
	// PollTimeout is the per-receive wait inside the window
	PollTimeout time.Duration
}

func NewHeartbeatMonitor(bus Bus) *HeartbeatMonitor {
	return &HeartbeatMonitor{bus: bus, PollTimeout: DefaultHeartbeatPollTimeout}
}

// Monitor drains the bus until the window closes and returns how many
// heartbeats were seen from monitoredNode (COB-ID 0x700 + node id).
// All other frames are ignored. Transport errors do not close the
// window, they are logged and polling resumes. The call blocks for the
// full duration, there is no early exit.
func (monitor *HeartbeatMonitor) Monitor(monitoredNode uint8, duration time.Duration) int {
	heartbeatId := HeartbeatId(monitoredNode)
	deadline := time.Now().Add(duration)
	count := 0
	log.Infof("[HB][x%x] observing heartbeats for %v", monitoredNode, duration)
	for time.Now().Before(deadline) {
		frame, err := monitor.bus.Recv(monitor.PollTimeout)
		if errors.Is(err, ErrNoMessage) {
			continue
		}
		if err != nil {
			log.Warnf("[HB][x%x] receive error during observation window : %v", monitoredNode, err)
			continue
		}
		if frame.ID != heartbeatId {
			continue
		}
		count++
		log.Debugf("[HB][x%x] heartbeat received, nmt state %v", monitoredNode, frame.Data[0])
	}
	log.Infof("[HB][x%x] received %v heartbeats", monitoredNode, count)
	return count
}
