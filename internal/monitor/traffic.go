package monitor

import (
	"sync"
	"time"
)

type trafficSample struct {
	bytesReceived uint64
	bytesSent     uint64
	at            time.Time
}

// trafficMeter keeps a short ring of interface counters and derives the
// average transfer rate over the samples inside the window.
type trafficMeter struct {
	mu     sync.RWMutex
	window time.Duration
	max    int
	items  []trafficSample
}

func newTrafficMeter(max int, window time.Duration) *trafficMeter {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = 6 * time.Second
	}
	return &trafficMeter{max: max, window: window}
}

func (m *trafficMeter) Add(s trafficSample) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = append(m.items, s)
	if len(m.items) > m.max {
		m.items = m.items[len(m.items)-m.max:]
	}
}

// Speed returns bytes/sec received and sent, averaged over the in-window
// samples. Fewer than two in-window samples yields zero.
func (m *trafficMeter) Speed(now time.Time) (receivedSpeed float64, sentSpeed float64) {
	if m == nil {
		return 0, 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.items) < 2 {
		return 0, 0
	}

	valid := make([]trafficSample, 0, len(m.items))
	for i := len(m.items) - 1; i >= 0; i-- {
		s := m.items[i]
		if now.Sub(s.at) <= m.window {
			valid = append([]trafficSample{s}, valid...)
			continue
		}
		break
	}

	if len(valid) < 2 {
		return 0, 0
	}

	oldest := valid[0]
	newest := valid[len(valid)-1]
	dt := newest.at.Sub(oldest.at).Seconds()
	if dt <= 0 {
		return 0, 0
	}

	receivedSpeed = float64(newest.bytesReceived-oldest.bytesReceived) / dt
	sentSpeed = float64(newest.bytesSent-oldest.bytesSent) / dt
	return receivedSpeed, sentSpeed
}
