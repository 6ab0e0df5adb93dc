package clock

import "time"

// Manual is a Scheduler driven by Advance. Callbacks run on the caller's goroutine.
type Manual struct {
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	next     time.Time
	interval time.Duration
	fn       func()
	stopped  bool
}

func (t *manualTimer) Stop() { t.stopped = true }

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time { return m.now }

func (m *Manual) Every(interval time.Duration, fn func()) Handle {
	t := &manualTimer{next: m.now.Add(interval), interval: interval, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (m *Manual) After(delay time.Duration, fn func()) {
	m.timers = append(m.timers, &manualTimer{next: m.now.Add(delay), fn: fn})
}

// Pending reports how many timers are still scheduled.
func (m *Manual) Pending() int {
	m.compact()
	return len(m.timers)
}

// Advance moves time forward by d, firing due callbacks in time order.
// Timers created by callbacks fire within the same call if they fall due.
func (m *Manual) Advance(d time.Duration) {
	end := m.now.Add(d)
	for {
		t := m.earliest(end)
		if t == nil {
			break
		}
		m.now = t.next
		if t.interval > 0 {
			t.next = t.next.Add(t.interval)
		} else {
			t.stopped = true
		}
		t.fn()
	}
	m.now = end
	m.compact()
}

func (m *Manual) earliest(end time.Time) *manualTimer {
	var best *manualTimer
	for _, t := range m.timers {
		if t.stopped || t.next.After(end) {
			continue
		}
		if best == nil || t.next.Before(best.next) {
			best = t
		}
	}
	return best
}

func (m *Manual) compact() {
	kept := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped {
			kept = append(kept, t)
		}
	}
	m.timers = kept
}
