package syncengine

import (
	"sync"
	"time"
)

// Timer is an interface for time.Timer to allow mocking.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// TimeProvider provides time-related functionality for dependency injection.
type TimeProvider interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// RealTimer wraps time.Timer to implement the Timer interface.
type RealTimer struct {
	timer *time.Timer
}

// C returns the timer's channel.
func (r *RealTimer) C() <-chan time.Time {
	return r.timer.C
}

// Stop stops the timer.
func (r *RealTimer) Stop() bool {
	return r.timer.Stop()
}

// RealTimeProvider implements TimeProvider using real time functions.
type RealTimeProvider struct{}

// NewTimer creates a new timer.
func (r *RealTimeProvider) NewTimer(d time.Duration) Timer {
	return &RealTimer{timer: time.NewTimer(d)}
}

// Now returns the current time.
func (r *RealTimeProvider) Now() time.Time {
	return time.Now()
}

// MockTimer is a Timer that fires only when told to.
type MockTimer struct {
	Duration time.Duration
	ch       chan time.Time
	stopped  bool
	mu       sync.Mutex
}

// C returns the timer's channel.
func (m *MockTimer) C() <-chan time.Time {
	return m.ch
}

// Stop stops the timer.
func (m *MockTimer) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasActive := !m.stopped
	m.stopped = true

	return wasActive
}

// Fire delivers a tick.
func (m *MockTimer) Fire() {
	m.ch <- time.Now()
}

// MockTimeProvider hands out MockTimers and publishes each one on Timers.
type MockTimeProvider struct {
	Timers chan *MockTimer
}

// NewMockTimeProvider creates a MockTimeProvider.
func NewMockTimeProvider() *MockTimeProvider {
	return &MockTimeProvider{Timers: make(chan *MockTimer, 16)}
}

// NewTimer creates a MockTimer and publishes it.
func (m *MockTimeProvider) NewTimer(d time.Duration) Timer {
	timer := &MockTimer{Duration: d, ch: make(chan time.Time, 1)}
	m.Timers <- timer

	return timer
}

// Now returns the current time.
func (m *MockTimeProvider) Now() time.Time {
	return time.Now()
}
