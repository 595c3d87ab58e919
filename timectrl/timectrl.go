package timectrl

import (
	"sync"
	"time"
)

// Clock is the read side of a TimeController.
type Clock interface {
	Now() time.Time
}

// Mode describes how the TimeController advances time.
type Mode int

const (
	// RealTime advances according to wall-clock time.
	RealTime Mode = iota
	// Accelerated steps by Tick as fast as the listeners allow.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "realtime"
}

// TimeController advances a clock by Tick and notifies registered
// listeners on every step. It drives the frame-rate sampler and the
// simulator's frame loop.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	currentTime time.Time
	listeners   []func(time.Time)

	stop     chan struct{}
	stopOnce sync.Once
	running  bool
}

// NewTimeController constructs a stopped controller.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
		stop:        make(chan struct{}),
	}
}

// Now returns the controller's current time.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// AddListener registers a callback invoked on every tick. Listeners added
// after Start are picked up from the next tick.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.mu.Lock()
	tc.listeners = append(tc.listeners, fn)
	tc.mu.Unlock()
}

// Start runs the controller in a separate goroutine until duration has
// elapsed (forever when duration <= 0) or Stop is called. The returned
// channel is closed when the loop exits. Start on a running or stopped
// controller returns an already-closed channel.
func (tc *TimeController) Start(duration time.Duration) <-chan struct{} {
	done := make(chan struct{})

	tc.mu.Lock()
	if tc.running || tc.stopped() {
		tc.mu.Unlock()
		close(done)
		return done
	}
	tc.running = true
	simTime := tc.StartTime
	tc.currentTime = simTime
	tc.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			tc.mu.Lock()
			tc.running = false
			tc.mu.Unlock()
		}()

		var ticks <-chan time.Time
		if tc.Mode == RealTime {
			ticker := time.NewTicker(tc.Tick)
			defer ticker.Stop()
			ticks = ticker.C
		}

		elapsed := time.Duration(0)
		for {
			if duration > 0 && elapsed >= duration {
				return
			}

			if ticks != nil {
				select {
				case <-tc.stop:
					return
				case <-ticks:
				}
			} else {
				select {
				case <-tc.stop:
					return
				default:
				}
			}

			simTime = simTime.Add(tc.Tick)
			elapsed += tc.Tick

			tc.mu.Lock()
			tc.currentTime = simTime
			listeners := append([]func(time.Time){}, tc.listeners...)
			tc.mu.Unlock()

			for _, fn := range listeners {
				fn(simTime)
			}
		}
	}()
	return done
}

// Stop ends the loop. It is safe to call more than once and before Start.
func (tc *TimeController) Stop() {
	tc.stopOnce.Do(func() { close(tc.stop) })
}

func (tc *TimeController) stopped() bool {
	select {
	case <-tc.stop:
		return true
	default:
		return false
	}
}
