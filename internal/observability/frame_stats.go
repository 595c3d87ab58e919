package observability

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

// DefaultFrameStatsWindow is the number of frame-rate samples kept.
const DefaultFrameStatsWindow = 30

// FrameStats keeps a sliding window of frame-rate samples.
type FrameStats struct {
	mu      sync.Mutex
	samples []float64
	next    int
	full    bool
}

// NewFrameStats returns a window of the given size; non-positive sizes use
// DefaultFrameStatsWindow.
func NewFrameStats(window int) *FrameStats {
	if window <= 0 {
		window = DefaultFrameStatsWindow
	}
	return &FrameStats{samples: make([]float64, window)}
}

// Add records one sample, evicting the oldest when the window is full.
func (f *FrameStats) Add(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples[f.next] = v
	f.next = (f.next + 1) % len(f.samples)
	if f.next == 0 {
		f.full = true
	}
}

// Len returns the number of samples held.
func (f *FrameStats) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lenLocked()
}

func (f *FrameStats) lenLocked() int {
	if f.full {
		return len(f.samples)
	}
	return f.next
}

// MeanStdDev returns the mean and sample standard deviation of the window.
// The deviation is zero when fewer than two samples exist.
func (f *FrameStats) MeanStdDev() (mean, std float64) {
	f.mu.Lock()
	n := f.lenLocked()
	window := append([]float64(nil), f.samples[:n]...)
	f.mu.Unlock()

	switch n {
	case 0:
		return 0, 0
	case 1:
		return window[0], 0
	}
	return stat.MeanStdDev(window, nil)
}

// Reset clears all samples.
func (f *FrameStats) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next = 0
	f.full = false
}
