package core

import (
	"time"

	"github.com/signalsfoundry/geoar-bridge/timectrl"
)

// DefaultSampleInterval is how often the rendered frame rate is sampled.
const DefaultSampleInterval = time.Second

// frameRateSampler periodically converts the synchronizer's frame counter
// into a frames-per-second reading. It only reads atomics and never
// affects synchronization.
type frameRateSampler struct {
	tc      *timectrl.TimeController
	done    <-chan struct{}
	frames  func() uint64
	metrics MetricsRecorder
	last    uint64
}

func startFrameRateSampler(interval time.Duration, frames func() uint64, metrics MetricsRecorder) *frameRateSampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	s := &frameRateSampler{
		tc:      timectrl.NewTimeController(time.Now(), interval, timectrl.RealTime),
		frames:  frames,
		metrics: metrics,
		last:    frames(),
	}
	s.tc.AddListener(s.sample)
	s.done = s.tc.Start(0)
	return s
}

func (s *frameRateSampler) sample(time.Time) {
	n := s.frames()
	delta := n - s.last
	s.last = n
	s.metrics.SetFrameRate(float64(delta) / s.tc.Tick.Seconds())
}

// stop cancels sampling and waits for the loop to exit.
func (s *frameRateSampler) stop() {
	if s == nil {
		return
	}
	s.tc.Stop()
	<-s.done
}
