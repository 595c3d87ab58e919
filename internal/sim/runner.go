package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/signalsfoundry/geoar-bridge/core"
	"github.com/signalsfoundry/geoar-bridge/internal/logging"
	"github.com/signalsfoundry/geoar-bridge/model"
	"github.com/signalsfoundry/geoar-bridge/timectrl"
)

// Summary reports what a scenario run did.
type Summary struct {
	Frames        int
	Rendered      int
	FinalState    model.SessionState
	Notifications []string
	Failures      int
	TrackerRuns   int
	TrackerResets int
	Relocalized   int
	Anchor        *model.GeographicAnchor
	Watermark     float64

	// Anchors and Planes count the tracker anchors still registered at
	// the end of the run.
	Anchors           int
	Planes            int
	TranslationFactor float64
}

// Runner replays a Scenario against a Session. Each tick of its time
// controller is one tracker frame.
type Runner struct {
	scenario *Scenario
	session  *core.Session
	device   *Device
	log      logging.Logger
	observer *Observer

	relocalized int
}

// NewRunner binds a session to the device it was built with and registers
// the runner's observer on it.
func NewRunner(sc *Scenario, session *core.Session, device *Device, log logging.Logger) *Runner {
	if log == nil {
		log = logging.Noop()
	}
	obs := NewObserver(log)
	session.SetSessionObserver(obs)
	device.Renderer.SetPhaseObserver(session.RenderCallbacks())
	return &Runner{scenario: sc, session: session, device: device, log: log, observer: obs}
}

// Observer returns the observer receiving the session's events.
func (r *Runner) Observer() *Observer { return r.observer }

// Run plays every frame of the scenario. In accelerated mode frames are
// produced back to back; in real time one frame is produced per interval.
// Run returns early when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, mode timectrl.Mode, interval time.Duration) (Summary, error) {
	if interval <= 0 {
		interval = r.scenario.FrameInterval
	}
	start := time.Unix(0, 0).UTC()
	tc := timectrl.NewTimeController(start, interval, mode)

	var (
		mu     sync.Mutex
		frame  int
		events = r.scenario.Events
	)
	tc.AddListener(func(now time.Time) {
		mu.Lock()
		defer mu.Unlock()
		if frame >= r.scenario.Frames {
			return
		}
		for len(events) > 0 && events[0].Frame == frame {
			r.apply(ctx, events[0])
			events = events[1:]
		}
		r.produceFrame(frame, now.Sub(start).Seconds())
		frame++
	})

	done := tc.Start(time.Duration(r.scenario.Frames) * interval)
	select {
	case <-done:
	case <-ctx.Done():
		tc.Stop()
		<-done
	}

	mu.Lock()
	played := frame
	mu.Unlock()

	runs, resets := r.device.Tracker.Stats()
	reg := r.session.Anchors()
	sum := Summary{
		Frames:            played,
		Rendered:          r.device.Renderer.Renders(),
		FinalState:        r.session.State(),
		Notifications:     r.observer.Notifications(),
		Failures:          r.observer.Failures(),
		TrackerRuns:       runs,
		TrackerResets:     resets,
		Relocalized:       r.relocalized,
		Watermark:         r.session.Watermark(),
		Anchors:           reg.Len(),
		Planes:            len(reg.Planes()),
		TranslationFactor: r.session.TranslationFactor(),
	}
	if a, ok := r.session.Anchor(); ok {
		sum.Anchor = &a
	}
	return sum, ctx.Err()
}

func (r *Runner) produceFrame(frame int, elapsed float64) {
	if !r.device.Tracker.Running() {
		return
	}
	r.device.Renderer.SetClock(frame, elapsed)
	tf := model.TrackingFrame{Timestamp: elapsed}
	m := r.scenario.Motion
	if m.DropEvery == 0 || (frame+1)%m.DropEvery != 0 {
		cam := m.Camera(elapsed)
		tf.Camera = &cam
	}
	r.session.FrameUpdated(tf)
}

func (r *Runner) apply(ctx context.Context, ev EventSpec) {
	log := r.log
	log.Debug(ctx, "applying scenario event", logging.String("type", ev.Type), logging.Int("frame", ev.Frame))

	switch ev.Type {
	case EventStart:
		if err := r.session.StartTracking(ctx); err != nil {
			log.Info(ctx, "start tracking returned error", logging.Err(err))
		}
	case EventStop:
		r.session.StopTracking()
	case EventReset:
		if err := r.session.ResetTracking(ctx); err != nil {
			log.Info(ctx, "reset tracking returned error", logging.Err(err))
		}
	case EventResetLocation:
		if !r.session.ResetUsingLocationServices(ctx) {
			log.Info(ctx, "reset using location services refused")
		}
	case EventResetAnchor:
		anchor := model.AnchorFromGeo(*ev.Anchor)
		if !r.session.ResetUsingSpatialAnchor(ctx, &anchor) {
			log.Info(ctx, "reset using spatial anchor refused")
		}
	case EventAuthorize:
		auth := authorizationNames[ev.Authorization]
		r.device.Location.SetAuthorization(auth)
		r.session.AuthorizationChanged(auth)
	case EventLocation:
		if updating, _ := r.device.Location.Updating(); !updating {
			log.Debug(ctx, "dropping fixes while location updates are stopped")
			return
		}
		fixes := make([]model.LocationFix, 0, len(ev.Fixes))
		for _, f := range ev.Fixes {
			fixes = append(fixes, f.fix())
		}
		r.session.LocationsUpdated(fixes)
	case EventHeading:
		if _, heading := r.device.Location.Updating(); heading {
			r.session.HeadingUpdated(model.Heading{True: ev.Heading, Magnetic: ev.Heading, Timestamp: time.Now()})
		}
	case EventOrientation:
		r.device.Orientation.Set(orientationNames[ev.Orientation])
	case EventInterrupt:
		r.session.SessionInterrupted()
	case EventInterruptionEnded:
		r.observer.SetRelocalize(ev.Enabled)
		r.session.InterruptionEnded()
		if r.session.ShouldRelocalize() {
			r.relocalized++
			log.Info(ctx, "tracker relocalizing after interruption")
		}
	case EventTrackingFailure:
		r.session.SessionFailed(ev.trackingError())
	case EventAnchorAdded:
		r.session.AnchorsAdded([]model.TrackedAnchor{ev.trackedAnchor()})
	case EventAnchorUpdated:
		r.session.AnchorsUpdated([]model.TrackedAnchor{ev.trackedAnchor()})
	case EventAnchorRemoved:
		r.session.AnchorsRemoved([]model.TrackedAnchor{ev.trackedAnchor()})
	case EventLocationPaused:
		r.session.LocationUpdatesPaused()
	case EventLocationResumed:
		r.session.LocationUpdatesResumed()
	case EventLocationFailed:
		r.session.LocationFailed(fmt.Errorf("location: %s", ev.Message))
	case EventRenderVideoFeed:
		r.session.SetRenderVideoFeed(ev.Enabled)
	case EventSetTranslationScale:
		r.session.SetTranslationFactor(ev.Factor)
	}
}
