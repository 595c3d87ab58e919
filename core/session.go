package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/geoar-bridge/internal/logging"
	"github.com/signalsfoundry/geoar-bridge/kb"
	"github.com/signalsfoundry/geoar-bridge/model"
)

const tracerName = "github.com/signalsfoundry/geoar-bridge/core"

// Session is the tracking-session lifecycle controller. It owns the
// session state, decides when the tracker runs and when the renderer gets
// a camera, and feeds every frame through its PoseSynchronizer.
//
// Callbacks are expected to be serialized by the host. Session still
// guards its state with a mutex so callbacks from other goroutines are
// safe; FrameUpdated does not take that mutex.
type Session struct {
	mu sync.Mutex

	tracker     Tracker
	loc         LocationService
	renderer    Renderer
	orientation OrientationSource

	cfg             model.TrackingConfiguration
	usage           UsageDescriptions
	factor          float64
	renderVideoFeed bool
	sampleInterval  time.Duration
	policy          ErrorPolicy

	state           model.SessionState
	preInterruption model.SessionState
	failure         error
	trackerRunning  bool
	pendingReset    bool
	heading         *model.Heading

	resolver  *OriginResolver
	acq       *Acquisition
	latch     Latch
	poses     *PoseSynchronizer
	forwarder *Forwarder
	anchors   *kb.AnchorRegistry
	orient    *orientationTracker

	orientCancel func()
	sampler      *frameRateSampler

	sessionID string
	log       logging.Logger
	metrics   MetricsRecorder
	tracer    trace.Tracer
}

// NewSession wires a controller to its collaborators. The initial state
// is Unsupported when the tracker lacks world-tracking capability, Idle
// otherwise.
func NewSession(deps Dependencies, opts ...Option) *Session {
	s := &Session{
		tracker:         deps.Tracker,
		loc:             deps.Location,
		renderer:        deps.Renderer,
		orientation:     deps.Orientation,
		cfg:             model.DefaultTrackingConfiguration(),
		factor:          DefaultTranslationFactor,
		renderVideoFeed: true,
		sampleInterval:  DefaultSampleInterval,
		policy:          TrackingDomainPolicy,
		resolver:        NewOriginResolver(nil),
		forwarder:       &Forwarder{},
		anchors:         kb.NewAnchorRegistry(),
		log:             logging.Noop(),
		metrics:         noopMetrics{},
		tracer:          otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.acq = NewAcquisition(s.loc, s.usage)
	s.poses = NewPoseSynchronizer(s.renderer, s.factor, s.metrics)
	initial := model.OrientationPortrait
	if s.orientation != nil {
		initial = s.orientation.Current()
	}
	s.orient = newOrientationTracker(initial)
	s.poses.SetScreenOrientation(s.orient.update(initial))

	s.state = model.SessionIdle
	if s.tracker == nil || !s.tracker.Supported() {
		s.state = model.SessionUnsupported
	}
	s.metrics.SetSessionState(s.state)
	s.metrics.SetAccuracyWatermark(s.resolver.Watermark())
	return s
}

// outbox collects observer calls so they run after the session mutex is
// released; observers may call back into the Session.
type outbox []func()

func (o *outbox) add(fn func()) { *o = append(*o, fn) }

func (o outbox) flush() {
	for _, fn := range o {
		fn()
	}
}

// ---- Public operations ----

// StartTracking begins a session. It returns ErrNotSupported on devices
// without tracking, ErrMissingConfiguration or ErrAccessDenied when the
// location path cannot proceed, and nil otherwise. Starting an already
// active session is a no-op.
func (s *Session) StartTracking(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "Session.StartTracking")
	defer span.End()

	var out outbox
	s.mu.Lock()
	err := s.startLocked(ctx, &out)
	span.SetAttributes(attribute.String("session.state", s.state.String()))
	s.mu.Unlock()
	out.flush()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// StopTracking halts the tracker, location updates and frame-rate
// sampling. After it returns no frame reaches the renderer until the
// session is started again. It always succeeds. It may run concurrently
// with a frame callback, but not from inside the renderer.
func (s *Session) StopTracking() {
	_, span := s.tracer.Start(context.Background(), "Session.StopTracking")
	defer span.End()

	s.mu.Lock()
	s.haltLocked()
	if s.state != model.SessionUnsupported && s.state != model.SessionIdle {
		s.setStateLocked(s.ctxLocked(), model.SessionIdle)
	}
	s.mu.Unlock()

	s.poses.Quiesce()
}

// ResetTracking discards the resolved anchor and accuracy watermark,
// re-arms the start-or-fail notification and starts again. It is safe in
// any state.
func (s *Session) ResetTracking(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "Session.ResetTracking")
	defer span.End()

	var out outbox
	s.mu.Lock()
	s.resetLocked(ctx, &out)
	err := s.startLocked(ctx, &out)
	span.SetAttributes(attribute.String("session.state", s.state.String()))
	s.mu.Unlock()
	s.poses.Quiesce()
	out.flush()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// ResetUsingLocationServices drops any origin override and resets so the
// anchor comes from the next location fix. It returns false when tracking
// is unsupported or location access is denied.
func (s *Session) ResetUsingLocationServices(ctx context.Context) bool {
	if s.unsupported() || s.loc == nil || s.loc.AuthorizationState().Denied() {
		return false
	}
	s.mu.Lock()
	s.resolver.SetOverride(nil)
	s.mu.Unlock()
	_ = s.ResetTracking(ctx)
	return true
}

// ResetUsingSpatialAnchor pins the origin to anchor and resets. It returns
// false when tracking is unsupported or anchor is nil.
func (s *Session) ResetUsingSpatialAnchor(ctx context.Context, anchor *model.GeographicAnchor) bool {
	if anchor == nil || s.unsupported() {
		return false
	}
	s.mu.Lock()
	s.resolver.SetOverride(anchor)
	s.mu.Unlock()
	_ = s.ResetTracking(ctx)
	return true
}

// SetOriginCamera replaces the origin override. It applies from the next
// reset; an established anchor is never replaced in place.
func (s *Session) SetOriginCamera(anchor *model.GeographicAnchor) {
	s.mu.Lock()
	s.resolver.SetOverride(anchor)
	s.mu.Unlock()
}

// SetTranslationFactor changes the translation scale. Non-positive values
// are ignored.
func (s *Session) SetTranslationFactor(f float64) {
	s.poses.SetTranslationFactor(f)
}

// SetRenderVideoFeed toggles the camera feed behind the scene.
func (s *Session) SetRenderVideoFeed(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderVideoFeed = enabled
	if s.tracker != nil {
		s.tracker.SetRenderVideoFeed(enabled)
	}
}

// SetSessionObserver registers the observer for session events.
func (s *Session) SetSessionObserver(o SessionObserver) { s.forwarder.SetSessionObserver(o) }

// SetRenderObserver registers the observer for render-loop phases.
func (s *Session) SetRenderObserver(o RenderObserver) { s.forwarder.SetRenderObserver(o) }

// RenderCallbacks returns the sink the renderer's per-frame phase
// callbacks should be delivered to.
func (s *Session) RenderCallbacks() RenderObserver { return s.forwarder }

// ---- Accessors ----

// State returns the current lifecycle state.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Failure returns the reason for the Failed state, or nil.
func (s *Session) Failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Anchor returns the resolved anchor, if any.
func (s *Session) Anchor() (model.GeographicAnchor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.Anchor()
}

// Watermark returns the best horizontal accuracy seen since the last reset.
func (s *Session) Watermark() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.Watermark()
}

// Heading returns the last reported heading.
func (s *Session) Heading() (model.Heading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.heading == nil {
		return model.Heading{}, false
	}
	return *s.heading, true
}

// TranslationFactor returns the current translation scale.
func (s *Session) TranslationFactor() float64 { return s.poses.TranslationFactor() }

// Frames returns the number of frames rendered so far.
func (s *Session) Frames() uint64 { return s.poses.Frames() }

// Anchors exposes the registry of tracker anchors.
func (s *Session) Anchors() *kb.AnchorRegistry { return s.anchors }

// SessionID identifies the current tracking attempt.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// ---- Tracker callbacks ----

// FrameUpdated is the tracker's per-frame callback. It synchronizes the
// camera and relays the frame; it never blocks on session state.
func (s *Session) FrameUpdated(frame model.TrackingFrame) {
	s.poses.Synchronize(frame)
	s.forwarder.FrameUpdated(frame)
}

// AnchorsAdded records and relays new tracker anchors.
func (s *Session) AnchorsAdded(anchors []model.TrackedAnchor) {
	s.anchors.Add(anchors...)
	s.forwarder.AnchorsAdded(anchors)
}

// AnchorsUpdated records and relays changed tracker anchors.
func (s *Session) AnchorsUpdated(anchors []model.TrackedAnchor) {
	s.anchors.Update(anchors...)
	s.forwarder.AnchorsUpdated(anchors)
}

// AnchorsRemoved records and relays removed tracker anchors.
func (s *Session) AnchorsRemoved(anchors []model.TrackedAnchor) {
	s.anchors.Remove(anchors...)
	s.forwarder.AnchorsRemoved(anchors)
}

// SessionFailed handles a tracker failure. The raw error is always relayed;
// only errors accepted by the error policy fail the session.
func (s *Session) SessionFailed(err error) {
	s.forwarder.SessionFailed(err)

	var out outbox
	s.mu.Lock()
	ctx := s.ctxLocked()
	if !s.policy(err) {
		s.log.Debug(ctx, "ignoring tracker error outside tracking domain", logging.Err(err))
		s.mu.Unlock()
		return
	}
	if s.state == model.SessionIdle || s.state == model.SessionUnsupported {
		s.mu.Unlock()
		return
	}

	reason := err.Error()
	var te *TrackingError
	if errors.As(err, &te) {
		reason = te.Message
	}
	if s.trackerRunning {
		s.tracker.Pause()
		s.trackerRunning = false
	}
	s.failLocked(ctx, &SessionFailureError{Reason: reason, Err: err}, &out)
	s.mu.Unlock()
	s.poses.Quiesce()
	out.flush()
}

// SessionInterrupted stops frame synchronization until the interruption
// ends.
func (s *Session) SessionInterrupted() {
	s.mu.Lock()
	switch s.state {
	case model.SessionRunning, model.SessionAwaitingLocation, model.SessionAwaitingAuthorization:
		s.preInterruption = s.state
		s.poses.Disarm()
		s.setStateLocked(s.ctxLocked(), model.SessionInterrupted)
	}
	s.mu.Unlock()
	s.poses.Quiesce()

	s.forwarder.SessionInterrupted()
}

// InterruptionEnded restores the state held before the interruption.
func (s *Session) InterruptionEnded() {
	s.mu.Lock()
	if s.state == model.SessionInterrupted {
		next := s.preInterruption
		if _, ok := s.resolver.Anchor(); ok && next == model.SessionAwaitingLocation {
			next = model.SessionRunning
		}
		if next == model.SessionRunning {
			s.poses.Arm()
		}
		s.setStateLocked(s.ctxLocked(), next)
	}
	s.mu.Unlock()

	s.forwarder.InterruptionEnded()
}

// ShouldRelocalize answers the tracker's relocalization query with the
// observer's preference, defaulting to false.
func (s *Session) ShouldRelocalize() bool {
	return s.forwarder.ShouldRelocalize()
}

// AudioBufferOutput relays captured audio.
func (s *Session) AudioBufferOutput(buf []byte) {
	s.forwarder.AudioBufferOutput(buf)
}

// ---- Location callbacks ----

// LocationsUpdated feeds fixes to the origin resolver. The first valid fix
// establishes the anchor; later ones only move the accuracy watermark.
func (s *Session) LocationsUpdated(fixes []model.LocationFix) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.ctxLocked()
	if s.resolver.HasOverride() {
		return
	}
	switch s.state {
	case model.SessionAwaitingLocation, model.SessionRunning, model.SessionInterrupted:
	default:
		return
	}

	for _, fix := range fixes {
		before := s.resolver.Watermark()
		anchor, established, err := s.resolver.Offer(fix)
		if err != nil {
			s.log.Debug(ctx, "discarding location fix", logging.Err(err))
			continue
		}
		if wm := s.resolver.Watermark(); wm < before {
			s.metrics.SetAccuracyWatermark(wm)
		}
		if established {
			s.log.Info(ctx, "anchor established from location",
				logging.Float64("longitude", fix.Longitude),
				logging.Float64("latitude", fix.Latitude),
				logging.Float64("altitude", fix.Altitude),
				logging.Float64("horizontal_accuracy", fix.HorizontalAccuracy),
			)
			s.establishLocked(ctx, anchor)
		}
	}
}

// HeadingUpdated records the latest heading for diagnostics.
func (s *Session) HeadingUpdated(h model.Heading) {
	s.mu.Lock()
	s.heading = &h
	s.mu.Unlock()
}

// AuthorizationChanged re-evaluates location acquisition after the user
// changes permissions.
func (s *Session) AuthorizationChanged(state model.AuthorizationState) {
	var out outbox
	s.mu.Lock()
	s.authorizationChangedLocked(state, &out)
	s.mu.Unlock()
	out.flush()
}

// LocationUpdatesPaused notes that the platform paused location delivery.
func (s *Session) LocationUpdatesPaused() {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := s.ctxLocked()
	s.log.Info(ctx, "location updates paused")
}

// LocationUpdatesResumed notes that location delivery resumed.
func (s *Session) LocationUpdatesResumed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := s.ctxLocked()
	s.log.Info(ctx, "location updates resumed")
}

// LocationFailed logs a location-service error. Such errors are transient
// and do not change the session state.
func (s *Session) LocationFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := s.ctxLocked()
	s.log.Warn(ctx, "location service error", logging.Err(err))
}

// ---- Internals (s.mu held) ----

func (s *Session) unsupported() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == model.SessionUnsupported
}

func (s *Session) ctxLocked() context.Context {
	return logging.ContextWithSessionID(context.Background(), s.sessionID)
}

func (s *Session) startLocked(ctx context.Context, out *outbox) error {
	if s.state == model.SessionUnsupported {
		s.log.Warn(ctx, "start requested on unsupported device")
		s.notifyLocked(ErrNotSupported, out)
		return ErrNotSupported
	}
	switch s.state {
	case model.SessionRunning, model.SessionAwaitingAuthorization, model.SessionAwaitingLocation, model.SessionInterrupted:
		return nil
	}

	s.sessionID = logging.NewSessionID()
	ctx = logging.ContextWithSessionID(ctx, s.sessionID)
	s.failure = nil
	s.subscribeOrientationLocked()
	if s.sampler == nil {
		s.sampler = startFrameRateSampler(s.sampleInterval, s.poses.Frames, s.metrics)
	}
	if s.tracker != nil {
		s.tracker.SetRenderVideoFeed(s.renderVideoFeed)
	}

	if anchor, ok := s.resolver.Resolve(); ok {
		s.runTrackerLocked(ctx)
		s.establishLocked(ctx, anchor)
		s.notifyLocked(nil, out)
		return nil
	}

	if s.loc == nil {
		s.log.Warn(ctx, "no origin camera and no location service configured")
		s.failLocked(ctx, ErrMissingConfiguration, out)
		return ErrMissingConfiguration
	}
	next, err := s.acq.Evaluate(s.loc.AuthorizationState())
	if err != nil {
		s.failLocked(ctx, err, out)
		return err
	}
	if next == model.SessionAwaitingLocation {
		s.runTrackerLocked(ctx)
		s.notifyLocked(nil, out)
	}
	s.setStateLocked(ctx, next)
	return nil
}

func (s *Session) authorizationChangedLocked(auth model.AuthorizationState, out *outbox) {
	ctx := s.ctxLocked()
	s.log.Info(ctx, "location authorization changed", logging.String("authorization", auth.String()))

	switch s.state {
	case model.SessionIdle, model.SessionUnsupported:
		return
	case model.SessionFailed:
		if !errors.Is(s.failure, ErrAccessDenied) {
			return
		}
	}
	if s.resolver.HasOverride() {
		return
	}

	next, err := s.acq.Evaluate(auth)
	if err != nil {
		if _, ok := s.resolver.Anchor(); ok {
			// The anchor is already fixed; tracking continues without
			// location and only the notification is raised.
			s.log.Warn(ctx, "location access lost after anchor was established", logging.Err(err))
			s.notifyLocked(err, out)
			return
		}
		s.failLocked(ctx, err, out)
		return
	}

	if next != model.SessionAwaitingLocation {
		return
	}
	switch s.state {
	case model.SessionAwaitingAuthorization:
		s.runTrackerLocked(ctx)
		s.notifyLocked(nil, out)
		s.setStateLocked(ctx, model.SessionAwaitingLocation)
	case model.SessionFailed:
		s.failure = nil
		s.runTrackerLocked(ctx)
		if anchor, ok := s.resolver.Anchor(); ok {
			s.establishLocked(ctx, anchor)
			return
		}
		s.setStateLocked(ctx, model.SessionAwaitingLocation)
	}
}

// establishLocked installs anchor as the composition base, pushes the first
// camera and moves to Running, unless an interruption is in progress.
func (s *Session) establishLocked(ctx context.Context, anchor model.GeographicAnchor) {
	s.poses.SetAnchor(anchor.Transform)
	s.renderer.SetCameraTransform(anchor.Transform)
	if s.state == model.SessionInterrupted {
		s.preInterruption = model.SessionRunning
		return
	}
	s.poses.Arm()
	s.setStateLocked(ctx, model.SessionRunning)
}

func (s *Session) runTrackerLocked(ctx context.Context) {
	if s.tracker == nil || s.trackerRunning {
		return
	}
	s.tracker.Run(s.cfg, s.pendingReset)
	s.log.Debug(ctx, "tracker running",
		logging.Bool("reset", s.pendingReset),
		logging.String("world_alignment", s.cfg.WorldAlignment.String()),
	)
	s.trackerRunning = true
	s.pendingReset = false
}

func (s *Session) failLocked(ctx context.Context, err error, out *outbox) {
	s.poses.Disarm()
	s.failure = err
	s.log.Warn(ctx, "tracking session failed", logging.Err(err))
	s.setStateLocked(ctx, model.SessionFailed)
	s.notifyLocked(err, out)
}

// notifyLocked delivers the start-or-fail notification through the latch.
func (s *Session) notifyLocked(err error, out *outbox) {
	if !s.latch.Fire() {
		return
	}
	s.metrics.StartOrFailNotified(NotificationResult(err))
	out.add(func() { s.forwarder.DidStartOrFail(err) })
}

// haltLocked stops everything that runs on behalf of the session without
// touching the resolved anchor.
func (s *Session) haltLocked() {
	s.poses.Disarm()
	s.sampler.stop()
	s.sampler = nil
	if s.orientCancel != nil {
		s.orientCancel()
		s.orientCancel = nil
	}
	if s.trackerRunning {
		s.tracker.Pause()
		s.trackerRunning = false
	}
	s.acq.Stop()
}

func (s *Session) resetLocked(ctx context.Context, out *outbox) {
	s.haltLocked()
	s.resolver.Reset()
	s.poses.ClearAnchor()
	s.acq.Reset()
	s.latch.Reset()
	s.failure = nil
	s.pendingReset = true
	s.metrics.SetAccuracyWatermark(s.resolver.Watermark())
	out.add(s.anchors.Clear)
	if s.state != model.SessionUnsupported {
		s.setStateLocked(ctx, model.SessionIdle)
	}
	s.log.Info(ctx, "tracking reset")
}

func (s *Session) subscribeOrientationLocked() {
	if s.orientation == nil || s.orientCancel != nil {
		return
	}
	s.poses.SetScreenOrientation(s.orient.update(s.orientation.Current()))
	s.orientCancel = s.orientation.Subscribe(func(o model.DeviceOrientation) {
		s.poses.SetScreenOrientation(s.orient.update(o))
	})
}

func (s *Session) setStateLocked(ctx context.Context, next model.SessionState) {
	if s.state == next {
		return
	}
	s.log.Info(ctx, "session state changed",
		logging.String("from", s.state.String()),
		logging.String("to", next.String()),
	)
	s.state = next
	s.metrics.SetSessionState(next)
}
