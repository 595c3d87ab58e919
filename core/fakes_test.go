package core

import (
	"sync"
	"testing"

	"github.com/signalsfoundry/geoar-bridge/model"
)

type runCall struct {
	cfg   model.TrackingConfiguration
	reset bool
}

type fakeTracker struct {
	mu        sync.Mutex
	supported bool
	runs      []runCall
	pauses    int
	videoFeed []bool
}

func newFakeTracker() *fakeTracker { return &fakeTracker{supported: true} }

func (t *fakeTracker) Supported() bool { return t.supported }

func (t *fakeTracker) Run(cfg model.TrackingConfiguration, reset bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs = append(t.runs, runCall{cfg: cfg, reset: reset})
}

func (t *fakeTracker) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauses++
}

func (t *fakeTracker) SetRenderVideoFeed(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.videoFeed = append(t.videoFeed, enabled)
}

func (t *fakeTracker) runCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.runs)
}

type fakeLocation struct {
	mu               sync.Mutex
	auth             model.AuthorizationState
	headingAvailable bool

	whenInUseRequests int
	alwaysRequests    int
	starts            int
	stops             int
	headingStarts     int
	headingStops      int
}

func newFakeLocation(auth model.AuthorizationState) *fakeLocation {
	return &fakeLocation{auth: auth, headingAvailable: true}
}

func (l *fakeLocation) AuthorizationState() model.AuthorizationState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.auth
}

func (l *fakeLocation) setAuth(a model.AuthorizationState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.auth = a
}

func (l *fakeLocation) RequestWhenInUseAuthorization() { l.bump(&l.whenInUseRequests) }
func (l *fakeLocation) RequestAlwaysAuthorization()    { l.bump(&l.alwaysRequests) }
func (l *fakeLocation) StartUpdatingLocation()         { l.bump(&l.starts) }
func (l *fakeLocation) StopUpdatingLocation()          { l.bump(&l.stops) }
func (l *fakeLocation) StartUpdatingHeading()          { l.bump(&l.headingStarts) }
func (l *fakeLocation) StopUpdatingHeading()           { l.bump(&l.headingStops) }

func (l *fakeLocation) HeadingAvailable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.headingAvailable
}

func (l *fakeLocation) bump(n *int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*n++
}

func (l *fakeLocation) calls() (requests, starts, stops int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.whenInUseRequests + l.alwaysRequests, l.starts, l.stops
}

type fakeRenderer struct {
	mu         sync.Mutex
	transforms []model.Transform
	renders    int
	onRender   func()
}

func (r *fakeRenderer) SetCameraTransform(t model.Transform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transforms = append(r.transforms, t)
}

func (r *fakeRenderer) RenderFrame() {
	r.mu.Lock()
	r.renders++
	hook := r.onRender
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (r *fakeRenderer) renderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renders
}

func (r *fakeRenderer) last() (model.Transform, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.transforms) == 0 {
		return model.Transform{}, false
	}
	return r.transforms[len(r.transforms)-1], true
}

type fakeOrientation struct {
	mu      sync.Mutex
	current model.DeviceOrientation
	subs    map[int]func(model.DeviceOrientation)
	next    int
}

func newFakeOrientation(o model.DeviceOrientation) *fakeOrientation {
	return &fakeOrientation{current: o, subs: make(map[int]func(model.DeviceOrientation))}
}

func (f *fakeOrientation) Current() model.DeviceOrientation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeOrientation) Subscribe(fn func(model.DeviceOrientation)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

func (f *fakeOrientation) emit(o model.DeviceOrientation) {
	f.mu.Lock()
	f.current = o
	subs := make([]func(model.DeviceOrientation), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(o)
	}
}

func (f *fakeOrientation) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

type recordingObserver struct {
	mu           sync.Mutex
	startOrFail  []error
	frames       int
	added        int
	updated      int
	removed      int
	failures     []error
	interrupted  int
	ended        int
	audio        int
	relocalize   bool
	renderPhases []string
}

func (o *recordingObserver) DidStartOrFail(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startOrFail = append(o.startOrFail, err)
}

func (o *recordingObserver) FrameUpdated(model.TrackingFrame) { o.inc(&o.frames) }
func (o *recordingObserver) AnchorsAdded([]model.TrackedAnchor) {
	o.inc(&o.added)
}
func (o *recordingObserver) AnchorsUpdated([]model.TrackedAnchor) {
	o.inc(&o.updated)
}
func (o *recordingObserver) AnchorsRemoved([]model.TrackedAnchor) {
	o.inc(&o.removed)
}

func (o *recordingObserver) SessionFailed(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, err)
}

func (o *recordingObserver) SessionInterrupted() { o.inc(&o.interrupted) }
func (o *recordingObserver) InterruptionEnded()  { o.inc(&o.ended) }
func (o *recordingObserver) AudioBufferOutput([]byte) {
	o.inc(&o.audio)
}

func (o *recordingObserver) ShouldRelocalize() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.relocalize
}

func (o *recordingObserver) WillUpdate(float64)          { o.phase("will_update") }
func (o *recordingObserver) DidApplyAnimations(float64)  { o.phase("did_apply_animations") }
func (o *recordingObserver) DidSimulatePhysics(float64)  { o.phase("did_simulate_physics") }
func (o *recordingObserver) DidApplyConstraints(float64) { o.phase("did_apply_constraints") }
func (o *recordingObserver) WillRenderScene(float64)     { o.phase("will_render_scene") }
func (o *recordingObserver) DidRenderScene(float64)      { o.phase("did_render_scene") }

func (o *recordingObserver) inc(n *int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	*n++
}

func (o *recordingObserver) phase(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.renderPhases = append(o.renderPhases, name)
}

func (o *recordingObserver) notifications() []error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]error(nil), o.startOrFail...)
}

type recordingMetrics struct {
	mu            sync.Mutex
	synchronized  int
	dropped       int
	states        []model.SessionState
	watermarks    []float64
	notifications []string
	rates         []float64
}

func (m *recordingMetrics) FrameSynchronized() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synchronized++
}

func (m *recordingMetrics) FrameDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped++
}

func (m *recordingMetrics) SetSessionState(s model.SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, s)
}

func (m *recordingMetrics) SetAccuracyWatermark(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watermarks = append(m.watermarks, v)
}

func (m *recordingMetrics) StartOrFailNotified(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, result)
}

func (m *recordingMetrics) SetFrameRate(fps float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates = append(m.rates, fps)
}

// harness bundles a session with its fakes.
type harness struct {
	session  *Session
	tracker  *fakeTracker
	loc      *fakeLocation
	renderer *fakeRenderer
	orient   *fakeOrientation
	observer *recordingObserver
	metrics  *recordingMetrics
}

// newHarness builds a session whose sampler and subscriptions are released
// when the test ends.
func newHarness(t *testing.T, auth model.AuthorizationState, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		tracker:  newFakeTracker(),
		loc:      newFakeLocation(auth),
		renderer: &fakeRenderer{},
		orient:   newFakeOrientation(model.OrientationPortrait),
		observer: &recordingObserver{},
		metrics:  &recordingMetrics{},
	}
	base := []Option{
		WithUsageDescriptions(UsageDescriptions{WhenInUse: "show nearby features"}),
		WithMetrics(h.metrics),
	}
	h.session = NewSession(Dependencies{
		Tracker:     h.tracker,
		Location:    h.loc,
		Renderer:    h.renderer,
		Orientation: h.orient,
	}, append(base, opts...)...)
	h.session.SetSessionObserver(h.observer)
	t.Cleanup(h.session.StopTracking)
	return h
}

func fix(lon, lat, alt, accuracy float64) model.LocationFix {
	return model.LocationFix{Longitude: lon, Latitude: lat, Altitude: alt, HorizontalAccuracy: accuracy}
}
