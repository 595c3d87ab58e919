// Package sim provides simulated device collaborators and a scenario runner
// that drives a tracking session without real hardware.
package sim

import (
	"fmt"
	"io"
	"sync"

	"github.com/signalsfoundry/geoar-bridge/core"
	"github.com/signalsfoundry/geoar-bridge/model"
)

// Tracker is a simulated motion tracker. It only records what the session
// asks of it; the Runner decides when frames are produced.
type Tracker struct {
	mu        sync.Mutex
	supported bool
	running   bool
	cfg       model.TrackingConfiguration
	runs      int
	resets    int
	videoFeed bool
}

func (t *Tracker) Supported() bool { return t.supported }

func (t *Tracker) Run(cfg model.TrackingConfiguration, reset bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	t.cfg = cfg
	t.runs++
	if reset {
		t.resets++
	}
}

func (t *Tracker) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
}

func (t *Tracker) SetRenderVideoFeed(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.videoFeed = enabled
}

// Running reports whether the session currently wants frames.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Stats returns how often the tracker was run and how many runs reset it.
func (t *Tracker) Stats() (runs, resets int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs, t.resets
}

// Location is a simulated location client.
type Location struct {
	mu               sync.Mutex
	auth             model.AuthorizationState
	headingAvailable bool
	updating         bool
	heading          bool
	requests         []string
}

func (l *Location) AuthorizationState() model.AuthorizationState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.auth
}

// SetAuthorization changes the permission the next query reports.
func (l *Location) SetAuthorization(a model.AuthorizationState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.auth = a
}

func (l *Location) RequestWhenInUseAuthorization() { l.request("when_in_use") }
func (l *Location) RequestAlwaysAuthorization()    { l.request("always") }

func (l *Location) request(kind string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, kind)
}

// Requests lists the authorization prompts shown so far.
func (l *Location) Requests() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.requests...)
}

func (l *Location) StartUpdatingLocation() { l.setUpdating(&l.updating, true) }
func (l *Location) StopUpdatingLocation()  { l.setUpdating(&l.updating, false) }
func (l *Location) StartUpdatingHeading()  { l.setUpdating(&l.heading, true) }
func (l *Location) StopUpdatingHeading()   { l.setUpdating(&l.heading, false) }

func (l *Location) HeadingAvailable() bool { return l.headingAvailable }

func (l *Location) setUpdating(flag *bool, v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*flag = v
}

// Updating reports whether location and heading updates are running.
func (l *Location) Updating() (location, heading bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updating, l.heading
}

// Orientation is a simulated device-orientation source.
type Orientation struct {
	mu      sync.Mutex
	current model.DeviceOrientation
	subs    map[int]func(model.DeviceOrientation)
	nextID  int
}

func (o *Orientation) Current() model.DeviceOrientation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

func (o *Orientation) Subscribe(fn func(model.DeviceOrientation)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subs == nil {
		o.subs = make(map[int]func(model.DeviceOrientation))
	}
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

// Set rotates the device and notifies subscribers.
func (o *Orientation) Set(d model.DeviceOrientation) {
	o.mu.Lock()
	o.current = d
	subs := make([]func(model.DeviceOrientation), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()
	for _, fn := range subs {
		fn(d)
	}
}

// Renderer writes every rendered camera pose to an io.Writer and drives the
// render-loop phase callbacks once per rendered frame.
type Renderer struct {
	mu      sync.Mutex
	out     io.Writer
	phases  core.RenderObserver
	camera  model.Transform
	now     float64
	frame   int
	renders int
}

// NewRenderer returns a renderer printing to out; nil discards output.
func NewRenderer(out io.Writer) *Renderer {
	if out == nil {
		out = io.Discard
	}
	return &Renderer{out: out, camera: model.Identity()}
}

// SetPhaseObserver sets where render-loop phases are delivered.
func (r *Renderer) SetPhaseObserver(o core.RenderObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = o
}

// SetClock records the frame index and time of the frame being processed.
func (r *Renderer) SetClock(frame int, seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame = frame
	r.now = seconds
}

func (r *Renderer) SetCameraTransform(t model.Transform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.camera = t
}

func (r *Renderer) RenderFrame() {
	r.mu.Lock()
	cam, now, frame, phases := r.camera, r.now, r.frame, r.phases
	r.renders++
	r.mu.Unlock()

	if phases != nil {
		phases.WillUpdate(now)
		phases.DidApplyAnimations(now)
		phases.DidSimulatePhysics(now)
		phases.DidApplyConstraints(now)
		phases.WillRenderScene(now)
	}
	q, p := cam.Rotation, cam.Translation
	fmt.Fprintf(r.out, "frame=%d t=%.3fs pos=(%.7f, %.7f, %.3f) rot=(%.4f, %.4f, %.4f, %.4f)\n",
		frame, now, p.X(), p.Y(), p.Z(), q.W, q.V.X(), q.V.Y(), q.V.Z())
	if phases != nil {
		phases.DidRenderScene(now)
	}
}

// Camera returns the last camera transform pushed by the session.
func (r *Renderer) Camera() model.Transform {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.camera
}

// Renders returns the number of render passes.
func (r *Renderer) Renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renders
}

// Device bundles the simulated collaborators of one session.
type Device struct {
	Tracker     *Tracker
	Location    *Location
	Renderer    *Renderer
	Orientation *Orientation
}

// NewDevice builds collaborators from the scenario's device block.
func NewDevice(spec DeviceSpec, out io.Writer) *Device {
	return &Device{
		Tracker: &Tracker{supported: spec.Supported},
		Location: &Location{
			auth:             spec.authorization(),
			headingAvailable: spec.HeadingAvailable,
		},
		Renderer:    NewRenderer(out),
		Orientation: &Orientation{current: spec.orientation()},
	}
}

// Dependencies exposes the device as session collaborators.
func (d *Device) Dependencies() core.Dependencies {
	return core.Dependencies{
		Tracker:     d.Tracker,
		Location:    d.Location,
		Renderer:    d.Renderer,
		Orientation: d.Orientation,
	}
}
