package core

import (
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/geoar-bridge/model"
)

// DefaultTranslationFactor maps tracking metres one-to-one onto scene units.
const DefaultTranslationFactor = 1.0

// RelativeTransform converts the tracker's device-relative camera into a
// renderer-space transform:
//
//	rotation    = basis * camera * screen
//	translation = factor * (x, -z, y)
func RelativeTransform(cam model.FrameCamera, screen mgl64.Quat, factor float64) model.Transform {
	rot := CameraBasisCorrection().Mul(cam.Rotation).Mul(screen)
	t := cam.Translation
	return model.NewTransform(rot, mgl64.Vec3{
		t.X() * factor,
		-t.Z() * factor,
		t.Y() * factor,
	})
}

// PoseSynchronizer is the per-frame hot path. Synchronize runs inside the
// tracker's frame callback. Its setters never wait on an in-flight render,
// so they may be called while holding session state; Quiesce is the only
// call that waits for the renderer.
type PoseSynchronizer struct {
	renderer Renderer
	metrics  MetricsRecorder

	// inflight is held for reading across each render trigger. Quiesce takes
	// it for writing to wait them out.
	inflight sync.RWMutex

	mu        sync.Mutex
	armed     bool
	anchor    model.Transform
	hasAnchor bool
	screen    mgl64.Quat
	factor    float64

	frames atomic.Uint64
}

// NewPoseSynchronizer returns a disarmed synchronizer for renderer.
func NewPoseSynchronizer(renderer Renderer, factor float64, metrics MetricsRecorder) *PoseSynchronizer {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if factor <= 0 {
		factor = DefaultTranslationFactor
	}
	return &PoseSynchronizer{
		renderer: renderer,
		metrics:  metrics,
		screen:   OrientationCorrection(model.OrientationPortrait),
		factor:   factor,
	}
}

// SetAnchor installs the composition base. It does not arm.
func (p *PoseSynchronizer) SetAnchor(anchor model.Transform) {
	p.mu.Lock()
	p.anchor = anchor
	p.hasAnchor = true
	p.mu.Unlock()
}

// ClearAnchor drops the composition base and disarms.
func (p *PoseSynchronizer) ClearAnchor() {
	p.mu.Lock()
	p.anchor = model.Transform{}
	p.hasAnchor = false
	p.armed = false
	p.mu.Unlock()
}

// Arm allows frames to reach the renderer once an anchor is set.
func (p *PoseSynchronizer) Arm() {
	p.mu.Lock()
	p.armed = true
	p.mu.Unlock()
}

// Disarm stops new render triggers. A frame already past the armed check
// may still be rendering; call Quiesce to wait for it.
func (p *PoseSynchronizer) Disarm() {
	p.mu.Lock()
	p.armed = false
	p.mu.Unlock()
}

// Quiesce blocks until every render trigger started before it was called
// has completed. It must not be called from inside the renderer.
func (p *PoseSynchronizer) Quiesce() {
	p.inflight.Lock()
	p.inflight.Unlock()
}

func (p *PoseSynchronizer) armedLocked() bool {
	return p.armed && p.hasAnchor
}

// SetScreenOrientation updates the screen-orientation correction.
func (p *PoseSynchronizer) SetScreenOrientation(o model.DeviceOrientation) {
	p.mu.Lock()
	p.screen = OrientationCorrection(o)
	p.mu.Unlock()
}

// SetTranslationFactor changes the uniform translation scale. Non-positive
// values are ignored.
func (p *PoseSynchronizer) SetTranslationFactor(f float64) {
	if f <= 0 {
		return
	}
	p.mu.Lock()
	p.factor = f
	p.mu.Unlock()
}

// TranslationFactor returns the current translation scale.
func (p *PoseSynchronizer) TranslationFactor() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.factor
}

// Synchronize composes the frame's camera onto the anchor, pushes the result
// to the renderer and triggers one render pass. Frames without a camera,
// or arriving while disarmed, are dropped silently. It reports whether a
// render was triggered.
func (p *PoseSynchronizer) Synchronize(frame model.TrackingFrame) bool {
	p.inflight.RLock()
	defer p.inflight.RUnlock()

	p.mu.Lock()
	if !p.armedLocked() {
		p.mu.Unlock()
		return false
	}
	anchor, screen, factor := p.anchor, p.screen, p.factor
	p.mu.Unlock()

	if frame.Camera == nil {
		p.metrics.FrameDropped()
		return false
	}

	rel := RelativeTransform(*frame.Camera, screen, factor)
	p.renderer.SetCameraTransform(anchor.Mul(rel))
	p.renderer.RenderFrame()

	p.frames.Add(1)
	p.metrics.FrameSynchronized()
	return true
}

// Frames returns the number of frames rendered since construction.
func (p *PoseSynchronizer) Frames() uint64 {
	return p.frames.Load()
}
