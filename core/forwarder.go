package core

import (
	"sync"

	"github.com/signalsfoundry/geoar-bridge/model"
)

// Forwarder relays tracker and renderer callbacks, unmodified and
// synchronously, to at most one observer per category. It never extends
// an observer's lifetime beyond its registration.
type Forwarder struct {
	mu      sync.RWMutex
	session SessionObserver
	render  RenderObserver
}

// SetSessionObserver registers the session observer; nil unregisters.
func (f *Forwarder) SetSessionObserver(o SessionObserver) {
	f.mu.Lock()
	f.session = o
	f.mu.Unlock()
}

// SetRenderObserver registers the render observer; nil unregisters.
func (f *Forwarder) SetRenderObserver(o RenderObserver) {
	f.mu.Lock()
	f.render = o
	f.mu.Unlock()
}

func (f *Forwarder) sessionObserver() SessionObserver {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.session
}

func (f *Forwarder) renderObserver() RenderObserver {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.render
}

// DidStartOrFail relays the start-or-fail notification.
func (f *Forwarder) DidStartOrFail(err error) {
	if o := f.sessionObserver(); o != nil {
		o.DidStartOrFail(err)
	}
}

// FrameUpdated relays a tracker frame.
func (f *Forwarder) FrameUpdated(frame model.TrackingFrame) {
	if o := f.sessionObserver(); o != nil {
		o.FrameUpdated(frame)
	}
}

// AnchorsAdded relays anchors the tracker started tracking.
func (f *Forwarder) AnchorsAdded(anchors []model.TrackedAnchor) {
	if o := f.sessionObserver(); o != nil {
		o.AnchorsAdded(anchors)
	}
}

// AnchorsUpdated relays changed tracker anchors.
func (f *Forwarder) AnchorsUpdated(anchors []model.TrackedAnchor) {
	if o := f.sessionObserver(); o != nil {
		o.AnchorsUpdated(anchors)
	}
}

// AnchorsRemoved relays anchors the tracker dropped.
func (f *Forwarder) AnchorsRemoved(anchors []model.TrackedAnchor) {
	if o := f.sessionObserver(); o != nil {
		o.AnchorsRemoved(anchors)
	}
}

// SessionFailed relays the raw tracker error.
func (f *Forwarder) SessionFailed(err error) {
	if o := f.sessionObserver(); o != nil {
		o.SessionFailed(err)
	}
}

// SessionInterrupted relays the start of an interruption.
func (f *Forwarder) SessionInterrupted() {
	if o := f.sessionObserver(); o != nil {
		o.SessionInterrupted()
	}
}

// InterruptionEnded relays the end of an interruption.
func (f *Forwarder) InterruptionEnded() {
	if o := f.sessionObserver(); o != nil {
		o.InterruptionEnded()
	}
}

// ShouldRelocalize asks the observer; without one the answer is false.
func (f *Forwarder) ShouldRelocalize() bool {
	if o := f.sessionObserver(); o != nil {
		return o.ShouldRelocalize()
	}
	return false
}

// AudioBufferOutput relays captured audio.
func (f *Forwarder) AudioBufferOutput(buf []byte) {
	if o := f.sessionObserver(); o != nil {
		o.AudioBufferOutput(buf)
	}
}

// WillUpdate relays the start of a render-loop pass.
func (f *Forwarder) WillUpdate(t float64) {
	if o := f.renderObserver(); o != nil {
		o.WillUpdate(t)
	}
}

// DidApplyAnimations relays the end of the animation phase.
func (f *Forwarder) DidApplyAnimations(t float64) {
	if o := f.renderObserver(); o != nil {
		o.DidApplyAnimations(t)
	}
}

// DidSimulatePhysics relays the end of the physics phase.
func (f *Forwarder) DidSimulatePhysics(t float64) {
	if o := f.renderObserver(); o != nil {
		o.DidSimulatePhysics(t)
	}
}

// DidApplyConstraints relays the end of the constraint phase.
func (f *Forwarder) DidApplyConstraints(t float64) {
	if o := f.renderObserver(); o != nil {
		o.DidApplyConstraints(t)
	}
}

// WillRenderScene relays that the scene is about to be drawn.
func (f *Forwarder) WillRenderScene(t float64) {
	if o := f.renderObserver(); o != nil {
		o.WillRenderScene(t)
	}
}

// DidRenderScene relays that the scene was drawn.
func (f *Forwarder) DidRenderScene(t float64) {
	if o := f.renderObserver(); o != nil {
		o.DidRenderScene(t)
	}
}
