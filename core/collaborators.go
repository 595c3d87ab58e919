package core

import "github.com/signalsfoundry/geoar-bridge/model"

// Tracker is the platform motion-tracking session.
type Tracker interface {
	// Supported reports whether the device can run world tracking.
	Supported() bool
	Run(cfg model.TrackingConfiguration, resetTracking bool)
	Pause()
	SetRenderVideoFeed(enabled bool)
}

// LocationService is the platform location client.
type LocationService interface {
	AuthorizationState() model.AuthorizationState
	RequestWhenInUseAuthorization()
	RequestAlwaysAuthorization()
	StartUpdatingLocation()
	StopUpdatingLocation()
	HeadingAvailable() bool
	StartUpdatingHeading()
	StopUpdatingHeading()
}

// Renderer is the geospatial scene renderer. Calls are one-way.
type Renderer interface {
	SetCameraTransform(t model.Transform)
	RenderFrame()
}

// OrientationSource publishes device-orientation changes.
type OrientationSource interface {
	Current() model.DeviceOrientation
	// Subscribe registers fn and returns a cancel function releasing it.
	Subscribe(fn func(model.DeviceOrientation)) (cancel func())
}

// SessionObserver receives tracking-session events verbatim.
type SessionObserver interface {
	DidStartOrFail(err error)
	FrameUpdated(frame model.TrackingFrame)
	AnchorsAdded(anchors []model.TrackedAnchor)
	AnchorsUpdated(anchors []model.TrackedAnchor)
	AnchorsRemoved(anchors []model.TrackedAnchor)
	SessionFailed(err error)
	SessionInterrupted()
	InterruptionEnded()
	// ShouldRelocalize is asked after an interruption ends.
	ShouldRelocalize() bool
	AudioBufferOutput(buf []byte)
}

// RenderObserver receives per-frame render-loop phases verbatim.
type RenderObserver interface {
	WillUpdate(t float64)
	DidApplyAnimations(t float64)
	DidSimulatePhysics(t float64)
	DidApplyConstraints(t float64)
	WillRenderScene(t float64)
	DidRenderScene(t float64)
}

// MetricsRecorder receives session instrumentation. Implementations must
// be cheap; FrameSynchronized runs inside the frame callback.
type MetricsRecorder interface {
	FrameSynchronized()
	FrameDropped()
	SetSessionState(state model.SessionState)
	SetAccuracyWatermark(meters float64)
	// StartOrFailNotified receives the NotificationResult of the latched
	// start-or-fail notification.
	StartOrFailNotified(result string)
	SetFrameRate(fps float64)
}

type noopMetrics struct{}

func (noopMetrics) FrameSynchronized()                 {}
func (noopMetrics) FrameDropped()                      {}
func (noopMetrics) SetSessionState(model.SessionState) {}
func (noopMetrics) SetAccuracyWatermark(float64)       {}
func (noopMetrics) StartOrFailNotified(string)         {}
func (noopMetrics) SetFrameRate(float64)               {}
