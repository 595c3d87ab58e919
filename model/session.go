package model

// SessionState is the lifecycle state of a tracking session.
type SessionState int

const (
	SessionUnsupported SessionState = iota
	SessionIdle
	SessionAwaitingAuthorization
	SessionAwaitingLocation
	SessionRunning
	SessionInterrupted
	SessionFailed
)

func (s SessionState) String() string {
	switch s {
	case SessionUnsupported:
		return "unsupported"
	case SessionIdle:
		return "idle"
	case SessionAwaitingAuthorization:
		return "awaiting_authorization"
	case SessionAwaitingLocation:
		return "awaiting_location"
	case SessionRunning:
		return "running"
	case SessionInterrupted:
		return "interrupted"
	case SessionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DeviceOrientation is the physical orientation of the device screen.
type DeviceOrientation int

const (
	OrientationUnknown DeviceOrientation = iota
	OrientationPortrait
	OrientationPortraitUpsideDown
	OrientationLandscapeLeft
	OrientationLandscapeRight
	OrientationFaceUp
	OrientationFaceDown
)

// Flat reports orientations that carry no screen rotation information.
func (o DeviceOrientation) Flat() bool {
	return o == OrientationUnknown || o == OrientationFaceUp || o == OrientationFaceDown
}

func (o DeviceOrientation) String() string {
	switch o {
	case OrientationPortrait:
		return "portrait"
	case OrientationPortraitUpsideDown:
		return "portrait_upside_down"
	case OrientationLandscapeLeft:
		return "landscape_left"
	case OrientationLandscapeRight:
		return "landscape_right"
	case OrientationFaceUp:
		return "face_up"
	case OrientationFaceDown:
		return "face_down"
	default:
		return "unknown"
	}
}

// PlaneDetection is a bit set of plane kinds the tracker should detect.
type PlaneDetection uint8

const (
	PlaneDetectionHorizontal PlaneDetection = 1 << iota
	PlaneDetectionVertical
)

// WorldAlignment selects how the tracker orients its world frame.
type WorldAlignment int

const (
	WorldAlignmentGravity WorldAlignment = iota
	WorldAlignmentGravityAndHeading
	WorldAlignmentCamera
)

func (w WorldAlignment) String() string {
	switch w {
	case WorldAlignmentGravityAndHeading:
		return "gravity_and_heading"
	case WorldAlignmentCamera:
		return "camera"
	default:
		return "gravity"
	}
}

// TrackingConfiguration is handed to the tracker on every run.
type TrackingConfiguration struct {
	PlaneDetection  PlaneDetection
	WorldAlignment  WorldAlignment
	LightEstimation bool
}

// DefaultTrackingConfiguration is world tracking aligned to gravity and
// heading with horizontal plane detection.
func DefaultTrackingConfiguration() TrackingConfiguration {
	return TrackingConfiguration{
		PlaneDetection:  PlaneDetectionHorizontal,
		WorldAlignment:  WorldAlignmentGravityAndHeading,
		LightEstimation: true,
	}
}

// AnchorKind distinguishes tracked anchor types.
type AnchorKind int

const (
	AnchorKindPoint AnchorKind = iota
	AnchorKindPlane
)

// TrackedAnchor is an anchor reported by the tracking subsystem, in
// tracking space.
type TrackedAnchor struct {
	ID        string
	Kind      AnchorKind
	Transform Transform
	Extent    [2]float64 // plane width/length in metres; zero for points
}
