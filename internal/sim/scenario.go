package sim

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/geoar-bridge/core"
	"github.com/signalsfoundry/geoar-bridge/model"
)

// Event types understood by the Runner.
const (
	EventStart               = "start"
	EventStop                = "stop"
	EventReset               = "reset"
	EventResetLocation       = "reset_location"
	EventResetAnchor         = "reset_anchor"
	EventAuthorize           = "authorize"
	EventLocation            = "location"
	EventHeading             = "heading"
	EventOrientation         = "orientation"
	EventInterrupt           = "interrupt"
	EventInterruptionEnded   = "interruption_ended"
	EventTrackingFailure     = "tracking_failure"
	EventAnchorAdded         = "anchor_added"
	EventAnchorUpdated       = "anchor_updated"
	EventAnchorRemoved       = "anchor_removed"
	EventLocationPaused      = "location_paused"
	EventLocationResumed     = "location_resumed"
	EventLocationFailed      = "location_failed"
	EventRenderVideoFeed     = "render_video_feed"
	EventSetTranslationScale = "translation_factor"
)

var authorizationNames = map[string]model.AuthorizationState{
	"not_determined": model.AuthorizationNotDetermined,
	"denied":         model.AuthorizationDenied,
	"restricted":     model.AuthorizationRestricted,
	"when_in_use":    model.AuthorizationWhenInUse,
	"always":         model.AuthorizationAlways,
}

var orientationNames = map[string]model.DeviceOrientation{
	"unknown":              model.OrientationUnknown,
	"portrait":             model.OrientationPortrait,
	"portrait_upside_down": model.OrientationPortraitUpsideDown,
	"landscape_left":       model.OrientationLandscapeLeft,
	"landscape_right":      model.OrientationLandscapeRight,
	"face_up":              model.OrientationFaceUp,
	"face_down":            model.OrientationFaceDown,
}

// DeviceSpec describes the simulated hardware.
type DeviceSpec struct {
	Supported        bool   `yaml:"supported"`
	Authorization    string `yaml:"authorization" validate:"omitempty,oneof=not_determined denied restricted when_in_use always"`
	HeadingAvailable bool   `yaml:"heading_available"`
	Orientation      string `yaml:"orientation" validate:"omitempty,oneof=unknown portrait portrait_upside_down landscape_left landscape_right face_up face_down"`
}

func (d DeviceSpec) authorization() model.AuthorizationState {
	return authorizationNames[d.Authorization]
}

func (d DeviceSpec) orientation() model.DeviceOrientation {
	if o, ok := orientationNames[d.Orientation]; ok {
		return o
	}
	return model.OrientationPortrait
}

// MotionSpec is a constant-velocity walk with a steady turn, expressed in
// the tracker's device-relative frame (+Y up, -Z forward).
type MotionSpec struct {
	Velocity [3]float64 `yaml:"velocity"`
	// YawRate is degrees per second about the tracker's up axis.
	YawRate float64 `yaml:"yaw_rate"`
	// DropEvery drops the camera from every Nth frame; 0 never drops.
	DropEvery int `yaml:"drop_every" validate:"gte=0"`
}

// Camera returns the tracker camera at elapsed seconds.
func (m MotionSpec) Camera(elapsed float64) model.FrameCamera {
	v := mgl64.Vec3{m.Velocity[0], m.Velocity[1], m.Velocity[2]}
	yaw := mgl64.DegToRad(m.YawRate * elapsed)
	return model.FrameCamera{
		Rotation:    mgl64.QuatRotate(yaw, mgl64.Vec3{0, 1, 0}),
		Translation: v.Mul(elapsed),
	}
}

// FixSpec is a location fix in YAML form.
type FixSpec struct {
	Longitude          float64 `yaml:"longitude" validate:"gte=-180,lte=180"`
	Latitude           float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
	Altitude           float64 `yaml:"altitude"`
	HorizontalAccuracy float64 `yaml:"horizontal_accuracy"`
	VerticalAccuracy   float64 `yaml:"vertical_accuracy"`
}

func (f FixSpec) fix() model.LocationFix {
	return model.LocationFix{
		Longitude:          f.Longitude,
		Latitude:           f.Latitude,
		Altitude:           f.Altitude,
		HorizontalAccuracy: f.HorizontalAccuracy,
		VerticalAccuracy:   f.VerticalAccuracy,
	}
}

// EventSpec is one scripted stimulus applied before the frame at Frame.
type EventSpec struct {
	Frame int    `yaml:"frame" validate:"gte=0"`
	Type  string `yaml:"type" validate:"required,oneof=start stop reset reset_location reset_anchor authorize location heading orientation interrupt interruption_ended tracking_failure anchor_added anchor_updated anchor_removed location_paused location_resumed location_failed render_video_feed translation_factor"`

	Authorization string              `yaml:"authorization" validate:"omitempty,oneof=not_determined denied restricted when_in_use always"`
	Orientation   string              `yaml:"orientation" validate:"omitempty,oneof=unknown portrait portrait_upside_down landscape_left landscape_right face_up face_down"`
	Fixes         []FixSpec           `yaml:"fixes" validate:"dive"`
	Anchor        *model.GeoReference `yaml:"anchor"`
	Heading       float64             `yaml:"heading"`
	Domain        string              `yaml:"domain"`
	Code          int                 `yaml:"code"`
	Message       string              `yaml:"message"`
	AnchorID      string              `yaml:"anchor_id"`
	Plane         bool                `yaml:"plane"`
	Extent        [2]float64          `yaml:"extent"`
	// Enabled toggles the video feed, or answers the relocalization query
	// on interruption_ended.
	Enabled       bool                `yaml:"enabled"`
	Factor        float64             `yaml:"factor" validate:"gte=0"`
}

// Scenario is a scripted tracking session.
type Scenario struct {
	Name          string        `yaml:"name"`
	Frames        int           `yaml:"frames" validate:"gt=0"`
	FrameInterval time.Duration `yaml:"frame_interval" validate:"gte=0"`
	Device        DeviceSpec    `yaml:"device"`
	Motion        MotionSpec    `yaml:"motion"`
	Events        []EventSpec   `yaml:"events" validate:"dive"`
}

// DefaultFrameInterval is used when neither the scenario nor the caller
// sets one.
const DefaultFrameInterval = time.Second / 60

// LoadScenario decodes and validates a YAML scenario. Events are returned
// ordered by frame, keeping file order within a frame.
func LoadScenario(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := validator.New().Struct(sc); err != nil {
		return nil, fmt.Errorf("validate scenario: %w", err)
	}
	for i, ev := range sc.Events {
		if ev.Frame >= sc.Frames {
			return nil, fmt.Errorf("event %d (%s): frame %d beyond scenario length %d", i, ev.Type, ev.Frame, sc.Frames)
		}
		if err := ev.check(); err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, ev.Type, err)
		}
	}
	if sc.FrameInterval == 0 {
		sc.FrameInterval = DefaultFrameInterval
	}
	sort.SliceStable(sc.Events, func(i, j int) bool { return sc.Events[i].Frame < sc.Events[j].Frame })
	return &sc, nil
}

func (e EventSpec) check() error {
	switch e.Type {
	case EventAuthorize:
		if e.Authorization == "" {
			return fmt.Errorf("authorization is required")
		}
	case EventOrientation:
		if e.Orientation == "" {
			return fmt.Errorf("orientation is required")
		}
	case EventLocation:
		if len(e.Fixes) == 0 {
			return fmt.Errorf("at least one fix is required")
		}
	case EventResetAnchor:
		if e.Anchor == nil {
			return fmt.Errorf("anchor is required")
		}
	case EventAnchorAdded, EventAnchorUpdated, EventAnchorRemoved:
		if e.AnchorID == "" {
			return fmt.Errorf("anchor_id is required")
		}
	case EventSetTranslationScale:
		if e.Factor <= 0 || math.IsInf(e.Factor, 0) {
			return fmt.Errorf("factor must be positive")
		}
	}
	return nil
}

func (e EventSpec) trackingError() error {
	domain := e.Domain
	if domain == "" {
		domain = core.TrackingDomain
	}
	return &core.TrackingError{Domain: domain, Code: e.Code, Message: e.Message}
}

func (e EventSpec) trackedAnchor() model.TrackedAnchor {
	kind := model.AnchorKindPoint
	if e.Plane {
		kind = model.AnchorKindPlane
	}
	return model.TrackedAnchor{ID: e.AnchorID, Kind: kind, Transform: model.Identity(), Extent: e.Extent}
}
