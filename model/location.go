package model

import "time"

// LocationFix is a single fix delivered by the location collaborator.
// Negative accuracies mark the value as invalid.
type LocationFix struct {
	Longitude          float64
	Latitude           float64
	Altitude           float64 // metres
	HorizontalAccuracy float64 // metres
	VerticalAccuracy   float64 // metres
	Timestamp          time.Time
}

// Geo returns the fix position as a WGS84 geo reference.
func (f LocationFix) Geo() GeoReference {
	return GeoReference{
		Longitude: f.Longitude,
		Latitude:  f.Latitude,
		Altitude:  f.Altitude,
		WKID:      SpatialReferenceWGS84,
	}
}

// Heading is a compass reading, recorded for diagnostics only.
type Heading struct {
	Magnetic  float64 // degrees
	True      float64 // degrees, negative when unavailable
	Accuracy  float64 // degrees
	Timestamp time.Time
}

// AuthorizationState mirrors the location collaborator's permission state.
type AuthorizationState int

const (
	AuthorizationNotDetermined AuthorizationState = iota
	AuthorizationDenied
	AuthorizationRestricted
	AuthorizationWhenInUse
	AuthorizationAlways
)

// Authorized reports whether location updates may be requested.
func (a AuthorizationState) Authorized() bool {
	return a == AuthorizationWhenInUse || a == AuthorizationAlways
}

// Denied reports whether access was refused; restricted counts as denied.
func (a AuthorizationState) Denied() bool {
	return a == AuthorizationDenied || a == AuthorizationRestricted
}

func (a AuthorizationState) String() string {
	switch a {
	case AuthorizationNotDetermined:
		return "not_determined"
	case AuthorizationDenied:
		return "denied"
	case AuthorizationRestricted:
		return "restricted"
	case AuthorizationWhenInUse:
		return "when_in_use"
	case AuthorizationAlways:
		return "always"
	default:
		return "unknown"
	}
}
