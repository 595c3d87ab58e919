package model

import "github.com/go-gl/mathgl/mgl64"

// Transform is a rigid 6-DOF pose: a unit quaternion orientation plus a
// translation in geographic-scene units.
type Transform struct {
	Rotation    mgl64.Quat
	Translation mgl64.Vec3
}

// Identity returns the transform with no rotation and no translation.
func Identity() Transform {
	return Transform{Rotation: mgl64.QuatIdent()}
}

// NewTransform builds a transform, normalising the rotation.
func NewTransform(rotation mgl64.Quat, translation mgl64.Vec3) Transform {
	return Transform{Rotation: unit(rotation), Translation: translation}
}

// Mul composes t with other so that other is applied in t's frame:
// rotation t.R*other.R, translation t.T + t.R(other.T).
func (t Transform) Mul(other Transform) Transform {
	r := unit(t.Rotation)
	return Transform{
		Rotation:    unit(r.Mul(unit(other.Rotation))),
		Translation: t.Translation.Add(r.Rotate(other.Translation)),
	}
}

// ApproxEqual reports whether both components match within eps. q and -q
// describe the same rotation and compare equal.
func (t Transform) ApproxEqual(other Transform, eps float64) bool {
	if !t.Translation.ApproxEqualThreshold(other.Translation, eps) {
		return false
	}
	a, b := unit(t.Rotation), unit(other.Rotation)
	return a.ApproxEqualThreshold(b, eps) || a.ApproxEqualThreshold(b.Scale(-1), eps)
}

// unit treats the zero quaternion as identity so a zero-value Transform
// composes like Identity().
func unit(q mgl64.Quat) mgl64.Quat {
	if q.W == 0 && q.V == (mgl64.Vec3{}) {
		return mgl64.QuatIdent()
	}
	return q.Normalize()
}

// SpatialReferenceWGS84 is the well-known ID of geographic WGS84 coordinates.
const SpatialReferenceWGS84 = 4326

// GeoReference is a geodetic position used to seed the initial camera.
type GeoReference struct {
	Longitude float64 `yaml:"longitude"`
	Latitude  float64 `yaml:"latitude"`
	Altitude  float64 `yaml:"altitude"` // metres
	WKID      int     `yaml:"wkid"`
}

// GeographicAnchor is the fixed reference pose every frame is composed onto.
type GeographicAnchor struct {
	Transform Transform
	Geo       *GeoReference // optional
}

// AnchorFromGeo places a camera at the geodetic position with zero heading,
// pitch and roll: longitude→X, latitude→Y, altitude→Z.
func AnchorFromGeo(geo GeoReference) GeographicAnchor {
	if geo.WKID == 0 {
		geo.WKID = SpatialReferenceWGS84
	}
	return GeographicAnchor{
		Transform: NewTransform(mgl64.QuatIdent(), mgl64.Vec3{geo.Longitude, geo.Latitude, geo.Altitude}),
		Geo:       &geo,
	}
}

// FrameCamera is the tracking subsystem's device-relative camera pose.
type FrameCamera struct {
	Rotation    mgl64.Quat
	Translation mgl64.Vec3 // tracking-space metres
}

// TrackingFrame is produced once per tracking callback and consumed
// immediately. Camera is nil when no point of view is available.
type TrackingFrame struct {
	Timestamp float64 // monotonic seconds
	Camera    *FrameCamera
}
