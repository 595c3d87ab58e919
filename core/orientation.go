package core

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/geoar-bridge/model"
)

var (
	zAxis = mgl64.Vec3{0, 0, 1}
	xAxis = mgl64.Vec3{1, 0, 0}
)

// CameraBasisCorrection is the fixed rotation between the tracker's camera
// axes and the renderer's: -90° about X.
func CameraBasisCorrection() mgl64.Quat {
	return mgl64.QuatRotate(-math.Pi/2, xAxis)
}

// OrientationCorrection maps a screen orientation to the rotation that
// offsets the tracker's landscape-left camera convention. Flat and unknown
// orientations map to portrait; callers track the last non-flat value.
func OrientationCorrection(o model.DeviceOrientation) mgl64.Quat {
	switch o {
	case model.OrientationLandscapeLeft:
		return mgl64.QuatIdent()
	case model.OrientationLandscapeRight:
		return mgl64.QuatRotate(math.Pi, zAxis)
	case model.OrientationPortraitUpsideDown:
		return mgl64.QuatRotate(-math.Pi/2, zAxis)
	default:
		return mgl64.QuatRotate(math.Pi/2, zAxis)
	}
}

// orientationTracker remembers the last orientation that carries screen
// rotation so face-up/face-down readings keep the previous correction.
type orientationTracker struct {
	mu   sync.Mutex
	last model.DeviceOrientation
}

func newOrientationTracker(initial model.DeviceOrientation) *orientationTracker {
	t := &orientationTracker{last: model.OrientationPortrait}
	t.update(initial)
	return t
}

// update records o if it is not flat and returns the effective orientation.
func (t *orientationTracker) update(o model.DeviceOrientation) model.DeviceOrientation {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !o.Flat() {
		t.last = o
	}
	return t.last
}
