package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/signalsfoundry/geoar-bridge/model"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestCameraBasisCorrection(t *testing.T) {
	q := CameraBasisCorrection()

	if diff := cmp.Diff(mgl64.Vec3{0, 0, -1}, q.Rotate(mgl64.Vec3{0, 1, 0}), approx); diff != "" {
		t.Fatalf("+Y mapping mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(mgl64.Vec3{0, 1, 0}, q.Rotate(mgl64.Vec3{0, 0, 1}), approx); diff != "" {
		t.Fatalf("+Z mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestOrientationCorrection(t *testing.T) {
	cases := []struct {
		orientation model.DeviceOrientation
		wantX       mgl64.Vec3 // image of +X
	}{
		{model.OrientationLandscapeLeft, mgl64.Vec3{1, 0, 0}},
		{model.OrientationLandscapeRight, mgl64.Vec3{-1, 0, 0}},
		{model.OrientationPortrait, mgl64.Vec3{0, 1, 0}},
		{model.OrientationPortraitUpsideDown, mgl64.Vec3{0, -1, 0}},
		{model.OrientationFaceUp, mgl64.Vec3{0, 1, 0}},
		{model.OrientationUnknown, mgl64.Vec3{0, 1, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.orientation.String(), func(t *testing.T) {
			got := OrientationCorrection(tc.orientation).Rotate(mgl64.Vec3{1, 0, 0})
			if diff := cmp.Diff(tc.wantX, got, approx); diff != "" {
				t.Fatalf("+X mapping mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOrientationTrackerKeepsLastNonFlat(t *testing.T) {
	tr := newOrientationTracker(model.OrientationFaceUp)
	if got := tr.update(model.OrientationFaceDown); got != model.OrientationPortrait {
		t.Fatalf("initial flat orientation = %v, want portrait", got)
	}
	if got := tr.update(model.OrientationLandscapeRight); got != model.OrientationLandscapeRight {
		t.Fatalf("update(landscape_right) = %v", got)
	}
	for _, flat := range []model.DeviceOrientation{model.OrientationFaceUp, model.OrientationFaceDown, model.OrientationUnknown} {
		if got := tr.update(flat); got != model.OrientationLandscapeRight {
			t.Fatalf("update(%v) = %v, want landscape_right", flat, got)
		}
	}
}
