package core

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/geoar-bridge/model"
)

func identityCamera(t mgl64.Vec3) *model.FrameCamera {
	return &model.FrameCamera{Rotation: mgl64.QuatIdent(), Translation: t}
}

func TestRelativeTransformAxisRemap(t *testing.T) {
	rel := RelativeTransform(*identityCamera(mgl64.Vec3{1, 2, 3}), mgl64.QuatIdent(), 2.0)
	if diff := cmp.Diff(mgl64.Vec3{2, -6, 4}, rel.Translation, approx); diff != "" {
		t.Fatalf("translation mismatch (-want +got):\n%s", diff)
	}
	if !rel.Rotation.ApproxEqualThreshold(CameraBasisCorrection(), 1e-12) {
		t.Fatalf("identity camera rotation = %v, want basis correction", rel.Rotation)
	}
}

func TestSynchronizeEmitsAnchoredCamera(t *testing.T) {
	r := &fakeRenderer{}
	m := &recordingMetrics{}
	p := NewPoseSynchronizer(r, 2.0, m)
	p.SetScreenOrientation(model.OrientationLandscapeLeft)
	p.SetAnchor(model.Identity())
	p.Arm()

	if !p.Synchronize(model.TrackingFrame{Camera: identityCamera(mgl64.Vec3{1, 2, 3})}) {
		t.Fatalf("Synchronize() = false while armed")
	}
	got, ok := r.last()
	if !ok {
		t.Fatalf("renderer received no camera")
	}
	if diff := cmp.Diff(mgl64.Vec3{2, -6, 4}, got.Translation, approx); diff != "" {
		t.Fatalf("camera translation mismatch (-want +got):\n%s", diff)
	}
	if r.renderCount() != 1 || p.Frames() != 1 || m.synchronized != 1 {
		t.Fatalf("renders = %d, frames = %d, metric = %d, want 1 each", r.renderCount(), p.Frames(), m.synchronized)
	}
}

func TestSynchronizeComposesOntoAnchor(t *testing.T) {
	r := &fakeRenderer{}
	p := NewPoseSynchronizer(r, 1.0, nil)
	anchor := model.NewTransform(mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}), mgl64.Vec3{100, 200, 10})
	p.SetAnchor(anchor)
	p.Arm()

	cam := model.FrameCamera{Rotation: mgl64.QuatRotate(0.3, mgl64.Vec3{0, 1, 0}), Translation: mgl64.Vec3{1, 0, 0}}
	p.Synchronize(model.TrackingFrame{Camera: &cam})

	want := anchor.Mul(RelativeTransform(cam, OrientationCorrection(model.OrientationPortrait), 1.0))
	got, _ := r.last()
	if !got.ApproxEqual(want, 1e-9) {
		t.Fatalf("camera = %+v, want %+v", got, want)
	}
	// The anchor's quarter turn maps the remapped +X step onto +Y.
	if diff := cmp.Diff(mgl64.Vec3{100, 201, 10}, got.Translation, approx); diff != "" {
		t.Fatalf("translation mismatch (-want +got):\n%s", diff)
	}
}

func TestSynchronizeDropsFrames(t *testing.T) {
	r := &fakeRenderer{}
	m := &recordingMetrics{}
	p := NewPoseSynchronizer(r, 1.0, m)

	frame := model.TrackingFrame{Camera: identityCamera(mgl64.Vec3{})}
	if p.Synchronize(frame) {
		t.Fatalf("rendered without anchor")
	}
	p.SetAnchor(model.Identity())
	if p.Synchronize(frame) {
		t.Fatalf("rendered while disarmed")
	}
	p.Arm()
	if p.Synchronize(model.TrackingFrame{}) {
		t.Fatalf("rendered a frame without camera")
	}
	if m.dropped != 1 {
		t.Fatalf("dropped metric = %d, want 1", m.dropped)
	}
	p.ClearAnchor()
	if p.Synchronize(frame) {
		t.Fatalf("rendered after ClearAnchor")
	}
	if r.renderCount() != 0 {
		t.Fatalf("renders = %d, want 0", r.renderCount())
	}
}

func TestSetTranslationFactorIgnoresNonPositive(t *testing.T) {
	p := NewPoseSynchronizer(&fakeRenderer{}, 0, nil)
	if got := p.TranslationFactor(); got != DefaultTranslationFactor {
		t.Fatalf("factor = %v, want default", got)
	}
	p.SetTranslationFactor(3)
	p.SetTranslationFactor(-1)
	p.SetTranslationFactor(0)
	if got := p.TranslationFactor(); got != 3 {
		t.Fatalf("factor = %v, want 3", got)
	}
}

func TestQuiesceWaitsForInFlightRender(t *testing.T) {
	r := &fakeRenderer{}
	p := NewPoseSynchronizer(r, 1.0, nil)
	p.SetAnchor(model.Identity())
	p.Arm()

	entered := make(chan struct{})
	release := make(chan struct{})
	r.mu.Lock()
	r.onRender = func() {
		close(entered)
		<-release
	}
	r.mu.Unlock()

	go p.Synchronize(model.TrackingFrame{Camera: identityCamera(mgl64.Vec3{})})
	<-entered

	// Setters must not wait on the renderer.
	setters := make(chan struct{})
	go func() {
		p.Disarm()
		p.SetTranslationFactor(2)
		p.SetScreenOrientation(model.OrientationLandscapeLeft)
		close(setters)
	}()
	select {
	case <-setters:
	case <-time.After(2 * time.Second):
		t.Fatalf("Disarm blocked on an in-flight render")
	}

	quiesced := make(chan struct{})
	go func() {
		p.Quiesce()
		close(quiesced)
	}()
	select {
	case <-quiesced:
		t.Fatalf("Quiesce returned while a render was in flight")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-quiesced

	r.mu.Lock()
	r.onRender = nil
	r.mu.Unlock()
	if p.Synchronize(model.TrackingFrame{Camera: identityCamera(mgl64.Vec3{})}) {
		t.Fatalf("rendered after Disarm")
	}
	if got := r.renderCount(); got != 1 {
		t.Fatalf("renders = %d, want 1", got)
	}
}

func TestSynchronizeConcurrentWithOrientationChanges(t *testing.T) {
	r := &fakeRenderer{}
	p := NewPoseSynchronizer(r, 1.0, nil)
	p.SetAnchor(model.Identity())
	p.Arm()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			p.Synchronize(model.TrackingFrame{Camera: identityCamera(mgl64.Vec3{float64(i), 0, 0})})
		}
	}()
	go func() {
		defer wg.Done()
		orientations := []model.DeviceOrientation{model.OrientationPortrait, model.OrientationLandscapeLeft}
		for i := 0; i < 200; i++ {
			p.SetScreenOrientation(orientations[i%2])
		}
	}()
	wg.Wait()

	if got := p.Frames(); got != 200 {
		t.Fatalf("frames = %d, want 200", got)
	}
}
