package sim

import (
	"context"
	"sync"

	"github.com/signalsfoundry/geoar-bridge/core"
	"github.com/signalsfoundry/geoar-bridge/internal/logging"
	"github.com/signalsfoundry/geoar-bridge/model"
)

// Observer logs session events and remembers the start-or-fail outcomes.
type Observer struct {
	log logging.Logger

	mu            sync.Mutex
	notifications []string
	failures      int
	frames        int
	relocalize    bool
}

// NewObserver returns an observer logging through log.
func NewObserver(log logging.Logger) *Observer {
	if log == nil {
		log = logging.Noop()
	}
	return &Observer{log: log}
}

// SetRelocalize sets the answer given after interruptions.
func (o *Observer) SetRelocalize(v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.relocalize = v
}

func (o *Observer) DidStartOrFail(err error) {
	result := core.NotificationResult(err)
	o.mu.Lock()
	o.notifications = append(o.notifications, result)
	o.mu.Unlock()
	o.log.Info(context.Background(), "session start-or-fail", logging.String("result", result), logging.Err(err))
}

func (o *Observer) FrameUpdated(model.TrackingFrame) {
	o.mu.Lock()
	o.frames++
	o.mu.Unlock()
}

func (o *Observer) AnchorsAdded(anchors []model.TrackedAnchor) {
	o.log.Debug(context.Background(), "anchors added", logging.Int("count", len(anchors)))
}

func (o *Observer) AnchorsUpdated(anchors []model.TrackedAnchor) {
	o.log.Debug(context.Background(), "anchors updated", logging.Int("count", len(anchors)))
}

func (o *Observer) AnchorsRemoved(anchors []model.TrackedAnchor) {
	o.log.Debug(context.Background(), "anchors removed", logging.Int("count", len(anchors)))
}

func (o *Observer) SessionFailed(err error) {
	o.mu.Lock()
	o.failures++
	o.mu.Unlock()
	o.log.Warn(context.Background(), "tracker reported failure", logging.Err(err))
}

func (o *Observer) SessionInterrupted() {
	o.log.Info(context.Background(), "session interrupted")
}

func (o *Observer) InterruptionEnded() {
	o.log.Info(context.Background(), "session interruption ended")
}

func (o *Observer) ShouldRelocalize() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.relocalize
}

func (o *Observer) AudioBufferOutput([]byte) {}

// Notifications returns the recorded start-or-fail results in order.
func (o *Observer) Notifications() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.notifications...)
}

// Failures returns how many tracker failures were relayed.
func (o *Observer) Failures() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failures
}

// Frames returns how many tracker frames were relayed.
func (o *Observer) Frames() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frames
}
