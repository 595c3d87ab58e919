package core

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/geoar-bridge/internal/logging"
	"github.com/signalsfoundry/geoar-bridge/kb"
	"github.com/signalsfoundry/geoar-bridge/model"
)

// Dependencies are the external collaborators a Session drives. Tracker,
// Location and Renderer are required; Orientation is optional and falls
// back to a fixed portrait correction.
type Dependencies struct {
	Tracker     Tracker
	Location    LocationService
	Renderer    Renderer
	Orientation OrientationSource
}

// Option customises Session construction.
type Option func(*Session)

// WithOriginCamera pins the anchor to a caller-supplied pose instead of
// waiting for a location fix.
func WithOriginCamera(anchor *model.GeographicAnchor) Option {
	return func(s *Session) {
		s.resolver.SetOverride(anchor)
	}
}

// WithTranslationFactor scales tracker translation into scene units.
func WithTranslationFactor(f float64) Option {
	return func(s *Session) {
		s.factor = f
	}
}

// WithRenderVideoFeed controls whether the camera feed is drawn behind
// the scene.
func WithRenderVideoFeed(enabled bool) Option {
	return func(s *Session) {
		s.renderVideoFeed = enabled
	}
}

// WithTrackingConfiguration sets the configuration handed to the tracker.
func WithTrackingConfiguration(cfg model.TrackingConfiguration) Option {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics attaches an instrumentation recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithErrorPolicy replaces TrackingDomainPolicy as the filter deciding
// which tracker failures are fatal.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(s *Session) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithUsageDescriptions sets the location usage strings checked before
// authorization is requested.
func WithUsageDescriptions(u UsageDescriptions) Option {
	return func(s *Session) {
		s.usage = u
	}
}

// WithSampleInterval sets the frame-rate sampling period.
func WithSampleInterval(d time.Duration) Option {
	return func(s *Session) {
		s.sampleInterval = d
	}
}

// WithAnchorRegistry shares an anchor registry with the caller.
func WithAnchorRegistry(r *kb.AnchorRegistry) Option {
	return func(s *Session) {
		if r != nil {
			s.anchors = r
		}
	}
}

// WithTracer sets the tracer used for lifecycle spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Session) {
		if t != nil {
			s.tracer = t
		}
	}
}
