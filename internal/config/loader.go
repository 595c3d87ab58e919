package config

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/geoar-bridge/core"
	"github.com/signalsfoundry/geoar-bridge/internal/logging"
	"github.com/signalsfoundry/geoar-bridge/internal/observability"
	"github.com/signalsfoundry/geoar-bridge/model"
)

// DefaultMetricsListen is used when metrics are enabled without an address.
const DefaultMetricsListen = ":9464"

// Default returns the configuration used when no file is supplied.
func Default() BridgeConfig {
	return BridgeConfig{
		TranslationFactor: core.DefaultTranslationFactor,
		RenderVideoFeed:   true,
		SampleInterval:    core.DefaultSampleInterval,
		Tracking: TrackingConfig{
			WorldAlignment:   model.WorldAlignmentGravityAndHeading.String(),
			HorizontalPlanes: true,
			LightEstimation:  true,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Tracing: observability.TracingConfig{
			ServiceName: observability.DefaultServiceName,
			Exporter:    "stdout",
			SampleRatio: 1,
		},
	}
}

// Load reads and validates a YAML configuration file. Unset fields keep
// the values from Default.
func Load(path string) (BridgeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BridgeConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return BridgeConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (BridgeConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return BridgeConfig{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}
	if cfg.OriginCamera != nil && cfg.OriginCamera.WKID == 0 {
		cfg.OriginCamera.WKID = model.SpatialReferenceWGS84
	}
	if err := cfg.Validate(); err != nil {
		return BridgeConfig{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c BridgeConfig) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// TrackingConfiguration converts the tracking block for the tracker.
func (c BridgeConfig) TrackingConfiguration() model.TrackingConfiguration {
	out := model.TrackingConfiguration{LightEstimation: c.Tracking.LightEstimation}
	switch c.Tracking.WorldAlignment {
	case model.WorldAlignmentGravity.String():
		out.WorldAlignment = model.WorldAlignmentGravity
	case model.WorldAlignmentCamera.String():
		out.WorldAlignment = model.WorldAlignmentCamera
	default:
		out.WorldAlignment = model.WorldAlignmentGravityAndHeading
	}
	if c.Tracking.HorizontalPlanes {
		out.PlaneDetection |= model.PlaneDetectionHorizontal
	}
	if c.Tracking.VerticalPlanes {
		out.PlaneDetection |= model.PlaneDetectionVertical
	}
	return out
}

// OriginAnchor returns the configured origin camera, or nil when the
// session should derive its anchor from location fixes.
func (c BridgeConfig) OriginAnchor() *model.GeographicAnchor {
	if c.OriginCamera == nil {
		return nil
	}
	oc := c.OriginCamera
	anchor := model.AnchorFromGeo(model.GeoReference{
		Longitude: oc.Longitude,
		Latitude:  oc.Latitude,
		Altitude:  oc.Altitude,
		WKID:      oc.WKID,
	})
	if oc.Heading != 0 {
		// Compass headings run clockwise; rotations about +Z run counter-clockwise.
		anchor.Transform.Rotation = mgl64.QuatRotate(mgl64.DegToRad(-oc.Heading), mgl64.Vec3{0, 0, 1})
	}
	return &anchor
}

// UsageDescriptions returns the location usage strings for the session.
func (c BridgeConfig) UsageDescriptions() core.UsageDescriptions {
	return core.UsageDescriptions{WhenInUse: c.Usage.WhenInUse, Always: c.Usage.Always}
}

// LoggingConfig returns the logger settings.
func (c BridgeConfig) LoggingConfig() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format}
}

// SessionOptions assembles the session options the configuration implies.
func (c BridgeConfig) SessionOptions() []core.Option {
	opts := []core.Option{
		core.WithTranslationFactor(c.TranslationFactor),
		core.WithRenderVideoFeed(c.RenderVideoFeed),
		core.WithTrackingConfiguration(c.TrackingConfiguration()),
		core.WithUsageDescriptions(c.UsageDescriptions()),
	}
	if c.SampleInterval > 0 {
		opts = append(opts, core.WithSampleInterval(c.SampleInterval))
	}
	if anchor := c.OriginAnchor(); anchor != nil {
		opts = append(opts, core.WithOriginCamera(anchor))
	}
	return opts
}
