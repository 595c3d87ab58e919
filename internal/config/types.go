package config

import (
	"time"

	"github.com/signalsfoundry/geoar-bridge/internal/observability"
)

// OriginCameraConfig pins the session anchor to a fixed geographic pose.
type OriginCameraConfig struct {
	Longitude float64 `yaml:"longitude" validate:"gte=-180,lte=180"`
	Latitude  float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
	Altitude  float64 `yaml:"altitude"`
	WKID      int     `yaml:"wkid" validate:"omitempty,gt=0"`
	// Heading is a rotation about the up axis in degrees.
	Heading float64 `yaml:"heading" validate:"gte=-360,lte=360"`
}

// UsageConfig holds the location usage strings shown when authorization
// is requested.
type UsageConfig struct {
	WhenInUse string `yaml:"when_in_use"`
	Always    string `yaml:"always"`
}

// TrackingConfig mirrors model.TrackingConfiguration in YAML form.
type TrackingConfig struct {
	WorldAlignment   string `yaml:"world_alignment" validate:"oneof=gravity gravity_and_heading camera"`
	HorizontalPlanes bool   `yaml:"horizontal_planes"`
	VerticalPlanes   bool   `yaml:"vertical_planes"`
	LightEstimation  bool   `yaml:"light_estimation"`
}

// LogConfig selects the logger level and format.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen" validate:"omitempty,hostname_port"`
}

// BridgeConfig is the root configuration for a tracking session.
type BridgeConfig struct {
	TranslationFactor float64                     `yaml:"translation_factor" validate:"gt=0"`
	RenderVideoFeed   bool                        `yaml:"render_video_feed"`
	SampleInterval    time.Duration               `yaml:"sample_interval" validate:"gte=0"`
	Tracking          TrackingConfig              `yaml:"tracking"`
	OriginCamera      *OriginCameraConfig         `yaml:"origin_camera" validate:"omitempty"`
	Usage             UsageConfig                 `yaml:"usage_descriptions"`
	Log               LogConfig                   `yaml:"log"`
	Metrics           MetricsConfig               `yaml:"metrics"`
	Tracing           observability.TracingConfig `yaml:"tracing"`
}
