package observability

import (
	"math"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/geoar-bridge/model"
)

var sessionStates = []model.SessionState{
	model.SessionUnsupported,
	model.SessionIdle,
	model.SessionAwaitingAuthorization,
	model.SessionAwaitingLocation,
	model.SessionRunning,
	model.SessionInterrupted,
	model.SessionFailed,
}

// SessionCollector bundles Prometheus metrics for a tracking session. Its
// methods satisfy the session's metrics recorder so the controller can
// drive the values directly from its transitions.
type SessionCollector struct {
	gatherer prometheus.Gatherer
	stats    *FrameStats

	FramesSynchronized prometheus.Counter
	FramesDropped      prometheus.Counter
	FrameRate          prometheus.Gauge
	FrameRateMean      prometheus.Gauge
	FrameRateStdDev    prometheus.Gauge
	State              *prometheus.GaugeVec
	AccuracyWatermark  prometheus.Gauge
	Notifications      *prometheus.CounterVec
}

// NewSessionCollector registers session metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSessionCollector(reg prometheus.Registerer) (*SessionCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	synced, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoar_frames_synchronized_total",
		Help: "Frames whose camera pose was pushed to the renderer, one render pass each.",
	}), "geoar_frames_synchronized_total")
	if err != nil {
		return nil, err
	}
	dropped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoar_frames_dropped_total",
		Help: "Frames skipped because the tracker reported no camera.",
	}), "geoar_frames_dropped_total")
	if err != nil {
		return nil, err
	}
	fps, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geoar_frame_rate_fps",
		Help: "Most recent sampled render frame rate.",
	}), "geoar_frame_rate_fps")
	if err != nil {
		return nil, err
	}
	fpsMean, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geoar_frame_rate_mean_fps",
		Help: "Mean of the recent frame-rate samples.",
	}), "geoar_frame_rate_mean_fps")
	if err != nil {
		return nil, err
	}
	fpsStd, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geoar_frame_rate_stddev_fps",
		Help: "Standard deviation of the recent frame-rate samples.",
	}), "geoar_frame_rate_stddev_fps")
	if err != nil {
		return nil, err
	}
	state, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "geoar_session_state",
		Help: "1 for the session's current lifecycle state, 0 otherwise.",
	}, []string{"state"}), "geoar_session_state")
	if err != nil {
		return nil, err
	}
	watermark, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geoar_location_accuracy_watermark_meters",
		Help: "Best horizontal accuracy seen since the last reset; +Inf before the first valid fix.",
	}), "geoar_location_accuracy_watermark_meters")
	if err != nil {
		return nil, err
	}
	notifications, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoar_start_or_fail_notifications_total",
		Help: "Latched start-or-fail notifications, labeled by result.",
	}, []string{"result"}), "geoar_start_or_fail_notifications_total")
	if err != nil {
		return nil, err
	}

	return &SessionCollector{
		gatherer:           gatherer,
		stats:              NewFrameStats(DefaultFrameStatsWindow),
		FramesSynchronized: synced,
		FramesDropped:      dropped,
		FrameRate:          fps,
		FrameRateMean:      fpsMean,
		FrameRateStdDev:    fpsStd,
		State:              state,
		AccuracyWatermark:  watermark,
		Notifications:      notifications,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SessionCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SessionCollector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// FrameSynchronized counts one rendered frame.
func (c *SessionCollector) FrameSynchronized() {
	if c == nil || c.FramesSynchronized == nil {
		return
	}
	c.FramesSynchronized.Inc()
}

// FrameDropped counts one frame without camera data.
func (c *SessionCollector) FrameDropped() {
	if c == nil || c.FramesDropped == nil {
		return
	}
	c.FramesDropped.Inc()
}

// SetSessionState marks state as the current one.
func (c *SessionCollector) SetSessionState(state model.SessionState) {
	if c == nil || c.State == nil {
		return
	}
	for _, s := range sessionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		c.State.WithLabelValues(s.String()).Set(v)
	}
}

// SetAccuracyWatermark records the best horizontal accuracy.
func (c *SessionCollector) SetAccuracyWatermark(meters float64) {
	if c == nil || c.AccuracyWatermark == nil {
		return
	}
	if meters >= math.MaxFloat64 {
		meters = math.Inf(1)
	}
	c.AccuracyWatermark.Set(meters)
}

// StartOrFailNotified counts a latched notification.
func (c *SessionCollector) StartOrFailNotified(result string) {
	if c == nil || c.Notifications == nil {
		return
	}
	c.Notifications.WithLabelValues(result).Inc()
}

// SetFrameRate records a frame-rate sample and refreshes the window
// statistics.
func (c *SessionCollector) SetFrameRate(fps float64) {
	if c == nil {
		return
	}
	if c.FrameRate != nil {
		c.FrameRate.Set(fps)
	}
	c.stats.Add(fps)
	mean, std := c.stats.MeanStdDev()
	if c.FrameRateMean != nil {
		c.FrameRateMean.Set(mean)
	}
	if c.FrameRateStdDev != nil {
		c.FrameRateStdDev.Set(std)
	}
}
