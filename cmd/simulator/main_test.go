package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

const testScenario = `
name: smoke
frames: 6
frame_interval: 1ms
device: {supported: true, authorization: when_in_use}
motion: {velocity: [0, 0, -1]}
events:
  - {frame: 0, type: start}
  - {frame: 1, type: location, fixes: [{longitude: 8.54, latitude: 47.37, altitude: 408, horizontal_accuracy: 6}]}
`

const testConfig = `
usage_descriptions:
  when_in_use: "place content"
log:
  level: error
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunScenario(t *testing.T) {
	t.Setenv("GEOAR_TRACING_ENABLED", "false")
	cfg := writeFile(t, "bridge.yaml", testConfig)
	sc := writeFile(t, "scenario.yaml", testScenario)

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--config", cfg, "--scenario", sc}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v (stderr: %s)", err, stderr.String())
	}

	out := stdout.String()
	if got := strings.Count(out, "frame="); got != 5 {
		t.Fatalf("rendered lines = %d, want 5\n%s", got, out)
	}
	for _, want := range []string{
		`scenario "smoke": 6/6 frames, 5 rendered, state=running`,
		"notifications=[started]",
		"anchors=0 planes=0 translation_factor=1\n",
		"lat=47.3700000",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunQuietWithOriginCamera(t *testing.T) {
	t.Setenv("GEOAR_TRACING_ENABLED", "false")
	cfg := writeFile(t, "bridge.yaml", testConfig+"origin_camera: {longitude: 1, latitude: 2, altitude: 3}\n")
	sc := writeFile(t, "scenario.yaml", "frames: 3\ndevice: {supported: true, authorization: denied}\nevents:\n  - {frame: 0, type: start}\n")

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"-c", cfg, "-s", sc, "-q"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := stdout.String()
	if strings.Contains(out, "frame=") {
		t.Fatalf("quiet run printed frames:\n%s", out)
	}
	if !strings.Contains(out, "3 rendered, state=running") {
		t.Fatalf("origin camera run did not render every frame:\n%s", out)
	}
}

func TestRunMissingUsageDescription(t *testing.T) {
	t.Setenv("GEOAR_TRACING_ENABLED", "false")
	sc := writeFile(t, "scenario.yaml", strings.Replace(testScenario, "when_in_use", "not_determined", 1))

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--scenario", sc, "--log-level", "error"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "notifications=[missing_configuration]") {
		t.Fatalf("expected missing configuration:\n%s", stdout.String())
	}
	if !strings.Contains(stdout.String(), "0 rendered, state=failed") {
		t.Fatalf("expected failed session:\n%s", stdout.String())
	}
}

func TestRunErrors(t *testing.T) {
	t.Setenv("GEOAR_TRACING_ENABLED", "false")
	sc := writeFile(t, "scenario.yaml", testScenario)
	bad := writeFile(t, "bad.yaml", "frames: 2\nevents:\n  - {frame: 5, type: start}\n")

	cases := map[string][]string{
		"unexpected argument": {"--scenario", sc, "extra"},
		"unknown flag":        {"--bogus"},
		"missing scenario":    {"--scenario", filepath.Join(t.TempDir(), "nope.yaml")},
		"invalid scenario":    {"--scenario", bad},
		"missing config":      {"--scenario", sc, "--config", filepath.Join(t.TempDir(), "nope.yaml")},
		"invalid log level":   {"--scenario", sc, "--log-level", "loud"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := run(context.Background(), args, &stdout, &stderr); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--help"}, &stdout, &stderr)
	if !errors.Is(err, pflag.ErrHelp) {
		t.Fatalf("err = %v, want ErrHelp", err)
	}
	if !strings.Contains(stderr.String(), "--scenario") {
		t.Fatalf("usage missing flags:\n%s", stderr.String())
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("GEOAR_TRACING_ENABLED", "true")
	t.Setenv("GEOAR_TRACING_EXPORTER", "otlp")

	cfg, err := loadConfig(options{metricsAddr: "localhost:9999", logLevel: "debug", logFormat: "json"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Listen != "localhost:9999" {
		t.Fatalf("metrics = %+v", cfg.Metrics)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("log = %+v", cfg.Log)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.Exporter != "otlp" {
		t.Fatalf("tracing = %+v", cfg.Tracing)
	}
}
