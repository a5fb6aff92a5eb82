package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
scenario:
  name: scenario2_moving
  pulse_rate_hz: 20000000
  duration_s: 2.5
  output_dir: data/runs/test
streaming:
  bin_sec: 0.002
  chunk_sec: 0.05
  format: csv
  overwrite: true
weather: fog
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Scenario.Name != "scenario2_moving" {
		t.Errorf("name = %q", cfg.Scenario.Name)
	}
	if cfg.Scenario.PulseRateHz != 20_000_000 {
		t.Errorf("pulse_rate_hz = %d", cfg.Scenario.PulseRateHz)
	}
	if cfg.Streaming.BinSec != 0.002 {
		t.Errorf("bin_sec = %v", cfg.Streaming.BinSec)
	}
	if cfg.Streaming.Format != "csv" {
		t.Errorf("format = %q", cfg.Streaming.Format)
	}
	if !cfg.Streaming.Overwrite {
		t.Error("overwrite should be true")
	}
	// Unset sections keep their defaults.
	if cfg.Devices.DetectorEta != 0.8 {
		t.Errorf("detector_eta = %v, want default 0.8", cfg.Devices.DetectorEta)
	}
	if cfg.Weather == nil || cfg.Weather.Preset != "fog" {
		t.Errorf("weather preset not parsed: %+v", cfg.Weather)
	}
}

func TestLoadInlineWeather(t *testing.T) {
	path := writeConfig(t, `
scenario:
  name: scenario1_equidistant
  pulse_rate_hz: 1000000
  duration_s: 1.0
  output_dir: out
weather:
  name: drizzle
  attenuation_db_per_km: 0.6
  cn2: 1.0e-14
  pointing_sigma_urad: 2.0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Weather == nil || cfg.Weather.Inline == nil {
		t.Fatal("inline weather not parsed")
	}
	if cfg.Weather.Inline.AttenuationDBPerKm != 0.6 {
		t.Errorf("attenuation = %v", cfg.Weather.Inline.AttenuationDBPerKm)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"bad scenario name",
			"scenario:\n  name: scenario9_moon\n",
			"unknown scenario name",
		},
		{
			"non-positive rate",
			"scenario:\n  pulse_rate_hz: 0\n",
			"pulse_rate_hz",
		},
		{
			"negative duration",
			"scenario:\n  duration_s: -1\n",
			"duration_s",
		},
		{
			"bad format",
			"streaming:\n  format: hdf5\n",
			"unsupported format",
		},
		{
			"zero bin",
			"streaming:\n  bin_sec: 0\n",
			"bin_sec",
		},
		{
			"bad weather inline",
			"weather:\n  attenuation_db_per_km: 0.5\n  cn2: 0\n  pointing_sigma_urad: 1\n",
			"cn2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
