// Package config loads and validates YAML run configurations.
//
// The loader runs before the pipeline core: parameters reaching the
// orchestrator have already been validated here, and the core re-checks
// only its own preconditions.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a run.
type Config struct {
	// Scenario holds the core run parameters.
	Scenario ScenarioConfig `yaml:"scenario"`

	// Streaming configures the aggregation pipeline.
	Streaming StreamingConfig `yaml:"streaming"`

	// Devices parameterizes detectors and the BSM. The values are consumed
	// behind the generator boundary; the pipeline itself never reads them.
	Devices DevicesConfig `yaml:"devices"`

	// Weather optionally selects a free-space channel profile, either a
	// preset name or an inline definition.
	Weather *WeatherConfig `yaml:"weather,omitempty"`
}

// ScenarioConfig holds the core run parameters.
type ScenarioConfig struct {
	// Name selects the scenario implementation.
	Name string `yaml:"name"`

	// PulseRateHz is the source pulse repetition rate.
	PulseRateHz int `yaml:"pulse_rate_hz"`

	// DurationS is the total simulated horizon in seconds.
	DurationS float64 `yaml:"duration_s"`

	// OutputDir is where run artifacts are written.
	OutputDir string `yaml:"output_dir"`
}

// StreamingConfig configures the chunked aggregation pipeline.
type StreamingConfig struct {
	// BinSec is the aggregation bin width in seconds.
	BinSec float64 `yaml:"bin_sec"`

	// ChunkSec is the streaming chunk width in seconds.
	ChunkSec float64 `yaml:"chunk_sec"`

	// Format is the artifact format: parquet or csv.
	Format string `yaml:"format"`

	// Overwrite allows replacing existing artifacts.
	Overwrite bool `yaml:"overwrite"`

	// StrictSchema fails fast on schema mismatch during append instead of
	// null-filling.
	StrictSchema bool `yaml:"strict_schema"`
}

// DevicesConfig parameterizes detectors and the BSM.
type DevicesConfig struct {
	// DetectorEta is the detector quantum efficiency.
	DetectorEta float64 `yaml:"detector_eta"`

	// DetectorDarkPerGate is the dark count probability per gate.
	DetectorDarkPerGate float64 `yaml:"detector_dark_per_gate"`

	// DetectorDeadTimeNs is the detector dead time in nanoseconds.
	DetectorDeadTimeNs float64 `yaml:"detector_dead_time_ns"`

	// DetectorAfterpulse is the afterpulsing probability per detection.
	DetectorAfterpulse float64 `yaml:"detector_afterpulse"`

	// BSMVisibility is the interference visibility at the BSM.
	BSMVisibility float64 `yaml:"bsm_visibility"`

	// CoincidenceWindowPs is the coincidence window width in picoseconds.
	CoincidenceWindowPs int `yaml:"coincidence_window_ps"`
}

// WeatherConfig is either a preset name or an inline profile. In YAML it is
// written as a plain string ("clear", "fog") or as a mapping with the
// profile fields.
type WeatherConfig struct {
	// Preset is the profile name when the YAML value is a string.
	Preset string

	// Inline is the explicit profile when the YAML value is a mapping.
	Inline *WeatherProfile
}

// WeatherProfile is an inline free-space channel profile.
type WeatherProfile struct {
	// Name is an optional label for the profile.
	Name string `yaml:"name,omitempty"`

	// AttenuationDBPerKm is the atmospheric attenuation in dB/km.
	AttenuationDBPerKm float64 `yaml:"attenuation_db_per_km"`

	// CN2 is the turbulence structure parameter in m^-2/3.
	CN2 float64 `yaml:"cn2"`

	// PointingSigmaUrad is the pointing jitter (1-sigma) in microradians.
	PointingSigmaUrad float64 `yaml:"pointing_sigma_urad"`
}

// UnmarshalYAML accepts either a scalar preset name or an inline mapping.
func (w *WeatherConfig) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&w.Preset)
	case yaml.MappingNode:
		w.Inline = &WeatherProfile{}
		return value.Decode(w.Inline)
	default:
		return fmt.Errorf("weather must be a preset name or an inline profile")
	}
}

// MarshalYAML renders the config back in the form it was read.
func (w WeatherConfig) MarshalYAML() (any, error) {
	if w.Inline != nil {
		return w.Inline, nil
	}
	return w.Preset, nil
}

// ScenarioNames are the recognized scenario implementations.
var ScenarioNames = []string{
	"scenario1_equidistant",
	"scenario1_uneven",
	"scenario2_moving",
	"scenario3_city",
	"scenario4_uk_opt",
}

// DefaultConfig returns a configuration with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Scenario: ScenarioConfig{
			Name:        "scenario1_equidistant",
			PulseRateHz: 50_000_000,
			DurationS:   1.0,
			OutputDir:   "data/runs/latest",
		},
		Streaming: StreamingConfig{
			BinSec:   1e-3,
			ChunkSec: 0.1,
			Format:   "parquet",
		},
		Devices: DevicesConfig{
			DetectorEta:         0.8,
			DetectorDarkPerGate: 1e-6,
			DetectorDeadTimeNs:  60,
			DetectorAfterpulse:  0.02,
			BSMVisibility:       0.98,
			CoincidenceWindowPs: 500,
		},
	}
}

// Load reads, parses, and validates a configuration file. Fields absent
// from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
