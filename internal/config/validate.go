package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/quasar-qkd/quasar/internal/artifact"
)

// Validate checks the configuration for errors, collecting every violation.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Scenario.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scenario: %w", err))
	}
	if err := c.Streaming.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("streaming: %w", err))
	}
	if err := c.Devices.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("devices: %w", err))
	}
	if c.Weather != nil {
		if err := c.Weather.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("weather: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Validate checks the scenario section.
func (c *ScenarioConfig) Validate() error {
	var errs []error

	if !slices.Contains(ScenarioNames, c.Name) {
		errs = append(errs, fmt.Errorf("unknown scenario name %q", c.Name))
	}
	if c.PulseRateHz <= 0 {
		errs = append(errs, errors.New("pulse_rate_hz must be a positive integer"))
	}
	if c.DurationS <= 0 {
		errs = append(errs, errors.New("duration_s must be positive"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}

	return errors.Join(errs...)
}

// Validate checks the streaming section.
func (c *StreamingConfig) Validate() error {
	var errs []error

	if c.BinSec <= 0 {
		errs = append(errs, errors.New("bin_sec must be positive"))
	}
	if c.ChunkSec <= 0 {
		errs = append(errs, errors.New("chunk_sec must be positive"))
	}
	if _, err := artifact.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Validate checks the devices section.
func (c *DevicesConfig) Validate() error {
	var errs []error

	if c.DetectorEta < 0 || c.DetectorEta > 1 {
		errs = append(errs, errors.New("detector_eta must be in [0, 1]"))
	}
	if c.DetectorDarkPerGate < 0 {
		errs = append(errs, errors.New("detector_dark_per_gate must be non-negative"))
	}
	if c.DetectorDeadTimeNs < 0 {
		errs = append(errs, errors.New("detector_dead_time_ns must be non-negative"))
	}
	if c.DetectorAfterpulse < 0 || c.DetectorAfterpulse > 1 {
		errs = append(errs, errors.New("detector_afterpulse must be in [0, 1]"))
	}
	if c.BSMVisibility < 0 || c.BSMVisibility > 1 {
		errs = append(errs, errors.New("bsm_visibility must be in [0, 1]"))
	}
	if c.CoincidenceWindowPs < 50 || c.CoincidenceWindowPs > 5000 {
		errs = append(errs, errors.New("coincidence_window_ps must be in [50, 5000]"))
	}

	return errors.Join(errs...)
}

// Validate checks a weather preset or inline profile.
func (c *WeatherConfig) Validate() error {
	if c.Inline != nil {
		var errs []error
		if c.Inline.AttenuationDBPerKm < 0 {
			errs = append(errs, errors.New("attenuation_db_per_km must be non-negative"))
		}
		if c.Inline.CN2 <= 0 {
			errs = append(errs, errors.New("cn2 must be positive"))
		}
		if c.Inline.PointingSigmaUrad <= 0 {
			errs = append(errs, errors.New("pointing_sigma_urad must be positive"))
		}
		return errors.Join(errs...)
	}
	if c.Preset == "" {
		return errors.New("preset name or inline profile required")
	}
	return nil
}
