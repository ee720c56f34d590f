package engine

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultSampleRate            = 48000
	defaultChannels              = 1
	defaultPLLBandwidthHz        = 0.05
	defaultClockSlewThreshold    = 200 * time.Millisecond
	defaultRateControlKp         = 0.5e-6
	defaultRateControlKi         = 1.0e-16
	defaultNetworkJitterMarginMs = 13
	defaultDeviceJitterFactor    = 1.1
	defaultStartupPrefillPeriods = 2
	defaultResamplerQuality      = "sinc_best"
)

// Config holds every tunable knob of the playback clock-recovery engine
// (spec.md §14 Tuning Parameters). Defaults match the original's hardcoded
// constants; YAML overrides follow the teacher's default-then-override
// load pattern (bridge/config.go).
type Config struct {
	SampleRate int
	Channels   int

	PLLBandwidthHz      float64
	ClockSlewThreshold  time.Duration
	RateControlKp       float64
	RateControlKi       float64
	NetworkJitterMargin time.Duration
	DeviceJitterFactor  float64

	StartupPrefillPeriods int
	ResamplerQuality      string
}

type yamlConfig struct {
	Audio struct {
		SampleRate int `yaml:"sample_rate"`
		Channels   int `yaml:"channels"`
	} `yaml:"audio"`
	Clock struct {
		BandwidthHz   float64 `yaml:"bandwidth_hz"`
		SlewThreshold string  `yaml:"slew_threshold"`
	} `yaml:"clock"`
	RateControl struct {
		Kp float64 `yaml:"kp"`
		Ki float64 `yaml:"ki"`
	} `yaml:"rate_control"`
	Jitter struct {
		NetworkMargin      string  `yaml:"network_margin"`
		DeviceJitterFactor float64 `yaml:"device_jitter_factor"`
	} `yaml:"jitter"`
	Startup struct {
		PrefillPeriods int `yaml:"prefill_periods"`
	} `yaml:"startup"`
	Resampler struct {
		Quality string `yaml:"quality"`
	} `yaml:"resampler"`
}

// DefaultConfig returns the engine's built-in defaults, equal to the
// original's hardcoded tuning constants.
func DefaultConfig() Config {
	return Config{
		SampleRate:            defaultSampleRate,
		Channels:              defaultChannels,
		PLLBandwidthHz:        defaultPLLBandwidthHz,
		ClockSlewThreshold:    defaultClockSlewThreshold,
		RateControlKp:         defaultRateControlKp,
		RateControlKi:         defaultRateControlKi,
		NetworkJitterMargin:   defaultNetworkJitterMarginMs * time.Millisecond,
		DeviceJitterFactor:    defaultDeviceJitterFactor,
		StartupPrefillPeriods: defaultStartupPrefillPeriods,
		ResamplerQuality:      defaultResamplerQuality,
	}
}

// LoadConfig reads a YAML file and overlays it on DefaultConfig, validating
// as it goes, matching the teacher's LoadConfig shape (bridge/config.go).
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yc.Audio.SampleRate > 0 {
		cfg.SampleRate = yc.Audio.SampleRate
	}
	if yc.Audio.Channels > 0 {
		cfg.Channels = yc.Audio.Channels
	}
	if cfg.Channels < 1 {
		return Config{}, fmt.Errorf("audio.channels must be >= 1, got %d", cfg.Channels)
	}

	if yc.Clock.BandwidthHz > 0 {
		cfg.PLLBandwidthHz = yc.Clock.BandwidthHz
	}
	if yc.Clock.SlewThreshold != "" {
		d, err := time.ParseDuration(yc.Clock.SlewThreshold)
		if err != nil {
			return Config{}, fmt.Errorf("invalid clock.slew_threshold: %w", err)
		}
		cfg.ClockSlewThreshold = d
	}

	if yc.RateControl.Kp != 0 {
		cfg.RateControlKp = yc.RateControl.Kp
	}
	if yc.RateControl.Ki != 0 {
		cfg.RateControlKi = yc.RateControl.Ki
	}

	if yc.Jitter.NetworkMargin != "" {
		d, err := time.ParseDuration(yc.Jitter.NetworkMargin)
		if err != nil {
			return Config{}, fmt.Errorf("invalid jitter.network_margin: %w", err)
		}
		cfg.NetworkJitterMargin = d
	}
	if yc.Jitter.DeviceJitterFactor > 0 {
		cfg.DeviceJitterFactor = yc.Jitter.DeviceJitterFactor
	}

	if yc.Startup.PrefillPeriods > 0 {
		cfg.StartupPrefillPeriods = yc.Startup.PrefillPeriods
	}
	if cfg.StartupPrefillPeriods < 1 {
		return Config{}, errors.New("startup.prefill_periods must be >= 1")
	}

	if yc.Resampler.Quality != "" {
		cfg.ResamplerQuality = yc.Resampler.Quality
	}

	return cfg, nil
}
