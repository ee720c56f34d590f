package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigMatchesOriginalConstants(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 48000, cfg.SampleRate)
	require.Equal(t, 0.5e-6, cfg.RateControlKp)
	require.Equal(t, 1.0e-16, cfg.RateControlKi)
	require.Equal(t, 200*time.Millisecond, cfg.ClockSlewThreshold)
	require.Equal(t, 13*time.Millisecond, cfg.NetworkJitterMargin)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
audio:
  sample_rate: 16000
  channels: 2
rate_control:
  kp: 0.000001
startup:
  prefill_periods: 4
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 16000, cfg.SampleRate)
	require.Equal(t, 2, cfg.Channels)
	require.Equal(t, 0.000001, cfg.RateControlKp)
	require.Equal(t, 4, cfg.StartupPrefillPeriods)
	// Untouched fields keep their defaults.
	require.Equal(t, 1.0e-16, cfg.RateControlKi)
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clock:\n  slew_threshold: \"not-a-duration\"\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}
