package config

import (
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, ".", cfg.ProjectRoot)
	require.Equal(t, 500, cfg.DebounceMillis)
	require.Equal(t, 200, cfg.RebuildThreshold)
	require.True(t, cfg.LSPEnabled)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("NAVISCOPE_DEBOUNCE_MS", "750")
	t.Setenv("NAVISCOPE_LOG_LEVEL", "debug")

	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, 750, cfg.DebounceMillis)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("NAVISCOPE_LOG_LEVEL", "debug")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log_level", "info", "")
	require.NoError(t, fs.Set("log_level", "error"))

	cfg, err := Load(fs)
	require.NoError(t, err)
	require.Equal(t, "error", cfg.LogLevel)
}

func TestLoadIgnoresMissingConfigFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = Load(nil)
	require.NoError(t, err)
}
