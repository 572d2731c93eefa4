// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gobuffalo/envy"
	"github.com/stretchr/testify/require"

	"github.com/devblok/koru/v2/core"
)

func TestConfigurationFromEnv(t *testing.T) {
	t.Setenv(core.EnvAppName, "sandbox")
	t.Setenv(core.EnvValidation, "true")
	t.Setenv(core.EnvWidth, "800")
	t.Setenv(core.EnvFramesInFlight, "3")
	envy.Reload()

	cfg, err := core.ConfigurationFromEnv(core.DefaultConfiguration())
	require.NoError(t, err)
	require.Equal(t, "sandbox", cfg.Instance.AppName)
	require.True(t, cfg.Instance.Validation)
	require.Equal(t, uint32(800), cfg.Swapchain.Width)
	require.Equal(t, uint32(720), cfg.Swapchain.Height)
	require.Equal(t, uint64(3), cfg.Reclaim.FramesInFlight)
	require.Equal(t, 60, cfg.Time.FramesPerSecond)
}

func TestConfigurationFromEnvInvalid(t *testing.T) {
	t.Setenv(core.EnvHeight, "tall")
	envy.Reload()

	base := core.DefaultConfiguration()
	cfg, err := core.ConfigurationFromEnv(base)
	require.Error(t, err)
	require.Equal(t, base, cfg)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "koru.env")
	require.NoError(t, os.WriteFile(path, []byte("KORU_FPS=144\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv(core.EnvFps) })

	require.NoError(t, core.LoadEnvFile(path))
	cfg, err := core.ConfigurationFromEnv(core.DefaultConfiguration())
	require.NoError(t, err)
	require.Equal(t, 144, cfg.Time.FramesPerSecond)
}
