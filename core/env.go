// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
)

// Environment variables read by ConfigurationFromEnv.
const (
	EnvAppName        = "KORU_APP_NAME"
	EnvValidation     = "KORU_VALIDATION"
	EnvWidth          = "KORU_WIDTH"
	EnvHeight         = "KORU_HEIGHT"
	EnvFps            = "KORU_FPS"
	EnvFramesInFlight = "KORU_FRAMES_IN_FLIGHT"
	EnvLogLevel       = "KORU_LOG_LEVEL"
)

// LoadEnvFile loads variables from a dotenv file into the process
// environment. Variables already set are left untouched.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "godotenv.Load(%s)", path)
	}
	envy.Reload()
	return nil
}

// ConfigurationFromEnv overlays environment variables on top of base.
func ConfigurationFromEnv(base Configuration) (Configuration, error) {
	cfg := base
	cfg.Instance.AppName = envy.Get(EnvAppName, cfg.Instance.AppName)
	cfg.LogLevel = envy.Get(EnvLogLevel, cfg.LogLevel)

	validation, err := strconv.ParseBool(envy.Get(EnvValidation, strconv.FormatBool(cfg.Instance.Validation)))
	if err != nil {
		return base, errors.Wrapf(err, "%s", EnvValidation)
	}
	cfg.Instance.Validation = validation

	if cfg.Swapchain.Width, err = envUint32(EnvWidth, cfg.Swapchain.Width); err != nil {
		return base, err
	}
	if cfg.Swapchain.Height, err = envUint32(EnvHeight, cfg.Swapchain.Height); err != nil {
		return base, err
	}

	fps, err := strconv.Atoi(envy.Get(EnvFps, strconv.Itoa(cfg.Time.FramesPerSecond)))
	if err != nil || fps < 0 {
		return base, errors.Newf("%s: invalid frame rate %q", EnvFps, envy.Get(EnvFps, ""))
	}
	cfg.Time.FramesPerSecond = fps

	inFlight, err := strconv.ParseUint(envy.Get(EnvFramesInFlight, strconv.FormatUint(cfg.Reclaim.FramesInFlight, 10)), 10, 64)
	if err != nil {
		return base, errors.Wrapf(err, "%s", EnvFramesInFlight)
	}
	cfg.Reclaim.FramesInFlight = inFlight

	return cfg, nil
}

func envUint32(key string, fallback uint32) (uint32, error) {
	v, err := strconv.ParseUint(envy.Get(key, strconv.FormatUint(uint64(fallback), 10)), 10, 32)
	if err != nil {
		return fallback, errors.Wrapf(err, "%s", key)
	}
	return uint32(v), nil
}
