// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command korucli prints a JSON report of the GPUs Vulkan can see.
package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/devblok/koru/v2/core"
	"github.com/devblok/koru/v2/device"
	"github.com/devblok/koru/v2/gfx/vkr"
)

var (
	envFile    = flag.String("env", "", "load configuration from this .env file")
	validation = flag.Bool("validation", false, "enable the validation layer")
)

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if err := run(log); err != nil {
		log.WithError(err).Fatal("report failed")
	}
}

func run(log *logrus.Logger) (err error) {
	if *envFile != "" {
		if err := core.LoadEnvFile(*envFile); err != nil {
			return err
		}
	}
	cfg, err := core.ConfigurationFromEnv(core.DefaultConfiguration())
	if err != nil {
		return err
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	entry, err := vkr.NewEntry(nil)
	if err != nil {
		return err
	}
	instance, err := vkr.NewInstance(entry, vkr.InstanceConfig{
		AppName:    cfg.Instance.AppName,
		Extensions: cfg.Instance.Extensions,
		Layers:     cfg.Instance.Layers,
		Validation: cfg.Instance.Validation || *validation,
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		if derr := instance.Destroy(); derr != nil && err == nil {
			err = derr
		}
	}()

	report, err := device.Enumerate(entry, instance.Handle(), nil)
	if err != nil {
		return err
	}
	return report.WriteJSON(os.Stdout)
}
