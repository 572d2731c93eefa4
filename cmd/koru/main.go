// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/koru/v2/core"
	"github.com/devblok/koru/v2/engine"
	"github.com/devblok/koru/v2/gfx/vkr"
)

func init() {
	runtime.LockOSThread()
}

var envFile = flag.String("env", "", "load configuration from this .env file")

func main() {
	flag.Parse()

	log := logrus.New()
	cfg, err := loadConfiguration()
	if err != nil {
		log.WithError(err).Fatal("configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithError(err).Warn("unknown log level, keeping info")
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("koru exited")
	}
}

func loadConfiguration() (core.Configuration, error) {
	if *envFile != "" {
		if err := core.LoadEnvFile(*envFile); err != nil {
			return core.Configuration{}, err
		}
	}
	return core.ConfigurationFromEnv(core.DefaultConfiguration())
}

func run(cfg core.Configuration, log *logrus.Logger) (err error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return err
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return err
	}
	defer sdl.VulkanUnloadLibrary()

	win, err := newWindow(cfg.Instance.AppName, cfg.Swapchain.Width, cfg.Swapchain.Height)
	if err != nil {
		return err
	}
	defer win.Destroy()

	entry, err := vkr.NewEntry(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return err
	}

	driver, err := vkr.NewDriver(vkr.DriverConfig{
		Entry:    entry,
		Window:   win,
		Logger:   log,
		Instance: cfg.Instance,
		Reclaim:  cfg.Reclaim,
	})
	if err != nil {
		return err
	}
	defer func() {
		if derr := driver.Destroy(); derr != nil && err == nil {
			err = derr
		}
	}()

	eng := engine.New(driver, log)
	defer func() {
		if derr := eng.Destroy(); derr != nil && err == nil {
			err = derr
		}
	}()

	if _, err := eng.CreateSwapchain(driver.WindowSize()); err != nil {
		return err
	}
	return loop(cfg, driver, eng, log)
}

func loop(cfg core.Configuration, driver *vkr.Driver, eng *engine.Engine, log logrus.FieldLogger) error {
	clock := core.NewTime(cfg.Time)
	defer clock.Stop()

	for {
		select {
		case <-clock.EventTicker().C:
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch et := event.(type) {
				case *sdl.KeyboardEvent:
					if et.Keysym.Sym == sdl.K_ESCAPE {
						return nil
					}
				case *sdl.QuitEvent:
					return nil
				case *sdl.WindowEvent:
					if et.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
						if err := resize(driver, eng); err != nil {
							return err
						}
					}
				}
			}
		case <-clock.FpsTicker().C:
			frame := clock.Tick()
			if n, err := driver.Sweep(frame); err != nil {
				return err
			} else if n > 0 {
				log.WithField("released", n).Debug("retired resources reclaimed")
			}
		}
	}
}

func resize(driver *vkr.Driver, eng *engine.Engine) error {
	h := eng.Current()
	chain, err := eng.Swapchain(h)
	if err != nil {
		return err
	}
	chain.MarkOutOfDate()

	width, height := driver.WindowSize()
	if width == 0 || height == 0 {
		return nil
	}
	return eng.Recreate(h, width, height)
}
