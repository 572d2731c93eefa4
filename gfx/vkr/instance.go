// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"io"

	vk "github.com/goki/vulkan"
	"github.com/sirupsen/logrus"

	"github.com/devblok/koru/v2/core"
)

// ValidationLayer is enabled when InstanceConfig.Validation is set.
const ValidationLayer = "VK_LAYER_KHRONOS_validation"

// InstanceConfig describes the instance to create.
type InstanceConfig struct {
	AppName    string
	Extensions []string
	Layers     []string
	Validation bool

	// APIVersion defaults to Vulkan 1.3
	APIVersion uint32
}

// Instance owns the top level driver context and, once attached,
// the presentation surface.
type Instance struct {
	entry    Entry
	instance vk.Instance
	surface  vk.Surface

	extensions []string
	life       *core.Lifetime
	log        logrus.FieldLogger
}

// NewInstance creates a Vulkan instance
func NewInstance(entry Entry, cfg InstanceConfig, log logrus.FieldLogger) (*Instance, error) {
	log = componentLogger(log, "instance")

	layers := append([]string{}, cfg.Layers...)
	if cfg.Validation {
		layers = appendUnique(layers, ValidationLayer)
	}
	extensions := appendUnique(nil, cfg.Extensions...)

	apiVersion := cfg.APIVersion
	if apiVersion == 0 {
		apiVersion = vk.MakeVersion(1, 3, 0)
	}
	appName := cfg.AppName
	if appName == "" {
		appName = "koru"
	}

	info := vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         apiVersion,
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PApplicationName:   core.SafeString(appName),
			EngineVersion:      vk.MakeVersion(2, 0, 0),
			PEngineName:        core.SafeString("koru"),
		},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: core.SafeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     core.SafeStrings(layers),
	}

	instance, err := entry.CreateInstance(&info)
	if err != nil {
		return nil, core.Mark(err, core.ErrDeviceCreation, "create instance")
	}

	log.WithFields(logrus.Fields{
		"extensions": extensions,
		"layers":     layers,
	}).Debug("instance created")

	return &Instance{
		entry:      entry,
		instance:   instance,
		extensions: extensions,
		life:       core.NewLifetime("instance"),
		log:        log,
	}, nil
}

// Handle returns the driver handle.
func (i *Instance) Handle() vk.Instance {
	return i.instance
}

// Entry returns the driver entry points the instance was created with.
func (i *Instance) Entry() Entry {
	return i.entry
}

// Extensions returns the enabled instance extensions.
func (i *Instance) Extensions() []string {
	return i.extensions
}

// PhysicalDevices enumerates the devices visible to the instance.
func (i *Instance) PhysicalDevices() ([]vk.PhysicalDevice, error) {
	return i.entry.PhysicalDevices(i.instance)
}

// AttachSurface hands surface ownership to the instance. A previously
// attached surface is destroyed.
func (i *Instance) AttachSurface(surface vk.Surface) {
	if i.surface != vk.NullSurface {
		i.entry.DestroySurface(i.instance, i.surface)
	}
	i.surface = surface
}

// Surface returns the attached surface, or vk.NullSurface.
func (i *Instance) Surface() vk.Surface {
	return i.surface
}

// Lifetime is the root of the ownership tree.
func (i *Instance) Lifetime() *core.Lifetime {
	return i.life
}

// Destroy destroys the attached surface and the instance. It refuses
// while a device created from the instance is alive.
func (i *Instance) Destroy() error {
	if err := i.life.Release(); err != nil {
		return err
	}
	if i.surface != vk.NullSurface {
		i.entry.DestroySurface(i.instance, i.surface)
		i.surface = vk.NullSurface
	}
	i.entry.DestroyInstance(i.instance)
	i.log.Debug("instance destroyed")
	return nil
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, have := range list {
			if have == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}

// componentLogger derives a component scoped logger, discarding output
// when no logger was injected.
func componentLogger(log logrus.FieldLogger, component string) logrus.FieldLogger {
	if log == nil {
		discard := logrus.New()
		discard.Out = io.Discard
		return discard.WithField("component", component)
	}
	return log.WithField("component", component)
}
