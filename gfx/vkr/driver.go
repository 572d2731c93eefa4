// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/sirupsen/logrus"

	"github.com/devblok/koru/v2/core"
)

// SurfaceSource is the window the driver presents to.
type SurfaceSource interface {
	// RequiredExtensions lists the instance extensions the window
	// system needs for presentation.
	RequiredExtensions() []string

	// CreateSurface creates a presentation surface for instance.
	CreateSurface(instance vk.Instance) (vk.Surface, error)

	// Size returns the drawable size in pixels.
	Size() (width, height uint32)
}

// DriverConfig gathers everything NewDriver needs.
type DriverConfig struct {
	Entry  Entry
	Window SurfaceSource
	Logger logrus.FieldLogger

	Instance core.InstanceConfiguration
	Reclaim  core.ReclaimConfiguration
	Device   DeviceOptions
}

// Driver is the composition root owning the whole device context.
type Driver struct {
	instance  *Instance
	device    *LogicalDevice
	allocator *Allocator

	imageReady *semaphore

	samplers *SamplerCache
	graphics *CommandPool
	compute  *CommandPool
	staging  *StagingPool
	reclaim  *ReclaimQueue

	window SurfaceSource
	log    logrus.FieldLogger

	// torn counts the teardown steps already completed
	torn int
}

// NewDriver builds instance, surface, device, allocator, semaphore,
// sampler cache, command pools and staging pool in that order. If any
// step fails the steps before it are torn down again.
func NewDriver(cfg DriverConfig) (_ *Driver, err error) {
	d := &Driver{
		window: cfg.Window,
		log:    componentLogger(cfg.Logger, "driver"),
	}
	var teardown []func() error
	defer func() {
		if err == nil {
			return
		}
		for i := len(teardown) - 1; i >= 0; i-- {
			if terr := teardown[i](); terr != nil {
				err = errors.CombineErrors(err, terr)
			}
		}
	}()

	d.instance, err = NewInstance(cfg.Entry, InstanceConfig{
		AppName:    cfg.Instance.AppName,
		Extensions: appendUnique(append([]string{}, cfg.Window.RequiredExtensions()...), cfg.Instance.Extensions...),
		Layers:     cfg.Instance.Layers,
		Validation: cfg.Instance.Validation,
	}, cfg.Logger)
	if err != nil {
		return nil, err
	}
	teardown = append(teardown, d.instance.Destroy)

	surface, err := cfg.Window.CreateSurface(d.instance.Handle())
	if err != nil {
		return nil, core.Mark(err, core.ErrSurface, "create surface")
	}
	d.instance.AttachSurface(surface)

	choice, err := SelectPhysicalDevice(cfg.Entry, d.instance.Handle(), surface)
	if err != nil {
		return nil, err
	}
	props := cfg.Entry.PhysicalDeviceProperties(choice.Device)
	d.log.WithField("device", core.TrimNull(props.DeviceName[:])).Info("physical device selected")

	d.device, err = NewLogicalDevice(d.instance, choice, cfg.Device, cfg.Logger)
	if err != nil {
		return nil, err
	}
	teardown = append(teardown, d.device.Destroy)

	d.allocator, err = NewAllocator(d.instance, d.device, cfg.Logger)
	if err != nil {
		return nil, err
	}
	teardown = append(teardown, d.allocator.Destroy)

	if d.imageReady, err = newSemaphore(d.device, "image ready"); err != nil {
		return nil, err
	}
	teardown = append(teardown, d.imageReady.Destroy)

	if d.samplers, err = NewSamplerCache(d.device, cfg.Logger); err != nil {
		return nil, err
	}
	teardown = append(teardown, d.samplers.Destroy)

	if d.graphics, err = NewCommandPool(d.device, choice.GraphicsIndex, d.device.GraphicsQueue(), cfg.Logger); err != nil {
		return nil, err
	}
	teardown = append(teardown, d.graphics.Destroy)

	if d.compute, err = NewCommandPool(d.device, choice.ComputeIndex, d.device.ComputeQueue(), cfg.Logger); err != nil {
		return nil, err
	}
	teardown = append(teardown, d.compute.Destroy)

	d.staging = NewStagingPool(d.allocator, cfg.Logger)
	d.reclaim = NewReclaimQueue(FramesInFlightPolicy{FramesInFlight: cfg.Reclaim.FramesInFlight})

	d.log.Info("driver ready")
	return d, nil
}

type semaphore struct {
	entry  DeviceEntry
	device vk.Device
	handle vk.Semaphore
	life   *core.Lifetime
}

func newSemaphore(device *LogicalDevice, name string) (*semaphore, error) {
	life, err := device.Lifetime().Acquire(name + " semaphore")
	if err != nil {
		return nil, err
	}
	handle, err := device.Entry().CreateSemaphore(device.Handle())
	if err != nil {
		_ = life.Release()
		return nil, core.Mark(err, core.ErrResourceCreation, "create %s semaphore", name)
	}
	return &semaphore{entry: device.Entry(), device: device.Handle(), handle: handle, life: life}, nil
}

func (s *semaphore) Destroy() error {
	if err := s.life.Release(); err != nil {
		return err
	}
	s.entry.DestroySemaphore(s.device, s.handle)
	return nil
}

// Instance returns the instance.
func (d *Driver) Instance() *Instance {
	return d.instance
}

// Device returns the logical device.
func (d *Driver) Device() *LogicalDevice {
	return d.device
}

// Allocator returns the allocator. It is lent, never handed over.
func (d *Driver) Allocator() *Allocator {
	return d.allocator
}

// Samplers returns the shared sampler cache.
func (d *Driver) Samplers() *SamplerCache {
	return d.samplers
}

// GraphicsCommands returns the graphics command pool.
func (d *Driver) GraphicsCommands() *CommandPool {
	return d.graphics
}

// ComputeCommands returns the compute command pool.
func (d *Driver) ComputeCommands() *CommandPool {
	return d.compute
}

// Staging returns the staging pool.
func (d *Driver) Staging() *StagingPool {
	return d.staging
}

// ImageReady returns the semaphore signalled when a swapchain image
// is ready to render to.
func (d *Driver) ImageReady() vk.Semaphore {
	return d.imageReady.handle
}

// Surface returns the presentation surface.
func (d *Driver) Surface() vk.Surface {
	return d.instance.Surface()
}

// WaitIdle blocks until the device is idle.
func (d *Driver) WaitIdle() error {
	return d.device.WaitIdle()
}

// NewSwapchain builds a swapchain for the driver surface. old may be nil.
func (d *Driver) NewSwapchain(width, height uint32, old *Swapchain) (*Swapchain, error) {
	return NewSwapchain(d.instance, d.device, d.instance.Surface(), width, height, old, d.log)
}

// RecreateSurface replaces a lost surface with a fresh one from the
// window. Every swapchain built on the old surface must be gone.
func (d *Driver) RecreateSurface() error {
	surface, err := d.window.CreateSurface(d.instance.Handle())
	if err != nil {
		return core.Mark(err, core.ErrSurface, "recreate surface")
	}
	d.instance.AttachSurface(surface)
	d.log.Info("surface recreated")
	return nil
}

// WindowSize returns the current drawable size.
func (d *Driver) WindowSize() (uint32, uint32) {
	return d.window.Size()
}

// NewTexture creates a texture from the driver allocator and samplers.
func (d *Driver) NewTexture(info TextureInfo, usage vk.ImageUsageFlags, samplerInfo SamplerInfo) (*Texture, error) {
	return NewTexture(info, usage, d.allocator, d.device, d.samplers, samplerInfo, d.log)
}

// RetireTexture schedules t for release once frame is no longer in flight.
func (d *Driver) RetireTexture(t *Texture, frame uint64) {
	d.reclaim.Retire(t, frame)
}

// Sweep releases retired resources the GPU is done with.
func (d *Driver) Sweep(frame uint64) (int, error) {
	return d.reclaim.Sweep(frame)
}

// Destroy waits for the device and tears everything down in reverse
// creation order. It stops at the first broken lifetime contract,
// leaving the remaining objects alive rather than destroying a parent
// under a live child. Calling it again resumes where it stopped, and
// does nothing once teardown completed.
func (d *Driver) Destroy() error {
	steps := []struct {
		name string
		obj  core.Destroyable
	}{
		{"semaphore", d.imageReady},
		{"sampler cache", d.samplers},
		{"staging pool", d.staging},
		{"compute commands", d.compute},
		{"graphics commands", d.graphics},
		{"allocator", d.allocator},
		{"device", d.device},
		{"instance", d.instance},
	}
	if d.torn == len(steps) {
		return nil
	}

	if !d.device.Lifetime().Released() {
		if err := d.device.WaitIdle(); err != nil {
			d.log.WithError(err).Warn("wait idle before teardown failed")
		}
		if err := d.reclaim.Drain(); err != nil {
			return errors.Wrap(err, "drain retired resources")
		}
	}

	for ; d.torn < len(steps); d.torn++ {
		step := steps[d.torn]
		if err := step.obj.Destroy(); err != nil {
			return errors.Wrapf(err, "destroy %s", step.name)
		}
		d.log.WithField("step", step.name).Debug("destroyed")
	}
	d.log.Info("driver destroyed")
	return nil
}
