// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	vk "github.com/goki/vulkan"
	"github.com/sirupsen/logrus"

	"github.com/devblok/koru/v2/core"
)

// RequiredDeviceExtensions are enabled on every logical device.
var RequiredDeviceExtensions = []string{
	"VK_KHR_swapchain",
	"VK_EXT_descriptor_indexing",
}

// DeviceFeatures is the negotiated feature set enabled on the device.
type DeviceFeatures struct {
	// Base holds the baseline features, enabled only where reported.
	Base vk.PhysicalDeviceFeatures

	RobustImageAccess bool
	DrawIndirectCount bool

	DescriptorIndexing                           bool
	ShaderSampledImageArrayNonUniformIndexing    bool
	RuntimeDescriptorArray                       bool
	DescriptorBindingPartiallyBound              bool
	DescriptorBindingVariableDescriptorCount     bool
	DescriptorBindingSampledImageUpdateAfterBind bool

	Multiview                   bool
	MultiviewGeometryShader     bool
	MultiviewTessellationShader bool
}

// DeviceRequest is everything needed to create a logical device.
type DeviceRequest struct {
	Queues     []vk.DeviceQueueCreateInfo
	Extensions []string
	Layers     []string
	Features   DeviceFeatures
}

// NegotiateFeatures enables the extended feature set and whichever
// baseline features the hardware reports.
func NegotiateFeatures(reported vk.PhysicalDeviceFeatures) DeviceFeatures {
	var base vk.PhysicalDeviceFeatures
	base.TextureCompressionETC2 = reported.TextureCompressionETC2
	base.TextureCompressionBC = reported.TextureCompressionBC
	base.SamplerAnisotropy = reported.SamplerAnisotropy
	base.TessellationShader = reported.TessellationShader
	base.ShaderStorageImageExtendedFormats = reported.ShaderStorageImageExtendedFormats
	base.MultiDrawIndirect = reported.MultiDrawIndirect
	base.MultiViewport = reported.MultiViewport
	base.DepthClamp = reported.DepthClamp

	return DeviceFeatures{
		Base:                                         base,
		RobustImageAccess:                            true,
		DrawIndirectCount:                            true,
		DescriptorIndexing:                           true,
		ShaderSampledImageArrayNonUniformIndexing:    true,
		RuntimeDescriptorArray:                       true,
		DescriptorBindingPartiallyBound:              true,
		DescriptorBindingVariableDescriptorCount:     true,
		DescriptorBindingSampledImageUpdateAfterBind: true,
		Multiview:                                    true,
		MultiviewGeometryShader:                      true,
		MultiviewTessellationShader:                  true,
	}
}

// DeviceOptions adjusts logical device creation.
type DeviceOptions struct {
	// Extensions are enabled on top of RequiredDeviceExtensions
	Extensions []string
	Layers     []string
}

// LogicalDevice owns the device handle and its queues.
type LogicalDevice struct {
	entry  Entry
	device vk.Device
	choice PhysicalDeviceChoice

	features DeviceFeatures

	graphicsQueue vk.Queue
	computeQueue  vk.Queue
	presentQueue  vk.Queue

	life *core.Lifetime
	log  logrus.FieldLogger
}

// NewLogicalDevice creates the device for choice and fetches its queues.
func NewLogicalDevice(instance *Instance, choice PhysicalDeviceChoice, opts DeviceOptions, log logrus.FieldLogger) (*LogicalDevice, error) {
	log = componentLogger(log, "device")
	entry := instance.Entry()

	req := DeviceRequest{
		Queues:     QueueCreateInfos(choice),
		Extensions: appendUnique(append([]string{}, RequiredDeviceExtensions...), opts.Extensions...),
		Layers:     opts.Layers,
		Features:   NegotiateFeatures(entry.PhysicalDeviceFeatures(choice.Device)),
	}

	life, err := instance.Lifetime().Acquire("device")
	if err != nil {
		return nil, err
	}

	device, err := entry.CreateDevice(choice.Device, req)
	if err != nil {
		_ = life.Release()
		return nil, core.Mark(err, core.ErrDeviceCreation, "create logical device")
	}

	d := &LogicalDevice{
		entry:         entry,
		device:        device,
		choice:        choice,
		features:      req.Features,
		graphicsQueue: entry.DeviceQueue(device, choice.GraphicsIndex, 0),
		computeQueue:  entry.DeviceQueue(device, choice.ComputeIndex, 0),
		presentQueue:  entry.DeviceQueue(device, choice.PresentIndex, 0),
		life:          life,
		log:           log,
	}

	log.WithFields(logrus.Fields{
		"graphics": choice.GraphicsIndex,
		"compute":  choice.ComputeIndex,
		"present":  choice.PresentIndex,
		"queues":   len(req.Queues),
	}).Info("logical device created")
	return d, nil
}

// Handle returns the driver handle.
func (d *LogicalDevice) Handle() vk.Device {
	return d.device
}

// Entry returns the driver entry points.
func (d *LogicalDevice) Entry() Entry {
	return d.entry
}

// Choice returns the selection the device was built from.
func (d *LogicalDevice) Choice() PhysicalDeviceChoice {
	return d.choice
}

// Features returns the enabled feature set.
func (d *LogicalDevice) Features() DeviceFeatures {
	return d.features
}

// GraphicsQueue returns the graphics queue.
func (d *LogicalDevice) GraphicsQueue() vk.Queue {
	return d.graphicsQueue
}

// ComputeQueue returns the compute queue. It is the graphics queue
// when no separate compute family exists.
func (d *LogicalDevice) ComputeQueue() vk.Queue {
	return d.computeQueue
}

// PresentQueue returns the present queue.
func (d *LogicalDevice) PresentQueue() vk.Queue {
	return d.presentQueue
}

// Lifetime is the node every device child acquires from.
func (d *LogicalDevice) Lifetime() *core.Lifetime {
	return d.life
}

// WaitIdle blocks until the device finished all submitted work.
func (d *LogicalDevice) WaitIdle() error {
	return d.entry.DeviceWaitIdle(d.device)
}

// Destroy destroys the device. Every child must be gone by now.
func (d *LogicalDevice) Destroy() error {
	if err := d.life.Release(); err != nil {
		return err
	}
	d.entry.DestroyDevice(d.device)
	d.log.Debug("logical device destroyed")
	return nil
}
