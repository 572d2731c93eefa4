// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkr implements the vulkan renderer core: device negotiation,
// presentation, memory, samplers, textures and their teardown order.
package vkr

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/devblok/koru/v2/core"
)

// InstanceEntry is the set of instance level driver calls the core uses.
// Enumerations are returned whole and already dereferenced.
type InstanceEntry interface {
	InstanceExtensions() ([]string, error)
	InstanceLayers() ([]string, error)
	CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, error)
	DestroyInstance(instance vk.Instance)
	DestroySurface(instance vk.Instance, surface vk.Surface)

	PhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, error)
	PhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties
	PhysicalDeviceFeatures(pd vk.PhysicalDevice) vk.PhysicalDeviceFeatures
	MemoryProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties
	QueueFamilies(pd vk.PhysicalDevice) []vk.QueueFamilyProperties
	DeviceExtensions(pd vk.PhysicalDevice) ([]string, error)

	SurfaceSupport(pd vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, error)
	SurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, error)
	SurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, error)
	PresentModes(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, error)

	CreateDevice(pd vk.PhysicalDevice, req DeviceRequest) (vk.Device, error)
}

// DeviceEntry is the set of device level driver calls the core uses.
type DeviceEntry interface {
	DestroyDevice(device vk.Device)
	DeviceQueue(device vk.Device, family, index uint32) vk.Queue
	DeviceWaitIdle(device vk.Device) error

	CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, error)
	SwapchainImages(device vk.Device, swapchain vk.Swapchain) ([]vk.Image, error)
	DestroySwapchain(device vk.Device, swapchain vk.Swapchain)

	CreateSampler(device vk.Device, info *vk.SamplerCreateInfo) (vk.Sampler, error)
	DestroySampler(device vk.Device, sampler vk.Sampler)

	CreateImage(device vk.Device, info *vk.ImageCreateInfo) (vk.Image, error)
	DestroyImage(device vk.Device, image vk.Image)
	ImageMemoryRequirements(device vk.Device, image vk.Image) vk.MemoryRequirements
	BindImageMemory(device vk.Device, image vk.Image, memory vk.DeviceMemory, offset vk.DeviceSize) error
	CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, error)
	DestroyImageView(device vk.Device, view vk.ImageView)

	CreateBuffer(device vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, error)
	DestroyBuffer(device vk.Device, buffer vk.Buffer)
	BufferMemoryRequirements(device vk.Device, buffer vk.Buffer) vk.MemoryRequirements
	BindBufferMemory(device vk.Device, buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) error

	AllocateMemory(device vk.Device, info *vk.MemoryAllocateInfo) (vk.DeviceMemory, error)
	FreeMemory(device vk.Device, memory vk.DeviceMemory)
	MapMemory(device vk.Device, memory vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, error)
	UnmapMemory(device vk.Device, memory vk.DeviceMemory)

	CreateSemaphore(device vk.Device) (vk.Semaphore, error)
	DestroySemaphore(device vk.Device, semaphore vk.Semaphore)

	CreateCommandPool(device vk.Device, family uint32) (vk.CommandPool, error)
	DestroyCommandPool(device vk.Device, pool vk.CommandPool)
	AllocateCommandBuffers(device vk.Device, pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error)
	FreeCommandBuffers(device vk.Device, pool vk.CommandPool, buffers []vk.CommandBuffer)
}

// Entry is the full driver surface.
type Entry interface {
	InstanceEntry
	DeviceEntry
}

// NewEntry loads the Vulkan loader. With a nil procAddr the default
// system loader is used, otherwise procAddr must point at
// vkGetInstanceProcAddr (as handed out by the window system).
func NewEntry(procAddr unsafe.Pointer) (Entry, error) {
	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.Wrap(err, "vk.SetDefaultGetInstanceProcAddr()")
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "vk.Init()")
	}
	return vkEntry{}, nil
}

// vkResult converts a driver result into an error naming the call.
func vkResult(ret vk.Result, call string) error {
	if err := vk.Error(ret); err != nil {
		return errors.Wrapf(err, "%s", call)
	}
	return nil
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

// vkEntry forwards to the loaded driver.
type vkEntry struct{}

func (vkEntry) InstanceExtensions() ([]string, error) {
	var count uint32
	if err := vkResult(vk.EnumerateInstanceExtensionProperties("", &count, nil), "vk.EnumerateInstanceExtensionProperties()"); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := vkResult(vk.EnumerateInstanceExtensionProperties("", &count, props), "vk.EnumerateInstanceExtensionProperties()"); err != nil {
		return nil, err
	}

	names := make([]string, 0, count)
	for _, ext := range props[:count] {
		ext.Deref()
		names = append(names, core.TrimNull(ext.ExtensionName[:]))
	}
	return names, nil
}

func (vkEntry) InstanceLayers() ([]string, error) {
	var count uint32
	if err := vkResult(vk.EnumerateInstanceLayerProperties(&count, nil), "vk.EnumerateInstanceLayerProperties()"); err != nil {
		return nil, err
	}
	props := make([]vk.LayerProperties, count)
	if err := vkResult(vk.EnumerateInstanceLayerProperties(&count, props), "vk.EnumerateInstanceLayerProperties()"); err != nil {
		return nil, err
	}

	names := make([]string, 0, count)
	for _, layer := range props[:count] {
		layer.Deref()
		names = append(names, core.TrimNull(layer.LayerName[:]))
	}
	return names, nil
}

func (vkEntry) CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, error) {
	var instance vk.Instance
	if err := vkResult(vk.CreateInstance(info, nil, &instance), "vk.CreateInstance()"); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, errors.Wrap(err, "vk.InitInstance()")
	}
	return instance, nil
}

func (vkEntry) DestroyInstance(instance vk.Instance) {
	vk.DestroyInstance(instance, nil)
}

func (vkEntry) DestroySurface(instance vk.Instance, surface vk.Surface) {
	vk.DestroySurface(instance, surface, nil)
}

func (vkEntry) PhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var count uint32
	if err := vkResult(vk.EnumeratePhysicalDevices(instance, &count, nil), "vk.EnumeratePhysicalDevices()"); err != nil {
		return nil, err
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := vkResult(vk.EnumeratePhysicalDevices(instance, &count, devices), "vk.EnumeratePhysicalDevices()"); err != nil {
		return nil, err
	}
	return devices[:count], nil
}

func (vkEntry) PhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &props)
	props.Deref()
	props.Limits.Deref()
	return props
}

func (vkEntry) PhysicalDeviceFeatures(pd vk.PhysicalDevice) vk.PhysicalDeviceFeatures {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(pd, &features)
	features.Deref()
	return features
}

func (vkEntry) MemoryProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &props)
	props.Deref()
	for idx := uint32(0); idx < props.MemoryTypeCount; idx++ {
		props.MemoryTypes[idx].Deref()
	}
	for idx := uint32(0); idx < props.MemoryHeapCount; idx++ {
		props.MemoryHeaps[idx].Deref()
	}
	return props
}

func (vkEntry) QueueFamilies(pd vk.PhysicalDevice) []vk.QueueFamilyProperties {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, families)
	for idx := range families {
		families[idx].Deref()
	}
	return families[:count]
}

func (vkEntry) DeviceExtensions(pd vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if err := vkResult(vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil), "vk.EnumerateDeviceExtensionProperties()"); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := vkResult(vk.EnumerateDeviceExtensionProperties(pd, "", &count, props), "vk.EnumerateDeviceExtensionProperties()"); err != nil {
		return nil, err
	}

	names := make([]string, 0, count)
	for _, ext := range props[:count] {
		ext.Deref()
		names = append(names, core.TrimNull(ext.ExtensionName[:]))
	}
	return names, nil
}

func (vkEntry) SurfaceSupport(pd vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, error) {
	var supported vk.Bool32
	if err := vkResult(vk.GetPhysicalDeviceSurfaceSupport(pd, family, surface, &supported), "vk.GetPhysicalDeviceSurfaceSupport()"); err != nil {
		return false, err
	}
	return supported == vk.True, nil
}

func (vkEntry) SurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := vkResult(vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &caps), "vk.GetPhysicalDeviceSurfaceCapabilities()"); err != nil {
		return caps, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

func (vkEntry) SurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, error) {
	var count uint32
	if err := vkResult(vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &count, nil), "vk.GetPhysicalDeviceSurfaceFormats()"); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := vkResult(vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &count, formats), "vk.GetPhysicalDeviceSurfaceFormats()"); err != nil {
		return nil, err
	}
	for idx := range formats {
		formats[idx].Deref()
	}
	return formats[:count], nil
}

func (vkEntry) PresentModes(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, error) {
	var count uint32
	if err := vkResult(vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &count, nil), "vk.GetPhysicalDeviceSurfacePresentModes()"); err != nil {
		return nil, err
	}
	modes := make([]vk.PresentMode, count)
	if err := vkResult(vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &count, modes), "vk.GetPhysicalDeviceSurfacePresentModes()"); err != nil {
		return nil, err
	}
	return modes[:count], nil
}

// CreateDevice chains the extended feature structs behind
// PhysicalDeviceFeatures2 and creates the logical device.
func (vkEntry) CreateDevice(pd vk.PhysicalDevice, req DeviceRequest) (vk.Device, error) {
	f := req.Features

	robustness := vk.PhysicalDeviceImageRobustnessFeatures{
		SType:             vk.StructureTypePhysicalDeviceImageRobustnessFeatures,
		RobustImageAccess: vkBool(f.RobustImageAccess),
	}
	robustnessRef, _ := robustness.PassRef()
	defer robustness.Free()

	multiview := vk.PhysicalDeviceMultiviewFeatures{
		SType:                       vk.StructureTypePhysicalDeviceMultiviewFeatures,
		PNext:                       unsafe.Pointer(robustnessRef),
		Multiview:                   vkBool(f.Multiview),
		MultiviewGeometryShader:     vkBool(f.MultiviewGeometryShader),
		MultiviewTessellationShader: vkBool(f.MultiviewTessellationShader),
	}
	multiviewRef, _ := multiview.PassRef()
	defer multiview.Free()

	vulkan12 := vk.PhysicalDeviceVulkan12Features{
		SType:                                        vk.StructureTypePhysicalDeviceVulkan12Features,
		PNext:                                        unsafe.Pointer(multiviewRef),
		DrawIndirectCount:                            vkBool(f.DrawIndirectCount),
		DescriptorIndexing:                           vkBool(f.DescriptorIndexing),
		ShaderSampledImageArrayNonUniformIndexing:    vkBool(f.ShaderSampledImageArrayNonUniformIndexing),
		RuntimeDescriptorArray:                       vkBool(f.RuntimeDescriptorArray),
		DescriptorBindingPartiallyBound:              vkBool(f.DescriptorBindingPartiallyBound),
		DescriptorBindingVariableDescriptorCount:     vkBool(f.DescriptorBindingVariableDescriptorCount),
		DescriptorBindingSampledImageUpdateAfterBind: vkBool(f.DescriptorBindingSampledImageUpdateAfterBind),
	}
	vulkan12Ref, _ := vulkan12.PassRef()
	defer vulkan12.Free()

	features2 := vk.PhysicalDeviceFeatures2{
		SType:    vk.StructureTypePhysicalDeviceFeatures2,
		PNext:    unsafe.Pointer(vulkan12Ref),
		Features: f.Base,
	}
	features2Ref, _ := features2.PassRef()
	defer features2.Free()

	info := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   unsafe.Pointer(features2Ref),
		QueueCreateInfoCount:    uint32(len(req.Queues)),
		PQueueCreateInfos:       req.Queues,
		EnabledExtensionCount:   uint32(len(req.Extensions)),
		PpEnabledExtensionNames: core.SafeStrings(req.Extensions),
		EnabledLayerCount:       uint32(len(req.Layers)),
		PpEnabledLayerNames:     core.SafeStrings(req.Layers),
	}

	var device vk.Device
	if err := vkResult(vk.CreateDevice(pd, &info, nil, &device), "vk.CreateDevice()"); err != nil {
		return nil, err
	}
	return device, nil
}

func (vkEntry) DestroyDevice(device vk.Device) {
	vk.DestroyDevice(device, nil)
}

func (vkEntry) DeviceQueue(device vk.Device, family, index uint32) vk.Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(device, family, index, &queue)
	return queue
}

func (vkEntry) DeviceWaitIdle(device vk.Device) error {
	return vkResult(vk.DeviceWaitIdle(device), "vk.DeviceWaitIdle()")
}

func (vkEntry) CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	var swapchain vk.Swapchain
	if err := vkResult(vk.CreateSwapchain(device, info, nil, &swapchain), "vk.CreateSwapchain()"); err != nil {
		return nil, err
	}
	return swapchain, nil
}

func (vkEntry) SwapchainImages(device vk.Device, swapchain vk.Swapchain) ([]vk.Image, error) {
	var count uint32
	if err := vkResult(vk.GetSwapchainImages(device, swapchain, &count, nil), "vk.GetSwapchainImages()"); err != nil {
		return nil, err
	}
	images := make([]vk.Image, count)
	if err := vkResult(vk.GetSwapchainImages(device, swapchain, &count, images), "vk.GetSwapchainImages()"); err != nil {
		return nil, err
	}
	return images[:count], nil
}

func (vkEntry) DestroySwapchain(device vk.Device, swapchain vk.Swapchain) {
	vk.DestroySwapchain(device, swapchain, nil)
}

func (vkEntry) CreateSampler(device vk.Device, info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	var sampler vk.Sampler
	if err := vkResult(vk.CreateSampler(device, info, nil, &sampler), "vk.CreateSampler()"); err != nil {
		return nil, err
	}
	return sampler, nil
}

func (vkEntry) DestroySampler(device vk.Device, sampler vk.Sampler) {
	vk.DestroySampler(device, sampler, nil)
}

func (vkEntry) CreateImage(device vk.Device, info *vk.ImageCreateInfo) (vk.Image, error) {
	var image vk.Image
	if err := vkResult(vk.CreateImage(device, info, nil, &image), "vk.CreateImage()"); err != nil {
		return nil, err
	}
	return image, nil
}

func (vkEntry) DestroyImage(device vk.Device, image vk.Image) {
	vk.DestroyImage(device, image, nil)
}

func (vkEntry) ImageMemoryRequirements(device vk.Device, image vk.Image) vk.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, image, &req)
	req.Deref()
	return req
}

func (vkEntry) BindImageMemory(device vk.Device, image vk.Image, memory vk.DeviceMemory, offset vk.DeviceSize) error {
	return vkResult(vk.BindImageMemory(device, image, memory, offset), "vk.BindImageMemory()")
}

func (vkEntry) CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	var view vk.ImageView
	if err := vkResult(vk.CreateImageView(device, info, nil, &view), "vk.CreateImageView()"); err != nil {
		return nil, err
	}
	return view, nil
}

func (vkEntry) DestroyImageView(device vk.Device, view vk.ImageView) {
	vk.DestroyImageView(device, view, nil)
}

func (vkEntry) CreateBuffer(device vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, error) {
	var buffer vk.Buffer
	if err := vkResult(vk.CreateBuffer(device, info, nil, &buffer), "vk.CreateBuffer()"); err != nil {
		return nil, err
	}
	return buffer, nil
}

func (vkEntry) DestroyBuffer(device vk.Device, buffer vk.Buffer) {
	vk.DestroyBuffer(device, buffer, nil)
}

func (vkEntry) BufferMemoryRequirements(device vk.Device, buffer vk.Buffer) vk.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buffer, &req)
	req.Deref()
	return req
}

func (vkEntry) BindBufferMemory(device vk.Device, buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) error {
	return vkResult(vk.BindBufferMemory(device, buffer, memory, offset), "vk.BindBufferMemory()")
}

func (vkEntry) AllocateMemory(device vk.Device, info *vk.MemoryAllocateInfo) (vk.DeviceMemory, error) {
	var memory vk.DeviceMemory
	if err := vkResult(vk.AllocateMemory(device, info, nil, &memory), "vk.AllocateMemory()"); err != nil {
		return nil, err
	}
	return memory, nil
}

func (vkEntry) FreeMemory(device vk.Device, memory vk.DeviceMemory) {
	vk.FreeMemory(device, memory, nil)
}

func (vkEntry) MapMemory(device vk.Device, memory vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, error) {
	var data unsafe.Pointer
	if err := vkResult(vk.MapMemory(device, memory, offset, size, 0, &data), "vk.MapMemory()"); err != nil {
		return nil, err
	}
	return data, nil
}

func (vkEntry) UnmapMemory(device vk.Device, memory vk.DeviceMemory) {
	vk.UnmapMemory(device, memory)
}

func (vkEntry) CreateSemaphore(device vk.Device) (vk.Semaphore, error) {
	var semaphore vk.Semaphore
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	if err := vkResult(vk.CreateSemaphore(device, &info, nil, &semaphore), "vk.CreateSemaphore()"); err != nil {
		return nil, err
	}
	return semaphore, nil
}

func (vkEntry) DestroySemaphore(device vk.Device, semaphore vk.Semaphore) {
	vk.DestroySemaphore(device, semaphore, nil)
}

func (vkEntry) CreateCommandPool(device vk.Device, family uint32) (vk.CommandPool, error) {
	var pool vk.CommandPool
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: family,
	}
	if err := vkResult(vk.CreateCommandPool(device, &info, nil, &pool), "vk.CreateCommandPool()"); err != nil {
		return nil, err
	}
	return pool, nil
}

func (vkEntry) DestroyCommandPool(device vk.Device, pool vk.CommandPool) {
	vk.DestroyCommandPool(device, pool, nil)
}

func (vkEntry) AllocateCommandBuffers(device vk.Device, pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error) {
	buffers := make([]vk.CommandBuffer, count)
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	if err := vkResult(vk.AllocateCommandBuffers(device, &info, buffers), "vk.AllocateCommandBuffers()"); err != nil {
		return nil, err
	}
	return buffers, nil
}

func (vkEntry) FreeCommandBuffers(device vk.Device, pool vk.CommandPool, buffers []vk.CommandBuffer) {
	vk.FreeCommandBuffers(device, pool, uint32(len(buffers)), buffers)
}
