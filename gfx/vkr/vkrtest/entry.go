// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkrtest provides a recording vkr.Entry that needs no GPU.
// Handles are unique opaque pointers, every created object is tracked
// until destroyed, and individual calls can be made to fail.
package vkrtest

import (
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/devblok/koru/v2/gfx/vkr"
)

// Object kinds tracked by Entry.
const (
	KindInstance      = "instance"
	KindSurface       = "surface"
	KindDevice        = "device"
	KindSwapchain     = "swapchain"
	KindSampler       = "sampler"
	KindImage         = "image"
	KindImageView     = "image view"
	KindBuffer        = "buffer"
	KindMemory        = "memory"
	KindSemaphore     = "semaphore"
	KindCommandPool   = "command pool"
	KindCommandBuffer = "command buffer"
)

// ErrInjected is returned by calls set up to fail with FailOn.
var ErrInjected = errors.New("injected failure")

// PhysicalDevice is a fake GPU.
type PhysicalDevice struct {
	Name       string
	Families   []vk.QueueFamilyProperties
	Present    map[uint32]bool
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties
	Extensions []string

	handle vk.PhysicalDevice
}

// Handle returns the device handle.
func (p *PhysicalDevice) Handle() vk.PhysicalDevice {
	return p.handle
}

// Family returns queue family properties with flags.
func Family(flags ...vk.QueueFlagBits) vk.QueueFamilyProperties {
	var f vk.QueueFlags
	for _, flag := range flags {
		f |= vk.QueueFlags(flag)
	}
	return vk.QueueFamilyProperties{QueueFlags: f, QueueCount: 1}
}

// NewPhysicalDevice creates a device with families, presenting from
// the families listed in present.
func NewPhysicalDevice(name string, families []vk.QueueFamilyProperties, present ...uint32) *PhysicalDevice {
	p := &PhysicalDevice{
		Name:       name,
		Families:   families,
		Present:    map[uint32]bool{},
		Memory:     DefaultMemoryProperties(),
		Extensions: []string{"VK_KHR_swapchain", "VK_EXT_descriptor_indexing"},
		handle:     vk.PhysicalDevice(newHandle()),
	}
	for _, idx := range present {
		p.Present[idx] = true
	}
	p.Features.SamplerAnisotropy = vk.True
	p.Features.TextureCompressionBC = vk.True
	p.Features.DepthClamp = vk.True
	return p
}

// DefaultMemoryProperties has a device local type 0 and a host visible,
// coherent type 1.
func DefaultMemoryProperties() vk.PhysicalDeviceMemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	props.MemoryTypeCount = 2
	props.MemoryTypes[0] = vk.MemoryType{
		PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		HeapIndex:     0,
	}
	props.MemoryTypes[1] = vk.MemoryType{
		PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit),
		HeapIndex:     1,
	}
	props.MemoryHeapCount = 2
	props.MemoryHeaps[0] = vk.MemoryHeap{Size: 4 << 30, Flags: vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit)}
	props.MemoryHeaps[1] = vk.MemoryHeap{Size: 8 << 30}
	return props
}

// Event is one create or destroy call.
type Event struct {
	Destroy bool
	Kind    string
}

func (e Event) String() string {
	if e.Destroy {
		return "destroy " + e.Kind
	}
	return "create " + e.Kind
}

// Entry implements vkr.Entry in memory.
type Entry struct {
	mu sync.Mutex

	Devices         []*PhysicalDevice
	ExtensionNames  []string
	Capabilities    vk.SurfaceCapabilities
	Formats         []vk.SurfaceFormat
	Modes           []vk.PresentMode
	SwapchainImageN int

	// Recorded requests
	InstanceInfos  []vk.InstanceCreateInfo
	DeviceRequests []vkr.DeviceRequest
	SwapchainInfos []vk.SwapchainCreateInfo
	SamplerInfos   []vk.SamplerCreateInfo
	ImageInfos     []vk.ImageCreateInfo
	ViewInfos      []vk.ImageViewCreateInfo
	Events         []Event
	WaitIdleCalls  int

	// Misuse collects destroys of unknown or already destroyed handles
	// and calls made through a device that is no longer live.
	Misuse []string

	live     map[unsafe.Pointer]string
	memory   map[unsafe.Pointer][]byte
	mapped   map[unsafe.Pointer]bool
	queues   map[string]vk.Queue
	calls    map[string]int
	failures map[string]int
}

var _ vkr.Entry = (*Entry)(nil)

// NewEntry returns an entry with one GPU exposing families
// [transfer, compute, graphics+compute] and presenting from family 2.
func NewEntry() *Entry {
	gpu := NewPhysicalDevice("Fake GPU", []vk.QueueFamilyProperties{
		Family(vk.QueueTransferBit),
		Family(vk.QueueComputeBit),
		Family(vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit),
	}, 2)

	return &Entry{
		Devices:        []*PhysicalDevice{gpu},
		ExtensionNames: []string{"VK_KHR_surface"},
		Capabilities: vk.SurfaceCapabilities{
			MinImageCount:           2,
			MaxImageCount:           0,
			CurrentExtent:           vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
			MinImageExtent:          vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:          vk.Extent2D{Width: 4096, Height: 4096},
			MaxImageArrayLayers:     1,
			CurrentTransform:        vk.SurfaceTransformIdentityBit,
			SupportedCompositeAlpha: vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit),
		},
		Formats: []vk.SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		Modes:           []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
		SwapchainImageN: 3,
		live:            map[unsafe.Pointer]string{},
		memory:          map[unsafe.Pointer][]byte{},
		mapped:          map[unsafe.Pointer]bool{},
		queues:          map[string]vk.Queue{},
		calls:           map[string]int{},
		failures:        map[string]int{},
	}
}

// FailOn makes the call named call fail once it was made after times
// successfully. FailOn("CreateImageView", 2) lets two views succeed.
func (e *Entry) FailOn(call string, after int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[call] = e.calls[call] + after
}

// Live returns the number of live objects of kind.
func (e *Entry) Live(kind string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, k := range e.live {
		if k == kind {
			n++
		}
	}
	return n
}

// LiveTotal returns the number of live objects of any kind.
func (e *Entry) LiveTotal() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

// DestroyOrder returns the kinds of destroyed objects in order.
func (e *Entry) DestroyOrder() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var kinds []string
	for _, ev := range e.Events {
		if ev.Destroy {
			kinds = append(kinds, ev.Kind)
		}
	}
	return kinds
}

// call counts call and reports an injected failure. Callers hold mu.
func (e *Entry) call(name string) error {
	n := e.calls[name]
	e.calls[name] = n + 1
	if at, ok := e.failures[name]; ok && n == at {
		delete(e.failures, name)
		return errors.Wrapf(ErrInjected, "%s", name)
	}
	return nil
}

func (e *Entry) create(kind string) unsafe.Pointer {
	p := newHandle()
	e.live[p] = kind
	e.Events = append(e.Events, Event{Kind: kind})
	return p
}

func (e *Entry) destroy(kind string, p unsafe.Pointer) {
	if p == nil {
		return
	}
	got, ok := e.live[p]
	if !ok || got != kind {
		e.Misuse = append(e.Misuse, fmt.Sprintf("destroy %s %p: live as %q", kind, p, got))
		return
	}
	delete(e.live, p)
	e.Events = append(e.Events, Event{Destroy: true, Kind: kind})
}

// using records a call made through a parent handle that is not live.
// Callers hold mu.
func (e *Entry) using(kind string, p unsafe.Pointer, call string) {
	if got, ok := e.live[p]; !ok || got != kind {
		e.Misuse = append(e.Misuse, fmt.Sprintf("%s on %s %p: live as %q", call, kind, p, got))
	}
}

func (e *Entry) device(pd vk.PhysicalDevice) *PhysicalDevice {
	for _, d := range e.Devices {
		if d.handle == pd {
			return d
		}
	}
	return nil
}

// InstanceExtensions implements vkr.Entry.
func (e *Entry) InstanceExtensions() ([]string, error) {
	return e.ExtensionNames, nil
}

// InstanceLayers implements vkr.Entry.
func (e *Entry) InstanceLayers() ([]string, error) {
	return []string{"VK_LAYER_KHRONOS_validation"}, nil
}

// CreateInstance implements vkr.Entry.
func (e *Entry) CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("CreateInstance"); err != nil {
		return nil, err
	}
	e.InstanceInfos = append(e.InstanceInfos, *info)
	return vk.Instance(e.create(KindInstance)), nil
}

// DestroyInstance implements vkr.Entry.
func (e *Entry) DestroyInstance(instance vk.Instance) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroy(KindInstance, unsafe.Pointer(instance))
}

// NewSurface creates a surface handle, as a window system would.
func (e *Entry) NewSurface() (vk.Surface, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("CreateSurface"); err != nil {
		return vk.NullSurface, err
	}
	return vk.Surface(e.create(KindSurface)), nil
}

// DestroySurface implements vkr.Entry.
func (e *Entry) DestroySurface(instance vk.Instance, surface vk.Surface) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroy(KindSurface, unsafe.Pointer(surface))
}

// PhysicalDevices implements vkr.Entry.
func (e *Entry) PhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("PhysicalDevices"); err != nil {
		return nil, err
	}
	devices := make([]vk.PhysicalDevice, 0, len(e.Devices))
	for _, d := range e.Devices {
		devices = append(devices, d.handle)
	}
	return devices, nil
}

// PhysicalDeviceProperties implements vkr.Entry.
func (e *Entry) PhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	e.mu.Lock()
	defer e.mu.Unlock()

	var props vk.PhysicalDeviceProperties
	for idx, d := range e.Devices {
		if d.handle == pd {
			copy(props.DeviceName[:], d.Name)
			props.DeviceID = uint32(0x1000 + idx)
			props.VendorID = 0x10de
			props.DriverVersion = vk.MakeVersion(1, 0, 0)
			props.ApiVersion = vk.MakeVersion(1, 3, 0)
			props.DeviceType = vk.PhysicalDeviceTypeDiscreteGpu
		}
	}
	return props
}

// PhysicalDeviceFeatures implements vkr.Entry.
func (e *Entry) PhysicalDeviceFeatures(pd vk.PhysicalDevice) vk.PhysicalDeviceFeatures {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d := e.device(pd); d != nil {
		return d.Features
	}
	return vk.PhysicalDeviceFeatures{}
}

// MemoryProperties implements vkr.Entry.
func (e *Entry) MemoryProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d := e.device(pd); d != nil {
		return d.Memory
	}
	return vk.PhysicalDeviceMemoryProperties{}
}

// QueueFamilies implements vkr.Entry.
func (e *Entry) QueueFamilies(pd vk.PhysicalDevice) []vk.QueueFamilyProperties {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d := e.device(pd); d != nil {
		return d.Families
	}
	return nil
}

// DeviceExtensions implements vkr.Entry.
func (e *Entry) DeviceExtensions(pd vk.PhysicalDevice) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("DeviceExtensions"); err != nil {
		return nil, err
	}
	if d := e.device(pd); d != nil {
		return d.Extensions, nil
	}
	return nil, nil
}

// SurfaceSupport implements vkr.Entry.
func (e *Entry) SurfaceSupport(pd vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("SurfaceSupport"); err != nil {
		return false, err
	}
	if d := e.device(pd); d != nil {
		return d.Present[family], nil
	}
	return false, nil
}

// SurfaceCapabilities implements vkr.Entry.
func (e *Entry) SurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("SurfaceCapabilities"); err != nil {
		return vk.SurfaceCapabilities{}, err
	}
	if _, ok := e.live[unsafe.Pointer(surface)]; !ok {
		return vk.SurfaceCapabilities{}, errors.New("surface lost")
	}
	return e.Capabilities, nil
}

// SurfaceFormats implements vkr.Entry.
func (e *Entry) SurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("SurfaceFormats"); err != nil {
		return nil, err
	}
	return e.Formats, nil
}

// PresentModes implements vkr.Entry.
func (e *Entry) PresentModes(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("PresentModes"); err != nil {
		return nil, err
	}
	return e.Modes, nil
}

// CreateDevice implements vkr.Entry.
func (e *Entry) CreateDevice(pd vk.PhysicalDevice, req vkr.DeviceRequest) (vk.Device, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("CreateDevice"); err != nil {
		return nil, err
	}
	e.DeviceRequests = append(e.DeviceRequests, req)
	return vk.Device(e.create(KindDevice)), nil
}

// DestroyDevice implements vkr.Entry.
func (e *Entry) DestroyDevice(device vk.Device) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroy(KindDevice, unsafe.Pointer(device))
}

// DeviceQueue implements vkr.Entry. The same family yields the same queue.
func (e *Entry) DeviceQueue(device vk.Device, family, index uint32) vk.Queue {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.using(KindDevice, unsafe.Pointer(device), "DeviceQueue")
	key := fmt.Sprintf("%p/%d/%d", unsafe.Pointer(device), family, index)
	if q, ok := e.queues[key]; ok {
		return q
	}
	q := vk.Queue(newHandle())
	e.queues[key] = q
	return q
}

// DeviceWaitIdle implements vkr.Entry.
func (e *Entry) DeviceWaitIdle(device vk.Device) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.using(KindDevice, unsafe.Pointer(device), "DeviceWaitIdle")
	e.WaitIdleCalls++
	return e.call("DeviceWaitIdle")
}

// CreateSwapchain implements vkr.Entry.
func (e *Entry) CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.using(KindDevice, unsafe.Pointer(device), "CreateSwapchain")
	if err := e.call("CreateSwapchain"); err != nil {
		return vk.NullSwapchain, err
	}
	e.SwapchainInfos = append(e.SwapchainInfos, *info)
	return vk.Swapchain(e.create(KindSwapchain)), nil
}

// SwapchainImages implements vkr.Entry.
func (e *Entry) SwapchainImages(device vk.Device, swapchain vk.Swapchain) ([]vk.Image, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.using(KindDevice, unsafe.Pointer(device), "SwapchainImages")
	if err := e.call("SwapchainImages"); err != nil {
		return nil, err
	}
	images := make([]vk.Image, e.SwapchainImageN)
	for i := range images {
		images[i] = vk.Image(newHandle())
	}
	return images, nil
}

// DestroySwapchain implements vkr.Entry.
func (e *Entry) DestroySwapchain(device vk.Device, swapchain vk.Swapchain) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroy(KindSwapchain, unsafe.Pointer(swapchain))
}

// CreateSampler implements vkr.Entry.
func (e *Entry) CreateSampler(device vk.Device, info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.using(KindDevice, unsafe.Pointer(device), "CreateSampler")
	if err := e.call("CreateSampler"); err != nil {
		return nil, err
	}
	e.SamplerInfos = append(e.SamplerInfos, *info)
	return vk.Sampler(e.create(KindSampler)), nil
}

// DestroySampler implements vkr.Entry.
func (e *Entry) DestroySampler(device vk.Device, sampler vk.Sampler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroy(KindSampler, unsafe.Pointer(sampler))
}

// CreateImage implements vkr.Entry.
func (e *Entry) CreateImage(device vk.Device, info *vk.ImageCreateInfo) (vk.Image, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.using(KindDevice, unsafe.Pointer(device), "CreateImage")
	if err := e.call("CreateImage"); err != nil {
		return vk.NullImage, err
	}
	e.ImageInfos = append(e.ImageInfos, *info)
	return vk.Image(e.create(KindImage)), nil
}

// DestroyImage implements vkr.Entry.
func (e *Entry) DestroyImage(device vk.Device, image vk.Image) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroy(KindImage, unsafe.Pointer(image))
}

// ImageMemoryRequirements implements vkr.Entry.
func (e *Entry) ImageMemoryRequirements(device vk.Device, image vk.Image) vk.MemoryRequirements {
	return vk.MemoryRequirements{Size: 1 << 16, Alignment: 256, MemoryTypeBits: 0b11}
}

// BindImageMemory implements vkr.Entry.
func (e *Entry) BindImageMemory(device vk.Device, image vk.Image, memory vk.DeviceMemory, offset vk.DeviceSize) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.using(KindDevice, unsafe.Pointer(device), "BindImageMemory")
	return e.call("BindImageMemory")
}

// CreateImageView implements vkr.Entry.
func (e *Entry) CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.using(KindDevice, unsafe.Pointer(device), "CreateImageView")
	if err := e.call("CreateImageView"); err != nil {
		return vk.NullImageView, err
	}
	e.ViewInfos = append(e.ViewInfos, *info)
	return vk.ImageView(e.create(KindImageView)), nil
}

// DestroyImageView implements vkr.Entry.
func (e *Entry) DestroyImageView(device vk.Device, view vk.ImageView) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroy(KindImageView, unsafe.Pointer(view))
}

// CreateBuffer implements vkr.Entry.
func (e *Entry) CreateBuffer(device vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.using(KindDevice, unsafe.Pointer(device), "CreateBuffer")
	if err := e.call("CreateBuffer"); err != nil {
		return vk.NullBuffer, err
	}
	p := e.create(KindBuffer)
	*(*uint64)(p) = uint64(info.Size)
	return vk.Buffer(p), nil
}

// DestroyBuffer implements vkr.Entry.
func (e *Entry) DestroyBuffer(device vk.Device, buffer vk.Buffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroy(KindBuffer, unsafe.Pointer(buffer))
}

// BufferMemoryRequirements implements vkr.Entry. The size is the one
// the buffer was created with.
func (e *Entry) BufferMemoryRequirements(device vk.Device, buffer vk.Buffer) vk.MemoryRequirements {
	size := *(*uint64)(unsafe.Pointer(buffer))
	return vk.MemoryRequirements{Size: vk.DeviceSize(size), Alignment: 16, MemoryTypeBits: 0b11}
}

// BindBufferMemory implements vkr.Entry.
func (e *Entry) BindBufferMemory(device vk.Device, buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.using(KindDevice, unsafe.Pointer(device), "BindBufferMemory")
	return e.call("BindBufferMemory")
}

// AllocateMemory implements vkr.Entry.
func (e *Entry) AllocateMemory(device vk.Device, info *vk.MemoryAllocateInfo) (vk.DeviceMemory, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.using(KindDevice, unsafe.Pointer(device), "AllocateMemory")
	if err := e.call("AllocateMemory"); err != nil {
		return vk.NullDeviceMemory, err
	}
	p := e.create(KindMemory)
	e.memory[p] = make([]byte, info.AllocationSize)
	return vk.DeviceMemory(p), nil
}

// FreeMemory implements vkr.Entry.
func (e *Entry) FreeMemory(device vk.Device, memory vk.DeviceMemory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := unsafe.Pointer(memory)
	if e.mapped[p] {
		e.Misuse = append(e.Misuse, fmt.Sprintf("free of mapped memory %p", p))
	}
	delete(e.memory, p)
	e.destroy(KindMemory, p)
}

// MapMemory implements vkr.Entry.
func (e *Entry) MapMemory(device vk.Device, memory vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.using(KindDevice, unsafe.Pointer(device), "MapMemory")
	if err := e.call("MapMemory"); err != nil {
		return nil, err
	}
	p := unsafe.Pointer(memory)
	buf, ok := e.memory[p]
	if !ok || int(offset+size) > len(buf) || size == 0 {
		return nil, errors.Newf("map of %d bytes at %d out of range", size, offset)
	}
	e.mapped[p] = true
	return unsafe.Pointer(&buf[offset]), nil
}

// UnmapMemory implements vkr.Entry.
func (e *Entry) UnmapMemory(device vk.Device, memory vk.DeviceMemory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.mapped, unsafe.Pointer(memory))
}

// MemoryBytes returns the backing store of memory.
func (e *Entry) MemoryBytes(memory vk.DeviceMemory) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.memory[unsafe.Pointer(memory)]
}

// CreateSemaphore implements vkr.Entry.
func (e *Entry) CreateSemaphore(device vk.Device) (vk.Semaphore, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.using(KindDevice, unsafe.Pointer(device), "CreateSemaphore")
	if err := e.call("CreateSemaphore"); err != nil {
		return vk.NullSemaphore, err
	}
	return vk.Semaphore(e.create(KindSemaphore)), nil
}

// DestroySemaphore implements vkr.Entry.
func (e *Entry) DestroySemaphore(device vk.Device, semaphore vk.Semaphore) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroy(KindSemaphore, unsafe.Pointer(semaphore))
}

// CreateCommandPool implements vkr.Entry.
func (e *Entry) CreateCommandPool(device vk.Device, family uint32) (vk.CommandPool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.using(KindDevice, unsafe.Pointer(device), "CreateCommandPool")
	if err := e.call("CreateCommandPool"); err != nil {
		return nil, err
	}
	return vk.CommandPool(e.create(KindCommandPool)), nil
}

// DestroyCommandPool implements vkr.Entry.
func (e *Entry) DestroyCommandPool(device vk.Device, pool vk.CommandPool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroy(KindCommandPool, unsafe.Pointer(pool))
}

// AllocateCommandBuffers implements vkr.Entry.
func (e *Entry) AllocateCommandBuffers(device vk.Device, pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.using(KindDevice, unsafe.Pointer(device), "AllocateCommandBuffers")
	if err := e.call("AllocateCommandBuffers"); err != nil {
		return nil, err
	}
	buffers := make([]vk.CommandBuffer, count)
	for i := range buffers {
		buffers[i] = vk.CommandBuffer(e.create(KindCommandBuffer))
	}
	return buffers, nil
}

// FreeCommandBuffers implements vkr.Entry.
func (e *Entry) FreeCommandBuffers(device vk.Device, pool vk.CommandPool, buffers []vk.CommandBuffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, b := range buffers {
		e.destroy(KindCommandBuffer, unsafe.Pointer(b))
	}
}

// Window is a SurfaceSource backed by Entry.
type Window struct {
	Entry         *Entry
	Width, Height uint32
}

// RequiredExtensions implements vkr.SurfaceSource.
func (w *Window) RequiredExtensions() []string {
	return []string{"VK_KHR_surface", "VK_KHR_xlib_surface"}
}

// CreateSurface implements vkr.SurfaceSource.
func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	return w.Entry.NewSurface()
}

// Size implements vkr.SurfaceSource.
func (w *Window) Size() (uint32, uint32) {
	return w.Width, w.Height
}
