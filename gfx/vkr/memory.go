// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"sync"
	"unsafe"

	"github.com/dolthub/swiss"
	vk "github.com/goki/vulkan"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/sirupsen/logrus"

	"github.com/devblok/koru/v2/core"
)

// MemoryUsage tells the allocator where a resource should live.
type MemoryUsage int

// Memory usages.
const (
	// MemoryGPUOnly is device local memory the host never touches
	MemoryGPUOnly MemoryUsage = iota
	// MemoryHostVisible is mapped, coherent memory for uploads
	MemoryHostVisible
)

func (u MemoryUsage) properties() vk.MemoryPropertyFlags {
	if u == MemoryHostVisible {
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	}
	return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
}

func (u MemoryUsage) String() string {
	if u == MemoryHostVisible {
		return "host-visible"
	}
	return "gpu-only"
}

// AllocationOptions configures a single allocation.
type AllocationOptions struct {
	Usage MemoryUsage

	// Dedicated gives the resource a memory object of its own.
	// The allocator does not sub-allocate, so every allocation is
	// dedicated today; the flag is recorded for statistics.
	Dedicated bool

	// Name shows up in statistics and contract violations
	Name string
}

// Allocation is a resource bound to memory it owns exclusively.
type Allocation struct {
	allocator *Allocator
	id        uint64
	opts      AllocationOptions

	memory     vk.DeviceMemory
	size       vk.DeviceSize
	memoryType uint32

	image  vk.Image
	buffer vk.Buffer
	mapped unsafe.Pointer

	life *core.Lifetime
}

// Image returns the bound image, nil for buffer allocations.
func (a *Allocation) Image() vk.Image {
	return a.image
}

// Buffer returns the bound buffer, nil for image allocations.
func (a *Allocation) Buffer() vk.Buffer {
	return a.buffer
}

// Memory returns the backing memory handle.
func (a *Allocation) Memory() vk.DeviceMemory {
	return a.memory
}

// Size returns the size of the backing memory.
func (a *Allocation) Size() vk.DeviceSize {
	return a.size
}

// MemoryType returns the memory type index the allocation lives in.
func (a *Allocation) MemoryType() uint32 {
	return a.memoryType
}

// Map maps the whole allocation. Mapping is persistent until Release.
func (a *Allocation) Map() (unsafe.Pointer, error) {
	if a.mapped != nil {
		return a.mapped, nil
	}
	if a.opts.Usage != MemoryHostVisible {
		return nil, core.Violation("allocation %s is not host visible", a.opts.Name)
	}
	ptr, err := a.allocator.entry.MapMemory(a.allocator.device, a.memory, 0, a.size)
	if err != nil {
		return nil, core.Mark(err, core.ErrResourceCreation, "map %s", a.opts.Name)
	}
	a.mapped = ptr
	return ptr, nil
}

// Release frees the allocation through its allocator.
func (a *Allocation) Release() error {
	return a.allocator.Free(a)
}

// NewAllocator creates a new memory allocator. Allocates for the logical device,
// reads memory properties of the physical device to influence allocation.
func NewAllocator(instance *Instance, device *LogicalDevice, log logrus.FieldLogger) (*Allocator, error) {
	life, err := device.Lifetime().Acquire("allocator")
	if err != nil {
		return nil, err
	}

	return &Allocator{
		entry:         device.Entry(),
		instance:      instance.Handle(),
		device:        device.Handle(),
		physical:      device.Choice().Device,
		memProperties: device.Entry().MemoryProperties(device.Choice().Device),
		live:          swiss.NewMap[uint64, *Allocation](64),
		life:          life,
		log:           componentLogger(log, "allocator"),
	}, nil
}

// Allocator is responsible returning usable memory for any resources
// that may need it. It must outlive every allocation it made.
type Allocator struct {
	entry         Entry
	instance      vk.Instance
	device        vk.Device
	physical      vk.PhysicalDevice
	memProperties vk.PhysicalDeviceMemoryProperties

	mu     sync.Mutex
	live   *swiss.Map[uint64, *Allocation]
	nextID uint64

	life *core.Lifetime
	log  logrus.FieldLogger
}

// FindMemoryType returns the first memory type allowed by filter that
// has all of prop.
func (a *Allocator) FindMemoryType(filter uint32, prop vk.MemoryPropertyFlags) (uint32, error) {
	for idx := uint32(0); idx < a.memProperties.MemoryTypeCount; idx++ {
		if filter&(1<<idx) != 0 && (a.memProperties.MemoryTypes[idx].PropertyFlags&prop) == prop {
			return idx, nil
		}
	}
	return 0, core.Newf(core.ErrResourceCreation, "no memory type in %b with properties %b", filter, prop)
}

// AllocateImage creates an image, gives it memory and binds both.
func (a *Allocator) AllocateImage(info *vk.ImageCreateInfo, opts AllocationOptions) (*Allocation, error) {
	image, err := a.entry.CreateImage(a.device, info)
	if err != nil {
		return nil, core.Mark(err, core.ErrResourceCreation, "create image %s", opts.Name)
	}

	req := a.entry.ImageMemoryRequirements(a.device, image)
	alloc, err := a.allocate(req, opts)
	if err != nil {
		a.entry.DestroyImage(a.device, image)
		return nil, err
	}
	if err := a.entry.BindImageMemory(a.device, image, alloc.memory, 0); err != nil {
		a.entry.DestroyImage(a.device, image)
		a.release(alloc)
		return nil, core.Mark(err, core.ErrResourceCreation, "bind image %s", opts.Name)
	}
	alloc.image = image
	return alloc, nil
}

// AllocateBuffer creates a buffer, gives it memory and binds both.
func (a *Allocator) AllocateBuffer(info *vk.BufferCreateInfo, opts AllocationOptions) (*Allocation, error) {
	buffer, err := a.entry.CreateBuffer(a.device, info)
	if err != nil {
		return nil, core.Mark(err, core.ErrResourceCreation, "create buffer %s", opts.Name)
	}

	req := a.entry.BufferMemoryRequirements(a.device, buffer)
	alloc, err := a.allocate(req, opts)
	if err != nil {
		a.entry.DestroyBuffer(a.device, buffer)
		return nil, err
	}
	if err := a.entry.BindBufferMemory(a.device, buffer, alloc.memory, 0); err != nil {
		a.entry.DestroyBuffer(a.device, buffer)
		a.release(alloc)
		return nil, core.Mark(err, core.ErrResourceCreation, "bind buffer %s", opts.Name)
	}
	alloc.buffer = buffer
	return alloc, nil
}

func (a *Allocator) allocate(req vk.MemoryRequirements, opts AllocationOptions) (*Allocation, error) {
	memType, err := a.FindMemoryType(req.MemoryTypeBits, opts.Usage.properties())
	if err != nil {
		return nil, err
	}

	life, err := a.life.Acquire(opts.Name)
	if err != nil {
		return nil, err
	}

	memory, err := a.entry.AllocateMemory(a.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memType,
	})
	if err != nil {
		_ = life.Release()
		return nil, core.Mark(err, core.ErrResourceCreation, "allocate %d bytes for %s", req.Size, opts.Name)
	}

	a.mu.Lock()
	a.nextID++
	alloc := &Allocation{
		allocator:  a,
		id:         a.nextID,
		opts:       opts,
		memory:     memory,
		size:       req.Size,
		memoryType: memType,
		life:       life,
	}
	a.live.Put(alloc.id, alloc)
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{
		"name":  opts.Name,
		"size":  req.Size,
		"type":  memType,
		"usage": opts.Usage,
	}).Debug("memory allocated")
	return alloc, nil
}

// release returns the memory of alloc, the bound resource is the
// caller's business.
func (a *Allocator) release(alloc *Allocation) {
	if alloc.mapped != nil {
		a.entry.UnmapMemory(a.device, alloc.memory)
		alloc.mapped = nil
	}
	a.entry.FreeMemory(a.device, alloc.memory)

	a.mu.Lock()
	a.live.Delete(alloc.id)
	a.mu.Unlock()
	_ = alloc.life.Release()
}

// Free destroys the bound resource and frees its memory.
func (a *Allocator) Free(alloc *Allocation) error {
	if alloc == nil || alloc.allocator != a {
		return core.Violation("allocation freed through a foreign allocator")
	}
	a.mu.Lock()
	_, ok := a.live.Get(alloc.id)
	a.mu.Unlock()
	if !ok {
		return core.Violation("allocation %s freed twice", alloc.opts.Name)
	}

	if alloc.image != vk.NullImage {
		a.entry.DestroyImage(a.device, alloc.image)
		alloc.image = vk.NullImage
	}
	if alloc.buffer != vk.NullBuffer {
		a.entry.DestroyBuffer(a.device, alloc.buffer)
		alloc.buffer = vk.NullBuffer
	}
	a.release(alloc)
	return nil
}

// Outstanding returns the number of allocations not yet freed.
func (a *Allocator) Outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live.Count()
}

// Destroy retires the allocator. It refuses while allocations are live.
func (a *Allocator) Destroy() error {
	if n := a.Outstanding(); n > 0 {
		return core.Violation("allocator destroyed with %d outstanding allocations", n)
	}
	if err := a.life.Release(); err != nil {
		return err
	}
	a.log.Debug("allocator destroyed")
	return nil
}

// StatsJSON reports live allocations grouped by memory type.
func (a *Allocator) StatsJSON() []byte {
	type typeStats struct {
		count     int
		bytes     uint64
		dedicated int
	}

	a.mu.Lock()
	perType := make([]typeStats, a.memProperties.MemoryTypeCount)
	var total uint64
	a.live.Iter(func(_ uint64, alloc *Allocation) bool {
		if int(alloc.memoryType) < len(perType) {
			s := &perType[alloc.memoryType]
			s.count++
			s.bytes += uint64(alloc.size)
			if alloc.opts.Dedicated {
				s.dedicated++
			}
		}
		total += uint64(alloc.size)
		return false
	})
	count := a.live.Count()
	a.mu.Unlock()

	w := jwriter.NewWriter()
	obj := w.Object()
	obj.Name("outstanding").Int(count)
	obj.Name("bytes").Float64(float64(total))
	types := obj.Name("memoryTypes").Array()
	for idx, s := range perType {
		if s.count == 0 {
			continue
		}
		t := types.Object()
		t.Name("index").Int(idx)
		t.Name("flags").Int(int(a.memProperties.MemoryTypes[idx].PropertyFlags))
		t.Name("allocations").Int(s.count)
		t.Name("dedicated").Int(s.dedicated)
		t.Name("bytes").Float64(float64(s.bytes))
		t.End()
	}
	types.End()
	obj.End()
	return w.Bytes()
}
