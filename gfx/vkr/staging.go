// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"image"
	"sort"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/sirupsen/logrus"

	"github.com/devblok/koru/v2/core"
	"github.com/devblok/koru/v2/gfx"
)

// Buffer implements a host visible transfer source buffer.
type Buffer struct {
	alloc  *Allocation
	size   vk.DeviceSize
	mapped unsafe.Pointer
}

// Get returns the vulkan Buffer handle.
func (b *Buffer) Get() vk.Buffer {
	return b.alloc.Buffer()
}

// Size returns the usable size of the buffer.
func (b *Buffer) Size() vk.DeviceSize {
	return b.size
}

// Bytes exposes the mapped memory.
func (b *Buffer) Bytes() []byte {
	return unsafe.Slice((*byte)(b.mapped), int(b.size))
}

// Write copies data into the buffer at offset.
func (b *Buffer) Write(offset vk.DeviceSize, data []byte) error {
	if offset+vk.DeviceSize(len(data)) > b.size {
		return core.Newf(core.ErrResourceCreation, "write of %d bytes at %d overflows buffer of %d", len(data), offset, b.size)
	}
	copy(b.Bytes()[offset:], data)
	return nil
}

// MipRegion locates one mip level inside a staging buffer.
type MipRegion struct {
	Level  uint32
	Offset vk.DeviceSize
	Size   vk.DeviceSize
	Width  uint32
	Height uint32
}

// StagingPool hands out mapped upload buffers and recycles them.
type StagingPool struct {
	allocator *Allocator

	mu   sync.Mutex
	all  []*Buffer
	free []*Buffer

	log logrus.FieldLogger
}

// NewStagingPool creates an empty pool allocating through allocator.
func NewStagingPool(allocator *Allocator, log logrus.FieldLogger) *StagingPool {
	return &StagingPool{
		allocator: allocator,
		log:       componentLogger(log, "staging"),
	}
}

// Acquire returns a buffer of at least size bytes, reusing the smallest
// released buffer that fits.
func (p *StagingPool) Acquire(size vk.DeviceSize) (*Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := sort.Search(len(p.free), func(i int) bool { return p.free[i].size >= size })
	if idx < len(p.free) {
		buf := p.free[idx]
		p.free = append(p.free[:idx], p.free[idx+1:]...)
		return buf, nil
	}

	alloc, err := p.allocator.AllocateBuffer(&vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		SharingMode: vk.SharingModeExclusive,
	}, AllocationOptions{
		Usage:     MemoryHostVisible,
		Dedicated: true,
		Name:      "staging",
	})
	if err != nil {
		return nil, err
	}
	mapped, err := alloc.Map()
	if err != nil {
		_ = alloc.Release()
		return nil, err
	}

	buf := &Buffer{alloc: alloc, size: size, mapped: mapped}
	p.all = append(p.all, buf)
	p.log.WithField("size", size).Debug("staging buffer allocated")
	return buf, nil
}

// Release returns buf to the pool. The GPU must be done reading it.
func (p *StagingPool) Release(buf *Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := sort.Search(len(p.free), func(i int) bool { return p.free[i].size >= buf.size })
	p.free = append(p.free, nil)
	copy(p.free[idx+1:], p.free[idx:])
	p.free[idx] = buf
}

// StagedFormat is the texel layout StageImage writes.
const StagedFormat = vk.FormatR8g8b8a8Unorm

// StageImage writes the mip chain of img, tightly packed as StagedFormat,
// into one buffer and returns where each level landed. A mipLevels of
// zero stages the full chain.
func (p *StagingPool) StageImage(img image.Image, mipLevels uint32) (*Buffer, []MipRegion, error) {
	if mipLevels == 0 {
		b := img.Bounds()
		mipLevels = core.MipLevels(uint32(b.Dx()), uint32(b.Dy()))
	}
	chain := core.MipChain(img, mipLevels)
	if len(chain) == 0 {
		return nil, nil, core.Newf(core.ErrResourceCreation, "nothing to stage")
	}

	texel := uint64(BytesPerTexel(StagedFormat))
	var total vk.DeviceSize
	regions := make([]MipRegion, len(chain))
	for level, mip := range chain {
		extent := gfx.Extent3D{Width: uint32(mip.Rect.Dx()), Height: uint32(mip.Rect.Dy()), Depth: 1}
		size := vk.DeviceSize(extent.Area() * texel)
		regions[level] = MipRegion{
			Level:  uint32(level),
			Offset: total,
			Size:   size,
			Width:  extent.Width,
			Height: extent.Height,
		}
		total += size
	}

	buf, err := p.Acquire(total)
	if err != nil {
		return nil, nil, err
	}
	for level, mip := range chain {
		if err := buf.Write(regions[level].Offset, mip.Pix[:regions[level].Size]); err != nil {
			p.Release(buf)
			return nil, nil, err
		}
	}
	return buf, regions, nil
}

// Destroy frees every buffer the pool ever allocated.
func (p *StagingPool) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs error
	for _, buf := range p.all {
		errs = errors.CombineErrors(errs, buf.alloc.Release())
	}
	p.all, p.free = nil, nil
	p.log.Debug("staging pool destroyed")
	return errs
}
