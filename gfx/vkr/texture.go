// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	vk "github.com/goki/vulkan"
	"github.com/sirupsen/logrus"

	"github.com/devblok/koru/v2/core"
	"github.com/devblok/koru/v2/gfx"
)

// TextureInfo describes the image behind a texture.
type TextureInfo struct {
	Width       uint32
	Height      uint32
	MipLevels   uint32
	ArrayLayers uint32
	Format      vk.Format
	Kind        TextureKind
}

// Defaults fills unset fields: one mip level, one layer.
func (t TextureInfo) Defaults() TextureInfo {
	if t.MipLevels == 0 {
		t.MipLevels = 1
	}
	if t.ArrayLayers == 0 {
		t.ArrayLayers = 1
	}
	return t
}

// Texture is an image with its memory, one view over the whole mip
// chain followed by one view per further mip level, and a sampler
// borrowed from the SamplerCache.
type Texture struct {
	info   TextureInfo
	layout vk.ImageLayout
	layers uint32

	alloc   *Allocation
	views   []vk.ImageView
	sampler vk.Sampler

	retiredAt          uint64
	framesUntilReclaim uint32

	entry  DeviceEntry
	device vk.Device
	life   *core.Lifetime
	log    logrus.FieldLogger
}

// NewTexture creates the image, its views and resolves the sampler.
// On failure nothing created along the way survives.
func NewTexture(info TextureInfo, usage vk.ImageUsageFlags, allocator *Allocator, device *LogicalDevice, samplers *SamplerCache, samplerInfo SamplerInfo, log logrus.FieldLogger) (*Texture, error) {
	info = info.Defaults()
	log = componentLogger(log, "texture")

	if info.Width == 0 || info.Height == 0 {
		return nil, core.Newf(core.ErrResourceCreation, "texture size %dx%d", info.Width, info.Height)
	}

	layers := ArrayLayers(info.Kind, info.ArrayLayers)
	var flags vk.ImageCreateFlags
	if info.Kind == Cube2D || info.Kind == CubeArray2D {
		flags |= vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}

	usage |= vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		Flags:     flags,
		ImageType: vk.ImageType2d,
		Format:    info.Format,
		Extent: vk.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  1,
		},
		MipLevels:     info.MipLevels,
		ArrayLayers:   layers,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	life, err := device.Lifetime().Acquire("texture")
	if err != nil {
		return nil, err
	}

	alloc, err := allocator.AllocateImage(&imageInfo, AllocationOptions{
		Usage:     MemoryGPUOnly,
		Dedicated: true,
		Name:      "texture",
	})
	if err != nil {
		_ = life.Release()
		return nil, err
	}

	t := &Texture{
		info:   info,
		layout: InitialLayout(info.Format, usage),
		layers: layers,
		alloc:  alloc,
		entry:  device.Entry(),
		device: device.Handle(),
		life:   life,
		log:    log,
	}

	if err := t.createViews(); err != nil {
		t.unwind()
		return nil, err
	}

	sampler, err := samplers.GetOrCreate(samplerInfo)
	if err != nil {
		t.unwind()
		return nil, err
	}
	t.sampler = sampler

	log.WithFields(logrus.Fields{
		"size":   []uint32{info.Width, info.Height},
		"mips":   info.MipLevels,
		"layers": layers,
		"kind":   info.Kind,
		"format": info.Format,
	}).Debug("texture created")
	return t, nil
}

func (t *Texture) createViews() error {
	aspect := AspectMask(t.info.Format)
	viewType := ViewType(t.info.Kind)

	create := func(base, count uint32) error {
		view, err := t.entry.CreateImageView(t.device, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    t.alloc.Image(),
			ViewType: viewType,
			Format:   t.info.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     aspect,
				BaseMipLevel:   base,
				LevelCount:     count,
				BaseArrayLayer: 0,
				LayerCount:     t.layers,
			},
		})
		if err != nil {
			return core.Mark(err, core.ErrResourceCreation, "create view for mip %d", base)
		}
		t.views = append(t.views, view)
		return nil
	}

	if err := create(0, t.info.MipLevels); err != nil {
		return err
	}
	for level := uint32(1); level < t.info.MipLevels; level++ {
		if err := create(level, 1); err != nil {
			return err
		}
	}
	return nil
}

// unwind drops everything created so far by a failed constructor.
func (t *Texture) unwind() {
	for _, view := range t.views {
		t.entry.DestroyImageView(t.device, view)
	}
	t.views = nil
	_ = t.alloc.Release()
	_ = t.life.Release()
}

// Image returns the image handle.
func (t *Texture) Image() vk.Image {
	return t.alloc.Image()
}

// Views returns the full chain view followed by one view per mip level
// above the base.
func (t *Texture) Views() []vk.ImageView {
	return t.views
}

// Sampler returns the borrowed sampler. It is owned by the SamplerCache
// and must not be destroyed through the texture.
func (t *Texture) Sampler() vk.Sampler {
	return t.sampler
}

// Layout returns the declared layout of the texture.
func (t *Texture) Layout() vk.ImageLayout {
	return t.layout
}

// Info returns the texture description with defaults applied.
func (t *Texture) Info() TextureInfo {
	return t.info
}

// MipExtent returns the size of mip level.
func (t *Texture) MipExtent(level uint32) gfx.Extent3D {
	e := gfx.Extent3D{Width: t.info.Width, Height: t.info.Height, Depth: 1}
	for ; level > 0; level-- {
		e = e.Half()
	}
	return e
}

// Layers returns the number of image array layers.
func (t *Texture) Layers() uint32 {
	return t.layers
}

// FramesUntilReclaim is zero until the texture is retired, then counts
// down the frames it still has to survive.
func (t *Texture) FramesUntilReclaim() uint32 {
	return t.framesUntilReclaim
}

// Retire records the frame in which the texture was logically deleted.
func (t *Texture) Retire(frame uint64) {
	t.retiredAt = frame
}

// RetiredFrame returns the frame passed to Retire.
func (t *Texture) RetiredFrame() uint64 {
	return t.retiredAt
}

func (t *Texture) setFramesUntilReclaim(n uint32) {
	t.framesUntilReclaim = n
}

// Release destroys the views and frees the image. The GPU must be done
// with the texture, see ReclaimQueue.
func (t *Texture) Release() error {
	if err := t.life.Release(); err != nil {
		return err
	}
	for _, view := range t.views {
		t.entry.DestroyImageView(t.device, view)
	}
	t.views = nil
	t.sampler = nil
	return t.alloc.Release()
}
