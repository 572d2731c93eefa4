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

// SamplerFilter is a texel filter.
type SamplerFilter uint8

// Sampler filters.
const (
	FilterNearest SamplerFilter = iota
	FilterLinear
	FilterCubic
)

// filterCubic is VK_FILTER_CUBIC_EXT.
const filterCubic = vk.Filter(1000015000)

// ToVk converts the filter to the driver enum.
func (f SamplerFilter) ToVk() vk.Filter {
	switch f {
	case FilterLinear:
		return vk.FilterLinear
	case FilterCubic:
		return filterCubic
	}
	return vk.FilterNearest
}

// SamplerAddressMode is the out of range addressing rule.
type SamplerAddressMode uint8

// Address modes.
const (
	AddressRepeat SamplerAddressMode = iota
	AddressMirroredRepeat
	AddressClampToEdge
	AddressClampToBorder
	AddressMirrorClampToEdge
)

// ToVk converts the address mode to the driver enum.
func (m SamplerAddressMode) ToVk() vk.SamplerAddressMode {
	switch m {
	case AddressMirroredRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	case AddressClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	case AddressClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	case AddressMirrorClampToEdge:
		return vk.SamplerAddressModeMirrorClampToEdge
	}
	return vk.SamplerAddressModeRepeat
}

// CompareOp is the depth comparison used by shadow samplers.
type CompareOp uint8

// Compare ops.
const (
	CompareNever CompareOp = iota
	CompareLess
	CompareEqual
	CompareLessOrEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterOrEqual
	CompareAlways
)

// ToVk converts the compare op to the driver enum.
func (c CompareOp) ToVk() vk.CompareOp {
	switch c {
	case CompareLess:
		return vk.CompareOpLess
	case CompareEqual:
		return vk.CompareOpEqual
	case CompareLessOrEqual:
		return vk.CompareOpLessOrEqual
	case CompareGreater:
		return vk.CompareOpGreater
	case CompareNotEqual:
		return vk.CompareOpNotEqual
	case CompareGreaterOrEqual:
		return vk.CompareOpGreaterOrEqual
	case CompareAlways:
		return vk.CompareOpAlways
	}
	return vk.CompareOpNever
}

// SamplerInfo is the cache key of a sampler. Every field takes part
// in equality.
type SamplerInfo struct {
	MinFilter SamplerFilter
	MagFilter SamplerFilter

	AddressU SamplerAddressMode
	AddressV SamplerAddressMode
	AddressW SamplerAddressMode

	Compare    CompareOp
	Anisotropy uint8
	MipLevels  uint32

	EnableCompare    bool
	EnableAnisotropy bool
}

// DefaultSamplerInfo is a trilinear, repeating sampler for one mip level.
func DefaultSamplerInfo() SamplerInfo {
	return SamplerInfo{
		MinFilter: FilterLinear,
		MagFilter: FilterLinear,
		MipLevels: 1,
	}
}

// CreateInfo builds the driver description of the sampler.
func (s SamplerInfo) CreateInfo() vk.SamplerCreateInfo {
	return vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        s.MagFilter.ToVk(),
		MinFilter:        s.MinFilter.ToVk(),
		MipmapMode:       vk.SamplerMipmapModeLinear,
		AddressModeU:     s.AddressU.ToVk(),
		AddressModeV:     s.AddressV.ToVk(),
		AddressModeW:     s.AddressW.ToVk(),
		AnisotropyEnable: vkBool(s.EnableAnisotropy),
		MaxAnisotropy:    float32(s.Anisotropy),
		CompareEnable:    vkBool(s.EnableCompare),
		CompareOp:        s.Compare.ToVk(),
		MinLod:           0,
		MaxLod:           float32(s.MipLevels),
		BorderColor:      vk.BorderColorFloatOpaqueWhite,
	}
}

// SamplerCache creates each distinct sampler once and keeps it until
// the cache is destroyed. It is safe for concurrent use.
type SamplerCache struct {
	entry  DeviceEntry
	device vk.Device
	cache  *core.KeyedCache[SamplerInfo, vk.Sampler]
	life   *core.Lifetime
	log    logrus.FieldLogger
}

// NewSamplerCache creates an empty cache for device.
func NewSamplerCache(device *LogicalDevice, log logrus.FieldLogger) (*SamplerCache, error) {
	life, err := device.Lifetime().Acquire("sampler cache")
	if err != nil {
		return nil, err
	}
	return &SamplerCache{
		entry:  device.Entry(),
		device: device.Handle(),
		cache:  core.NewKeyedCache[SamplerInfo, vk.Sampler](16),
		life:   life,
		log:    componentLogger(log, "samplers"),
	}, nil
}

// GetOrCreate returns the sampler for info, creating it on first use.
func (c *SamplerCache) GetOrCreate(info SamplerInfo) (vk.Sampler, error) {
	return c.cache.GetOrCreate(info, c.create)
}

func (c *SamplerCache) create(info SamplerInfo) (vk.Sampler, error) {
	createInfo := info.CreateInfo()
	sampler, err := c.entry.CreateSampler(c.device, &createInfo)
	if err != nil {
		return nil, core.Mark(err, core.ErrResourceCreation, "create sampler")
	}
	c.log.WithField("info", info).Debug("sampler created")
	return sampler, nil
}

// Len returns the number of cached samplers.
func (c *SamplerCache) Len() int {
	return c.cache.Len()
}

// Destroy destroys every cached sampler.
func (c *SamplerCache) Destroy() error {
	if err := c.life.Release(); err != nil {
		return err
	}
	c.cache.Destroy(func(_ SamplerInfo, sampler vk.Sampler) {
		c.entry.DestroySampler(c.device, sampler)
	})
	c.log.Debug("sampler cache destroyed")
	return nil
}
