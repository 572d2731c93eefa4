// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import vk "github.com/goki/vulkan"

// TextureKind is the shape of a texture.
type TextureKind int

// Texture kinds.
const (
	Plain2D TextureKind = iota
	Array2D
	Cube2D
	CubeArray2D
)

func (k TextureKind) String() string {
	switch k {
	case Array2D:
		return "array"
	case Cube2D:
		return "cube"
	case CubeArray2D:
		return "cube-array"
	}
	return "plain"
}

// IsDepthFormat reports formats with a depth component.
func IsDepthFormat(format vk.Format) bool {
	switch format {
	case vk.FormatD16Unorm, vk.FormatX8D24UnormPack32, vk.FormatD32Sfloat,
		vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}

// IsStencilFormat reports formats with a stencil component.
func IsStencilFormat(format vk.Format) bool {
	switch format {
	case vk.FormatS8Uint, vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}

// AspectMask selects depth and stencil aspects for depth formats and
// the color aspect for everything else.
func AspectMask(format vk.Format) vk.ImageAspectFlags {
	var mask vk.ImageAspectFlags
	if IsDepthFormat(format) {
		mask |= vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	if IsStencilFormat(format) {
		mask |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	if mask == 0 {
		mask = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	return mask
}

// InitialLayout is the layout a texture is expected to be in when used.
// Command recording must transition to it.
func InitialLayout(format vk.Format, usage vk.ImageUsageFlags) vk.ImageLayout {
	switch {
	case IsDepthFormat(format) || IsStencilFormat(format):
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case usage&vk.ImageUsageFlags(vk.ImageUsageStorageBit) != 0:
		return vk.ImageLayoutGeneral
	}
	return vk.ImageLayoutShaderReadOnlyOptimal
}

// ArrayLayers is the layer count of the image behind a texture.
func ArrayLayers(kind TextureKind, requested uint32) uint32 {
	switch kind {
	case Array2D:
		return requested
	case Cube2D:
		return 6
	case CubeArray2D:
		return 6 * requested
	}
	return 1
}

// ViewType is the view type matching kind.
func ViewType(kind TextureKind) vk.ImageViewType {
	switch kind {
	case Array2D:
		return vk.ImageViewType2dArray
	case Cube2D:
		return vk.ImageViewTypeCube
	case CubeArray2D:
		return vk.ImageViewTypeCubeArray
	}
	return vk.ImageViewType2d
}

// BytesPerTexel returns the size of an uncompressed texel, 0 if unknown.
func BytesPerTexel(format vk.Format) uint32 {
	switch format {
	case vk.FormatR8Unorm, vk.FormatS8Uint:
		return 1
	case vk.FormatR8g8Unorm, vk.FormatD16Unorm:
		return 2
	case vk.FormatR8g8b8a8Unorm, vk.FormatR8g8b8a8Srgb, vk.FormatB8g8r8a8Unorm, vk.FormatB8g8r8a8Srgb,
		vk.FormatD32Sfloat, vk.FormatD24UnormS8Uint, vk.FormatX8D24UnormPack32:
		return 4
	case vk.FormatR16g16b16a16Sfloat, vk.FormatD32SfloatS8Uint:
		return 8
	case vk.FormatR32g32b32a32Sfloat:
		return 16
	}
	return 0
}
