// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/require"

	"github.com/devblok/koru/v2/core"
	"github.com/devblok/koru/v2/gfx"
	"github.com/devblok/koru/v2/gfx/vkr"
	"github.com/devblok/koru/v2/gfx/vkr/vkrtest"
)

type textureFixture struct {
	*fixture
	allocator *vkr.Allocator
	samplers  *vkr.SamplerCache
}

func newTextureFixture(t *testing.T) *textureFixture {
	f := newFixture(t)
	allocator, err := vkr.NewAllocator(f.instance, f.device, nil)
	require.NoError(t, err)
	samplers, err := vkr.NewSamplerCache(f.device, nil)
	require.NoError(t, err)
	return &textureFixture{fixture: f, allocator: allocator, samplers: samplers}
}

func (f *textureFixture) close(t *testing.T) {
	require.NoError(t, f.samplers.Destroy())
	require.NoError(t, f.allocator.Destroy())
	f.fixture.close(t)
}

func (f *textureFixture) texture(info vkr.TextureInfo, usage vk.ImageUsageFlags) (*vkr.Texture, error) {
	return vkr.NewTexture(info, usage, f.allocator, f.device, f.samplers, vkr.DefaultSamplerInfo(), nil)
}

func TestTextureViews(t *testing.T) {
	f := newTextureFixture(t)
	defer f.close(t)

	tex, err := f.texture(vkr.TextureInfo{Width: 256, Height: 256, MipLevels: 4, Format: vk.FormatR8g8b8a8Unorm}, 0)
	require.NoError(t, err)
	require.Len(t, tex.Views(), 4)

	views := f.entry.ViewInfos
	require.Equal(t, uint32(0), views[0].SubresourceRange.BaseMipLevel)
	require.Equal(t, uint32(4), views[0].SubresourceRange.LevelCount)
	for level := 1; level < 4; level++ {
		require.Equal(t, uint32(level), views[level].SubresourceRange.BaseMipLevel)
		require.Equal(t, uint32(1), views[level].SubresourceRange.LevelCount)
	}

	require.Equal(t, gfx.Extent3D{Width: 32, Height: 32, Depth: 1}, tex.MipExtent(3))

	single, err := f.texture(vkr.TextureInfo{Width: 16, Height: 16, Format: vk.FormatR8g8b8a8Unorm}, 0)
	require.NoError(t, err)
	require.Len(t, single.Views(), 1)
	require.Equal(t, uint32(1), single.Info().MipLevels)

	// both textures borrow the same cached sampler
	require.True(t, tex.Sampler() == single.Sampler())
	require.Equal(t, 1, f.samplers.Len())

	require.NoError(t, tex.Release())
	require.NoError(t, single.Release())
	require.Zero(t, f.entry.Live(vkrtest.KindImageView))
	require.Equal(t, 1, f.entry.Live(vkrtest.KindSampler))
}

func TestTextureImage(t *testing.T) {
	f := newTextureFixture(t)
	defer f.close(t)

	tex, err := f.texture(vkr.TextureInfo{Width: 64, Height: 64, ArrayLayers: 5, Format: vk.FormatR8g8b8a8Unorm, Kind: vkr.Cube2D},
		vk.ImageUsageFlags(vk.ImageUsageSampledBit))
	require.NoError(t, err)
	defer tex.Release()

	image := f.entry.ImageInfos[0]
	require.Equal(t, uint32(6), image.ArrayLayers)
	require.NotZero(t, image.Flags&vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit))
	require.NotZero(t, image.Usage&vk.ImageUsageFlags(vk.ImageUsageTransferDstBit))
	require.NotZero(t, image.Usage&vk.ImageUsageFlags(vk.ImageUsageSampledBit))
	require.Equal(t, vk.ImageTilingOptimal, image.Tiling)

	view := f.entry.ViewInfos[0]
	require.Equal(t, vk.ImageViewTypeCube, view.ViewType)
	require.Equal(t, uint32(6), view.SubresourceRange.LayerCount)
	require.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, tex.Layout())
	require.Zero(t, tex.FramesUntilReclaim())
}

func TestArrayLayers(t *testing.T) {
	require.Equal(t, uint32(1), vkr.ArrayLayers(vkr.Plain2D, 9))
	require.Equal(t, uint32(9), vkr.ArrayLayers(vkr.Array2D, 9))
	require.Equal(t, uint32(6), vkr.ArrayLayers(vkr.Cube2D, 5))
	require.Equal(t, uint32(18), vkr.ArrayLayers(vkr.CubeArray2D, 3))

	require.Equal(t, vk.ImageViewType2d, vkr.ViewType(vkr.Plain2D))
	require.Equal(t, vk.ImageViewType2dArray, vkr.ViewType(vkr.Array2D))
	require.Equal(t, vk.ImageViewTypeCubeArray, vkr.ViewType(vkr.CubeArray2D))
}

func TestAspectAndLayout(t *testing.T) {
	depthStencil := vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	require.Equal(t, depthStencil, vkr.AspectMask(vk.FormatD32SfloatS8Uint))
	require.Equal(t, depthStencil, vkr.AspectMask(vk.FormatD24UnormS8Uint))
	require.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit), vkr.AspectMask(vk.FormatD32Sfloat))
	require.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit), vkr.AspectMask(vk.FormatD16Unorm))
	require.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), vkr.AspectMask(vk.FormatR8g8b8a8Unorm))

	storage := vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	require.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, vkr.InitialLayout(vk.FormatD32Sfloat, storage))
	require.Equal(t, vk.ImageLayoutGeneral, vkr.InitialLayout(vk.FormatR8g8b8a8Unorm, storage))
	require.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, vkr.InitialLayout(vk.FormatR8g8b8a8Unorm, 0))
}

func TestBytesPerTexel(t *testing.T) {
	require.Equal(t, uint32(4), vkr.BytesPerTexel(vkr.StagedFormat))
	require.Equal(t, uint32(1), vkr.BytesPerTexel(vk.FormatR8Unorm))
	require.Equal(t, uint32(8), vkr.BytesPerTexel(vk.FormatR16g16b16a16Sfloat))
	require.Equal(t, uint32(16), vkr.BytesPerTexel(vk.FormatR32g32b32a32Sfloat))
	require.Zero(t, vkr.BytesPerTexel(vk.FormatBc1RgbUnormBlock))
}

func TestTextureAllOrNothing(t *testing.T) {
	f := newTextureFixture(t)
	defer f.close(t)

	// the third view fails after the image and two views exist
	f.entry.FailOn("CreateImageView", 2)
	_, err := f.texture(vkr.TextureInfo{Width: 32, Height: 32, MipLevels: 4, Format: vk.FormatR8g8b8a8Unorm}, 0)
	require.True(t, errors.Is(err, core.ErrResourceCreation))

	require.Zero(t, f.entry.Live(vkrtest.KindImage))
	require.Zero(t, f.entry.Live(vkrtest.KindImageView))
	require.Zero(t, f.entry.Live(vkrtest.KindMemory))
	require.Zero(t, f.allocator.Outstanding())

	f.entry.FailOn("CreateSampler", 0)
	_, err = f.texture(vkr.TextureInfo{Width: 32, Height: 32, Format: vk.FormatR8g8b8a8Unorm}, 0)
	require.True(t, errors.Is(err, core.ErrResourceCreation))
	require.Zero(t, f.entry.Live(vkrtest.KindImage))
	require.Zero(t, f.entry.Live(vkrtest.KindImageView))

	f.entry.FailOn("AllocateMemory", 0)
	_, err = f.texture(vkr.TextureInfo{Width: 32, Height: 32, Format: vk.FormatR8g8b8a8Unorm}, 0)
	require.True(t, errors.Is(err, core.ErrResourceCreation))
	require.Zero(t, f.entry.Live(vkrtest.KindImage))

	_, err = f.texture(vkr.TextureInfo{Format: vk.FormatR8g8b8a8Unorm}, 0)
	require.True(t, errors.Is(err, core.ErrResourceCreation))
}
