// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr_test

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/require"

	"github.com/devblok/koru/v2/core"
	"github.com/devblok/koru/v2/gfx/vkr"
	"github.com/devblok/koru/v2/gfx/vkr/vkrtest"
)

func TestSamplerCacheReuse(t *testing.T) {
	f := newFixture(t)
	defer f.close(t)

	cache, err := vkr.NewSamplerCache(f.device, nil)
	require.NoError(t, err)

	a := vkr.DefaultSamplerInfo()
	first, err := cache.GetOrCreate(a)
	require.NoError(t, err)
	again, err := cache.GetOrCreate(a)
	require.NoError(t, err)
	require.True(t, first == again)
	require.Equal(t, 1, cache.Len())

	variants := []func(*vkr.SamplerInfo){
		func(s *vkr.SamplerInfo) { s.MinFilter = vkr.FilterNearest },
		func(s *vkr.SamplerInfo) { s.MagFilter = vkr.FilterCubic },
		func(s *vkr.SamplerInfo) { s.AddressU = vkr.AddressClampToEdge },
		func(s *vkr.SamplerInfo) { s.AddressV = vkr.AddressMirroredRepeat },
		func(s *vkr.SamplerInfo) { s.AddressW = vkr.AddressClampToBorder },
		func(s *vkr.SamplerInfo) { s.Compare = vkr.CompareLess },
		func(s *vkr.SamplerInfo) { s.Anisotropy = 16 },
		func(s *vkr.SamplerInfo) { s.MipLevels = 8 },
		func(s *vkr.SamplerInfo) { s.EnableCompare = true },
		func(s *vkr.SamplerInfo) { s.EnableAnisotropy = true },
	}
	seen := map[vk.Sampler]bool{first: true}
	for i, vary := range variants {
		info := a
		vary(&info)
		sampler, err := cache.GetOrCreate(info)
		require.NoError(t, err)
		require.False(t, seen[sampler], "variant %d shares a sampler", i)
		seen[sampler] = true
	}
	require.Equal(t, len(variants)+1, cache.Len())

	require.NoError(t, cache.Destroy())
	require.Zero(t, f.entry.Live(vkrtest.KindSampler))
}

func TestSamplerCacheConcurrent(t *testing.T) {
	f := newFixture(t)
	defer f.close(t)

	cache, err := vkr.NewSamplerCache(f.device, nil)
	require.NoError(t, err)

	infos := []vkr.SamplerInfo{vkr.DefaultSamplerInfo(), {MipLevels: 4}, {Anisotropy: 8, EnableAnisotropy: true}}
	results := make([][]vk.Sampler, 16)
	var wg sync.WaitGroup
	for g := range results {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for _, info := range infos {
				s, err := cache.GetOrCreate(info)
				if err != nil {
					return
				}
				results[g] = append(results[g], s)
			}
		}(g)
	}
	wg.Wait()

	for g, r := range results {
		require.Len(t, r, len(infos), "goroutine %d", g)
		for i := range r {
			require.True(t, r[i] == results[0][i], "goroutine %d sampler %d", g, i)
		}
	}
	require.Equal(t, 3, cache.Len())
	require.Equal(t, 3, f.entry.Live(vkrtest.KindSampler))
	require.NoError(t, cache.Destroy())
}

func TestSamplerCreateInfo(t *testing.T) {
	info := vkr.SamplerInfo{
		MinFilter:        vkr.FilterLinear,
		MagFilter:        vkr.FilterNearest,
		AddressU:         vkr.AddressMirrorClampToEdge,
		Compare:          vkr.CompareGreaterOrEqual,
		Anisotropy:       4,
		MipLevels:        6,
		EnableCompare:    true,
		EnableAnisotropy: true,
	}.CreateInfo()

	require.Equal(t, vk.FilterLinear, info.MinFilter)
	require.Equal(t, vk.FilterNearest, info.MagFilter)
	require.Equal(t, vk.SamplerAddressModeMirrorClampToEdge, info.AddressModeU)
	require.Equal(t, vk.SamplerAddressModeRepeat, info.AddressModeV)
	require.Equal(t, vk.CompareOpGreaterOrEqual, info.CompareOp)
	require.Equal(t, float32(4), info.MaxAnisotropy)
	require.Equal(t, float32(6), info.MaxLod)
	require.Equal(t, vk.Bool32(vk.True), info.CompareEnable)
	require.Equal(t, vk.BorderColorFloatOpaqueWhite, info.BorderColor)
	require.Equal(t, vk.SamplerMipmapModeLinear, info.MipmapMode)
}

func TestSamplerCacheCreateFailure(t *testing.T) {
	f := newFixture(t)
	defer f.close(t)

	cache, err := vkr.NewSamplerCache(f.device, nil)
	require.NoError(t, err)
	defer cache.Destroy()

	f.entry.FailOn("CreateSampler", 0)
	_, err = cache.GetOrCreate(vkr.DefaultSamplerInfo())
	require.True(t, errors.Is(err, core.ErrResourceCreation))
	require.Zero(t, cache.Len())

	_, err = cache.GetOrCreate(vkr.DefaultSamplerInfo())
	require.NoError(t, err)
}
