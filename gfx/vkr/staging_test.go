// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devblok/koru/v2/gfx/vkr"
	"github.com/devblok/koru/v2/gfx/vkr/vkrtest"
)

func newStaging(t *testing.T) (*fixture, *vkr.Allocator, *vkr.StagingPool) {
	f := newFixture(t)
	allocator, err := vkr.NewAllocator(f.instance, f.device, nil)
	require.NoError(t, err)
	return f, allocator, vkr.NewStagingPool(allocator, nil)
}

func TestStagingReuse(t *testing.T) {
	f, allocator, pool := newStaging(t)

	small, err := pool.Acquire(64)
	require.NoError(t, err)
	big, err := pool.Acquire(4096)
	require.NoError(t, err)
	pool.Release(big)
	pool.Release(small)

	again, err := pool.Acquire(32)
	require.NoError(t, err)
	require.Same(t, small, again)

	again, err = pool.Acquire(1000)
	require.NoError(t, err)
	require.Same(t, big, again)

	_, err = pool.Acquire(8192)
	require.NoError(t, err)
	require.Equal(t, 3, f.entry.Live(vkrtest.KindBuffer))

	require.Error(t, small.Write(60, make([]byte, 8)))

	require.NoError(t, pool.Destroy())
	require.NoError(t, allocator.Destroy())
	f.close(t)
}

func TestStageImage(t *testing.T) {
	f, allocator, pool := newStaging(t)

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 20, A: 255})
		}
	}

	buf, regions, err := pool.StageImage(img, 3)
	require.NoError(t, err)
	require.Equal(t, []vkr.MipRegion{
		{Level: 0, Offset: 0, Size: 64, Width: 4, Height: 4},
		{Level: 1, Offset: 64, Size: 16, Width: 2, Height: 2},
		{Level: 2, Offset: 80, Size: 4, Width: 1, Height: 1},
	}, regions)
	require.Equal(t, 84, int(buf.Size()))

	data := buf.Bytes()
	require.Equal(t, img.Pix, data[:64])
	require.Equal(t, []byte{200, 10, 20, 255}, data[80:84])

	pool.Release(buf)
	require.NoError(t, pool.Destroy())
	require.NoError(t, allocator.Destroy())
	f.close(t)
}

func TestStageImageFullChain(t *testing.T) {
	f, allocator, pool := newStaging(t)

	buf, regions, err := pool.StageImage(image.NewRGBA(image.Rect(0, 0, 8, 2)), 0)
	require.NoError(t, err)
	require.Len(t, regions, 4)
	require.Equal(t, uint32(1), regions[3].Width)
	require.Equal(t, uint32(1), regions[3].Height)
	require.Equal(t, 64+16+8+4, int(buf.Size()))

	require.NoError(t, pool.Destroy())
	require.NoError(t, allocator.Destroy())
	f.close(t)
}
