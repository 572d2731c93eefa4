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

	"github.com/devblok/koru/v2/gfx/vkr"
	"github.com/devblok/koru/v2/gfx/vkr/vkrtest"
)

type fakeResource struct {
	retired  uint64
	released int
	err      error
}

func (r *fakeResource) Retire(frame uint64)  { r.retired = frame }
func (r *fakeResource) RetiredFrame() uint64 { return r.retired }
func (r *fakeResource) Release() error {
	r.released++
	return r.err
}

func TestFramesInFlightPolicy(t *testing.T) {
	policy := vkr.FramesInFlightPolicy{FramesInFlight: 2}
	r := &fakeResource{retired: 10}

	require.False(t, policy.ShouldReclaim(r, 10))
	require.False(t, policy.ShouldReclaim(r, 11))
	require.True(t, policy.ShouldReclaim(r, 12))
	require.Equal(t, uint64(1), policy.Remaining(r, 11))
	require.Equal(t, uint64(0), policy.Remaining(r, 20))
}

func TestReclaimQueueSweep(t *testing.T) {
	q := vkr.NewReclaimQueue(vkr.FramesInFlightPolicy{FramesInFlight: 3})
	early, late := &fakeResource{}, &fakeResource{}
	q.Retire(early, 1)
	q.Retire(late, 3)
	require.Equal(t, 2, q.Pending())

	n, err := q.Sweep(3)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = q.Sweep(4)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, early.released)
	require.Zero(t, late.released)

	late.err = errors.New("still busy")
	n, err = q.Sweep(6)
	require.Error(t, err)
	require.Zero(t, n)
	require.Equal(t, 1, q.Pending())

	late.err = nil
	n, err = q.Sweep(7)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 2, late.released)
	require.Zero(t, q.Pending())
}

func TestReclaimQueueDrain(t *testing.T) {
	q := vkr.NewReclaimQueue(vkr.FramesInFlightPolicy{FramesInFlight: 100})
	a, b := &fakeResource{}, &fakeResource{}
	q.Retire(a, 0)
	q.Retire(b, 0)

	b.err = errors.New("still busy")
	require.Error(t, q.Drain())
	require.Equal(t, 1, a.released)
	require.Equal(t, 1, q.Pending())

	b.err = nil
	require.NoError(t, q.Drain())
	require.Equal(t, 1, a.released)
	require.Equal(t, 2, b.released)
	require.Zero(t, q.Pending())
}

func TestTextureReclaimCountdown(t *testing.T) {
	f := newTextureFixture(t)
	defer f.close(t)

	tex, err := f.texture(vkr.TextureInfo{Width: 8, Height: 8, Format: vk.FormatR8g8b8a8Unorm}, 0)
	require.NoError(t, err)

	q := vkr.NewReclaimQueue(vkr.FramesInFlightPolicy{FramesInFlight: 2})
	q.Retire(tex, 5)
	require.Equal(t, uint64(5), tex.RetiredFrame())
	require.Equal(t, uint32(2), tex.FramesUntilReclaim())

	n, err := q.Sweep(6)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, uint32(1), tex.FramesUntilReclaim())
	require.Equal(t, 1, f.entry.Live(vkrtest.KindImage))

	n, err = q.Sweep(7)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Zero(t, f.entry.Live(vkrtest.KindImage))
}
