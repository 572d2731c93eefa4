// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/devblok/koru/v2/core"
)

func TestHandleSentinel(t *testing.T) {
	var c core.Container[string]

	h := core.InvalidHandle[string]()
	require.False(t, h.IsValid())

	_, err := c.Get(h)
	require.True(t, errors.Is(err, core.ErrInvalidHandle))

	h = c.Insert("first")
	require.True(t, h.IsValid())
	require.Equal(t, uint32(0), h.ID())

	h.Invalidate()
	require.False(t, h.IsValid())
}

func TestContainerStaleHandle(t *testing.T) {
	var c core.Container[string]

	a := c.Insert("a")
	b := c.Insert("b")
	require.Equal(t, 2, c.Len())

	v, err := c.Remove(a)
	require.NoError(t, err)
	require.Equal(t, "a", v)

	_, err = c.Get(a)
	require.True(t, errors.Is(err, core.ErrInvalidHandle))

	// the slot is reused, the old handle stays stale
	a2 := c.Insert("a2")
	require.Equal(t, a.ID(), a2.ID())
	_, err = c.Get(a)
	require.True(t, errors.Is(err, core.ErrInvalidHandle))

	v, err = c.Get(a2)
	require.NoError(t, err)
	require.Equal(t, "a2", v)

	require.NoError(t, c.Replace(b, "b2"))
	v, err = c.Get(b)
	require.NoError(t, err)
	require.Equal(t, "b2", v)

	var seen []string
	c.Each(func(_ core.Handle[string], s string) { seen = append(seen, s) })
	require.Equal(t, []string{"a2", "b2"}, seen)
}

func TestContainerForeignHandle(t *testing.T) {
	var small, big core.Container[int]
	for i := 0; i < 4; i++ {
		big.Insert(i)
	}
	h := big.Insert(4)

	_, err := small.Get(h)
	require.True(t, errors.Is(err, core.ErrInvalidHandle))
	require.Error(t, small.Replace(h, 1))
	_, err = small.Remove(h)
	require.Error(t, err)
}
