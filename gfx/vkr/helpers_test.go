// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devblok/koru/v2/gfx/vkr"
	"github.com/devblok/koru/v2/gfx/vkr/vkrtest"
)

type fixture struct {
	entry    *vkrtest.Entry
	instance *vkr.Instance
	device   *vkr.LogicalDevice
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	entry := vkrtest.NewEntry()
	instance, err := vkr.NewInstance(entry, vkr.InstanceConfig{AppName: "test"}, nil)
	require.NoError(t, err)

	surface, err := entry.NewSurface()
	require.NoError(t, err)
	instance.AttachSurface(surface)

	choice, err := vkr.SelectPhysicalDevice(entry, instance.Handle(), surface)
	require.NoError(t, err)

	device, err := vkr.NewLogicalDevice(instance, choice, vkr.DeviceOptions{}, nil)
	require.NoError(t, err)

	return &fixture{entry: entry, instance: instance, device: device}
}

func (f *fixture) close(t *testing.T) {
	t.Helper()
	require.NoError(t, f.device.Destroy())
	require.NoError(t, f.instance.Destroy())
	require.Zero(t, f.entry.LiveTotal())
	require.Empty(t, f.entry.Misuse)
}
