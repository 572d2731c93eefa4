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
	"github.com/devblok/koru/v2/gfx/vkr"
	"github.com/devblok/koru/v2/gfx/vkr/vkrtest"
)

func selectOn(t *testing.T, entry *vkrtest.Entry) (vkr.PhysicalDeviceChoice, error) {
	t.Helper()
	instance, err := entry.CreateInstance(&vk.InstanceCreateInfo{})
	require.NoError(t, err)
	surface, err := entry.NewSurface()
	require.NoError(t, err)
	return vkr.SelectPhysicalDevice(entry, instance, surface)
}

func TestSelectCombinedGraphicsPresent(t *testing.T) {
	entry := vkrtest.NewEntry()

	choice, err := selectOn(t, entry)
	require.NoError(t, err)
	require.True(t, entry.Devices[0].Handle() == choice.Device)
	require.Equal(t, uint32(2), choice.GraphicsIndex)
	require.Equal(t, uint32(2), choice.PresentIndex)
	require.Equal(t, uint32(1), choice.ComputeIndex)
}

func TestSelectComputeFallsBackToGraphics(t *testing.T) {
	entry := vkrtest.NewEntry()
	entry.Devices = []*vkrtest.PhysicalDevice{
		vkrtest.NewPhysicalDevice("gpu", []vk.QueueFamilyProperties{
			vkrtest.Family(vk.QueueTransferBit),
			vkrtest.Family(vk.QueueGraphicsBit, vk.QueueComputeBit),
		}, 1),
	}

	choice, err := selectOn(t, entry)
	require.NoError(t, err)
	require.Equal(t, uint32(1), choice.GraphicsIndex)
	require.Equal(t, uint32(1), choice.ComputeIndex)
}

func TestSelectHighestComputeFamily(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		vkrtest.Family(vk.QueueComputeBit),
		vkrtest.Family(vk.QueueGraphicsBit, vk.QueueComputeBit),
		vkrtest.Family(vk.QueueComputeBit, vk.QueueTransferBit),
		vkrtest.Family(vk.QueueTransferBit),
	}
	require.Equal(t, uint32(2), vkr.ChooseComputeIndex(families, 1))
	require.Equal(t, uint32(2), vkr.ChooseComputeIndex(families[:3], 1))
	require.Equal(t, uint32(0), vkr.ChooseComputeIndex(families[:2], 1))
}

func TestSelectSkipsDeviceWithoutPresent(t *testing.T) {
	entry := vkrtest.NewEntry()
	headless := vkrtest.NewPhysicalDevice("headless", []vk.QueueFamilyProperties{
		vkrtest.Family(vk.QueueGraphicsBit, vk.QueueComputeBit),
	})
	// graphics on 0, present only on a separate family 1
	split := vkrtest.NewPhysicalDevice("split", []vk.QueueFamilyProperties{
		vkrtest.Family(vk.QueueGraphicsBit),
		vkrtest.Family(vk.QueueTransferBit),
	}, 1)
	entry.Devices = append([]*vkrtest.PhysicalDevice{headless, split}, entry.Devices...)

	choice, err := selectOn(t, entry)
	require.NoError(t, err)
	require.True(t, entry.Devices[2].Handle() == choice.Device)
}

func TestSelectNoSuitableDevice(t *testing.T) {
	entry := vkrtest.NewEntry()
	entry.Devices = []*vkrtest.PhysicalDevice{
		vkrtest.NewPhysicalDevice("compute only", []vk.QueueFamilyProperties{
			vkrtest.Family(vk.QueueComputeBit),
		}, 0),
	}

	_, err := selectOn(t, entry)
	require.True(t, errors.Is(err, core.ErrNoSuitableDevice))

	entry.Devices = nil
	_, err = selectOn(t, entry)
	require.True(t, errors.Is(err, core.ErrNoSuitableDevice))
}

func TestSelectSurfaceSupportFailure(t *testing.T) {
	entry := vkrtest.NewEntry()
	entry.FailOn("SurfaceSupport", 0)

	_, err := selectOn(t, entry)
	require.True(t, errors.Is(err, core.ErrSurface))
}

func TestQueueCreateInfos(t *testing.T) {
	for _, tc := range []struct {
		name   string
		choice vkr.PhysicalDeviceChoice
		want   []uint32
	}{
		{"shared", vkr.PhysicalDeviceChoice{GraphicsIndex: 0, ComputeIndex: 0, PresentIndex: 0}, []uint32{0}},
		{"separate compute", vkr.PhysicalDeviceChoice{GraphicsIndex: 2, ComputeIndex: 1, PresentIndex: 2}, []uint32{2, 1}},
		{"all distinct", vkr.PhysicalDeviceChoice{GraphicsIndex: 0, ComputeIndex: 1, PresentIndex: 2}, []uint32{0, 1, 2}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			infos := vkr.QueueCreateInfos(tc.choice)
			var got []uint32
			for _, info := range infos {
				got = append(got, info.QueueFamilyIndex)
				require.Equal(t, uint32(1), info.QueueCount)
				require.Equal(t, []float32{1.0}, info.PQueuePriorities)
			}
			require.Equal(t, tc.want, got)
		})
	}
}

func TestLogicalDeviceFeatures(t *testing.T) {
	f := newFixture(t)
	defer f.close(t)

	require.Len(t, f.entry.DeviceRequests, 1)
	req := f.entry.DeviceRequests[0]
	require.Equal(t, vkr.RequiredDeviceExtensions, req.Extensions)
	require.Len(t, req.Queues, 2)

	// only what the hardware reports is enabled
	require.Equal(t, vk.Bool32(vk.True), req.Features.Base.SamplerAnisotropy)
	require.Equal(t, vk.Bool32(vk.True), req.Features.Base.DepthClamp)
	require.Equal(t, vk.Bool32(vk.False), req.Features.Base.TessellationShader)
	require.True(t, req.Features.DescriptorIndexing)
	require.True(t, req.Features.RobustImageAccess)
	require.True(t, req.Features.Multiview)

	require.True(t, f.device.GraphicsQueue() == f.device.PresentQueue())
	require.False(t, f.device.GraphicsQueue() == f.device.ComputeQueue())
}

func TestLogicalDeviceCreationFailure(t *testing.T) {
	entry := vkrtest.NewEntry()
	instance, err := vkr.NewInstance(entry, vkr.InstanceConfig{}, nil)
	require.NoError(t, err)

	entry.FailOn("CreateDevice", 0)
	_, err = vkr.NewLogicalDevice(instance, vkr.PhysicalDeviceChoice{Device: entry.Devices[0].Handle()}, vkr.DeviceOptions{}, nil)
	require.True(t, errors.Is(err, core.ErrDeviceCreation))

	// nothing was left registered under the instance
	require.NoError(t, instance.Destroy())
	require.Zero(t, entry.LiveTotal())
}

func TestInstanceValidationLayer(t *testing.T) {
	entry := vkrtest.NewEntry()
	instance, err := vkr.NewInstance(entry, vkr.InstanceConfig{
		Extensions: []string{"VK_KHR_surface", "VK_KHR_surface"},
		Validation: true,
	}, nil)
	require.NoError(t, err)
	defer instance.Destroy()

	info := entry.InstanceInfos[0]
	require.Equal(t, []string{vkr.ValidationLayer + "\x00"}, info.PpEnabledLayerNames)
	require.Equal(t, []string{"VK_KHR_surface"}, instance.Extensions())
}
