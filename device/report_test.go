// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblok/koru/v2/core"
	"github.com/devblok/koru/v2/device"
	"github.com/devblok/koru/v2/gfx/vkr/vkrtest"
)

func TestEnumerateHeadless(t *testing.T) {
	entry := vkrtest.NewEntry()
	entry.Devices = append(entry.Devices, vkrtest.NewPhysicalDevice("Compute Only",
		[]vk.QueueFamilyProperties{vkrtest.Family(vk.QueueComputeBit)}))

	report, err := device.Enumerate(entry, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"VK_KHR_surface"}, report.InstanceExtensions)
	require.Len(t, report.Devices, 2)

	gpu := report.Devices[0]
	assert.Equal(t, "Fake GPU", gpu.Name)
	assert.Equal(t, "discrete", gpu.Type)
	assert.Equal(t, "1.3.0", gpu.APIVersion)
	assert.True(t, gpu.Suitable)
	assert.Equal(t, vk.DeviceSize(12<<30), gpu.Memory)
	assert.Len(t, gpu.QueueFamilies, 3)
	assert.True(t, gpu.QueueFamilies[2].Graphics)
	assert.False(t, gpu.QueueFamilies[2].Present)
	assert.True(t, gpu.Features["samplerAnisotropy"])
	assert.False(t, gpu.Features["tessellationShader"])
	assert.Empty(t, gpu.PresentModes)

	assert.False(t, report.Devices[1].Suitable)
}

func TestEnumerateSurface(t *testing.T) {
	entry := vkrtest.NewEntry()
	surface, err := entry.NewSurface()
	require.NoError(t, err)

	report, err := device.Enumerate(entry, nil, surface)
	require.NoError(t, err)

	gpu := report.Devices[0]
	assert.True(t, gpu.Suitable)
	assert.True(t, gpu.QueueFamilies[2].Present)
	assert.False(t, gpu.QueueFamilies[0].Present)
	assert.Equal(t, []vk.Format{vk.FormatB8g8r8a8Unorm}, gpu.SurfaceFormats)
	assert.Equal(t, []string{"fifo", "mailbox"}, gpu.PresentModes)

	entry.FailOn("SurfaceFormats", 0)
	_, err = device.Enumerate(entry, nil, surface)
	require.True(t, errors.Is(err, core.ErrSurface))
}

func TestEnumerateFailure(t *testing.T) {
	entry := vkrtest.NewEntry()
	entry.FailOn("PhysicalDevices", 0)

	_, err := device.Enumerate(entry, nil, nil)
	require.True(t, errors.Is(err, core.ErrNoSuitableDevice))
}

func TestReportWriteJSON(t *testing.T) {
	entry := vkrtest.NewEntry()
	surface, err := entry.NewSurface()
	require.NoError(t, err)
	report, err := device.Enumerate(entry, nil, surface)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf))

	var decoded struct {
		InstanceExtensions []string `json:"instanceExtensions"`
		Devices            []struct {
			Name          string  `json:"name"`
			Suitable      bool    `json:"suitable"`
			Memory        float64 `json:"memory"`
			QueueFamilies []struct {
				Index   int  `json:"index"`
				Present bool `json:"present"`
			} `json:"queueFamilies"`
			Features     map[string]bool `json:"features"`
			PresentModes []string        `json:"presentModes"`
			Extensions   []string        `json:"extensions"`
		} `json:"devices"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Devices, 1)

	gpu := decoded.Devices[0]
	assert.Equal(t, "Fake GPU", gpu.Name)
	assert.True(t, gpu.Suitable)
	assert.Equal(t, float64(12<<30), gpu.Memory)
	assert.Len(t, gpu.QueueFamilies, 3)
	assert.True(t, gpu.QueueFamilies[2].Present)
	assert.True(t, gpu.Features["depthClamp"])
	assert.Equal(t, []string{"fifo", "mailbox"}, gpu.PresentModes)
	assert.Contains(t, gpu.Extensions, "VK_KHR_swapchain")
}
