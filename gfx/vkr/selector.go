// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	vk "github.com/goki/vulkan"

	"github.com/devblok/koru/v2/core"
)

// PhysicalDeviceChoice is the result of device selection.
type PhysicalDeviceChoice struct {
	Device vk.PhysicalDevice

	GraphicsIndex uint32
	ComputeIndex  uint32
	PresentIndex  uint32
}

// SelectPhysicalDevice picks the first device with a queue family that
// supports both graphics and presentation to surface. Devices that can
// only present from a separate family are not considered.
func SelectPhysicalDevice(entry InstanceEntry, instance vk.Instance, surface vk.Surface) (PhysicalDeviceChoice, error) {
	devices, err := entry.PhysicalDevices(instance)
	if err != nil {
		return PhysicalDeviceChoice{}, core.Mark(err, core.ErrNoSuitableDevice, "enumerate physical devices")
	}

	for _, pd := range devices {
		families := entry.QueueFamilies(pd)
		for idx, family := range families {
			if family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
				continue
			}
			supported, err := entry.SurfaceSupport(pd, uint32(idx), surface)
			if err != nil {
				return PhysicalDeviceChoice{}, core.Mark(err, core.ErrSurface, "surface support for family %d", idx)
			}
			if !supported {
				continue
			}

			graphics := uint32(idx)
			return PhysicalDeviceChoice{
				Device:        pd,
				GraphicsIndex: graphics,
				ComputeIndex:  ChooseComputeIndex(families, graphics),
				PresentIndex:  ChoosePresentIndex(graphics),
			}, nil
		}
	}
	return PhysicalDeviceChoice{}, core.Newf(core.ErrNoSuitableDevice,
		"none of %d devices has a combined graphics and present queue", len(devices))
}

// ChooseComputeIndex returns the highest family index with compute
// support other than graphics, or graphics when there is none.
func ChooseComputeIndex(families []vk.QueueFamilyProperties, graphics uint32) uint32 {
	compute := graphics
	for idx, family := range families {
		if uint32(idx) != graphics && family.QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			compute = uint32(idx)
		}
	}
	return compute
}

// ChoosePresentIndex always presents from the graphics family, which
// selection already proved to support the surface.
func ChoosePresentIndex(graphics uint32) uint32 {
	return graphics
}

// QueueCreateInfos requests one queue with priority 1.0 per distinct family.
func QueueCreateInfos(choice PhysicalDeviceChoice) []vk.DeviceQueueCreateInfo {
	var infos []vk.DeviceQueueCreateInfo
	seen := map[uint32]bool{}
	for _, family := range []uint32{choice.GraphicsIndex, choice.ComputeIndex, choice.PresentIndex} {
		if seen[family] {
			continue
		}
		seen[family] = true
		infos = append(infos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}
	return infos
}
