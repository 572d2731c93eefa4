// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package device produces diagnostic reports of the GPUs an instance
// can see. Reports are read only, nothing here creates a logical device.
package device

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion string
	APIVersion    string
	Name          string
	Type          string

	// Suitable is set for devices with a combined graphics and present
	// family. Without a surface it only requires graphics.
	Suitable bool

	Extensions     []string
	Memory         vk.DeviceSize
	MemoryHeaps    []vk.DeviceSize
	QueueFamilies  []QueueFamilyInfo
	Features       map[string]bool
	SurfaceFormats []vk.Format
	PresentModes   []string
}

// QueueFamilyInfo describes one queue family of a device.
type QueueFamilyInfo struct {
	Index    uint32
	Count    uint32
	Graphics bool
	Compute  bool
	Transfer bool
	Present  bool
}

// Report is the result of Enumerate.
type Report struct {
	InstanceExtensions []string
	InstanceLayers     []string
	Devices            []PhysicalDeviceInfo
}

func versionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>22, (v>>12)&0x3ff, v&0xfff)
}

func deviceType(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "other"
	}
}

func presentMode(m vk.PresentMode) string {
	switch m {
	case vk.PresentModeImmediate:
		return "immediate"
	case vk.PresentModeMailbox:
		return "mailbox"
	case vk.PresentModeFifo:
		return "fifo"
	case vk.PresentModeFifoRelaxed:
		return "fifo-relaxed"
	default:
		return fmt.Sprintf("unknown(%d)", m)
	}
}
