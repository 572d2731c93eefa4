// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"io"
	"sort"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"

	"github.com/devblok/koru/v2/core"
	"github.com/devblok/koru/v2/gfx/vkr"
)

// Enumerate collects a report of every physical device of instance.
// surface may be nil, surface dependent fields are left empty then.
func Enumerate(entry vkr.InstanceEntry, instance vk.Instance, surface vk.Surface) (Report, error) {
	var (
		report Report
		err    error
	)
	if report.InstanceExtensions, err = entry.InstanceExtensions(); err != nil {
		return Report{}, errors.Wrap(err, "instance extensions")
	}
	if report.InstanceLayers, err = entry.InstanceLayers(); err != nil {
		return Report{}, errors.Wrap(err, "instance layers")
	}

	devices, err := entry.PhysicalDevices(instance)
	if err != nil {
		return Report{}, core.Mark(err, core.ErrNoSuitableDevice, "enumerate physical devices")
	}
	for _, pd := range devices {
		info, err := describe(entry, pd, surface)
		if err != nil {
			return Report{}, err
		}
		report.Devices = append(report.Devices, info)
	}
	return report, nil
}

func describe(entry vkr.InstanceEntry, pd vk.PhysicalDevice, surface vk.Surface) (PhysicalDeviceInfo, error) {
	props := entry.PhysicalDeviceProperties(pd)
	info := PhysicalDeviceInfo{
		ID:            int(props.DeviceID),
		VendorID:      int(props.VendorID),
		DriverVersion: versionString(props.DriverVersion),
		APIVersion:    versionString(props.ApiVersion),
		Name:          core.TrimNull(props.DeviceName[:]),
		Type:          deviceType(props.DeviceType),
	}

	extensions, err := entry.DeviceExtensions(pd)
	if err != nil {
		return info, errors.Wrapf(err, "extensions of %s", info.Name)
	}
	info.Extensions = extensions

	memory := entry.MemoryProperties(pd)
	for i := uint32(0); i < memory.MemoryHeapCount; i++ {
		info.MemoryHeaps = append(info.MemoryHeaps, memory.MemoryHeaps[i].Size)
		info.Memory += memory.MemoryHeaps[i].Size
	}

	for idx, family := range entry.QueueFamilies(pd) {
		q := QueueFamilyInfo{
			Index:    uint32(idx),
			Count:    family.QueueCount,
			Graphics: family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0,
			Compute:  family.QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0,
			Transfer: family.QueueFlags&vk.QueueFlags(vk.QueueTransferBit) != 0,
		}
		if surface != vk.NullSurface {
			if q.Present, err = entry.SurfaceSupport(pd, q.Index, surface); err != nil {
				return info, core.Mark(err, core.ErrSurface, "surface support of %s family %d", info.Name, idx)
			}
		}
		if q.Graphics && (q.Present || surface == vk.NullSurface) {
			info.Suitable = true
		}
		info.QueueFamilies = append(info.QueueFamilies, q)
	}

	features := vkr.NegotiateFeatures(entry.PhysicalDeviceFeatures(pd)).Base
	info.Features = map[string]bool{
		"textureCompressionETC2":            features.TextureCompressionETC2 == vk.True,
		"textureCompressionBC":              features.TextureCompressionBC == vk.True,
		"samplerAnisotropy":                 features.SamplerAnisotropy == vk.True,
		"tessellationShader":                features.TessellationShader == vk.True,
		"shaderStorageImageExtendedFormats": features.ShaderStorageImageExtendedFormats == vk.True,
		"multiDrawIndirect":                 features.MultiDrawIndirect == vk.True,
		"multiViewport":                     features.MultiViewport == vk.True,
		"depthClamp":                        features.DepthClamp == vk.True,
	}

	if surface == vk.NullSurface {
		return info, nil
	}
	formats, err := entry.SurfaceFormats(pd, surface)
	if err != nil {
		return info, core.Mark(err, core.ErrSurface, "surface formats of %s", info.Name)
	}
	for _, f := range formats {
		info.SurfaceFormats = append(info.SurfaceFormats, f.Format)
	}
	modes, err := entry.PresentModes(pd, surface)
	if err != nil {
		return info, core.Mark(err, core.ErrSurface, "present modes of %s", info.Name)
	}
	for _, m := range modes {
		info.PresentModes = append(info.PresentModes, presentMode(m))
	}
	return info, nil
}

// WriteJSON serializes the report to w.
func (r Report) WriteJSON(w io.Writer) error {
	jw := jwriter.NewWriter()
	obj := jw.Object()

	writeStrings(obj.Name("instanceExtensions"), r.InstanceExtensions)
	writeStrings(obj.Name("instanceLayers"), r.InstanceLayers)

	devices := obj.Name("devices").Array()
	for _, d := range r.Devices {
		dev := devices.Object()
		dev.Name("name").String(d.Name)
		dev.Name("type").String(d.Type)
		dev.Name("id").Int(d.ID)
		dev.Name("vendorId").Int(d.VendorID)
		dev.Name("driverVersion").String(d.DriverVersion)
		dev.Name("apiVersion").String(d.APIVersion)
		dev.Name("suitable").Bool(d.Suitable)
		dev.Name("memory").Float64(float64(d.Memory))

		heaps := dev.Name("memoryHeaps").Array()
		for _, size := range d.MemoryHeaps {
			heaps.Float64(float64(size))
		}
		heaps.End()

		families := dev.Name("queueFamilies").Array()
		for _, q := range d.QueueFamilies {
			f := families.Object()
			f.Name("index").Int(int(q.Index))
			f.Name("count").Int(int(q.Count))
			f.Name("graphics").Bool(q.Graphics)
			f.Name("compute").Bool(q.Compute)
			f.Name("transfer").Bool(q.Transfer)
			f.Name("present").Bool(q.Present)
			f.End()
		}
		families.End()

		features := dev.Name("features").Object()
		for _, name := range sortedKeys(d.Features) {
			features.Name(name).Bool(d.Features[name])
		}
		features.End()

		formats := dev.Name("surfaceFormats").Array()
		for _, f := range d.SurfaceFormats {
			formats.Int(int(f))
		}
		formats.End()

		writeStrings(dev.Name("presentModes"), d.PresentModes)
		writeStrings(dev.Name("extensions"), d.Extensions)
		dev.End()
	}
	devices.End()
	obj.End()

	if err := jw.Error(); err != nil {
		return errors.Wrap(err, "encode report")
	}
	_, err := w.Write(jw.Bytes())
	return errors.Wrap(err, "write report")
}

func writeStrings(w *jwriter.Writer, items []string) {
	arr := w.Array()
	for _, s := range items {
		arr.String(s)
	}
	arr.End()
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
