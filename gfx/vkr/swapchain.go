// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/sirupsen/logrus"

	"github.com/devblok/koru/v2/core"
)

// SwapchainState tracks whether a swapchain can still present.
type SwapchainState int

// Swapchain states.
const (
	SwapchainValid SwapchainState = iota
	// SwapchainOutOfDate needs a replacement built from the old chain
	SwapchainOutOfDate
	// SwapchainLost needs the surface rebuilt as well
	SwapchainLost
)

func (s SwapchainState) String() string {
	switch s {
	case SwapchainValid:
		return "valid"
	case SwapchainOutOfDate:
		return "out-of-date"
	case SwapchainLost:
		return "lost"
	}
	return "unknown"
}

// ChooseSurfaceFormat prefers BGRA8 with a nonlinear sRGB color space.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	preferred := vk.SurfaceFormat{
		Format:     vk.FormatB8g8r8a8Unorm,
		ColorSpace: vk.ColorSpaceSrgbNonlinear,
	}

	if len(formats) == 0 {
		return vk.SurfaceFormat{}, core.Newf(core.ErrSwapchain, "surface reports no formats")
	}
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return preferred, nil
	}
	for _, f := range formats {
		if f.Format == preferred.Format && f.ColorSpace == preferred.ColorSpace {
			return f, nil
		}
	}
	return formats[0], nil
}

// ChoosePresentMode picks mailbox, then fifo, then immediate. A surface
// reporting none of them gets its first mode, never one it lacks.
func ChoosePresentMode(modes []vk.PresentMode) (vk.PresentMode, error) {
	if len(modes) == 0 {
		return vk.PresentModeFifo, core.Newf(core.ErrSwapchain, "surface reports no present modes")
	}
	for _, preferred := range []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeFifo, vk.PresentModeImmediate} {
		for _, m := range modes {
			if m == preferred {
				return m, nil
			}
		}
	}
	return modes[0], nil
}

// ChooseExtent uses the surface extent, or clamps the requested size
// when the surface leaves it to the swapchain.
func ChooseExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image above the minimum, capped by
// the maximum when there is one.
func ChooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// ChooseCompositeAlpha prefers inheriting alpha from the window system.
func ChooseCompositeAlpha(caps vk.SurfaceCapabilities) vk.CompositeAlphaFlagBits {
	if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit) != 0 {
		return vk.CompositeAlphaInheritBit
	}
	return vk.CompositeAlphaOpaqueBit
}

// ChooseSharingMode is exclusive when one family does both jobs.
func ChooseSharingMode(graphics, present uint32) (vk.SharingMode, []uint32) {
	if graphics == present {
		return vk.SharingModeExclusive, nil
	}
	return vk.SharingModeConcurrent, []uint32{graphics, present}
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Swapchain is an immutable chain of presentable images. A resize
// builds a replacement instead of changing it.
type Swapchain struct {
	entry  Entry
	device vk.Device

	swapchain   vk.Swapchain
	images      []vk.Image
	format      vk.SurfaceFormat
	presentMode vk.PresentMode
	extent      vk.Extent2D

	state SwapchainState
	life  *core.Lifetime
	log   logrus.FieldLogger
}

// NewSwapchain negotiates and creates a swapchain for surface. A non nil
// old chain is handed to the driver for resource reuse; it stays owned
// by the caller and must be destroyed once the GPU is done with it.
func NewSwapchain(instance *Instance, device *LogicalDevice, surface vk.Surface, width, height uint32, old *Swapchain, log logrus.FieldLogger) (*Swapchain, error) {
	log = componentLogger(log, "swapchain")
	entry := instance.Entry()
	pd := device.Choice().Device

	caps, err := entry.SurfaceCapabilities(pd, surface)
	if err != nil {
		return nil, core.Mark(err, core.ErrSurface, "surface capabilities")
	}
	formats, err := entry.SurfaceFormats(pd, surface)
	if err != nil {
		return nil, core.Mark(err, core.ErrSurface, "surface formats")
	}
	modes, err := entry.PresentModes(pd, surface)
	if err != nil {
		return nil, core.Mark(err, core.ErrSurface, "present modes")
	}

	format, err := ChooseSurfaceFormat(formats)
	if err != nil {
		return nil, err
	}
	presentMode, err := ChoosePresentMode(modes)
	if err != nil {
		return nil, err
	}
	if presentMode != vk.PresentModeMailbox {
		log.WithField("mode", presentMode).Warn("mailbox presentation unavailable")
	}
	extent := ChooseExtent(caps, width, height)
	if extent.Width != width || extent.Height != height {
		log.WithFields(logrus.Fields{
			"requested": []uint32{width, height},
			"extent":    []uint32{extent.Width, extent.Height},
		}).Warn("swapchain extent differs from requested size")
	}

	choice := device.Choice()
	sharing, families := ChooseSharingMode(choice.GraphicsIndex, choice.PresentIndex)

	info := vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               surface,
		MinImageCount:         ChooseImageCount(caps),
		ImageFormat:           format.Format,
		ImageColorSpace:       format.ColorSpace,
		ImageExtent:           extent,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      sharing,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
		PreTransform:          caps.CurrentTransform,
		CompositeAlpha:        ChooseCompositeAlpha(caps),
		PresentMode:           presentMode,
		Clipped:               vk.True,
	}
	if old != nil {
		info.OldSwapchain = old.swapchain
	}

	life, err := device.Lifetime().Acquire("swapchain")
	if err != nil {
		return nil, err
	}

	handle, err := entry.CreateSwapchain(device.Handle(), &info)
	if err != nil {
		_ = life.Release()
		return nil, core.Mark(err, core.ErrSwapchain, "create swapchain")
	}
	images, err := entry.SwapchainImages(device.Handle(), handle)
	if err != nil {
		entry.DestroySwapchain(device.Handle(), handle)
		_ = life.Release()
		return nil, core.Mark(err, core.ErrSwapchain, "swapchain images")
	}

	log.WithFields(logrus.Fields{
		"format":  format.Format,
		"mode":    presentMode,
		"extent":  []uint32{extent.Width, extent.Height},
		"images":  len(images),
		"sharing": sharing,
	}).Info("swapchain created")

	return &Swapchain{
		entry:       entry,
		device:      device.Handle(),
		swapchain:   handle,
		images:      images,
		format:      format,
		presentMode: presentMode,
		extent:      extent,
		life:        life,
		log:         log,
	}, nil
}

// Handle returns the driver handle.
func (s *Swapchain) Handle() vk.Swapchain {
	return s.swapchain
}

// Images returns the presentable images.
func (s *Swapchain) Images() []vk.Image {
	return s.images
}

// Format returns the negotiated surface format.
func (s *Swapchain) Format() vk.SurfaceFormat {
	return s.format
}

// PresentMode returns the negotiated present mode.
func (s *Swapchain) PresentMode() vk.PresentMode {
	return s.presentMode
}

// Extent returns the size of the images.
func (s *Swapchain) Extent() vk.Extent2D {
	return s.extent
}

// State returns the presentation state.
func (s *Swapchain) State() SwapchainState {
	return s.state
}

// MarkOutOfDate records that presentation reported a stale chain.
func (s *Swapchain) MarkOutOfDate() {
	if s.state == SwapchainValid {
		s.state = SwapchainOutOfDate
	}
}

// MarkLost records that the surface went away.
func (s *Swapchain) MarkLost() {
	s.state = SwapchainLost
}

// Destroy destroys the swapchain. The GPU must be done with its images.
func (s *Swapchain) Destroy() error {
	if err := s.life.Release(); err != nil {
		return err
	}
	s.entry.DestroySwapchain(s.device, s.swapchain)
	s.images = nil
	s.log.Debug("swapchain destroyed")
	return nil
}
