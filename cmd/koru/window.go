// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/veandco/go-sdl2/sdl"
)

// window presents through an SDL window.
type window struct {
	*sdl.Window
}

func newWindow(title string, width, height uint32) (*window, error) {
	w, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(width),
		int32(height),
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, errors.Wrap(err, "sdl.CreateWindow()")
	}
	return &window{Window: w}, nil
}

func (w *window) RequiredExtensions() []string {
	return w.VulkanGetInstanceExtensions()
}

func (w *window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := w.VulkanCreateSurface(instance)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "sdl.VulkanCreateSurface()")
	}
	return vk.SurfaceFromPointer(uintptr(ptr)), nil
}

func (w *window) Size() (uint32, uint32) {
	width, height := w.VulkanGetDrawableSize()
	return uint32(width), uint32(height)
}
