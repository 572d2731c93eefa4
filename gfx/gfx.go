// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines rendering related features that renderers must implement.
package gfx

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release() error
}

// Extent3D is a size in pixels with depth.
type Extent3D struct {
	Width, Height, Depth uint32
}

// Area returns the number of texels covered.
func (e Extent3D) Area() uint64 {
	return uint64(e.Width) * uint64(e.Height) * uint64(e.Depth)
}

// Half returns the extent of the next mip level.
func (e Extent3D) Half() Extent3D {
	half := func(v uint32) uint32 {
		if v > 1 {
			return v / 2
		}
		return 1
	}
	return Extent3D{Width: half(e.Width), Height: half(e.Height), Depth: half(e.Depth)}
}
