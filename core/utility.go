// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"image"
	"math/bits"
	"strings"

	"golang.org/x/image/draw"
)

// SafeString terminates s for the C side of the driver.
func SafeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

// SafeStrings terminates every string in sgs.
func SafeStrings(sgs []string) []string {
	safe := make([]string, 0, len(sgs))
	for _, s := range sgs {
		safe = append(safe, SafeString(s))
	}
	return safe
}

// TrimNull cuts a driver returned name at its terminator.
func TrimNull(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// GetPixels transforms a given image into right arrangement of pixels
// by drawing the decoded image onto a controlled RGBA canvas
func GetPixels(img image.Image) []uint8 {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*rgba.Rect.Dx() && rgba.Rect.Min == (image.Point{}) {
		return rgba.Pix
	}
	newImg := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(newImg, newImg.Bounds(), img, img.Bounds().Min, draw.Src)
	return newImg.Pix
}

// MipLevels returns the length of a full mip chain for the given size.
func MipLevels(width, height uint32) uint32 {
	longest := width
	if height > longest {
		longest = height
	}
	if longest == 0 {
		return 0
	}
	return uint32(bits.Len32(longest))
}

// MipChain downsamples img into levels images, each half the size of
// the previous one and never smaller than 1x1. Level 0 is img itself
// converted to RGBA.
func MipChain(img image.Image, levels uint32) []*image.RGBA {
	if levels == 0 {
		return nil
	}

	b := img.Bounds()
	base := &image.RGBA{
		Pix:    GetPixels(img),
		Stride: 4 * b.Dx(),
		Rect:   image.Rect(0, 0, b.Dx(), b.Dy()),
	}

	chain := make([]*image.RGBA, 0, levels)
	chain = append(chain, base)
	for i := uint32(1); i < levels; i++ {
		prev := chain[i-1].Bounds()
		w, h := prev.Dx()/2, prev.Dy()/2
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		level := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(level, level.Bounds(), chain[i-1], prev, draw.Src, nil)
		chain = append(chain, level)
	}
	return chain
}
