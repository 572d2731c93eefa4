// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkrtest

import (
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// vk handles point at incomplete C types, which the runtime assumes
// never live on the Go heap. reflect panics on such a pointer into Go
// memory, so fake handles are carved from mapped pages instead.
const (
	handleSize = 8
	chunkSize  = 1 << 16
)

type handleArena struct {
	mu    sync.Mutex
	chunk []byte
	used  int
}

var handles handleArena

// newHandle returns a zeroed 8 byte cell outside the Go heap. Cells are
// never reused, so two handles compare equal only if they are the same.
func newHandle() unsafe.Pointer {
	handles.mu.Lock()
	defer handles.mu.Unlock()

	if handles.used+handleSize > len(handles.chunk) {
		chunk, err := mapChunk(chunkSize)
		if err != nil {
			panic(errors.Wrap(err, "vkrtest: map handle memory"))
		}
		handles.chunk, handles.used = chunk, 0
	}
	p := unsafe.Pointer(&handles.chunk[handles.used])
	handles.used += handleSize
	return p
}
