// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core holds the engine-wide building blocks shared by the
// Vulkan context layer: configuration, error kinds, typed handles,
// keyed caches, lifetime guards and the frame clock.
package core

// Destroyable is implemented by every context-level object that owns
// driver state and must be torn down explicitly.
type Destroyable interface {
	// Destroy releases owned driver objects. It returns an error
	// marked with ErrContractViolation when dependents are still alive.
	Destroy() error
}
