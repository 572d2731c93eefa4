// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package engine is the thin client of the device context that owns
// swapchains and knows which one is being presented to.
package engine

import (
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/devblok/koru/v2/core"
	"github.com/devblok/koru/v2/gfx/vkr"
)

// SwapchainHandle addresses a swapchain owned by an Engine.
type SwapchainHandle = core.Handle[*vkr.Swapchain]

// Driver is the part of the device context the engine builds on.
type Driver interface {
	WaitIdle() error
	NewSwapchain(width, height uint32, old *vkr.Swapchain) (*vkr.Swapchain, error)
	RecreateSurface() error
}

// Engine tracks swapchains by handle.
type Engine struct {
	driver Driver
	chains core.Container[*vkr.Swapchain]

	mu      sync.Mutex
	current SwapchainHandle

	log logrus.FieldLogger
}

// New creates an engine on top of driver. The engine never destroys
// the driver.
func New(driver Driver, log logrus.FieldLogger) *Engine {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	return &Engine{
		driver: driver,
		log:    log.WithField("component", "engine"),
	}
}

// CreateSwapchain builds a swapchain of the requested size. The first
// swapchain created becomes the current one.
func (e *Engine) CreateSwapchain(width, height uint32) (SwapchainHandle, error) {
	chain, err := e.driver.NewSwapchain(width, height, nil)
	if err != nil {
		return core.InvalidHandle[*vkr.Swapchain](), err
	}
	h := e.chains.Insert(chain)

	e.mu.Lock()
	if !e.current.IsValid() {
		e.current = h
	}
	e.mu.Unlock()

	e.log.WithField("handle", h.ID()).Debug("swapchain registered")
	return h, nil
}

// Swapchain returns the swapchain behind h.
func (e *Engine) Swapchain(h SwapchainHandle) (*vkr.Swapchain, error) {
	return e.chains.Get(h)
}

// SetCurrentSwapchain makes h the presentation target.
func (e *Engine) SetCurrentSwapchain(h SwapchainHandle) error {
	if _, err := e.chains.Get(h); err != nil {
		return err
	}
	e.mu.Lock()
	e.current = h
	e.mu.Unlock()
	return nil
}

// Current returns the handle of the presentation target, the invalid
// handle when there is none.
func (e *Engine) Current() SwapchainHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Len returns the number of live swapchains.
func (e *Engine) Len() int {
	return e.chains.Len()
}

// Recreate replaces the swapchain behind h according to its state. A
// valid or out of date chain is rebuilt from the old one, which is
// destroyed after the device went idle. A lost chain is destroyed
// first, then the surface and the chain are rebuilt. h stays valid
// unless rebuilding a lost chain fails, then it is removed.
func (e *Engine) Recreate(h SwapchainHandle, width, height uint32) error {
	old, err := e.chains.Get(h)
	if err != nil {
		return err
	}
	if old.State() == vkr.SwapchainLost {
		return e.recreateLost(h, old, width, height)
	}

	chain, err := e.driver.NewSwapchain(width, height, old)
	if err != nil {
		return err
	}
	if err := e.driver.WaitIdle(); err != nil {
		e.log.WithError(err).Warn("wait idle before retiring swapchain failed")
	}
	if err := old.Destroy(); err != nil {
		_ = chain.Destroy()
		return err
	}
	if err := e.chains.Replace(h, chain); err != nil {
		_ = chain.Destroy()
		return err
	}
	e.log.WithFields(logrus.Fields{
		"handle": h.ID(),
		"width":  chain.Extent().Width,
		"height": chain.Extent().Height,
	}).Info("swapchain recreated")
	return nil
}

func (e *Engine) recreateLost(h SwapchainHandle, old *vkr.Swapchain, width, height uint32) error {
	if n := e.chains.Len(); n > 1 {
		return core.Violation("surface lost while %d other swapchains use it", n-1)
	}
	if err := e.driver.WaitIdle(); err != nil {
		e.log.WithError(err).Warn("wait idle before rebuilding surface failed")
	}
	if err := old.Destroy(); err != nil {
		return err
	}

	chain, err := e.rebuild(width, height)
	if err != nil {
		e.forget(h)
		return err
	}
	if err := e.chains.Replace(h, chain); err != nil {
		_ = chain.Destroy()
		return err
	}
	e.log.WithField("handle", h.ID()).Info("surface and swapchain rebuilt")
	return nil
}

func (e *Engine) rebuild(width, height uint32) (*vkr.Swapchain, error) {
	if err := e.driver.RecreateSurface(); err != nil {
		return nil, err
	}
	return e.driver.NewSwapchain(width, height, nil)
}

func (e *Engine) forget(h SwapchainHandle) {
	_, _ = e.chains.Remove(h)
	e.mu.Lock()
	if e.current == h {
		e.current.Invalidate()
	}
	e.mu.Unlock()
}

// DestroySwapchain destroys the swapchain behind h and invalidates h.
func (e *Engine) DestroySwapchain(h SwapchainHandle) error {
	chain, err := e.chains.Get(h)
	if err != nil {
		return err
	}
	if err := chain.Destroy(); err != nil {
		return err
	}
	e.forget(h)
	return nil
}

// Destroy waits for the device and destroys every swapchain.
func (e *Engine) Destroy() error {
	if err := e.driver.WaitIdle(); err != nil {
		e.log.WithError(err).Warn("wait idle before engine teardown failed")
	}

	var (
		errs    error
		handles []SwapchainHandle
	)
	e.chains.Each(func(h SwapchainHandle, _ *vkr.Swapchain) {
		handles = append(handles, h)
	})
	for _, h := range handles {
		errs = errors.CombineErrors(errs, e.DestroySwapchain(h))
	}
	return errs
}
