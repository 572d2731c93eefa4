// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	vk "github.com/goki/vulkan"
	"github.com/sirupsen/logrus"

	"github.com/devblok/koru/v2/core"
)

// CommandPool owns command buffers for one queue family.
type CommandPool struct {
	entry  DeviceEntry
	device vk.Device
	pool   vk.CommandPool
	family uint32
	queue  vk.Queue

	buffers []vk.CommandBuffer
	life    *core.Lifetime
	log     logrus.FieldLogger
}

// NewCommandPool creates a resettable pool for family.
func NewCommandPool(device *LogicalDevice, family uint32, queue vk.Queue, log logrus.FieldLogger) (*CommandPool, error) {
	life, err := device.Lifetime().Acquire("command pool")
	if err != nil {
		return nil, err
	}
	pool, err := device.Entry().CreateCommandPool(device.Handle(), family)
	if err != nil {
		_ = life.Release()
		return nil, core.Mark(err, core.ErrResourceCreation, "create command pool for family %d", family)
	}
	return &CommandPool{
		entry:  device.Entry(),
		device: device.Handle(),
		pool:   pool,
		family: family,
		queue:  queue,
		life:   life,
		log:    componentLogger(log, "commands").WithField("family", family),
	}, nil
}

// Allocate returns n new primary command buffers.
func (c *CommandPool) Allocate(n uint32) ([]vk.CommandBuffer, error) {
	buffers, err := c.entry.AllocateCommandBuffers(c.device, c.pool, n)
	if err != nil {
		return nil, core.Mark(err, core.ErrResourceCreation, "allocate %d command buffers", n)
	}
	c.buffers = append(c.buffers, buffers...)
	return buffers, nil
}

// Handle returns the pool handle.
func (c *CommandPool) Handle() vk.CommandPool {
	return c.pool
}

// Family returns the queue family index.
func (c *CommandPool) Family() uint32 {
	return c.family
}

// Queue returns the queue buffers from this pool are submitted to.
func (c *CommandPool) Queue() vk.Queue {
	return c.queue
}

// Destroy frees the buffers and the pool.
func (c *CommandPool) Destroy() error {
	if err := c.life.Release(); err != nil {
		return err
	}
	if len(c.buffers) > 0 {
		c.entry.FreeCommandBuffers(c.device, c.pool, c.buffers)
		c.buffers = nil
	}
	c.entry.DestroyCommandPool(c.device, c.pool)
	c.log.Debug("command pool destroyed")
	return nil
}
