// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/devblok/koru/v2/gfx"
)

// Reclaimable is a resource whose release waits until the GPU stopped
// using it.
type Reclaimable interface {
	gfx.Releasable

	// Retire records the frame of the logical deletion.
	Retire(frame uint64)
	RetiredFrame() uint64
}

// ReclaimPolicy decides when a retired resource may be released.
type ReclaimPolicy interface {
	ShouldReclaim(r Reclaimable, currentFrame uint64) bool
}

// FramesInFlightPolicy releases a resource once as many frames as the
// presentation layer keeps in flight have passed since retirement.
type FramesInFlightPolicy struct {
	FramesInFlight uint64
}

// ShouldReclaim implements ReclaimPolicy.
func (p FramesInFlightPolicy) ShouldReclaim(r Reclaimable, currentFrame uint64) bool {
	return currentFrame >= r.RetiredFrame()+p.FramesInFlight
}

// Remaining returns how many frames r still has to wait.
func (p FramesInFlightPolicy) Remaining(r Reclaimable, currentFrame uint64) uint64 {
	due := r.RetiredFrame() + p.FramesInFlight
	if currentFrame >= due {
		return 0
	}
	return due - currentFrame
}

type remainingReporter interface {
	Remaining(r Reclaimable, currentFrame uint64) uint64
}

type reclaimCountdown interface {
	setFramesUntilReclaim(n uint32)
}

// ReclaimQueue holds retired resources until policy lets them go.
type ReclaimQueue struct {
	mu      sync.Mutex
	policy  ReclaimPolicy
	pending []Reclaimable
}

// NewReclaimQueue creates a queue governed by policy.
func NewReclaimQueue(policy ReclaimPolicy) *ReclaimQueue {
	return &ReclaimQueue{policy: policy}
}

// Retire schedules r for release.
func (q *ReclaimQueue) Retire(r Reclaimable, frame uint64) {
	r.Retire(frame)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, r)
	q.countdown(r, frame)
}

func (q *ReclaimQueue) countdown(r Reclaimable, frame uint64) {
	reporter, ok := q.policy.(remainingReporter)
	if !ok {
		return
	}
	if c, ok := r.(reclaimCountdown); ok {
		c.setFramesUntilReclaim(uint32(reporter.Remaining(r, frame)))
	}
}

// Sweep releases every pending resource the policy allows and returns
// how many were released. A resource whose release fails stays queued.
func (q *ReclaimQueue) Sweep(currentFrame uint64) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var (
		errs     error
		released int
		keep     = q.pending[:0]
	)
	for _, r := range q.pending {
		if !q.policy.ShouldReclaim(r, currentFrame) {
			q.countdown(r, currentFrame)
			keep = append(keep, r)
			continue
		}
		if err := r.Release(); err != nil {
			errs = errors.CombineErrors(errs, err)
			keep = append(keep, r)
			continue
		}
		released++
	}
	for i := len(keep); i < len(q.pending); i++ {
		q.pending[i] = nil
	}
	q.pending = keep
	return released, errs
}

// Drain releases everything regardless of policy. Call it only after
// the device is idle.
func (q *ReclaimQueue) Drain() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var (
		errs error
		keep = q.pending[:0]
	)
	for _, r := range q.pending {
		if err := r.Release(); err != nil {
			errs = errors.CombineErrors(errs, err)
			keep = append(keep, r)
		}
	}
	for i := len(keep); i < len(q.pending); i++ {
		q.pending[i] = nil
	}
	q.pending = keep
	return errs
}

// Pending returns the number of resources waiting for release.
func (q *ReclaimQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
