// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import "sync"

// Lifetime is a node in the ownership tree of driver objects. A node
// may only be released after all of its dependents were released.
type Lifetime struct {
	mu       sync.Mutex
	name     string
	parent   *Lifetime
	live     map[*Lifetime]struct{}
	released bool
}

// NewLifetime creates a root node.
func NewLifetime(name string) *Lifetime {
	return &Lifetime{name: name, live: map[*Lifetime]struct{}{}}
}

// Acquire creates a dependent of l. Acquiring from a released node
// is a contract violation.
func (l *Lifetime) Acquire(name string) (*Lifetime, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return nil, Violation("%s: acquired %s after release", l.name, name)
	}
	child := &Lifetime{name: name, parent: l, live: map[*Lifetime]struct{}{}}
	l.live[child] = struct{}{}
	return child, nil
}

// Name returns the node name.
func (l *Lifetime) Name() string {
	return l.name
}

// Live returns the number of dependents not yet released.
func (l *Lifetime) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.live)
}

// Released reports whether Release succeeded.
func (l *Lifetime) Released() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.released
}

// Check returns a violation if l still has dependents, without releasing.
func (l *Lifetime) Check() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check()
}

func (l *Lifetime) check() error {
	if l.released {
		return Violation("%s released twice", l.name)
	}
	if n := len(l.live); n > 0 {
		names := make([]string, 0, n)
		for child := range l.live {
			names = append(names, child.name)
		}
		return Violation("%s released with %d live dependents: %v", l.name, n, names)
	}
	return nil
}

// Release marks l as gone. The caller destroys the driver object only
// when Release returns nil.
func (l *Lifetime) Release() error {
	l.mu.Lock()
	if err := l.check(); err != nil {
		l.mu.Unlock()
		return err
	}
	l.released = true
	parent := l.parent
	l.mu.Unlock()

	if parent != nil {
		parent.mu.Lock()
		delete(parent.live, l)
		parent.mu.Unlock()
	}
	return nil
}
