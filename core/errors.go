// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/cockroachdb/errors"
)

// Error kinds. Every failure leaving the context layer is marked with
// one of these, test for them with errors.Is.
var (
	ErrNoSuitableDevice  = errors.New("no suitable physical device")
	ErrDeviceCreation    = errors.New("logical device creation failed")
	ErrSurface           = errors.New("surface failure")
	ErrSwapchain         = errors.New("swapchain failure")
	ErrResourceCreation  = errors.New("resource creation failed")
	ErrInvalidHandle     = errors.New("invalid handle")
	ErrContractViolation = errors.New("lifetime contract violation")
)

// Mark wraps err with a message and tags it with kind.
func Mark(err, kind error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), kind)
}

// Newf creates a fresh error tagged with kind.
func Newf(kind error, format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), kind)
}

// Violation reports a broken lifetime contract. Builds with the
// debug_lifetime tag panic instead of returning.
func Violation(format string, args ...interface{}) error {
	return reportViolation(errors.Mark(errors.AssertionFailedf(format, args...), ErrContractViolation))
}
