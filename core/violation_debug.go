// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

//go:build debug_lifetime

package core

func reportViolation(err error) error {
	panic(err)
}
