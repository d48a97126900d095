// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package driver

import "errors"

var (
	// ErrThrusterRange indicates a thruster id or span outside 0-6.
	ErrThrusterRange = errors.New("thruster out of range")
	// ErrNoThrottle indicates a SET_THRUSTERS packet without throttle bytes.
	ErrNoThrottle = errors.New("no throttle values")
)
