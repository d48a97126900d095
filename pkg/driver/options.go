// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package driver

import "time"

// DefaultHeartbeatTimeout is how long the board stays armed without a
// heartbeat before the next kill query disarms it.
const DefaultHeartbeatTimeout = time.Second

// Clock supplies monotonic time. It is read only while decoding a packet.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the process clock. time.Now carries a monotonic
// reading, so comparisons are immune to wall-clock steps.
func SystemClock() Clock {
	return systemClock{}
}

type config struct {
	clock            Clock
	heartbeatTimeout time.Duration
	killed           bool
}

func defaultConfig() config {
	return config{
		clock:            SystemClock(),
		heartbeatTimeout: DefaultHeartbeatTimeout,
	}
}

// Option is a functional option for configuring the Driver.
type Option func(*config)

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(cfg *config) {
		cfg.clock = c
	}
}

// WithHeartbeatTimeout overrides DefaultHeartbeatTimeout. Non-positive
// values are ignored.
func WithHeartbeatTimeout(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.heartbeatTimeout = d
		}
	}
}

// WithInitialKilled starts the board KILLED instead of ARMED, for
// integrations that want a heartbeat before any thrust.
func WithInitialKilled(killed bool) Option {
	return func(cfg *config) {
		cfg.killed = killed
	}
}
