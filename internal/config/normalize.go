// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

// Normalize fills zero values with defaults. It never overrides values
// that were set explicitly.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Link.Baud == 0 {
		cfg.Link.Baud = DefaultBaud
	}
	if cfg.Link.IdleGapMs == 0 {
		cfg.Link.IdleGapMs = DefaultIdleGapMs
	}
	if cfg.Board.HeartbeatTimeoutMs == 0 {
		cfg.Board.HeartbeatTimeoutMs = DefaultHeartbeatTimeoutMs
	}
	if cfg.Telemetry.Topic == "" {
		cfg.Telemetry.Topic = DefaultTopic
	}
}
