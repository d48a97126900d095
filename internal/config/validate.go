// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"
	"net/url"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if err := ValidateLink(cfg.Link); err != nil {
		return err
	}

	if cfg.Board.HeartbeatTimeoutMs <= 0 {
		return fmt.Errorf("board: heartbeat_timeout_ms must be positive, got %d", cfg.Board.HeartbeatTimeoutMs)
	}

	if cfg.Telemetry.MQTTURL != "" {
		u, err := url.Parse(cfg.Telemetry.MQTTURL)
		if err != nil {
			return fmt.Errorf("telemetry: invalid mqtt_url: %v", err)
		}
		switch u.Scheme {
		case "mqtt", "mqtts", "tcp", "ssl", "tls", "ws", "wss":
		default:
			return fmt.Errorf("telemetry: unsupported mqtt_url scheme %q", u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("telemetry: mqtt_url has no host")
		}
	}

	return nil
}

// ValidateLink checks the link section. An empty link (neither port nor
// url) is allowed here so a config file may leave the link to CLI flags;
// use RequireLink before opening a connection.
func ValidateLink(l LinkConfig) error {
	if l.Port != "" && l.URL != "" {
		return fmt.Errorf("link: port and url are mutually exclusive")
	}
	if l.Baud <= 0 {
		return fmt.Errorf("link: baud must be positive, got %d", l.Baud)
	}
	if l.IdleGapMs < 0 {
		return fmt.Errorf("link: idle_gap_ms must not be negative, got %d", l.IdleGapMs)
	}
	// The idle gap is the serial read timeout; without one a partial
	// set-thrusters frame is never flushed.
	if l.Port != "" && l.IdleGapMs == 0 {
		return fmt.Errorf("link: idle_gap_ms must be positive for a serial port, got %d", l.IdleGapMs)
	}
	if l.URL != "" {
		u, err := url.Parse(l.URL)
		if err != nil {
			return fmt.Errorf("link: invalid url: %v", err)
		}
		switch u.Scheme {
		case "ws", "wss":
		default:
			return fmt.Errorf("link: unsupported url scheme %q (use ws:// or wss://)", u.Scheme)
		}
	}
	return nil
}

// RequireLink fails if no transport is configured
func RequireLink(l LinkConfig) error {
	if l.Port == "" && l.URL == "" {
		return fmt.Errorf("either --port or --url must be specified")
	}
	return ValidateLink(l)
}
