// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the thrustboard YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Link      LinkConfig      `yaml:"link"`
	Board     BoardConfig     `yaml:"board"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ---- LINK ----

type LinkConfig struct {
	// Serial mode
	Port      string `yaml:"port"`
	Baud      int    `yaml:"baud"`
	IdleGapMs int    `yaml:"idle_gap_ms"` // read timeout that ends a burst

	// WebSocket mode; password comes from THRUSTBOARD_PASSWORD or a prompt
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// ---- BOARD ----

type BoardConfig struct {
	HeartbeatTimeoutMs int  `yaml:"heartbeat_timeout_ms"`
	StartKilled        bool `yaml:"start_killed"`
}

// ---- TELEMETRY ----

type TelemetryConfig struct {
	MQTTURL string `yaml:"mqtt_url"` // empty disables telemetry
	Topic   string `yaml:"topic"`
}

// Defaults
const (
	DefaultBaud               = 115200
	DefaultIdleGapMs          = 5
	DefaultHeartbeatTimeoutMs = 1000
	DefaultTopic              = "status"
)

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	Normalize(cfg)
	return cfg
}

// Load reads, normalizes and validates a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	Normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IdleGap returns the serial idle gap as a duration
func (l LinkConfig) IdleGap() time.Duration {
	return time.Duration(l.IdleGapMs) * time.Millisecond
}

// HeartbeatTimeout returns the heartbeat timeout as a duration
func (b BoardConfig) HeartbeatTimeout() time.Duration {
	return time.Duration(b.HeartbeatTimeoutMs) * time.Millisecond
}
