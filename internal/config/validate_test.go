// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, DefaultBaud, cfg.Link.Baud)
	require.Equal(t, 5*time.Millisecond, cfg.Link.IdleGap())
	require.Equal(t, time.Second, cfg.Board.HeartbeatTimeout())
	require.Equal(t, DefaultTopic, cfg.Telemetry.Topic)
}

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(`
link:
  port: /dev/ttyUSB0
  baud: 57600
  idle_gap_ms: 20
board:
  heartbeat_timeout_ms: 2500
  start_killed: true
telemetry:
  mqtt_url: mqtt://broker.local:1883/sub1
  topic: thrusters
`))
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB0", cfg.Link.Port)
	require.Equal(t, 57600, cfg.Link.Baud)
	require.Equal(t, 20*time.Millisecond, cfg.Link.IdleGap())
	require.Equal(t, 2500*time.Millisecond, cfg.Board.HeartbeatTimeout())
	require.True(t, cfg.Board.StartKilled)
	require.Equal(t, "thrusters", cfg.Telemetry.Topic)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("link:\n  prot: /dev/ttyUSB0\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"port and url", "link:\n  port: /dev/ttyUSB0\n  url: ws://host/ws\n", "mutually exclusive"},
		{"negative baud", "link:\n  baud: -1\n", "baud must be positive"},
		{"negative idle gap", "link:\n  idle_gap_ms: -3\n", "idle_gap_ms"},
		{"http url", "link:\n  url: http://host/ws\n", "unsupported url scheme"},
		{"negative timeout", "board:\n  heartbeat_timeout_ms: -10\n", "heartbeat_timeout_ms"},
		{"mqtt scheme", "telemetry:\n  mqtt_url: http://broker\n", "unsupported mqtt_url scheme"},
		{"mqtt host", "telemetry:\n  mqtt_url: mqtt:///prefix\n", "no host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tt.want), "got %v", err)
		})
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	cfg := &Config{}
	_ = Validate(cfg)
	require.Equal(t, &Config{}, cfg)
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	cfg := &Config{Link: LinkConfig{Baud: 9600}, Telemetry: TelemetryConfig{Topic: "t"}}
	Normalize(cfg)
	require.Equal(t, 9600, cfg.Link.Baud)
	require.Equal(t, "t", cfg.Telemetry.Topic)
	require.Equal(t, DefaultIdleGapMs, cfg.Link.IdleGapMs)

	Normalize(nil)
}

func TestRequireLink(t *testing.T) {
	err := RequireLink(Default().Link)
	require.EqualError(t, err, "either --port or --url must be specified")

	link := Default().Link
	link.URL = "wss://board.local/ws"
	require.NoError(t, RequireLink(link))
}

func TestRequireLinkSerialIdleGap(t *testing.T) {
	// --idle-gap 0 overrides the normalized default after Parse
	link := LinkConfig{Port: "/dev/ttyUSB0", Baud: 115200, IdleGapMs: 0}
	err := RequireLink(link)
	require.EqualError(t, err, "link: idle_gap_ms must be positive for a serial port, got 0")

	link.IdleGapMs = 1
	require.NoError(t, RequireLink(link))

	// WebSocket links flush per message and ignore the gap
	require.NoError(t, RequireLink(LinkConfig{URL: "ws://board.local/ws", Baud: 115200}))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thrustboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("link:\n  url: ws://10.0.0.2/ws\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ws://10.0.0.2/ws", cfg.Link.URL)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
