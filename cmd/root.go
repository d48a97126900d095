// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"flag"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/thrustboard/internal/config"
)

var (
	configPath string

	// Serial connection flags
	portName  string
	baudRate  int
	idleGapMs int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool
)

var rootCmd = &cobra.Command{
	Use:   "thrustboard",
	Short: "GD thruster board link tool",
	Long: `Thrustboard - Tools for the GD thruster/kill-switch serial protocol.

Runs the board side of the link (kill switch, heartbeat fail-safe and
thruster channels), sends controller commands, and logs link traffic.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Settings can also come from a YAML file (--config); flags override it.
For WebSocket authentication, the password is read from the
THRUSTBOARD_PASSWORD environment variable, or prompted interactively if not set.`,
	Version:      "1.0.0",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", config.DefaultBaud, "Baud rate (serial only)")
	rootCmd.PersistentFlags().IntVar(&idleGapMs, "idle-gap", config.DefaultIdleGapMs, "Read idle gap in ms that ends a packet burst (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// glog registers -v, -logtostderr, ... on the standard flag set
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads --config (or the defaults) and applies any connection
// flags given explicitly on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Link.Port = portName
		cfg.Link.URL = ""
	}
	if flags.Changed("url") {
		cfg.Link.URL = wsURL
		if !flags.Changed("port") {
			cfg.Link.Port = ""
		}
	}
	if flags.Changed("baud") {
		cfg.Link.Baud = baudRate
	}
	if flags.Changed("idle-gap") {
		cfg.Link.IdleGapMs = idleGapMs
	}
	if flags.Changed("username") {
		cfg.Link.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.Link.NoSSLVerify = wsNoSSLVerify
	}

	if err := config.RequireLink(cfg.Link); err != nil {
		return nil, err
	}
	return cfg, nil
}
