// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports that may carry a GD link",
	Long: `List the serial ports found on this machine.

USB adapters are shown with their vendor/product IDs and serial number, which
helps pick the right --port when several boards are attached.`,
	Args: cobra.NoArgs,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("failed to list serial ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	for _, port := range ports {
		if !port.IsUSB {
			fmt.Printf("%s\n", port.Name)
			continue
		}
		fmt.Printf("%s  USB %s:%s", port.Name, port.VID, port.PID)
		if port.SerialNumber != "" {
			fmt.Printf("  serial=%s", port.SerialNumber)
		}
		if port.Product != "" {
			fmt.Printf("  %s", port.Product)
		}
		fmt.Println()
	}
	return nil
}
