// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/thrustboard/pkg/controller"
	"github.com/Thermoquad/thrustboard/pkg/gdproto"
)

var (
	sendTimeout int
	sendRaw     bool
)

var sendCmd = &cobra.Command{
	Use:   "send <query|heartbeat|throttle ID VALUE...>",
	Short: "Send one controller command and print the board's reply",
	Long: `Send a single GD command to the board and wait for its reply.

Commands:
  query                   KILL_QUERY (0x02), reply is KILL_STATUS
  heartbeat               HEARTBEAT (0x04), reply is IDLE_ACK
  throttle ID VALUE...    SET_THRUSTERS (0x07) starting at thruster ID (0-6).
                          Values are fractions 0.0-1.0, or bytes 0-255 with --raw.

Exit codes:
  0 - Reply received before timeout
  1 - Timeout reached without a valid reply
  2 - Connection or usage error`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().IntVar(&sendTimeout, "timeout", 2, "Timeout in seconds to wait for the reply")
	sendCmd.Flags().BoolVar(&sendRaw, "raw", false, "Throttle values are raw bytes 0-255")
}

// buildCommand turns CLI arguments into a wire packet
func buildCommand(args []string, raw bool) ([]byte, error) {
	switch args[0] {
	case "query":
		return gdproto.KillQuery(), nil
	case "heartbeat":
		return gdproto.Heartbeat(), nil
	case "throttle":
		if len(args) < 3 {
			return nil, fmt.Errorf("throttle needs a thruster id and at least one value")
		}
		id, err := strconv.ParseUint(args[1], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid thruster id %q: %v", args[1], err)
		}
		if raw {
			values := make([]byte, 0, len(args)-2)
			for _, a := range args[2:] {
				v, err := strconv.ParseUint(a, 0, 8)
				if err != nil {
					return nil, fmt.Errorf("invalid raw throttle %q: %v", a, err)
				}
				values = append(values, byte(v))
			}
			return gdproto.SetThrustersRaw(byte(id), values...)
		}
		values := make([]float64, 0, len(args)-2)
		for _, a := range args[2:] {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid throttle %q: %v", a, err)
			}
			if v < 0 || v > 1 {
				return nil, fmt.Errorf("throttle %v out of range (0.0-1.0)", v)
			}
			values = append(values, v)
		}
		return gdproto.SetThrusters(byte(id), values...)
	default:
		return nil, fmt.Errorf("unknown command %q (use query, heartbeat or throttle)", args[0])
	}
}

func runSend(cmd *cobra.Command, args []string) error {
	packet, err := buildCommand(args, sendRaw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	conn, connInfo, err := OpenConnection(cfg.Link)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("TX %s\n", gdproto.FormatHex(packet))

	client := controller.NewClient(conn, controller.WithReplyTimeout(time.Duration(sendTimeout)*time.Second))
	startTime := time.Now()
	p, err := client.Exchange(cmd.Context(), packet)
	switch {
	case err == nil:
		fmt.Printf("RX %s (%v)\n", gdproto.FormatHex(p.Bytes()), time.Since(startTime).Round(time.Microsecond))
		fmt.Print(gdproto.FormatPacket(p))
		return nil

	case errors.Is(err, controller.ErrReplyTimeout):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No reply within %d seconds\n", sendTimeout)
		os.Exit(1)

	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	return nil
}
