// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/thrustboard/pkg/controller"
)

var (
	pingTimeout int
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the link by sending KILL_QUERY and timing KILL_STATUS",
	Long: `Send KILL_QUERY packets to the board and wait for KILL_STATUS.

KILL_QUERY is the only command that changes nothing on an armed board with a
fresh heartbeat, which makes it a safe round-trip probe. Note that a board
whose heartbeat is stale will kill itself on the first query.

This is useful for verifying:
  - Serial or WebSocket connection is established
  - The board computes and checks GD checksums
  - Round-trip latency stays well inside the heartbeat timeout

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 1, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	if pingCount < 1 {
		fmt.Fprintf(os.Stderr, "Error: --count must be at least 1\n")
		os.Exit(2)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection(cfg.Link)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Thrustboard - Ping Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	client := controller.NewClient(conn, controller.WithReplyTimeout(time.Duration(pingTimeout)*time.Second))
	successCount := 0
	failCount := 0
	var minRTT, maxRTT, totalRTT time.Duration

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		startTime := time.Now()
		killed, err := client.QueryKill(cmd.Context())
		rtt := time.Since(startTime)
		if err != nil {
			fmt.Printf("FAILED: %v\n", err)
			failCount++
		} else {
			state := "ARMED"
			if killed {
				state = "KILLED"
			}
			fmt.Printf("KILL_STATUS %s, rtt=%v\n", state, rtt.Round(time.Microsecond))
			successCount++

			totalRTT += rtt
			if minRTT == 0 || rtt < minRTT {
				minRTT = rtt
			}
			if rtt > maxRTT {
				maxRTT = rtt
			}
		}

		// Small delay between pings
		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	// Summary
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d responses received, %.0f%% packet loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)
	if successCount > 0 {
		fmt.Printf("rtt min/avg/max = %v/%v/%v\n",
			minRTT.Round(time.Microsecond),
			(totalRTT / time.Duration(successCount)).Round(time.Microsecond),
			maxRTT.Round(time.Microsecond))
	}

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}
