// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/thrustboard/pkg/gdproto"
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid GD packet",
	Long: `Wait for a valid GD packet on the connection until timeout.

This command connects to a serial port or WebSocket and listens passively for
any GD protocol packet, command or reply. It ignores noise and frames failing
the checksum, and waits for a complete packet with a valid checksum.

Exit codes:
  0 - Packet received before timeout
  1 - Timeout reached without receiving a valid packet
  2 - Connection error

Useful for checking that a controller and board are talking on a shared line.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a packet")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Thrustboard - Packet Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid GD packet...\n\n")

	framer := gdproto.NewFramer()
	framed := isMessageFramed(conn)
	buf := make([]byte, 128)

	// Channel for packet reception
	packetChan := make(chan *gdproto.Packet, 1)
	errChan := make(chan error, 1)

	// Reader goroutine
	go func() {
		rejected := 0
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}

			frames := framer.Feed(buf[:n])
			if n == 0 || framed {
				if frame := framer.Flush(); frame != nil {
					frames = append(frames, frame)
				}
			}
			for _, frame := range frames {
				packet, err := gdproto.ParsePacket(frame)
				if err != nil {
					// Ignore bad frames, just count them
					rejected++
					continue
				}
				if rejected > 0 {
					fmt.Printf("(skipped %d bad frames before sync)\n", rejected)
				}
				packetChan <- packet
				return
			}
		}
	}()

	// Wait for packet or timeout
	select {
	case packet := <-packetChan:
		fmt.Printf("SUCCESS: Received valid packet\n")
		fmt.Printf("  Type: %s (0x%02X)\n", gdproto.FormatMessageType(packet.Type()), packet.Type())
		fmt.Printf("  Length: %d bytes\n", packet.Len())
		fmt.Printf("  Checksum: 0x%02X\n", packet.Checksum())
		fmt.Printf("  Bytes: %s\n", gdproto.FormatHex(packet.Bytes()))
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(packetTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid packet received within %d seconds\n", packetTestTimeout)
		os.Exit(1)
	}

	return nil
}
