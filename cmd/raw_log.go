// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/thrustboard/pkg/gdproto"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw packet log in human-readable format",
	Long: `Continuously frame and display GD protocol packets as they arrive.

Shows each packet with timestamp, message type, checksum and decoded payload.
Frames failing the checksum are printed as errors together with their bytes.
Statistics are printed when the link closes.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection(cfg.Link)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Thrustboard - Raw Packet Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	framer := gdproto.NewFramer()
	stats := gdproto.NewStatistics()
	framed := isMessageFramed(conn)
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
				glog.Infof("connection closed")
				fmt.Print("\n" + stats.String())
				return nil
			}
			glog.Warningf("read error: %v", err)
			continue
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
				stats.Update(0, err)
				fmt.Printf("[ERROR] %v: %s\n", err, gdproto.FormatHex(frame))
				continue
			}
			stats.Update(packet.Type(), nil)
			fmt.Print(gdproto.FormatPacket(packet))
		}
	}
}
