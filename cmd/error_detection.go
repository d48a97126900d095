// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/thrustboard/pkg/gdproto"
)

var (
	showAll       bool
	statsInterval int
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze malformed packets and errors",
	Long: `Track packet errors and malformed data on a GD link with statistics.

This command listens passively and detects:
  - Checksum failures (the board drops these without a reply)
  - Malformed packets (payload on fixed-size types, bad kill flags)
  - SET_THRUSTERS outside thrusters 0-6
  - Unknown message types
  - Statistics and trends (packet rate, error rate)

By default, only errors are displayed. Use --show-all to display valid packets too.

Packets are validated in real-time, with errors highlighted immediately and
periodic statistics summaries displayed at configurable intervals.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all packets (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
}

// printFrameError prints a rejected frame in highlighted format
func printFrameError(frame []byte, err error) {
	timestamp := time.Now().Format("15:04:05.000")
	var ce *gdproto.ChecksumError
	if errors.As(err, &ce) {
		fmt.Printf("[%s] \033[1;31mCHECKSUM ERROR:\033[0m expected 0x%02X, got 0x%02X\n", timestamp, ce.Expected, ce.Got)
	} else {
		fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", timestamp, err)
	}
	fmt.Printf("  Bytes: %s\n", gdproto.FormatHex(frame))
	fmt.Printf("  >>> FRAME DROPPED <<<\n\n")
}

// printValidationErrors prints validation errors for a packet
func printValidationErrors(packet *gdproto.Packet, errs []gdproto.ValidationError) {
	timestamp := packet.Timestamp().Format("15:04:05.000")
	msgType := gdproto.FormatMessageType(packet.Type())

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s (0x%02X)\n", timestamp, msgType, packet.Type())
	fmt.Printf("  Checksum: \033[1;32mOK\033[0m\n")

	for i, err := range errs {
		switch err.Type {
		case gdproto.AnomalyThrusterRange:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			if id, ok := err.Details["id"].(int); ok {
				if count, ok := err.Details["count"].(int); ok {
					fmt.Printf("    id=%d, values=%d (thrusters 0-%d)\n", id, count, gdproto.ThrusterCount-1)
				}
			}

		case gdproto.AnomalyLengthMismatch:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			if length, ok := err.Details["length"].(int); ok {
				if expected, ok := err.Details["expected"].(int); ok {
					fmt.Printf("    Payload: received=%d, expected=%d\n", length, expected)
				}
			}

		default:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
		}
	}

	fmt.Printf("  Bytes: %s\n", gdproto.FormatHex(packet.Bytes()))
	fmt.Printf("  >>> PACKET REJECTED <<<\n\n")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	if statsInterval <= 0 {
		return fmt.Errorf("--stats-interval must be positive")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg.Link)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Thrustboard - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All packets\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	framer := gdproto.NewFramer()
	stats := gdproto.NewStatistics()
	framed := isMessageFramed(conn)

	// Sync tracking - ignore bad frames until first valid packet
	synchronized := false
	rejectedBeforeSync := 0

	// Statistics ticker
	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	// Channel for non-blocking reads; an empty chunk marks an idle gap
	readChan := make(chan []byte, 10)
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 128)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
					readErr <- err
					return
				}
				glog.Warningf("read error: %v", err)
				continue
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			readChan <- data
		}
	}()

	for {
		select {
		case data := <-readChan:
			frames := framer.Feed(data)
			if len(data) == 0 || framed {
				if frame := framer.Flush(); frame != nil {
					frames = append(frames, frame)
				}
			}

			for _, frame := range frames {
				packet, err := gdproto.ParsePacket(frame)
				if err != nil {
					if synchronized {
						// We're synced, this is a real error
						stats.Update(0, err)
						printFrameError(frame, err)
					} else {
						rejectedBeforeSync++
					}
					continue
				}

				if !synchronized {
					synchronized = true
					if rejectedBeforeSync > 0 {
						fmt.Printf("[SYNC] Synchronized after skipping %d bad frames\n\n", rejectedBeforeSync)
					} else {
						fmt.Printf("[SYNC] Synchronized\n\n")
					}
				}

				stats.Update(packet.Type(), nil)
				validationErrors := gdproto.ValidatePacket(packet)
				stats.RecordAnomalies(len(validationErrors))

				if len(validationErrors) > 0 {
					printValidationErrors(packet, validationErrors)
				} else if showAll {
					fmt.Print(gdproto.FormatPacket(packet))
				}
			}

		case err := <-readErr:
			glog.Infof("connection closed: %v", err)
			fmt.Println()
			fmt.Print(stats.String())
			return nil

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}
