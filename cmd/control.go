// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/thrustboard/internal/config"
	"github.com/Thermoquad/thrustboard/pkg/controller"
	"github.com/Thermoquad/thrustboard/pkg/gdproto"
)

var (
	controlPeriod   int
	controlThrottle []float64
	controlStopHB   int
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Act as the controller: keep a board armed and driven",
	Long: `Drive a GD thruster board from the controller side.

Every period the controller sends HEARTBEAT, then SET_THRUSTERS with the
--throttle values starting at thruster 0, then KILL_QUERY, waiting for each
reply in turn. ARMED/KILLED transitions and reply errors are printed.

Use --stop-heartbeat to stop heartbeats after some seconds and watch the
board's fail-safe kill it on the next query.

The connection is reopened with exponential backoff if it is lost.
Supports both serial and WebSocket connections.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
	controlCmd.Flags().IntVar(&controlPeriod, "period", int(controller.DefaultPeriod/time.Millisecond), "Cycle period in ms")
	controlCmd.Flags().Float64SliceVar(&controlThrottle, "throttle", nil, "Throttle fractions 0.0-1.0 for thrusters 0.. (comma separated)")
	controlCmd.Flags().IntVar(&controlStopHB, "stop-heartbeat", 0, "Stop sending heartbeats after this many seconds (0 = never)")
}

// connectionManager handles connection lifecycle and reconnection
type connectionManager struct {
	link     config.LinkConfig
	conn     Connection
	connInfo string
}

func runControl(cmd *cobra.Command, args []string) error {
	if len(controlThrottle) > gdproto.ThrusterCount {
		return fmt.Errorf("--throttle takes at most %d values", gdproto.ThrusterCount)
	}
	for _, v := range controlThrottle {
		if v < 0 || v > 1 {
			return fmt.Errorf("throttle %v out of range (0.0-1.0)", v)
		}
	}
	if controlPeriod <= 0 {
		return fmt.Errorf("--period must be positive")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Open initial connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection(cfg.Link)
	if err != nil {
		return err
	}
	cm := &connectionManager{link: cfg.Link, conn: conn, connInfo: connInfo}
	defer func() { cm.conn.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Thrustboard - Controller\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Period: %d ms\n", controlPeriod)
	if len(controlThrottle) > 0 {
		fmt.Printf("Throttle: %v\n", controlThrottle)
	}
	if controlStopHB > 0 {
		fmt.Printf("Heartbeats stop after %d seconds\n", controlStopHB)
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	report := &cycleReport{}
	for {
		client := controller.NewClient(cm.conn)
		loop := &controller.Loop{
			Client:             client,
			Period:             time.Duration(controlPeriod) * time.Millisecond,
			Target:             controlThrottle,
			StopHeartbeatAfter: time.Duration(controlStopHB) * time.Second,
			OnCycle:            report.onCycle,
		}

		err := loop.Run(ctx)
		report.stats = client.Stats()
		if err == nil {
			break
		}

		fmt.Printf("[%s] \033[1;31mLINK LOST:\033[0m %v\n", time.Now().Format("15:04:05.000"), err)
		if !cm.reconnect(ctx) {
			break
		}
		fmt.Printf("[%s] reconnected: %s\n", time.Now().Format("15:04:05.000"), cm.connInfo)
	}

	fmt.Print("\n" + report.String())
	return nil
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (cm *connectionManager) reconnect(ctx context.Context) bool {
	// Close old connection
	cm.conn.Close()

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}

		conn, connInfo, err := OpenConnection(cm.link)
		if err == nil {
			cm.conn = conn
			cm.connInfo = connInfo
			return true
		}
		glog.Warningf("reconnect failed: %v (next attempt in %v)", err, min(backoff*2, maxBackoff))

		// Exponential backoff
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// cycleReport prints state transitions and keeps cycle totals
type cycleReport struct {
	cycles   int
	failures int
	lastKill *bool
	maxRTT   time.Duration
	stats    gdproto.Statistics
}

func (r *cycleReport) onCycle(c controller.Cycle) {
	r.cycles++
	timestamp := c.Start.Format("15:04:05.000")

	if c.Err != nil {
		r.failures++
		if !errors.Is(c.Err, context.Canceled) {
			fmt.Printf("[%s] \033[1;33mERROR:\033[0m %v\n", timestamp, c.Err)
		}
		return
	}
	if c.Duration > r.maxRTT {
		r.maxRTT = c.Duration
	}

	if r.lastKill != nil && *r.lastKill == c.Killed {
		return
	}
	killed := c.Killed
	r.lastKill = &killed
	if killed {
		fmt.Printf("[%s] \033[1;31mKILLED\033[0m\n", timestamp)
	} else {
		fmt.Printf("[%s] \033[1;32mARMED\033[0m cycle %v\n", timestamp, c.Duration.Round(time.Microsecond))
	}
}

func (r *cycleReport) String() string {
	result := "=== Controller ===\n"
	result += fmt.Sprintf("Cycles:          %8d\n", r.cycles)
	result += fmt.Sprintf("Failed Cycles:   %8d\n", r.failures)
	result += fmt.Sprintf("Slowest Cycle:   %8v\n", r.maxRTT.Round(time.Microsecond))
	if r.stats.ByType != nil {
		result += r.stats.String()
	}
	return result
}
