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

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/thrustboard/internal/config"
	"github.com/Thermoquad/thrustboard/pkg/driver"
	"github.com/Thermoquad/thrustboard/pkg/gdproto"
	"github.com/Thermoquad/thrustboard/pkg/session"
	"github.com/Thermoquad/thrustboard/pkg/telemetry"
)

var (
	boardTUI              bool
	boardMQTT             string
	boardTopic            string
	boardHeartbeatTimeout int
	boardStartKilled      bool
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Run the thruster board side of the link",
	Long: `Answer GD protocol packets as the thruster/kill-switch board.

The board handles:
  - KILL_QUERY (0x02): replies with KILL_STATUS; if no heartbeat arrived within
    the heartbeat timeout, the board kills first (thrust saved and zeroed)
  - HEARTBEAT (0x04): rearms the board and restores the saved thrust
  - SET_THRUSTERS (0x07): sets consecutive thruster throttles, replies with ACK

Packets failing the checksum are dropped without a reply.

Board status can be shown in a terminal UI (--tui) and published as CBOR
snapshots to an MQTT broker (--mqtt).`,
	RunE: runBoard,
}

func init() {
	rootCmd.AddCommand(boardCmd)
	boardCmd.Flags().BoolVar(&boardTUI, "tui", false, "Show board status in a terminal UI")
	boardCmd.Flags().StringVar(&boardMQTT, "mqtt", "", "MQTT broker URL for status telemetry (mqtt://host:1883/prefix)")
	boardCmd.Flags().StringVar(&boardTopic, "topic", config.DefaultTopic, "MQTT topic under the URL prefix")
	boardCmd.Flags().IntVar(&boardHeartbeatTimeout, "heartbeat-timeout", config.DefaultHeartbeatTimeoutMs, "Heartbeat timeout in ms")
	boardCmd.Flags().BoolVar(&boardStartKilled, "start-killed", false, "Start KILLED until the first heartbeat")
}

func runBoard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("mqtt") {
		cfg.Telemetry.MQTTURL = boardMQTT
	}
	if flags.Changed("topic") {
		cfg.Telemetry.Topic = boardTopic
	}
	if flags.Changed("heartbeat-timeout") {
		cfg.Board.HeartbeatTimeoutMs = boardHeartbeatTimeout
	}
	if flags.Changed("start-killed") {
		cfg.Board.StartKilled = boardStartKilled
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg.Link)
	if err != nil {
		return err
	}
	defer conn.Close()

	d := driver.New(
		driver.WithHeartbeatTimeout(cfg.Board.HeartbeatTimeout()),
		driver.WithInitialKilled(cfg.Board.StartKilled),
	)
	s := session.New(conn, d)

	if cfg.Telemetry.MQTTURL != "" {
		pub, err := telemetry.NewMQTTPublisher(cfg.Telemetry.MQTTURL, cfg.Telemetry.Topic, 10*time.Second)
		if err != nil {
			return err
		}
		defer pub.Close()
		s.AddObserver(pub)
		glog.Infof("publishing telemetry to %s", pub.Topic)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if boardTUI {
		return runBoardTUI(ctx, conn, connInfo, cfg.Board.HeartbeatTimeout(), s)
	}

	fmt.Printf("Thrustboard - Board\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Heartbeat timeout: %v\n", cfg.Board.HeartbeatTimeout())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	s.AddObserver(session.ObserverFunc(printStateChanges(d.State())))

	// Closing the connection unblocks a pending Read
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	err = s.Run(ctx)
	fmt.Print("\n" + s.Stats().String())
	if ctx.Err() != nil || errors.Is(err, ErrConnectionClosed) {
		return nil
	}
	return err
}

// printStateChanges returns an observer printing ARMED/KILLED transitions
func printStateChanges(initial driver.State) func(driver.Status, gdproto.Statistics) {
	last := initial
	return func(status driver.Status, _ gdproto.Statistics) {
		if status.State == last {
			return
		}
		last = status.State
		timestamp := time.Now().Format("15:04:05.000")
		switch status.State {
		case driver.Killed:
			fmt.Printf("[%s] \033[1;31mKILLED\033[0m heartbeat stale (%v), saved %v\n", timestamp, status.HeartbeatAge.Round(time.Millisecond), status.Backup)
		default:
			fmt.Printf("[%s] \033[1;32mARMED\033[0m thrust %v\n", timestamp, status.Thrust)
		}
	}
}

// runBoardTUI runs the session under the board dashboard
func runBoardTUI(ctx context.Context, conn Connection, connInfo string, heartbeatTimeout time.Duration, s *session.Session) error {
	m := initialBoardModel(connInfo, heartbeatTimeout, s.Driver().Status())
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	s.AddObserver(session.ObserverFunc(func(status driver.Status, stats gdproto.Statistics) {
		p.Send(boardStatusMsg{status: status, stats: stats})
	}))

	go func() {
		err := s.Run(ctx)
		p.Send(linkClosedMsg{err: err})
	}()

	_, err := p.Run()
	conn.Close()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
