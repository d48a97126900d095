// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/thrustboard/pkg/driver"
	"github.com/Thermoquad/thrustboard/pkg/gdproto"
)

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// boardModel is the Bubble Tea model for the board dashboard
type boardModel struct {
	connInfo         string
	heartbeatTimeout time.Duration

	status    driver.Status
	stats     gdproto.Statistics
	lastFrame time.Time

	bar           progress.Model
	eventLog      []logEntry
	maxLogEntries int

	width      int
	height     int
	quitting   bool
	linkClosed bool
}

// Messages
type boardTickMsg time.Time

type boardStatusMsg struct {
	status driver.Status
	stats  gdproto.Statistics
}

type linkClosedMsg struct {
	err error
}

func initialBoardModel(connInfo string, heartbeatTimeout time.Duration, status driver.Status) boardModel {
	return boardModel{
		connInfo:         connInfo,
		heartbeatTimeout: heartbeatTimeout,
		status:           status,
		stats:            *gdproto.NewStatistics(),
		bar:              progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		eventLog:         make([]logEntry, 0),
		maxLogEntries:    100,
		width:            80,
		height:           24,
	}
}

func (m boardModel) Init() tea.Cmd {
	return boardTickCmd()
}

func boardTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return boardTickMsg(t)
	})
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if w := msg.Width - 24; w > 10 {
			m.bar.Width = w
		}

	case boardTickMsg:
		return m, boardTickCmd()

	case boardStatusMsg:
		if msg.status.State != m.status.State {
			if msg.status.State == driver.Killed {
				m.addLogEntry(fmt.Sprintf("KILLED: heartbeat stale (%v)", msg.status.HeartbeatAge.Round(time.Millisecond)), true)
			} else {
				m.addLogEntry("ARMED: heartbeat received, thrust restored", false)
			}
		}
		if msg.stats.Errors() > m.stats.Errors() {
			m.addLogEntry(fmt.Sprintf("%d frames rejected", msg.stats.Errors()-m.stats.Errors()), true)
		}
		m.status = msg.status
		m.stats = msg.stats
		m.lastFrame = time.Now()

	case linkClosedMsg:
		m.linkClosed = true
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Link closed: %v", msg.err), true)
		} else {
			m.addLogEntry("Link closed", true)
		}
	}

	return m, nil
}

func (m *boardModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m boardModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	armedStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("10")).
		Padding(0, 2)

	killedStyle := armedStyle.
		Background(lipgloss.Color("9"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("THRUSTBOARD - BOARD"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Press 'q' to quit", m.connInfo)))
	s.WriteString("\n\n")

	// Arming state
	if m.status.State == driver.Killed {
		s.WriteString(killedStyle.Render("KILLED"))
	} else {
		s.WriteString(armedStyle.Render("ARMED"))
	}
	age := time.Since(m.status.LastHeartbeat).Round(100 * time.Millisecond)
	s.WriteString("  ")
	s.WriteString(labelStyle.Render("Heartbeat age:"))
	s.WriteString(" ")
	if m.status.State == driver.Armed && age > m.heartbeatTimeout {
		s.WriteString(errorStyle.Render(age.String() + " (stale, kill on next query)"))
	} else {
		s.WriteString(valueStyle.Render(age.String()))
	}
	if !m.lastFrame.IsZero() {
		s.WriteString("  ")
		s.WriteString(labelStyle.Render("Last packet:"))
		s.WriteString(" ")
		s.WriteString(valueStyle.Render(time.Since(m.lastFrame).Round(100*time.Millisecond).String() + " ago"))
	}
	if m.linkClosed {
		s.WriteString("  ")
		s.WriteString(errorStyle.Render("LINK CLOSED"))
	}
	s.WriteString("\n\n")

	// Thrusters
	output := m.status.Output()
	thrusters := strings.Builder{}
	for i, f := range m.status.Thrust {
		line := fmt.Sprintf("%s %s %s", labelStyle.Render(fmt.Sprintf("T%d", i)), m.bar.ViewAs(output[i]), valueStyle.Render(fmt.Sprintf("%5.1f%%", f*100)))
		if m.status.State == driver.Killed && f > 0 {
			line += errorStyle.Render(" held")
		}
		thrusters.WriteString(line)
		if i < len(m.status.Thrust)-1 {
			thrusters.WriteString("\n")
		}
	}
	s.WriteString(boxStyle.Render(thrusters.String()))
	s.WriteString("\n\n")

	// Statistics
	stats := m.stats
	stats.CalculateRates()
	s.WriteString(boxStyle.Render(fmt.Sprintf("%s %s   %s %s   %s %s\n%s %s   %s %s",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", stats.TotalFrames)),
		labelStyle.Render("Valid:"), valueStyle.Render(fmt.Sprintf("%d", stats.ValidPackets)),
		labelStyle.Render("Replies:"), valueStyle.Render(fmt.Sprintf("%d", stats.Responses)),
		labelStyle.Render("Checksum Errors:"), errorStyle.Render(fmt.Sprintf("%d", stats.ChecksumErrors)),
		labelStyle.Render("Decode Errors:"), errorStyle.Render(fmt.Sprintf("%d", stats.DecodeErrors)),
	)))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Events:"))
	s.WriteString("\n")
	maxLines := m.height - 22
	if maxLines < 3 {
		maxLines = 3
	}
	start := len(m.eventLog) - maxLines
	if start < 0 {
		start = 0
	}
	for _, entry := range m.eventLog[start:] {
		line := fmt.Sprintf("[%s] %s", entry.timestamp.Format("15:04:05.000"), entry.message)
		if entry.isError {
			s.WriteString(errorStyle.Render(line))
		} else {
			s.WriteString(headerStyle.Render(line))
		}
		s.WriteString("\n")
	}

	return s.String()
}
