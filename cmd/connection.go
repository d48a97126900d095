// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"

	"github.com/Thermoquad/thrustboard/internal/config"
)

// Connection provides a common interface for reading/writing bytes from serial or WebSocket
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// SerialConnection wraps a serial port. Reads time out after the idle gap
// and return no bytes, which marks the end of a packet burst.
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// ErrConnectionClosed is returned once the WebSocket link has failed
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketConnection carries GD traffic in binary WebSocket messages.
// A message holds one or more whole packets, so readers flush their framer
// after every Read. Text messages (bridge banners, pings) are dropped.
type WebSocketConnection struct {
	conn    *websocket.Conn
	pending []byte // unread tail of the current message
	err     error  // sticky read failure
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	for len(w.pending) == 0 {
		if w.err != nil {
			return 0, w.err
		}
		kind, msg, err := w.conn.ReadMessage()
		if err != nil {
			w.err = fmt.Errorf("%w: %v", ErrConnectionClosed, err)
			return 0, w.err
		}
		if kind == websocket.BinaryMessage {
			w.pending = msg
		}
	}

	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

// Write sends p as a single binary message
func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// MessageFramed reports that message boundaries are packet boundaries
func (w *WebSocketConnection) MessageFramed() bool {
	return true
}

// isMessageFramed reports whether reads on conn return whole packets
func isMessageFramed(conn Connection) bool {
	mf, ok := conn.(interface{ MessageFramed() bool })
	return ok && mf.MessageFramed()
}

// OpenSerialConnection opens a serial port connection
func OpenSerialConnection(portName string, baudRate int, idleGap time.Duration) (Connection, error) {
	if idleGap <= 0 {
		return nil, fmt.Errorf("serial port %s needs a positive idle gap, got %v", portName, idleGap)
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(idleGap); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

// wsDialTimeout bounds the TCP connect plus the upgrade handshake
const wsDialTimeout = 15 * time.Second

// passwordEnv holds the bridge password for non-interactive use
const passwordEnv = "THRUSTBOARD_PASSWORD"

// OpenWebSocketConnection dials a ws:// or wss:// board bridge. When both
// username and password are set the upgrade request carries HTTP Basic auth.
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" && skipSSLVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	header := http.Header{}
	if username != "" && password != "" {
		token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		header.Set("Authorization", "Basic "+token)
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsDialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection to %s failed (HTTP %d): %w", u.Host, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection to %s failed: %w", u.Host, err)
	}
	return &WebSocketConnection{conn: conn}, nil
}

// readLinkPassword returns $THRUSTBOARD_PASSWORD or prompts on stderr.
// A terminal prompt does not echo; piped stdin is read as one line.
func readLinkPassword(stdin *os.File) (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	defer fmt.Fprintln(os.Stderr)

	fd := int(stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// OpenConnection opens either a serial or WebSocket connection for link
func OpenConnection(link config.LinkConfig) (Connection, string, error) {
	if link.URL != "" {
		password := ""
		if link.Username != "" {
			var err error
			password, err = readLinkPassword(os.Stdin)
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(link.URL, link.Username, password, link.NoSSLVerify)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("WebSocket: %s", link.URL), nil
	}

	if link.Port != "" {
		conn, err := OpenSerialConnection(link.Port, link.Baud, link.IdleGap())
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("Serial: %s @ %d baud", link.Port, link.Baud), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}
