// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package controller implements the controller side of a GD link: it sends
// one command at a time and waits for the board's reply.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/Thermoquad/thrustboard/pkg/gdproto"
)

// DefaultReplyTimeout bounds each request/reply exchange
const DefaultReplyTimeout = 500 * time.Millisecond

var (
	// ErrReplyTimeout indicates the board did not answer in time.
	ErrReplyTimeout = errors.New("reply timeout")
	// ErrUnexpectedReply indicates a reply of the wrong type.
	ErrUnexpectedReply = errors.New("unexpected reply")
	// ErrLinkClosed indicates the transport reached EOF.
	ErrLinkClosed = errors.New("link closed")
)

// Option configures a Client
type Option func(*Client)

// WithReplyTimeout overrides DefaultReplyTimeout. Non-positive values are
// ignored.
func WithReplyTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.replyTimeout = d
		}
	}
}

// WithMessageFraming marks the transport as returning whole packets per
// read, so the framer is flushed after every read.
func WithMessageFraming(framed bool) Option {
	return func(c *Client) {
		c.framed = framed
	}
}

// Client exchanges commands with a board. Exchanges are serialized; it is
// safe to call from several goroutines.
type Client struct {
	w            io.Writer
	replyTimeout time.Duration
	framed       bool

	mu      sync.Mutex
	replies chan *gdproto.Packet

	statsMu sync.Mutex
	stats   *gdproto.Statistics

	readerDone chan struct{}
	readErr    error
}

// NewClient starts reading replies from rw. The reader stops when rw
// returns an error; close the transport to stop it.
func NewClient(rw io.ReadWriter, opts ...Option) *Client {
	c := &Client{
		w:            rw,
		replyTimeout: DefaultReplyTimeout,
		replies:      make(chan *gdproto.Packet, 8),
		stats:        gdproto.NewStatistics(),
		readerDone:   make(chan struct{}),
	}
	if mf, ok := rw.(interface{ MessageFramed() bool }); ok {
		c.framed = mf.MessageFramed()
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop(rw)
	return c
}

func (c *Client) readLoop(r io.Reader) {
	defer close(c.readerDone)

	framer := gdproto.NewFramer()
	buf := make([]byte, 128)
	for {
		n, err := r.Read(buf)
		frames := framer.Feed(buf[:n])
		if n == 0 || c.framed {
			if frame := framer.Flush(); frame != nil {
				frames = append(frames, frame)
			}
		}
		for _, frame := range frames {
			c.deliver(frame)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrLinkClosed
			}
			c.readErr = err
			return
		}
	}
}

func (c *Client) deliver(frame []byte) {
	p, err := gdproto.ParsePacket(frame)

	c.statsMu.Lock()
	if err != nil {
		c.stats.Update(0, err)
	} else {
		c.stats.Update(p.Type(), nil)
	}
	c.statsMu.Unlock()

	if err != nil {
		glog.V(1).Infof("controller: dropped %s: %v", gdproto.FormatHex(frame), err)
		return
	}
	// Loopback adapters echo our own commands
	if p.IsCommand() {
		return
	}
	select {
	case c.replies <- p:
	default:
		glog.Warningf("controller: reply queue full, dropped %s", gdproto.FormatHex(frame))
	}
}

// Stats returns a copy of the reply statistics
func (c *Client) Stats() gdproto.Statistics {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats.Clone()
}

// Done is closed when the reader stops
func (c *Client) Done() <-chan struct{} {
	return c.readerDone
}

// Err returns the error that stopped the reader, once Done is closed
func (c *Client) Err() error {
	select {
	case <-c.readerDone:
		return c.readErr
	default:
		return nil
	}
}

// Exchange writes packet and returns the next reply from the board.
// Replies left over from earlier timed out exchanges are discarded first.
func (c *Client) Exchange(ctx context.Context, packet []byte) (*gdproto.Packet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.readerDone:
		return nil, c.readErr
	default:
	}

drain:
	for {
		select {
		case <-c.replies:
		default:
			break drain
		}
	}

	if _, err := c.w.Write(packet); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	timer := time.NewTimer(c.replyTimeout)
	defer timer.Stop()

	select {
	case p := <-c.replies:
		return p, nil
	case <-c.readerDone:
		return nil, c.readErr
	case <-timer.C:
		return nil, fmt.Errorf("%w after %v", ErrReplyTimeout, c.replyTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) expect(ctx context.Context, packet []byte, want byte) (*gdproto.Packet, error) {
	p, err := c.Exchange(ctx, packet)
	if err != nil {
		return nil, err
	}
	if p.Type() != want {
		return p, fmt.Errorf("%w: got %s, want %s", ErrUnexpectedReply,
			gdproto.FormatMessageType(p.Type()), gdproto.FormatMessageType(want))
	}
	return p, nil
}

// QueryKill sends KILL_QUERY and reports whether the board is killed
func (c *Client) QueryKill(ctx context.Context) (bool, error) {
	p, err := c.expect(ctx, gdproto.KillQuery(), gdproto.MsgKillStatus)
	if err != nil {
		return false, err
	}
	killed, _ := gdproto.ParseKillStatus(p)
	return killed, nil
}

// Heartbeat sends HEARTBEAT and waits for the idle ack
func (c *Client) Heartbeat(ctx context.Context) error {
	_, err := c.expect(ctx, gdproto.Heartbeat(), gdproto.MsgIdleAck)
	return err
}

// SetThrusters sends throttle fractions for consecutive thrusters starting
// at id and waits for the thruster ack.
func (c *Client) SetThrusters(ctx context.Context, id byte, fractions ...float64) error {
	packet, err := gdproto.SetThrusters(id, fractions...)
	if err != nil {
		return err
	}
	_, err = c.expect(ctx, packet, gdproto.MsgThrusterAck)
	return err
}
