// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package session runs the board side of a GD link: it frames the inbound
// byte stream, feeds packets to a driver.Driver one at a time and writes one
// reply per accepted packet.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/golang/glog"

	"github.com/Thermoquad/thrustboard/pkg/driver"
	"github.com/Thermoquad/thrustboard/pkg/gdproto"
)

// Observer receives a status snapshot after every accepted packet.
// It is called on the session goroutine and must not block.
type Observer interface {
	OnStatus(status driver.Status, stats gdproto.Statistics)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(status driver.Status, stats gdproto.Statistics)

// OnStatus implements Observer.
func (f ObserverFunc) OnStatus(status driver.Status, stats gdproto.Statistics) {
	f(status, stats)
}

// MessageFramed is implemented by transports whose reads return whole
// packets (WebSocket messages). The framer is flushed after every read.
type MessageFramed interface {
	MessageFramed() bool
}

// Session serializes receive-then-respond cycles over one transport.
type Session struct {
	rw        io.ReadWriter
	driver    *driver.Driver
	framer    *gdproto.Framer
	stats     *gdproto.Statistics
	observers []Observer
	framed    bool
}

// New creates a session for rw driving d.
func New(rw io.ReadWriter, d *driver.Driver, observers ...Observer) *Session {
	s := &Session{
		rw:        rw,
		driver:    d,
		framer:    gdproto.NewFramer(),
		stats:     gdproto.NewStatistics(),
		observers: observers,
	}
	if mf, ok := rw.(MessageFramed); ok {
		s.framed = mf.MessageFramed()
	}
	return s
}

// AddObserver registers another status observer. Not safe to call while
// Run is active.
func (s *Session) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Stats returns the live statistics. Only read it from the session
// goroutine or after Run returns.
func (s *Session) Stats() *gdproto.Statistics {
	return s.stats
}

// Driver returns the driver this session feeds
func (s *Session) Driver() *driver.Driver {
	return s.driver
}

// Run reads and answers packets until ctx is done or the transport fails.
// A read that returns no bytes marks the end of a burst (serial idle gap).
// Cancelling ctx does not interrupt a blocked Read; close the transport too.
// io.EOF ends the session cleanly.
func (s *Session) Run(ctx context.Context) error {
	buf := make([]byte, 128)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := s.rw.Read(buf)
		if n > 0 {
			for _, frame := range s.framer.Feed(buf[:n]) {
				if werr := s.answer(frame); werr != nil {
					return werr
				}
			}
		}
		if n == 0 || s.framed {
			if frame := s.framer.Flush(); frame != nil {
				if werr := s.answer(frame); werr != nil {
					return werr
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
	}
}

func (s *Session) answer(frame []byte) error {
	reply, err := s.HandleFrame(frame)
	if err != nil {
		return nil
	}
	if _, err := s.rw.Write(reply); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}

// HandleFrame runs one decode step and returns the reply to send.
// Rejected frames return the decode error and no reply; the session keeps
// running after them.
func (s *Session) HandleFrame(frame []byte) ([]byte, error) {
	before := s.driver.State()
	p, err := gdproto.ParsePacket(frame)
	if err == nil {
		err = s.driver.Handle(p)
	}

	if err != nil {
		s.stats.Update(0, err)
		if errors.Is(err, gdproto.ErrChecksum) {
			glog.V(1).Infof("dropped %s: %v", gdproto.FormatHex(frame), err)
		} else {
			glog.Warningf("rejected %s: %v", gdproto.FormatHex(frame), err)
		}
		return nil, err
	}
	s.stats.Update(p.Type(), nil)

	reply := s.driver.NextResponse()
	s.stats.RecordResponse()

	status := s.driver.Status()
	if glog.V(2) {
		glog.Infof("RX %s (%s) TX %s", gdproto.FormatHex(frame), gdproto.FormatMessageType(p.Type()), gdproto.FormatHex(reply))
	}
	if status.State != before {
		glog.Infof("board %s", status.State)
	} else if p.Type() == gdproto.MsgKillQuery && before == driver.Armed {
		glog.V(2).Infof("heartbeat age %v", status.HeartbeatAge)
	}

	for _, o := range s.observers {
		o.OnStatus(status, s.stats.Clone())
	}
	return reply, nil
}
