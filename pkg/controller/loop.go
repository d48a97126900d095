// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"context"
	"errors"
	"time"
)

// DefaultPeriod is the keepalive cycle period, well inside the board's
// one second heartbeat timeout.
const DefaultPeriod = 200 * time.Millisecond

// Cycle is the outcome of one keepalive cycle
type Cycle struct {
	Start     time.Time
	Duration  time.Duration
	Heartbeat bool // a heartbeat was sent this cycle
	Killed    bool
	Err       error
}

// Loop keeps a board armed and driven. Each cycle sends a heartbeat, the
// target throttles from thruster 0 and a kill query, in that order.
type Loop struct {
	Client *Client
	Period time.Duration
	Target []float64

	// StopHeartbeatAfter stops sending heartbeats once the loop has run
	// this long, so the board's fail-safe can be observed. Zero never stops.
	StopHeartbeatAfter time.Duration

	// OnCycle is called after every cycle from the Run goroutine
	OnCycle func(Cycle)
}

// Run cycles until ctx is done or the link fails. Reply timeouts and
// unexpected replies are reported through OnCycle and do not stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	period := l.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	started := time.Now()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		heartbeat := l.StopHeartbeatAfter <= 0 || time.Since(started) < l.StopHeartbeatAfter
		c := l.cycle(ctx, heartbeat)
		if l.OnCycle != nil {
			l.OnCycle(c)
		}
		if c.Err != nil && !recoverable(c.Err) {
			if ctx.Err() != nil {
				return nil
			}
			return c.Err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (l *Loop) cycle(ctx context.Context, heartbeat bool) Cycle {
	c := Cycle{Start: time.Now(), Heartbeat: heartbeat}
	if heartbeat {
		if c.Err = l.Client.Heartbeat(ctx); c.Err != nil {
			c.Duration = time.Since(c.Start)
			return c
		}
	}
	if len(l.Target) > 0 {
		if c.Err = l.Client.SetThrusters(ctx, 0, l.Target...); c.Err != nil {
			c.Duration = time.Since(c.Start)
			return c
		}
	}
	c.Killed, c.Err = l.Client.QueryKill(ctx)
	c.Duration = time.Since(c.Start)
	return c
}

func recoverable(err error) bool {
	return errors.Is(err, ErrReplyTimeout) || errors.Is(err, ErrUnexpectedReply)
}
