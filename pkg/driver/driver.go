// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package driver implements the thruster board side of the GD protocol: the
// kill/heartbeat state machine, the thruster channels and reply selection.
//
// A Driver is not safe for concurrent use. The caller feeds one packet with
// Receive, then pulls exactly one reply with NextResponse, and only then
// feeds the next packet.
package driver

import (
	"time"

	"github.com/Thermoquad/thrustboard/pkg/gdproto"
)

// State is the arming state of the board
type State int

const (
	// Armed boards may drive the thrusters.
	Armed State = iota
	// Killed boards have zeroed thrust until the next heartbeat.
	Killed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Armed:
		return "ARMED"
	case Killed:
		return "KILLED"
	default:
		return "UNKNOWN"
	}
}

// Driver owns the mutable board state for one link session.
type Driver struct {
	clock            Clock
	heartbeatTimeout time.Duration

	killed        bool
	thrust        Thrusters
	backup        Thrusters
	lastHeartbeat time.Time

	pendingKillReply     bool
	pendingThrusterReply bool
}

// New creates a driver in the ARMED state with all thrusters at zero.
// The heartbeat clock starts now.
func New(opts ...Option) *Driver {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Driver{
		clock:            cfg.clock,
		heartbeatTimeout: cfg.heartbeatTimeout,
		killed:           cfg.killed,
		lastHeartbeat:    cfg.clock.Now(),
	}
}

// Receive validates a raw inbound packet and applies it.
// A checksum failure returns an error matching gdproto.ErrChecksum and a
// malformed packet returns a *gdproto.DecodeError. In both cases the state
// is untouched and no reply is owed.
func (d *Driver) Receive(raw []byte) error {
	p, err := gdproto.ParsePacket(raw)
	if err != nil {
		return err
	}
	return d.Handle(p)
}

// Handle applies an already validated packet. Unknown types are ignored.
func (d *Driver) Handle(p *gdproto.Packet) error {
	switch p.Type() {
	case gdproto.MsgKillQuery:
		d.pendingKillReply = true
		d.checkHeartbeat()

	case gdproto.MsgHeartbeat:
		d.killed = false
		d.lastHeartbeat = d.clock.Now()
		d.thrust = d.backup

	case gdproto.MsgSetThrusters:
		return d.setThrusters(p.Payload())
	}
	return nil
}

// checkHeartbeat samples heartbeat staleness. There is no timer: a dead
// controller is only noticed when a kill query arrives.
func (d *Driver) checkHeartbeat() {
	if d.killed {
		return
	}
	if d.clock.Now().Sub(d.lastHeartbeat) > d.heartbeatTimeout {
		d.backup = d.thrust
		d.thrust = Thrusters{}
		d.killed = true
	}
}

func (d *Driver) setThrusters(payload []byte) error {
	if len(payload) < 2 {
		return &gdproto.DecodeError{
			Type:    gdproto.MsgSetThrusters,
			Message: "payload needs a thruster id and at least one value",
			Err:     ErrNoThrottle,
		}
	}
	if err := d.thrust.ApplyRaw(int(payload[0]), payload[1:]); err != nil {
		return &gdproto.DecodeError{
			Type:    gdproto.MsgSetThrusters,
			Message: "rejected",
			Err:     err,
		}
	}
	d.pendingThrusterReply = true
	return nil
}

// NextResponse builds the reply for the last handled packet and clears the
// flag that selected it. Kill status wins over the thruster ack; with
// nothing pending the idle ack is sent.
func (d *Driver) NextResponse() []byte {
	switch {
	case d.pendingKillReply:
		d.pendingKillReply = false
		return gdproto.KillStatusResponse(d.killed)
	case d.pendingThrusterReply:
		d.pendingThrusterReply = false
		return gdproto.ThrusterAck()
	default:
		return gdproto.IdleAck()
	}
}

// State returns the current arming state
func (d *Driver) State() State {
	if d.killed {
		return Killed
	}
	return Armed
}

// Killed reports whether the board is in the fail-safe state
func (d *Driver) Killed() bool {
	return d.killed
}

// Thrust returns a copy of the commanded throttles
func (d *Driver) Thrust() Thrusters {
	return d.thrust
}

// Status returns a value snapshot of the driver state
func (d *Driver) Status() Status {
	return Status{
		State:                d.State(),
		Thrust:               d.thrust,
		Backup:               d.backup,
		LastHeartbeat:        d.lastHeartbeat,
		HeartbeatAge:         d.clock.Now().Sub(d.lastHeartbeat),
		PendingKillReply:     d.pendingKillReply,
		PendingThrusterReply: d.pendingThrusterReply,
	}
}

// Status is an immutable copy of the driver state for observers
type Status struct {
	State                State
	Thrust               Thrusters
	Backup               Thrusters
	LastHeartbeat        time.Time
	HeartbeatAge         time.Duration
	PendingKillReply     bool
	PendingThrusterReply bool
}

// Output returns the throttles an actuator may apply: the commanded values
// while armed, zero while killed.
func (s Status) Output() Thrusters {
	if s.State == Killed {
		return Thrusters{}
	}
	return s.Thrust
}
