// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gdproto

import "time"

// Packet represents a validated GD packet
type Packet struct {
	msgType   byte
	payload   []byte
	checksum  byte
	raw       []byte
	timestamp time.Time
}

// ParsePacket validates raw and returns the decoded packet.
// A bad checksum returns a *ChecksumError. The checksum covers the marker,
// so a corrupted marker is reported as a checksum failure. Short buffers and
// a wrong marker with a matching checksum return a *DecodeError.
// The returned packet does not alias raw.
func ParsePacket(raw []byte) (*Packet, error) {
	if len(raw) < MinPacketSize {
		var msgType byte
		if len(raw) >= HeaderSize {
			msgType = raw[2]
		}
		return nil, &DecodeError{
			Type:    msgType,
			Message: "need at least 4 bytes",
			Err:     ErrShortPacket,
		}
	}

	expected := Checksum(raw)
	got := raw[len(raw)-1]
	if expected != got {
		return nil, &ChecksumError{Expected: expected, Got: got}
	}

	if raw[0] != Marker0 || raw[1] != Marker1 {
		return nil, &DecodeError{
			Type:    raw[2],
			Message: "got marker " + formatHex(raw[:2]),
			Err:     ErrBadMarker,
		}
	}

	buf := make([]byte, len(raw))
	copy(buf, raw)
	return &Packet{
		msgType:   buf[2],
		payload:   buf[HeaderSize : len(buf)-1],
		checksum:  got,
		raw:       buf,
		timestamp: time.Now(),
	}, nil
}

// Type returns the packet's type byte
func (p *Packet) Type() byte {
	return p.msgType
}

// Payload returns the bytes between the type byte and the checksum
func (p *Packet) Payload() []byte {
	return p.payload
}

// Checksum returns the packet's trailing checksum byte
func (p *Packet) Checksum() byte {
	return p.checksum
}

// Bytes returns the full wire encoding of the packet
func (p *Packet) Bytes() []byte {
	return p.raw
}

// Len returns the total packet length including framing
func (p *Packet) Len() int {
	return len(p.raw)
}

// Timestamp returns the packet's decode timestamp
func (p *Packet) Timestamp() time.Time {
	return p.timestamp
}

// IsCommand returns true for controller → board packets
func (p *Packet) IsCommand() bool {
	switch p.msgType {
	case MsgKillQuery, MsgHeartbeat, MsgSetThrusters:
		return true
	}
	return false
}
