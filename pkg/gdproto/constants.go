// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package gdproto implements the GD thruster board serial protocol.
//
// Every packet starts with the two marker bytes 0x47 0x44 ("GD"), followed by
// a type byte, an optional payload and a single checksum byte. The checksum
// covers only the marker and type bytes. This package provides the checksum,
// packet parsing, stream framing, frame encoding and formatting.
package gdproto

// Protocol framing bytes
const (
	Marker0 = 0x47
	Marker1 = 0x44
)

// Packet size limits
const (
	HeaderSize    = 3 // marker pair + type
	MinPacketSize = 4 // header + checksum
	ThrusterCount = 7
	// Set-thrusters with every channel: header + id + 7 values + checksum
	MaxPacketSize = HeaderSize + 1 + ThrusterCount + 1
)

// Message types - Commands (Controller → Board)
const (
	MsgKillQuery    = 0x02
	MsgHeartbeat    = 0x04
	MsgSetThrusters = 0x07
)

// Message types - Responses (Board → Controller)
const (
	MsgThrusterAck = 0x00
	MsgIdleAck     = 0x01
	MsgKillStatus  = 0x03
)

// Kill status payload flag
const KillFlagKilled = 0x01

// Framer states (internal)
const (
	stateSync = iota
	stateMarker
	stateType
	stateBody
)

// fixedLength returns the full frame length for types whose size is known
// from the type byte alone, or 0 for variable-length types.
func fixedLength(msgType byte) int {
	switch msgType {
	case MsgThrusterAck, MsgIdleAck, MsgKillQuery, MsgHeartbeat:
		return MinPacketSize
	}
	return 0
}
