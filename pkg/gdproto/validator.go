// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gdproto

import "fmt"

// AnomalyType represents different types of packet anomalies
type AnomalyType int

const (
	AnomalyLengthMismatch AnomalyType = iota
	AnomalyInvalidValue
	AnomalyThrusterRange
	AnomalyUnknownType
)

// String returns the anomaly name
func (a AnomalyType) String() string {
	switch a {
	case AnomalyLengthMismatch:
		return "LENGTH_MISMATCH"
	case AnomalyInvalidValue:
		return "INVALID_VALUE"
	case AnomalyThrusterRange:
		return "THRUSTER_RANGE"
	case AnomalyUnknownType:
		return "UNKNOWN_TYPE"
	default:
		return "UNKNOWN"
	}
}

// ValidationError represents a checksum-valid packet that a board or
// controller would still not act on as sent
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidatePacket checks packet structure beyond the checksum.
// Returns a slice of validation errors (empty if packet is valid)
func ValidatePacket(p *Packet) []ValidationError {
	switch p.msgType {
	case MsgKillQuery, MsgHeartbeat, MsgThrusterAck, MsgIdleAck:
		return validateEmpty(p)
	case MsgKillStatus:
		return validateKillStatus(p)
	case MsgSetThrusters:
		return validateSetThrusters(p)
	}
	return []ValidationError{{
		Type:    AnomalyUnknownType,
		Message: fmt.Sprintf("Unknown message type 0x%02X", p.msgType),
		Details: map[string]interface{}{"type": p.msgType},
	}}
}

func validateEmpty(p *Packet) []ValidationError {
	if len(p.payload) == 0 {
		return nil
	}
	return []ValidationError{{
		Type:    AnomalyLengthMismatch,
		Message: fmt.Sprintf("%s carries %d unexpected payload bytes", FormatMessageType(p.msgType), len(p.payload)),
		Details: map[string]interface{}{"length": len(p.payload), "expected": 0},
	}}
}

func validateKillStatus(p *Packet) []ValidationError {
	switch {
	case len(p.payload) > 1:
		return []ValidationError{{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("KILL_STATUS payload too long (%d bytes, max 1)", len(p.payload)),
			Details: map[string]interface{}{"length": len(p.payload), "expected": 1},
		}}
	case len(p.payload) == 1 && p.payload[0] != KillFlagKilled:
		return []ValidationError{{
			Type:    AnomalyInvalidValue,
			Message: fmt.Sprintf("Invalid kill flag=0x%02X (want 0x%02X)", p.payload[0], KillFlagKilled),
			Details: map[string]interface{}{"flag": p.payload[0]},
		}}
	}
	return nil
}

func validateSetThrusters(p *Packet) []ValidationError {
	if len(p.payload) < 2 {
		return []ValidationError{{
			Type:    AnomalyLengthMismatch,
			Message: "SET_THRUSTERS payload too short (need id and one value)",
			Details: map[string]interface{}{"length": len(p.payload), "expected": 2},
		}}
	}

	id := int(p.payload[0])
	n := len(p.payload) - 1
	if id >= ThrusterCount || id+n > ThrusterCount {
		return []ValidationError{{
			Type:    AnomalyThrusterRange,
			Message: fmt.Sprintf("Thrusters %d-%d out of range (0-%d)", id, id+n-1, ThrusterCount-1),
			Details: map[string]interface{}{"id": id, "count": n},
		}}
	}
	return nil
}
