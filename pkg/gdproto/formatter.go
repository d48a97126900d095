// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gdproto

import (
	"fmt"
	"strings"
)

// FormatPacket formats a packet into a human-readable string
func FormatPacket(p *Packet) string {
	timestamp := p.timestamp.Format("15:04:05.000")
	msgType := FormatMessageType(p.Type())

	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d chk=0x%02X\n", timestamp, msgType, p.Type(), p.Len(), p.Checksum())
	result += FormatPayload(p.Type(), p.Payload())

	return result
}

// FormatMessageType returns the human-readable name for a message type
func FormatMessageType(msgType byte) string {
	switch msgType {
	// Commands
	case MsgKillQuery:
		return "KILL_QUERY"
	case MsgHeartbeat:
		return "HEARTBEAT"
	case MsgSetThrusters:
		return "SET_THRUSTERS"

	// Responses
	case MsgThrusterAck:
		return "THRUSTER_ACK"
	case MsgIdleAck:
		return "IDLE_ACK"
	case MsgKillStatus:
		return "KILL_STATUS"

	default:
		return "UNKNOWN"
	}
}

// FormatPayload formats the payload based on message type
func FormatPayload(msgType byte, payload []byte) string {
	switch msgType {
	case MsgKillQuery, MsgHeartbeat, MsgThrusterAck, MsgIdleAck:
		if len(payload) == 0 {
			return "  (no payload)\n"
		}

	case MsgKillStatus:
		if len(payload) > 0 && payload[0] == KillFlagKilled {
			return "  Status: KILLED\n"
		}
		return "  Status: ARMED\n"

	case MsgSetThrusters:
		if len(payload) < 2 {
			return fmt.Sprintf("  Malformed: %s\n", formatHex(payload))
		}
		id := int(payload[0])
		var sb strings.Builder
		for i, raw := range payload[1:] {
			fmt.Fprintf(&sb, "  Thruster %d: %5.1f%% (0x%02X)\n", id+i, ByteToFraction(raw)*100, raw)
		}
		return sb.String()
	}

	return fmt.Sprintf("  Payload: %s\n", formatHex(payload))
}

// formatHex renders bytes as space-separated hex, e.g. "47 44 02"
func formatHex(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// FormatHex renders a raw buffer for logs and error output
func FormatHex(data []byte) string {
	return formatHex(data)
}
