// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gdproto

// EncodeFrame creates a complete wire-formatted GD packet:
// marker, type, payload and the header checksum.
func EncodeFrame(msgType byte, payload ...byte) []byte {
	frame := make([]byte, 0, HeaderSize+len(payload)+1)
	frame = append(frame, Marker0, Marker1, msgType)
	frame = append(frame, payload...)
	return append(frame, Checksum(frame))
}

// KillStatusResponse encodes a KILL_STATUS reply. An armed board answers
// with the bare 4-byte frame, a killed board adds the 0x01 flag byte.
func KillStatusResponse(killed bool) []byte {
	if killed {
		return EncodeFrame(MsgKillStatus, KillFlagKilled)
	}
	return EncodeFrame(MsgKillStatus)
}

// ThrusterAck encodes the acknowledgement sent after SET_THRUSTERS
func ThrusterAck() []byte {
	return EncodeFrame(MsgThrusterAck)
}

// IdleAck encodes the default acknowledgement
func IdleAck() []byte {
	return EncodeFrame(MsgIdleAck)
}

// ParseKillStatus extracts the killed flag from a KILL_STATUS packet.
// Returns false for any other packet type.
func ParseKillStatus(p *Packet) (killed bool, ok bool) {
	if p.Type() != MsgKillStatus {
		return false, false
	}
	payload := p.Payload()
	return len(payload) > 0 && payload[0] == KillFlagKilled, true
}
