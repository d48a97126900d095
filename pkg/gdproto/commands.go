// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gdproto

import (
	"fmt"
	"math"
)

// Command builders create wire-ready packets for the controller side of
// the link.

// KillQuery creates a KILL_QUERY packet (0x02).
// The board answers with KILL_STATUS and samples heartbeat staleness.
func KillQuery() []byte {
	return EncodeFrame(MsgKillQuery)
}

// Heartbeat creates a HEARTBEAT packet (0x04).
// Rearms a killed board and restores its saved throttles.
func Heartbeat() []byte {
	return EncodeFrame(MsgHeartbeat)
}

// SetThrustersRaw creates a SET_THRUSTERS packet (0x07) from raw 0-255
// throttle bytes applied to consecutive thrusters starting at id.
func SetThrustersRaw(id byte, raw ...byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("no throttle values")
	}
	if int(id)+len(raw) > ThrusterCount {
		return nil, fmt.Errorf("thrusters %d-%d out of range (0-%d)", id, int(id)+len(raw)-1, ThrusterCount-1)
	}
	payload := make([]byte, 0, 1+len(raw))
	payload = append(payload, id)
	payload = append(payload, raw...)
	return EncodeFrame(MsgSetThrusters, payload...), nil
}

// SetThrusters creates a SET_THRUSTERS packet (0x07) from throttle fractions.
// Fractions are clamped to [0,1] and rounded to the nearest 1/255 step.
func SetThrusters(id byte, fractions ...float64) ([]byte, error) {
	raw := make([]byte, len(fractions))
	for i, f := range fractions {
		raw[i] = FractionToByte(f)
	}
	return SetThrustersRaw(id, raw...)
}

// ByteToFraction maps a raw throttle byte onto [0,1]
func ByteToFraction(b byte) float64 {
	return float64(b) / 255
}

// FractionToByte maps a throttle fraction onto a raw byte, clamping to [0,1]
func FractionToByte(f float64) byte {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return byte(math.Round(f * 255))
}
