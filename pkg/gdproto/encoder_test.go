// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gdproto

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResponses(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"armed", KillStatusResponse(false), []byte{0x47, 0x44, 0x03, 0xF6}},
		{"killed", KillStatusResponse(true), []byte{0x47, 0x44, 0x03, 0x01, 0xF6}},
		{"thruster ack", ThrusterAck(), []byte{0x47, 0x44, 0x00, 0xF3}},
		{"idle ack", IdleAck(), []byte{0x47, 0x44, 0x01, 0xF4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.got)
		})
	}
}

func TestCommands(t *testing.T) {
	require.Equal(t, []byte{0x47, 0x44, 0x02, 0xF5}, KillQuery())
	require.Equal(t, []byte{0x47, 0x44, 0x04, 0xF7}, Heartbeat())
}

func TestSetThrusters(t *testing.T) {
	packet, err := SetThrusters(3, 0.5, 1.0, 0)
	require.NoError(t, err)
	require.Equal(t, []byte{0x47, 0x44, 0x07, 0x03, 0x80, 0xFF, 0x00, 0xFA}, packet)
}

func TestSetThrustersRaw_Errors(t *testing.T) {
	tests := []struct {
		name string
		id   byte
		raw  []byte
	}{
		{"no values", 0, nil},
		{"id out of range", 7, []byte{1}},
		{"span past last thruster", 5, []byte{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SetThrustersRaw(tt.id, tt.raw...)
			require.Error(t, err)
		})
	}
}

func TestThrottleMapping(t *testing.T) {
	require.InDelta(t, 128.0/255.0, ByteToFraction(0x80), 1e-12)
	require.Equal(t, 0.0, ByteToFraction(0))
	require.Equal(t, 1.0, ByteToFraction(255))

	tests := []struct {
		in   float64
		want byte
	}{
		{-1, 0},
		{0, 0},
		{math.NaN(), 0},
		{0.502, 0x80},
		{1, 255},
		{2, 255},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, FractionToByte(tt.in), "FractionToByte(%v)", tt.in)
	}

	for b := 0; b < 256; b++ {
		require.Equal(t, byte(b), FractionToByte(ByteToFraction(byte(b))), "byte 0x%02X", b)
	}
}

func TestParseKillStatus(t *testing.T) {
	for _, killed := range []bool{false, true} {
		p, err := ParsePacket(KillStatusResponse(killed))
		require.NoError(t, err)
		got, ok := ParseKillStatus(p)
		require.True(t, ok)
		require.Equal(t, killed, got)
	}

	p, err := ParsePacket(IdleAck())
	require.NoError(t, err)
	_, ok := ParseKillStatus(p)
	require.False(t, ok, "ParseKillStatus accepted IDLE_ACK")
}
