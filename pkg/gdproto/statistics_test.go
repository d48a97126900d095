// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gdproto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatistics_Update(t *testing.T) {
	s := NewStatistics()

	s.Update(MsgKillQuery, nil)
	s.Update(MsgKillQuery, nil)
	s.Update(MsgHeartbeat, nil)
	s.Update(0x42, nil)
	s.Update(0, &ChecksumError{Expected: 0xF5, Got: 0x00})
	s.Update(0, &DecodeError{Type: MsgSetThrusters, Message: "rejected"})
	s.RecordResponse()
	s.RecordAnomalies(2)

	require.Equal(t, uint64(6), s.TotalFrames)
	require.Equal(t, uint64(4), s.ValidPackets)
	require.Equal(t, uint64(1), s.ChecksumErrors)
	require.Equal(t, uint64(1), s.DecodeErrors)
	require.Equal(t, uint64(2), s.Errors())
	require.Equal(t, uint64(1), s.UnknownTypes)
	require.Equal(t, uint64(2), s.ByType[MsgKillQuery])
	require.Equal(t, uint64(2), s.Anomalies)
	require.Equal(t, uint64(1), s.Responses)

	out := s.String()
	for _, want := range []string{"Total Frames:", "Checksum Errors:", "KILL_QUERY:", "Unknown Types:", "Anomalies:"} {
		require.Contains(t, out, want)
	}
}

func TestStatistics_CloneIsIndependent(t *testing.T) {
	s := NewStatistics()
	s.Update(MsgHeartbeat, nil)

	c := s.Clone()
	s.Update(MsgHeartbeat, nil)

	require.Equal(t, uint64(1), c.ByType[MsgHeartbeat])
	require.Equal(t, uint64(1), c.TotalFrames)
}

func TestStatistics_Reset(t *testing.T) {
	s := NewStatistics()
	s.Update(MsgHeartbeat, nil)
	s.Reset()

	require.Zero(t, s.TotalFrames)
	require.NotNil(t, s.ByType)
	require.Empty(t, s.ByType)
}
