// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/thrustboard/pkg/driver"
	"github.com/Thermoquad/thrustboard/pkg/gdproto"
)

// scriptedConn returns one chunk per Read. An empty chunk simulates a serial
// read timeout. After the script runs out Read returns io.EOF.
type scriptedConn struct {
	chunks   [][]byte
	written  bytes.Buffer
	writes   [][]byte
	readErr  error
	writeErr error
}

func (c *scriptedConn) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		if c.readErr != nil {
			return 0, c.readErr
		}
		return 0, io.EOF
	}
	chunk := c.chunks[0]
	c.chunks = c.chunks[1:]
	return copy(p, chunk), nil
}

func (c *scriptedConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	return c.written.Write(p)
}

type framedConn struct {
	*scriptedConn
}

func (framedConn) MessageFramed() bool { return true }

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func concat(frames ...[]byte) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

func mustSetThrusters(t *testing.T, id byte, raw ...byte) []byte {
	packet, err := gdproto.SetThrustersRaw(id, raw...)
	require.NoError(t, err)
	return packet
}

func TestRunAnswersFixedLengthPackets(t *testing.T) {
	conn := &scriptedConn{chunks: [][]byte{
		concat(gdproto.KillQuery(), gdproto.Heartbeat()),
	}}
	s := New(conn, driver.New())

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, [][]byte{
		gdproto.KillStatusResponse(false),
		gdproto.IdleAck(),
	}, conn.writes)
	require.Equal(t, uint64(2), s.Stats().ValidPackets)
	require.Equal(t, uint64(2), s.Stats().Responses)
}

func TestRunFlushesOnIdleGap(t *testing.T) {
	conn := &scriptedConn{chunks: [][]byte{
		mustSetThrusters(t, 0, 0x80),
		{}, // read timeout ends the burst
		gdproto.KillQuery(),
	}}
	s := New(conn, driver.New())

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, [][]byte{
		gdproto.ThrusterAck(),
		gdproto.KillStatusResponse(false),
	}, conn.writes)
	require.InDelta(t, 128.0/255.0, s.Driver().Thrust()[0], 1e-12)
}

func TestRunSplitPacket(t *testing.T) {
	packet := mustSetThrusters(t, 1, 0x10, 0x20)
	conn := &scriptedConn{chunks: [][]byte{
		packet[:3],
		packet[3:],
		{},
	}}
	s := New(conn, driver.New())

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, [][]byte{gdproto.ThrusterAck()}, conn.writes)
	require.InDelta(t, 0x20/255.0, s.Driver().Thrust()[2], 1e-12)
}

func TestRunFullWidthPacketWithoutGap(t *testing.T) {
	packet := mustSetThrusters(t, 0, 1, 2, 3, 4, 5, 6, 7)
	require.Len(t, packet, gdproto.MaxPacketSize)

	conn := &scriptedConn{chunks: [][]byte{concat(packet, gdproto.KillQuery())}}
	s := New(conn, driver.New())

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, [][]byte{
		gdproto.ThrusterAck(),
		gdproto.KillStatusResponse(false),
	}, conn.writes)
}

func TestRunMessageFramedTransport(t *testing.T) {
	conn := framedConn{&scriptedConn{chunks: [][]byte{
		mustSetThrusters(t, 6, 0xFF),
		gdproto.Heartbeat(),
	}}}
	s := New(conn, driver.New())

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, [][]byte{
		gdproto.ThrusterAck(),
		gdproto.IdleAck(),
	}, conn.writes)
}

func TestRunDropsBadChecksum(t *testing.T) {
	conn := &scriptedConn{chunks: [][]byte{
		{0x47, 0x44, 0x02, 0x00},
		gdproto.Heartbeat(),
	}}
	s := New(conn, driver.New())

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, [][]byte{gdproto.IdleAck()}, conn.writes)
	require.Equal(t, uint64(1), s.Stats().ChecksumErrors)
	require.Equal(t, uint64(1), s.Stats().ValidPackets)
}

func TestRunSkipsNoise(t *testing.T) {
	conn := &scriptedConn{chunks: [][]byte{
		concat([]byte{0x00, 0x47, 0x13, 0xFF}, gdproto.KillQuery()),
	}}
	s := New(conn, driver.New())

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, [][]byte{gdproto.KillStatusResponse(false)}, conn.writes)
}

func TestRunRejectsOutOfRangeThrusters(t *testing.T) {
	conn := &scriptedConn{chunks: [][]byte{
		gdproto.EncodeFrame(gdproto.MsgSetThrusters, 0x07, 0x10),
		{},
		gdproto.KillQuery(),
	}}
	s := New(conn, driver.New())

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, [][]byte{gdproto.KillStatusResponse(false)}, conn.writes)
	require.Equal(t, uint64(1), s.Stats().DecodeErrors)
	require.True(t, s.Driver().Thrust().Zero())
}

func TestRunKillsOnStaleHeartbeat(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	d := driver.New(driver.WithClock(clock))

	var states []driver.State
	conn := &scriptedConn{}
	s := New(conn, d, ObserverFunc(func(status driver.Status, _ gdproto.Statistics) {
		states = append(states, status.State)
	}))

	reply, err := s.HandleFrame(gdproto.KillQuery())
	require.NoError(t, err)
	require.Equal(t, gdproto.KillStatusResponse(false), reply)

	clock.now = clock.now.Add(2 * time.Second)
	reply, err = s.HandleFrame(gdproto.KillQuery())
	require.NoError(t, err)
	require.Equal(t, gdproto.KillStatusResponse(true), reply)

	reply, err = s.HandleFrame(gdproto.Heartbeat())
	require.NoError(t, err)
	require.Equal(t, gdproto.IdleAck(), reply)

	require.Equal(t, []driver.State{driver.Armed, driver.Killed, driver.Armed}, states)
}

func TestObserverGetsStatsCopy(t *testing.T) {
	var seen []gdproto.Statistics
	s := New(&scriptedConn{}, driver.New())
	s.AddObserver(ObserverFunc(func(_ driver.Status, stats gdproto.Statistics) {
		seen = append(seen, stats)
	}))

	_, err := s.HandleFrame(gdproto.KillQuery())
	require.NoError(t, err)
	_, err = s.HandleFrame(gdproto.KillQuery())
	require.NoError(t, err)

	require.Len(t, seen, 2)
	require.Equal(t, uint64(1), seen[0].ByType[gdproto.MsgKillQuery])
	require.Equal(t, uint64(2), seen[1].ByType[gdproto.MsgKillQuery])
}

func TestHandleFrameErrorNotObserved(t *testing.T) {
	called := false
	s := New(&scriptedConn{}, driver.New(), ObserverFunc(func(driver.Status, gdproto.Statistics) {
		called = true
	}))

	reply, err := s.HandleFrame([]byte{0x47, 0x44, 0x04, 0x00})
	require.Nil(t, reply)
	require.True(t, errors.Is(err, gdproto.ErrChecksum))
	require.False(t, called)
}

func TestRunReadError(t *testing.T) {
	boom := errors.New("port unplugged")
	conn := &scriptedConn{readErr: boom}
	s := New(conn, driver.New())

	err := s.Run(context.Background())
	require.True(t, errors.Is(err, boom))
}

func TestRunWriteError(t *testing.T) {
	boom := errors.New("broken pipe")
	conn := &scriptedConn{
		chunks:   [][]byte{gdproto.KillQuery()},
		writeErr: boom,
	}
	s := New(conn, driver.New())

	err := s.Run(context.Background())
	require.True(t, errors.Is(err, boom))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	conn := &scriptedConn{chunks: [][]byte{gdproto.KillQuery()}}
	s := New(conn, driver.New())

	require.ErrorIs(t, s.Run(ctx), context.Canceled)
	require.Empty(t, conn.writes)
}
