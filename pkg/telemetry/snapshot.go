// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package telemetry publishes board status snapshots for supervisory
// consumers. Snapshots are CBOR maps with small integer keys.
package telemetry

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/thrustboard/pkg/driver"
	"github.com/Thermoquad/thrustboard/pkg/gdproto"
)

// Snapshot is the published view of one board session
type Snapshot struct {
	Session        string    `cbor:"0,keyasint"`
	Killed         bool      `cbor:"1,keyasint"`
	Thrust         []float64 `cbor:"2,keyasint"`
	Output         []float64 `cbor:"3,keyasint"`
	HeartbeatAgeMs int64     `cbor:"4,keyasint"`
	Timestamp      uint64    `cbor:"5,keyasint"` // unix ms
	Packets        uint64    `cbor:"6,keyasint"`
	ChecksumErrors uint64    `cbor:"7,keyasint"`
	DecodeErrors   uint64    `cbor:"8,keyasint"`
}

// NewSnapshot builds a snapshot from a driver status and link statistics
func NewSnapshot(session string, status driver.Status, stats gdproto.Statistics, now time.Time) Snapshot {
	output := status.Output()
	return Snapshot{
		Session:        session,
		Killed:         status.State == driver.Killed,
		Thrust:         append([]float64(nil), status.Thrust[:]...),
		Output:         append([]float64(nil), output[:]...),
		HeartbeatAgeMs: status.HeartbeatAge.Milliseconds(),
		Timestamp:      uint64(now.UnixMilli()),
		Packets:        stats.ValidPackets,
		ChecksumErrors: stats.ChecksumErrors,
		DecodeErrors:   stats.DecodeErrors,
	}
}

// Encode returns the CBOR encoding of the snapshot
func (s Snapshot) Encode() ([]byte, error) {
	data, err := cbor.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a CBOR snapshot
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if len(s.Thrust) != gdproto.ThrusterCount {
		return Snapshot{}, fmt.Errorf("expected %d thrust values, got %d", gdproto.ThrusterCount, len(s.Thrust))
	}
	return s, nil
}
