// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gdproto

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks packet statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames    uint64
	ValidPackets   uint64
	ChecksumErrors uint64
	DecodeErrors   uint64
	UnknownTypes   uint64
	Anomalies      uint64 // checksum-valid packets failing ValidatePacket
	Responses      uint64
	ByType         map[byte]uint64

	// Rates (calculated)
	PacketRate float64 // packets/sec
	ErrorRate  float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		ByType:         make(map[byte]uint64),
	}
}

// Update records one received frame and the result of handling it.
// msgType is only used when err is nil.
func (s *Statistics) Update(msgType byte, err error) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	if err != nil {
		if errors.Is(err, ErrChecksum) {
			s.ChecksumErrors++
		} else {
			s.DecodeErrors++
		}
		return
	}

	s.ValidPackets++
	s.ByType[msgType]++
	if FormatMessageType(msgType) == "UNKNOWN" {
		s.UnknownTypes++
	}
}

// RecordAnomalies counts validation errors found in a valid packet
func (s *Statistics) RecordAnomalies(n int) {
	s.Anomalies += uint64(n)
}

// RecordResponse counts one outbound reply
func (s *Statistics) RecordResponse() {
	s.Responses++
}

// Errors returns the total number of rejected frames
func (s *Statistics) Errors() uint64 {
	return s.ChecksumErrors + s.DecodeErrors
}

// CalculateRates calculates packet and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.PacketRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, checksumPercent, decodePercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidPackets) * 100.0 / float64(s.TotalFrames)
		checksumPercent = float64(s.ChecksumErrors) * 100.0 / float64(s.TotalFrames)
		decodePercent = float64(s.DecodeErrors) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Packets:   %8d (%.1f%%)\n", s.ValidPackets, validPercent)

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, checksumPercent)
	}
	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors, decodePercent)
	}
	if s.Anomalies > 0 {
		result += fmt.Sprintf("Anomalies:       %8d\n", s.Anomalies)
	}
	for _, t := range []byte{MsgKillQuery, MsgHeartbeat, MsgSetThrusters, MsgThrusterAck, MsgIdleAck, MsgKillStatus} {
		if n := s.ByType[t]; n > 0 {
			result += fmt.Sprintf("  %-14s %6d\n", FormatMessageType(t)+":", n)
		}
	}
	if s.UnknownTypes > 0 {
		result += fmt.Sprintf("  Unknown Types:  %6d\n", s.UnknownTypes)
	}

	result += fmt.Sprintf("Responses:       %8d\n", s.Responses)
	result += fmt.Sprintf("Packet Rate:     %8.1f pkts/sec\n", s.PacketRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Clone returns a copy that shares no state with s
func (s *Statistics) Clone() Statistics {
	c := *s
	c.ByType = make(map[byte]uint64, len(s.ByType))
	for k, v := range s.ByType {
		c.ByType[k] = v
	}
	return c
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
