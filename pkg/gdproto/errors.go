// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gdproto

import (
	"errors"
	"fmt"
)

var (
	// ErrChecksum matches any checksum failure. Links are expected to corrupt
	// bytes now and then, so callers drop these packets silently.
	ErrChecksum = errors.New("checksum mismatch")
	// ErrShortPacket indicates fewer than MinPacketSize bytes.
	ErrShortPacket = errors.New("packet too short")
	// ErrBadMarker indicates the packet does not start with the GD marker.
	ErrBadMarker = errors.New("bad start marker")
)

// ChecksumError reports the expected and received checksum bytes.
type ChecksumError struct {
	Expected byte
	Got      byte
}

// Error implements error.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%02X, got 0x%02X", e.Expected, e.Got)
}

// Is lets errors.Is(err, ErrChecksum) match.
func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksum
}

// DecodeError reports a malformed packet. Malformed control data is rejected
// outright, never partially applied.
type DecodeError struct {
	Type    byte
	Message string
	Err     error
}

// Error implements error.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s (0x%02X): %s: %v", FormatMessageType(e.Type), e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("decode %s (0x%02X): %s", FormatMessageType(e.Type), e.Type, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError returns true if err is or wraps a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
