// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gdproto

import "math/bits"

// Checksum computes the GD checksum over the first three bytes of a packet.
// Payload bytes never contribute. Panics if prefix is shorter than HeaderSize.
//
// The accumulator is 8 bits wide: for each byte it is rotated right by one,
// the byte is added, and the carry is discarded.
func Checksum(prefix []byte) byte {
	_ = prefix[HeaderSize-1]

	var sum uint8
	for _, b := range prefix[:HeaderSize] {
		sum = bits.RotateLeft8(sum, -1) + b
	}
	return sum
}

// ValidChecksum reports whether the trailing byte of packet matches the
// checksum of its header. Packets shorter than MinPacketSize never validate.
func ValidChecksum(packet []byte) bool {
	if len(packet) < MinPacketSize {
		return false
	}
	return Checksum(packet) == packet[len(packet)-1]
}
