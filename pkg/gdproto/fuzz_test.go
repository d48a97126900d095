// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gdproto

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomSetThrusters builds a valid SET_THRUSTERS packet with random id and values
func randomSetThrusters(rng *rand.Rand) []byte {
	id := rng.Intn(ThrusterCount)
	count := rng.Intn(ThrusterCount-id) + 1
	raw := make([]byte, count)
	rng.Read(raw)
	packet, err := SetThrustersRaw(byte(id), raw...)
	if err != nil {
		panic(err)
	}
	return packet
}

// TestFuzzFramer_RandomBytes feeds random bytes to the framer and parser
// and verifies nothing panics
func TestFuzzFramer_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		f := NewFramer()

		length := rng.Intn(512) + 1
		data := make([]byte, length)
		rng.Read(data)

		frames := f.Feed(data)
		if frame := f.Flush(); frame != nil {
			frames = append(frames, frame)
		}
		for _, frame := range frames {
			require.LessOrEqual(t, len(frame), MaxPacketSize, "Round %d", i)
			require.NotPanics(t, func() { ParsePacket(frame) }, "Round %d: % X", i, frame)
		}
	}
}

// TestFuzzFramer_RandomPackets frames bursts of valid packets separated by
// flushes and checks every packet comes back intact
func TestFuzzFramer_RandomPackets(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		f := NewFramer()

		var packet []byte
		switch rng.Intn(3) {
		case 0:
			packet = KillQuery()
		case 1:
			packet = Heartbeat()
		default:
			packet = randomSetThrusters(rng)
		}

		frames := f.Feed(packet)
		if frame := f.Flush(); frame != nil {
			frames = append(frames, frame)
		}
		require.Equal(t, [][]byte{packet}, frames, "Round %d", i)

		p, err := ParsePacket(frames[0])
		require.NoError(t, err, "Round %d", i)
		require.Equal(t, packet[2], p.Type(), "Round %d", i)
	}
}

// TestFuzzParse_CorruptedChecksum corrupts the checksum byte of valid
// packets and verifies they are always rejected
func TestFuzzParse_CorruptedChecksum(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		packet := randomSetThrusters(rng)
		packet[len(packet)-1] ^= byte(rng.Intn(255) + 1)

		_, err := ParsePacket(packet)
		require.ErrorIs(t, err, ErrChecksum, "Round %d: % X", i, packet)
	}
}
