// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package driver

import (
	"fmt"

	"github.com/Thermoquad/thrustboard/pkg/gdproto"
)

// Thrusters holds one throttle fraction in [0,1] per thruster channel.
// It is an array, so assignment copies; a backup never aliases live values.
type Thrusters [gdproto.ThrusterCount]float64

// Apply writes fractions to consecutive channels starting at id.
// Values are clamped to [0,1]. Nothing is written if any channel would be
// out of range.
func (t *Thrusters) Apply(id int, fractions []float64) error {
	if err := checkRange(id, len(fractions)); err != nil {
		return err
	}
	for i, f := range fractions {
		t[id+i] = clamp(f)
	}
	return nil
}

// ApplyRaw writes raw 0-255 throttle bytes to consecutive channels starting
// at id, mapping each byte to byte/255 and writing through Apply.
func (t *Thrusters) ApplyRaw(id int, raw []byte) error {
	fractions := make([]float64, len(raw))
	for i, b := range raw {
		fractions[i] = gdproto.ByteToFraction(b)
	}
	return t.Apply(id, fractions)
}

// Zero reports whether every channel is at zero throttle
func (t Thrusters) Zero() bool {
	return t == Thrusters{}
}

// String formats the channels as percentages
func (t Thrusters) String() string {
	s := "["
	for i, f := range t {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%.1f%%", f*100)
	}
	return s + "]"
}

func checkRange(id, n int) error {
	if id < 0 || id >= gdproto.ThrusterCount {
		return fmt.Errorf("%w: id %d (valid 0-%d)", ErrThrusterRange, id, gdproto.ThrusterCount-1)
	}
	if id+n > gdproto.ThrusterCount {
		return fmt.Errorf("%w: %d values from id %d", ErrThrusterRange, n, id)
	}
	return nil
}

func clamp(f float64) float64 {
	switch {
	case f > 1:
		return 1
	case f > 0:
		return f
	default:
		// Also catches NaN
		return 0
	}
}
