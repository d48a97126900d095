// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package driver

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThrustersApply(t *testing.T) {
	var th Thrusters
	require.NoError(t, th.Apply(1, []float64{0.25, 1.5, -2, math.NaN()}))
	require.Equal(t, Thrusters{0, 0.25, 1, 0, 0, 0, 0}, th)
	require.Equal(t, "[0.0% 25.0% 100.0% 0.0% 0.0% 0.0% 0.0%]", th.String())
}

func TestThrustersApplyRange(t *testing.T) {
	var th Thrusters
	for _, tc := range []struct {
		id int
		n  int
	}{{-1, 1}, {7, 1}, {5, 3}} {
		err := th.Apply(tc.id, make([]float64, tc.n))
		require.True(t, errors.Is(err, ErrThrusterRange), "id %d n %d: %v", tc.id, tc.n, err)
	}
	require.NoError(t, th.Apply(0, make([]float64, 7)))
}

func TestThrustersApplyRaw(t *testing.T) {
	var th Thrusters
	require.NoError(t, th.ApplyRaw(3, []byte{0x80, 0xFF}))
	require.InDelta(t, 128.0/255.0, th[3], 1e-12)
	require.Equal(t, 1.0, th[4])
	require.Equal(t, 0.0, th[2])

	// Range errors leave every channel untouched
	before := th
	err := th.ApplyRaw(5, []byte{0x10, 0x10, 0x10})
	require.True(t, errors.Is(err, ErrThrusterRange), "got %v", err)
	err = th.ApplyRaw(7, []byte{0x10})
	require.True(t, errors.Is(err, ErrThrusterRange), "got %v", err)
	require.Equal(t, before, th)
}

func TestThrustersCopySemantics(t *testing.T) {
	var live Thrusters
	require.NoError(t, live.ApplyRaw(0, []byte{0xFF}))
	backup := live
	require.NoError(t, live.ApplyRaw(0, []byte{0x00}))
	require.Equal(t, 1.0, backup[0])
	require.True(t, live.Zero())
}
