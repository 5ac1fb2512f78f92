// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"slicer-go-migration/pkg/errors"
)

const tpuProfile = `
[printer]
nozzle_diameter = 0.4, 0.4
nozzle_type = hardened_steel, brass
master_extruder_id = 1

[filaments]
filament_type = TPU, PLA, PLA
required_nozzle_hrc = 0, 0, 55
flush_volumes_matrix = 0,0,0,0,0,0,0,0,0, 0,0,0,0,0,0,0,0,0
`

func TestPhysicalUnprintablesTPUAndHardness(t *testing.T) {
	cfg := testPrintConfig(t, tpuProfile)

	unprintables, err := PhysicalUnprintables([]uint{0, 1, 2}, cfg)
	require.NoError(t, err)
	require.Len(t, unprintables, 2)

	// The master extruder keeps TPU; the other one rejects it. The brass
	// nozzle on extruder 1 also rejects the hardened filament.
	require.Empty(t, unprintables[0])
	require.Contains(t, unprintables[1], uint(0))
	require.Contains(t, unprintables[1], uint(2))
	require.NotContains(t, unprintables[1], uint(1))
}

func TestPhysicalUnprintablesTPUCount(t *testing.T) {
	cfg := testPrintConfig(t, tpuProfile)
	cfg.FilamentType = []string{"TPU", "TPU", "PLA"}

	_, err := PhysicalUnprintables([]uint{0, 1, 2}, cfg)
	require.Error(t, err)
	require.True(t, errors.IsCode(err, errors.ErrTPUCount))

	// An unused second TPU does not trip the limit.
	_, err = PhysicalUnprintables([]uint{0, 2}, cfg)
	require.NoError(t, err)
}

func TestPhysicalUnprintablesSingleExtruder(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	unprintables, err := PhysicalUnprintables([]uint{0, 1}, cfg)
	require.NoError(t, err)
	require.Len(t, unprintables, 1)
	require.Empty(t, unprintables[0])
}

func TestGeometricalUnprintables(t *testing.T) {
	cfg := testPrintConfig(t, dualNozzleProfile)

	got := GeometricalUnprintables([][]int{{2}, {1}}, cfg)
	require.Len(t, got, 2)
	require.Contains(t, got[0], uint(1))
	require.Contains(t, got[1], uint(0))

	// Missing lists and single-extruder machines yield empty sets.
	got = GeometricalUnprintables(nil, cfg)
	require.Len(t, got, 2)
	require.Empty(t, got[0])

	single := testPrintConfig(t, singleNozzleProfile)
	got = GeometricalUnprintables([][]int{{1}}, single)
	require.Len(t, got, 1)
	require.Empty(t, got[0])
}

func TestCheckTPUGroup(t *testing.T) {
	cfg := testPrintConfig(t, tpuProfile)

	tests := []struct {
		name string
		used []uint
		maps []int
		want bool
	}{
		{"tpu alone on master", []uint{0, 1}, []int{0, 1, 1}, true},
		{"tpu sharing master", []uint{0, 1}, []int{0, 0, 1}, false},
		{"tpu on wrong extruder", []uint{0, 1}, []int{1, 0, 0}, false},
		{"no tpu in use", []uint{1, 2}, []int{0, 0, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CheckTPUGroup(tt.used, tt.maps, cfg))
		})
	}
}
