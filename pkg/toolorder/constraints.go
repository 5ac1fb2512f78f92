// Per-extruder filament constraint resolution
//
// Two independent sources restrict which filament may run through which
// physical extruder: physical attributes (TPU isolation, nozzle hardness)
// and the upstream printable-area analysis. Both produce per-extruder
// unprintable sets that the grouping solver honors.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

import (
	"slicer-go-migration/pkg/config"
	"slicer-go-migration/pkg/errors"
)

// FilamentSet is a set of 0-based filament ids.
type FilamentSet map[uint]struct{}

// filamentsByType collects the used filaments of the given material type.
func filamentsByType(used []uint, cfg *config.PrintConfig, materialType string) FilamentSet {
	target := make(FilamentSet)
	for _, id := range used {
		if cfg.FilamentTypeAt(int(id)) == materialType {
			target[id] = struct{}{}
		}
	}
	return target
}

// PhysicalUnprintables determines the unprintable filaments of each
// extruder from physical attributes:
//  1. at most one TPU filament is supported, and it must be grouped alone
//     on the master extruder, so the opposite extruder rejects it;
//  2. a filament whose hardness requirement exceeds a nozzle's rating is
//     rejected by that nozzle's extruder.
//
// Single-extruder machines return empty sets.
func PhysicalUnprintables(used []uint, cfg *config.PrintConfig) ([]FilamentSet, error) {
	masterExtruder := cfg.MasterExtruderID - 1 // profile value is 1-based

	tpu := filamentsByType(used, cfg, "TPU")
	if len(tpu) > 1 {
		return nil, errors.TPUCountError(len(tpu))
	}

	extruders := cfg.ExtruderCount()
	unprintables := make([]FilamentSet, extruders)
	for i := range unprintables {
		unprintables[i] = make(FilamentSet)
	}
	if extruders < 2 {
		return unprintables, nil
	}

	extruderWithoutTPU := 1 - masterExtruder
	for f := range tpu {
		unprintables[extruderWithoutTPU][f] = struct{}{}
	}

	for eid := 0; eid < extruders; eid++ {
		nozzleHRC := cfg.NozzleHRC(eid)
		for _, f := range used {
			if cfg.RequiredNozzleHRCAt(int(f)) > nozzleHRC {
				unprintables[eid][f] = struct{}{}
			}
		}
	}

	return unprintables, nil
}

// GeometricalUnprintables converts the upstream per-extruder unprintable
// filament lists (1-based) into 0-based sets. The result always has one
// set per extruder; single-extruder machines get empty sets.
func GeometricalUnprintables(lists [][]int, cfg *config.PrintConfig) []FilamentSet {
	extruders := cfg.ExtruderCount()
	unprintables := make([]FilamentSet, extruders)
	for i := range unprintables {
		unprintables[i] = make(FilamentSet)
	}
	if extruders < 2 {
		return unprintables
	}

	for eid := 0; eid < extruders && eid < len(lists); eid++ {
		for _, id := range lists[eid] {
			if id >= 1 {
				unprintables[eid][uint(id-1)] = struct{}{}
			}
		}
	}
	return unprintables
}

// CheckTPUGroup reports whether the filament map isolates TPU correctly:
// at most one TPU filament, mapped to the master extruder, with no other
// filament sharing that extruder. filamentMaps is 0-based.
func CheckTPUGroup(used []uint, filamentMaps []int, cfg *config.PrintConfig) bool {
	tpuExtruder := -1
	masterExtruder := cfg.MasterExtruderID - 1
	perExtruder := make(map[int]int)
	for _, f := range used {
		if int(f) >= len(filamentMaps) {
			continue
		}
		extruder := filamentMaps[f]
		perExtruder[extruder]++

		if cfg.FilamentTypeAt(int(f)) == "TPU" {
			if tpuExtruder != -1 {
				return false
			}
			tpuExtruder = extruder
		}
	}

	if tpuExtruder != -1 && (tpuExtruder != masterExtruder || perExtruder[tpuExtruder] > 1) {
		return false
	}
	return true
}
