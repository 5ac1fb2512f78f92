// Minimum-flush sequencing and filament map resolution
//
// After the rotate-to-front pass, each layer's filament list is handed to
// the flush sequencer together with the filament-to-extruder map. In
// automatic mode the map comes from the grouping solver and is persisted
// back into the profile; in manual mode the profile's map is validated.
// Filament-change statistics are collected for all map-mode variants so
// the UI can compare them.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"slicer-go-migration/pkg/config"
	"slicer-go-migration/pkg/errors"
)

// buildFlushMatrices slices the profile's flattened flush volumes into one
// matrix per nozzle.
func buildFlushMatrices(cfg *config.PrintConfig) []FlushMatrix {
	matrices := make([]FlushMatrix, cfg.ExtruderCount())
	for n := range matrices {
		matrices[n] = FlushMatrix(cfg.FlushMatrix(n))
	}
	return matrices
}

// layerSeqRange is one explicit per-layer filament order covering an
// inclusive 1-based layer range.
type layerSeqRange struct {
	first, last int // 1-based layer numbers
	seq         []uint
}

// otherLayerSequences parses the profile's flattened
// other_layers_print_sequence: groups of [firstLayer, lastLayer,
// filamentCount, filaments...], all 1-based, group count given by
// other_layers_print_sequence_nums.
func otherLayerSequences(cfg *config.PrintConfig) []layerSeqRange {
	flat := cfg.OtherLayersPrintSequence
	var ranges []layerSeqRange
	idx := 0
	for g := 0; g < cfg.OtherLayersSequenceNums; g++ {
		if idx+3 > len(flat) {
			break
		}
		first, last, count := flat[idx], flat[idx+1], flat[idx+2]
		idx += 3
		if idx+count > len(flat) || count < 0 {
			break
		}
		seq := make([]uint, 0, count)
		for _, id1 := range flat[idx : idx+count] {
			if id1 >= 1 {
				seq = append(seq, uint(id1-1))
			}
		}
		idx += count
		ranges = append(ranges, layerSeqRange{first: first, last: last, seq: seq})
	}
	return ranges
}

// calcFilamentChangeStats walks the final layer sequences and counts tool
// changes and their purge weight under the given filament map.
func calcFilamentChangeStats(cfg *config.PrintConfig, filamentMaps []int, matrices []FlushMatrix, sequences [][]uint) FilamentChangeStats {
	lastPerExtruder := make([]int, len(matrices))
	for i := range lastPerExtruder {
		lastPerExtruder[i] = -1
	}

	flushPerFilament := make(map[uint]float64)
	changes := 0
	for _, seq := range sequences {
		for _, f := range seq {
			e := mapAt(filamentMaps, f)
			if e < 0 || e >= len(lastPerExtruder) {
				e = 0
			}
			last := lastPerExtruder[e]
			if last != -1 && last != int(f) {
				flushPerFilament[f] += matrices[e].at(uint(last), f)
				changes++
			}
			lastPerExtruder[e] = int(f)
		}
	}

	weights := make([]float64, 0, len(flushPerFilament))
	for f, volume := range flushPerFilament {
		weights = append(weights, cfg.FilamentDensityAt(int(f))*0.001*volume)
	}
	return FilamentChangeStats{
		ChangeCount: changes,
		FlushWeight: int(floats.Sum(weights)),
	}
}

// recommendedFilamentMaps computes the automatic filament-to-extruder map
// (0-based). TPU is forced onto the master extruder alone; everything else
// is delegated to the grouping solver, biased toward the master extruder,
// and the final candidate is chosen by AMS slot-color match.
func (t *ToolOrdering) recommendedFilamentMaps(layerFilaments [][]uint, physical, geometric []FilamentSet) []int {
	cfg := t.cfg
	if cfg == nil || len(layerFilaments) == 0 {
		return nil
	}

	maps := make([]int, cfg.FilamentCount())
	if cfg.ExtruderCount() != 2 {
		return maps
	}

	ctx := &GroupContext{
		FlushMatrices:         buildFlushMatrices(cfg),
		MaxGroupSize:          cfg.AMSCapacities(),
		PhysicalUnprintables:  physical,
		GeometricUnprintables: geometric,
		TotalFilaments:        cfg.FilamentCount(),
		MasterExtruder:        cfg.MasterExtruderID - 1,
	}

	used := sortedUniqueIDs(layerFilaments)
	tpu := filamentsByType(used, cfg, "TPU")
	if len(tpu) > 0 {
		for f := range maps {
			if _, ok := tpu[uint(f)]; ok {
				maps[f] = ctx.MasterExtruder
			} else {
				maps[f] = 1 - ctx.MasterExtruder
			}
		}
		return maps
	}

	maps = t.grouper.Group(ctx, layerFilaments)
	optimizeGroupForMasterExtruder(used, ctx, maps)

	candidates := append([][]int{maps}, t.grouper.Candidates()...)
	usedColors := make([]string, len(used))
	for i, f := range used {
		usedColors[i] = cfg.FilamentColourAt(int(f))
	}
	var amsColors [][]string
	if t.job != nil {
		amsColors = t.job.AMSColors
	}
	if best := selectBestGroupForAMS(candidates, used, usedColors, amsColors, similarColorThresholdDE2000); best != nil {
		maps = best
	}
	return maps
}

// reorderForMinimumFlush resolves the filament map for the job's map mode
// and replaces each layer's filament list with the sequencer's
// minimal-flush order. reorderFirstLayer is false when layer 0 already
// carries an explicit order that must be kept.
func (t *ToolOrdering) reorderForMinimumFlush(reorderFirstLayer bool) error {
	cfg := t.cfg
	if cfg == nil || len(t.layers) == 0 {
		return nil
	}

	matrices := buildFlushMatrices(cfg)
	nozzles := cfg.ExtruderCount()

	layerFilaments := make([][]uint, len(t.layers))
	for i := range t.layers {
		layerFilaments[i] = filamentIDs(t.layers[i].Filaments)
	}
	used := sortedUniqueIDs(layerFilaments)

	var unprintableLists [][]int
	if t.job != nil {
		unprintableLists = t.job.UnprintableFilaments
	}
	geometric := GeometricalUnprintables(unprintableLists, cfg)
	physical, err := PhysicalUnprintables(used, cfg)
	if err != nil {
		return err
	}

	filamentMaps := make([]int, cfg.FilamentCount())
	mapMode := cfg.MapMode

	if nozzles > 1 {
		copy(filamentMaps, cfg.FilamentMap)
		// Grouping is checked here for whole-plate scheduling; the
		// by-object pipeline runs the check once for all objects upstream.
		if cfg.Sequence != config.ByObject || t.singleObjectJob() {
			if mapMode == config.MapAuto {
				auto := t.recommendedFilamentMaps(layerFilaments, physical, geometric)
				if auto == nil {
					return nil
				}
				for i, e := range auto {
					filamentMaps[i] = e + 1
				}
				cfg.SetFilamentMaps(filamentMaps)
				t.logger.WithField("filament_map", fmt.Sprint(filamentMaps)).
					Debug("computed automatic filament map")
			}
			for i := range filamentMaps {
				filamentMaps[i]--
			}
			if !CheckTPUGroup(used, filamentMaps, cfg) {
				return errors.TPUGroupError(mapMode == config.MapManual)
			}
		} else {
			for i := range filamentMaps {
				filamentMaps[i]--
			}
		}
	} else {
		copy(filamentMaps, cfg.FilamentMap)
		invalid := false
		for _, m := range filamentMaps {
			if m != 1 {
				invalid = true
				break
			}
		}
		if invalid {
			// Defensive recovery: a stale multi-extruder map on a
			// single-extruder machine is reset, not fatal.
			parts := make([]string, len(filamentMaps))
			for i, m := range filamentMaps {
				parts[i] = fmt.Sprint(m)
			}
			t.logger.Error("invalid filament map for single extruder printer, resetting: filament_map = %s",
				strings.Join(parts, " "))
			for i := range filamentMaps {
				filamentMaps[i] = 1
			}
			cfg.SetFilamentMaps(filamentMaps)
		}
		for i := range filamentMaps {
			filamentMaps[i]--
		}
	}

	ranges := otherLayerSequences(cfg)
	var firstLayerFixed []uint
	if !reorderFirstLayer {
		firstLayerFixed = append([]uint(nil), layerFilaments[0]...)
	}
	customSeq := func(layerIdx int) ([]uint, bool) {
		if !reorderFirstLayer && layerIdx == 0 {
			return firstLayerFixed, true
		}
		for i := len(ranges) - 1; i >= 0; i-- {
			if layerIdx+1 >= ranges[i].first && layerIdx+1 <= ranges[i].last {
				return ranges[i].seq, true
			}
		}
		return nil, false
	}

	sequences := t.sequencer.Sequence(filamentMaps, layerFilaments, matrices, customSeq)

	current := calcFilamentChangeStats(cfg, filamentMaps, matrices, sequences)
	switch {
	case nozzles <= 1:
		t.statsSingle = current
	case mapMode == config.MapAuto:
		t.statsMultiAuto = current
	default:
		t.statsMultiManual = current
	}

	if nozzles > 1 {
		// The single-extruder comparison always accompanies multi-extruder
		// scheduling.
		flat := make([]int, cfg.FilamentCount())
		seqSingle := t.sequencer.Sequence(flat, layerFilaments, matrices, customSeq)
		t.statsSingle = calcFilamentChangeStats(cfg, flat, matrices, seqSingle)

		if mapMode == config.MapManual {
			auto := t.recommendedFilamentMaps(layerFilaments, physical, geometric)
			if auto != nil {
				seqAuto := t.sequencer.Sequence(auto, layerFilaments, matrices, customSeq)
				t.statsMultiAuto = calcFilamentChangeStats(cfg, auto, matrices, seqAuto)
			}
		}
	}

	for i, seq := range sequences {
		if i >= len(t.layers) {
			break
		}
		fs := make([]Filament, len(seq))
		for j, id := range seq {
			fs[j] = FilamentOf(id)
		}
		t.layers[i].Filaments = fs
	}
	return nil
}

// singleObjectJob reports whether the whole-plate job has exactly one
// object.
func (t *ToolOrdering) singleObjectJob() bool {
	return t.job != nil && len(t.job.Objects) == 1
}
