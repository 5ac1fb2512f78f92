// Wipe tower partition sizing
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

import (
	"slicer-go-migration/pkg/config"
)

// fillWipeTowerPartitions counts the tool changes each layer needs from
// the tower, propagates the maximum downward so every layer supports the
// worst layer above it, marks tower-bearing layers, and patches raft gaps
// and spacing violations.
func (t *ToolOrdering) fillWipeTowerPartitions(objectBottomZ, maxLayerHeight float64) {
	if len(t.layers) == 0 {
		return
	}

	// Minimum number of tool changes per layer. The first filament of a
	// layer continuing the previous layer's last needs no initial change.
	last := Unassigned
	for i := range t.layers {
		lt := &t.layers[i]
		lt.WipeTowerPartitions = len(lt.Filaments)
		if len(lt.Filaments) > 0 {
			if !last.Assigned() || last == lt.Filaments[0] {
				lt.WipeTowerPartitions--
			}
			last = lt.Filaments[len(lt.Filaments)-1]
		}
	}

	// Support the upper partitions by the lower ones.
	for i := len(t.layers) - 2; i >= 0; i-- {
		if t.layers[i].WipeTowerPartitions < t.layers[i+1].WipeTowerPartitions {
			t.layers[i].WipeTowerPartitions = t.layers[i+1].WipeTowerPartitions
		}
	}

	continuousTower := t.cfg != nil && t.cfg.Timelapse == config.TimelapseSmooth
	for i := range t.layers {
		lt := &t.layers[i]
		lt.HasWipeTower = (lt.HasObject && (continuousTower || lt.WipeTowerPartitions > 0)) ||
			lt.PrintZ < objectBottomZ+zEpsilon
	}

	t.patchRaftGap(objectBottomZ, maxLayerHeight)
	t.patchTowerSpacing(maxLayerHeight)

	// Tower layer heights follow from the gaps between tower layers.
	lastTowerZ := 0.0
	for i := range t.layers {
		lt := &t.layers[i]
		if lt.HasWipeTower {
			lt.WipeTowerLayerHeight = lt.PrintZ - lastTowerZ
			lastTowerZ = lt.PrintZ
		}
	}
}

// patchRaftGap inserts one extra tower-only layer when the gap between the
// last raft layer and the first object layer exceeds the maximum layer
// height. Degenerate geometry (no filaments around the gap) skips the
// insertion instead of failing.
func (t *ToolOrdering) patchRaftGap(objectBottomZ, maxLayerHeight float64) {
	for i := 0; i+1 < len(t.layers); i++ {
		lt := &t.layers[i]
		ltNext := &t.layers[i+1]
		if lt.PrintZ >= objectBottomZ+zEpsilon || ltNext.PrintZ < objectBottomZ+zEpsilon {
			continue
		}
		// lt is the last raft layer; find the first tower-bearing layer.
		j := i + 1
		for j < len(t.layers) && !t.layers[j].HasWipeTower {
			j++
		}
		if j == len(t.layers) {
			return
		}
		gap := t.layers[j].PrintZ - lt.PrintZ
		if gap <= maxLayerHeight+zEpsilon {
			return
		}

		midZ := 0.5 * (lt.PrintZ + t.layers[j].PrintZ)
		k := i + 1
		for k < len(t.layers) && t.layers[k].PrintZ < midZ-zEpsilon {
			k++
		}
		if k < len(t.layers) && absf(t.layers[k].PrintZ-midZ) < zEpsilon {
			t.layers[k].HasWipeTower = true
			return
		}
		if k == 0 || k >= len(t.layers) ||
			len(t.layers[k-1].Filaments) == 0 || len(t.layers[k].Filaments) == 0 {
			t.logger.Warn("raft gap at z=%.3f has no printable neighbors, skipping tower layer insertion", midZ)
			return
		}

		extra := newLayerTools(midZ)
		extra.HasWipeTower = true
		extra.Filaments = []Filament{t.layers[k].Filaments[0]}
		extra.WipeTowerPartitions = t.layers[k].WipeTowerPartitions
		t.layers = append(t.layers, LayerTools{})
		copy(t.layers[k+1:], t.layers[k:])
		t.layers[k] = extra
		// The insert moved the layers in memory; any overlay created
		// before it still points at the old slot.
		for li := range t.layers {
			if w := t.layers[li].wiping; w != nil {
				w.lt = &t.layers[li]
			}
		}
		return
	}
}

// patchTowerSpacing marks layers whose neighbors disagree on the active
// filament without a tower, and enforces the maximum spacing between
// consecutive tower layers.
func (t *ToolOrdering) patchTowerSpacing(maxLayerHeight float64) {
	for i := 0; i+1 < len(t.layers); i++ {
		lt := &t.layers[i]
		ltNext := &t.layers[i+1]
		if len(lt.Filaments) == 0 || len(ltNext.Filaments) == 0 {
			break
		}
		if !ltNext.HasWipeTower &&
			(ltNext.Filaments[0] != lt.Filaments[len(lt.Filaments)-1] || len(ltNext.Filaments) > 1) {
			ltNext.HasWipeTower = true
		}
		// No two consecutive tower layers further apart than the maximum
		// layer height.
		lastTowerZ := ltNext.PrintZ
		for j := i + 2; j < len(t.layers)-1 && !t.layers[j].HasWipeTower; j++ {
			if t.layers[j+1].PrintZ-lastTowerZ > maxLayerHeight+zEpsilon {
				t.layers[j].HasWipeTower = true
				lastTowerZ = t.layers[j].PrintZ
			}
		}
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
