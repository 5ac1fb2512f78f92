// Binding of model custom G-code events to layers
//
// Each per-height event (pause, color change, custom block) is bound to
// the Z-nearest of its two straddling layers. Color changes that concern a
// filament never printing above the event height are moot and dropped.
// Tool changes become color changes on single-extruder multi-material
// jobs; when the model's declared mode disagrees with the job's actual
// mode, the changes are ignored entirely.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

import (
	"math"
	"sort"
)

// assignCustomGCodes binds the scheduler-owned custom G-code table to the
// finalized layers. Valid for whole-plate, by-layer scheduling only. When
// several events land on one layer, the last one wins.
func (t *ToolOrdering) assignCustomGCodes() {
	if len(t.customGCodes.Items) == 0 || len(t.layers) == 0 {
		return
	}

	numFilaments := t.cfg.FilamentCount()
	mode := ModeMultiExtruder
	if numFilaments == 1 {
		mode = ModeSingleExtruder
	} else if len(t.job.ObjectFilaments()) == 1 {
		mode = ModeMultiAsSingle
	}
	modelMode := t.customGCodes.Mode

	// Tool and color changes authored in the wrong multi-material mode are
	// meaningless for this job.
	ignoreToolAndColorChanges := (mode == ModeMultiExtruder) != (modelMode == ModeMultiExtruder)
	toolChangesAsColorChanges := mode == ModeSingleExtruder && modelMode == ModeMultiAsSingle

	apply := func(lt *LayerTools, printingAbove []bool, item *CustomGCode) {
		colorChange := item.Type == GCodeColorChange
		toolChange := item.Type == GCodeToolChange
		pauseOrCustom := !colorChange && !toolChange

		applyColorChange := !ignoreToolAndColorChanges
		if applyColorChange {
			if colorChange {
				applyColorChange = mode == ModeSingleExtruder ||
					(item.Filament.Assigned() && int(item.Filament.ID()) < numFilaments &&
						printingAbove[item.Filament.ID()])
			} else {
				applyColorChange = toolChange && toolChangesAsColorChanges
			}
		}
		if pauseOrCustom || applyColorChange {
			lt.CustomGCode = item
		}
	}

	// For every layer, which filaments still print at or above it.
	printingAboveByLayer := make([][]bool, len(t.layers))
	printingAbove := make([]bool, numFilaments)
	for i := len(t.layers) - 1; i >= 0; i-- {
		for _, f := range t.layers[i].Filaments {
			if f.Assigned() && int(f.ID()) < numFilaments {
				printingAbove[f.ID()] = true
			}
		}
		printingAboveByLayer[i] = append([]bool(nil), printingAbove...)
	}

	for idx := len(t.customGCodes.Items) - 1; idx >= 0; idx-- {
		item := &t.customGCodes.Items[idx]
		if item.Type == GCodeToolChange && !toolChangesAsColorChanges {
			continue
		}

		upper := sort.Search(len(t.layers), func(i int) bool {
			return item.PrintZ < t.layers[i].PrintZ
		})
		switch {
		case upper == 0:
			apply(&t.layers[0], printingAboveByLayer[0], item)
		case upper == len(t.layers):
			apply(&t.layers[upper-1], printingAboveByLayer[upper-1], item)
		default:
			gapLower := math.Abs(item.PrintZ - t.layers[upper-1].PrintZ)
			gapUpper := math.Abs(item.PrintZ - t.layers[upper].PrintZ)
			if gapLower < gapUpper {
				apply(&t.layers[upper-1], printingAboveByLayer[upper-1], item)
			} else {
				apply(&t.layers[upper], printingAboveByLayer[upper], item)
			}
		}
	}
}
