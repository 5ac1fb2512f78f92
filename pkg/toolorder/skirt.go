// Skirt / draft shield layer marking
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

// markSkirtLayers marks the layers carrying the infinite skirt. The first
// object-bearing layer always carries it; further layers are marked so the
// cumulative gap between skirt layers never exceeds the maximum layer
// height, stepping back over empty layers to find a printable host.
func (t *ToolOrdering) markSkirtLayers(maxLayerHeight float64) {
	if len(t.layers) == 0 {
		return
	}
	if len(t.layers[0].Filaments) == 0 {
		// Empty first layer, no skirt will be printed.
		t.logger.Warn("empty first layer, skipping skirt generation")
		return
	}

	i := 0
	for {
		t.layers[i].HasSkirt = true
		j := i + 1
		for j < len(t.layers) && !t.layers[j].HasObject {
			j++
		}
		// i and j are two successive layers printing an object.
		if j == len(t.layers) {
			// Don't print skirt above the last object layer.
			break
		}
		lastZ := t.layers[i].PrintZ
		for k := i + 1; k < j; k++ {
			if t.layers[k+1].PrintZ-lastZ > maxLayerHeight+zEpsilon {
				// Layer k is the last one not violating the maximum layer
				// height. Don't extrude skirt on empty layers.
				for len(t.layers[k].Filaments) == 0 {
					k--
				}
				if t.layers[k].HasSkirt {
					// Empty layers would leave a hole in the skirt; stop
					// marking instead of generating a broken shield.
					t.logger.Warn("skirt interrupted by empty layers below z=%.3f", t.layers[j].PrintZ)
					break
				}
				t.layers[k].HasSkirt = true
				lastZ = t.layers[k].PrintZ
			}
		}
		i = j
	}
}
