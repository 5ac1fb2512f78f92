// Layer ordering: sentinel resolution and transition minimization
//
// Walks layers in print order carrying the previous layer's last filament.
// Unassigned placeholders resolve to that carried filament; when the
// carried filament appears later in a layer's list it is rotated to the
// front with the relative order of the rest preserved, so consecutive
// layers meet without a tool change whenever their required sets allow it.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

import (
	"sort"
)

// reorderFrom resolves placeholders and rotates each layer to continue
// from the previous layer's last filament. An Unassigned seed means the
// initial filament has not been decided; the first assigned filament in
// the schedule is used.
func (t *ToolOrdering) reorderFrom(seed Filament) {
	if len(t.layers) == 0 {
		return
	}

	last := seed
	if !last.Assigned() {
		for i := 0; i < len(t.layers) && !last.Assigned(); i++ {
			for _, f := range t.layers[i].Filaments {
				if f.Assigned() {
					last = f
					break
				}
			}
		}
		if !last.Assigned() {
			// Nothing to extrude.
			return
		}
	}

	for i := range t.layers {
		lt := &t.layers[i]
		if len(lt.Filaments) == 0 {
			continue
		}
		if len(lt.Filaments) == 1 && !lt.Filaments[0].Assigned() {
			lt.Filaments[0] = last
		} else {
			if !lt.Filaments[0].Assigned() {
				// Drop the placeholder; its region merges with the next
				// real choice.
				lt.Filaments = lt.Filaments[1:]
			}
			bringToFront(lt.Filaments, last)

			// On the first layer with a wipe tower, prefer a soluble
			// filament up front so it is not purged as the first action.
			if i == 0 && t.wholePlate && t.cfg.EnablePrimeTower {
				for k, f := range lt.Filaments {
					if f.Assigned() && t.cfg.FilamentSolubleAt(int(f.ID())) {
						lt.Filaments[0], lt.Filaments[k] = lt.Filaments[k], lt.Filaments[0]
						break
					}
				}
			}
		}
		last = lt.Filaments[len(lt.Filaments)-1]
	}
}

// bringToFront rotates target to the head of fs, preserving the relative
// order of the remaining entries. No-op when target is absent or already
// first.
func bringToFront(fs []Filament, target Filament) {
	for i := 1; i < len(fs); i++ {
		if fs[i] == target {
			copy(fs[1:i+1], fs[0:i])
			fs[0] = target
			return
		}
	}
}

// reorderWithLayer0Order applies an explicit filament order to layer 0
// (from the geometric heuristic or an explicit user sequence) and follows
// the rotate-to-front rule for all subsequent layers.
func (t *ToolOrdering) reorderWithLayer0Order(order []uint) {
	if len(t.layers) == 0 {
		return
	}

	lt0 := &t.layers[0]
	present := lt0.Filaments
	lt0.Filaments = nil
	matched := make([]bool, len(present))
	for _, id := range order {
		for i, f := range present {
			if !matched[i] && f.Is(id) {
				lt0.Filaments = append(lt0.Filaments, f)
				matched[i] = true
				break
			}
		}
	}
	for i, f := range present {
		if !matched[i] && f.Assigned() {
			lt0.Filaments = append(lt0.Filaments, f)
		}
	}
	// A first layer of nothing but placeholders starts with the order's
	// head.
	if len(lt0.Filaments) == 0 && len(order) > 0 {
		lt0.Filaments = append(lt0.Filaments, FilamentOf(order[0]))
	}

	last := Unassigned
	if len(lt0.Filaments) > 0 {
		last = lt0.Filaments[len(lt0.Filaments)-1]
	} else {
		for i := 1; i < len(t.layers) && !last.Assigned(); i++ {
			for _, f := range t.layers[i].Filaments {
				if f.Assigned() {
					last = f
					break
				}
			}
		}
		if !last.Assigned() {
			return
		}
	}

	for i := 1; i < len(t.layers); i++ {
		lt := &t.layers[i]
		if len(lt.Filaments) == 0 {
			continue
		}
		if len(lt.Filaments) == 1 && !lt.Filaments[0].Assigned() {
			lt.Filaments[0] = last
		} else {
			if !lt.Filaments[0].Assigned() {
				lt.Filaments = lt.Filaments[1:]
			}
			bringToFront(lt.Filaments, last)
		}
		last = lt.Filaments[len(lt.Filaments)-1]
	}
}

// firstLayerToolOrder computes the first-layer filament order from the
// wall regions' smallest enclosed contour area: filaments owning only
// small islands print first, because small features are the most likely
// to detach when printed late. Islands thinner than the printer's minimum
// feature size are ignored. A full explicit first-layer sequence from the
// profile overrides the heuristic.
func (t *ToolOrdering) firstLayerToolOrder() []uint {
	minAreas := make(map[uint]float64)

	objects := t.job0Objects()
	for _, object := range objects {
		if len(object.Layers) == 0 {
			continue
		}
		first := object.Layers[0]
		lineWidth := t.cfg.InitialLayerLineWidth
		if !t.wholePlate && object.Config.LineWidth > 0 {
			lineWidth = object.Config.LineWidth
		}
		for _, lr := range first.Regions {
			wall := lr.Region.WallFilament
			for _, poly := range lr.RawSlices {
				if poly.VanishesWhenShrunk(0.2 * lineWidth) {
					continue
				}
				area := poly.Area()
				if cur, ok := minAreas[wall]; !ok || area < cur {
					minAreas[wall] = area
				}
			}
		}
	}

	order := make([]uint, 0, len(minAreas))
	for id := range minAreas {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		if minAreas[order[i]] != minAreas[order[j]] {
			return minAreas[order[i]] < minAreas[order[j]]
		}
		return order[i] < order[j]
	})

	// The explicit sequence wins when it covers every filament in play.
	if seq := t.cfg.FirstLayerPrintSequence; len(seq) >= len(order) && len(order) > 0 {
		pos := make(map[uint]int, len(seq))
		for i, id1 := range seq {
			if id1 >= 1 {
				pos[uint(id1-1)] = i
			}
		}
		covered := true
		for _, id := range order {
			if _, ok := pos[id]; !ok {
				covered = false
				break
			}
		}
		if covered {
			sort.Slice(order, func(i, j int) bool { return pos[order[i]] < pos[order[j]] })
		}
	}

	return order
}

// job0Objects returns the objects the first-layer heuristic walks.
func (t *ToolOrdering) job0Objects() []*Object {
	if t.wholePlate {
		return t.job.Objects
	}
	if t.object != nil {
		return []*Object{t.object}
	}
	return nil
}
