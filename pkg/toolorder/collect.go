// Per-layer required-filament collection
//
// Scans object and support geometry to record, per distinct print height,
// the minimal set of filaments required. Extrusions the wiping overlay can
// claim ("printable with whatever is active") are marked instead of
// contributing a filament; a layer with geometry but no required filament
// gets the Unassigned placeholder resolved later from context.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

// filamentSwitch is one entry of the per-layer extruder-switch table.
type filamentSwitch struct {
	printZ   float64
	filament Filament
}

// customToolChanges extracts the per-layer filament switches from a
// MultiAsSingle custom G-code table. Events naming a filament outside the
// configured range are dropped.
func customToolChanges(info CustomGCodeInfo, numFilaments int) []filamentSwitch {
	var switches []filamentSwitch
	for _, item := range info.Items {
		if item.Type != GCodeToolChange || !item.Filament.Assigned() {
			continue
		}
		if int(item.Filament.ID()) >= numFilaments {
			continue
		}
		switches = append(switches, filamentSwitch{printZ: item.PrintZ, filament: item.Filament})
	}
	return switches
}

// collectFilaments records the filaments one object requires on every
// layer it touches. switches is the print-Z-ordered extruder-switch table
// (empty outside MultiAsSingle mode).
func (t *ToolOrdering) collectFilaments(object *Object, switches []filamentSwitch) {
	// Support layers contribute their configured filaments unconditionally;
	// an Unassigned support filament means "print with the active tool".
	for _, supportLayer := range object.SupportLayers {
		lt := t.toolsForLayerMut(supportLayer.PrintZ)
		role := supportLayer.Role
		hasSupport := role == RoleMixed || role == RoleSupport || role == RoleSupportTransition
		hasInterface := role == RoleMixed || role == RoleSupportInterface
		if hasSupport {
			lt.Filaments = append(lt.Filaments, object.Config.SupportFilament)
		}
		if hasInterface {
			lt.Filaments = append(lt.Filaments, object.Config.SupportInterfaceFilament)
		}
		if hasSupport || hasInterface {
			lt.HasSupport = true
			lt.Wiping().markSupportOverridable(role, object)
		}
	}

	switchIdx := 0
	override := Unassigned

	var firstLayerWalls []Filament

	for layerIdx, layer := range object.Layers {
		lt := t.toolsForLayerMut(layer.PrintZ)

		// Advance the extruder-switch table to this height.
		for switchIdx < len(switches) && switches[switchIdx].printZ < layer.PrintZ+zEpsilon {
			override = switches[switchIdx].filament
			switchIdx++
		}
		lt.ExtruderOverride = override

		for _, lr := range layer.Regions {
			region := lr.Region

			if len(lr.Perimeters) > 0 {
				somethingNonOverridable := true
				if t.wholePlate {
					// Whole-plate mode: perimeters claimed by the wiping
					// overlay need no filament of their own.
					somethingNonOverridable = false
					for _, e := range lr.Perimeters {
						if !lt.Wiping().isOverridableAndMark(e, t.cfg, object, region) {
							somethingNonOverridable = true
						}
					}
				}
				if somethingNonOverridable {
					wall := FilamentOf(lt.WallFilament(region))
					lt.Filaments = append(lt.Filaments, wall)
					if layerIdx == 0 {
						firstLayerWalls = append(firstLayerWalls, wall)
					}
				}
				lt.HasObject = true
			}

			hasInfill := false
			hasSolidInfill := false
			somethingNonOverridable := false
			for _, e := range lr.Fills {
				if e.Role.IsSolidInfill() {
					hasSolidInfill = true
				} else if e.Role != RoleNone {
					hasInfill = true
				}
				if t.wholePlate {
					if !lt.Wiping().isOverridableAndMark(e, t.cfg, object, region) {
						somethingNonOverridable = true
					}
				}
			}

			if somethingNonOverridable || !t.wholePlate {
				if lt.ExtruderOverride.Assigned() {
					if hasSolidInfill || hasInfill {
						lt.Filaments = append(lt.Filaments, lt.ExtruderOverride)
					}
				} else {
					if hasSolidInfill {
						lt.Filaments = append(lt.Filaments, FilamentOf(region.SolidInfillFilament))
					}
					if hasInfill {
						lt.Filaments = append(lt.Filaments, FilamentOf(region.SparseInfillFilament))
					}
				}
			}
			if hasSolidInfill || hasInfill {
				lt.HasObject = true
			}
		}
	}

	object.FirstLayerWallFilaments = sortRemoveDuplicates(firstLayerWalls)

	for i := range t.layers {
		lt := &t.layers[i]
		lt.Filaments = sortRemoveDuplicates(lt.Filaments)

		// A tall wiping object can leave an object layer with no required
		// filament; park an Unassigned placeholder for the reorder pass.
		if len(lt.Filaments) == 0 && lt.HasObject {
			lt.Filaments = append(lt.Filaments, Unassigned)
		}
	}
}
