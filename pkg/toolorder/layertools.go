// LayerTools: the per-print-height scheduling record
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

// zEpsilon merges print heights that are numerically indistinguishable.
const zEpsilon = 1e-4

// LayerTools bundles the required filaments and scheduling flags of one
// distinct print height.
type LayerTools struct {
	PrintZ float64

	// Filaments is the ordered list of filaments required on this layer.
	// It may carry Unassigned placeholders during collection; a finalized
	// schedule contains only assigned, duplicate-free entries.
	Filaments []Filament

	HasObject    bool
	HasSupport   bool
	HasSkirt     bool
	HasWipeTower bool

	WipeTowerPartitions  int
	WipeTowerLayerHeight float64

	// ExtruderOverride applies the per-layer extruder-switch table to
	// wall/infill filament selection.
	ExtruderOverride Filament

	// CustomGCode is the event bound to this layer, if any.
	CustomGCode *CustomGCode

	wiping *WipingExtrusions
}

func newLayerTools(z float64) LayerTools {
	return LayerTools{PrintZ: z}
}

// Wiping returns the layer's wiping-extrusion overlay state, creating it
// on first use.
func (lt *LayerTools) Wiping() *WipingExtrusions {
	if lt.wiping == nil {
		lt.wiping = newWipingExtrusions(lt)
	}
	return lt.wiping
}

// HasFilament reports whether the layer requires the given filament.
func (lt *LayerTools) HasFilament(id uint) bool {
	for _, f := range lt.Filaments {
		if f.Is(id) {
			return true
		}
	}
	return false
}

// IsFilamentOrder reports whether filament a prints before b on this layer
// (b does not have to be present).
func (lt *LayerTools) IsFilamentOrder(a, b uint) bool {
	if a == b {
		return false
	}
	for _, f := range lt.Filaments {
		if f.Is(a) {
			return true
		}
		if f.Is(b) {
			return false
		}
	}
	return false
}

// WallFilament returns the filament for the region's walls, honoring the
// layer's extruder override.
func (lt *LayerTools) WallFilament(region *Region) uint {
	if lt.ExtruderOverride.Assigned() {
		return lt.ExtruderOverride.ID()
	}
	return region.WallFilament
}

// SparseInfillFilament returns the filament for the region's sparse infill,
// honoring the layer's extruder override.
func (lt *LayerTools) SparseInfillFilament(region *Region) uint {
	if lt.ExtruderOverride.Assigned() {
		return lt.ExtruderOverride.ID()
	}
	return region.SparseInfillFilament
}

// SolidInfillFilament returns the filament for the region's solid infill,
// honoring the layer's extruder override.
func (lt *LayerTools) SolidInfillFilament(region *Region) uint {
	if lt.ExtruderOverride.Assigned() {
		return lt.ExtruderOverride.ID()
	}
	return region.SolidInfillFilament
}

// FilamentFor returns the filament an extrusion collection prints with,
// according to its role and the region config, honoring the override.
func (lt *LayerTools) FilamentFor(e *Extrusion, region *Region) uint {
	if lt.ExtruderOverride.Assigned() {
		return lt.ExtruderOverride.ID()
	}
	if e.Role.IsInfill() {
		if e.Role.IsSolidInfill() {
			return region.SolidInfillFilament
		}
		return region.SparseInfillFilament
	}
	return region.WallFilament
}
