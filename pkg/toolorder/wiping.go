// Wiping-extrusion overlay: purge redirection into real extrusions
//
// Instead of wasting purge volume on the tower, eligible infill and
// perimeter extrusions are redirected to the incoming filament. Overrides
// are tracked per (object, entity) handle and per instance copy, and are
// resolved once per extrusion during G-code emission.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

import (
	"sort"

	"slicer-go-migration/pkg/config"
	"slicer-go-migration/pkg/log"
)

// EntityKey identifies one extrusion collection within one object. Both
// ids are stable across the scheduling pass, so the override table never
// depends on object addresses.
type EntityKey struct {
	ObjectID int
	EntityID int
}

// unsetOverride marks a copy that keeps its configured filament.
const unsetOverride = -1

// WipingExtrusions tracks the override state of one layer.
type WipingExtrusions struct {
	lt *LayerTools

	somethingOverridable bool
	somethingOverridden  bool

	entityMap      map[EntityKey][]int // per-copy override, unsetOverride when untouched
	supportMap     map[int]int         // object id -> filament
	supportIntfMap map[int]int

	alloc Allocator
}

func newWipingExtrusions(lt *LayerTools) *WipingExtrusions {
	return &WipingExtrusions{
		lt:             lt,
		entityMap:      make(map[EntityKey][]int),
		supportMap:     make(map[int]int),
		supportIntfMap: make(map[int]int),
		alloc:          greedyAllocator{},
	}
}

// SetAllocator substitutes the purge allocation policy.
func (w *WipingExtrusions) SetAllocator(a Allocator) {
	w.alloc = a
}

// SomethingOverridden reports whether any extrusion on the layer was
// redirected.
func (w *WipingExtrusions) SomethingOverridden() bool {
	return w.somethingOverridden
}

// SomethingOverridable reports whether the layer has any extrusion the
// overlay may claim.
func (w *WipingExtrusions) SomethingOverridable() bool {
	return w.somethingOverridable
}

// isOverridable decides whether an extrusion collection may absorb purge:
// never for soluble targets; always when the object flushes into objects;
// otherwise only sparse infill of objects flushing into infill.
func (w *WipingExtrusions) isOverridable(e *Extrusion, cfg *config.PrintConfig, object *Object, region *Region) bool {
	if cfg.FilamentSolubleAt(int(w.lt.FilamentFor(e, region))) {
		return false
	}
	if object.Config.FlushIntoObjects {
		return true
	}
	if !object.Config.FlushIntoInfill || e.Role != RoleInternalInfill {
		return false
	}
	return true
}

// isOverridableAndMark additionally latches the layer-wide
// somethingOverridable flag.
func (w *WipingExtrusions) isOverridableAndMark(e *Extrusion, cfg *config.PrintConfig, object *Object, region *Region) bool {
	ok := w.isOverridable(e, cfg, object, region)
	if ok {
		w.somethingOverridable = true
	}
	return ok
}

// isSupportOverridable reports whether the support role of the object may
// absorb purge: the object must opt in, and the concerned support
// filament must be unassigned ("print with active tool").
func (w *WipingExtrusions) isSupportOverridable(role ExtrusionRole, object *Object) bool {
	if !object.Config.FlushIntoSupport {
		return false
	}
	switch role {
	case RoleMixed:
		return !object.Config.SupportFilament.Assigned() ||
			!object.Config.SupportInterfaceFilament.Assigned()
	case RoleSupport, RoleSupportTransition:
		return !object.Config.SupportFilament.Assigned()
	case RoleSupportInterface:
		return !object.Config.SupportInterfaceFilament.Assigned()
	}
	return false
}

// markSupportOverridable latches somethingOverridable for support roles.
func (w *WipingExtrusions) markSupportOverridable(role ExtrusionRole, object *Object) {
	if w.isSupportOverridable(role, object) {
		w.somethingOverridable = true
	}
}

// setExtruderOverride records the override of one entity copy.
func (w *WipingExtrusions) setExtruderOverride(e *Extrusion, object *Object, copyID int, filament uint, numCopies int) {
	w.somethingOverridden = true
	key := EntityKey{ObjectID: object.ID, EntityID: e.ID}
	copies := w.entityMap[key]
	for len(copies) < numCopies {
		copies = append(copies, unsetOverride)
	}
	if copies[copyID] != unsetOverride {
		// Must never happen; the walk skips recorded copies.
		log.Error("entity %d/%d overridden multiple times", object.ID, e.ID)
	}
	copies[copyID] = int(filament)
	w.entityMap[key] = copies
}

// isEntityOverridden reports whether an entity copy is already claimed.
func (w *WipingExtrusions) isEntityOverridden(e *Extrusion, object *Object, copyID int) bool {
	copies, ok := w.entityMap[EntityKey{ObjectID: object.ID, EntityID: e.ID}]
	return ok && copyID < len(copies) && copies[copyID] != unsetOverride
}

func (w *WipingExtrusions) setSupportOverride(object *Object, filament uint) {
	w.somethingOverridden = true
	if _, ok := w.supportMap[object.ID]; !ok {
		w.supportMap[object.ID] = int(filament)
	}
}

func (w *WipingExtrusions) setSupportInterfaceOverride(object *Object, filament uint) {
	w.somethingOverridden = true
	if _, ok := w.supportIntfMap[object.ID]; !ok {
		w.supportIntfMap[object.ID] = int(filament)
	}
}

func (w *WipingExtrusions) isSupportOverridden(object *Object) bool {
	_, ok := w.supportMap[object.ID]
	return ok
}

func (w *WipingExtrusions) isSupportInterfaceOverridden(object *Object) bool {
	_, ok := w.supportIntfMap[object.ID]
	return ok
}

// SupportOverride returns the filament the object's support body was
// redirected to, or -1.
func (w *WipingExtrusions) SupportOverride(object *Object) int {
	if f, ok := w.supportMap[object.ID]; ok {
		return f
	}
	return -1
}

// SupportInterfaceOverride returns the filament the object's support
// interface was redirected to, or -1.
func (w *WipingExtrusions) SupportInterfaceOverride(object *Object) int {
	if f, ok := w.supportIntfMap[object.ID]; ok {
		return f
	}
	return -1
}

// firstNonSolubleFilament finds the first filament on the layer that is
// neither soluble nor support-only, or -1.
func (w *WipingExtrusions) firstNonSolubleFilament(cfg *config.PrintConfig) int {
	for _, f := range w.lt.Filaments {
		if f.Assigned() && !cfg.FilamentSolubleAt(int(f.ID())) && !cfg.FilamentIsSupportAt(int(f.ID())) {
			return int(f.ID())
		}
	}
	return -1
}

// lastNonSolubleFilament finds the last such filament, or -1.
func (w *WipingExtrusions) lastNonSolubleFilament(cfg *config.PrintConfig) int {
	for i := len(w.lt.Filaments) - 1; i >= 0; i-- {
		f := w.lt.Filaments[i]
		if f.Assigned() && !cfg.FilamentSolubleAt(int(f.ID())) && !cfg.FilamentIsSupportAt(int(f.ID())) {
			return int(f.ID())
		}
	}
	return -1
}

// Allocator is the purge-redirection policy: it walks the layer's
// extrusions and redirects eligible ones until the purge budget is
// exhausted, returning the volume left for the tower.
type Allocator interface {
	Allocate(w *WipingExtrusions, job *Job, cfg *config.PrintConfig, oldFilament, newFilament uint, volume float64) float64
}

// MarkWipingExtrusions redirects purge volume from a tool change into
// real extrusions. Returns the volume that still must go to the tower;
// never negative. Soluble or support-only filaments on either side make
// this a no-op.
func (w *WipingExtrusions) MarkWipingExtrusions(job *Job, cfg *config.PrintConfig, oldFilament, newFilament uint, volume float64) float64 {
	if !w.somethingOverridable || volume <= 0 ||
		cfg.FilamentSolubleAt(int(oldFilament)) || cfg.FilamentSolubleAt(int(newFilament)) ||
		cfg.FilamentIsSupportAt(int(oldFilament)) || cfg.FilamentIsSupportAt(int(newFilament)) {
		if volume < 0 {
			return 0
		}
		return volume
	}
	remaining := w.alloc.Allocate(w, job, cfg, oldFilament, newFilament, volume)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// greedyAllocator is the default policy: wipe-dedicated objects first
// (stable-id tie break), infill before or after perimeters per the
// profile's print order, support last.
type greedyAllocator struct{}

// minInfillVolume ignores infills too small to be worth a redirect.
const minInfillVolume = 0.0

func (greedyAllocator) Allocate(w *WipingExtrusions, job *Job, cfg *config.PrintConfig, oldFilament, newFilament uint, volume float64) float64 {
	lt := w.lt

	objects := make([]*Object, len(job.Objects))
	copy(objects, job.Objects)
	sort.SliceStable(objects, func(i, j int) bool {
		if objects[i].Config.FlushIntoObjects != objects[j].Config.FlushIntoObjects {
			return objects[i].Config.FlushIntoObjects
		}
		return objects[i].ID < objects[j].ID
	})

	// Two walks: first the wipe-dedicated objects take perimeters or
	// infills (per infill_first), then every object takes the rest.
	perimetersDone := false
	for i := 0; i < len(objects)+boolToInt(!perimetersDone); i++ {
		if !perimetersDone && (i == len(objects) || !objects[i].Config.FlushIntoObjects) {
			perimetersDone = true
			i = -1
			continue
		}
		object := objects[i]

		layer := object.LayerAt(lt.PrintZ, zEpsilon)
		if layer == nil {
			continue
		}

		// Copies first, so neighbouring infills are marked together and
		// travel moves stay short.
		for copyID := 0; copyID < object.Instances; copyID++ {
			for _, lr := range layer.Regions {
				region := lr.Region
				if !object.Config.FlushIntoInfill && !object.Config.FlushIntoObjects && !object.Config.FlushIntoSupport {
					continue
				}
				wipeIntoInfillOnly := !object.Config.FlushIntoObjects && object.Config.FlushIntoInfill
				if cfg.IsInfillFirst != perimetersDone || wipeIntoInfillOnly {
					for _, fill := range lr.Fills {
						if !w.isOverridable(fill, cfg, object, region) {
							continue
						}
						if wipeIntoInfillOnly && !cfg.IsInfillFirst {
							// The perimeter must be finished before this
							// infill is printed with the new filament.
							if !lt.IsFilamentOrder(lt.WallFilament(region), newFilament) {
								continue
							}
						}
						if !w.isEntityOverridden(fill, object, copyID) && fill.Volume > minInfillVolume {
							w.setExtruderOverride(fill, object, copyID, newFilament, object.Instances)
							volume -= fill.Volume
							if volume <= 0 {
								// More material was purged already than
								// asked for.
								return 0
							}
						}
					}
				}

				if object.Config.FlushIntoObjects && cfg.IsInfillFirst == perimetersDone {
					for _, per := range lr.Perimeters {
						if w.isOverridable(per, cfg, object, region) &&
							!w.isEntityOverridden(per, object, copyID) && per.Volume > minInfillVolume {
							w.setExtruderOverride(per, object, copyID, newFilament, object.Instances)
							volume -= per.Volume
							if volume <= 0 {
								return 0
							}
						}
					}
				}
			}

			if object.Config.FlushIntoSupport {
				volume = w.allocateSupport(object, cfg, oldFilament, newFilament, volume)
				if volume <= 0 {
					return 0
				}
			}
		}
	}

	// Some purge remains for the tower.
	return volume
}

// allocateSupport redirects the object's support body and interface when
// their filaments are unassigned and not excluded by the
// interface-not-for-body option.
func (w *WipingExtrusions) allocateSupport(object *Object, cfg *config.PrintConfig, oldFilament, newFilament uint, volume float64) float64 {
	supportLayer := object.SupportLayerAt(w.lt.PrintZ, zEpsilon)
	if supportLayer == nil {
		return volume
	}

	supportOverridable := !object.Config.SupportFilament.Assigned()
	intfOverridable := !object.Config.SupportInterfaceFilament.Assigned()
	if !supportOverridable && !intfOverridable {
		return volume
	}

	// With interface-not-for-body set, body support must not take the
	// interface filament.
	intfConflict := object.Config.SupportInterfaceNotForBody && !intfOverridable &&
		(object.Config.SupportInterfaceFilament.Is(newFilament) ||
			object.Config.SupportInterfaceFilament.Is(oldFilament))

	if supportOverridable && !w.isSupportOverridden(object) && !intfConflict {
		w.setSupportOverride(object, newFilament)
		for _, e := range supportLayer.Fills {
			if e.Role == RoleSupport || e.Role == RoleSupportTransition {
				volume -= e.Volume
			}
			if volume <= 0 {
				return 0
			}
		}
	}

	if intfOverridable && !w.isSupportInterfaceOverridden(object) {
		w.setSupportInterfaceOverride(object, newFilament)
		for _, e := range supportLayer.Fills {
			if e.Role == RoleSupportInterface {
				volume -= e.Volume
			}
			if volume <= 0 {
				return 0
			}
		}
	}
	return volume
}

// EnsurePerimetersInfillsOrder force-overrides the still-unassigned but
// overridable infills and perimeters after all tool changes on the layer,
// so nothing prints out of order or is orphaned by a filament missing
// from the layer.
func (w *WipingExtrusions) EnsurePerimetersInfillsOrder(job *Job, cfg *config.PrintConfig) {
	if !w.somethingOverridable {
		return
	}

	lt := w.lt
	firstNonSoluble := w.firstNonSolubleFilament(cfg)
	lastNonSoluble := w.lastNonSolubleFilament(cfg)
	if firstNonSoluble < 0 || lastNonSoluble < 0 {
		return
	}

	for _, object := range job.Objects {
		layer := object.LayerAt(lt.PrintZ, zEpsilon)
		if layer == nil {
			continue
		}
		for copyID := 0; copyID < object.Instances; copyID++ {
			for _, lr := range layer.Regions {
				region := lr.Region
				if !object.Config.FlushIntoInfill && !object.Config.FlushIntoObjects {
					continue
				}

				for _, fill := range lr.Fills {
					if !w.isOverridable(fill, cfg, object, region) ||
						w.isEntityOverridden(fill, object, copyID) {
						continue
					}
					// This infill could have been claimed but was not.
					// Unless it is forced to a filament present on the
					// layer it may print before its perimeter, or not at
					// all.
					if cfg.IsInfillFirst {
						w.setExtruderOverride(fill, object, copyID, uint(firstNonSoluble), object.Instances)
					} else if lt.IsFilamentOrder(lt.WallFilament(region), uint(lastNonSoluble)) ||
						!lt.HasFilament(lt.SparseInfillFilament(region)) {
						if !lt.HasFilament(lt.SparseInfillFilament(region)) {
							// Historical ordering doubt: forcing here can
							// violate infill-first across objects. Keep the
							// lenient behavior and record the occurrence.
							log.Debug("forced infill override on layer z=%.3f may violate print order", lt.PrintZ)
						}
						w.setExtruderOverride(fill, object, copyID, uint(lastNonSoluble), object.Instances)
					}
					// Otherwise leave it to print normally with its own
					// filament.
				}

				for _, per := range lr.Perimeters {
					if w.isOverridable(per, cfg, object, region) &&
						!w.isEntityOverridden(per, object, copyID) {
						target := firstNonSoluble
						if cfg.IsInfillFirst {
							target = lastNonSoluble
						}
						w.setExtruderOverride(per, object, copyID, uint(target), object.Instances)
					}
				}
			}
		}
	}
}

// ExtruderOverrides resolves the override vector of one entity for G-code
// emission. Copies that were never overridden encode their default as
// -(defaultFilament+1), so an explicit override of filament 0 stays
// distinguishable from "defaulted to 0". Returns nil when the entity has
// no overrides at all.
func (w *WipingExtrusions) ExtruderOverrides(e *Extrusion, object *Object, defaultFilament int, numCopies int) []int {
	copies, ok := w.entityMap[EntityKey{ObjectID: object.ID, EntityID: e.ID}]
	if !ok {
		return nil
	}
	out := make([]int, numCopies)
	for i := 0; i < numCopies; i++ {
		if i < len(copies) && copies[i] != unsetOverride {
			out[i] = copies[i]
		} else {
			out[i] = -defaultFilament - 1
		}
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
