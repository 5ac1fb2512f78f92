// Job snapshot consumed by the scheduler
//
// Objects, layers, regions and extrusion collections carry just the
// attributes the tool-change scheduler reads: roles, volumes, per-region
// filament assignments and first-layer raw slices. Every filament id in
// this model is 0-based; the 1-based profile ids are converted at the
// loading boundary.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

import (
	"math"

	"slicer-go-migration/pkg/geometry"
)

// ExtrusionRole classifies an extrusion collection.
type ExtrusionRole int

const (
	// RoleNone marks an empty collection
	RoleNone ExtrusionRole = iota

	// RolePerimeter covers outer and inner walls
	RolePerimeter

	// RoleInternalInfill is sparse infill
	RoleInternalInfill

	// RoleSolidInfill is dense infill
	RoleSolidInfill

	// RoleTopSolidInfill is the visible top surface infill
	RoleTopSolidInfill

	// RoleSupport is the support body
	RoleSupport

	// RoleSupportInterface is the support-to-object interface
	RoleSupportInterface

	// RoleSupportTransition bridges support body and interface
	RoleSupportTransition

	// RoleMixed marks a collection carrying several support roles
	RoleMixed
)

// IsInfill reports whether the role is any infill variant.
func (r ExtrusionRole) IsInfill() bool {
	return r == RoleInternalInfill || r == RoleSolidInfill || r == RoleTopSolidInfill
}

// IsSolidInfill reports whether the role is dense infill.
func (r ExtrusionRole) IsSolidInfill() bool {
	return r == RoleSolidInfill || r == RoleTopSolidInfill
}

// Extrusion is one extrusion collection: the smallest unit the wiping
// overlay can redirect. ID is stable within the owning object.
type Extrusion struct {
	ID     int
	Role   ExtrusionRole
	Volume float64 // total material volume in mm3
}

// Region carries the per-region filament assignment (0-based).
type Region struct {
	ID                   int
	WallFilament         uint
	SparseInfillFilament uint
	SolidInfillFilament  uint
}

// LayerRegion is the slice of one region on one layer.
type LayerRegion struct {
	Region     *Region
	Perimeters []*Extrusion
	Fills      []*Extrusion
	RawSlices  []geometry.Polygon // populated on first layers only
}

// Layer is one object layer.
type Layer struct {
	PrintZ  float64
	Height  float64
	Regions []*LayerRegion
}

// HasExtrusions reports whether the layer prints anything.
func (l *Layer) HasExtrusions() bool {
	for _, lr := range l.Regions {
		if len(lr.Perimeters) > 0 || len(lr.Fills) > 0 {
			return true
		}
	}
	return false
}

// SupportLayer is one support layer of an object. Role aggregates the
// roles present in Fills (RoleMixed when both body and interface print).
type SupportLayer struct {
	PrintZ float64
	Role   ExtrusionRole
	Fills  []*Extrusion
}

// ObjectConfig carries the per-object scheduling options.
type ObjectConfig struct {
	LayerHeight float64
	LineWidth   float64

	// SupportFilament and SupportInterfaceFilament are Unassigned when the
	// support may be printed with whatever filament is active.
	SupportFilament          Filament
	SupportInterfaceFilament Filament

	FlushIntoInfill            bool
	FlushIntoObjects           bool
	FlushIntoSupport           bool
	SupportInterfaceNotForBody bool
}

// Object is one printable object on the plate.
type Object struct {
	ID            int
	Name          string
	Config        ObjectConfig
	Layers        []*Layer
	SupportLayers []*SupportLayer
	Instances     int // number of placed copies

	// FirstLayerWallFilaments is filled during collection for the brim
	// generator.
	FirstLayerWallFilaments []Filament
}

// LayerAt returns the layer whose PrintZ is within eps of z, or nil.
func (o *Object) LayerAt(z, eps float64) *Layer {
	for _, l := range o.Layers {
		if math.Abs(l.PrintZ-z) < eps {
			return l
		}
	}
	return nil
}

// SupportLayerAt returns the support layer within eps of z, or nil.
func (o *Object) SupportLayerAt(z, eps float64) *SupportLayer {
	for _, l := range o.SupportLayers {
		if math.Abs(l.PrintZ-z) < eps {
			return l
		}
	}
	return nil
}

// GCodeType is the kind of a custom per-height G-code event.
type GCodeType int

const (
	// GCodeColorChange requests a filament color change (M600)
	GCodeColorChange GCodeType = iota

	// GCodeToolChange requests a tool change
	GCodeToolChange

	// GCodePause pauses the print
	GCodePause

	// GCodeCustom is a free-form G-code block
	GCodeCustom
)

// GCodeMode is the multi-material mode a custom G-code table was authored
// in.
type GCodeMode int

const (
	// ModeSingleExtruder: one filament, one extruder
	ModeSingleExtruder GCodeMode = iota

	// ModeMultiAsSingle: several filaments printed as one per-layer choice
	ModeMultiAsSingle

	// ModeMultiExtruder: true multi-material printing
	ModeMultiExtruder
)

// CustomGCode is one model-level per-height event.
type CustomGCode struct {
	PrintZ   float64
	Type     GCodeType
	Filament Filament // the concerned filament, when applicable
	Extra    string
}

// CustomGCodeInfo is the plate's custom G-code table, sorted by PrintZ.
type CustomGCodeInfo struct {
	Mode  GCodeMode
	Items []CustomGCode
}

// Job is one immutable plate snapshot handed to the scheduler.
type Job struct {
	Objects      []*Object
	CustomGCodes CustomGCodeInfo

	// UnprintableFilaments lists, per extruder, the 1-based filament ids
	// the upstream printable-area analysis ruled out.
	UnprintableFilaments [][]int

	// AMSColors holds, per extruder, the colors of the filaments already
	// loaded in its AMS slots.
	AMSColors [][]string
}

// ObjectFilaments returns the sorted set of filaments the objects' regions
// and supports are configured to use.
func (j *Job) ObjectFilaments() []Filament {
	var fs []Filament
	seen := make(map[Filament]struct{})
	add := func(f Filament) {
		if !f.Assigned() {
			return
		}
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			fs = append(fs, f)
		}
	}
	for _, obj := range j.Objects {
		add(obj.Config.SupportFilament)
		add(obj.Config.SupportInterfaceFilament)
		for _, layer := range obj.Layers {
			for _, lr := range layer.Regions {
				add(FilamentOf(lr.Region.WallFilament))
				add(FilamentOf(lr.Region.SparseInfillFilament))
				add(FilamentOf(lr.Region.SolidInfillFilament))
			}
		}
	}
	return sortRemoveDuplicates(fs)
}
