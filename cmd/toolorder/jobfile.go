// Plate snapshot loading
//
// The snapshot is a JSON export of the plate's objects, layers and
// extrusion collections. Filament ids in the file are 1-based; 0 means
// "unassigned" for the per-object support filaments.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"slicer-go-migration/pkg/geometry"
	"slicer-go-migration/pkg/toolorder"
)

type jobFile struct {
	Objects              []jobObject    `json:"objects"`
	CustomGCodes         jobCustomTable `json:"custom_gcodes"`
	UnprintableFilaments [][]int        `json:"unprintable_filaments"`
	AMSColors            [][]string     `json:"ams_colors"`
}

type jobObject struct {
	Name          string            `json:"name"`
	Instances     int               `json:"instances"`
	Config        jobObjectConfig   `json:"config"`
	Layers        []jobLayer        `json:"layers"`
	SupportLayers []jobSupportLayer `json:"support_layers"`
}

type jobObjectConfig struct {
	LayerHeight                float64 `json:"layer_height"`
	LineWidth                  float64 `json:"line_width"`
	SupportFilament            int     `json:"support_filament"`
	SupportInterfaceFilament   int     `json:"support_interface_filament"`
	FlushIntoInfill            bool    `json:"flush_into_infill"`
	FlushIntoObjects           bool    `json:"flush_into_objects"`
	FlushIntoSupport           bool    `json:"flush_into_support"`
	SupportInterfaceNotForBody bool    `json:"support_interface_not_for_body"`
}

type jobLayer struct {
	PrintZ  float64     `json:"print_z"`
	Height  float64     `json:"height"`
	Regions []jobRegion `json:"regions"`
}

type jobRegion struct {
	WallFilament         int            `json:"wall_filament"`
	SparseInfillFilament int            `json:"sparse_infill_filament"`
	SolidInfillFilament  int            `json:"solid_infill_filament"`
	Perimeters           []jobExtrusion `json:"perimeters"`
	Fills                []jobExtrusion `json:"fills"`
	RawSlices            [][][2]float64 `json:"raw_slices,omitempty"`
}

type jobExtrusion struct {
	Role   string  `json:"role"`
	Volume float64 `json:"volume"`
}

type jobSupportLayer struct {
	PrintZ float64        `json:"print_z"`
	Fills  []jobExtrusion `json:"fills"`
}

type jobCustomTable struct {
	Mode  string          `json:"mode"`
	Items []jobCustomItem `json:"items"`
}

type jobCustomItem struct {
	PrintZ   float64 `json:"print_z"`
	Type     string  `json:"type"`
	Filament int     `json:"filament"`
	Extra    string  `json:"extra"`
}

var roleNames = map[string]toolorder.ExtrusionRole{
	"perimeter":          toolorder.RolePerimeter,
	"internal_infill":    toolorder.RoleInternalInfill,
	"solid_infill":       toolorder.RoleSolidInfill,
	"top_solid_infill":   toolorder.RoleTopSolidInfill,
	"support":            toolorder.RoleSupport,
	"support_interface":  toolorder.RoleSupportInterface,
	"support_transition": toolorder.RoleSupportTransition,
}

var gcodeTypeNames = map[string]toolorder.GCodeType{
	"color_change": toolorder.GCodeColorChange,
	"tool_change":  toolorder.GCodeToolChange,
	"pause":        toolorder.GCodePause,
	"custom":       toolorder.GCodeCustom,
}

var gcodeModeNames = map[string]toolorder.GCodeMode{
	"single_extruder": toolorder.ModeSingleExtruder,
	"multi_as_single": toolorder.ModeMultiAsSingle,
	"multi_extruder":  toolorder.ModeMultiExtruder,
}

func loadJob(path string) (*toolorder.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var jf jobFile
	if err := json.Unmarshal(data, &jf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	job := &toolorder.Job{
		UnprintableFilaments: jf.UnprintableFilaments,
		AMSColors:            jf.AMSColors,
	}

	entityID := 0
	for objID, jo := range jf.Objects {
		instances := jo.Instances
		if instances < 1 {
			instances = 1
		}
		obj := &toolorder.Object{
			ID:        objID,
			Name:      jo.Name,
			Instances: instances,
			Config: toolorder.ObjectConfig{
				LayerHeight:                jo.Config.LayerHeight,
				LineWidth:                  jo.Config.LineWidth,
				SupportFilament:            toolorder.FilamentOf1(jo.Config.SupportFilament),
				SupportInterfaceFilament:   toolorder.FilamentOf1(jo.Config.SupportInterfaceFilament),
				FlushIntoInfill:            jo.Config.FlushIntoInfill,
				FlushIntoObjects:           jo.Config.FlushIntoObjects,
				FlushIntoSupport:           jo.Config.FlushIntoSupport,
				SupportInterfaceNotForBody: jo.Config.SupportInterfaceNotForBody,
			},
		}

		regionID := 0
		for _, jl := range jo.Layers {
			layer := &toolorder.Layer{PrintZ: jl.PrintZ, Height: jl.Height}
			for _, jr := range jl.Regions {
				region := &toolorder.Region{
					ID:                   regionID,
					WallFilament:         filament0(jr.WallFilament),
					SparseInfillFilament: filament0(jr.SparseInfillFilament),
					SolidInfillFilament:  filament0(jr.SolidInfillFilament),
				}
				regionID++
				lr := &toolorder.LayerRegion{Region: region}
				for _, je := range jr.Perimeters {
					e, err := parseExtrusion(je, &entityID)
					if err != nil {
						return nil, err
					}
					lr.Perimeters = append(lr.Perimeters, e)
				}
				for _, je := range jr.Fills {
					e, err := parseExtrusion(je, &entityID)
					if err != nil {
						return nil, err
					}
					lr.Fills = append(lr.Fills, e)
				}
				for _, pts := range jr.RawSlices {
					poly := make(geometry.Polygon, 0, len(pts))
					for _, p := range pts {
						poly = append(poly, geometry.Point{X: p[0], Y: p[1]})
					}
					lr.RawSlices = append(lr.RawSlices, poly)
				}
				layer.Regions = append(layer.Regions, lr)
			}
			obj.Layers = append(obj.Layers, layer)
		}

		for _, jsl := range jo.SupportLayers {
			sl := &toolorder.SupportLayer{PrintZ: jsl.PrintZ}
			for _, je := range jsl.Fills {
				e, err := parseExtrusion(je, &entityID)
				if err != nil {
					return nil, err
				}
				sl.Fills = append(sl.Fills, e)
			}
			sl.Role = aggregateSupportRole(sl.Fills)
			obj.SupportLayers = append(obj.SupportLayers, sl)
		}

		job.Objects = append(job.Objects, obj)
	}

	mode, ok := gcodeModeNames[jf.CustomGCodes.Mode]
	if !ok && jf.CustomGCodes.Mode != "" {
		return nil, fmt.Errorf("unknown custom g-code mode %q", jf.CustomGCodes.Mode)
	}
	job.CustomGCodes.Mode = mode
	for _, ji := range jf.CustomGCodes.Items {
		typ, ok := gcodeTypeNames[ji.Type]
		if !ok {
			return nil, fmt.Errorf("unknown custom g-code type %q", ji.Type)
		}
		job.CustomGCodes.Items = append(job.CustomGCodes.Items, toolorder.CustomGCode{
			PrintZ:   ji.PrintZ,
			Type:     typ,
			Filament: toolorder.FilamentOf1(ji.Filament),
			Extra:    ji.Extra,
		})
	}

	return job, nil
}

func parseExtrusion(je jobExtrusion, entityID *int) (*toolorder.Extrusion, error) {
	role, ok := roleNames[je.Role]
	if !ok {
		return nil, fmt.Errorf("unknown extrusion role %q", je.Role)
	}
	e := &toolorder.Extrusion{ID: *entityID, Role: role, Volume: je.Volume}
	*entityID++
	return e, nil
}

// filament0 converts a 1-based snapshot filament id; ids below 1 clamp to
// the first filament.
func filament0(id int) uint {
	if id < 1 {
		return 0
	}
	return uint(id - 1)
}

func aggregateSupportRole(fills []*toolorder.Extrusion) toolorder.ExtrusionRole {
	hasBody, hasIntf := false, false
	for _, e := range fills {
		switch e.Role {
		case toolorder.RoleSupport, toolorder.RoleSupportTransition:
			hasBody = true
		case toolorder.RoleSupportInterface:
			hasIntf = true
		}
	}
	switch {
	case hasBody && hasIntf:
		return toolorder.RoleMixed
	case hasIntf:
		return toolorder.RoleSupportInterface
	case hasBody:
		return toolorder.RoleSupport
	default:
		return toolorder.RoleNone
	}
}
