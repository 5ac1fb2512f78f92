// Shared fixtures for the scheduler tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"slicer-go-migration/pkg/config"
)

const singleNozzleProfile = `
[printer]
nozzle_diameter = 0.4

[filaments]
filament_type = PLA, PETG
filament_colour = #FF0000, #00FF00
filament_density = 1.24, 1.27
filament_soluble = 0, 0
flush_volumes_matrix = 0, 8000, 300, 0
`

const dualNozzleProfile = `
[printer]
nozzle_diameter = 0.4, 0.4
nozzle_type = hardened_steel, hardened_steel
master_extruder_id = 1

[filaments]
filament_type = PLA, PETG
filament_colour = #FF0000, #00FF00
filament_density = 1.24, 1.27
filament_soluble = 0, 0
flush_volumes_matrix = 0, 100, 120, 0, 0, 90, 110, 0
`

func testPrintConfig(t *testing.T, profile string) *config.PrintConfig {
	t.Helper()
	c, err := config.LoadString(profile)
	require.NoError(t, err)
	pc, err := config.LoadPrint(c)
	require.NoError(t, err)
	return pc
}

// layerSpec describes one object layer for test fixtures: one region per
// wall filament, each with a single perimeter extrusion.
type layerSpec struct {
	z, height float64
	walls     []uint
}

var testEntityID int

func makeObject(id int, specs []layerSpec) *Object {
	obj := &Object{
		ID:        id,
		Name:      "object",
		Instances: 1,
		Config: ObjectConfig{
			LayerHeight:              0.2,
			SupportFilament:          Unassigned,
			SupportInterfaceFilament: Unassigned,
		},
	}
	for _, spec := range specs {
		layer := &Layer{PrintZ: spec.z, Height: spec.height}
		for ri, wall := range spec.walls {
			testEntityID++
			layer.Regions = append(layer.Regions, &LayerRegion{
				Region: &Region{
					ID:                   id*100 + ri,
					WallFilament:         wall,
					SparseInfillFilament: wall,
					SolidInfillFilament:  wall,
				},
				Perimeters: []*Extrusion{
					{ID: testEntityID, Role: RolePerimeter, Volume: 10},
				},
			})
		}
		obj.Layers = append(obj.Layers, layer)
	}
	return obj
}

func makeJob(objects ...*Object) *Job {
	return &Job{Objects: objects}
}

func filaments(ids ...uint) []Filament {
	fs := make([]Filament, len(ids))
	for i, id := range ids {
		fs[i] = FilamentOf(id)
	}
	return fs
}

func layerOrder(lt LayerTools) []uint {
	return filamentIDs(lt.Filaments)
}
