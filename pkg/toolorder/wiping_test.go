// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// wipingFixture builds one layer with a single object carrying a sparse
// infill, a solid infill and a perimeter, opted into infill flushing.
func wipingFixture() (*LayerTools, *Job, *Extrusion, *Extrusion, *Extrusion) {
	lt := &LayerTools{PrintZ: 0.2, Filaments: filaments(0, 1)}

	sparse := &Extrusion{ID: 1, Role: RoleInternalInfill, Volume: 30}
	solid := &Extrusion{ID: 2, Role: RoleSolidInfill, Volume: 50}
	perimeter := &Extrusion{ID: 3, Role: RolePerimeter, Volume: 20}

	obj := &Object{
		ID:        0,
		Instances: 1,
		Config: ObjectConfig{
			SupportFilament:          Unassigned,
			SupportInterfaceFilament: Unassigned,
			FlushIntoInfill:          true,
		},
		Layers: []*Layer{{
			PrintZ: 0.2,
			Height: 0.2,
			Regions: []*LayerRegion{{
				Region:     &Region{ID: 0, WallFilament: 0, SparseInfillFilament: 0, SolidInfillFilament: 0},
				Perimeters: []*Extrusion{perimeter},
				Fills:      []*Extrusion{sparse, solid},
			}},
		}},
	}
	return lt, makeJob(obj), sparse, solid, perimeter
}

func TestIsOverridable(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	lt, job, sparse, solid, perimeter := wipingFixture()
	obj := job.Objects[0]
	region := obj.Layers[0].Regions[0].Region
	w := lt.Wiping()

	// Flush-into-infill claims sparse infill only.
	require.True(t, w.isOverridableAndMark(sparse, cfg, obj, region))
	require.False(t, w.isOverridableAndMark(solid, cfg, obj, region))
	require.False(t, w.isOverridableAndMark(perimeter, cfg, obj, region))
	require.True(t, w.SomethingOverridable())

	// Flush-into-objects claims everything non-soluble.
	obj.Config.FlushIntoObjects = true
	require.True(t, w.isOverridableAndMark(perimeter, cfg, obj, region))

	// A soluble target is never claimed.
	cfg.FilamentSoluble = []bool{true, false}
	require.False(t, w.isOverridableAndMark(sparse, cfg, obj, region))
}

func TestMarkWipingExtrusionsRedirectsInfill(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	lt, job, sparse, solid, _ := wipingFixture()
	obj := job.Objects[0]
	region := obj.Layers[0].Regions[0].Region

	w := lt.Wiping()
	w.isOverridableAndMark(sparse, cfg, obj, region)

	remaining := w.MarkWipingExtrusions(job, cfg, 0, 1, 100)
	require.InDelta(t, 70, remaining, 1e-9)
	require.True(t, w.SomethingOverridden())

	require.Equal(t, []int{1}, w.ExtruderOverrides(sparse, obj, 0, 1))
	require.Nil(t, w.ExtruderOverrides(solid, obj, 0, 1))

	// A second change finds nothing left to claim.
	require.InDelta(t, 50, w.MarkWipingExtrusions(job, cfg, 1, 0, 50), 1e-9)
}

func TestMarkWipingExtrusionsBudgetExhausted(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	lt, job, sparse, _, _ := wipingFixture()
	obj := job.Objects[0]
	region := obj.Layers[0].Regions[0].Region

	w := lt.Wiping()
	w.isOverridableAndMark(sparse, cfg, obj, region)

	// The claimed infill absorbs more than the requested purge; nothing
	// is left for the tower and the result never goes negative.
	require.Zero(t, w.MarkWipingExtrusions(job, cfg, 0, 1, 10))
}

func TestMarkWipingExtrusionsSolubleNoOp(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	cfg.FilamentSoluble = []bool{false, true}
	lt, job, sparse, _, _ := wipingFixture()
	obj := job.Objects[0]
	region := obj.Layers[0].Regions[0].Region

	w := lt.Wiping()
	obj.Config.FlushIntoObjects = true
	w.isOverridableAndMark(sparse, cfg, obj, region)

	require.InDelta(t, 40, w.MarkWipingExtrusions(job, cfg, 0, 1, 40), 1e-9)
	require.False(t, w.SomethingOverridden())
}

func TestMarkWipingExtrusionsSupport(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	lt := &LayerTools{PrintZ: 0.2, Filaments: filaments(0, 1)}

	obj := &Object{
		ID:        0,
		Instances: 1,
		Config: ObjectConfig{
			SupportFilament:          Unassigned,
			SupportInterfaceFilament: FilamentOf(0),
			FlushIntoSupport:         true,
		},
		Layers: []*Layer{{PrintZ: 0.2, Height: 0.2}},
		SupportLayers: []*SupportLayer{{
			PrintZ: 0.2,
			Role:   RoleSupport,
			Fills:  []*Extrusion{{ID: 9, Role: RoleSupport, Volume: 60}},
		}},
	}
	job := makeJob(obj)

	w := lt.Wiping()
	w.markSupportOverridable(RoleSupport, obj)
	require.True(t, w.SomethingOverridable())

	require.Zero(t, w.MarkWipingExtrusions(job, cfg, 0, 1, 50))
	require.Equal(t, 1, w.SupportOverride(obj))
	require.Equal(t, -1, w.SupportInterfaceOverride(obj))
}

func TestMarkWipingExtrusionsSupportNeedsObjectLayer(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	lt := &LayerTools{PrintZ: 0.2, Filaments: filaments(0, 1)}

	// The object has support at this height but no object layer, so the
	// walk skips it entirely and the support is never redirected.
	obj := &Object{
		ID:        0,
		Instances: 1,
		Config: ObjectConfig{
			SupportFilament:          Unassigned,
			SupportInterfaceFilament: Unassigned,
			FlushIntoSupport:         true,
		},
		SupportLayers: []*SupportLayer{{
			PrintZ: 0.2,
			Role:   RoleSupport,
			Fills:  []*Extrusion{{ID: 9, Role: RoleSupport, Volume: 60}},
		}},
	}
	job := makeJob(obj)

	w := lt.Wiping()
	w.markSupportOverridable(RoleSupport, obj)

	require.InDelta(t, 50, w.MarkWipingExtrusions(job, cfg, 0, 1, 50), 1e-9)
	require.False(t, w.SomethingOverridden())
	require.Equal(t, -1, w.SupportOverride(obj))
}

func TestEnsurePerimetersInfillsOrder(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	lt, job, sparse, _, _ := wipingFixture()
	obj := job.Objects[0]
	region := obj.Layers[0].Regions[0].Region

	w := lt.Wiping()
	w.isOverridableAndMark(sparse, cfg, obj, region)

	// No purge was redirected; the unclaimed overridable infill is forced
	// to the layer's last non-soluble filament so its perimeter (filament
	// 0) is guaranteed to print first.
	w.EnsurePerimetersInfillsOrder(job, cfg)
	require.Equal(t, []int{1}, w.ExtruderOverrides(sparse, obj, 0, 1))
}

func TestExtruderOverridesEncoding(t *testing.T) {
	lt, job, sparse, _, _ := wipingFixture()
	obj := job.Objects[0]
	obj.Instances = 2

	w := lt.Wiping()
	w.setExtruderOverride(sparse, obj, 1, 3, 2)

	// The untouched copy encodes its default as -(default+1) so a real
	// override of filament 0 stays distinguishable.
	require.Equal(t, []int{-1, 3}, w.ExtruderOverrides(sparse, obj, 0, 2))
	require.Equal(t, []int{-3, 3}, w.ExtruderOverrides(sparse, obj, 2, 2))
}
