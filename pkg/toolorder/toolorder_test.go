// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"slicer-go-migration/pkg/config"
	"slicer-go-migration/pkg/errors"
	"slicer-go-migration/pkg/geometry"
)

func TestScheduleBasic(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	job := makeJob(makeObject(0, []layerSpec{
		{z: 0.2, height: 0.2, walls: []uint{0}},
		{z: 0.4, height: 0.2, walls: []uint{0, 1}},
		{z: 0.6, height: 0.2, walls: []uint{1}},
	}))

	ordering, err := New(job, cfg)
	require.NoError(t, err)
	require.False(t, ordering.Empty())

	layers := ordering.Layers()
	require.Len(t, layers, 3)
	require.Equal(t, []uint{0}, layerOrder(layers[0]))
	require.Equal(t, []uint{0, 1}, layerOrder(layers[1]))
	require.Equal(t, []uint{1}, layerOrder(layers[2]))

	require.Equal(t, FilamentOf(0), ordering.FirstPrintingFilament())
	require.Equal(t, FilamentOf(1), ordering.LastPrintingFilament())
	require.Equal(t, []uint{0, 1}, ordering.AllPrintingFilaments())

	// One tool change (0 -> 1 on the middle layer) purging 8000 mm3 of
	// PETG at 1.27 g/cm3.
	stats := ordering.Stats(StatsSingleExtruder)
	require.Equal(t, 1, stats.ChangeCount)
	require.Equal(t, 10, stats.FlushWeight)
}

func TestScheduleWipeTowerAndSkirt(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	job := makeJob(makeObject(0, []layerSpec{
		{z: 0.2, height: 0.2, walls: []uint{0}},
		{z: 0.4, height: 0.2, walls: []uint{0, 1}},
		{z: 0.6, height: 0.2, walls: []uint{1}},
	}))

	ordering, err := New(job, cfg)
	require.NoError(t, err)
	layers := ordering.Layers()

	// The lower layers must support the worst layer above them.
	for i := 0; i+1 < len(layers); i++ {
		require.GreaterOrEqual(t, layers[i].WipeTowerPartitions, layers[i+1].WipeTowerPartitions)
	}
	require.Equal(t, 1, layers[0].WipeTowerPartitions)
	require.True(t, layers[0].HasWipeTower)
	require.True(t, layers[1].HasWipeTower)

	for _, lt := range layers {
		require.True(t, lt.HasSkirt)
	}
}

func TestScheduleLayerMerging(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	objA := makeObject(0, []layerSpec{{z: 0.2, height: 0.2, walls: []uint{0}}})
	objB := makeObject(1, []layerSpec{{z: 0.20005, height: 0.2, walls: []uint{1}}})

	ordering, err := New(makeJob(objA, objB), cfg)
	require.NoError(t, err)

	layers := ordering.Layers()
	require.Len(t, layers, 1)
	require.InDelta(t, 0.200025, layers[0].PrintZ, 1e-6)
	require.ElementsMatch(t, []uint{0, 1}, layerOrder(layers[0]))
}

func TestScheduleToolsForLayer(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	job := makeJob(makeObject(0, []layerSpec{
		{z: 0.2, height: 0.2, walls: []uint{0}},
		{z: 0.4, height: 0.2, walls: []uint{1}},
	}))

	ordering, err := New(job, cfg)
	require.NoError(t, err)
	require.InDelta(t, 0.4, ordering.ToolsForLayer(0.4).PrintZ, 1e-9)
	require.InDelta(t, 0.4, ordering.ToolsForLayer(0.40003).PrintZ, 1e-9)
	require.InDelta(t, 0.2, ordering.ToolsForLayer(0.21).PrintZ, 1e-9)
}

func TestScheduleFirstLayerSmallestIslandFirst(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)

	big := geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	small := geometry.Polygon{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}

	obj := makeObject(0, []layerSpec{{z: 0.2, height: 0.2, walls: []uint{0, 1}}})
	obj.Layers[0].Regions[0].RawSlices = []geometry.Polygon{big}   // filament 0
	obj.Layers[0].Regions[1].RawSlices = []geometry.Polygon{small} // filament 1

	ordering, err := New(makeJob(obj), cfg)
	require.NoError(t, err)

	// The filament owning only the small island prints first.
	require.Equal(t, []uint{1, 0}, layerOrder(ordering.Layers()[0]))
}

func TestScheduleFirstLayerExplicitSequence(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	cfg.FirstLayerPrintSequence = []int{1, 2} // 1-based: filament 0 first

	big := geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	small := geometry.Polygon{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}

	obj := makeObject(0, []layerSpec{{z: 0.2, height: 0.2, walls: []uint{0, 1}}})
	obj.Layers[0].Regions[0].RawSlices = []geometry.Polygon{big}
	obj.Layers[0].Regions[1].RawSlices = []geometry.Polygon{small}

	ordering, err := New(makeJob(obj), cfg)
	require.NoError(t, err)
	require.Equal(t, []uint{0, 1}, layerOrder(ordering.Layers()[0]))
}

func TestScheduleWithFirstFilament(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	job := makeJob(makeObject(0, []layerSpec{
		{z: 0.2, height: 0.2, walls: []uint{0, 1}},
	}))

	ordering, err := New(job, cfg, WithFirstFilament(FilamentOf(1)))
	require.NoError(t, err)
	require.Equal(t, []uint{1, 0}, layerOrder(ordering.Layers()[0]))
}

func TestSchedulePrimeMultiMaterial(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	job := makeJob(makeObject(0, []layerSpec{
		{z: 0.2, height: 0.2, walls: []uint{1}},
		{z: 0.4, height: 0.2, walls: []uint{0}},
	}))

	ordering, err := New(job, cfg, WithPrimeMultiMaterial())
	require.NoError(t, err)

	// The filament printing first is primed last, and the head of the
	// priming order becomes the reported first filament.
	all := ordering.AllPrintingFilaments()
	require.Equal(t, uint(1), all[len(all)-1])
	require.Equal(t, FilamentOf(all[0]), ordering.FirstPrintingFilament())
}

func TestScheduleSingleExtruderMapReset(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	cfg.FilamentMap = []int{2, 2} // stale multi-extruder grouping

	job := makeJob(makeObject(0, []layerSpec{
		{z: 0.2, height: 0.2, walls: []uint{0, 1}},
	}))

	ordering, err := New(job, cfg)
	require.NoError(t, err)
	require.False(t, ordering.Empty())

	// The stale map is reset to all-ones and persisted, not fatal.
	require.Equal(t, []int{1, 1}, cfg.FilamentMap)
	require.True(t, cfg.Dirty())
}

func TestScheduleTPUCountFatal(t *testing.T) {
	cfg := testPrintConfig(t, dualNozzleProfile)
	cfg.FilamentType = []string{"TPU", "TPU"}

	job := makeJob(makeObject(0, []layerSpec{
		{z: 0.2, height: 0.2, walls: []uint{0, 1}},
	}))

	_, err := New(job, cfg)
	require.Error(t, err)
	require.True(t, errors.IsCode(err, errors.ErrTPUCount))
}

func TestScheduleTPUManualGroupingFatal(t *testing.T) {
	cfg := testPrintConfig(t, dualNozzleProfile)
	cfg.FilamentType = []string{"TPU", "PLA"}
	cfg.MapMode = config.MapManual
	cfg.FilamentMap = []int{1, 1} // TPU shares the master extruder

	job := makeJob(makeObject(0, []layerSpec{
		{z: 0.2, height: 0.2, walls: []uint{0, 1}},
	}))

	_, err := New(job, cfg)
	require.Error(t, err)
	require.True(t, errors.IsCode(err, errors.ErrTPUGroupManual))
}

func TestScheduleAutoGroupingIsolatesTPU(t *testing.T) {
	cfg := testPrintConfig(t, dualNozzleProfile)
	cfg.FilamentType = []string{"TPU", "PLA"}

	job := makeJob(makeObject(0, []layerSpec{
		{z: 0.2, height: 0.2, walls: []uint{0, 1}},
	}))

	ordering, err := New(job, cfg)
	require.NoError(t, err)
	require.False(t, ordering.Empty())

	// TPU forced alone onto the master extruder, the map persisted.
	require.Equal(t, []int{1, 2}, cfg.FilamentMap)
	require.True(t, cfg.Dirty())
}

func TestScheduleSolubleFirstOnPrimedFirstLayer(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	cfg.EnablePrimeTower = true
	cfg.FilamentSoluble = []bool{false, true}

	job := makeJob(makeObject(0, []layerSpec{
		{z: 0.2, height: 0.2, walls: []uint{0, 1}},
	}))

	ordering, err := New(job, cfg)
	require.NoError(t, err)
	require.Equal(t, []uint{1, 0}, layerOrder(ordering.Layers()[0]))
}

func TestScheduleOtherLayersSequence(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	// Layers 2-3 (1-based) print filament 2 before filament 1.
	cfg.OtherLayersPrintSequence = []int{2, 3, 2, 2, 1}
	cfg.OtherLayersSequenceNums = 1

	job := makeJob(makeObject(0, []layerSpec{
		{z: 0.2, height: 0.2, walls: []uint{0, 1}},
		{z: 0.4, height: 0.2, walls: []uint{0, 1}},
		{z: 0.6, height: 0.2, walls: []uint{0, 1}},
	}))

	ordering, err := New(job, cfg)
	require.NoError(t, err)

	layers := ordering.Layers()
	require.Equal(t, []uint{1, 0}, layerOrder(layers[1]))
	require.Equal(t, []uint{1, 0}, layerOrder(layers[2]))
}

func TestNewForObject(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	obj := makeObject(0, []layerSpec{
		{z: 0.2, height: 0.2, walls: []uint{0}},
		{z: 0.4, height: 0.2, walls: []uint{1}},
	})

	ordering, err := NewForObject(obj, cfg)
	require.NoError(t, err)
	require.Len(t, ordering.Layers(), 2)
	require.Equal(t, []uint{0}, layerOrder(ordering.Layers()[0]))
	require.Equal(t, []uint{1}, layerOrder(ordering.Layers()[1]))
}

func TestNewForObjectEmpty(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)
	ordering, err := NewForObject(&Object{ID: 0, Instances: 1}, cfg)
	require.NoError(t, err)
	require.True(t, ordering.Empty())
}

func TestCalcMaxLayerHeight(t *testing.T) {
	cfg := testPrintConfig(t, singleNozzleProfile)

	// No explicit limit: 0.75x nozzle diameter.
	require.InDelta(t, 0.3, calcMaxLayerHeight(cfg, 0.2), 1e-9)

	// An oversized object layer height floors the result.
	require.InDelta(t, 0.5, calcMaxLayerHeight(cfg, 0.5), 1e-9)

	cfg.MaxLayerHeight = []float64{0.25}
	require.InDelta(t, 0.25, calcMaxLayerHeight(cfg, 0.2), 1e-9)
}
