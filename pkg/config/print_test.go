// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const dualExtruderProfile = `
[printer]
nozzle_diameter = 0.4, 0.6
nozzle_type = hardened_steel, brass
max_layer_height = 0.3, 0
master_extruder_id = 1
extruder_ams_count = 1x4;1x1, 2x4
enable_prime_tower = true
timelapse_type = smooth
is_infill_first = false
initial_layer_line_width = 0.5

[filaments]
filament_type = PLA, PETG
filament_colour = #FF0000, #00FF00
filament_density = 1.24, 1.27
filament_soluble = 0, 0
filament_is_support = 0, 0
required_nozzle_hrc = 0, 0
filament_map = 1, 2
filament_map_mode = manual
flush_volumes_matrix = 0, 100, 120, 0, 0, 90, 110, 0
`

func loadProfile(t *testing.T, data string) *PrintConfig {
	t.Helper()
	c, err := LoadString(data)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	pc, err := LoadPrint(c)
	if err != nil {
		t.Fatalf("LoadPrint: %v", err)
	}
	return pc
}

func TestLoadPrint(t *testing.T) {
	pc := loadProfile(t, dualExtruderProfile)

	if pc.ExtruderCount() != 2 {
		t.Errorf("ExtruderCount() = %d", pc.ExtruderCount())
	}
	if pc.FilamentCount() != 2 {
		t.Errorf("FilamentCount() = %d", pc.FilamentCount())
	}
	if pc.Timelapse != TimelapseSmooth {
		t.Errorf("Timelapse = %v", pc.Timelapse)
	}
	if pc.MapMode != MapManual {
		t.Errorf("MapMode = %v", pc.MapMode)
	}
	if pc.Sequence != ByLayer {
		t.Errorf("Sequence = %v", pc.Sequence)
	}
	if !reflect.DeepEqual(pc.FilamentMap, []int{1, 2}) {
		t.Errorf("FilamentMap = %v", pc.FilamentMap)
	}
}

func TestLoadPrintMissingSections(t *testing.T) {
	if c, _ := LoadString("[printer]\nnozzle_diameter = 0.4\n"); c != nil {
		if _, err := LoadPrint(c); err == nil {
			t.Errorf("expected error without [filaments]")
		}
	}
	if c, _ := LoadString("[filaments]\nfilament_type = PLA\n"); c != nil {
		if _, err := LoadPrint(c); err == nil {
			t.Errorf("expected error without [printer]")
		}
	}
}

func TestPerFilamentFallback(t *testing.T) {
	pc := loadProfile(t, dualExtruderProfile)

	// Out-of-range per-filament lookups fall back to the first entry.
	if got := pc.FilamentTypeAt(5); got != "PLA" {
		t.Errorf("FilamentTypeAt(5) = %q", got)
	}
	if got := pc.FilamentDensityAt(-1); got != 1.24 {
		t.Errorf("FilamentDensityAt(-1) = %v", got)
	}
}

func TestNozzleHRC(t *testing.T) {
	pc := loadProfile(t, dualExtruderProfile)
	if got := pc.NozzleHRC(0); got != 55 {
		t.Errorf("NozzleHRC(0) = %d, want 55 (hardened_steel)", got)
	}
	if got := pc.NozzleHRC(1); got != 2 {
		t.Errorf("NozzleHRC(1) = %d, want 2 (brass)", got)
	}
}

func TestFlushMatrix(t *testing.T) {
	pc := loadProfile(t, dualExtruderProfile)

	m0 := pc.FlushMatrix(0)
	if m0[0][1] != 100 || m0[1][0] != 120 {
		t.Errorf("nozzle 0 matrix = %v", m0)
	}
	m1 := pc.FlushMatrix(1)
	if m1[0][1] != 90 || m1[1][0] != 110 {
		t.Errorf("nozzle 1 matrix = %v", m1)
	}

	// An undersized flattened matrix yields zeros, not a panic.
	short := loadProfile(t, strings.Replace(dualExtruderProfile,
		"flush_volumes_matrix = 0, 100, 120, 0, 0, 90, 110, 0",
		"flush_volumes_matrix = 0, 100", 1))
	if got := short.FlushMatrix(1); got[1][1] != 0 {
		t.Errorf("undersized matrix not zero-filled: %v", got)
	}
}

func TestAMSCapacities(t *testing.T) {
	pc := loadProfile(t, dualExtruderProfile)
	// 1x4;1x1 = 5 slots, 2x4 = 8 slots.
	if got := pc.AMSCapacities(); !reflect.DeepEqual(got, []int{5, 8}) {
		t.Errorf("AMSCapacities() = %v", got)
	}

	noAMS := loadProfile(t, strings.Replace(dualExtruderProfile,
		"extruder_ams_count = 1x4;1x1, 2x4\n", "", 1))
	if got := noAMS.AMSCapacities(); !reflect.DeepEqual(got, []int{16, 16}) {
		t.Errorf("default AMSCapacities() = %v", got)
	}

	// An extruder listed with no parseable units can still feed one spool.
	external := loadProfile(t, strings.Replace(dualExtruderProfile,
		"extruder_ams_count = 1x4;1x1, 2x4", "extruder_ams_count = 0x0, 1x4", 1))
	if got := external.AMSCapacities(); !reflect.DeepEqual(got, []int{1, 4}) {
		t.Errorf("external spool AMSCapacities() = %v", got)
	}
}

func TestSaveFilamentMapsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printer.cfg")
	if err := os.WriteFile(path, []byte(dualExtruderProfile), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pc, err := LoadPrint(c)
	if err != nil {
		t.Fatalf("LoadPrint: %v", err)
	}

	pc.SetFilamentMaps([]int{2, 1})
	if !pc.Dirty() {
		t.Fatalf("SetFilamentMaps did not mark the config dirty")
	}
	if err := pc.SaveFilamentMaps(path); err != nil {
		t.Fatalf("SaveFilamentMaps: %v", err)
	}
	if pc.Dirty() {
		t.Errorf("config still dirty after save")
	}

	// Reload: the autosave block must override the profile's map.
	c2, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	pc2, err := LoadPrint(c2)
	if err != nil {
		t.Fatalf("LoadPrint after save: %v", err)
	}
	if !reflect.DeepEqual(pc2.FilamentMap, []int{2, 1}) {
		t.Errorf("persisted map = %v, want [2 1]", pc2.FilamentMap)
	}

	// Saving twice must not stack autosave blocks.
	pc2.SetFilamentMaps([]int{1, 1})
	if err := pc2.SaveFilamentMaps(path); err != nil {
		t.Fatalf("second save: %v", err)
	}
	data, _ := os.ReadFile(path)
	if n := strings.Count(string(data), "SAVE_CONFIG"); n != 1 {
		t.Errorf("autosave blocks stacked: %d headers", n)
	}
}
