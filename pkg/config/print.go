// Typed view of the print/job configuration
//
// Collects every option the tool-change scheduler consumes: nozzle geometry,
// filament attributes, the flush-volume matrix, the filament map and its
// mode, and the per-layer sequence overrides. The computed filament map is
// persisted back into the profile through an autosave block.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"slicer-go-migration/pkg/errors"
)

// FilamentMapMode selects how filaments are assigned to physical extruders.
type FilamentMapMode int

const (
	// MapAuto computes the filament map and persists it to the profile
	MapAuto FilamentMapMode = iota

	// MapManual uses the filament map stored in the profile as-is
	MapManual
)

// PrintSequence selects whole-plate or per-object scheduling.
type PrintSequence int

const (
	// ByLayer prints all objects together, layer by layer
	ByLayer PrintSequence = iota

	// ByObject prints each object to completion before the next
	ByObject
)

// TimelapseType mirrors the smooth-timelapse option that forces a
// continuous wipe tower.
type TimelapseType int

const (
	// TimelapseTraditional takes snapshots without a tower requirement
	TimelapseTraditional TimelapseType = iota

	// TimelapseSmooth requires the wipe tower on every object layer
	TimelapseSmooth
)

// Nozzle hardness (HRC) by nozzle type. A filament whose required HRC
// exceeds the nozzle's rating must not be routed through that nozzle.
var hrcByNozzleType = map[string]int{
	"brass":           2,
	"stainless_steel": 20,
	"hardened_steel":  55,
	"tungsten_carbide": 75,
}

// PrintConfig is the typed configuration consumed by the scheduler.
type PrintConfig struct {
	// [printer]
	NozzleDiameter        []float64
	NozzleType            []string
	MaxLayerHeight        []float64 // per nozzle; 0 means 0.75 * nozzle diameter
	MasterExtruderID      int       // 1-based, as stored in the profile
	ExtruderAMSCount      []string  // per extruder, "NxM" products joined by ';'
	EnablePrimeTower      bool
	Timelapse             TimelapseType
	Sequence              PrintSequence
	IsInfillFirst         bool
	InitialLayerLineWidth float64

	FirstLayerPrintSequence  []int // 1-based filament ids, optional
	OtherLayersPrintSequence []int // flattened 1-based ranges+ids, optional
	OtherLayersSequenceNums  int

	// [filaments]
	FilamentType      []string
	FilamentColour    []string
	FilamentDensity   []float64
	FilamentSoluble   []bool
	FilamentIsSupport []bool
	RequiredNozzleHRC []int
	FilamentMap       []int // 1-based extruder per filament
	MapMode           FilamentMapMode
	FlushVolumesMatrix []float64 // nozzle-major, filament_count^2 per nozzle

	dirty bool
}

// LoadPrint builds a PrintConfig from the [printer] and [filaments] sections.
func LoadPrint(c *Config) (*PrintConfig, error) {
	printer := c.Section("printer")
	if printer == nil {
		return nil, errors.New(errors.ErrConfigValidation, "missing [printer] section")
	}
	filaments := c.Section("filaments")
	if filaments == nil {
		return nil, errors.New(errors.ErrConfigValidation, "missing [filaments] section")
	}

	pc := &PrintConfig{}
	var err error
	if pc.NozzleDiameter, err = printer.GetFloatList("nozzle_diameter"); err != nil {
		return nil, err
	}
	if len(pc.NozzleDiameter) == 0 {
		return nil, errors.ConfigValidationError("printer", "nozzle_diameter", "must not be empty")
	}
	if pc.NozzleType, err = printer.GetList("nozzle_type", []string{}); err != nil {
		return nil, err
	}
	if pc.MaxLayerHeight, err = printer.GetFloatList("max_layer_height", []float64{}); err != nil {
		return nil, err
	}
	if pc.MasterExtruderID, err = printer.GetInt("master_extruder_id", 1); err != nil {
		return nil, err
	}
	if pc.MasterExtruderID < 1 || pc.MasterExtruderID > len(pc.NozzleDiameter) {
		return nil, errors.ConfigValidationError("printer", "master_extruder_id", "out of range")
	}
	if pc.ExtruderAMSCount, err = printer.GetList("extruder_ams_count", []string{}); err != nil {
		return nil, err
	}
	if pc.EnablePrimeTower, err = printer.GetBool("enable_prime_tower", false); err != nil {
		return nil, err
	}
	timelapse, err := printer.GetChoice("timelapse_type", []string{"traditional", "smooth"}, "traditional")
	if err != nil {
		return nil, err
	}
	if timelapse == "smooth" {
		pc.Timelapse = TimelapseSmooth
	}
	seq, err := printer.GetChoice("print_sequence", []string{"by_layer", "by_object"}, "by_layer")
	if err != nil {
		return nil, err
	}
	if seq == "by_object" {
		pc.Sequence = ByObject
	}
	if pc.IsInfillFirst, err = printer.GetBool("is_infill_first", false); err != nil {
		return nil, err
	}
	if pc.InitialLayerLineWidth, err = printer.GetFloat("initial_layer_line_width", 0.5); err != nil {
		return nil, err
	}
	if pc.FirstLayerPrintSequence, err = printer.GetIntList("first_layer_print_sequence", []int{}); err != nil {
		return nil, err
	}
	if pc.OtherLayersPrintSequence, err = printer.GetIntList("other_layers_print_sequence", []int{}); err != nil {
		return nil, err
	}
	if pc.OtherLayersSequenceNums, err = printer.GetInt("other_layers_print_sequence_nums", 0); err != nil {
		return nil, err
	}

	if pc.FilamentType, err = filaments.GetList("filament_type"); err != nil {
		return nil, err
	}
	if len(pc.FilamentType) == 0 {
		return nil, errors.ConfigValidationError("filaments", "filament_type", "must not be empty")
	}
	if pc.FilamentColour, err = filaments.GetList("filament_colour", []string{}); err != nil {
		return nil, err
	}
	if pc.FilamentDensity, err = filaments.GetFloatList("filament_density", []float64{}); err != nil {
		return nil, err
	}
	if pc.FilamentSoluble, err = filaments.GetBoolList("filament_soluble", []bool{}); err != nil {
		return nil, err
	}
	if pc.FilamentIsSupport, err = filaments.GetBoolList("filament_is_support", []bool{}); err != nil {
		return nil, err
	}
	if pc.RequiredNozzleHRC, err = filaments.GetIntList("required_nozzle_hrc", []int{}); err != nil {
		return nil, err
	}
	defaultMap := make([]int, len(pc.FilamentType))
	for i := range defaultMap {
		defaultMap[i] = 1
	}
	if pc.FilamentMap, err = filaments.GetIntList("filament_map", defaultMap); err != nil {
		return nil, err
	}
	mode, err := filaments.GetChoice("filament_map_mode", []string{"auto", "manual"}, "auto")
	if err != nil {
		return nil, err
	}
	if mode == "manual" {
		pc.MapMode = MapManual
	}
	if pc.FlushVolumesMatrix, err = filaments.GetFloatList("flush_volumes_matrix", []float64{}); err != nil {
		return nil, err
	}

	return pc, nil
}

// ExtruderCount returns the number of physical extruders.
func (pc *PrintConfig) ExtruderCount() int {
	return len(pc.NozzleDiameter)
}

// FilamentCount returns the number of configured filaments.
func (pc *PrintConfig) FilamentCount() int {
	return len(pc.FilamentType)
}

// getAt mirrors the profile semantics for per-filament lists that may be
// shorter than the filament count: out-of-range indexes fall back to the
// first entry.
func getAt[T any](values []T, idx int) T {
	var zero T
	if idx >= 0 && idx < len(values) {
		return values[idx]
	}
	if len(values) > 0 {
		return values[0]
	}
	return zero
}

// FilamentTypeAt returns the material type of a filament (0-based).
func (pc *PrintConfig) FilamentTypeAt(id int) string {
	return getAt(pc.FilamentType, id)
}

// FilamentColourAt returns the display color of a filament (0-based).
func (pc *PrintConfig) FilamentColourAt(id int) string {
	return getAt(pc.FilamentColour, id)
}

// FilamentDensityAt returns the density in g/cm3 of a filament (0-based).
func (pc *PrintConfig) FilamentDensityAt(id int) float64 {
	return getAt(pc.FilamentDensity, id)
}

// FilamentSolubleAt reports whether a filament (0-based) is soluble.
func (pc *PrintConfig) FilamentSolubleAt(id int) bool {
	return getAt(pc.FilamentSoluble, id)
}

// FilamentIsSupportAt reports whether a filament (0-based) is support-only.
func (pc *PrintConfig) FilamentIsSupportAt(id int) bool {
	return getAt(pc.FilamentIsSupport, id)
}

// RequiredNozzleHRCAt returns the hardness a filament (0-based) demands.
func (pc *PrintConfig) RequiredNozzleHRCAt(id int) int {
	return getAt(pc.RequiredNozzleHRC, id)
}

// NozzleHRC returns the hardness rating of an extruder's nozzle (0-based).
func (pc *PrintConfig) NozzleHRC(extruder int) int {
	return hrcByNozzleType[getAt(pc.NozzleType, extruder)]
}

// FlushMatrix returns the filament-to-filament flush volume matrix of one
// nozzle. Missing or undersized profile data yields a zero matrix.
func (pc *PrintConfig) FlushMatrix(nozzle int) [][]float64 {
	n := pc.FilamentCount()
	matrix := make([][]float64, n)
	base := nozzle * n * n
	for i := 0; i < n; i++ {
		matrix[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			idx := base + i*n + j
			if idx < len(pc.FlushVolumesMatrix) {
				matrix[i][j] = pc.FlushVolumesMatrix[idx]
			}
		}
	}
	return matrix
}

// AMSCapacities returns the filament capacity of each extruder, derived
// from the per-extruder AMS unit counts ("NxM" products joined by ';').
// An extruder with no AMS can still feed one external spool.
func (pc *PrintConfig) AMSCapacities() []int {
	caps := make([]int, pc.ExtruderCount())
	for i := range caps {
		caps[i] = 16
	}
	if len(pc.ExtruderAMSCount) == 0 {
		return caps
	}
	for i := 0; i < len(caps) && i < len(pc.ExtruderAMSCount); i++ {
		total := 0
		for _, entry := range strings.Split(pc.ExtruderAMSCount[i], ";") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			parts := strings.SplitN(entry, "x", 2)
			if len(parts) != 2 {
				continue
			}
			n, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
			m, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err1 == nil && err2 == nil {
				total += n * m
			}
		}
		if total == 0 {
			total = 1
		}
		caps[i] = total
	}
	return caps
}

// SetFilamentMaps stores a new 1-based filament map and marks the config
// dirty so the map is persisted on the next save.
func (pc *PrintConfig) SetFilamentMaps(maps []int) {
	pc.FilamentMap = make([]int, len(maps))
	copy(pc.FilamentMap, maps)
	pc.dirty = true
}

// Dirty reports whether the config carries unsaved changes.
func (pc *PrintConfig) Dirty() bool {
	return pc.dirty
}

const autosaveHeader = "#*# <---------------------- SAVE_CONFIG ---------------------->\n" +
	"#*# DO NOT EDIT THIS BLOCK OR BELOW. The contents are auto-generated.\n"

// SaveFilamentMaps rewrites the profile at path, replacing any existing
// autosave block with one carrying the current filament map.
func (pc *PrintConfig) SaveFilamentMaps(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: unable to read %s: %w", path, err)
	}

	var sb strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#*#") {
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	content := strings.TrimRight(sb.String(), "\n") + "\n"

	maps := make([]string, len(pc.FilamentMap))
	for i, m := range pc.FilamentMap {
		maps[i] = strconv.Itoa(m)
	}
	content += autosaveHeader
	content += "#*# [filaments]\n"
	content += "#*# filament_map = " + strings.Join(maps, ", ") + "\n"

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("config: unable to write %s: %w", path, err)
	}
	pc.dirty = false
	return nil
}
