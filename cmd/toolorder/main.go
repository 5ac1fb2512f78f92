// toolorder computes the tool-change schedule of one print plate.
// It loads a printer/filament profile and a plate snapshot, runs the
// layer scheduling and purge minimization pass and prints the per-layer
// filament order together with the filament-change statistics.
//
// Usage:
//
//	toolorder -config printer.cfg -job plate.json [options]
//
// Options:
//
//	-config string  Printer configuration file (required)
//	-job string     Plate snapshot file (required)
//	-first int      1-based filament to seed layer 0 with (0 = automatic)
//	-prime          Prime all plate filaments on the first layer
//	-v string       Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Schedule a plate with automatic first filament
//	toolorder -config printer.cfg -job plate.json
//
//	# Seed the schedule with filament 2 and verbose logging
//	toolorder -config printer.cfg -job plate.json -first 2 -v debug
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"slicer-go-migration/pkg/config"
	"slicer-go-migration/pkg/log"
	"slicer-go-migration/pkg/toolorder"
)

func main() {
	configFile := flag.String("config", "", "Printer configuration file (required)")
	jobFile := flag.String("job", "", "Plate snapshot file (required)")
	firstFilament := flag.Int("first", 0, "1-based filament to seed layer 0 with (0 = automatic)")
	prime := flag.Bool("prime", false, "Prime all plate filaments on the first layer")
	verbosity := flag.String("v", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	if *configFile == "" || *jobFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -config and -job are required\n")
		flag.Usage()
		os.Exit(1)
	}

	log.Default.SetLevel(log.ParseLevel(*verbosity))

	cfg, err := loadProfile(*configFile)
	if err != nil {
		log.Error("loading profile: %v", err)
		os.Exit(1)
	}

	job, err := loadJob(*jobFile)
	if err != nil {
		log.Error("loading plate snapshot: %v", err)
		os.Exit(1)
	}

	opts := []toolorder.Option{}
	if *firstFilament > 0 {
		opts = append(opts, toolorder.WithFirstFilament(toolorder.FilamentOf1(*firstFilament)))
	}
	if *prime {
		opts = append(opts, toolorder.WithPrimeMultiMaterial())
	}

	ordering, err := toolorder.New(job, cfg, opts...)
	if err != nil {
		log.Error("scheduling failed: %v", err)
		os.Exit(1)
	}

	printSchedule(ordering, cfg)

	if cfg.Dirty() {
		if err := cfg.SaveFilamentMaps(*configFile); err != nil {
			log.Error("saving filament maps: %v", err)
			os.Exit(1)
		}
		log.Info("updated filament maps written to %s", *configFile)
	}
}

func loadProfile(path string) (*config.PrintConfig, error) {
	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return config.LoadPrint(c)
}

func printSchedule(t *toolorder.ToolOrdering, cfg *config.PrintConfig) {
	if t.Empty() {
		fmt.Println("nothing to print")
		return
	}

	fmt.Printf("%-10s %-8s %-6s %s\n", "Z", "TOWER", "SKIRT", "FILAMENTS")
	for i := range t.Layers() {
		lt := &t.Layers()[i]
		tower := "-"
		if lt.HasWipeTower {
			tower = fmt.Sprintf("%d", lt.WipeTowerPartitions)
		}
		skirt := "-"
		if lt.HasSkirt {
			skirt = "x"
		}
		fmt.Printf("%-10.3f %-8s %-6s %s\n", lt.PrintZ, tower, skirt, formatFilaments(lt.Filaments))
	}

	fmt.Println()
	printStats := func(name string, s toolorder.FilamentChangeStats) {
		fmt.Printf("%-22s %3d changes, %4d g flushed\n", name, s.ChangeCount, s.FlushWeight)
	}
	printStats("single extruder:", t.Stats(toolorder.StatsSingleExtruder))
	if cfg.ExtruderCount() > 1 {
		printStats("multi extruder auto:", t.Stats(toolorder.StatsMultiExtruderAuto))
		printStats("multi extruder manual:", t.Stats(toolorder.StatsMultiExtruderManual))
	}
}

// formatFilaments prints the 1-based filament order of one layer.
func formatFilaments(fs []toolorder.Filament) string {
	parts := make([]string, 0, len(fs))
	for _, f := range fs {
		if f.Assigned() {
			parts = append(parts, fmt.Sprintf("%d", f.ID()+1))
		} else {
			parts = append(parts, "?")
		}
	}
	if len(parts) == 0 {
		return "(empty)"
	}
	return strings.Join(parts, " -> ")
}
