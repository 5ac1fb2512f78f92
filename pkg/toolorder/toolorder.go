// Tool-change scheduling engine
//
// Decides, per print layer, which filament prints first, how the wipe
// tower is sized, where the skirt and custom G-code events land, and which
// extrusions can absorb purge volume. One ToolOrdering instance owns one
// scheduling pass over one immutable job snapshot; passes must not be
// invoked concurrently on the same instance.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

import (
	"math"
	"sort"

	"slicer-go-migration/pkg/config"
	"slicer-go-migration/pkg/log"
)

// FilamentChangeMode selects which statistics variant to query.
type FilamentChangeMode int

const (
	// StatsSingleExtruder: all filaments forced through one extruder
	StatsSingleExtruder FilamentChangeMode = iota

	// StatsMultiExtruderAuto: automatic filament grouping
	StatsMultiExtruderAuto

	// StatsMultiExtruderManual: the profile's manual grouping
	StatsMultiExtruderManual
)

// FilamentChangeStats summarizes one tool-order variant for UI comparison.
type FilamentChangeStats struct {
	ChangeCount int

	// FlushWeight is the purged material in grams, rounded down.
	FlushWeight int
}

// ToolOrdering is the scheduler instance.
type ToolOrdering struct {
	cfg *config.PrintConfig
	job *Job

	// object is set in by-object mode; the whole-plate passes that need
	// the full job (wiping overlay, custom G-codes) are skipped then.
	object     *Object
	wholePlate bool

	layers []LayerTools

	firstPrinting Filament
	lastPrinting  Filament
	allPrinting   []uint

	statsSingle      FilamentChangeStats
	statsMultiAuto   FilamentChangeStats
	statsMultiManual FilamentChangeStats

	// customGCodes is the scheduler-owned copy of the plate table.
	customGCodes CustomGCodeInfo

	grouper   Grouper
	sequencer Sequencer
	logger    *log.Logger

	seedFilament       Filament
	seedSet            bool
	primeMultiMaterial bool
}

// Option configures a ToolOrdering instance.
type Option func(*ToolOrdering)

// WithFirstFilament seeds the layer ordering with an explicit first
// filament instead of the first-layer geometric heuristic.
func WithFirstFilament(f Filament) Option {
	return func(t *ToolOrdering) { t.seedFilament = f; t.seedSet = true }
}

// WithPrimeMultiMaterial reorders the priming sequence so the first
// printing filament is primed last.
func WithPrimeMultiMaterial() Option {
	return func(t *ToolOrdering) { t.primeMultiMaterial = true }
}

// WithGrouper substitutes the filament grouping solver.
func WithGrouper(g Grouper) Option {
	return func(t *ToolOrdering) { t.grouper = g }
}

// WithSequencer substitutes the per-layer minimal-flush sequencer.
func WithSequencer(s Sequencer) Option {
	return func(t *ToolOrdering) { t.sequencer = s }
}

// WithLogger substitutes the component logger.
func WithLogger(l *log.Logger) Option {
	return func(t *ToolOrdering) { t.logger = l }
}

// New schedules a whole plate: all objects printed together, layer by
// layer. Returns a fatal error on TPU grouping violations.
func New(job *Job, cfg *config.PrintConfig, opts ...Option) (*ToolOrdering, error) {
	t := &ToolOrdering{
		cfg:          cfg,
		job:          job,
		wholePlate:   true,
		customGCodes: job.CustomGCodes,
		logger:       log.Default,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.grouper == nil {
		t.grouper = NewGreedyGrouper()
	}
	if t.sequencer == nil {
		t.sequencer = NewChainSequencer()
	}

	var zs []float64
	objectBottomZ := 0.0
	maxObjectLayerHeight := 0.0
	for _, obj := range job.Objects {
		for _, layer := range obj.Layers {
			zs = append(zs, layer.PrintZ)
		}
		for _, layer := range obj.SupportLayers {
			zs = append(zs, layer.PrintZ)
		}
		for _, layer := range obj.Layers {
			if layer.HasExtrusions() {
				objectBottomZ = layer.PrintZ - layer.Height
				break
			}
		}
		maxObjectLayerHeight = math.Max(maxObjectLayerHeight, obj.Config.LayerHeight)
	}
	t.initializeLayers(zs)
	maxLayerHeight := calcMaxLayerHeight(cfg, maxObjectLayerHeight)

	// Per-layer extruder switches only apply when a single-filament plate
	// is driven by a MultiAsSingle custom G-code table.
	var switches []filamentSwitch
	if cfg.FilamentCount() > 1 && len(job.ObjectFilaments()) == 1 &&
		job.CustomGCodes.Mode == ModeMultiAsSingle {
		switches = customToolChanges(job.CustomGCodes, cfg.FilamentCount())
	}

	for _, obj := range job.Objects {
		t.collectFilaments(obj, switches)
	}

	if err := t.reorderPasses(); err != nil {
		return nil, err
	}

	t.fillWipeTowerPartitions(objectBottomZ, maxLayerHeight)
	t.collectFilamentStatistics()
	t.markSkirtLayers(maxLayerHeight)

	if cfg.Sequence == config.ByLayer {
		t.assignCustomGCodes()
	}

	return t, nil
}

// NewForObject schedules a single object printed to completion (the
// by-object print sequence). The wiping overlay stays inactive: purge is
// never redirected across objects in this mode.
func NewForObject(object *Object, cfg *config.PrintConfig, opts ...Option) (*ToolOrdering, error) {
	t := &ToolOrdering{
		cfg:    cfg,
		object: object,
		logger: log.Default,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.grouper == nil {
		t.grouper = NewGreedyGrouper()
	}
	if t.sequencer == nil {
		t.sequencer = NewChainSequencer()
	}
	if len(object.Layers) == 0 {
		return t, nil
	}

	var zs []float64
	for _, layer := range object.Layers {
		zs = append(zs, layer.PrintZ)
	}
	for _, layer := range object.SupportLayers {
		zs = append(zs, layer.PrintZ)
	}
	t.initializeLayers(zs)
	maxLayerHeight := calcMaxLayerHeight(cfg, object.Config.LayerHeight)

	t.collectFilaments(object, nil)

	if err := t.reorderPasses(); err != nil {
		return nil, err
	}

	first := object.Layers[0]
	t.fillWipeTowerPartitions(first.PrintZ-first.Height, maxLayerHeight)
	t.collectFilamentStatistics()
	t.markSkirtLayers(maxLayerHeight)

	return t, nil
}

// reorderPasses runs the layer ordering passes: sentinel resolution plus
// rotation, then the minimal-flush sequencing.
func (t *ToolOrdering) reorderPasses() error {
	if t.seedSet && t.seedFilament.Assigned() {
		t.reorderFrom(t.seedFilament)
		return t.reorderForMinimumFlush(true)
	}
	order := t.firstLayerToolOrder()
	if len(order) > 0 {
		t.reorderWithLayer0Order(order)
		return t.reorderForMinimumFlush(false)
	}
	t.reorderFrom(Unassigned)
	return t.reorderForMinimumFlush(true)
}

// initializeLayers builds one LayerTools per distinct print height,
// averaging heights that differ by less than zEpsilon.
func (t *ToolOrdering) initializeLayers(zs []float64) {
	sort.Float64s(zs)
	for i := 0; i < len(zs); {
		j := i + 1
		zmax := zs[i] + zEpsilon
		for j < len(zs) && zs[j] <= zmax {
			j++
		}
		t.layers = append(t.layers, newLayerTools(0.5*(zs[i]+zs[j-1])))
		i = j
	}
}

// calcMaxLayerHeight derives the smallest per-nozzle layer height limit
// (0 in the profile means 0.75x the nozzle diameter), floored by the
// largest object layer height so oversized profiles keep slicing.
func calcMaxLayerHeight(cfg *config.PrintConfig, maxObjectLayerHeight float64) float64 {
	maxLayerHeight := math.MaxFloat64
	for i, d := range cfg.NozzleDiameter {
		mlh := 0.0
		if i < len(cfg.MaxLayerHeight) {
			mlh = cfg.MaxLayerHeight[i]
		}
		if mlh == 0 {
			mlh = 0.75 * d
		}
		maxLayerHeight = math.Min(maxLayerHeight, mlh)
	}
	return math.Max(maxLayerHeight, maxObjectLayerHeight)
}

// toolsForLayerMut returns the LayerTools nearest to the given print
// height, for mutation during collection.
func (t *ToolOrdering) toolsForLayerMut(z float64) *LayerTools {
	idx := sort.Search(len(t.layers), func(i int) bool {
		return t.layers[i].PrintZ >= z-zEpsilon
	})
	if idx >= len(t.layers) {
		idx = len(t.layers) - 1
	}
	// The search lands on the first candidate; the neighbor below may
	// still be closer after Z averaging.
	best := idx
	for _, cand := range []int{idx - 1, idx + 1} {
		if cand >= 0 && cand < len(t.layers) &&
			math.Abs(t.layers[cand].PrintZ-z) < math.Abs(t.layers[best].PrintZ-z) {
			best = cand
		}
	}
	return &t.layers[best]
}

// ToolsForLayer returns the finalized LayerTools nearest to the given
// print height.
func (t *ToolOrdering) ToolsForLayer(z float64) *LayerTools {
	return t.toolsForLayerMut(z)
}

// Layers exposes the finalized schedule in print order.
func (t *ToolOrdering) Layers() []LayerTools {
	return t.layers
}

// Empty reports whether the schedule contains no layers.
func (t *ToolOrdering) Empty() bool {
	return len(t.layers) == 0
}

// FirstPrintingFilament returns the first filament the print uses.
func (t *ToolOrdering) FirstPrintingFilament() Filament {
	return t.firstPrinting
}

// LastPrintingFilament returns the last filament the print uses.
func (t *ToolOrdering) LastPrintingFilament() Filament {
	return t.lastPrinting
}

// AllPrintingFilaments returns every used filament. With the
// prime-multi-material option the slice is in priming order and ends with
// the filament that prints first.
func (t *ToolOrdering) AllPrintingFilaments() []uint {
	return t.allPrinting
}

// Stats returns the filament-change statistics of the given mode.
func (t *ToolOrdering) Stats(mode FilamentChangeMode) FilamentChangeStats {
	switch mode {
	case StatsMultiExtruderAuto:
		return t.statsMultiAuto
	case StatsMultiExtruderManual:
		return t.statsMultiManual
	default:
		return t.statsSingle
	}
}

// collectFilamentStatistics records the first/last/all used filaments.
func (t *ToolOrdering) collectFilamentStatistics() {
	t.firstPrinting = Unassigned
	for i := range t.layers {
		if len(t.layers[i].Filaments) > 0 {
			t.firstPrinting = t.layers[i].Filaments[0]
			break
		}
	}

	t.lastPrinting = Unassigned
	for i := len(t.layers) - 1; i >= 0; i-- {
		if len(t.layers[i].Filaments) > 0 {
			t.lastPrinting = t.layers[i].Filaments[len(t.layers[i].Filaments)-1]
			break
		}
	}

	seen := make(map[uint]struct{})
	t.allPrinting = t.allPrinting[:0]
	for i := range t.layers {
		for _, f := range t.layers[i].Filaments {
			if !f.Assigned() {
				continue
			}
			if _, ok := seen[f.ID()]; !ok {
				seen[f.ID()] = struct{}{}
				t.allPrinting = append(t.allPrinting, f.ID())
			}
		}
	}
	sort.Slice(t.allPrinting, func(i, j int) bool { return t.allPrinting[i] < t.allPrinting[j] })

	if t.primeMultiMaterial && len(t.allPrinting) > 0 && t.firstPrinting.Assigned() {
		// Prime the first printing filament last, then make the head of
		// the priming order the first printing filament.
		pruned := t.allPrinting[:0]
		for _, id := range t.allPrinting {
			if !t.firstPrinting.Is(id) {
				pruned = append(pruned, id)
			}
		}
		t.allPrinting = append(pruned, t.firstPrinting.ID())
		t.firstPrinting = FilamentOf(t.allPrinting[0])
	}
}
