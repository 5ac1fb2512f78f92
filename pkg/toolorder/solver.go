// External solver boundary: filament grouping and flush sequencing
//
// The capacity- and unprintability-constrained grouping solver and the
// per-layer minimal-flush sequencer are consumed as black-box interfaces.
// The greedy implementations here are the defaults; production builds may
// substitute stronger solvers through the scheduler options.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

import (
	"github.com/lucasb-eyer/go-colorful"
)

// similarColorThresholdDE2000 is the perceptual distance below which two
// filament colors count as interchangeable for slot matching.
const similarColorThresholdDE2000 = 20.0

// FlushMatrix is one nozzle's filament-to-filament purge volume table.
type FlushMatrix [][]float64

// at returns the flush volume from filament a to filament b, tolerating
// undersized matrices.
func (m FlushMatrix) at(a, b uint) float64 {
	if int(a) < len(m) && int(b) < len(m[a]) {
		return m[a][b]
	}
	return 0
}

// GroupContext carries the grouping constraints.
type GroupContext struct {
	FlushMatrices         []FlushMatrix
	MaxGroupSize          []int // filament capacity per extruder
	PhysicalUnprintables  []FilamentSet
	GeometricUnprintables []FilamentSet
	TotalFilaments        int
	MasterExtruder        int // 0-based
}

// Unprintable reports whether the filament is ruled out on the extruder by
// either constraint source.
func (ctx *GroupContext) Unprintable(extruder int, filament uint) bool {
	if extruder < len(ctx.PhysicalUnprintables) {
		if _, ok := ctx.PhysicalUnprintables[extruder][filament]; ok {
			return true
		}
	}
	if extruder < len(ctx.GeometricUnprintables) {
		if _, ok := ctx.GeometricUnprintables[extruder][filament]; ok {
			return true
		}
	}
	return false
}

// Grouper assigns filaments to physical extruders, minimizing total purge
// volume subject to capacity and unprintability constraints.
type Grouper interface {
	// Group returns a 0-based filament-to-extruder map covering
	// ctx.TotalFilaments entries.
	Group(ctx *GroupContext, layerFilaments [][]uint) []int

	// Candidates returns near-optimal alternative maps recorded by the
	// last Group call, best first.
	Candidates() [][]int
}

// CustomSeqFunc supplies a fixed 0-based filament order for a layer, or
// reports that none applies.
type CustomSeqFunc func(layerIdx int) ([]uint, bool)

// Sequencer reorders each layer's filament list for minimal flush volume,
// honoring the caller-supplied fixed-order hook.
type Sequencer interface {
	Sequence(filamentMaps []int, layerFilaments [][]uint, matrices []FlushMatrix, customSeq CustomSeqFunc) [][]uint
}

// groupFlushVolume estimates the purge cost of a grouping: the filaments
// of each extruder are chained in sorted order and consecutive pair
// volumes summed.
func groupFlushVolume(filamentMaps []int, used []uint, matrices []FlushMatrix) float64 {
	perExtruder := make(map[int][]uint)
	for _, f := range used {
		if int(f) < len(filamentMaps) {
			e := filamentMaps[f]
			perExtruder[e] = append(perExtruder[e], f)
		}
	}
	total := 0.0
	for e, chain := range perExtruder {
		if e < 0 || e >= len(matrices) {
			continue
		}
		for i := 0; i+1 < len(chain); i++ {
			total += matrices[e].at(chain[i], chain[i+1])
		}
	}
	return total
}

// GreedyGrouper is the default grouping solver: filaments are assigned in
// layer-appearance order to the legal extruder whose chain grows the
// cheapest.
type GreedyGrouper struct {
	candidates [][]int
}

// NewGreedyGrouper returns the default grouping solver.
func NewGreedyGrouper() *GreedyGrouper {
	return &GreedyGrouper{}
}

// Group implements Grouper.
func (g *GreedyGrouper) Group(ctx *GroupContext, layerFilaments [][]uint) []int {
	g.candidates = nil
	maps := make([]int, ctx.TotalFilaments)
	used := sortedUniqueIDs(layerFilaments)
	extruders := len(ctx.FlushMatrices)
	if extruders == 0 {
		return maps
	}

	chainTail := make([]int, extruders) // last filament per extruder, -1 empty
	groupSize := make([]int, extruders)
	for i := range chainTail {
		chainTail[i] = -1
	}
	capacity := func(e int) int {
		if e < len(ctx.MaxGroupSize) && ctx.MaxGroupSize[e] > 0 {
			return ctx.MaxGroupSize[e]
		}
		return 16
	}

	for _, f := range used {
		best := -1
		bestCost := 0.0
		for e := 0; e < extruders; e++ {
			if ctx.Unprintable(e, f) || groupSize[e] >= capacity(e) {
				continue
			}
			cost := 0.0
			if chainTail[e] >= 0 {
				cost = ctx.FlushMatrices[e].at(uint(chainTail[e]), f)
			}
			// Ties fall toward the master extruder.
			if best == -1 || cost < bestCost || (cost == bestCost && e == ctx.MasterExtruder) {
				best = e
				bestCost = cost
			}
		}
		if best == -1 {
			best = ctx.MasterExtruder
		}
		maps[f] = best
		chainTail[best] = int(f)
		groupSize[best]++
	}

	// Record the label-swapped variant as a near-optimal candidate when it
	// stays legal; slot-color matching may prefer it.
	if extruders == 2 {
		swapped := make([]int, len(maps))
		legal := true
		for f, e := range maps {
			swapped[f] = 1 - e
		}
		for _, f := range used {
			if ctx.Unprintable(swapped[f], f) {
				legal = false
				break
			}
		}
		if legal {
			size0, size1 := 0, 0
			for _, f := range used {
				if swapped[f] == 0 {
					size0++
				} else {
					size1++
				}
			}
			if size0 <= capacity(0) && size1 <= capacity(1) {
				g.candidates = append(g.candidates, swapped)
			}
		}
	}

	return maps
}

// Candidates implements Grouper.
func (g *GreedyGrouper) Candidates() [][]int {
	return g.candidates
}

// optimizeGroupForMasterExtruder biases a grouping toward the configured
// master extruder: when swapping the two group labels is legal and not
// more expensive, and it moves more filaments onto the master, the swap is
// applied in place.
func optimizeGroupForMasterExtruder(used []uint, ctx *GroupContext, maps []int) {
	if len(ctx.FlushMatrices) != 2 || len(used) == 0 {
		return
	}
	onMaster := 0
	for _, f := range used {
		if int(f) < len(maps) && maps[f] == ctx.MasterExtruder {
			onMaster++
		}
	}
	if onMaster*2 >= len(used) {
		return
	}

	swapped := make([]int, len(maps))
	for f, e := range maps {
		swapped[f] = 1 - e
	}
	for _, f := range used {
		if ctx.Unprintable(swapped[f], f) {
			return
		}
	}
	sizeOther := len(used) - onMaster
	if sizeOther > capacityAt(ctx, ctx.MasterExtruder) {
		return
	}
	if onMaster > capacityAt(ctx, 1-ctx.MasterExtruder) {
		return
	}
	if groupFlushVolume(swapped, used, ctx.FlushMatrices) > groupFlushVolume(maps, used, ctx.FlushMatrices) {
		return
	}
	copy(maps, swapped)
}

func capacityAt(ctx *GroupContext, e int) int {
	if e < len(ctx.MaxGroupSize) && ctx.MaxGroupSize[e] > 0 {
		return ctx.MaxGroupSize[e]
	}
	return 16
}

// selectBestGroupForAMS picks, among near-optimal candidate groupings, the
// one whose assignments best match the colors already loaded in the
// machine's slots, to avoid forcing a physical swap when a visually
// indistinguishable alternative exists. Candidates are ordered best-cost
// first; ties keep the earlier candidate.
func selectBestGroupForAMS(candidates [][]int, used []uint, usedColors []string, amsColors [][]string, threshold float64) []int {
	if len(candidates) == 0 {
		return nil
	}
	best := 0
	bestScore := -1
	for ci, cand := range candidates {
		score := 0
		for i, f := range used {
			if int(f) >= len(cand) || i >= len(usedColors) {
				continue
			}
			e := cand[f]
			if e < 0 || e >= len(amsColors) {
				continue
			}
			want, err := colorful.Hex(normalizeHex(usedColors[i]))
			if err != nil {
				continue
			}
			for _, slot := range amsColors[e] {
				have, err := colorful.Hex(normalizeHex(slot))
				if err != nil {
					continue
				}
				if want.DistanceCIEDE2000(have) < threshold {
					score++
					break
				}
			}
		}
		if score > bestScore {
			bestScore = score
			best = ci
		}
	}
	return candidates[best]
}

// normalizeHex accepts "RRGGBB" or "#RRGGBB" profile colors.
func normalizeHex(s string) string {
	if len(s) > 0 && s[0] != '#' {
		return "#" + s
	}
	return s
}

// ChainSequencer is the default per-layer sequencer: each extruder's
// filaments form a greedy minimum-flush chain continuing from the filament
// last loaded on that extruder, and the fixed-order hook wins outright.
type ChainSequencer struct{}

// NewChainSequencer returns the default sequencer.
func NewChainSequencer() *ChainSequencer {
	return &ChainSequencer{}
}

// Sequence implements Sequencer.
func (s *ChainSequencer) Sequence(filamentMaps []int, layerFilaments [][]uint, matrices []FlushMatrix, customSeq CustomSeqFunc) [][]uint {
	out := make([][]uint, len(layerFilaments))
	lastOnExtruder := make(map[int]uint)

	for li, layer := range layerFilaments {
		if len(layer) == 0 {
			out[li] = nil
			continue
		}

		if customSeq != nil {
			if fixed, ok := customSeq(li); ok {
				seq := applyFixedOrder(layer, fixed)
				out[li] = seq
				recordLast(filamentMaps, seq, lastOnExtruder)
				continue
			}
		}

		// Bucket the layer by extruder, keeping the buckets in order of
		// their first appearance so the layer's leading filament stays
		// first.
		var extruderOrder []int
		buckets := make(map[int][]uint)
		for _, f := range layer {
			e := mapAt(filamentMaps, f)
			if _, ok := buckets[e]; !ok {
				extruderOrder = append(extruderOrder, e)
			}
			buckets[e] = append(buckets[e], f)
		}

		var seq []uint
		for _, e := range extruderOrder {
			var matrix FlushMatrix
			if e >= 0 && e < len(matrices) {
				matrix = matrices[e]
			}
			seq = append(seq, chainOrder(buckets[e], lastOnExtruder, e, matrix)...)
		}
		out[li] = seq
		recordLast(filamentMaps, seq, lastOnExtruder)
	}
	return out
}

// applyFixedOrder filters the fixed order to the filaments present and
// appends the leftovers in their existing order.
func applyFixedOrder(layer []uint, fixed []uint) []uint {
	seq := make([]uint, 0, len(layer))
	taken := make(map[uint]bool, len(layer))
	present := make(map[uint]bool, len(layer))
	for _, f := range layer {
		present[f] = true
	}
	for _, f := range fixed {
		if present[f] && !taken[f] {
			seq = append(seq, f)
			taken[f] = true
		}
	}
	for _, f := range layer {
		if !taken[f] {
			seq = append(seq, f)
			taken[f] = true
		}
	}
	return seq
}

// chainOrder greedily chains one extruder's filaments, starting from the
// filament already loaded when it is present on the layer.
func chainOrder(group []uint, lastOnExtruder map[int]uint, e int, matrix FlushMatrix) []uint {
	if len(group) <= 1 {
		return group
	}
	remaining := append([]uint(nil), group...)
	seq := make([]uint, 0, len(group))

	if last, ok := lastOnExtruder[e]; ok {
		for i, f := range remaining {
			if f == last {
				seq = append(seq, f)
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
	}
	if len(seq) == 0 {
		seq = append(seq, remaining[0])
		remaining = remaining[1:]
	}

	for len(remaining) > 0 {
		tail := seq[len(seq)-1]
		bestIdx := 0
		bestCost := matrix.at(tail, remaining[0])
		for i := 1; i < len(remaining); i++ {
			if c := matrix.at(tail, remaining[i]); c < bestCost {
				bestCost = c
				bestIdx = i
			}
		}
		seq = append(seq, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return seq
}

func recordLast(filamentMaps []int, seq []uint, lastOnExtruder map[int]uint) {
	for _, f := range seq {
		lastOnExtruder[mapAt(filamentMaps, f)] = f
	}
}

func mapAt(filamentMaps []int, f uint) int {
	if int(f) < len(filamentMaps) {
		return filamentMaps[f]
	}
	return 0
}
