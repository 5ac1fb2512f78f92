// Filament identity with an explicit "unassigned" state
//
// The legacy scheduler abused filament id 0 as an in-band "don't care"
// sentinel. Filament ids here are 0-based and the unassigned state is a
// distinct tag, so a real filament 0 stays unambiguous.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

import (
	"fmt"
	"sort"
)

// Filament is a tagged-optional 0-based filament id.
type Filament struct {
	id       uint
	assigned bool
}

// Unassigned is the "resolve from context later" placeholder.
var Unassigned = Filament{}

// FilamentOf returns an assigned filament with the given 0-based id.
func FilamentOf(id uint) Filament {
	return Filament{id: id, assigned: true}
}

// FilamentOf1 converts a 1-based profile id. Zero maps to Unassigned.
func FilamentOf1(id int) Filament {
	if id <= 0 {
		return Unassigned
	}
	return Filament{id: uint(id - 1), assigned: true}
}

// ID returns the 0-based filament id. Only meaningful when assigned.
func (f Filament) ID() uint {
	return f.id
}

// Assigned reports whether the filament carries a real id.
func (f Filament) Assigned() bool {
	return f.assigned
}

// Is reports whether the filament is assigned with the given id.
func (f Filament) Is(id uint) bool {
	return f.assigned && f.id == id
}

// String implements fmt.Stringer.
func (f Filament) String() string {
	if !f.assigned {
		return "unassigned"
	}
	return fmt.Sprintf("F%d", f.id)
}

// filamentLess orders Unassigned first, then by id.
func filamentLess(a, b Filament) bool {
	if a.assigned != b.assigned {
		return !a.assigned
	}
	return a.id < b.id
}

// sortRemoveDuplicates sorts a filament list in place and drops duplicates.
func sortRemoveDuplicates(fs []Filament) []Filament {
	sort.Slice(fs, func(i, j int) bool { return filamentLess(fs[i], fs[j]) })
	out := fs[:0]
	for i, f := range fs {
		if i == 0 || fs[i-1] != f {
			out = append(out, f)
		}
	}
	return out
}

// filamentIDs extracts the ids of assigned filaments, in order.
func filamentIDs(fs []Filament) []uint {
	ids := make([]uint, 0, len(fs))
	for _, f := range fs {
		if f.assigned {
			ids = append(ids, f.id)
		}
	}
	return ids
}

// sortedUniqueIDs returns the sorted set of ids used across all layers.
func sortedUniqueIDs(layerFilaments [][]uint) []uint {
	seen := make(map[uint]struct{})
	var ids []uint
	for _, layer := range layerFilaments {
		for _, id := range layer {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
