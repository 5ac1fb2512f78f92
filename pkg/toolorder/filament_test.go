// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolorder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilamentOf1(t *testing.T) {
	require.Equal(t, Unassigned, FilamentOf1(0))
	require.Equal(t, Unassigned, FilamentOf1(-3))
	require.Equal(t, FilamentOf(0), FilamentOf1(1))
	require.Equal(t, FilamentOf(4), FilamentOf1(5))
}

func TestFilamentIs(t *testing.T) {
	require.True(t, FilamentOf(0).Is(0))
	require.False(t, Unassigned.Is(0))
	require.False(t, FilamentOf(1).Is(0))
}

func TestFilamentString(t *testing.T) {
	require.Equal(t, "unassigned", Unassigned.String())
	require.Equal(t, "F3", FilamentOf(3).String())
}

func TestSortRemoveDuplicates(t *testing.T) {
	fs := []Filament{FilamentOf(2), Unassigned, FilamentOf(0), FilamentOf(2), Unassigned}
	got := sortRemoveDuplicates(fs)
	require.Equal(t, []Filament{Unassigned, FilamentOf(0), FilamentOf(2)}, got)
}

func TestBringToFront(t *testing.T) {
	fs := filaments(0, 1, 2, 3)
	bringToFront(fs, FilamentOf(2))
	require.Equal(t, filaments(2, 0, 1, 3), fs)

	// Absent target leaves the order untouched.
	bringToFront(fs, FilamentOf(9))
	require.Equal(t, filaments(2, 0, 1, 3), fs)

	// Already-first target is a no-op.
	bringToFront(fs, FilamentOf(2))
	require.Equal(t, filaments(2, 0, 1, 3), fs)
}

func TestSortedUniqueIDs(t *testing.T) {
	got := sortedUniqueIDs([][]uint{{3, 1}, {1, 0}, nil, {3}})
	require.Equal(t, []uint{0, 1, 3}, got)
}
