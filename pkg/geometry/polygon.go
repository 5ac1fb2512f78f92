// 2D polygon primitives for first-layer slice analysis
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Point is a 2D point in millimeters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polygon is a closed contour. The closing edge from the last vertex back
// to the first is implicit.
type Polygon []Point

// SignedArea returns the shoelace area; positive for counter-clockwise
// contours.
func (p Polygon) SignedArea() float64 {
	if len(p) < 3 {
		return 0
	}
	terms := make([]float64, len(p))
	for i := range p {
		j := (i + 1) % len(p)
		terms[i] = p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return 0.5 * floats.Sum(terms)
}

// Area returns the absolute enclosed area.
func (p Polygon) Area() float64 {
	return math.Abs(p.SignedArea())
}

// Perimeter returns the contour length.
func (p Polygon) Perimeter() float64 {
	if len(p) < 2 {
		return 0
	}
	lengths := make([]float64, len(p))
	for i := range p {
		j := (i + 1) % len(p)
		lengths[i] = math.Hypot(p[j].X-p[i].X, p[j].Y-p[i].Y)
	}
	return floats.Sum(lengths)
}

// ShrunkArea estimates the area remaining after eroding the contour inward
// by offset. Uses the first-order approximation A - offset*P + pi*offset^2,
// which is exact for convex contours and conservative otherwise.
func (p Polygon) ShrunkArea(offset float64) float64 {
	return p.Area() - offset*p.Perimeter() + math.Pi*offset*offset
}

// VanishesWhenShrunk reports whether eroding the contour inward by offset
// leaves no printable area.
func (p Polygon) VanishesWhenShrunk(offset float64) bool {
	return p.ShrunkArea(offset) <= 0
}
