// Package geometry converts form-field rectangles between document space
// (PDF units, origin bottom-left) and screen space (pixels, origin top-left).
package geometry

import (
	"fmt"
	"math"
)

// Viewport describes how a single page is currently rendered.
// Width and Height are the unscaled page dimensions in document units.
// Rotation is in degrees and only multiples of 90 are meaningful;
// any other value is treated as 0.
type Viewport struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Scale    float64 `json:"scale"`
	Rotation int     `json:"rotation"`
}

// Validate checks that the viewport can be used for coordinate mapping
func (v Viewport) Validate() error {
	if v.Scale <= 0 {
		return fmt.Errorf("viewport scale must be positive, got %g", v.Scale)
	}
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("viewport dimensions must be positive, got %gx%g", v.Width, v.Height)
	}
	return nil
}

// ScreenSize returns the pixel dimensions of the rendered page.
// Odd multiples of 90 degrees swap width and height.
func (v Viewport) ScreenSize() (width, height float64) {
	if rotationQuadrant(v.Rotation)%2 == 1 {
		return v.Height * v.Scale, v.Width * v.Scale
	}
	return v.Width * v.Scale, v.Height * v.Scale
}

// DocRect is a rectangle in document space. The source data does not
// guarantee corner ordering, so X1>X2 or Y1>Y2 must be tolerated.
type DocRect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Normalized returns an equivalent rectangle with X1<=X2 and Y1<=Y2.
// Malformed corner pairs from the source are swapped rather than
// propagated as negative extents.
func (r DocRect) Normalized() DocRect {
	if r.X1 > r.X2 {
		r.X1, r.X2 = r.X2, r.X1
	}
	if r.Y1 > r.Y2 {
		r.Y1, r.Y2 = r.Y2, r.Y1
	}
	return r
}

// Width returns the horizontal extent of the normalized rectangle
func (r DocRect) Width() float64 {
	return math.Abs(r.X2 - r.X1)
}

// Height returns the vertical extent of the normalized rectangle
func (r DocRect) Height() float64 {
	return math.Abs(r.Y2 - r.Y1)
}

// Top returns the document-space Y of the visually highest edge.
// Document Y increases upward, so the top edge is the larger coordinate.
func (r DocRect) Top() float64 {
	return math.Max(r.Y1, r.Y2)
}

// Left returns the document-space X of the leftmost edge
func (r DocRect) Left() float64 {
	return math.Min(r.X1, r.X2)
}

// ScreenRect is a screen-space pixel box with origin top-left
type ScreenRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Matrix is a 2D affine transform in the PDF convention:
// x' = a*x + c*y + e, y' = b*x + d*y + f, stored as [a b c d e f].
type Matrix [6]float64

// Identity returns the identity transform
func Identity() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Multiply returns the composition m followed by o
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

// Transform applies the matrix to a point
func (m Matrix) Transform(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// Inverse returns the inverse transform, or an error for a singular matrix
func (m Matrix) Inverse() (Matrix, error) {
	det := m[0]*m[3] - m[1]*m[2]
	if math.Abs(det) < 1e-10 {
		return Matrix{}, fmt.Errorf("matrix is singular, determinant %g", det)
	}
	return Matrix{
		m[3] / det,
		-m[1] / det,
		-m[2] / det,
		m[0] / det,
		(m[2]*m[5] - m[3]*m[4]) / det,
		(m[1]*m[4] - m[0]*m[5]) / det,
	}, nil
}

// ViewportMatrix builds the document-to-screen transform for a viewport:
// scale, rotate by the viewport's 90-degree multiple, and flip the vertical
// axis so the bottom-left document origin lands on the top-left screen origin.
func ViewportMatrix(vp Viewport) Matrix {
	s := vp.Scale
	w := vp.Width * s
	h := vp.Height * s

	switch rotationQuadrant(vp.Rotation) {
	case 1: // 90 degrees clockwise
		return Matrix{0, s, s, 0, 0, 0}
	case 2: // 180 degrees
		return Matrix{-s, 0, 0, s, w, 0}
	case 3: // 270 degrees clockwise
		return Matrix{0, -s, -s, 0, h, w}
	default:
		return Matrix{s, 0, 0, -s, 0, h}
	}
}

// ToScreenRect maps a document-space rectangle into screen pixels for the
// given viewport. Malformed input rectangles are normalized first, and the
// result always has non-negative width and height.
func ToScreenRect(rect DocRect, vp Viewport) ScreenRect {
	rect = rect.Normalized()
	m := ViewportMatrix(vp)

	x1, y1 := m.Transform(rect.X1, rect.Y1)
	x2, y2 := m.Transform(rect.X2, rect.Y2)

	return ScreenRect{
		X:      math.Min(x1, x2),
		Y:      math.Min(y1, y2),
		Width:  math.Abs(x2 - x1),
		Height: math.Abs(y2 - y1),
	}
}

// FromScreenRect maps a screen-space pixel box back into document space.
// It is the inverse of ToScreenRect up to floating-point tolerance.
func FromScreenRect(rect ScreenRect, vp Viewport) (DocRect, error) {
	m := ViewportMatrix(vp)
	inv, err := m.Inverse()
	if err != nil {
		return DocRect{}, fmt.Errorf("failed to invert viewport transform: %w", err)
	}

	x1, y1 := inv.Transform(rect.X, rect.Y)
	x2, y2 := inv.Transform(rect.X+rect.Width, rect.Y+rect.Height)

	return DocRect{X1: x1, Y1: y1, X2: x2, Y2: y2}.Normalized(), nil
}

// rotationQuadrant maps a rotation in degrees onto 0..3 quarter turns.
// Values that are not multiples of 90 fall back to no rotation.
func rotationQuadrant(rotation int) int {
	if rotation%90 != 0 {
		return 0
	}
	q := (rotation / 90) % 4
	if q < 0 {
		q += 4
	}
	return q
}
