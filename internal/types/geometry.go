// internal/types/geometry.go
package types

// Point is a 2D screen coordinate.
type Point struct {
	X int
	Y int
}

// Rect is an axis-aligned rectangle in screen coordinates.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// IsDegenerate reports whether the rectangle has no usable area.
// The popup anchor logic must never place against a degenerate rect.
func (r Rect) IsDegenerate() bool {
	return r.W <= 0 || r.H <= 0
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.X + r.W }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Y + r.H }

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}
