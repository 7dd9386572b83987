package broadphase

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned 3D bounding box.
type AABB struct {
	Min, Max mgl64.Vec3
}

// InfiniteAABB is the bounds reported by particles without finite bounds.
var InfiniteAABB = AABB{
	Min: mgl64.Vec3{-infinity, -infinity, -infinity},
	Max: mgl64.Vec3{infinity, infinity, infinity},
}

// EmptyAABB is an inverted box, the identity for Merge.
var EmptyAABB = AABB{
	Min: mgl64.Vec3{infinity, infinity, infinity},
	Max: mgl64.Vec3{-infinity, -infinity, -infinity},
}

// NewAABB is convenience constructor for AABB structs.
func NewAABB(min, max mgl64.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// NewAABBForExtents constructs an AABB centered on a point with the given extents (half sizes).
func NewAABBForExtents(c, half mgl64.Vec3) AABB {
	return AABB{
		Min: c.Sub(half),
		Max: c.Add(half),
	}
}

// NewAABBForSphere constructs an AABB for a sphere with the given position and radius.
func NewAABBForSphere(p mgl64.Vec3, r float64) AABB {
	return NewAABBForExtents(p, mgl64.Vec3{r, r, r})
}

func (bb AABB) String() string {
	return fmt.Sprintf("%v %v %v %v %v %v", bb.Min[0], bb.Min[1], bb.Min[2], bb.Max[0], bb.Max[1], bb.Max[2])
}

// Intersects returns true if a and b intersect.
func (bb AABB) Intersects(b AABB) bool {
	return bb.Min[0] <= b.Max[0] && b.Min[0] <= bb.Max[0] &&
		bb.Min[1] <= b.Max[1] && b.Min[1] <= bb.Max[1] &&
		bb.Min[2] <= b.Max[2] && b.Min[2] <= bb.Max[2]
}

// Contains returns true if other lies completely within bb.
func (bb AABB) Contains(other AABB) bool {
	return bb.Min[0] <= other.Min[0] && bb.Max[0] >= other.Max[0] &&
		bb.Min[1] <= other.Min[1] && bb.Max[1] >= other.Max[1] &&
		bb.Min[2] <= other.Min[2] && bb.Max[2] >= other.Max[2]
}

// ContainsPoint returns true if bb contains p.
func (bb AABB) ContainsPoint(p mgl64.Vec3) bool {
	return bb.Min[0] <= p[0] && bb.Max[0] >= p[0] &&
		bb.Min[1] <= p[1] && bb.Max[1] >= p[1] &&
		bb.Min[2] <= p[2] && bb.Max[2] >= p[2]
}

// IsEmpty returns true if any axis of bb is inverted.
func (bb AABB) IsEmpty() bool {
	return bb.Min[0] > bb.Max[0] || bb.Min[1] > bb.Max[1] || bb.Min[2] > bb.Max[2]
}

// Merge returns a bounding box that holds both bounding boxes.
func (bb AABB) Merge(b AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(bb.Min[0], b.Min[0]), math.Min(bb.Min[1], b.Min[1]), math.Min(bb.Min[2], b.Min[2])},
		Max: mgl64.Vec3{math.Max(bb.Max[0], b.Max[0]), math.Max(bb.Max[1], b.Max[1]), math.Max(bb.Max[2], b.Max[2])},
	}
}

// Expand returns a bounding box that holds both bb and p.
func (bb AABB) Expand(p mgl64.Vec3) AABB {
	return bb.Merge(AABB{Min: p, Max: p})
}

// Inflate grows every face of bb outwards by d.
func (bb AABB) Inflate(d float64) AABB {
	e := mgl64.Vec3{d, d, d}
	return AABB{Min: bb.Min.Sub(e), Max: bb.Max.Add(e)}
}

// Sweep returns the union of bb and bb offset by delta.
func (bb AABB) Sweep(delta mgl64.Vec3) AABB {
	return bb.Merge(bb.Offset(delta))
}

// Offset returns a bounding box offseted by v.
func (bb AABB) Offset(v mgl64.Vec3) AABB {
	return AABB{Min: bb.Min.Add(v), Max: bb.Max.Add(v)}
}

// Center returns the center of a bounding box.
func (bb AABB) Center() mgl64.Vec3 {
	return bb.Min.Add(bb.Max).Mul(0.5)
}

// Extents returns the half sizes of bb.
func (bb AABB) Extents() mgl64.Vec3 {
	return bb.Max.Sub(bb.Min).Mul(0.5)
}

// SurfaceArea returns the surface area of the bounding box.
func (bb AABB) SurfaceArea() float64 {
	d := bb.Max.Sub(bb.Min)
	return 2 * (d[0]*d[1] + d[1]*d[2] + d[2]*d[0])
}

// MergedArea merges a and b and returns the surface area of the merged bounding box.
func (bb AABB) MergedArea(b AABB) float64 {
	return bb.Merge(b).SurfaceArea()
}

// Proximity is the Manhattan distance between the doubled centers of a and b.
func (bb AABB) Proximity(b AABB) float64 {
	return math.Abs(bb.Min[0]+bb.Max[0]-b.Min[0]-b.Max[0]) +
		math.Abs(bb.Min[1]+bb.Max[1]-b.Min[1]-b.Max[1]) +
		math.Abs(bb.Min[2]+bb.Max[2]-b.Min[2]-b.Max[2])
}

// ClampPoint clamps a point to bounding box.
func (bb AABB) ClampPoint(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		clamp(p[0], bb.Min[0], bb.Max[0]),
		clamp(p[1], bb.Min[1], bb.Max[1]),
		clamp(p[2], bb.Min[2], bb.Max[2]),
	}
}
