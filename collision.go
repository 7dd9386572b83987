package broadphase

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// HashValue identifies a contact feature or a shape pair.
type HashValue uint64

const hashCoef = 3344921057

func HashPair(a, b HashValue) HashValue {
	return a*hashCoef ^ b*hashCoef
}

// CollisionFunc fills info with the contacts between info.a and info.b. Shapes
// closer than cull are reported with a negative depth.
type CollisionFunc func(info *CollisionInfo, cull float64)

func SphereToSphere(info *CollisionInfo, cull float64) {
	s1 := info.a.Class.(*Sphere)
	s2 := info.b.Class.(*Sphere)

	mindist := s1.radius + s2.radius
	delta := s2.transformC.Sub(s1.transformC)
	distsq := delta.LenSqr()
	maxdist := mindist + cull

	if distsq < maxdist*maxdist {
		dist := math.Sqrt(distsq)
		if dist != 0 {
			info.n = delta.Mul(1.0 / dist)
		} else {
			info.n = mgl64.Vec3{0, 1, 0}
		}
		info.PushContact(
			s1.transformC.Add(info.n.Mul(s1.radius)),
			s2.transformC.Add(info.n.Mul(-s2.radius)),
			mindist-dist,
			0,
		)
	}
}

func SphereToBox(info *CollisionInfo, cull float64) {
	sphere := info.a.Class.(*Sphere)
	box := info.b.Class.(*Box)

	bb := box.Bounds()
	c := sphere.transformC
	closest := bb.ClampPoint(c)
	delta := c.Sub(closest)
	distsq := delta.LenSqr()

	if distsq > magicEpsilon*magicEpsilon {
		maxdist := sphere.radius + cull
		if distsq >= maxdist*maxdist {
			return
		}
		dist := math.Sqrt(distsq)
		// Normal points from the sphere towards the box.
		info.n = delta.Mul(-1.0 / dist)
		info.PushContact(c.Add(info.n.Mul(sphere.radius)), closest, sphere.radius-dist, 0)
		return
	}

	// Center inside the box: push out through the nearest face.
	axis, sign, depth := 0, 1.0, infinity
	for i := range 3 {
		if d := c[i] - bb.Min[i]; d < depth {
			axis, sign, depth = i, 1, d
		}
		if d := bb.Max[i] - c[i]; d < depth {
			axis, sign, depth = i, -1, d
		}
	}
	var n mgl64.Vec3
	n[axis] = sign
	info.n = n
	face := c
	if sign > 0 {
		face[axis] = bb.Min[axis]
	} else {
		face[axis] = bb.Max[axis]
	}
	info.PushContact(c.Add(n.Mul(sphere.radius)), face, depth+sphere.radius, HashValue(axis+1))
}

func BoxToBox(info *CollisionInfo, cull float64) {
	b1 := info.a.Class.(*Box)
	b2 := info.b.Class.(*Box)

	bb1 := b1.Bounds()
	bb2 := b2.Bounds()

	// The axis of least overlap is the separating (or minimum translation) axis.
	axis, overlap := 0, infinity
	for i := range 3 {
		o := math.Min(bb1.Max[i], bb2.Max[i]) - math.Max(bb1.Min[i], bb2.Min[i])
		if o < -cull {
			return
		}
		if o < overlap {
			axis, overlap = i, o
		}
	}

	var n mgl64.Vec3
	if b2.transformC[axis] >= b1.transformC[axis] {
		n[axis] = 1
	} else {
		n[axis] = -1
	}
	info.n = n

	// Contact at the center of the overlap region, projected onto each face.
	var mid mgl64.Vec3
	for i := range 3 {
		mid[i] = (math.Max(bb1.Min[i], bb2.Min[i]) + math.Min(bb1.Max[i], bb2.Max[i])) / 2
	}
	p0, p1 := mid, mid
	if n[axis] > 0 {
		p0[axis] = bb1.Max[axis]
		p1[axis] = bb2.Min[axis]
	} else {
		p0[axis] = bb1.Min[axis]
		p1[axis] = bb2.Max[axis]
	}
	info.PushContact(p0, p1, overlap, HashValue(axis+1))
}

func CollisionError(_ *CollisionInfo, _ float64) {
	panic("Shape types are not sorted")
}

var BuiltinCollisionFuncs = [ShapeTypeNum * ShapeTypeNum]CollisionFunc{
	SphereToSphere,
	CollisionError,
	SphereToBox,
	BoxToBox,
}

// Collide performs a collision between two shapes
func Collide(a, b *Shape, cull float64, contacts []Contact) CollisionInfo {
	info := CollisionInfo{
		arr: contacts,
	}

	// Make sure the shape types are in order.
	if a.Order() > b.Order() {
		info.a = b
		info.b = a
	} else {
		info.a = a
		info.b = b
	}

	BuiltinCollisionFuncs[info.a.Order()+info.b.Order()*ShapeTypeNum](&info, cull)
	return info
}

// ContactPoint is a contact between two shapes, ordered the way they were passed to ShapesCollideInfo.
type ContactPoint struct {
	PointA, PointB mgl64.Vec3
	Depth          float64
}

// ContactPointSet is the result of ShapesCollideInfo.
type ContactPointSet struct {
	Count  int
	Normal mgl64.Vec3
	Points [MaxContactsPerPair]ContactPoint
}

// ShapesCollideInfo returns contact information about two shapes.
func ShapesCollideInfo(a, b *Shape) ContactPointSet {
	contacts := make([]Contact, MaxContactsPerPair)
	info := Collide(a, b, 0, contacts)

	var set ContactPointSet
	set.Count = info.count

	// Collide may have swapped the contact order, flip the normal.
	swapped := a != info.a
	if swapped {
		set.Normal = info.n.Mul(-1)
	} else {
		set.Normal = info.n
	}

	for i := 0; i < info.count; i++ {
		p1 := contacts[i].P0
		p2 := contacts[i].P1

		if swapped {
			set.Points[i].PointA = p2
			set.Points[i].PointB = p1
		} else {
			set.Points[i].PointA = p1
			set.Points[i].PointB = p2
		}
		set.Points[i].Depth = contacts[i].Depth
	}

	return set
}
