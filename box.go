package broadphase

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Box is an axis aligned box shape. Bodies carry no orientation, so the box
// stays aligned with the world axes.
type Box struct {
	*Shape
	c, transformC mgl64.Vec3
	half          mgl64.Vec3
}

func (box *Box) CacheData(position mgl64.Vec3) AABB {
	box.transformC = position.Add(box.c)
	return NewAABBForExtents(box.transformC, box.half)
}

// HalfExtents returns the half sizes of the box.
func (box *Box) HalfExtents() mgl64.Vec3 {
	return box.half
}

func (box *Box) SetHalfExtents(half mgl64.Vec3) {
	box.Body.Activate()
	box.half = half
}

func (box *Box) Center() mgl64.Vec3 {
	return box.transformC
}

// Bounds returns the world space box, without any inflation.
func (box *Box) Bounds() AABB {
	return NewAABBForExtents(box.transformC, box.half)
}
