package broadphase

import (
	"github.com/go-gl/mathgl/mgl64"
)

type Sphere struct {
	*Shape
	c, transformC mgl64.Vec3
	radius        float64
}

func (sphere *Sphere) CacheData(position mgl64.Vec3) AABB {
	sphere.transformC = position.Add(sphere.c)
	return NewAABBForSphere(sphere.transformC, sphere.radius)
}

func (sphere *Sphere) Radius() float64 {
	return sphere.radius
}

// Center returns the world space center cached by the last Update.
func (sphere *Sphere) Center() mgl64.Vec3 {
	return sphere.transformC
}

func (sphere *Sphere) SetRadius(r float64) {
	sphere.Body.Activate()
	sphere.radius = r
}

// Offset returns the center of the sphere relative to its body.
func (sphere *Sphere) Offset() mgl64.Vec3 {
	return sphere.c
}

func (sphere *Sphere) SetOffset(offset mgl64.Vec3) {
	sphere.Body.Activate()
	sphere.c = offset
}
