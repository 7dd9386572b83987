package broadphase

import (
	"github.com/go-gl/mathgl/mgl64"
)

// NewSphereShape returns a Sphere shape with a specified radius and offset.
//
// The shape is attached to the given body.
//
// Parameters:
//   - body: The body to which the shape will be attached.
//   - r: The radius of the sphere.
//   - offset: The offset of the sphere's center from the body's position.
func NewSphereShape(body *Body, r float64, offset mgl64.Vec3) *Shape {
	sphere := &Sphere{
		c:      offset,
		radius: r,
	}
	sphere.Shape = NewShape(sphere, body)
	body.AttachShape(sphere.Shape)
	return sphere.Shape
}

// NewBoxShape returns a Box shape with width 'w', height 'h' and depth 'd',
// centered on the body. The shape is attached to the body.
func NewBoxShape(body *Body, w, h, d float64) *Shape {
	return NewBoxShape2(body, mgl64.Vec3{w / 2, h / 2, d / 2}, mgl64.Vec3{})
}

// NewBoxShape2 returns a Box shape using half extents and an offset from the body position.
// The shape is attached to the body.
//
// Parameters:
//   - body: The body to which the shape will be attached.
//   - half: The half sizes of the box on each axis.
//   - offset: The offset of the box center from the body's position.
func NewBoxShape2(body *Body, half, offset mgl64.Vec3) *Shape {
	box := &Box{
		c:    offset,
		half: half,
	}
	box.Shape = NewShape(box, body)
	body.AttachShape(box.Shape)
	return box.Shape
}
