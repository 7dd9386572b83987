package broadphase

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Draw flags
const (
	DrawShapes          = 1 << 0
	DrawBounds          = 1 << 1
	DrawCollisionPoints = 1 << 2
)

// 16 bytes
type FColor struct {
	R, G, B, A float32
}

type IDrawer interface {
	DrawSphere(center mgl64.Vec3, radius float64, outline, fill FColor, data any)
	DrawBox(bb AABB, outline, fill FColor, data any)
	DrawSegment(a, b mgl64.Vec3, fill FColor, data any)
	DrawDot(size float64, pos mgl64.Vec3, fill FColor, data any)

	Flags() uint
	OutlineColor() FColor
	ShapeColor(shape *Shape, data any) FColor
	BoundsColor(p Particle) FColor
	CollisionPointColor() FColor
	Data() any
}

// DrawShape draws shapes with the drawer implementation
func DrawShape(shape *Shape, drawer IDrawer) {
	data := drawer.Data()

	outline := drawer.OutlineColor()
	fill := drawer.ShapeColor(shape, data)

	switch class := shape.Class.(type) {
	case *Sphere:
		drawer.DrawSphere(class.transformC, class.radius, outline, fill, data)
	case *Box:
		drawer.DrawBox(class.Bounds(), outline, fill, data)
	default:
		panic(fmt.Sprintf("Implement me: %T", shape.Class))
	}
}

// DrawConstraint draws the contacts of a collision constraint, each as a segment
// between the two deepest points, with a dot on the first shape.
func DrawConstraint(c *CollisionConstraint, drawer IDrawer) {
	data := drawer.Data()
	color := drawer.CollisionPointColor()
	for _, con := range c.Contacts {
		drawer.DrawDot(5, con.P0, color, data)
		drawer.DrawSegment(con.P0, con.P1, color, data)
	}
}

// DrawSpace draws the bodies of space and the constraints of its last step, as
// selected by the drawer flags.
func DrawSpace(space *Space, drawer IDrawer) {
	flags := drawer.Flags()
	data := drawer.Data()

	for _, body := range space.bodies {
		if flags&DrawShapes != 0 {
			for _, shape := range body.shapes {
				DrawShape(shape, drawer)
			}
		}
		if flags&DrawBounds != 0 && body.HasBounds() {
			drawer.DrawBox(body.WorldSpaceInflatedBounds(), drawer.BoundsColor(body), FColor{}, data)
		}
	}

	if flags&DrawCollisionPoints != 0 {
		for _, c := range space.constraints {
			DrawConstraint(c, drawer)
		}
	}
}
