package broadphase

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// IShape is implemented by every concrete shape class.
type IShape interface {
	// CacheData moves the shape to the body position and returns the new world bounds.
	CacheData(position mgl64.Vec3) AABB
}

const (
	ShapeTypeNum = 2
)

type Shape struct {
	Class    IShape
	Body     *Body
	UserData any
	Filter   ShapeFilter
	// Sensors are tracked by the broad-phase but never generate contacts.
	Sensor bool
	BB     AABB
}

func NewShape(class IShape, body *Body) *Shape {
	return &Shape{
		Class: class,
		Body:  body,
		Filter: ShapeFilter{
			Group:      NoGroup,
			Categories: AllCategories,
			Mask:       AllCategories,
		},
	}
}

func (s Shape) String() string {
	return fmt.Sprintf("%T", s.Class)
}

func (s *Shape) Order() int {
	switch s.Class.(type) {
	case *Sphere:
		return 0
	case *Box:
		return 1
	default:
		return 2
	}
}

func (sh *Shape) SetShapeFilter(filter ShapeFilter) {
	sh.Body.Activate()
	sh.Filter = filter
}

// Index returns the position of the shape in its body's shape list, or -1.
func (sh *Shape) Index() int {
	if sh.Body == nil {
		return -1
	}
	for i, s := range sh.Body.shapes {
		if s == sh {
			return i
		}
	}
	return -1
}

func (sh *Shape) CacheBB() AABB {
	return sh.Update(sh.Body.position)
}

func (sh *Shape) Update(position mgl64.Vec3) AABB {
	sh.BB = sh.Class.CacheData(position)
	return sh.BB
}
