package broadphase

import (
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/slices"
)

// BodyType for bodies; Dynamic, Kinematic or Static
type BodyType uint8

const (
	Dynamic   BodyType = 0
	Kinematic BodyType = 1
	Static    BodyType = 2
)

func (t BodyType) String() string {
	switch t {
	case Dynamic:
		return "dynamic"
	case Kinematic:
		return "kinematic"
	case Static:
		return "static"
	}
	return fmt.Sprintf("BodyType(%d)", uint8(t))
}

var bodyCur atomic.Uint64

// Particle is the handle the broad-phase sees for a simulated body.
//
// Particles are owned by the caller. The broad-phase only reads them, and only
// between the start of ProduceOverlaps and the end of GatherConstraints.
type Particle interface {
	// ID is unique for the lifetime of the process.
	ID() uint64
	Type() BodyType
	IsDynamic() bool
	IsKinematic() bool
	IsStatic() bool
	IsSleeping() bool
	IsDisabled() bool
	IsMovingKinematic() bool
	OneWayInteraction() bool
	IsDesynced() bool
	HasBounds() bool
	WorldSpaceInflatedBounds() AABB
	Shapes() []*Shape
}

// BodyPositionFunc is rigid body position update function type.
type BodyPositionFunc func(body *Body, dt float64)

// Body is the concrete Particle used by Space.
type Body struct {
	// UserData is an object that this body is associated with.
	//
	// You can use this get a reference to your game object or controller object from within callbacks.
	UserData any
	Space    *Space

	id               uint64
	shapes           []*Shape
	bodyType         BodyType
	positionFunc     BodyPositionFunc
	position         mgl64.Vec3
	velocity         mgl64.Vec3
	bounds           AABB // world space, inflated by velocity and the detector expansion
	sleeping         bool
	sleepingIdleTime float64
	disabled         bool
	oneWay           bool
	desynced         bool
	unbounded        bool
}

var _ Particle = (*Body)(nil)

// String returns body id as string
func (body *Body) String() string {
	return fmt.Sprint("Body ", body.id, " (", body.bodyType, ")")
}

// NewBody allocates a dynamic body at the origin.
func NewBody() *Body {
	body := &Body{
		id:           bodyCur.Add(1),
		positionFunc: BodyUpdatePosition,
		bounds:       EmptyAABB,
	}
	return body
}

// NewStaticBody allocates and initializes a Body, and set it as a static body.
func NewStaticBody() *Body {
	body := NewBody()
	body.SetType(Static)
	return body
}

// NewKinematicBody allocates and initializes a Body, and set it as a kinematic body.
func NewKinematicBody() *Body {
	body := NewBody()
	body.SetType(Kinematic)
	return body
}

func (body *Body) ID() uint64 {
	return body.id
}

// Type returns the type of the body.
func (body *Body) Type() BodyType {
	return body.bodyType
}

// SetType changes the body type. Static and kinematic bodies lose their velocity.
func (body *Body) SetType(bt BodyType) {
	if body.bodyType == bt {
		return
	}
	if body.Space != nil && body.Space.IsLocked() {
		panic("broadphase: Space is locked")
	}

	body.bodyType = bt
	body.sleeping = false
	body.sleepingIdleTime = 0
	if bt == Static {
		body.velocity = mgl64.Vec3{}
	}
}

func (body *Body) IsDynamic() bool {
	return body.bodyType == Dynamic
}

func (body *Body) IsKinematic() bool {
	return body.bodyType == Kinematic
}

func (body *Body) IsStatic() bool {
	return body.bodyType == Static
}

// IsMovingKinematic returns true for a kinematic body with a non-zero velocity.
func (body *Body) IsMovingKinematic() bool {
	return body.bodyType == Kinematic && body.velocity.LenSqr() > 0
}

// IsSleeping returns true if the body is sleeping.
func (body *Body) IsSleeping() bool {
	return body.sleeping
}

// Sleep puts a dynamic body to sleep.
func (body *Body) Sleep() {
	if body.bodyType != Dynamic {
		return
	}
	body.sleeping = true
}

// Activate wakes up a sleeping or idle body.
func (body *Body) Activate() {
	if !(body != nil && body.bodyType == Dynamic) {
		return
	}
	body.sleepingIdleTime = 0
	body.sleeping = false
}

// IdleTime returns how long the body has been below the space's idle speed threshold.
func (body *Body) IdleTime() float64 {
	return body.sleepingIdleTime
}

// IsDisabled returns true if the body is excluded from collision detection.
func (body *Body) IsDisabled() bool {
	return body.disabled
}

// SetDisabled excludes the body from (or returns it to) collision detection.
func (body *Body) SetDisabled(disabled bool) {
	body.disabled = disabled
}

// OneWayInteraction returns true if the body pushes others without being pushed back.
func (body *Body) OneWayInteraction() bool {
	return body.oneWay
}

func (body *Body) SetOneWayInteraction(oneWay bool) {
	body.oneWay = oneWay
}

// IsDesynced returns true if the body diverged from the recorded run it is being resimulated against.
func (body *Body) IsDesynced() bool {
	return body.desynced
}

func (body *Body) SetDesynced(desynced bool) {
	body.desynced = desynced
}

// HasBounds returns false for bodies flagged unbounded, such as infinite planes.
func (body *Body) HasBounds() bool {
	return !body.unbounded
}

// SetUnbounded marks the body as overlapping everything.
func (body *Body) SetUnbounded(unbounded bool) {
	body.unbounded = unbounded
}

// WorldSpaceInflatedBounds returns the bounds cached by the last UpdateBounds call.
func (body *Body) WorldSpaceInflatedBounds() AABB {
	if body.unbounded {
		return InfiniteAABB
	}
	return body.bounds
}

// UpdateBounds recomputes the shapes' bounds at the current position, sweeps them by the
// distance travelled in dt and inflates the result by expansion.
func (body *Body) UpdateBounds(dt, expansion float64) AABB {
	bb := EmptyAABB
	for _, shape := range body.shapes {
		bb = bb.Merge(shape.Update(body.position))
	}
	if bb.IsEmpty() {
		bb = AABB{Min: body.position, Max: body.position}
	}
	if body.bodyType != Static {
		bb = bb.Sweep(body.velocity.Mul(dt))
	}
	body.bounds = bb.Inflate(expansion)
	return body.bounds
}

// Shapes returns the shapes attached to the body.
func (body *Body) Shapes() []*Shape {
	return body.shapes
}

// ShapeAtIndex returns shape at index attached to this body
func (body *Body) ShapeAtIndex(index int) *Shape {
	return body.shapes[index]
}

// AttachShape adds shape to the body
func (body *Body) AttachShape(shape *Shape) {
	shape.Body = body
	body.shapes = append(body.shapes, shape)
}

// RemoveShape detaches shape from the body.
func (body *Body) RemoveShape(shape *Shape) {
	body.shapes = slices.DeleteFunc(body.shapes, func(s *Shape) bool {
		return s == shape
	})
}

// Position returns the position of the body.
func (body *Body) Position() mgl64.Vec3 {
	return body.position
}

// SetPosition sets the position of the body.
func (body *Body) SetPosition(position mgl64.Vec3) {
	body.Activate()
	body.position = position
}

// Velocity returns the velocity of the body.
func (body *Body) Velocity() mgl64.Vec3 {
	return body.velocity
}

// SetVelocity sets the velocity of the body.
func (body *Body) SetVelocity(velocity mgl64.Vec3) {
	if body.bodyType == Static {
		return
	}
	body.Activate()
	body.velocity = velocity
}

func (body *Body) SetPositionUpdateFunc(f BodyPositionFunc) {
	body.positionFunc = f
}

// BodyUpdatePosition is the default position integration function.
func BodyUpdatePosition(body *Body, dt float64) {
	body.position = body.position.Add(body.velocity.Mul(dt))
}
