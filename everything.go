package broadphase

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	pooledBufferSize int     = 1024
	infinity         float64 = math.MaxFloat64
	magicEpsilon     float64 = 1e-5

	// MaxContactsPerPair is the most contacts a single shape pair can report.
	MaxContactsPerPair = 4
)

// Arbiter states
const (
	// Arbiter was created this step and has not yet produced a contact.
	ArbiterStateFirstCollision = iota
	// Arbiter has been touched by the broad-phase this step.
	ArbiterStateNormal
	// Arbiter was not visited this step. The allocator keeps it for up to
	// ConstraintAllocator.Persistence more steps.
	ArbiterStateCached
	// Arbiter is invalid because one of its bodies was removed.
	ArbiterStateInvalidated
)

const (
	// Value for group signifying that a shape is in no group.
	NoGroup uint = 0
	// Value for Shape layers signifying that a shape is in every layer.
	AllCategories uint = ^uint(0)
)

// ShapeFilterAll is s collision filter value for a shape that will collide with
// anything except ShapeFilterNone.
var ShapeFilterAll = ShapeFilter{NoGroup, AllCategories, AllCategories}

// ShapeFilterNone is a collision filter value for a shape that does not collide
// with anything.
var ShapeFilterNone = ShapeFilter{NoGroup, ^AllCategories, ^AllCategories}

// Contact is a single contact point between two shapes.
type Contact struct {
	// P0 and P1 are the deepest points of each shape, in world space.
	P0, P1 mgl64.Vec3
	// Depth is the penetration depth, negative while separated (within the cull distance).
	Depth float64
	// Age counts consecutive steps this contact was matched by feature hash.
	Age int

	hash HashValue
}

// CollisionInfo collision info struct
type CollisionInfo struct {
	a, b  *Shape
	n     mgl64.Vec3
	count int
	arr   []Contact
}

// Count returns the number of contacts pushed so far.
func (info *CollisionInfo) Count() int {
	return info.count
}

// Normal points from shape a to shape b.
func (info *CollisionInfo) Normal() mgl64.Vec3 {
	return info.n
}

func (info *CollisionInfo) PushContact(p0, p1 mgl64.Vec3, depth float64, hash HashValue) {
	if info.count >= len(info.arr) {
		return
	}
	con := &info.arr[info.count]
	con.P0 = p0
	con.P1 = p1
	con.Depth = depth
	con.Age = 0
	con.hash = hash

	info.count++
}

// ShapeFilter is fast collision filtering type that is used to determine if two objects collide before calling collision or query callbacks.
type ShapeFilter struct {
	// Two objects with the same non-zero group value do not collide.
	// This is generally used to group objects in a composite object together to disable self collisions.
	Group uint
	// A bitmask of user definable categories that this object belongs to.
	// The category/mask combinations of both objects in a collision must agree for a collision to occur.
	Categories uint
	// A bitmask of user definable category types that this object object collides with.
	// The category/mask combinations of both objects in a collision must agree for a collision to occur.
	Mask uint
}

// Reject checks whether two ShapeFilter objects should be considered incompatible.
// It returns true if the filters should be rejected based on the following conditions:
// - If both filters belong to the same group (and the group is not 0).
// - If the category/mask combination of either filter does not match the other.
//
// Returns true if the filters are considered incompatible, otherwise false.
func (sf ShapeFilter) Reject(other ShapeFilter) bool {
	return (sf.Group != 0 && sf.Group == other.Group) ||
		(sf.Categories&other.Mask) == 0 ||
		(other.Categories&sf.Mask) == 0
}

// DebugInfo returns info of space
func DebugInfo(space *Space) string {
	stats := space.Stats()
	points := 0
	for _, c := range space.constraints {
		points += len(c.Contacts)
	}
	return fmt.Sprintf(`Bodies: %d - Broad-phase pairs: %d - Mid-phases: %d
Constraints: %d - Contact Points: %d - Contexts: %d`,
		len(space.bodies), stats.NumBroadPhasePairs, stats.NumMidPhases,
		len(space.constraints), points, stats.NumActiveContexts)
}

func clamp(f, min, max float64) float64 {
	if f > min {
		return math.Min(f, max)
	} else {
		return math.Min(min, max)
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
