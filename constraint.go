package broadphase

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SortKey orders collision constraints in deterministic mode. Keys compare
// lexicographically: Hi, then Lo, then Shapes.
type SortKey struct {
	// Hi and Lo are the lower and higher particle ids.
	Hi, Lo uint64
	// Shapes packs the shape index on the Hi particle above the one on the Lo particle.
	Shapes uint64
}

// MakeSortKey builds the key of the constraint between shape index s0 of the particle
// with id0 and shape index s1 of the particle with id1. The key does not depend on
// which particle is passed first. Shape indices must fit in 32 bits.
func MakeSortKey(id0, id1 uint64, s0, s1 int) SortKey {
	if s0 < 0 || s1 < 0 || uint64(s0) > math.MaxUint32 || uint64(s1) > math.MaxUint32 {
		panic(fmt.Sprintf("broadphase: shape index out of range: %d, %d", s0, s1))
	}
	if id1 < id0 {
		id0, id1 = id1, id0
		s0, s1 = s1, s0
	}
	return SortKey{
		Hi:     id0,
		Lo:     id1,
		Shapes: uint64(s0)<<32 | uint64(s1),
	}
}

func (k SortKey) Compare(o SortKey) int {
	switch {
	case k.Hi < o.Hi:
		return -1
	case k.Hi > o.Hi:
		return 1
	case k.Lo < o.Lo:
		return -1
	case k.Lo > o.Lo:
		return 1
	case k.Shapes < o.Shapes:
		return -1
	case k.Shapes > o.Shapes:
		return 1
	}
	return 0
}

func (k SortKey) Less(o SortKey) bool {
	return k.Compare(o) < 0
}

func (k SortKey) String() string {
	return fmt.Sprintf("%016x:%016x:%016x", k.Hi, k.Lo, k.Shapes)
}

// CollisionConstraint is the narrow-phase output for one shape pair. It is owned by
// its mid-phase and persists while the pair keeps overlapping.
type CollisionConstraint struct {
	Particle0, Particle1 Particle
	Shape0, Shape1       *Shape
	// Normal points from Shape0 towards Shape1.
	Normal   mgl64.Vec3
	Contacts []Contact
	SortKey  SortKey
	// Stamp is the detection step that last produced contacts.
	Stamp uint

	contacts [MaxContactsPerPair]Contact
}

// NumContacts returns the number of contacts found by the last update.
func (c *CollisionConstraint) NumContacts() int {
	return len(c.Contacts)
}

// update copies the contacts from info. Contacts whose feature hash matches a contact of
// the previous update inherit its age.
func (c *CollisionConstraint) update(info *CollisionInfo, swapped bool, stamp uint) {
	var next [MaxContactsPerPair]Contact
	n := info.count
	for i := 0; i < n; i++ {
		con := info.arr[i]
		if swapped {
			con.P0, con.P1 = con.P1, con.P0
		}
		for _, old := range c.Contacts {
			if old.hash == con.hash {
				con.Age = old.Age + 1
				break
			}
		}
		next[i] = con
	}
	c.contacts = next
	c.Contacts = c.contacts[:n]
	if swapped {
		c.Normal = info.n.Mul(-1)
	} else {
		c.Normal = info.n
	}
	c.Stamp = stamp
}

func (c *CollisionConstraint) String() string {
	return fmt.Sprintf("constraint %v: %d contacts", c.SortKey, len(c.Contacts))
}
