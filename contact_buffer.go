package broadphase

const constraintsBufferSize = 256

// ContactBuffer is the per-context scratch space of the narrow-phase: a contact array
// that Collide writes into, and a slab that new constraints are carved from.
type ContactBuffer struct {
	contacts    [MaxContactsPerPair]Contact
	constraints []CollisionConstraint
}

// Scratch returns a zeroed contact slice of length n, valid until the next call.
func (c *ContactBuffer) Scratch(n int) []Contact {
	n = max(0, min(n, MaxContactsPerPair))
	c.contacts = [MaxContactsPerPair]Contact{}
	return c.contacts[:n]
}

// NewConstraint hands out a constraint from the slab, allocating a new slab when the current one is used up.
func (c *ContactBuffer) NewConstraint() *CollisionConstraint {
	if len(c.constraints) == 0 {
		c.constraints = make([]CollisionConstraint, constraintsBufferSize)
	}
	con := &c.constraints[0]
	c.constraints = c.constraints[1:]
	return con
}
