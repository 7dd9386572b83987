package broadphase

// MidPhase is the persistent object tracking one particle pair between the
// broad-phase and the narrow-phase. There is exactly one per unordered pair.
type MidPhase interface {
	// GenerateCollisions runs the narrow-phase for every shape pair and activates the
	// resulting constraints in ctx.
	GenerateCollisions(expansion, dt float64, ctx *CollisionContext)
	// CachePrefetch is called a few mid-phases ahead of GenerateCollisions, on the same
	// goroutine, to ready the state it is about to read.
	CachePrefetch()
	// Particle0 and Particle1 return nil once the pair was invalidated.
	Particle0() Particle
	Particle1() Particle
}

// MidPhaseFactory creates the mid-phase of a newly overlapping pair. p0 and p1 are in
// canonical order; search is the particle whose query found the pair.
type MidPhaseFactory func(p0, p1, search Particle) MidPhase

// NewArbiterMidPhase is the default MidPhaseFactory.
func NewArbiterMidPhase(p0, p1, search Particle) MidPhase {
	return new(Arbiter).Init(p0, p1, search)
}

// Arbiter tracks a pair of particles whose bounds overlap.
//
// It keeps one CollisionConstraint per colliding shape pair, so contacts can be
// matched against the previous step. It persists until the allocator prunes it.
type Arbiter struct {
	UserData any

	bodyA, bodyB Particle
	search       Particle
	state        int
	stamp        uint
	numA, numB   int
	constraints  []*CollisionConstraint // numA*numB slots, nil until the shape pair collides
}

// Init initializes and returns Arbiter
func (arbiter *Arbiter) Init(a, b, search Particle) *Arbiter {
	arbiter.UserData = nil
	arbiter.bodyA = a
	arbiter.bodyB = b
	arbiter.search = search
	arbiter.state = ArbiterStateFirstCollision
	arbiter.stamp = 0
	arbiter.numA = 0
	arbiter.numB = 0
	arbiter.constraints = nil
	return arbiter
}

func (arb *Arbiter) Particle0() Particle {
	return arb.bodyA
}

func (arb *Arbiter) Particle1() Particle {
	return arb.bodyB
}

// SearchParticle returns the particle whose spatial query created the arbiter.
func (arb *Arbiter) SearchParticle() Particle {
	return arb.search
}

func (arb *Arbiter) State() int {
	return arb.state
}

// Stamp returns the last step GenerateCollisions ran.
func (arb *Arbiter) Stamp() uint {
	return arb.stamp
}

func (arbiter *Arbiter) IsFirstContact() bool {
	return arbiter.state == ArbiterStateFirstCollision
}

// Count returns the number of contacts produced by the last step.
func (arb *Arbiter) Count() (n int) {
	for _, c := range arb.constraints {
		if c != nil && c.Stamp == arb.stamp {
			n += len(c.Contacts)
		}
	}
	return n
}

// Constraints returns the constraints produced by the last step.
func (arb *Arbiter) Constraints() []*CollisionConstraint {
	var out []*CollisionConstraint
	for _, c := range arb.constraints {
		if c != nil && c.Stamp == arb.stamp {
			out = append(out, c)
		}
	}
	return out
}

// CachePrefetch sizes the constraint slots to the current shape counts of both
// particles. Go has no prefetch intrinsic; this reads the shape lists early instead.
func (arb *Arbiter) CachePrefetch() {
	if arb.bodyA == nil || arb.bodyB == nil {
		return
	}
	arb.syncShapes(len(arb.bodyA.Shapes()), len(arb.bodyB.Shapes()))
}

// NumShapePairs returns the number of constraint slots, one per shape pair.
func (arb *Arbiter) NumShapePairs() int {
	return len(arb.constraints)
}

// syncShapes drops the constraint slots when shapes were attached or removed.
func (arb *Arbiter) syncShapes(numA, numB int) {
	if numA == arb.numA && numB == arb.numB && arb.constraints != nil {
		return
	}
	arb.numA = numA
	arb.numB = numB
	arb.constraints = make([]*CollisionConstraint, numA*numB)
}

// invalidate detaches the arbiter from its particles. The narrow-phase driver skips it from then on.
func (arb *Arbiter) invalidate() {
	arb.state = ArbiterStateInvalidated
	arb.bodyA = nil
	arb.bodyB = nil
	arb.search = nil
	arb.constraints = nil
}

// markCached flags an arbiter that was not visited this step.
func (arb *Arbiter) markCached() {
	if arb.state != ArbiterStateInvalidated {
		arb.state = ArbiterStateCached
	}
}

func (arb *Arbiter) constraintSlot(i, j int) **CollisionConstraint {
	return &arb.constraints[i*arb.numB+j]
}

func (arb *Arbiter) GenerateCollisions(expansion, dt float64, ctx *CollisionContext) {
	a, b := arb.bodyA, arb.bodyB
	if a == nil || b == nil {
		return
	}
	shapesA := a.Shapes()
	shapesB := b.Shapes()

	arb.syncShapes(len(shapesA), len(shapesB))

	maxContacts := ctx.Settings.MaxContactsPerPair
	if maxContacts <= 0 {
		maxContacts = MaxContactsPerPair
	}

	for i, sa := range shapesA {
		bbA := sa.BB.Inflate(expansion)
		for j, sb := range shapesB {
			if sa.Sensor || sb.Sensor || sa.Filter.Reject(sb.Filter) {
				continue
			}
			if !bbA.Intersects(sb.BB) {
				continue
			}

			info := Collide(sa, sb, ctx.Settings.CullDistance, ctx.Allocator.Buffer().Scratch(maxContacts))
			if info.count == 0 {
				continue
			}

			slot := arb.constraintSlot(i, j)
			if *slot == nil {
				c := ctx.Allocator.Buffer().NewConstraint()
				c.Particle0 = a
				c.Particle1 = b
				c.Shape0 = sa
				c.Shape1 = sb
				c.SortKey = MakeSortKey(a.ID(), b.ID(), i, j)
				*slot = c
			}
			c := *slot
			c.update(&info, info.a != sa, ctx.Stamp)
			ctx.Allocator.ActivateConstraint(c)
		}
	}

	// mark it as new if it's been cached
	if arb.stamp == 0 || arb.state == ArbiterStateCached {
		arb.state = ArbiterStateFirstCollision
	} else {
		arb.state = ArbiterStateNormal
	}
	arb.stamp = ctx.Stamp
}
