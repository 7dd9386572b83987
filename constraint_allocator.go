package broadphase

import (
	"fmt"
)

// ConstraintAllocator owns the mid-phases of every tracked pair and the constraints
// activated by the current step.
//
// During a detection step the persistent pair map is only read. Each context records the
// mid-phases it creates in its own ContextAllocator, and ProcessNewItems moves them into
// the map once the contexts are done.
type ConstraintAllocator struct {
	Factory MidPhaseFactory

	persistence int
	pairs       map[PairKey]*pairEntry
	contexts    []*ContextAllocator
	active      []*CollisionConstraint
	stamp       uint
}

// NewConstraintAllocator returns an allocator keeping unvisited mid-phases for
// persistence steps. A nil factory uses NewArbiterMidPhase.
func NewConstraintAllocator(persistence int, factory MidPhaseFactory) (*ConstraintAllocator, error) {
	if persistence < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPersistence, persistence)
	}
	if factory == nil {
		factory = NewArbiterMidPhase
	}
	return &ConstraintAllocator{
		Factory:     factory,
		persistence: persistence,
		pairs:       make(map[PairKey]*pairEntry),
	}, nil
}

// Stamp returns the current detection step.
func (a *ConstraintAllocator) Stamp() uint {
	return a.stamp
}

func (a *ConstraintAllocator) Persistence() int {
	return a.persistence
}

// SetPersistence changes how many steps an unvisited mid-phase is kept.
func (a *ConstraintAllocator) SetPersistence(persistence int) error {
	if persistence < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPersistence, persistence)
	}
	a.persistence = persistence
	return nil
}

// BeginDetect starts a detection step with numContexts contexts.
func (a *ConstraintAllocator) BeginDetect(numContexts int) {
	a.stamp++
	a.active = a.active[:0]
	for len(a.contexts) < numContexts {
		a.contexts = append(a.contexts, &ContextAllocator{
			owner:    a,
			index:    len(a.contexts),
			newPairs: make(map[PairKey]*pairEntry),
		})
	}
	a.contexts = a.contexts[:numContexts]
	for _, c := range a.contexts {
		c.reset()
	}
}

// Context returns the allocator of context i.
func (a *ConstraintAllocator) Context(i int) *ContextAllocator {
	return a.contexts[i]
}

func (a *ConstraintAllocator) NumContexts() int {
	return len(a.contexts)
}

// ProcessNewItems moves the mid-phases created by the contexts into the persistent map,
// in context order. It returns the number added. A pair created by two contexts keeps
// the first one.
func (a *ConstraintAllocator) ProcessNewItems() int {
	added := 0
	for _, c := range a.contexts {
		for _, key := range c.newKeys {
			if _, ok := a.pairs[key]; ok {
				continue
			}
			a.pairs[key] = c.newPairs[key]
			added++
		}
		c.clearNewItems()
	}
	return added
}

// AddActiveConstraints takes ownership of the constraints gathered this step.
func (a *ConstraintAllocator) AddActiveConstraints(constraints []*CollisionConstraint) {
	a.active = append(a.active, constraints...)
}

// ActiveConstraints returns the constraints gathered this step.
func (a *ConstraintAllocator) ActiveConstraints() []*CollisionConstraint {
	return a.active
}

// EndDetect prunes the mid-phases that were not visited for more than the persistence
// window and returns how many were removed.
func (a *ConstraintAllocator) EndDetect() int {
	pruned := 0
	for key, e := range a.pairs {
		if !pairCacheFilter(e, a.stamp, a.persistence) {
			delete(a.pairs, key)
			pruned++
		}
	}
	return pruned
}

// RemoveParticle drops every mid-phase involving p.
func (a *ConstraintAllocator) RemoveParticle(p Particle) int {
	removed := 0
	for key, e := range a.pairs {
		if !cachedPairFilter(e, p) {
			delete(a.pairs, key)
			removed++
		}
	}
	a.active = removeConstraintsOf(a.active, p)
	return removed
}

func removeConstraintsOf(list []*CollisionConstraint, p Particle) []*CollisionConstraint {
	out := list[:0]
	for _, c := range list {
		if c.Particle0.ID() == p.ID() || c.Particle1.ID() == p.ID() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// NumMidPhases returns the number of tracked pairs.
func (a *ConstraintAllocator) NumMidPhases() int {
	return len(a.pairs)
}

// MidPhase returns the mid-phase of the unordered pair, if tracked.
func (a *ConstraintAllocator) MidPhase(p0, p1 Particle) (MidPhase, bool) {
	e, ok := a.pairs[MakePairKey(p0, p1)]
	if !ok {
		return nil, false
	}
	return e.mp, true
}

// Each calls f for every tracked mid-phase.
func (a *ConstraintAllocator) Each(f func(key PairKey, mp MidPhase)) {
	for key, e := range a.pairs {
		f(key, e.mp)
	}
}

// ContextAllocator is the part of a ConstraintAllocator owned by one context.
type ContextAllocator struct {
	owner *ConstraintAllocator
	index int

	newPairs       map[PairKey]*pairEntry
	newKeys        []PairKey
	newConstraints []*CollisionConstraint
	buffer         ContactBuffer
}

func (c *ContextAllocator) reset() {
	c.clearNewItems()
	c.newConstraints = c.newConstraints[:0]
}

func (c *ContextAllocator) clearNewItems() {
	clear(c.newPairs)
	c.newKeys = c.newKeys[:0]
}

// GetMidPhase returns the mid-phase of the pair, creating it if neither a previous step
// nor this context tracked it yet. It marks the pair as visited at ctx.Stamp.
func (c *ContextAllocator) GetMidPhase(p0, p1, search Particle, ctx *CollisionContext) MidPhase {
	key := MakePairKey(p0, p1)
	if e, ok := c.owner.pairs[key]; ok {
		e.stamp = ctx.Stamp
		return e.mp
	}
	if e, ok := c.newPairs[key]; ok {
		e.stamp = ctx.Stamp
		return e.mp
	}
	e := &pairEntry{
		mp:    c.owner.Factory(p0, p1, search),
		stamp: ctx.Stamp,
	}
	c.newPairs[key] = e
	c.newKeys = append(c.newKeys, key)
	return e.mp
}

// NumNewMidPhases returns the mid-phases this context created since BeginDetect.
func (c *ContextAllocator) NumNewMidPhases() int {
	return len(c.newKeys)
}

// ActivateConstraint records a constraint produced this step.
func (c *ContextAllocator) ActivateConstraint(con *CollisionConstraint) {
	c.newConstraints = append(c.newConstraints, con)
}

// NewConstraints returns the constraints activated through this context.
func (c *ContextAllocator) NewConstraints() []*CollisionConstraint {
	return c.newConstraints
}

func (c *ContextAllocator) Buffer() *ContactBuffer {
	return &c.buffer
}
