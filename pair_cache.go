package broadphase

// PairKey identifies an unordered particle pair. A <= B.
type PairKey struct {
	A, B uint64
}

func MakePairKey(p0, p1 Particle) PairKey {
	a, b := p0.ID(), p1.ID()
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

func (k PairKey) Hash() HashValue {
	return HashPair(HashValue(k.A), HashValue(k.B))
}

type pairEntry struct {
	mp    MidPhase
	stamp uint
}

// pairCacheFilter throws away old mid-phases. It returns false for entries to drop.
func pairCacheFilter(e *pairEntry, stamp uint, persistence int) bool {
	a := e.mp.Particle0()
	b := e.mp.Particle1()
	if a == nil || b == nil {
		return false
	}

	// Preserve mid-phases of resting pairs. Nothing visits them until one side wakes up.
	if (a.IsStatic() || a.IsSleeping()) && (b.IsStatic() || b.IsSleeping()) {
		return true
	}

	ticks := stamp - e.stamp
	if ticks >= 1 {
		if arb, ok := e.mp.(*Arbiter); ok {
			arb.markCached()
		}
	}

	return ticks <= uint(persistence)
}

// cachedPairFilter returns false for entries referencing p, invalidating their arbiters.
func cachedPairFilter(e *pairEntry, p Particle) bool {
	a := e.mp.Particle0()
	b := e.mp.Particle1()
	if (a != nil && a.ID() == p.ID()) || (b != nil && b.ID() == p.ID()) {
		if arb, ok := e.mp.(*Arbiter); ok {
			arb.invalidate()
		}
		return false
	}
	return true
}
