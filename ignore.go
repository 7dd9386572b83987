package broadphase

import "sync"

// IgnoreCollisionManager decides whether a pair must never collide. IsIgnored is
// called concurrently from every context.
type IgnoreCollisionManager interface {
	IsIgnored(p1, p2 Particle) bool
}

// IgnoreCollisions is a set of ignored unordered pairs.
type IgnoreCollisions struct {
	mu    sync.RWMutex
	pairs map[PairKey]int
}

func NewIgnoreCollisions() *IgnoreCollisions {
	return &IgnoreCollisions{pairs: make(map[PairKey]int)}
}

// Ignore adds the pair. Calls are counted, so each Ignore needs its own Unignore.
func (ic *IgnoreCollisions) Ignore(p1, p2 Particle) {
	ic.mu.Lock()
	ic.pairs[MakePairKey(p1, p2)]++
	ic.mu.Unlock()
}

func (ic *IgnoreCollisions) Unignore(p1, p2 Particle) {
	key := MakePairKey(p1, p2)
	ic.mu.Lock()
	defer ic.mu.Unlock()
	if n := ic.pairs[key]; n > 1 {
		ic.pairs[key] = n - 1
	} else {
		delete(ic.pairs, key)
	}
}

func (ic *IgnoreCollisions) IsIgnored(p1, p2 Particle) bool {
	if ic == nil {
		return false
	}
	ic.mu.RLock()
	_, ok := ic.pairs[MakePairKey(p1, p2)]
	ic.mu.RUnlock()
	return ok
}

// Len returns the number of ignored pairs.
func (ic *IgnoreCollisions) Len() int {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return len(ic.pairs)
}
