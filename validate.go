package broadphase

import (
	"fmt"
)

// validateOverlaps panics if an admitted pair is held twice, by two contexts or by one.
// Such a pair would get two mid-phases created concurrently.
func (bp *BroadPhase) validateOverlaps() {
	seen := make(map[PairKey]int)
	for _, c := range bp.Contexts() {
		for _, o := range c.Overlaps {
			if !o.CollisionsEnabled {
				continue
			}
			key := o.Key()
			prev, ok := seen[key]
			if !ok {
				seen[key] = c.Index
				continue
			}
			bp.logger.Crit().
				Int("particle_a", int(key.A)).
				Int("particle_b", int(key.B)).
				Int("context", c.Index).
				Int("previous_context", prev).
				Log("overlap produced twice")
			panic(fmt.Sprintf("broadphase: pair {%d, %d} produced by contexts %d and %d", key.A, key.B, prev, c.Index))
		}
	}
}
