package broadphase

// Overlap is a candidate pair found by a spatial query. The admission filter sets
// CollisionsEnabled and reorders the particles canonically.
type Overlap struct {
	ParticleA, ParticleB Particle
	// SearchParticleIndex is the view index of the particle whose query found the pair.
	SearchParticleIndex int
	CollisionsEnabled   bool
}

// Key returns the unordered pair key of the overlap.
func (o Overlap) Key() PairKey {
	return MakePairKey(o.ParticleA, o.ParticleB)
}

// produceBatch queries the index for the particles view[begin:end] and appends the
// raw candidates to ctx.
func produceBatch(ctx *Context, view ParticleView, begin, end int, query spatialQuery) *Context {
	for i := begin; i < end; i++ {
		p := view.At(i)
		if p == nil || p.IsDisabled() {
			continue
		}

		id := p.ID()
		visit := func(candidate Particle) bool {
			if candidate.ID() != id {
				ctx.Overlaps = append(ctx.Overlaps, Overlap{
					ParticleA:           p,
					ParticleB:           candidate,
					SearchParticleIndex: i,
				})
			}
			return true
		}
		// Unbounded particles only meet the other unbounded ones from their side;
		// bounded particles reach them through the index's global pass.
		if p.HasBounds() {
			query.Overlap(p.WorldSpaceInflatedBounds(), visit)
		} else {
			query.EachGlobal(visit)
		}
	}
	return ctx
}

// assignMidPhases filters the overlaps of ctx and fetches a mid-phase for every
// admitted one.
func assignMidPhases(ctx *Context, admission PairAdmission, resimming, ignoreOneWay bool) *Context {
	alloc := ctx.Collision.Allocator
	for i := range ctx.Overlaps {
		o := &ctx.Overlaps[i]
		accept, swap := admission.ParticlePairCollisionAllowed(o.ParticleA, o.ParticleB, resimming)
		if accept && ignoreOneWay && o.ParticleA.OneWayInteraction() && o.ParticleB.OneWayInteraction() {
			accept = false
		}
		o.CollisionsEnabled = accept
		if !accept {
			continue
		}

		search := o.ParticleA
		if swap {
			o.ParticleA, o.ParticleB = o.ParticleB, o.ParticleA
		}
		ctx.MidPhases = append(ctx.MidPhases, alloc.GetMidPhase(o.ParticleA, o.ParticleB, search, &ctx.Collision))
	}
	return ctx
}
