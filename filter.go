package broadphase

// ParticleState is the admission state of a particle.
type ParticleState uint8

const (
	// StateStatic covers static particles and kinematics at rest.
	StateStatic ParticleState = iota
	StateMovingKinematic
	StateDynamicAwake
	StateDynamicAsleep
)

func (s ParticleState) String() string {
	switch s {
	case StateStatic:
		return "static"
	case StateMovingKinematic:
		return "moving-kinematic"
	case StateDynamicAwake:
		return "dynamic-awake"
	case StateDynamicAsleep:
		return "dynamic-asleep"
	}
	return "unknown"
}

func (s ParticleState) isDynamic() bool {
	return s == StateDynamicAwake || s == StateDynamicAsleep
}

// StateOf classifies p.
func StateOf(p Particle) ParticleState {
	switch {
	case p.IsDynamic():
		if p.IsSleeping() {
			return StateDynamicAsleep
		}
		return StateDynamicAwake
	case p.IsMovingKinematic():
		return StateMovingKinematic
	}
	return StateStatic
}

// PreferredFunc is a strict total order over particles, used to pick one of the two
// symmetric visits of a pair and to order pairs of the same kind.
type PreferredFunc func(p1, p2 Particle) bool

// PreferLowerID is the default PreferredFunc.
func PreferLowerID(p1, p2 Particle) bool {
	return p1.ID() < p2.ID()
}

// PairFilter returns false to reject a pair before any mid-phase is created.
type PairFilter func(p1, p2 Particle) bool

// ShapeFilterPairFilter accepts a pair if any of its shape pairs passes ShapeFilter.Reject.
// Particles without shapes are accepted.
func ShapeFilterPairFilter(p1, p2 Particle) bool {
	shapes1 := p1.Shapes()
	shapes2 := p2.Shapes()
	if len(shapes1) == 0 || len(shapes2) == 0 {
		return true
	}
	for _, a := range shapes1 {
		for _, b := range shapes2 {
			if !a.Filter.Reject(b.Filter) {
				return true
			}
		}
	}
	return false
}

// PairAdmission holds the collaborators of the admission filter.
type PairAdmission struct {
	Ignore    IgnoreCollisionManager
	Filter    PairFilter
	Preferred PreferredFunc
}

// ParticlePairCollisionAllowed decides whether the pair found while visiting p1 gets
// a mid-phase, and whether the pair must be swapped into canonical order: the dynamic
// particle first, otherwise the preferred one.
//
// For every pair that can produce contacts, exactly one of the two visits (p1, p2) and
// (p2, p1) is accepted. While resimulating p1 is desynced, and synced particles are
// never visited.
func (pa PairAdmission) ParticlePairCollisionAllowed(p1, p2 Particle, resimming bool) (accept, swap bool) {
	if p1 == nil || p2 == nil || p1.ID() == p2.ID() {
		return false, false
	}
	if p1.IsDisabled() || p2.IsDisabled() {
		return false, false
	}
	if pa.Ignore != nil && pa.Ignore.IsIgnored(p1, p2) {
		return false, false
	}
	if pa.Filter != nil && !pa.Filter(p1, p2) {
		return false, false
	}

	preferred := pa.Preferred
	if preferred == nil {
		preferred = PreferLowerID
	}

	s1 := StateOf(p1)
	s2 := StateOf(p2)

	if resimming {
		accept = resimAdmits(p1, p2, s1, s2, preferred(p1, p2))
	} else {
		accept = admits(s1, s2, preferred(p1, p2))
	}
	if !accept {
		return false, false
	}

	switch {
	case s1.isDynamic() && !s2.isDynamic():
		swap = false
	case !s1.isDynamic() && s2.isDynamic():
		swap = true
	default:
		swap = !preferred(p1, p2)
	}
	return true, swap
}

func admits(s1, s2 ParticleState, preferred bool) bool {
	switch s1 {
	case StateDynamicAwake:
		if s2 == StateDynamicAwake {
			return preferred
		}
		return true
	case StateDynamicAsleep:
		return s2 == StateMovingKinematic
	case StateMovingKinematic:
		return s2 == StateDynamicAsleep
	}
	return false
}

func resimAdmits(p1, p2 Particle, s1, s2 ParticleState, preferred bool) bool {
	synced := !p2.IsDesynced()
	switch s1 {
	case StateDynamicAwake:
		if s2 == StateDynamicAwake {
			return preferred || synced
		}
		return true
	case StateDynamicAsleep:
		if p2.IsKinematic() {
			return true
		}
		// A synced awake dynamic is never visited, so this side must take it.
		return s2 == StateDynamicAwake && synced
	}
	switch s2 {
	case StateDynamicAwake:
		return synced
	case StateDynamicAsleep:
		return synced && p1.IsKinematic()
	}
	return false
}
