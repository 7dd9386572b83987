package broadphase

// ParticleView is a finite, restartable sequence of particles addressed by index.
type ParticleView interface {
	Len() int
	At(i int) Particle
}

// ParticleSlice is the ParticleView of a slice.
type ParticleSlice []Particle

func (s ParticleSlice) Len() int {
	return len(s)
}

func (s ParticleSlice) At(i int) Particle {
	return s[i]
}

// Views holds the candidate outer-loop sets of one step.
type Views struct {
	// Dynamics are the non-disabled dynamics, awake and asleep.
	Dynamics ParticleSlice
	// Active are the awake dynamics and the moving kinematics.
	Active ParticleSlice
}

// BuildViews sorts particles into the candidate views. It reuses the slices of v.
func BuildViews(particles []Particle, v *Views) {
	v.Dynamics = v.Dynamics[:0]
	v.Active = v.Active[:0]
	for _, p := range particles {
		if p.IsDisabled() {
			continue
		}
		switch {
		case p.IsDynamic():
			v.Dynamics = append(v.Dynamics, p)
			if !p.IsSleeping() {
				v.Active = append(v.Active, p)
			}
		case p.IsMovingKinematic():
			v.Active = append(v.Active, p)
		}
	}
}

// SelectParticleView picks the outer-loop particles of a step: the desynced view while
// resimulating, otherwise the smaller of the two candidate views. Either view finds every
// pair the admission filter accepts.
func SelectParticleView(views *Views, resim ResimCache) ParticleView {
	if resim != nil && resim.IsResimming() {
		return resim.DesyncedView()
	}
	if views.Dynamics.Len() < views.Active.Len() {
		return views.Dynamics
	}
	return views.Active
}
