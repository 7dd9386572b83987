package broadphase

// ResimCache describes a resimulation in progress.
type ResimCache interface {
	IsResimming() bool
	// DesyncedView returns the particles whose state diverged from the recorded run.
	DesyncedView() ParticleView
}

// DesyncCache is a ResimCache built from the desynced flag of the particles it is given.
type DesyncCache struct {
	Resimming bool
	desynced  ParticleSlice
}

// NewDesyncCache collects the non-disabled desynced particles, kinematics included.
func NewDesyncCache(resimming bool, particles []Particle) *DesyncCache {
	rc := &DesyncCache{Resimming: resimming}
	rc.Refresh(particles)
	return rc
}

// Refresh recollects the desynced particles.
func (rc *DesyncCache) Refresh(particles []Particle) {
	rc.desynced = rc.desynced[:0]
	for _, p := range particles {
		if p.IsDesynced() && !p.IsDisabled() {
			rc.desynced = append(rc.desynced, p)
		}
	}
}

func (rc *DesyncCache) IsResimming() bool {
	return rc != nil && rc.Resimming
}

func (rc *DesyncCache) DesyncedView() ParticleView {
	return rc.desynced
}
