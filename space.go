package broadphase

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/joeycumines/logiface"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// integrateBatchSize is the number of bodies one integration goroutine handles.
const integrateBatchSize = 256

// Space is a container for bodies. It owns the spatial index, the pair cache and the
// broad-phase, and runs them once per Step.
type Space struct {
	UserData any

	// IdleSpeedThreshold is speed threshold for a body to be considered idle.
	// The default value of 0 uses a small fixed threshold.
	IdleSpeedThreshold float64

	// SleepTimeThreshold is time a body must remain idle in order to fall asleep.
	// The default value of INFINITY disables the sleeping algorithm.
	SleepTimeThreshold float64

	// Number of frames that mid-phases of separated pairs persist.
	// Defaults to 3. There is probably never a reason to change this value.
	CollisionPersistence uint

	// Settings are passed to the narrow-phase every step.
	Settings DetectorSettings

	// Resim is consulted by the broad-phase. A *DesyncCache is refreshed from the bodies every step.
	Resim ResimCache

	// private
	bodies      []*Body
	particles   []Particle
	views       Views
	index       SpatialIndexer
	broadPhase  *BroadPhase
	allocator   *ConstraintAllocator
	ignore      *IgnoreCollisions
	constraints []*CollisionConstraint
	logger      *logiface.Logger[logiface.Event]
	workers     int
	stamp       uint
	currDT      float64
	locked      bool
}

// NewSpace allocates and initializes a Space with DefaultConfig.
func NewSpace() *Space {
	space, err := NewSpaceWithConfig(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return space
}

// NewSpaceWithConfig allocates a Space whose broad-phase uses cfg.
func NewSpaceWithConfig(cfg Config) (*Space, error) {
	space := &Space{
		IdleSpeedThreshold:   0.0,
		SleepTimeThreshold:   math.MaxFloat64,
		CollisionPersistence: 3,
		Settings:             DefaultDetectorSettings(),
		ignore:               NewIgnoreCollisions(),
		logger:               cfg.Logger,
		workers:              cfg.NumContexts(),
	}
	space.index = NewBBTree(ParticleVelocityFunc)

	bp, err := NewBroadPhase(space.index, cfg)
	if err != nil {
		return nil, err
	}
	bp.Ignore = space.ignore
	space.broadPhase = bp

	space.allocator, err = NewConstraintAllocator(int(space.CollisionPersistence), nil)
	if err != nil {
		return nil, err
	}
	return space, nil
}

// ParticleVelocityFunc fattens tree leaves of bodies along their velocity.
var ParticleVelocityFunc = func(obj Particle) mgl64.Vec3 {
	if body, ok := obj.(*Body); ok {
		return body.velocity
	}
	return mgl64.Vec3{}
}

// DynamicBodyCount returns the total number of dynamic bodies in space
func (s *Space) DynamicBodyCount() (n int) {
	for _, b := range s.bodies {
		if b.IsDynamic() {
			n++
		}
	}
	return n
}

// StaticBodyCount returns the total number of static bodies in space
func (s *Space) StaticBodyCount() (n int) {
	for _, b := range s.bodies {
		if b.IsStatic() {
			n++
		}
	}
	return n
}

// BodyCount returns the number of bodies in space.
func (s *Space) BodyCount() int {
	return len(s.bodies)
}

// AddBody adds body to the space.
//
// Do not add the same Body twice.
func (s *Space) AddBody(body *Body) {
	if s.IsLocked() {
		panic("broadphase: cannot add a body while the space is locked")
	}
	body.Space = s
	body.UpdateBounds(0, s.Settings.BoundsExpansion)
	s.bodies = append(s.bodies, body)
	s.index.Insert(body)

	s.logger.Trace().
		Int("body", int(body.id)).
		Str("type", body.bodyType.String()).
		Log("body added")
}

// RemoveBody removes a body from the simulation, with every mid-phase and constraint it is part of.
func (s *Space) RemoveBody(body *Body) {
	if s.IsLocked() {
		panic("broadphase: cannot remove a body while the space is locked")
	}
	s.bodies = slices.DeleteFunc(s.bodies, func(b *Body) bool {
		return b == body
	})
	s.index.Remove(body)
	removed := s.allocator.RemoveParticle(body)
	s.constraints = s.allocator.ActiveConstraints()
	body.Space = nil

	s.logger.Trace().
		Int("body", int(body.id)).
		Int("mid_phases", removed).
		Log("body removed")
}

// ContainsBody returns true if body was added to the space.
func (s *Space) ContainsBody(body *Body) bool {
	return body.Space == s
}

// ReindexBody refreshes the bounds of a body moved outside of Step, such as a static body.
func (s *Space) ReindexBody(body *Body) {
	if s.IsLocked() {
		panic("broadphase: cannot reindex a body while the space is locked")
	}
	body.UpdateBounds(0, s.Settings.BoundsExpansion)
	s.index.Update(body)
}

// IgnoreCollisions returns the ignored pair set consulted by the broad-phase.
func (s *Space) IgnoreCollisions() *IgnoreCollisions {
	return s.ignore
}

// BroadPhase returns the broad-phase run by Step.
func (s *Space) BroadPhase() *BroadPhase {
	return s.broadPhase
}

// Allocator returns the persistent mid-phase store.
func (s *Space) Allocator() *ConstraintAllocator {
	return s.allocator
}

// Index returns the spatial index.
func (s *Space) Index() SpatialIndexer {
	return s.index
}

// UseSpatialHash replaces the tree with a uniform grid of cells of size dim hashed into count bins.
func (s *Space) UseSpatialHash(dim float64, count int) {
	s.SetIndex(NewSpatialHash(dim, count))
}

// SetIndex moves every body into index and makes it the index of the space.
func (s *Space) SetIndex(index SpatialIndexer) {
	if s.IsLocked() {
		panic("broadphase: cannot change the index while the space is locked")
	}
	for _, b := range s.bodies {
		index.Insert(b)
	}
	s.index = index
	s.broadPhase.Index = index
}

// Constraints returns the constraints gathered by the last Step.
func (s *Space) Constraints() []*CollisionConstraint {
	return s.constraints
}

// Stats returns the broad-phase counters of the last Step.
func (s *Space) Stats() Stats {
	stats := s.broadPhase.Stats()
	stats.NumMidPhases = s.allocator.NumMidPhases()
	return stats
}

// TimeStep returns the last dt passed to Step.
func (s *Space) TimeStep() float64 {
	return s.currDT
}

// EachBody calls func f for each body in the space
//
// Example:
//
//	s.EachBody(func(body *broadphase.Body) {
//		fmt.Println(body.Position())
//	})
func (s *Space) EachBody(f func(b *Body)) {
	s.Lock()
	defer s.Unlock()

	for _, b := range s.bodies {
		f(b)
	}
}

// Step moves the bodies by dt and finds the collision constraints of their new positions.
func (s *Space) Step(dt float64) {
	if dt == 0 {
		return
	}

	s.stamp++
	s.currDT = dt

	s.Lock()
	defer s.Unlock()

	// Integrate positions
	s.integrate(dt)
	for _, body := range s.bodies {
		if !body.IsStatic() {
			s.index.Update(body)
		}
	}

	// Find colliding pairs.
	s.particles = s.particles[:0]
	for _, body := range s.bodies {
		s.particles = append(s.particles, body)
	}
	BuildViews(s.particles, &s.views)
	if rc, ok := s.Resim.(*DesyncCache); ok {
		rc.Refresh(s.particles)
	}

	if err := s.allocator.SetPersistence(int(s.CollisionPersistence)); err != nil {
		panic(err)
	}
	bp := s.broadPhase
	bp.ProduceOverlaps(dt, &s.views, s.allocator, s.Settings, s.Resim)
	bp.ProduceCollisions(dt)
	s.constraints = bp.GatherConstraints(bp.Config().Deterministic)

	// Clear out old cached mid-phases
	pruned := s.allocator.EndDetect()

	s.processSleep(dt)

	if b := s.logger.Debug(); b.Enabled() {
		stats := s.Stats()
		b.Int("step", int(s.stamp)).
			Float64("dt", dt).
			Int("bodies", len(s.bodies)).
			Int("pairs", stats.NumBroadPhasePairs).
			Int("mid_phases", stats.NumMidPhases).
			Int("pruned", pruned).
			Int("constraints", len(s.constraints)).
			Log("step")
	}
}

// integrate moves the awake bodies and refreshes their bounds in parallel batches.
func (s *Space) integrate(dt float64) {
	expansion := s.Settings.BoundsExpansion
	var g errgroup.Group
	g.SetLimit(max(1, s.workers))
	for begin := 0; begin < len(s.bodies); begin += integrateBatchSize {
		batch := s.bodies[begin:min(begin+integrateBatchSize, len(s.bodies))]
		g.Go(func() error {
			for _, body := range batch {
				if body.IsStatic() || body.IsDisabled() || body.IsSleeping() {
					continue
				}
				body.positionFunc(body, dt)
				body.UpdateBounds(dt, expansion)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// processSleep puts dynamics that stayed idle for SleepTimeThreshold to sleep, and wakes
// sleeping bodies touched by a moving one.
func (s *Space) processSleep(dt float64) {
	if s.SleepTimeThreshold == math.MaxFloat64 {
		return
	}
	threshold := s.IdleSpeedThreshold
	if threshold == 0 {
		threshold = 1e-2
	}
	thresholdSq := threshold * threshold

	for _, body := range s.bodies {
		if !body.IsDynamic() || body.IsSleeping() || body.IsDisabled() {
			continue
		}
		if body.velocity.LenSqr() > thresholdSq {
			body.sleepingIdleTime = 0
		} else {
			body.sleepingIdleTime += dt
		}
	}

	for _, c := range s.constraints {
		a, _ := c.Particle0.(*Body)
		b, _ := c.Particle1.(*Body)
		if a == nil || b == nil {
			continue
		}
		if a.IsSleeping() && b.IsDynamic() && !b.IsSleeping() && b.sleepingIdleTime == 0 {
			a.Activate()
		}
		if b.IsSleeping() && a.IsDynamic() && !a.IsSleeping() && a.sleepingIdleTime == 0 {
			b.Activate()
		}
	}

	for _, body := range s.bodies {
		if body.IsDynamic() && !body.IsSleeping() && body.sleepingIdleTime >= s.SleepTimeThreshold {
			body.Sleep()
		}
	}
}

func (s *Space) Lock() {
	s.locked = true
}

// IsLocked returns true while Step or EachBody runs, when bodies cannot be added or removed.
func (s *Space) IsLocked() bool {
	return s.locked
}

func (s *Space) Unlock() {
	s.locked = false
}
