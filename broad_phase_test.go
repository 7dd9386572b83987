package broadphase_test

import (
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setanarut/broadphase"
)

func TestNewBroadPhaseRejectsInvalidConfig(t *testing.T) {
	cfg := broadphase.DefaultConfig()
	cfg.WorkerFactor = -1
	_, err := broadphase.NewBroadPhase(nil, cfg)
	assert.ErrorIs(t, err, broadphase.ErrInvalidWorkerFactor)

	cfg = broadphase.DefaultConfig()
	cfg.SmallBatchSize = -3
	_, err = broadphase.NewBroadPhase(nil, cfg)
	assert.ErrorIs(t, err, broadphase.ErrInvalidBatchSize)

	cfg = broadphase.DefaultConfig()
	cfg.NumWorkerThreads = -2
	_, err = broadphase.NewBroadPhase(nil, cfg)
	assert.ErrorIs(t, err, broadphase.ErrInvalidThreads)
	assert.ErrorIs(t, cfg.Validate(), broadphase.ErrInvalidThreads)
}

func TestNumContexts(t *testing.T) {
	cfg := broadphase.Config{WorkerFactor: 2, NumWorkerThreads: 3, MaxWorkers: 64}
	assert.Equal(t, 6, cfg.NumContexts())
	cfg.MaxWorkers = 4
	assert.Equal(t, 4, cfg.NumContexts())
	cfg.SingleThreaded = true
	assert.Equal(t, 1, cfg.NumContexts())
}

func TestStaticRowScenario(t *testing.T) {
	half := mgl64.Vec3{0.5, 0.5, 0.5}
	var bodies []*broadphase.Body
	for i := range 100 {
		bodies = append(bodies, boxAt(t, broadphase.NewStaticBody(), half, mgl64.Vec3{float64(i) * 2, 0, 0}))
	}
	// Covers the statics centered on 0, 2, ..., 18.
	dynamic := boxAt(t, broadphase.NewBody(), mgl64.Vec3{9.25, 0.5, 0.5}, mgl64.Vec3{9, 0, 0})
	bodies = append(bodies, dynamic)

	for name, index := range map[string]broadphase.SpatialIndexer{
		"tree": broadphase.NewBBTree(nil),
		"grid": broadphase.NewSpatialHash(2, 1024),
	} {
		t.Run(name, func(t *testing.T) {
			d := newDetector(t, manyContexts(4), index, bodies...)
			d.overlaps(nil)

			admitted := d.admitted()
			require.Len(t, admitted, 10)
			for _, o := range admitted {
				assert.Same(t, dynamic, o.ParticleA)
				assert.True(t, o.ParticleB.IsStatic())
			}
			assert.Equal(t, 10, d.allocator.NumMidPhases())

			stats := d.bp.Stats()
			assert.Equal(t, 10, stats.NumAdmittedPairs)
			assert.Equal(t, 10, stats.NumNewMidPhases)
			assert.Equal(t, 10, stats.NumMidPhases)

			for _, b := range bodies[10:100] {
				_, ok := d.allocator.MidPhase(dynamic, b)
				assert.False(t, ok)
			}
		})
	}
}

func randomScene(t testing.TB, rng *rand.Rand, n int) []*broadphase.Body {
	var bodies []*broadphase.Body
	point := func() mgl64.Vec3 {
		return mgl64.Vec3{rng.Float64() * 20, rng.Float64() * 20, rng.Float64() * 20}
	}
	for i := range n {
		var body *broadphase.Body
		switch i % 5 {
		case 0:
			body = broadphase.NewStaticBody()
		case 1:
			body = movingKinematic()
		default:
			body = broadphase.NewBody()
		}
		if i%2 == 0 {
			sphereAt(t, body, 0.5+rng.Float64(), point())
		} else {
			boxAt(t, body, mgl64.Vec3{0.5 + rng.Float64(), 0.5, 0.5 + rng.Float64()}, point())
		}
		if i%7 == 3 {
			body.Sleep()
		}
		bodies = append(bodies, body)
	}
	return bodies
}

// expectedPairs is the brute force answer: every overlapping pair that can produce contacts.
func expectedPairs(bodies []*broadphase.Body) map[broadphase.PairKey]bool {
	want := make(map[broadphase.PairKey]bool)
	for i, a := range bodies {
		for _, b := range bodies[i+1:] {
			if !a.WorldSpaceInflatedBounds().Intersects(b.WorldSpaceInflatedBounds()) {
				continue
			}
			sa, sb := broadphase.StateOf(a), broadphase.StateOf(b)
			awake := sa == broadphase.StateDynamicAwake || sb == broadphase.StateDynamicAwake
			kinematicWakes := (sa == broadphase.StateDynamicAsleep && sb == broadphase.StateMovingKinematic) ||
				(sb == broadphase.StateDynamicAsleep && sa == broadphase.StateMovingKinematic)
			if awake || kinematicWakes {
				want[broadphase.MakePairKey(a, b)] = true
			}
		}
	}
	return want
}

func TestNoDuplicatePairs(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	bodies := randomScene(t, rng, 400)
	want := expectedPairs(bodies)
	require.NotEmpty(t, want)

	indices := map[string]func() broadphase.SpatialIndexer{
		"tree": func() broadphase.SpatialIndexer { return broadphase.NewBBTree(broadphase.ParticleVelocityFunc) },
		"grid": func() broadphase.SpatialIndexer { return broadphase.NewSpatialHash(1.5, 512) },
		"collection": func() broadphase.SpatialIndexer {
			return broadphase.NewIndexCollection(func(obj broadphase.Particle) int {
				if obj.IsStatic() {
					return 1
				}
				return 0
			}, broadphase.NewBBTree(nil), broadphase.NewSpatialHash(2, 256))
		},
	}
	for name, newIndex := range indices {
		for _, contexts := range []int{1, 3, 16} {
			d := newDetector(t, manyContexts(contexts), newIndex(), bodies...)
			d.overlaps(nil)

			got := make(map[broadphase.PairKey]int)
			for _, o := range d.admitted() {
				got[o.Key()]++
			}
			for key, n := range got {
				assert.Equal(t, 1, n, "%s/%d: pair %v produced %d times", name, contexts, key, n)
				assert.True(t, want[key], "%s/%d: unexpected pair %v", name, contexts, key)
			}
			assert.Len(t, got, len(want), "%s/%d", name, contexts)
			assert.Equal(t, len(want), d.allocator.NumMidPhases(), "%s/%d", name, contexts)

			total := 0
			for _, c := range d.bp.Contexts() {
				total += len(c.MidPhases)
			}
			assert.Equal(t, len(want), total, "%s/%d", name, contexts)
		}
	}
}

func TestMidPhaseIdentityAcrossSteps(t *testing.T) {
	a := sphereAt(t, broadphase.NewBody(), 1, mgl64.Vec3{0, 0, 0})
	b := sphereAt(t, broadphase.NewBody(), 1, mgl64.Vec3{1.5, 0, 0})
	d := newDetector(t, manyContexts(2), broadphase.NewBBTree(nil), a, b)

	d.step(nil)
	first, ok := d.allocator.MidPhase(a, b)
	require.True(t, ok)
	assert.Equal(t, 1, d.bp.Stats().NumNewMidPhases)

	d.step(nil)
	second, ok := d.allocator.MidPhase(b, a)
	require.True(t, ok)
	assert.Same(t, first, second)
	assert.Equal(t, 0, d.bp.Stats().NumNewMidPhases)
}

func TestUnboundedParticleOverlapsEverything(t *testing.T) {
	ground := broadphase.NewStaticBody()
	ground.SetUnbounded(true)
	far := sphereAt(t, broadphase.NewBody(), 1, mgl64.Vec3{1000, -50, 3})
	near := sphereAt(t, broadphase.NewBody(), 1, mgl64.Vec3{0, 0, 0})

	d := newDetector(t, manyContexts(2), broadphase.NewBBTree(nil), ground, far, near)
	assert.Equal(t, []broadphase.Particle{ground}, d.index.GlobalObjects())
	d.overlaps(nil)

	admitted := d.admitted()
	assert.Len(t, admitted, 2)
	for _, o := range admitted {
		assert.Same(t, ground, o.ParticleB)
	}
}

func TestUnboundedDynamicQueriesOnlyGlobalObjects(t *testing.T) {
	for name, index := range map[string]func() broadphase.SpatialIndexer{
		"tree": func() broadphase.SpatialIndexer { return broadphase.NewBBTree(nil) },
		"grid": func() broadphase.SpatialIndexer { return broadphase.NewSpatialHash(4, 64) },
	} {
		t.Run(name, func(t *testing.T) {
			wide := broadphase.NewBody()
			wide.SetUnbounded(true)
			s1 := sphereAt(t, broadphase.NewStaticBody(), 1, mgl64.Vec3{-500, 0, 0})
			s2 := sphereAt(t, broadphase.NewStaticBody(), 1, mgl64.Vec3{500, 0, 0})

			d := newDetector(t, manyContexts(1), index(), wide, s1, s2)
			d.overlaps(nil)
			assert.Empty(t, d.admitted())

			plane := broadphase.NewStaticBody()
			plane.SetUnbounded(true)
			d = newDetector(t, manyContexts(1), index(), wide, s1, s2, plane)
			d.overlaps(nil)
			admitted := d.admitted()
			require.Len(t, admitted, 1)
			assert.Same(t, wide, admitted[0].ParticleA)
			assert.Same(t, plane, admitted[0].ParticleB)
		})
	}
}

func TestIgnoreOneWayPairs(t *testing.T) {
	a := sphereAt(t, broadphase.NewBody(), 1, mgl64.Vec3{0, 0, 0})
	b := sphereAt(t, broadphase.NewBody(), 1, mgl64.Vec3{1, 0, 0})
	a.SetOneWayInteraction(true)
	b.SetOneWayInteraction(true)

	cfg := manyContexts(1)
	d := newDetector(t, cfg, broadphase.NewBBTree(nil), a, b)
	d.overlaps(nil)
	assert.Len(t, d.admitted(), 1)

	cfg.IgnoreOneWayPairs = true
	d = newDetector(t, cfg, broadphase.NewBBTree(nil), a, b)
	d.overlaps(nil)
	assert.Empty(t, d.admitted())
	assert.Equal(t, 0, d.allocator.NumMidPhases())
}

func TestMissingIndexProducesNothing(t *testing.T) {
	bp, err := broadphase.NewBroadPhase(nil, manyContexts(2))
	require.NoError(t, err)
	allocator, err := broadphase.NewConstraintAllocator(1, nil)
	require.NoError(t, err)

	views := broadphase.Views{Active: broadphase.ParticleSlice{broadphase.NewBody()}}
	assert.NotPanics(t, func() {
		for range 3 {
			bp.ProduceOverlaps(0.1, &views, allocator, broadphase.DefaultDetectorSettings(), nil)
			bp.ProduceCollisions(0.1)
			assert.Empty(t, bp.GatherConstraints(true))
		}
	})
	assert.Equal(t, 0, allocator.NumMidPhases())
}

func TestResimVisitsDesyncedOnly(t *testing.T) {
	a := sphereAt(t, broadphase.NewBody(), 1, mgl64.Vec3{0, 0, 0})
	b := sphereAt(t, broadphase.NewStaticBody(), 1, mgl64.Vec3{1, 0, 0})
	c := sphereAt(t, broadphase.NewBody(), 1, mgl64.Vec3{10, 0, 0})
	e := sphereAt(t, broadphase.NewStaticBody(), 1, mgl64.Vec3{11, 0, 0})
	a.SetDesynced(true)

	d := newDetector(t, manyContexts(2), broadphase.NewBBTree(nil), a, b, c, e)
	d.overlaps(broadphase.NewDesyncCache(true, particles(d.bodies)))

	admitted := d.admitted()
	require.Len(t, admitted, 1)
	assert.Same(t, a, admitted[0].ParticleA)
	assert.Same(t, b, admitted[0].ParticleB)
}

func TestSelectParticleView(t *testing.T) {
	awake := broadphase.NewBody()
	sleepers := []*broadphase.Body{asleep(), asleep()}
	k := movingKinematic()
	all := append([]*broadphase.Body{awake, k}, sleepers...)

	var views broadphase.Views
	broadphase.BuildViews(particles(all), &views)
	assert.Equal(t, 3, views.Dynamics.Len())
	assert.Equal(t, 2, views.Active.Len())
	assert.Equal(t, views.Active, broadphase.SelectParticleView(&views, nil))

	k.SetDisabled(true)
	sleepers[0].SetDisabled(true)
	sleepers[1].SetDisabled(true)
	broadphase.BuildViews(particles(all), &views)
	assert.Equal(t, 1, views.Dynamics.Len())
	assert.Equal(t, 1, views.Active.Len())

	rc := &broadphase.DesyncCache{}
	assert.False(t, rc.IsResimming())
	var nilCache *broadphase.DesyncCache
	assert.False(t, nilCache.IsResimming())
}
