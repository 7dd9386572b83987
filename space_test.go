package broadphase_test

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setanarut/broadphase"
)

func TestSpaceAddBody(t *testing.T) {
	s := broadphase.NewSpace()
	b := broadphase.NewBody()
	s.AddBody(b)
	assert.Same(t, s, b.Space)
	assert.True(t, s.ContainsBody(b))
	assert.True(t, s.Index().Contains(b))
}

func TestSpaceRemoveBody(t *testing.T) {
	s := broadphase.NewSpace()
	b := broadphase.NewBody()
	s.AddBody(b)
	s.AddBody(broadphase.NewStaticBody())
	assert.Equal(t, 1, s.DynamicBodyCount())
	assert.Equal(t, 1, s.StaticBodyCount())

	s.RemoveBody(b)
	assert.Equal(t, 0, s.DynamicBodyCount())
	assert.Equal(t, 1, s.BodyCount())
	assert.False(t, s.ContainsBody(b))
	assert.False(t, s.Index().Contains(b))
}

func TestSpaceReindexBody(t *testing.T) {
	s := broadphase.NewSpace()
	sb := broadphase.NewStaticBody()
	broadphase.NewSphereShape(sb, 1, mgl64.Vec3{})
	sphere := sb.ShapeAtIndex(0)
	s.AddBody(sb)

	bb1 := sphere.BB
	s.ReindexBody(sb)
	assert.Equal(t, bb1.String(), sphere.BB.String(), "unchanged")

	sb.SetPosition(mgl64.Vec3{12, 34, 56})
	s.ReindexBody(sb)
	assert.NotEqual(t, bb1.String(), sphere.BB.String(), "changed")

	var found []broadphase.Particle
	s.Index().Overlap(broadphase.NewAABBForSphere(mgl64.Vec3{12, 34, 56}, 0.1), func(p broadphase.Particle) bool {
		found = append(found, p)
		return true
	})
	assert.Equal(t, []broadphase.Particle{sb}, found)
}

func TestSpaceStepFindsContacts(t *testing.T) {
	s := broadphase.NewSpace()
	ground := broadphase.NewStaticBody()
	broadphase.NewBoxShape(ground, 100, 1, 100)
	s.AddBody(ground)

	ball := broadphase.NewBody()
	broadphase.NewSphereShape(ball, 1, mgl64.Vec3{})
	ball.SetPosition(mgl64.Vec3{0, 2, 0})
	ball.SetVelocity(mgl64.Vec3{0, -10, 0})
	s.AddBody(ball)

	s.Step(0.01)
	assert.Empty(t, s.Constraints())
	assert.InDelta(t, 1.9, ball.Position()[1], 1e-9)

	for range 10 {
		s.Step(0.01)
	}
	require.Len(t, s.Constraints(), 1)
	c := s.Constraints()[0]
	assert.Same(t, ball, c.Particle0, "dynamic first")
	assert.Same(t, ground, c.Particle1)
	assert.InDelta(t, -1, c.Normal[1], 1e-9)
	require.Equal(t, 1, c.NumContacts())
	assert.Greater(t, c.Contacts[0].Depth, 0.0)

	stats := s.Stats()
	assert.Equal(t, 1, stats.NumMidPhases)
	assert.Equal(t, 1, stats.NumConstraints)
	assert.Contains(t, broadphase.DebugInfo(s), "Constraints: 1")
	assert.Equal(t, 0.01, s.TimeStep())
}

func TestSpaceSensorsDoNotCollide(t *testing.T) {
	s := broadphase.NewSpace()
	a := broadphase.NewBody()
	broadphase.NewSphereShape(a, 1, mgl64.Vec3{}).Sensor = true
	b := broadphase.NewBody()
	broadphase.NewSphereShape(b, 1, mgl64.Vec3{})
	s.AddBody(a)
	s.AddBody(b)

	s.Step(0.01)
	assert.Empty(t, s.Constraints())
	assert.Equal(t, 1, s.Stats().NumMidPhases, "the pair is still tracked")
}

func TestSpaceIgnoreCollisions(t *testing.T) {
	s := broadphase.NewSpace()
	a := broadphase.NewBody()
	broadphase.NewSphereShape(a, 1, mgl64.Vec3{})
	b := broadphase.NewBody()
	broadphase.NewSphereShape(b, 1, mgl64.Vec3{})
	s.AddBody(a)
	s.AddBody(b)

	s.IgnoreCollisions().Ignore(a, b)
	s.Step(0.01)
	assert.Empty(t, s.Constraints())
	assert.Zero(t, s.Stats().NumMidPhases)

	s.IgnoreCollisions().Unignore(a, b)
	s.Step(0.01)
	assert.Len(t, s.Constraints(), 1)
}

func TestSpaceSleepAndWake(t *testing.T) {
	s := broadphase.NewSpace()
	s.SleepTimeThreshold = 0.25

	sleeper := broadphase.NewBody()
	broadphase.NewSphereShape(sleeper, 1, mgl64.Vec3{})
	s.AddBody(sleeper)

	s.Step(0.1)
	s.Step(0.1)
	assert.False(t, sleeper.IsSleeping())
	s.Step(0.1)
	require.True(t, sleeper.IsSleeping())

	mover := broadphase.NewBody()
	broadphase.NewSphereShape(mover, 1, mgl64.Vec3{})
	mover.SetPosition(mgl64.Vec3{1.5, 0, 0})
	mover.SetVelocity(mgl64.Vec3{-1, 0, 0})
	s.AddBody(mover)

	s.Step(0.1)
	require.Len(t, s.Constraints(), 1)
	assert.False(t, sleeper.IsSleeping(), "woken by a moving body")
	assert.Zero(t, sleeper.IdleTime())
}

func TestSpaceLocked(t *testing.T) {
	s := broadphase.NewSpace()
	s.AddBody(broadphase.NewBody())

	assert.Panics(t, func() {
		s.EachBody(func(b *broadphase.Body) {
			s.AddBody(broadphase.NewBody())
		})
	})
	s.Unlock()

	assert.Panics(t, func() {
		s.EachBody(func(b *broadphase.Body) {
			s.RemoveBody(b)
		})
	})
	s.Unlock()

	assert.Panics(t, func() {
		s.EachBody(func(b *broadphase.Body) {
			b.SetType(broadphase.Static)
		})
	})
	s.Unlock()

	assert.False(t, s.IsLocked())
	assert.Equal(t, 1, s.BodyCount())
}

func TestSpaceRemoveBodyDropsConstraints(t *testing.T) {
	s := broadphase.NewSpace()
	a := broadphase.NewBody()
	broadphase.NewSphereShape(a, 1, mgl64.Vec3{})
	b := broadphase.NewBody()
	broadphase.NewSphereShape(b, 1, mgl64.Vec3{})
	s.AddBody(a)
	s.AddBody(b)

	s.Step(0.01)
	require.Len(t, s.Constraints(), 1)
	s.RemoveBody(b)
	assert.Empty(t, s.Constraints())
	assert.Zero(t, s.Allocator().NumMidPhases())
}

func TestSpaceSpatialHashMatchesTree(t *testing.T) {
	build := func(grid bool) *broadphase.Space {
		cfg := manyContexts(4)
		cfg.Deterministic = true
		s, err := broadphase.NewSpaceWithConfig(cfg)
		require.NoError(t, err)
		if grid {
			s.UseSpatialHash(2, 512)
		}
		for i := range 60 {
			body := broadphase.NewBody()
			broadphase.NewSphereShape(body, 1, mgl64.Vec3{})
			body.SetPosition(mgl64.Vec3{float64(i%6) * 1.5, float64(i/6) * 1.5, 0})
			s.AddBody(body)
		}
		return s
	}

	tree, grid := build(false), build(true)
	assert.Equal(t, broadphase.IndexKindGrid, grid.Index().Kind())
	tree.Step(0.01)
	grid.Step(0.01)

	// Ids differ between the two spaces; compare positions instead.
	positions := func(s *broadphase.Space) [][2]mgl64.Vec3 {
		var out [][2]mgl64.Vec3
		for _, c := range s.Constraints() {
			out = append(out, [2]mgl64.Vec3{
				c.Particle0.(*broadphase.Body).Position(),
				c.Particle1.(*broadphase.Body).Position(),
			})
		}
		return out
	}
	require.NotEmpty(t, tree.Constraints())
	assert.Equal(t, positions(tree), positions(grid))
}

// Run with -race: both gather modes read lists written by the narrow-phase tasks.
func TestSpaceStepGathersInBothModes(t *testing.T) {
	build := func(deterministic bool) *broadphase.Space {
		cfg := manyContexts(16)
		cfg.Deterministic = deterministic
		s, err := broadphase.NewSpaceWithConfig(cfg)
		require.NoError(t, err)
		rng := rand.New(rand.NewPCG(3, 5))
		for i := range 600 {
			body := broadphase.NewBody()
			if i%8 == 0 {
				body = broadphase.NewStaticBody()
			}
			pos := mgl64.Vec3{rng.Float64() * 20, rng.Float64() * 20, rng.Float64() * 20}
			if i%2 == 0 {
				broadphase.NewSphereShape(body, 0.8, mgl64.Vec3{})
			} else {
				broadphase.NewBoxShape(body, 1.2, 1.2, 1.2)
			}
			body.SetPosition(pos)
			body.SetVelocity(mgl64.Vec3{rng.Float64() - 0.5, rng.Float64() - 0.5, rng.Float64() - 0.5})
			s.AddBody(body)
		}
		return s
	}

	pairs := func(s *broadphase.Space) [][2]mgl64.Vec3 {
		var out [][2]mgl64.Vec3
		for _, c := range s.Constraints() {
			out = append(out, [2]mgl64.Vec3{
				c.Particle0.(*broadphase.Body).Position(),
				c.Particle1.(*broadphase.Body).Position(),
			})
		}
		return out
	}

	sorted, unsorted := build(true), build(false)
	for step := range 5 {
		sorted.Step(1.0 / 60)
		unsorted.Step(1.0 / 60)
		require.Equal(t, 16, unsorted.Stats().NumActiveContexts)
		require.NotEmpty(t, sorted.Constraints(), "step %d", step)
		assert.Len(t, unsorted.Constraints(), len(sorted.Constraints()), "step %d", step)
		assert.ElementsMatch(t, pairs(sorted), pairs(unsorted), "step %d", step)
	}
}

func TestSpaceLogsSteps(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf)),
		stumpy.L.WithLevel(logiface.LevelTrace),
	).Logger()

	cfg := broadphase.DefaultConfig()
	cfg.Logger = logger
	s, err := broadphase.NewSpaceWithConfig(cfg)
	require.NoError(t, err)
	s.AddBody(broadphase.NewBody())
	s.Step(0.01)

	out := buf.String()
	assert.Contains(t, out, `"msg":"body added"`)
	assert.Contains(t, out, `"msg":"overlaps produced"`)
	assert.Contains(t, out, `"msg":"step"`)
}

func TestSpaceWarnsOnceWithoutIndex(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf)),
		stumpy.L.WithLevel(logiface.LevelWarning),
	).Logger()

	cfg := broadphase.DefaultConfig()
	cfg.Logger = logger
	s, err := broadphase.NewSpaceWithConfig(cfg)
	require.NoError(t, err)
	s.BroadPhase().Index = nil
	for range 5 {
		s.Step(0.01)
	}
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("missing-spatial-index")))
}
