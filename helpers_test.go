package broadphase_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"github.com/setanarut/broadphase"
)

func sphereAt(t testing.TB, body *broadphase.Body, r float64, pos mgl64.Vec3) *broadphase.Body {
	t.Helper()
	broadphase.NewSphereShape(body, r, mgl64.Vec3{})
	body.SetPosition(pos)
	body.UpdateBounds(0, 0)
	return body
}

func boxAt(t testing.TB, body *broadphase.Body, half, pos mgl64.Vec3) *broadphase.Body {
	t.Helper()
	broadphase.NewBoxShape2(body, half, mgl64.Vec3{})
	body.SetPosition(pos)
	body.UpdateBounds(0, 0)
	return body
}

func movingKinematic() *broadphase.Body {
	body := broadphase.NewKinematicBody()
	body.SetVelocity(mgl64.Vec3{1, 0, 0})
	return body
}

func asleep() *broadphase.Body {
	body := broadphase.NewBody()
	body.Sleep()
	return body
}

func particles(bodies []*broadphase.Body) []broadphase.Particle {
	out := make([]broadphase.Particle, len(bodies))
	for i, b := range bodies {
		out[i] = b
	}
	return out
}

func manyContexts(n int) broadphase.Config {
	cfg := broadphase.DefaultConfig()
	cfg.NumWorkerThreads = n
	cfg.WorkerFactor = 1
	cfg.MaxWorkers = n
	cfg.SmallBatchSize = 1
	cfg.ValidateOverlaps = true
	return cfg
}

// detector runs the broad-phase pipeline over a fixed set of bodies.
type detector struct {
	bp        *broadphase.BroadPhase
	allocator *broadphase.ConstraintAllocator
	index     broadphase.SpatialIndexer
	bodies    []*broadphase.Body
	views     broadphase.Views
}

func newDetector(t testing.TB, cfg broadphase.Config, index broadphase.SpatialIndexer, bodies ...*broadphase.Body) *detector {
	t.Helper()
	bp, err := broadphase.NewBroadPhase(index, cfg)
	require.NoError(t, err)
	allocator, err := broadphase.NewConstraintAllocator(3, nil)
	require.NoError(t, err)
	for _, b := range bodies {
		index.Insert(b)
	}
	return &detector{bp: bp, allocator: allocator, index: index, bodies: bodies}
}

func (d *detector) overlaps(resim broadphase.ResimCache) {
	broadphase.BuildViews(particles(d.bodies), &d.views)
	d.bp.ProduceOverlaps(0, &d.views, d.allocator, broadphase.DefaultDetectorSettings(), resim)
}

func (d *detector) step(resim broadphase.ResimCache) []*broadphase.CollisionConstraint {
	d.overlaps(resim)
	d.bp.ProduceCollisions(0)
	out := d.bp.GatherConstraints(d.bp.Config().Deterministic)
	d.allocator.EndDetect()
	return out
}

func (d *detector) move(body *broadphase.Body, pos mgl64.Vec3) {
	body.SetPosition(pos)
	body.UpdateBounds(0, 0)
	d.index.Update(body)
}

// admitted returns the admitted overlaps of every context.
func (d *detector) admitted() []broadphase.Overlap {
	var out []broadphase.Overlap
	for _, c := range d.bp.Contexts() {
		for _, o := range c.Overlaps {
			if o.CollisionsEnabled {
				out = append(out, o)
			}
		}
	}
	return out
}
