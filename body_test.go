package broadphase_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setanarut/broadphase"
)

func TestBodyBoundsFromShapes(t *testing.T) {
	body := broadphase.NewBody()
	broadphase.NewSphereShape(body, 1, mgl64.Vec3{0, 0, 0})
	broadphase.NewSphereShape(body, 1, mgl64.Vec3{10, 0, 0})
	body.SetPosition(mgl64.Vec3{1, 2, 3})

	bb := body.UpdateBounds(0, 0)
	assert.Equal(t, broadphase.NewAABB(mgl64.Vec3{0, 1, 2}, mgl64.Vec3{12, 3, 4}), bb)

	body.RemoveShape(body.ShapeAtIndex(0))
	require.Len(t, body.Shapes(), 1)
	bb = body.UpdateBounds(0, 0)
	assert.Equal(t, broadphase.NewAABB(mgl64.Vec3{10, 1, 2}, mgl64.Vec3{12, 3, 4}), bb)
}

func TestBodyBoundsSweepAndExpansion(t *testing.T) {
	body := broadphase.NewBody()
	broadphase.NewBoxShape(body, 2, 2, 2)
	body.SetVelocity(mgl64.Vec3{10, 0, -10})

	bb := body.UpdateBounds(0.5, 0.25)
	assert.Equal(t, broadphase.NewAABB(mgl64.Vec3{-1.25, -1.25, -6.25}, mgl64.Vec3{6.25, 1.25, 1.25}), bb)
	assert.Equal(t, bb, body.WorldSpaceInflatedBounds())

	static := broadphase.NewStaticBody()
	broadphase.NewBoxShape(static, 2, 2, 2)
	static.SetVelocity(mgl64.Vec3{10, 0, 0})
	assert.Equal(t, mgl64.Vec3{}, static.Velocity(), "static bodies do not move")
	assert.Equal(t, broadphase.NewAABB(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1}), static.UpdateBounds(1, 0))
}

func TestBodyUnbounded(t *testing.T) {
	body := broadphase.NewStaticBody()
	assert.True(t, body.HasBounds())
	body.SetUnbounded(true)
	assert.False(t, body.HasBounds())
	assert.Equal(t, broadphase.InfiniteAABB, body.WorldSpaceInflatedBounds())
}

func TestBodySleep(t *testing.T) {
	body := broadphase.NewBody()
	body.Sleep()
	assert.True(t, body.IsSleeping())
	body.SetVelocity(mgl64.Vec3{1, 0, 0})
	assert.False(t, body.IsSleeping())

	static := broadphase.NewStaticBody()
	static.Sleep()
	assert.False(t, static.IsSleeping(), "only dynamics sleep")
}

func TestBodyTypes(t *testing.T) {
	k := broadphase.NewKinematicBody()
	assert.True(t, k.IsKinematic())
	assert.False(t, k.IsMovingKinematic())
	k.SetVelocity(mgl64.Vec3{0, 1, 0})
	assert.True(t, k.IsMovingKinematic())

	k.SetType(broadphase.Dynamic)
	assert.True(t, k.IsDynamic())
	assert.Equal(t, "dynamic", k.Type().String())
	assert.NotEqual(t, broadphase.NewBody().ID(), broadphase.NewBody().ID())
}

func TestBodyPositionUpdateFunc(t *testing.T) {
	body := broadphase.NewBody()
	body.SetVelocity(mgl64.Vec3{2, 0, 0})
	broadphase.BodyUpdatePosition(body, 0.5)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, body.Position())

	calls := 0
	body.SetPositionUpdateFunc(func(b *broadphase.Body, dt float64) { calls++ })
	space := broadphase.NewSpace()
	space.AddBody(body)
	space.Step(0.1)
	assert.Equal(t, 1, calls)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, body.Position())
}

func TestShapeIndexAndFilter(t *testing.T) {
	body := broadphase.NewBody()
	s0 := broadphase.NewSphereShape(body, 1, mgl64.Vec3{})
	s1 := broadphase.NewBoxShape(body, 1, 1, 1)
	assert.Equal(t, 0, s0.Index())
	assert.Equal(t, 1, s1.Index())
	assert.Equal(t, 0, s0.Order())
	assert.Equal(t, 1, s1.Order())

	assert.False(t, broadphase.ShapeFilterAll.Reject(broadphase.ShapeFilterAll))
	assert.True(t, broadphase.ShapeFilterAll.Reject(broadphase.ShapeFilterNone))

	sphere := s0.Class.(*broadphase.Sphere)
	sphere.SetRadius(2)
	sphere.SetOffset(mgl64.Vec3{0, 1, 0})
	body.SetPosition(mgl64.Vec3{1, 1, 1})
	bb := s0.CacheBB()
	assert.Equal(t, broadphase.NewAABB(mgl64.Vec3{-1, 0, -1}, mgl64.Vec3{3, 4, 3}), bb)
	assert.Equal(t, mgl64.Vec3{1, 2, 1}, sphere.Center())

	box := s1.Class.(*broadphase.Box)
	assert.Equal(t, mgl64.Vec3{0.5, 0.5, 0.5}, box.HalfExtents())
}
