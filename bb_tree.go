package broadphase

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Children struct {
	a, b *Node
}

type BBTreeVelocityFunc func(obj Particle) mgl64.Vec3

// BBTree represents a bounding box tree used for
// spatial indexing and collision detection.
//
// Queries are read only and may run concurrently. Insert, Remove and Update
// must not overlap with queries.
type BBTree struct {
	// velocityFunc is a function that calculates the velocity of bounding boxes for updates.
	velocityFunc BBTreeVelocityFunc
	// leaves maps particle ids to their leaf nodes.
	leaves map[uint64]*Node
	// global holds particles without finite bounds. They overlap every query.
	global []Particle
	// root is the root node of the bounding box tree.
	root *Node
	// pooledNodes is a reusable pool of nodes to optimize memory usage and allocation.
	pooledNodes *Node
}

func NewBBTree(velocityFunc BBTreeVelocityFunc) *BBTree {
	return &BBTree{
		velocityFunc: velocityFunc,
		leaves:       make(map[uint64]*Node),
	}
}

func (bbt *BBTree) Kind() IndexKind {
	return IndexKindTree
}

func (bbt *BBTree) Count() int {
	return len(bbt.leaves) + len(bbt.global)
}

func (bbt *BBTree) Each(f SpatialIndexIterator) {
	for _, node := range bbt.leaves {
		f(node.obj)
	}
	for _, obj := range bbt.global {
		f(obj)
	}
}

func (bbt *BBTree) Contains(obj Particle) bool {
	if _, ok := bbt.leaves[obj.ID()]; ok {
		return true
	}
	return indexOfParticle(bbt.global, obj) >= 0
}

func (bbt *BBTree) Insert(obj Particle) {
	if bbt.Contains(obj) {
		return
	}
	if !obj.HasBounds() {
		bbt.global = append(bbt.global, obj)
		return
	}
	leaf := bbt.NewLeaf(obj)
	bbt.leaves[obj.ID()] = leaf
	bbt.root = bbt.SubtreeInsert(bbt.root, leaf)
}

func (bbt *BBTree) Remove(obj Particle) {
	if i := indexOfParticle(bbt.global, obj); i >= 0 {
		bbt.global = append(bbt.global[:i], bbt.global[i+1:]...)
		return
	}
	leaf, ok := bbt.leaves[obj.ID()]
	if !ok {
		return
	}
	delete(bbt.leaves, obj.ID())
	bbt.root = bbt.SubtreeRemove(bbt.root, leaf)
	bbt.RecycleNode(leaf)
}

// Update reinserts obj if its bounds escaped the fattened leaf bounds, and moves it
// between the tree and the global list when HasBounds changes.
func (bbt *BBTree) Update(obj Particle) {
	leaf, inTree := bbt.leaves[obj.ID()]
	if inTree != obj.HasBounds() {
		bbt.Remove(obj)
		bbt.Insert(obj)
		return
	}
	if inTree {
		bbt.LeafUpdate(leaf)
	}
}

func (bbt *BBTree) LeafUpdate(leaf *Node) bool {
	bb := leaf.obj.WorldSpaceInflatedBounds()
	if leaf.bb.Contains(bb) {
		return false
	}
	bbt.root = bbt.SubtreeRemove(bbt.root, leaf)
	leaf.bb = bbt.GetBB(leaf.obj)
	bbt.root = bbt.SubtreeInsert(bbt.root, leaf)
	return true
}

// Overlap visits every particle whose bounds intersect bb, then every global particle.
func (bbt *BBTree) Overlap(bb AABB, visit OverlapVisitor) {
	if bbt.root != nil && !bbt.root.SubtreeQuery(bb, visit) {
		return
	}
	for _, obj := range bbt.global {
		if !visit(obj) {
			return
		}
	}
}

func (bbt *BBTree) GlobalObjects() []Particle {
	return bbt.global
}

func (bbt *BBTree) SubtreeInsert(subtree *Node, leaf *Node) *Node {
	if subtree == nil {
		return leaf
	}
	if subtree.IsLeaf() {
		return bbt.NewNode(leaf, subtree)
	}

	costA := subtree.b.bb.SurfaceArea() + subtree.a.bb.MergedArea(leaf.bb)
	costB := subtree.a.bb.SurfaceArea() + subtree.b.bb.MergedArea(leaf.bb)

	if costA == costB {
		costA = subtree.a.bb.Proximity(leaf.bb)
		costB = subtree.b.bb.Proximity(leaf.bb)
	}

	if costB < costA {
		NodeSetB(subtree, bbt.SubtreeInsert(subtree.b, leaf))
	} else {
		NodeSetA(subtree, bbt.SubtreeInsert(subtree.a, leaf))
	}

	subtree.bb = subtree.bb.Merge(leaf.bb)
	return subtree
}

func (bbt *BBTree) SubtreeRemove(subtree *Node, leaf *Node) *Node {
	if leaf == subtree {
		return nil
	}

	parent := leaf.parent
	if parent == subtree {
		other := subtree.Other(leaf)
		other.parent = subtree.parent
		bbt.RecycleNode(subtree)
		return other
	}

	bbt.ReplaceChild(parent.parent, parent, parent.Other(leaf))
	return subtree
}

func (bbt *BBTree) ReplaceChild(parent, child, value *Node) {
	if parent.a == child {
		bbt.RecycleNode(parent.a)
		NodeSetA(parent, value)
	} else {
		bbt.RecycleNode(parent.b)
		NodeSetB(parent, value)
	}

	for node := parent; node != nil; node = node.parent {
		node.bb = node.a.bb.Merge(node.b.bb)
	}
}

// GetBB returns the fattened leaf bounds for obj.
func (bbt *BBTree) GetBB(obj Particle) AABB {
	bb := obj.WorldSpaceInflatedBounds()
	if bbt.velocityFunc != nil {
		coef := 0.1
		e := bb.Max.Sub(bb.Min).Mul(coef)
		v := bbt.velocityFunc(obj).Mul(coef)
		for i := range 3 {
			bb.Min[i] += math.Min(-e[i], v[i])
			bb.Max[i] += math.Max(e[i], v[i])
		}
	}
	return bb
}

func (bbt *BBTree) NewNode(a, b *Node) *Node {
	node := bbt.NodeFromPool()
	node.obj = nil
	node.bb = a.bb.Merge(b.bb)
	node.parent = nil

	NodeSetA(node, a)
	NodeSetB(node, b)
	return node
}

func (bbt *BBTree) NewLeaf(obj Particle) *Node {
	node := bbt.NodeFromPool()
	node.obj = obj
	node.bb = bbt.GetBB(obj)
	node.parent = nil
	node.a, node.b = nil, nil
	return node
}

func (bbt *BBTree) NodeFromPool() *Node {
	node := bbt.pooledNodes

	if node != nil {
		bbt.pooledNodes = node.parent
		return node
	}

	// Pool is exhausted make more
	for i := 0; i < pooledBufferSize; i++ {
		bbt.RecycleNode(&Node{})
	}

	return &Node{}
}

func (bbt *BBTree) RecycleNode(node *Node) {
	node.obj = nil
	node.a, node.b = nil, nil
	node.parent = bbt.pooledNodes
	bbt.pooledNodes = node
}

type Node struct {
	obj    Particle
	bb     AABB
	parent *Node

	Children
}

func NodeSetA(node, value *Node) {
	node.a = value
	value.parent = node
}

func NodeSetB(node, value *Node) {
	node.b = value
	value.parent = node
}

func (node *Node) Other(child *Node) *Node {
	if node.a == child {
		return node.b
	}
	return node.a
}

func (node *Node) IsLeaf() bool {
	return node.obj != nil
}

// SubtreeQuery returns false once visit asked to stop.
func (subtree *Node) SubtreeQuery(bb AABB, visit OverlapVisitor) bool {
	if !subtree.bb.Intersects(bb) {
		return true
	}
	if subtree.IsLeaf() {
		// Leaf bounds are fattened; test the particle's own bounds.
		if subtree.obj.WorldSpaceInflatedBounds().Intersects(bb) {
			return visit(subtree.obj)
		}
		return true
	}
	return subtree.a.SubtreeQuery(bb, visit) && subtree.b.SubtreeQuery(bb, visit)
}
