package broadphase

import (
	"math"
)

// SpatialHash is a uniform grid index. Cells are hashed into a fixed size table,
// so distant cells may share a bin.
//
// Like BBTree, queries are read only and may run concurrently with each other.
type SpatialHash struct {
	celldim  float64
	numCells int

	table   [][]*hashHandle
	handles map[uint64]*hashHandle
	// large holds particles that cover more cells than the table has bins.
	large  []*hashHandle
	global []Particle
}

type hashHandle struct {
	obj    Particle
	bb     AABB
	lo, hi [3]int
}

// NewSpatialHash returns a grid with cells of size celldim hashed into cells bins.
func NewSpatialHash(celldim float64, cells int) *SpatialHash {
	return &SpatialHash{
		celldim:  celldim,
		numCells: cells,
		table:    make([][]*hashHandle, cells),
		handles:  make(map[uint64]*hashHandle),
	}
}

func (hash *SpatialHash) Kind() IndexKind {
	return IndexKindGrid
}

func (hash *SpatialHash) Count() int {
	return len(hash.handles) + len(hash.global)
}

func (hash *SpatialHash) Each(f SpatialIndexIterator) {
	for _, hand := range hash.handles {
		f(hand.obj)
	}
	for _, obj := range hash.global {
		f(obj)
	}
}

func (hash *SpatialHash) Contains(obj Particle) bool {
	if _, ok := hash.handles[obj.ID()]; ok {
		return true
	}
	return indexOfParticle(hash.global, obj) >= 0
}

// cellRange returns the cells covered by bb, or ok=false if there are more of them than bins.
func (hash *SpatialHash) cellRange(bb AABB) (lo, hi [3]int, ok bool) {
	dim := hash.celldim
	count := 1.0
	var flo, fhi [3]float64
	for i := range 3 {
		flo[i] = math.Floor(bb.Min[i] / dim)
		fhi[i] = math.Floor(bb.Max[i] / dim)
		count *= fhi[i] - flo[i] + 1
	}
	if count > float64(hash.numCells) || math.IsNaN(count) {
		return lo, hi, false
	}
	for i := range 3 {
		lo[i] = int(flo[i])
		hi[i] = int(fhi[i])
	}
	return lo, hi, true
}

func hashFunc(x, y, z int, n int) int {
	h := (HashValue(x)*1640531513 ^ HashValue(y)*2654435789 ^ HashValue(z)*805459861) % HashValue(n)
	return int(h)
}

func (hash *SpatialHash) Insert(obj Particle) {
	if hash.Contains(obj) {
		return
	}
	if !obj.HasBounds() {
		hash.global = append(hash.global, obj)
		return
	}
	hand := &hashHandle{obj: obj}
	hash.handles[obj.ID()] = hand
	hash.hashHandle(hand)
}

func (hash *SpatialHash) hashHandle(hand *hashHandle) {
	hand.bb = hand.obj.WorldSpaceInflatedBounds()
	lo, hi, ok := hash.cellRange(hand.bb)
	if !ok {
		hash.large = append(hash.large, hand)
		return
	}
	hand.lo, hand.hi = lo, hi
	for i := lo[0]; i <= hi[0]; i++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for k := lo[2]; k <= hi[2]; k++ {
				idx := hashFunc(i, j, k, hash.numCells)
				if containsHandle(hash.table[idx], hand) {
					continue
				}
				hash.table[idx] = append(hash.table[idx], hand)
			}
		}
	}
}

func (hash *SpatialHash) unhashHandle(hand *hashHandle) {
	if i := indexOfHandle(hash.large, hand); i >= 0 {
		hash.large = append(hash.large[:i], hash.large[i+1:]...)
		return
	}
	for i := hand.lo[0]; i <= hand.hi[0]; i++ {
		for j := hand.lo[1]; j <= hand.hi[1]; j++ {
			for k := hand.lo[2]; k <= hand.hi[2]; k++ {
				idx := hashFunc(i, j, k, hash.numCells)
				if n := indexOfHandle(hash.table[idx], hand); n >= 0 {
					hash.table[idx] = append(hash.table[idx][:n], hash.table[idx][n+1:]...)
				}
			}
		}
	}
}

func (hash *SpatialHash) Remove(obj Particle) {
	if i := indexOfParticle(hash.global, obj); i >= 0 {
		hash.global = append(hash.global[:i], hash.global[i+1:]...)
		return
	}
	hand, ok := hash.handles[obj.ID()]
	if !ok {
		return
	}
	delete(hash.handles, obj.ID())
	hash.unhashHandle(hand)
}

func (hash *SpatialHash) Update(obj Particle) {
	hand, ok := hash.handles[obj.ID()]
	if !ok || !obj.HasBounds() {
		hash.Remove(obj)
		hash.Insert(obj)
		return
	}
	if hand.bb == obj.WorldSpaceInflatedBounds() {
		return
	}
	hash.unhashHandle(hand)
	hash.hashHandle(hand)
}

// Rebuild clears the table and rehashes every particle.
func (hash *SpatialHash) Rebuild() {
	for i := range hash.table {
		hash.table[i] = hash.table[i][:0]
	}
	hash.large = hash.large[:0]
	for _, hand := range hash.handles {
		hash.hashHandle(hand)
	}
}

// Overlap visits every particle whose bounds intersect bb exactly once, then every global particle.
//
// A particle is reported from the first cell shared by its range and the query range,
// so no per query bookkeeping is written.
func (hash *SpatialHash) Overlap(bb AABB, visit OverlapVisitor) {
	if !hash.overlapBounded(bb, visit) {
		return
	}
	for _, obj := range hash.global {
		if !visit(obj) {
			return
		}
	}
}

func (hash *SpatialHash) overlapBounded(bb AABB, visit OverlapVisitor) bool {
	for _, hand := range hash.large {
		if hand.bb.Intersects(bb) && !visit(hand.obj) {
			return false
		}
	}

	lo, hi, ok := hash.cellRange(bb)
	if !ok {
		for _, hand := range hash.handles {
			if indexOfHandle(hash.large, hand) >= 0 {
				continue
			}
			if hand.bb.Intersects(bb) && !visit(hand.obj) {
				return false
			}
		}
		return true
	}

	for i := lo[0]; i <= hi[0]; i++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for k := lo[2]; k <= hi[2]; k++ {
				cell := [3]int{i, j, k}
				for _, hand := range hash.table[hashFunc(i, j, k, hash.numCells)] {
					if !hand.firstSharedCell(cell, lo) || !hand.bb.Intersects(bb) {
						continue
					}
					if !visit(hand.obj) {
						return false
					}
				}
			}
		}
	}
	return true
}

// firstSharedCell reports whether cell lies in the handle's range and is the lowest
// cell of the intersection with a query range starting at qlo.
func (hand *hashHandle) firstSharedCell(cell, qlo [3]int) bool {
	for i := range 3 {
		if cell[i] < hand.lo[i] || cell[i] > hand.hi[i] {
			return false
		}
		if cell[i] != max(hand.lo[i], qlo[i]) {
			return false
		}
	}
	return true
}

func (hash *SpatialHash) GlobalObjects() []Particle {
	return hash.global
}

func containsHandle(bin []*hashHandle, hand *hashHandle) bool {
	return indexOfHandle(bin, hand) >= 0
}

func indexOfHandle(bin []*hashHandle, hand *hashHandle) int {
	for i, item := range bin {
		if item == hand {
			return i
		}
	}
	return -1
}
