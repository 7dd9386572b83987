package broadphase

import "fmt"

type SpatialIndexIterator func(obj Particle)

// OverlapVisitor is called for every candidate of an Overlap query. Returning false stops the query.
type OverlapVisitor func(candidate Particle) bool

// IndexKind tags the concrete spatial index variants the broad-phase understands.
type IndexKind uint8

const (
	IndexKindNone IndexKind = iota
	// IndexKindTree is a dynamic AABB tree (BBTree).
	IndexKindTree
	// IndexKindGrid is a uniform grid (SpatialHash).
	IndexKindGrid
	// IndexKindCollection is a heterogeneous IndexCollection.
	IndexKindCollection
)

func (k IndexKind) String() string {
	switch k {
	case IndexKindNone:
		return "none"
	case IndexKindTree:
		return "tree"
	case IndexKindGrid:
		return "grid"
	case IndexKindCollection:
		return "collection"
	}
	return fmt.Sprintf("IndexKind(%d)", uint8(k))
}

// SpatialIndexer is an interface for spatial indexing that provides
// methods to manage particles efficiently. It is implemented by BBTree,
// SpatialHash and IndexCollection.
type SpatialIndexer interface {
	Kind() IndexKind

	// Count returns the number of objects currently stored in the index.
	Count() int

	// Each iterates over all objects in the spatial index, applying
	// the provided iterator function `f` to each object.
	Each(f SpatialIndexIterator)

	// Contains checks if a given object exists in the spatial index.
	Contains(obj Particle) bool

	// Insert adds a new object to the spatial index.
	Insert(obj Particle)

	// Remove deletes the object from the spatial index, if it exists.
	Remove(obj Particle)

	// Update refreshes the object after its bounds changed.
	Update(obj Particle)

	// Overlap visits the objects whose bounds intersect bb, and the global objects.
	// It must be safe to call concurrently with other Overlap calls.
	Overlap(bb AABB, visit OverlapVisitor)

	// GlobalObjects returns the objects without finite bounds.
	GlobalObjects() []Particle
}

// IndexCollection is a heterogeneous set of indices queried as one. A particle
// lives in exactly one member, chosen by Route.
type IndexCollection struct {
	Indices []SpatialIndexer
	// Route picks the member index for a particle. Nil routes everything to the first member.
	Route func(obj Particle) int
}

func NewIndexCollection(route func(obj Particle) int, indices ...SpatialIndexer) *IndexCollection {
	return &IndexCollection{Indices: indices, Route: route}
}

func (c *IndexCollection) Kind() IndexKind {
	return IndexKindCollection
}

func (c *IndexCollection) member(obj Particle) SpatialIndexer {
	if c.Route == nil {
		return c.Indices[0]
	}
	return c.Indices[c.Route(obj)]
}

func (c *IndexCollection) Count() (n int) {
	for _, index := range c.Indices {
		n += index.Count()
	}
	return n
}

func (c *IndexCollection) Each(f SpatialIndexIterator) {
	for _, index := range c.Indices {
		index.Each(f)
	}
}

func (c *IndexCollection) Contains(obj Particle) bool {
	for _, index := range c.Indices {
		if index.Contains(obj) {
			return true
		}
	}
	return false
}

func (c *IndexCollection) Insert(obj Particle) {
	c.member(obj).Insert(obj)
}

func (c *IndexCollection) Remove(obj Particle) {
	for _, index := range c.Indices {
		index.Remove(obj)
	}
}

func (c *IndexCollection) Update(obj Particle) {
	m := c.member(obj)
	if !m.Contains(obj) {
		c.Remove(obj)
		m.Insert(obj)
		return
	}
	m.Update(obj)
}

func (c *IndexCollection) Overlap(bb AABB, visit OverlapVisitor) {
	stopped := false
	guard := func(p Particle) bool {
		if !visit(p) {
			stopped = true
		}
		return !stopped
	}
	for _, index := range c.Indices {
		index.Overlap(bb, guard)
		if stopped {
			return
		}
	}
}

func (c *IndexCollection) GlobalObjects() []Particle {
	var out []Particle
	for _, index := range c.Indices {
		out = append(out, index.GlobalObjects()...)
	}
	return out
}

// spatialQuery is the per-step view of the active index, resolved once by newSpatialQuery.
type spatialQuery struct {
	kind       IndexKind
	tree       *BBTree
	grid       *SpatialHash
	collection *IndexCollection
	other      SpatialIndexer
}

func newSpatialQuery(index SpatialIndexer) spatialQuery {
	switch idx := index.(type) {
	case nil:
		return spatialQuery{kind: IndexKindNone}
	case *BBTree:
		if idx == nil {
			return spatialQuery{kind: IndexKindNone}
		}
		return spatialQuery{kind: IndexKindTree, tree: idx}
	case *SpatialHash:
		if idx == nil {
			return spatialQuery{kind: IndexKindNone}
		}
		return spatialQuery{kind: IndexKindGrid, grid: idx}
	case *IndexCollection:
		if idx == nil {
			return spatialQuery{kind: IndexKindNone}
		}
		return spatialQuery{kind: IndexKindCollection, collection: idx}
	default:
		return spatialQuery{kind: idx.Kind(), other: idx}
	}
}

func (q spatialQuery) valid() bool {
	return q.tree != nil || q.grid != nil || q.collection != nil || q.other != nil
}

func (q spatialQuery) Overlap(bb AABB, visit OverlapVisitor) {
	switch {
	case q.tree != nil:
		q.tree.Overlap(bb, visit)
	case q.grid != nil:
		q.grid.Overlap(bb, visit)
	case q.collection != nil:
		q.collection.Overlap(bb, visit)
	case q.other != nil:
		q.other.Overlap(bb, visit)
	}
}

// EachGlobal visits the objects of the index that have no finite bounds.
func (q spatialQuery) EachGlobal(visit OverlapVisitor) {
	var global []Particle
	switch {
	case q.tree != nil:
		global = q.tree.GlobalObjects()
	case q.grid != nil:
		global = q.grid.GlobalObjects()
	case q.collection != nil:
		global = q.collection.GlobalObjects()
	case q.other != nil:
		global = q.other.GlobalObjects()
	}
	for _, obj := range global {
		if !visit(obj) {
			return
		}
	}
}

func indexOfParticle(list []Particle, obj Particle) int {
	for i, p := range list {
		if p.ID() == obj.ID() {
			return i
		}
	}
	return -1
}
