package broadphase

// CollisionContext is what a mid-phase needs to run its narrow-phase inside one context.
type CollisionContext struct {
	Settings  DetectorSettings
	Allocator *ContextAllocator
	Stamp     uint
}

// Context is the buffer set of one worker. Only the task chain currently holding it
// writes to it.
type Context struct {
	Index     int
	Overlaps  []Overlap
	MidPhases []MidPhase
	Collision CollisionContext
}

func (c *Context) reset(alloc *ContextAllocator, settings DetectorSettings, stamp uint) {
	clear(c.Overlaps)
	c.Overlaps = c.Overlaps[:0]
	clear(c.MidPhases)
	c.MidPhases = c.MidPhases[:0]
	c.Collision = CollisionContext{
		Settings:  settings,
		Allocator: alloc,
		Stamp:     stamp,
	}
}

// NumAdmitted returns the overlaps that passed the admission filter.
func (c *Context) NumAdmitted() (n int) {
	for _, o := range c.Overlaps {
		if o.CollisionsEnabled {
			n++
		}
	}
	return n
}
