package broadphase

import (
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"

	"github.com/setanarut/broadphase/utils/task"
)

// prefetchLookahead is how many mid-phases ahead of the current one the narrow-phase prefetches.
const prefetchLookahead = 4

const categoryMissingIndex = "missing-spatial-index"

// Stats are the counters of the last step.
type Stats struct {
	// NumBroadPhasePairs counts the raw overlaps returned by the spatial queries.
	NumBroadPhasePairs int
	// NumAdmittedPairs counts the overlaps accepted by the admission filter.
	NumAdmittedPairs int
	// NumMidPhases counts the mid-phases assigned to the contexts.
	NumMidPhases int
	// NumNewMidPhases counts the mid-phases created this step.
	NumNewMidPhases int
	// NumRedistributed counts the mid-phases moved between contexts.
	NumRedistributed  int
	NumActiveContexts int
	NumConstraints    int
}

// BroadPhase finds the overlapping particle pairs of a step and drives their narrow-phase
// across a pool of contexts.
//
// A step is ProduceOverlaps, then ProduceCollisions, then GatherConstraints, all called
// from the same goroutine.
type BroadPhase struct {
	// Index is the spatial index queried for overlaps. A nil index produces nothing.
	Index     SpatialIndexer
	Ignore    IgnoreCollisionManager
	Filter    PairFilter
	Preferred PreferredFunc

	config    Config
	logger    *logiface.Logger[logiface.Event]
	limiter   *catrate.Limiter
	contexts  []*Context
	numActive int
	allocator *ConstraintAllocator
	narrow    []*task.Task
	stats     Stats
}

// NewBroadPhase validates cfg and returns a broad-phase querying index.
func NewBroadPhase(index SpatialIndexer, cfg Config) (*BroadPhase, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &BroadPhase{
		Index:   index,
		Filter:  ShapeFilterPairFilter,
		config:  cfg,
		logger:  cfg.Logger,
		limiter: catrate.NewLimiter(map[time.Duration]int{time.Second: 1, time.Minute: 10}),
	}, nil
}

func (bp *BroadPhase) Config() Config {
	return bp.config
}

// SetDeterministic switches the gather mode used by Space.
func (bp *BroadPhase) SetDeterministic(deterministic bool) {
	bp.config.Deterministic = deterministic
}

func (bp *BroadPhase) NumActiveContexts() int {
	return bp.numActive
}

// Contexts returns the active contexts of the current step.
func (bp *BroadPhase) Contexts() []*Context {
	return bp.contexts[:bp.numActive]
}

func (bp *BroadPhase) Stats() Stats {
	return bp.stats
}

func (bp *BroadPhase) admission() PairAdmission {
	return PairAdmission{
		Ignore:    bp.Ignore,
		Filter:    bp.Filter,
		Preferred: bp.Preferred,
	}
}

func (bp *BroadPhase) resetContexts(n int, allocator *ConstraintAllocator, settings DetectorSettings) {
	allocator.BeginDetect(n)
	for len(bp.contexts) < n {
		bp.contexts = append(bp.contexts, &Context{Index: len(bp.contexts)})
	}
	bp.numActive = n
	for i, c := range bp.Contexts() {
		c.reset(allocator.Context(i), settings, allocator.Stamp())
	}
	bp.allocator = allocator
	bp.narrow = bp.narrow[:0]
	bp.stats = Stats{NumActiveContexts: n}
}

// ProduceOverlaps finds the overlapping pairs of the particles selected from views and
// assigns a mid-phase to each admitted pair. It returns once every context is done.
func (bp *BroadPhase) ProduceOverlaps(dt float64, views *Views, allocator *ConstraintAllocator, settings DetectorSettings, resim ResimCache) {
	numContexts := bp.config.NumContexts()
	bp.resetContexts(numContexts, allocator, settings)

	query := newSpatialQuery(bp.Index)
	if !query.valid() {
		if _, ok := bp.limiter.Allow(categoryMissingIndex); ok {
			bp.logger.Warning().
				Str("category", categoryMissingIndex).
				Log("broad-phase has no spatial index, no overlaps produced")
		}
		return
	}

	resimming := resim != nil && resim.IsResimming()
	view := SelectParticleView(views, resim)
	admission := bp.admission()
	ignoreOneWay := bp.config.IgnoreOneWayPairs

	n := view.Len()
	batchSize := max(ceilDiv(n, numContexts), bp.config.SmallBatchSize)
	numBatches := ceilDiv(n, batchSize)

	chains := make([]*task.Chain[*Context], numContexts)
	for i, c := range bp.Contexts() {
		chains[i] = task.NewChain(c)
	}
	for b := 0; b < numBatches; b++ {
		begin := b * batchSize
		end := min(begin+batchSize, n)
		chains[b%numContexts].Then(func(ctx *Context) *Context {
			return produceBatch(ctx, view, begin, end, query)
		})
	}
	tasks := make([]*task.Task, numContexts)
	for i, chain := range chains {
		chain.Then(func(ctx *Context) *Context {
			return assignMidPhases(ctx, admission, resimming, ignoreOneWay)
		})
		tasks[i] = chain.Task()
	}
	task.WaitAll(tasks...)
	for i, chain := range chains {
		bp.contexts[i] = chain.Wait()
	}

	for _, c := range bp.Contexts() {
		bp.stats.NumBroadPhasePairs += len(c.Overlaps)
		bp.stats.NumAdmittedPairs += c.NumAdmitted()
		bp.stats.NumMidPhases += len(c.MidPhases)
		bp.stats.NumNewMidPhases += c.Collision.Allocator.NumNewMidPhases()
	}

	if bp.config.ValidateOverlaps {
		bp.validateOverlaps()
	}
	if bp.config.EnableRedistribution {
		bp.stats.NumRedistributed = Redistribute(bp.Contexts())
	}
	allocator.ProcessNewItems()

	if b := bp.logger.Debug(); b.Enabled() {
		b.Int("particles", n).
			Int("contexts", numContexts).
			Int("pairs", bp.stats.NumBroadPhasePairs).
			Int("admitted", bp.stats.NumAdmittedPairs).
			Int("new_mid_phases", bp.stats.NumNewMidPhases).
			Int("redistributed", bp.stats.NumRedistributed).
			Bool("resimming", resimming).
			Log("overlaps produced")
	}
}

// ProduceCollisions launches the narrow-phase of every non-empty context. It does not
// wait; GatherConstraints does.
func (bp *BroadPhase) ProduceCollisions(dt float64) {
	bp.narrow = bp.narrow[:0]
	for _, c := range bp.Contexts() {
		if len(c.MidPhases) == 0 {
			bp.narrow = append(bp.narrow, nil)
			continue
		}
		bp.narrow = append(bp.narrow, task.Launch(func() {
			generateCollisions(c, dt)
		}))
	}
}

func generateCollisions(ctx *Context, dt float64) {
	mps := ctx.MidPhases
	expansion := ctx.Collision.Settings.BoundsExpansion
	for i := 0; i < len(mps) && i < prefetchLookahead; i++ {
		mps[i].CachePrefetch()
	}
	for i, mp := range mps {
		if j := i + prefetchLookahead; j < len(mps) {
			mps[j].CachePrefetch()
		}
		if mp.Particle0() == nil || mp.Particle1() == nil {
			continue
		}
		mp.GenerateCollisions(expansion, dt, &ctx.Collision)
	}
}

// narrowTask returns the narrow-phase task of context i, nil if it had nothing to do.
func (bp *BroadPhase) narrowTask(i int) *task.Task {
	if i < len(bp.narrow) {
		return bp.narrow[i]
	}
	return nil
}
