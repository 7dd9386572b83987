package broadphase

import (
	"sync/atomic"

	"golang.org/x/exp/slices"

	"github.com/setanarut/broadphase/utils/task"
)

type constraintBatch struct {
	list []*CollisionConstraint
}

// GatherConstraints waits for the narrow-phase and merges the constraints activated by
// every context into one list, stored in context 0 and handed to the allocator.
//
// In deterministic mode the result is sorted by SortKey, so it does not depend on the
// number of contexts or on scheduling. Otherwise the order is unspecified.
func (bp *BroadPhase) GatherConstraints(deterministic bool) []*CollisionConstraint {
	n := bp.numActive
	if n == 0 || bp.allocator == nil {
		return nil
	}

	var result []*CollisionConstraint
	if deterministic {
		result = bp.gatherSorted(n)
	} else {
		result = bp.gatherTree(n)
	}

	for i := 1; i < n; i++ {
		c := bp.allocator.Context(i)
		c.newConstraints = c.newConstraints[:0]
	}
	bp.allocator.Context(0).newConstraints = result
	bp.allocator.AddActiveConstraints(result)
	bp.stats.NumConstraints = len(result)
	return result
}

// gatherSorted sorts each context's list, then pairs up the sorted batches through a
// single slot: a batch either parks itself in the empty slot, or takes the parked batch,
// merges with it and tries again. The merge that leaves one batch alive ends the loop.
func (bp *BroadPhase) gatherSorted(n int) []*CollisionConstraint {
	var (
		slot      atomic.Pointer[constraintBatch]
		remaining atomic.Int32
		final     *constraintBatch
	)
	remaining.Store(int32(n))

	tasks := make([]*task.Task, n)
	for i := range n {
		alloc := bp.allocator.Context(i)
		tasks[i] = task.Launch(func() {
			list := alloc.NewConstraints()
			slices.SortStableFunc(list, func(a, b *CollisionConstraint) int {
				return a.SortKey.Compare(b.SortKey)
			})
			batch := &constraintBatch{list: list}
			for {
				if slot.CompareAndSwap(nil, batch) {
					return
				}
				other := slot.Swap(nil)
				if other == nil {
					continue
				}
				batch = &constraintBatch{list: mergeConstraints(other.list, batch.list)}
				if remaining.Add(-1) == 1 {
					final = batch
					return
				}
			}
		}, bp.narrowTask(i))
	}
	task.WaitAll(tasks...)

	if final == nil {
		// A single context never merges; its batch is parked in the slot.
		final = slot.Load()
	}
	if final == nil {
		return nil
	}
	return final.list
}

// mergeConstraints merges two lists sorted by SortKey. Equal keys keep a before b.
func mergeConstraints(a, b []*CollisionConstraint) []*CollisionConstraint {
	out := make([]*CollisionConstraint, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if b[j].SortKey.Less(a[i].SortKey) {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// gatherTree concatenates the lists with a binary tree of tasks, ceil(log2(n)) deep.
func (bp *BroadPhase) gatherTree(n int) []*CollisionConstraint {
	lists := make([][]*CollisionConstraint, n)
	tasks := make([]*task.Task, n)
	for i := range n {
		alloc := bp.allocator.Context(i)
		tasks[i] = task.Launch(func() {
			lists[i] = alloc.NewConstraints()
		}, bp.narrowTask(i))
	}
	for stride := 1; stride < n; stride *= 2 {
		for i := 0; i+stride < n; i += 2 * stride {
			j := i + stride
			tasks[i] = task.Launch(func() {
				lists[i] = append(lists[i], lists[j]...)
			}, tasks[i], tasks[j])
		}
	}
	task.WaitAll(tasks[0])
	return lists[0]
}
