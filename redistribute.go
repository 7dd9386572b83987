package broadphase

import (
	"golang.org/x/exp/slices"
)

// Redistribute moves mid-phases from the fullest contexts to the emptiest until the
// counts differ by at most one. Mid-phases are moved, never copied, and the total is
// unchanged. It returns the number moved.
//
// The balance counts mid-phases, not their cost.
func Redistribute(contexts []*Context) int {
	n := len(contexts)
	if n < 2 {
		return 0
	}
	total := 0
	for _, c := range contexts {
		total += len(c.MidPhases)
	}
	if total == 0 {
		return 0
	}

	targets := redistributionTargets(contexts, total)

	moved := 0
	dst := 0
	for src, s := range contexts {
		for len(s.MidPhases) > targets[src] {
			for dst < n && len(contexts[dst].MidPhases) >= targets[dst] {
				dst++
			}
			if dst == n {
				break
			}
			d := contexts[dst]
			k := min(len(s.MidPhases)-targets[src], targets[dst]-len(d.MidPhases))
			tail := s.MidPhases[len(s.MidPhases)-k:]
			d.MidPhases = append(d.MidPhases, tail...)
			clear(tail)
			s.MidPhases = s.MidPhases[:len(s.MidPhases)-k]
			moved += k
		}
	}
	return moved
}

// redistributionTargets gives every context total/n mid-phases, plus one for the
// total%n contexts that currently hold the most.
func redistributionTargets(contexts []*Context, total int) []int {
	n := len(contexts)
	base, extra := total/n, total%n
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return len(contexts[b].MidPhases) - len(contexts[a].MidPhases)
	})
	targets := make([]int, n)
	for rank, i := range order {
		targets[i] = base
		if rank < extra {
			targets[i]++
		}
	}
	return targets
}
