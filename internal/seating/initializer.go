package seating

import "math/rand"

// individual is one candidate plan inside the optimizer.
type individual struct {
	tableOf []int
	fitness float64
	scored  bool
}

func (in individual) clone() individual {
	t := make([]int, len(in.tableOf))
	copy(t, in.tableOf)
	return individual{tableOf: t, fitness: in.fitness, scored: in.scored}
}

// initialPopulation builds size plans: the first round(size*smartFraction)
// (at least one) are group-aware, the rest random fills. The caller has
// already checked that the tables can seat everyone.
func (p *Problem) initialPopulation(rng *rand.Rand, size int, smartFraction float64) []individual {
	smart := int(float64(size)*smartFraction + 0.5)
	if smart < 1 {
		smart = 1
	}
	if smart > size {
		smart = size
	}
	pop := make([]individual, 0, size)
	for i := 0; i < smart; i++ {
		// The first smart plan keeps the deterministic group order; later
		// ones shuffle it so the heuristic seeds are not all identical.
		pop = append(pop, individual{tableOf: p.smartPlan(rng, i > 0)})
	}
	for len(pop) < size {
		pop = append(pop, individual{tableOf: p.randomPlan(rng)})
	}
	return pop
}

// smartPlan seats each relationship group whole at the smallest table that
// still has room for it, then places the remaining guests at the first
// table with a free seat. Groups that fit nowhere whole are placed member
// by member with the remaining guests.
func (p *Problem) smartPlan(rng *rand.Rand, shuffle bool) []int {
	tableOf := make([]int, len(p.guests))
	for i := range tableOf {
		tableOf[i] = -1
	}
	free := make([]int, len(p.capacity))
	copy(free, p.capacity)

	order := make([]int, len(p.groups))
	for i := range order {
		order[i] = i
	}
	if shuffle {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	for _, gi := range order {
		grp := p.groups[gi]
		best := -1
		for t, f := range free {
			if f >= len(grp) && (best < 0 || f < free[best]) {
				best = t
			}
		}
		if best < 0 {
			continue
		}
		for _, g := range grp {
			tableOf[g] = best
		}
		free[best] -= len(grp)
	}

	rest := make([]int, 0, len(p.guests))
	for g, t := range tableOf {
		if t < 0 {
			rest = append(rest, g)
		}
	}
	if shuffle {
		rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	}
	for _, g := range rest {
		tableOf[g] = firstFree(free)
		free[tableOf[g]]--
	}
	return tableOf
}

// randomPlan shuffles guests and tables and fills the tables in that
// order.
func (p *Problem) randomPlan(rng *rand.Rand) []int {
	tableOf := make([]int, len(p.guests))
	guests := rng.Perm(len(p.guests))
	tables := rng.Perm(len(p.tables))
	ti, used := 0, 0
	for _, g := range guests {
		for used >= p.capacity[tables[ti]] {
			ti++
			used = 0
		}
		tableOf[g] = tables[ti]
		used++
	}
	return tableOf
}

// firstFree returns the first table with a free seat. Running out of
// seats after the capacity precondition passed is a bug.
func firstFree(free []int) int {
	for t, f := range free {
		if f > 0 {
			return t
		}
	}
	panic("seating: no free seat left despite sufficient total capacity")
}
