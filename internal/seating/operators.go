package seating

import (
	"fmt"
	"math/rand"
)

// tournament samples k individuals uniformly (with replacement) and
// returns the index of the fittest. pop must be scored.
func tournament(rng *rand.Rand, pop []individual, k int) int {
	best := rng.Intn(len(pop))
	for i := 1; i < k; i++ {
		c := rng.Intn(len(pop))
		if pop[c].fitness > pop[best].fitness {
			best = c
		}
	}
	return best
}

// selectParents runs n tournaments.
func selectParents(rng *rand.Rand, pop []individual, n, k int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = tournament(rng, pop, k)
	}
	return out
}

// crossover is uniform: every guest flips a fair coin to take its table
// from one parent, the sibling takes it from the other.
func crossover(rng *rand.Rand, a, b []int) ([]int, []int) {
	c1 := make([]int, len(a))
	c2 := make([]int, len(a))
	for g := range a {
		if rng.Intn(2) == 0 {
			c1[g], c2[g] = a[g], b[g]
		} else {
			c1[g], c2[g] = b[g], a[g]
		}
	}
	return c1, c2
}

// mutate, with probability rate, swaps the tables of two distinct random
// guests, repeated max(1, fraction*len) times. Swaps keep table counts
// unchanged.
func mutate(rng *rand.Rand, tableOf []int, rate, fraction float64) {
	n := len(tableOf)
	if n < 2 || rng.Float64() >= rate {
		return
	}
	swaps := int(float64(n) * fraction)
	if swaps < 1 {
		swaps = 1
	}
	for s := 0; s < swaps; s++ {
		i := rng.Intn(n)
		j := rng.Intn(n - 1)
		if j >= i {
			j++
		}
		tableOf[i], tableOf[j] = tableOf[j], tableOf[i]
	}
}

// repair restores the capacity invariant in place. Each over-full table
// drops the guests at the end of its roster (roster order is guest
// order); the dropped guests are then placed, in order, at the first
// table with a free seat.
func (p *Problem) repair(tableOf []int) {
	rosters := make([][]int, len(p.tables))
	for g, t := range tableOf {
		rosters[t] = append(rosters[t], g)
	}
	var excess []int
	free := make([]int, len(p.tables))
	for t, r := range rosters {
		if over := len(r) - p.capacity[t]; over > 0 {
			excess = append(excess, r[len(r)-over:]...)
			free[t] = 0
		} else {
			free[t] = -over
		}
	}
	for _, g := range excess {
		t := -1
		for i, f := range free {
			if f > 0 {
				t = i
				break
			}
		}
		if t < 0 {
			panic(fmt.Sprintf("seating: repair could not place guest %q", p.guests[g].ID))
		}
		tableOf[g] = t
		free[t]--
	}
}

// overCapacity reports whether any table holds more guests than seats.
func (p *Problem) overCapacity(tableOf []int) bool {
	count := make([]int, len(p.tables))
	for _, t := range tableOf {
		count[t]++
		if count[t] > p.capacity[t] {
			return true
		}
	}
	return false
}
