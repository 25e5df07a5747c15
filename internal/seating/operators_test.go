package seating

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sixGuestsThreeTables(t *testing.T) *Problem {
	t.Helper()
	guests := make([]Guest, 6)
	for i := range guests {
		guests[i] = Guest{ID: fmt.Sprintf("g%d", i)}
	}
	tables := []Table{{ID: "T0", Capacity: 2}, {ID: "T1", Capacity: 2}, {ID: "T2", Capacity: 2}}
	return mustProblem(t, guests, tables, nil, DefaultCriteria())
}

func counts(tableOf []int, n int) []int {
	c := make([]int, n)
	for _, t := range tableOf {
		c[t]++
	}
	return c
}

func TestRepair_MovesExcessToFirstFreeTable(t *testing.T) {
	p := sixGuestsThreeTables(t)
	tableOf := []int{0, 0, 0, 0, 1, 2}
	require.True(t, p.overCapacity(tableOf))

	p.repair(tableOf)
	assert.Equal(t, []int{0, 0, 1, 2, 1, 2}, tableOf)
	assert.False(t, p.overCapacity(tableOf))
}

func TestRepair_LeavesFeasiblePlanUntouched(t *testing.T) {
	p := sixGuestsThreeTables(t)
	tableOf := []int{2, 1, 0, 2, 0, 1}
	p.repair(tableOf)
	assert.Equal(t, []int{2, 1, 0, 2, 0, 1}, tableOf)
}

func TestRepair_RandomPlansBecomeFeasible(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for round := 0; round < 200; round++ {
		k := 1 + rng.Intn(8)
		tables := make([]Table, k)
		seats := 0
		for i := range tables {
			tables[i] = Table{ID: fmt.Sprintf("T%d", i), Capacity: 1 + rng.Intn(6)}
			seats += tables[i].Capacity
		}
		n := rng.Intn(seats + 1)
		guests := make([]Guest, n)
		for i := range guests {
			guests[i] = Guest{ID: fmt.Sprintf("g%d", i)}
		}
		p := mustProblem(t, guests, tables, nil, DefaultCriteria())

		tableOf := make([]int, n)
		for g := range tableOf {
			// Skewed towards the first tables so most rounds start over capacity.
			tableOf[g] = rng.Intn(1 + rng.Intn(k))
		}
		before := append([]int(nil), tableOf...)
		p.repair(tableOf)

		require.Len(t, tableOf, n)
		for g, tbl := range tableOf {
			require.True(t, tbl >= 0 && tbl < k, "round %d guest %d", round, g)
		}
		require.False(t, p.overCapacity(tableOf), "round %d", round)
		if !p.overCapacity(before) {
			assert.Equal(t, before, tableOf, "round %d", round)
		}
	}
}

func TestCrossover_ChildrenAreComplementary(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := []int{0, 0, 1, 1, 2, 2}
	b := []int{2, 1, 0, 2, 1, 0}
	c1, c2 := crossover(rng, a, b)
	require.Len(t, c1, len(a))
	for g := range a {
		pair := []int{c1[g], c2[g]}
		assert.ElementsMatch(t, []int{a[g], b[g]}, pair, "guest %d", g)
	}
	assert.Equal(t, []int{0, 0, 1, 1, 2, 2}, a, "parents must not change")
}

func TestMutate_PreservesTableCounts(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tableOf := []int{0, 0, 1, 1, 2, 2, 2, 0, 1, 1}
	before := counts(tableOf, 3)
	for i := 0; i < 50; i++ {
		mutate(rng, tableOf, 1, 0.3)
		assert.Equal(t, before, counts(tableOf, 3))
	}
}

func TestMutate_ZeroRateIsNoop(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tableOf := []int{0, 1, 2, 0, 1, 2}
	mutate(rng, tableOf, 0, 0.5)
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, tableOf)

	single := []int{4}
	mutate(rng, single, 1, 1)
	assert.Equal(t, []int{4}, single)
}

func TestTournament_LargeSamplePicksFittest(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	pop := []individual{{fitness: 10}, {fitness: 900}, {fitness: 40}, {fitness: 5}}
	for i := 0; i < 20; i++ {
		assert.Equal(t, 1, tournament(rng, pop, 200))
	}
	parents := selectParents(rng, pop, 6, 1)
	assert.Len(t, parents, 6)
	for _, idx := range parents {
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, len(pop))
	}
}
