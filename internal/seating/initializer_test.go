package seating

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialPopulation_CompleteAndFeasible(t *testing.T) {
	p := sixGuestsThreeTables(t)
	rng := rand.New(rand.NewSource(1))

	pop := p.initialPopulation(rng, 30, 0.2)
	require.Len(t, pop, 30)
	for i, in := range pop {
		require.Len(t, in.tableOf, 6, "individual %d", i)
		assert.False(t, p.overCapacity(in.tableOf), "individual %d", i)
		for _, tbl := range in.tableOf {
			assert.GreaterOrEqual(t, tbl, 0)
			assert.Less(t, tbl, 3)
		}
	}
}

func TestInitialPopulation_AlwaysHasOneSmartPlan(t *testing.T) {
	guests, tables := familyScenario()
	p := mustProblem(t, guests, tables, nil, DefaultCriteria())
	rng := rand.New(rand.NewSource(99))

	pop := p.initialPopulation(rng, 3, 0.01)
	require.Len(t, pop, 3)
	// G1 and G2 form the only group; the first plan is the unshuffled
	// smart one and keeps them together.
	assert.Equal(t, pop[0].tableOf[0], pop[0].tableOf[1])
}

func TestSmartPlan_GroupAtSmallestFittingTable(t *testing.T) {
	guests := []Guest{
		{ID: "a", Relations: []Relation{{GuestID: "b", Kind: RelationFamily}, {GuestID: "c", Kind: RelationFamily}}},
		{ID: "b"},
		{ID: "c"},
		{ID: "d"},
		{ID: "e"},
	}
	tables := []Table{{ID: "big", Capacity: 6}, {ID: "small", Capacity: 3}}
	p := mustProblem(t, guests, tables, nil, DefaultCriteria())

	tableOf := p.smartPlan(rand.New(rand.NewSource(1)), false)
	assert.Equal(t, []int{1, 1, 1, 0, 0}, tableOf)
}

func TestSmartPlan_OversizedGroupIsSpread(t *testing.T) {
	guests := []Guest{
		{ID: "a", Relations: []Relation{{GuestID: "b"}, {GuestID: "c"}}},
		{ID: "b"},
		{ID: "c"},
	}
	tables := []Table{{ID: "T1", Capacity: 2}, {ID: "T2", Capacity: 2}}
	p := mustProblem(t, guests, tables, nil, DefaultCriteria())

	tableOf := p.smartPlan(rand.New(rand.NewSource(1)), false)
	assert.Equal(t, []int{0, 0, 1}, tableOf)
	assert.False(t, p.overCapacity(tableOf))
}

func TestRandomPlan_Feasible(t *testing.T) {
	guests := make([]Guest, 9)
	for i := range guests {
		guests[i] = Guest{ID: string(rune('a' + i))}
	}
	tables := []Table{{ID: "T1", Capacity: 4}, {ID: "T2", Capacity: 1}, {ID: "T3", Capacity: 5}}
	p := mustProblem(t, guests, tables, nil, DefaultCriteria())
	rng := rand.New(rand.NewSource(5))

	for i := 0; i < 25; i++ {
		tableOf := p.randomPlan(rng)
		assert.False(t, p.overCapacity(tableOf))
	}
}
