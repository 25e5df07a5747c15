package seating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// familyScenario is four guests where G1 and G2 are family, seated at two
// tables of two.
func familyScenario() ([]Guest, []Table) {
	guests := []Guest{
		{ID: "G1", Name: "Ana", Relations: []Relation{{GuestID: "G2", Kind: RelationFamily}}},
		{ID: "G2", Name: "Ben"},
		{ID: "G3", Name: "Cleo"},
		{ID: "G4", Name: "Dev"},
	}
	tables := []Table{{ID: "T1", Capacity: 2}, {ID: "T2", Capacity: 2}}
	return guests, tables
}

func mustProblem(t *testing.T, guests []Guest, tables []Table, prefs []Preference, crit Criteria) *Problem {
	t.Helper()
	p, err := NewProblem(guests, tables, prefs, crit, nil)
	require.NoError(t, err)
	return p
}

func TestNewProblem_Validation(t *testing.T) {
	tables := []Table{{ID: "T1", Capacity: 2}}

	_, err := NewProblem([]Guest{{ID: "a"}, {ID: "a"}}, tables, nil, DefaultCriteria(), nil)
	assert.ErrorIs(t, err, ErrDuplicateGuest)

	_, err = NewProblem([]Guest{{ID: ""}}, tables, nil, DefaultCriteria(), nil)
	assert.ErrorIs(t, err, ErrEmptyID)

	_, err = NewProblem(nil, []Table{{ID: "T1", Capacity: 0}}, nil, DefaultCriteria(), nil)
	assert.ErrorIs(t, err, ErrInvalidTable)

	_, err = NewProblem(nil, []Table{{ID: "T1", Capacity: 1}, {ID: "T1", Capacity: 3}}, nil, DefaultCriteria(), nil)
	assert.ErrorIs(t, err, ErrDuplicateTable)
}

func TestNewProblem_GroupsFollowRelationshipGraph(t *testing.T) {
	guests := []Guest{
		{ID: "a", Relations: []Relation{{GuestID: "b", Kind: RelationFamily}}},
		{ID: "b", Relations: []Relation{{GuestID: "c", Kind: RelationFriend}}},
		{ID: "c"},
		{ID: "d", Relations: []Relation{{GuestID: "e", Kind: RelationPlusOne}}},
		{ID: "e"},
		{ID: "f"},
		{ID: "g", Relations: []Relation{{GuestID: "g", Kind: RelationFamily}}},
	}
	p := mustProblem(t, guests, []Table{{ID: "T", Capacity: 10}}, nil, DefaultCriteria())

	assert.Equal(t, [][]string{{"a", "b", "c"}, {"d", "e"}}, p.Groups())
	assert.Equal(t, 7, p.GuestCount())
	assert.Equal(t, 10, p.TotalCapacity())
}

func TestNewProblem_UnknownReferencesAreLoggedAndIgnored(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	guests := []Guest{
		{ID: "a", Relations: []Relation{{GuestID: "ghost", Kind: RelationFamily}}},
		{ID: "b"},
	}
	prefs := []Preference{
		{ID: "p1", Kind: KindMustSitTogether, GuestIDs: []string{"a", "ghost"}, Severity: 50},
		{ID: "p2", Kind: KindMustSitTogether, GuestIDs: []string{"a", "b"}, Severity: 50},
		{ID: "p3", Kind: KindUnknown, GuestIDs: []string{"a"}},
		{ID: "p4", Kind: KindMustNotSitTogether, GuestIDs: []string{"a", "a"}},
	}
	p, err := NewProblem(guests, []Table{{ID: "T", Capacity: 2}}, prefs, DefaultCriteria(), zap.New(core))
	require.NoError(t, err)

	require.Len(t, p.constraints, 1)
	assert.Equal(t, "p2", p.constraints[0].id)
	assert.Empty(t, p.Groups())
	assert.Equal(t, 4, logs.Len())
	assert.Equal(t, 1, logs.FilterMessage("preference references unknown guest, ignoring").Len())
	assert.Equal(t, 1, logs.FilterMessage("relationship references unknown guest").Len())
}

func TestNewProblem_ImplicitAccessibility(t *testing.T) {
	guests := []Guest{{ID: "a", NeedsAccessibility: true}, {ID: "b", NeedsAccessibility: true}}
	prefs := []Preference{{ID: "p", Kind: KindWheelchairAccessible, GuestIDs: []string{"b"}, Severity: 40}}
	tables := []Table{{ID: "T", Capacity: 2}}

	p := mustProblem(t, guests, tables, prefs, DefaultCriteria())
	require.Len(t, p.constraints, 2)
	assert.Equal(t, "implicit:a", p.constraints[1].id)
	assert.True(t, p.constraints[1].hard)
	assert.Equal(t, 100.0, p.constraints[1].severity)

	crit := DefaultCriteria()
	crit.PrioritizeAccessibility = false
	p = mustProblem(t, guests, tables, prefs, crit)
	assert.Len(t, p.constraints, 1)
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, SideB, ParseSide("sideB"))
	assert.Equal(t, SideA, ParseSide("sideA"))
	assert.Equal(t, SideA, ParseSide(""))
	assert.Equal(t, RelationPlusOne, ParseRelationKind("plus_one"))
	assert.Equal(t, RelationUnknown, ParseRelationKind("neighbour"))
	assert.Equal(t, KindMustNotSitTogether, ParsePreferenceKind("must_not_sit_together"))
	assert.Equal(t, KindUnknown, ParsePreferenceKind("vip"))
	assert.Equal(t, "wheelchair_accessible", KindWheelchairAccessible.String())
}

func TestCheckCapacity(t *testing.T) {
	tables := []Table{{ID: "T1", Capacity: 2}, {ID: "T2", Capacity: 3}}
	assert.NoError(t, CheckCapacity(5, tables))

	err := CheckCapacity(6, tables)
	require.ErrorIs(t, err, ErrInsufficientCapacity)
	var capErr *InsufficientCapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 6, capErr.Guests)
	assert.Equal(t, 5, capErr.Capacity)
}
