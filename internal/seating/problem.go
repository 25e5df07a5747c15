package seating

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// constraint is a Preference resolved to guest handles.
type constraint struct {
	id       string
	kind     PreferenceKind
	guests   []int
	hard     bool
	severity float64
}

// Problem is the immutable arena the optimizer works on: guests and
// tables addressed by small integer handles, the relationship groups and
// the resolved constraint list. It is safe for concurrent reads.
type Problem struct {
	guests   []Guest
	tables   []Table
	criteria Criteria

	guestIndex map[string]int
	tableIndex map[string]int

	ages     []float64
	sides    []Side
	capacity []int

	totalCapacity int

	groups      [][]int // connected relationship groups with two or more members
	constraints []constraint
}

// NewProblem validates the inputs and builds the arena. Relationship links
// and preferences that reference unknown guests are dropped and logged;
// they never fail the call. Capacity sufficiency is not checked here, see
// CheckCapacity.
func NewProblem(guests []Guest, tables []Table, prefs []Preference, criteria Criteria, logger *zap.Logger) (*Problem, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Problem{
		guests:     guests,
		tables:     tables,
		criteria:   criteria,
		guestIndex: make(map[string]int, len(guests)),
		tableIndex: make(map[string]int, len(tables)),
		ages:       make([]float64, len(guests)),
		sides:      make([]Side, len(guests)),
		capacity:   make([]int, len(tables)),
	}
	for i, g := range guests {
		if g.ID == "" {
			return nil, fmt.Errorf("guest #%d: %w", i, ErrEmptyID)
		}
		if _, dup := p.guestIndex[g.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateGuest, g.ID)
		}
		p.guestIndex[g.ID] = i
		p.ages[i] = g.age()
		p.sides[i] = g.Side
	}
	for i, t := range tables {
		if t.ID == "" {
			return nil, fmt.Errorf("table #%d: %w", i, ErrEmptyID)
		}
		if t.Capacity <= 0 {
			return nil, fmt.Errorf("%w: table %q has capacity %d", ErrInvalidTable, t.ID, t.Capacity)
		}
		if _, dup := p.tableIndex[t.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTable, t.ID)
		}
		p.tableIndex[t.ID] = i
		p.capacity[i] = t.Capacity
		p.totalCapacity += t.Capacity
	}

	p.groups = p.buildGroups(logger)
	p.constraints = p.resolvePreferences(prefs, logger)
	return p, nil
}

// GuestCount returns the number of guests in the arena.
func (p *Problem) GuestCount() int { return len(p.guests) }

// TableCount returns the number of tables in the arena.
func (p *Problem) TableCount() int { return len(p.tables) }

// TotalCapacity is the sum of all table capacities.
func (p *Problem) TotalCapacity() int { return p.totalCapacity }

// Criteria returns the scoring criteria the problem was built with.
func (p *Problem) Criteria() Criteria { return p.criteria }

// Groups returns the relationship groups as guest ids, largest first.
func (p *Problem) Groups() [][]string {
	out := make([][]string, len(p.groups))
	for i, grp := range p.groups {
		ids := make([]string, len(grp))
		for j, g := range grp {
			ids[j] = p.guests[g].ID
		}
		out[i] = ids
	}
	return out
}

// buildGroups partitions guests into connected components of the
// relationship graph using a disjoint set with path compression and union
// by rank. Singletons are not groups.
func (p *Problem) buildGroups(logger *zap.Logger) [][]int {
	n := len(p.guests)
	parent := make([]int, n)
	rank := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(u int) int {
		for parent[u] != u {
			parent[u] = parent[parent[u]]
			u = parent[u]
		}
		return u
	}
	union := func(u, v int) {
		ru, rv := find(u), find(v)
		if ru == rv {
			return
		}
		switch {
		case rank[ru] < rank[rv]:
			parent[ru] = rv
		case rank[ru] > rank[rv]:
			parent[rv] = ru
		default:
			parent[rv] = ru
			rank[ru]++
		}
	}

	for i, g := range p.guests {
		for _, rel := range g.Relations {
			j, ok := p.guestIndex[rel.GuestID]
			if !ok {
				logger.Warn("relationship references unknown guest",
					zap.String("guest_id", g.ID),
					zap.String("related_id", rel.GuestID),
					zap.Stringer("kind", rel.Kind))
				continue
			}
			if j != i {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int][]int)
	for i := 0; i < n; i++ {
		r := find(i)
		byRoot[r] = append(byRoot[r], i)
	}
	groups := make([][]int, 0, len(byRoot))
	for _, members := range byRoot {
		if len(members) > 1 {
			groups = append(groups, members)
		}
	}
	// Members are already ascending; order groups by size then first member
	// so the result does not depend on map iteration.
	sort.Slice(groups, func(a, b int) bool {
		if len(groups[a]) != len(groups[b]) {
			return len(groups[a]) > len(groups[b])
		}
		return groups[a][0] < groups[b][0]
	})
	return groups
}

func clampSeverity(s int) float64 {
	switch {
	case s < 0:
		return 0
	case s > 100:
		return 100
	}
	return float64(s)
}

// resolvePreferences maps preference guest ids to handles. A preference
// that names an unknown guest, or has an unknown kind, is ignored.
// Accessibility-flagged guests not covered by an explicit
// wheelchair_accessible preference get an implicit hard one when the
// criteria prioritize accessibility.
func (p *Problem) resolvePreferences(prefs []Preference, logger *zap.Logger) []constraint {
	out := make([]constraint, 0, len(prefs))
	covered := make([]bool, len(p.guests))

	for _, pref := range prefs {
		if pref.Kind == KindUnknown {
			logger.Warn("preference has unknown kind, ignoring", zap.String("preference_id", pref.ID))
			continue
		}
		handles := make([]int, 0, len(pref.GuestIDs))
		seen := make(map[int]bool, len(pref.GuestIDs))
		unknown := ""
		for _, id := range pref.GuestIDs {
			h, ok := p.guestIndex[id]
			if !ok {
				unknown = id
				break
			}
			if !seen[h] {
				seen[h] = true
				handles = append(handles, h)
			}
		}
		if unknown != "" {
			logger.Warn("preference references unknown guest, ignoring",
				zap.String("preference_id", pref.ID),
				zap.Stringer("kind", pref.Kind),
				zap.String("guest_id", unknown))
			continue
		}
		if len(handles) < pref.Kind.minGuests() {
			logger.Warn("preference names too few guests, ignoring",
				zap.String("preference_id", pref.ID),
				zap.Stringer("kind", pref.Kind),
				zap.Int("guests", len(handles)))
			continue
		}
		if pref.Kind == KindWheelchairAccessible {
			for _, h := range handles {
				covered[h] = true
			}
		}
		out = append(out, constraint{
			id:       pref.ID,
			kind:     pref.Kind,
			guests:   handles,
			hard:     pref.Hard,
			severity: clampSeverity(pref.Severity),
		})
	}

	if p.criteria.PrioritizeAccessibility {
		for i, g := range p.guests {
			if g.NeedsAccessibility && !covered[i] {
				out = append(out, constraint{
					id:       "implicit:" + g.ID,
					kind:     KindWheelchairAccessible,
					guests:   []int{i},
					hard:     true,
					severity: 100,
				})
			}
		}
	}
	return out
}
