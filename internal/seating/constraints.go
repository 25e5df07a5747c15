package seating

import (
	"errors"
	"fmt"
)

// ViolationType separates heavily penalised hard rules from soft ones.
type ViolationType int

const (
	ViolationHard ViolationType = iota
	ViolationSoft
)

func (t ViolationType) String() string {
	if t == ViolationHard {
		return "hard"
	}
	return "soft"
}

// Violation describes one broken preference in a plan.
type Violation struct {
	Type         ViolationType
	Kind         PreferenceKind
	PreferenceID string
	Severity     int
	GuestIDs     []string
}

// ErrIncompletePlan is returned when a plan does not seat every guest of
// the problem at a known table.
var ErrIncompletePlan = errors.New("seating: plan does not seat every guest")

// layout is the per-table tally of one assignment.
type layout struct {
	count []int
	sideA []int
	sideB []int
}

func (p *Problem) tally(tableOf []int) layout {
	n := len(p.tables)
	l := layout{count: make([]int, n), sideA: make([]int, n), sideB: make([]int, n)}
	for g, t := range tableOf {
		l.count[t]++
		if p.sides[g] == SideB {
			l.sideB[t]++
		} else {
			l.sideA[t]++
		}
	}
	return l
}

func (p *Problem) hasHeadTable() bool {
	for _, t := range p.tables {
		if t.Head {
			return true
		}
	}
	return false
}

// effectiveHard reports whether a constraint is scored as hard under the
// problem's criteria.
func (p *Problem) effectiveHard(c *constraint) bool {
	return c.hard && p.criteria.RespectAllConstraints
}

// visitViolations calls fn once per violation record of the assignment.
// It allocates only for must_not_sit_together buckets.
func (p *Problem) visitViolations(tableOf []int, l layout, fn func(c *constraint, guests []int)) {
	head := p.hasHeadTable()
	for ci := range p.constraints {
		c := &p.constraints[ci]
		switch c.kind {
		case KindWheelchairAccessible:
			for _, g := range c.guests {
				if !p.tables[tableOf[g]].Accessible {
					fn(c, []int{g})
				}
			}
		case KindMustSitTogether:
			first := tableOf[c.guests[0]]
			for _, g := range c.guests[1:] {
				if tableOf[g] != first {
					fn(c, c.guests)
					break
				}
			}
		case KindMustNotSitTogether:
			used := make([]bool, len(c.guests))
			for i, gi := range c.guests {
				if used[i] {
					continue
				}
				bucket := []int{gi}
				for j := i + 1; j < len(c.guests); j++ {
					if !used[j] && tableOf[c.guests[j]] == tableOf[gi] {
						used[j] = true
						bucket = append(bucket, c.guests[j])
					}
				}
				if len(bucket) > 1 {
					fn(c, bucket)
				}
			}
		case KindNearHeadTable:
			if !head {
				continue
			}
			for _, g := range c.guests {
				if !p.tables[tableOf[g]].Head {
					fn(c, []int{g})
				}
			}
		case KindSameSideOnly:
			for _, g := range c.guests {
				t := tableOf[g]
				other := l.sideB[t]
				if p.sides[g] == SideB {
					other = l.sideA[t]
				}
				if other > 0 {
					fn(c, []int{g})
				}
			}
		}
	}
}

// Violations lists every preference the plan breaks.
func (p *Problem) Violations(plan *Plan) ([]Violation, error) {
	tableOf, err := p.encode(plan)
	if err != nil {
		return nil, err
	}
	var out []Violation
	p.visitViolations(tableOf, p.tally(tableOf), func(c *constraint, guests []int) {
		v := Violation{
			Type:         ViolationSoft,
			Kind:         c.kind,
			PreferenceID: c.id,
			Severity:     int(c.severity),
			GuestIDs:     make([]string, len(guests)),
		}
		if p.effectiveHard(c) {
			v.Type = ViolationHard
		}
		for i, g := range guests {
			v.GuestIDs[i] = p.guests[g].ID
		}
		out = append(out, v)
	})
	return out, nil
}

// encode turns a public plan into a table_of array.
func (p *Problem) encode(plan *Plan) ([]int, error) {
	if plan == nil || len(plan.Assignments) != len(p.guests) {
		return nil, ErrIncompletePlan
	}
	tableOf := make([]int, len(p.guests))
	for i, g := range p.guests {
		tid, ok := plan.Assignments[g.ID]
		if !ok {
			return nil, fmt.Errorf("%w: guest %q unassigned", ErrIncompletePlan, g.ID)
		}
		t, ok := p.tableIndex[tid]
		if !ok {
			return nil, fmt.Errorf("%w: guest %q at unknown table %q", ErrIncompletePlan, g.ID, tid)
		}
		tableOf[i] = t
	}
	return tableOf, nil
}

// decode turns a table_of array into a public plan without scoring it.
func (p *Problem) decode(tableOf []int) *Plan {
	m := make(map[string]string, len(tableOf))
	for g, t := range tableOf {
		m[p.guests[g].ID] = p.tables[t].ID
	}
	return &Plan{Assignments: m}
}
