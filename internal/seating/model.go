package seating

import (
	"sort"
	"strings"
)

// DefaultAge is used for guests whose age was not recorded.
const DefaultAge = 30

// Side identifies which half of the wedding party a guest belongs to.
// The zero value is SideA, which is also the default for guests whose
// side is unknown.
type Side int

const (
	SideA Side = iota
	SideB
)

// ParseSide maps the snapshot spelling of a side to a Side. Anything it
// does not recognise falls back to SideA.
func ParseSide(s string) Side {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sideb", "b", "side_b", "groom":
		return SideB
	}
	return SideA
}

func (s Side) String() string {
	if s == SideB {
		return "sideB"
	}
	return "sideA"
}

// RelationKind tags a relationship link between two guests.
type RelationKind int

const (
	RelationUnknown RelationKind = iota
	RelationFamily
	RelationFriend
	RelationColleague
	RelationPlusOne
)

// ParseRelationKind converts a relationship type string. Unknown values
// map to RelationUnknown.
func ParseRelationKind(s string) RelationKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "family":
		return RelationFamily
	case "friend":
		return RelationFriend
	case "colleague":
		return RelationColleague
	case "plus_one", "plusone", "plus-one":
		return RelationPlusOne
	}
	return RelationUnknown
}

func (k RelationKind) String() string {
	switch k {
	case RelationFamily:
		return "family"
	case RelationFriend:
		return "friend"
	case RelationColleague:
		return "colleague"
	case RelationPlusOne:
		return "plus_one"
	}
	return "unknown"
}

// PreferenceKind tags a seating preference record.
type PreferenceKind int

const (
	KindUnknown PreferenceKind = iota
	KindWheelchairAccessible
	KindMustSitTogether
	KindMustNotSitTogether
	KindNearHeadTable
	KindSameSideOnly
)

// ParsePreferenceKind converts a preference type string. Unknown values
// map to KindUnknown and are dropped by NewProblem.
func ParsePreferenceKind(s string) PreferenceKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wheelchair_accessible":
		return KindWheelchairAccessible
	case "must_sit_together":
		return KindMustSitTogether
	case "must_not_sit_together":
		return KindMustNotSitTogether
	case "near_head_table":
		return KindNearHeadTable
	case "same_side_only":
		return KindSameSideOnly
	}
	return KindUnknown
}

func (k PreferenceKind) String() string {
	switch k {
	case KindWheelchairAccessible:
		return "wheelchair_accessible"
	case KindMustSitTogether:
		return "must_sit_together"
	case KindMustNotSitTogether:
		return "must_not_sit_together"
	case KindNearHeadTable:
		return "near_head_table"
	case KindSameSideOnly:
		return "same_side_only"
	}
	return "unknown"
}

// minGuests is the number of known guests a preference of this kind
// needs before it can be evaluated at all.
func (k PreferenceKind) minGuests() int {
	switch k {
	case KindMustSitTogether, KindMustNotSitTogether:
		return 2
	}
	return 1
}

// Relation links a guest to another guest by identifier.
type Relation struct {
	GuestID string
	Kind    RelationKind
}

// Guest is an immutable optimizer input. Age 0 means unknown.
type Guest struct {
	ID                 string
	Name               string
	Age                int
	Side               Side
	NeedsAccessibility bool
	Relations          []Relation
}

func (g Guest) age() float64 {
	if g.Age <= 0 {
		return DefaultAge
	}
	return float64(g.Age)
}

// Table is an immutable optimizer input. Head marks the head table used
// by near_head_table preferences.
type Table struct {
	ID         string
	Capacity   int
	Accessible bool
	Head       bool
}

// Preference is a constraint record over a set of guests. Severity is
// clamped to [0,100].
type Preference struct {
	ID       string
	Kind     PreferenceKind
	GuestIDs []string
	Hard     bool
	Severity int
}

// Criteria toggles the soft scoring terms of the fitness function.
type Criteria struct {
	PrioritizeFamilyGroups  bool
	MixSides                bool
	BalanceAges             bool
	MinimizeEmptySeats      bool
	PreferEvenDistribution  bool
	PrioritizeAccessibility bool
	RespectAllConstraints   bool
}

// DefaultCriteria returns the criteria a planner gets without touching
// any setting.
func DefaultCriteria() Criteria {
	return Criteria{
		PrioritizeFamilyGroups:  true,
		MixSides:                true,
		BalanceAges:             false,
		MinimizeEmptySeats:      true,
		PreferEvenDistribution:  true,
		PrioritizeAccessibility: true,
		RespectAllConstraints:   true,
	}
}

// Plan is a complete guest to table assignment with its score.
type Plan struct {
	Assignments map[string]string // guest id -> table id
	Fitness     float64
	Breakdown   Breakdown
}

// TableOf returns the table a guest is seated at.
func (p *Plan) TableOf(guestID string) (string, bool) {
	t, ok := p.Assignments[guestID]
	return t, ok
}

// Roster groups the assignment by table, guest ids sorted.
func (p *Plan) Roster() map[string][]string {
	out := make(map[string][]string)
	for g, t := range p.Assignments {
		out[t] = append(out[t], g)
	}
	for _, ids := range out {
		sort.Strings(ids)
	}
	return out
}
