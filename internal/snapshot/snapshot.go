// Package snapshot decodes guest, table and preference snapshots handed to
// the optimizer from outside the service: the CLI, the Lambda entry and the
// stateless optimize endpoint. Decoding is lenient: both snake_case and
// camelCase keys are accepted, numeric ids are stringified and missing
// optional fields take their documented defaults.
package snapshot

import (
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/iliyamo/seating-planner/internal/seating"
)

// ErrInvalidJSON is returned when the document is not valid JSON.
var ErrInvalidJSON = errors.New("snapshot: invalid JSON")

// Snapshot is a read-only copy of one event's seating inputs.
type Snapshot struct {
	Guests      []seating.Guest
	Tables      []seating.Table
	Preferences []seating.Preference
	Criteria    seating.Criteria
	// Skipped counts records dropped for lacking an id.
	Skipped int
}

// Input converts the snapshot into optimizer input.
func (s *Snapshot) Input() seating.Input {
	return seating.Input{
		Guests:      s.Guests,
		Tables:      s.Tables,
		Preferences: s.Preferences,
		Criteria:    s.Criteria,
	}
}

// Parse decodes a snapshot document.
func Parse(data []byte) (*Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	root := gjson.ParseBytes(data)
	s := &Snapshot{Criteria: parseCriteria(first(root, "criteria", "optimizationCriteria"))}

	first(root, "guests").ForEach(func(_, v gjson.Result) bool {
		g, ok := parseGuest(v)
		if !ok {
			s.Skipped++
			return true
		}
		s.Guests = append(s.Guests, g)
		return true
	})
	first(root, "tables").ForEach(func(_, v gjson.Result) bool {
		id := first(v, "id").String()
		if id == "" {
			s.Skipped++
			return true
		}
		s.Tables = append(s.Tables, seating.Table{
			ID:         id,
			Capacity:   int(first(v, "capacity", "seats").Int()),
			Accessible: first(v, "accessible", "wheelchair_accessible", "wheelchairAccessible", "isAccessible").Bool(),
			Head:       first(v, "head", "is_head", "isHead", "head_table", "headTable").Bool(),
		})
		return true
	})
	i := 0
	first(root, "preferences", "constraints").ForEach(func(_, v gjson.Result) bool {
		i++
		s.Preferences = append(s.Preferences, parsePreference(v, i))
		return true
	})
	return s, nil
}

func parseGuest(v gjson.Result) (seating.Guest, bool) {
	id := first(v, "id").String()
	if id == "" {
		return seating.Guest{}, false
	}
	g := seating.Guest{
		ID:                 id,
		Name:               first(v, "name", "display_name", "displayName").String(),
		Age:                int(first(v, "age").Int()),
		Side:               seating.ParseSide(first(v, "side").String()),
		NeedsAccessibility: first(v, "needs_accessibility", "needsAccessibility", "accessibility", "wheelchair").Bool(),
	}
	first(v, "relationships", "relations").ForEach(func(_, r gjson.Result) bool {
		other := first(r, "guest_id", "guestId", "id").String()
		if other == "" {
			return true
		}
		g.Relations = append(g.Relations, seating.Relation{
			GuestID: other,
			Kind:    seating.ParseRelationKind(first(r, "kind", "type").String()),
		})
		return true
	})
	return g, true
}

// parsePreference fills defaults: an id derived from the position when
// absent and a severity of 100 for hard and 50 for soft preferences.
func parsePreference(v gjson.Result, pos int) seating.Preference {
	p := seating.Preference{
		ID:   first(v, "id").String(),
		Kind: seating.ParsePreferenceKind(first(v, "kind", "type").String()),
	}
	if p.ID == "" {
		p.ID = "pref-" + strconv.Itoa(pos)
	}
	if h := first(v, "hard"); h.Exists() {
		p.Hard = h.Bool()
	} else {
		p.Hard = strings.EqualFold(first(v, "priority", "level").String(), "hard")
	}
	first(v, "guest_ids", "guestIds", "guests").ForEach(func(_, id gjson.Result) bool {
		if s := id.String(); s != "" {
			p.GuestIDs = append(p.GuestIDs, s)
		}
		return true
	})
	if sev := first(v, "severity", "weight"); sev.Exists() {
		p.Severity = int(sev.Int())
	} else if p.Hard {
		p.Severity = 100
	} else {
		p.Severity = 50
	}
	return p
}

// parseCriteria starts from seating.DefaultCriteria and overrides every
// flag present in the document.
func parseCriteria(v gjson.Result) seating.Criteria {
	c := seating.DefaultCriteria()
	if !v.IsObject() {
		return c
	}
	set := func(dst *bool, keys ...string) {
		if r := first(v, keys...); r.Exists() {
			*dst = r.Bool()
		}
	}
	set(&c.PrioritizeFamilyGroups, "prioritize_family_groups", "prioritizeFamilyGroups")
	set(&c.MixSides, "mix_sides", "mixSides")
	set(&c.BalanceAges, "balance_ages", "balanceAges")
	set(&c.MinimizeEmptySeats, "minimize_empty_seats", "minimizeEmptySeats")
	set(&c.PreferEvenDistribution, "prefer_even_distribution", "preferEvenDistribution")
	set(&c.PrioritizeAccessibility, "prioritize_accessibility", "prioritizeAccessibility")
	set(&c.RespectAllConstraints, "respect_all_constraints", "respectAllConstraints")
	return c
}

// first returns the first key of v that exists.
func first(v gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := v.Get(k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}
