package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/iliyamo/seating-planner/internal/model"
	"github.com/iliyamo/seating-planner/internal/seating"
)

func idString(id uint64) string { return strconv.FormatUint(id, 10) }

// ToCriteria converts stored criteria into optimizer criteria.
func ToCriteria(c model.Criteria) seating.Criteria {
	return seating.Criteria{
		PrioritizeFamilyGroups:  c.PrioritizeFamilyGroups,
		MixSides:                c.MixSides,
		BalanceAges:             c.BalanceAges,
		MinimizeEmptySeats:      c.MinimizeEmptySeats,
		PreferEvenDistribution:  c.PreferEvenDistribution,
		PrioritizeAccessibility: c.PrioritizeAccessibility,
		RespectAllConstraints:   c.RespectAllConstraints,
	}
}

// FromCriteria is the inverse of ToCriteria.
func FromCriteria(c seating.Criteria) model.Criteria {
	return model.Criteria{
		PrioritizeFamilyGroups:  c.PrioritizeFamilyGroups,
		MixSides:                c.MixSides,
		BalanceAges:             c.BalanceAges,
		MinimizeEmptySeats:      c.MinimizeEmptySeats,
		PreferEvenDistribution:  c.PreferEvenDistribution,
		PrioritizeAccessibility: c.PrioritizeAccessibility,
		RespectAllConstraints:   c.RespectAllConstraints,
	}
}

// buildInput turns stored rows into the optimizer's read-only snapshot.
func buildInput(ev *model.Event, guests []*model.Guest, tables []*model.DiningTable, prefs []*model.Preference) seating.Input {
	in := seating.Input{
		Guests:      make([]seating.Guest, 0, len(guests)),
		Tables:      make([]seating.Table, 0, len(tables)),
		Preferences: make([]seating.Preference, 0, len(prefs)),
		Criteria:    ToCriteria(ev.Criteria),
	}
	for _, g := range guests {
		sg := seating.Guest{
			ID:                 idString(g.ID),
			Name:               g.Name,
			Age:                g.Age,
			Side:               seating.ParseSide(g.Side),
			NeedsAccessibility: g.NeedsAccessibility,
		}
		for _, l := range g.Links {
			sg.Relations = append(sg.Relations, seating.Relation{
				GuestID: idString(l.RelatedID),
				Kind:    seating.ParseRelationKind(l.Kind),
			})
		}
		in.Guests = append(in.Guests, sg)
	}
	for _, t := range tables {
		in.Tables = append(in.Tables, seating.Table{
			ID:         idString(t.ID),
			Capacity:   t.Capacity,
			Accessible: t.Accessible,
			Head:       t.Head,
		})
	}
	for _, p := range prefs {
		sp := seating.Preference{
			ID:       idString(p.ID),
			Kind:     seating.ParsePreferenceKind(p.Kind),
			Hard:     p.Hard,
			Severity: p.Severity,
			GuestIDs: make([]string, len(p.GuestIDs)),
		}
		for i, id := range p.GuestIDs {
			sp.GuestIDs[i] = idString(id)
		}
		in.Preferences = append(in.Preferences, sp)
	}
	return in
}

// toSeatingPlan converts an optimizer result into its persisted form.
// Assignments are ordered by guest id.
func toSeatingPlan(eventID uint64, jobID string, res *seating.Result) (*model.SeatingPlan, error) {
	bd, err := json.Marshal(res.Plan.Breakdown)
	if err != nil {
		return nil, err
	}
	sp := &model.SeatingPlan{
		EventID:     eventID,
		JobID:       jobID,
		Fitness:     res.Plan.Fitness,
		Breakdown:   bd,
		Generations: res.Generations,
		StopReason:  string(res.StopReason),
		Seed:        res.Seed,
		ElapsedMs:   res.Elapsed.Milliseconds(),
		Assignments: make([]model.Assignment, 0, len(res.Plan.Assignments)),
	}
	for gid, tid := range res.Plan.Assignments {
		g, err := strconv.ParseUint(gid, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("guest id %q: %w", gid, err)
		}
		t, err := strconv.ParseUint(tid, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("table id %q: %w", tid, err)
		}
		sp.Assignments = append(sp.Assignments, model.Assignment{GuestID: g, TableID: t})
	}
	sortAssignments(sp.Assignments)
	return sp, nil
}

func sortAssignments(as []model.Assignment) {
	sort.Slice(as, func(i, j int) bool { return as[i].GuestID < as[j].GuestID })
}
