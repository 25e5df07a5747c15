package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"

	"github.com/iliyamo/seating-planner/internal/seating"
	"github.com/iliyamo/seating-planner/internal/snapshot"
)

// result is the JSON document printed with -json and returned by the
// Lambda handler.
type result struct {
	Assignments map[string]string   `json:"assignments"`
	Tables      map[string][]string `json:"tables"`
	Fitness     float64             `json:"fitness"`
	Breakdown   seating.Breakdown   `json:"breakdown"`
	Generations int                 `json:"generations"`
	StopReason  string              `json:"stopReason"`
	Seed        int64               `json:"seed"`
	TimeMs      int64               `json:"timeMs"`
	Skipped     int                 `json:"skipped,omitempty"`
}

func solve(ctx context.Context, data []byte, cfg seating.Config, log *zap.Logger) (*result, *snapshot.Snapshot, error) {
	snap, err := snapshot.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	res, err := seating.NewOptimizer(cfg, seating.WithLogger(log)).Run(ctx, snap.Input())
	if err != nil {
		return nil, snap, err
	}
	return &result{
		Assignments: res.Plan.Assignments,
		Tables:      res.Plan.Roster(),
		Fitness:     res.Plan.Fitness,
		Breakdown:   res.Plan.Breakdown,
		Generations: res.Generations,
		StopReason:  string(res.StopReason),
		Seed:        res.Seed,
		TimeMs:      res.Elapsed.Milliseconds(),
		Skipped:     snap.Skipped,
	}, snap, nil
}

// printReport writes the table roster followed by the score breakdown.
func printReport(w io.Writer, r *result, snap *snapshot.Snapshot) {
	names := make(map[string]string, len(snap.Guests))
	for _, g := range snap.Guests {
		names[g.ID] = g.Name
	}
	for _, t := range snap.Tables {
		seated := r.Tables[t.ID]
		flags := ""
		if t.Head {
			flags += " head"
		}
		if t.Accessible {
			flags += " accessible"
		}
		fmt.Fprintf(w, "%s (%d/%d%s)\n", t.ID, len(seated), t.Capacity, flags)
		sorted := append([]string(nil), seated...)
		sort.Strings(sorted)
		for _, id := range sorted {
			if n := names[id]; n != "" {
				fmt.Fprintf(w, "  %s  %s\n", id, n)
			} else {
				fmt.Fprintf(w, "  %s\n", id)
			}
		}
	}
	b := r.Breakdown
	fmt.Fprintf(w, "\nfitness %.2f after %d generations (%s, seed %d, %dms)\n",
		r.Fitness, r.Generations, r.StopReason, r.Seed, r.TimeMs)
	for _, row := range []struct {
		name string
		v    float64
	}{
		{"base", b.Base},
		{"hard constraints", b.HardPenalty},
		{"soft constraints", b.SoftPenalty},
		{"empty seats", b.EmptySeats},
		{"distribution", b.Distribution},
		{"group cohesion", b.Cohesion},
		{"side mixing", b.SideMixing},
		{"age balance", b.AgeBalance},
		{"accessibility", b.Accessibility},
	} {
		fmt.Fprintf(w, "  %-18s %9.2f\n", row.name, row.v)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(w, "\n%d records without id were skipped\n", r.Skipped)
	}
}
