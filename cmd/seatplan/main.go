//go:build !lambda

// Command seatplan optimizes the seating of a JSON snapshot file and
// prints the plan.
//
//	seatplan [-seed N] [-json] [-timeout 30s] [-v] snapshot.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/seating-planner/internal/logging"
	"github.com/iliyamo/seating-planner/internal/seating"
)

func main() {
	seed := flag.Int64("seed", 0, "random seed (0 = time based)")
	asJSON := flag.Bool("json", false, "print the plan as JSON")
	timeout := flag.Duration("timeout", 30*time.Second, "stop the search after this long")
	generations := flag.Int("generations", 0, "maximum generations (0 = default)")
	verbose := flag.Bool("v", false, "log progress to stderr")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] snapshot.json\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	log := zap.NewNop()
	if *verbose {
		log = logging.Must("dev", "debug")
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	cfg := seating.DefaultConfig()
	cfg.Seed = *seed
	cfg.MaxGenerations = *generations
	res, snap, err := solve(ctx, data, cfg, log)
	var ce *seating.InsufficientCapacityError
	switch {
	case errors.As(err, &ce):
		fmt.Fprintf(os.Stderr, "not enough seats: %d guests, %d seats\n", ce.Guests, ce.Capacity)
		os.Exit(3)
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res)
		return
	}
	printReport(os.Stdout, res, snap)
}
