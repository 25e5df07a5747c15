// Package seating assigns wedding guests to tables.
//
// The optimizer is a genetic search over complete assignments. Guests and
// tables are held in an immutable arena (Problem) and addressed by small
// integer handles; a candidate plan is a table_of array indexed by guest
// handle. The pipeline is a set of pure steps composed by a thin driver:
//
//	initialPopulation -> [evaluate -> sort -> elite + select/crossover/mutate/repair]* -> best plan
//
// Hard rules (table capacity, accessibility) and soft preferences (keeping
// relationship groups together, mixing sides, balancing ages, using seats
// evenly) are folded into a single fitness score starting at BaseScore.
// Capacity is never violated in a plan that leaves an operator: repair runs
// after every crossover and mutation.
//
// All randomness flows from one seeded *rand.Rand owned by the driver, so a
// run with a fixed Config.Seed is replayable. Fitness evaluation is pure and
// runs concurrently across Config.Workers goroutines.
package seating
