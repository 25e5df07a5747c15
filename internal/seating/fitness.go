package seating

import "math"

// Scoring weights. Penalties are negative contributions to BaseScore.
const (
	BaseScore = 1000.0

	hardPenalty         = -1000.0
	softPenalty         = -50.0
	emptySeatPenalty    = -10.0
	distributionPenalty = -20.0
	groupTogetherBonus  = 20.0
	groupSplitPenalty   = -2.0
	sideMixBonus        = 15.0
	ageBalanceNumerator = 100.0
	accessibilityBonus  = 50.0
)

// Breakdown lists the contribution of every scoring term. Total is the
// clamped fitness.
type Breakdown struct {
	Base          float64 `json:"base"`
	HardPenalty   float64 `json:"hard_penalty"`
	SoftPenalty   float64 `json:"soft_penalty"`
	EmptySeats    float64 `json:"empty_seats"`
	Distribution  float64 `json:"distribution"`
	Cohesion      float64 `json:"cohesion"`
	SideMixing    float64 `json:"side_mixing"`
	AgeBalance    float64 `json:"age_balance"`
	Accessibility float64 `json:"accessibility"`
	Total         float64 `json:"total"`
}

func (b *Breakdown) sum() float64 {
	return b.Base + b.HardPenalty + b.SoftPenalty + b.EmptySeats + b.Distribution +
		b.Cohesion + b.SideMixing + b.AgeBalance + b.Accessibility
}

// Evaluate scores a public plan. It returns ErrIncompletePlan when the
// plan does not cover the problem's guests.
func (p *Problem) Evaluate(plan *Plan) (Breakdown, error) {
	tableOf, err := p.encode(plan)
	if err != nil {
		return Breakdown{}, err
	}
	return p.evaluate(tableOf), nil
}

func (p *Problem) fitness(tableOf []int) float64 {
	return p.evaluate(tableOf).Total
}

// evaluate is the pure fitness function over a table_of array.
func (p *Problem) evaluate(tableOf []int) Breakdown {
	b := Breakdown{Base: BaseScore}
	if len(tableOf) == 0 {
		b.Total = BaseScore
		return b
	}
	crit := p.criteria
	l := p.tally(tableOf)

	accessViolated, accessTotal := false, false
	p.visitViolations(tableOf, l, func(c *constraint, _ []int) {
		w := c.severity / 100
		if p.effectiveHard(c) {
			b.HardPenalty += w * hardPenalty
		} else {
			b.SoftPenalty += w * softPenalty
		}
		if c.kind == KindWheelchairAccessible {
			accessViolated = true
		}
	})
	for i := range p.constraints {
		if p.constraints[i].kind == KindWheelchairAccessible {
			accessTotal = true
			break
		}
	}

	if crit.MinimizeEmptySeats {
		empty := 0
		for t, c := range l.count {
			if free := p.capacity[t] - c; free > 0 {
				empty += free
			}
		}
		b.EmptySeats = float64(empty) * emptySeatPenalty
	}

	if crit.PreferEvenDistribution {
		ratios := make([]float64, len(p.tables))
		for t, c := range l.count {
			ratios[t] = float64(c) / float64(p.capacity[t])
		}
		b.Distribution = distributionPenalty * stddev(ratios)
	}

	if crit.PrioritizeFamilyGroups {
		b.Cohesion = p.cohesion(tableOf)
	}

	if crit.MixSides {
		for t, c := range l.count {
			a, bb := l.sideA[t], l.sideB[t]
			if a == 0 || bb == 0 {
				continue
			}
			lo, hi := math.Min(float64(a), float64(bb)), math.Max(float64(a), float64(bb))
			b.SideMixing += sideMixBonus * lo / hi * float64(c)
		}
	}

	if crit.BalanceAges {
		b.AgeBalance = p.ageBalance(tableOf, l)
	}

	if crit.PrioritizeAccessibility && accessTotal && !accessViolated {
		b.Accessibility = accessibilityBonus
	}

	b.Total = math.Max(0, b.sum())
	return b
}

// cohesion rewards relationship groups seated at a single table and
// penalises each extra table a split group spans.
func (p *Problem) cohesion(tableOf []int) float64 {
	score := 0.0
	seen := make([]bool, len(p.tables))
	touched := make([]int, 0, 8)
	for _, grp := range p.groups {
		used := 0
		for _, g := range grp {
			t := tableOf[g]
			if !seen[t] {
				seen[t] = true
				touched = append(touched, t)
				used++
			}
		}
		if used == 1 {
			score += groupTogetherBonus * float64(len(grp))
		} else {
			score += groupSplitPenalty * float64(used-1)
		}
		for _, t := range touched {
			seen[t] = false
		}
		touched = touched[:0]
	}
	return score
}

// ageBalance adds 100/(1+variance) for every occupied table.
func (p *Problem) ageBalance(tableOf []int, l layout) float64 {
	n := len(p.tables)
	sum := make([]float64, n)
	sq := make([]float64, n)
	for g, t := range tableOf {
		a := p.ages[g]
		sum[t] += a
		sq[t] += a * a
	}
	score := 0.0
	for t, c := range l.count {
		if c == 0 {
			continue
		}
		mean := sum[t] / float64(c)
		variance := sq[t]/float64(c) - mean*mean
		if variance < 0 {
			variance = 0
		}
		score += ageBalanceNumerator / (1 + variance)
	}
	return score
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	v := 0.0
	for _, x := range xs {
		d := x - mean
		v += d * d
	}
	return math.Sqrt(v / float64(len(xs)))
}
