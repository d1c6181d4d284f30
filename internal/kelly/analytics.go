package kelly

// WorstCaseOutcome is the per-company-independent worst-case aggregate
// described in spec.md §4.5: NOT the minimum over enumerated joint
// outcomes, but each company's own worst scenario combined as if they all
// happened together.
type WorstCaseOutcome struct {
	Probability               float64 `json:"probability"`
	PortfolioReturn           float64 `json:"portfolio_return"`
	ProbabilityWeightedReturn float64 `json:"probability_weighted_return"`
}

// ExpectedReturn is Σ_i f_i * Σ_s p_{i,s} * r_{i,s} — the fraction-weighted
// sum of each company's own expected return.
func ExpectedReturn(p Portfolio) float64 {
	var total float64
	for _, pc := range p.Companies {
		total += pc.Fraction * pc.Company.ExpectedReturn()
	}
	return total
}

// CumulativeProbabilityOfLoss sums the probability of every enumerated
// joint outcome whose weighted return is negative.
func CumulativeProbabilityOfLoss(p Portfolio) (float64, error) {
	outcomes, err := EnumerateOutcomes(p)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, o := range outcomes {
		if o.WeightedReturn < 0 {
			total += o.Probability
		}
	}
	return total, nil
}

// ComputeWorstCaseOutcome picks each company's single worst
// probability-weighted scenario, then aggregates them as if they all
// happened at once: joint probability is the product of those scenarios'
// own probabilities, portfolio return is the fraction-weighted sum of their
// scenario returns, and the probability-weighted return is the
// fraction-weighted sum of their probability-weighted returns. Panics on an
// empty portfolio — there is no worst case to speak of, and callers should
// never reach this with zero companies (see §9, exceptions / control flow).
func ComputeWorstCaseOutcome(p Portfolio) WorstCaseOutcome {
	if len(p.Companies) == 0 {
		panic("kelly: cannot compute a worst-case outcome for an empty portfolio")
	}

	var out WorstCaseOutcome
	jointProbability := 1.0

	for _, pc := range p.Companies {
		worst := pc.Company.Scenarios[0]
		worstPWR := worst.ProbabilityWeightedReturn(pc.Company.MarketCap)
		for _, s := range pc.Company.Scenarios[1:] {
			pwr := s.ProbabilityWeightedReturn(pc.Company.MarketCap)
			if pwr < worstPWR {
				worst = s
				worstPWR = pwr
			}
		}

		jointProbability *= worst.Probability
		out.PortfolioReturn += pc.Fraction * worst.Return(pc.Company.MarketCap)
		out.ProbabilityWeightedReturn += pc.Fraction * worstPWR
	}

	out.Probability = jointProbability
	return out
}
