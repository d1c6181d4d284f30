package kelly

// EnumerateOutcomes produces every joint combination of one scenario per
// company, in deterministic mixed-radix order (an odometer over each
// company's scenario count, candidates ordered as in the portfolio). It
// errs with ErrCodeTooManyOutcomes when the product of scenario counts
// exceeds MaxOutcomes. An empty portfolio yields an empty, non-nil slice.
func EnumerateOutcomes(p Portfolio) ([]Outcome, error) {
	n := len(p.Companies)
	if n == 0 {
		return []Outcome{}, nil
	}

	counts := make([]int, n)
	total := 1
	for i, pc := range p.Companies {
		counts[i] = len(pc.Company.Scenarios)
		total *= counts[i]
	}

	if total > MaxOutcomes {
		return nil, newError(
			ErrCodeTooManyOutcomes,
			"You have %d different outcomes for your portfolio. This software is designed for "+
				"a focused investment strategy, and it seems you have too many companies or too "+
				"many scenarios for companies.",
			total,
		)
	}

	outcomes := make([]Outcome, 0, total)
	indices := make([]int, n)

	for len(outcomes) < total {
		outcome := Outcome{
			Probability:    1,
			CompanyReturns: make(map[string]float64, n),
		}

		for i, pc := range p.Companies {
			s := pc.Company.Scenarios[indices[i]]
			ret := s.Return(pc.Company.MarketCap)
			outcome.CompanyReturns[pc.Company.Ticker] = ret
			outcome.WeightedReturn += pc.Fraction * ret
			outcome.Probability *= s.Probability
		}

		outcomes = append(outcomes, outcome)

		// Mixed-radix increment: advance the first index that hasn't
		// overflowed, carrying into the next company's index.
		for i := 0; i < n; i++ {
			indices[i]++
			if indices[i] < counts[i] {
				break
			}
			indices[i] = 0
		}
	}

	return outcomes, nil
}
