package kelly

// TickerAndFraction is the wire-friendly (ticker, fraction) pair returned in
// an AllocationResponse, in portfolio order.
type TickerAndFraction struct {
	Ticker   string  `json:"ticker"`
	Fraction float64 `json:"fraction"`
}

// AllocationResponse is the full result of a successful Allocate call: the
// solved fractions plus the same descriptive statistics Analyze would
// produce for that portfolio.
type AllocationResponse struct {
	Allocations                  []TickerAndFraction `json:"allocations"`
	ExcludedTickers              []string            `json:"excluded_tickers,omitempty"`
	Warnings                     ValidationResult    `json:"warnings,omitempty"`
	ExpectedReturn               float64             `json:"expected_return"`
	CumulativeProbabilityOfLoss  float64             `json:"cumulative_probability_of_loss"`
	WorstCase                    WorstCaseOutcome    `json:"worst_case"`
}

// AnalysisResponse is the descriptive-statistics-only result of Analyze: the
// same three figures Allocate reports, computed for a caller-supplied
// portfolio instead of one the solver produced.
type AnalysisResponse struct {
	ExpectedReturn               float64          `json:"expected_return"`
	CumulativeProbabilityOfLoss  float64          `json:"cumulative_probability_of_loss"`
	WorstCase                    WorstCaseOutcome `json:"worst_case"`
}

// FilterCandidates drops, per spec.md §4.7, any candidate whose expected
// return is negative or which has no downside scenario (both within
// TOLERANCE) — either would drive the solver toward a degenerate or
// infinitely-levered answer. It returns the surviving candidates, the
// tickers of the dropped ones (in input order), and errors with
// ErrCodeNoValidCandidates if nothing survives.
func FilterCandidates(candidates []Company) ([]Company, []string, error) {
	kept := make([]Company, 0, len(candidates))
	var excluded []string

	for _, c := range candidates {
		if c.ExpectedReturn() < -TOLERANCE || !c.HasDownsideScenario() {
			excluded = append(excluded, c.Ticker)
			continue
		}
		kept = append(kept, c)
	}

	if len(kept) == 0 {
		return nil, excluded, newError(
			ErrCodeNoValidCandidates,
			"None of the %d candidates survived filtering: every one either has a negative "+
				"expected return or no downside scenario.",
			len(candidates),
		)
	}

	return kept, excluded, nil
}

// buildConstraints turns an AllocationInput's constraint flags into the
// concrete Constraint values the solver understands, indexed against the
// already-filtered candidate slice.
func buildConstraints(candidates []Company, input AllocationInput) []Constraint {
	var constraints []Constraint

	if input.LongOnly {
		for i := range candidates {
			constraints = append(constraints, LongOnlyConstraint{FractionIndex: i})
		}
	}

	if input.MaxIndividualAllocation != nil {
		for i := range candidates {
			constraints = append(constraints, MaxIndividualAllocationConstraint{
				FractionIndex: i,
				MaxFraction:   *input.MaxIndividualAllocation,
			})
		}
	}

	if input.MaxTotalLeverageRatio != nil {
		constraints = append(constraints, MaxTotalLeverageConstraint{
			MaxLeverageRatio: *input.MaxTotalLeverageRatio,
		})
	}

	if input.MaxPermanentLossOfCapital != nil {
		constraints = append(constraints, CapitalLossConstraint{
			FractionOfCapital: input.MaxPermanentLossOfCapital.FractionOfCapital,
			ProbabilityOfLoss: input.MaxPermanentLossOfCapital.ProbabilityOfLoss,
		})
	}

	return constraints
}

// Analyze computes the descriptive statistics for an already-allocated
// portfolio: expected return, cumulative probability of loss, and the
// per-company-independent worst case.
func Analyze(p Portfolio) (*AnalysisResponse, error) {
	lossProbability, err := CumulativeProbabilityOfLoss(p)
	if err != nil {
		return nil, err
	}

	return &AnalysisResponse{
		ExpectedReturn:              ExpectedReturn(p),
		CumulativeProbabilityOfLoss: lossProbability,
		WorstCase:                   ComputeWorstCaseOutcome(p),
	}, nil
}

// Allocate is the full orchestration: validate the input, filter out
// candidates that cannot sensibly be allocated to, build the constraint set
// the request's flags imply, run the solver, and assemble the response with
// its descriptive statistics.
//
// It returns three distinct things, matching the response envelope's
// three-way shape: a response on success; a non-nil ValidationResult (with
// response and error both nil) when ERROR-severity validation problems
// block the solver from ever running; or a non-nil runtime *Error (with
// response and the ValidationResult nil) when validation passed but
// filtering or solving failed. At most one of the three is non-nil.
func Allocate(input AllocationInput, cfg SolverConfig) (*AllocationResponse, ValidationResult, error) {
	validation := Validate(input)
	if validation.HasErrors() {
		return nil, validation, nil
	}

	var warnings ValidationResult
	for _, p := range validation {
		if p.Severity == SeverityWarning {
			warnings = append(warnings, p)
		}
	}

	kept, excluded, err := FilterCandidates(input.Candidates)
	if err != nil {
		return nil, nil, err
	}

	constraints := buildConstraints(kept, input)

	portfolio, err := Solve(kept, constraints, cfg)
	if err != nil {
		return nil, nil, err
	}

	analysis, err := Analyze(portfolio)
	if err != nil {
		return nil, nil, err
	}

	allocations := make([]TickerAndFraction, len(portfolio.Companies))
	for i, pc := range portfolio.Companies {
		allocations[i] = TickerAndFraction{Ticker: pc.Company.Ticker, Fraction: pc.Fraction}
	}

	return &AllocationResponse{
		Allocations:                  allocations,
		ExcludedTickers:              excluded,
		Warnings:                     warnings,
		ExpectedReturn:               analysis.ExpectedReturn,
		CumulativeProbabilityOfLoss:  analysis.CumulativeProbabilityOfLoss,
		WorstCase:                    analysis.WorstCase,
	}, nil, nil
}
