package kelly

import (
	"fmt"
	"math"
)

// Severity distinguishes a blocking validation problem from an advisory one.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Problem is a single structured validation finding: a stable code, a
// human-readable message, and a severity. ERROR severity blocks the solver;
// WARNING is informational and, for two specific codes, drives pre-solve
// filtering (see FilterCandidates).
type Problem struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidationResult collects every Problem found while validating an
// AllocationInput.
type ValidationResult []Problem

// HasErrors reports whether any collected problem is of ERROR severity.
func (r ValidationResult) HasErrors() bool {
	for _, p := range r {
		if p.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validation problem codes (spec.md §4.6, §6).
const (
	CodeNoScenarios                = "no-scenarios-for-company"
	CodeScenariosNotUnique         = "scenarios-are-not-unique"
	CodeProbabilitiesDontSumToOne  = "probabilities-for-all-scenarios-do-not-sum-up-to-one"
	CodeNegativeProbability        = "negative-probability-for-scenario"
	CodeProbabilityGreaterThanOne  = "probability-for-scenario-greater-than-one"
	CodeNegativeExpectedReturn     = "negative-expected-return-for-a-company"
	CodeNoDownsideScenario         = "company-with-no-downside-scenario"
	CodeElevatedVolatility         = "elevated-historical-volatility-for-a-company"
	CodeTickersNotUnique           = "all-tickers-must-be-unique"
	CodeCapitalLossNeedsLongOnly   = ErrCodeCapitalLossNeedsLongOnly
	CodeCapitalLossBadFraction     = "fraction-of-capital-out-of-bounds"
	CodeCapitalLossBadProbability  = "probability-of-loss-out-of-bounds"
	CodeNegativeMaxIndividualAlloc = "max-individual-allocation-must-be-non-negative"
	CodeNegativeMaxLeverage        = "max-total-leverage-ratio-must-be-non-negative"
)

// validateScenario checks the bounds of a single scenario's probability.
func validateScenario(s Scenario) ValidationResult {
	var result ValidationResult
	if s.Probability < 0 {
		result = append(result, Problem{
			Code:     CodeNegativeProbability,
			Message:  fmt.Sprintf("Negative probability is not allowed. Probability: %v", s.Probability),
			Severity: SeverityError,
		})
	}
	if s.Probability > 1 {
		result = append(result, Problem{
			Code:     CodeProbabilityGreaterThanOne,
			Message:  fmt.Sprintf("Probability greater than 1 is not allowed. Probability: %v", s.Probability),
			Severity: SeverityError,
		})
	}
	return result
}

// validateCompany runs every per-candidate check from spec.md §4.6.
func validateCompany(c Company) ValidationResult {
	var result ValidationResult

	if len(c.Scenarios) == 0 {
		result = append(result, Problem{
			Code:     CodeNoScenarios,
			Message:  fmt.Sprintf("No scenarios found for %s with ticker %s.", c.Name, c.Ticker),
			Severity: SeverityError,
		})
		// Nothing further can be checked without scenarios.
		return result
	}

	seenTheses := make(map[string]bool, len(c.Scenarios))
	duplicateThesis := false
	probabilitySum := 0.0
	for _, s := range c.Scenarios {
		if seenTheses[s.Thesis] {
			duplicateThesis = true
		}
		seenTheses[s.Thesis] = true
		probabilitySum += s.Probability
		result = append(result, validateScenario(s)...)
	}

	if duplicateThesis {
		result = append(result, Problem{
			Code:     CodeScenariosNotUnique,
			Message:  fmt.Sprintf("Not all scenarios have a unique thesis for company %s. Check your input.", c.Name),
			Severity: SeverityError,
		})
	}

	if math.Abs(probabilitySum-1.0) > TOLERANCE {
		result = append(result, Problem{
			Code:     CodeProbabilitiesDontSumToOne,
			Message:  fmt.Sprintf("Probabilities of all scenarios do not sum up to 1. Sum = %v.", probabilitySum),
			Severity: SeverityError,
		})
	}

	if c.ExpectedReturn() < -TOLERANCE {
		result = append(result, Problem{
			Code:     CodeNegativeExpectedReturn,
			Message:  fmt.Sprintf("Company %s has negative expected return; it would imply shorting.", c.Ticker),
			Severity: SeverityWarning,
		})
	}

	if !c.HasDownsideScenario() {
		result = append(result, Problem{
			Code:     CodeNoDownsideScenario,
			Message:  fmt.Sprintf("Company %s has no downside scenario; it would drive infinite leverage.", c.Ticker),
			Severity: SeverityWarning,
		})
	}

	if warn, ok := elevatedHistoricalVolatility(c); ok {
		result = append(result, warn)
	}

	return result
}

// validateCapitalLoss checks that both CapitalLoss bounds lie in (0, 1].
func validateCapitalLoss(cl CapitalLoss) ValidationResult {
	var result ValidationResult
	if cl.FractionOfCapital <= 0 || cl.FractionOfCapital > 1 {
		result = append(result, Problem{
			Code:     CodeCapitalLossBadFraction,
			Message:  fmt.Sprintf("fraction_of_capital must be in (0, 1], got %v.", cl.FractionOfCapital),
			Severity: SeverityError,
		})
	}
	if cl.ProbabilityOfLoss <= 0 || cl.ProbabilityOfLoss > 1 {
		result = append(result, Problem{
			Code:     CodeCapitalLossBadProbability,
			Message:  fmt.Sprintf("probability_of_loss must be in (0, 1], got %v.", cl.ProbabilityOfLoss),
			Severity: SeverityError,
		})
	}
	return result
}

// Validate runs every check named in spec.md §4.6 over an AllocationInput
// and returns the complete, unfiltered set of problems.
func Validate(input AllocationInput) ValidationResult {
	var result ValidationResult

	tickers := make(map[string]bool, len(input.Candidates))
	duplicateTicker := false
	for _, c := range input.Candidates {
		if tickers[c.Ticker] {
			duplicateTicker = true
		}
		tickers[c.Ticker] = true
		result = append(result, validateCompany(c)...)
	}
	if duplicateTicker {
		result = append(result, Problem{
			Code:     CodeTickersNotUnique,
			Message:  "Candidate tickers must be unique.",
			Severity: SeverityError,
		})
	}

	if input.MaxPermanentLossOfCapital != nil {
		result = append(result, validateCapitalLoss(*input.MaxPermanentLossOfCapital)...)
		if !input.LongOnly {
			result = append(result, Problem{
				Code:     CodeCapitalLossNeedsLongOnly,
				Message:  "max_permanent_loss_of_capital requires long_only to be set.",
				Severity: SeverityError,
			})
		}
	}

	if input.MaxIndividualAllocation != nil && *input.MaxIndividualAllocation < 0 {
		result = append(result, Problem{
			Code:     CodeNegativeMaxIndividualAlloc,
			Message:  fmt.Sprintf("max_individual_allocation must be >= 0, got %v.", *input.MaxIndividualAllocation),
			Severity: SeverityError,
		})
	}

	if input.MaxTotalLeverageRatio != nil && *input.MaxTotalLeverageRatio < 0 {
		result = append(result, Problem{
			Code:     CodeNegativeMaxLeverage,
			Message:  fmt.Sprintf("max_total_leverage_ratio must be >= 0, got %v.", *input.MaxTotalLeverageRatio),
			Severity: SeverityError,
		})
	}

	return result
}
