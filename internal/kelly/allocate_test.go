package kelly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterCandidatesDropsNegativeExpectationAndNoDownside(t *testing.T) {
	good := seedCompanyA()
	negative := seedCompanyB(0.1) // flipped to negative expectation
	noDownside := Company{
		Ticker:    "SAFE",
		MarketCap: 1e7,
		Scenarios: []Scenario{
			{Thesis: "up", IntrinsicValue: 2e7, Probability: 0.5},
			{Thesis: "flat", IntrinsicValue: 1e7, Probability: 0.5},
		},
	}

	kept, excluded, err := FilterCandidates([]Company{good, negative, noDownside})
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "A", kept[0].Ticker)
	assert.ElementsMatch(t, []string{"B", "SAFE"}, excluded)
}

func TestFilterCandidatesAllExcludedIsAnError(t *testing.T) {
	_, _, err := FilterCandidates([]Company{seedCompanyB(0.1)})
	require.Error(t, err)

	kerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNoValidCandidates, kerr.Code)
}

func TestAllocateEndToEnd(t *testing.T) {
	input := AllocationInput{
		Candidates: []Company{seedCompanyA(), seedCompanyB(0.7)},
	}

	response, validation, err := Allocate(input, DefaultSolverConfig())
	require.NoError(t, err)
	require.Empty(t, validation)
	require.Len(t, response.Allocations, 2)

	byTicker := map[string]float64{}
	for _, a := range response.Allocations {
		byTicker[a.Ticker] = a.Fraction
	}
	assert.InDelta(t, 0.3592684, byTicker["A"], 1e-5)
	assert.InDelta(t, 1.6299235, byTicker["B"], 1e-5)
	assert.InDelta(t, 0.5135972, response.ExpectedReturn, 1e-5)
}

func TestAllocateRejectsInvalidInput(t *testing.T) {
	input := AllocationInput{
		Candidates: []Company{
			{Ticker: "BAD", MarketCap: 1e7}, // no scenarios
		},
	}

	response, validation, err := Allocate(input, DefaultSolverConfig())
	require.NoError(t, err)
	require.Nil(t, response)
	require.True(t, validation.HasErrors())
	assert.Equal(t, CodeNoScenarios, validation[0].Code)
}

func TestAnalyzeReportsDescriptiveStatistics(t *testing.T) {
	p := Portfolio{Companies: []PortfolioCompany{
		{Company: seedCompanyA(), Fraction: 0.5},
		{Company: seedCompanyB(0.7), Fraction: 0.5},
	}}

	response, err := Analyze(p)
	require.NoError(t, err)
	assert.InDelta(t, 0.255, response.ExpectedReturn, 1e-9)
	assert.GreaterOrEqual(t, response.CumulativeProbabilityOfLoss, 0.0)
}
