package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/kellyfolio/cmd/alloccli/internal/ui"
)

const sampleAllocationYAML = `
candidates:
  - name: Acme Corp
    ticker: ACME
    market_cap: 1000000
    scenarios:
      - thesis: up
        intrinsic_value: 2000000
        probability: 0.6
      - thesis: down
        intrinsic_value: 400000
        probability: 0.4
`

func TestBuildRunnerAllocateRunsInProcessByDefault(t *testing.T) {
	runner, err := buildRunner(ui.ActionAllocate, []byte(sampleAllocationYAML), "")
	require.NoError(t, err)

	result, err := runner(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Allocations, 1)
	assert.Equal(t, "ACME", result.Allocations[0].Ticker)
}

func TestBuildRunnerRejectsUnparseableInput(t *testing.T) {
	_, err := buildRunner(ui.ActionAllocate, []byte("not: [valid"), "")
	assert.Error(t, err)
}

const samplePortfolioYAML = `
companies:
  - company:
      name: Acme Corp
      ticker: ACME
      market_cap: 1000000
      scenarios:
        - thesis: up
          intrinsic_value: 2000000
          probability: 0.6
        - thesis: down
          intrinsic_value: 400000
          probability: 0.4
    fraction: 0.3
`

func TestBuildRunnerAnalyzeRunsInProcessByDefault(t *testing.T) {
	runner, err := buildRunner(ui.ActionAnalyze, []byte(samplePortfolioYAML), "")
	require.NoError(t, err)

	result, err := runner(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Allocations, 1)
	assert.Equal(t, "ACME", result.Allocations[0].Ticker)
}
