// Command alloccli is an interactive terminal client for kellyfolio: it
// loads a YAML candidate file, performs an allocate or analyze action
// either in-process or against a running facade, and renders the result as
// a live-navigable view.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"github.com/aristath/kellyfolio/cmd/alloccli/internal/client"
	"github.com/aristath/kellyfolio/cmd/alloccli/internal/ui"
	"github.com/aristath/kellyfolio/internal/kelly"
)

func main() {
	action := flag.String("action", "allocate", "action to perform: allocate or analyze")
	file := flag.String("file", "", "path to a YAML input file")
	remote := flag.String("remote", "", "base URL of a running kellyfolio facade (e.g. http://localhost:8080); omit to run in-process")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "alloccli: -file is required")
		os.Exit(1)
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "alloccli: reading %s: %v\n", *file, err)
		os.Exit(1)
	}

	var act ui.Action
	switch *action {
	case "allocate":
		act = ui.ActionAllocate
	case "analyze":
		act = ui.ActionAnalyze
	default:
		fmt.Fprintf(os.Stderr, "alloccli: unknown action %q (want allocate or analyze)\n", *action)
		os.Exit(1)
	}

	runner, err := buildRunner(act, raw, *remote)
	if err != nil {
		fmt.Fprintf(os.Stderr, "alloccli: %v\n", err)
		os.Exit(1)
	}

	m := ui.New(act, *file, runner)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "alloccli: %v\n", err)
		os.Exit(1)
	}
}

func buildRunner(action ui.Action, raw []byte, remoteURL string) (ui.Runner, error) {
	var remoteClient *client.Client
	if remoteURL != "" {
		remoteClient = client.New(remoteURL)
	}

	switch action {
	case ui.ActionAllocate:
		var input kelly.AllocationInput
		if err := yaml.Unmarshal(raw, &input); err != nil {
			return nil, fmt.Errorf("parsing allocation input: %w", err)
		}
		return func(ctx context.Context) (*ui.Result, error) {
			var response *kelly.AllocationResponse
			var err error
			if remoteClient != nil {
				response, err = remoteClient.Allocate(ctx, input)
			} else {
				var validation kelly.ValidationResult
				response, validation, err = kelly.Allocate(input, kelly.DefaultSolverConfig())
				if err == nil && validation.HasErrors() {
					err = fmt.Errorf("input failed validation: %+v", validation)
				}
			}
			if err != nil {
				return nil, err
			}
			return &ui.Result{
				Allocations:                 response.Allocations,
				ExcludedTickers:             response.ExcludedTickers,
				Warnings:                    response.Warnings,
				ExpectedReturn:              response.ExpectedReturn,
				CumulativeProbabilityOfLoss: response.CumulativeProbabilityOfLoss,
				WorstCase:                   response.WorstCase,
			}, nil
		}, nil

	case ui.ActionAnalyze:
		var portfolio kelly.Portfolio
		if err := yaml.Unmarshal(raw, &portfolio); err != nil {
			return nil, fmt.Errorf("parsing portfolio: %w", err)
		}
		return func(ctx context.Context) (*ui.Result, error) {
			var response *kelly.AnalysisResponse
			var err error
			if remoteClient != nil {
				response, err = remoteClient.Analyze(ctx, portfolio)
			} else {
				response, err = kelly.Analyze(portfolio)
			}
			if err != nil {
				return nil, err
			}
			allocations := make([]kelly.TickerAndFraction, len(portfolio.Companies))
			for i, pc := range portfolio.Companies {
				allocations[i] = kelly.TickerAndFraction{Ticker: pc.Company.Ticker, Fraction: pc.Fraction}
			}
			return &ui.Result{
				Allocations:                 allocations,
				ExpectedReturn:              response.ExpectedReturn,
				CumulativeProbabilityOfLoss: response.CumulativeProbabilityOfLoss,
				WorstCase:                   response.WorstCase,
			}, nil
		}, nil
	}

	return nil, fmt.Errorf("unreachable: unknown action %q", action)
}
