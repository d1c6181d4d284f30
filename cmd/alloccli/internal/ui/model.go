// Package ui is a bubbletea terminal view over an allocation or analysis
// result, for the kellyfolio interactive CLI.
package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/kellyfolio/internal/kelly"
)

// Action identifies which orchestration call the CLI is driving.
type Action string

const (
	ActionAllocate Action = "allocate"
	ActionAnalyze  Action = "analyze"
)

// Runner performs the requested action against either the in-process core
// or a remote facade; Model never knows which.
type Runner func(ctx context.Context) (*Result, error)

// Result is the unified shape rendered regardless of which action produced
// it, so Update/View don't need to branch on Action for display purposes.
type Result struct {
	Allocations                 []kelly.TickerAndFraction
	ExcludedTickers             []string
	Warnings                    kelly.ValidationResult
	ExpectedReturn              float64
	CumulativeProbabilityOfLoss float64
	WorstCase                   kelly.WorstCaseOutcome
}

type resultMsg struct {
	result *Result
	err    error
}

// Model is the root bubbletea model for alloccli.
type Model struct {
	action     Action
	sourceFile string
	run        Runner

	spinner spinner.Model
	table   table.Model
	result  *Result
	err     error
	loading bool
	showRaw bool

	width, height int
}

// New builds a Model that will invoke run once on startup.
func New(action Action, sourceFile string, run Runner) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return Model{
		action:     action,
		sourceFile: sourceFile,
		run:        run,
		spinner:    s,
		loading:    true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, fetch(m.run))
}

func fetch(run Runner) tea.Cmd {
	return func() tea.Msg {
		result, err := run(context.Background())
		return resultMsg{result: result, err: err}
	}
}

func (m *Model) rebuildTable() {
	columns := []table.Column{
		{Title: "Ticker", Width: 14},
		{Title: "Fraction", Width: 12},
	}
	var rows []table.Row
	for _, a := range m.result.Allocations {
		rows = append(rows, table.Row{a.Ticker, formatFraction(a.Fraction)})
	}

	height := len(rows) + 1
	if height > 15 {
		height = 15
	}
	if height < 3 {
		height = 3
	}

	m.table = table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(height),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true)
	m.table.SetStyles(styles)
}
