package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func (m Model) View() string {
	var b strings.Builder

	header := headerStyle
	if m.width > 0 {
		header = header.Width(m.width)
	}
	b.WriteString(header.Render(fmt.Sprintf("kellyfolio %s: %s", m.action, m.sourceFile)))
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View())
		b.WriteString(" computing...\n")
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	case m.showRaw:
		raw, _ := yaml.Marshal(m.result)
		b.WriteString(string(raw))
	default:
		b.WriteString(m.table.View())
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("expected return: %.4f   cumulative P(loss): %.4f\n",
			m.result.ExpectedReturn, m.result.CumulativeProbabilityOfLoss))
		b.WriteString(fmt.Sprintf("worst case: p=%.4f  portfolio return=%.4f  weighted=%.4f\n",
			m.result.WorstCase.Probability, m.result.WorstCase.PortfolioReturn, m.result.WorstCase.ProbabilityWeightedReturn))
		if len(m.result.ExcludedTickers) > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("excluded: %s\n", strings.Join(m.result.ExcludedTickers, ", "))))
		}
		for _, w := range m.result.Warnings {
			b.WriteString(dimStyle.Render(fmt.Sprintf("[%s] %s: %s\n", w.Severity, w.Code, w.Message)))
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("q: quit  r: re-run  y: raw yaml"))
	return b.String()
}
