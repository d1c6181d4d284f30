package kelly

import (
	"fmt"
	"math"

	"github.com/aristath/kellyfolio/pkg/formulas"
)

// bollingerLength and bollingerStdDev match the conventional 20-period,
// 2-standard-deviation Bollinger configuration; the realized-return history
// is short-lived advisory input, not a tunable solver parameter.
const (
	bollingerLength = 20
	bollingerStdDev = 2.0
)

// elevatedHistoricalVolatility computes a Bollinger-Band-width proxy for
// realized volatility over a company's optional historical return series
// and flags it as a WARNING when the band is unusually wide relative to the
// series' own mean absolute return. It never blocks the solver (spec.md
// §4.6); absent history, the check is skipped entirely.
func elevatedHistoricalVolatility(c Company) (Problem, bool) {
	if len(c.HistoricalReturns) < bollingerLength {
		return Problem{}, false
	}

	width := formulas.BandWidth(c.HistoricalReturns, bollingerLength, bollingerStdDev)
	if width == nil {
		return Problem{}, false
	}

	meanAbs := meanAbsolute(c.HistoricalReturns)
	if meanAbs == 0 || *width <= 2*meanAbs {
		return Problem{}, false
	}

	return Problem{
		Code: CodeElevatedVolatility,
		Message: fmt.Sprintf(
			"Company %s shows elevated historical volatility (Bollinger band width %.4f vs mean absolute return %.4f).",
			c.Ticker, *width, meanAbs,
		),
		Severity: SeverityWarning,
	}, true
}

func meanAbsolute(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += math.Abs(x)
	}
	return sum / float64(len(xs))
}
