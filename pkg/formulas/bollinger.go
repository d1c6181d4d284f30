package formulas

import "github.com/markcheno/go-talib"

// BollingerBands is the last upper/middle/lower band value of a Bollinger
// Bands series.
type BollingerBands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// CalculateBollingerBands runs a simple-moving-average Bollinger Bands
// calculation over closes and returns only the most recent band values.
// Returns nil when there isn't at least `length` closes to work with.
func CalculateBollingerBands(closes []float64, length int, stdDevMultiplier float64) *BollingerBands {
	if length <= 0 || len(closes) < length {
		return nil
	}

	upper, middle, lower := talib.BBands(closes, length, stdDevMultiplier, stdDevMultiplier, talib.SMA)
	last := len(upper) - 1
	if last < 0 {
		return nil
	}

	return &BollingerBands{
		Upper:  upper[last],
		Middle: middle[last],
		Lower:  lower[last],
	}
}

// BollingerPositionResult is where the latest close sits within its band,
// normalized to [0, 1] (0 = at the lower band, 1 = at the upper band),
// alongside the bands themselves.
type BollingerPositionResult struct {
	Position float64
	Bands    BollingerBands
}

// CalculateBollingerPosition reports where the final close of closes falls
// within its Bollinger Band, clamped to [0, 1]. Returns nil under the same
// conditions as CalculateBollingerBands, or when the band has zero width.
func CalculateBollingerPosition(closes []float64, length int, stdDevMultiplier float64) *BollingerPositionResult {
	bands := CalculateBollingerBands(closes, length, stdDevMultiplier)
	if bands == nil {
		return nil
	}

	width := bands.Upper - bands.Lower
	if width <= 0 {
		return nil
	}

	lastClose := closes[len(closes)-1]
	position := (lastClose - bands.Lower) / width
	if position < 0 {
		position = 0
	}
	if position > 1 {
		position = 1
	}

	return &BollingerPositionResult{Position: position, Bands: *bands}
}

// BandWidth is the absolute width of the most recent Bollinger Band,
// expressed as a fraction of the middle band — a simple realized-volatility
// proxy used by the allocator's advisory volatility check.
func BandWidth(closes []float64, length int, stdDevMultiplier float64) *float64 {
	bands := CalculateBollingerBands(closes, length, stdDevMultiplier)
	if bands == nil || bands.Middle == 0 {
		return nil
	}
	width := (bands.Upper - bands.Lower) / bands.Middle
	return &width
}
