package ui

import "fmt"

func formatFraction(f float64) string {
	return fmt.Sprintf("%+.4f", f)
}
