// SPDX-License-Identifier: MIT
package termstyle

import (
	"math"

	"github.com/liggitt/tabwriter"
)

const (
	Reset = "\x1b[0m"
	Green = "\x1b[32m"
	Brown = "\x1b[33m"
	Red   = "\x1b[31m"

	// Semantic aliases used by report output.
	Improvement = Green
	Slowdown    = Brown
	Regression  = Red
)

// Colorize wraps a value in ANSI escapes when color output is enabled.
func Colorize(enabled bool, value, color string) string {
	if !enabled || value == "" || color == "" {
		return value
	}
	// Hide ANSI sequences from tabwriter width calculations so columns align.
	esc := string([]byte{tabwriter.Escape})
	return esc + color + esc + value + esc + Reset + esc
}

// ForRatio picks the color for a regression ratio: red past threshold,
// brown for a slowdown within it, green for an improvement. Unchanged and
// NaN ratios get no color.
func ForRatio(ratio, threshold float64) string {
	switch {
	case math.IsNaN(ratio):
		return ""
	case ratio > threshold:
		return Regression
	case ratio > 1:
		return Slowdown
	case ratio < 1:
		return Improvement
	default:
		return ""
	}
}
