// SPDX-License-Identifier: MIT
// Package regression compares a benchmark entry against its baseline and
// reports the measurements whose ratio exceeds a threshold.
package regression

import (
	"math"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/skaphos/benchkeeper/internal/model"
)

// Alert is a single measurement whose current/baseline ratio exceeds the
// threshold. A ratio above 1 always means the current run is worse.
type Alert struct {
	Current  model.Measurement `json:"current"`
	Baseline model.Measurement `json:"baseline"`
	Ratio    float64           `json:"ratio"`
}

// Options tunes Detect.
type Options struct {
	// Threshold is the ratio an alert must exceed. Zero reports every
	// compared measurement with a positive ratio.
	Threshold float64
	// Ignore holds doublestar patterns; matching bench names never alert.
	Ignore []string
}

// Detect compares current against baseline using the polarity of
// current.Tool. Alerts follow the order of current.Benches.
func Detect(current, baseline model.Entry, threshold float64) []Alert {
	return DetectWithOptions(current, baseline, Options{Threshold: threshold})
}

// DetectWithOptions is Detect with ignore patterns.
func DetectWithOptions(current, baseline model.Entry, opts Options) []Alert {
	polarity := current.Tool.Polarity()
	var alerts []Alert
	for _, bench := range current.Benches {
		if ignored(bench.Name, opts.Ignore) {
			continue
		}
		prev, ok := baseline.FindBench(bench.Name)
		if !ok {
			continue
		}
		ratio := Ratio(polarity, prev.Value, bench.Value)
		// NaN compares false, so 0/0 never alerts.
		if ratio > opts.Threshold {
			alerts = append(alerts, Alert{Current: bench, Baseline: prev, Ratio: ratio})
		}
	}
	return alerts
}

// Ratio returns how much worse current is than baseline for the given
// polarity. Division follows IEEE semantics: x/0 is +Inf and 0/0 is NaN.
func Ratio(polarity model.Polarity, baseline, current float64) float64 {
	if polarity == model.BiggerIsBetter {
		return divide(baseline, current)
	}
	return divide(current, baseline)
}

func divide(num, den float64) float64 {
	if den == 0 {
		switch {
		case num > 0:
			return math.Inf(1)
		case num < 0:
			return math.Inf(-1)
		default:
			return math.NaN()
		}
	}
	return num / den
}

func ignored(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
