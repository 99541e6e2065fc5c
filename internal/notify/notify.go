// SPDX-License-Identifier: MIT
// Package notify renders regression alerts into a human-readable report.
// It has no side effects; posting the report is the caller's job.
package notify

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/skaphos/benchkeeper/internal/model"
	"github.com/skaphos/benchkeeper/internal/regression"
	"github.com/skaphos/benchkeeper/internal/tableutil"
)

// DefaultSuiteName is the suite name used when none is configured. Reports
// for it omit the description line.
const DefaultSuiteName = "Benchmark"

const (
	alertTitle  = "# :warning: **Performance Alert** :warning:"
	reportTitle = "# Performance Report"
	projectLink = "[benchkeeper](https://github.com/skaphos/benchkeeper)"
)

// Footer carries the run link and the users to mention. Workflow names the
// run link when set.
type Footer struct {
	RunURL   string
	Workflow string
	CCUsers  []string
}

// Row is one alert rendered for display.
type Row struct {
	Name     string
	Current  string
	Previous string
	Ratio    string
}

// Report is a composed notification body.
type Report struct {
	Title       string
	Description string
	CurrentID   string
	PreviousID  string
	Rows        []Row
	Footer      string
	// AlwaysReport marks the informational framing used at threshold zero.
	AlwaysReport bool
}

// Compose builds a report for alerts detected between current and baseline.
func Compose(alerts []regression.Alert, suite string, current, baseline model.Entry, threshold float64, footer Footer) Report {
	always := threshold == 0
	report := Report{
		Title:        alertTitle,
		CurrentID:    current.Commit.ID,
		PreviousID:   baseline.Commit.ID,
		AlwaysReport: always,
	}
	if always {
		report.Title = reportTitle
	}
	if suite != "" && suite != DefaultSuiteName {
		if always {
			report.Description = fmt.Sprintf("Benchmark comparison for **'%s'**.", suite)
		} else {
			report.Description = fmt.Sprintf("Possible performance regression was detected for benchmark **'%s'**.\n"+
				"Benchmark result of this commit (%s) is worse than the previous benchmark result (%s) exceeding threshold `%s`.",
				suite, current.Commit.ID, baseline.Commit.ID, FormatThreshold(threshold))
		}
	}
	for _, alert := range alerts {
		report.Rows = append(report.Rows, Row{
			Name:     alert.Current.Name,
			Current:  FormatMeasurement(alert.Current),
			Previous: FormatMeasurement(alert.Baseline),
			Ratio:    FormatRatio(alert.Ratio),
		})
	}
	report.Footer = composeFooter(footer)
	return report
}

func composeFooter(footer Footer) string {
	var b strings.Builder
	b.WriteString("This comment was automatically generated by ")
	label := "workflow"
	if w := strings.TrimSpace(footer.Workflow); w != "" {
		label = w
	}
	if footer.RunURL != "" {
		fmt.Fprintf(&b, "[%s](%s)", escapeLink(label), footer.RunURL)
	} else {
		b.WriteString(label)
	}
	b.WriteString(" using " + projectLink + ".")
	if len(footer.CCUsers) > 0 {
		mentions := make([]string, 0, len(footer.CCUsers))
		for _, user := range footer.CCUsers {
			user = strings.TrimPrefix(strings.TrimSpace(user), "@")
			if user == "" {
				continue
			}
			mentions = append(mentions, "@"+user)
		}
		if len(mentions) > 0 {
			b.WriteString("\n\nCC: " + strings.Join(mentions, " "))
		}
	}
	return b.String()
}

// String renders the report as GitHub-flavored markdown.
func (r Report) String() string {
	var b strings.Builder
	b.WriteString(r.Title)
	b.WriteString("\n\n")
	if r.Description != "" {
		b.WriteString(r.Description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "| Benchmark suite | Current: %s | Previous: %s | Ratio |\n", r.CurrentID, r.PreviousID)
	b.WriteString("|-|-|-|-|\n")
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "| `%s` | %s | %s | `%s` |\n", escapeCell(row.Name), escapeCell(row.Current), escapeCell(row.Previous), row.Ratio)
	}
	b.WriteString("\n")
	b.WriteString(r.Footer)
	return b.String()
}

// WritePlain renders the report for a terminal. colorize is applied to each
// ratio cell and may be nil.
func WritePlain(out io.Writer, r Report, colorize func(string) string) error {
	heading := strings.TrimSpace(strings.NewReplacer("#", "", ":warning:", "", "**", "").Replace(r.Title))
	if _, err := fmt.Fprintln(out, heading); err != nil {
		return err
	}
	if r.Description != "" {
		desc := strings.NewReplacer("**", "", "`", "").Replace(r.Description)
		if _, err := fmt.Fprintln(out, desc); err != nil {
			return err
		}
	}
	w := tableutil.New(out, colorize != nil)
	if err := tableutil.PrintHeaders(w, false, "BENCHMARK\tCURRENT ("+shortID(r.CurrentID)+")\tPREVIOUS ("+shortID(r.PreviousID)+")\tRATIO"); err != nil {
		return err
	}
	for _, row := range r.Rows {
		ratio := row.Ratio
		if colorize != nil {
			ratio = colorize(ratio)
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.Name, row.Current, row.Previous, ratio); err != nil {
			return err
		}
	}
	return w.Flush()
}

// FormatMeasurement renders value, unit and optional range.
func FormatMeasurement(m model.Measurement) string {
	out := strconv.FormatFloat(m.Value, 'f', -1, 64)
	if m.Unit != "" {
		out += " " + m.Unit
	}
	if m.Range != "" {
		out += " (" + m.Range + ")"
	}
	return out
}

// FormatRatio renders a ratio with at most two decimals. Infinities and NaN
// are printed literally.
func FormatRatio(ratio float64) string {
	out := strconv.FormatFloat(ratio, 'f', 2, 64)
	if strings.Contains(out, ".") {
		out = strings.TrimRight(strings.TrimRight(out, "0"), ".")
	}
	return out
}

// FormatThreshold renders a ratio threshold as a percentage, e.g. 2 -> "200%".
func FormatThreshold(threshold float64) string {
	return strconv.FormatFloat(math.Round(threshold*10000)/100, 'f', -1, 64) + "%"
}

func escapeCell(value string) string {
	return strings.ReplaceAll(value, "|", `\|`)
}

func escapeLink(label string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(label)
}

func shortID(id string) string {
	return model.Commit{ID: id}.ShortID()
}
