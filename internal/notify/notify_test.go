// SPDX-License-Identifier: MIT
package notify_test

import (
	"bytes"
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/benchkeeper/internal/model"
	"github.com/skaphos/benchkeeper/internal/notify"
	"github.com/skaphos/benchkeeper/internal/regression"
)

var _ = Describe("Compose", func() {
	var (
		current  model.Entry
		baseline model.Entry
		alerts   []regression.Alert
	)

	BeforeEach(func() {
		current = model.Entry{Commit: model.Commit{ID: "cccccccccc"}, Tool: model.ToolGo}
		baseline = model.Entry{Commit: model.Commit{ID: "bbbbbbbbbb"}, Tool: model.ToolGo}
		alerts = []regression.Alert{{
			Current:  model.Measurement{Name: "BenchmarkA", Value: 200, Unit: "ns/op", Range: "± 3"},
			Baseline: model.Measurement{Name: "BenchmarkA", Value: 100, Unit: "ns/op"},
			Ratio:    2,
		}}
	})

	It("uses the alert framing for a positive threshold", func() {
		report := notify.Compose(alerts, "My Suite", current, baseline, 1.5, notify.Footer{RunURL: "https://github.com/org/repo/actions/runs/1"})
		Expect(report.AlwaysReport).To(BeFalse())
		body := report.String()
		Expect(body).To(HavePrefix("# :warning: **Performance Alert** :warning:"))
		Expect(body).To(ContainSubstring("benchmark **'My Suite'**"))
		Expect(body).To(ContainSubstring("threshold `150%`"))
		Expect(report.Description).To(ContainSubstring("this commit (cccccccccc)"))
		Expect(report.Description).To(ContainSubstring("previous benchmark result (bbbbbbbbbb)"))
		Expect(body).To(ContainSubstring("| Benchmark suite | Current: cccccccccc | Previous: bbbbbbbbbb | Ratio |"))
		Expect(body).To(ContainSubstring("| `BenchmarkA` | 200 ns/op (± 3) | 100 ns/op | `2` |"))
		Expect(body).To(ContainSubstring("[workflow](https://github.com/org/repo/actions/runs/1)"))
	})

	It("uses the report framing at threshold zero", func() {
		report := notify.Compose(alerts, "My Suite", current, baseline, 0, notify.Footer{})
		Expect(report.AlwaysReport).To(BeTrue())
		Expect(report.Title).To(Equal("# Performance Report"))
		Expect(report.Description).To(Equal("Benchmark comparison for **'My Suite'**."))
	})

	It("labels the run link with the workflow name", func() {
		report := notify.Compose(alerts, "s", current, baseline, 2, notify.Footer{RunURL: "https://github.com/org/repo/actions/runs/1", Workflow: "Bench [ci]"})
		Expect(report.Footer).To(HavePrefix(`This comment was automatically generated by [Bench \[ci\]](https://github.com/org/repo/actions/runs/1) using`))

		report = notify.Compose(alerts, "s", current, baseline, 2, notify.Footer{Workflow: "Bench"})
		Expect(report.Footer).To(HavePrefix("This comment was automatically generated by Bench using"))
	})

	It("omits the description for the default suite name", func() {
		report := notify.Compose(alerts, notify.DefaultSuiteName, current, baseline, 2, notify.Footer{})
		Expect(report.Description).To(BeEmpty())
		Expect(report.String()).NotTo(ContainSubstring("detected for benchmark"))
	})

	It("mentions CC users once each with a single @", func() {
		report := notify.Compose(alerts, "s", current, baseline, 2, notify.Footer{CCUsers: []string{"@alice", "bob", " "}})
		Expect(report.Footer).To(HaveSuffix("CC: @alice @bob"))
	})

	It("has one row per alert", func() {
		alerts = append(alerts, regression.Alert{
			Current:  model.Measurement{Name: "BenchmarkB", Value: 5, Unit: "ns/op"},
			Baseline: model.Measurement{Name: "BenchmarkB", Value: 0, Unit: "ns/op"},
			Ratio:    math.Inf(1),
		})
		report := notify.Compose(alerts, "s", current, baseline, 2, notify.Footer{})
		Expect(report.Rows).To(HaveLen(2))
		Expect(report.Rows[1].Ratio).To(Equal("+Inf"))
	})

	It("renders a plain terminal table", func() {
		report := notify.Compose(alerts, "My Suite", current, baseline, 2, notify.Footer{})
		buf := &bytes.Buffer{}
		Expect(notify.WritePlain(buf, report, nil)).To(Succeed())
		out := buf.String()
		Expect(out).To(HavePrefix("Performance Alert\n"))
		Expect(out).To(ContainSubstring("CURRENT (ccccccc)"))
		Expect(out).To(ContainSubstring("BenchmarkA"))
		Expect(strings.Contains(out, "**")).To(BeFalse())
	})
})

var _ = Describe("formatting", func() {
	It("trims trailing zeros from ratios", func() {
		Expect(notify.FormatRatio(2)).To(Equal("2"))
		Expect(notify.FormatRatio(1.5)).To(Equal("1.5"))
		Expect(notify.FormatRatio(1.234)).To(Equal("1.23"))
		Expect(notify.FormatRatio(math.NaN())).To(Equal("NaN"))
	})

	It("renders thresholds as percentages", func() {
		Expect(notify.FormatThreshold(2)).To(Equal("200%"))
		Expect(notify.FormatThreshold(1.1)).To(Equal("110%"))
	})

	It("renders measurements without a unit", func() {
		Expect(notify.FormatMeasurement(model.Measurement{Value: 0.5})).To(Equal("0.5"))
	})
})
