// SPDX-License-Identifier: MIT
package model_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/benchkeeper/internal/model"
)

var _ = Describe("Tool", func() {
	It("maps every supported tool to a polarity", func() {
		for _, tool := range model.AllTools {
			Expect(func() { _ = tool.Polarity() }).NotTo(Panic(), string(tool))
		}
	})

	It("treats cargo and go as smaller-is-better", func() {
		Expect(model.ToolCargo.Polarity()).To(Equal(model.SmallerIsBetter))
		Expect(model.ToolGo.Polarity()).To(Equal(model.SmallerIsBetter))
	})

	It("treats benchmarkjs and pytest as bigger-is-better", func() {
		Expect(model.ToolBenchmarkJS.Polarity()).To(Equal(model.BiggerIsBetter))
		Expect(model.ToolPytest.Polarity()).To(Equal(model.BiggerIsBetter))
	})

	It("parses tool names case-insensitively", func() {
		tool, err := model.ParseTool(" Go ")
		Expect(err).NotTo(HaveOccurred())
		Expect(tool).To(Equal(model.ToolGo))
	})

	It("rejects unknown tools", func() {
		_, err := model.ParseTool("jmh")
		Expect(err).To(MatchError(ContainSubstring(`unsupported tool "jmh"`)))
	})

	It("panics on a tool that bypassed ParseTool", func() {
		Expect(func() { _ = model.Tool("jmh").Polarity() }).To(Panic())
	})
})

var _ = Describe("Model JSON", func() {
	It("preserves unknown commit fields", func() {
		raw := `{"id":"abc","message":"msg","distinct":true,"tree_id":"t1","author":{"name":"a"}}`
		var commit model.Commit
		Expect(json.Unmarshal([]byte(raw), &commit)).To(Succeed())
		Expect(commit.ID).To(Equal("abc"))
		Expect(commit.Author.Name).To(Equal("a"))
		Expect(commit.Extra).To(HaveKey("distinct"))
		Expect(commit.Extra).NotTo(HaveKey("id"))

		out, err := json.Marshal(commit)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(MatchJSON(raw))
	})

	It("omits Extra when there is nothing to preserve", func() {
		var commit model.Commit
		Expect(json.Unmarshal([]byte(`{"id":"abc"}`), &commit)).To(Succeed())
		Expect(commit.Extra).To(BeNil())
		out, err := json.Marshal(commit)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(MatchJSON(`{"id":"abc"}`))
	})

	It("uses the persisted field names for History", func() {
		h := model.History{
			LastUpdate: 42,
			RepoURL:    "https://github.com/org/repo",
			Entries: map[string][]model.Entry{
				"suite": {{
					Commit:  model.Commit{ID: "abc"},
					Date:    7,
					Tool:    model.ToolGo,
					Benches: []model.Measurement{{Name: "BenchmarkA", Value: 1.5, Unit: "ns/op", Range: "± 3"}},
				}},
			},
		}
		out, err := json.Marshal(h)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(MatchJSON(`{
			"lastUpdate": 42,
			"repoUrl": "https://github.com/org/repo",
			"entries": {"suite": [{
				"commit": {"id": "abc"},
				"date": 7,
				"tool": "go",
				"benches": [{"name": "BenchmarkA", "value": 1.5, "unit": "ns/op", "range": "± 3"}]
			}]}
		}`))
	})

	It("finds the first bench with a given name", func() {
		entry := model.Entry{Benches: []model.Measurement{
			{Name: "a", Value: 1},
			{Name: "a", Value: 2},
		}}
		bench, ok := entry.FindBench("a")
		Expect(ok).To(BeTrue())
		Expect(bench.Value).To(Equal(1.0))
		_, ok = entry.FindBench("b")
		Expect(ok).To(BeFalse())
	})

	It("shortens commit ids", func() {
		Expect(model.Commit{ID: "0123456789"}.ShortID()).To(Equal("0123456"))
		Expect(model.Commit{ID: "abc"}.ShortID()).To(Equal("abc"))
	})
})
