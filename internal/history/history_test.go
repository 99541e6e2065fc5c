// SPDX-License-Identifier: MIT
package history_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/benchkeeper/internal/history"
	"github.com/skaphos/benchkeeper/internal/model"
)

func entryFor(commitID string, value float64) model.Entry {
	return model.Entry{
		Commit:  model.Commit{ID: commitID},
		Date:    1,
		Tool:    model.ToolGo,
		Benches: []model.Measurement{{Name: "BenchmarkA", Value: value, Unit: "ns/op"}},
	}
}

var _ = Describe("Load", func() {
	It("returns the empty default for a missing file", func() {
		h := history.Load(filepath.Join(GinkgoT().TempDir(), "data.js"))
		Expect(h.LastUpdate).To(BeZero())
		Expect(h.RepoURL).To(BeEmpty())
		Expect(h.Entries).NotTo(BeNil())
		Expect(h.Entries).To(BeEmpty())
	})

	It("returns the empty default for an empty file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "data.js")
		Expect(os.WriteFile(path, nil, 0o644)).To(Succeed())
		h, err := history.LoadWithError(path)
		Expect(err).To(MatchError(history.ErrMissingPrefix))
		Expect(h).To(Equal(model.EmptyHistory()))
	})

	It("returns the empty default for corrupt JSON", func() {
		path := filepath.Join(GinkgoT().TempDir(), "data.js")
		Expect(os.WriteFile(path, []byte(history.DataPrefix+"{not json"), 0o644)).To(Succeed())
		h, err := history.LoadWithError(path)
		Expect(err).To(HaveOccurred())
		Expect(h.Entries).To(BeEmpty())
	})

	It("parses a document written by hand", func() {
		path := filepath.Join(GinkgoT().TempDir(), "data.js")
		doc := history.DataPrefix + `{"lastUpdate": 5, "repoUrl": "https://x", "entries": {"s": [{"commit": {"id": "a"}, "date": 1, "tool": "cargo", "benches": []}]}};`
		Expect(os.WriteFile(path, []byte(doc), 0o644)).To(Succeed())
		h := history.Load(path)
		Expect(h.LastUpdate).To(Equal(int64(5)))
		Expect(h.Entries["s"]).To(HaveLen(1))
		Expect(h.Entries["s"][0].Tool).To(Equal(model.ToolCargo))
	})

	It("normalizes a null entries map", func() {
		h, err := history.Parse([]byte(history.DataPrefix + `{"lastUpdate": 1, "repoUrl": "", "entries": null}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Entries).NotTo(BeNil())
	})
})

var _ = Describe("Store", func() {
	It("round-trips through Load", func() {
		path := filepath.Join(GinkgoT().TempDir(), "nested", "data.js")
		h := model.EmptyHistory()
		h, _ = history.Merge(h, "suite", entryFor("a", 10), "https://github.com/org/repo", time.UnixMilli(1000))
		extra := entryFor("b", 12)
		extra.Commit.Extra = map[string]json.RawMessage{"distinct": json.RawMessage("true")}
		extra.Benches[0].Range = "± 1"
		h, _ = history.Merge(h, "suite", extra, "https://github.com/org/repo", time.UnixMilli(2000))

		Expect(history.Store(path, h)).To(Succeed())
		loaded, err := history.LoadWithError(path)
		Expect(err).NotTo(HaveOccurred())

		want, err := json.Marshal(h)
		Expect(err).NotTo(HaveOccurred())
		got, err := json.Marshal(loaded)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(MatchJSON(want))
	})

	It("writes the prefix followed by valid JSON", func() {
		path := filepath.Join(GinkgoT().TempDir(), "data.js")
		Expect(history.Store(path, model.EmptyHistory())).To(Succeed())
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(HavePrefix(history.DataPrefix))
		Expect(strings.TrimPrefix(string(data), history.DataPrefix)).To(MatchJSON(`{"lastUpdate":0,"repoUrl":"","entries":{}}`))
	})

	It("leaves no temp files behind", func() {
		dir := GinkgoT().TempDir()
		Expect(history.Store(filepath.Join(dir, "data.js"), model.EmptyHistory())).To(Succeed())
		files, err := os.ReadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(1))
		Expect(files[0].Name()).To(Equal("data.js"))
	})

	It("rejects a nil history", func() {
		Expect(history.Store(filepath.Join(GinkgoT().TempDir(), "data.js"), nil)).NotTo(Succeed())
	})
})

var _ = Describe("Merge", func() {
	It("appends entries in arrival order without mutating earlier ones", func() {
		h := model.EmptyHistory()
		for i, id := range []string{"a", "b", "c", "d"} {
			h, _ = history.Merge(h, "suite", entryFor(id, float64(i)), "", time.UnixMilli(int64(i)))
		}
		entries := h.Entries["suite"]
		Expect(entries).To(HaveLen(4))
		for i, id := range []string{"a", "b", "c", "d"} {
			Expect(entries[i].Commit.ID).To(Equal(id))
			Expect(entries[i].Benches[0].Value).To(Equal(float64(i)))
		}
	})

	It("does not disturb a slice the caller already holds", func() {
		h := model.EmptyHistory()
		h, _ = history.Merge(h, "suite", entryFor("a", 1), "", time.UnixMilli(1))
		held := h.Entries["suite"]
		h, _ = history.Merge(h, "suite", entryFor("b", 2), "", time.UnixMilli(2))
		Expect(held).To(HaveLen(1))
		Expect(h.Entries["suite"]).To(HaveLen(2))
	})

	It("stamps lastUpdate and repoUrl", func() {
		h, _ := history.Merge(model.EmptyHistory(), "suite", entryFor("a", 1), "https://github.com/org/repo", time.UnixMilli(12345))
		Expect(h.LastUpdate).To(Equal(int64(12345)))
		Expect(h.RepoURL).To(Equal("https://github.com/org/repo"))
	})

	It("keeps suites separate", func() {
		h, _ := history.Merge(nil, "one", entryFor("a", 1), "", time.UnixMilli(1))
		h, baseline := history.Merge(h, "two", entryFor("b", 1), "", time.UnixMilli(2))
		Expect(baseline).To(BeNil())
		Expect(history.Suites(h)).To(Equal([]string{"one", "two"}))
	})

	It("returns no baseline on the first run", func() {
		_, baseline := history.Merge(model.EmptyHistory(), "suite", entryFor("a", 1), "", time.Now())
		Expect(baseline).To(BeNil())
	})

	It("returns no baseline for a rerun of the same commit", func() {
		h, _ := history.Merge(model.EmptyHistory(), "suite", entryFor("a", 1), "", time.Now())
		h, baseline := history.Merge(h, "suite", entryFor("a", 2), "", time.Now())
		Expect(baseline).To(BeNil())
		Expect(h.Entries["suite"]).To(HaveLen(2))
	})

	It("selects the closest prior entry with a different commit", func() {
		h := model.EmptyHistory()
		for i, id := range []string{"A", "A", "B", "C"} {
			h, _ = history.Merge(h, "suite", entryFor(id, float64(i)), "", time.Now())
		}
		_, baseline := history.Merge(h, "suite", entryFor("C", 99), "", time.Now())
		Expect(baseline).NotTo(BeNil())
		Expect(baseline.Commit.ID).To(Equal("B"))
		Expect(baseline.Benches[0].Value).To(Equal(2.0))
	})
})

var _ = Describe("Trim", func() {
	It("keeps the newest entries of one suite", func() {
		h := model.EmptyHistory()
		for _, id := range []string{"A", "B", "C", "D"} {
			h, _ = history.Merge(h, "suite", entryFor(id, 1), "", time.Now())
		}
		h, _ = history.Merge(h, "other", entryFor("X", 1), "", time.Now())

		Expect(history.Trim(h, "suite", 2)).To(Equal(2))
		Expect(h.Entries["suite"]).To(HaveLen(2))
		Expect(h.Entries["suite"][0].Commit.ID).To(Equal("C"))
		Expect(h.Entries["suite"][1].Commit.ID).To(Equal("D"))
		Expect(h.Entries["other"]).To(HaveLen(1))
	})

	It("is a no-op without a limit or below it", func() {
		h, _ := history.Merge(nil, "suite", entryFor("A", 1), "", time.Now())
		Expect(history.Trim(h, "suite", 0)).To(Equal(0))
		Expect(history.Trim(h, "suite", 5)).To(Equal(0))
		Expect(history.Trim(nil, "suite", 1)).To(Equal(0))
		Expect(h.Entries["suite"]).To(HaveLen(1))
	})
})
