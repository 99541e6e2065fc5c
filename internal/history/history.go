// SPDX-License-Identifier: MIT
// Package history handles persistence and merge semantics for the
// append-only benchmark history document.
package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/skaphos/benchkeeper/internal/model"
)

// DataPrefix precedes the JSON document in the persisted file so a static
// page can load it with a plain <script> tag.
const DataPrefix = "window.BENCHMARK_DATA = "

// DataFilename is the name of the history file inside the data directory.
const DataFilename = "data.js"

// ErrMissingPrefix is returned by Parse when the data prefix is absent.
var ErrMissingPrefix = errors.New("history: missing data prefix")

// Load reads the history file at path. It never fails: a missing, unreadable
// or corrupt file yields the empty default history.
func Load(path string) *model.History {
	h, _ := LoadWithError(path)
	return h
}

// LoadWithError is Load that also reports why the empty default was used.
// The returned history is always usable.
func LoadWithError(path string) (*model.History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.EmptyHistory(), err
	}
	h, err := Parse(data)
	if err != nil {
		return model.EmptyHistory(), fmt.Errorf("parse %s: %w", path, err)
	}
	return h, nil
}

// Parse strips DataPrefix from data and decodes the remaining JSON.
func Parse(data []byte) (*model.History, error) {
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte(DataPrefix)) {
		return nil, ErrMissingPrefix
	}
	body := bytes.TrimSuffix(bytes.TrimSpace(trimmed[len(DataPrefix):]), []byte(";"))
	var h model.History
	if err := json.Unmarshal(body, &h); err != nil {
		return nil, err
	}
	if h.Entries == nil {
		h.Entries = map[string][]model.Entry{}
	}
	return &h, nil
}

// Render serializes h as DataPrefix followed by indented JSON.
func Render(h *model.History) ([]byte, error) {
	if h == nil {
		return nil, errors.New("history is nil")
	}
	body, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(DataPrefix)+len(body)+1)
	out = append(out, DataPrefix...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

// Store writes h to path. The content goes to a temp file in the same
// directory first and is renamed over path, so readers see either the old
// or the new document.
func Store(path string, h *model.History) error {
	data, err := Render(h)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// Merge appends entry to the suite's sequence, stamps LastUpdate and RepoURL,
// and returns the baseline for regression checks (nil when none exists).
// Existing entries are never modified.
func Merge(h *model.History, suite string, entry model.Entry, repoURL string, now time.Time) (*model.History, *model.Entry) {
	if h == nil {
		h = model.EmptyHistory()
	}
	if h.Entries == nil {
		h.Entries = map[string][]model.Entry{}
	}
	prior := h.Entries[suite]
	baseline := Baseline(prior, entry.Commit.ID)

	// Copy so a caller holding the old slice never observes the append.
	next := make([]model.Entry, len(prior), len(prior)+1)
	copy(next, prior)
	h.Entries[suite] = append(next, entry)
	h.LastUpdate = now.UnixMilli()
	h.RepoURL = repoURL
	return h, baseline
}

// Baseline returns the most recent entry whose commit differs from commitID.
func Baseline(entries []model.Entry, commitID string) *model.Entry {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Commit.ID != commitID {
			found := entries[i]
			return &found
		}
	}
	return nil
}

// Trim keeps only the newest max entries of suite and reports how many were
// dropped. A max of zero or less keeps everything.
func Trim(h *model.History, suite string, max int) int {
	if h == nil || max <= 0 {
		return 0
	}
	entries := h.Entries[suite]
	drop := len(entries) - max
	if drop <= 0 {
		return 0
	}
	kept := make([]model.Entry, max)
	copy(kept, entries[drop:])
	h.Entries[suite] = kept
	return drop
}

// Suites returns the suite names in h, sorted.
func Suites(h *model.History) []string {
	if h == nil {
		return nil
	}
	names := make([]string, 0, len(h.Entries))
	for name := range h.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
