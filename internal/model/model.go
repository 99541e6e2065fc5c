// SPDX-License-Identifier: MIT
// Package model defines the core data types used throughout benchkeeper.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Remote represents a single git remote.
type Remote struct {
	// Name is the configured remote name (for example, "origin").
	Name string `json:"name" yaml:"name"`
	// URL is the remote fetch/push URL.
	URL string `json:"url" yaml:"url"`
}

// Head represents the current HEAD state of a repo.
type Head struct {
	// Branch is the current branch name when HEAD is attached, or the short
	// commit hash when detached.
	Branch string `json:"branch" yaml:"branch"`
	// Detached reports whether HEAD is detached.
	Detached bool `json:"detached" yaml:"detached"`
}

// Tool identifies the benchmarking tool that produced a result. The set is
// closed; use ParseTool to construct one from user input.
type Tool string

const (
	ToolCargo       Tool = "cargo"
	ToolGo          Tool = "go"
	ToolBenchmarkJS Tool = "benchmarkjs"
	ToolPytest      Tool = "pytest"
)

// AllTools lists every supported tool in a stable order.
var AllTools = []Tool{ToolCargo, ToolGo, ToolBenchmarkJS, ToolPytest}

// ParseTool validates a tool name.
func ParseTool(raw string) (Tool, error) {
	name := Tool(strings.ToLower(strings.TrimSpace(raw)))
	for _, tool := range AllTools {
		if tool == name {
			return tool, nil
		}
	}
	names := make([]string, 0, len(AllTools))
	for _, tool := range AllTools {
		names = append(names, string(tool))
	}
	return "", fmt.Errorf("unsupported tool %q (supported: %s)", raw, strings.Join(names, ","))
}

// Polarity says which direction of change counts as an improvement.
type Polarity int

const (
	SmallerIsBetter Polarity = iota
	BiggerIsBetter
)

func (p Polarity) String() string {
	if p == BiggerIsBetter {
		return "bigger-is-better"
	}
	return "smaller-is-better"
}

// Polarity maps a tool to its regression direction. Every Tool constant must
// have a case here; a Tool built without ParseTool panics.
func (t Tool) Polarity() Polarity {
	switch t {
	case ToolCargo, ToolGo:
		return SmallerIsBetter
	case ToolBenchmarkJS, ToolPytest:
		return BiggerIsBetter
	}
	panic(fmt.Sprintf("model: no polarity for tool %q", string(t)))
}

// Person is a commit author or committer.
type Person struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

// Commit identifies the source revision a benchmark ran against. Only ID is
// interpreted; fields benchkeeper does not know about are kept in Extra and
// written back unchanged.
type Commit struct {
	ID        string  `json:"id"`
	Message   string  `json:"message,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
	URL       string  `json:"url,omitempty"`
	Author    *Person `json:"author,omitempty"`
	Committer *Person `json:"committer,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var commitKnownFields = []string{"id", "message", "timestamp", "url", "author", "committer"}

// UnmarshalJSON decodes the known commit fields and stashes the rest in Extra.
func (c *Commit) UnmarshalJSON(data []byte) error {
	type plain Commit
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range commitKnownFields {
		delete(raw, key)
	}
	*c = Commit(p)
	if len(raw) > 0 {
		c.Extra = raw
	}
	return nil
}

// MarshalJSON encodes the known fields plus any preserved Extra fields.
func (c Commit) MarshalJSON() ([]byte, error) {
	type plain Commit
	data, err := json.Marshal(plain(c))
	if err != nil || len(c.Extra) == 0 {
		return data, err
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range c.Extra {
		if _, known := merged[key]; !known {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// ShortID returns the first seven characters of the commit id.
func (c Commit) ShortID() string {
	if len(c.ID) <= 7 {
		return c.ID
	}
	return c.ID[:7]
}

// Measurement is a single named benchmark value.
type Measurement struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	// Range is display-only, for example "± 3".
	Range string `json:"range,omitempty"`
	// Extra is free-form text from the tool, for example iteration counts.
	Extra string `json:"extra,omitempty"`
}

// Entry is one benchmark run for one suite.
type Entry struct {
	Commit Commit `json:"commit"`
	// Date is the unix time in milliseconds when the entry was recorded.
	Date    int64         `json:"date"`
	Tool    Tool          `json:"tool"`
	Benches []Measurement `json:"benches"`
}

// FindBench returns the first measurement with the given name.
func (e Entry) FindBench(name string) (Measurement, bool) {
	for _, bench := range e.Benches {
		if bench.Name == name {
			return bench, true
		}
	}
	return Measurement{}, false
}

// History is the persisted, append-only benchmark history document.
type History struct {
	// LastUpdate is the unix time in milliseconds of the most recent merge.
	LastUpdate int64 `json:"lastUpdate"`
	// RepoURL is display metadata, overwritten on each merge.
	RepoURL string `json:"repoUrl"`
	// Entries maps a suite name to its entries in arrival order.
	Entries map[string][]Entry `json:"entries"`
}

// EmptyHistory returns the default document used on first run or when the
// stored document cannot be read.
func EmptyHistory() *History {
	return &History{Entries: map[string][]Entry{}}
}
