// SPDX-License-Identifier: MIT
// Package extract turns benchmark tool output into measurements.
package extract

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/skaphos/benchkeeper/internal/model"
)

// ErrNoBenchmarks is returned when the input holds no recognizable result.
var ErrNoBenchmarks = errors.New("no benchmark result found")

var (
	goLinePattern          = regexp.MustCompile(`^(Benchmark\S+?)(-\d+)?\s+(\d+)\s+(.+)$`)
	cargoLinePattern       = regexp.MustCompile(`^test\s+(.+?)\s+\.\.\.\s+bench:\s+([0-9,.]+)\s+(\S+)\s+\(\+/-\s+([0-9,.]+)\)`)
	benchmarkJSLinePattern = regexp.MustCompile(`^\s*(.+?)\s+x\s+([0-9,.]+)\s+(ops/sec)\s+±([0-9.]+)%\s+\((\d+)\s+runs?\s+sampled\)`)
)

// Parse extracts measurements from tool output. A JSON array of
// measurements is accepted for every tool.
func Parse(tool model.Tool, data []byte) ([]model.Measurement, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNoBenchmarks
	}
	if trimmed[0] == '[' {
		return parseMeasurementArray(trimmed)
	}

	var (
		out []model.Measurement
		err error
	)
	switch tool {
	case model.ToolGo:
		out, err = scanLines(trimmed, parseGoLine)
	case model.ToolCargo:
		out, err = scanLines(trimmed, parseCargoLine)
	case model.ToolBenchmarkJS:
		out, err = scanLines(trimmed, parseBenchmarkJSLine)
	case model.ToolPytest:
		out, err = parsePytest(trimmed)
	default:
		return nil, fmt.Errorf("unsupported tool %q", tool)
	}
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w in %s output", ErrNoBenchmarks, tool)
	}
	return out, nil
}

func scanLines(data []byte, parse func(string) []model.Measurement) ([]model.Measurement, error) {
	var out []model.Measurement
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		out = append(out, parse(strings.TrimRight(scanner.Text(), "\r"))...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// parseGoLine handles `BenchmarkFoo-8  1000  123 ns/op  16 B/op  1 allocs/op`.
// The first value/unit pair is the measurement; later pairs get their own
// entry named "<bench> - <unit>".
func parseGoLine(line string) []model.Measurement {
	match := goLinePattern.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return nil
	}
	name := match[1] + match[2]
	extra := match[3] + " times"
	if match[2] != "" {
		extra += "\n" + strings.TrimPrefix(match[2], "-") + " procs"
	}
	fields := strings.Fields(match[4])
	var out []model.Measurement
	for i := 0; i+1 < len(fields); i += 2 {
		value, err := parseNumber(fields[i])
		if err != nil {
			break
		}
		m := model.Measurement{Name: name, Value: value, Unit: fields[i+1], Extra: extra}
		if len(out) > 0 {
			m.Name = name + " - " + fields[i+1]
		}
		out = append(out, m)
	}
	return out
}

// parseCargoLine handles `test name ... bench:   1,234 ns/iter (+/- 56)`.
func parseCargoLine(line string) []model.Measurement {
	match := cargoLinePattern.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return nil
	}
	value, err := parseNumber(match[2])
	if err != nil {
		return nil
	}
	return []model.Measurement{{
		Name:  strings.TrimSpace(match[1]),
		Value: value,
		Unit:  match[3],
		Range: "± " + match[4],
	}}
}

// parseBenchmarkJSLine handles `name x 1,234 ops/sec ±1.23% (89 runs sampled)`.
func parseBenchmarkJSLine(line string) []model.Measurement {
	match := benchmarkJSLinePattern.FindStringSubmatch(line)
	if match == nil {
		return nil
	}
	value, err := parseNumber(match[2])
	if err != nil {
		return nil
	}
	return []model.Measurement{{
		Name:  match[1],
		Value: value,
		Unit:  match[3],
		Range: "±" + match[4] + "%",
		Extra: match[5] + " samples",
	}}
}

type pytestReport struct {
	Benchmarks []struct {
		Name     string `json:"name"`
		FullName string `json:"fullname"`
		Stats    struct {
			Mean   float64 `json:"mean"`
			StdDev float64 `json:"stddev"`
			Rounds int     `json:"rounds"`
			Ops    float64 `json:"ops"`
		} `json:"stats"`
	} `json:"benchmarks"`
}

func parsePytest(data []byte) ([]model.Measurement, error) {
	var report pytestReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse pytest-benchmark json: %w", err)
	}
	out := make([]model.Measurement, 0, len(report.Benchmarks))
	for _, b := range report.Benchmarks {
		name := b.FullName
		if name == "" {
			name = b.Name
		}
		out = append(out, model.Measurement{
			Name:  name,
			Value: b.Stats.Ops,
			Unit:  "iter/sec",
			Range: "stddev: " + strconv.FormatFloat(b.Stats.StdDev, 'g', -1, 64),
			Extra: fmt.Sprintf("mean: %s sec\nrounds: %d", strconv.FormatFloat(b.Stats.Mean, 'g', -1, 64), b.Stats.Rounds),
		})
	}
	return out, nil
}

func parseMeasurementArray(data []byte) ([]model.Measurement, error) {
	var out []model.Measurement
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse measurement array: %w", err)
	}
	for i, m := range out {
		if strings.TrimSpace(m.Name) == "" {
			return nil, fmt.Errorf("measurement %d has no name", i)
		}
		if m.Unit == "" {
			return nil, fmt.Errorf("measurement %q has no unit", m.Name)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoBenchmarks
	}
	return out, nil
}

func parseNumber(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
}
