// SPDX-License-Identifier: MIT
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/skaphos/benchkeeper/internal/config"
	"github.com/skaphos/benchkeeper/internal/extract"
	"github.com/skaphos/benchkeeper/internal/history"
	"github.com/skaphos/benchkeeper/internal/model"
	"github.com/skaphos/benchkeeper/internal/notify"
	"github.com/skaphos/benchkeeper/internal/regression"
	"github.com/skaphos/benchkeeper/internal/sortutil"
	"github.com/skaphos/benchkeeper/internal/srcrepo"
	"github.com/skaphos/benchkeeper/internal/strutil"
)

const defaultSuite = "benchkeeper"

func main() {
	dataPath := flag.String("data", "perf/data.js", "local benchmark history file")
	rawDir := flag.String("raw-dir", "perf/runs", "directory for raw benchmark logs")
	packageCSV := flag.String("packages", "./internal/extract,./internal/regression,./internal/history", "comma-separated benchmark packages")
	benchPattern := flag.String("bench", ".", "go test -bench pattern")
	benchtime := flag.String("benchtime", "100ms", "go test benchmark time (for example: 1x, 500ms, 2s)")
	suite := flag.String("suite", defaultSuite, "suite name in the history file")
	threshold := flag.String("threshold", "150%", "ratio or percentage that marks a regression")
	flag.Parse()

	packages := strutil.SplitCSV(*packageCSV)
	if len(packages) == 0 {
		fmt.Fprintln(os.Stderr, "no benchmark packages provided")
		os.Exit(2)
	}
	limit, err := config.ParseThreshold(*threshold)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	rawOutput, err := runBenchmarks(packages, *benchPattern, *benchtime)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	rawFile := filepath.Join(*rawDir, now.Format("20060102T150405Z")+".txt")
	if err := os.MkdirAll(*rawDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create raw dir: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(rawFile, []byte(rawOutput), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write raw log: %v\n", err)
		os.Exit(1)
	}

	commit, err := srcrepo.HeadCommit(".", "")
	if err != nil {
		commit = model.Commit{ID: "unknown"}
	}
	entry, err := buildEntry(rawOutput, commit, now)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	baseline, err := recordRun(*dataPath, *suite, entry, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "update history: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("saved raw benchmark log: %s\n", rawFile)
	fmt.Printf("updated benchmark history: %s\n", *dataPath)
	regressed, err := printSummary(os.Stdout, *suite, entry, baseline, limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if regressed {
		os.Exit(1)
	}
}

func runBenchmarks(packages []string, bench, benchtime string) (string, error) {
	args := []string{
		"test",
		"-run=^$",
		"-bench=" + bench,
		"-benchmem",
		"-benchtime=" + benchtime,
	}
	args = append(args, packages...)
	cmd := exec.Command("go", args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("benchmark run failed: %w\n%s", err, output.String())
	}
	return output.String(), nil
}

// buildEntry parses go test -bench output into a history entry.
func buildEntry(raw string, commit model.Commit, now time.Time) (model.Entry, error) {
	benches, err := extract.Parse(model.ToolGo, []byte(raw))
	if err != nil {
		return model.Entry{}, err
	}
	return model.Entry{Commit: commit, Date: now.UnixMilli(), Tool: model.ToolGo, Benches: benches}, nil
}

// recordRun appends entry to the history at path and returns the baseline
// it should be compared with.
func recordRun(path, suite string, entry model.Entry, now time.Time) (*model.Entry, error) {
	h := history.Load(path)
	h, baseline := history.Merge(h, suite, entry, "", now)
	if err := history.Store(path, h); err != nil {
		return nil, err
	}
	return baseline, nil
}

// printSummary writes every compared benchmark, worst first, and reports
// whether any ratio exceeds threshold.
func printSummary(out io.Writer, suite string, entry model.Entry, baseline *model.Entry, threshold float64) (bool, error) {
	if baseline == nil {
		_, err := fmt.Fprintf(out, "first run for %q: %d benchmarks recorded\n", suite, len(entry.Benches))
		return false, err
	}
	alerts := regression.Detect(entry, *baseline, 0)
	sortutil.SortAlertsByRatio(alerts)
	report := notify.Compose(alerts, suite, entry, *baseline, 0, notify.Footer{})
	if err := notify.WritePlain(out, report, nil); err != nil {
		return false, err
	}
	for _, alert := range alerts {
		if alert.Ratio > threshold {
			return true, nil
		}
	}
	return false, nil
}
