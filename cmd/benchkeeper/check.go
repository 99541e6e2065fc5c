// SPDX-License-Identifier: MIT
package benchkeeper

import (
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/skaphos/benchkeeper/internal/history"
	"github.com/skaphos/benchkeeper/internal/model"
	"github.com/skaphos/benchkeeper/internal/notify"
	"github.com/skaphos/benchkeeper/internal/regression"
	"github.com/skaphos/benchkeeper/internal/sortutil"
	"github.com/skaphos/benchkeeper/internal/srcrepo"
	"github.com/skaphos/benchkeeper/internal/termstyle"
)

// localCommitID names the current result when HEAD cannot be read.
const localCommitID = "local"

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare a benchmark result with a stored history without publishing",
	Long: "Reads a data.js history file and reports how a new benchmark result compares with the " +
		"latest entry from a different commit. Nothing is committed or pushed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		setColorOutputMode(cmd)
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		// check never touches the remote.
		opts.AutoPush = false
		opts.CommentOnAlert = false
		opts.CommentAlways = false
		cfg, err := opts.Resolve()
		if err != nil {
			return err
		}

		outputFile, _ := cmd.Flags().GetString("output-file")
		benches, err := readBenchmarks(cmd, cfg.Tool, outputFile)
		if err != nil {
			return err
		}

		dataFile, _ := cmd.Flags().GetString("data-file")
		if dataFile == "" {
			dataFile = filepath.Join(cfg.RepoDir, cfg.OutputDir, history.DataFilename)
		}
		h, lerr := history.LoadWithError(dataFile)
		if lerr != nil {
			debugf(cmd, "using empty history: %v", lerr)
		}

		commit, cerr := srcrepo.HeadCommit(cfg.RepoDir, "")
		if cerr != nil {
			debugf(cmd, "could not read HEAD commit: %v", cerr)
			commit = model.Commit{ID: localCommitID}
		}
		baseline := history.Baseline(h.Entries[cfg.Name], commit.ID)
		if baseline == nil {
			infof(cmd, "no previous result for suite %q in %s", cfg.Name, dataFile)
			return nil
		}

		showAll, _ := cmd.Flags().GetBool("all")
		threshold := cfg.AlertThreshold
		if showAll {
			threshold = 0
		}
		current := model.Entry{Commit: commit, Tool: cfg.Tool, Benches: benches}
		alerts := regression.DetectWithOptions(current, *baseline, regression.Options{
			Threshold: threshold,
			Ignore:    cfg.AlertIgnore,
		})
		if len(alerts) == 0 {
			infof(cmd, "no regression against %s", baseline.Commit.ShortID())
			return nil
		}
		sortutil.SortAlertsByRatio(alerts)

		report := notify.Compose(alerts, cfg.Name, current, *baseline, threshold, notify.Footer{})
		err = notify.WritePlain(cmd.OutOrStdout(), report, ratioColorizer(cfg.AlertThreshold))
		logOutputWriteFailure(cmd, "check report", err)

		regressions, failing := 0, 0
		for _, alert := range alerts {
			if alert.Ratio > cfg.AlertThreshold {
				regressions++
			}
			if alert.Ratio > cfg.FailThreshold {
				failing++
			}
		}
		// Zero thresholds are informational.
		if regressions > 0 && cfg.AlertThreshold > 0 {
			raiseExitCode(exitWarning)
		}
		if cfg.FailOnAlert && cfg.FailThreshold > 0 && failing > 0 {
			raiseExitCode(exitAlert)
		}
		return nil
	},
}

func init() {
	addSuiteFlags(checkCmd)
	addAlertFlags(checkCmd)
	checkCmd.Flags().String("data-file", "", "history file to compare against (defaults to <repo-dir>/<data-dir>/data.js)")
	checkCmd.Flags().Bool("all", false, "show every compared benchmark, not only regressions")
	rootCmd.AddCommand(checkCmd)
}

// ratioColorizer colors ratio cells by severity when color output is enabled.
func ratioColorizer(threshold float64) func(string) string {
	if !colorOutputEnabled {
		return nil
	}
	return func(cell string) string {
		ratio, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return cell
		}
		return termstyle.Colorize(true, cell, termstyle.ForRatio(ratio, threshold))
	}
}
