// SPDX-License-Identifier: MIT
package benchkeeper

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skaphos/benchkeeper/internal/cliio"
	"github.com/skaphos/benchkeeper/internal/config"
	"github.com/skaphos/benchkeeper/internal/history"
	"github.com/skaphos/benchkeeper/internal/model"
	"github.com/skaphos/benchkeeper/internal/sortutil"
	"github.com/skaphos/benchkeeper/internal/tableutil"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the suites or entries stored in a history file",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, path, err := loadHistoryFile(cmd)
		if err != nil {
			return err
		}
		debugf(cmd, "reading %s", path)
		format, _ := cmd.Flags().GetString("format")
		noHeaders, _ := cmd.Flags().GetBool("no-headers")
		name, _ := cmd.Flags().GetString("name")

		switch strings.ToLower(strings.TrimSpace(format)) {
		case "json":
			return writeHistoryJSON(cmd, h, name)
		case "table", "":
		default:
			return fmt.Errorf("unsupported format %q (expected table or json)", format)
		}

		if name == "" {
			err = writeSuitesTable(cmd, h, noHeaders)
		} else {
			entries, ok := h.Entries[name]
			if !ok {
				return fmt.Errorf("suite %q not found in %s", name, path)
			}
			err = writeEntriesTable(cmd, entries, noHeaders)
		}
		logOutputWriteFailure(cmd, "history table", err)
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop the oldest entries of a suite from a local history file",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, path, err := loadHistoryFile(cmd)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		keep, _ := cmd.Flags().GetInt("keep")
		yes, _ := cmd.Flags().GetBool("yes")
		if name == "" {
			return fmt.Errorf("--name is required")
		}
		if keep <= 0 {
			return fmt.Errorf("--keep must be positive")
		}
		entries, ok := h.Entries[name]
		if !ok {
			return fmt.Errorf("suite %q not found in %s", name, path)
		}
		drop := len(entries) - keep
		if drop <= 0 {
			infof(cmd, "suite %q has %d entries; nothing to prune", name, len(entries))
			return nil
		}
		prompt := fmt.Sprintf("Drop %d of %d entries from %q in %s? [y/N]: ", drop, len(entries), name, path)
		confirmed, err := cliio.Confirm(cmd.ErrOrStderr(), cmd.InOrStdin(), prompt, yes)
		if err != nil {
			return err
		}
		if !confirmed {
			infof(cmd, "aborted")
			return nil
		}
		history.Trim(h, name, keep)
		if err := history.Store(path, h); err != nil {
			return err
		}
		infof(cmd, "dropped %d entries from %q", drop, name)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{historyCmd, historyPruneCmd} {
		c.Flags().String("data-file", "", "history file (defaults to <repo-dir>/<data-dir>/data.js)")
		c.Flags().String("repo-dir", ".", "repository checkout holding the history")
		c.Flags().String("data-dir", config.DefaultOutputDir, "directory holding data.js, relative to the repository")
		c.Flags().String("name", "", "benchmark suite name")
	}
	historyCmd.Flags().StringP("format", "o", "table", "output format: table, json")
	addNoHeadersFlag(historyCmd)
	historyPruneCmd.Flags().Int("keep", 0, "number of newest entries to keep")
	historyPruneCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func loadHistoryFile(cmd *cobra.Command) (*model.History, string, error) {
	path, _ := cmd.Flags().GetString("data-file")
	if path == "" {
		repoDir, _ := cmd.Flags().GetString("repo-dir")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		path = filepath.Join(repoDir, dataDir, history.DataFilename)
	}
	h, err := history.LoadWithError(path)
	if err != nil {
		return nil, path, err
	}
	return h, path, nil
}

func writeSuitesTable(cmd *cobra.Command, h *model.History, noHeaders bool) error {
	var rows [][]string
	for _, name := range history.Suites(h) {
		entries := h.Entries[name]
		latest := "-"
		updated := "-"
		if n := len(entries); n > 0 {
			latest = entries[n-1].Commit.ShortID()
			updated = formatDate(entries[n-1].Date)
		}
		rows = append(rows, []string{name, strconv.Itoa(len(entries)), latest, updated})
	}
	return cliio.WriteTable(cmd.OutOrStdout(), false, noHeaders, []string{"SUITE", "ENTRIES", "LATEST", "UPDATED"}, rows)
}

func writeEntriesTable(cmd *cobra.Command, entries []model.Entry, noHeaders bool) error {
	sorted := make([]model.Entry, len(entries))
	copy(sorted, entries)
	sortutil.SortEntriesByDate(sorted)
	limit := messageLimit(cmd)

	rows := make([][]string, 0, len(sorted))
	for _, e := range sorted {
		message, _, _ := strings.Cut(e.Commit.Message, "\n")
		rows = append(rows, []string{
			formatDate(e.Date),
			e.Commit.ShortID(),
			string(e.Tool),
			strconv.Itoa(len(e.Benches)),
			tableutil.TruncateCell(message, limit),
		})
	}
	return cliio.WriteTable(cmd.OutOrStdout(), false, noHeaders, []string{"DATE", "COMMIT", "TOOL", "BENCHES", "MESSAGE"}, rows)
}

func writeHistoryJSON(cmd *cobra.Command, h *model.History, name string) error {
	var v any = h
	if name != "" {
		entries, ok := h.Entries[name]
		if !ok {
			return fmt.Errorf("suite %q not found", name)
		}
		v = entries
	}
	writeJSON(cmd, "history json", v)
	return nil
}

func formatDate(unixMilli int64) string {
	if unixMilli <= 0 {
		return "-"
	}
	return time.UnixMilli(unixMilli).UTC().Format("2006-01-02 15:04")
}
