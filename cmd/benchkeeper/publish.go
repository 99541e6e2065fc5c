// SPDX-License-Identifier: MIT
package benchkeeper

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/benchkeeper/internal/cliio"
	"github.com/skaphos/benchkeeper/internal/config"
	"github.com/skaphos/benchkeeper/internal/extract"
	"github.com/skaphos/benchkeeper/internal/gitx"
	"github.com/skaphos/benchkeeper/internal/hosting"
	"github.com/skaphos/benchkeeper/internal/metrics"
	"github.com/skaphos/benchkeeper/internal/model"
	"github.com/skaphos/benchkeeper/internal/publish"
	"github.com/skaphos/benchkeeper/internal/srcrepo"
	"github.com/skaphos/benchkeeper/internal/vcs"
)

var (
	// repoContextFromEnv is overridable in tests.
	repoContextFromEnv = func() hosting.RepoContext {
		return hosting.FromEnv(os.Getenv, os.ReadFile)
	}
	// newAdapter is overridable in tests.
	newAdapter = func(cfg config.Publish, repo hosting.RepoContext) vcs.Adapter {
		adapter := vcs.NewGitAdapter(nil)
		adapter.ServerURL = repo.ServerURL
		adapter.Repository = repo.Slug()
		adapter.UserName = cfg.GitUserName
		adapter.UserEmail = cfg.GitUserEmail
		return adapter
	}
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Store a benchmark result in the history branch and check it for regressions",
	Long: "Parses benchmark tool output, appends it to data.js on the history branch, commits, " +
		"optionally pushes (rebasing and retrying once if the remote moved), and compares the result " +
		"with the previous commit's result.",
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting publish")
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		cfg, err := opts.Resolve()
		if err != nil {
			return err
		}

		outputFile, _ := cmd.Flags().GetString("output-file")
		benches, err := readBenchmarks(cmd, cfg.Tool, outputFile)
		if err != nil {
			return err
		}

		repo := resolveRepoContext(cmd, cfg.RepoDir)
		commit, err := resolveCommit(cfg.RepoDir, repo)
		if err != nil {
			return err
		}
		entry := model.Entry{Commit: commit, Tool: cfg.Tool, Benches: benches}
		debugf(cmd, "parsed %d measurements for commit %s", len(benches), commit.ShortID())

		logger := newLogger(cmd)
		defer func() { _ = logger.Sync() }()

		var commenter hosting.Commenter
		if cfg.Token != "" && (cfg.CommentOnAlert || cfg.CommentAlways) {
			client, err := hosting.NewGitHubClientFor(cmd.Context(), repo, cfg.Token)
			if err != nil {
				return err
			}
			commenter = client
		}
		var recorder *metrics.Recorder
		if cfg.MetricsFile != "" {
			recorder = metrics.NewRecorder()
		}

		coordinator := publish.New(cfg, publish.Options{
			Adapter:   newAdapter(cfg, repo),
			Commenter: commenter,
			Repo:      repo,
			Logger:    logger,
			Metrics:   recorder,
		})
		res, err := coordinator.Publish(cmd.Context(), entry)
		if res != nil {
			writePublishSummary(cmd, res)
		}
		return err
	},
}

func init() {
	addSuiteFlags(publishCmd)
	addAlertFlags(publishCmd)
	addPublishFlags(publishCmd)
	rootCmd.AddCommand(publishCmd)
}

// resolveRepoContext reads the Actions environment and, outside of Actions,
// falls back to the checkout's primary remote.
func resolveRepoContext(cmd *cobra.Command, repoDir string) hosting.RepoContext {
	repo := repoContextFromEnv()
	if repo.Slug() != "" {
		return repo
	}
	repoID, err := gitx.PrimaryRepoID(cmd.Context(), &gitx.GitRunner{}, repoDir)
	if err != nil || repoID == "" {
		debugf(cmd, "no repository context from environment or remotes")
		return repo
	}
	debugf(cmd, "using repository %s from git remote", repoID)
	return repo.WithRepoID(repoID)
}

// readBenchmarks reads tool output from path, or stdin for "-".
func readBenchmarks(cmd *cobra.Command, tool model.Tool, path string) ([]model.Measurement, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("--output-file is required")
	}
	data, err := cliio.ReadInput(path, cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read benchmark output: %w", err)
	}
	return extract.Parse(tool, data)
}

// resolveCommit prefers the head_commit of the triggering push event and
// falls back to the checkout's HEAD.
func resolveCommit(repoDir string, repo hosting.RepoContext) (model.Commit, error) {
	if path := os.Getenv("GITHUB_EVENT_PATH"); path != "" {
		if payload, err := os.ReadFile(path); err == nil {
			if commit, ok := srcrepo.CommitFromEvent(payload); ok {
				if commit.URL == "" {
					commit.URL = repo.CommitURL(commit.ID)
				}
				return commit, nil
			}
		}
	}
	return srcrepo.HeadCommit(repoDir, repo.RepoURL())
}

func writePublishSummary(cmd *cobra.Command, res *publish.Result) {
	if res.Committed {
		infof(cmd, "stored result for suite %q", res.Suite)
	}
	if res.Pushed {
		if res.Retried {
			infof(cmd, "pushed after rebasing onto the updated remote branch")
		} else {
			infof(cmd, "pushed")
		}
	}
	if res.Baseline == nil {
		return
	}
	infof(cmd, "compared with %s: %d alert(s)", res.Baseline.Commit.ShortID(), len(res.Alerts))
	if res.CommentURL != "" {
		infof(cmd, "comment: %s", res.CommentURL)
	}
	if len(res.Alerts) > 0 && (res.Report == nil || !res.Report.AlwaysReport) {
		raiseExitCode(exitWarning)
	}
}
