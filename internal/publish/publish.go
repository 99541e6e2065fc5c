// SPDX-License-Identifier: MIT
// Package publish runs one benchmark publish: it switches to the publish
// branch, merges the new entry into the stored history, commits and pushes
// it, and then checks the entry against its baseline.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/skaphos/benchkeeper/internal/config"
	"github.com/skaphos/benchkeeper/internal/gitx"
	"github.com/skaphos/benchkeeper/internal/history"
	"github.com/skaphos/benchkeeper/internal/hosting"
	"github.com/skaphos/benchkeeper/internal/metrics"
	"github.com/skaphos/benchkeeper/internal/model"
	"github.com/skaphos/benchkeeper/internal/notify"
	"github.com/skaphos/benchkeeper/internal/regression"
	"github.com/skaphos/benchkeeper/internal/vcs"
	"github.com/skaphos/benchkeeper/internal/viewer"
)

var (
	// ErrSwitchBranch is returned when the publish branch cannot be checked out.
	ErrSwitchBranch = errors.New("switch to publish branch failed")
	// ErrSync is returned when pulling the publish branch fails.
	ErrSync = errors.New("sync with remote failed")
	// ErrPush is returned for a push failure that cannot be retried, or a
	// second failure after the retry.
	ErrPush = errors.New("push failed")
	// ErrNotRepository is returned when the repository directory is not a
	// working tree of the configured VCS.
	ErrNotRepository = errors.New("not a repository")
	// ErrInvalidEntry is returned when the entry to publish is unusable.
	ErrInvalidEntry = errors.New("invalid benchmark entry")
	// ErrMissingRepoContext is returned when a comment must be posted but the
	// repository is unknown.
	ErrMissingRepoContext = hosting.ErrMissingRepoContext
)

// AlertError reports that fail-on-alert tripped. Its message is the composed
// report so the regression details end up in the run log.
type AlertError struct {
	Suite  string
	Alerts []regression.Alert
	Report notify.Report
}

func (e *AlertError) Error() string {
	return e.Report.String()
}

// Result describes what a publish did.
type Result struct {
	Suite string
	// Baseline is the entry the new result was compared against, nil on the
	// first publish of a commit series.
	Baseline   *model.Entry
	Alerts     []regression.Alert
	Report     *notify.Report
	CommentURL string
	Committed  bool
	Pushed     bool
	Retried    bool
}

// Options carries the collaborators of a Coordinator. Zero values are
// replaced with defaults by New.
type Options struct {
	Adapter   vcs.Adapter
	Commenter hosting.Commenter
	Repo      hosting.RepoContext
	Logger    *zap.Logger
	Now       func() time.Time
	Metrics   *metrics.Recorder
}

// Coordinator publishes benchmark entries for one configuration.
type Coordinator struct {
	cfg       config.Publish
	adapter   vcs.Adapter
	commenter hosting.Commenter
	repo      hosting.RepoContext
	log       *zap.Logger
	now       func() time.Time
	metrics   *metrics.Recorder
}

// New creates a Coordinator for cfg.
func New(cfg config.Publish, opts Options) *Coordinator {
	if opts.Adapter == nil {
		opts.Adapter = vcs.NewGitAdapter(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		cfg:       cfg,
		adapter:   opts.Adapter,
		commenter: opts.Commenter,
		repo:      opts.Repo,
		log:       opts.Logger,
		now:       opts.Now,
		metrics:   opts.Metrics,
	}
}

// Publish stores entry under the configured suite and reports regressions
// against the previous entry from a different commit. Once the publish branch
// is checked out, the original ref is restored on every return path.
func (c *Coordinator) Publish(ctx context.Context, entry model.Entry) (res *Result, err error) {
	entry, err = c.prepareEntry(entry)
	if err != nil {
		return nil, err
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	if c.cfg.CommentOnAlert || c.cfg.CommentAlways {
		if err := c.repo.Validate(); err != nil {
			return nil, err
		}
	}

	suite := c.cfg.Name
	dir := c.cfg.RepoDir
	if ok, rerr := c.adapter.IsRepo(ctx, dir); rerr != nil || !ok {
		if rerr != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotRepository, dir, rerr)
		}
		return nil, fmt.Errorf("%w: %s is not a %s working tree", ErrNotRepository, dir, c.adapter.Name())
	}
	log := c.log.With(
		zap.String("suite", suite),
		zap.String("branch", c.cfg.Branch),
		zap.String("commit", entry.Commit.ShortID()),
		zap.String("vcs", c.adapter.Name()),
	)
	res = &Result{Suite: suite}

	if head, herr := c.adapter.CurrentRef(ctx, dir); herr == nil {
		log.Debug("publishing from ref", zap.String("ref", head.Branch), zap.Bool("detached", head.Detached))
	} else {
		log.Debug("could not read current ref", zap.Error(herr))
	}

	syncEnabled := c.syncEnabled(log)
	if syncEnabled {
		if ferr := c.adapter.Fetch(ctx, dir, c.cfg.Token, c.cfg.Branch); ferr != nil {
			log.Warn("fetch of publish branch failed; using local branch", zap.Error(ferr))
		}
	}
	if err := c.adapter.SwitchBranch(ctx, dir, c.cfg.Branch); err != nil {
		return res, fmt.Errorf("%w: %s: %w", ErrSwitchBranch, c.cfg.Branch, err)
	}
	defer func() {
		if rerr := c.adapter.CheckoutPrevious(context.WithoutCancel(ctx), dir); rerr != nil {
			log.Error("failed to restore original ref", zap.Error(rerr))
			if err == nil {
				err = fmt.Errorf("restore original ref: %w", rerr)
			}
		}
	}()
	defer c.flushMetrics(log)

	if syncEnabled {
		if err := c.adapter.Pull(ctx, dir, c.cfg.Token, c.cfg.Branch); err != nil {
			return res, fmt.Errorf("%w: %w", ErrSync, err)
		}
	}

	baseline, err := c.store(ctx, log, entry)
	if err != nil {
		return res, err
	}
	res.Baseline = baseline
	res.Committed = true

	if c.cfg.AutoPush {
		retried, err := c.pushWithRetry(ctx, log)
		res.Retried = retried
		if err != nil {
			return res, err
		}
		res.Pushed = true
		log.Info("pushed benchmark result", zap.Bool("retried", retried))
	}

	if err := c.notify(ctx, log, entry, res); err != nil {
		return res, err
	}
	return res, nil
}

func (c *Coordinator) prepareEntry(entry model.Entry) (model.Entry, error) {
	if entry.Commit.ID == "" {
		return entry, fmt.Errorf("%w: commit id is empty", ErrInvalidEntry)
	}
	if len(entry.Benches) == 0 {
		return entry, fmt.Errorf("%w: no measurements", ErrInvalidEntry)
	}
	if entry.Tool == "" {
		entry.Tool = c.cfg.Tool
	}
	if entry.Date == 0 {
		entry.Date = c.now().UnixMilli()
	}
	return entry, nil
}

// syncEnabled decides whether the publish branch is synced with the remote.
// A private repository cannot be read without a token, so sync is skipped
// with a warning rather than failing.
func (c *Coordinator) syncEnabled(log *zap.Logger) bool {
	switch {
	case c.cfg.SkipFetch:
		log.Debug("skipping sync with remote")
		return false
	case c.repo.Private && c.cfg.Token == "":
		log.Warn("private repository and no token; skipping sync with remote")
		return false
	default:
		return true
	}
}

// store merges entry into the history file, stages it together with the
// viewer page, and commits. It returns the baseline found during the merge.
func (c *Coordinator) store(ctx context.Context, log *zap.Logger, entry model.Entry) (*model.Entry, error) {
	dir := c.cfg.RepoDir
	dataDir := filepath.Join(dir, c.cfg.OutputDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	dataPath := filepath.Join(dataDir, history.DataFilename)
	current, lerr := history.LoadWithError(dataPath)
	if lerr != nil {
		log.Debug("starting from empty history", zap.String("path", dataPath), zap.Error(lerr))
	}

	merged, baseline := history.Merge(current, c.cfg.Name, entry, c.repo.RepoURL(), c.now())
	if dropped := history.Trim(merged, c.cfg.Name, c.cfg.MaxItems); dropped > 0 {
		log.Info("dropped old entries", zap.Int("dropped", dropped), zap.Int("max_items", c.cfg.MaxItems))
	}
	if err := history.Store(dataPath, merged); err != nil {
		return nil, err
	}
	c.metrics.ObserveEntry(c.cfg.Name, entry)
	c.metrics.ObserveHistory(c.cfg.Name, len(merged.Entries[c.cfg.Name]))

	if err := c.adapter.Add(ctx, dir, filepath.ToSlash(filepath.Join(c.cfg.OutputDir, history.DataFilename))); err != nil {
		return nil, err
	}
	if _, wrote, err := viewer.WriteIfAbsent(dataDir); err != nil {
		return nil, fmt.Errorf("write viewer page: %w", err)
	} else if wrote {
		log.Info("created default viewer page")
		if err := c.adapter.Add(ctx, dir, filepath.ToSlash(filepath.Join(c.cfg.OutputDir, viewer.IndexFilename))); err != nil {
			return nil, err
		}
	}

	message := fmt.Sprintf("add %s (%s) benchmark result for %s", c.cfg.Name, entry.Tool, entry.Commit.ID)
	if err := c.adapter.Commit(ctx, dir, message); err != nil {
		return nil, err
	}
	log.Info("committed benchmark result", zap.Int("entries", len(merged.Entries[c.cfg.Name])))
	return baseline, nil
}

// pushWithRetry pushes once and, only when the remote rejected the push
// because the branch moved, rebases and pushes exactly one more time.
func (c *Coordinator) pushWithRetry(ctx context.Context, log *zap.Logger) (bool, error) {
	dir := c.cfg.RepoDir
	err := c.adapter.Push(ctx, dir, c.cfg.Token, c.cfg.Branch)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gitx.ErrRemoteRejected) {
		log.Error("push failed", zap.String("class", gitx.ClassifyError(err)), zap.Error(err))
		return false, fmt.Errorf("%w: %w", ErrPush, err)
	}

	log.Warn("push rejected by remote; rebasing and retrying once", zap.Error(err))
	c.metrics.PushRetried()
	if err := c.adapter.Pull(ctx, dir, c.cfg.Token, c.cfg.Branch, "--rebase"); err != nil {
		return true, fmt.Errorf("%w: rebase after rejected push: %w", ErrPush, err)
	}
	if err := c.adapter.Push(ctx, dir, c.cfg.Token, c.cfg.Branch); err != nil {
		log.Error("retried push failed", zap.String("class", gitx.ClassifyError(err)), zap.Error(err))
		return true, fmt.Errorf("%w: retried push: %w", ErrPush, err)
	}
	return true, nil
}

func (c *Coordinator) notify(ctx context.Context, log *zap.Logger, entry model.Entry, res *Result) error {
	if res.Baseline == nil {
		log.Info("no previous benchmark found; skipping regression check")
		return nil
	}
	baseline := *res.Baseline
	footer := notify.Footer{RunURL: c.repo.RunURL(), Workflow: c.repo.Workflow, CCUsers: c.cfg.AlertCCUsers}

	if c.cfg.CommentAlways {
		all := regression.DetectWithOptions(entry, baseline, regression.Options{Ignore: c.cfg.AlertIgnore})
		report := notify.Compose(all, c.cfg.Name, entry, baseline, 0, notify.Footer{RunURL: footer.RunURL, Workflow: footer.Workflow})
		url, err := c.comment(ctx, entry.Commit.ID, report)
		if err != nil {
			return err
		}
		res.CommentURL = url
		log.Info("posted benchmark report", zap.String("url", url))
	}

	if !c.cfg.CommentOnAlert && !c.cfg.FailOnAlert {
		return nil
	}

	alerts := regression.DetectWithOptions(entry, baseline, regression.Options{
		Threshold: c.cfg.AlertThreshold,
		Ignore:    c.cfg.AlertIgnore,
	})
	res.Alerts = alerts
	c.metrics.ObserveAlerts(c.cfg.Name, len(alerts))
	if len(alerts) == 0 {
		log.Info("no performance regression detected", zap.String("baseline", baseline.Commit.ShortID()))
		return nil
	}
	log.Warn("performance regression detected", zap.Int("alerts", len(alerts)), zap.String("baseline", baseline.Commit.ShortID()))

	report := notify.Compose(alerts, c.cfg.Name, entry, baseline, c.cfg.AlertThreshold, footer)
	res.Report = &report

	if c.cfg.CommentOnAlert {
		url, err := c.comment(ctx, entry.Commit.ID, report)
		if err != nil {
			return err
		}
		res.CommentURL = url
		log.Info("posted performance alert", zap.String("url", url))
	}

	// A zero fail threshold reports every benchmark and never fails the run.
	if c.cfg.FailOnAlert && c.cfg.FailThreshold == 0 {
		log.Info("fail threshold is zero; not failing on informational report")
		return nil
	}
	if c.cfg.FailOnAlert {
		failing := alerts
		failReport := report
		if c.cfg.FailThreshold != c.cfg.AlertThreshold {
			failing = nil
			for _, alert := range alerts {
				if alert.Ratio > c.cfg.FailThreshold {
					failing = append(failing, alert)
				}
			}
			failReport = notify.Compose(failing, c.cfg.Name, entry, baseline, c.cfg.FailThreshold, footer)
		}
		if len(failing) > 0 {
			return &AlertError{Suite: c.cfg.Name, Alerts: failing, Report: failReport}
		}
	}
	return nil
}

func (c *Coordinator) comment(ctx context.Context, commitID string, report notify.Report) (string, error) {
	if err := c.repo.Validate(); err != nil {
		return "", err
	}
	if c.commenter == nil {
		return "", errors.New("no commit commenter configured")
	}
	result, err := c.commenter.CreateCommitComment(ctx, c.repo.Owner, c.repo.Name, commitID, report.String())
	if err != nil {
		return "", fmt.Errorf("post commit comment: %w", err)
	}
	return result.URL, nil
}

func (c *Coordinator) flushMetrics(log *zap.Logger) {
	if c.metrics == nil || c.cfg.MetricsFile == "" {
		return
	}
	if err := c.metrics.WriteTextfile(c.cfg.MetricsFile); err != nil {
		log.Warn("failed to write metrics textfile", zap.String("path", c.cfg.MetricsFile), zap.Error(err))
	}
}
