// SPDX-License-Identifier: MIT
package benchkeeper

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/benchkeeper/internal/config"
	"github.com/skaphos/benchkeeper/internal/strutil"
)

const (
	thresholdUsage     = `ratio ("2") or percentage ("200%") a result must be worse by to alert`
	failThresholdUsage = "threshold for --fail-on-alert (defaults to --alert-threshold)"
	ignoreUsage        = "comma-separated glob patterns of benchmarks that never alert"
	noHeadersUsage     = "when using table format, do not print headers"
)

func addSuiteFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", config.DefaultName, "benchmark suite name")
	cmd.Flags().String("tool", "", "benchmark tool that produced the output: "+strings.Join(supportedToolNames(), ", "))
	cmd.Flags().StringP("output-file", "f", "", `benchmark tool output file ("-" reads stdin)`)
	cmd.Flags().String("repo-dir", ".", "repository checkout to operate on")
	cmd.Flags().String("data-dir", config.DefaultOutputDir, "directory holding data.js, relative to the repository")
}

func addAlertFlags(cmd *cobra.Command) {
	cmd.Flags().String("alert-threshold", config.DefaultThreshold, thresholdUsage)
	cmd.Flags().String("alert-ignore", "", ignoreUsage)
	cmd.Flags().Bool("fail-on-alert", false, "fail when a regression exceeds the fail threshold")
	cmd.Flags().String("fail-threshold", "", failThresholdUsage)
}

func addPublishFlags(cmd *cobra.Command) {
	cmd.Flags().String("branch", config.DefaultBranch, "branch that stores the benchmark history")
	cmd.Flags().String("token", "", "GitHub token for pushing and commenting (defaults to $GITHUB_TOKEN)")
	cmd.Flags().Bool("auto-push", false, "push the history commit to the remote")
	cmd.Flags().Bool("skip-fetch", false, "do not sync the history branch with the remote first")
	cmd.Flags().Bool("comment-always", false, "post a comparison comment on every run")
	cmd.Flags().Bool("comment-on-alert", false, "post a commit comment when a regression is detected")
	cmd.Flags().String("alert-cc-users", "", "comma-separated users to mention in alert comments")
	cmd.Flags().Int("max-items", 0, "keep at most this many entries per suite (0 keeps all)")
	cmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile")
	cmd.Flags().String("git-user-name", config.DefaultGitUser, "author name for history commits")
	cmd.Flags().String("git-user-email", config.DefaultGitEmail, "author email for history commits")
}

func addNoHeadersFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("no-headers", false, noHeadersUsage)
}

// loadOptions layers the config file, the environment, and explicitly set
// flags, in increasing order of precedence.
func loadOptions(cmd *cobra.Command) (config.Options, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.Options{}, err
	}
	cfgPath, err := config.ResolveConfigPath(flagConfig, cwd)
	if err != nil {
		return config.Options{}, err
	}
	file := config.DefaultFile()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return config.Options{}, err
		}
		file = *loaded
		debugf(cmd, "using config %s", cfgPath)
	}
	opts := file.Publish
	if err := config.ApplyEnv(&opts, os.Getenv); err != nil {
		return config.Options{}, err
	}
	applyFlags(cmd, &opts)
	return opts, nil
}

func applyFlags(cmd *cobra.Command, opts *config.Options) {
	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}
	list := func(name string, dst *[]string) {
		if flags.Changed(name) {
			raw, _ := flags.GetString(name)
			*dst = strutil.SplitCSV(raw)
		}
	}

	str("name", &opts.Name)
	str("tool", &opts.Tool)
	str("repo-dir", &opts.RepoDir)
	str("data-dir", &opts.OutputDir)
	str("branch", &opts.Branch)
	str("token", &opts.Token)
	str("alert-threshold", &opts.AlertThreshold)
	str("fail-threshold", &opts.FailThreshold)
	str("metrics-file", &opts.MetricsFile)
	str("git-user-name", &opts.GitUserName)
	str("git-user-email", &opts.GitUserEmail)
	boolean("auto-push", &opts.AutoPush)
	boolean("skip-fetch", &opts.SkipFetch)
	boolean("comment-always", &opts.CommentAlways)
	boolean("comment-on-alert", &opts.CommentOnAlert)
	boolean("fail-on-alert", &opts.FailOnAlert)
	list("alert-cc-users", &opts.AlertCCUsers)
	list("alert-ignore", &opts.AlertIgnore)
	if flags.Changed("max-items") {
		opts.MaxItems, _ = flags.GetInt("max-items")
	}
}
