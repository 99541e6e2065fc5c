// Package config handles loading and resolving the benchkeeper publish
// configuration from a YAML file, the environment, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/skaphos/benchkeeper/internal/model"
	"github.com/skaphos/benchkeeper/internal/strutil"
	"go.yaml.in/yaml/v3"
)

const (
	// LocalConfigFilename is the per-directory benchkeeper config file.
	LocalConfigFilename = ".benchkeeper.yaml"
	// ConfigAPIVersion is the current config schema apiVersion.
	ConfigAPIVersion = "skaphos.io/benchkeeper/v1beta1"
	// ConfigKind is the current config schema kind.
	ConfigKind = "BenchkeeperConfig"

	DefaultName      = "Benchmark"
	DefaultBranch    = "gh-pages"
	DefaultOutputDir = "dev/bench"
	DefaultThreshold = "200%"
	DefaultGitUser   = "github-action-benchmark"
	DefaultGitEmail  = "github@users.noreply.github.com"
)

// ErrInvalidConfig marks configuration errors detected before any git or
// network operation runs.
var ErrInvalidConfig = errors.New("invalid configuration")

// Options is the user-facing publish configuration as written in the YAML
// file. Values are raw; Resolve turns them into a Publish.
type Options struct {
	Name           string   `yaml:"name"`
	Tool           string   `yaml:"tool"`
	Branch         string   `yaml:"branch"`
	OutputDir      string   `yaml:"output_dir"`
	RepoDir        string   `yaml:"repo_dir,omitempty"`
	AutoPush       bool     `yaml:"auto_push"`
	SkipFetch      bool     `yaml:"skip_fetch"`
	CommentAlways  bool     `yaml:"comment_always"`
	CommentOnAlert bool     `yaml:"comment_on_alert"`
	AlertThreshold string   `yaml:"alert_threshold"`
	FailOnAlert    bool     `yaml:"fail_on_alert"`
	FailThreshold  string   `yaml:"fail_threshold,omitempty"`
	AlertCCUsers   []string `yaml:"alert_cc_users,omitempty"`
	AlertIgnore    []string `yaml:"alert_ignore,omitempty"`
	GitUserName    string   `yaml:"git_user_name,omitempty"`
	GitUserEmail   string   `yaml:"git_user_email,omitempty"`
	MetricsFile    string   `yaml:"metrics_file,omitempty"`
	MaxItems       int      `yaml:"max_items,omitempty"`
	// Token is never read from or written to the config file.
	Token string `yaml:"-"`
}

// File is the on-disk config document.
type File struct {
	APIVersion string  `yaml:"apiVersion"`
	Kind       string  `yaml:"kind"`
	Publish    Options `yaml:"publish"`
}

// Publish is the resolved, validated configuration for one publish. It is
// passed by value and never mutated after Resolve.
type Publish struct {
	Name           string
	Tool           model.Tool
	Branch         string
	OutputDir      string
	RepoDir        string
	Token          string
	AutoPush       bool
	SkipFetch      bool
	CommentAlways  bool
	CommentOnAlert bool
	AlertThreshold float64
	FailOnAlert    bool
	FailThreshold  float64
	AlertCCUsers   []string
	AlertIgnore    []string
	GitUserName    string
	GitUserEmail   string
	MetricsFile    string
	// MaxItems caps the stored entries per suite; zero keeps all.
	MaxItems int
}

// DefaultFile returns a File with defaults applied.
func DefaultFile() File {
	return File{
		APIVersion: ConfigAPIVersion,
		Kind:       ConfigKind,
		Publish: Options{
			Name:           DefaultName,
			Branch:         DefaultBranch,
			OutputDir:      DefaultOutputDir,
			RepoDir:        ".",
			AlertThreshold: DefaultThreshold,
			GitUserName:    DefaultGitUser,
			GitUserEmail:   DefaultGitEmail,
		},
	}
}

// ResolveConfigPath resolves the config file for runtime commands.
// Order: explicit override, BENCHKEEPER_CONFIG, nearest local dotfile in
// cwd/parents. An empty result means no config file is in use.
func ResolveConfigPath(override, cwd string) (string, error) {
	if override != "" {
		return override, nil
	}
	if env := os.Getenv("BENCHKEEPER_CONFIG"); env != "" {
		return env, nil
	}
	if strings.TrimSpace(cwd) == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	return FindNearestConfigPath(cwd)
}

// FindNearestConfigPath searches cwd and each parent directory for .benchkeeper.yaml.
// It returns an empty string when no local config file is found.
func FindNearestConfigPath(cwd string) (string, error) {
	dir := cwd
	for {
		candidate := filepath.Join(dir, LocalConfigFilename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Load reads the config file from the given path on top of DefaultFile.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultFile()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigGVK(&cfg)
	if err := validateConfigGVK(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to the given path.
func Save(cfg *File, path string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	applyConfigGVK(cfg)
	if err := validateConfigGVK(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv overlays BENCHKEEPER_* variables and the GitHub token onto opts.
// Unset variables leave the existing value alone.
func ApplyEnv(opts *Options, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	var firstErr error
	boolean := func(key string, dst *bool) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, key, v)
			}
			return
		}
		*dst = parsed
	}
	list := func(key string, dst *[]string) {
		if v := getenv(key); strings.TrimSpace(v) != "" {
			*dst = strutil.SplitCSV(v)
		}
	}

	str("BENCHKEEPER_NAME", &opts.Name)
	str("BENCHKEEPER_TOOL", &opts.Tool)
	str("BENCHKEEPER_BRANCH", &opts.Branch)
	str("BENCHKEEPER_OUTPUT_DIR", &opts.OutputDir)
	str("BENCHKEEPER_ALERT_THRESHOLD", &opts.AlertThreshold)
	str("BENCHKEEPER_FAIL_THRESHOLD", &opts.FailThreshold)
	str("BENCHKEEPER_METRICS_FILE", &opts.MetricsFile)
	str("GITHUB_TOKEN", &opts.Token)
	str("BENCHKEEPER_TOKEN", &opts.Token)
	boolean("BENCHKEEPER_AUTO_PUSH", &opts.AutoPush)
	boolean("BENCHKEEPER_SKIP_FETCH", &opts.SkipFetch)
	boolean("BENCHKEEPER_COMMENT_ALWAYS", &opts.CommentAlways)
	boolean("BENCHKEEPER_COMMENT_ON_ALERT", &opts.CommentOnAlert)
	boolean("BENCHKEEPER_FAIL_ON_ALERT", &opts.FailOnAlert)
	if v := strings.TrimSpace(getenv("BENCHKEEPER_MAX_ITEMS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%w: BENCHKEEPER_MAX_ITEMS=%q is not an integer", ErrInvalidConfig, v)
		} else if err == nil {
			opts.MaxItems = n
		}
	}
	list("BENCHKEEPER_ALERT_CC_USERS", &opts.AlertCCUsers)
	list("BENCHKEEPER_ALERT_IGNORE", &opts.AlertIgnore)
	return firstErr
}

// Resolve validates opts and returns the immutable Publish configuration.
func (opts Options) Resolve() (Publish, error) {
	tool, err := model.ParseTool(opts.Tool)
	if err != nil {
		return Publish{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	rawAlert := opts.AlertThreshold
	if strings.TrimSpace(rawAlert) == "" {
		rawAlert = DefaultThreshold
	}
	alert, err := ParseThreshold(rawAlert)
	if err != nil {
		return Publish{}, fmt.Errorf("%w: alert threshold: %v", ErrInvalidConfig, err)
	}
	fail := alert
	if strings.TrimSpace(opts.FailThreshold) != "" {
		fail, err = ParseThreshold(opts.FailThreshold)
		if err != nil {
			return Publish{}, fmt.Errorf("%w: fail threshold: %v", ErrInvalidConfig, err)
		}
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = DefaultName
	}
	repoDir := opts.RepoDir
	if strings.TrimSpace(repoDir) == "" {
		repoDir = "."
	}
	p := Publish{
		Name:           name,
		Tool:           tool,
		Branch:         strings.TrimSpace(opts.Branch),
		OutputDir:      filepath.Clean(strings.TrimSpace(opts.OutputDir)),
		RepoDir:        repoDir,
		Token:          opts.Token,
		AutoPush:       opts.AutoPush,
		SkipFetch:      opts.SkipFetch,
		CommentAlways:  opts.CommentAlways,
		CommentOnAlert: opts.CommentOnAlert,
		AlertThreshold: alert,
		FailOnAlert:    opts.FailOnAlert,
		FailThreshold:  fail,
		AlertCCUsers:   cleanList(opts.AlertCCUsers),
		AlertIgnore:    cleanList(opts.AlertIgnore),
		GitUserName:    opts.GitUserName,
		GitUserEmail:   opts.GitUserEmail,
		MetricsFile:    opts.MetricsFile,
		MaxItems:       opts.MaxItems,
	}
	if err := p.Validate(); err != nil {
		return Publish{}, err
	}
	return p, nil
}

// Validate checks cross-field constraints. Failing here keeps a bad
// configuration from reaching the remote.
func (p Publish) Validate() error {
	if _, err := model.ParseTool(string(p.Tool)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if p.Branch == "" {
		return fmt.Errorf("%w: branch must not be empty", ErrInvalidConfig)
	}
	if p.OutputDir == "" || p.OutputDir == "." {
		return fmt.Errorf("%w: output directory must not be empty", ErrInvalidConfig)
	}
	if filepath.IsAbs(p.OutputDir) || strings.HasPrefix(p.OutputDir, "..") {
		return fmt.Errorf("%w: output directory %q must be inside the repository", ErrInvalidConfig, p.OutputDir)
	}
	if p.MaxItems < 0 {
		return fmt.Errorf("%w: max items must not be negative", ErrInvalidConfig)
	}
	if p.AlertThreshold < 0 || p.FailThreshold < 0 {
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalidConfig)
	}
	if p.Token == "" {
		switch {
		case p.CommentOnAlert:
			return fmt.Errorf("%w: comment-on-alert requires a GitHub token", ErrInvalidConfig)
		case p.CommentAlways:
			return fmt.Errorf("%w: comment-always requires a GitHub token", ErrInvalidConfig)
		case p.AutoPush:
			return fmt.Errorf("%w: auto-push requires a GitHub token", ErrInvalidConfig)
		}
	}
	return nil
}

// ParseThreshold accepts a ratio ("2", "1.5") or a percentage ("200%").
func ParseThreshold(raw string) (float64, error) {
	value := strings.TrimSpace(raw)
	percent := strings.HasSuffix(value, "%")
	value = strings.TrimSpace(strings.TrimSuffix(value, "%"))
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, fmt.Errorf("invalid threshold %q", raw)
	}
	if percent {
		parsed /= 100
	}
	if parsed < 0 {
		return 0, fmt.Errorf("threshold %q must not be negative", raw)
	}
	return parsed, nil
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func applyConfigGVK(cfg *File) {
	if cfg == nil {
		return
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = ConfigAPIVersion
	}
	if strings.TrimSpace(cfg.Kind) == "" {
		cfg.Kind = ConfigKind
	}
}

func validateConfigGVK(cfg *File) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.APIVersion != ConfigAPIVersion {
		return fmt.Errorf("unsupported config apiVersion %q (expected %q)", cfg.APIVersion, ConfigAPIVersion)
	}
	if cfg.Kind != ConfigKind {
		return fmt.Errorf("unsupported config kind %q (expected %q)", cfg.Kind, ConfigKind)
	}
	return nil
}
