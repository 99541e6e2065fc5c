// Package gitx provides helpers for executing git commands and parsing
// their output. It shells out to the installed git binary.
package gitx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/skaphos/benchkeeper/internal/model"
)

// Runner executes git commands in a given repo directory.
// This interface allows mocking in tests.
type Runner interface {
	// Run executes a git command in the given directory and returns
	// combined stdout/stderr output.
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// GitRunner is the default Runner implementation that shells out to git.
type GitRunner struct {
	// GitBin is the path to the git binary. Defaults to "git".
	GitBin string
}

// Run executes a git command.
func (g *GitRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	bin := g.GitBin
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// IsRepo checks whether the given path is inside a git working tree.
func IsRepo(ctx context.Context, r Runner, dir string) (bool, error) {
	out, err := r.Run(ctx, dir, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return false, nil
	}
	return strings.TrimSpace(out) == "true", nil
}

// Remotes returns all configured remotes for the repo.
func Remotes(ctx context.Context, r Runner, dir string) ([]model.Remote, error) {
	out, err := r.Run(ctx, dir, "remote")
	if err != nil {
		return nil, fmt.Errorf("git remote: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}
	var remotes []model.Remote
	for _, name := range strings.Split(strings.TrimSpace(out), "\n") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		url, err := r.Run(ctx, dir, "remote", "get-url", name)
		if err != nil {
			continue
		}
		remotes = append(remotes, model.Remote{
			Name: name,
			URL:  strings.TrimSpace(url),
		})
	}
	return remotes, nil
}

// Head returns the current branch and detached state.
func Head(ctx context.Context, r Runner, dir string) (model.Head, error) {
	out, err := r.Run(ctx, dir, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		// Detached HEAD: fall back to the commit hash.
		hash, hashErr := r.Run(ctx, dir, "rev-parse", "--short", "HEAD")
		if hashErr != nil {
			return model.Head{Detached: true}, nil
		}
		return model.Head{
			Branch:   strings.TrimSpace(hash),
			Detached: true,
		}, nil
	}
	return model.Head{
		Branch:   strings.TrimSpace(out),
		Detached: false,
	}, nil
}

// FetchBranch updates the local branch from remote without switching to it.
func FetchBranch(ctx context.Context, r Runner, dir, remote, branch string) error {
	out, err := r.Run(ctx, dir, "fetch", remote, branch+":"+branch)
	if err != nil {
		return commandError("fetch", out, err)
	}
	return nil
}

// SwitchBranch checks out branch in the working tree.
func SwitchBranch(ctx context.Context, r Runner, dir, branch string) error {
	out, err := r.Run(ctx, dir, "switch", branch)
	if err != nil {
		return commandError("switch "+branch, out, err)
	}
	return nil
}

// Pull pulls branch from remote. Extra flags such as "--rebase" are appended.
func Pull(ctx context.Context, r Runner, dir, remote, branch string, flags ...string) error {
	args := append([]string{"pull", remote, branch}, flags...)
	out, err := r.Run(ctx, dir, args...)
	if err != nil {
		return commandError("pull", out, err)
	}
	return nil
}

// Push pushes the local branch to the same name on remote. A push refused
// because the remote ref moved is reported as ErrRemoteRejected.
func Push(ctx context.Context, r Runner, dir, remote, branch string) error {
	out, err := r.Run(ctx, dir, "push", remote, branch+":"+branch, "--no-verify")
	if err != nil {
		if IsRemoteRejectedOutput(out) {
			return fmt.Errorf("git push: %s: %w: %w", Redact(out), ErrRemoteRejected, err)
		}
		return commandError("push", out, err)
	}
	return nil
}

// Add stages path.
func Add(ctx context.Context, r Runner, dir, path string) error {
	out, err := r.Run(ctx, dir, "add", path)
	if err != nil {
		return commandError("add "+path, out, err)
	}
	return nil
}

// Commit records staged changes. Empty identity values leave git's own
// configuration in charge.
func Commit(ctx context.Context, r Runner, dir, userName, userEmail, message string) error {
	var args []string
	if userName != "" {
		args = append(args, "-c", "user.name="+userName)
	}
	if userEmail != "" {
		args = append(args, "-c", "user.email="+userEmail)
	}
	args = append(args, "commit", "-m", message)
	out, err := r.Run(ctx, dir, args...)
	if err != nil {
		return commandError("commit", out, err)
	}
	return nil
}

// CheckoutPrevious returns to the previously checked-out ref. It works from
// a detached HEAD too.
func CheckoutPrevious(ctx context.Context, r Runner, dir string) error {
	out, err := r.Run(ctx, dir, "checkout", "-")
	if err != nil {
		return commandError("checkout -", out, err)
	}
	return nil
}

func commandError(op, out string, err error) error {
	out = Redact(strings.TrimSpace(out))
	if out == "" {
		return fmt.Errorf("git %s: %w", op, err)
	}
	return fmt.Errorf("git %s: %s: %w", op, out, err)
}
