// SPDX-License-Identifier: MIT
package vcs

import (
	"context"
	"net/url"
	"strings"

	"github.com/skaphos/benchkeeper/internal/gitx"
	"github.com/skaphos/benchkeeper/internal/model"
)

// Adapter defines the version-control operations a publish relies on.
// Push must wrap gitx.ErrRemoteRejected when the remote branch moved.
type Adapter interface {
	Name() string
	IsRepo(ctx context.Context, dir string) (bool, error)
	CurrentRef(ctx context.Context, dir string) (model.Head, error)
	Fetch(ctx context.Context, dir, token, branch string) error
	SwitchBranch(ctx context.Context, dir, branch string) error
	Pull(ctx context.Context, dir, token, branch string, flags ...string) error
	Push(ctx context.Context, dir, token, branch string) error
	Add(ctx context.Context, dir, path string) error
	Commit(ctx context.Context, dir, message string) error
	CheckoutPrevious(ctx context.Context, dir string) error
}

// GitAdapter implements Adapter using the git CLI via gitx.
type GitAdapter struct {
	Runner gitx.Runner
	// ServerURL is the hosting server, for example https://github.com.
	ServerURL string
	// Repository is the owner/name slug used to build authenticated remotes.
	Repository string
	// UserName and UserEmail set the commit identity when non-empty.
	UserName  string
	UserEmail string
}

func NewGitAdapter(runner gitx.Runner) *GitAdapter {
	if runner == nil {
		runner = &gitx.GitRunner{}
	}
	return &GitAdapter{Runner: runner}
}

func (g *GitAdapter) Name() string { return "git" }

func (g *GitAdapter) IsRepo(ctx context.Context, dir string) (bool, error) {
	return gitx.IsRepo(ctx, g.Runner, dir)
}

func (g *GitAdapter) CurrentRef(ctx context.Context, dir string) (model.Head, error) {
	return gitx.Head(ctx, g.Runner, dir)
}

func (g *GitAdapter) Fetch(ctx context.Context, dir, token, branch string) error {
	return gitx.FetchBranch(ctx, g.Runner, dir, g.remote(token), branch)
}

func (g *GitAdapter) SwitchBranch(ctx context.Context, dir, branch string) error {
	return gitx.SwitchBranch(ctx, g.Runner, dir, branch)
}

func (g *GitAdapter) Pull(ctx context.Context, dir, token, branch string, flags ...string) error {
	return gitx.Pull(ctx, g.Runner, dir, g.remote(token), branch, flags...)
}

func (g *GitAdapter) Push(ctx context.Context, dir, token, branch string) error {
	return gitx.Push(ctx, g.Runner, dir, g.remote(token), branch)
}

func (g *GitAdapter) Add(ctx context.Context, dir, path string) error {
	return gitx.Add(ctx, g.Runner, dir, path)
}

func (g *GitAdapter) Commit(ctx context.Context, dir, message string) error {
	return gitx.Commit(ctx, g.Runner, dir, g.UserName, g.UserEmail, message)
}

func (g *GitAdapter) CheckoutPrevious(ctx context.Context, dir string) error {
	return gitx.CheckoutPrevious(ctx, g.Runner, dir)
}

// remote returns the remote to talk to. Without a token or repository slug
// the configured origin is used as is.
func (g *GitAdapter) remote(token string) string {
	if token == "" || strings.TrimSpace(g.Repository) == "" {
		return "origin"
	}
	host := "github.com"
	if g.ServerURL != "" {
		if parsed, err := url.Parse(g.ServerURL); err == nil && parsed.Host != "" {
			host = parsed.Host
		}
	}
	return "https://x-access-token:" + token + "@" + host + "/" + strings.Trim(g.Repository, "/") + ".git"
}
