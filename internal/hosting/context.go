// SPDX-License-Identifier: MIT
// Package hosting talks to the code-hosting service: it describes the
// repository a run belongs to and posts commit comments.
package hosting

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/skaphos/benchkeeper/internal/gitx"
)

// ErrMissingRepoContext is returned when repository metadata needed to build
// or post a comment is unavailable.
var ErrMissingRepoContext = errors.New("repository context unavailable")

const (
	defaultServerURL = "https://github.com"
	defaultAPIURL    = "https://api.github.com"
)

// RepoContext is read-only metadata about the repository and the running
// workflow. It is passed explicitly rather than read from globals.
type RepoContext struct {
	ServerURL string
	APIURL    string
	Owner     string
	Name      string
	HTMLURL   string
	Private   bool
	RunID     string
	Workflow  string
}

// Slug returns owner/name.
func (c RepoContext) Slug() string {
	if c.Owner == "" || c.Name == "" {
		return ""
	}
	return c.Owner + "/" + c.Name
}

// RepoURL returns the repository web URL.
func (c RepoContext) RepoURL() string {
	if c.HTMLURL != "" {
		return c.HTMLURL
	}
	if c.Slug() == "" {
		return ""
	}
	return strings.TrimRight(c.serverURL(), "/") + "/" + c.Slug()
}

// RunURL links to the workflow run that produced the result.
func (c RepoContext) RunURL() string {
	base := c.RepoURL()
	if base == "" || c.RunID == "" {
		return base
	}
	return base + "/actions/runs/" + c.RunID
}

// CommitURL links to a commit in the repository.
func (c RepoContext) CommitURL(commitID string) string {
	base := c.RepoURL()
	if base == "" || commitID == "" {
		return ""
	}
	return base + "/commit/" + commitID
}

// Validate reports ErrMissingRepoContext when owner or name is unknown.
func (c RepoContext) Validate() error {
	if c.Owner == "" || c.Name == "" {
		return fmt.Errorf("%w: owner/name not set (is GITHUB_REPOSITORY defined?)", ErrMissingRepoContext)
	}
	return nil
}

// WithRepoID fills owner, name and server from a normalized repo id such as
// github.com/Org/Repo when the environment did not provide them.
func (c RepoContext) WithRepoID(repoID string) RepoContext {
	if c.Slug() != "" {
		return c
	}
	host, owner, name, ok := gitx.SplitRepoID(repoID)
	if !ok {
		return c
	}
	c.Owner = owner
	c.Name = name
	if c.ServerURL == "" {
		c.ServerURL = "https://" + host
	}
	return c
}

func (c RepoContext) serverURL() string {
	if c.ServerURL != "" {
		return c.ServerURL
	}
	return defaultServerURL
}

func (c RepoContext) apiURL() string {
	if c.APIURL != "" {
		return strings.TrimRight(c.APIURL, "/")
	}
	return defaultAPIURL
}

type eventPayload struct {
	Repository *struct {
		HTMLURL string `json:"html_url"`
		Private bool   `json:"private"`
	} `json:"repository"`
}

// FromEnv builds a RepoContext from GitHub Actions environment variables.
// readFile loads the event payload named by GITHUB_EVENT_PATH; a missing or
// unreadable payload leaves HTMLURL and Private at their zero values.
func FromEnv(getenv func(string) string, readFile func(string) ([]byte, error)) RepoContext {
	ctx := RepoContext{
		ServerURL: strings.TrimSpace(getenv("GITHUB_SERVER_URL")),
		APIURL:    strings.TrimSpace(getenv("GITHUB_API_URL")),
		RunID:     strings.TrimSpace(getenv("GITHUB_RUN_ID")),
		Workflow:  strings.TrimSpace(getenv("GITHUB_WORKFLOW")),
	}
	if owner, name, ok := strings.Cut(strings.TrimSpace(getenv("GITHUB_REPOSITORY")), "/"); ok {
		ctx.Owner = owner
		ctx.Name = name
	}
	path := strings.TrimSpace(getenv("GITHUB_EVENT_PATH"))
	if path == "" || readFile == nil {
		return ctx
	}
	data, err := readFile(path)
	if err != nil {
		return ctx
	}
	var payload eventPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Repository == nil {
		return ctx
	}
	ctx.HTMLURL = payload.Repository.HTMLURL
	ctx.Private = payload.Repository.Private
	return ctx
}
