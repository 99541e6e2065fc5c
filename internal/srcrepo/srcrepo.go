// SPDX-License-Identifier: MIT
// Package srcrepo reads metadata about the commit being benchmarked.
package srcrepo

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/skaphos/benchkeeper/internal/model"
)

// HeadCommit opens the repository containing dir and describes its HEAD
// commit. repoURL, when set, is used to build the commit link.
func HeadCommit(dir, repoURL string) (model.Commit, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return model.Commit{}, fmt.Errorf("open repository %s: %w", dir, err)
	}
	ref, err := repo.Head()
	if err != nil {
		return model.Commit{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return model.Commit{}, fmt.Errorf("read HEAD commit: %w", err)
	}
	return fromObject(commit, repoURL), nil
}

func fromObject(c *object.Commit, repoURL string) model.Commit {
	id := c.Hash.String()
	out := model.Commit{
		ID:        id,
		Message:   strings.TrimRight(c.Message, "\n"),
		Timestamp: c.Committer.When.Format(time.RFC3339),
		Author:    person(c.Author),
		Committer: person(c.Committer),
	}
	if repoURL != "" {
		out.URL = strings.TrimRight(repoURL, "/") + "/commit/" + id
	}
	return out
}

func person(sig object.Signature) *model.Person {
	return &model.Person{Name: sig.Name, Email: sig.Email}
}

// CommitFromEvent returns the head_commit of a push event payload. ok is
// false when the payload has none, as for pull_request events.
func CommitFromEvent(payload []byte) (commit model.Commit, ok bool) {
	var event struct {
		HeadCommit *model.Commit `json:"head_commit"`
	}
	if err := json.Unmarshal(payload, &event); err != nil || event.HeadCommit == nil || event.HeadCommit.ID == "" {
		return model.Commit{}, false
	}
	return *event.HeadCommit, true
}
