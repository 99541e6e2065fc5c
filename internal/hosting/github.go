// SPDX-License-Identifier: MIT
package hosting

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
)

// CommentResult is the outcome of posting a comment.
type CommentResult struct {
	Status int
	URL    string
}

// Commenter posts a comment on a commit.
type Commenter interface {
	CreateCommitComment(ctx context.Context, owner, repo, commitID, body string) (CommentResult, error)
}

// GitHubClient posts commit comments through the GitHub REST API.
type GitHubClient struct {
	client *github.Client
}

// NewGitHubClient returns a client that authenticates with token. apiURL
// defaults to https://api.github.com; GitHub Enterprise passes its full API
// root, for example https://ghe.example.com/api/v3.
func NewGitHubClient(ctx context.Context, apiURL, token string) (*GitHubClient, error) {
	if token == "" {
		return nil, errors.New("github token is required to post comments")
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	httpClient.Timeout = 30 * time.Second
	client := github.NewClient(httpClient)
	if apiURL != "" && strings.TrimRight(apiURL, "/") != defaultAPIURL {
		// GITHUB_API_URL is already the API root.
		base, err := url.Parse(strings.TrimRight(apiURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse api url %q: %w", apiURL, err)
		}
		client.BaseURL = base
	}
	return &GitHubClient{client: client}, nil
}

// NewGitHubClientFor builds a client for the API URL in repo.
func NewGitHubClientFor(ctx context.Context, repo RepoContext, token string) (*GitHubClient, error) {
	return NewGitHubClient(ctx, repo.apiURL(), token)
}

// CreateCommitComment posts body as a comment on commitID.
func (c *GitHubClient) CreateCommitComment(ctx context.Context, owner, repo, commitID, body string) (CommentResult, error) {
	if owner == "" || repo == "" {
		return CommentResult{}, ErrMissingRepoContext
	}
	comment, resp, err := c.client.Repositories.CreateComment(ctx, owner, repo, commitID, &github.RepositoryComment{
		Body: github.Ptr(body),
	})
	var result CommentResult
	if resp != nil {
		result.Status = resp.StatusCode
	}
	if err != nil {
		return result, fmt.Errorf("create commit comment: %w", err)
	}
	result.URL = comment.GetHTMLURL()
	return result, nil
}
