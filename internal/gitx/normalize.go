package gitx

import (
	"context"
	"net/url"
	"sort"
	"strings"
)

// NormalizeURL converts a git remote URL into a canonical repo id.
//
// Rules:
//   - Strip protocol (https://, git://, ssh://) and user (git@)
//   - Convert git@host:path to host/path
//   - Lowercase the host portion
//   - Strip trailing ".git"
//   - Strip trailing slashes
//
// Examples:
//
//	git@github.com:Org/Repo.git  → github.com/Org/Repo
//	https://github.com/Org/Repo.git → github.com/Org/Repo
func NormalizeURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	var host, path string

	// Handle SSH shorthand: git@host:path
	if i := strings.Index(rawURL, "@"); i >= 0 && !strings.Contains(rawURL[:i], "://") {
		// SSH shorthand like git@github.com:Org/Repo.git
		rest := rawURL[i+1:]
		if colonIdx := strings.Index(rest, ":"); colonIdx >= 0 {
			host = rest[:colonIdx]
			path = rest[colonIdx+1:]
		}
	} else {
		// URL with protocol
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return rawURL
		}
		host = parsed.Hostname()
		path = strings.TrimPrefix(parsed.Path, "/")
	}

	host = strings.ToLower(host)
	path = strings.TrimSuffix(path, ".git")
	path = strings.TrimRight(path, "/")

	if host == "" {
		return path
	}
	return host + "/" + path
}

// PrimaryRemote selects the preferred remote from a list.
// Prefers "origin", falls back to first alphabetically.
func PrimaryRemote(remoteNames []string) string {
	if len(remoteNames) == 0 {
		return ""
	}
	for _, name := range remoteNames {
		if name == "origin" {
			return "origin"
		}
	}
	sorted := make([]string, len(remoteNames))
	copy(sorted, remoteNames)
	sort.Strings(sorted)
	return sorted[0]
}

// SplitRepoID splits a normalized repo id such as github.com/Org/Repo into
// host, owner and name. Nested groups stay in owner.
func SplitRepoID(repoID string) (host, owner, name string, ok bool) {
	parts := strings.Split(strings.Trim(repoID, "/"), "/")
	if len(parts) < 3 {
		return "", "", "", false
	}
	return parts[0], strings.Join(parts[1:len(parts)-1], "/"), parts[len(parts)-1], true
}

// PrimaryRepoID returns the normalized repo id of the primary remote, or an
// empty string when the repo has no usable remote.
func PrimaryRepoID(ctx context.Context, r Runner, dir string) (string, error) {
	remotes, err := Remotes(ctx, r, dir)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(remotes))
	for _, remote := range remotes {
		names = append(names, remote.Name)
	}
	primary := PrimaryRemote(names)
	for _, remote := range remotes {
		if remote.Name == primary {
			return NormalizeURL(remote.URL), nil
		}
	}
	return "", nil
}
