package github

import (
	"fmt"
	"net/url"
	"strings"
)

// RepoInfo contains parsed information from a git remote URL
type RepoInfo struct {
	Hostname string
	Owner    string
	Repo     string
}

// ParseGitHubRemoteURL parses a git remote URL and extracts hostname, owner, and repo
// Supports both github.com and GitHub Enterprise URLs
// Examples:
//   - https://github.com/owner/repo.git
//   - git@github.com:owner/repo.git
//   - ssh://git@github.company.com/owner/repo.git
func ParseGitHubRemoteURL(remoteURL string) (*RepoInfo, error) {
	remoteURL = strings.TrimSuffix(strings.TrimSpace(remoteURL), "/")
	remoteURL = strings.TrimSuffix(remoteURL, ".git")

	var hostname, path string
	switch {
	case strings.Contains(remoteURL, "://"):
		parsed, err := url.Parse(remoteURL)
		if err != nil {
			return nil, fmt.Errorf("invalid remote URL: %w", err)
		}
		hostname = parsed.Hostname()
		path = strings.TrimPrefix(parsed.Path, "/")
	case strings.Contains(remoteURL, "@"):
		// scp-like syntax: git@hostname:owner/repo
		_, hostAndPath, _ := strings.Cut(remoteURL, "@")
		var ok bool
		hostname, path, ok = strings.Cut(hostAndPath, ":")
		if !ok {
			return nil, fmt.Errorf("invalid SSH remote URL: missing path")
		}
	default:
		return nil, fmt.Errorf("unsupported remote URL %q", remoteURL)
	}

	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid remote URL: path must be owner/repo")
	}
	owner := parts[len(parts)-2]
	repo := parts[len(parts)-1]

	if hostname == "" || owner == "" || repo == "" {
		return nil, fmt.Errorf("failed to parse hostname, owner, or repo from remote URL")
	}

	return &RepoInfo{
		Hostname: hostname,
		Owner:    owner,
		Repo:     repo,
	}, nil
}
