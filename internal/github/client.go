// Package github provides a client for interacting with the GitHub API.
package github

import (
	"context"
	"strings"
)

// BranchRef is one side of a pull request
type BranchRef struct {
	Ref      string
	SHA      string
	Owner    string
	Repo     string
	CloneURL string
}

// PullRequest contains the pull request fields a rebase needs.
// This is a simplified struct to avoid coupling to go-github library
type PullRequest struct {
	Number              int
	State               string
	Title               string
	Author              string
	HTMLURL             string
	Head                BranchRef
	Base                BranchRef
	MaintainerCanModify bool
	Mergeable           *bool
	Rebaseable          *bool
	MergeableState      string
}

// IsOpen reports whether the pull request can still be updated
func (p *PullRequest) IsOpen() bool {
	return strings.EqualFold(p.State, "open")
}

// IsCrossRepository reports whether the head branch lives in a fork
func (p *PullRequest) IsCrossRepository() bool {
	return !strings.EqualFold(p.Head.Owner, p.Base.Owner) || !strings.EqualFold(p.Head.Repo, p.Base.Repo)
}

// User is the account the credential belongs to
type User struct {
	Login string
	Name  string
	Email string
}

// PushRequest describes a lease-protected branch update
type PushRequest struct {
	// Dir is the local repository that holds NewSHA
	Dir         string
	RemoteURL   string
	Branch      string
	ExpectedSHA string
	NewSHA      string
}

// Client is an interface for GitHub API interactions
type Client interface {
	// Owner returns the base repository owner
	Owner() string

	// Repo returns the base repository name
	Repo() string

	// GetPullRequest fetches a pull request of the base repository
	GetPullRequest(ctx context.Context, number int) (*PullRequest, error)

	// GetBranchSHA returns the tip of a branch in any repository
	GetBranchSHA(ctx context.Context, owner, repo, branch string) (string, error)

	// IsUpToDate reports whether headSHA already contains the tip of baseRef
	IsUpToDate(ctx context.Context, baseRef, headSHA string) (bool, error)

	// GetAuthenticatedUser returns the owner of the credential
	GetAuthenticatedUser(ctx context.Context) (*User, error)

	// PushBranch updates a branch only if it still points at ExpectedSHA
	PushBranch(ctx context.Context, req PushRequest) error
}
