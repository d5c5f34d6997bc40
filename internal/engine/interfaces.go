package engine

import (
	"context"

	"prrebase.dev/prrebase/internal/config"
	"prrebase.dev/prrebase/internal/git"
	"prrebase.dev/prrebase/internal/github"
	"prrebase.dev/prrebase/internal/workspace"
)

// Workspace is the isolated repository a run rebases in
type Workspace interface {
	Dir() string
	BaseSHA() string
	HeadSHA() string
	ContainsBase(ctx context.Context) (bool, error)
	Rebase(ctx context.Context, opts git.ReplayOptions) (*git.ReplayResult, error)
	Cleanup() error
}

// WorkspaceProvider creates a workspace holding a pull request's base and head
type WorkspaceProvider interface {
	Prepare(ctx context.Context, pr *github.PullRequest, cred config.Credential, identity git.Identity, runID string) (Workspace, error)
}

// WorkspaceProviderFunc adapts a function to WorkspaceProvider
type WorkspaceProviderFunc func(ctx context.Context, pr *github.PullRequest, cred config.Credential, identity git.Identity, runID string) (Workspace, error)

// Prepare calls f
func (f WorkspaceProviderFunc) Prepare(ctx context.Context, pr *github.PullRequest, cred config.Credential, identity git.Identity, runID string) (Workspace, error) {
	return f(ctx, pr, cred, identity, runID)
}

// ManagerProvider prepares workspaces on disk with a workspace.Manager
func ManagerProvider(m *workspace.Manager) WorkspaceProvider {
	return WorkspaceProviderFunc(func(ctx context.Context, pr *github.PullRequest, cred config.Credential, identity git.Identity, runID string) (Workspace, error) {
		ws, err := m.Prepare(ctx, pr, cred, workspace.WithIdentity(identity), workspace.WithRunID(runID))
		if err != nil {
			return nil, err
		}
		return ws, nil
	})
}
