// Package workspace manages the throwaway repositories pull requests are
// rebased in. A workspace never touches the user's checkout.
package workspace

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"prrebase.dev/prrebase/internal/config"
	prerrors "prrebase.dev/prrebase/internal/errors"
	"prrebase.dev/prrebase/internal/git"
	"prrebase.dev/prrebase/internal/github"
	"prrebase.dev/prrebase/internal/retry"
	"prrebase.dev/prrebase/internal/tui"
)

const (
	dirPrefix = "prrebase-"

	baseRemote = "base"
	headRemote = "head"

	// BaseRef holds the fetched base branch tip
	BaseRef = "refs/prrebase/base"
	// HeadRef holds the fetched pull request head
	HeadRef = "refs/prrebase/head"
)

// DefaultIdentity is the committer used when none is given
var DefaultIdentity = git.Identity{
	Name:  "prrebase",
	Email: "prrebase@users.noreply.github.com",
}

// Manager creates workspaces under Root
type Manager struct {
	Root  string
	Splog *tui.Splog
	// Retry applies to fetches; the zero value fetches once
	Retry retry.Policy
}

// NewManager creates a Manager rooted at root
func NewManager(root string, splog *tui.Splog, policy retry.Policy) *Manager {
	return &Manager{Root: root, Splog: splog, Retry: policy}
}

type prepareOptions struct {
	identity git.Identity
	runID    string
}

// PrepareOption customizes Prepare
type PrepareOption func(*prepareOptions)

// WithIdentity sets the committer recorded on replayed commits
func WithIdentity(identity git.Identity) PrepareOption {
	return func(o *prepareOptions) {
		if identity.Name != "" && identity.Email != "" {
			o.identity = identity
		}
	}
}

// WithRunID names the workspace after an existing run identifier
func WithRunID(runID string) PrepareOption {
	return func(o *prepareOptions) {
		if runID != "" {
			o.runID = runID
		}
	}
}

// Workspace is an isolated repository holding a pull request's base and head
type Workspace struct {
	dir     string
	runID   string
	repo    *git.Repository
	runner  *git.CommandRunner
	baseSHA string
	headSHA string
	splog   *tui.Splog

	mu      sync.Mutex
	cleaned bool
}

// Prepare creates a fresh workspace and fetches the pull request's base and
// head into it. The fetched head must match pr.Head.SHA; if the branch moved
// since the pull request was read the result is a ConcurrentModification
// error. On any failure the partially created directory is removed.
func (m *Manager) Prepare(ctx context.Context, pr *github.PullRequest, cred config.Credential, opts ...PrepareOption) (*Workspace, error) {
	if pr == nil {
		return nil, prerrors.Newf(prerrors.KindInvalidArgument, "prepare workspace", "no pull request")
	}
	if pr.Base.CloneURL == "" || pr.Base.Ref == "" {
		return nil, prerrors.Newf(prerrors.KindInvalidState, "prepare workspace", "pull request #%d has no base repository", pr.Number)
	}
	if pr.Head.CloneURL == "" || pr.Head.Ref == "" {
		return nil, prerrors.Newf(prerrors.KindInvalidState, "prepare workspace", "head repository of pull request #%d no longer exists", pr.Number)
	}

	o := prepareOptions{identity: DefaultIdentity, runID: uuid.NewString()}
	for _, opt := range opts {
		opt(&o)
	}

	root := m.Root
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, prerrors.New(prerrors.KindUnknownFailure, "prepare workspace", err)
	}

	dir := filepath.Join(root, dirPrefix+o.runID)
	ws := &Workspace{
		dir:   dir,
		runID: o.runID,
		splog: m.splog(),
	}

	if err := m.populate(ctx, ws, pr, cred, o.identity); err != nil {
		if cleanupErr := ws.Cleanup(); cleanupErr != nil {
			ws.splog.Debug("failed to remove workspace %s: %v", dir, cleanupErr)
		}
		return nil, err
	}
	return ws, nil
}

func (m *Manager) populate(ctx context.Context, ws *Workspace, pr *github.PullRequest, cred config.Credential, identity git.Identity) error {
	repo, err := git.InitRepository(ws.dir, identity)
	if err != nil {
		return prerrors.New(prerrors.KindUnknownFailure, "prepare workspace", err)
	}
	ws.repo = repo
	ws.runner = git.NewCommandRunner(ws.dir, git.TokenEnv(cred.Token())...)

	if err := repo.AddRemote(baseRemote, pr.Base.CloneURL); err != nil {
		return prerrors.New(prerrors.KindUnknownFailure, "prepare workspace", err)
	}
	if err := repo.AddRemote(headRemote, pr.Head.CloneURL); err != nil {
		return prerrors.New(prerrors.KindUnknownFailure, "prepare workspace", err)
	}

	ws.splog.Debug("Fetching %s from %s", pr.Base.Ref, pr.Base.CloneURL)
	if err := m.fetch(ctx, ws, "fetch base", baseRemote, pr.Base.Ref, BaseRef); err != nil {
		return err
	}
	ws.splog.Debug("Fetching %s from %s", pr.Head.Ref, pr.Head.CloneURL)
	if err := m.fetch(ctx, ws, "fetch head", headRemote, pr.Head.Ref, HeadRef); err != nil {
		return err
	}

	if ws.baseSHA, err = repo.ResolveRef(BaseRef); err != nil {
		return prerrors.New(prerrors.KindUnknownFailure, "prepare workspace", err)
	}
	if ws.headSHA, err = repo.ResolveRef(HeadRef); err != nil {
		return prerrors.New(prerrors.KindUnknownFailure, "prepare workspace", err)
	}

	if pr.Head.SHA != "" && ws.headSHA != pr.Head.SHA {
		return prerrors.Newf(prerrors.KindConcurrentModification, "fetch head",
			"%s moved from %s to %s after the pull request was read", pr.Head.Ref, pr.Head.SHA, ws.headSHA)
	}
	return nil
}

func (m *Manager) fetch(ctx context.Context, ws *Workspace, op, remote, branch, dest string) error {
	return retry.Do(ctx, m.Retry, retry.Retryable, func(err error, attempt int, wait time.Duration) {
		ws.splog.Debug("%s attempt %d failed, retrying in %s: %v", op, attempt, wait, err)
	}, func(ctx context.Context) error {
		return git.FetchBranch(ctx, ws.runner, remote, branch, dest)
	})
}

func (m *Manager) splog() *tui.Splog {
	if m.Splog != nil {
		return m.Splog
	}
	return tui.NewSplogWithWriter(io.Discard, false)
}

// Dir returns the workspace directory
func (w *Workspace) Dir() string {
	return w.dir
}

// RunID returns the identifier the workspace directory is named after
func (w *Workspace) RunID() string {
	return w.runID
}

// BaseSHA returns the fetched base tip
func (w *Workspace) BaseSHA() string {
	return w.baseSHA
}

// HeadSHA returns the fetched pull request head
func (w *Workspace) HeadSHA() string {
	return w.headSHA
}

// ContainsBase reports whether the head already includes the base tip
func (w *Workspace) ContainsBase(ctx context.Context) (bool, error) {
	ok, err := git.IsAncestor(ctx, w.runner, w.baseSHA, w.headSHA)
	if err != nil {
		if ctx.Err() != nil {
			return false, prerrors.New(prerrors.KindCanceled, "check ancestry", ctx.Err())
		}
		return false, prerrors.New(prerrors.KindUnknownFailure, "check ancestry", err)
	}
	return ok, nil
}

// Rebase replays the head's commits onto the fetched base
func (w *Workspace) Rebase(ctx context.Context, opts git.ReplayOptions) (*git.ReplayResult, error) {
	result, err := git.Replay(ctx, w.runner, BaseRef, HeadRef, opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, prerrors.New(prerrors.KindCanceled, "rebase", ctx.Err())
		}
		if prerrors.KindOf(err) == prerrors.KindCanceled {
			return nil, err
		}
		return nil, prerrors.New(prerrors.KindUnknownFailure, "rebase", err)
	}
	return result, nil
}

// Cleanup removes the workspace directory. It is safe to call more than once.
func (w *Workspace) Cleanup() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cleaned {
		return nil
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", w.dir, err)
	}
	w.cleaned = true
	return nil
}
