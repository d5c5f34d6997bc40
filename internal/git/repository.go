package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// Identity is the committer recorded on replayed commits
type Identity struct {
	Name  string
	Email string
}

// Repository wraps a go-git repository
type Repository struct {
	*git.Repository
	path string
}

// OpenRepository opens the git repository containing path
func OpenRepository(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	root := absPath
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}

	return &Repository{
		Repository: repo,
		path:       root,
	}, nil
}

// InitRepository creates an empty repository at path with the committer
// identity and signing settings replayed commits need
func InitRepository(path string, identity Identity) (*Repository, error) {
	repo, err := git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to init repository: %w", err)
	}

	cfg, err := repo.Config()
	if err != nil {
		return nil, fmt.Errorf("failed to read repository config: %w", err)
	}
	cfg.User.Name = identity.Name
	cfg.User.Email = identity.Email
	cfg.Committer.Name = identity.Name
	cfg.Committer.Email = identity.Email
	cfg.Raw.Section("commit").SetOption("gpgsign", "false")
	cfg.Raw.Section("core").SetOption("autocrlf", "false")
	cfg.Raw.Section("gc").SetOption("auto", "0")
	if err := repo.SetConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to write repository config: %w", err)
	}

	return &Repository{Repository: repo, path: path}, nil
}

// GetRepoRoot returns the root directory of the repository
func (r *Repository) GetRepoRoot() string {
	return r.path
}

// RemoteURL returns the first URL configured for a remote
func (r *Repository) RemoteURL(name string) (string, error) {
	remote, err := r.Remote(name)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return "", fmt.Errorf("remote %q is not configured", name)
		}
		return "", fmt.Errorf("failed to read remote %q: %w", name, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %q has no URL", name)
	}
	return urls[0], nil
}

// AddRemote registers a remote; an existing remote with the same name is kept
func (r *Repository) AddRemote(name, url string) error {
	_, err := r.CreateRemote(&gitconfig.RemoteConfig{Name: name, URLs: []string{url}})
	if err != nil && !errors.Is(err, git.ErrRemoteExists) {
		return fmt.Errorf("failed to add remote %q: %w", name, err)
	}
	return nil
}

// ResolveRef returns the commit SHA a ref points to
func (r *Repository) ResolveRef(name string) (string, error) {
	ref, err := r.Reference(plumbing.ReferenceName(name), true)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	return ref.Hash().String(), nil
}

// HeadSHA returns the commit HEAD points to
func (r *Repository) HeadSHA() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// CommitSubject returns the first line of a commit message
func (r *Repository) CommitSubject(sha string) (string, error) {
	commit, err := r.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return "", fmt.Errorf("failed to read commit %s: %w", sha, err)
	}
	subject, _, _ := strings.Cut(commit.Message, "\n")
	return strings.TrimSpace(subject), nil
}

// FindRepoRoot returns the worktree root of the repository containing dir
func FindRepoRoot(dir string) (string, error) {
	repo, err := OpenRepository(dir)
	if err != nil {
		return "", err
	}
	return repo.GetRepoRoot(), nil
}
