package runtime

import (
	"fmt"

	"prrebase.dev/prrebase/internal/config"
	prerrors "prrebase.dev/prrebase/internal/errors"
	"prrebase.dev/prrebase/internal/git"
	"prrebase.dev/prrebase/internal/github"
	"prrebase.dev/prrebase/internal/tui"
)

// Context provides the logger and repository settings for commands
type Context struct {
	Splog  *tui.Splog
	Config *config.RepoConfig
	// RepoRoot is the repository prrebase was invoked in, or "" outside one
	RepoRoot string

	repo *git.Repository
}

// NewContext creates a context with default settings and no repository
func NewContext(splog *tui.Splog) *Context {
	return &Context{
		Splog:  splog,
		Config: &config.RepoConfig{},
	}
}

// GetContext loads the repository containing dir and its config file.
// Outside a repository the context carries defaults only.
func GetContext(dir string, splog *tui.Splog) (*Context, error) {
	ctx := NewContext(splog)

	repo, err := git.OpenRepository(dir)
	if err != nil {
		splog.Debug("Not in a git repository: %v", err)
		return ctx, nil
	}
	ctx.repo = repo
	ctx.RepoRoot = repo.GetRepoRoot()

	cfg, err := config.GetRepoConfig(ctx.RepoRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", config.ConfigPath(ctx.RepoRoot), err)
	}
	ctx.Config = cfg
	return ctx, nil
}

// ResolveRepository picks the repository to rebase in: the --repo flag, then
// the config file, then the URL of the remote.
func (c *Context) ResolveRepository(repoFlag, remoteFlag string) (*github.RepoInfo, error) {
	slug := repoFlag
	if slug == "" {
		slug = c.Config.RepoSlug()
	}
	if slug != "" {
		owner, name, err := config.ParseRepoSlug(slug)
		if err != nil {
			return nil, err
		}
		return &github.RepoInfo{Owner: owner, Repo: name}, nil
	}

	if c.repo == nil {
		return nil, prerrors.Newf(prerrors.KindInvalidArgument, "resolve repository",
			"not in a git repository; pass --repo owner/name")
	}

	remote := remoteFlag
	if remote == "" {
		remote = c.Config.RemoteName()
	}
	url, err := c.repo.RemoteURL(remote)
	if err != nil {
		return nil, prerrors.New(prerrors.KindInvalidArgument, "resolve repository", err)
	}
	info, err := github.ParseGitHubRemoteURL(url)
	if err != nil {
		return nil, prerrors.New(prerrors.KindInvalidArgument, "resolve repository",
			fmt.Errorf("remote %s: %w", remote, err))
	}
	return info, nil
}
