package runtime_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"prrebase.dev/prrebase/internal/config"
	prerrors "prrebase.dev/prrebase/internal/errors"
	"prrebase.dev/prrebase/internal/runtime"
	"prrebase.dev/prrebase/internal/tui"
	"prrebase.dev/prrebase/testhelpers"
)

func quietSplog() *tui.Splog {
	return tui.NewSplogWithWriter(io.Discard, false)
}

func TestResolveRepository(t *testing.T) {
	t.Parallel()

	t.Run("reads the origin remote", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.RunGitCommand("remote", "add", "origin", "git@github.com:angular/dev-infra.git"))

		ctx, err := runtime.GetContext(scene.Dir, quietSplog())
		require.NoError(t, err)
		require.Equal(t, scene.Dir, ctx.RepoRoot)

		info, err := ctx.ResolveRepository("", "")
		require.NoError(t, err)
		require.Equal(t, "github.com", info.Hostname)
		require.Equal(t, "angular", info.Owner)
		require.Equal(t, "dev-infra", info.Repo)
	})

	t.Run("uses the remote named by the flag", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.RunGitCommand("remote", "add", "upstream", "https://ghe.example.com/infra/tools.git"))

		ctx, err := runtime.GetContext(scene.Dir, quietSplog())
		require.NoError(t, err)

		info, err := ctx.ResolveRepository("", "upstream")
		require.NoError(t, err)
		require.Equal(t, "ghe.example.com", info.Hostname)
		require.Equal(t, "infra", info.Owner)
	})

	t.Run("the flag beats the config file", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		slug := "config/repo"
		require.NoError(t, config.WriteRepoConfig(scene.Dir, &config.RepoConfig{Repo: &slug}))

		ctx, err := runtime.GetContext(scene.Dir, quietSplog())
		require.NoError(t, err)

		info, err := ctx.ResolveRepository("", "")
		require.NoError(t, err)
		require.Equal(t, "config", info.Owner)

		info, err = ctx.ResolveRepository("flag/repo", "")
		require.NoError(t, err)
		require.Equal(t, "flag", info.Owner)
	})

	t.Run("missing remote", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		ctx, err := runtime.GetContext(scene.Dir, quietSplog())
		require.NoError(t, err)

		_, err = ctx.ResolveRepository("", "")
		require.ErrorIs(t, err, prerrors.ErrInvalidArgument)
	})

	t.Run("outside a repository only the flag works", func(t *testing.T) {
		t.Parallel()
		ctx, err := runtime.GetContext(t.TempDir(), quietSplog())
		require.NoError(t, err)
		require.Empty(t, ctx.RepoRoot)

		_, err = ctx.ResolveRepository("", "")
		require.ErrorIs(t, err, prerrors.ErrInvalidArgument)

		info, err := ctx.ResolveRepository("angular/dev-infra", "")
		require.NoError(t, err)
		require.Equal(t, "dev-infra", info.Repo)
	})
}
