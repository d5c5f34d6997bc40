package git

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"prrebase.dev/prrebase/testhelpers"
)

func TestInitRepository(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "ws")

	repo, err := InitRepository(dir, Identity{Name: "Octo Cat", Email: "octocat@users.noreply.github.com"})
	require.NoError(t, err)
	require.Equal(t, dir, repo.GetRepoRoot())

	runner := NewCommandRunner(dir)
	name, err := runner.Run(context.Background(), "config", "user.name")
	require.NoError(t, err)
	require.Equal(t, "Octo Cat", name)
	sign, err := runner.Run(context.Background(), "config", "commit.gpgsign")
	require.NoError(t, err)
	require.Equal(t, "false", sign)

	require.NoError(t, repo.AddRemote("base", "/tmp/somewhere.git"))
	require.NoError(t, repo.AddRemote("base", "/tmp/elsewhere.git"))
	url, err := repo.RemoteURL("base")
	require.NoError(t, err)
	require.Equal(t, "/tmp/somewhere.git", url)

	_, err = repo.RemoteURL("missing")
	require.Error(t, err)
}

func TestOpenRepository(t *testing.T) {
	t.Parallel()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	_, err := scene.Repo.CreateBareRemote("origin")
	require.NoError(t, err)

	root, err := FindRepoRoot(filepath.Join(scene.Dir, "."))
	require.NoError(t, err)
	require.Equal(t, scene.Dir, root)

	repo, err := OpenRepository(scene.Dir)
	require.NoError(t, err)

	head, err := repo.HeadSHA()
	require.NoError(t, err)
	expected, err := scene.Repo.GetRevision("HEAD")
	require.NoError(t, err)
	require.Equal(t, expected, head)

	subject, err := repo.CommitSubject(head)
	require.NoError(t, err)
	require.Equal(t, "1", subject)

	mainSHA, err := repo.ResolveRef("refs/heads/main")
	require.NoError(t, err)
	require.Equal(t, expected, mainSHA)

	url, err := repo.RemoteURL("origin")
	require.NoError(t, err)
	require.Equal(t, scene.Dir+"-origin.git", url)
}
