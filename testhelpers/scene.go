// Package testhelpers provides local git scenes, pull request fixtures and a
// mock GitHub API server for tests.
package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
)

// Scene is a temporary local repository for a single test.
// It never changes the process working directory, so scenes are safe to use
// from parallel tests.
type Scene struct {
	Dir  string
	Repo *GitRepo
}

// SceneSetup is a function type for setting up a scene.
type SceneSetup func(*Scene) error

// NewScene creates a new test scene with a temporary directory and Git repository.
// The directory is removed by t.Cleanup unless DEBUG is set.
func NewScene(t testing.TB, setup SceneSetup) *Scene {
	t.Helper()

	tmpDir := t.TempDir()
	if os.Getenv("DEBUG") != "" {
		// t.TempDir is always removed, keep this one around for inspection
		debugDir, err := os.MkdirTemp("", "prrebase-test-*")
		if err != nil {
			t.Fatalf("Failed to create temp dir: %v", err)
		}
		tmpDir = debugDir
		t.Logf("scene directory: %s", tmpDir)
	}

	repoDir := filepath.Join(tmpDir, "local")
	repo, err := NewGitRepo(repoDir)
	if err != nil {
		t.Fatalf("Failed to create Git repo: %v", err)
	}

	scene := &Scene{
		Dir:  repoDir,
		Repo: repo,
	}

	if setup != nil {
		if err := setup(scene); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}

	return scene
}

// BasicSceneSetup is a setup function that creates a basic scene with a single commit.
func BasicSceneSetup(scene *Scene) error {
	return scene.Repo.CreateChangeAndCommit("1", "1")
}
