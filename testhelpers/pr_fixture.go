package testhelpers

import (
	"fmt"
	"testing"
)

// PRFixture is a local repository plus a bare "origin" holding a base branch
// and a pull request head branch.
type PRFixture struct {
	Scene     *Scene
	RemoteDir string
	BaseRef   string
	HeadRef   string
	fileSeq   int
}

// NewPRFixture creates main with an initial commit and a feature branch with
// one commit per subject, each touching its own file. Both are pushed.
func NewPRFixture(t testing.TB, subjects ...string) *PRFixture {
	t.Helper()

	scene := NewScene(t, func(s *Scene) error {
		return s.Repo.WriteFileAndCommit("README.md", "# fixture\n", "initial commit")
	})
	remoteDir, err := scene.Repo.CreateBareRemote("origin")
	if err != nil {
		t.Fatalf("create remote: %v", err)
	}

	f := &PRFixture{
		Scene:     scene,
		RemoteDir: remoteDir,
		BaseRef:   "main",
		HeadRef:   "feature",
	}
	f.mustGit(t, "push", "-u", "origin", "main")
	f.mustGit(t, "checkout", "-b", f.HeadRef)
	for _, subject := range subjects {
		f.fileSeq++
		f.mustCommit(t, fmt.Sprintf("feature_%d.txt", f.fileSeq), subject+"\n", subject)
	}
	f.mustGit(t, "push", "-u", "origin", f.HeadRef)
	f.mustGit(t, "checkout", f.BaseRef)

	return f
}

// AdvanceBase adds a commit to the base branch on a fresh file and pushes it.
func (f *PRFixture) AdvanceBase(t testing.TB, subject string) string {
	t.Helper()
	f.fileSeq++
	return f.AddBaseCommit(t, fmt.Sprintf("base_%d.txt", f.fileSeq), subject+"\n", subject)
}

// AddBaseCommit commits contents to name on the base branch and pushes it.
func (f *PRFixture) AddBaseCommit(t testing.TB, name, contents, subject string) string {
	t.Helper()
	return f.commitOn(t, f.BaseRef, name, contents, subject)
}

// AddHeadCommit commits contents to name on the head branch and pushes it.
func (f *PRFixture) AddHeadCommit(t testing.TB, name, contents, subject string) string {
	t.Helper()
	return f.commitOn(t, f.HeadRef, name, contents, subject)
}

func (f *PRFixture) commitOn(t testing.TB, branch, name, contents, subject string) string {
	t.Helper()
	f.mustGit(t, "checkout", branch)
	f.mustGit(t, "pull", "--ff-only", "origin", branch)
	f.mustCommit(t, name, contents, subject)
	f.mustGit(t, "push", "origin", branch)
	f.mustGit(t, "checkout", f.BaseRef)
	return RemoteRevision(f.RemoteDir, branch)
}

// BaseSHA returns the current base tip on the remote.
func (f *PRFixture) BaseSHA() string {
	return RemoteRevision(f.RemoteDir, f.BaseRef)
}

// HeadSHA returns the current head tip on the remote.
func (f *PRFixture) HeadSHA() string {
	return RemoteRevision(f.RemoteDir, f.HeadRef)
}

// HeadSubjectsSinceBase returns the subjects of commits on the remote head that are not on base.
func (f *PRFixture) HeadSubjectsSinceBase(t testing.TB) []string {
	t.Helper()
	subjects, err := RemoteSubjects(f.RemoteDir, f.BaseRef, f.HeadRef)
	if err != nil {
		t.Fatalf("list subjects: %v", err)
	}
	return subjects
}

// HeadContainsBase reports whether the remote head descends from the remote base tip.
func (f *PRFixture) HeadContainsBase() bool {
	return RemoteIsAncestor(f.RemoteDir, f.BaseSHA(), f.HeadSHA())
}

func (f *PRFixture) mustCommit(t testing.TB, name, contents, subject string) {
	t.Helper()
	if err := f.Scene.Repo.WriteFileAndCommit(name, contents, subject); err != nil {
		t.Fatalf("commit %q: %v", subject, err)
	}
}

func (f *PRFixture) mustGit(t testing.TB, args ...string) {
	t.Helper()
	if err := f.Scene.Repo.RunGitCommand(args...); err != nil {
		t.Fatalf("%v", err)
	}
}
