package report_test

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	prerrors "prrebase.dev/prrebase/internal/errors"
	"prrebase.dev/prrebase/internal/git"
	"prrebase.dev/prrebase/internal/report"
)

func conflictedReplay() *git.ReplayResult {
	return &git.ReplayResult{
		Onto:     "refs/prrebase/base",
		Total:    3,
		Replayed: 1,
		Conflict: &git.ConflictInfo{
			CommitIndex: 1,
			Commit:      git.Commit{SHA: "0123456789abcdef0123456789abcdef01234567", Subject: "edit shared"},
			Paths:       []string{"a.txt", "b.txt"},
			Files:       []git.FileStat{{Path: "a.txt", Added: 2, Deleted: 1}},
		},
	}
}

func TestFromRun(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		out := report.FromRun(42, report.RunResult{
			Replay: &git.ReplayResult{Total: 3, Replayed: 3, NewHead: "abc"},
		})
		require.Equal(t, report.Success{PRNumber: 42, NewHead: "abc", Replayed: 3}, out)
		require.True(t, out.OK())
		require.Equal(t, 0, report.ExitCode(out))
	})

	t.Run("no-op", func(t *testing.T) {
		t.Parallel()
		out := report.FromRun(42, report.RunResult{NoOp: true})
		require.Equal(t, report.Success{PRNumber: 42, NoOp: true}, out)
	})

	t.Run("conflict", func(t *testing.T) {
		t.Parallel()
		replay := conflictedReplay()
		out := report.FromRun(7, report.RunResult{Replay: replay})

		conflict, ok := out.(report.Conflict)
		require.True(t, ok)
		require.Equal(t, 1, conflict.CommitIndex)
		require.Equal(t, 3, conflict.TotalCommits)
		require.Equal(t, []string{"a.txt", "b.txt"}, conflict.Paths)
		require.Equal(t, []report.FileChange{{Path: "a.txt", Added: 2, Deleted: 1}}, conflict.Files)
		require.Equal(t, 1, report.ExitCode(out))

		replay.Conflict.Paths[0] = "mutated"
		require.Equal(t, "a.txt", conflict.Paths[0])
	})

	t.Run("failure keeps kind and retry hint", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("get pull request: %w", prerrors.NewRateLimited("get", 30*time.Second, stderrors.New("slow down")))
		out := report.FromRun(42, report.RunResult{Err: err, Replay: conflictedReplay()})

		failure, ok := out.(report.Failure)
		require.True(t, ok)
		require.Equal(t, prerrors.KindRateLimited, failure.Kind)
		require.Equal(t, 30*time.Second, failure.RetryAfter)
		require.Equal(t, 1, report.ExitCode(out))
	})

	t.Run("nil outcome exits non-zero", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, 1, report.ExitCode(nil))
	})
}

func TestFromRunNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		run := report.RunResult{
			NoOp:    rapid.Bool().Draw(t, "noop"),
			NewHead: rapid.StringMatching(`[0-9a-f]{0,40}`).Draw(t, "head"),
		}
		if rapid.Bool().Draw(t, "failed") {
			kind := prerrors.Kind(rapid.IntRange(0, int(prerrors.KindCanceled)).Draw(t, "kind"))
			run.Err = prerrors.Newf(kind, "op", "boom")
		}
		if rapid.Bool().Draw(t, "replayed") {
			run.Replay = &git.ReplayResult{Total: rapid.IntRange(0, 5).Draw(t, "total")}
			if rapid.Bool().Draw(t, "conflicted") {
				run.Replay.Conflict = &git.ConflictInfo{CommitIndex: rapid.IntRange(0, 4).Draw(t, "index")}
			}
		}

		out := report.FromRun(1, run)
		if run.Err != nil && out.OK() {
			t.Fatalf("failed run reported success: %#v", out)
		}
		_ = report.Summary(out).String()
	})
}

func TestSummary(t *testing.T) {
	t.Parallel()

	t.Run("conflict names the commit and every path", func(t *testing.T) {
		t.Parallel()
		msg := report.Summary(report.NewConflict(42, conflictedReplay())).String()
		require.Contains(t, msg, "commit 2 of 3")
		require.Contains(t, msg, "0123456789ab edit shared")
		require.Contains(t, msg, "a.txt")
		require.Contains(t, msg, "b.txt")
		require.Contains(t, msg, "(+2 -1)")
		require.Contains(t, msg, "Nothing was pushed")
	})

	t.Run("auth failure points at the token page", func(t *testing.T) {
		t.Parallel()
		msg := report.Summary(report.NewFailure(42, prerrors.Newf(prerrors.KindAuthFailure, "get", "Bad credentials"))).String()
		require.Contains(t, msg, report.TokenURL)
	})

	t.Run("rate limit shows the wait", func(t *testing.T) {
		t.Parallel()
		msg := report.Summary(report.NewFailure(42, prerrors.NewRateLimited("get", 90*time.Second, nil))).String()
		require.Contains(t, msg, "1m30s")
	})

	t.Run("concurrent modification asks for a re-run", func(t *testing.T) {
		t.Parallel()
		msg := report.Summary(report.NewFailure(42, prerrors.Newf(prerrors.KindConcurrentModification, "push", "stale info"))).String()
		require.Contains(t, msg, "re-run")
	})

	t.Run("success and no-op", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "Rebased PR #42: replayed 3 commits\n  New head: 0123456789ab",
			report.Summary(report.Success{PRNumber: 42, Replayed: 3, NewHead: "0123456789abcdef"}).String())
		require.Equal(t, "PR #42 is already up to date with its base",
			report.Summary(report.Success{PRNumber: 42, NoOp: true}).String())
	})
}

func TestRenderWithoutTerminalHasNoColor(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	out := report.Render(&buf, report.NewConflict(42, conflictedReplay()))
	require.NotContains(t, out, "\x1b[")
	require.Contains(t, out, "✗ Could not rebase PR #42")
	require.Contains(t, out, "b.txt")

	require.False(t, report.ColorEnabled(&buf))
}
