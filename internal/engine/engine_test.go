package engine_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"prrebase.dev/prrebase/internal/config"
	"prrebase.dev/prrebase/internal/engine"
	prerrors "prrebase.dev/prrebase/internal/errors"
	"prrebase.dev/prrebase/internal/report"
	"prrebase.dev/prrebase/internal/retry"
	"prrebase.dev/prrebase/testhelpers"
)

type harness struct {
	fixture *testhelpers.PRFixture
	server  *testhelpers.MockGitHubServer
	root    string
}

func newHarness(t *testing.T, subjects ...string) *harness {
	t.Helper()
	fixture := testhelpers.NewPRFixture(t, subjects...)
	return &harness{
		fixture: fixture,
		server:  testhelpers.NewMockGitHubServerForFixture(t, fixture, "angular", "dev-infra", 42),
		root:    t.TempDir(),
	}
}

func (h *harness) request(number int) engine.Request {
	return engine.Request{
		Number:        number,
		Credential:    config.NewCredential("tok123", "test"),
		Owner:         "angular",
		Repo:          "dev-infra",
		APIURL:        h.server.APIURL(),
		WorkspaceRoot: h.root,
		Retry:         retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, MaxWait: time.Second},
	}
}

func (h *harness) rebase(t *testing.T, req engine.Request) report.Outcome {
	t.Helper()
	out, err := engine.RebasePR(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, out)

	leftovers, err := os.ReadDir(h.root)
	require.NoError(t, err)
	require.Empty(t, leftovers, "workspace was not removed")
	return out
}

func requireFailure(t *testing.T, out report.Outcome, kind prerrors.Kind) report.Failure {
	t.Helper()
	failure, ok := out.(report.Failure)
	require.True(t, ok, "expected a failure, got %#v", out)
	require.Equal(t, kind, failure.Kind, failure.Message)
	return failure
}

func TestRebasePR(t *testing.T) {
	t.Parallel()

	t.Run("replays three commits onto the new base", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one", "two", "three")
		baseA := h.fixture.AdvanceBase(t, "base moves to A")

		out := h.rebase(t, h.request(42))

		success, ok := out.(report.Success)
		require.True(t, ok, "%#v", out)
		require.False(t, success.NoOp)
		require.Equal(t, 3, success.Replayed)
		require.Equal(t, h.fixture.HeadSHA(), success.NewHead)
		require.Equal(t, baseA, h.fixture.BaseSHA())
		require.True(t, h.fixture.HeadContainsBase())
		require.Equal(t, []string{"one", "two", "three"}, h.fixture.HeadSubjectsSinceBase(t))
		require.Equal(t, []string{"Bearer tok123"}, unique(h.server.AuthHeaders()))
	})

	t.Run("a second run is a no-op", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one", "two")
		h.fixture.AdvanceBase(t, "base moves")

		first := h.rebase(t, h.request(42))
		require.Equal(t, 0, report.ExitCode(first))
		headAfterFirst := h.fixture.HeadSHA()

		second := h.rebase(t, h.request(42))
		success, ok := second.(report.Success)
		require.True(t, ok, "%#v", second)
		require.True(t, success.NoOp)
		require.Equal(t, headAfterFirst, h.fixture.HeadSHA())
	})

	t.Run("an up-to-date pull request is not fetched", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one")

		out := h.rebase(t, h.request(42))
		success, ok := out.(report.Success)
		require.True(t, ok, "%#v", out)
		require.True(t, success.NoOp)
	})

	t.Run("walks every state in order", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one")
		h.fixture.AdvanceBase(t, "base moves")

		var states []engine.State
		req := h.request(42)
		req.OnTransition = func(_, to engine.State) { states = append(states, to) }
		h.rebase(t, req)

		require.Equal(t, []engine.State{
			engine.StateValidating,
			engine.StatePreparing,
			engine.StateRebasing,
			engine.StatePushing,
			engine.StateDone,
		}, states)
	})

	t.Run("a base that moves before the push blocks the push", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one", "two", "three")
		h.fixture.AdvanceBase(t, "base moves to A")
		headBefore := h.fixture.HeadSHA()

		req := h.request(42)
		req.OnTransition = func(_, to engine.State) {
			if to == engine.StatePushing {
				h.fixture.AdvanceBase(t, "base moves to B")
			}
		}
		out := h.rebase(t, req)

		requireFailure(t, out, prerrors.KindConcurrentModification)
		require.Equal(t, headBefore, h.fixture.HeadSHA())
	})

	t.Run("a conflict stops before pushing", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one")
		h.fixture.AddHeadCommit(t, "shared.txt", "head\n", "head edits shared")
		h.fixture.AddHeadCommit(t, "other.txt", "other\n", "head edits other")
		h.fixture.AddBaseCommit(t, "shared.txt", "base\n", "base edits shared")
		headBefore := h.fixture.HeadSHA()

		var last engine.State
		req := h.request(42)
		req.OnTransition = func(_, to engine.State) { last = to }
		out := h.rebase(t, req)

		conflict, ok := out.(report.Conflict)
		require.True(t, ok, "%#v", out)
		require.Equal(t, 1, conflict.CommitIndex)
		require.Equal(t, 3, conflict.TotalCommits)
		require.Equal(t, "head edits shared", conflict.CommitSubject)
		require.Equal(t, []string{"shared.txt"}, conflict.Paths)
		require.Equal(t, headBefore, h.fixture.HeadSHA())
		require.Equal(t, engine.StateConflicted, last)
	})

	t.Run("closed pull requests are rejected", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one")
		h.server.UpdatePull(42, func(p *testhelpers.PullFixture) { p.State = "closed" })

		requireFailure(t, h.rebase(t, h.request(42)), prerrors.KindInvalidState)
	})

	t.Run("forks that forbid maintainer edits are rejected", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one")
		h.fixture.AdvanceBase(t, "base moves")
		h.server.UpdatePull(42, func(p *testhelpers.PullFixture) {
			p.Author = "contributor"
			p.HeadOwner = "contributor"
			p.MaintainerCanModify = false
		})

		requireFailure(t, h.rebase(t, h.request(42)), prerrors.KindInvalidState)
	})

	t.Run("missing pull request", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one")
		requireFailure(t, h.rebase(t, h.request(7)), prerrors.KindNotFound)
	})

	t.Run("non-positive numbers never reach the forge", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one")
		requireFailure(t, h.rebase(t, h.request(0)), prerrors.KindInvalidArgument)
		require.Zero(t, h.server.RequestCount(testhelpers.RoutePull))
	})

	t.Run("bad credentials", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one")
		h.server.RequireToken("something-else")

		failure := requireFailure(t, h.rebase(t, h.request(42)), prerrors.KindAuthFailure)
		require.NotContains(t, failure.Message, "tok123")
	})

	t.Run("rate limiting is retried", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one")
		h.fixture.AdvanceBase(t, "base moves")
		h.server.FailNext(testhelpers.RoutePull, 2, testhelpers.InjectedFailure{Status: 429, Message: "slow down", RetryAfter: "0"})

		out := h.rebase(t, h.request(42))
		require.True(t, out.OK(), "%#v", out)
		require.Equal(t, 3, h.server.RequestCount(testhelpers.RoutePull))
	})

	t.Run("exhausted rate limiting keeps its kind", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one")
		h.server.FailNext(testhelpers.RoutePull, 5, testhelpers.InjectedFailure{Status: 429, Message: "slow down", RetryAfter: "0"})

		requireFailure(t, h.rebase(t, h.request(42)), prerrors.KindRateLimited)
		require.Equal(t, 3, h.server.RequestCount(testhelpers.RoutePull))
	})

	t.Run("a server error on the base check before pushing is retried", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one", "two")
		h.fixture.AdvanceBase(t, "base moves")
		h.server.FailNext(testhelpers.RouteBranch, 1, testhelpers.InjectedFailure{Status: 502, Message: "bad gateway"})

		out := h.rebase(t, h.request(42))
		success, ok := out.(report.Success)
		require.True(t, ok, "%#v", out)
		require.Equal(t, 2, success.Replayed)
		require.Equal(t, h.fixture.HeadSHA(), success.NewHead)
		require.Equal(t, 2, h.server.RequestCount(testhelpers.RouteBranch))
	})

	t.Run("rate limiting on the base check before pushing is retried", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one")
		h.fixture.AdvanceBase(t, "base moves")
		h.server.FailNext(testhelpers.RouteBranch, 2, testhelpers.InjectedFailure{Status: 429, Message: "slow down", RetryAfter: "0"})

		out := h.rebase(t, h.request(42))
		require.True(t, out.OK(), "%#v", out)
		require.Equal(t, 3, h.server.RequestCount(testhelpers.RouteBranch))
		require.True(t, h.fixture.HeadContainsBase())
	})

	t.Run("a deleted base branch is NotFound and nothing is pushed", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one")
		h.fixture.AdvanceBase(t, "base moves")
		headBefore := h.fixture.HeadSHA()
		h.server.FailNext(testhelpers.RouteBranch, 1, testhelpers.InjectedFailure{Status: 404})

		requireFailure(t, h.rebase(t, h.request(42)), prerrors.KindNotFound)
		require.Equal(t, 1, h.server.RequestCount(testhelpers.RouteBranch))
		require.Equal(t, headBefore, h.fixture.HeadSHA())
	})

	t.Run("server errors while validating are not retried", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "one")
		h.server.FailNext(testhelpers.RoutePull, 1, testhelpers.InjectedFailure{Status: 502, Message: "bad gateway"})

		requireFailure(t, h.rebase(t, h.request(42)), prerrors.KindFetchFailure)
		require.Equal(t, 1, h.server.RequestCount(testhelpers.RoutePull))
	})
}

func TestRebasePRRequiresCredential(t *testing.T) {
	t.Parallel()
	_, err := engine.RebasePR(context.Background(), engine.Request{Number: 42, Owner: "angular", Repo: "dev-infra"})
	require.ErrorIs(t, err, prerrors.ErrMissingCredential)
}

func unique(values []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
