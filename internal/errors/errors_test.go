package errors_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	prerrors "prrebase.dev/prrebase/internal/errors"
)

func TestRebaseError(t *testing.T) {
	t.Run("matches the sentinel for its kind", func(t *testing.T) {
		err := prerrors.New(prerrors.KindNotFound, "fetch pull request", fmt.Errorf("404"))
		wrapped := fmt.Errorf("validating: %w", err)

		require.ErrorIs(t, wrapped, prerrors.ErrNotFound)
		require.NotErrorIs(t, wrapped, prerrors.ErrAuthFailure)
		require.Equal(t, prerrors.KindNotFound, prerrors.KindOf(wrapped))
	})

	t.Run("message includes op kind and cause", func(t *testing.T) {
		err := prerrors.Newf(prerrors.KindFetchFailure, "fetch base", "connection reset")
		require.Equal(t, "fetch base: FetchFailure: connection reset", err.Error())
	})

	t.Run("carries retry-after hint", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", prerrors.NewRateLimited("get pr", 3*time.Second, nil))
		require.Equal(t, 3*time.Second, prerrors.RetryAfter(err))
		require.True(t, prerrors.IsRetryable(err))
	})
}

func TestKindOf(t *testing.T) {
	require.Equal(t, prerrors.KindCanceled, prerrors.KindOf(fmt.Errorf("x: %w", context.Canceled)))
	require.Equal(t, prerrors.KindCanceled, prerrors.KindOf(context.DeadlineExceeded))
	require.Equal(t, prerrors.KindAuthFailure, prerrors.KindOf(prerrors.ErrMissingCredential))
	require.Equal(t, prerrors.KindUnknownFailure, prerrors.KindOf(stderrors.New("boom")))
	require.Equal(t, prerrors.KindUnknownFailure, prerrors.KindOf(nil))
}

func TestKindRetryable(t *testing.T) {
	retryable := map[prerrors.Kind]bool{
		prerrors.KindRateLimited:  true,
		prerrors.KindFetchFailure: true,
	}
	for k := prerrors.KindUnknownFailure; k <= prerrors.KindCanceled; k++ {
		require.Equal(t, retryable[k], k.Retryable(), k.String())
	}
}

func TestGitCommandError(t *testing.T) {
	cause := stderrors.New("exit status 128")
	err := prerrors.NewGitCommandError("git", []string{"fetch", "origin"}, "", "fatal: no such remote", cause)

	require.Contains(t, err.Error(), "git command failed: git [fetch origin]")
	require.Contains(t, err.Error(), "stderr: fatal: no such remote")
	require.ErrorIs(t, err, cause)
}
