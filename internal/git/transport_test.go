package git

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	prerrors "prrebase.dev/prrebase/internal/errors"
)

func TestClassifyTransportError(t *testing.T) {
	t.Parallel()

	gitErr := func(stderr string) error {
		return prerrors.NewGitCommandError("git", []string{"push"}, "", stderr, stderrors.New("exit status 1"))
	}

	tests := []struct {
		name string
		err  error
		want prerrors.Kind
	}{
		{"lease rejected", gitErr("! [rejected] feature -> feature (stale info)"), prerrors.KindConcurrentModification},
		{"non fast forward", gitErr(" ! [rejected] main -> main (fetch first)"), prerrors.KindConcurrentModification},
		{"bad credentials", gitErr("remote: Invalid username or password.\nfatal: Authentication failed for 'https://github.com/o/r/'"), prerrors.KindAuthFailure},
		{"prompt disabled", gitErr("fatal: could not read Username for 'https://github.com': terminal prompts disabled"), prerrors.KindAuthFailure},
		{"missing repo", gitErr("remote: Repository not found.\nfatal: repository 'https://github.com/o/r/' not found"), prerrors.KindNotFound},
		{"missing ref", gitErr("fatal: couldn't find remote ref refs/heads/gone"), prerrors.KindNotFound},
		{"dns", gitErr("fatal: unable to access 'https://github.com/o/r/': Could not resolve host: github.com"), prerrors.KindFetchFailure},
		{"hung up", gitErr("fatal: the remote end hung up unexpectedly"), prerrors.KindFetchFailure},
		{"server error", gitErr("error: RPC failed; HTTP 502 curl 22 The requested URL returned error: 502"), prerrors.KindFetchFailure},
		{"unknown", gitErr("fatal: something odd"), prerrors.KindUnknownFailure},
		{"canceled", prerrors.NewGitCommandError("git", nil, "", "", context.Canceled), prerrors.KindCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ClassifyTransportError("push head", tt.err)
			require.Equal(t, tt.want, prerrors.KindOf(err), err.Error())
			require.ErrorIs(t, err, tt.err)
		})
	}

	t.Run("lease rejection wraps stale info", func(t *testing.T) {
		t.Parallel()
		err := ClassifyTransportError("push head", gitErr("[rejected] (stale info)"))
		require.ErrorIs(t, err, ErrStaleRemoteInfo)
		require.ErrorIs(t, err, prerrors.ErrConcurrentModification)
	})

	require.NoError(t, ClassifyTransportError("push", nil))
}

func TestTokenEnv(t *testing.T) {
	t.Parallel()

	require.Nil(t, TokenEnv(""))

	env := TokenEnv("tok123")
	require.Len(t, env, 3)
	for _, entry := range env {
		require.NotContains(t, entry, "tok123")
	}

	header := strings.TrimPrefix(env[2], "GIT_CONFIG_VALUE_0=Authorization: Basic ")
	decoded, err := base64.StdEncoding.DecodeString(header)
	require.NoError(t, err)
	require.Equal(t, "x-access-token:tok123", string(decoded))
}
