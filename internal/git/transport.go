package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	prerrors "prrebase.dev/prrebase/internal/errors"
)

var (
	leaseRejectedMarkers = []string{
		"stale info",
		"[rejected]",
		"non-fast-forward",
		"fetch first",
	}
	authMarkers = []string{
		"authentication failed",
		"could not read username",
		"could not read password",
		"terminal prompts disabled",
		"permission denied",
		"the requested url returned error: 401",
		"the requested url returned error: 403",
		"invalid username or password",
	}
	notFoundMarkers = []string{
		"repository not found",
		"does not appear to be a git repository",
		"couldn't find remote ref",
		"the requested url returned error: 404",
		"not our ref",
	}
	networkMarkers = []string{
		"could not resolve host",
		"connection timed out",
		"connection refused",
		"connection reset",
		"timed out",
		"early eof",
		"rpc failed",
		"unable to access",
		"the remote end hung up",
		"the requested url returned error: 5",
		"operation too slow",
	}
)

// ClassifyTransportError maps a failed fetch or push to an error kind by
// inspecting git's output
func ClassifyTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return prerrors.New(prerrors.KindCanceled, op, err)
	}

	output := strings.ToLower(transportOutput(err))
	switch {
	case containsAny(output, leaseRejectedMarkers):
		return prerrors.New(prerrors.KindConcurrentModification, op, fmt.Errorf("%w: %w", ErrStaleRemoteInfo, err))
	case containsAny(output, authMarkers):
		return prerrors.New(prerrors.KindAuthFailure, op, err)
	case containsAny(output, notFoundMarkers):
		return prerrors.New(prerrors.KindNotFound, op, err)
	case containsAny(output, networkMarkers):
		return prerrors.New(prerrors.KindFetchFailure, op, err)
	default:
		return prerrors.New(prerrors.KindUnknownFailure, op, err)
	}
}

func transportOutput(err error) string {
	var gitErr *prerrors.GitCommandError
	if errors.As(err, &gitErr) {
		return gitErr.Stderr + "\n" + gitErr.Stdout
	}
	return err.Error()
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
