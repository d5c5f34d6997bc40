// Package errors provides sentinel errors and custom error types for prrebase.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies why a rebase run failed
type Kind int

const (
	// KindUnknownFailure is the catch-all for errors that fit no other kind
	KindUnknownFailure Kind = iota
	// KindAuthFailure indicates the credential is invalid, expired or lacks scope
	KindAuthFailure
	// KindNotFound indicates the pull request or repository does not exist
	KindNotFound
	// KindRateLimited indicates the forge throttled the caller
	KindRateLimited
	// KindFetchFailure indicates a network or transfer failure talking to the remote
	KindFetchFailure
	// KindConflictDetected indicates a commit could not be replayed cleanly
	KindConflictDetected
	// KindConcurrentModification indicates the remote moved since this run read it
	KindConcurrentModification
	// KindInvalidArgument indicates caller input was rejected before any I/O
	KindInvalidArgument
	// KindInvalidState indicates the pull request cannot be rebased in its current state
	KindInvalidState
	// KindCanceled indicates the run was interrupted
	KindCanceled
)

var kindNames = map[Kind]string{
	KindUnknownFailure:         "UnknownFailure",
	KindAuthFailure:            "AuthFailure",
	KindNotFound:               "NotFound",
	KindRateLimited:            "RateLimited",
	KindFetchFailure:           "FetchFailure",
	KindConflictDetected:       "ConflictDetected",
	KindConcurrentModification: "ConcurrentModification",
	KindInvalidArgument:        "InvalidArgument",
	KindInvalidState:           "InvalidState",
	KindCanceled:               "Canceled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Retryable reports whether errors of this kind may be retried with backoff
func (k Kind) Retryable() bool {
	return k == KindRateLimited || k == KindFetchFailure
}

// Sentinel errors for common conditions
var (
	ErrAuthFailure            = errors.New("authentication failed")
	ErrNotFound               = errors.New("not found")
	ErrRateLimited            = errors.New("rate limited")
	ErrFetchFailure           = errors.New("fetch failed")
	ErrConflictDetected       = errors.New("rebase conflict")
	ErrConcurrentModification = errors.New("remote branch was modified concurrently")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrInvalidState           = errors.New("invalid pull request state")
	ErrCanceled               = errors.New("canceled")
	ErrUnknownFailure         = errors.New("unknown failure")

	// ErrMissingCredential indicates that no credential could be resolved
	ErrMissingCredential = errors.New("no GitHub token set")
)

var kindSentinels = map[Kind]error{
	KindAuthFailure:            ErrAuthFailure,
	KindNotFound:               ErrNotFound,
	KindRateLimited:            ErrRateLimited,
	KindFetchFailure:           ErrFetchFailure,
	KindConflictDetected:       ErrConflictDetected,
	KindConcurrentModification: ErrConcurrentModification,
	KindInvalidArgument:        ErrInvalidArgument,
	KindInvalidState:           ErrInvalidState,
	KindCanceled:               ErrCanceled,
	KindUnknownFailure:         ErrUnknownFailure,
}

// RebaseError is a classified error produced by the forge client, the workspace
// or the orchestrator
type RebaseError struct {
	Kind       Kind
	Op         string
	Err        error
	RetryAfter time.Duration
}

func (e *RebaseError) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RebaseError) Unwrap() error {
	return e.Err
}

// Is returns true if the target is the sentinel for this error's kind
func (e *RebaseError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// New creates a RebaseError of the given kind
func New(kind Kind, op string, err error) *RebaseError {
	return &RebaseError{Kind: kind, Op: op, Err: err}
}

// Newf creates a RebaseError with a formatted message as its cause
func Newf(kind Kind, op string, format string, args ...interface{}) *RebaseError {
	return &RebaseError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// NewRateLimited creates a KindRateLimited error carrying a retry-after hint
func NewRateLimited(op string, retryAfter time.Duration, err error) *RebaseError {
	return &RebaseError{Kind: KindRateLimited, Op: op, Err: err, RetryAfter: retryAfter}
}

// KindOf returns the kind of the first RebaseError in err's chain.
// Context cancellation maps to KindCanceled; anything else is KindUnknownFailure.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknownFailure
	}
	var re *RebaseError
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	if errors.Is(err, ErrMissingCredential) {
		return KindAuthFailure
	}
	return KindUnknownFailure
}

// RetryAfter returns the retry-after hint carried by err, or zero
func RetryAfter(err error) time.Duration {
	var re *RebaseError
	if errors.As(err, &re) {
		return re.RetryAfter
	}
	return 0
}

// IsRetryable reports whether err is of a retryable kind
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}
