// Package report turns the end of a rebase run into an outcome value and
// renders it for people.
package report

import (
	"slices"
	"time"

	prerrors "prrebase.dev/prrebase/internal/errors"
	"prrebase.dev/prrebase/internal/git"
)

// Outcome is the result of one rebase run. It is implemented by Success,
// Conflict and Failure only.
type Outcome interface {
	// PR returns the pull request number the run was for
	PR() int
	// OK reports whether the pull request is now rebased
	OK() bool
	outcome()
}

// Success means the pull request head now contains the base tip
type Success struct {
	PRNumber int
	NewHead  string
	Replayed int
	// Skipped counts commits dropped because the base already had their changes
	Skipped int
	// NoOp is set when nothing had to be pushed
	NoOp bool
}

// FileChange summarizes one file of the commit that conflicted
type FileChange struct {
	Path    string
	Added   int
	Deleted int
}

// Conflict means a commit could not be replayed and nothing was pushed
type Conflict struct {
	PRNumber int
	// CommitIndex is 0-based among the commits being replayed
	CommitIndex   int
	TotalCommits  int
	CommitSHA     string
	CommitSubject string
	Paths         []string
	Files         []FileChange
}

// Failure means the run stopped before finishing
type Failure struct {
	PRNumber   int
	Kind       prerrors.Kind
	Message    string
	RetryAfter time.Duration
}

func (s Success) PR() int  { return s.PRNumber }
func (s Success) OK() bool { return true }
func (Success) outcome()   {}

func (c Conflict) PR() int  { return c.PRNumber }
func (c Conflict) OK() bool { return false }
func (Conflict) outcome()   {}

func (f Failure) PR() int  { return f.PRNumber }
func (f Failure) OK() bool { return false }
func (Failure) outcome()   {}

// RunResult is what an orchestration run knows when it reaches a terminal state
type RunResult struct {
	// Err is set when the run failed
	Err error
	// Replay is the last replay, if one happened
	Replay *git.ReplayResult
	// NewHead is the pushed head for a successful run
	NewHead string
	// NoOp is set when the pull request was already up to date
	NoOp bool
}

// NewFailure builds a Failure from an error
func NewFailure(number int, err error) Failure {
	if err == nil {
		return Failure{PRNumber: number, Kind: prerrors.KindUnknownFailure, Message: "run failed without an error"}
	}
	return Failure{
		PRNumber:   number,
		Kind:       prerrors.KindOf(err),
		Message:    err.Error(),
		RetryAfter: prerrors.RetryAfter(err),
	}
}

// NewConflict builds a Conflict from the replay that stopped
func NewConflict(number int, replay *git.ReplayResult) Conflict {
	c := Conflict{PRNumber: number}
	if replay == nil || replay.Conflict == nil {
		return c
	}
	info := replay.Conflict
	c.CommitIndex = info.CommitIndex
	c.TotalCommits = replay.Total
	c.CommitSHA = info.Commit.SHA
	c.CommitSubject = info.Commit.Subject
	c.Paths = slices.Clone(info.Paths)
	if len(info.Files) > 0 {
		c.Files = make([]FileChange, 0, len(info.Files))
		for _, f := range info.Files {
			c.Files = append(c.Files, FileChange{Path: f.Path, Added: f.Added, Deleted: f.Deleted})
		}
	}
	return c
}

// FromRun maps the end of a run to its outcome
func FromRun(number int, run RunResult) Outcome {
	if run.Err != nil {
		return NewFailure(number, run.Err)
	}
	if run.Replay != nil && run.Replay.Conflicted() {
		return NewConflict(number, run.Replay)
	}

	s := Success{PRNumber: number, NewHead: run.NewHead, NoOp: run.NoOp}
	if run.Replay != nil {
		s.Replayed = run.Replay.Replayed
		s.Skipped = run.Replay.Skipped
		if s.NewHead == "" {
			s.NewHead = run.Replay.NewHead
		}
	}
	return s
}

// ExitCode is the process exit status for an outcome
func ExitCode(o Outcome) int {
	if o != nil && o.OK() {
		return 0
	}
	return 1
}
