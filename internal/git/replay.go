package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	prerrors "prrebase.dev/prrebase/internal/errors"
)

// Commit is a commit to be replayed
type Commit struct {
	SHA     string
	Subject string
}

// ReplayOptions controls how commits are replayed
type ReplayOptions struct {
	// Autosquash folds fixup!, squash! and amend! commits into their targets
	Autosquash bool
}

// ConflictInfo describes the commit that stopped a replay
type ConflictInfo struct {
	// CommitIndex is the 0-based position of the commit among those being replayed
	CommitIndex int
	Commit      Commit
	Paths       []string
	Files       []FileStat
}

// ReplayResult is the outcome of replaying a range of commits
type ReplayResult struct {
	Onto     string
	NewHead  string
	Total    int
	Replayed int
	// Skipped counts commits that became empty on the new base and were dropped
	Skipped  int
	Conflict *ConflictInfo
}

// Conflicted reports whether the replay stopped on a conflict
func (r *ReplayResult) Conflicted() bool {
	return r.Conflict != nil
}

// ListCommits returns the non-merge commits reachable from head that are not
// on onto, oldest first. Commits whose patch is already on onto are left out.
func ListCommits(ctx context.Context, r *CommandRunner, onto, head string) ([]Commit, error) {
	lines, err := r.RunLines(ctx, "log", "--reverse", "--no-merges", "--right-only", "--cherry-pick",
		"--no-color", "--format=%H%x00%s", onto+"..."+head)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits %s...%s: %w", onto, head, err)
	}

	commits := make([]Commit, 0, len(lines))
	for _, line := range lines {
		sha, subject, _ := strings.Cut(line, "\x00")
		if sha == "" {
			continue
		}
		commits = append(commits, Commit{SHA: sha, Subject: subject})
	}
	return commits, nil
}

// IsAncestor reports whether ancestor is reachable from descendant
func IsAncestor(ctx context.Context, r *CommandRunner, ancestor, descendant string) (bool, error) {
	_, err := r.Run(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, err
}

// Replay replays the commits of head that are not on onto on top of onto,
// one commit at a time, leaving HEAD detached at the result. On a conflict the
// in-progress pick is aborted and the conflict is reported in the result
// rather than as an error.
func Replay(ctx context.Context, r *CommandRunner, onto, head string, opts ReplayOptions) (*ReplayResult, error) {
	commits, err := ListCommits(ctx, r, onto, head)
	if err != nil {
		return nil, err
	}

	result := &ReplayResult{Onto: onto, Total: len(commits)}
	if _, err := r.Run(ctx, "checkout", "--quiet", "--force", "--detach", onto); err != nil {
		return nil, fmt.Errorf("failed to check out %s: %w", onto, err)
	}

	for _, step := range PlanReplay(commits, opts.Autosquash) {
		if err := ctx.Err(); err != nil {
			return nil, prerrors.New(prerrors.KindCanceled, "replay", err)
		}

		before, err := r.Run(ctx, "rev-parse", "HEAD")
		if err != nil {
			return nil, fmt.Errorf("failed to read HEAD: %w", err)
		}

		outcome, err := applyStep(ctx, r, step)
		if err != nil {
			return nil, err
		}
		switch outcome {
		case stepApplied:
			result.Replayed++
		case stepEmpty:
			result.Skipped++
		case stepConflict:
			conflict, err := describeConflict(ctx, r, step)
			abortStep(ctx, r, before)
			if err != nil {
				return nil, err
			}
			result.Conflict = conflict
			return result, nil
		}
	}

	newHead, err := r.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("failed to read replayed HEAD: %w", err)
	}
	result.NewHead = newHead
	return result, nil
}

type stepOutcome int

const (
	stepApplied stepOutcome = iota
	stepEmpty
	stepConflict
)

func applyStep(ctx context.Context, r *CommandRunner, step Step) (stepOutcome, error) {
	if step.Action == ActionPick {
		_, err := r.Run(ctx, "-c", "commit.gpgsign=false", "cherry-pick", "--allow-empty", step.Commit.SHA)
		if err == nil {
			return stepApplied, nil
		}
		return classifyPickFailure(ctx, r, err)
	}

	// Folded steps apply the change to the index and amend the previous commit
	if _, err := r.Run(ctx, "cherry-pick", "--no-commit", step.Commit.SHA); err != nil {
		outcome, classifyErr := classifyPickFailure(ctx, r, err)
		if classifyErr != nil || outcome == stepConflict {
			return outcome, classifyErr
		}
	}

	args := []string{"-c", "commit.gpgsign=false", "commit", "--amend", "--allow-empty", "--quiet"}
	switch step.Action {
	case ActionSquash:
		current, err := commitMessage(ctx, r, "HEAD")
		if err != nil {
			return stepApplied, err
		}
		folded, err := commitMessage(ctx, r, step.Commit.SHA)
		if err != nil {
			return stepApplied, err
		}
		message := current
		if body := messageBody(folded); body != "" {
			message = strings.TrimRight(current, "\n") + "\n\n" + body
		}
		args = append(args, "--cleanup=strip", "-m", message)
	case ActionAmend:
		folded, err := commitMessage(ctx, r, step.Commit.SHA)
		if err != nil {
			return stepApplied, err
		}
		if body := messageBody(folded); body != "" {
			args = append(args, "--cleanup=strip", "-m", body)
		} else {
			args = append(args, "--no-edit")
		}
	default:
		args = append(args, "--no-edit")
	}

	if _, err := r.Run(ctx, args...); err != nil {
		return stepApplied, fmt.Errorf("failed to fold %s: %w", shortSHA(step.Commit.SHA), err)
	}
	return stepApplied, nil
}

// classifyPickFailure tells a conflict apart from a commit that became empty
func classifyPickFailure(ctx context.Context, r *CommandRunner, pickErr error) (stepOutcome, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stepConflict, prerrors.New(prerrors.KindCanceled, "replay", ctxErr)
	}

	unmerged, err := UnmergedPaths(ctx, r)
	if err != nil {
		return stepConflict, err
	}
	if len(unmerged) > 0 {
		return stepConflict, nil
	}

	// Nothing unmerged and nothing staged: the change is already on the base
	if _, err := r.Run(ctx, "diff", "--cached", "--quiet"); err == nil {
		_, _ = r.Run(ctx, "cherry-pick", "--skip")
		return stepEmpty, nil
	}

	return stepConflict, fmt.Errorf("cherry-pick failed: %w", pickErr)
}

// UnmergedPaths returns the paths left in conflict in the index
func UnmergedPaths(ctx context.Context, r *CommandRunner) ([]string, error) {
	paths, err := r.RunLines(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, fmt.Errorf("failed to list unmerged paths: %w", err)
	}
	return paths, nil
}

func describeConflict(ctx context.Context, r *CommandRunner, step Step) (*ConflictInfo, error) {
	paths, err := UnmergedPaths(ctx, r)
	if err != nil {
		return nil, err
	}
	files, err := CommitFileStats(ctx, r, step.Commit.SHA)
	if err != nil {
		return nil, err
	}
	return &ConflictInfo{
		CommitIndex: step.Index,
		Commit:      step.Commit,
		Paths:       paths,
		Files:       files,
	}, nil
}

// abortStep returns the worktree to before, ignoring failures from commands
// that have nothing to abort
func abortStep(ctx context.Context, r *CommandRunner, before string) {
	_, _ = r.Run(ctx, "cherry-pick", "--abort")
	_, _ = r.Run(ctx, "reset", "--quiet", "--hard", before)
}

func commitMessage(ctx context.Context, r *CommandRunner, rev string) (string, error) {
	message, err := r.Run(ctx, "log", "-1", "--format=%B", rev)
	if err != nil {
		return "", fmt.Errorf("failed to read message of %s: %w", rev, err)
	}
	return message, nil
}

// messageBody drops the subject line of a commit message
func messageBody(message string) string {
	_, body, _ := strings.Cut(message, "\n")
	return strings.TrimSpace(body)
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
