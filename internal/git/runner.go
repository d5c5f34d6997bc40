package git

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	prerrors "prrebase.dev/prrebase/internal/errors"
)

// DefaultCommandTimeout is the default timeout for git commands
const DefaultCommandTimeout = 5 * time.Minute

// ErrStaleRemoteInfo indicates that a push failed because the remote has changed
var ErrStaleRemoteInfo = errors.New("stale info")

// baseEnv is applied to every git process. Prompts would hang a
// non-interactive run and a fixed locale keeps stderr matchable.
var baseEnv = []string{
	"GIT_TERMINAL_PROMPT=0",
	"LC_ALL=C",
}

// CommandRunner handles execution of git commands in one directory
type CommandRunner struct {
	workingDir string
	env        []string
}

// NewCommandRunner creates a new CommandRunner
func NewCommandRunner(workingDir string, env ...string) *CommandRunner {
	return &CommandRunner{workingDir: workingDir, env: env}
}

// Run executes a git command with the given context and returns the trimmed output
func (r *CommandRunner) Run(ctx context.Context, args ...string) (string, error) {
	return r.runInternal(ctx, true, args...)
}

// RunRaw executes a git command and returns the output untrimmed
func (r *CommandRunner) RunRaw(ctx context.Context, args ...string) (string, error) {
	return r.runInternal(ctx, false, args...)
}

// RunLines executes a git command and returns output as lines
func (r *CommandRunner) RunLines(ctx context.Context, args ...string) ([]string, error) {
	output, err := r.Run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if output == "" {
		return []string{}, nil
	}
	return strings.Split(output, "\n"), nil
}

// RunCombined executes a git command and returns stdout and stderr together.
// Push and fetch report their outcome on stderr.
func (r *CommandRunner) RunCombined(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	cmd := r.command(ctx, args...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	if err := cmd.Run(); err != nil {
		return combined.String(), r.wrapError(ctx, args, "", combined.String(), err)
	}
	return combined.String(), nil
}

func (r *CommandRunner) runInternal(ctx context.Context, trim bool, args ...string) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	cmd := r.command(ctx, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", r.wrapError(ctx, args, stdout.String(), stderr.String(), err)
	}
	if trim {
		return strings.TrimSpace(stdout.String()), nil
	}
	return stdout.String(), nil
}

func (r *CommandRunner) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	env := append(os.Environ(), baseEnv...)
	cmd.Env = append(env, r.env...)
	return cmd
}

func (r *CommandRunner) wrapError(ctx context.Context, args []string, stdout, stderr string, err error) error {
	// Surface cancellation so callers can classify it without parsing output
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return prerrors.NewGitCommandError("git", args, stdout, stderr, err)
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	// If no timeout/deadline is set in the context, add the default one
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, DefaultCommandTimeout)
	}
	return ctx, func() {}
}
