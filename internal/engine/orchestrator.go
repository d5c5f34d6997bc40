package engine

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"prrebase.dev/prrebase/internal/config"
	prerrors "prrebase.dev/prrebase/internal/errors"
	"prrebase.dev/prrebase/internal/git"
	"prrebase.dev/prrebase/internal/github"
	"prrebase.dev/prrebase/internal/report"
	"prrebase.dev/prrebase/internal/retry"
	"prrebase.dev/prrebase/internal/tui"
)

// Options configures an Orchestrator
type Options struct {
	Client     github.Client
	Workspaces WorkspaceProvider
	Credential config.Credential
	Splog      *tui.Splog
	Retry      retry.Policy
	Autosquash bool
	// OnTransition is called on every state change, terminal ones included
	OnTransition TransitionFunc
}

// Orchestrator drives one pull request at a time from Idle to a terminal
// state. The remote head branch is only written in Pushing, and only under a
// lease on the head the run started from.
type Orchestrator struct {
	client       github.Client
	workspaces   WorkspaceProvider
	credential   config.Credential
	splog        *tui.Splog
	retry        retry.Policy
	autosquash   bool
	onTransition TransitionFunc

	running sync.Mutex

	mu    sync.Mutex
	state State
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Client == nil {
		return nil, prerrors.Newf(prerrors.KindInvalidArgument, "new orchestrator", "no forge client")
	}
	if opts.Workspaces == nil {
		return nil, prerrors.Newf(prerrors.KindInvalidArgument, "new orchestrator", "no workspace provider")
	}
	splog := opts.Splog
	if splog == nil {
		splog = tui.NewSplogWithWriter(io.Discard, false)
	}
	return &Orchestrator{
		client:       opts.Client,
		workspaces:   opts.Workspaces,
		credential:   opts.Credential,
		splog:        splog,
		retry:        opts.Retry,
		autosquash:   opts.Autosquash,
		onTransition: opts.OnTransition,
	}, nil
}

// State returns the state of the current or last run
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run rebases pull request number onto its base. It never panics and always
// returns an outcome; a second Run while one is in progress fails with
// KindInvalidState.
func (o *Orchestrator) Run(ctx context.Context, number int) (out report.Outcome) {
	if !o.running.TryLock() {
		return report.NewFailure(number, prerrors.Newf(prerrors.KindInvalidState, "rebase", "a rebase is already running"))
	}
	defer o.running.Unlock()

	r := &run{
		o:      o,
		number: number,
		id:     uuid.NewString(),
	}
	r.log = o.splog.With("run", r.id, "pr", number)
	o.setState(StateIdle)

	finished := false
	defer func() {
		if p := recover(); p != nil {
			r.log.Debug("rebase of PR #%d panicked: %v", number, p)
			if !finished {
				out = r.finish(report.RunResult{Err: prerrors.Newf(prerrors.KindUnknownFailure, "rebase", "internal error: %v", p)})
			} else {
				out = report.NewFailure(number, prerrors.Newf(prerrors.KindUnknownFailure, "rebase", "internal error: %v", p))
			}
		}
	}()

	result := r.execute(ctx)
	finished = true
	return r.finish(result)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

type run struct {
	o      *Orchestrator
	number int
	id     string
	log    *tui.Splog
	state  State

	ws      Workspace
	cleaned bool
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to
	r.o.setState(to)
	r.log.Debug("PR #%d: %s -> %s", r.number, from, to)
	if r.o.onTransition != nil {
		r.o.onTransition(from, to)
	}
}

// enter moves to a non-terminal state unless the run was canceled
func (r *run) enter(ctx context.Context, to State) error {
	if err := ctx.Err(); err != nil {
		return prerrors.New(prerrors.KindCanceled, strings.ToLower(to.String()), err)
	}
	r.transition(to)
	return nil
}

func (r *run) finish(result report.RunResult) report.Outcome {
	r.cleanup()

	out := report.FromRun(r.number, result)
	switch out.(type) {
	case report.Success:
		r.transition(StateDone)
	case report.Conflict:
		r.transition(StateConflicted)
	default:
		r.transition(StateFailed)
	}
	return out
}

func (r *run) cleanup() {
	if r.ws == nil || r.cleaned {
		return
	}
	r.cleaned = true
	if err := r.ws.Cleanup(); err != nil {
		r.log.Warn("Could not remove workspace %s: %v", r.ws.Dir(), err)
	}
}

func (r *run) execute(ctx context.Context) report.RunResult {
	if err := r.enter(ctx, StateValidating); err != nil {
		return report.RunResult{Err: err}
	}
	if r.number <= 0 {
		return report.RunResult{Err: prerrors.Newf(prerrors.KindInvalidArgument, "validate", "invalid pull request number %d", r.number)}
	}

	pr, err := forgeCall(ctx, r, "get pull request", func(ctx context.Context) (*github.PullRequest, error) {
		return r.o.client.GetPullRequest(ctx, r.number)
	})
	if err != nil {
		return report.RunResult{Err: err}
	}
	if pr == nil {
		return report.RunResult{Err: prerrors.Newf(prerrors.KindNotFound, "get pull request", "pull request #%d not found", r.number)}
	}
	if !pr.IsOpen() {
		return report.RunResult{Err: prerrors.Newf(prerrors.KindInvalidState, "validate", "pull request #%d is %s", r.number, pr.State)}
	}

	user, err := forgeCall(ctx, r, "get authenticated user", r.o.client.GetAuthenticatedUser)
	if err != nil {
		return report.RunResult{Err: err}
	}
	if user == nil {
		user = &github.User{}
	}
	if pr.IsCrossRepository() && !pr.MaintainerCanModify && !strings.EqualFold(pr.Author, user.Login) {
		return report.RunResult{Err: prerrors.Newf(prerrors.KindInvalidState, "validate",
			"pull request #%d does not allow edits from maintainers", r.number)}
	}

	upToDate, err := forgeCall(ctx, r, "compare", func(ctx context.Context) (bool, error) {
		return r.o.client.IsUpToDate(ctx, pr.Base.Ref, pr.Head.SHA)
	})
	switch {
	case err == nil && upToDate:
		r.log.Debug("PR #%d already contains %s", r.number, pr.Base.Ref)
		return report.RunResult{NoOp: true, NewHead: pr.Head.SHA}
	case err != nil && prerrors.KindOf(err) != prerrors.KindNotFound:
		return report.RunResult{Err: err}
	}

	if err := r.enter(ctx, StatePreparing); err != nil {
		return report.RunResult{Err: err}
	}
	ws, err := r.o.workspaces.Prepare(ctx, pr, r.o.credential, committerIdentity(user), r.id)
	if err != nil {
		return report.RunResult{Err: err}
	}
	r.ws = ws

	contains, err := ws.ContainsBase(ctx)
	if err != nil {
		return report.RunResult{Err: err}
	}
	if contains {
		return report.RunResult{NoOp: true, NewHead: ws.HeadSHA()}
	}

	if err := r.enter(ctx, StateRebasing); err != nil {
		return report.RunResult{Err: err}
	}
	r.log.Info("Rebasing PR #%d onto %s (%s)", r.number, pr.Base.Ref, shortSHA(ws.BaseSHA()))
	replay, err := ws.Rebase(ctx, git.ReplayOptions{Autosquash: r.o.autosquash})
	if err != nil {
		return report.RunResult{Err: err}
	}
	if replay.Conflicted() {
		return report.RunResult{Replay: replay}
	}
	if replay.Replayed == 0 {
		return report.RunResult{Replay: replay, Err: prerrors.Newf(prerrors.KindInvalidState, "rebase",
			"every commit of pull request #%d is already on %s", r.number, pr.Base.Ref)}
	}

	if err := r.enter(ctx, StatePushing); err != nil {
		return report.RunResult{Err: err}
	}
	if err := r.push(ctx, pr, ws, replay); err != nil {
		return report.RunResult{Replay: replay, Err: err}
	}
	r.log.Info("Pushed %s to %s", shortSHA(replay.NewHead), pr.Head.Ref)
	return report.RunResult{Replay: replay, NewHead: replay.NewHead}
}

func (r *run) push(ctx context.Context, pr *github.PullRequest, ws Workspace, replay *git.ReplayResult) error {
	baseTip, err := forgeCall(ctx, r, "read base", func(ctx context.Context) (string, error) {
		return r.o.client.GetBranchSHA(ctx, pr.Base.Owner, pr.Base.Repo, pr.Base.Ref)
	})
	if err != nil {
		return err
	}
	if baseTip != ws.BaseSHA() {
		return prerrors.Newf(prerrors.KindConcurrentModification, "push",
			"%s moved from %s to %s during the rebase", pr.Base.Ref, shortSHA(ws.BaseSHA()), shortSHA(baseTip))
	}

	req := github.PushRequest{
		Dir:         ws.Dir(),
		RemoteURL:   pr.Head.CloneURL,
		Branch:      pr.Head.Ref,
		ExpectedSHA: ws.HeadSHA(),
		NewSHA:      replay.NewHead,
	}
	attempts := 0
	_, err = forgeCall(ctx, r, "push", func(ctx context.Context) (struct{}, error) {
		attempts++
		err := r.o.client.PushBranch(ctx, req)
		if err != nil && attempts > 1 && prerrors.KindOf(err) == prerrors.KindConcurrentModification && r.landed(ctx, pr, req.NewSHA) {
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	return err
}

// landed reports whether the head branch already points at newSHA. An
// earlier push attempt can update the remote and still fail on the way back,
// so a retry then loses the lease to its own result.
func (r *run) landed(ctx context.Context, pr *github.PullRequest, newSHA string) bool {
	tip, err := r.o.client.GetBranchSHA(ctx, pr.Head.Owner, pr.Head.Repo, pr.Head.Ref)
	if err != nil {
		r.log.Debug("could not read %s after a rejected push: %v", pr.Head.Ref, err)
		return false
	}
	if tip != newSHA {
		return false
	}
	r.log.Debug("%s already points at %s from an earlier push attempt", pr.Head.Ref, shortSHA(newSHA))
	return true
}

// forgeCall retries op on rate limiting, and on transfer failures while
// preparing or pushing
func forgeCall[T any](ctx context.Context, r *run, op string, fn func(context.Context) (T, error)) (T, error) {
	predicate := retry.RateLimitedOnly
	if r.state == StatePreparing || r.state == StatePushing {
		predicate = retry.Retryable
	}
	return retry.DoValue(ctx, r.o.retry, predicate, func(err error, attempt int, wait time.Duration) {
		r.log.Debug("%s attempt %d failed, retrying in %s: %v", op, attempt, wait, err)
	}, fn)
}

func committerIdentity(user *github.User) git.Identity {
	if user == nil || user.Login == "" {
		return git.Identity{}
	}
	name := user.Name
	if name == "" {
		name = user.Login
	}
	email := user.Email
	if email == "" {
		email = fmt.Sprintf("%s@users.noreply.github.com", user.Login)
	}
	return git.Identity{Name: name, Email: email}
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
