package engine

import (
	"context"

	"prrebase.dev/prrebase/internal/config"
	"prrebase.dev/prrebase/internal/github"
	"prrebase.dev/prrebase/internal/report"
	"prrebase.dev/prrebase/internal/retry"
	"prrebase.dev/prrebase/internal/tui"
	"prrebase.dev/prrebase/internal/workspace"
)

// Request is everything RebasePR needs to rebase one pull request
type Request struct {
	Number     int
	Credential config.Credential

	// Owner and Repo name the base repository
	Owner string
	Repo  string
	// APIURL overrides the REST endpoint, for GitHub Enterprise
	APIURL   string
	Hostname string

	// WorkspaceRoot is where workspaces are created; empty means the system temp dir
	WorkspaceRoot string
	Autosquash    bool
	// Retry is the backoff policy; the zero value means retry.DefaultPolicy()
	Retry retry.Policy

	Splog        *tui.Splog
	OnTransition TransitionFunc
}

// RebasePR rebases a pull request onto its base branch and pushes the result.
// The error is non-nil only when the engine could not be set up; every failure
// of the run itself is reported as a report.Failure.
func RebasePR(ctx context.Context, req Request) (report.Outcome, error) {
	client, err := github.NewRESTClient(ctx, github.ClientOptions{
		Owner:      req.Owner,
		Repo:       req.Repo,
		Credential: req.Credential,
		APIURL:     req.APIURL,
		Hostname:   req.Hostname,
	})
	if err != nil {
		return nil, err
	}

	policy := req.Retry
	if policy == (retry.Policy{}) {
		policy = retry.DefaultPolicy()
	}

	orchestrator, err := NewOrchestrator(Options{
		Client:       client,
		Workspaces:   ManagerProvider(workspace.NewManager(req.WorkspaceRoot, req.Splog, policy)),
		Credential:   req.Credential,
		Splog:        req.Splog,
		Retry:        policy,
		Autosquash:   req.Autosquash,
		OnTransition: req.OnTransition,
	})
	if err != nil {
		return nil, err
	}
	return orchestrator.Run(ctx, req.Number), nil
}
