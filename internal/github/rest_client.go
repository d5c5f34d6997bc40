package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"prrebase.dev/prrebase/internal/config"
	prerrors "prrebase.dev/prrebase/internal/errors"
	"prrebase.dev/prrebase/internal/git"
)

const (
	defaultHostname       = "github.com"
	defaultRequestTimeout = 30 * time.Second
)

// ClientOptions configures a RESTClient
type ClientOptions struct {
	Owner      string
	Repo       string
	Credential config.Credential
	// APIURL overrides the REST endpoint, e.g. for tests or a proxy
	APIURL string
	// Hostname selects GitHub Enterprise when it is not github.com
	Hostname string
	// HTTPClient is the transport the OAuth client wraps
	HTTPClient *http.Client
	// RequestTimeout bounds each API request; zero means 30s
	RequestTimeout time.Duration
}

// RESTClient implements Client against the GitHub REST API
type RESTClient struct {
	client     *github.Client
	owner      string
	repo       string
	credential config.Credential
	timeout    time.Duration
}

var _ Client = (*RESTClient)(nil)

// NewRESTClient creates a GitHub client authenticated with opts.Credential
func NewRESTClient(ctx context.Context, opts ClientOptions) (*RESTClient, error) {
	if opts.Credential.IsZero() {
		return nil, prerrors.New(prerrors.KindAuthFailure, "create GitHub client", prerrors.ErrMissingCredential)
	}
	if opts.Owner == "" || opts.Repo == "" {
		return nil, prerrors.Newf(prerrors.KindInvalidArgument, "create GitHub client", "repository owner and name are required")
	}

	client, err := createGitHubClient(ctx, opts)
	if err != nil {
		return nil, prerrors.New(prerrors.KindInvalidArgument, "create GitHub client", err)
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &RESTClient{
		client:     client,
		owner:      opts.Owner,
		repo:       opts.Repo,
		credential: opts.Credential,
		timeout:    timeout,
	}, nil
}

func createGitHubClient(ctx context.Context, opts ClientOptions) (*github.Client, error) {
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: opts.Credential.Token()},
	)
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	switch {
	case opts.APIURL != "":
		apiURL := opts.APIURL
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		baseURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse API URL %s: %w", opts.APIURL, err)
		}
		client.BaseURL = baseURL
		client.UploadURL = baseURL
	case opts.Hostname != "" && opts.Hostname != defaultHostname:
		// GitHub Enterprise API endpoints
		// REST API: https://hostname/api/v3/
		// Upload API: https://hostname/api/uploads/
		baseURL, err := url.Parse(fmt.Sprintf("https://%s/api/v3/", opts.Hostname))
		if err != nil {
			return nil, fmt.Errorf("failed to parse base URL for hostname %s: %w", opts.Hostname, err)
		}
		uploadURL, err := url.Parse(fmt.Sprintf("https://%s/api/uploads/", opts.Hostname))
		if err != nil {
			return nil, fmt.Errorf("failed to parse upload URL for hostname %s: %w", opts.Hostname, err)
		}
		client.BaseURL = baseURL
		client.UploadURL = uploadURL
	}
	// For github.com, the default URLs are already correct

	return client, nil
}

// BaseURL returns the REST endpoint requests are sent to
func (c *RESTClient) BaseURL() string {
	return c.client.BaseURL.String()
}

// Owner returns the base repository owner
func (c *RESTClient) Owner() string {
	return c.owner
}

// Repo returns the base repository name
func (c *RESTClient) Repo() string {
	return c.repo
}

// GetPullRequest fetches a pull request of the base repository
func (c *RESTClient) GetPullRequest(ctx context.Context, number int) (*PullRequest, error) {
	pr, err := apiCall(ctx, c, fmt.Sprintf("get pull request #%d", number), func(ctx context.Context) (*github.PullRequest, *github.Response, error) {
		return c.client.PullRequests.Get(ctx, c.owner, c.repo, number)
	})
	if err != nil {
		return nil, err
	}
	return toPullRequest(pr), nil
}

// GetBranchSHA returns the tip of a branch in any repository. It reads the
// git ref rather than the branch resource, whose errors carry no status.
func (c *RESTClient) GetBranchSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	ref, err := apiCall(ctx, c, fmt.Sprintf("get branch %s/%s:%s", owner, repo, branch), func(ctx context.Context) (*github.Reference, *github.Response, error) {
		return c.client.Git.GetRef(ctx, owner, repo, "heads/"+branch)
	})
	if err != nil {
		return "", err
	}
	sha := ref.GetObject().GetSHA()
	if sha == "" {
		return "", prerrors.Newf(prerrors.KindUnknownFailure, "get branch", "branch %s has no commit", branch)
	}
	return sha, nil
}

// IsUpToDate reports whether headSHA already contains the tip of baseRef
func (c *RESTClient) IsUpToDate(ctx context.Context, baseRef, headSHA string) (bool, error) {
	comparison, err := apiCall(ctx, c, fmt.Sprintf("compare %s...%s", baseRef, headSHA), func(ctx context.Context) (*github.CommitsComparison, *github.Response, error) {
		return c.client.Repositories.CompareCommits(ctx, c.owner, c.repo, baseRef, headSHA, &github.ListOptions{PerPage: 1})
	})
	if err != nil {
		return false, err
	}
	switch comparison.GetStatus() {
	case "ahead", "identical":
		return true, nil
	default:
		return false, nil
	}
}

// GetAuthenticatedUser returns the owner of the credential
func (c *RESTClient) GetAuthenticatedUser(ctx context.Context) (*User, error) {
	u, err := apiCall(ctx, c, "get authenticated user", func(ctx context.Context) (*github.User, *github.Response, error) {
		return c.client.Users.Get(ctx, "")
	})
	if err != nil {
		return nil, err
	}
	return &User{
		Login: u.GetLogin(),
		Name:  u.GetName(),
		Email: u.GetEmail(),
	}, nil
}

// PushBranch updates req.Branch on req.RemoteURL to req.NewSHA only if it
// still points at req.ExpectedSHA. The credential is handed to git through
// the environment.
func (c *RESTClient) PushBranch(ctx context.Context, req PushRequest) error {
	if req.Dir == "" || req.RemoteURL == "" || req.Branch == "" || req.ExpectedSHA == "" || req.NewSHA == "" {
		return prerrors.Newf(prerrors.KindInvalidArgument, "push branch", "incomplete push request for %q", req.Branch)
	}

	runner := git.NewCommandRunner(req.Dir, git.TokenEnv(c.credential.Token())...)
	return git.PushWithLease(ctx, runner, req.RemoteURL, req.Branch, req.ExpectedSHA, req.NewSHA)
}

// apiCall runs one request bounded by the client's timeout. Errors are
// classified against ctx, so a timed-out request is a transfer failure while
// a canceled caller is Canceled.
func apiCall[T any](ctx context.Context, c *RESTClient, op string, fn func(context.Context) (T, *github.Response, error)) (T, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	v, _, err := fn(reqCtx)
	if err != nil {
		var zero T
		return zero, classifyAPIError(ctx, op, err)
	}
	return v, nil
}

// toPullRequest converts a go-github PullRequest, tolerating missing fields
func toPullRequest(pr *github.PullRequest) *PullRequest {
	if pr == nil {
		return nil
	}
	result := &PullRequest{
		Number:              pr.GetNumber(),
		State:               pr.GetState(),
		Title:               pr.GetTitle(),
		Author:              pr.GetUser().GetLogin(),
		HTMLURL:             pr.GetHTMLURL(),
		Head:                toBranchRef(pr.GetHead()),
		Base:                toBranchRef(pr.GetBase()),
		MaintainerCanModify: pr.GetMaintainerCanModify(),
		Mergeable:           pr.Mergeable,
		Rebaseable:          pr.Rebaseable,
		MergeableState:      pr.GetMergeableState(),
	}
	return result
}

func toBranchRef(b *github.PullRequestBranch) BranchRef {
	if b == nil {
		return BranchRef{}
	}
	repo := b.GetRepo()
	return BranchRef{
		Ref:      b.GetRef(),
		SHA:      b.GetSHA(),
		Owner:    repo.GetOwner().GetLogin(),
		Repo:     repo.GetName(),
		CloneURL: repo.GetCloneURL(),
	}
}
