// Package githubtest provides test doubles for the github package.
package githubtest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"prrebase.dev/prrebase/internal/github"
)

// MockGitHubClient is a testify mock of github.Client for tests that script
// forge responses call by call
type MockGitHubClient struct {
	mock.Mock
}

var _ github.Client = (*MockGitHubClient)(nil)

func (m *MockGitHubClient) Owner() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockGitHubClient) Repo() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockGitHubClient) GetPullRequest(ctx context.Context, number int) (*github.PullRequest, error) {
	args := m.Called(ctx, number)
	pr, _ := args.Get(0).(*github.PullRequest)
	return pr, args.Error(1)
}

func (m *MockGitHubClient) GetBranchSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	args := m.Called(ctx, owner, repo, branch)
	return args.String(0), args.Error(1)
}

func (m *MockGitHubClient) IsUpToDate(ctx context.Context, baseRef, headSHA string) (bool, error) {
	args := m.Called(ctx, baseRef, headSHA)
	return args.Bool(0), args.Error(1)
}

func (m *MockGitHubClient) GetAuthenticatedUser(ctx context.Context) (*github.User, error) {
	args := m.Called(ctx)
	user, _ := args.Get(0).(*github.User)
	return user, args.Error(1)
}

func (m *MockGitHubClient) PushBranch(ctx context.Context, req github.PushRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
