package github_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"prrebase.dev/prrebase/internal/github"
)

func TestParseGitHubRemoteURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url      string
		hostname string
		owner    string
		repo     string
	}{
		{"https://github.com/owner/repo.git", "github.com", "owner", "repo"},
		{"https://github.com/owner/repo", "github.com", "owner", "repo"},
		{"https://github.com/owner/repo/", "github.com", "owner", "repo"},
		{"git@github.com:owner/repo.git", "github.com", "owner", "repo"},
		{"git@github.com:owner/repo", "github.com", "owner", "repo"},
		{"https://github.company.com/owner/repo.git", "github.company.com", "owner", "repo"},
		{"git@github.company.com:owner/repo.git", "github.company.com", "owner", "repo"},
		{"ssh://git@github.company.com:2222/owner/repo.git", "github.company.com", "owner", "repo"},
		{"https://x-access-token@github.com/angular/angular.git", "github.com", "angular", "angular"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			info, err := github.ParseGitHubRemoteURL(tt.url)
			require.NoError(t, err)
			require.Equal(t, tt.hostname, info.Hostname)
			require.Equal(t, tt.owner, info.Owner)
			require.Equal(t, tt.repo, info.Repo)
		})
	}

	for _, bad := range []string{"", "not a url", "https://github.com/onlyowner", "git@github.com"} {
		_, err := github.ParseGitHubRemoteURL(bad)
		require.Error(t, err, bad)
	}
}
