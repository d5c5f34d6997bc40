package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
)

// Route names accepted by FailNext and RequestCount
const (
	RoutePull    = "pull"
	RouteBranch  = "branch"
	RouteCompare = "compare"
	RouteUser    = "user"
)

// PullFixture describes a pull request served by the mock
type PullFixture struct {
	Number              int
	State               string
	Title               string
	Author              string
	BaseRef             string
	HeadRef             string
	HeadOwner           string
	HeadRepo            string
	HeadCloneURL        string
	MaintainerCanModify bool
	Rebaseable          *bool
}

// InjectedFailure is an error response returned instead of the real one.
// Delay holds the response back; with a zero Status the real response
// follows the delay.
type InjectedFailure struct {
	Status     int
	Message    string
	RetryAfter string
	Delay      time.Duration
}

// MockGitHubServer mocks the GitHub REST endpoints used for rebasing.
// Branch and commit data are read live from a bare repository, so pushes made
// by the code under test are visible to later API calls.
type MockGitHubServer struct {
	*httptest.Server

	Owner     string
	Repo      string
	RemoteDir string

	mu            sync.Mutex
	requiredToken string
	pulls         map[int]*PullFixture
	user          *github.User
	failures      map[string][]InjectedFailure
	requests      map[string]int
	authHeader    []string
}

// NewMockGitHubServer starts a mock server backed by remoteDir and registers cleanup
func NewMockGitHubServer(t testing.TB, owner, repo, remoteDir string) *MockGitHubServer {
	t.Helper()

	m := &MockGitHubServer{
		Owner:     owner,
		Repo:      repo,
		RemoteDir: remoteDir,
		pulls:     make(map[int]*PullFixture),
		user: &github.User{
			Login: github.String("octocat"),
			Name:  github.String("The Octocat"),
			Email: github.String("octocat@example.com"),
		},
		failures: make(map[string][]InjectedFailure),
		requests: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}/pulls/{number}", m.wrap(RoutePull, m.handlePull))
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/ref/{ref...}", m.wrap(RouteBranch, m.handleRef))
	mux.HandleFunc("GET /repos/{owner}/{repo}/compare/{basehead...}", m.wrap(RouteCompare, m.handleCompare))
	mux.HandleFunc("GET /user", m.wrap(RouteUser, m.handleUser))

	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Server.Close)
	return m
}

// NewMockGitHubServerForFixture serves fixture's remote as owner/repo with
// pull request number pointing at the fixture's branches.
func NewMockGitHubServerForFixture(t testing.TB, fixture *PRFixture, owner, repo string, number int) *MockGitHubServer {
	t.Helper()
	m := NewMockGitHubServer(t, owner, repo, fixture.RemoteDir)
	m.AddPull(&PullFixture{
		Number:              number,
		State:               "open",
		Title:               "Add feature",
		Author:              "octocat",
		BaseRef:             fixture.BaseRef,
		HeadRef:             fixture.HeadRef,
		MaintainerCanModify: true,
	})
	return m
}

// APIURL returns the base URL to hand to the client under test
func (m *MockGitHubServer) APIURL() string {
	return m.URL + "/"
}

// AddPull registers or replaces a pull request
func (m *MockGitHubServer) AddPull(pr *PullFixture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pulls[pr.Number] = pr
}

// UpdatePull mutates a registered pull request
func (m *MockGitHubServer) UpdatePull(number int, fn func(*PullFixture)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pr, ok := m.pulls[number]; ok {
		fn(pr)
	}
}

// SetUser replaces the authenticated user
func (m *MockGitHubServer) SetUser(login, name, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = &github.User{Login: github.String(login)}
	if name != "" {
		m.user.Name = github.String(name)
	}
	if email != "" {
		m.user.Email = github.String(email)
	}
}

// RequireToken rejects requests without "Bearer <token>"
func (m *MockGitHubServer) RequireToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requiredToken = token
}

// FailNext makes the next times requests to route fail with f
func (m *MockGitHubServer) FailNext(route string, times int, f InjectedFailure) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < times; i++ {
		m.failures[route] = append(m.failures[route], f)
	}
}

// RequestCount returns how many requests hit route, including failed ones
func (m *MockGitHubServer) RequestCount(route string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[route]
}

// AuthHeaders returns every Authorization header received, in order
func (m *MockGitHubServer) AuthHeaders() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.authHeader...)
}

func (m *MockGitHubServer) wrap(route string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests[route]++
		auth := r.Header.Get("Authorization")
		m.authHeader = append(m.authHeader, auth)
		var failure *InjectedFailure
		if queued := m.failures[route]; len(queued) > 0 {
			failure = &queued[0]
			m.failures[route] = queued[1:]
		}
		required := m.requiredToken
		m.mu.Unlock()

		if required != "" && auth != "Bearer "+required {
			writeError(w, http.StatusUnauthorized, "Bad credentials", "")
			return
		}
		if failure != nil && failure.Delay > 0 {
			select {
			case <-time.After(failure.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if failure != nil && failure.Status != 0 {
			writeError(w, failure.Status, failure.Message, failure.RetryAfter)
			return
		}
		if r.PathValue("owner") != "" && (r.PathValue("owner") != m.Owner || r.PathValue("repo") != m.Repo) {
			writeError(w, http.StatusNotFound, "Not Found", "")
			return
		}
		handler(w, r)
	}
}

func (m *MockGitHubServer) handlePull(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Not Found", "")
		return
	}

	m.mu.Lock()
	fixture, ok := m.pulls[number]
	var pr PullFixture
	if ok {
		pr = *fixture
	}
	m.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found", "")
		return
	}

	headOwner, headRepo := pr.HeadOwner, pr.HeadRepo
	if headOwner == "" {
		headOwner = m.Owner
	}
	if headRepo == "" {
		headRepo = m.Repo
	}
	headCloneURL := pr.HeadCloneURL
	if headCloneURL == "" {
		headCloneURL = m.RemoteDir
	}

	body := &github.PullRequest{
		Number:              github.Int(pr.Number),
		State:               github.String(pr.State),
		Title:               github.String(pr.Title),
		HTMLURL:             github.String(fmt.Sprintf("https://github.com/%s/%s/pull/%d", m.Owner, m.Repo, pr.Number)),
		User:                &github.User{Login: github.String(pr.Author)},
		MaintainerCanModify: github.Bool(pr.MaintainerCanModify),
		Rebaseable:          pr.Rebaseable,
		Base: &github.PullRequestBranch{
			Ref: github.String(pr.BaseRef),
			SHA: github.String(RemoteRevision(m.RemoteDir, pr.BaseRef)),
			Repo: &github.Repository{
				Name:     github.String(m.Repo),
				Owner:    &github.User{Login: github.String(m.Owner)},
				CloneURL: github.String(m.RemoteDir),
			},
		},
		Head: &github.PullRequestBranch{
			Ref: github.String(pr.HeadRef),
			SHA: github.String(RemoteRevision(m.RemoteDir, pr.HeadRef)),
			Repo: &github.Repository{
				Name:     github.String(headRepo),
				Owner:    &github.User{Login: github.String(headOwner)},
				CloneURL: github.String(headCloneURL),
			},
		},
	}
	writeJSON(w, http.StatusOK, body)
}

func (m *MockGitHubServer) handleRef(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutPrefix(r.PathValue("ref"), "heads/")
	sha := RemoteRevision(m.RemoteDir, name)
	if !ok || sha == "" {
		writeError(w, http.StatusNotFound, "Not Found", "")
		return
	}
	writeJSON(w, http.StatusOK, &github.Reference{
		Ref:    github.String("refs/heads/" + name),
		Object: &github.GitObject{Type: github.String("commit"), SHA: github.String(sha)},
	})
}

func (m *MockGitHubServer) handleCompare(w http.ResponseWriter, r *http.Request) {
	base, head, ok := strings.Cut(r.PathValue("basehead"), "...")
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found", "")
		return
	}
	baseSHA := m.resolve(base)
	headSHA := m.resolve(head)
	if baseSHA == "" || headSHA == "" {
		writeError(w, http.StatusNotFound, "Not Found", "")
		return
	}

	aheadBy, _ := commitCount(m.RemoteDir, baseSHA, headSHA)
	behindBy, _ := commitCount(m.RemoteDir, headSHA, baseSHA)
	status := "diverged"
	switch {
	case baseSHA == headSHA:
		status = "identical"
	case behindBy == 0:
		status = "ahead"
	case aheadBy == 0:
		status = "behind"
	}

	writeJSON(w, http.StatusOK, &github.CommitsComparison{
		Status:       github.String(status),
		AheadBy:      github.Int(aheadBy),
		BehindBy:     github.Int(behindBy),
		TotalCommits: github.Int(aheadBy),
		BaseCommit:   &github.RepositoryCommit{SHA: github.String(baseSHA)},
	})
}

func (m *MockGitHubServer) handleUser(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	user := *m.user
	m.mu.Unlock()
	writeJSON(w, http.StatusOK, &user)
}

// resolve accepts a branch name or a commit SHA
func (m *MockGitHubServer) resolve(rev string) string {
	if sha := RemoteRevision(m.RemoteDir, rev); sha != "" {
		return sha
	}
	sha, err := runGitOutput(m.RemoteDir, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return ""
	}
	return sha
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, retryAfter string) {
	if retryAfter != "" {
		w.Header().Set("Retry-After", retryAfter)
	}
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{
		"message":           message,
		"documentation_url": "https://docs.github.com/rest",
	})
}
