package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	prerrors "prrebase.dev/prrebase/internal/errors"
)

const (
	configFileName = ".prrebase_config"

	// DefaultRemote is used when neither a flag nor the config names a remote
	DefaultRemote = "origin"

	defaultMaxAttempts     = 3
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 8 * time.Second
)

// RetryConfig holds retry tuning
type RetryConfig struct {
	MaxAttempts       *int `json:"maxAttempts,omitempty"`
	InitialIntervalMs *int `json:"initialIntervalMs,omitempty"`
	MaxIntervalMs     *int `json:"maxIntervalMs,omitempty"`
}

// RepoConfig represents the repository configuration
type RepoConfig struct {
	Remote        *string      `json:"remote,omitempty"`
	Repo          *string      `json:"repo,omitempty"`
	APIURL        *string      `json:"apiURL,omitempty"`
	WorkspaceRoot *string      `json:"workspaceRoot,omitempty"`
	Autosquash    *bool        `json:"autosquash,omitempty"`
	Retry         *RetryConfig `json:"retry,omitempty"`
}

// RetrySettings is the resolved retry tuning
type RetrySettings struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// ConfigPath returns the path of the config file for a repository
func ConfigPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", configFileName)
}

// GetRepoConfig reads the repository configuration.
// An empty repoRoot or a missing file yields the defaults.
func GetRepoConfig(repoRoot string) (*RepoConfig, error) {
	if repoRoot == "" {
		return &RepoConfig{}, nil
	}

	data, err := os.ReadFile(ConfigPath(repoRoot))
	if err != nil {
		// Config doesn't exist - return default
		return &RepoConfig{}, nil
	}

	var config RepoConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse repo config: %w", err)
	}

	return &config, nil
}

// WriteRepoConfig writes the repository configuration
func WriteRepoConfig(repoRoot string, config *RepoConfig) error {
	configJSON, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(repoRoot), configJSON, 0600)
}

// RemoteName returns the configured remote, or "origin"
func (c *RepoConfig) RemoteName() string {
	if c.Remote != nil && *c.Remote != "" {
		return *c.Remote
	}
	return DefaultRemote
}

// RepoSlug returns the configured "owner/name", or ""
func (c *RepoConfig) RepoSlug() string {
	if c.Repo != nil {
		return *c.Repo
	}
	return ""
}

// APIBaseURL returns the configured GitHub API URL, or ""
func (c *RepoConfig) APIBaseURL() string {
	if c.APIURL != nil {
		return *c.APIURL
	}
	return ""
}

// WorkspaceRootDir returns the directory workspaces are created in.
// Defaults to the system temp directory.
func (c *RepoConfig) WorkspaceRootDir() string {
	if c.WorkspaceRoot != nil && *c.WorkspaceRoot != "" {
		return *c.WorkspaceRoot
	}
	return os.TempDir()
}

// AutosquashEnabled returns whether fixup commits are folded by default
func (c *RepoConfig) AutosquashEnabled() bool {
	return c.Autosquash != nil && *c.Autosquash
}

// RetrySettings returns the retry tuning with defaults applied
func (c *RepoConfig) RetrySettings() RetrySettings {
	settings := RetrySettings{
		MaxAttempts:     defaultMaxAttempts,
		InitialInterval: defaultInitialInterval,
		MaxInterval:     defaultMaxInterval,
	}
	if c.Retry == nil {
		return settings
	}
	if c.Retry.MaxAttempts != nil && *c.Retry.MaxAttempts > 0 {
		settings.MaxAttempts = *c.Retry.MaxAttempts
	}
	if c.Retry.InitialIntervalMs != nil && *c.Retry.InitialIntervalMs >= 0 {
		settings.InitialInterval = time.Duration(*c.Retry.InitialIntervalMs) * time.Millisecond
	}
	if c.Retry.MaxIntervalMs != nil && *c.Retry.MaxIntervalMs > 0 {
		settings.MaxInterval = time.Duration(*c.Retry.MaxIntervalMs) * time.Millisecond
	}
	if settings.MaxInterval < settings.InitialInterval {
		settings.MaxInterval = settings.InitialInterval
	}
	return settings
}

// ParseRepoSlug splits "owner/name" into its parts
func ParseRepoSlug(slug string) (string, string, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(slug), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", prerrors.Newf(prerrors.KindInvalidArgument, "parse repository", "expected owner/name, got %q", slug)
	}
	return owner, strings.TrimSuffix(name, ".git"), nil
}
