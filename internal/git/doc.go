// Package git runs git in throwaway workspaces.
//
// Fetch, replay and push shell out to the git binary through CommandRunner;
// repository setup and ref lookups go through go-git. Credentials reach git
// only through the process environment, never through argv or .git/config.
//
// This package should be the only place where git commands are executed.
package git
