// Package config manages prrebase configuration.
//
// It handles:
//   - Credential resolution (flag, then environment fallbacks)
//   - Repository-specific configuration stored under .git
package config
