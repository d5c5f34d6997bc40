package config

import (
	"os"
	"strings"

	prerrors "prrebase.dev/prrebase/internal/errors"
)

const (
	// PrimaryTokenEnv is checked first when no token flag is given
	PrimaryTokenEnv = "GITHUB_TOKEN"
	// SecondaryTokenEnv is checked when PrimaryTokenEnv is empty
	SecondaryTokenEnv = "TOKEN"
	// TokenGenerateURL is the GitHub page where personal access tokens can be generated
	TokenGenerateURL = "https://github.com/settings/tokens"
)

const redacted = "[redacted]"

// Credential is an opaque GitHub access token.
// Its String and GoString methods never reveal the token.
type Credential struct {
	token  string
	source string
}

// NewCredential wraps a raw token
func NewCredential(token string, source string) Credential {
	return Credential{token: token, source: source}
}

// Token returns the raw token for use in an Authorization header
func (c Credential) Token() string {
	return c.token
}

// Source names where the credential came from ("flag" or an env var name)
func (c Credential) Source() string {
	return c.source
}

// IsZero reports whether no token is set
func (c Credential) IsZero() bool {
	return c.token == ""
}

func (c Credential) String() string {
	return redacted
}

// GoString keeps %#v from printing the token
func (c Credential) GoString() string {
	return "config.Credential{" + redacted + "}"
}

// EnvLookup returns the value of an environment variable, or "" when unset
type EnvLookup func(key string) string

// CredentialResolver resolves the active credential: flag first, then each
// environment variable in EnvNames order. The first non-empty value wins.
type CredentialResolver struct {
	Lookup   EnvLookup
	EnvNames []string
}

// NewCredentialResolverWithLookup returns a resolver backed by lookup
func NewCredentialResolverWithLookup(lookup EnvLookup) *CredentialResolver {
	return &CredentialResolver{
		Lookup:   lookup,
		EnvNames: []string{PrimaryTokenEnv, SecondaryTokenEnv},
	}
}

// Resolve returns the credential or ErrMissingCredential
func (r *CredentialResolver) Resolve(flagValue string) (Credential, error) {
	if token := strings.TrimSpace(flagValue); token != "" {
		return NewCredential(token, "flag"), nil
	}

	lookup := r.Lookup
	if lookup == nil {
		lookup = os.Getenv
	}
	for _, name := range r.EnvNames {
		if token := strings.TrimSpace(lookup(name)); token != "" {
			return NewCredential(token, name), nil
		}
	}

	return Credential{}, prerrors.ErrMissingCredential
}
