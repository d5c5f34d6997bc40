package config

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	prerrors "prrebase.dev/prrebase/internal/errors"
)

func envMap(values map[string]string) EnvLookup {
	return func(key string) string {
		return values[key]
	}
}

func TestCredentialResolver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		flag       string
		env        map[string]string
		wantToken  string
		wantSource string
		wantErr    error
	}{
		{
			name:       "flag wins over both env vars",
			flag:       "flag-token",
			env:        map[string]string{PrimaryTokenEnv: "primary", SecondaryTokenEnv: "secondary"},
			wantToken:  "flag-token",
			wantSource: "flag",
		},
		{
			name:       "primary env wins over secondary",
			env:        map[string]string{PrimaryTokenEnv: "primary", SecondaryTokenEnv: "secondary"},
			wantToken:  "primary",
			wantSource: PrimaryTokenEnv,
		},
		{
			name:       "secondary env used when primary is empty",
			env:        map[string]string{PrimaryTokenEnv: "", SecondaryTokenEnv: "tok123"},
			wantToken:  "tok123",
			wantSource: SecondaryTokenEnv,
		},
		{
			name:       "blank flag falls through to env",
			flag:       "   ",
			env:        map[string]string{SecondaryTokenEnv: "tok123"},
			wantToken:  "tok123",
			wantSource: SecondaryTokenEnv,
		},
		{
			name:    "nothing set",
			env:     map[string]string{},
			wantErr: prerrors.ErrMissingCredential,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resolver := NewCredentialResolverWithLookup(envMap(tt.env))

			cred, err := resolver.Resolve(tt.flag)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.True(t, cred.IsZero())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantToken, cred.Token())
			require.Equal(t, tt.wantSource, cred.Source())
		})
	}
}

func TestCredentialResolutionOrderProperty(t *testing.T) {
	token := rapid.StringMatching(`[A-Za-z0-9_]{0,12}`)

	rapid.Check(t, func(t *rapid.T) {
		flag := token.Draw(t, "flag")
		primary := token.Draw(t, "primary")
		secondary := token.Draw(t, "secondary")

		resolver := NewCredentialResolverWithLookup(envMap(map[string]string{
			PrimaryTokenEnv:   primary,
			SecondaryTokenEnv: secondary,
		}))
		cred, err := resolver.Resolve(flag)

		var want string
		switch {
		case flag != "":
			want = flag
		case primary != "":
			want = primary
		default:
			want = secondary
		}

		if want == "" {
			if err == nil {
				t.Fatalf("expected missing credential error, got %q", cred.Token())
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cred.Token() != want {
			t.Fatalf("resolved %q, want %q", cred.Token(), want)
		}
	})
}

func TestCredentialNeverPrintsToken(t *testing.T) {
	t.Parallel()
	cred := NewCredential("ghp_supersecret", "flag")

	for _, format := range []string{"%s", "%v", "%+v", "%#v"} {
		require.NotContains(t, fmt.Sprintf(format, cred), "supersecret", format)
	}
	require.NotContains(t, fmt.Sprintf("%v", struct{ C Credential }{cred}), "supersecret")
}
