package git

import (
	"encoding/base64"
)

// TokenEnv returns environment entries that make git send token as HTTP basic
// auth to the remote. The token travels through the environment only, so it
// never shows up in argv, remote URLs or GitCommandError messages.
func TokenEnv(token string) []string {
	if token == "" {
		return nil
	}
	basic := base64.StdEncoding.EncodeToString([]byte("x-access-token:" + token))
	return []string{
		"GIT_CONFIG_COUNT=1",
		"GIT_CONFIG_KEY_0=http.extraheader",
		"GIT_CONFIG_VALUE_0=Authorization: Basic " + basic,
	}
}
