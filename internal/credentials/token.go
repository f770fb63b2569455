// Package credentials resolves git hosting tokens from the environment.
package credentials

import (
	"os"
	"strings"
)

// Environment variable names consulted for HTTPS git credentials, in preference order.
const (
	EnvReleaseTrainToken = "RELTRAIN_GIT_TOKEN"
	EnvGitHubCLIToken    = "GH_TOKEN"
	EnvGitHubToken       = "GITHUB_TOKEN"
	EnvGitLabToken       = "GITLAB_TOKEN"
)

var tokenPreference = []string{
	EnvReleaseTrainToken,
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitLabToken,
}

// ResolveToken returns the first non-empty token observed in the provided environment
// map or, failing that, the process environment.
func ResolveToken(environment map[string]string) (string, bool) {
	for _, key := range tokenPreference {
		if value, ok := lookup(environment, key); ok {
			return value, true
		}
	}
	for _, key := range tokenPreference {
		if value, ok := os.LookupEnv(key); ok {
			value = strings.TrimSpace(value)
			if len(value) > 0 {
				return value, true
			}
		}
	}
	return "", false
}

func lookup(environment map[string]string, key string) (string, bool) {
	if environment == nil {
		return "", false
	}
	value, exists := environment[key]
	if !exists {
		return "", false
	}
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return "", false
	}
	return value, true
}
