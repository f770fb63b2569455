package gogit

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/temirov/reltrain/internal/credentials"
)

const (
	httpsSchemeConstant           = "https"
	httpSchemeConstant            = "http"
	sshSchemeConstant             = "ssh"
	scpStyleUserSeparatorConstant = "@"
	scpStylePathSeparatorConstant = ":"
	defaultSSHUserConstant        = "git"
	tokenUsernameConstant         = "token"
	invalidRemoteURLTemplate      = "invalid remote url %q: %w"
	sshAgentUnavailableTemplate   = "ssh agent unavailable for %q: %w"
)

// AuthProvider resolves the transport authentication used for a remote URL.
// Returning a nil method means the transport runs unauthenticated.
type AuthProvider interface {
	Method(remoteURL string) (transport.AuthMethod, error)
}

// AuthProviderFunc adapts a function to AuthProvider.
type AuthProviderFunc func(remoteURL string) (transport.AuthMethod, error)

// Method implements AuthProvider.
func (provider AuthProviderFunc) Method(remoteURL string) (transport.AuthMethod, error) {
	return provider(remoteURL)
}

// EnvironmentAuthProvider authenticates HTTPS remotes with a token from the environment
// and SSH remotes through the running ssh-agent. Local remotes stay unauthenticated.
type EnvironmentAuthProvider struct {
	Environment map[string]string
}

// Method implements AuthProvider.
func (provider EnvironmentAuthProvider) Method(remoteURL string) (transport.AuthMethod, error) {
	trimmedURL := strings.TrimSpace(remoteURL)
	if isSCPStyleURL(trimmedURL) {
		return sshAgentMethod(trimmedURL, scpStyleUser(trimmedURL))
	}

	parsedURL, parseError := url.Parse(trimmedURL)
	if parseError != nil {
		return nil, fmt.Errorf(invalidRemoteURLTemplate, remoteURL, parseError)
	}

	switch parsedURL.Scheme {
	case httpsSchemeConstant, httpSchemeConstant:
		token, found := credentials.ResolveToken(provider.Environment)
		if !found {
			return nil, nil
		}
		return &http.BasicAuth{Username: tokenUsernameConstant, Password: token}, nil
	case sshSchemeConstant:
		user := defaultSSHUserConstant
		if parsedURL.User != nil && len(parsedURL.User.Username()) > 0 {
			user = parsedURL.User.Username()
		}
		return sshAgentMethod(trimmedURL, user)
	default:
		return nil, nil
	}
}

func sshAgentMethod(remoteURL string, user string) (transport.AuthMethod, error) {
	method, agentError := ssh.NewSSHAgentAuth(user)
	if agentError != nil {
		return nil, fmt.Errorf(sshAgentUnavailableTemplate, remoteURL, agentError)
	}
	return method, nil
}

// isSCPStyleURL recognizes user@host:path remotes, which net/url cannot parse.
func isSCPStyleURL(remoteURL string) bool {
	if strings.Contains(remoteURL, "://") {
		return false
	}
	userIndex := strings.Index(remoteURL, scpStyleUserSeparatorConstant)
	pathIndex := strings.Index(remoteURL, scpStylePathSeparatorConstant)
	return userIndex > 0 && pathIndex > userIndex
}

func scpStyleUser(remoteURL string) string {
	user, _, found := strings.Cut(remoteURL, scpStyleUserSeparatorConstant)
	if !found || len(user) == 0 {
		return defaultSSHUserConstant
	}
	return user
}
