package gitrepo

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	sshProtocolPrefixConstant           = "ssh://"
	httpsProtocolPrefixConstant         = "https://"
	httpProtocolPrefixConstant          = "http://"
	fileProtocolPrefixConstant          = "file://"
	protocolSeparatorConstant           = "://"
	sshUserDelimiterConstant            = "@"
	sshPathDelimiterConstant            = ":"
	sshPortDelimiterConstant            = ":"
	pathSeparatorConstant               = "/"
	gitSuffixConstant                   = ".git"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	invalidRemoteURLMessageConstant     = "invalid remote url"
	requiredValueMessageConstant        = "value required"
)

// RemoteProtocol enumerates recognized git remote protocols.
type RemoteProtocol string

// Recognized remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
	RemoteProtocolFile  RemoteProtocol = RemoteProtocol("file")
)

// RemoteURL is the structured form of a remote address. File remotes carry their
// cleaned path in Path and leave Host empty.
type RemoteURL struct {
	Protocol RemoteProtocol
	Host     string
	Path     string
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// ParseRemoteURL converts ssh, scp-style, http(s), file and bare-path remotes into a
// structured representation. Trailing slashes and the .git suffix are dropped.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	}

	switch {
	case strings.HasPrefix(trimmedRemote, sshProtocolPrefixConstant):
		return parseSSHRemote(remote, strings.TrimPrefix(trimmedRemote, sshProtocolPrefixConstant), true)
	case strings.HasPrefix(trimmedRemote, httpsProtocolPrefixConstant):
		return parseHTTPRemote(remote, strings.TrimPrefix(trimmedRemote, httpsProtocolPrefixConstant))
	case strings.HasPrefix(trimmedRemote, httpProtocolPrefixConstant):
		return parseHTTPRemote(remote, strings.TrimPrefix(trimmedRemote, httpProtocolPrefixConstant))
	case strings.HasPrefix(trimmedRemote, fileProtocolPrefixConstant):
		return parseFileRemote(remote, strings.TrimPrefix(trimmedRemote, fileProtocolPrefixConstant))
	case filepath.IsAbs(trimmedRemote) || strings.HasPrefix(trimmedRemote, "."):
		return parseFileRemote(remote, trimmedRemote)
	case strings.Contains(trimmedRemote, sshUserDelimiterConstant) && strings.Contains(trimmedRemote, sshPathDelimiterConstant):
		return parseSSHRemote(remote, trimmedRemote, false)
	default:
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
}

// String renders the remote without credentials.
func (remote RemoteURL) String() string {
	if remote.Protocol == RemoteProtocolFile {
		return fileProtocolPrefixConstant + remote.Path
	}
	return string(remote.Protocol) + protocolSeparatorConstant + remote.Host + pathSeparatorConstant + remote.Path
}

// DisplayRemoteURL renders remote for logs with any credentials removed.
// Unparseable inputs are returned as given.
func DisplayRemoteURL(remote string) string {
	parsed, parseError := ParseRemoteURL(remote)
	if parseError != nil {
		return strings.TrimSpace(remote)
	}
	return parsed.String()
}

// EquivalentRemoteURLs reports whether two remote strings address the same repository.
// Unparseable inputs fall back to exact comparison.
func EquivalentRemoteURLs(first string, second string) bool {
	firstRemote, firstError := ParseRemoteURL(first)
	secondRemote, secondError := ParseRemoteURL(second)
	if firstError != nil || secondError != nil {
		return strings.TrimSpace(first) == strings.TrimSpace(second)
	}
	return firstRemote == secondRemote
}

func parseSSHRemote(input string, remote string, hasScheme bool) (RemoteURL, error) {
	userSplitIndex := strings.Index(remote, sshUserDelimiterConstant)
	hostAndPath := remote[userSplitIndex+1:]

	var host string
	var path string
	if hasScheme {
		slashIndex := strings.Index(hostAndPath, pathSeparatorConstant)
		if slashIndex == -1 {
			return RemoteURL{}, RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
		}
		host = hostAndPath[:slashIndex]
		path = hostAndPath[slashIndex+1:]
		if portIndex := strings.Index(host, sshPortDelimiterConstant); portIndex != -1 {
			host = host[:portIndex]
		}
	} else {
		pathSplitIndex := strings.Index(hostAndPath, sshPathDelimiterConstant)
		if pathSplitIndex == -1 {
			return RemoteURL{}, RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
		}
		host = hostAndPath[:pathSplitIndex]
		path = hostAndPath[pathSplitIndex+1:]
	}
	return buildNetworkRemote(input, RemoteProtocolSSH, host, path)
}

func parseHTTPRemote(input string, remote string) (RemoteURL, error) {
	host, path, found := strings.Cut(remote, pathSeparatorConstant)
	if !found {
		return RemoteURL{}, RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
	}
	if credentialIndex := strings.LastIndex(host, sshUserDelimiterConstant); credentialIndex != -1 {
		host = host[credentialIndex+1:]
	}
	return buildNetworkRemote(input, RemoteProtocolHTTPS, host, path)
}

func parseFileRemote(input string, path string) (RemoteURL, error) {
	normalized := normalizeRepositoryPath(filepath.ToSlash(filepath.Clean(path)))
	if len(normalized) == 0 || normalized == "." {
		return RemoteURL{}, RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
	}
	return RemoteURL{Protocol: RemoteProtocolFile, Path: normalized}, nil
}

func buildNetworkRemote(input string, protocol RemoteProtocol, host string, path string) (RemoteURL, error) {
	normalizedHost := strings.ToLower(strings.TrimSpace(host))
	normalizedPath := normalizeRepositoryPath(strings.Trim(path, pathSeparatorConstant))
	if len(normalizedHost) == 0 || len(normalizedPath) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
	}
	return RemoteURL{Protocol: protocol, Host: normalizedHost, Path: normalizedPath}, nil
}

func normalizeRepositoryPath(path string) string {
	return strings.TrimSuffix(strings.TrimSuffix(path, pathSeparatorConstant), gitSuffixConstant)
}
