package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/reltrain/internal/vcs"
)

const (
	clientNotConfiguredMessage     = "version control client not configured"
	remoteNameRequiredMessage      = "remote name required"
	remoteURLRequiredMessage       = "remote url required"
	openRepositoryTemplateConstant = "open %s: %w"
	configureRemoteTemplate        = "configure remote %s for %s: %w"
	restoreRemoteTemplate          = "restore remote %s for %s: %w"
)

var (
	// ErrClientNotConfigured indicates Open or Clone received a nil client.
	ErrClientNotConfigured = errors.New(clientNotConfiguredMessage)
	// ErrRemoteNameRequired indicates ConfigureRemote received a blank remote name.
	ErrRemoteNameRequired = errors.New(remoteNameRequiredMessage)
	// ErrRemoteURLRequired indicates ConfigureRemote received a blank URL.
	ErrRemoteURLRequired = errors.New(remoteURLRequiredMessage)
)

// RemoteChange describes the effect of ConfigureRemote.
type RemoteChange int

// Remote configuration outcomes. RemoteUpdated rewrites the address of the same
// repository, for example new credentials or another scheme; RemoteReplaced points
// the remote at a different repository.
const (
	RemoteUnchanged RemoteChange = iota
	RemoteCreated
	RemoteReplaced
	RemoteUpdated
)

// RemoteConfiguration records what ConfigureRemote did so RestoreRemote can revert it.
type RemoteConfiguration struct {
	Name        string
	URL         string
	PreviousURL string
	Change      RemoteChange
}

// Handle is one opened working copy together with the client that operates on it.
type Handle struct {
	client vcs.Client
	handle *vcs.Handle
}

// Open opens the working copy at path. A path that is not a git working copy fails
// with an error matching vcs.ErrNotAGitRepository.
func Open(executionContext context.Context, client vcs.Client, path string) (*Handle, error) {
	if client == nil {
		return nil, ErrClientNotConfigured
	}
	opened, openError := client.Open(executionContext, path)
	if openError != nil {
		return nil, fmt.Errorf(openRepositoryTemplateConstant, path, openError)
	}
	return &Handle{client: client, handle: opened}, nil
}

// Clone copies remoteURL into path and opens the result.
func Clone(executionContext context.Context, client vcs.Client, remoteURL string, path string) (*Handle, error) {
	if client == nil {
		return nil, ErrClientNotConfigured
	}
	cloned, cloneError := client.Clone(executionContext, remoteURL, path)
	if cloneError != nil {
		return nil, cloneError
	}
	return &Handle{client: client, handle: cloned}, nil
}

// Path returns the working copy path.
func (repository *Handle) Path() string {
	return repository.handle.Path()
}

// VCS returns the client level handle passed to every version-control operation.
func (repository *Handle) VCS() *vcs.Handle {
	return repository.handle
}

// IsClean reports whether the working copy has no uncommitted changes.
func (repository *Handle) IsClean(executionContext context.Context) (bool, error) {
	return repository.client.IsClean(executionContext, repository.handle)
}

// CurrentCommitID resolves HEAD.
func (repository *Handle) CurrentCommitID(executionContext context.Context) (vcs.CommitID, error) {
	return repository.client.CurrentCommit(executionContext, repository.handle)
}

// CurrentBranch returns the checked out branch, empty when HEAD is detached.
func (repository *Handle) CurrentBranch(executionContext context.Context) (string, error) {
	return repository.client.CurrentBranch(executionContext, repository.handle)
}

// ConfigureRemote points remote name at url. Only the identical address is a no-op.
func (repository *Handle) ConfigureRemote(executionContext context.Context, name string, url string) (RemoteConfiguration, error) {
	trimmedName := strings.TrimSpace(name)
	trimmedURL := strings.TrimSpace(url)
	if len(trimmedName) == 0 {
		return RemoteConfiguration{}, ErrRemoteNameRequired
	}
	if len(trimmedURL) == 0 {
		return RemoteConfiguration{}, ErrRemoteURLRequired
	}

	configuration := RemoteConfiguration{Name: trimmedName, URL: trimmedURL, Change: RemoteUnchanged}
	currentURL, exists, lookupError := repository.client.RemoteURL(executionContext, repository.handle, trimmedName)
	if lookupError != nil {
		return configuration, fmt.Errorf(configureRemoteTemplate, trimmedName, repository.Path(), lookupError)
	}
	if exists && strings.TrimSpace(currentURL) == trimmedURL {
		return configuration, nil
	}
	if setError := repository.client.SetRemote(executionContext, repository.handle, trimmedName, trimmedURL); setError != nil {
		return configuration, fmt.Errorf(configureRemoteTemplate, trimmedName, repository.Path(), setError)
	}

	switch {
	case !exists:
		configuration.Change = RemoteCreated
	case EquivalentRemoteURLs(currentURL, trimmedURL):
		configuration.PreviousURL = currentURL
		configuration.Change = RemoteUpdated
	default:
		configuration.PreviousURL = currentURL
		configuration.Change = RemoteReplaced
	}
	return configuration, nil
}

// RestoreRemote reverts a change made by ConfigureRemote. A created remote is removed.
func (repository *Handle) RestoreRemote(executionContext context.Context, configuration RemoteConfiguration) error {
	switch configuration.Change {
	case RemoteCreated:
		if removeError := repository.client.RemoveRemote(executionContext, repository.handle, configuration.Name); removeError != nil {
			return fmt.Errorf(restoreRemoteTemplate, configuration.Name, repository.Path(), removeError)
		}
	case RemoteReplaced, RemoteUpdated:
		if setError := repository.client.SetRemote(executionContext, repository.handle, configuration.Name, configuration.PreviousURL); setError != nil {
			return fmt.Errorf(restoreRemoteTemplate, configuration.Name, repository.Path(), setError)
		}
	}
	return nil
}
