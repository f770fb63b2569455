package gitcli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/temirov/reltrain/internal/execshell"
	"github.com/temirov/reltrain/internal/vcs"
)

const (
	gitRevParseSubcommandConstant    = "rev-parse"
	gitStatusSubcommandConstant      = "status"
	gitAddSubcommandConstant         = "add"
	gitCommitSubcommandConstant      = "commit"
	gitTagSubcommandConstant         = "tag"
	gitResetSubcommandConstant       = "reset"
	gitBranchSubcommandConstant      = "branch"
	gitCheckoutSubcommandConstant    = "checkout"
	gitPushSubcommandConstant        = "push"
	gitRemoteSubcommandConstant      = "remote"
	gitCloneSubcommandConstant       = "clone"
	gitListRemoteSubcommandConstant  = "ls-remote"
	gitWorkTreeFlagConstant          = "--is-inside-work-tree"
	gitAbbrevRefFlagConstant         = "--abbrev-ref"
	gitVerifyFlagConstant            = "--verify"
	gitQuietFlagConstant             = "--quiet"
	gitPorcelainFlagConstant         = "--porcelain"
	gitAllFlagConstant               = "-A"
	gitMessageFlagConstant           = "-m"
	gitAnnotateFlagConstant          = "-a"
	gitDeleteFlagConstant            = "-d"
	gitForceDeleteFlagConstant       = "-D"
	gitHardFlagConstant              = "--hard"
	gitForceFlagConstant             = "--force"
	gitRemoteGetURLConstant          = "get-url"
	gitRemoteSetURLConstant          = "set-url"
	gitRemoteAddConstant             = "add"
	gitRemoteRemoveConstant          = "remove"
	gitHeadReferenceConstant         = "HEAD"
	gitTrueOutputConstant            = "true"
	gitAuthorNameEnvironmentKey      = "GIT_AUTHOR_NAME"
	gitAuthorEmailEnvironmentKey     = "GIT_AUTHOR_EMAIL"
	gitCommitterNameEnvironmentKey   = "GIT_COMMITTER_NAME"
	gitCommitterEmailEnvironmentKey  = "GIT_COMMITTER_EMAIL"
	gitTerminalPromptEnvironmentKey  = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledValue   = "0"
	verifyMissingExitCodeConstant    = 1
	operationCloneConstant           = "clone"
	operationOpenConstant            = "open"
	operationStatusConstant          = "status"
	operationResolveHeadConstant     = "resolve HEAD"
	operationCommitConstant          = "commit"
	operationTagConstant             = "tag"
	operationDeleteTagConstant       = "delete tag"
	operationResetConstant           = "reset --hard"
	operationCreateBranchConstant    = "create branch"
	operationCheckoutConstant        = "checkout"
	operationDeleteBranchConstant    = "delete branch"
	operationPushConstant            = "push"
	operationDeleteRemoteRefConstant = "delete remote ref"
	operationListRemoteConstant      = "ls-remote"
	operationSetRemoteConstant       = "set remote"
	operationRemoteLookupConstant    = "remote lookup"
	operationRemoveRemoteConstant    = "remove remote"
	checkedOutBranchTemplateConstant = "branch %s is checked out"
	executorNotConfiguredMessage     = "git executor not configured"
	tagExistsMarkerConstant          = "already exists"
	tagMissingMarkerConstant         = "not found"
	branchMissingMarkerNotFound      = "not found"
	branchMissingMarkerDidNotMatch   = "did not match any"
	branchMissingMarkerInvalidRef    = "invalid reference"
	noSuchRemoteMarkerConstant       = "no such remote"
	notAGitRepositoryMarkerConstant  = "not a git repository"
	missingWorkingDirectoryMarker    = "no such file or directory"
	remoteRepositoryMissingMarker    = "does not appear to be a git repository"
	remoteRepositoryNotFoundMarker   = "repository not found"
	authenticationFailedMarker       = "authentication failed"
	permissionDeniedMarker           = "permission denied"
	usernamePromptMarker             = "could not read username"
	terminalPromptsDisabledMarker    = "terminal prompts disabled"
	invalidCredentialsMarker         = "invalid username or password"
	forbiddenStatusMarker            = "403"
	rejectedMarker                   = "[rejected]"
	remoteRejectedMarker             = "remote rejected"
	nonFastForwardMarker             = "non-fast-forward"
	fetchFirstMarker                 = "fetch first"
	hookDeclinedMarker               = "hook declined"
	protectedBranchMarker            = "protected branch"
	destinationExistsMarker          = "already exists and is not an empty directory"
)

// ErrExecutorNotConfigured indicates the client was constructed without a git executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessage)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// workingCopy is the session attached to handles opened by this client.
type workingCopy struct {
	path string
}

// Client implements vcs.Client by invoking the git executable.
type Client struct {
	executor GitExecutor
	author   vcs.Signature
}

var _ vcs.Client = (*Client)(nil)

// NewClient constructs a git executable backed client.
func NewClient(executor GitExecutor, author vcs.Signature) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor, author: author.Sanitize()}, nil
}

// Clone implements vcs.Client.
func (client *Client) Clone(executionContext context.Context, remoteURL string, localPath string) (*vcs.Handle, error) {
	_, cloneError := client.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitCloneSubcommandConstant, remoteURL, localPath},
		EnvironmentVariables: networkEnvironment(),
	})
	if cloneError != nil {
		return nil, vcs.NewOperationError(operationCloneConstant, localPath, classifyNetworkFailure(cloneError), cloneError)
	}
	return vcs.NewHandle(localPath, workingCopy{path: localPath}), nil
}

// Open implements vcs.Client.
func (client *Client) Open(executionContext context.Context, localPath string) (*vcs.Handle, error) {
	if _, statError := os.Stat(localPath); statError != nil {
		return nil, vcs.NewOperationError(operationOpenConstant, localPath, vcs.ErrNotAGitRepository, statError)
	}
	result, workTreeError := client.run(executionContext, localPath, gitRevParseSubcommandConstant, gitWorkTreeFlagConstant)
	if workTreeError != nil {
		if isCommandFailure(workTreeError) {
			return nil, vcs.NewOperationError(operationOpenConstant, localPath, vcs.ErrNotAGitRepository, workTreeError)
		}
		return nil, vcs.NewOperationError(operationOpenConstant, localPath, nil, workTreeError)
	}
	if strings.TrimSpace(result.StandardOutput) != gitTrueOutputConstant {
		return nil, vcs.NewOperationError(operationOpenConstant, localPath, vcs.ErrNotAGitRepository, nil)
	}
	return vcs.NewHandle(localPath, workingCopy{path: localPath}), nil
}

// IsClean implements vcs.Client.
func (client *Client) IsClean(executionContext context.Context, handle *vcs.Handle) (bool, error) {
	path, sessionError := pathFor(handle, operationStatusConstant)
	if sessionError != nil {
		return false, sessionError
	}
	result, statusError := client.run(executionContext, path, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
	if statusError != nil {
		return false, vcs.NewOperationError(operationStatusConstant, path, nil, statusError)
	}
	return len(strings.TrimSpace(result.StandardOutput)) == 0, nil
}

// CurrentCommit implements vcs.Client.
func (client *Client) CurrentCommit(executionContext context.Context, handle *vcs.Handle) (vcs.CommitID, error) {
	path, sessionError := pathFor(handle, operationResolveHeadConstant)
	if sessionError != nil {
		return "", sessionError
	}
	result, revParseError := client.run(executionContext, path, gitRevParseSubcommandConstant, gitHeadReferenceConstant)
	if revParseError != nil {
		return "", vcs.NewOperationError(operationResolveHeadConstant, path, nil, revParseError)
	}
	return vcs.CommitID(strings.TrimSpace(result.StandardOutput)), nil
}

// CurrentBranch implements vcs.Client.
func (client *Client) CurrentBranch(executionContext context.Context, handle *vcs.Handle) (string, error) {
	path, sessionError := pathFor(handle, operationResolveHeadConstant)
	if sessionError != nil {
		return "", sessionError
	}
	result, revParseError := client.run(executionContext, path, gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant)
	if revParseError != nil {
		return "", vcs.NewOperationError(operationResolveHeadConstant, path, nil, revParseError)
	}
	branch := strings.TrimSpace(result.StandardOutput)
	if branch == gitHeadReferenceConstant {
		return "", nil
	}
	return branch, nil
}

// Commit implements vcs.Client.
func (client *Client) Commit(executionContext context.Context, handle *vcs.Handle, message string) (vcs.CommitID, error) {
	path, sessionError := pathFor(handle, operationCommitConstant)
	if sessionError != nil {
		return "", sessionError
	}
	if _, addError := client.run(executionContext, path, gitAddSubcommandConstant, gitAllFlagConstant); addError != nil {
		return "", vcs.NewOperationError(operationCommitConstant, path, nil, addError)
	}
	_, commitError := client.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitCommitSubcommandConstant, gitMessageFlagConstant, message},
		WorkingDirectory:     path,
		EnvironmentVariables: client.identityEnvironment(),
	})
	if commitError != nil {
		return "", vcs.NewOperationError(operationCommitConstant, path, nil, commitError)
	}
	return client.CurrentCommit(executionContext, handle)
}

// Tag implements vcs.Client.
func (client *Client) Tag(executionContext context.Context, handle *vcs.Handle, name string, commit vcs.CommitID, message string) error {
	path, sessionError := pathFor(handle, operationTagConstant)
	if sessionError != nil {
		return sessionError
	}
	arguments := []string{gitTagSubcommandConstant, name, commit.String()}
	if len(strings.TrimSpace(message)) > 0 {
		arguments = []string{gitTagSubcommandConstant, gitAnnotateFlagConstant, name, commit.String(), gitMessageFlagConstant, message}
	}
	_, tagError := client.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     path,
		EnvironmentVariables: client.identityEnvironment(),
	})
	if tagError != nil {
		if standardErrorContains(tagError, tagExistsMarkerConstant) {
			return vcs.NewOperationError(operationTagConstant, path, vcs.ErrTagExists, tagError)
		}
		return vcs.NewOperationError(operationTagConstant, path, nil, tagError)
	}
	return nil
}

// TagExists implements vcs.Client.
func (client *Client) TagExists(executionContext context.Context, handle *vcs.Handle, name string) (bool, error) {
	path, sessionError := pathFor(handle, operationTagConstant)
	if sessionError != nil {
		return false, sessionError
	}
	_, verifyError := client.run(executionContext, path, gitRevParseSubcommandConstant, gitVerifyFlagConstant, gitQuietFlagConstant, vcs.TagReference(name))
	if verifyError == nil {
		return true, nil
	}
	var failedError execshell.CommandFailedError
	if errors.As(verifyError, &failedError) && failedError.Result.ExitCode == verifyMissingExitCodeConstant {
		return false, nil
	}
	return false, vcs.NewOperationError(operationTagConstant, path, nil, verifyError)
}

// DeleteTag implements vcs.Client.
func (client *Client) DeleteTag(executionContext context.Context, handle *vcs.Handle, name string) error {
	path, sessionError := pathFor(handle, operationDeleteTagConstant)
	if sessionError != nil {
		return sessionError
	}
	if _, deleteError := client.run(executionContext, path, gitTagSubcommandConstant, gitDeleteFlagConstant, name); deleteError != nil {
		if standardErrorContains(deleteError, tagMissingMarkerConstant) {
			return vcs.NewOperationError(operationDeleteTagConstant, path, vcs.ErrTagMissing, deleteError)
		}
		return vcs.NewOperationError(operationDeleteTagConstant, path, nil, deleteError)
	}
	return nil
}

// ResetHard implements vcs.Client.
func (client *Client) ResetHard(executionContext context.Context, handle *vcs.Handle, commit vcs.CommitID) error {
	path, sessionError := pathFor(handle, operationResetConstant)
	if sessionError != nil {
		return sessionError
	}
	if _, resetError := client.run(executionContext, path, gitResetSubcommandConstant, gitHardFlagConstant, commit.String()); resetError != nil {
		return vcs.NewOperationError(operationResetConstant, path, nil, resetError)
	}
	return nil
}

// CreateBranch implements vcs.Client.
func (client *Client) CreateBranch(executionContext context.Context, handle *vcs.Handle, name string, commit vcs.CommitID) error {
	path, sessionError := pathFor(handle, operationCreateBranchConstant)
	if sessionError != nil {
		return sessionError
	}
	if _, branchError := client.run(executionContext, path, gitBranchSubcommandConstant, name, commit.String()); branchError != nil {
		return vcs.NewOperationError(operationCreateBranchConstant, path, nil, branchError)
	}
	return nil
}

// Checkout implements vcs.Client. Local modifications are discarded.
func (client *Client) Checkout(executionContext context.Context, handle *vcs.Handle, branch string) error {
	path, sessionError := pathFor(handle, operationCheckoutConstant)
	if sessionError != nil {
		return sessionError
	}
	if _, checkoutError := client.run(executionContext, path, gitCheckoutSubcommandConstant, gitForceFlagConstant, branch); checkoutError != nil {
		if standardErrorContains(checkoutError, branchMissingMarkerDidNotMatch) || standardErrorContains(checkoutError, branchMissingMarkerInvalidRef) {
			return vcs.NewOperationError(operationCheckoutConstant, path, vcs.ErrBranchMissing, checkoutError)
		}
		return vcs.NewOperationError(operationCheckoutConstant, path, nil, checkoutError)
	}
	return nil
}

// DeleteLocalBranch implements vcs.Client.
func (client *Client) DeleteLocalBranch(executionContext context.Context, handle *vcs.Handle, name string) error {
	path, sessionError := pathFor(handle, operationDeleteBranchConstant)
	if sessionError != nil {
		return sessionError
	}
	currentBranch, branchError := client.CurrentBranch(executionContext, handle)
	if branchError != nil {
		return branchError
	}
	if currentBranch == name {
		return vcs.NewOperationError(operationDeleteBranchConstant, path, nil, fmt.Errorf(checkedOutBranchTemplateConstant, name))
	}
	if _, deleteError := client.run(executionContext, path, gitBranchSubcommandConstant, gitForceDeleteFlagConstant, name); deleteError != nil {
		if standardErrorContains(deleteError, branchMissingMarkerNotFound) {
			return vcs.NewOperationError(operationDeleteBranchConstant, path, vcs.ErrBranchMissing, deleteError)
		}
		return vcs.NewOperationError(operationDeleteBranchConstant, path, nil, deleteError)
	}
	return nil
}

// Push implements vcs.Client. git accepts commit ids as refspec sources directly.
func (client *Client) Push(executionContext context.Context, handle *vcs.Handle, remoteName string, refSpecs []vcs.RefSpec) error {
	return client.push(executionContext, handle, operationPushConstant, remoteName, refSpecs)
}

// DeleteRemoteRef implements vcs.Client.
func (client *Client) DeleteRemoteRef(executionContext context.Context, handle *vcs.Handle, remoteName string, reference string) error {
	return client.push(executionContext, handle, operationDeleteRemoteRefConstant, remoteName, []vcs.RefSpec{vcs.DeleteRefSpec(reference)})
}

// RemoteReference implements vcs.Client. ls-remote matches patterns by suffix, so only the exact name counts.
func (client *Client) RemoteReference(executionContext context.Context, handle *vcs.Handle, remoteName string, reference string) (vcs.CommitID, bool, error) {
	path, sessionError := pathFor(handle, operationListRemoteConstant)
	if sessionError != nil {
		return "", false, sessionError
	}
	if len(strings.TrimSpace(remoteName)) == 0 {
		remoteName = vcs.DefaultRemoteName
	}
	result, listError := client.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitListRemoteSubcommandConstant, remoteName, reference},
		WorkingDirectory:     path,
		EnvironmentVariables: networkEnvironment(),
	})
	if listError != nil {
		return "", false, vcs.NewOperationError(operationListRemoteConstant, path, classifyNetworkFailure(listError), listError)
	}
	for _, line := range strings.Split(result.StandardOutput, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == reference {
			return vcs.CommitID(fields[0]), true, nil
		}
	}
	return "", false, nil
}

// SetRemote implements vcs.Client.
func (client *Client) SetRemote(executionContext context.Context, handle *vcs.Handle, name string, url string) error {
	path, sessionError := pathFor(handle, operationSetRemoteConstant)
	if sessionError != nil {
		return sessionError
	}
	currentURL, exists, lookupError := client.RemoteURL(executionContext, handle, name)
	if lookupError != nil {
		return lookupError
	}
	if exists && currentURL == url {
		return nil
	}
	action := gitRemoteAddConstant
	if exists {
		action = gitRemoteSetURLConstant
	}
	if _, remoteError := client.run(executionContext, path, gitRemoteSubcommandConstant, action, name, url); remoteError != nil {
		return vcs.NewOperationError(operationSetRemoteConstant, path, nil, remoteError)
	}
	return nil
}

// RemoveRemote implements vcs.Client.
func (client *Client) RemoveRemote(executionContext context.Context, handle *vcs.Handle, name string) error {
	path, sessionError := pathFor(handle, operationRemoveRemoteConstant)
	if sessionError != nil {
		return sessionError
	}
	if _, removeError := client.run(executionContext, path, gitRemoteSubcommandConstant, gitRemoteRemoveConstant, name); removeError != nil {
		if standardErrorContains(removeError, noSuchRemoteMarkerConstant) {
			return nil
		}
		return vcs.NewOperationError(operationRemoveRemoteConstant, path, nil, removeError)
	}
	return nil
}

// RemoteURL implements vcs.Client.
func (client *Client) RemoteURL(executionContext context.Context, handle *vcs.Handle, name string) (string, bool, error) {
	path, sessionError := pathFor(handle, operationRemoteLookupConstant)
	if sessionError != nil {
		return "", false, sessionError
	}
	result, lookupError := client.run(executionContext, path, gitRemoteSubcommandConstant, gitRemoteGetURLConstant, name)
	if lookupError != nil {
		if standardErrorContains(lookupError, noSuchRemoteMarkerConstant) {
			return "", false, nil
		}
		return "", false, vcs.NewOperationError(operationRemoteLookupConstant, path, nil, lookupError)
	}
	return strings.TrimSpace(result.StandardOutput), true, nil
}

func (client *Client) push(executionContext context.Context, handle *vcs.Handle, operation string, remoteName string, refSpecs []vcs.RefSpec) error {
	path, sessionError := pathFor(handle, operation)
	if sessionError != nil {
		return sessionError
	}
	if len(strings.TrimSpace(remoteName)) == 0 {
		remoteName = vcs.DefaultRemoteName
	}
	arguments := []string{gitPushSubcommandConstant, remoteName}
	for _, refSpec := range refSpecs {
		arguments = append(arguments, string(refSpec))
	}
	_, pushError := client.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     path,
		EnvironmentVariables: networkEnvironment(),
	})
	if pushError != nil {
		return vcs.NewOperationError(operation, path, classifyNetworkFailure(pushError), pushError)
	}
	return nil
}

func (client *Client) run(executionContext context.Context, path string, arguments ...string) (execshell.ExecutionResult, error) {
	return client.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments, WorkingDirectory: path})
}

func (client *Client) identityEnvironment() map[string]string {
	return map[string]string{
		gitAuthorNameEnvironmentKey:     client.author.Name,
		gitAuthorEmailEnvironmentKey:    client.author.Email,
		gitCommitterNameEnvironmentKey:  client.author.Name,
		gitCommitterEmailEnvironmentKey: client.author.Email,
	}
}

func networkEnvironment() map[string]string {
	return map[string]string{gitTerminalPromptEnvironmentKey: gitTerminalPromptDisabledValue}
}

func pathFor(handle *vcs.Handle, operation string) (string, error) {
	session, isWorkingCopy := handle.Session().(workingCopy)
	if !isWorkingCopy || len(session.path) == 0 {
		return "", vcs.NewOperationError(operation, handle.Path(), vcs.ErrHandleNotConfigured, nil)
	}
	return session.path, nil
}

func isCommandFailure(executionError error) bool {
	var failedError execshell.CommandFailedError
	return errors.As(executionError, &failedError)
}

func standardErrorContains(executionError error, marker string) bool {
	var failedError execshell.CommandFailedError
	if !errors.As(executionError, &failedError) {
		return false
	}
	return strings.Contains(strings.ToLower(failedError.Result.StandardError), marker)
}

// classifyNetworkFailure maps git's diagnostics onto the shared error classes.
// Processes that could not start and unrecognized failures count as transient.
func classifyNetworkFailure(executionError error) error {
	var failedError execshell.CommandFailedError
	if !errors.As(executionError, &failedError) {
		return vcs.ErrTransport
	}
	standardError := strings.ToLower(failedError.Result.StandardError)
	for _, marker := range []string{authenticationFailedMarker, permissionDeniedMarker, usernamePromptMarker, terminalPromptsDisabledMarker, invalidCredentialsMarker, forbiddenStatusMarker} {
		if strings.Contains(standardError, marker) {
			return vcs.ErrAuthentication
		}
	}
	for _, marker := range []string{rejectedMarker, remoteRejectedMarker, nonFastForwardMarker, fetchFirstMarker, hookDeclinedMarker, protectedBranchMarker, remoteRepositoryMissingMarker, remoteRepositoryNotFoundMarker, destinationExistsMarker, notAGitRepositoryMarkerConstant, missingWorkingDirectoryMarker} {
		if strings.Contains(standardError, marker) {
			return vcs.ErrRejected
		}
	}
	return vcs.ErrTransport
}
