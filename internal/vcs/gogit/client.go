package gogit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"go.uber.org/zap"

	"github.com/temirov/reltrain/internal/vcs"
)

const (
	operationCloneConstant             = "clone"
	operationOpenConstant              = "open"
	operationStatusConstant            = "status"
	operationResolveHeadConstant       = "resolve HEAD"
	operationCommitConstant            = "commit"
	operationTagConstant               = "tag"
	operationDeleteTagConstant         = "delete tag"
	operationResetConstant             = "reset --hard"
	operationCreateBranchConstant      = "create branch"
	operationCheckoutConstant          = "checkout"
	operationDeleteBranchConstant      = "delete branch"
	operationPushConstant              = "push"
	operationDeleteRemoteRefConstant   = "delete remote ref"
	operationListRemoteConstant        = "ls-remote"
	operationSetRemoteConstant         = "set remote"
	operationRemoteLookupConstant      = "remote lookup"
	operationRemoveRemoteConstant      = "remove remote"
	temporaryPushReferenceTemplate     = "refs/reltrain/push/%d"
	remoteWithoutURLTemplateConstant   = "remote %s has no url"
	checkedOutBranchTemplateConstant   = "branch %s is checked out"
	invalidRefSpecTemplateConstant     = "invalid refspec %s: %w"
	logMessagePushStarted              = "pushing references"
	logMessagePushCompleted            = "pushed references"
	logMessagePushFailed               = "push failed"
	logMessageCloneStarted             = "cloning repository"
	logMessageRemoteReplaced           = "replacing remote url"
	logFieldRepositoryPathConstant     = "repository_path"
	logFieldRemoteNameConstant         = "remote"
	logFieldRemoteURLConstant          = "remote_url"
	logFieldRefSpecsConstant           = "refspecs"
	logFieldErrorClassConstant         = "error_class"
	logFieldPreviousRemoteURLConstant  = "previous_remote_url"
	rejectionMarkerRejectedConstant    = "rejected"
	rejectionMarkerCommandErrorOn      = "command error on"
	rejectionMarkerHookDeclined        = "hook declined"
	rejectionMarkerProtectedBranch     = "protected branch"
	rejectionMarkerNonFastForward      = "non-fast-forward"
	authenticationMarkerPermission     = "permission denied"
	authenticationMarkerAuthentication = "authentication"
)

// Options configures the go-git backed client.
type Options struct {
	Author vcs.Signature
	Auth   AuthProvider
	Logger *zap.Logger
	Clock  func() time.Time
	// InProcessFileTransport serves local remotes without external git binaries.
	InProcessFileTransport bool
}

// Client implements vcs.Client in-process through go-git.
type Client struct {
	author vcs.Signature
	auth   AuthProvider
	logger *zap.Logger
	clock  func() time.Time
}

var _ vcs.Client = (*Client)(nil)

// NewClient constructs a go-git backed client.
func NewClient(options Options) *Client {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := options.Clock
	if clock == nil {
		clock = time.Now
	}
	if options.InProcessFileTransport {
		InstallInProcessFileTransport()
	}
	return &Client{
		author: options.Author.Sanitize(),
		auth:   options.Auth,
		logger: logger,
		clock:  clock,
	}
}

// Clone implements vcs.Client.
func (client *Client) Clone(executionContext context.Context, remoteURL string, localPath string) (*vcs.Handle, error) {
	authMethod, authError := client.resolveAuth(remoteURL)
	if authError != nil {
		return nil, vcs.NewOperationError(operationCloneConstant, localPath, vcs.ErrAuthentication, authError)
	}

	client.logger.Info(logMessageCloneStarted, zap.String(logFieldRemoteURLConstant, remoteURL), zap.String(logFieldRepositoryPathConstant, localPath))
	repository, cloneError := git.PlainCloneContext(executionContext, localPath, false, &git.CloneOptions{
		URL:        remoteURL,
		Auth:       authMethod,
		RemoteName: vcs.DefaultRemoteName,
	})
	if cloneError != nil {
		return nil, vcs.NewOperationError(operationCloneConstant, localPath, classifyNetworkError(cloneError), cloneError)
	}
	return vcs.NewHandle(localPath, repository), nil
}

// Open implements vcs.Client.
func (client *Client) Open(_ context.Context, localPath string) (*vcs.Handle, error) {
	repository, openError := git.PlainOpen(localPath)
	if openError != nil {
		if errors.Is(openError, git.ErrRepositoryNotExists) {
			return nil, vcs.NewOperationError(operationOpenConstant, localPath, vcs.ErrNotAGitRepository, openError)
		}
		return nil, vcs.NewOperationError(operationOpenConstant, localPath, nil, openError)
	}
	if _, worktreeError := repository.Worktree(); worktreeError != nil {
		return nil, vcs.NewOperationError(operationOpenConstant, localPath, vcs.ErrNotAGitRepository, worktreeError)
	}
	return vcs.NewHandle(localPath, repository), nil
}

// IsClean implements vcs.Client.
func (client *Client) IsClean(_ context.Context, handle *vcs.Handle) (bool, error) {
	_, worktree, sessionError := worktreeFor(handle, operationStatusConstant)
	if sessionError != nil {
		return false, sessionError
	}
	status, statusError := worktree.Status()
	if statusError != nil {
		return false, vcs.NewOperationError(operationStatusConstant, handle.Path(), nil, statusError)
	}
	return status.IsClean(), nil
}

// CurrentCommit implements vcs.Client.
func (client *Client) CurrentCommit(_ context.Context, handle *vcs.Handle) (vcs.CommitID, error) {
	repository, sessionError := repositoryFor(handle, operationResolveHeadConstant)
	if sessionError != nil {
		return "", sessionError
	}
	head, headError := repository.Head()
	if headError != nil {
		return "", vcs.NewOperationError(operationResolveHeadConstant, handle.Path(), nil, headError)
	}
	return vcs.CommitID(head.Hash().String()), nil
}

// CurrentBranch implements vcs.Client.
func (client *Client) CurrentBranch(_ context.Context, handle *vcs.Handle) (string, error) {
	repository, sessionError := repositoryFor(handle, operationResolveHeadConstant)
	if sessionError != nil {
		return "", sessionError
	}
	head, headError := repository.Head()
	if headError != nil {
		return "", vcs.NewOperationError(operationResolveHeadConstant, handle.Path(), nil, headError)
	}
	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

// Commit implements vcs.Client.
func (client *Client) Commit(_ context.Context, handle *vcs.Handle, message string) (vcs.CommitID, error) {
	_, worktree, sessionError := worktreeFor(handle, operationCommitConstant)
	if sessionError != nil {
		return "", sessionError
	}
	if addError := worktree.AddWithOptions(&git.AddOptions{All: true}); addError != nil {
		return "", vcs.NewOperationError(operationCommitConstant, handle.Path(), nil, addError)
	}

	signature := client.signature()
	commitHash, commitError := worktree.Commit(message, &git.CommitOptions{Author: signature, Committer: signature})
	if commitError != nil {
		return "", vcs.NewOperationError(operationCommitConstant, handle.Path(), nil, commitError)
	}
	return vcs.CommitID(commitHash.String()), nil
}

// Tag implements vcs.Client.
func (client *Client) Tag(_ context.Context, handle *vcs.Handle, name string, commit vcs.CommitID, message string) error {
	repository, sessionError := repositoryFor(handle, operationTagConstant)
	if sessionError != nil {
		return sessionError
	}

	targetHash := plumbing.NewHash(commit.String())
	if len(strings.TrimSpace(message)) == 0 {
		tagReferenceName := plumbing.NewTagReferenceName(name)
		if _, lookupError := repository.Reference(tagReferenceName, false); lookupError == nil {
			return vcs.NewOperationError(operationTagConstant, handle.Path(), vcs.ErrTagExists, fmt.Errorf("%s", name))
		}
		if setError := repository.Storer.SetReference(plumbing.NewHashReference(tagReferenceName, targetHash)); setError != nil {
			return vcs.NewOperationError(operationTagConstant, handle.Path(), nil, setError)
		}
		return nil
	}

	_, tagError := repository.CreateTag(name, targetHash, &git.CreateTagOptions{Tagger: client.signature(), Message: message})
	if tagError != nil {
		if errors.Is(tagError, git.ErrTagExists) {
			return vcs.NewOperationError(operationTagConstant, handle.Path(), vcs.ErrTagExists, tagError)
		}
		return vcs.NewOperationError(operationTagConstant, handle.Path(), nil, tagError)
	}
	return nil
}

// TagExists implements vcs.Client.
func (client *Client) TagExists(_ context.Context, handle *vcs.Handle, name string) (bool, error) {
	repository, sessionError := repositoryFor(handle, operationTagConstant)
	if sessionError != nil {
		return false, sessionError
	}
	_, lookupError := repository.Reference(plumbing.NewTagReferenceName(name), false)
	switch {
	case lookupError == nil:
		return true, nil
	case errors.Is(lookupError, plumbing.ErrReferenceNotFound):
		return false, nil
	default:
		return false, vcs.NewOperationError(operationTagConstant, handle.Path(), nil, lookupError)
	}
}

// DeleteTag implements vcs.Client.
func (client *Client) DeleteTag(_ context.Context, handle *vcs.Handle, name string) error {
	repository, sessionError := repositoryFor(handle, operationDeleteTagConstant)
	if sessionError != nil {
		return sessionError
	}
	if deleteError := repository.DeleteTag(name); deleteError != nil {
		if errors.Is(deleteError, git.ErrTagNotFound) {
			return vcs.NewOperationError(operationDeleteTagConstant, handle.Path(), vcs.ErrTagMissing, deleteError)
		}
		return vcs.NewOperationError(operationDeleteTagConstant, handle.Path(), nil, deleteError)
	}
	return nil
}

// ResetHard implements vcs.Client.
func (client *Client) ResetHard(_ context.Context, handle *vcs.Handle, commit vcs.CommitID) error {
	_, worktree, sessionError := worktreeFor(handle, operationResetConstant)
	if sessionError != nil {
		return sessionError
	}
	resetError := worktree.Reset(&git.ResetOptions{Commit: plumbing.NewHash(commit.String()), Mode: git.HardReset})
	if resetError != nil {
		return vcs.NewOperationError(operationResetConstant, handle.Path(), nil, resetError)
	}
	return nil
}

// CreateBranch implements vcs.Client.
func (client *Client) CreateBranch(_ context.Context, handle *vcs.Handle, name string, commit vcs.CommitID) error {
	repository, sessionError := repositoryFor(handle, operationCreateBranchConstant)
	if sessionError != nil {
		return sessionError
	}
	branchReferenceName := plumbing.NewBranchReferenceName(name)
	if _, lookupError := repository.Reference(branchReferenceName, false); lookupError == nil {
		return vcs.NewOperationError(operationCreateBranchConstant, handle.Path(), nil, git.ErrBranchExists)
	}
	setError := repository.Storer.SetReference(plumbing.NewHashReference(branchReferenceName, plumbing.NewHash(commit.String())))
	if setError != nil {
		return vcs.NewOperationError(operationCreateBranchConstant, handle.Path(), nil, setError)
	}
	return nil
}

// Checkout implements vcs.Client. Local modifications are discarded.
func (client *Client) Checkout(_ context.Context, handle *vcs.Handle, branch string) error {
	repository, worktree, sessionError := worktreeFor(handle, operationCheckoutConstant)
	if sessionError != nil {
		return sessionError
	}
	branchReferenceName := plumbing.NewBranchReferenceName(branch)
	if _, lookupError := repository.Reference(branchReferenceName, false); lookupError != nil {
		return vcs.NewOperationError(operationCheckoutConstant, handle.Path(), vcs.ErrBranchMissing, lookupError)
	}
	if checkoutError := worktree.Checkout(&git.CheckoutOptions{Branch: branchReferenceName, Force: true}); checkoutError != nil {
		return vcs.NewOperationError(operationCheckoutConstant, handle.Path(), nil, checkoutError)
	}
	return nil
}

// DeleteLocalBranch implements vcs.Client.
func (client *Client) DeleteLocalBranch(executionContext context.Context, handle *vcs.Handle, name string) error {
	repository, sessionError := repositoryFor(handle, operationDeleteBranchConstant)
	if sessionError != nil {
		return sessionError
	}
	currentBranch, branchError := client.CurrentBranch(executionContext, handle)
	if branchError != nil {
		return branchError
	}
	if currentBranch == name {
		return vcs.NewOperationError(operationDeleteBranchConstant, handle.Path(), nil, fmt.Errorf(checkedOutBranchTemplateConstant, name))
	}

	branchReferenceName := plumbing.NewBranchReferenceName(name)
	if _, lookupError := repository.Reference(branchReferenceName, false); lookupError != nil {
		return vcs.NewOperationError(operationDeleteBranchConstant, handle.Path(), vcs.ErrBranchMissing, lookupError)
	}
	if removeError := repository.Storer.RemoveReference(branchReferenceName); removeError != nil {
		return vcs.NewOperationError(operationDeleteBranchConstant, handle.Path(), nil, removeError)
	}
	if configError := repository.DeleteBranch(name); configError != nil && !errors.Is(configError, git.ErrBranchNotFound) {
		return vcs.NewOperationError(operationDeleteBranchConstant, handle.Path(), nil, configError)
	}
	return nil
}

// Push implements vcs.Client. Commit ids are accepted as refspec sources.
func (client *Client) Push(executionContext context.Context, handle *vcs.Handle, remoteName string, refSpecs []vcs.RefSpec) error {
	return client.push(executionContext, handle, operationPushConstant, remoteName, refSpecs)
}

// DeleteRemoteRef implements vcs.Client.
func (client *Client) DeleteRemoteRef(executionContext context.Context, handle *vcs.Handle, remoteName string, reference string) error {
	return client.push(executionContext, handle, operationDeleteRemoteRefConstant, remoteName, []vcs.RefSpec{vcs.DeleteRefSpec(reference)})
}

// RemoteReference implements vcs.Client. An empty remote has no references.
func (client *Client) RemoteReference(executionContext context.Context, handle *vcs.Handle, remoteName string, reference string) (vcs.CommitID, bool, error) {
	repository, sessionError := repositoryFor(handle, operationListRemoteConstant)
	if sessionError != nil {
		return "", false, sessionError
	}
	if len(strings.TrimSpace(remoteName)) == 0 {
		remoteName = vcs.DefaultRemoteName
	}

	remote, remoteError := repository.Remote(remoteName)
	if remoteError != nil {
		return "", false, vcs.NewOperationError(operationListRemoteConstant, handle.Path(), vcs.ErrRejected, remoteError)
	}
	remoteURLs := remote.Config().URLs
	if len(remoteURLs) == 0 {
		return "", false, vcs.NewOperationError(operationListRemoteConstant, handle.Path(), vcs.ErrRejected, fmt.Errorf(remoteWithoutURLTemplateConstant, remoteName))
	}
	authMethod, authError := client.resolveAuth(remoteURLs[0])
	if authError != nil {
		return "", false, vcs.NewOperationError(operationListRemoteConstant, handle.Path(), vcs.ErrAuthentication, authError)
	}

	references, listError := remote.ListContext(executionContext, &git.ListOptions{Auth: authMethod})
	if listError != nil {
		if errors.Is(listError, transport.ErrEmptyRemoteRepository) {
			return "", false, nil
		}
		return "", false, vcs.NewOperationError(operationListRemoteConstant, handle.Path(), classifyNetworkError(listError), listError)
	}
	for _, remoteReference := range references {
		if remoteReference.Type() == plumbing.HashReference && remoteReference.Name().String() == reference {
			return vcs.CommitID(remoteReference.Hash().String()), true, nil
		}
	}
	return "", false, nil
}

// SetRemote implements vcs.Client.
func (client *Client) SetRemote(_ context.Context, handle *vcs.Handle, name string, url string) error {
	repository, sessionError := repositoryFor(handle, operationSetRemoteConstant)
	if sessionError != nil {
		return sessionError
	}

	existingRemote, lookupError := repository.Remote(name)
	switch {
	case lookupError == nil:
		existingURLs := existingRemote.Config().URLs
		if len(existingURLs) > 0 && existingURLs[0] == url {
			return nil
		}
		previousURL := ""
		if len(existingURLs) > 0 {
			previousURL = existingURLs[0]
		}
		client.logger.Debug(logMessageRemoteReplaced,
			zap.String(logFieldRepositoryPathConstant, handle.Path()),
			zap.String(logFieldRemoteNameConstant, name),
			zap.String(logFieldPreviousRemoteURLConstant, previousURL),
			zap.String(logFieldRemoteURLConstant, url),
		)
		if deleteError := repository.DeleteRemote(name); deleteError != nil {
			return vcs.NewOperationError(operationSetRemoteConstant, handle.Path(), nil, deleteError)
		}
	case !errors.Is(lookupError, git.ErrRemoteNotFound):
		return vcs.NewOperationError(operationSetRemoteConstant, handle.Path(), nil, lookupError)
	}

	if _, createError := repository.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}}); createError != nil {
		return vcs.NewOperationError(operationSetRemoteConstant, handle.Path(), nil, createError)
	}
	return nil
}

// RemoveRemote implements vcs.Client.
func (client *Client) RemoveRemote(_ context.Context, handle *vcs.Handle, name string) error {
	repository, sessionError := repositoryFor(handle, operationRemoveRemoteConstant)
	if sessionError != nil {
		return sessionError
	}
	if deleteError := repository.DeleteRemote(name); deleteError != nil && !errors.Is(deleteError, git.ErrRemoteNotFound) {
		return vcs.NewOperationError(operationRemoveRemoteConstant, handle.Path(), nil, deleteError)
	}
	return nil
}

// RemoteURL implements vcs.Client.
func (client *Client) RemoteURL(_ context.Context, handle *vcs.Handle, name string) (string, bool, error) {
	repository, sessionError := repositoryFor(handle, operationRemoteLookupConstant)
	if sessionError != nil {
		return "", false, sessionError
	}
	remote, lookupError := repository.Remote(name)
	if lookupError != nil {
		if errors.Is(lookupError, git.ErrRemoteNotFound) {
			return "", false, nil
		}
		return "", false, vcs.NewOperationError(operationRemoteLookupConstant, handle.Path(), nil, lookupError)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", true, nil
	}
	return urls[0], true, nil
}

func (client *Client) push(executionContext context.Context, handle *vcs.Handle, operation string, remoteName string, refSpecs []vcs.RefSpec) error {
	repository, sessionError := repositoryFor(handle, operation)
	if sessionError != nil {
		return sessionError
	}
	if len(strings.TrimSpace(remoteName)) == 0 {
		remoteName = vcs.DefaultRemoteName
	}

	remote, remoteError := repository.Remote(remoteName)
	if remoteError != nil {
		return vcs.NewOperationError(operation, handle.Path(), vcs.ErrRejected, remoteError)
	}
	remoteURLs := remote.Config().URLs
	if len(remoteURLs) == 0 {
		return vcs.NewOperationError(operation, handle.Path(), vcs.ErrRejected, fmt.Errorf(remoteWithoutURLTemplateConstant, remoteName))
	}

	authMethod, authError := client.resolveAuth(remoteURLs[0])
	if authError != nil {
		return vcs.NewOperationError(operation, handle.Path(), vcs.ErrAuthentication, authError)
	}

	goGitRefSpecs, temporaryReferences, conversionError := materializeRefSpecs(repository, refSpecs)
	defer removeReferences(repository, temporaryReferences)
	if conversionError != nil {
		return vcs.NewOperationError(operation, handle.Path(), vcs.ErrRejected, conversionError)
	}

	refSpecFields := make([]string, 0, len(refSpecs))
	for _, refSpec := range refSpecs {
		refSpecFields = append(refSpecFields, refSpec.String())
	}
	client.logger.Debug(logMessagePushStarted,
		zap.String(logFieldRepositoryPathConstant, handle.Path()),
		zap.String(logFieldRemoteNameConstant, remoteName),
		zap.Strings(logFieldRefSpecsConstant, refSpecFields),
	)

	pushError := repository.PushContext(executionContext, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   goGitRefSpecs,
		Auth:       authMethod,
	})
	if pushError != nil && !errors.Is(pushError, git.NoErrAlreadyUpToDate) {
		errorClass := classifyNetworkError(pushError)
		client.logger.Debug(logMessagePushFailed,
			zap.String(logFieldRepositoryPathConstant, handle.Path()),
			zap.String(logFieldErrorClassConstant, errorClass.Error()),
			zap.Error(pushError),
		)
		return vcs.NewOperationError(operation, handle.Path(), errorClass, pushError)
	}

	client.logger.Debug(logMessagePushCompleted,
		zap.String(logFieldRepositoryPathConstant, handle.Path()),
		zap.Strings(logFieldRefSpecsConstant, refSpecFields),
	)
	return nil
}

func (client *Client) resolveAuth(remoteURL string) (transport.AuthMethod, error) {
	if client.auth == nil {
		return nil, nil
	}
	return client.auth.Method(remoteURL)
}

func (client *Client) signature() *object.Signature {
	return &object.Signature{Name: client.author.Name, Email: client.author.Email, When: client.clock()}
}

// materializeRefSpecs converts refspecs to go-git form. Commit id sources are pointed to
// by temporary references because go-git pushes references, not bare objects.
func materializeRefSpecs(repository *git.Repository, refSpecs []vcs.RefSpec) ([]config.RefSpec, []plumbing.ReferenceName, error) {
	converted := make([]config.RefSpec, 0, len(refSpecs))
	var temporaryReferences []plumbing.ReferenceName

	for index, refSpec := range refSpecs {
		source := refSpec.Source()
		textual := refSpec.String()
		if !refSpec.IsDelete() && vcs.LooksLikeCommitID(source) {
			temporaryReference := plumbing.ReferenceName(fmt.Sprintf(temporaryPushReferenceTemplate, index))
			if setError := repository.Storer.SetReference(plumbing.NewHashReference(temporaryReference, plumbing.NewHash(source))); setError != nil {
				return nil, temporaryReferences, setError
			}
			temporaryReferences = append(temporaryReferences, temporaryReference)
			textual = string(vcs.NewRefSpec(temporaryReference.String(), refSpec.Destination(), refSpec.IsForce()))
		}

		goGitRefSpec := config.RefSpec(textual)
		if validationError := goGitRefSpec.Validate(); validationError != nil {
			return nil, temporaryReferences, fmt.Errorf(invalidRefSpecTemplateConstant, textual, validationError)
		}
		converted = append(converted, goGitRefSpec)
	}
	return converted, temporaryReferences, nil
}

func removeReferences(repository *git.Repository, references []plumbing.ReferenceName) {
	for _, reference := range references {
		_ = repository.Storer.RemoveReference(reference)
	}
}

func repositoryFor(handle *vcs.Handle, operation string) (*git.Repository, error) {
	repository, isRepository := handle.Session().(*git.Repository)
	if !isRepository || repository == nil {
		return nil, vcs.NewOperationError(operation, handle.Path(), vcs.ErrHandleNotConfigured, nil)
	}
	return repository, nil
}

func worktreeFor(handle *vcs.Handle, operation string) (*git.Repository, *git.Worktree, error) {
	repository, sessionError := repositoryFor(handle, operation)
	if sessionError != nil {
		return nil, nil, sessionError
	}
	worktree, worktreeError := repository.Worktree()
	if worktreeError != nil {
		return nil, nil, vcs.NewOperationError(operation, handle.Path(), vcs.ErrNotAGitRepository, worktreeError)
	}
	return repository, worktree, nil
}

// classifyNetworkError maps go-git failures onto the shared error classes. Anything not
// recognized as an explicit refusal is treated as transient.
func classifyNetworkError(networkError error) error {
	switch {
	case errors.Is(networkError, transport.ErrAuthenticationRequired),
		errors.Is(networkError, transport.ErrAuthorizationFailed),
		errors.Is(networkError, transport.ErrInvalidAuthMethod):
		return vcs.ErrAuthentication
	case errors.Is(networkError, git.ErrNonFastForwardUpdate),
		errors.Is(networkError, transport.ErrRepositoryNotFound),
		errors.Is(networkError, git.ErrRemoteNotFound),
		errors.Is(networkError, git.ErrRepositoryAlreadyExists):
		return vcs.ErrRejected
	case errors.Is(networkError, context.DeadlineExceeded),
		errors.Is(networkError, io.EOF),
		errors.Is(networkError, io.ErrUnexpectedEOF),
		errors.Is(networkError, syscall.ECONNRESET),
		errors.Is(networkError, syscall.ECONNREFUSED):
		return vcs.ErrTransport
	}

	var networkFailure net.Error
	if errors.As(networkError, &networkFailure) {
		return vcs.ErrTransport
	}

	message := strings.ToLower(networkError.Error())
	switch {
	case strings.Contains(message, authenticationMarkerPermission), strings.Contains(message, authenticationMarkerAuthentication):
		return vcs.ErrAuthentication
	case strings.Contains(message, rejectionMarkerRejectedConstant),
		strings.Contains(message, rejectionMarkerCommandErrorOn),
		strings.Contains(message, rejectionMarkerHookDeclined),
		strings.Contains(message, rejectionMarkerProtectedBranch),
		strings.Contains(message, rejectionMarkerNonFastForward):
		return vcs.ErrRejected
	default:
		return vcs.ErrTransport
	}
}
