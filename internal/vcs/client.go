package vcs

import (
	"context"
	"fmt"
	"strings"
)

const (
	branchReferencePrefixConstant  = "refs/heads/"
	tagReferencePrefixConstant     = "refs/tags/"
	refSpecSeparatorConstant       = ":"
	forceRefSpecPrefixConstant     = "+"
	refSpecTemplateConstant        = "%s%s:%s"
	shortCommitLengthConstant      = 12
	commitHexadecimalLengthSHA1    = 40
	commitHexadecimalLengthSHA256  = 64
	hexadecimalAlphabetConstant    = "0123456789abcdefABCDEF"
	deleteRefSpecTemplateConstant  = ":%s"
	originRemoteNameConstant       = "origin"
	defaultSignatureNameConstant   = "reltrain"
	defaultSignatureEmailConstant  = "reltrain@localhost"
	signatureDescriptionTemplate   = "%s <%s>"
	handleDescriptionTemplate      = "%s"
	emptyRefSpecDescriptionMessage = "empty refspec"
)

// DefaultRemoteName names the remote used when none is configured.
const DefaultRemoteName = originRemoteNameConstant

// CommitID identifies a commit by its full hexadecimal object name.
type CommitID string

// String returns the full commit id.
func (commitID CommitID) String() string {
	return string(commitID)
}

// Short returns an abbreviated commit id for display.
func (commitID CommitID) Short() string {
	if len(commitID) <= shortCommitLengthConstant {
		return string(commitID)
	}
	return string(commitID[:shortCommitLengthConstant])
}

// IsZero reports whether the commit id is empty.
func (commitID CommitID) IsZero() bool {
	return len(strings.TrimSpace(string(commitID))) == 0
}

// LooksLikeCommitID reports whether value is a full SHA-1 or SHA-256 object name.
func LooksLikeCommitID(value string) bool {
	if len(value) != commitHexadecimalLengthSHA1 && len(value) != commitHexadecimalLengthSHA256 {
		return false
	}
	for _, character := range value {
		if !strings.ContainsRune(hexadecimalAlphabetConstant, character) {
			return false
		}
	}
	return true
}

// Signature identifies the author of commits and annotated tags.
type Signature struct {
	Name  string
	Email string
}

// DefaultSignature returns the signature used when none is configured.
func DefaultSignature() Signature {
	return Signature{Name: defaultSignatureNameConstant, Email: defaultSignatureEmailConstant}
}

// Sanitize fills blank fields from DefaultSignature.
func (signature Signature) Sanitize() Signature {
	sanitized := Signature{Name: strings.TrimSpace(signature.Name), Email: strings.TrimSpace(signature.Email)}
	defaults := DefaultSignature()
	if len(sanitized.Name) == 0 {
		sanitized.Name = defaults.Name
	}
	if len(sanitized.Email) == 0 {
		sanitized.Email = defaults.Email
	}
	return sanitized
}

// String renders the signature as "Name <email>".
func (signature Signature) String() string {
	return fmt.Sprintf(signatureDescriptionTemplate, signature.Name, signature.Email)
}

// Handle identifies one opened working copy. Implementations attach their own session
// state; callers treat it as opaque and pass it to every operation.
type Handle struct {
	path    string
	session any
}

// NewHandle constructs a handle for the working copy at path.
func NewHandle(path string, session any) *Handle {
	return &Handle{path: path, session: session}
}

// Path returns the working copy path.
func (handle *Handle) Path() string {
	if handle == nil {
		return ""
	}
	return handle.path
}

// Session returns implementation specific state attached by the client that opened the handle.
func (handle *Handle) Session() any {
	if handle == nil {
		return nil
	}
	return handle.session
}

// String describes the handle for logs.
func (handle *Handle) String() string {
	return fmt.Sprintf(handleDescriptionTemplate, handle.Path())
}

// RefSpec describes a push mapping such as refs/heads/main:refs/heads/main.
type RefSpec string

// NewRefSpec builds a push refspec from source to destination.
func NewRefSpec(source string, destination string, force bool) RefSpec {
	prefix := ""
	if force {
		prefix = forceRefSpecPrefixConstant
	}
	return RefSpec(fmt.Sprintf(refSpecTemplateConstant, prefix, source, destination))
}

// DeleteRefSpec builds a push refspec deleting destination on the remote.
func DeleteRefSpec(destination string) RefSpec {
	return RefSpec(fmt.Sprintf(deleteRefSpecTemplateConstant, destination))
}

// Source returns the local side of the refspec, empty for deletions.
func (refSpec RefSpec) Source() string {
	source, _, _ := refSpec.split()
	return source
}

// Destination returns the remote side of the refspec.
func (refSpec RefSpec) Destination() string {
	_, destination, _ := refSpec.split()
	return destination
}

// IsForce reports whether the refspec forces a non-fast-forward update.
func (refSpec RefSpec) IsForce() bool {
	return strings.HasPrefix(string(refSpec), forceRefSpecPrefixConstant)
}

// IsDelete reports whether the refspec deletes its destination.
func (refSpec RefSpec) IsDelete() bool {
	source, destination, _ := refSpec.split()
	return len(source) == 0 && len(destination) > 0
}

// String returns the textual refspec.
func (refSpec RefSpec) String() string {
	if len(refSpec) == 0 {
		return emptyRefSpecDescriptionMessage
	}
	return string(refSpec)
}

func (refSpec RefSpec) split() (string, string, bool) {
	trimmed := strings.TrimPrefix(string(refSpec), forceRefSpecPrefixConstant)
	source, destination, found := strings.Cut(trimmed, refSpecSeparatorConstant)
	if !found {
		return trimmed, trimmed, false
	}
	return source, destination, true
}

// BranchReference returns the fully qualified reference of a local branch.
func BranchReference(branchName string) string {
	if strings.HasPrefix(branchName, branchReferencePrefixConstant) {
		return branchName
	}
	return branchReferencePrefixConstant + branchName
}

// TagReference returns the fully qualified reference of a tag.
func TagReference(tagName string) string {
	if strings.HasPrefix(tagName, tagReferencePrefixConstant) {
		return tagName
	}
	return tagReferencePrefixConstant + tagName
}

// IsTagReference reports whether reference names a tag.
func IsTagReference(reference string) bool {
	return strings.HasPrefix(reference, tagReferencePrefixConstant)
}

// IsBranchReference reports whether reference names a branch.
func IsBranchReference(reference string) bool {
	return strings.HasPrefix(reference, branchReferencePrefixConstant)
}

// ShortReferenceName strips refs/heads/ or refs/tags/ from reference.
func ShortReferenceName(reference string) string {
	switch {
	case IsBranchReference(reference):
		return strings.TrimPrefix(reference, branchReferencePrefixConstant)
	case IsTagReference(reference):
		return strings.TrimPrefix(reference, tagReferencePrefixConstant)
	default:
		return reference
	}
}

// Client performs version-control operations on explicitly opened handles.
type Client interface {
	// Clone copies remoteURL into localPath and opens the resulting working copy.
	Clone(executionContext context.Context, remoteURL string, localPath string) (*Handle, error)
	// Open opens the working copy at localPath. Fails with ErrNotAGitRepository.
	Open(executionContext context.Context, localPath string) (*Handle, error)
	// IsClean reports whether the working tree and index carry no uncommitted changes.
	IsClean(executionContext context.Context, handle *Handle) (bool, error)
	// CurrentCommit resolves HEAD.
	CurrentCommit(executionContext context.Context, handle *Handle) (CommitID, error)
	// CurrentBranch returns the checked out branch name, empty when HEAD is detached.
	CurrentBranch(executionContext context.Context, handle *Handle) (string, error)
	// Commit stages every change in the working tree and records a commit.
	Commit(executionContext context.Context, handle *Handle, message string) (CommitID, error)
	// Tag creates an annotated tag pointing at commit.
	Tag(executionContext context.Context, handle *Handle, name string, commit CommitID, message string) error
	// TagExists reports whether a local tag exists.
	TagExists(executionContext context.Context, handle *Handle, name string) (bool, error)
	// DeleteTag removes a local tag.
	DeleteTag(executionContext context.Context, handle *Handle, name string) error
	// ResetHard moves the current branch, index and working tree to commit.
	ResetHard(executionContext context.Context, handle *Handle, commit CommitID) error
	// CreateBranch creates a local branch at commit without checking it out.
	CreateBranch(executionContext context.Context, handle *Handle, name string, commit CommitID) error
	// Checkout switches the working tree to a local branch.
	Checkout(executionContext context.Context, handle *Handle, branch string) error
	// DeleteLocalBranch removes a local branch that is not checked out.
	DeleteLocalBranch(executionContext context.Context, handle *Handle, name string) error
	// Push updates remote refs. Fails with ErrAuthentication, ErrRejected or ErrTransport.
	Push(executionContext context.Context, handle *Handle, remoteName string, refSpecs []RefSpec) error
	// RemoteReference resolves reference on the remote and reports whether it exists.
	// Fails with ErrAuthentication or ErrTransport.
	RemoteReference(executionContext context.Context, handle *Handle, remoteName string, reference string) (CommitID, bool, error)
	// DeleteRemoteRef removes reference from the remote. Fails with ErrTransport.
	DeleteRemoteRef(executionContext context.Context, handle *Handle, remoteName string, reference string) error
	// SetRemote creates or replaces the URL of a named remote.
	SetRemote(executionContext context.Context, handle *Handle, name string, url string) error
	// RemoveRemote deletes a named remote. A missing remote is not an error.
	RemoveRemote(executionContext context.Context, handle *Handle, name string) error
	// RemoteURL returns the first URL configured for a remote and whether the remote exists.
	RemoteURL(executionContext context.Context, handle *Handle, name string) (string, bool, error)
}
