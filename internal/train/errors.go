package train

import (
	"errors"
	"fmt"
)

// Step names the protocol step a repository failed at.
type Step string

// Protocol steps.
const (
	StepPreflight        Step = "pre-flight"
	StepCheckpoint       Step = "checkpoint"
	StepReleaseBranch    Step = "release branch"
	StepDescriptorUpdate Step = "descriptor update"
	StepCommit           Step = "commit"
	StepTag              Step = "tag"
	StepPushBranch       Step = "push branch"
	StepPushTag          Step = "push tag"
)

const (
	clientNotConfiguredMessage      = "version control client not configured"
	descriptorsNotConfiguredMessage = "descriptor writer not configured"
	runCancelledMessage             = "release run cancelled"
	detachedHeadMessage             = "working copy has a detached HEAD"
	dirtyWorkingCopyTemplate        = "repository %s has uncommitted changes in %s"
	tagExistsTemplate               = "repository %s already has tag %s"
	repositoryFailureTemplate       = "release %s failed at %s: %v"
)

var (
	// ErrClientNotConfigured indicates the orchestrator was built without a vcs.Client.
	ErrClientNotConfigured = errors.New(clientNotConfiguredMessage)
	// ErrDescriptorsNotConfigured indicates the orchestrator was built without a descriptor writer.
	ErrDescriptorsNotConfigured = errors.New(descriptorsNotConfiguredMessage)
	// ErrRunCancelled indicates the run stopped between repositories because its context ended.
	ErrRunCancelled = errors.New(runCancelledMessage)
	// ErrDetachedHead indicates a working copy without a checked out branch.
	ErrDetachedHead = errors.New(detachedHeadMessage)
)

// DirtyWorkingCopyError reports uncommitted changes found during pre-flight.
type DirtyWorkingCopyError struct {
	RepositoryID string
	Path         string
}

// Error describes the dirty repository.
func (dirtyError *DirtyWorkingCopyError) Error() string {
	return fmt.Sprintf(dirtyWorkingCopyTemplate, dirtyError.RepositoryID, dirtyError.Path)
}

// TagExistsError reports a release tag that already exists before the run starts.
type TagExistsError struct {
	RepositoryID string
	Tag          string
}

// Error describes the colliding tag.
func (tagError *TagExistsError) Error() string {
	return fmt.Sprintf(tagExistsTemplate, tagError.RepositoryID, tagError.Tag)
}

// RepositoryFailureError reports the repository and step that stopped a run.
type RepositoryFailureError struct {
	RepositoryID string
	Step         Step
	Cause        error
}

// Error describes the failure.
func (failureError *RepositoryFailureError) Error() string {
	return fmt.Sprintf(repositoryFailureTemplate, failureError.RepositoryID, failureError.Step, failureError.Cause)
}

// Unwrap exposes the cause.
func (failureError *RepositoryFailureError) Unwrap() error {
	return failureError.Cause
}
