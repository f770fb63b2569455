package train

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/reltrain/internal/descriptor"
	"github.com/temirov/reltrain/internal/gitrepo"
	"github.com/temirov/reltrain/internal/vcs"
	"github.com/temirov/reltrain/internal/version"
)

const (
	identifierPlaceholderConstant         = "{id}"
	versionPlaceholderConstant            = "{version}"
	defaultTagPrefixConstant              = "v"
	defaultCommitMessageTemplateConstant  = "Release {id} {version}"
	defaultReleaseBranchTemplateConstant  = "release/{id}-{version}"
	cancellationErrorTemplateConstant     = "%w: %w"
	releasedDetailTemplateConstant        = "released %s"
	rolledBackAfterDetailTemplate         = "rolled back after %s failed"
	skippedAfterFailureDetailTemplate     = "not released because %s failed"
	skippedAfterPreflightDetailTemplate   = "not released: %v"
	skippedAfterCancellationDetailMessage = "not released: run cancelled"

	resetHardDescriptionTemplate         = "reset to %s"
	removeReleaseBranchDescriptionFormat = "remove local branch %s"
	deleteLocalTagDescriptionTemplate    = "delete local tag %s"
	restoreRemoteBranchDescriptionFormat = "restore remote %s to %s"
	deleteRemoteRefDescriptionTemplate   = "delete remote %s"
	restoreRemoteURLDescriptionTemplate  = "restore remote configuration %s"

	releaseStartedMessage         = "Release run started"
	releaseCompletedMessage       = "Release run completed"
	releaseCancelledMessage       = "Release run cancelled"
	preflightFailedMessage        = "Pre-flight check failed"
	remoteConfiguredMessage       = "Configured release remote"
	remoteRestoredMessage         = "Restored release remote"
	repositoryStartedMessage      = "Releasing repository"
	repositoryReleasedMessage     = "Repository released"
	repositoryFailedMessage       = "Repository release failed"
	repositoryRolledBackMessage   = "Repository rolled back"
	releaseCommitCreatedMessage   = "Release commit created"
	releaseTagCreatedMessage      = "Release tag created"
	referencePushedMessage        = "Pushed reference"
	pushRetryScheduledMessage     = "Retrying push after transport failure"
	compensationFailedMessage     = "Compensation failed"
	repositoryFieldName           = "repository"
	versionFieldName              = "version"
	commitFieldName               = "commit"
	tagFieldName                  = "tag"
	branchFieldName               = "branch"
	referenceFieldName            = "reference"
	remoteFieldName               = "remote"
	remoteURLFieldName            = "remote_url"
	previousRemoteURLFieldName    = "previous_remote_url"
	remoteCommitFieldName         = "remote_commit"
	stepFieldName                 = "step"
	countFieldName                = "repositories"
	attemptFieldName              = "attempt"
	delayFieldName                = "delay"
	compensationFieldName         = "compensation"
	compensationFailuresFieldName = "compensation_failures"
	pushedReferencesFieldName     = "pushed_references"
)

// Dependencies are the collaborators of an Orchestrator.
type Dependencies struct {
	Client      vcs.Client
	Descriptors descriptor.Writer
	Logger      *zap.Logger
	RetryPolicy vcs.RetryPolicy
}

// Settings control the names and refs the orchestrator produces.
type Settings struct {
	RemoteName            string
	TagPrefix             string
	CommitMessageTemplate string
	ReleaseBranch         bool
	ReleaseBranchTemplate string
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		RemoteName:            vcs.DefaultRemoteName,
		TagPrefix:             defaultTagPrefixConstant,
		CommitMessageTemplate: defaultCommitMessageTemplateConstant,
		ReleaseBranchTemplate: defaultReleaseBranchTemplateConstant,
	}
}

// Sanitize trims values and fills blank names from DefaultSettings. An empty tag prefix is kept.
func (settings Settings) Sanitize() Settings {
	defaults := DefaultSettings()
	sanitized := Settings{
		RemoteName:            strings.TrimSpace(settings.RemoteName),
		TagPrefix:             strings.TrimSpace(settings.TagPrefix),
		CommitMessageTemplate: strings.TrimSpace(settings.CommitMessageTemplate),
		ReleaseBranch:         settings.ReleaseBranch,
		ReleaseBranchTemplate: strings.TrimSpace(settings.ReleaseBranchTemplate),
	}
	if len(sanitized.RemoteName) == 0 {
		sanitized.RemoteName = defaults.RemoteName
	}
	if len(sanitized.CommitMessageTemplate) == 0 {
		sanitized.CommitMessageTemplate = defaults.CommitMessageTemplate
	}
	if len(sanitized.ReleaseBranchTemplate) == 0 {
		sanitized.ReleaseBranchTemplate = defaults.ReleaseBranchTemplate
	}
	return sanitized
}

// CommitMessage renders the release commit message of repositoryID at target.
func (settings Settings) CommitMessage(repositoryID string, target version.Version) string {
	return expandTemplate(settings.CommitMessageTemplate, repositoryID, target)
}

// TagName renders the release tag of target.
func (settings Settings) TagName(target version.Version) string {
	return settings.TagPrefix + target.String()
}

// ReleaseBranchName renders the release branch of repositoryID at target.
func (settings Settings) ReleaseBranchName(repositoryID string, target version.Version) string {
	return expandTemplate(settings.ReleaseBranchTemplate, repositoryID, target)
}

func expandTemplate(template string, repositoryID string, target version.Version) string {
	replacer := strings.NewReplacer(identifierPlaceholderConstant, repositoryID, versionPlaceholderConstant, target.String())
	return replacer.Replace(template)
}

// Orchestrator releases plans one repository at a time.
type Orchestrator struct {
	client      vcs.Client
	descriptors descriptor.Writer
	logger      *zap.Logger
	retryPolicy vcs.RetryPolicy
	settings    Settings
}

type repositoryRun struct {
	entry      PlanEntry
	repository *gitrepo.Handle
	branch     string
	tag        string
	remote     gitrepo.RemoteConfiguration
	checkpoint *checkpoint
}

// NewOrchestrator validates dependencies and constructs an Orchestrator.
func NewOrchestrator(dependencies Dependencies, settings Settings) (*Orchestrator, error) {
	if dependencies.Client == nil {
		return nil, ErrClientNotConfigured
	}
	if dependencies.Descriptors == nil {
		return nil, ErrDescriptorsNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	retryPolicy := dependencies.RetryPolicy.Sanitize()
	if retryPolicy.OnRetry == nil {
		retryPolicy.OnRetry = func(attempt int, delay time.Duration, failure error) {
			logger.Warn(pushRetryScheduledMessage, zap.Int(attemptFieldName, attempt), zap.Duration(delayFieldName, delay), zap.Error(failure))
		}
	}

	return &Orchestrator{
		client:      dependencies.Client,
		descriptors: dependencies.Descriptors,
		logger:      logger,
		retryPolicy: retryPolicy,
		settings:    settings.Sanitize(),
	}, nil
}

// Settings returns the sanitized settings in effect.
func (orchestrator *Orchestrator) Settings() Settings {
	return orchestrator.settings
}

// Release runs the update protocol for every plan entry in order.
//
// Pre-flight checks every repository before anything is mutated. When a repository
// fails, it and every repository released before it are rolled back and the returned
// error is a *RepositoryFailureError. When executionContext ends between repositories,
// the run stops, keeps released repositories, and returns an error matching ErrRunCancelled.
func (orchestrator *Orchestrator) Release(executionContext context.Context, plan ReleasePlan) (Report, error) {
	entries := plan.Entries()
	report := Report{Entries: make([]Entry, len(entries))}
	for index, entry := range entries {
		report.Entries[index] = Entry{RepositoryID: entry.Repository.ID, Outcome: OutcomeSkipped}
	}
	orchestrator.logger.Info(releaseStartedMessage, zap.Int(countFieldName, len(entries)))

	runs, preflightError := orchestrator.preflight(executionContext, entries)
	if preflightError != nil {
		restoreContext := context.WithoutCancel(executionContext)
		if executionContext.Err() != nil {
			cancelledReport, cancelError := orchestrator.cancel(executionContext, report, 0)
			orchestrator.restoreRemotes(restoreContext, cancelledReport.Entries, runs)
			return cancelledReport, cancelError
		}
		orchestrator.logger.Error(preflightFailedMessage, zap.Error(preflightError))
		markSkipped(report.Entries, 0, fmt.Sprintf(skippedAfterPreflightDetailTemplate, preflightError))
		orchestrator.restoreRemotes(restoreContext, report.Entries, runs)
		return report, preflightError
	}

	stepContext := context.WithoutCancel(executionContext)
	for index, run := range runs {
		if executionContext.Err() != nil {
			return orchestrator.cancel(executionContext, report, index)
		}

		commitID, releaseError := orchestrator.releaseRepository(stepContext, plan, run)
		if releaseError != nil {
			orchestrator.rollback(stepContext, report.Entries, runs, index, releaseError)
			return report, releaseError
		}

		report.Entries[index] = Entry{
			RepositoryID: run.entry.Repository.ID,
			Outcome:      OutcomeSucceeded,
			Detail:       fmt.Sprintf(releasedDetailTemplateConstant, run.entry.TargetVersion),
			CommitID:     commitID,
			Tag:          run.tag,
		}
	}

	orchestrator.logger.Info(releaseCompletedMessage, zap.Int(countFieldName, len(runs)))
	return report, nil
}

func (orchestrator *Orchestrator) cancel(executionContext context.Context, report Report, firstSkipped int) (Report, error) {
	report.Cancelled = true
	markSkipped(report.Entries, firstSkipped, skippedAfterCancellationDetailMessage)
	orchestrator.logger.Warn(releaseCancelledMessage, zap.Int(countFieldName, firstSkipped))
	return report, fmt.Errorf(cancellationErrorTemplateConstant, ErrRunCancelled, context.Cause(executionContext))
}

// preflight opens and checks every repository, then configures release remotes.
// On failure it returns the runs prepared so far so their remotes can be restored.
func (orchestrator *Orchestrator) preflight(executionContext context.Context, entries []PlanEntry) ([]*repositoryRun, error) {
	runs := make([]*repositoryRun, 0, len(entries))
	for _, entry := range entries {
		run, checkError := orchestrator.check(executionContext, entry)
		if checkError != nil {
			return runs, &RepositoryFailureError{RepositoryID: entry.Repository.ID, Step: StepPreflight, Cause: checkError}
		}
		runs = append(runs, run)
	}

	for _, run := range runs {
		remoteURL := strings.TrimSpace(run.entry.Repository.RemoteURL)
		if len(remoteURL) == 0 {
			continue
		}
		configuration, configureError := run.repository.ConfigureRemote(executionContext, orchestrator.settings.RemoteName, remoteURL)
		if configureError != nil {
			return runs, &RepositoryFailureError{RepositoryID: run.entry.Repository.ID, Step: StepPreflight, Cause: configureError}
		}
		run.remote = configuration
		if configuration.Change != gitrepo.RemoteUnchanged {
			orchestrator.logger.Info(remoteConfiguredMessage,
				zap.String(repositoryFieldName, run.entry.Repository.ID),
				zap.String(remoteFieldName, configuration.Name),
				zap.String(remoteURLFieldName, gitrepo.DisplayRemoteURL(configuration.URL)),
				zap.String(previousRemoteURLFieldName, gitrepo.DisplayRemoteURL(configuration.PreviousURL)))
		}
	}
	return runs, nil
}

func (orchestrator *Orchestrator) check(executionContext context.Context, entry PlanEntry) (*repositoryRun, error) {
	repositoryID := entry.Repository.ID
	repository, openError := gitrepo.Open(executionContext, orchestrator.client, entry.Repository.LocalPath)
	if openError != nil {
		return nil, openError
	}

	clean, statusError := repository.IsClean(executionContext)
	if statusError != nil {
		return nil, statusError
	}
	if !clean {
		return nil, &DirtyWorkingCopyError{RepositoryID: repositoryID, Path: repository.Path()}
	}

	branch, branchError := repository.CurrentBranch(executionContext)
	if branchError != nil {
		return nil, branchError
	}
	if len(branch) == 0 {
		return nil, ErrDetachedHead
	}

	tag := orchestrator.settings.TagName(entry.TargetVersion)
	exists, tagError := orchestrator.client.TagExists(executionContext, repository.VCS(), tag)
	if tagError != nil {
		return nil, tagError
	}
	if exists {
		return nil, &TagExistsError{RepositoryID: repositoryID, Tag: tag}
	}

	return &repositoryRun{entry: entry, repository: repository, branch: branch, tag: tag}, nil
}

// releaseRepository applies the update protocol to one repository, journaling a
// compensation after every step that changes state.
func (orchestrator *Orchestrator) releaseRepository(executionContext context.Context, plan ReleasePlan, run *repositoryRun) (vcs.CommitID, error) {
	repositoryID := run.entry.Repository.ID
	target := run.entry.TargetVersion
	client := orchestrator.client
	handle := run.repository.VCS()
	logger := orchestrator.logger.With(zap.String(repositoryFieldName, repositoryID), zap.String(versionFieldName, target.String()))
	logger.Info(repositoryStartedMessage)

	fail := func(step Step, cause error) error {
		logger.Error(repositoryFailedMessage, zap.String(stepFieldName, string(step)), zap.Error(cause))
		return &RepositoryFailureError{RepositoryID: repositoryID, Step: step, Cause: cause}
	}

	previousCommitID, headError := run.repository.CurrentCommitID(executionContext)
	if headError != nil {
		return "", fail(StepCheckpoint, headError)
	}
	state := newCheckpoint(repositoryID, previousCommitID, run.branch)
	run.checkpoint = state
	state.record(fmt.Sprintf(resetHardDescriptionTemplate, previousCommitID.Short()), func(compensationContext context.Context) error {
		return client.ResetHard(compensationContext, handle, previousCommitID)
	})

	workingBranch := run.branch
	if orchestrator.settings.ReleaseBranch {
		releaseBranch := orchestrator.settings.ReleaseBranchName(repositoryID, target)
		if createError := client.CreateBranch(executionContext, handle, releaseBranch, previousCommitID); createError != nil {
			return "", fail(StepReleaseBranch, createError)
		}
		state.createdBranch = releaseBranch
		state.record(fmt.Sprintf(removeReleaseBranchDescriptionFormat, releaseBranch), func(compensationContext context.Context) error {
			if checkoutError := client.Checkout(compensationContext, handle, state.previousBranch); checkoutError != nil {
				return checkoutError
			}
			return client.DeleteLocalBranch(compensationContext, handle, releaseBranch)
		})
		if checkoutError := client.Checkout(executionContext, handle, releaseBranch); checkoutError != nil {
			return "", fail(StepReleaseBranch, checkoutError)
		}
		workingBranch = releaseBranch
	}

	if updateError := orchestrator.updateDescriptor(plan, run.entry); updateError != nil {
		return "", fail(StepDescriptorUpdate, updateError)
	}

	commitMessage := orchestrator.settings.CommitMessage(repositoryID, target)
	commitID, commitError := client.Commit(executionContext, handle, commitMessage)
	if commitError != nil {
		return "", fail(StepCommit, commitError)
	}
	logger.Info(releaseCommitCreatedMessage, zap.String(commitFieldName, commitID.String()), zap.String(branchFieldName, workingBranch))

	if tagError := client.Tag(executionContext, handle, run.tag, commitID, commitMessage); tagError != nil {
		return "", fail(StepTag, tagError)
	}
	state.createdTag = run.tag
	state.record(fmt.Sprintf(deleteLocalTagDescriptionTemplate, run.tag), func(compensationContext context.Context) error {
		return client.DeleteTag(compensationContext, handle, run.tag)
	})
	logger.Info(releaseTagCreatedMessage, zap.String(tagFieldName, run.tag))

	branchReference := vcs.BranchReference(workingBranch)
	remoteCommitID, remoteBranchExists, lookupError := orchestrator.remoteReference(executionContext, handle, branchReference)
	if lookupError != nil {
		return "", fail(StepPushBranch, lookupError)
	}
	if pushError := orchestrator.push(executionContext, handle, vcs.NewRefSpec(branchReference, branchReference, false)); pushError != nil {
		return "", fail(StepPushBranch, pushError)
	}
	state.pushedRemoteRefs = append(state.pushedRemoteRefs, branchReference)
	if remoteBranchExists {
		state.previousRemoteCommitID = remoteCommitID
		restoreSpec := vcs.NewRefSpec(remoteCommitID.String(), branchReference, true)
		state.record(fmt.Sprintf(restoreRemoteBranchDescriptionFormat, branchReference, remoteCommitID.Short()), func(compensationContext context.Context) error {
			return orchestrator.push(compensationContext, handle, restoreSpec)
		})
	} else {
		state.record(fmt.Sprintf(deleteRemoteRefDescriptionTemplate, branchReference), func(compensationContext context.Context) error {
			return orchestrator.deleteRemoteRef(compensationContext, handle, branchReference)
		})
	}
	logger.Info(referencePushedMessage, zap.String(referenceFieldName, branchReference))

	tagReference := vcs.TagReference(run.tag)
	if pushError := orchestrator.push(executionContext, handle, vcs.NewRefSpec(tagReference, tagReference, false)); pushError != nil {
		return "", fail(StepPushTag, pushError)
	}
	state.pushedRemoteRefs = append(state.pushedRemoteRefs, tagReference)
	state.record(fmt.Sprintf(deleteRemoteRefDescriptionTemplate, tagReference), func(compensationContext context.Context) error {
		return orchestrator.deleteRemoteRef(compensationContext, handle, tagReference)
	})
	logger.Info(referencePushedMessage, zap.String(referenceFieldName, tagReference))

	logger.Info(repositoryReleasedMessage, zap.String(commitFieldName, commitID.String()), zap.String(tagFieldName, run.tag))
	return commitID, nil
}

// updateDescriptor writes the target version and the planned version of every in-plan dependency.
func (orchestrator *Orchestrator) updateDescriptor(plan ReleasePlan, entry PlanEntry) error {
	descriptorPath := entry.Repository.DescriptorPath
	if writeError := orchestrator.descriptors.WriteVersion(descriptorPath, entry.TargetVersion); writeError != nil {
		return writeError
	}
	for _, dependencyID := range descriptor.DependencyIDs(entry.Repository.DependencyVersions) {
		plannedVersion, planned := plan.TargetVersion(dependencyID)
		if !planned || dependencyID == entry.Repository.ID {
			continue
		}
		if writeError := orchestrator.descriptors.WriteDependencyVersion(descriptorPath, dependencyID, plannedVersion); writeError != nil {
			return writeError
		}
	}
	return nil
}

// rollback undoes the failed repository and then every repository released before it, newest first.
func (orchestrator *Orchestrator) rollback(executionContext context.Context, entries []Entry, runs []*repositoryRun, failedIndex int, failure error) {
	failedRun := runs[failedIndex]
	failedID := failedRun.entry.Repository.ID

	entries[failedIndex] = Entry{
		RepositoryID:         failedID,
		Outcome:              OutcomeRolledBack,
		Detail:               failure.Error(),
		CompensationFailures: orchestrator.compensate(executionContext, failedRun),
	}

	for index := failedIndex - 1; index >= 0; index-- {
		run := runs[index]
		entries[index] = Entry{
			RepositoryID:         run.entry.Repository.ID,
			Outcome:              OutcomeRolledBack,
			Detail:               fmt.Sprintf(rolledBackAfterDetailTemplate, failedID),
			CompensationFailures: orchestrator.compensate(executionContext, run),
		}
	}

	markSkipped(entries, failedIndex+1, fmt.Sprintf(skippedAfterFailureDetailTemplate, failedID))
	orchestrator.restoreRemotes(executionContext, entries, runs)
}

// restoreRemotes reverts pre-flight remote configuration, newest first, once nothing
// else needs the configured remotes. Failures are attached to the matching entry.
func (orchestrator *Orchestrator) restoreRemotes(executionContext context.Context, entries []Entry, runs []*repositoryRun) {
	for index := len(runs) - 1; index >= 0; index-- {
		run := runs[index]
		if run.remote.Change == gitrepo.RemoteUnchanged {
			continue
		}
		logger := orchestrator.logger.With(zap.String(repositoryFieldName, run.entry.Repository.ID), zap.String(remoteFieldName, run.remote.Name))
		description := fmt.Sprintf(restoreRemoteURLDescriptionTemplate, run.remote.Name)
		if restoreError := run.repository.RestoreRemote(executionContext, run.remote); restoreError != nil {
			logger.Error(compensationFailedMessage, zap.String(compensationFieldName, description), zap.Error(restoreError))
			entries[index].CompensationFailures = append(entries[index].CompensationFailures, fmt.Sprintf(compensationFailureTemplate, description, restoreError))
			continue
		}
		logger.Info(remoteRestoredMessage, zap.String(remoteURLFieldName, gitrepo.DisplayRemoteURL(run.remote.PreviousURL)))
		run.remote.Change = gitrepo.RemoteUnchanged
	}
}

func (orchestrator *Orchestrator) compensate(executionContext context.Context, run *repositoryRun) []string {
	if run.checkpoint == nil {
		return nil
	}
	logger := orchestrator.logger.With(zap.String(repositoryFieldName, run.entry.Repository.ID))
	failures := run.checkpoint.replay(executionContext, func(description string, failure error) {
		logger.Error(compensationFailedMessage, zap.String(compensationFieldName, description), zap.Error(failure))
	})
	logger.Info(repositoryRolledBackMessage,
		zap.String(commitFieldName, run.checkpoint.previousCommitID.String()),
		zap.String(remoteCommitFieldName, run.checkpoint.previousRemoteCommitID.String()),
		zap.String(tagFieldName, run.checkpoint.createdTag),
		zap.Strings(pushedReferencesFieldName, run.checkpoint.pushedRemoteRefs),
		zap.Int(compensationFailuresFieldName, len(failures)))
	return failures
}

func (orchestrator *Orchestrator) push(executionContext context.Context, handle *vcs.Handle, refSpec vcs.RefSpec) error {
	return orchestrator.retryPolicy.Do(executionContext, func(attemptContext context.Context) error {
		return orchestrator.client.Push(attemptContext, handle, orchestrator.settings.RemoteName, []vcs.RefSpec{refSpec})
	})
}

func (orchestrator *Orchestrator) remoteReference(executionContext context.Context, handle *vcs.Handle, reference string) (vcs.CommitID, bool, error) {
	var commitID vcs.CommitID
	var exists bool
	lookupError := orchestrator.retryPolicy.Do(executionContext, func(attemptContext context.Context) error {
		var attemptError error
		commitID, exists, attemptError = orchestrator.client.RemoteReference(attemptContext, handle, orchestrator.settings.RemoteName, reference)
		return attemptError
	})
	return commitID, exists, lookupError
}

func (orchestrator *Orchestrator) deleteRemoteRef(executionContext context.Context, handle *vcs.Handle, reference string) error {
	return orchestrator.retryPolicy.Do(executionContext, func(attemptContext context.Context) error {
		return orchestrator.client.DeleteRemoteRef(attemptContext, handle, orchestrator.settings.RemoteName, reference)
	})
}

func markSkipped(entries []Entry, firstIndex int, detail string) {
	for index := firstIndex; index < len(entries); index++ {
		entries[index] = Entry{RepositoryID: entries[index].RepositoryID, Outcome: OutcomeSkipped, Detail: detail}
	}
}
