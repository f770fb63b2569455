package train_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"github.com/temirov/reltrain/internal/descriptor"
	"github.com/temirov/reltrain/internal/train"
	"github.com/temirov/reltrain/internal/vcs"
	"github.com/temirov/reltrain/internal/vcs/gogit"
	"github.com/temirov/reltrain/internal/version"
)

const (
	integrationBranchReference = "refs/heads/master"
	integrationDescriptorName  = "release.yaml"
)

var integrationCommitTime = time.Date(2024, time.June, 3, 9, 30, 0, 0, time.UTC)

type integrationRepository struct {
	id             string
	workPath       string
	remotePath     string
	descriptorPath string
	initialCommit  vcs.CommitID
}

type integrationFixture struct {
	client       *gogit.Client
	descriptors  *descriptor.YAMLDescriptor
	repositories map[string]integrationRepository
	plan         train.ReleasePlan
}

func newIntegrationFixture(testInstance *testing.T) integrationFixture {
	testInstance.Helper()
	client := gogit.NewClient(gogit.Options{
		Author:                 vcs.Signature{Name: "Release Bot", Email: "bot@example.com"},
		Clock:                  func() time.Time { return integrationCommitTime },
		InProcessFileTransport: true,
	})
	descriptors := descriptor.NewYAMLDescriptor()
	baseDirectory := testInstance.TempDir()

	contents := map[string]string{
		alphaRepositoryID:   "version: 1.2.0\n",
		bravoRepositoryID:   "version: 1.9.0\ndependencies:\n  alpha: 1.2.0 # consumed api\n",
		charlieRepositoryID: "version: 5.0.3\ndependencies:\n  bravo: 1.9.0\n",
	}
	targets := map[string]string{alphaRepositoryID: "1.3.0", bravoRepositoryID: "2.0.0", charlieRepositoryID: "5.1.0"}

	repositories := map[string]integrationRepository{}
	entries := make([]train.PlanEntry, 0, len(contents))
	for _, repositoryID := range []string{alphaRepositoryID, bravoRepositoryID, charlieRepositoryID} {
		repository := initializeIntegrationRepository(testInstance, client, baseDirectory, repositoryID, contents[repositoryID])
		repositories[repositoryID] = repository

		currentVersion, readError := descriptors.ReadVersion(repository.descriptorPath)
		require.NoError(testInstance, readError)
		dependencies, dependenciesError := descriptors.ReadDependencyVersions(repository.descriptorPath)
		require.NoError(testInstance, dependenciesError)
		entries = append(entries, train.PlanEntry{
			Repository: train.RepositoryDescriptor{
				ID:                 repositoryID,
				LocalPath:          repository.workPath,
				RemoteURL:          "file://" + repository.remotePath,
				DescriptorPath:     repository.descriptorPath,
				CurrentVersion:     currentVersion,
				DependencyVersions: dependencies,
			},
			TargetVersion: version.MustParse(targets[repositoryID]),
		})
	}

	plan, planError := train.NewReleasePlan(entries)
	require.NoError(testInstance, planError)
	return integrationFixture{client: client, descriptors: descriptors, repositories: repositories, plan: plan}
}

func initializeIntegrationRepository(testInstance *testing.T, client *gogit.Client, baseDirectory string, repositoryID string, contents string) integrationRepository {
	testInstance.Helper()
	executionContext := context.Background()
	remotePath := filepath.Join(baseDirectory, repositoryID+".git")
	workPath := filepath.Join(baseDirectory, repositoryID)

	_, initError := git.PlainInit(remotePath, true)
	require.NoError(testInstance, initError)
	_, initError = git.PlainInit(workPath, false)
	require.NoError(testInstance, initError)

	descriptorPath := filepath.Join(workPath, integrationDescriptorName)
	require.NoError(testInstance, os.WriteFile(descriptorPath, []byte(contents), 0o644))

	handle, openError := client.Open(executionContext, workPath)
	require.NoError(testInstance, openError)
	initialCommit, commitError := client.Commit(executionContext, handle, "initial "+repositoryID)
	require.NoError(testInstance, commitError)
	require.NoError(testInstance, client.SetRemote(executionContext, handle, vcs.DefaultRemoteName, "file://"+remotePath))
	require.NoError(testInstance, client.Push(executionContext, handle, vcs.DefaultRemoteName, []vcs.RefSpec{
		vcs.NewRefSpec(integrationBranchReference, integrationBranchReference, false),
	}))

	return integrationRepository{
		id:             repositoryID,
		workPath:       workPath,
		remotePath:     remotePath,
		descriptorPath: descriptorPath,
		initialCommit:  initialCommit,
	}
}

func (fixture integrationFixture) newOrchestrator(testInstance *testing.T) *train.Orchestrator {
	testInstance.Helper()
	orchestrator, constructionError := train.NewOrchestrator(train.Dependencies{
		Client:      fixture.client,
		Descriptors: fixture.descriptors,
		RetryPolicy: vcs.RetryPolicy{Attempts: 2, Sleep: noSleep},
	}, train.DefaultSettings())
	require.NoError(testInstance, constructionError)
	return orchestrator
}

func bareReference(testInstance *testing.T, remotePath string, reference string) (string, bool) {
	testInstance.Helper()
	repository, openError := git.PlainOpen(remotePath)
	require.NoError(testInstance, openError)
	resolved, lookupError := repository.Reference(plumbing.ReferenceName(reference), true)
	if lookupError != nil {
		return "", false
	}
	return resolved.Hash().String(), true
}

// divergeRemote pushes an unrelated commit to the remote so the next plain push is rejected.
func divergeRemote(testInstance *testing.T, client *gogit.Client, repository integrationRepository) {
	testInstance.Helper()
	executionContext := context.Background()
	clonePath := filepath.Join(testInstance.TempDir(), repository.id+"-diverged")
	handle, cloneError := client.Clone(executionContext, "file://"+repository.remotePath, clonePath)
	require.NoError(testInstance, cloneError)
	require.NoError(testInstance, os.WriteFile(filepath.Join(clonePath, "NOTES.md"), []byte("hotfix\n"), 0o644))
	_, commitError := client.Commit(executionContext, handle, "hotfix on the remote")
	require.NoError(testInstance, commitError)
	require.NoError(testInstance, client.Push(executionContext, handle, vcs.DefaultRemoteName, []vcs.RefSpec{
		vcs.NewRefSpec(integrationBranchReference, integrationBranchReference, false),
	}))
}

func TestReleaseTrainEndToEnd(testInstance *testing.T) {
	fixture := newIntegrationFixture(testInstance)
	orchestrator := fixture.newOrchestrator(testInstance)

	report, releaseError := orchestrator.Release(context.Background(), fixture.plan)
	require.NoError(testInstance, releaseError)
	require.Equal(testInstance, []train.Outcome{train.OutcomeSucceeded, train.OutcomeSucceeded, train.OutcomeSucceeded}, outcomes(report))

	expectations := []struct {
		id           string
		version      string
		tag          string
		dependencyID string
		dependency   string
	}{
		{id: alphaRepositoryID, version: "1.3.0", tag: "v1.3.0"},
		{id: bravoRepositoryID, version: "2.0.0", tag: "v2.0.0", dependencyID: alphaRepositoryID, dependency: "1.3.0"},
		{id: charlieRepositoryID, version: "5.1.0", tag: "v5.1.0", dependencyID: bravoRepositoryID, dependency: "2.0.0"},
	}
	for _, expected := range expectations {
		repository := fixture.repositories[expected.id]
		releasedVersion, readError := fixture.descriptors.ReadVersion(repository.descriptorPath)
		require.NoError(testInstance, readError)
		require.Equal(testInstance, expected.version, releasedVersion.String())
		if len(expected.dependencyID) > 0 {
			dependencies, dependenciesError := fixture.descriptors.ReadDependencyVersions(repository.descriptorPath)
			require.NoError(testInstance, dependenciesError)
			require.Equal(testInstance, expected.dependency, dependencies[expected.dependencyID].String())
		}

		entry, _ := report.Entry(expected.id)
		require.Equal(testInstance, expected.tag, entry.Tag)
		remoteHead, branchFound := bareReference(testInstance, repository.remotePath, integrationBranchReference)
		require.True(testInstance, branchFound)
		require.Equal(testInstance, entry.CommitID.String(), remoteHead)
		_, tagFound := bareReference(testInstance, repository.remotePath, vcs.TagReference(expected.tag))
		require.True(testInstance, tagFound)
	}

	contents, readError := os.ReadFile(fixture.repositories[bravoRepositoryID].descriptorPath)
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(contents), "# consumed api")
}

func TestReleaseTrainEndToEndRollsBackRejectedPush(testInstance *testing.T) {
	fixture := newIntegrationFixture(testInstance)
	divergeRemote(testInstance, fixture.client, fixture.repositories[charlieRepositoryID])
	divergedHead, _ := bareReference(testInstance, fixture.repositories[charlieRepositoryID].remotePath, integrationBranchReference)
	orchestrator := fixture.newOrchestrator(testInstance)

	report, releaseError := orchestrator.Release(context.Background(), fixture.plan)
	require.ErrorIs(testInstance, releaseError, vcs.ErrRejected)
	require.Equal(testInstance, []train.Outcome{train.OutcomeRolledBack, train.OutcomeRolledBack, train.OutcomeRolledBack}, outcomes(report))
	require.Empty(testInstance, report.CompensationFailures())

	executionContext := context.Background()
	originalVersions := map[string]string{alphaRepositoryID: "1.2.0", bravoRepositoryID: "1.9.0", charlieRepositoryID: "5.0.3"}
	tags := map[string]string{alphaRepositoryID: "v1.3.0", bravoRepositoryID: "v2.0.0", charlieRepositoryID: "v5.1.0"}
	for repositoryID, repository := range fixture.repositories {
		handle, openError := fixture.client.Open(executionContext, repository.workPath)
		require.NoError(testInstance, openError)

		head, headError := fixture.client.CurrentCommit(executionContext, handle)
		require.NoError(testInstance, headError)
		require.Equal(testInstance, repository.initialCommit, head, repositoryID)

		clean, statusError := fixture.client.IsClean(executionContext, handle)
		require.NoError(testInstance, statusError)
		require.True(testInstance, clean, repositoryID)

		currentVersion, readError := fixture.descriptors.ReadVersion(repository.descriptorPath)
		require.NoError(testInstance, readError)
		require.Equal(testInstance, originalVersions[repositoryID], currentVersion.String())

		tagExists, tagError := fixture.client.TagExists(executionContext, handle, tags[repositoryID])
		require.NoError(testInstance, tagError)
		require.False(testInstance, tagExists, repositoryID)
		_, remoteTagFound := bareReference(testInstance, repository.remotePath, vcs.TagReference(tags[repositoryID]))
		require.False(testInstance, remoteTagFound, repositoryID)

		remoteHead, _ := bareReference(testInstance, repository.remotePath, integrationBranchReference)
		if repositoryID == charlieRepositoryID {
			require.Equal(testInstance, divergedHead, remoteHead)
			continue
		}
		require.Equal(testInstance, repository.initialCommit.String(), remoteHead, repositoryID)
	}
}

func TestReleaseTrainEndToEndRetryIsReproducible(testInstance *testing.T) {
	fixture := newIntegrationFixture(testInstance)
	charlie := fixture.repositories[charlieRepositoryID]
	divergeRemote(testInstance, fixture.client, charlie)
	orchestrator := fixture.newOrchestrator(testInstance)

	_, firstError := orchestrator.Release(context.Background(), fixture.plan)
	require.ErrorIs(testInstance, firstError, vcs.ErrRejected)

	require.NoError(testInstance, os.RemoveAll(charlie.remotePath))
	_, initError := git.PlainInit(charlie.remotePath, true)
	require.NoError(testInstance, initError)

	report, secondError := orchestrator.Release(context.Background(), fixture.plan)
	require.NoError(testInstance, secondError)
	require.True(testInstance, report.Succeeded())

	alphaEntry, _ := report.Entry(alphaRepositoryID)
	alphaRepository, openError := git.PlainOpen(fixture.repositories[alphaRepositoryID].workPath)
	require.NoError(testInstance, openError)
	commit, commitError := alphaRepository.CommitObject(plumbing.NewHash(alphaEntry.CommitID.String()))
	require.NoError(testInstance, commitError)
	require.Equal(testInstance, "Release alpha 1.3.0", strings.TrimSpace(commit.Message))
}

func TestReleaseTrainEndToEndRestoresRemoteTipNotLocalHead(testInstance *testing.T) {
	fixture := newIntegrationFixture(testInstance)
	executionContext := context.Background()
	alpha := fixture.repositories[alphaRepositoryID]
	alphaHandle, openError := fixture.client.Open(executionContext, alpha.workPath)
	require.NoError(testInstance, openError)
	require.NoError(testInstance, os.WriteFile(filepath.Join(alpha.workPath, "NOTES.md"), []byte("local only\n"), 0o644))
	unpushedCommit, commitError := fixture.client.Commit(executionContext, alphaHandle, "local work not yet pushed")
	require.NoError(testInstance, commitError)

	divergeRemote(testInstance, fixture.client, fixture.repositories[charlieRepositoryID])
	orchestrator := fixture.newOrchestrator(testInstance)

	report, releaseError := orchestrator.Release(executionContext, fixture.plan)
	require.ErrorIs(testInstance, releaseError, vcs.ErrRejected)
	require.Empty(testInstance, report.CompensationFailures())

	remoteHead, branchFound := bareReference(testInstance, alpha.remotePath, integrationBranchReference)
	require.True(testInstance, branchFound)
	require.Equal(testInstance, alpha.initialCommit.String(), remoteHead)

	localHead, headError := fixture.client.CurrentCommit(executionContext, alphaHandle)
	require.NoError(testInstance, headError)
	require.Equal(testInstance, unpushedCommit, localHead)
}

func TestReleaseTrainEndToEndDeletesBranchThatWasAbsentOnRemote(testInstance *testing.T) {
	fixture := newIntegrationFixture(testInstance)
	bravo := fixture.repositories[bravoRepositoryID]
	require.NoError(testInstance, os.RemoveAll(bravo.remotePath))
	_, initError := git.PlainInit(bravo.remotePath, true)
	require.NoError(testInstance, initError)

	divergeRemote(testInstance, fixture.client, fixture.repositories[charlieRepositoryID])
	orchestrator := fixture.newOrchestrator(testInstance)

	report, releaseError := orchestrator.Release(context.Background(), fixture.plan)
	require.ErrorIs(testInstance, releaseError, vcs.ErrRejected)
	require.Equal(testInstance, []train.Outcome{train.OutcomeRolledBack, train.OutcomeRolledBack, train.OutcomeRolledBack}, outcomes(report))
	require.Empty(testInstance, report.CompensationFailures())

	_, branchFound := bareReference(testInstance, bravo.remotePath, integrationBranchReference)
	require.False(testInstance, branchFound)
	_, tagFound := bareReference(testInstance, bravo.remotePath, vcs.TagReference("v2.0.0"))
	require.False(testInstance, tagFound)

	alphaHead, _ := bareReference(testInstance, fixture.repositories[alphaRepositoryID].remotePath, integrationBranchReference)
	require.Equal(testInstance, fixture.repositories[alphaRepositoryID].initialCommit.String(), alphaHead)
}
