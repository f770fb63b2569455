package gogit_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"github.com/temirov/reltrain/internal/vcs"
	"github.com/temirov/reltrain/internal/vcs/gogit"
)

const (
	testMainBranchName    = "master"
	testDescriptorName    = "release.yaml"
	testRemoteDirectory   = "remote.git"
	testWorkingDirectory  = "work"
	testReleaseTagName    = "v1.3.0"
	testReleaseTagMessage = "Release alpha 1.3.0"
)

var fixedTestTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

type repositoryFixture struct {
	client     *gogit.Client
	handle     *vcs.Handle
	remotePath string
	workPath   string
	initial    vcs.CommitID
}

func newRepositoryFixture(testInstance *testing.T) repositoryFixture {
	testInstance.Helper()
	baseDirectory := testInstance.TempDir()
	remotePath := filepath.Join(baseDirectory, testRemoteDirectory)
	workPath := filepath.Join(baseDirectory, testWorkingDirectory)

	_, initError := git.PlainInit(remotePath, true)
	require.NoError(testInstance, initError)
	_, initError = git.PlainInit(workPath, false)
	require.NoError(testInstance, initError)

	client := gogit.NewClient(gogit.Options{
		Author:                 vcs.Signature{Name: "Release Bot", Email: "bot@example.com"},
		Clock:                  func() time.Time { return fixedTestTime },
		InProcessFileTransport: true,
	})
	executionContext := context.Background()

	handle, openError := client.Open(executionContext, workPath)
	require.NoError(testInstance, openError)

	writeTestFile(testInstance, workPath, testDescriptorName, "version: 1.2.0\n")
	initial, commitError := client.Commit(executionContext, handle, "initial")
	require.NoError(testInstance, commitError)
	require.NoError(testInstance, client.SetRemote(executionContext, handle, vcs.DefaultRemoteName, "file://"+remotePath))

	return repositoryFixture{client: client, handle: handle, remotePath: remotePath, workPath: workPath, initial: initial}
}

func writeTestFile(testInstance *testing.T, directory string, name string, contents string) {
	testInstance.Helper()
	require.NoError(testInstance, os.WriteFile(filepath.Join(directory, name), []byte(contents), 0o644))
}

func remoteReferenceHash(testInstance *testing.T, remotePath string, reference string) (string, bool) {
	testInstance.Helper()
	repository, openError := git.PlainOpen(remotePath)
	require.NoError(testInstance, openError)
	resolved, lookupError := repository.Reference(plumbing.ReferenceName(reference), true)
	if lookupError != nil {
		return "", false
	}
	return resolved.Hash().String(), true
}

func TestOpenRejectsNonRepository(testInstance *testing.T) {
	client := gogit.NewClient(gogit.Options{})
	_, openError := client.Open(context.Background(), testInstance.TempDir())
	require.ErrorIs(testInstance, openError, vcs.ErrNotAGitRepository)
}

func TestCommitTracksCleanState(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	executionContext := context.Background()

	clean, statusError := fixture.client.IsClean(executionContext, fixture.handle)
	require.NoError(testInstance, statusError)
	require.True(testInstance, clean)

	writeTestFile(testInstance, fixture.workPath, testDescriptorName, "version: 1.3.0\n")
	writeTestFile(testInstance, fixture.workPath, "NOTES.md", "new file\n")
	clean, statusError = fixture.client.IsClean(executionContext, fixture.handle)
	require.NoError(testInstance, statusError)
	require.False(testInstance, clean)

	commitID, commitError := fixture.client.Commit(executionContext, fixture.handle, testReleaseTagMessage)
	require.NoError(testInstance, commitError)
	require.True(testInstance, vcs.LooksLikeCommitID(commitID.String()))

	head, headError := fixture.client.CurrentCommit(executionContext, fixture.handle)
	require.NoError(testInstance, headError)
	require.Equal(testInstance, commitID, head)

	clean, statusError = fixture.client.IsClean(executionContext, fixture.handle)
	require.NoError(testInstance, statusError)
	require.True(testInstance, clean)

	branch, branchError := fixture.client.CurrentBranch(executionContext, fixture.handle)
	require.NoError(testInstance, branchError)
	require.Equal(testInstance, testMainBranchName, branch)
}

func TestTagLifecycle(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	executionContext := context.Background()

	exists, lookupError := fixture.client.TagExists(executionContext, fixture.handle, testReleaseTagName)
	require.NoError(testInstance, lookupError)
	require.False(testInstance, exists)

	require.NoError(testInstance, fixture.client.Tag(executionContext, fixture.handle, testReleaseTagName, fixture.initial, testReleaseTagMessage))
	exists, lookupError = fixture.client.TagExists(executionContext, fixture.handle, testReleaseTagName)
	require.NoError(testInstance, lookupError)
	require.True(testInstance, exists)

	duplicateError := fixture.client.Tag(executionContext, fixture.handle, testReleaseTagName, fixture.initial, testReleaseTagMessage)
	require.ErrorIs(testInstance, duplicateError, vcs.ErrTagExists)

	require.NoError(testInstance, fixture.client.DeleteTag(executionContext, fixture.handle, testReleaseTagName))
	require.ErrorIs(testInstance, fixture.client.DeleteTag(executionContext, fixture.handle, testReleaseTagName), vcs.ErrTagMissing)
}

func TestResetHardRestoresPreviousCommit(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	executionContext := context.Background()

	writeTestFile(testInstance, fixture.workPath, testDescriptorName, "version: 1.3.0\n")
	_, commitError := fixture.client.Commit(executionContext, fixture.handle, testReleaseTagMessage)
	require.NoError(testInstance, commitError)

	require.NoError(testInstance, fixture.client.ResetHard(executionContext, fixture.handle, fixture.initial))

	head, headError := fixture.client.CurrentCommit(executionContext, fixture.handle)
	require.NoError(testInstance, headError)
	require.Equal(testInstance, fixture.initial, head)

	contents, readError := os.ReadFile(filepath.Join(fixture.workPath, testDescriptorName))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "version: 1.2.0\n", string(contents))
}

func TestBranchLifecycle(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	executionContext := context.Background()
	releaseBranch := "release/alpha-1.3.0"

	require.NoError(testInstance, fixture.client.CreateBranch(executionContext, fixture.handle, releaseBranch, fixture.initial))
	require.NoError(testInstance, fixture.client.Checkout(executionContext, fixture.handle, releaseBranch))

	branch, branchError := fixture.client.CurrentBranch(executionContext, fixture.handle)
	require.NoError(testInstance, branchError)
	require.Equal(testInstance, releaseBranch, branch)

	require.Error(testInstance, fixture.client.DeleteLocalBranch(executionContext, fixture.handle, releaseBranch))

	require.NoError(testInstance, fixture.client.Checkout(executionContext, fixture.handle, testMainBranchName))
	require.NoError(testInstance, fixture.client.DeleteLocalBranch(executionContext, fixture.handle, releaseBranch))
	require.ErrorIs(testInstance, fixture.client.Checkout(executionContext, fixture.handle, releaseBranch), vcs.ErrBranchMissing)
}

func TestPushAndCompensate(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	executionContext := context.Background()
	branchReference := vcs.BranchReference(testMainBranchName)
	tagReference := vcs.TagReference(testReleaseTagName)

	require.NoError(testInstance, fixture.client.Push(executionContext, fixture.handle, vcs.DefaultRemoteName, []vcs.RefSpec{
		vcs.NewRefSpec(branchReference, branchReference, false),
	}))

	writeTestFile(testInstance, fixture.workPath, testDescriptorName, "version: 1.3.0\n")
	releaseCommit, commitError := fixture.client.Commit(executionContext, fixture.handle, testReleaseTagMessage)
	require.NoError(testInstance, commitError)
	require.NoError(testInstance, fixture.client.Tag(executionContext, fixture.handle, testReleaseTagName, releaseCommit, testReleaseTagMessage))

	require.NoError(testInstance, fixture.client.Push(executionContext, fixture.handle, vcs.DefaultRemoteName, []vcs.RefSpec{
		vcs.NewRefSpec(branchReference, branchReference, false),
		vcs.NewRefSpec(tagReference, tagReference, false),
	}))

	remoteBranch, branchFound := remoteReferenceHash(testInstance, fixture.remotePath, branchReference)
	require.True(testInstance, branchFound)
	require.Equal(testInstance, releaseCommit.String(), remoteBranch)
	_, tagFound := remoteReferenceHash(testInstance, fixture.remotePath, tagReference)
	require.True(testInstance, tagFound)

	require.NoError(testInstance, fixture.client.DeleteRemoteRef(executionContext, fixture.handle, vcs.DefaultRemoteName, tagReference))
	_, tagFound = remoteReferenceHash(testInstance, fixture.remotePath, tagReference)
	require.False(testInstance, tagFound)

	require.NoError(testInstance, fixture.client.Push(executionContext, fixture.handle, vcs.DefaultRemoteName, []vcs.RefSpec{
		vcs.NewRefSpec(fixture.initial.String(), branchReference, true),
	}))
	remoteBranch, branchFound = remoteReferenceHash(testInstance, fixture.remotePath, branchReference)
	require.True(testInstance, branchFound)
	require.Equal(testInstance, fixture.initial.String(), remoteBranch)

	repository, openError := git.PlainOpen(fixture.workPath)
	require.NoError(testInstance, openError)
	_, temporaryLookupError := repository.Reference(plumbing.ReferenceName("refs/reltrain/push/0"), false)
	require.ErrorIs(testInstance, temporaryLookupError, plumbing.ErrReferenceNotFound)
}

func TestPushClassifiesNonFastForwardAsRejected(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	executionContext := context.Background()
	branchReference := vcs.BranchReference(testMainBranchName)

	writeTestFile(testInstance, fixture.workPath, testDescriptorName, "version: 1.3.0\n")
	_, commitError := fixture.client.Commit(executionContext, fixture.handle, "first")
	require.NoError(testInstance, commitError)
	require.NoError(testInstance, fixture.client.Push(executionContext, fixture.handle, vcs.DefaultRemoteName, []vcs.RefSpec{
		vcs.NewRefSpec(branchReference, branchReference, false),
	}))

	require.NoError(testInstance, fixture.client.ResetHard(executionContext, fixture.handle, fixture.initial))
	writeTestFile(testInstance, fixture.workPath, testDescriptorName, "version: 9.9.9\n")
	_, commitError = fixture.client.Commit(executionContext, fixture.handle, "diverged")
	require.NoError(testInstance, commitError)

	pushError := fixture.client.Push(executionContext, fixture.handle, vcs.DefaultRemoteName, []vcs.RefSpec{
		vcs.NewRefSpec(branchReference, branchReference, false),
	})
	require.ErrorIs(testInstance, pushError, vcs.ErrRejected)
	require.False(testInstance, vcs.IsRetryable(pushError))
}

func TestPushToUnknownRemoteIsRejected(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	branchReference := vcs.BranchReference(testMainBranchName)
	pushError := fixture.client.Push(context.Background(), fixture.handle, "upstream", []vcs.RefSpec{
		vcs.NewRefSpec(branchReference, branchReference, false),
	})
	require.ErrorIs(testInstance, pushError, vcs.ErrRejected)
}

func TestSetRemoteIsIdempotent(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	executionContext := context.Background()

	remoteURL, exists, lookupError := fixture.client.RemoteURL(executionContext, fixture.handle, vcs.DefaultRemoteName)
	require.NoError(testInstance, lookupError)
	require.True(testInstance, exists)
	require.Equal(testInstance, "file://"+fixture.remotePath, remoteURL)

	require.NoError(testInstance, fixture.client.SetRemote(executionContext, fixture.handle, vcs.DefaultRemoteName, remoteURL))
	require.NoError(testInstance, fixture.client.SetRemote(executionContext, fixture.handle, vcs.DefaultRemoteName, "https://example.com/org/alpha.git"))

	remoteURL, exists, lookupError = fixture.client.RemoteURL(executionContext, fixture.handle, vcs.DefaultRemoteName)
	require.NoError(testInstance, lookupError)
	require.True(testInstance, exists)
	require.Equal(testInstance, "https://example.com/org/alpha.git", remoteURL)

	_, exists, lookupError = fixture.client.RemoteURL(executionContext, fixture.handle, "upstream")
	require.NoError(testInstance, lookupError)
	require.False(testInstance, exists)
}

func TestCloneFromLocalRemote(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	executionContext := context.Background()
	branchReference := vcs.BranchReference(testMainBranchName)
	require.NoError(testInstance, fixture.client.Push(executionContext, fixture.handle, vcs.DefaultRemoteName, []vcs.RefSpec{
		vcs.NewRefSpec(branchReference, branchReference, false),
	}))

	clonePath := filepath.Join(testInstance.TempDir(), "clone")
	cloned, cloneError := fixture.client.Clone(executionContext, "file://"+fixture.remotePath, clonePath)
	require.NoError(testInstance, cloneError)
	require.Equal(testInstance, clonePath, cloned.Path())

	head, headError := fixture.client.CurrentCommit(executionContext, cloned)
	require.NoError(testInstance, headError)
	require.Equal(testInstance, fixture.initial, head)
}

func TestOperationsRejectForeignHandle(testInstance *testing.T) {
	client := gogit.NewClient(gogit.Options{})
	_, statusError := client.IsClean(context.Background(), vcs.NewHandle("/tmp/alpha", "not a repository"))
	require.ErrorIs(testInstance, statusError, vcs.ErrHandleNotConfigured)
}

func TestRemoteReferenceReportsRemoteTip(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	executionContext := context.Background()
	branchReference := vcs.BranchReference(testMainBranchName)

	_, exists, lookupError := fixture.client.RemoteReference(executionContext, fixture.handle, vcs.DefaultRemoteName, branchReference)
	require.NoError(testInstance, lookupError)
	require.False(testInstance, exists)

	require.NoError(testInstance, fixture.client.Push(executionContext, fixture.handle, vcs.DefaultRemoteName, []vcs.RefSpec{
		vcs.NewRefSpec(branchReference, branchReference, false),
	}))
	writeTestFile(testInstance, fixture.workPath, testDescriptorName, "version: 1.3.0\n")
	_, commitError := fixture.client.Commit(executionContext, fixture.handle, "unpushed")
	require.NoError(testInstance, commitError)

	remoteTip, exists, lookupError := fixture.client.RemoteReference(executionContext, fixture.handle, vcs.DefaultRemoteName, branchReference)
	require.NoError(testInstance, lookupError)
	require.True(testInstance, exists)
	require.Equal(testInstance, fixture.initial, remoteTip)

	_, exists, lookupError = fixture.client.RemoteReference(executionContext, fixture.handle, vcs.DefaultRemoteName, vcs.TagReference(testReleaseTagName))
	require.NoError(testInstance, lookupError)
	require.False(testInstance, exists)

	_, _, lookupError = fixture.client.RemoteReference(executionContext, fixture.handle, "upstream", branchReference)
	require.ErrorIs(testInstance, lookupError, vcs.ErrRejected)
}

func TestRemoveRemote(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	executionContext := context.Background()

	require.NoError(testInstance, fixture.client.RemoveRemote(executionContext, fixture.handle, vcs.DefaultRemoteName))
	_, exists, lookupError := fixture.client.RemoteURL(executionContext, fixture.handle, vcs.DefaultRemoteName)
	require.NoError(testInstance, lookupError)
	require.False(testInstance, exists)

	require.NoError(testInstance, fixture.client.RemoveRemote(executionContext, fixture.handle, vcs.DefaultRemoteName))
}
