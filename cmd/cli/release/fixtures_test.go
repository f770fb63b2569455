package release_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/temirov/reltrain/cmd/cli/release"
	"github.com/temirov/reltrain/internal/utils"
	"github.com/temirov/reltrain/internal/vcs"
	"github.com/temirov/reltrain/internal/vcs/gogit"
)

const (
	testBranchReference  = "refs/heads/master"
	testDescriptorName   = "release.yaml"
	testAlphaID          = "alpha"
	testBravoID          = "bravo"
	testAlphaDescriptor  = "version: 1.2.0\n"
	testBravoDescriptor  = "version: 1.9.0\ndependencies:\n  alpha: 1.2.0\n"
	testFilePermissions  = 0o644
	testRemoteURLPrefix  = "file://"
	testBareSuffix       = ".git"
	testInitialCommitMsg = "initial "
)

var testCommitTime = time.Date(2024, time.June, 3, 9, 30, 0, 0, time.UTC)

type testRepository struct {
	id             string
	workPath       string
	remotePath     string
	descriptorPath string
}

func (repository testRepository) remoteURL() string {
	return testRemoteURLPrefix + repository.remotePath
}

type commandFixture struct {
	client       *gogit.Client
	root         string
	repositories map[string]testRepository
}

func newCommandFixture(testInstance *testing.T) commandFixture {
	testInstance.Helper()
	originalNoColor := color.NoColor
	color.NoColor = true
	testInstance.Cleanup(func() { color.NoColor = originalNoColor })

	client := gogit.NewClient(gogit.Options{
		Author:                 vcs.Signature{Name: "Release Bot", Email: "bot@example.com"},
		Clock:                  func() time.Time { return testCommitTime },
		InProcessFileTransport: true,
	})
	baseDirectory := testInstance.TempDir()
	root := filepath.Join(baseDirectory, "work")
	remotes := filepath.Join(baseDirectory, "remotes")
	require.NoError(testInstance, os.MkdirAll(root, 0o755))
	require.NoError(testInstance, os.MkdirAll(remotes, 0o755))

	fixture := commandFixture{client: client, root: root, repositories: map[string]testRepository{}}
	for repositoryID, contents := range map[string]string{testAlphaID: testAlphaDescriptor, testBravoID: testBravoDescriptor} {
		fixture.repositories[repositoryID] = initializeRepository(testInstance, client, root, remotes, repositoryID, contents)
	}
	return fixture
}

func initializeRepository(testInstance *testing.T, client *gogit.Client, root string, remotes string, repositoryID string, contents string) testRepository {
	testInstance.Helper()
	executionContext := context.Background()
	remotePath := filepath.Join(remotes, repositoryID+testBareSuffix)
	workPath := filepath.Join(root, repositoryID)

	_, initError := git.PlainInit(remotePath, true)
	require.NoError(testInstance, initError)
	_, initError = git.PlainInit(workPath, false)
	require.NoError(testInstance, initError)

	descriptorPath := filepath.Join(workPath, testDescriptorName)
	require.NoError(testInstance, os.WriteFile(descriptorPath, []byte(contents), testFilePermissions))

	handle, openError := client.Open(executionContext, workPath)
	require.NoError(testInstance, openError)
	_, commitError := client.Commit(executionContext, handle, testInitialCommitMsg+repositoryID)
	require.NoError(testInstance, commitError)
	require.NoError(testInstance, client.SetRemote(executionContext, handle, vcs.DefaultRemoteName, testRemoteURLPrefix+remotePath))
	require.NoError(testInstance, client.Push(executionContext, handle, vcs.DefaultRemoteName, []vcs.RefSpec{
		vcs.NewRefSpec(testBranchReference, testBranchReference, false),
	}))

	return testRepository{id: repositoryID, workPath: workPath, remotePath: remotePath, descriptorPath: descriptorPath}
}

// configuration lists every fixture repository explicitly.
func (fixture commandFixture) configuration() release.CommandConfiguration {
	configuration := release.DefaultCommandConfiguration()
	configuration.Retry = release.RetryConfiguration{Attempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
	for _, repositoryID := range []string{testAlphaID, testBravoID} {
		repository := fixture.repositories[repositoryID]
		configuration.Repositories = append(configuration.Repositories, release.RepositoryConfiguration{
			ID:        repository.id,
			Path:      repository.workPath,
			RemoteURL: repository.remoteURL(),
		})
	}
	return configuration
}

func (fixture commandFixture) collaborators() release.Collaborators {
	return release.Collaborators{Client: fixture.client}
}

func readFile(testInstance *testing.T, path string) string {
	testInstance.Helper()
	contents, readError := os.ReadFile(path)
	require.NoError(testInstance, readError)
	return string(contents)
}

func remoteReferenceExists(testInstance *testing.T, remotePath string, reference string) bool {
	testInstance.Helper()
	repository, openError := git.PlainOpen(remotePath)
	require.NoError(testInstance, openError)
	_, lookupError := repository.Reference(plumbing.ReferenceName(reference), true)
	return lookupError == nil
}

// executeCommand runs command with arguments under a context carrying executionFlags.
func executeCommand(testInstance *testing.T, command *cobra.Command, executionFlags utils.ExecutionFlags, arguments ...string) (string, error) {
	testInstance.Helper()
	output := &bytes.Buffer{}
	command.SetOut(output)
	command.SetErr(&bytes.Buffer{})
	command.SetArgs(arguments)
	command.SilenceUsage = true
	command.SilenceErrors = true
	executionContext := utils.NewCommandContextAccessor().WithExecutionFlags(context.Background(), executionFlags)
	executionError := command.ExecuteContext(executionContext)
	return output.String(), executionError
}
