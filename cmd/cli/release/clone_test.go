package release_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/reltrain/cmd/cli/release"
	"github.com/temirov/reltrain/internal/utils"
)

func TestCloneCommandClonesMissingRepositories(testInstance *testing.T) {
	fixture := newCommandFixture(testInstance)
	alpha := fixture.repositories[testAlphaID]
	clonePath := filepath.Join(testInstance.TempDir(), "checkouts", testAlphaID)

	builder := release.CloneCommandBuilder{
		ConfigurationProvider: func() release.CommandConfiguration {
			configuration := release.DefaultCommandConfiguration()
			configuration.Repositories = []release.RepositoryConfiguration{
				{Path: clonePath, RemoteURL: alpha.remoteURL()},
				{ID: testBravoID, Path: fixture.repositories[testBravoID].workPath},
			}
			return configuration
		},
		Collaborators: fixture.collaborators(),
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	output, executionError := executeCommand(testInstance, command, utils.ExecutionFlags{})
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, output, "alpha: cloned "+alpha.remoteURL()+" into "+clonePath+"\n")
	require.Contains(testInstance, output, "bravo: present at "+fixture.repositories[testBravoID].workPath+"\n")
	require.Equal(testInstance, testAlphaDescriptor, readFile(testInstance, filepath.Join(clonePath, testDescriptorName)))

	command, buildError = builder.Build()
	require.NoError(testInstance, buildError)
	output, executionError = executeCommand(testInstance, command, utils.ExecutionFlags{})
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, output, "alpha: present at "+clonePath+"\n")
}

func TestCloneCommandRequiresRemoteForMissingRepositories(testInstance *testing.T) {
	fixture := newCommandFixture(testInstance)
	missingPath := filepath.Join(testInstance.TempDir(), "absent")

	builder := release.CloneCommandBuilder{
		ConfigurationProvider: func() release.CommandConfiguration {
			configuration := release.DefaultCommandConfiguration()
			configuration.Repositories = []release.RepositoryConfiguration{{ID: "absent", Path: missingPath}}
			return configuration
		},
		Collaborators: fixture.collaborators(),
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	_, executionError := executeCommand(testInstance, command, utils.ExecutionFlags{})
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), "no remote_url is configured")
}

func TestCloneCommandReportsEmptyConfiguration(testInstance *testing.T) {
	builder := release.CloneCommandBuilder{ConfigurationProvider: release.DefaultCommandConfiguration}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	output, executionError := executeCommand(testInstance, command, utils.ExecutionFlags{})
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, "no repositories configured under release.repositories\n", output)
}
