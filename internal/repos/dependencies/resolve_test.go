package dependencies_test

import (
	"context"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/reltrain/internal/descriptor"
	"github.com/temirov/reltrain/internal/execshell"
	"github.com/temirov/reltrain/internal/repos/dependencies"
	"github.com/temirov/reltrain/internal/repos/filesystem"
	"github.com/temirov/reltrain/internal/vcs"
	"github.com/temirov/reltrain/internal/vcs/gitcli"
	"github.com/temirov/reltrain/internal/vcs/gogit"
)

type recordingRunner struct {
	commands []execshell.ShellCommand
}

func (runner *recordingRunner) Run(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.commands = append(runner.commands, command)
	return execshell.ExecutionResult{StandardOutput: "true\n"}, nil
}

type recordingObserver struct {
	started []execshell.ShellCommand
}

func (observer *recordingObserver) CommandStarted(command execshell.ShellCommand) {
	observer.started = append(observer.started, command)
}

func (observer *recordingObserver) CommandCompleted(execshell.ShellCommand, execshell.ExecutionResult) {
}

func (observer *recordingObserver) CommandExecutionFailed(execshell.ShellCommand, error) {}

func TestParseVersionControlBackend(testInstance *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected dependencies.VersionControlBackend
		failure  bool
	}{
		{name: "blank_defaults_to_embedded", input: " ", expected: dependencies.BackendEmbedded},
		{name: "embedded", input: "embedded", expected: dependencies.BackendEmbedded},
		{name: "cli_case_insensitive", input: "CLI", expected: dependencies.BackendCLI},
		{name: "unknown", input: "libgit2", failure: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			backend, parseError := dependencies.ParseVersionControlBackend(testCase.input)
			if testCase.failure {
				require.ErrorIs(testInstance, parseError, dependencies.ErrUnsupportedBackend)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expected, backend)
		})
	}
}

func TestResolveVersionControlClientSelectsBackend(testInstance *testing.T) {
	embeddedClient, embeddedError := dependencies.ResolveVersionControlClient(nil, dependencies.ClientOptions{Logger: zap.NewNop()})
	require.NoError(testInstance, embeddedError)
	require.IsType(testInstance, &gogit.Client{}, embeddedClient)

	runner := &recordingRunner{}
	observer := &recordingObserver{}
	cliClient, cliError := dependencies.ResolveVersionControlClient(nil, dependencies.ClientOptions{
		Backend:              dependencies.BackendCLI,
		Author:               vcs.DefaultSignature(),
		CommandRunner:        runner,
		CommandEventObserver: observer,
	})
	require.NoError(testInstance, cliError)
	require.IsType(testInstance, &gitcli.Client{}, cliClient)

	_, openError := cliClient.Open(context.Background(), testInstance.TempDir())
	require.NoError(testInstance, openError)
	require.Len(testInstance, runner.commands, 1)
	require.Len(testInstance, observer.started, 1)
	require.Equal(testInstance, execshell.CommandGit, observer.started[0].Name)

	_, unsupportedError := dependencies.ResolveVersionControlClient(nil, dependencies.ClientOptions{Backend: "svn"})
	require.ErrorIs(testInstance, unsupportedError, dependencies.ErrUnsupportedBackend)
}

func TestResolveKeepsInjectedCollaborators(testInstance *testing.T) {
	injectedClient := gogit.NewClient(gogit.Options{})
	resolvedClient, resolveError := dependencies.ResolveVersionControlClient(injectedClient, dependencies.ClientOptions{Backend: "svn"})
	require.NoError(testInstance, resolveError)
	require.Same(testInstance, injectedClient, resolvedClient)

	injectedStore := descriptor.NewYAMLDescriptor()
	require.Same(testInstance, injectedStore, dependencies.ResolveDescriptorStore(injectedStore))
	require.IsType(testInstance, &descriptor.YAMLDescriptor{}, dependencies.ResolveDescriptorStore(nil))
	require.Equal(testInstance, filesystem.OSFileSystem{}, dependencies.ResolveFileSystem(nil))
}

func TestResolveVersionControlClientServesLocalRemotesInProcess(testInstance *testing.T) {
	remotePath := filepath.Join(testInstance.TempDir(), "alpha.git")
	_, remoteError := git.PlainInit(remotePath, true)
	require.NoError(testInstance, remoteError)
	localPath := testInstance.TempDir()
	_, localError := git.PlainInit(localPath, false)
	require.NoError(testInstance, localError)
	testInstance.Setenv("PATH", "")

	client, resolveError := dependencies.ResolveVersionControlClient(nil, dependencies.ClientOptions{
		Logger:                 zap.NewNop(),
		InProcessFileTransport: true,
	})
	require.NoError(testInstance, resolveError)

	executionContext := context.Background()
	handle, openError := client.Open(executionContext, localPath)
	require.NoError(testInstance, openError)
	require.NoError(testInstance, client.SetRemote(executionContext, handle, vcs.DefaultRemoteName, remotePath))

	_, exists, lookupError := client.RemoteReference(executionContext, handle, vcs.DefaultRemoteName, "refs/heads/main")
	require.NoError(testInstance, lookupError)
	require.False(testInstance, exists)
}
