package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

const (
	environmentAssignmentSeparatorConstant = "="
	gitLocaleVariableConstant              = "LC_ALL"
	gitLocaleValueConstant                 = "C"
	processWaitDelayConstant               = 5 * time.Second
)

// OSCommandRunner starts git processes through os/exec. Git runs under the C locale
// so stderr carries the English messages failures are classified by.
type OSCommandRunner struct {
	lookupEnvironment func() []string
}

// NewOSCommandRunner constructs a runner that inherits the process environment.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{lookupEnvironment: os.Environ}
}

// Run executes command. A non-zero exit is reported in the result; a process that
// could not start, or was stopped because executionContext ended, is an error.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executable := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	executable.Dir = command.Details.WorkingDirectory
	executable.Env = runner.environmentFor(command)
	executable.WaitDelay = processWaitDelayConstant

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	executable.Stdout = &standardOutput
	executable.Stderr = &standardError
	if len(command.Details.StandardInput) > 0 {
		executable.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	runError := executable.Run()
	result := ExecutionResult{StandardOutput: standardOutput.String(), StandardError: standardError.String()}
	if runError == nil {
		return result, nil
	}
	if contextError := executionContext.Err(); contextError != nil {
		return ExecutionResult{}, contextError
	}
	var exitError *exec.ExitError
	if errors.As(runError, &exitError) {
		result.ExitCode = exitError.ExitCode()
		return result, nil
	}
	return ExecutionResult{}, runError
}

// environmentFor merges the inherited environment with the command overrides.
// Overrides replace inherited keys instead of duplicating them.
func (runner *OSCommandRunner) environmentFor(command ShellCommand) []string {
	overrides := make(map[string]string, len(command.Details.EnvironmentVariables)+1)
	if command.Name == CommandGit {
		overrides[gitLocaleVariableConstant] = gitLocaleValueConstant
	}
	for key, value := range command.Details.EnvironmentVariables {
		overrides[key] = value
	}

	lookupEnvironment := runner.lookupEnvironment
	if lookupEnvironment == nil {
		lookupEnvironment = os.Environ
	}
	inherited := lookupEnvironment()
	environment := make([]string, 0, len(inherited)+len(overrides))
	for _, assignment := range inherited {
		key, _, _ := strings.Cut(assignment, environmentAssignmentSeparatorConstant)
		if _, overridden := overrides[key]; overridden {
			continue
		}
		environment = append(environment, assignment)
	}

	overrideKeys := make([]string, 0, len(overrides))
	for key := range overrides {
		overrideKeys = append(overrideKeys, key)
	}
	sort.Strings(overrideKeys)
	for _, key := range overrideKeys {
		environment = append(environment, key+environmentAssignmentSeparatorConstant+overrides[key])
	}
	return environment
}
