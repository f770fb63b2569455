package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// CommandName identifies an external executable.
type CommandName string

// CommandGit invokes the git executable.
const CommandGit CommandName = "git"

const (
	commandFailedTemplateConstant          = "%s exited with code %d: %s"
	commandFailedWithoutOutputTemplate     = "%s exited with code %d"
	commandExecutionTemplateConstant       = "%s could not run: %v"
	commandLabelJoinSeparatorConstant      = " "
	logMessageCommandStarted               = "command started"
	logMessageCommandCompleted             = "command completed"
	logMessageCommandFailed                = "command failed"
	logMessageCommandExecutionFailed       = "command execution failed"
	logFieldCommandConstant                = "command"
	logFieldArgumentsConstant              = "arguments"
	logFieldWorkingDirectoryConstant       = "working_directory"
	logFieldExitCodeConstant               = "exit_code"
	logFieldStandardErrorConstant          = "stderr"
	loggerNotConfiguredMessageConstant     = "shell executor requires a logger"
	runnerNotConfiguredMessageConstant     = "shell executor requires a command runner"
	redactedArgumentPlaceholderConstant    = "***"
	credentialBearingURLSchemeSeparator    = "://"
	credentialBearingURLUserInfoSeparator  = "@"
	credentialBearingURLPasswordSeparator  = ":"
	credentialBearingURLPasswordPrefixSize = 1
)

var (
	// ErrLoggerNotConfigured indicates NewShellExecutor received a nil logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates NewShellExecutor received a nil runner.
	ErrCommandRunnerNotConfigured = errors.New(runnerNotConfiguredMessageConstant)
)

// CommandDetails carries the inputs of one invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand pairs an executable with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of a finished process.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner starts processes.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandFailedError reports a process that exited with a non-zero code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failure including trimmed standard error.
func (failedError CommandFailedError) Error() string {
	label := describeCommand(failedError.Command)
	standardError := strings.TrimSpace(failedError.Result.StandardError)
	if len(standardError) == 0 {
		return fmt.Sprintf(commandFailedWithoutOutputTemplate, label, failedError.Result.ExitCode)
	}
	return fmt.Sprintf(commandFailedTemplateConstant, label, failedError.Result.ExitCode, standardError)
}

// CommandExecutionError reports a process that could not be started or awaited.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (executionError CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionTemplateConstant, describeCommand(executionError.Command), executionError.Cause)
}

// Unwrap exposes the underlying cause.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

// ShellExecutorOption customizes a ShellExecutor.
type ShellExecutorOption func(executor *ShellExecutor)

// WithCommandEventObserver forwards command lifecycle events to observer.
func WithCommandEventObserver(observer CommandEventObserver) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		if observer != nil {
			executor.observer = observer
		}
	}
}

// ShellExecutor runs external commands with structured logging.
type ShellExecutor struct {
	logger   *zap.Logger
	runner   CommandRunner
	observer CommandEventObserver
}

// NewShellExecutor validates dependencies and constructs an executor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, options ...ShellExecutorOption) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	executor := &ShellExecutor{logger: logger, runner: runner, observer: CommandEventObserverFuncs{}}
	for _, option := range options {
		option(executor)
	}
	return executor, nil
}

// Execute runs command and converts non-zero exit codes into CommandFailedError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	commandFields := []zap.Field{
		zap.String(logFieldCommandConstant, string(command.Name)),
		zap.Strings(logFieldArgumentsConstant, redactArguments(command.Details.Arguments)),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	}
	executor.logger.Debug(logMessageCommandStarted, commandFields...)
	executor.observer.CommandStarted(command)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.logger.Debug(logMessageCommandExecutionFailed, append(commandFields, zap.Error(runError))...)
		executor.observer.CommandExecutionFailed(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.observer.CommandCompleted(command, executionResult)
	if executionResult.ExitCode != 0 {
		executor.logger.Debug(logMessageCommandFailed, append(commandFields,
			zap.Int(logFieldExitCodeConstant, executionResult.ExitCode),
			zap.String(logFieldStandardErrorConstant, strings.TrimSpace(executionResult.StandardError)),
		)...)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logger.Debug(logMessageCommandCompleted, commandFields...)
	return executionResult, nil
}

// ExecuteGit runs git with details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

func describeCommand(command ShellCommand) string {
	parts := append([]string{string(command.Name)}, redactArguments(command.Details.Arguments)...)
	return strings.Join(parts, commandLabelJoinSeparatorConstant)
}

// redactArguments masks passwords embedded in remote URLs.
func redactArguments(arguments []string) []string {
	redacted := make([]string, len(arguments))
	for index, argument := range arguments {
		redacted[index] = redactURLPassword(argument)
	}
	return redacted
}

func redactURLPassword(argument string) string {
	schemeIndex := strings.Index(argument, credentialBearingURLSchemeSeparator)
	if schemeIndex < 0 {
		return argument
	}
	authorityStart := schemeIndex + len(credentialBearingURLSchemeSeparator)
	userInfoEnd := strings.Index(argument[authorityStart:], credentialBearingURLUserInfoSeparator)
	if userInfoEnd < 0 {
		return argument
	}
	userInfo := argument[authorityStart : authorityStart+userInfoEnd]
	passwordIndex := strings.Index(userInfo, credentialBearingURLPasswordSeparator)
	if passwordIndex < 0 {
		return argument
	}
	passwordStart := authorityStart + passwordIndex + credentialBearingURLPasswordPrefixSize
	return argument[:passwordStart] + redactedArgumentPlaceholderConstant + argument[authorityStart+userInfoEnd:]
}
