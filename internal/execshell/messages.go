package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	exitCodeSuffixTemplateConstant          = " (exit code %d%s)"
	executionFailureSuffixTemplateConstant  = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	flagPrefixConstant                      = "-"
	referenceListSeparatorConstant          = ", "
)

const (
	gitRevParseSubcommandNameConstant = "rev-parse"
	gitStatusSubcommandNameConstant   = "status"
	gitAddSubcommandNameConstant      = "add"
	gitCommitSubcommandNameConstant   = "commit"
	gitTagSubcommandNameConstant      = "tag"
	gitResetSubcommandNameConstant    = "reset"
	gitBranchSubcommandNameConstant   = "branch"
	gitCheckoutSubcommandNameConstant = "checkout"
	gitPushSubcommandNameConstant     = "push"
	gitRemoteSubcommandNameConstant   = "remote"
	gitCloneSubcommandNameConstant    = "clone"
	gitListRemoteSubcommandConstant   = "ls-remote"
	gitRemoteRemoveSubcommandConstant = "remove"
	gitWorkTreeFlagConstant           = "--is-inside-work-tree"
	gitAbbrevRefFlagConstant          = "--abbrev-ref"
	gitMessageFlagConstant            = "-m"
	gitDeleteShortFlagConstant        = "-d"
	gitForceDeleteShortFlagConstant   = "-D"
	gitDeleteFlagConstant             = "--delete"
	gitStatusPorcelainArgument        = "--porcelain"
	gitRemoteGetURLSubcommandConstant = "get-url"
	gitPushSubjectTemplate            = "%s to %s"
	gitRemoteSubjectTemplate          = "%s (%s)"
	gitListRemoteSubjectTemplate      = "%s on %s"
	gitStatusPorcelainSubject         = " (porcelain)"
)

// gitMessageTemplates describes one git subcommand. Every template receives the
// subject followed by the working directory; failure variants append a suffix.
type gitMessageTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

var (
	gitWorkTreeMessages       = gitMessageTemplates{"Analyzing repository%s at %s", "Confirmed repository%s at %s", "Could not confirm repository%s at %s", "Could not analyze repository%s at %s"}
	gitCurrentBranchMessages  = gitMessageTemplates{"Identifying current branch%s in %s", "Identified current branch%s in %s", "Failed to identify current branch%s in %s", "Unable to identify current branch%s in %s"}
	gitRevisionMessages       = gitMessageTemplates{"Resolving %s in %s", "Resolved %s in %s", "Failed to resolve %s in %s", "Unable to resolve %s in %s"}
	gitStatusMessages         = gitMessageTemplates{"Reviewing working tree status%s in %s", "Collected working tree status%s for %s", "Failed to review working tree status%s in %s", "Unable to review working tree status%s in %s"}
	gitAddMessages            = gitMessageTemplates{"Staging %s in %s", "Staged %s in %s", "Failed to stage %s in %s", "Unable to stage %s in %s"}
	gitCommitMessages         = gitMessageTemplates{"Creating commit %q in %s", "Created commit %q in %s", "Failed to create commit %q in %s", "Unable to create commit %q in %s"}
	gitTagCreationMessages    = gitMessageTemplates{"Creating tag %s in %s", "Created tag %s in %s", "Failed to create tag %s in %s", "Unable to create tag %s in %s"}
	gitTagDeletionMessages    = gitMessageTemplates{"Deleting tag %s in %s", "Deleted tag %s in %s", "Failed to delete tag %s in %s", "Unable to delete tag %s in %s"}
	gitResetMessages          = gitMessageTemplates{"Resetting to %s in %s", "Reset to %s in %s", "Failed to reset to %s in %s", "Unable to reset to %s in %s"}
	gitBranchCreationMessages = gitMessageTemplates{"Creating branch %s in %s", "Created branch %s in %s", "Failed to create branch %s in %s", "Unable to create branch %s in %s"}
	gitBranchDeletionMessages = gitMessageTemplates{"Removing local branch %s in %s", "Removed local branch %s in %s", "Failed to remove local branch %s in %s", "Unable to remove local branch %s in %s"}
	gitCheckoutMessages       = gitMessageTemplates{"Switching to branch %s in %s", "Switched to branch %s in %s", "Failed to switch to branch %s in %s", "Unable to switch to branch %s in %s"}
	gitPushMessages           = gitMessageTemplates{"Pushing %s from %s", "Pushed %s from %s", "Failed to push %s from %s", "Unable to push %s from %s"}
	gitRemoteLookupMessages   = gitMessageTemplates{"Checking remote %s in %s", "Checked remote %s in %s", "Failed to read remote %s in %s", "Unable to read remote %s in %s"}
	gitRemoteUpdateMessages   = gitMessageTemplates{"Configuring remote %s in %s", "Configured remote %s in %s", "Failed to configure remote %s in %s", "Unable to configure remote %s in %s"}
	gitRemoteRemovalMessages  = gitMessageTemplates{"Removing remote %s in %s", "Removed remote %s in %s", "Failed to remove remote %s in %s", "Unable to remove remote %s in %s"}
	gitListRemoteMessages     = gitMessageTemplates{"Reading remote tip %s in %s", "Read remote tip %s in %s", "Failed to read remote tip %s in %s", "Unable to read remote tip %s in %s"}
	gitCloneMessages          = gitMessageTemplates{"Cloning %s into %s", "Cloned %s into %s", "Failed to clone %s into %s", "Unable to clone %s into %s"}
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
	templates, subject, described := formatter.describeGitCommand(command)
	if !described {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	location := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, subject, location)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, subject, location)
	case messageStageFailure:
		return fmt.Sprintf(templates.failure, subject, location) + fmt.Sprintf(exitCodeSuffixTemplateConstant, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(templates.executionFailure, subject, location) + fmt.Sprintf(executionFailureSuffixTemplateConstant, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) describeGitCommand(command ShellCommand) (gitMessageTemplates, string, bool) {
	arguments := command.Details.Arguments
	operands := formatter.nonFlagArguments(arguments[1:])

	switch strings.TrimSpace(arguments[0]) {
	case gitRevParseSubcommandNameConstant:
		switch {
		case containsArgument(arguments, gitWorkTreeFlagConstant):
			return gitWorkTreeMessages, emptyStringConstant, true
		case containsArgument(arguments, gitAbbrevRefFlagConstant):
			return gitCurrentBranchMessages, emptyStringConstant, true
		default:
			return gitRevisionMessages, formatter.ensureValue(formatter.lastArgument(operands)), true
		}
	case gitStatusSubcommandNameConstant:
		if containsArgument(arguments, gitStatusPorcelainArgument) {
			return gitStatusMessages, gitStatusPorcelainSubject, true
		}
		return gitStatusMessages, emptyStringConstant, true
	case gitAddSubcommandNameConstant:
		subject := strings.Join(arguments[1:], commandArgumentsJoinSeparatorConstant)
		return gitAddMessages, formatter.ensureValue(subject), true
	case gitCommitSubcommandNameConstant:
		return gitCommitMessages, formatter.ensureValue(findFlagValue(arguments, gitMessageFlagConstant)), true
	case gitTagSubcommandNameConstant:
		if containsArgument(arguments, gitDeleteShortFlagConstant) || containsArgument(arguments, gitDeleteFlagConstant) {
			return gitTagDeletionMessages, formatter.ensureValue(formatter.lastArgument(operands)), true
		}
		return gitTagCreationMessages, formatter.ensureValue(formatter.firstArgument(formatter.withoutFlagValue(arguments[1:], gitMessageFlagConstant))), true
	case gitResetSubcommandNameConstant:
		return gitResetMessages, formatter.ensureValue(formatter.lastArgument(operands)), true
	case gitBranchSubcommandNameConstant:
		if containsArgument(arguments, gitForceDeleteShortFlagConstant) || containsArgument(arguments, gitDeleteShortFlagConstant) || containsArgument(arguments, gitDeleteFlagConstant) {
			return gitBranchDeletionMessages, formatter.ensureValue(formatter.lastArgument(operands)), true
		}
		return gitBranchCreationMessages, formatter.ensureValue(strings.Join(operands, commandArgumentsJoinSeparatorConstant)), true
	case gitCheckoutSubcommandNameConstant:
		return gitCheckoutMessages, formatter.ensureValue(formatter.lastArgument(operands)), true
	case gitPushSubcommandNameConstant:
		remoteName := formatter.ensureValue(formatter.firstArgument(operands))
		references := fallbackUnknownValueLabelConstant
		if len(operands) > 1 {
			references = strings.Join(operands[1:], referenceListSeparatorConstant)
		}
		return gitPushMessages, fmt.Sprintf(gitPushSubjectTemplate, references, remoteName), true
	case gitRemoteSubcommandNameConstant:
		if len(operands) < 2 {
			return gitMessageTemplates{}, emptyStringConstant, false
		}
		subject := fmt.Sprintf(gitRemoteSubjectTemplate, operands[1], operands[0])
		switch operands[0] {
		case gitRemoteGetURLSubcommandConstant:
			return gitRemoteLookupMessages, subject, true
		case gitRemoteRemoveSubcommandConstant:
			return gitRemoteRemovalMessages, operands[1], true
		default:
			return gitRemoteUpdateMessages, subject, true
		}
	case gitListRemoteSubcommandConstant:
		remoteName := formatter.ensureValue(formatter.firstArgument(operands))
		reference := fallbackUnknownValueLabelConstant
		if len(operands) > 1 {
			reference = strings.Join(operands[1:], referenceListSeparatorConstant)
		}
		return gitListRemoteMessages, fmt.Sprintf(gitListRemoteSubjectTemplate, reference, remoteName), true
	case gitCloneSubcommandNameConstant:
		return gitCloneMessages, formatter.ensureValue(formatter.firstArgument(operands)), true
	default:
		return gitMessageTemplates{}, emptyStringConstant, false
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	return fmt.Sprintf(commandLabelTemplateConstant, describeCommand(command), formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	if command.Name == CommandGit && len(command.Details.Arguments) > 0 && command.Details.Arguments[0] == gitCloneSubcommandNameConstant {
		operands := formatter.nonFlagArguments(command.Details.Arguments[1:])
		if len(operands) > 1 {
			return operands[1]
		}
	}
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) nonFlagArguments(arguments []string) []string {
	operands := make([]string, 0, len(arguments))
	for _, argument := range formatter.withoutFlagValue(arguments, gitMessageFlagConstant) {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		operands = append(operands, redactURLPassword(trimmed))
	}
	return operands
}

func (formatter CommandMessageFormatter) withoutFlagValue(arguments []string, flag string) []string {
	filtered := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		if strings.TrimSpace(arguments[index]) == flag {
			index++
			continue
		}
		filtered = append(filtered, arguments[index])
	}
	return filtered
}

func (formatter CommandMessageFormatter) firstArgument(arguments []string) string {
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) > 0 && !strings.HasPrefix(trimmed, flagPrefixConstant) {
			return trimmed
		}
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) lastArgument(arguments []string) string {
	if len(arguments) == 0 {
		return emptyStringConstant
	}
	return arguments[len(arguments)-1]
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

func findFlagValue(arguments []string, flag string) string {
	for index := 0; index < len(arguments); index++ {
		if strings.TrimSpace(arguments[index]) == flag && index+1 < len(arguments) {
			return strings.TrimSpace(arguments[index+1])
		}
	}
	return emptyStringConstant
}
