package execshell

// CommandEventObserver follows the git invocations a ShellExecutor makes.
// Events arrive on the goroutine that called Execute.
type CommandEventObserver interface {
	// CommandStarted fires before the process is started.
	CommandStarted(command ShellCommand)
	// CommandCompleted fires once the process exited, whatever its exit code.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed fires when the process could not be started or was cancelled.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// CommandEventObserverFuncs adapts plain functions to CommandEventObserver.
// Nil fields ignore their event, so the zero value discards everything.
type CommandEventObserverFuncs struct {
	Started         func(command ShellCommand)
	Completed       func(command ShellCommand, result ExecutionResult)
	ExecutionFailed func(command ShellCommand, failure error)
}

// CommandStarted calls Started when set.
func (observer CommandEventObserverFuncs) CommandStarted(command ShellCommand) {
	if observer.Started != nil {
		observer.Started(command)
	}
}

// CommandCompleted calls Completed when set.
func (observer CommandEventObserverFuncs) CommandCompleted(command ShellCommand, result ExecutionResult) {
	if observer.Completed != nil {
		observer.Completed(command, result)
	}
}

// CommandExecutionFailed calls ExecutionFailed when set.
func (observer CommandEventObserverFuncs) CommandExecutionFailed(command ShellCommand, failure error) {
	if observer.ExecutionFailed != nil {
		observer.ExecutionFailed(command, failure)
	}
}
