// Package execshell runs external tools with structured logging.
//
// ShellExecutor wraps a CommandRunner, converts non-zero exit codes into
// CommandFailedError, and forwards lifecycle events to a CommandEventObserver.
// OSCommandRunner is the os/exec backed runner used by the git executable backend.
package execshell
