// Package gitcli implements the version-control client on top of the git executable.
//
// Commands run through an execshell executor so every invocation is logged and
// observable; failures are classified from git's standard error.
package gitcli
