// Package vcs defines the version-control client contract used by the release engine.
//
// Client exposes single-step git operations against an explicit Handle: local
// operations (commit, tag, reset, branch management) and network operations (clone,
// push, remote ref deletion). Network failures are classified into ErrAuthentication,
// ErrRejected and ErrTransport so callers can retry only transient failures with
// RetryPolicy. Two implementations exist: package gogit runs git in-process through
// go-git, package gitcli drives the git executable through execshell.
package vcs
