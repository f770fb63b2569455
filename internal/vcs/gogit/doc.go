// Package gogit implements the version-control client in-process with go-git.
//
// Handles opened by this package carry a *git.Repository session. Commit ids pushed
// as refspec sources are exposed through short-lived references under refs/reltrain/
// because go-git pushes references rather than bare objects.
package gogit
