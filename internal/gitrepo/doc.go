// Package gitrepo represents one checked-out repository taking part in a release.
//
// Handle binds a vcs.Client to an opened working copy and exposes the checks the
// release run needs before mutating anything: cleanliness, the current commit and
// branch, and idempotent remote configuration. Nothing here touches the network.
package gitrepo
