// Package release wires the plan, release and clone commands: it turns command
// configuration and flags into repository sources and version rules, builds the
// release plan, and drives the release orchestrator.
package release
