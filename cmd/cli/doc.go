// Package cli constructs the reltrain command-line interface, wiring the Cobra
// command hierarchy, configuration loader, and structured logging primitives.
// The plan, release, and clone subcommands are built by the release package.
package cli
