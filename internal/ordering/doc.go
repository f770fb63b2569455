// Package ordering computes a deterministic release order over repositories that
// declare dependencies on one another.
package ordering
