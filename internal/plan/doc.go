// Package plan turns configured repositories and version rules into a dependency
// ordered train.ReleasePlan. It is the only component that reads descriptors.
package plan
