// Package version models release versions: a numeric major.minor.patch triple with an
// optional qualifier such as SNAPSHOT or RC1.
//
// Versions are immutable values. A qualified version sorts before the same triple
// without a qualifier, so 1.2.0-SNAPSHOT < 1.2.0. Parsing and precedence are delegated to
// github.com/Masterminds/semver/v3.
package version
