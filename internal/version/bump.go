package version

import (
	"fmt"
	"strings"
)

// Scope selects the version component incremented by Bump.
type Scope string

// Supported bump scopes.
const (
	ScopeMajor Scope = Scope(scopeMajorStringConstant)
	ScopeMinor Scope = Scope(scopeMinorStringConstant)
	ScopePatch Scope = Scope(scopePatchStringConstant)
)

// ParseScope converts a textual scope, case-insensitively.
func ParseScope(raw string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(raw))) {
	case ScopeMajor:
		return ScopeMajor, nil
	case ScopeMinor:
		return ScopeMinor, nil
	case ScopePatch:
		return ScopePatch, nil
	default:
		return "", fmt.Errorf(unsupportedScopeTemplateConstant, raw)
	}
}

// Bump increments the selected component and applies the optional qualifier.
//
// Major and minor bumps always increment and reset lower components. A patch bump of a
// qualified version releases that triple (1.2.3-SNAPSHOT -> 1.2.3) instead of moving
// past it.
func Bump(current Version, scope Scope, qualifier string) (Version, error) {
	base := current.toSemver()

	switch scope {
	case ScopeMajor:
		incremented := base.IncMajor()
		base = &incremented
	case ScopeMinor:
		incremented := base.IncMinor()
		base = &incremented
	case ScopePatch:
		incremented := base.IncPatch()
		base = &incremented
	default:
		return Version{}, fmt.Errorf(unsupportedScopeTemplateConstant, scope)
	}

	return New(base.Major(), base.Minor(), base.Patch(), qualifier)
}
