package version

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	versionFormatTemplateConstant       = "%d.%d.%d"
	qualifiedVersionFormatTemplate      = "%d.%d.%d-%s"
	malformedVersionTemplateConstant    = "malformed version %q"
	malformedVersionCauseTemplate       = "malformed version %q: %v"
	emptyVersionMessageConstant         = "version is empty"
	buildMetadataUnsupportedMessage     = "build metadata is not supported"
	invalidQualifierTemplateConstant    = "invalid qualifier %q"
	unsupportedScopeTemplateConstant    = "unsupported bump scope %q"
	dottedQualifierReplacementConstant  = "$1-$2"
	versionPrefixCharactersConstant     = "vV"
	scopeMajorStringConstant            = "major"
	scopeMinorStringConstant            = "minor"
	scopePatchStringConstant            = "patch"
	comparisonLessConstant              = -1
	comparisonEqualConstant             = 0
	comparisonGreaterConstant           = 1
	qualifierValidationVersionConstant  = "0.0.0"
	qualifierValidationTemplateConstant = "%s-%s"
)

// Maven style descriptors write qualifiers after a dot (1.2.0.RELEASE).
var dottedQualifierPattern = regexp.MustCompile(`^(\d+\.\d+\.\d+)\.([0-9A-Za-z][0-9A-Za-z.-]*)$`)

// MalformedVersionError reports a version string that cannot be parsed.
type MalformedVersionError struct {
	Input string
	Cause error
}

// Error describes the malformed input.
func (malformedError *MalformedVersionError) Error() string {
	if malformedError.Cause == nil {
		return fmt.Sprintf(malformedVersionTemplateConstant, malformedError.Input)
	}
	return fmt.Sprintf(malformedVersionCauseTemplate, malformedError.Input, malformedError.Cause)
}

// Unwrap exposes the underlying parse failure.
func (malformedError *MalformedVersionError) Unwrap() error {
	return malformedError.Cause
}

// Version is an immutable release version.
type Version struct {
	major     uint64
	minor     uint64
	patch     uint64
	qualifier string
	raw       string
}

// New constructs a version from its components.
func New(major uint64, minor uint64, patch uint64, qualifier string) (Version, error) {
	trimmedQualifier := strings.TrimSpace(qualifier)
	if len(trimmedQualifier) > 0 {
		if qualifierError := validateQualifier(trimmedQualifier); qualifierError != nil {
			return Version{}, qualifierError
		}
	}
	constructed := Version{major: major, minor: minor, patch: patch, qualifier: trimmedQualifier}
	constructed.raw = constructed.format()
	return constructed, nil
}

// MustParse parses raw and panics on failure. Intended for constants and tests.
func MustParse(raw string) Version {
	parsed, parseError := Parse(raw)
	if parseError != nil {
		panic(parseError)
	}
	return parsed
}

// Parse converts a textual version such as 1.2.0, 1.2.0-SNAPSHOT or 1.2.0.RELEASE.
func Parse(raw string) (Version, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Version{}, &MalformedVersionError{Input: raw, Cause: errors.New(emptyVersionMessageConstant)}
	}

	normalized := strings.TrimLeft(trimmed, versionPrefixCharactersConstant)
	normalized = dottedQualifierPattern.ReplaceAllString(normalized, dottedQualifierReplacementConstant)

	parsed, parseError := semver.StrictNewVersion(normalized)
	if parseError != nil {
		return Version{}, &MalformedVersionError{Input: raw, Cause: parseError}
	}
	if len(parsed.Metadata()) > 0 {
		return Version{}, &MalformedVersionError{Input: raw, Cause: errors.New(buildMetadataUnsupportedMessage)}
	}

	return Version{
		major:     parsed.Major(),
		minor:     parsed.Minor(),
		patch:     parsed.Patch(),
		qualifier: parsed.Prerelease(),
		raw:       trimmed,
	}, nil
}

// Major returns the major component.
func (version Version) Major() uint64 {
	return version.major
}

// Minor returns the minor component.
func (version Version) Minor() uint64 {
	return version.minor
}

// Patch returns the patch component.
func (version Version) Patch() uint64 {
	return version.patch
}

// Qualifier returns the optional qualifier, empty for release versions.
func (version Version) Qualifier() string {
	return version.qualifier
}

// IsQualified reports whether the version carries a qualifier.
func (version Version) IsQualified() bool {
	return len(version.qualifier) > 0
}

// Raw returns the text the version was parsed from.
func (version Version) Raw() string {
	return version.raw
}

// IsZero reports whether the version is the zero value.
func (version Version) IsZero() bool {
	return version == Version{}
}

// String renders the canonical form, which always parses back to an equal version.
func (version Version) String() string {
	return version.format()
}

// Equal reports structural equality, ignoring the raw spelling.
func (version Version) Equal(other Version) bool {
	return version.major == other.major &&
		version.minor == other.minor &&
		version.patch == other.patch &&
		version.qualifier == other.qualifier
}

// Compare orders versions: -1 when version < other, 0 when equal, 1 when greater.
func (version Version) Compare(other Version) int {
	return Compare(version, other)
}

// Less reports whether version sorts before other.
func (version Version) Less(other Version) bool {
	return Compare(version, other) == comparisonLessConstant
}

// Compare orders two versions with semantic-version precedence.
func Compare(first Version, second Version) int {
	comparison := first.toSemver().Compare(second.toSemver())
	switch {
	case comparison < 0:
		return comparisonLessConstant
	case comparison > 0:
		return comparisonGreaterConstant
	default:
		return comparisonEqualConstant
	}
}

func (version Version) toSemver() *semver.Version {
	return semver.New(version.major, version.minor, version.patch, version.qualifier, "")
}

func (version Version) format() string {
	if len(version.qualifier) == 0 {
		return fmt.Sprintf(versionFormatTemplateConstant, version.major, version.minor, version.patch)
	}
	return fmt.Sprintf(qualifiedVersionFormatTemplate, version.major, version.minor, version.patch, version.qualifier)
}

func validateQualifier(qualifier string) error {
	candidate := fmt.Sprintf(qualifierValidationTemplateConstant, qualifierValidationVersionConstant, qualifier)
	if _, parseError := semver.StrictNewVersion(candidate); parseError != nil {
		return &MalformedVersionError{Input: candidate, Cause: fmt.Errorf(invalidQualifierTemplateConstant, qualifier)}
	}
	return nil
}
