package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const (
	// DefaultRootFlagName exposes the shared repository root flag name.
	DefaultRootFlagName = "root"
	// DefaultRootFlagUsage describes the shared repository root flag purpose.
	DefaultRootFlagUsage = "Directories scanned for repositories carrying a release descriptor (repeatable)"
	// RemoteFlagName exposes the shared remote flag name.
	RemoteFlagName = "remote"
	// RemoteFlagUsage describes the shared remote flag purpose.
	RemoteFlagUsage = "Remote that receives release branches and tags"
	// VersionFlagName exposes the explicit target version flag name.
	VersionFlagName = "version"
	// BumpFlagName exposes the bump scope flag name.
	BumpFlagName = "bump"
	// QualifierFlagName exposes the pre-release qualifier flag name.
	QualifierFlagName = "qualifier"
	// SetFlagName exposes the per-repository override flag name.
	SetFlagName = "set"

	versionFlagUsage            = "Explicit target version applied to every repository"
	bumpFlagDescription         = "Scope bumped from each repository's current version"
	qualifierFlagUsage          = "Pre-release qualifier appended to bumped versions"
	setFlagUsage                = "Per-repository target version as id=version (repeatable)"
	assignmentSeparator         = "="
	invalidAssignmentTemplate   = "invalid assignment %q: expected id=version"
	duplicateAssignmentTemplate = "duplicate assignment for repository %s"
	defaultBumpChoiceConstant   = "minor"
	bumpChoiceMajorConstant     = "major"
	bumpChoicePatchConstant     = "patch"
)

// RootFlagDefinition captures configuration for repository root flags.
type RootFlagDefinition struct {
	Name       string
	Usage      string
	Enabled    bool
	Persistent bool
}

// RootFlagValues stores repository root flag values.
type RootFlagValues struct {
	Roots []string
}

// BindRootFlags attaches the repository root flag to the provided command.
func BindRootFlags(command *cobra.Command, defaults RootFlagValues, definition RootFlagDefinition) *RootFlagValues {
	values := RootFlagValues{Roots: append([]string{}, defaults.Roots...)}
	if command == nil || !definition.Enabled {
		return &values
	}
	flagName := definition.Name
	if len(flagName) == 0 {
		flagName = DefaultRootFlagName
	}
	flagUsage := definition.Usage
	if len(flagUsage) == 0 {
		flagUsage = DefaultRootFlagUsage
	}

	targetSet := command.Flags()
	if definition.Persistent {
		targetSet = command.PersistentFlags()
	}
	if targetSet.Lookup(flagName) == nil {
		targetSet.StringSliceVar(&values.Roots, flagName, values.Roots, flagUsage)
	}
	return &values
}

// EnsureRemoteFlag guarantees the shared remote flag is available on the command.
func EnsureRemoteFlag(command *cobra.Command, defaultValue string, usage string) {
	if command == nil {
		return
	}
	if len(strings.TrimSpace(usage)) == 0 {
		usage = RemoteFlagUsage
	}
	persistentSet := command.PersistentFlags()
	if persistentSet.Lookup(RemoteFlagName) == nil {
		persistentSet.String(RemoteFlagName, defaultValue, usage)
	}
}

// VersionRuleFlagValues stores the version selection flags of plan and release.
type VersionRuleFlagValues struct {
	Version     string
	Bump        string
	Qualifier   string
	Assignments []string
}

// BindVersionRuleFlags attaches --version, --bump, --qualifier, and --set to the command.
func BindVersionRuleFlags(command *cobra.Command) *VersionRuleFlagValues {
	values := &VersionRuleFlagValues{}
	if command == nil {
		return values
	}
	flagSet := command.Flags()
	flagSet.StringVar(&values.Version, VersionFlagName, "", versionFlagUsage)
	flagSet.StringVar(&values.Bump, BumpFlagName, "", FormatChoiceUsage(defaultBumpChoiceConstant, []string{bumpChoiceMajorConstant, defaultBumpChoiceConstant, bumpChoicePatchConstant}, bumpFlagDescription))
	flagSet.StringVar(&values.Qualifier, QualifierFlagName, "", qualifierFlagUsage)
	flagSet.StringArrayVar(&values.Assignments, SetFlagName, nil, setFlagUsage)
	return values
}

// ParseAssignments converts id=version pairs into a map keyed by repository id.
func ParseAssignments(assignments []string) (map[string]string, error) {
	parsed := make(map[string]string, len(assignments))
	for _, assignment := range assignments {
		repositoryID, targetVersion, found := strings.Cut(assignment, assignmentSeparator)
		repositoryID = strings.TrimSpace(repositoryID)
		targetVersion = strings.TrimSpace(targetVersion)
		if !found || len(repositoryID) == 0 || len(targetVersion) == 0 {
			return nil, fmt.Errorf(invalidAssignmentTemplate, assignment)
		}
		if _, exists := parsed[repositoryID]; exists {
			return nil, fmt.Errorf(duplicateAssignmentTemplate, repositoryID)
		}
		parsed[repositoryID] = targetVersion
	}
	return parsed, nil
}
