package plan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/reltrain/internal/descriptor"
	"github.com/temirov/reltrain/internal/ordering"
	"github.com/temirov/reltrain/internal/train"
	"github.com/temirov/reltrain/internal/version"
)

const (
	// DefaultDescriptorFileName names the descriptor looked up in each working copy.
	DefaultDescriptorFileName = "release.yaml"

	readerNotConfiguredMessage  = "descriptor reader not configured"
	versionRuleRequiredTemplate = "repository %s: version rule requires a version or a bump scope"
	duplicateSourceTemplate     = "repository %s is configured more than once"
	sourceIdentifierMessage     = "repository identifier required"
	sourcePathRequiredTemplate  = "repository %s: local path required"
	readDescriptorTemplate      = "repository %s: %w"
	targetRuleTemplate          = "repository %s: %w"
	staleTargetTemplate         = "repository %s: target version %s does not advance current version %s"
	orderingTemplate            = "order repositories: %w"
	planBuiltMessage            = "Release plan built"
	repositoryPlannedMessage    = "Planned repository"
	repositoryFieldName         = "repository"
	currentVersionFieldName     = "current_version"
	targetVersionFieldName      = "target_version"
	orderFieldName              = "order"
	descriptorPathFieldName     = "descriptor"
	overrideAppliedFieldName    = "override"
)

var (
	// ErrReaderNotConfigured indicates the builder was constructed without a descriptor reader.
	ErrReaderNotConfigured = errors.New(readerNotConfiguredMessage)
	// ErrRepositoryIdentifierRequired indicates a repository source without an id.
	ErrRepositoryIdentifierRequired = errors.New(sourceIdentifierMessage)
)

// RepositorySource is one configured repository.
type RepositorySource struct {
	ID             string
	LocalPath      string
	RemoteURL      string
	DescriptorPath string
}

// VersionRule selects target versions. Version wins over Bump. Overrides replace the
// rule for the named repositories; overrides nested inside an override are ignored.
type VersionRule struct {
	Version   string
	Bump      string
	Qualifier string
	Overrides map[string]VersionRule
}

// ruleFor returns the rule applied to repositoryID and whether it came from an override.
func (rule VersionRule) ruleFor(repositoryID string) (VersionRule, bool) {
	override, found := rule.Overrides[repositoryID]
	if !found {
		return rule, false
	}
	return override, true
}

// Target computes the version current is released at.
func (rule VersionRule) Target(current version.Version) (version.Version, error) {
	explicit := strings.TrimSpace(rule.Version)
	if len(explicit) > 0 {
		return version.Parse(explicit)
	}
	scope, scopeError := version.ParseScope(rule.Bump)
	if scopeError != nil {
		return version.Version{}, scopeError
	}
	return version.Bump(current, scope, rule.Qualifier)
}

func (rule VersionRule) isEmpty() bool {
	return len(strings.TrimSpace(rule.Version)) == 0 && len(strings.TrimSpace(rule.Bump)) == 0
}

// StaleTargetError reports a target version that is not greater than the current one.
type StaleTargetError struct {
	RepositoryID string
	Current      version.Version
	Target       version.Version
}

// Error describes the stale target.
func (staleError *StaleTargetError) Error() string {
	return fmt.Sprintf(staleTargetTemplate, staleError.RepositoryID, staleError.Target, staleError.Current)
}

// Dependencies are the collaborators of a Builder.
type Dependencies struct {
	Reader descriptor.Reader
	Logger *zap.Logger
}

// Builder reads descriptors and assembles release plans.
type Builder struct {
	reader             descriptor.Reader
	logger             *zap.Logger
	descriptorFileName string
}

// NewBuilder validates dependencies. A blank descriptorFileName selects DefaultDescriptorFileName.
func NewBuilder(dependencies Dependencies, descriptorFileName string) (*Builder, error) {
	if dependencies.Reader == nil {
		return nil, ErrReaderNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fileName := strings.TrimSpace(descriptorFileName)
	if len(fileName) == 0 {
		fileName = DefaultDescriptorFileName
	}
	return &Builder{reader: dependencies.Reader, logger: logger, descriptorFileName: fileName}, nil
}

// DescriptorPath returns the descriptor location of source.
func (builder *Builder) DescriptorPath(source RepositorySource) string {
	if len(strings.TrimSpace(source.DescriptorPath)) > 0 {
		return source.DescriptorPath
	}
	return filepath.Join(source.LocalPath, builder.descriptorFileName)
}

// Build reads every repository descriptor, applies rule and orders the result so
// dependencies precede dependents. Nothing is written.
func (builder *Builder) Build(executionContext context.Context, sources []RepositorySource, rule VersionRule) (train.ReleasePlan, error) {
	descriptors := make(map[string]train.RepositoryDescriptor, len(sources))
	targets := make(map[string]version.Version, len(sources))
	nodes := make([]ordering.Node, 0, len(sources))

	for _, source := range sources {
		if contextError := executionContext.Err(); contextError != nil {
			return train.ReleasePlan{}, contextError
		}

		repository, readError := builder.read(source)
		if readError != nil {
			return train.ReleasePlan{}, readError
		}
		if _, duplicate := descriptors[repository.ID]; duplicate {
			return train.ReleasePlan{}, fmt.Errorf(duplicateSourceTemplate, repository.ID)
		}

		repositoryRule, overridden := rule.ruleFor(repository.ID)
		if repositoryRule.isEmpty() {
			return train.ReleasePlan{}, fmt.Errorf(versionRuleRequiredTemplate, repository.ID)
		}
		target, targetError := repositoryRule.Target(repository.CurrentVersion)
		if targetError != nil {
			return train.ReleasePlan{}, fmt.Errorf(targetRuleTemplate, repository.ID, targetError)
		}
		if target.Compare(repository.CurrentVersion) <= 0 {
			return train.ReleasePlan{}, &StaleTargetError{RepositoryID: repository.ID, Current: repository.CurrentVersion, Target: target}
		}

		descriptors[repository.ID] = repository
		targets[repository.ID] = target
		nodes = append(nodes, ordering.Node{ID: repository.ID, Dependencies: descriptor.DependencyIDs(repository.DependencyVersions)})
		builder.logger.Debug(repositoryPlannedMessage,
			zap.String(repositoryFieldName, repository.ID),
			zap.String(descriptorPathFieldName, repository.DescriptorPath),
			zap.String(currentVersionFieldName, repository.CurrentVersion.String()),
			zap.String(targetVersionFieldName, target.String()),
			zap.Bool(overrideAppliedFieldName, overridden))
	}

	order, orderError := ordering.Sort(nodes)
	if orderError != nil {
		return train.ReleasePlan{}, fmt.Errorf(orderingTemplate, orderError)
	}

	entries := make([]train.PlanEntry, 0, len(order))
	for _, repositoryID := range order {
		entries = append(entries, train.PlanEntry{Repository: descriptors[repositoryID], TargetVersion: targets[repositoryID]})
	}
	releasePlan, planError := train.NewReleasePlan(entries)
	if planError != nil {
		return train.ReleasePlan{}, planError
	}

	builder.logger.Info(planBuiltMessage, zap.Strings(orderFieldName, order))
	return releasePlan, nil
}

func (builder *Builder) read(source RepositorySource) (train.RepositoryDescriptor, error) {
	repositoryID := strings.TrimSpace(source.ID)
	if len(repositoryID) == 0 {
		return train.RepositoryDescriptor{}, ErrRepositoryIdentifierRequired
	}
	if len(strings.TrimSpace(source.LocalPath)) == 0 {
		return train.RepositoryDescriptor{}, fmt.Errorf(sourcePathRequiredTemplate, repositoryID)
	}

	descriptorPath := builder.DescriptorPath(source)
	currentVersion, versionError := builder.reader.ReadVersion(descriptorPath)
	if versionError != nil {
		return train.RepositoryDescriptor{}, fmt.Errorf(readDescriptorTemplate, repositoryID, versionError)
	}
	dependencies, dependenciesError := builder.reader.ReadDependencyVersions(descriptorPath)
	if dependenciesError != nil {
		return train.RepositoryDescriptor{}, fmt.Errorf(readDescriptorTemplate, repositoryID, dependenciesError)
	}

	return train.RepositoryDescriptor{
		ID:                 repositoryID,
		LocalPath:          source.LocalPath,
		RemoteURL:          strings.TrimSpace(source.RemoteURL),
		DescriptorPath:     descriptorPath,
		CurrentVersion:     currentVersion,
		DependencyVersions: dependencies,
	}, nil
}
