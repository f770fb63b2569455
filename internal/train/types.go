package train

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/temirov/reltrain/internal/version"
)

const (
	repositoryIdentifierRequiredMessage = "repository identifier required"
	descriptorPathRequiredTemplate      = "repository %s: descriptor path required"
	targetVersionRequiredTemplate       = "repository %s: target version required"
	duplicateRepositoryTemplate         = "repository %s appears more than once in the plan"
	dependencyOrderTemplate             = "repository %s is planned before its dependency %s"
)

// ErrRepositoryIdentifierRequired indicates a plan entry without an id.
var ErrRepositoryIdentifierRequired = errors.New(repositoryIdentifierRequiredMessage)

// RepositoryDescriptor captures one repository as read at plan time.
type RepositoryDescriptor struct {
	ID                 string
	LocalPath          string
	RemoteURL          string
	DescriptorPath     string
	CurrentVersion     version.Version
	DependencyVersions map[string]version.Version
}

// Clone returns a copy that shares no mutable state with descriptor.
func (descriptor RepositoryDescriptor) Clone() RepositoryDescriptor {
	cloned := descriptor
	if descriptor.DependencyVersions != nil {
		cloned.DependencyVersions = maps.Clone(descriptor.DependencyVersions)
	}
	return cloned
}

// PlanEntry pairs a repository with the version it is released at.
type PlanEntry struct {
	Repository    RepositoryDescriptor
	TargetVersion version.Version
}

// DuplicateRepositoryError reports a repository listed twice in a plan.
type DuplicateRepositoryError struct {
	RepositoryID string
}

// Error describes the duplicate.
func (duplicateError *DuplicateRepositoryError) Error() string {
	return fmt.Sprintf(duplicateRepositoryTemplate, duplicateError.RepositoryID)
}

// DependencyOrderError reports a dependent planned ahead of an in-plan dependency.
type DependencyOrderError struct {
	RepositoryID string
	DependencyID string
}

// Error describes the misordered pair.
func (orderError *DependencyOrderError) Error() string {
	return fmt.Sprintf(dependencyOrderTemplate, orderError.RepositoryID, orderError.DependencyID)
}

// ReleasePlan is an immutable, dependency ordered sequence of plan entries.
type ReleasePlan struct {
	entries []PlanEntry
	indexes map[string]int
}

// NewReleasePlan validates entries and freezes them into a plan. Every in-plan
// dependency must precede its dependent.
func NewReleasePlan(entries []PlanEntry) (ReleasePlan, error) {
	frozen := make([]PlanEntry, 0, len(entries))
	indexes := make(map[string]int, len(entries))
	for _, entry := range entries {
		identifier := strings.TrimSpace(entry.Repository.ID)
		if len(identifier) == 0 {
			return ReleasePlan{}, ErrRepositoryIdentifierRequired
		}
		if _, duplicate := indexes[identifier]; duplicate {
			return ReleasePlan{}, &DuplicateRepositoryError{RepositoryID: identifier}
		}
		if len(strings.TrimSpace(entry.Repository.DescriptorPath)) == 0 {
			return ReleasePlan{}, fmt.Errorf(descriptorPathRequiredTemplate, identifier)
		}
		if entry.TargetVersion.IsZero() {
			return ReleasePlan{}, fmt.Errorf(targetVersionRequiredTemplate, identifier)
		}
		indexes[identifier] = len(frozen)
		repository := entry.Repository.Clone()
		repository.ID = identifier
		frozen = append(frozen, PlanEntry{Repository: repository, TargetVersion: entry.TargetVersion})
	}

	for position, entry := range frozen {
		for dependencyID := range entry.Repository.DependencyVersions {
			dependencyPosition, planned := indexes[dependencyID]
			if !planned || dependencyID == entry.Repository.ID {
				continue
			}
			if dependencyPosition > position {
				return ReleasePlan{}, &DependencyOrderError{RepositoryID: entry.Repository.ID, DependencyID: dependencyID}
			}
		}
	}

	return ReleasePlan{entries: frozen, indexes: indexes}, nil
}

// Entries returns a copy of the plan entries in release order.
func (plan ReleasePlan) Entries() []PlanEntry {
	copied := make([]PlanEntry, 0, len(plan.entries))
	for _, entry := range plan.entries {
		copied = append(copied, PlanEntry{Repository: entry.Repository.Clone(), TargetVersion: entry.TargetVersion})
	}
	return copied
}

// Len returns the number of repositories in the plan.
func (plan ReleasePlan) Len() int {
	return len(plan.entries)
}

// TargetVersion returns the planned version of repositoryID.
func (plan ReleasePlan) TargetVersion(repositoryID string) (version.Version, bool) {
	index, planned := plan.indexes[repositoryID]
	if !planned {
		return version.Version{}, false
	}
	return plan.entries[index].TargetVersion, true
}
