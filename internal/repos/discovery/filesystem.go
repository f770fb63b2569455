// Package discovery locates release participants on disk: git working copies
// whose top level carries the release descriptor.
package discovery

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/temirov/reltrain/internal/plan"
	"github.com/temirov/reltrain/internal/repos/filesystem"
)

const (
	gitMetadataDirectoryNameConstant = ".git"
	discoveryRootTemplateConstant    = "discovery root %s: %w"
	duplicateIdentifierTemplate      = "repository id %s is shared by %s and %s"
)

// DuplicateIdentifierError reports two discovered working copies with the same directory name.
type DuplicateIdentifierError struct {
	RepositoryID string
	FirstPath    string
	SecondPath   string
}

// Error describes the collision.
func (duplicateError *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf(duplicateIdentifierTemplate, duplicateError.RepositoryID, duplicateError.FirstPath, duplicateError.SecondPath)
}

// DescriptorDiscoverer walks roots for working copies carrying a descriptor file.
type DescriptorDiscoverer struct {
	fileSystem         filesystem.FileSystem
	descriptorFileName string
}

// NewDescriptorDiscoverer constructs a discoverer. A nil fileSystem selects the
// operating system and a blank descriptorFileName selects plan.DefaultDescriptorFileName.
func NewDescriptorDiscoverer(fileSystem filesystem.FileSystem, descriptorFileName string) *DescriptorDiscoverer {
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	descriptorFileName = strings.TrimSpace(descriptorFileName)
	if len(descriptorFileName) == 0 {
		descriptorFileName = plan.DefaultDescriptorFileName
	}
	return &DescriptorDiscoverer{fileSystem: fileSystem, descriptorFileName: descriptorFileName}
}

// DiscoverRepositories walks roots and returns one source per working copy, using the
// directory name as the repository id. The result is sorted by id. Unreadable
// subdirectories are skipped; a missing root is an error.
func (discoverer *DescriptorDiscoverer) DiscoverRepositories(roots []string) ([]plan.RepositorySource, error) {
	pathsByIdentifier := make(map[string]string)
	var sources []plan.RepositorySource

	for _, root := range roots {
		if _, statError := discoverer.fileSystem.Stat(root); statError != nil {
			return nil, fmt.Errorf(discoveryRootTemplateConstant, root, statError)
		}

		walkError := filepath.WalkDir(root, func(path string, directoryEntry fs.DirEntry, walkError error) error {
			if walkError != nil || directoryEntry.Name() != gitMetadataDirectoryNameConstant {
				return nil
			}

			repositoryPath := filepath.Dir(path)
			skip := func() error {
				if directoryEntry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			descriptorPath := filepath.Join(repositoryPath, discoverer.descriptorFileName)
			descriptorInfo, statError := discoverer.fileSystem.Stat(descriptorPath)
			if statError != nil || descriptorInfo.IsDir() {
				return skip()
			}

			repositoryID := filepath.Base(repositoryPath)
			if existingPath, exists := pathsByIdentifier[repositoryID]; exists {
				if existingPath == repositoryPath {
					return skip()
				}
				return &DuplicateIdentifierError{RepositoryID: repositoryID, FirstPath: existingPath, SecondPath: repositoryPath}
			}
			pathsByIdentifier[repositoryID] = repositoryPath
			sources = append(sources, plan.RepositorySource{
				ID:             repositoryID,
				LocalPath:      repositoryPath,
				DescriptorPath: descriptorPath,
			})
			return skip()
		})
		if walkError != nil {
			return nil, walkError
		}
	}

	sort.Slice(sources, func(first int, second int) bool {
		return sources[first].ID < sources[second].ID
	})
	return sources, nil
}

// MergeSources appends discovered sources to the explicit ones. An explicit entry wins
// over a discovered working copy with the same id.
func MergeSources(explicit []plan.RepositorySource, discovered []plan.RepositorySource) []plan.RepositorySource {
	merged := append([]plan.RepositorySource(nil), explicit...)
	explicitIdentifiers := make(map[string]struct{}, len(explicit))
	for _, source := range explicit {
		explicitIdentifiers[source.ID] = struct{}{}
	}
	for _, source := range discovered {
		if _, configured := explicitIdentifiers[source.ID]; configured {
			continue
		}
		merged = append(merged, source)
	}
	return merged
}
