package pathutils

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

const windowsOperatingSystemConstant = "windows"

// RepositoryPathSanitizerConfiguration controls repository path sanitization behavior.
type RepositoryPathSanitizerConfiguration struct {
	// PruneNestedPaths drops paths contained in another provided path, so that
	// discovery roots are not walked twice.
	PruneNestedPaths bool
}

// RepositoryPathSanitizer normalizes repository paths and discovery roots.
type RepositoryPathSanitizer struct {
	homeExpander  *HomeExpander
	configuration RepositoryPathSanitizerConfiguration
}

// NewRepositoryPathSanitizer constructs a RepositoryPathSanitizer with default behavior.
func NewRepositoryPathSanitizer() *RepositoryPathSanitizer {
	return NewRepositoryPathSanitizerWithConfiguration(nil, RepositoryPathSanitizerConfiguration{})
}

// NewRepositoryPathSanitizerWithConfiguration constructs a RepositoryPathSanitizer using the provided expander and configuration.
func NewRepositoryPathSanitizerWithConfiguration(homeExpander *HomeExpander, configuration RepositoryPathSanitizerConfiguration) *RepositoryPathSanitizer {
	if homeExpander == nil {
		homeExpander = NewHomeExpander()
	}
	return &RepositoryPathSanitizer{homeExpander: homeExpander, configuration: configuration}
}

// SanitizePath trims, expands "~", and makes one path absolute. Blank input yields "".
func (sanitizer *RepositoryPathSanitizer) SanitizePath(candidatePath string) string {
	trimmedCandidate := strings.TrimSpace(candidatePath)
	if len(trimmedCandidate) == 0 {
		return ""
	}
	expandedPath := sanitizer.expander().Expand(trimmedCandidate)
	absolutePath, absoluteError := filepath.Abs(expandedPath)
	if absoluteError != nil {
		return filepath.Clean(expandedPath)
	}
	return absolutePath
}

// Sanitize applies SanitizePath to every candidate, removing blanks and duplicates
// while keeping input order. It returns nil when nothing remains.
func (sanitizer *RepositoryPathSanitizer) Sanitize(candidatePaths []string) []string {
	sanitizedPaths := make([]string, 0, len(candidatePaths))
	seen := make(map[string]struct{}, len(candidatePaths))
	for _, candidatePath := range candidatePaths {
		sanitizedPath := sanitizer.SanitizePath(candidatePath)
		if len(sanitizedPath) == 0 {
			continue
		}
		key := comparisonPath(sanitizedPath)
		if _, duplicate := seen[key]; duplicate {
			continue
		}
		seen[key] = struct{}{}
		sanitizedPaths = append(sanitizedPaths, sanitizedPath)
	}

	if len(sanitizedPaths) == 0 {
		return nil
	}
	if sanitizer != nil && sanitizer.configuration.PruneNestedPaths {
		return pruneNestedPaths(sanitizedPaths)
	}
	return sanitizedPaths
}

func (sanitizer *RepositoryPathSanitizer) expander() *HomeExpander {
	if sanitizer == nil || sanitizer.homeExpander == nil {
		return NewHomeExpander()
	}
	return sanitizer.homeExpander
}

func pruneNestedPaths(candidatePaths []string) []string {
	byLength := append([]string(nil), candidatePaths...)
	sort.SliceStable(byLength, func(first int, second int) bool {
		return len(byLength[first]) < len(byLength[second])
	})

	kept := make(map[string]struct{}, len(byLength))
	var keptOrder []string
	for _, candidate := range byLength {
		nested := false
		for _, existing := range keptOrder {
			if isNestedPath(existing, candidate) {
				nested = true
				break
			}
		}
		if !nested {
			kept[candidate] = struct{}{}
			keptOrder = append(keptOrder, candidate)
		}
	}

	pruned := make([]string, 0, len(kept))
	for _, candidate := range candidatePaths {
		if _, keep := kept[candidate]; keep {
			pruned = append(pruned, candidate)
		}
	}
	return pruned
}

func comparisonPath(path string) string {
	comparison := filepath.Clean(path)
	if runtime.GOOS == windowsOperatingSystemConstant {
		comparison = strings.ToLower(comparison)
	}
	return comparison
}

func isNestedPath(parent string, candidate string) bool {
	parentClean := comparisonPath(parent)
	candidateClean := comparisonPath(candidate)
	if candidateClean == parentClean {
		return true
	}
	if !strings.HasPrefix(candidateClean, parentClean) || len(candidateClean) <= len(parentClean) {
		return false
	}
	if parentClean[len(parentClean)-1] == os.PathSeparator {
		return true
	}
	return candidateClean[len(parentClean)] == os.PathSeparator
}
