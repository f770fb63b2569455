package ordering

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	cycleSeparatorConstant       = " -> "
	cyclicDependencyTemplate     = "cyclic dependency: %s"
	duplicateNodeTemplate        = "duplicate repository id %q"
	emptyNodeIdentifierMessage   = "repository id required"
	selfDependencyCycleMinLength = 1
)

// ErrEmptyIdentifier indicates a node without an id.
var ErrEmptyIdentifier = errors.New(emptyNodeIdentifierMessage)

// Node is one repository with the ids it depends on. Dependencies on ids outside
// the sorted set are ignored.
type Node struct {
	ID           string
	Dependencies []string
}

// CyclicDependencyError names one cycle. The first id is repeated at the end.
type CyclicDependencyError struct {
	Cycle []string
}

// Error renders the cycle as a -> b -> a.
func (cycleError *CyclicDependencyError) Error() string {
	return fmt.Sprintf(cyclicDependencyTemplate, strings.Join(cycleError.Cycle, cycleSeparatorConstant))
}

// DuplicateNodeError indicates the same id appears twice.
type DuplicateNodeError struct {
	ID string
}

// Error describes the duplicate id.
func (duplicateError *DuplicateNodeError) Error() string {
	return fmt.Sprintf(duplicateNodeTemplate, duplicateError.ID)
}

// Sort returns node ids so that every dependency precedes its dependents. Among
// nodes whose dependencies are satisfied the lexicographically smallest id goes first,
// which makes the result independent of input order.
func Sort(nodes []Node) ([]string, error) {
	dependencies := make(map[string][]string, len(nodes))
	for _, node := range nodes {
		if len(strings.TrimSpace(node.ID)) == 0 {
			return nil, ErrEmptyIdentifier
		}
		if _, duplicate := dependencies[node.ID]; duplicate {
			return nil, &DuplicateNodeError{ID: node.ID}
		}
		dependencies[node.ID] = nil
	}

	remainingDependencies := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for _, node := range nodes {
		seen := make(map[string]struct{}, len(node.Dependencies))
		for _, dependencyID := range node.Dependencies {
			if _, inSet := dependencies[dependencyID]; !inSet {
				continue
			}
			if _, repeated := seen[dependencyID]; repeated {
				continue
			}
			seen[dependencyID] = struct{}{}
			dependencies[node.ID] = append(dependencies[node.ID], dependencyID)
			dependents[dependencyID] = append(dependents[dependencyID], node.ID)
			remainingDependencies[node.ID]++
		}
	}

	var ready []string
	for id := range dependencies {
		if remainingDependencies[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	ordered := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		ordered = append(ordered, current)

		for _, dependentID := range dependents[current] {
			remainingDependencies[dependentID]--
			if remainingDependencies[dependentID] == 0 {
				ready = insertSorted(ready, dependentID)
			}
		}
	}

	if len(ordered) < len(dependencies) {
		return nil, &CyclicDependencyError{Cycle: findCycle(dependencies, remainingDependencies)}
	}
	return ordered, nil
}

func insertSorted(values []string, value string) []string {
	index := sort.SearchStrings(values, value)
	values = append(values, "")
	copy(values[index+1:], values[index:])
	values[index] = value
	return values
}

// findCycle walks unresolved nodes depth first, visiting ids in lexicographic order,
// and returns the first cycle it closes.
func findCycle(dependencies map[string][]string, remainingDependencies map[string]int) []string {
	var unresolved []string
	for id, remaining := range remainingDependencies {
		if remaining > 0 {
			unresolved = append(unresolved, id)
		}
	}
	sort.Strings(unresolved)

	const (
		unvisited = iota
		inProgress
		finished
	)
	state := make(map[string]int, len(unresolved))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		state[id] = inProgress
		stack = append(stack, id)

		sortedDependencies := append([]string(nil), dependencies[id]...)
		sort.Strings(sortedDependencies)
		for _, dependencyID := range sortedDependencies {
			switch state[dependencyID] {
			case inProgress:
				for index, stackID := range stack {
					if stackID == dependencyID {
						cycle := append([]string(nil), stack[index:]...)
						return append(cycle, dependencyID)
					}
				}
			case unvisited:
				if cycle := visit(dependencyID); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = finished
		return nil
	}

	for _, id := range unresolved {
		if state[id] == unvisited {
			if cycle := visit(id); len(cycle) > selfDependencyCycleMinLength {
				return cycle
			}
		}
	}
	return unresolved
}
