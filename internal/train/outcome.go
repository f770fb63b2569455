package train

import "github.com/temirov/reltrain/internal/vcs"

// Outcome is the terminal state of one repository in a run.
type Outcome int

// Repository outcomes.
const (
	OutcomeSkipped Outcome = iota
	OutcomeSucceeded
	OutcomeRolledBack
)

const (
	outcomeSucceededLabel  = "succeeded"
	outcomeRolledBackLabel = "rolled back"
	outcomeSkippedLabel    = "skipped"
)

// String returns the human readable outcome.
func (outcome Outcome) String() string {
	switch outcome {
	case OutcomeSucceeded:
		return outcomeSucceededLabel
	case OutcomeRolledBack:
		return outcomeRolledBackLabel
	default:
		return outcomeSkippedLabel
	}
}

// Entry records what happened to one repository.
type Entry struct {
	RepositoryID         string
	Outcome              Outcome
	Detail               string
	CommitID             vcs.CommitID
	Tag                  string
	CompensationFailures []string
}

// Report lists one entry per plan entry, in plan order.
type Report struct {
	Entries   []Entry
	Cancelled bool
}

// Succeeded reports whether every repository was released and the run was not cancelled.
func (report Report) Succeeded() bool {
	if report.Cancelled {
		return false
	}
	for _, entry := range report.Entries {
		if entry.Outcome != OutcomeSucceeded {
			return false
		}
	}
	return true
}

// Entry returns the entry recorded for repositoryID.
func (report Report) Entry(repositoryID string) (Entry, bool) {
	for _, entry := range report.Entries {
		if entry.RepositoryID == repositoryID {
			return entry, true
		}
	}
	return Entry{}, false
}

// CompensationFailures returns every compensation failure recorded in the run.
func (report Report) CompensationFailures() []string {
	var failures []string
	for _, entry := range report.Entries {
		failures = append(failures, entry.CompensationFailures...)
	}
	return failures
}
