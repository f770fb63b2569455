package train

import (
	"context"
	"fmt"

	"github.com/temirov/reltrain/internal/vcs"
)

const compensationFailureTemplate = "%s: %v"

type compensation struct {
	description string
	undo        func(executionContext context.Context) error
}

// checkpoint holds what is needed to undo one repository's release.
type checkpoint struct {
	repositoryID     string
	previousCommitID vcs.CommitID
	previousBranch   string
	// previousRemoteCommitID is the remote branch tip before the push, zero when the branch was absent.
	previousRemoteCommitID vcs.CommitID
	createdTag             string
	createdBranch          string
	pushedRemoteRefs       []string
	journal                []compensation
}

func newCheckpoint(repositoryID string, previousCommitID vcs.CommitID, previousBranch string) *checkpoint {
	return &checkpoint{repositoryID: repositoryID, previousCommitID: previousCommitID, previousBranch: previousBranch}
}

func (state *checkpoint) record(description string, undo func(executionContext context.Context) error) {
	state.journal = append(state.journal, compensation{description: description, undo: undo})
}

// replay runs every compensation newest first and returns the failures.
// The journal is consumed so a checkpoint is never replayed twice.
func (state *checkpoint) replay(executionContext context.Context, observe func(description string, failure error)) []string {
	var failures []string
	for index := len(state.journal) - 1; index >= 0; index-- {
		step := state.journal[index]
		if undoError := step.undo(executionContext); undoError != nil {
			failures = append(failures, fmt.Sprintf(compensationFailureTemplate, step.description, undoError))
			if observe != nil {
				observe(step.description, undoError)
			}
		}
	}
	state.journal = nil
	return failures
}
