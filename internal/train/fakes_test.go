package train_test

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"maps"
	"path/filepath"
	"strings"
	"time"

	"github.com/temirov/reltrain/internal/descriptor"
	"github.com/temirov/reltrain/internal/vcs"
	"github.com/temirov/reltrain/internal/version"
)

const (
	fakeDescriptorFileName = "release.yaml"
	fakeRootDirectory      = "/work"
)

// descriptorState is the content of one fake descriptor file.
type descriptorState struct {
	Version      version.Version
	Dependencies map[string]version.Version
}

func (state descriptorState) clone() descriptorState {
	return descriptorState{Version: state.Version, Dependencies: maps.Clone(state.Dependencies)}
}

func (state descriptorState) equal(other descriptorState) bool {
	if !state.Version.Equal(other.Version) || len(state.Dependencies) != len(other.Dependencies) {
		return false
	}
	for identifier, dependencyVersion := range state.Dependencies {
		otherVersion, found := other.Dependencies[identifier]
		if !found || !otherVersion.Equal(dependencyVersion) {
			return false
		}
	}
	return true
}

type fakeRepository struct {
	path      string
	dirty     bool
	detached  bool
	branch    string
	head      vcs.CommitID
	branches  map[string]vcs.CommitID
	tags      map[string]vcs.CommitID
	snapshots map[vcs.CommitID]descriptorState
	working   descriptorState
	remote    map[string]vcs.CommitID
	remotes   map[string]string
}

// fakeWorld simulates working copies, their descriptors and their remotes in memory.
type fakeWorld struct {
	repositories   map[string]*fakeRepository
	failures       map[string][]error
	hooks          map[string]func()
	calls          []string
	commitMessages []string
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{repositories: map[string]*fakeRepository{}, failures: map[string][]error{}, hooks: map[string]func(){}}
}

func fakeLocalPath(repositoryID string) string {
	return filepath.Join(fakeRootDirectory, repositoryID)
}

func fakeDescriptorPath(repositoryID string) string {
	return filepath.Join(fakeLocalPath(repositoryID), fakeDescriptorFileName)
}

// addRepository creates a repository with one commit on main that is already pushed.
func (world *fakeWorld) addRepository(repositoryID string, current string, dependencies map[string]string) *fakeRepository {
	state := descriptorState{Version: version.MustParse(current), Dependencies: map[string]version.Version{}}
	for identifier, raw := range dependencies {
		state.Dependencies[identifier] = version.MustParse(raw)
	}
	initial := fakeCommitID(repositoryID, "initial")
	repository := &fakeRepository{
		path:      fakeLocalPath(repositoryID),
		branch:    "main",
		head:      initial,
		branches:  map[string]vcs.CommitID{"main": initial},
		tags:      map[string]vcs.CommitID{},
		snapshots: map[vcs.CommitID]descriptorState{initial: state.clone()},
		working:   state.clone(),
		remote:    map[string]vcs.CommitID{vcs.BranchReference("main"): initial},
		remotes:   map[string]string{vcs.DefaultRemoteName: "https://example.com/" + repositoryID + ".git"},
	}
	world.repositories[repository.path] = repository
	return repository
}

// failOn queues failures returned by successive calls matching key.
func (world *fakeWorld) failOn(key string, failures ...error) {
	world.failures[key] = append(world.failures[key], failures...)
}

// callsFor returns the recorded calls whose operation is one of operations.
func (world *fakeWorld) callsFor(operations ...string) []string {
	var matching []string
	for _, call := range world.calls {
		operation, _, _ := strings.Cut(call, " ")
		for _, candidate := range operations {
			if operation == candidate {
				matching = append(matching, call)
			}
		}
	}
	return matching
}

func (world *fakeWorld) record(operation string, path string, details ...string) error {
	parts := append([]string{operation, path}, details...)
	key := strings.Join(parts, " ")
	world.calls = append(world.calls, key)
	if hook, found := world.hooks[key]; found {
		hook()
	}
	queued := world.failures[key]
	if len(queued) == 0 {
		return nil
	}
	world.failures[key] = queued[1:]
	return queued[0]
}

func (world *fakeWorld) repositoryFor(handle *vcs.Handle) (*fakeRepository, error) {
	repository, found := world.repositories[handle.Path()]
	if !found {
		return nil, vcs.ErrHandleNotConfigured
	}
	return repository, nil
}

func (world *fakeWorld) repositoryForDescriptor(path string) (*fakeRepository, error) {
	repository, found := world.repositories[filepath.Dir(path)]
	if !found {
		return nil, fmt.Errorf("no descriptor at %s", path)
	}
	return repository, nil
}

func fakeCommitID(parts ...string) vcs.CommitID {
	digest := sha1.Sum([]byte(strings.Join(parts, "\x00")))
	return vcs.CommitID(hex.EncodeToString(digest[:]))
}

func (world *fakeWorld) Clone(_ context.Context, remoteURL string, localPath string) (*vcs.Handle, error) {
	if failure := world.record("clone", localPath, remoteURL); failure != nil {
		return nil, failure
	}
	return vcs.NewHandle(localPath, nil), nil
}

func (world *fakeWorld) Open(_ context.Context, localPath string) (*vcs.Handle, error) {
	if failure := world.record("open", localPath); failure != nil {
		return nil, failure
	}
	if _, found := world.repositories[localPath]; !found {
		return nil, vcs.NewOperationError("open", localPath, vcs.ErrNotAGitRepository, nil)
	}
	return vcs.NewHandle(localPath, world), nil
}

func (world *fakeWorld) IsClean(_ context.Context, handle *vcs.Handle) (bool, error) {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return false, lookupError
	}
	if failure := world.record("status", repository.path); failure != nil {
		return false, failure
	}
	return !repository.dirty && repository.working.equal(repository.snapshots[repository.head]), nil
}

func (world *fakeWorld) CurrentCommit(_ context.Context, handle *vcs.Handle) (vcs.CommitID, error) {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return "", lookupError
	}
	return repository.head, nil
}

func (world *fakeWorld) CurrentBranch(_ context.Context, handle *vcs.Handle) (string, error) {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return "", lookupError
	}
	if repository.detached {
		return "", nil
	}
	return repository.branch, nil
}

func (world *fakeWorld) Commit(_ context.Context, handle *vcs.Handle, message string) (vcs.CommitID, error) {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return "", lookupError
	}
	if failure := world.record("commit", repository.path); failure != nil {
		return "", failure
	}
	commitID := fakeCommitID(repository.head.String(), message)
	repository.snapshots[commitID] = repository.working.clone()
	repository.head = commitID
	repository.branches[repository.branch] = commitID
	world.commitMessages = append(world.commitMessages, message)
	return commitID, nil
}

func (world *fakeWorld) Tag(_ context.Context, handle *vcs.Handle, name string, commit vcs.CommitID, _ string) error {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return lookupError
	}
	if failure := world.record("tag", repository.path, name); failure != nil {
		return failure
	}
	if _, exists := repository.tags[name]; exists {
		return vcs.ErrTagExists
	}
	repository.tags[name] = commit
	return nil
}

func (world *fakeWorld) TagExists(_ context.Context, handle *vcs.Handle, name string) (bool, error) {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return false, lookupError
	}
	_, exists := repository.tags[name]
	return exists, nil
}

func (world *fakeWorld) DeleteTag(_ context.Context, handle *vcs.Handle, name string) error {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return lookupError
	}
	if failure := world.record("delete-tag", repository.path, name); failure != nil {
		return failure
	}
	if _, exists := repository.tags[name]; !exists {
		return vcs.ErrTagMissing
	}
	delete(repository.tags, name)
	return nil
}

func (world *fakeWorld) ResetHard(_ context.Context, handle *vcs.Handle, commit vcs.CommitID) error {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return lookupError
	}
	if failure := world.record("reset", repository.path, commit.String()); failure != nil {
		return failure
	}
	snapshot, known := repository.snapshots[commit]
	if !known {
		return fmt.Errorf("unknown commit %s", commit)
	}
	repository.head = commit
	repository.branches[repository.branch] = commit
	repository.working = snapshot.clone()
	return nil
}

func (world *fakeWorld) CreateBranch(_ context.Context, handle *vcs.Handle, name string, commit vcs.CommitID) error {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return lookupError
	}
	if failure := world.record("branch", repository.path, name); failure != nil {
		return failure
	}
	repository.branches[name] = commit
	return nil
}

func (world *fakeWorld) Checkout(_ context.Context, handle *vcs.Handle, branch string) error {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return lookupError
	}
	if failure := world.record("checkout", repository.path, branch); failure != nil {
		return failure
	}
	commit, exists := repository.branches[branch]
	if !exists {
		return vcs.ErrBranchMissing
	}
	repository.branch = branch
	repository.head = commit
	repository.working = repository.snapshots[commit].clone()
	return nil
}

func (world *fakeWorld) DeleteLocalBranch(_ context.Context, handle *vcs.Handle, name string) error {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return lookupError
	}
	if failure := world.record("delete-branch", repository.path, name); failure != nil {
		return failure
	}
	if repository.branch == name {
		return fmt.Errorf("cannot delete checked out branch %s", name)
	}
	delete(repository.branches, name)
	return nil
}

func (world *fakeWorld) Push(_ context.Context, handle *vcs.Handle, remoteName string, refSpecs []vcs.RefSpec) error {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return lookupError
	}
	if _, configured := repository.remotes[remoteName]; !configured {
		return vcs.NewOperationError("push", repository.path, vcs.ErrRejected, fmt.Errorf("remote %s not found", remoteName))
	}
	for _, refSpec := range refSpecs {
		if failure := world.record("push", repository.path, refSpec.String()); failure != nil {
			return failure
		}
		source := refSpec.Source()
		var commit vcs.CommitID
		switch {
		case vcs.IsBranchReference(source):
			commit = repository.branches[vcs.ShortReferenceName(source)]
		case vcs.IsTagReference(source):
			commit = repository.tags[vcs.ShortReferenceName(source)]
		default:
			commit = vcs.CommitID(source)
		}
		repository.remote[refSpec.Destination()] = commit
	}
	return nil
}

func (world *fakeWorld) DeleteRemoteRef(_ context.Context, handle *vcs.Handle, _ string, reference string) error {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return lookupError
	}
	if failure := world.record("delete-remote", repository.path, reference); failure != nil {
		return failure
	}
	delete(repository.remote, reference)
	return nil
}

func (world *fakeWorld) RemoteReference(_ context.Context, handle *vcs.Handle, _ string, reference string) (vcs.CommitID, bool, error) {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return "", false, lookupError
	}
	if failure := world.record("ls-remote", repository.path, reference); failure != nil {
		return "", false, failure
	}
	commit, exists := repository.remote[reference]
	return commit, exists, nil
}

func (world *fakeWorld) SetRemote(_ context.Context, handle *vcs.Handle, name string, url string) error {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return lookupError
	}
	if failure := world.record("set-remote", repository.path, name); failure != nil {
		return failure
	}
	repository.remotes[name] = url
	return nil
}

func (world *fakeWorld) RemoveRemote(_ context.Context, handle *vcs.Handle, name string) error {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return lookupError
	}
	if failure := world.record("remove-remote", repository.path, name); failure != nil {
		return failure
	}
	delete(repository.remotes, name)
	return nil
}

func (world *fakeWorld) RemoteURL(_ context.Context, handle *vcs.Handle, name string) (string, bool, error) {
	repository, lookupError := world.repositoryFor(handle)
	if lookupError != nil {
		return "", false, lookupError
	}
	url, exists := repository.remotes[name]
	return url, exists, nil
}

// fakeDescriptors writes into the working state of the repository owning the descriptor.
type fakeDescriptors struct {
	world *fakeWorld
}

func (descriptors fakeDescriptors) ReadVersion(path string) (version.Version, error) {
	repository, lookupError := descriptors.world.repositoryForDescriptor(path)
	if lookupError != nil {
		return version.Version{}, lookupError
	}
	return repository.working.Version, nil
}

func (descriptors fakeDescriptors) ReadDependencyVersions(path string) (map[string]version.Version, error) {
	repository, lookupError := descriptors.world.repositoryForDescriptor(path)
	if lookupError != nil {
		return nil, lookupError
	}
	return maps.Clone(repository.working.Dependencies), nil
}

func (descriptors fakeDescriptors) WriteVersion(path string, target version.Version) error {
	repository, lookupError := descriptors.world.repositoryForDescriptor(path)
	if lookupError != nil {
		return lookupError
	}
	if failure := descriptors.world.record("write-version", repository.path, target.String()); failure != nil {
		return failure
	}
	repository.working.Version = target
	return nil
}

func (descriptors fakeDescriptors) WriteDependencyVersion(path string, dependencyID string, target version.Version) error {
	repository, lookupError := descriptors.world.repositoryForDescriptor(path)
	if lookupError != nil {
		return lookupError
	}
	if failure := descriptors.world.record("write-dependency", repository.path, dependencyID, target.String()); failure != nil {
		return failure
	}
	if _, declared := repository.working.Dependencies[dependencyID]; !declared {
		return descriptor.ErrDependencyNotDeclared
	}
	repository.working.Dependencies[dependencyID] = target
	return nil
}

func noSleep(context.Context, time.Duration) error {
	return nil
}
