// Package dependencies resolves the default collaborators of the release commands
// when callers do not inject their own.
package dependencies

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/reltrain/internal/descriptor"
	"github.com/temirov/reltrain/internal/execshell"
	"github.com/temirov/reltrain/internal/repos/filesystem"
	"github.com/temirov/reltrain/internal/vcs"
	"github.com/temirov/reltrain/internal/vcs/gitcli"
	"github.com/temirov/reltrain/internal/vcs/gogit"
)

// VersionControlBackend names a vcs.Client implementation.
type VersionControlBackend string

// Supported version control backends.
const (
	BackendEmbedded VersionControlBackend = "embedded"
	BackendCLI      VersionControlBackend = "cli"
)

const unsupportedBackendTemplate = "%w: %q (expected %s or %s)"

// ErrUnsupportedBackend indicates an unknown git backend name.
var ErrUnsupportedBackend = errors.New("unsupported git backend")

// ClientOptions configures the version control client built by ResolveVersionControlClient.
type ClientOptions struct {
	Backend VersionControlBackend
	Author  vcs.Signature
	Logger  *zap.Logger
	// CommandEventObserver receives git command lifecycle events of the cli backend.
	CommandEventObserver execshell.CommandEventObserver
	// CommandRunner replaces the operating system runner of the cli backend.
	CommandRunner execshell.CommandRunner
	// InProcessFileTransport serves file remotes of the embedded backend inside the process.
	InProcessFileTransport bool
}

// ParseVersionControlBackend normalizes a configured backend name. Blank selects BackendEmbedded.
func ParseVersionControlBackend(name string) (VersionControlBackend, error) {
	switch normalized := VersionControlBackend(strings.ToLower(strings.TrimSpace(name))); normalized {
	case "", BackendEmbedded:
		return BackendEmbedded, nil
	case BackendCLI:
		return BackendCLI, nil
	default:
		return "", fmt.Errorf(unsupportedBackendTemplate, ErrUnsupportedBackend, name, BackendEmbedded, BackendCLI)
	}
}

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing filesystem.FileSystem) filesystem.FileSystem {
	if existing != nil {
		return existing
	}
	return filesystem.OSFileSystem{}
}

// ResolveDescriptorStore returns the provided descriptor store or the YAML implementation.
func ResolveDescriptorStore(existing descriptor.ReaderWriter) descriptor.ReaderWriter {
	if existing != nil {
		return existing
	}
	return descriptor.NewYAMLDescriptor()
}

// ResolveVersionControlClient returns existing or builds the client selected by options.Backend.
func ResolveVersionControlClient(existing vcs.Client, options ClientOptions) (vcs.Client, error) {
	if existing != nil {
		return existing, nil
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	backend, backendError := ParseVersionControlBackend(string(options.Backend))
	if backendError != nil {
		return nil, backendError
	}

	switch backend {
	case BackendCLI:
		commandRunner := options.CommandRunner
		if commandRunner == nil {
			commandRunner = execshell.NewOSCommandRunner()
		}
		shellExecutor, executorError := execshell.NewShellExecutor(logger, commandRunner, execshell.WithCommandEventObserver(options.CommandEventObserver))
		if executorError != nil {
			return nil, executorError
		}
		return gitcli.NewClient(shellExecutor, options.Author)
	default:
		return gogit.NewClient(gogit.Options{
			Author:                 options.Author,
			Auth:                   gogit.EnvironmentAuthProvider{},
			Logger:                 logger,
			InProcessFileTransport: options.InProcessFileTransport,
		}), nil
	}
}
