package release

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reltrain/internal/gitrepo"
	"github.com/temirov/reltrain/internal/plan"
)

const (
	cloneUseConstant                 = "clone"
	cloneShortDescription            = "Clone configured repositories that are missing locally"
	cloneLongDescription             = "clone checks every repository listed in configuration and clones the ones whose local path does not exist yet from their remote_url."
	cloneDirectoryPermissions        = 0o755
	clonedLineTemplate               = "%s: cloned %s into %s\n"
	presentLineTemplate              = "%s: present at %s\n"
	missingRemoteTemplate            = "repository %s: %s does not exist and no remote_url is configured"
	inspectPathTemplate              = "repository %s: inspect %s: %w"
	createParentTemplate             = "repository %s: create %s: %w"
	cloneFailureTemplate             = "repository %s: clone %s: %w"
	repositoryCloneStartedMessage    = "Cloning repository"
	repositoryCloneCompletedMessage  = "Repository cloned"
	repositoryIDFieldName            = "repository"
	repositoryPathFieldName          = "path"
	repositoryRemoteURLFieldName     = "remote_url"
	noConfiguredRepositoriesTemplate = "no repositories configured under %s\n"
	repositoriesConfigurationKey     = "release.repositories"
)

// CloneCommandBuilder assembles the clone command.
type CloneCommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider HumanReadableLoggingProvider
	ConfigurationProvider        ConfigurationProvider
	Collaborators                Collaborators
}

// Build constructs the clone command.
func (builder *CloneCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   cloneUseConstant,
		Short: cloneShortDescription,
		Long:  cloneLongDescription,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *CloneCommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, _ := applyExecutionFlags(command, resolveConfiguration(builder.ConfigurationProvider))
	logger := resolveLogger(builder.LoggerProvider)

	current, sessionError := newSession(command, logger, builder.HumanReadableLoggingProvider, configuration, builder.Collaborators)
	if sessionError != nil {
		return sessionError
	}

	sources := configuration.Sources()
	output := command.OutOrStdout()
	if len(sources) == 0 {
		fmt.Fprintf(output, noConfiguredRepositoriesTemplate, repositoriesConfigurationKey)
		return nil
	}

	var failures []error
	for _, source := range sources {
		cloned, cloneError := current.cloneMissing(command, source)
		switch {
		case cloneError != nil:
			failures = append(failures, cloneError)
		case cloned:
			fmt.Fprintf(output, clonedLineTemplate, source.ID, source.RemoteURL, source.LocalPath)
		default:
			fmt.Fprintf(output, presentLineTemplate, source.ID, source.LocalPath)
		}
	}
	return errors.Join(failures...)
}

// cloneMissing clones source when its local path is absent and reports whether it did.
func (current session) cloneMissing(command *cobra.Command, source plan.RepositorySource) (bool, error) {
	_, statError := current.fileSystem.Stat(source.LocalPath)
	if statError == nil {
		return false, nil
	}
	if !errors.Is(statError, fs.ErrNotExist) {
		return false, fmt.Errorf(inspectPathTemplate, source.ID, source.LocalPath, statError)
	}
	if len(source.RemoteURL) == 0 {
		return false, fmt.Errorf(missingRemoteTemplate, source.ID, source.LocalPath)
	}

	parent := filepath.Dir(source.LocalPath)
	if mkdirError := current.fileSystem.MkdirAll(parent, cloneDirectoryPermissions); mkdirError != nil {
		return false, fmt.Errorf(createParentTemplate, source.ID, parent, mkdirError)
	}

	fields := []zap.Field{
		zap.String(repositoryIDFieldName, source.ID),
		zap.String(repositoryPathFieldName, source.LocalPath),
		zap.String(repositoryRemoteURLFieldName, source.RemoteURL),
	}
	current.logger.Info(repositoryCloneStartedMessage, fields...)
	if _, cloneError := gitrepo.Clone(command.Context(), current.client, source.RemoteURL, source.LocalPath); cloneError != nil {
		return false, fmt.Errorf(cloneFailureTemplate, source.ID, source.RemoteURL, cloneError)
	}
	current.logger.Debug(repositoryCloneCompletedMessage, fields...)
	return true, nil
}
