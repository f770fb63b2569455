package release

import (
	"context"
	"maps"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reltrain/internal/descriptor"
	"github.com/temirov/reltrain/internal/plan"
	"github.com/temirov/reltrain/internal/repos/dependencies"
	"github.com/temirov/reltrain/internal/repos/discovery"
	"github.com/temirov/reltrain/internal/repos/filesystem"
	"github.com/temirov/reltrain/internal/train"
	"github.com/temirov/reltrain/internal/ui"
	"github.com/temirov/reltrain/internal/utils"
	flagutils "github.com/temirov/reltrain/internal/utils/flags"
	pathutils "github.com/temirov/reltrain/internal/utils/path"
	"github.com/temirov/reltrain/internal/vcs"
)

const (
	configurationResolvedMessage = "Release configuration resolved"
	sourcesResolvedMessage       = "Release repositories resolved"
	configurationFileFieldName   = "config_file"
	gitBackendFieldName          = "git_backend"
	remoteFieldName              = "remote"
	explicitCountFieldName       = "configured"
	discoveredCountFieldName     = "discovered"
	rootsFieldName               = "roots"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider yields the release section of the application configuration.
type ConfigurationProvider func() CommandConfiguration

// HumanReadableLoggingProvider reports whether console logging is active.
type HumanReadableLoggingProvider func() bool

// Collaborators replaces the default version control client, descriptor store, and
// file system. Zero values select the defaults derived from configuration.
type Collaborators struct {
	Client      vcs.Client
	Descriptors descriptor.ReaderWriter
	FileSystem  filesystem.FileSystem
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveConfiguration(provider ConfigurationProvider) CommandConfiguration {
	if provider == nil {
		return DefaultCommandConfiguration().Sanitize()
	}
	return provider().Sanitize()
}

// applyExecutionFlags lets root-level --remote override the configured remote and
// reports whether --dry-run was requested.
func applyExecutionFlags(command *cobra.Command, configuration CommandConfiguration) (CommandConfiguration, bool) {
	executionFlags, available := utils.NewCommandContextAccessor().ExecutionFlags(command.Context())
	if !available {
		return configuration, false
	}
	if executionFlags.RemoteSet && len(executionFlags.Remote) > 0 {
		configuration.Remote = executionFlags.Remote
	}
	return configuration, executionFlags.DryRun
}

// session holds the collaborators shared by one command invocation.
type session struct {
	configuration CommandConfiguration
	logger        *zap.Logger
	client        vcs.Client
	descriptors   descriptor.ReaderWriter
	fileSystem    filesystem.FileSystem
}

func newSession(command *cobra.Command, logger *zap.Logger, humanReadable HumanReadableLoggingProvider, configuration CommandConfiguration, collaborators Collaborators) (session, error) {
	clientOptions := dependencies.ClientOptions{
		Backend:                dependencies.VersionControlBackend(configuration.GitBackend),
		Author:                 configuration.Signature(),
		Logger:                 logger,
		InProcessFileTransport: configuration.InProcessFileTransport,
	}
	if humanReadable != nil && humanReadable() {
		clientOptions.CommandEventObserver = ui.NewConsoleCommandEventLogger(logger)
	}
	client, clientError := dependencies.ResolveVersionControlClient(collaborators.Client, clientOptions)
	if clientError != nil {
		return session{}, clientError
	}

	configurationFile, _ := utils.NewCommandContextAccessor().ConfigurationFilePath(command.Context())
	logger.Debug(configurationResolvedMessage,
		zap.String(configurationFileFieldName, configurationFile),
		zap.String(gitBackendFieldName, configuration.GitBackend),
		zap.String(remoteFieldName, configuration.Remote),
	)

	return session{
		configuration: configuration,
		logger:        logger,
		client:        client,
		descriptors:   dependencies.ResolveDescriptorStore(collaborators.Descriptors),
		fileSystem:    dependencies.ResolveFileSystem(collaborators.FileSystem),
	}, nil
}

// sources merges the configured repositories with those discovered under the
// configured roots and any roots given on the command line.
func (current session) sources(additionalRoots []string) ([]plan.RepositorySource, error) {
	rootSanitizer := pathutils.NewRepositoryPathSanitizerWithConfiguration(nil, pathutils.RepositoryPathSanitizerConfiguration{PruneNestedPaths: true})
	roots := rootSanitizer.Sanitize(append(append([]string(nil), current.configuration.Roots...), additionalRoots...))

	explicit := current.configuration.Sources()
	var discovered []plan.RepositorySource
	if len(roots) > 0 {
		discoverer := discovery.NewDescriptorDiscoverer(current.fileSystem, current.configuration.DescriptorFile)
		var discoveryError error
		discovered, discoveryError = discoverer.DiscoverRepositories(roots)
		if discoveryError != nil {
			return nil, discoveryError
		}
	}

	current.logger.Debug(sourcesResolvedMessage,
		zap.Int(explicitCountFieldName, len(explicit)),
		zap.Int(discoveredCountFieldName, len(discovered)),
		zap.Strings(rootsFieldName, roots),
	)
	return discovery.MergeSources(explicit, discovered), nil
}

func (current session) buildPlan(executionContext context.Context, sources []plan.RepositorySource, rule plan.VersionRule) (train.ReleasePlan, error) {
	builder, builderError := plan.NewBuilder(plan.Dependencies{Reader: current.descriptors, Logger: current.logger}, current.configuration.DescriptorFile)
	if builderError != nil {
		return train.ReleasePlan{}, builderError
	}
	return builder.Build(executionContext, sources, rule)
}

// applyVersionRuleFlags layers command line version selection over the configured rule.
// --version and --bump replace the configured base rule; --set replaces the rule of
// one repository with an explicit version.
func applyVersionRuleFlags(rule plan.VersionRule, values *flagutils.VersionRuleFlagValues) (plan.VersionRule, error) {
	if values == nil {
		return rule, nil
	}
	updated := rule
	updated.Overrides = maps.Clone(rule.Overrides)

	if len(values.Version) > 0 {
		updated.Version = values.Version
	}
	if len(values.Bump) > 0 {
		updated.Bump = values.Bump
		updated.Version = ""
	}
	if len(values.Qualifier) > 0 {
		updated.Qualifier = values.Qualifier
	}

	assignments, assignmentError := flagutils.ParseAssignments(values.Assignments)
	if assignmentError != nil {
		return plan.VersionRule{}, assignmentError
	}
	if len(assignments) > 0 && updated.Overrides == nil {
		updated.Overrides = make(map[string]plan.VersionRule, len(assignments))
	}
	for repositoryID, targetVersion := range assignments {
		updated.Overrides[repositoryID] = plan.VersionRule{Version: targetVersion}
	}
	return updated, nil
}

// commandLineSelection binds the version rule and root flags shared by plan and release.
type commandLineSelection struct {
	versionRule *flagutils.VersionRuleFlagValues
	roots       *flagutils.RootFlagValues
}

func bindSelectionFlags(command *cobra.Command) commandLineSelection {
	selection := commandLineSelection{
		versionRule: flagutils.BindVersionRuleFlags(command),
		roots:       flagutils.BindRootFlags(command, flagutils.RootFlagValues{}, flagutils.RootFlagDefinition{Enabled: true}),
	}
	command.MarkFlagsMutuallyExclusive(flagutils.VersionFlagName, flagutils.BumpFlagName)
	return selection
}

// resolvePlan runs the shared plan pipeline of the plan and release commands.
func (current session) resolvePlan(executionContext context.Context, selection commandLineSelection) (train.ReleasePlan, error) {
	rule, ruleError := applyVersionRuleFlags(current.configuration.VersionRuleValue(), selection.versionRule)
	if ruleError != nil {
		return train.ReleasePlan{}, ruleError
	}
	var additionalRoots []string
	if selection.roots != nil {
		additionalRoots = selection.roots.Roots
	}
	sources, sourcesError := current.sources(additionalRoots)
	if sourcesError != nil {
		return train.ReleasePlan{}, sourcesError
	}
	return current.buildPlan(executionContext, sources, rule)
}
