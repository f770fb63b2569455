package release

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/temirov/reltrain/internal/plan"
	"github.com/temirov/reltrain/internal/repos/dependencies"
	"github.com/temirov/reltrain/internal/train"
	pathutils "github.com/temirov/reltrain/internal/utils/path"
	"github.com/temirov/reltrain/internal/vcs"
)

const (
	descriptorFileConfigurationKey        = "descriptor_file"
	remoteConfigurationKey                = "remote"
	tagPrefixConfigurationKey             = "tag_prefix"
	commitMessageTemplateConfigurationKey = "commit_message_template"
	releaseBranchTemplateConfigurationKey = "release_branch_template"
	gitBackendConfigurationKey            = "git_backend"
	releaseBranchConfigurationKey         = "release_branch"
	inProcessFileTransportKey             = "in_process_file_transport"
	authorNameConfigurationKey            = "author.name"
	authorEmailConfigurationKey           = "author.email"
	retryAttemptsConfigurationKey         = "retry.attempts"
	retryInitialDelayConfigurationKey     = "retry.initial_delay"
	retryMaxDelayConfigurationKey         = "retry.max_delay"
	versionRuleBumpConfigurationKey       = "version_rule.bump"
	configurationKeySeparator             = "."
	defaultBumpScope                      = "minor"
)

// AuthorConfiguration is the identity recorded on release commits and tags.
type AuthorConfiguration struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

// RetryConfiguration bounds retries of pushes that failed with transport errors.
type RetryConfiguration struct {
	Attempts     int           `mapstructure:"attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// VersionRuleConfiguration selects a target version: an explicit version, or a bump
// scope with an optional pre-release qualifier.
type VersionRuleConfiguration struct {
	Version   string `mapstructure:"version"`
	Bump      string `mapstructure:"bump"`
	Qualifier string `mapstructure:"qualifier"`
}

// RepositoryConfiguration names one release participant explicitly. A blank ID
// defaults to the base name of Path.
type RepositoryConfiguration struct {
	ID             string `mapstructure:"id"`
	Path           string `mapstructure:"path"`
	RemoteURL      string `mapstructure:"remote_url"`
	DescriptorPath string `mapstructure:"descriptor_path"`
}

// CommandConfiguration is the release section of the application configuration.
type CommandConfiguration struct {
	DescriptorFile         string                              `mapstructure:"descriptor_file"`
	Remote                 string                              `mapstructure:"remote"`
	TagPrefix              string                              `mapstructure:"tag_prefix"`
	CommitMessageTemplate  string                              `mapstructure:"commit_message_template"`
	ReleaseBranchTemplate  string                              `mapstructure:"release_branch_template"`
	GitBackend             string                              `mapstructure:"git_backend"`
	ReleaseBranch          bool                                `mapstructure:"release_branch"`
	InProcessFileTransport bool                                `mapstructure:"in_process_file_transport"`
	Author                 AuthorConfiguration                 `mapstructure:"author"`
	Retry                  RetryConfiguration                  `mapstructure:"retry"`
	VersionRule            VersionRuleConfiguration            `mapstructure:"version_rule"`
	Overrides              map[string]VersionRuleConfiguration `mapstructure:"overrides"`
	Roots                  []string                            `mapstructure:"roots"`
	Repositories           []RepositoryConfiguration           `mapstructure:"repositories"`
}

// DefaultCommandConfiguration mirrors the embedded application defaults.
func DefaultCommandConfiguration() CommandConfiguration {
	settings := train.DefaultSettings()
	retryPolicy := vcs.DefaultRetryPolicy()
	author := vcs.DefaultSignature()
	return CommandConfiguration{
		DescriptorFile:        plan.DefaultDescriptorFileName,
		Remote:                settings.RemoteName,
		TagPrefix:             settings.TagPrefix,
		CommitMessageTemplate: settings.CommitMessageTemplate,
		ReleaseBranchTemplate: settings.ReleaseBranchTemplate,
		GitBackend:            string(dependencies.BackendEmbedded),
		Author:                AuthorConfiguration{Name: author.Name, Email: author.Email},
		Retry: RetryConfiguration{
			Attempts:     retryPolicy.Attempts,
			InitialDelay: retryPolicy.InitialDelay,
			MaxDelay:     retryPolicy.MaxDelay,
		},
		VersionRule: VersionRuleConfiguration{Bump: defaultBumpScope},
	}
}

// DefaultConfigurationValues returns viper defaults for the release section rooted at prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	values := map[string]any{
		descriptorFileConfigurationKey:        defaults.DescriptorFile,
		remoteConfigurationKey:                defaults.Remote,
		tagPrefixConfigurationKey:             defaults.TagPrefix,
		commitMessageTemplateConfigurationKey: defaults.CommitMessageTemplate,
		releaseBranchTemplateConfigurationKey: defaults.ReleaseBranchTemplate,
		gitBackendConfigurationKey:            defaults.GitBackend,
		releaseBranchConfigurationKey:         defaults.ReleaseBranch,
		inProcessFileTransportKey:             defaults.InProcessFileTransport,
		authorNameConfigurationKey:            defaults.Author.Name,
		authorEmailConfigurationKey:           defaults.Author.Email,
		retryAttemptsConfigurationKey:         defaults.Retry.Attempts,
		retryInitialDelayConfigurationKey:     defaults.Retry.InitialDelay.String(),
		retryMaxDelayConfigurationKey:         defaults.Retry.MaxDelay.String(),
		versionRuleBumpConfigurationKey:       defaults.VersionRule.Bump,
	}
	trimmedPrefix := strings.TrimSpace(prefix)
	if len(trimmedPrefix) == 0 {
		return values
	}
	prefixed := make(map[string]any, len(values))
	for key, value := range values {
		prefixed[trimmedPrefix+configurationKeySeparator+key] = value
	}
	return prefixed
}

// Sanitize trims values, expands "~" in paths, and fills blanks from the defaults.
// An empty tag prefix is kept.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.DescriptorFile = fallback(configuration.DescriptorFile, defaults.DescriptorFile)
	sanitized.Remote = fallback(configuration.Remote, defaults.Remote)
	sanitized.TagPrefix = strings.TrimSpace(configuration.TagPrefix)
	sanitized.CommitMessageTemplate = fallback(configuration.CommitMessageTemplate, defaults.CommitMessageTemplate)
	sanitized.ReleaseBranchTemplate = fallback(configuration.ReleaseBranchTemplate, defaults.ReleaseBranchTemplate)
	sanitized.GitBackend = strings.ToLower(fallback(configuration.GitBackend, defaults.GitBackend))
	sanitized.Author = AuthorConfiguration{
		Name:  fallback(configuration.Author.Name, defaults.Author.Name),
		Email: fallback(configuration.Author.Email, defaults.Author.Email),
	}
	sanitized.Retry = RetryConfiguration{
		Attempts:     configuration.Retry.Attempts,
		InitialDelay: configuration.Retry.InitialDelay,
		MaxDelay:     configuration.Retry.MaxDelay,
	}
	if sanitized.Retry.Attempts <= 0 {
		sanitized.Retry.Attempts = defaults.Retry.Attempts
	}
	if sanitized.Retry.InitialDelay <= 0 {
		sanitized.Retry.InitialDelay = defaults.Retry.InitialDelay
	}
	if sanitized.Retry.MaxDelay <= 0 {
		sanitized.Retry.MaxDelay = defaults.Retry.MaxDelay
	}
	sanitized.VersionRule = configuration.VersionRule.sanitize()

	sanitized.Overrides = nil
	if len(configuration.Overrides) > 0 {
		sanitized.Overrides = make(map[string]VersionRuleConfiguration, len(configuration.Overrides))
		for repositoryID, override := range configuration.Overrides {
			sanitized.Overrides[strings.TrimSpace(repositoryID)] = override.sanitize()
		}
	}

	pathSanitizer := pathutils.NewRepositoryPathSanitizerWithConfiguration(nil, pathutils.RepositoryPathSanitizerConfiguration{PruneNestedPaths: true})
	sanitized.Roots = pathSanitizer.Sanitize(configuration.Roots)

	sanitized.Repositories = nil
	for _, repository := range configuration.Repositories {
		repositoryPath := pathSanitizer.SanitizePath(repository.Path)
		repositoryID := strings.TrimSpace(repository.ID)
		if len(repositoryID) == 0 && len(repositoryPath) > 0 {
			repositoryID = filepath.Base(repositoryPath)
		}
		sanitized.Repositories = append(sanitized.Repositories, RepositoryConfiguration{
			ID:             repositoryID,
			Path:           repositoryPath,
			RemoteURL:      strings.TrimSpace(repository.RemoteURL),
			DescriptorPath: pathSanitizer.SanitizePath(repository.DescriptorPath),
		})
	}
	return sanitized
}

// Settings converts the configuration into orchestrator settings.
func (configuration CommandConfiguration) Settings() train.Settings {
	return train.Settings{
		RemoteName:            configuration.Remote,
		TagPrefix:             configuration.TagPrefix,
		CommitMessageTemplate: configuration.CommitMessageTemplate,
		ReleaseBranch:         configuration.ReleaseBranch,
		ReleaseBranchTemplate: configuration.ReleaseBranchTemplate,
	}.Sanitize()
}

// RetryPolicy converts the retry section into a push retry policy.
func (configuration CommandConfiguration) RetryPolicy() vcs.RetryPolicy {
	return vcs.RetryPolicy{
		Attempts:     configuration.Retry.Attempts,
		InitialDelay: configuration.Retry.InitialDelay,
		MaxDelay:     configuration.Retry.MaxDelay,
	}.Sanitize()
}

// Signature returns the release author identity.
func (configuration CommandConfiguration) Signature() vcs.Signature {
	return vcs.Signature{Name: configuration.Author.Name, Email: configuration.Author.Email}.Sanitize()
}

// VersionRuleValue converts the version rule and per-repository overrides into a plan.VersionRule.
func (configuration CommandConfiguration) VersionRuleValue() plan.VersionRule {
	rule := configuration.VersionRule.value()
	if len(configuration.Overrides) > 0 {
		rule.Overrides = make(map[string]plan.VersionRule, len(configuration.Overrides))
		for repositoryID, override := range configuration.Overrides {
			rule.Overrides[repositoryID] = override.value()
		}
	}
	return rule
}

// Sources converts the explicit repository list into plan sources.
func (configuration CommandConfiguration) Sources() []plan.RepositorySource {
	sources := make([]plan.RepositorySource, 0, len(configuration.Repositories))
	for _, repository := range configuration.Repositories {
		sources = append(sources, plan.RepositorySource{
			ID:             repository.ID,
			LocalPath:      repository.Path,
			RemoteURL:      repository.RemoteURL,
			DescriptorPath: repository.DescriptorPath,
		})
	}
	return sources
}

func (rule VersionRuleConfiguration) sanitize() VersionRuleConfiguration {
	return VersionRuleConfiguration{
		Version:   strings.TrimSpace(rule.Version),
		Bump:      strings.ToLower(strings.TrimSpace(rule.Bump)),
		Qualifier: strings.TrimSpace(rule.Qualifier),
	}
}

func (rule VersionRuleConfiguration) value() plan.VersionRule {
	return plan.VersionRule{Version: rule.Version, Bump: rule.Bump, Qualifier: rule.Qualifier}
}

func fallback(value string, defaultValue string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return defaultValue
	}
	return trimmed
}
