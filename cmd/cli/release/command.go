package release

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reltrain/internal/train"
	"github.com/temirov/reltrain/internal/ui"
)

const (
	releaseUseConstant          = "release"
	releaseShortDescription     = "Release every planned repository as one all-or-nothing train"
	releaseLongDescription      = "release builds the release plan, then rewrites each descriptor, commits, tags, and pushes repository by repository in dependency order. A failure rolls back every repository touched by the run. With --dry-run the plan is printed and nothing changes."
	releaseBranchFlagName       = "release-branch"
	releaseBranchFlagUsage      = "Push the release commit to a new release branch instead of the current branch"
	dryRunCompletedMessage      = "Dry run: no repository changed"
	releaseCompletedMessage     = "Release train completed"
	releaseFailedMessage        = "Release train failed"
	releasedCountFieldName      = "released"
	plannedCountFieldName       = "planned"
	cancelledFieldName          = "cancelled"
	releaseBranchModeFieldName  = "release_branch"
	dryRunFieldName             = "dry_run"
	releasePlanBuiltMessage     = "Release plan built"
	releasePlanEntriesFieldName = "repositories"
)

// CommandBuilder assembles the release command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider HumanReadableLoggingProvider
	ConfigurationProvider        ConfigurationProvider
	Collaborators                Collaborators
}

// Build constructs the release command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   releaseUseConstant,
		Short: releaseShortDescription,
		Long:  releaseLongDescription,
		Args:  cobra.NoArgs,
	}
	selection := bindSelectionFlags(command)
	command.Flags().Bool(releaseBranchFlagName, false, releaseBranchFlagUsage)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, selection)
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, selection commandLineSelection) error {
	configuration, dryRun := applyExecutionFlags(command, resolveConfiguration(builder.ConfigurationProvider))
	if command.Flags().Changed(releaseBranchFlagName) {
		releaseBranch, flagError := command.Flags().GetBool(releaseBranchFlagName)
		if flagError != nil {
			return flagError
		}
		configuration.ReleaseBranch = releaseBranch
	}
	logger := resolveLogger(builder.LoggerProvider)

	current, sessionError := newSession(command, logger, builder.HumanReadableLoggingProvider, configuration, builder.Collaborators)
	if sessionError != nil {
		return sessionError
	}
	releasePlan, planError := current.resolvePlan(command.Context(), selection)
	if planError != nil {
		return planError
	}
	settings := configuration.Settings()
	logger.Debug(releasePlanBuiltMessage,
		zap.Int(releasePlanEntriesFieldName, releasePlan.Len()),
		zap.Bool(dryRunFieldName, dryRun),
		zap.Bool(releaseBranchModeFieldName, settings.ReleaseBranch),
	)

	printer := ui.NewReportPrinter(command.OutOrStdout())
	printer.PrintPlan(releasePlan, settings)
	if dryRun {
		logger.Info(dryRunCompletedMessage)
		return nil
	}

	orchestrator, orchestratorError := train.NewOrchestrator(train.Dependencies{
		Client:      current.client,
		Descriptors: current.descriptors,
		Logger:      logger,
		RetryPolicy: configuration.RetryPolicy(),
	}, settings)
	if orchestratorError != nil {
		return orchestratorError
	}

	signalContext, stopSignals := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	report, releaseError := orchestrator.Release(signalContext, releasePlan)
	printer.PrintReport(report)

	released := 0
	for _, entry := range report.Entries {
		if entry.Outcome == train.OutcomeSucceeded {
			released++
		}
	}
	fields := []zap.Field{
		zap.Int(releasedCountFieldName, released),
		zap.Int(plannedCountFieldName, releasePlan.Len()),
		zap.Bool(cancelledFieldName, report.Cancelled),
	}
	if releaseError != nil {
		logger.Error(releaseFailedMessage, append(fields, zap.Error(releaseError))...)
		return releaseError
	}
	logger.Info(releaseCompletedMessage, fields...)
	return nil
}
