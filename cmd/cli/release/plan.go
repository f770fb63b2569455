package release

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reltrain/internal/ui"
)

const (
	planUseConstant      = "plan"
	planShortDescription = "Print the release plan without changing any repository"
	planLongDescription  = "plan reads the release descriptors of the configured and discovered repositories, computes target versions, and prints the dependency-ordered release plan."
	planBuiltMessage     = "Release plan built"
	planEntriesFieldName = "repositories"
)

// PlanCommandBuilder assembles the plan command.
type PlanCommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider HumanReadableLoggingProvider
	ConfigurationProvider        ConfigurationProvider
	Collaborators                Collaborators
}

// Build constructs the plan command.
func (builder *PlanCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   planUseConstant,
		Short: planShortDescription,
		Long:  planLongDescription,
		Args:  cobra.NoArgs,
	}
	selection := bindSelectionFlags(command)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, selection)
	}
	return command, nil
}

func (builder *PlanCommandBuilder) run(command *cobra.Command, selection commandLineSelection) error {
	configuration, _ := applyExecutionFlags(command, resolveConfiguration(builder.ConfigurationProvider))
	logger := resolveLogger(builder.LoggerProvider)

	current, sessionError := newSession(command, logger, builder.HumanReadableLoggingProvider, configuration, builder.Collaborators)
	if sessionError != nil {
		return sessionError
	}
	releasePlan, planError := current.resolvePlan(command.Context(), selection)
	if planError != nil {
		return planError
	}
	logger.Debug(planBuiltMessage, zap.Int(planEntriesFieldName, releasePlan.Len()))

	ui.NewReportPrinter(command.OutOrStdout()).PrintPlan(releasePlan, configuration.Settings())
	return nil
}
