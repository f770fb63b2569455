package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/temirov/reltrain/internal/descriptor"
	"github.com/temirov/reltrain/internal/train"
)

const (
	planHeadingTemplate          = "Release plan (%d repositories)\n"
	planEntryTemplate            = "  %2d. %-*s %s -> %s  tag %s\n"
	planDependencyTemplate       = "        %s %s -> %s\n"
	reportHeadingTemplate        = "Release report\n"
	reportEntryTemplate          = "  %-*s %s  %s\n"
	reportReleaseDetailTemplate  = "%s (tag %s, commit %s)"
	compensationFailureTemplate  = "      compensation failed: %s\n"
	reportSummaryTemplate        = "Released %d of %d repositories\n"
	reportFailedSummaryTemplate  = "Release failed: %d of %d repositories released, changes rolled back\n"
	reportCancelledTemplate      = "Release cancelled: %d of %d repositories released\n"
	reportIncompleteNoteTemplate = "%d compensation step(s) failed; inspect the repositories listed above\n"
	outcomeColumnWidth           = 11
)

// ReportPrinter renders release plans and run reports for terminals. Colors follow
// fatih/color and switch off automatically when the output is not a terminal.
type ReportPrinter struct {
	writer  io.Writer
	heading *color.Color
	success *color.Color
	failure *color.Color
	skipped *color.Color
}

// NewReportPrinter constructs a printer writing to writer.
func NewReportPrinter(writer io.Writer) *ReportPrinter {
	if writer == nil {
		writer = io.Discard
	}
	return &ReportPrinter{
		writer:  writer,
		heading: color.New(color.Bold),
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed, color.Bold),
		skipped: color.New(color.FgYellow),
	}
}

// PrintPlan lists the plan in release order with current and target versions and
// the dependency declarations the release rewrites.
func (printer *ReportPrinter) PrintPlan(plan train.ReleasePlan, settings train.Settings) {
	settings = settings.Sanitize()
	entries := plan.Entries()
	printer.heading.Fprintf(printer.writer, planHeadingTemplate, len(entries))

	width := 0
	for _, entry := range entries {
		width = max(width, len(entry.Repository.ID))
	}

	for index, entry := range entries {
		fmt.Fprintf(printer.writer, planEntryTemplate,
			index+1,
			width, entry.Repository.ID,
			entry.Repository.CurrentVersion,
			printer.success.Sprint(entry.TargetVersion),
			settings.TagName(entry.TargetVersion),
		)
		for _, dependencyID := range descriptor.DependencyIDs(entry.Repository.DependencyVersions) {
			dependencyTarget, planned := plan.TargetVersion(dependencyID)
			if !planned {
				continue
			}
			fmt.Fprintf(printer.writer, planDependencyTemplate, dependencyID, entry.Repository.DependencyVersions[dependencyID], dependencyTarget)
		}
	}
}

// PrintReport lists every repository outcome followed by a one-line summary.
func (printer *ReportPrinter) PrintReport(report train.Report) {
	printer.heading.Fprint(printer.writer, reportHeadingTemplate)

	width := 0
	released := 0
	for _, entry := range report.Entries {
		width = max(width, len(entry.RepositoryID))
		if entry.Outcome == train.OutcomeSucceeded {
			released++
		}
	}

	for _, entry := range report.Entries {
		detail := entry.Detail
		if entry.Outcome == train.OutcomeSucceeded && len(entry.Tag) > 0 {
			detail = fmt.Sprintf(reportReleaseDetailTemplate, entry.Detail, entry.Tag, entry.CommitID.Short())
		}
		fmt.Fprintf(printer.writer, reportEntryTemplate, width, entry.RepositoryID, printer.outcomeLabel(entry.Outcome), detail)
		for _, compensationFailure := range entry.CompensationFailures {
			printer.failure.Fprintf(printer.writer, compensationFailureTemplate, compensationFailure)
		}
	}

	total := len(report.Entries)
	switch {
	case report.Cancelled:
		printer.skipped.Fprintf(printer.writer, reportCancelledTemplate, released, total)
	case report.Succeeded():
		printer.success.Fprintf(printer.writer, reportSummaryTemplate, released, total)
	default:
		printer.failure.Fprintf(printer.writer, reportFailedSummaryTemplate, released, total)
	}
	if failures := report.CompensationFailures(); len(failures) > 0 {
		printer.failure.Fprintf(printer.writer, reportIncompleteNoteTemplate, len(failures))
	}
}

func (printer *ReportPrinter) outcomeLabel(outcome train.Outcome) string {
	label := fmt.Sprintf("%-*s", outcomeColumnWidth, outcome.String())
	switch outcome {
	case train.OutcomeSucceeded:
		return printer.success.Sprint(label)
	case train.OutcomeRolledBack:
		return printer.failure.Sprint(label)
	default:
		return printer.skipped.Sprint(label)
	}
}
