// Package ui formats human-readable console output.
//
// ConsoleCommandEventLogger turns git command events into concise log lines and
// ReportPrinter renders release plans and run reports on standard output, while
// detailed telemetry continues to flow through structured loggers.
package ui
