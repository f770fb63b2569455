// Package utils exposes reusable helpers consumed by the reltrain commands.
//
// ConfigurationLoader layers embedded defaults, configuration files, and
// environment variables through Viper. LoggerFactory builds zap loggers for the
// structured and console formats. CommandContextAccessor carries root-level
// flag state into subcommands.
package utils
