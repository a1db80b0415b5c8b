// Package utils exposes reusable helpers consumed by multiple commands.
//
// ConfigurationLoader layers embedded defaults, configuration files, dotenv files
// and environment variables through Viper. LoggerFactory builds zap loggers in
// structured or console form.
package utils
