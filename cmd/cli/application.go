package cli

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/ksi/internal/audit"
	"github.com/temirov/ksi/internal/report"
	"github.com/temirov/ksi/internal/storage"
	"github.com/temirov/ksi/internal/tracker"
	"github.com/temirov/ksi/internal/uploads"
	"github.com/temirov/ksi/internal/utils"
	pathutils "github.com/temirov/ksi/internal/utils/path"
)

const (
	applicationNameConstant                 = "ksi"
	applicationShortDescriptionConstant     = "Track FedRAMP 20x Key Security Indicator compliance"
	applicationLongDescriptionConstant      = "ksi tracks progress on the FedRAMP 20x Key Security Indicators. Every edit to an item is recorded in an audit log that can be listed, exported as CSV, or cleared."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	storageConfigurationKeyConstant         = "storage"
	auditConfigurationKeyConstant           = "audit"
	uploadsConfigurationKeyConstant         = "uploads"
	reportConfigurationKeyConstant          = "report"
	environmentPrefixConstant               = "KSI"
	environmentFileConstant                 = ".env"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	environmentFilesFieldConstant           = "environment_files"
	storageBackendFieldConstant             = "storage_backend"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	commandBuildErrorTemplateConstant       = "unable to build %s commands: %w"
	rootCommandInfoMessageConstant          = "ksi CLI executed"
	rootCommandDebugMessageConstant         = "ksi CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	logFieldArgumentsConstant               = "arguments"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	defaultConfigurationSearchPathConstant  = "."
	userConfigurationSearchPathConstant     = "~/.ksi"
	trackerCommandGroupConstant             = "item"
	reportCommandGroupConstant              = "report"
	auditCommandGroupConstant               = "audit"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common  ApplicationCommonConfiguration `mapstructure:"common"`
	Storage storage.Configuration          `mapstructure:"storage"`
	Audit   audit.Configuration            `mapstructure:"audit"`
	Uploads uploads.Configuration          `mapstructure:"uploads"`
	Report  report.Configuration           `mapstructure:"report"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
	buildError            error
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{
			defaultConfigurationSearchPathConstant,
			pathutils.NewHomeExpander().Expand(userConfigurationSearchPathConstant),
		},
	)
	embeddedConfiguration, _ := EmbeddedDefaultConfiguration()
	configurationLoader.SetEmbeddedConfiguration(embeddedConfiguration)
	configurationLoader.SetEnvironmentFiles(environmentFileConstant)

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	trackerBuilder := tracker.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: application.trackerConfiguration,
	}
	trackerCommands, trackerBuildError := trackerBuilder.Build()
	application.registerCommands(cobraCommand, trackerCommandGroupConstant, trackerCommands, trackerBuildError)

	reportBuilder := report.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: application.reportConfiguration,
	}
	reportCommands, reportBuildError := reportBuilder.Build()
	application.registerCommands(cobraCommand, reportCommandGroupConstant, reportCommands, reportBuildError)

	auditBuilder := audit.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: application.auditConfiguration,
	}
	auditCommand, auditBuildError := auditBuilder.Build()
	application.registerCommands(cobraCommand, auditCommandGroupConstant, []*cobra.Command{auditCommand}, auditBuildError)

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	if application.buildError != nil {
		return application.buildError
	}
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return errors.Join(executionError, fmt.Errorf(loggerSyncErrorTemplateConstant, syncError))
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) registerCommands(rootCommand *cobra.Command, group string, commands []*cobra.Command, buildError error) {
	if buildError != nil {
		application.buildError = errors.Join(application.buildError, fmt.Errorf(commandBuildErrorTemplateConstant, group, buildError))
		return
	}
	for _, command := range commands {
		if command != nil {
			rootCommand.AddCommand(command)
		}
	}
}

func (application *Application) trackerConfiguration() tracker.CommandConfiguration {
	return tracker.CommandConfiguration{
		Storage: application.configuration.Storage,
		Audit:   application.configuration.Audit,
		Uploads: application.configuration.Uploads,
	}
}

func (application *Application) reportConfiguration() report.CommandConfiguration {
	return report.CommandConfiguration{
		Storage: application.configuration.Storage,
		Audit:   application.configuration.Audit,
		Report:  application.configuration.Report,
	}
}

func (application *Application) auditConfiguration() audit.CommandConfiguration {
	return audit.CommandConfiguration{
		Storage:         application.configuration.Storage,
		Audit:           application.configuration.Audit,
		ExportDirectory: application.configuration.Report.OutputDirectory,
	}
}

func defaultConfigurationValues() map[string]any {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelWarn),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
	}
	sections := []map[string]any{
		storage.DefaultConfigurationValues(storageConfigurationKeyConstant),
		audit.DefaultConfigurationValues(auditConfigurationKeyConstant),
		uploads.DefaultConfigurationValues(uploadsConfigurationKeyConstant),
		report.DefaultConfigurationValues(reportConfigurationKeyConstant),
	}
	for _, section := range sections {
		for configurationKey, configurationValue := range section {
			defaultValues[configurationKey] = configurationValue
		}
	}
	return defaultValues
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultConfigurationValues(), &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.Strings(environmentFilesFieldConstant, application.configurationMetadata.EnvironmentFilesUsed),
		zap.String(storageBackendFieldConstant, application.configuration.Storage.Sanitize().Backend),
	)

	return nil
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	if len(arguments) == 0 {
		return command.Help()
	}

	return nil
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
