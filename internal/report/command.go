package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/ksi/internal/audit"
	"github.com/temirov/ksi/internal/catalog"
	"github.com/temirov/ksi/internal/storage"
	"github.com/temirov/ksi/internal/tracker"
	pathutils "github.com/temirov/ksi/internal/utils/path"
)

const (
	reportUseNameConstant            = "report"
	reportShortDescriptionConstant   = "Export the compliance tree as a Markdown report or JSON"
	markdownUseNameConstant          = "markdown"
	markdownShortDescriptionConstant = "Write the Markdown progress report"
	jsonUseNameConstant              = "json"
	jsonShortDescriptionConstant     = "Write the whole tree as JSON"
	summaryUseNameConstant           = "summary"
	summaryShortDescriptionConstant  = "Show the compliance dashboard"
	stdoutFlagNameConstant           = "stdout"
	stdoutFlagUsageConstant          = "write to standard output instead of a file"
	reportWrittenTemplateConstant    = "Wrote %s to %s\n"
	reportWrittenMessageConstant     = "report written"
	outputDirectoryErrorTemplate     = "failed to create report directory %s: %w"
	reportWriteErrorTemplateConstant = "failed to write report %s: %w"
	reportPathFieldConstant          = "path"
	reportFilePermissionsConstant    = 0o600
	reportDirectoryPermissions       = 0o750
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the report and summary commands.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	StoreOpener           storage.Opener
	Clock                 audit.Clock
	InitialDataProvider   tracker.InitialDataProvider
}

type renderer func(writer io.Writer, tree catalog.Data, now time.Time, location *time.Location) error

// Build constructs the report command with markdown and json subcommands, and the summary command.
func (builder *CommandBuilder) Build() ([]*cobra.Command, error) {
	reportCommand := &cobra.Command{
		Use:   reportUseNameConstant,
		Short: reportShortDescriptionConstant,
		Args:  cobra.NoArgs,
	}

	markdownCommand := &cobra.Command{
		Use:   markdownUseNameConstant,
		Short: markdownShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.runExport(command, MarkdownFileName, WriteMarkdown)
		},
	}
	markdownCommand.Flags().Bool(stdoutFlagNameConstant, false, stdoutFlagUsageConstant)

	jsonCommand := &cobra.Command{
		Use:   jsonUseNameConstant,
		Short: jsonShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.runExport(command, JSONFileName, func(writer io.Writer, tree catalog.Data, _ time.Time, _ *time.Location) error {
				return WriteJSON(writer, tree)
			})
		},
	}
	jsonCommand.Flags().Bool(stdoutFlagNameConstant, false, stdoutFlagUsageConstant)

	reportCommand.AddCommand(markdownCommand, jsonCommand)

	summaryCommand := &cobra.Command{
		Use:   summaryUseNameConstant,
		Short: summaryShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runSummary,
	}

	return []*cobra.Command{reportCommand, summaryCommand}, nil
}

func (builder *CommandBuilder) runSummary(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	return builder.withTree(command, func(tree catalog.Data) error {
		return WriteSummary(command.OutOrStdout(), tree, Summarize(tree, configuration.Report.CriticalItems))
	})
}

func (builder *CommandBuilder) runExport(command *cobra.Command, fileName func(time.Time) string, render renderer) error {
	toStdout, _ := command.Flags().GetBool(stdoutFlagNameConstant)
	configuration := builder.resolveConfiguration()

	location, locationError := configuration.Audit.Location()
	if locationError != nil {
		return locationError
	}
	now := builder.resolveClock().Now()

	return builder.withTree(command, func(tree catalog.Data) error {
		if toStdout {
			return render(command.OutOrStdout(), tree, now, location)
		}

		buffer := &bytes.Buffer{}
		if renderError := render(buffer, tree, now, location); renderError != nil {
			return renderError
		}

		directory := pathutils.NewHomeExpander().Expand(configuration.Report.OutputDirectory)
		if mkdirError := os.MkdirAll(directory, reportDirectoryPermissions); mkdirError != nil {
			return fmt.Errorf(outputDirectoryErrorTemplate, directory, mkdirError)
		}
		outputPath := filepath.Join(directory, fileName(now))
		if writeError := os.WriteFile(outputPath, buffer.Bytes(), reportFilePermissionsConstant); writeError != nil {
			return fmt.Errorf(reportWriteErrorTemplateConstant, outputPath, writeError)
		}

		builder.resolveLogger().Info(reportWrittenMessageConstant, zap.String(reportPathFieldConstant, outputPath))
		fmt.Fprintf(command.OutOrStdout(), reportWrittenTemplateConstant, command.Name(), outputPath)
		return nil
	})
}

func (builder *CommandBuilder) withTree(command *cobra.Command, action func(catalog.Data) error) (actionError error) {
	configuration := builder.resolveConfiguration()

	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	store, openError := builder.resolveStoreOpener()(executionContext, configuration.Storage)
	if openError != nil {
		return openError
	}
	defer func() {
		actionError = errors.Join(actionError, store.Close())
	}()

	repository := tracker.NewTreeRepository(store, configuration.Storage.DataKey, builder.InitialDataProvider, builder.resolveLogger())
	tree, loadError := repository.Load(executionContext)
	if loadError != nil {
		return loadError
	}
	return action(tree)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveStoreOpener() storage.Opener {
	if builder.StoreOpener == nil {
		return storage.Open
	}
	return builder.StoreOpener
}

func (builder *CommandBuilder) resolveClock() audit.Clock {
	if builder.Clock == nil {
		return audit.SystemClock{}
	}
	return builder.Clock
}
