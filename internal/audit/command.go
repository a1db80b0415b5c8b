package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/ksi/internal/storage"
	"github.com/temirov/ksi/internal/utils"
	pathutils "github.com/temirov/ksi/internal/utils/path"
)

const (
	commandUseNameConstant           = "audit"
	commandShortDescriptionConstant  = "Inspect, export, or clear the audit log"
	commandLongDescriptionConstant   = "audit works with the newest-first log of every change made to KSI items. Use list to review entries, export to write them as CSV, and clear to discard them after confirmation."
	listUseNameConstant              = "list"
	listShortDescriptionConstant     = "List audit log entries, newest first"
	listExampleConstant              = "ksi audit list --type checklist_updated --category KSI-CNA"
	exportUseNameConstant            = "export"
	exportShortDescriptionConstant   = "Export the audit log as CSV"
	clearUseNameConstant             = "clear"
	clearShortDescriptionConstant    = "Remove every audit log entry"
	typeFlagNameConstant             = "type"
	typeFlagUsageConstant            = "show only one event type (status_changed, checklist_updated, evidence_updated, document_added, document_removed, or all)"
	categoryFlagNameConstant         = "category"
	categoryFlagUsageConstant        = "show only one category code, or all"
	stdoutFlagNameConstant           = "stdout"
	stdoutFlagUsageConstant          = "write the export to standard output instead of a file"
	yesFlagNameConstant              = "yes"
	yesFlagShorthandConstant         = "y"
	yesFlagUsageConstant             = "skip the confirmation prompt"
	exportCompletedTemplateConstant  = "Exported %d audit log entries to %s\n"
	clearCompletedOutputConstant     = "Audit log cleared."
	clearDeclinedOutputConstant      = "Audit log left unchanged."
	exportDirectoryErrorTemplate     = "failed to create export directory %s: %w"
	exportWriteErrorTemplateConstant = "failed to write audit export %s: %w"
	exportFilePermissionsConstant    = 0o600
	exportDirectoryPermissions       = 0o750
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the audit command tree.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	StoreOpener           storage.Opener
	Prompter              ConfirmationPrompter
	Clock                 Clock
}

// Build constructs the audit command with its list, export, and clear subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseNameConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
	}

	listCommand := &cobra.Command{
		Use:     listUseNameConstant,
		Short:   listShortDescriptionConstant,
		Example: listExampleConstant,
		Args:    cobra.NoArgs,
		RunE:    builder.runList,
	}
	listCommand.Flags().String(typeFlagNameConstant, FilterAllConstant, typeFlagUsageConstant)
	listCommand.Flags().String(categoryFlagNameConstant, FilterAllConstant, categoryFlagUsageConstant)

	exportCommand := &cobra.Command{
		Use:   exportUseNameConstant,
		Short: exportShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runExport,
	}
	exportCommand.Flags().Bool(stdoutFlagNameConstant, false, stdoutFlagUsageConstant)

	clearCommand := &cobra.Command{
		Use:   clearUseNameConstant,
		Short: clearShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runClear,
	}
	clearCommand.Flags().BoolP(yesFlagNameConstant, yesFlagShorthandConstant, false, yesFlagUsageConstant)

	command.AddCommand(listCommand, exportCommand, clearCommand)
	return command, nil
}

func (builder *CommandBuilder) runList(command *cobra.Command, arguments []string) error {
	eventTypeFilter, _ := command.Flags().GetString(typeFlagNameConstant)
	categoryFilter, _ := command.Flags().GetString(categoryFlagNameConstant)

	if !isAllPredicate(eventTypeFilter) {
		if _, parseError := ParseEventType(eventTypeFilter); parseError != nil {
			return parseError
		}
	}

	return builder.withService(command, func(executionContext context.Context, service *Service) error {
		return service.List(executionContext, Filter{EventType: eventTypeFilter, CategoryCode: categoryFilter}, command.OutOrStdout())
	})
}

func (builder *CommandBuilder) runExport(command *cobra.Command, arguments []string) error {
	toStdout, _ := command.Flags().GetBool(stdoutFlagNameConstant)
	configuration := builder.resolveConfiguration()

	return builder.withService(command, func(executionContext context.Context, service *Service) error {
		if toStdout {
			_, exportError := service.Export(executionContext, command.OutOrStdout())
			return exportError
		}

		buffer := &bytes.Buffer{}
		exportedCount, exportError := service.Export(executionContext, buffer)
		if exportError != nil {
			return exportError
		}

		directory := pathutils.NewHomeExpander().Expand(configuration.ExportDirectory)
		if mkdirError := os.MkdirAll(directory, exportDirectoryPermissions); mkdirError != nil {
			return fmt.Errorf(exportDirectoryErrorTemplate, directory, mkdirError)
		}
		exportPath := filepath.Join(directory, service.ExportFileName())
		if writeError := os.WriteFile(exportPath, buffer.Bytes(), exportFilePermissionsConstant); writeError != nil {
			return fmt.Errorf(exportWriteErrorTemplateConstant, exportPath, writeError)
		}

		fmt.Fprintf(command.OutOrStdout(), exportCompletedTemplateConstant, exportedCount, exportPath)
		return nil
	})
}

func (builder *CommandBuilder) runClear(command *cobra.Command, arguments []string) error {
	assumeYes, _ := command.Flags().GetBool(yesFlagNameConstant)

	return builder.withService(command, func(executionContext context.Context, service *Service) error {
		cleared, clearError := service.Clear(executionContext, assumeYes)
		if clearError != nil {
			return clearError
		}
		if cleared {
			fmt.Fprintln(command.OutOrStdout(), clearCompletedOutputConstant)
		} else {
			fmt.Fprintln(command.OutOrStdout(), clearDeclinedOutputConstant)
		}
		return nil
	})
}

func (builder *CommandBuilder) withService(command *cobra.Command, action func(context.Context, *Service) error) (actionError error) {
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()

	location, locationError := configuration.Audit.Location()
	if locationError != nil {
		return locationError
	}

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

	prompter := builder.Prompter
	if prompter == nil {
		prompter = utils.NewIOConfirmationPrompter(command.InOrStdin(), command.OutOrStdout())
	}

	service := NewService(ServiceDependencies{
		Repository: NewLogRepository(store, configuration.Storage.AuditLogKey, logger),
		Prompter:   prompter,
		Clock:      builder.Clock,
		Location:   location,
		Logger:     logger,
	})
	return action(executionContext, service)
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
