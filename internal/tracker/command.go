package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/ksi/internal/audit"
	"github.com/temirov/ksi/internal/catalog"
	"github.com/temirov/ksi/internal/storage"
	"github.com/temirov/ksi/internal/uploads"
	"github.com/temirov/ksi/internal/utils"
	pathutils "github.com/temirov/ksi/internal/utils/path"
)

const (
	listUseNameConstant                = "list"
	listShortDescriptionConstant       = "List KSI items with status and checklist progress"
	listExampleConstant                = "ksi list --category KSI-CNA"
	showUseNameConstant                = "show <item-id>"
	showShortDescriptionConstant       = "Show one KSI item with its checklist, evidence, and documents"
	checkUseNameConstant               = "check <item-id> <index>"
	checkShortDescriptionConstant      = "Toggle a checklist entry (1-based) and recompute the status"
	checkExampleConstant               = "ksi check cna-01 1"
	statusUseNameConstant              = "status <item-id> <status>"
	statusShortDescriptionConstant     = "Override the status of a KSI item"
	statusLongDescriptionConstant      = "status sets not_started, in_progress, or complete directly. The override is kept even when it disagrees with the checklist."
	evidenceUseNameConstant            = "evidence <item-id> <text>"
	evidenceShortDescriptionConstant   = "Replace the evidence text of a KSI item"
	documentsUseNameConstant           = "documents"
	documentsShortDescriptionConstant  = "Manage evidence documents attached to KSI items"
	documentsAddUseNameConstant        = "add <item-id> <file>..."
	documentsAddShortDescription       = "Attach files to a KSI item as one batch"
	documentsRemoveUseNameConstant     = "remove <item-id> <document-id>"
	documentsRemoveShortDescription    = "Remove a document from a KSI item"
	documentsSaveUseNameConstant       = "save <item-id> <document-id>"
	documentsSaveShortDescription      = "Write a stored document back to disk"
	resetUseNameConstant               = "reset"
	resetShortDescriptionConstant      = "Reset every KSI item to the initial catalog"
	resetLongDescriptionConstant       = "reset discards all progress, evidence, and documents after confirmation. The audit log is kept."
	categoryFlagNameConstant           = "category"
	categoryFlagUsageConstant          = "show only one category, by code (KSI-CNA) or identifier (cna)"
	outputFlagNameConstant             = "output"
	outputFlagShorthandConstant        = "o"
	outputFlagUsageConstant            = "destination path (defaults to the document name in the current directory)"
	yesFlagNameConstant                = "yes"
	yesFlagShorthandConstant           = "y"
	yesFlagUsageConstant               = "skip the confirmation prompt"
	checklistIndexErrorTemplate        = "checklist index must be a number: %w"
	documentSavedTemplateConstant      = "Saved %s (%d bytes) to %s\n"
	documentWriteErrorTemplateConstant = "failed to write document %s: %w"
	documentDecodeErrorTemplate        = "failed to decode document %s: %w"
	resetCompletedOutputConstant       = "KSI data reset to the initial catalog."
	resetDeclinedOutputConstant        = "KSI data left unchanged."
	documentFilePermissionsConstant    = 0o600
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the item commands.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	StoreOpener           storage.Opener
	Prompter              audit.ConfirmationPrompter
	Clock                 audit.Clock
	FileSystem            uploads.FileSystem
	InitialDataProvider   InitialDataProvider
}

// Build constructs the list, show, check, status, evidence, documents, and reset commands.
func (builder *CommandBuilder) Build() ([]*cobra.Command, error) {
	listCommand := &cobra.Command{
		Use:     listUseNameConstant,
		Short:   listShortDescriptionConstant,
		Example: listExampleConstant,
		Args:    cobra.NoArgs,
		RunE:    builder.runList,
	}
	listCommand.Flags().String(categoryFlagNameConstant, categoryFilterAllConstant, categoryFlagUsageConstant)

	showCommand := &cobra.Command{
		Use:   showUseNameConstant,
		Short: showShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.runShow,
	}

	checkCommand := &cobra.Command{
		Use:     checkUseNameConstant,
		Short:   checkShortDescriptionConstant,
		Example: checkExampleConstant,
		Args:    cobra.ExactArgs(2),
		RunE:    builder.runCheck,
	}

	statusCommand := &cobra.Command{
		Use:   statusUseNameConstant,
		Short: statusShortDescriptionConstant,
		Long:  statusLongDescriptionConstant,
		Args:  cobra.ExactArgs(2),
		RunE:  builder.runStatus,
	}

	evidenceCommand := &cobra.Command{
		Use:   evidenceUseNameConstant,
		Short: evidenceShortDescriptionConstant,
		Args:  cobra.ExactArgs(2),
		RunE:  builder.runEvidence,
	}

	documentsCommand := &cobra.Command{
		Use:   documentsUseNameConstant,
		Short: documentsShortDescriptionConstant,
		Args:  cobra.NoArgs,
	}
	documentsAddCommand := &cobra.Command{
		Use:   documentsAddUseNameConstant,
		Short: documentsAddShortDescription,
		Args:  cobra.MinimumNArgs(2),
		RunE:  builder.runDocumentsAdd,
	}
	documentsRemoveCommand := &cobra.Command{
		Use:   documentsRemoveUseNameConstant,
		Short: documentsRemoveShortDescription,
		Args:  cobra.ExactArgs(2),
		RunE:  builder.runDocumentsRemove,
	}
	documentsSaveCommand := &cobra.Command{
		Use:   documentsSaveUseNameConstant,
		Short: documentsSaveShortDescription,
		Args:  cobra.ExactArgs(2),
		RunE:  builder.runDocumentsSave,
	}
	documentsSaveCommand.Flags().StringP(outputFlagNameConstant, outputFlagShorthandConstant, "", outputFlagUsageConstant)
	documentsCommand.AddCommand(documentsAddCommand, documentsRemoveCommand, documentsSaveCommand)

	resetCommand := &cobra.Command{
		Use:   resetUseNameConstant,
		Short: resetShortDescriptionConstant,
		Long:  resetLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runReset,
	}
	resetCommand.Flags().BoolP(yesFlagNameConstant, yesFlagShorthandConstant, false, yesFlagUsageConstant)

	return []*cobra.Command{
		listCommand,
		showCommand,
		checkCommand,
		statusCommand,
		evidenceCommand,
		documentsCommand,
		resetCommand,
	}, nil
}

func (builder *CommandBuilder) runList(command *cobra.Command, arguments []string) error {
	categoryFilter, _ := command.Flags().GetString(categoryFlagNameConstant)
	return builder.withService(command, func(executionContext context.Context, service *Service) error {
		tree, loadError := service.Data(executionContext)
		if loadError != nil {
			return loadError
		}
		return WriteItemList(command.OutOrStdout(), tree, categoryFilter)
	})
}

func (builder *CommandBuilder) runShow(command *cobra.Command, arguments []string) error {
	return builder.withService(command, func(executionContext context.Context, service *Service) error {
		category, item, findError := service.FindItem(executionContext, arguments[0])
		if findError != nil {
			return findError
		}
		return WriteItemDetails(command.OutOrStdout(), category, item)
	})
}

func (builder *CommandBuilder) runCheck(command *cobra.Command, arguments []string) error {
	position, parseError := strconv.Atoi(arguments[1])
	if parseError != nil {
		return fmt.Errorf(checklistIndexErrorTemplate, parseError)
	}
	return builder.withService(command, func(executionContext context.Context, service *Service) error {
		result, toggleError := service.ToggleChecklist(executionContext, arguments[0], position-1)
		if toggleError != nil {
			return toggleError
		}
		return WriteUpdateResult(command.OutOrStdout(), result)
	})
}

func (builder *CommandBuilder) runStatus(command *cobra.Command, arguments []string) error {
	status, parseError := catalog.ParseCompletionStatus(arguments[1])
	if parseError != nil {
		return parseError
	}
	return builder.withService(command, func(executionContext context.Context, service *Service) error {
		result, updateError := service.SetStatus(executionContext, arguments[0], status)
		if updateError != nil {
			return updateError
		}
		return WriteUpdateResult(command.OutOrStdout(), result)
	})
}

func (builder *CommandBuilder) runEvidence(command *cobra.Command, arguments []string) error {
	return builder.withService(command, func(executionContext context.Context, service *Service) error {
		result, updateError := service.SetEvidence(executionContext, arguments[0], arguments[1])
		if updateError != nil {
			return updateError
		}
		return WriteUpdateResult(command.OutOrStdout(), result)
	})
}

func (builder *CommandBuilder) runDocumentsAdd(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	expander := pathutils.NewHomeExpander()
	paths := make([]string, 0, len(arguments)-1)
	for _, argument := range arguments[1:] {
		paths = append(paths, expander.Expand(argument))
	}

	return builder.withService(command, func(executionContext context.Context, service *Service) error {
		if _, _, findError := service.FindItem(executionContext, arguments[0]); findError != nil {
			return findError
		}

		reader := uploads.NewBatchReader(uploads.BatchReaderDependencies{
			FileSystem:    builder.FileSystem,
			Clock:         builder.Clock,
			Logger:        builder.resolveLogger(),
			Configuration: configuration.Uploads,
		})
		documents, readError := reader.ReadBatch(executionContext, paths)
		if readError != nil {
			return readError
		}

		result, updateError := service.UploadDocuments(executionContext, arguments[0], documents)
		if updateError != nil {
			return updateError
		}
		return WriteUpdateResult(command.OutOrStdout(), result)
	})
}

func (builder *CommandBuilder) runDocumentsRemove(command *cobra.Command, arguments []string) error {
	return builder.withService(command, func(executionContext context.Context, service *Service) error {
		result, updateError := service.RemoveDocument(executionContext, arguments[0], arguments[1])
		if updateError != nil {
			return updateError
		}
		return WriteUpdateResult(command.OutOrStdout(), result)
	})
}

func (builder *CommandBuilder) runDocumentsSave(command *cobra.Command, arguments []string) error {
	outputPath, _ := command.Flags().GetString(outputFlagNameConstant)
	return builder.withService(command, func(executionContext context.Context, service *Service) error {
		_, item, findError := service.FindItem(executionContext, arguments[0])
		if findError != nil {
			return findError
		}
		document, exists := item.FindDocument(arguments[1])
		if !exists {
			return fmt.Errorf(documentNotFoundTemplateConstant, ErrDocumentNotFound, arguments[1], item.Code)
		}

		_, content, decodeError := uploads.DecodeDataURL(document.Data)
		if decodeError != nil {
			return fmt.Errorf(documentDecodeErrorTemplate, document.ID, decodeError)
		}

		destination := pathutils.NewHomeExpander().Expand(outputPath)
		if len(destination) == 0 {
			destination = filepath.Base(document.Name)
		}
		if writeError := os.WriteFile(destination, content, documentFilePermissionsConstant); writeError != nil {
			return fmt.Errorf(documentWriteErrorTemplateConstant, destination, writeError)
		}
		fmt.Fprintf(command.OutOrStdout(), documentSavedTemplateConstant, document.Name, len(content), destination)
		return nil
	})
}

func (builder *CommandBuilder) runReset(command *cobra.Command, arguments []string) error {
	assumeYes, _ := command.Flags().GetBool(yesFlagNameConstant)
	return builder.withService(command, func(executionContext context.Context, service *Service) error {
		reset, resetError := service.Reset(executionContext, assumeYes)
		if resetError != nil {
			return resetError
		}
		if reset {
			fmt.Fprintln(command.OutOrStdout(), resetCompletedOutputConstant)
		} else {
			fmt.Fprintln(command.OutOrStdout(), resetDeclinedOutputConstant)
		}
		return nil
	})
}

func (builder *CommandBuilder) withService(command *cobra.Command, action func(context.Context, *Service) error) (actionError error) {
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()

	deriver, deriverError := audit.NewConfiguredDeriver(configuration.Audit, builder.Clock)
	if deriverError != nil {
		return deriverError
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
		Trees:    NewTreeRepository(store, configuration.Storage.DataKey, builder.InitialDataProvider, logger),
		AuditLog: audit.NewLogRepository(store, configuration.Storage.AuditLogKey, logger),
		Deriver:  deriver,
		Prompter: prompter,
		Logger:   logger,
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
