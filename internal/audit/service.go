package audit

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	clearPromptTemplateConstant   = "Clear all %d audit log entries? This cannot be undone."
	clearDeclinedMessageConstant  = "audit log clear declined"
	clearCompletedMessageConstant = "audit log cleared"
	entryCountFieldConstant       = "entries"
	auditLogFileNameTemplate      = "FedRAMP-KSI-Audit-Log-%s.csv"
	fileNameDateLayoutConstant    = "2006-01-02"
	availableCategoriesTemplate   = "Categories with entries: %s\n"
	categoryListSeparatorConstant = ", "
)

// ServiceDependencies describes the collaborators used by Service.
type ServiceDependencies struct {
	Repository *LogRepository
	Prompter   ConfirmationPrompter
	Clock      Clock
	Location   *time.Location
	Logger     *zap.Logger
}

// Service exposes the audit log operations behind the CLI.
type Service struct {
	repository *LogRepository
	prompter   ConfirmationPrompter
	clock      Clock
	location   *time.Location
	logger     *zap.Logger
}

// NewService constructs a Service using the provided dependencies.
func NewService(dependencies ServiceDependencies) *Service {
	service := &Service{
		repository: dependencies.Repository,
		prompter:   dependencies.Prompter,
		clock:      dependencies.Clock,
		location:   dependencies.Location,
		logger:     dependencies.Logger,
	}
	if service.clock == nil {
		service.clock = SystemClock{}
	}
	if service.location == nil {
		service.location = time.Local
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	return service
}

// List writes the entries matching filter, newest first.
func (service *Service) List(executionContext context.Context, filter Filter, writer io.Writer) error {
	log, loadError := service.repository.Load(executionContext)
	if loadError != nil {
		return loadError
	}
	matching := filter.Apply(log)
	if writeError := WriteEntries(writer, matching, len(log), service.clock.Now(), service.location); writeError != nil {
		return writeError
	}
	if len(matching) == 0 && len(log) > 0 && !isAllPredicate(filter.CategoryCode) && len(Filter{CategoryCode: filter.CategoryCode}.Apply(log)) == 0 {
		_, writeError := fmt.Fprintf(writer, availableCategoriesTemplate, strings.Join(CategoryCodes(log), categoryListSeparatorConstant))
		return writeError
	}
	return nil
}

// Export writes the full log as CSV and returns the number of entries written.
func (service *Service) Export(executionContext context.Context, writer io.Writer) (int, error) {
	log, loadError := service.repository.Load(executionContext)
	if loadError != nil {
		return 0, loadError
	}
	if writeError := WriteCSV(writer, log, service.location); writeError != nil {
		return 0, writeError
	}
	return len(log), nil
}

// ExportFileName returns the download name of a CSV export produced now, dated in UTC.
func (service *Service) ExportFileName() string {
	return fmt.Sprintf(auditLogFileNameTemplate, service.clock.Now().UTC().Format(fileNameDateLayoutConstant))
}

// Clear empties the log after confirmation. assumeYes skips the prompt. The returned
// flag reports whether the log was cleared.
func (service *Service) Clear(executionContext context.Context, assumeYes bool) (bool, error) {
	log, loadError := service.repository.Load(executionContext)
	if loadError != nil {
		return false, loadError
	}

	if !assumeYes {
		if service.prompter == nil {
			return false, nil
		}
		confirmed, promptError := service.prompter.Confirm(fmt.Sprintf(clearPromptTemplateConstant, len(log)))
		if promptError != nil {
			return false, promptError
		}
		if !confirmed {
			service.logger.Info(clearDeclinedMessageConstant)
			return false, nil
		}
	}

	if saveError := service.repository.Save(executionContext, []Entry{}); saveError != nil {
		return false, saveError
	}
	service.logger.Info(clearCompletedMessageConstant, zap.Int(entryCountFieldConstant, len(log)))
	return true, nil
}
