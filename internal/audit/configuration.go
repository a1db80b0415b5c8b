package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/temirov/ksi/internal/storage"
)

const (
	defaultTimestampLocationConstant       = "Local"
	defaultExportDirectoryConstant         = "."
	timestampLocationErrorTemplateConstant = "invalid audit timestamp location %q: %w"
)

// Configuration captures audit derivation and display settings.
type Configuration struct {
	Actor             string `mapstructure:"actor"`
	DocumentDiff      string `mapstructure:"document_diff"`
	TimestampLocation string `mapstructure:"timestamp_location"`
}

// DefaultConfiguration returns baseline audit settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		Actor:             DefaultActor,
		DocumentDiff:      string(DocumentDiffIdentity),
		TimestampLocation: defaultTimestampLocationConstant,
	}
}

// DefaultConfigurationValues exposes defaults keyed for the configuration loader.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		prefix + ".actor":              defaults.Actor,
		prefix + ".document_diff":      defaults.DocumentDiff,
		prefix + ".timestamp_location": defaults.TimestampLocation,
	}
}

// Sanitize trims values and restores defaults for blanks.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration
	sanitized.Actor = StaticActor(configuration.Actor).Actor()
	sanitized.DocumentDiff = strings.ToLower(strings.TrimSpace(configuration.DocumentDiff))
	if len(sanitized.DocumentDiff) == 0 {
		sanitized.DocumentDiff = defaults.DocumentDiff
	}
	sanitized.TimestampLocation = strings.TrimSpace(configuration.TimestampLocation)
	if len(sanitized.TimestampLocation) == 0 {
		sanitized.TimestampLocation = defaults.TimestampLocation
	}
	return sanitized
}

// Location resolves the configured timestamp location.
func (configuration Configuration) Location() (*time.Location, error) {
	sanitized := configuration.Sanitize()
	location, loadError := time.LoadLocation(sanitized.TimestampLocation)
	if loadError != nil {
		return nil, fmt.Errorf(timestampLocationErrorTemplateConstant, sanitized.TimestampLocation, loadError)
	}
	return location, nil
}

// NewConfiguredDeriver builds a Deriver honoring the configured actor and document diff policy.
func NewConfiguredDeriver(configuration Configuration, clock Clock) (*Deriver, error) {
	sanitized := configuration.Sanitize()
	policy, policyError := ParseDocumentDiffPolicy(sanitized.DocumentDiff)
	if policyError != nil {
		return nil, policyError
	}
	return NewDeriver(DeriverDependencies{
		Clock:              clock,
		ActorProvider:      StaticActor(sanitized.Actor),
		DocumentDiffPolicy: policy,
	}), nil
}

// CommandConfiguration aggregates the settings consumed by the audit commands.
type CommandConfiguration struct {
	Storage         storage.Configuration
	Audit           Configuration
	ExportDirectory string
}

// DefaultCommandConfiguration returns baseline settings for the audit commands.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Storage:         storage.DefaultConfiguration(),
		Audit:           DefaultConfiguration(),
		ExportDirectory: defaultExportDirectoryConstant,
	}
}

// Sanitize restores defaults for blank values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Storage = configuration.Storage.Sanitize()
	sanitized.Audit = configuration.Audit.Sanitize()
	sanitized.ExportDirectory = strings.TrimSpace(configuration.ExportDirectory)
	if len(sanitized.ExportDirectory) == 0 {
		sanitized.ExportDirectory = defaultExportDirectoryConstant
	}
	return sanitized
}
