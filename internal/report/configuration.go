package report

import (
	"strings"

	"github.com/temirov/ksi/internal/audit"
	"github.com/temirov/ksi/internal/storage"
)

const defaultOutputDirectoryConstant = "."

// DefaultCriticalItems lists the critical-path KSI codes highlighted by the dashboard.
var DefaultCriticalItems = []string{"IAM-01", "SVC-03", "MLA-01", "TPR-02"}

// Configuration captures report output settings.
type Configuration struct {
	OutputDirectory string   `mapstructure:"output_directory"`
	CriticalItems   []string `mapstructure:"critical_items"`
}

// DefaultConfiguration returns baseline report settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		OutputDirectory: defaultOutputDirectoryConstant,
		CriticalItems:   append([]string(nil), DefaultCriticalItems...),
	}
}

// DefaultConfigurationValues exposes defaults keyed for the configuration loader.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		prefix + ".output_directory": defaults.OutputDirectory,
		prefix + ".critical_items":   defaults.CriticalItems,
	}
}

// Sanitize trims values and restores defaults for blanks.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := Configuration{OutputDirectory: strings.TrimSpace(configuration.OutputDirectory)}
	if len(sanitized.OutputDirectory) == 0 {
		sanitized.OutputDirectory = defaults.OutputDirectory
	}
	for _, code := range configuration.CriticalItems {
		if trimmed := strings.TrimSpace(code); len(trimmed) > 0 {
			sanitized.CriticalItems = append(sanitized.CriticalItems, trimmed)
		}
	}
	if configuration.CriticalItems == nil {
		sanitized.CriticalItems = defaults.CriticalItems
	}
	return sanitized
}

// CommandConfiguration aggregates the settings consumed by the report commands.
type CommandConfiguration struct {
	Storage storage.Configuration
	Audit   audit.Configuration
	Report  Configuration
}

// DefaultCommandConfiguration returns baseline settings for the report commands.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Storage: storage.DefaultConfiguration(),
		Audit:   audit.DefaultConfiguration(),
		Report:  DefaultConfiguration(),
	}
}

// Sanitize restores defaults for blank values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	return CommandConfiguration{
		Storage: configuration.Storage.Sanitize(),
		Audit:   configuration.Audit.Sanitize(),
		Report:  configuration.Report.Sanitize(),
	}
}
