package tracker

import (
	"github.com/temirov/ksi/internal/audit"
	"github.com/temirov/ksi/internal/storage"
	"github.com/temirov/ksi/internal/uploads"
)

// CommandConfiguration aggregates the settings consumed by the item commands.
type CommandConfiguration struct {
	Storage storage.Configuration
	Audit   audit.Configuration
	Uploads uploads.Configuration
}

// DefaultCommandConfiguration returns baseline settings for the item commands.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Storage: storage.DefaultConfiguration(),
		Audit:   audit.DefaultConfiguration(),
		Uploads: uploads.DefaultConfiguration(),
	}
}

// Sanitize restores defaults for blank values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	return CommandConfiguration{
		Storage: configuration.Storage.Sanitize(),
		Audit:   configuration.Audit.Sanitize(),
		Uploads: configuration.Uploads.Sanitize(),
	}
}
