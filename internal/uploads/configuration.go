package uploads

import "time"

const (
	defaultReadTimeoutConstant  = 30 * time.Second
	defaultMaxFileBytesConstant = 10 << 20
	defaultConcurrencyConstant  = 4
)

// Configuration captures batch upload limits.
type Configuration struct {
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	MaxFileBytes int64         `mapstructure:"max_file_bytes"`
	Concurrency  int           `mapstructure:"concurrency"`
}

// DefaultConfiguration returns baseline upload limits.
func DefaultConfiguration() Configuration {
	return Configuration{
		ReadTimeout:  defaultReadTimeoutConstant,
		MaxFileBytes: defaultMaxFileBytesConstant,
		Concurrency:  defaultConcurrencyConstant,
	}
}

// DefaultConfigurationValues exposes defaults keyed for the configuration loader.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		prefix + ".read_timeout":   defaults.ReadTimeout.String(),
		prefix + ".max_file_bytes": defaults.MaxFileBytes,
		prefix + ".concurrency":    defaults.Concurrency,
	}
}

// Sanitize restores defaults for non-positive limits.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration
	if sanitized.ReadTimeout <= 0 {
		sanitized.ReadTimeout = defaults.ReadTimeout
	}
	if sanitized.MaxFileBytes <= 0 {
		sanitized.MaxFileBytes = defaults.MaxFileBytes
	}
	if sanitized.Concurrency <= 0 {
		sanitized.Concurrency = defaults.Concurrency
	}
	return sanitized
}
