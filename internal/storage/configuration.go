package storage

import (
	"context"
	"fmt"
	"strings"

	pathutils "github.com/temirov/ksi/internal/utils/path"
)

// Backend identifies a Store implementation.
type Backend string

// Supported storage backends.
const (
	BackendSQLite Backend = "sqlite"
	BackendFile   Backend = "file"
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

const (
	defaultDatabasePathConstant  = "~/.ksi/ksi.db"
	defaultFileDirectoryConstant = "~/.ksi/data"
	defaultRedisAddressConstant  = "localhost:6379"
	defaultRedisKeyPrefix        = "ksi:"
)

const (
	// DefaultDataKey is the key holding the compliance tree.
	DefaultDataKey = "fedramp-ksi-data"

	// DefaultAuditLogKey is the key holding the audit log.
	DefaultAuditLogKey = "fedramp-ksi-audit-log"
)

// Configuration captures persistence settings.
type Configuration struct {
	Backend       string `mapstructure:"backend"`
	Path          string `mapstructure:"path"`
	Directory     string `mapstructure:"directory"`
	RedisAddress  string `mapstructure:"redis_address"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDatabase int    `mapstructure:"redis_database"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
	DataKey       string `mapstructure:"data_key"`
	AuditLogKey   string `mapstructure:"audit_log_key"`
}

// DefaultConfiguration returns baseline storage settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		Backend:      string(BackendSQLite),
		Path:         defaultDatabasePathConstant,
		Directory:    defaultFileDirectoryConstant,
		RedisAddress: defaultRedisAddressConstant,
		RedisPrefix:  defaultRedisKeyPrefix,
		DataKey:      DefaultDataKey,
		AuditLogKey:  DefaultAuditLogKey,
	}
}

// DefaultConfigurationValues exposes defaults keyed for the configuration loader.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		prefix + ".backend":        defaults.Backend,
		prefix + ".path":           defaults.Path,
		prefix + ".directory":      defaults.Directory,
		prefix + ".redis_address":  defaults.RedisAddress,
		prefix + ".redis_database": defaults.RedisDatabase,
		prefix + ".redis_prefix":   defaults.RedisPrefix,
		prefix + ".data_key":       defaults.DataKey,
		prefix + ".audit_log_key":  defaults.AuditLogKey,
	}
}

// Sanitize trims values and restores defaults for blanks.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration

	sanitized.Backend = strings.ToLower(valueOrDefault(configuration.Backend, defaults.Backend))
	sanitized.Path = valueOrDefault(configuration.Path, defaults.Path)
	sanitized.Directory = valueOrDefault(configuration.Directory, defaults.Directory)
	sanitized.RedisAddress = valueOrDefault(configuration.RedisAddress, defaults.RedisAddress)
	sanitized.DataKey = valueOrDefault(configuration.DataKey, defaults.DataKey)
	sanitized.AuditLogKey = valueOrDefault(configuration.AuditLogKey, defaults.AuditLogKey)

	return sanitized
}

// Open builds the Store selected by configuration.
func Open(executionContext context.Context, configuration Configuration) (Store, error) {
	sanitized := configuration.Sanitize()
	expander := pathutils.NewHomeExpander()

	var (
		store     Store
		openError error
	)
	switch Backend(sanitized.Backend) {
	case BackendSQLite:
		store, openError = openSQLite(executionContext, expander.Expand(sanitized.Path))
	case BackendFile:
		store, openError = openFile(expander.Expand(sanitized.Directory))
	case BackendRedis:
		store, openError = openRedis(executionContext, RedisOptions{
			Address:   sanitized.RedisAddress,
			Password:  sanitized.RedisPassword,
			Database:  sanitized.RedisDatabase,
			KeyPrefix: sanitized.RedisPrefix,
		})
	case BackendMemory:
		store = NewMemoryStore()
	default:
		openError = fmt.Errorf(unsupportedBackendTemplateConstant, ErrUnsupportedBackend, sanitized.Backend)
	}

	if openError != nil {
		return nil, openError
	}
	return store, nil
}

func openSQLite(executionContext context.Context, databasePath string) (Store, error) {
	sqliteStore, openError := OpenSQLiteStore(executionContext, databasePath)
	if openError != nil {
		return nil, openError
	}
	return sqliteStore, nil
}

func openFile(directory string) (Store, error) {
	fileStore, openError := NewFileStore(directory)
	if openError != nil {
		return nil, openError
	}
	return fileStore, nil
}

func openRedis(executionContext context.Context, options RedisOptions) (Store, error) {
	redisStore, openError := OpenRedisStore(executionContext, options)
	if openError != nil {
		return nil, openError
	}
	return redisStore, nil
}

func valueOrDefault(value string, defaultValue string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return defaultValue
	}
	return trimmed
}
