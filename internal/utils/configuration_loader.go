package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorOldConstant              = "."
	environmentKeySeparatorNewConstant              = "_"
	configurationReadErrorTemplateConstant          = "failed to read configuration: %w"
	configurationUnmarshalErrorTemplateConstant     = "failed to parse configuration: %w"
	embeddedConfigurationMergeErrorTemplateConstant = "failed to merge embedded configuration: %w"
	dotEnvReadErrorTemplateConstant                 = "failed to read environment file %s: %w"
	sliceSeparatorConstant                          = ","
)

// ConfigurationLoader wraps Viper to load layered configuration. Precedence, lowest first:
// registered defaults, embedded configuration, configuration file, environment files,
// process environment.
type ConfigurationLoader struct {
	configurationName      string
	configurationType      string
	environmentPrefix      string
	searchPaths            []string
	environmentFiles       []string
	environmentKeyReplacer *strings.Replacer
	embeddedConfiguration  []byte
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed       string
	EnvironmentFilesUsed []string
}

// NewConfigurationLoader creates a loader that searches known paths and respects an environment prefix.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName:      configurationName,
		configurationType:      configurationType,
		environmentPrefix:      strings.ToUpper(environmentPrefix),
		searchPaths:            append([]string(nil), searchPaths...),
		environmentKeyReplacer: strings.NewReplacer(environmentKeySeparatorOldConstant, environmentKeySeparatorNewConstant),
	}
}

// SetEmbeddedConfiguration stores configuration merged beneath user-provided files.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte) {
	if loader == nil {
		return
	}
	loader.embeddedConfiguration = append([]byte(nil), configurationData...)
}

// SetEnvironmentFiles registers dotenv files consulted before the process environment.
// Missing files are skipped.
func (loader *ConfigurationLoader) SetEnvironmentFiles(environmentFiles ...string) {
	if loader == nil {
		return
	}
	loader.environmentFiles = append([]string(nil), environmentFiles...)
}

// EnvironmentVariableName returns the variable overriding configurationKey.
func (loader *ConfigurationLoader) EnvironmentVariableName(configurationKey string) string {
	name := strings.ToUpper(loader.environmentKeyReplacer.Replace(configurationKey))
	if len(loader.environmentPrefix) == 0 {
		return name
	}
	return loader.environmentPrefix + environmentKeySeparatorNewConstant + name
}

// LoadConfiguration populates targetConfiguration from the layered sources.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.configurationName)
	viperInstance.SetConfigType(loader.configurationType)

	if len(loader.embeddedConfiguration) > 0 {
		if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.embeddedConfiguration)); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationMergeErrorTemplateConstant, mergeError)
		}
	}

	for _, searchPath := range loader.searchPaths {
		viperInstance.AddConfigPath(searchPath)
	}

	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	viperInstance.AutomaticEnv()

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if len(configurationFilePath) > 0 {
		viperInstance.SetConfigFile(configurationFilePath)
	}

	if readError := viperInstance.MergeInConfig(); readError != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(readError, &notFoundError) {
			return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplateConstant, readError)
		}
	}

	environmentFilesUsed, environmentError := loader.applyEnvironmentFiles(viperInstance, defaultValues)
	if environmentError != nil {
		return LoadedConfiguration{}, environmentError
	}

	if unmarshalError := viperInstance.Unmarshal(targetConfiguration, viper.DecodeHook(configurationDecodeHook())); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, unmarshalError)
	}

	return LoadedConfiguration{
		ConfigFileUsed:       viperInstance.ConfigFileUsed(),
		EnvironmentFilesUsed: environmentFilesUsed,
	}, nil
}

// configurationDecodeHook accepts durations like "30s" and comma-separated lists from
// environment variables.
func configurationDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(sliceSeparatorConstant),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

// applyEnvironmentFiles overlays dotenv values for known keys without touching the
// process environment. Variables already present in the process environment win.
func (loader *ConfigurationLoader) applyEnvironmentFiles(viperInstance *viper.Viper, defaultValues map[string]any) ([]string, error) {
	var environmentFilesUsed []string
	environmentValues := map[string]string{}

	for _, environmentFile := range loader.environmentFiles {
		fileValues, readError := godotenv.Read(environmentFile)
		if readError != nil {
			if errors.Is(readError, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf(dotEnvReadErrorTemplateConstant, environmentFile, readError)
		}
		environmentFilesUsed = append(environmentFilesUsed, environmentFile)
		for name, value := range fileValues {
			if _, alreadySet := environmentValues[name]; !alreadySet {
				environmentValues[name] = value
			}
		}
	}

	if len(environmentValues) == 0 {
		return environmentFilesUsed, nil
	}

	for configurationKey := range defaultValues {
		variableName := loader.EnvironmentVariableName(configurationKey)
		if _, processHasValue := os.LookupEnv(variableName); processHasValue {
			continue
		}
		if value, fileHasValue := environmentValues[variableName]; fileHasValue {
			viperInstance.Set(configurationKey, value)
		}
	}
	return environmentFilesUsed, nil
}
