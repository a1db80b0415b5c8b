package cli

import (
	"bytes"
	_ "embed"
)

// ksiDefaultConfiguration holds the common, storage, audit, uploads, and report defaults.
//
//go:embed default_config.yaml
var ksiDefaultConfiguration []byte

// EmbeddedDefaultConfiguration returns a private copy of the built-in ksi configuration and its format.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return bytes.Clone(ksiDefaultConfiguration), configurationTypeConstant
}
