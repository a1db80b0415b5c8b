package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	emptyKeyMessageConstant            = "storage key must be provided"
	decodeValueErrorTemplateConstant   = "failed to decode value for key %q: %w"
	encodeValueErrorTemplateConstant   = "failed to encode value for key %q: %w"
	readValueErrorTemplateConstant     = "failed to read key %q: %w"
	unsupportedBackendTemplateConstant = "%w %q"
)

// ErrEmptyKey indicates a Get or Set call without a key.
var ErrEmptyKey = errors.New(emptyKeyMessageConstant)

// ErrUnsupportedBackend indicates the configured backend name is unknown.
var ErrUnsupportedBackend = errors.New("unsupported storage backend")

// ErrMalformedValue indicates a stored value could not be decoded.
var ErrMalformedValue = errors.New("malformed stored value")

// Store persists named byte values across process restarts.
type Store interface {
	Get(executionContext context.Context, key string) ([]byte, bool, error)
	Set(executionContext context.Context, key string, value []byte) error
	Close() error
}

// LoadJSON reads key and decodes it into target. found is false when the key is absent.
// A stored value that cannot be decoded yields an error wrapping ErrMalformedValue.
func LoadJSON(executionContext context.Context, store Store, key string, target any) (bool, error) {
	value, found, getError := store.Get(executionContext, key)
	if getError != nil {
		return false, fmt.Errorf(readValueErrorTemplateConstant, key, getError)
	}
	if !found {
		return false, nil
	}

	if decodeError := json.Unmarshal(value, target); decodeError != nil {
		return true, fmt.Errorf(decodeValueErrorTemplateConstant, key, errors.Join(ErrMalformedValue, decodeError))
	}
	return true, nil
}

// SaveJSON encodes value and stores it under key.
func SaveJSON(executionContext context.Context, store Store, key string, value any) error {
	encoded, encodeError := json.Marshal(value)
	if encodeError != nil {
		return fmt.Errorf(encodeValueErrorTemplateConstant, key, encodeError)
	}
	return store.Set(executionContext, key, encoded)
}

func validateKey(key string) error {
	if len(strings.TrimSpace(key)) == 0 {
		return ErrEmptyKey
	}
	return nil
}

// Opener opens the Store described by a Configuration.
type Opener func(executionContext context.Context, configuration Configuration) (Store, error)
