package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	fileStoreDirectoryPermissionsConstant = 0o750
	fileStoreFilePermissionsConstant      = 0o600
	fileStoreExtensionConstant            = ".json"
	fileStoreTemporaryPatternConstant     = ".ksi-*.tmp"
	fileStoreDirectoryErrorTemplate       = "failed to create storage directory %s: %w"
	fileStoreWriteErrorTemplate           = "failed to write key %q: %w"
)

var fileStoreKeyReplacer = strings.NewReplacer("/", "_", "\\", "_", "..", "_")

// FileStore keeps each key in its own file inside a directory.
type FileStore struct {
	directory string
}

// NewFileStore constructs a FileStore rooted at directory, creating it when missing.
func NewFileStore(directory string) (*FileStore, error) {
	if mkdirError := os.MkdirAll(directory, fileStoreDirectoryPermissionsConstant); mkdirError != nil {
		return nil, fmt.Errorf(fileStoreDirectoryErrorTemplate, directory, mkdirError)
	}
	return &FileStore{directory: directory}, nil
}

// Get reads the file backing key.
func (store *FileStore) Get(executionContext context.Context, key string) ([]byte, bool, error) {
	if keyError := validateKey(key); keyError != nil {
		return nil, false, keyError
	}

	content, readError := os.ReadFile(store.pathForKey(key))
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, readError
	}
	return content, true, nil
}

// Set replaces the file backing key by writing a temporary file and renaming it.
func (store *FileStore) Set(executionContext context.Context, key string, value []byte) error {
	if keyError := validateKey(key); keyError != nil {
		return keyError
	}

	temporaryFile, createError := os.CreateTemp(store.directory, fileStoreTemporaryPatternConstant)
	if createError != nil {
		return fmt.Errorf(fileStoreWriteErrorTemplate, key, createError)
	}
	temporaryPath := temporaryFile.Name()

	_, writeError := temporaryFile.Write(value)
	closeError := temporaryFile.Close()
	if combinedError := errors.Join(writeError, closeError); combinedError != nil {
		_ = os.Remove(temporaryPath)
		return fmt.Errorf(fileStoreWriteErrorTemplate, key, combinedError)
	}

	if chmodError := os.Chmod(temporaryPath, fileStoreFilePermissionsConstant); chmodError != nil {
		_ = os.Remove(temporaryPath)
		return fmt.Errorf(fileStoreWriteErrorTemplate, key, chmodError)
	}

	if renameError := os.Rename(temporaryPath, store.pathForKey(key)); renameError != nil {
		_ = os.Remove(temporaryPath)
		return fmt.Errorf(fileStoreWriteErrorTemplate, key, renameError)
	}
	return nil
}

// Close is a no-op for FileStore.
func (store *FileStore) Close() error {
	return nil
}

func (store *FileStore) pathForKey(key string) string {
	return filepath.Join(store.directory, fileStoreKeyReplacer.Replace(strings.TrimSpace(key))+fileStoreExtensionConstant)
}
