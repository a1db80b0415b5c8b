// Package pathutils resolves user supplied filesystem locations such as
// storage paths and export directories.
package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	homeShortcutConstant      = "~"
	homeShortcutSlashConstant = "~/"
)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// HomeExpander replaces a leading home shortcut with the user's home directory.
type HomeExpander struct {
	provider  HomeDirectoryProvider
	once      sync.Once
	directory string
}

// NewHomeExpander constructs a HomeExpander backed by os.UserHomeDir.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(nil)
}

// NewHomeExpanderWithProvider constructs a HomeExpander using provider for the lookup.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{provider: provider}
}

// Expand returns candidatePath with "~" or "~/" resolved. Other inputs, and
// inputs whose home directory cannot be determined, are returned unchanged.
func (expander *HomeExpander) Expand(candidatePath string) string {
	trimmedPath := strings.TrimSpace(candidatePath)
	if expander == nil || !strings.HasPrefix(trimmedPath, homeShortcutConstant) {
		return trimmedPath
	}

	homeDirectory := expander.homeDirectory()
	if len(homeDirectory) == 0 {
		return trimmedPath
	}

	switch {
	case trimmedPath == homeShortcutConstant:
		return homeDirectory
	case strings.HasPrefix(trimmedPath, homeShortcutSlashConstant):
		return filepath.Join(homeDirectory, trimmedPath[len(homeShortcutSlashConstant):])
	case strings.HasPrefix(trimmedPath, homeShortcutConstant+string(os.PathSeparator)):
		return filepath.Join(homeDirectory, trimmedPath[len(homeShortcutConstant)+1:])
	default:
		// "~user" forms are not supported.
		return trimmedPath
	}
}

func (expander *HomeExpander) homeDirectory() string {
	expander.once.Do(func() {
		resolved, lookupError := expander.provider()
		if lookupError == nil {
			expander.directory = resolved
		}
	})
	return expander.directory
}
