package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureAppDir creates (if needed) and returns the per-user application
// directory for the given name, e.g. ~/.config/tkcli on Linux.
func EnsureAppDir(name string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}

	dir := filepath.Join(base, name)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
