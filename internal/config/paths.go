// Package config resolves default file locations.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultSourcePath returns the default transactional database location.
func DefaultSourcePath() (string, error) {
	return defaultDataPath("source.db")
}

// DefaultWarehousePath returns the default analytical database location.
func DefaultWarehousePath() (string, error) {
	return defaultDataPath("warehouse.db")
}

func defaultDataPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "finsight", name), nil
}
