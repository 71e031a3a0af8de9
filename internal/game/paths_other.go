//go:build !windows

package game

import (
	"os"
	"path/filepath"
)

func defaultDocumentsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Documents"), nil
}

func defaultLocalAppDataDir() (string, error) {
	if value := os.Getenv("LOCALAPPDATA"); value != "" {
		return value, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share"), nil
}

func registryGamePath() string {
	return ""
}
