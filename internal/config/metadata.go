package config

import (
	"os"
	"path/filepath"
)

const settingsFileName = "settings.json"

type Metadata struct {
	SettingsPath string
}

// NewMetadata wraps the settings.json location. An empty path means the
// default location beside the executable.
func NewMetadata(settingsPath string) Metadata {
	if settingsPath == "" {
		settingsPath = DefaultSettingsPath()
	}
	return Metadata{SettingsPath: settingsPath}
}

func (m Metadata) Dir() string {
	return filepath.Dir(filepath.FromSlash(m.SettingsPath))
}

// DefaultSettingsPath places settings.json beside the executable so the
// toolkit stays portable. Falls back to the working directory.
func DefaultSettingsPath() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exe), settingsFileName)
	}
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, settingsFileName)
	}
	return settingsFileName
}
