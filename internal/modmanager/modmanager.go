// Package modmanager detects the mod manager the toolkit was launched from
// and reads the manager's instance configuration.
package modmanager

import (
	"path/filepath"
)

// Name identifies a supported mod manager.
type Name string

const (
	ModOrganizer Name = "Mod Organizer"
	Vortex       Name = "Vortex"
)

// Tool identifies a third-party tool registered with the mod manager.
type Tool string

// ToolComplexSorter is the xEdit-based Complex Sorter patcher.
const ToolComplexSorter Tool = "Complex Sorter"

// Manager describes a running mod manager instance. Mod Organizer instances
// carry the profile and paths read from ModOrganizer.ini; Vortex is
// detection-only and keeps the zero values.
type Manager struct {
	Name    Name
	ExePath string
	Version string

	SelectedProfile string
	GamePath        string
	BaseDirectory   string

	// Executables lists registered tool binaries the toolkit knows how
	// to check, keyed by tool.
	Executables map[Tool][]string

	// SkipFileSuffixes and SkipDirectories extend the scanner's skip
	// lists with manager-specific entries.
	SkipFileSuffixes []string
	SkipDirectories  []string
}

// New returns a Manager for the given executable. Mod Organizer hides files
// by appending .mohidden, so those are excluded from scans.
func New(name Name, exePath, version string) *Manager {
	manager := &Manager{
		Name:        name,
		ExePath:     exePath,
		Version:     version,
		Executables: make(map[Tool][]string),
	}
	if name == ModOrganizer {
		manager.SkipFileSuffixes = []string{".mohidden"}
	}
	return manager
}

// StagePath returns the directory holding the instance's installed mods,
// or "" when the instance configuration has not been read.
func (m *Manager) StagePath() string {
	if m.BaseDirectory == "" {
		return ""
	}
	return filepath.Join(m.BaseDirectory, "mods")
}

// ProfilesPath returns the directory holding the instance's profiles.
func (m *Manager) ProfilesPath() string {
	if m.BaseDirectory == "" {
		return ""
	}
	return filepath.Join(m.BaseDirectory, "profiles")
}

// OverwritePath returns the instance's overwrite directory, where tools run
// through the manager drop their output.
func (m *Manager) OverwritePath() string {
	if m.BaseDirectory == "" {
		return ""
	}
	return filepath.Join(m.BaseDirectory, "overwrite")
}

// ModlistPath returns the modlist.txt of the selected profile, or "" when
// the profile is unknown.
func (m *Manager) ModlistPath() string {
	if m.BaseDirectory == "" || m.SelectedProfile == "" {
		return ""
	}
	return filepath.Join(m.ProfilesPath(), m.SelectedProfile, "modlist.txt")
}
