package modmanager

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/globalerrors"
)

const (
	iniFileName    = "ModOrganizer.ini"
	portableMarker = "portable.txt"

	byteArrayPrefix    = "@ByteArray("
	executablesSection = "[customExecutables]"
)

var (
	// ErrUnsupportedGame reports a Mod Organizer instance managing a game
	// other than Fallout 4.
	ErrUnsupportedGame = errors.New("only Fallout 4 is supported")

	// ErrProfileNotSet reports a ModOrganizer.ini without a selected profile.
	ErrProfileNotSet = errors.New("profile is not set in ModOrganizer.ini")

	// ErrGamePathNotSet reports a ModOrganizer.ini without a game path.
	ErrGamePathNotSet = errors.New("gamePath is not set in ModOrganizer.ini")
)

// currentInstance reports the Mod Organizer instance selected in the
// registry, or "" outside Windows. Overridable seam for tests.
var currentInstance = registryCurrentInstance

// LoadInstanceINI locates the instance's ModOrganizer.ini and reads it.
// Portable installs keep the INI beside the executable and mark themselves
// with a portable.txt; otherwise the registry names the active instance,
// whose INI lives under %LOCALAPPDATA%. When neither yields a game path the
// portable INI is required.
func (m *Manager) LoadInstanceINI(fs afero.Fs) error {
	exeDir := filepath.Dir(m.ExePath)
	portableINI := filepath.Join(exeDir, iniFileName)
	portableExists, err := afero.Exists(fs, portableINI)
	if err != nil {
		return err
	}

	portable, err := afero.Exists(fs, filepath.Join(exeDir, portableMarker))
	if err != nil {
		return err
	}

	switch {
	case portable:
		if !portableExists {
			return &globalerrors.FileNotFoundError{Path: portableINI}
		}
		if err := m.ReadINI(fs, portableINI); err != nil {
			return err
		}
	case currentInstance() != "":
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			break
		}
		instanceINI := filepath.Join(appData, "ModOrganizer", iniFileName)
		exists, err := afero.Exists(fs, instanceINI)
		if err != nil {
			return err
		}
		if exists {
			if err := m.ReadINI(fs, instanceINI); err != nil {
				return err
			}
		}
	}

	if m.GamePath == "" {
		if !portableExists {
			return &globalerrors.FileNotFoundError{Path: portableINI}
		}
		if err := m.ReadINI(fs, portableINI); err != nil {
			return err
		}
	}
	return nil
}

// ReadINI reads the Mod Organizer settings the toolkit relies on. Mod
// Organizer wraps some values in @ByteArray() and repeats key names across
// groups, so each field takes its first hit anywhere in the file rather
// than going through a strict INI parser.
func (m *Manager) ReadINI(fs afero.Fs, path string) error {
	file, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var (
		haveGameName  bool
		haveProfile   bool
		haveGamePath  bool
		haveBaseDir   bool
		inExecutables bool
	)
	entries := make(map[string]*executableEntry)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if strings.HasPrefix(line, "[") {
			inExecutables = strings.TrimSpace(line) == executablesSection
			continue
		}
		if inExecutables {
			recordExecutable(entries, line)
		}

		switch {
		case !haveGameName && strings.HasPrefix(line, "gameName"):
			haveGameName = true
			if iniValue(line) != "Fallout 4" {
				return ErrUnsupportedGame
			}
		case !haveProfile && strings.HasPrefix(line, "selected_profile"):
			haveProfile = true
			profile := iniValue(line)
			if profile == "" {
				return ErrProfileNotSet
			}
			m.SelectedProfile = profile
		case !haveGamePath && strings.HasPrefix(line, "gamePath"):
			haveGamePath = true
			gamePath := iniValue(line)
			if gamePath == "" {
				return ErrGamePathNotSet
			}
			m.GamePath = filepath.Clean(gamePath)
		case !haveBaseDir && strings.HasPrefix(line, "base_directory"):
			haveBaseDir = true
			if base := iniValue(line); base != "" {
				m.BaseDirectory = filepath.Clean(base)
			} else {
				m.BaseDirectory = filepath.Dir(m.ExePath)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Mod Organizer omits base_directory when it matches the instance
	// directory, which is where the INI itself lives.
	if m.BaseDirectory == "" {
		m.BaseDirectory = filepath.Dir(path)
	}
	m.setExecutables(entries)
	return nil
}

type executableEntry struct {
	title  string
	binary string
}

// recordExecutable collects the numbered title/binary pairs Mod Organizer
// writes under [customExecutables].
func recordExecutable(entries map[string]*executableEntry, line string) {
	key, value, found := strings.Cut(line, "=")
	if !found {
		return
	}
	index, field, found := strings.Cut(key, `\`)
	if !found {
		return
	}
	entry := entries[index]
	if entry == nil {
		entry = &executableEntry{}
		entries[index] = entry
	}
	switch field {
	case "title":
		entry.title = value
	case "binary":
		entry.binary = value
	}
}

// setExecutables keeps the registered tools the toolkit knows how to check.
func (m *Manager) setExecutables(entries map[string]*executableEntry) {
	if m.Executables == nil {
		m.Executables = make(map[Tool][]string)
	}
	indexes := make([]string, 0, len(entries))
	for index := range entries {
		indexes = append(indexes, index)
	}
	sort.Strings(indexes)
	for _, index := range indexes {
		entry := entries[index]
		if entry.binary == "" {
			continue
		}
		if strings.Contains(strings.ToLower(entry.title), "complex sorter") {
			m.Executables[ToolComplexSorter] = append(m.Executables[ToolComplexSorter], filepath.Clean(entry.binary))
		}
	}
}

// iniValue extracts the value after the first "=", unwrapping Mod
// Organizer's @ByteArray() encoding.
func iniValue(line string) string {
	parts := strings.SplitN(line, "=", 2)
	value := parts[len(parts)-1]
	if strings.HasPrefix(value, byteArrayPrefix) {
		value = strings.TrimSuffix(value[len(byteArrayPrefix):], ")")
	}
	return value
}
