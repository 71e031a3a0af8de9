// Package game locates a Fallout 4 install and inspects its binaries,
// archives, and modules.
package game

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/models"
	"github.com/collective-modding/cm-toolkit/internal/modmanager"
)

// ErrGameNotFound reports that no Fallout 4 install could be located.
var ErrGameNotFound = errors.New("a Fallout 4 installation could not be found")

// Overridable seams for tests.
var (
	detectManager        = modmanager.Detect
	gamePathFromRegistry = registryGamePath
	documentsDir         = defaultDocumentsDir
	localAppDataDir      = defaultLocalAppDataDir
	workingDir           = os.Getwd
)

// Game holds everything discovered about one Fallout 4 install. The
// overview passes refresh the counts, sets, and problem-feeding fields.
type Game struct {
	InstallType models.InstallType
	GamePath    string
	DataPath    string
	F4SEPath    string

	Manager *modmanager.Manager

	INIs        *INIs
	Language    models.Language
	BA2Suffixes []string

	FileInfo       map[string]models.FileInfo
	AddressLibrary string

	ArchivesOG         map[string]bool
	ArchivesNG         map[string]bool
	ArchivesEnabled    map[string]bool
	ArchivesUnreadable map[string]bool

	ModulesEnabled    []string
	ModulesUnreadable map[string]bool
	ModulesV95        map[string]bool
	ModulesUnknown    map[string]float32

	CountGNRL  int
	CountDX10  int
	CountFull  int
	CountLight int
	CountV1    int
}

// New detects a running mod manager, resolves the game path, and loads the
// game INIs. explicitPath is tried after every automatic source, standing
// in for the file picker a windowed setup would show.
func New(fs afero.Fs, explicitPath string) (*Game, error) {
	game := &Game{
		InstallType: models.Unknown,
		Manager:     detectManager(fs),
	}
	game.ResetBinaries()
	game.ResetModules()
	game.ResetArchives()

	if err := game.findPath(fs, explicitPath); err != nil {
		return nil, err
	}
	if err := game.loadINIs(fs); err != nil {
		return nil, err
	}
	return game, nil
}

// findPath resolves the install root: the mod manager's configured path,
// then the working directory, then the registry, then the explicit path.
func (g *Game) findPath(fs afero.Fs, explicitPath string) error {
	if g.Manager != nil {
		if g.Manager.Name == modmanager.ModOrganizer {
			if err := g.Manager.LoadInstanceINI(fs); err != nil {
				return err
			}
		}
		if g.Manager.GamePath != "" {
			g.SetGamePath(fs, g.Manager.GamePath)
			return nil
		}
	}

	if cwd, err := workingDir(); err == nil && IsFO4Dir(fs, cwd) {
		g.SetGamePath(fs, cwd)
		return nil
	}

	candidate := gamePathFromRegistry()
	if candidate == "" {
		candidate = explicitPath
	}
	if candidate == "" {
		return ErrGameNotFound
	}

	if ok, err := isFile(fs, candidate); err == nil && ok {
		candidate = filepath.Dir(candidate)
	}
	if !IsFO4Dir(fs, candidate) {
		return fmt.Errorf("%w: %s", ErrGameNotFound, candidate)
	}
	g.SetGamePath(fs, candidate)
	return nil
}

// SetGamePath records the install root and derives the Data and F4SE
// plugin paths, which stay empty when their directories are missing.
func (g *Game) SetGamePath(fs afero.Fs, path string) {
	g.GamePath = filepath.Clean(path)
	g.DataPath = ""
	g.F4SEPath = ""

	dataPath := filepath.Join(g.GamePath, "Data")
	if !isDir(fs, dataPath) {
		return
	}
	g.DataPath = dataPath

	pluginsPath := filepath.Join(dataPath, "F4SE", "Plugins")
	if isDir(fs, pluginsPath) {
		g.F4SEPath = pluginsPath
	}
}

// IsFO4Dir reports whether path is a directory holding Fallout4.exe.
func IsFO4Dir(fs afero.Fs, path string) bool {
	if !isDir(fs, path) {
		return false
	}
	ok, err := afero.Exists(fs, filepath.Join(path, "Fallout4.exe"))
	return err == nil && ok
}

// RunsOldGen reports whether the install executes Old-Gen binaries.
func (g *Game) RunsOldGen() bool {
	return g.InstallType.RunsOldGen()
}

// RunsNextGen reports whether the install executes Next-Gen binaries.
func (g *Game) RunsNextGen() bool {
	return g.InstallType.RunsNextGen()
}

// ResetBinaries clears everything the binaries pass fills in.
func (g *Game) ResetBinaries() {
	g.InstallType = models.Unknown
	g.FileInfo = make(map[string]models.FileInfo)
	g.AddressLibrary = ""
}

// ResetModules clears everything the modules pass fills in.
func (g *Game) ResetModules() {
	g.CountFull = 0
	g.CountLight = 0
	g.CountV1 = 0
	g.ModulesEnabled = nil
	g.ModulesUnreadable = make(map[string]bool)
	g.ModulesV95 = make(map[string]bool)
	g.ModulesUnknown = make(map[string]float32)
}

// ResetArchives clears everything the archives pass fills in.
func (g *Game) ResetArchives() {
	g.CountGNRL = 0
	g.CountDX10 = 0
	g.ArchivesOG = make(map[string]bool)
	g.ArchivesNG = make(map[string]bool)
	g.ArchivesEnabled = make(map[string]bool)
	g.ArchivesUnreadable = make(map[string]bool)
}

func isDir(fs afero.Fs, path string) bool {
	ok, err := afero.DirExists(fs, path)
	return err == nil && ok
}

func isFile(fs afero.Fs, path string) (bool, error) {
	info, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}
