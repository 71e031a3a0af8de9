package scanner

import (
	"strings"

	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/cmtignore"
	"github.com/collective-modding/cm-toolkit/internal/config"
	"github.com/collective-modding/cm-toolkit/internal/game"
	"github.com/collective-modding/cm-toolkit/internal/models"
	"github.com/collective-modding/cm-toolkit/internal/modmanager"
)

// Folder names skipped at any depth, lowercase. These are tool working
// directories whose contents the game never loads.
var ignoreFolders = map[string]bool{
	"bodyslide":     true,
	"fo4edit":       true,
	"robco_patcher": true,
	"source":        true,
}

// dataWhitelist maps top-level Data folders to the extensions the game
// loads from them. A nil set means any extension. Keys and extensions are
// lowercase with no dot.
var dataWhitelist = map[string]map[string]bool{
	"complex sorter": nil,
	"f4se":           nil,
	"materials":      extensionSet("bgem", "bgsm", "txt"),
	"meshes": extensionSet(
		"bto", "btr", "hko", "hkx", "hkx_back", "hkx_backup", "lst",
		"max", "nif", "obj", "sclp", "ssf", "tri", "txt", "xml",
	),
	"music":    extensionSet("wav", "xwm"),
	"textures": extensionSet("dds"),
	"scripts":  extensionSet("pex", "psc", "txt", "zip"),
	"sound":    extensionSet("cdf", "fuz", "lip", "wav", "xwm"),
	"vis":      extensionSet("uvd"),
}

var junkFiles = map[string]bool{
	"thumbs.db":   true,
	"desktop.ini": true,
	".ds_store":   true,
}

var junkFileSuffixes = []string{".tmp", ".bak"}

// properFormats maps a wrong extension to the formats the game expects
// instead. Lowercase, no dot.
var properFormats = map[string][]string{
	"bmp":  {"dds"},
	"jpeg": {"dds"},
	"jpg":  {"dds"},
	"png":  {"dds"},
	"psd":  {"dds"},
	"tga":  {"dds"},
	"mp3":  {"wav", "xwm"},
}

// Settings selects the stages a scan runs and the entries it skips.
type Settings struct {
	Enabled map[models.ScanSetting]bool

	// UsingStage selects building the mod file index from the manager's
	// staging folders so findings name the owning mod.
	UsingStage bool

	SkipFileSuffixes []string
	SkipDirectories  map[string]bool

	// IgnoredProblems holds exact "Type:relative/path" signatures;
	// IgnorePatterns holds wildcard patterns matched against signatures.
	IgnoredProblems map[string]bool
	IgnorePatterns  []string

	// PathIgnores holds .cmtignore globs matched against Data-relative
	// paths.
	PathIgnores []string
}

// NewSettings assembles scan settings from the persisted configuration
// and the detected mod manager. Mod Organizer hides files by renaming
// them, so its suffixes join the skip list; Vortex backups are always
// skipped.
func NewSettings(cfg config.Settings, manager *modmanager.Manager) Settings {
	settings := Settings{
		Enabled:          make(map[models.ScanSetting]bool, len(models.AllScanSettings())),
		UsingStage:       manager != nil && manager.Name == modmanager.ModOrganizer,
		SkipFileSuffixes: []string{".vortex_backup"},
		SkipDirectories:  make(map[string]bool, len(ignoreFolders)),
		IgnoredProblems:  make(map[string]bool, len(cfg.IgnoredProblems)),
		IgnorePatterns:   cfg.IgnorePatterns,
	}

	for _, stage := range models.AllScanSettings() {
		settings.Enabled[stage] = cfg.ScanEnabled(stage)
	}
	for folder := range ignoreFolders {
		settings.SkipDirectories[folder] = true
	}
	for _, signature := range cfg.IgnoredProblems {
		settings.IgnoredProblems[signature] = true
	}

	if manager != nil {
		settings.SkipFileSuffixes = append(settings.SkipFileSuffixes, manager.SkipFileSuffixes...)
		for _, folder := range manager.SkipDirectories {
			settings.SkipDirectories[strings.ToLower(folder)] = true
		}
	}

	return settings
}

// LoadPathIgnores reads the .cmtignore file and installs its patterns.
// The file lives in the manager's staging root when staging is used,
// else in Data. Extra patterns are appended.
func (s *Settings) LoadPathIgnores(fs afero.Fs, g *game.Game, extra ...string) error {
	root := g.DataPath
	if s.UsingStage && g.Manager != nil && g.Manager.StagePath() != "" {
		root = g.Manager.StagePath()
	}
	patterns, err := cmtignore.ListPatterns(fs, root, extra...)
	if err != nil {
		return err
	}
	s.PathIgnores = patterns
	return nil
}

// StageEnabled reports whether a scan stage is switched on.
func (s Settings) StageEnabled(stage models.ScanSetting) bool {
	return s.Enabled[stage]
}

// SkipDataScan reports whether no enabled stage needs the Data folder
// walk. Overview merging and race subgraph counting read other sources.
func (s Settings) SkipDataScan() bool {
	for _, stage := range models.AllScanSettings() {
		if stage == models.ScanOverviewIssues || stage == models.ScanRaceSubgraphs {
			continue
		}
		if s.Enabled[stage] {
			return false
		}
	}
	return true
}

func (s Settings) skipFile(nameLower string) bool {
	for _, suffix := range s.SkipFileSuffixes {
		if strings.HasSuffix(nameLower, suffix) {
			return true
		}
	}
	return false
}

func extensionSet(extensions ...string) map[string]bool {
	set := make(map[string]bool, len(extensions))
	for _, extension := range extensions {
		set[extension] = true
	}
	return set
}
