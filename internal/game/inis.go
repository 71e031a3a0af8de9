package game

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/ini.v1"

	"github.com/collective-modding/cm-toolkit/internal/globalerrors"
	"github.com/collective-modding/cm-toolkit/internal/models"
)

// ErrNoArchiveSection reports game INIs without an [Archive] section,
// which the archive pass needs to know what the game loads.
var ErrNoArchiveSection = errors.New("archive section missing from the game INIs")

// The archive lists the game reads from [Archive], in load order.
var settingsArchiveLists = []string{
	"sresourceindexfilelist",
	"sresourcestartuparchivelist",
	"sresourcearchivelist",
	"sresourcearchivelist2",
}

// INIs holds the merged game configuration: Fallout4.ini with
// Fallout4Custom.ini layered over it, and Fallout4Prefs.ini on its own.
// Section and key lookups are case-insensitive.
type INIs struct {
	settings *ini.File
	prefs    *ini.File
}

// LoadINIs parses the game INIs under iniDir. Missing files are fine;
// Fallout4Custom.ini overrides Fallout4.ini where both set a key.
func LoadINIs(fs afero.Fs, iniDir string) (*INIs, error) {
	options := ini.LoadOptions{
		Insensitive:             true,
		SkipUnrecognizableLines: true,
	}

	settings, err := loadMerged(fs, options,
		filepath.Join(iniDir, "Fallout4.ini"),
		filepath.Join(iniDir, "Fallout4Custom.ini"),
	)
	if err != nil {
		return nil, err
	}

	prefs, err := loadMerged(fs, options, filepath.Join(iniDir, "Fallout4Prefs.ini"))
	if err != nil {
		return nil, err
	}

	return &INIs{settings: settings, prefs: prefs}, nil
}

func loadMerged(fs afero.Fs, options ini.LoadOptions, paths ...string) (*ini.File, error) {
	sources := make([]interface{}, 0, len(paths))
	for _, path := range paths {
		content, err := afero.ReadFile(fs, path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		sources = append(sources, content)
	}

	if len(sources) == 0 {
		return ini.Empty(options), nil
	}
	return ini.LoadSources(options, sources[0], sources[1:]...)
}

// Setting returns a merged settings value, or fallback when the section
// or key is absent.
func (n *INIs) Setting(section, key, fallback string) string {
	return lookupKey(n.settings, section, key, fallback)
}

// Pref returns a Fallout4Prefs.ini value, or fallback when absent.
func (n *INIs) Pref(section, key, fallback string) string {
	return lookupKey(n.prefs, section, key, fallback)
}

// NVFlexEnabled reports whether the prefs enable Nvidia Flex, which pulls
// in an extra BA2.
func (n *INIs) NVFlexEnabled() bool {
	return n.Pref("nvflex", "bnvflexenable", "0") == "1"
}

// ArchiveLists returns the archive names the game INIs enable, in list
// order. The [Archive] section is required.
func (n *INIs) ArchiveLists() ([]string, error) {
	section, err := n.settings.GetSection("archive")
	if err != nil {
		return nil, ErrNoArchiveSection
	}

	var names []string
	for _, list := range settingsArchiveLists {
		if !section.HasKey(list) {
			continue
		}
		for _, name := range strings.Split(section.Key(list).String(), ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// loadINIs reads the game INIs from Documents/My Games/Fallout4 and
// derives the voice language and BA2 suffix whitelist.
func (g *Game) loadINIs(fs afero.Fs) error {
	docs, err := documentsDir()
	if err != nil {
		return err
	}
	if !isDir(fs, docs) {
		return &globalerrors.FileNotFoundError{Path: docs}
	}

	inis, err := LoadINIs(fs, filepath.Join(docs, "My Games", "Fallout4"))
	if err != nil {
		return err
	}
	g.INIs = inis

	g.Language = models.ParseLanguage(strings.ToLower(inis.Setting("general", "slanguage", "en")))
	g.BA2Suffixes = []string{"main", "textures", "voices_en"}
	if g.Language != models.LanguageEnglish {
		g.BA2Suffixes = append(g.BA2Suffixes, "voices_"+g.Language.String())
	}
	return nil
}

func lookupKey(file *ini.File, section, key, fallback string) string {
	sec, err := file.GetSection(section)
	if err != nil {
		return fallback
	}
	if !sec.HasKey(key) {
		return fallback
	}
	return sec.Key(key).String()
}
