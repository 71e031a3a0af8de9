package scanner

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/globalerrors"
	"github.com/collective-modding/cm-toolkit/internal/modmanager"
)

// Owner names the staged mod a Data entry comes from.
type Owner struct {
	Mod  string
	Path string
}

// ModFiles indexes the staging tree so findings in Data can be attributed
// to the mod providing each entry. Keys are Data-relative paths in
// lowercase slash form; Modules and Archives are keyed by file name.
type ModFiles struct {
	Folders  map[string]Owner
	Files    map[string]Owner
	Modules  map[string]Owner
	Archives map[string]Owner
}

func NewModFiles() *ModFiles {
	return &ModFiles{
		Folders:  make(map[string]Owner),
		Files:    make(map[string]Owner),
		Modules:  make(map[string]Owner),
		Archives: make(map[string]Owner),
	}
}

func (m *ModFiles) folderOwner(relative string) (Owner, bool) {
	owner, ok := m.Folders[indexKey(relative)]
	return owner, ok
}

func (m *ModFiles) fileOwner(relative string) (Owner, bool) {
	owner, ok := m.Files[indexKey(relative)]
	return owner, ok
}

// indexKey normalizes a Data-relative path the way the game resolves it:
// case-insensitively, separator-agnostic.
func indexKey(relative string) string {
	return strings.ToLower(filepath.ToSlash(relative))
}

// buildModIndex walks the enabled staging folders in load order, later
// mods overwriting earlier ones, the overwrite folder last. The index
// stays empty when no Mod Organizer instance is driving the scan.
func (s *Scanner) buildModIndex(ctx context.Context) (*ModFiles, error) {
	modFiles := NewModFiles()

	manager := s.game.Manager
	if !s.settings.UsingStage || manager == nil || manager.Name != modmanager.ModOrganizer {
		return modFiles, nil
	}

	stagePaths, err := s.stagePaths(ctx)
	if err != nil {
		return nil, err
	}

	for _, modPath := range stagePaths {
		modName := filepath.Base(modPath)
		err := walkTree(ctx, s.fs, modPath, func(dir string, folders *[]string, files []string) error {
			s.pruneSkippedFolders(folders)

			rootRelative := ""
			if dir != modPath {
				relative, err := filepath.Rel(modPath, dir)
				if err != nil {
					return nil
				}
				rootRelative = relative
				modFiles.Folders[indexKey(rootRelative)] = Owner{Mod: modName, Path: dir}
			}

			for _, file := range files {
				fileLower := strings.ToLower(file)
				if s.settings.skipFile(fileLower) {
					continue
				}

				fullPath := filepath.Join(dir, file)
				modFiles.Files[indexKey(filepath.Join(rootRelative, file))] = Owner{Mod: modName, Path: fullPath}

				if rootRelative == "" {
					switch {
					case strings.HasSuffix(fileLower, ".esp"),
						strings.HasSuffix(fileLower, ".esl"),
						strings.HasSuffix(fileLower, ".esm"):
						modFiles.Modules[fileLower] = Owner{Mod: modName, Path: fullPath}
					case strings.HasSuffix(fileLower, ".ba2"):
						modFiles.Archives[fileLower] = Owner{Mod: modName, Path: fullPath}
					}
				}
			}
			s.filesScanned += len(files)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return modFiles, nil
}

// stagePaths resolves the enabled mod folders from the selected profile's
// modlist.txt. The list is stored in reverse load order, so reversing it
// makes later entries win index conflicts.
func (s *Scanner) stagePaths(ctx context.Context) ([]string, error) {
	manager := s.game.Manager
	modlistPath := manager.ModlistPath()
	if modlistPath == "" {
		return nil, errors.New("missing Mod Organizer instance settings")
	}

	content, err := afero.ReadFile(s.fs, modlistPath)
	if err != nil {
		return nil, &globalerrors.FileNotFoundError{Path: modlistPath}
	}

	lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
	stagePath := manager.StagePath()
	var paths []string

	for i := len(lines) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := lines[i]
		if !strings.HasPrefix(line, "+") {
			continue
		}
		modPath := filepath.Join(stagePath, line[1:])
		if ok, err := afero.DirExists(s.fs, modPath); err == nil && ok {
			paths = append(paths, modPath)
		}
	}

	if ok, err := afero.DirExists(s.fs, manager.OverwritePath()); err == nil && ok {
		paths = append(paths, manager.OverwritePath())
	}

	return paths, nil
}

// pruneSkippedFolders removes skip-list folders in place so the walk
// never descends into them.
func (s *Scanner) pruneSkippedFolders(folders *[]string) {
	kept := (*folders)[:0]
	for _, folder := range *folders {
		if !s.settings.SkipDirectories[strings.ToLower(folder)] {
			kept = append(kept, folder)
		}
	}
	*folders = kept
}
