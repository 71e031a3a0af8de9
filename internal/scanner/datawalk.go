package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/cmtignore"
	"github.com/collective-modding/cm-toolkit/internal/dds"
	"github.com/collective-modding/cm-toolkit/internal/fileutils"
	"github.com/collective-modding/cm-toolkit/internal/models"
)

const loosePrevisSummary = "Loose previs files should be archived so they only win conflicts " +
	"according to their plugin's load order.\nLoose previs files are also not supported by PJM's Previs Scripts."

const animTextDataSummary = "The existence of unpacked AnimTextData may cause the game to crash."

const f4seOverrideSummary = "This is an override of an F4SE script. This could break F4SE " +
	"if they aren't the same version or this mod isn't intended to override F4SE files."

const f4seOverrideSolution = "Check if this mod is supposed to override F4SE Scripts.\n" +
	"If this is a script extender/library or requires one, this is likely intentional " +
	"but it must support your game version explicitly.\nOtherwise, this mod or file may need to be deleted."

// Base-game archives are exempt from the plugin-suffix naming rule.
var archiveNameWhitelist = map[string]bool{
	"fallout4 - animations":  true,
	"fallout4 - interface":   true,
	"fallout4 - materials":   true,
	"fallout4 - meshes":      true,
	"fallout4 - meshesextra": true,
	"fallout4 - misc":        true,
	"fallout4 - nvflex":      true,
	"fallout4 - shaders":     true,
	"fallout4 - sounds":      true,
	"fallout4 - startup":     true,
	"fallout4 - textures1":   true,
	"fallout4 - textures2":   true,
	"fallout4 - textures3":   true,
	"fallout4 - textures4":   true,
	"fallout4 - textures5":   true,
	"fallout4 - textures6":   true,
	"fallout4 - textures7":   true,
	"fallout4 - textures8":   true,
	"fallout4 - textures9":   true,
	"fallout4 - voices":      true,
}

// Script names F4SE deploys into Data/Scripts. A managed mod overriding
// one of these gets flagged.
var f4seScripts = map[string]bool{
	"actor.pex": true, "actorbase.pex": true, "actorvalueinfo.pex": true,
	"armor.pex": true, "armoraddon.pex": true, "book.pex": true,
	"cell.pex": true, "component.pex": true, "constructibleobject.pex": true,
	"defaultobject.pex": true, "encounterzone.pex": true, "equipslot.pex": true,
	"f4se.pex": true, "favoritesmanager.pex": true, "form.pex": true,
	"game.pex": true, "headpart.pex": true, "input.pex": true,
	"instancedata.pex": true, "location.pex": true, "math.pex": true,
	"matswap.pex": true, "miscobject.pex": true, "objectmod.pex": true,
	"objectreference.pex": true, "perk.pex": true, "scriptobject.pex": true,
	"ui.pex": true, "utility.pex": true, "watertype.pex": true,
	"weapon.pex": true,
}

// scanDataFolder walks Data top-down. Top-level folders gate what their
// subtrees are checked for; folders outside the whitelist are skipped
// entirely.
func (s *Scanner) scanDataFolder(ctx context.Context, messages chan<- Event, modFiles *ModFiles) error {
	dataPath := s.game.DataPath
	if dataPath == "" {
		return nil
	}

	messages <- StageChanged{Stage: "Scanning data folder..."}

	return walkTree(ctx, s.fs, dataPath, func(dir string, folders *[]string, files []string) error {
		relative := ""
		if dir != dataPath {
			rel, err := filepath.Rel(dataPath, dir)
			if err != nil {
				return nil
			}
			relative = rel
		}

		segments := pathSegments(relative)
		depth := len(segments)
		dataRoot := ""
		if depth > 0 {
			dataRoot = strings.ToLower(segments[0])
		}

		owner, known := modFiles.folderOwner(relative)
		if !known {
			owner = Owner{Path: dir}
		}

		if depth == 0 {
			s.foldersTotal = len(*folders)
			for i, folder := range *folders {
				s.folderIndex[strings.ToLower(folder)] = i
			}
		}

		if depth == 1 {
			folderName := filepath.Base(dir)
			messages <- FolderProgress{
				Folder: folderName,
				Index:  s.folderIndex[strings.ToLower(folderName)],
				Total:  s.foldersTotal,
			}

			if s.settings.StageEnabled(models.ScanJunkFiles) && dataRoot == "fomod" {
				messages <- problemFound{problem: models.NewProblemInfo(
					models.JunkFile,
					owner.Path,
					relative,
					owner.Mod,
					"This is a junk folder not used by the game or mod managers.",
					models.DeleteOrIgnoreFolder,
				)}
				*folders = (*folders)[:0]
				return nil
			}

			if _, whitelisted := dataWhitelist[dataRoot]; !whitelisted {
				*folders = (*folders)[:0]
				return nil
			}

			if s.settings.StageEnabled(models.ScanLoosePrevis) && dataRoot == "vis" {
				messages <- problemFound{problem: models.NewProblemInfo(
					models.LoosePrevis,
					owner.Path,
					relative,
					owner.Mod,
					loosePrevisSummary,
					models.ArchiveOrDeleteFolder,
				)}
				*folders = (*folders)[:0]
				return nil
			}
		}

		if err := s.checkFolders(ctx, messages, folders, dir, relative, dataRoot, modFiles); err != nil {
			return err
		}
		return s.checkFiles(ctx, messages, files, dir, relative, depth, dataRoot, modFiles)
	})
}

// checkFolders prunes skip-list folders and, under meshes, flags loose
// precombined geometry and unpacked AnimTextData. Flagged folders are
// pruned so their contents are not reported twice.
func (s *Scanner) checkFolders(
	ctx context.Context,
	messages chan<- Event,
	folders *[]string,
	dir string,
	relative string,
	dataRoot string,
	modFiles *ModFiles,
) error {
	kept := (*folders)[:0]
	for _, folder := range *folders {
		if err := ctx.Err(); err != nil {
			return err
		}

		folderLower := strings.ToLower(folder)
		if s.settings.SkipDirectories[folderLower] {
			continue
		}
		if s.pathIgnored(filepath.Join(dir, folder)) {
			continue
		}

		if dataRoot == "meshes" {
			folderRelative := filepath.Join(relative, folder)
			owner, known := modFiles.folderOwner(folderRelative)
			if !known {
				owner = Owner{Path: filepath.Join(dir, folder)}
			}

			if s.settings.StageEnabled(models.ScanLoosePrevis) && folderLower == "precombined" {
				messages <- problemFound{problem: models.NewProblemInfo(
					models.LoosePrevis,
					owner.Path,
					folderRelative,
					owner.Mod,
					loosePrevisSummary,
					models.ArchiveOrDeleteFolder,
				)}
				continue
			}

			if s.settings.StageEnabled(models.ScanProblemOverrides) && folderLower == "animtextdata" {
				messages <- problemFound{problem: models.NewProblemInfo(
					models.AnimTextDataFolder,
					owner.Path,
					folderRelative,
					owner.Mod,
					animTextDataSummary,
					models.ArchiveOrDeleteFolder,
				)}
				continue
			}
		}

		kept = append(kept, folder)
	}
	*folders = kept
	return nil
}

func (s *Scanner) checkFiles(
	ctx context.Context,
	messages chan<- Event,
	files []string,
	dir string,
	relative string,
	depth int,
	dataRoot string,
	modFiles *ModFiles,
) error {
	whitelist := dataWhitelist[dataRoot]
	dirKey := indexKey(relative)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		fileLower := strings.ToLower(file)
		if s.settings.skipFile(fileLower) {
			continue
		}

		fullPath := filepath.Join(dir, file)
		fileRelative := filepath.Join(relative, file)
		if s.pathIgnored(fullPath) {
			continue
		}

		owner, known := modFiles.fileOwner(fileRelative)
		if !known {
			owner = Owner{Path: fullPath}
		}

		if s.settings.StageEnabled(models.ScanJunkFiles) && isJunkFile(fileLower) {
			messages <- problemFound{problem: models.NewProblemInfo(
				models.JunkFile,
				owner.Path,
				fileRelative,
				owner.Mod,
				"This is a junk file not used by the game or mod managers.",
				models.DeleteOrIgnoreFile,
			)}
			continue
		}

		// F4SE deploys its scripts directly in Data/Scripts, so only a
		// managed override at that exact level is suspect.
		if dataRoot == "scripts" && depth == 1 && owner.Mod != "" &&
			s.settings.StageEnabled(models.ScanProblemOverrides) && f4seScripts[fileLower] {
			messages <- problemFound{problem: models.NewProblemInfo(
				models.F4SEOverride,
				owner.Path,
				fileRelative,
				owner.Mod,
				f4seOverrideSummary,
				models.SolutionType(f4seOverrideSolution),
			)}
			continue
		}

		dot := strings.LastIndex(fileLower, ".")
		if dot < 0 {
			continue
		}
		base, extension := fileLower[:dot], fileLower[dot+1:]

		if s.settings.StageEnabled(models.ScanErrors) && dataRoot == "complex sorter" && extension == "ini" {
			s.checkDataSorterINI(messages, fullPath, fileRelative, owner)
		}

		if s.settings.StageEnabled(models.ScanWrongFormat) {
			s.checkFileFormat(messages, fileFormatCheck{
				base:      base,
				extension: extension,
				fullPath:  fullPath,
				relative:  fileRelative,
				owner:     owner,
				dataRoot:  dataRoot,
				whitelist: whitelist,
				dirKey:    dirKey,
			})
		}

		s.filesScanned++
	}
	return nil
}

func (s *Scanner) checkDataSorterINI(messages chan<- Event, fullPath string, relative string, owner Owner) {
	text, err := fileutils.ReadTextFile(s.fs, fullPath)
	if err != nil {
		return
	}
	if !usesOutdatedSorterField(text) {
		return
	}
	messages <- problemFound{problem: models.NewProblemInfo(
		models.ComplexSorter,
		owner.Path,
		relative,
		owner.Mod,
		outdatedSorterSummary,
		models.ComplexSorterFix,
	)}
}

type fileFormatCheck struct {
	base      string
	extension string
	fullPath  string
	relative  string
	owner     Owner
	dataRoot  string
	whitelist map[string]bool
	dirKey    string
}

// checkFileFormat flags extensions the game will not load from their
// location, DLLs outside F4SE/Plugins, unparseable DDS textures, and
// archives whose names break the plugin-suffix rule.
func (s *Scanner) checkFileFormat(messages chan<- Event, check fileFormatCheck) {
	badExtension := check.whitelist != nil && !check.whitelist[check.extension]
	misplacedDLL := check.extension == "dll" && check.dirKey != "f4se/plugins"

	if badExtension || misplacedDLL {
		summary, solution := s.wrongFormatSummary(check)
		messages <- problemFound{problem: models.NewProblemInfo(
			models.UnexpectedFormat,
			check.owner.Path,
			check.relative,
			check.owner.Mod,
			summary,
			solution,
		)}
		return
	}

	if check.extension == "dds" {
		if _, err := dds.ReadInfo(s.fs, check.fullPath); err != nil {
			messages <- problemFound{problem: models.NewProblemInfo(
				models.UnexpectedFormat,
				check.owner.Path,
				check.relative,
				check.owner.Mod,
				"This texture's DDS header could not be parsed. The game may crash trying to load it.",
				models.DeleteOrIgnoreFile,
			)}
			return
		}
	}

	if check.extension == "ba2" && !archiveNameWhitelist[check.base] && !s.game.ArchivesEnabled[check.fullPath] {
		s.checkArchiveName(messages, check)
	}
}

func (s *Scanner) wrongFormatSummary(check fileFormatCheck) (string, models.SolutionType) {
	proper, convertible := properFormats[check.extension]
	if !convertible {
		summary := fmt.Sprintf("Format not in whitelist for %s.\n"+
			"Unable to determine whether the game will use this file.", check.dataRoot)
		return summary, models.UnknownFormat
	}

	var found []string
	for _, properExtension := range proper {
		sibling := strings.TrimSuffix(check.fullPath, filepath.Ext(check.fullPath)) + "." + properExtension
		if ok, err := afero.Exists(s.fs, sibling); err == nil && ok {
			found = append(found, filepath.Base(sibling))
		}
	}

	if len(found) > 0 {
		summary := fmt.Sprintf("Format not in whitelist for %s.\n"+
			"A file with the expected format was found (%s).", check.dataRoot, strings.Join(found, ", "))
		return summary, models.DeleteOrIgnoreFile
	}

	summary := fmt.Sprintf("Format not in whitelist for %s.\n"+
		"A file with the expected format was NOT found (%s).", check.dataRoot, strings.Join(proper, ", "))
	return summary, models.ConvertDeleteOrIgnoreFile
}

// checkArchiveName enforces the `<plugin> - <suffix>.ba2` rule for
// archives the base game does not ship and no module enables.
func (s *Scanner) checkArchiveName(messages chan<- Event, check fileFormatCheck) {
	namePart := check.base
	if separator := strings.LastIndex(check.base, " - "); separator >= 0 {
		namePart = check.base[:separator]
		suffixPart := check.base[separator+len(" - "):]
		if validSuffix(suffixPart, s.game.BA2Suffixes) {
			return
		}
	}

	problem := models.NewProblemInfo(
		models.InvalidArchiveName,
		check.owner.Path,
		check.relative,
		check.owner.Mod,
		"This is not a valid archive name and won't be loaded by the game.",
		models.RenameArchive,
	)
	problem.ExtraData = []string{
		fmt.Sprintf("\nValid Suffixes: %s", strings.Join(s.game.BA2Suffixes, ", ")),
		fmt.Sprintf("Example: %s - Main.ba2", namePart),
	}
	messages <- problemFound{problem: problem}
}

func validSuffix(suffix string, suffixes []string) bool {
	for _, valid := range suffixes {
		if suffix == valid {
			return true
		}
	}
	return false
}

func isJunkFile(fileLower string) bool {
	if junkFiles[fileLower] {
		return true
	}
	for _, suffix := range junkFileSuffixes {
		if strings.HasSuffix(fileLower, suffix) {
			return true
		}
	}
	return false
}

func (s *Scanner) pathIgnored(fullPath string) bool {
	if len(s.settings.PathIgnores) == 0 {
		return false
	}
	return cmtignore.IsIgnored(s.game.DataPath, fullPath, s.settings.PathIgnores)
}

func pathSegments(relative string) []string {
	if relative == "" || relative == "." {
		return nil
	}
	return strings.Split(filepath.ToSlash(relative), "/")
}
