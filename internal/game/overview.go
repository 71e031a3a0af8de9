package game

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/ba2"
	"github.com/collective-modding/cm-toolkit/internal/fileutils"
	"github.com/collective-modding/cm-toolkit/internal/models"
	"github.com/collective-modding/cm-toolkit/internal/peinfo"
	"github.com/collective-modding/cm-toolkit/internal/plugin"
)

// Problems found by the overview itself carry this mod tag, telling them
// apart from findings attributed to a staged mod.
const overviewMod = "OVERVIEW"

const noVersion = "NO VERSION"

// Overview refreshes the binaries, modules, and archives passes in their
// dependency order and returns everything they found.
func (g *Game) Overview(ctx context.Context, fs afero.Fs) ([]*models.ProblemInfo, error) {
	problems, err := g.GetInfoBinaries(ctx, fs)
	if err != nil {
		return nil, err
	}

	moduleProblems, err := g.GetInfoModules(ctx, fs)
	if err != nil {
		return nil, err
	}
	problems = append(problems, moduleProblems...)

	archiveProblems, err := g.GetInfoArchives(ctx, fs)
	if err != nil {
		return nil, err
	}
	return append(problems, archiveProblems...), nil
}

// GetInfoBinaries identifies each base binary by version or hash, sets
// the install type from Fallout4.exe, and checks the files whose presence
// depends on it.
func (g *Game) GetInfoBinaries(ctx context.Context, fs afero.Fs) ([]*models.ProblemInfo, error) {
	g.ResetBinaries()
	var problems []*models.ProblemInfo

	if g.Manager == nil {
		problems = append(problems, models.NewSimpleProblemInfo(
			"cmt",
			"No Mod Manager",
			"No mod manager was detected launching the toolkit.",
			"Launch this app with your mod manager so it sees the same files the game does.",
		))
	}

	for _, base := range BaseFiles() {
		if err := ctx.Err(); err != nil {
			return problems, err
		}

		filePath := filepath.Join(g.GamePath, base.Name)
		name := filepath.Base(filePath)

		if ok, err := isFile(fs, filePath); err != nil || !ok {
			g.FileInfo[name] = models.FileInfo{InstallType: models.NotFound}
			continue
		}

		version := baseFileVersion(ctx, fs, filePath, base)
		installType, known := base.Versions[version]
		if !known {
			installType = models.Unknown
		}
		g.FileInfo[name] = models.FileInfo{Path: filePath, Version: version, InstallType: installType}

		if !strings.EqualFold(name, "Fallout4.exe") {
			continue
		}

		g.InstallType = installType
		if g.InstallType == models.Unknown {
			problems = append(problems, models.NewSimpleProblemInfo(
				name,
				"Unknown Game Version",
				fmt.Sprintf("%s is an unknown version.\nPossible causes:\n"+
					"1. The game is an old version and should be updated.\n"+
					"2. The exe file may be corrupted.\n"+
					"3. The game is a new version and the Toolkit needs to be updated.", version),
				"Either update the game/verify files in Steam, or report this issue.",
			))
		}

		problems = append(problems, g.checkAddressLibrary(fs, version)...)
		problems = append(problems, g.checkStartupArchive(ctx, fs)...)
	}

	return problems, nil
}

// Address Library builds are stamped with the game version they support,
// so the expected file name derives from the running executable.
func (g *Game) checkAddressLibrary(fs afero.Fs, version string) []*models.ProblemInfo {
	if g.DataPath == "" {
		return nil
	}

	name := "version-" + strings.ReplaceAll(version, ".", "-") + ".bin"
	relative := filepath.Join("F4SE", "Plugins", name)
	path := filepath.Join(g.DataPath, relative)

	if ok, err := isFile(fs, path); err == nil && ok {
		g.AddressLibrary = path
		return nil
	}

	problem := models.NewProblemInfo(
		models.FileNotFound,
		path,
		relative,
		"",
		"Address Library is a requirement for many F4SE mods and playing downgraded, and likely needs to be installed.",
		models.DownloadMod,
	)
	problem.ExtraData = []string{addressLibraryURL}
	return []*models.ProblemInfo{problem}
}

func (g *Game) checkStartupArchive(ctx context.Context, fs afero.Fs) []*models.ProblemInfo {
	if g.DataPath == "" || !g.RunsOldGen() {
		return nil
	}

	name := "Fallout4 - Startup.ba2"
	path := filepath.Join(g.DataPath, name)

	if ok, err := isFile(fs, path); err != nil || !ok {
		return []*models.ProblemInfo{models.NewProblemInfo(
			models.FileNotFound,
			path,
			name,
			"",
			"This is a base game file, used to tell Old-Gen apart from Down-Grade.",
			models.VerifyFiles,
		)}
	}

	crc, err := fileutils.CRC32WithOptions(ctx, fs, path, fileutils.HashOptions{SkipHeader: ba2.HeaderSize})
	if err == nil && crc == NGStartupBA2CRC {
		g.InstallType = models.DG
	}
	return nil
}

func baseFileVersion(ctx context.Context, fs afero.Fs, path string, base BaseFile) string {
	if base.UseHash {
		crc, err := fileutils.CRC32(ctx, fs, path)
		if err != nil {
			return noVersion
		}
		return crc
	}

	version, err := peinfo.ReadVersion(fs, path)
	if err != nil || version.IsZero() {
		if base.UseHashFallback {
			if crc, hashErr := fileutils.CRC32(ctx, fs, path); hashErr == nil {
				return crc
			}
		}
		return noVersion
	}
	return version.String()
}

// GetInfoModules builds the enabled module list from the game masters,
// Fallout4.ccc, and plugins.txt, then classifies each module's header.
func (g *Game) GetInfoModules(ctx context.Context, fs afero.Fs) ([]*models.ProblemInfo, error) {
	g.ResetModules()
	var problems []*models.ProblemInfo

	if g.DataPath == "" {
		problems = append(problems, models.NewSimpleProblemInfo(
			"Data",
			models.FileNotFound.String(),
			"The Data folder was not found in your game install path.",
			models.VerifyFiles.String(),
		))
		return problems, nil
	}

	for _, master := range GameMasters() {
		path := filepath.Join(g.DataPath, master)
		if ok, err := afero.Exists(fs, path); err == nil && ok {
			g.ModulesEnabled = append(g.ModulesEnabled, path)
		}
	}

	problems = append(problems, g.readCCList(fs)...)
	problems = append(problems, g.readPluginsList(fs)...)

	for _, modulePath := range g.ModulesEnabled {
		if err := ctx.Err(); err != nil {
			return problems, err
		}
		problems = append(problems, g.classifyModule(fs, modulePath)...)
	}

	return problems, nil
}

// readCCList appends the Creation Club modules listed in Fallout4.ccc.
func (g *Game) readCCList(fs afero.Fs) []*models.ProblemInfo {
	cccPath := filepath.Join(g.GamePath, "Fallout4.ccc")
	content, err := afero.ReadFile(fs, cccPath)
	if err != nil {
		return []*models.ProblemInfo{models.NewSimpleProblemInfo(
			"Fallout4.ccc",
			models.FileNotFound.String(),
			"The CC list file was not found in your game install path.\nThis is used to detect which CC modules/archives may be enabled.",
			models.VerifyFiles.String(),
		)}
	}

	for _, name := range splitLines(string(content)) {
		if name == "" {
			continue
		}
		path := filepath.Join(g.DataPath, name)
		if ok, fileErr := isFile(fs, path); fileErr == nil && ok {
			g.ModulesEnabled = append(g.ModulesEnabled, path)
		}
	}
	return nil
}

// readPluginsList appends the modules enabled in plugins.txt. When the
// list is unreadable every module in Data counts instead, which inflates
// the counts but never understates them.
func (g *Game) readPluginsList(fs afero.Fs) []*models.ProblemInfo {
	var content []byte
	appData, err := localAppDataDir()
	if err == nil {
		content, err = afero.ReadFile(fs, filepath.Join(appData, "Fallout4", "plugins.txt"))
	}

	if err == nil {
		for _, line := range splitLines(string(content)) {
			if !strings.HasPrefix(line, "*") {
				continue
			}
			path := filepath.Join(g.DataPath, line[1:])
			if ok, fileErr := isFile(fs, path); fileErr == nil && ok {
				g.ModulesEnabled = append(g.ModulesEnabled, path)
			}
		}
		return nil
	}

	solution := "Launch this app with your mod manager."
	if g.Manager != nil {
		solution = "N/A"
	}
	problems := []*models.ProblemInfo{models.NewSimpleProblemInfo(
		"plugins.txt",
		models.FileNotFound.String(),
		"plugins.txt was not found.\nThis is used to detect which modules/archives are enabled.",
		solution,
	)}

	already := make(map[string]bool, len(g.ModulesEnabled))
	for _, path := range g.ModulesEnabled {
		already[path] = true
	}
	entries, dirErr := afero.ReadDir(fs, g.DataPath)
	if dirErr != nil {
		return problems
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".esp", ".esl", ".esm":
		default:
			continue
		}
		path := filepath.Join(g.DataPath, entry.Name())
		if !already[path] {
			g.ModulesEnabled = append(g.ModulesEnabled, path)
		}
	}
	return problems
}

func (g *Game) classifyModule(fs afero.Fs, modulePath string) []*models.ProblemInfo {
	name := filepath.Base(modulePath)

	header, err := plugin.ReadHeader(fs, modulePath)
	switch {
	case errors.Is(err, plugin.ErrNotModule):
		g.ModulesUnreadable[modulePath] = true
		return []*models.ProblemInfo{models.NewProblemInfo(
			models.InvalidModule, modulePath, name, overviewMod,
			"Module is either corrupt or not in TES4 format.", "",
		)}
	case errors.Is(err, plugin.ErrNoHeaderRecord):
		g.ModulesUnreadable[modulePath] = true
		return nil
	case err != nil:
		g.ModulesUnreadable[modulePath] = true
		return []*models.ProblemInfo{models.NewProblemInfo(
			models.InvalidModule, modulePath, name, overviewMod,
			"Failed to read module due to permissions or the file is missing.", "",
		)}
	}

	var problems []*models.ProblemInfo
	switch {
	case header.Valid && header.Version == 0.95:
		g.ModulesV95[modulePath] = true
	case header.Valid:
		g.CountV1++
	default:
		g.ModulesUnknown[modulePath] = header.Version
		rendered := plugin.FormatVersion(header.Version)
		hint := ""
		if games := plugin.SupportedGames(header.Version); len(games) > 0 {
			hint = fmt.Sprintf("\nGames supporting v%s: %s", rendered, strings.Join(games, ", "))
		}
		problems = append(problems, models.NewProblemInfo(
			models.InvalidModule, modulePath, name, overviewMod,
			fmt.Sprintf("Module version (%s) is not valid for Fallout 4.%s", rendered, hint),
			models.SolutionType("It may be possible to open/resave this file with Creation Kit to update its format for Fallout 4.\n"+
				"You should compare the original and resaved files with xEdit to verify no undesired changes were made."),
		))
	}

	if header.Light(name) {
		g.CountLight++
	} else {
		g.CountFull++
	}
	return problems
}

// GetInfoArchives builds the enabled archive set from the INI lists, the
// module-adjacent BA2 names, and Nvflex, then classifies each header.
func (g *Game) GetInfoArchives(ctx context.Context, fs afero.Fs) ([]*models.ProblemInfo, error) {
	g.ResetArchives()
	if g.DataPath == "" {
		// Reported by the modules pass.
		return nil, nil
	}

	var problems []*models.ProblemInfo

	// The game ships on case-insensitive filesystems; resolve probe names
	// against one Data listing so lookups behave the same everywhere.
	dataNames := make(map[string]string)
	if entries, err := afero.ReadDir(fs, g.DataPath); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				dataNames[strings.ToLower(entry.Name())] = entry.Name()
			}
		}
	}
	resolve := func(name string) (string, bool) {
		if actual, ok := dataNames[strings.ToLower(name)]; ok {
			return filepath.Join(g.DataPath, actual), true
		}
		path := filepath.Join(g.DataPath, name)
		ok, err := isFile(fs, path)
		return path, err == nil && ok
	}

	iniNames, err := g.INIs.ArchiveLists()
	if err != nil {
		return nil, err
	}
	for _, name := range iniNames {
		if path, ok := resolve(name); ok {
			g.ArchivesEnabled[path] = true
		}
	}

	for _, modulePath := range g.ModulesEnabled {
		base := filepath.Base(modulePath)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		for _, suffix := range g.BA2Suffixes {
			if path, ok := resolve(stem + " - " + suffix + ".ba2"); ok {
				g.ArchivesEnabled[path] = true
			}
		}
	}

	if g.INIs.NVFlexEnabled() {
		if path, ok := resolve("Fallout4 - Nvflex.ba2"); ok {
			g.ArchivesEnabled[path] = true
		} else {
			problems = append(problems, models.NewSimpleProblemInfo(
				"Fallout4 - Nvflex.ba2",
				models.FileNotFound.String(),
				"Nvidia Flex is enabled in your game INIs (bNVFlexEnable=1) but the Nvflex BA2 is missing.",
				models.VerifyFiles.String(),
			))
		}
	}

	paths := make([]string, 0, len(g.ArchivesEnabled))
	for path := range g.ArchivesEnabled {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return problems, err
		}
		problems = append(problems, g.classifyArchive(fs, path)...)
	}

	return problems, nil
}

func (g *Game) classifyArchive(fs afero.Fs, path string) []*models.ProblemInfo {
	name := filepath.Base(path)

	header, err := ba2.ReadHeader(fs, path)
	if err != nil {
		g.ArchivesUnreadable[path] = true

		summary := "Failed to read archive due to permissions or the file is missing."
		var versionErr *ba2.VersionError
		var formatErr *ba2.FormatError
		switch {
		case errors.Is(err, ba2.ErrNotArchive):
			summary = "Archive is either corrupt or not in Bethesda Archive 2 format."
		case errors.As(err, &versionErr):
			summary = fmt.Sprintf("Archive version (%d) is not valid for Fallout 4.", versionErr.Version)
		case errors.As(err, &formatErr):
			summary = fmt.Sprintf("Archive format (%s) is not valid for Fallout 4.", formatErr.Format)
		}

		return []*models.ProblemInfo{models.NewProblemInfo(
			models.InvalidArchive, path, name, overviewMod, summary, "",
		)}
	}

	switch header.Format {
	case models.GNRL:
		g.CountGNRL++
	case models.DX10:
		g.CountDX10++
	}

	if header.Version == models.ArchiveVersionOG {
		g.ArchivesOG[path] = true
	} else {
		g.ArchivesNG[path] = true
	}
	return nil
}

func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
