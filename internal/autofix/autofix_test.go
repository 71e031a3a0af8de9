package autofix

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collective-modding/cm-toolkit/internal/models"
)

func sorterProblem(path string) *models.ProblemInfo {
	return models.NewProblemInfo(
		models.ComplexSorter, path, filepath.Base(path), "Complex Sorter",
		"outdated field", models.ComplexSorterFix,
	)
}

func TestSorterFixRewritesOutdatedFields(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.FromSlash("/Tools/Complex Sorter/rules.ini")
	original := "; keep \"Addon Index\" here\r\n" +
		"rule=FindNode OBTS(FindNode \"Addon Index\") x\r\n" +
		"\r\n\r\n" +
		"other=FindNode OBTS(FindNode 'Addon Index')\r\n"
	require.NoError(t, afero.WriteFile(fs, path, []byte(original), 0644))

	problem := sorterProblem(path)
	result := New(fs, nil).Apply(problem)

	require.True(t, result.Success)
	assert.Equal(t, "All references to \"Addon Index\" updated to \"Parent Combination Index\".\n"+
		"INI Lines Fixed: 2", result.Details)
	assert.Equal(t, []string{path}, result.FilesAffected)
	assert.Equal(t, path+".bak", result.BackupCreated)
	assert.Same(t, result, problem.AutofixResult)

	rewritten, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "; keep \"Addon Index\" here\n"+
		"rule=FindNode OBTS(FindNode \"Parent Combination Index\") x\n"+
		"\n"+
		"other=FindNode OBTS(FindNode 'Parent Combination Index')\n", string(rewritten))

	backup, err := afero.ReadFile(fs, path+".bak")
	require.NoError(t, err)
	assert.Equal(t, original, string(backup))
}

func TestSorterFixKeepsUTF16Encoding(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.FromSlash("/Tools/Complex Sorter/rules.ini")
	text := "rule=FindNode OBTS(FindNode \"Addon Index\")\n"
	data := []byte{0xFF, 0xFE}
	for _, r := range text {
		data = append(data, byte(r), 0x00)
	}
	require.NoError(t, afero.WriteFile(fs, path, data, 0644))

	result := New(fs, nil).Apply(sorterProblem(path))
	require.True(t, result.Success)

	rewritten, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFE}, rewritten[:2])
}

func TestSorterFixReportsNothingToDo(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.FromSlash("/Tools/Complex Sorter/rules.ini")
	content := "rule=FindNode OBTS(FindNode \"Parent Combination Index\")\n"
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))

	result := New(fs, nil).Apply(sorterProblem(path))

	require.True(t, result.Success)
	assert.Equal(t, "No fixes were needed.", result.Details)
	assert.Empty(t, result.BackupCreated)

	unchanged, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, content, string(unchanged))
}

func TestSorterFixReportsMissingFile(t *testing.T) {
	path := filepath.FromSlash("/Tools/Complex Sorter/rules.ini")
	result := New(afero.NewMemMapFs(), nil).Apply(sorterProblem(path))

	assert.False(t, result.Success)
	assert.Equal(t, "File Not Found: "+path, result.Details)
}

func TestSorterFixPicksFreeBackupName(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.FromSlash("/Tools/Complex Sorter/rules.ini")
	require.NoError(t, afero.WriteFile(fs, path, []byte("rule=FindNode OBTS(FindNode \"Addon Index\")\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, path+".bak", []byte("old backup"), 0644))

	result := New(fs, nil).Apply(sorterProblem(path))

	require.True(t, result.Success)
	assert.Equal(t, path+".bak1", result.BackupCreated)

	untouched, err := afero.ReadFile(fs, path+".bak")
	require.NoError(t, err)
	assert.Equal(t, "old backup", string(untouched))
}

func TestDeleteFileFix(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.FromSlash("/games/Fallout 4/Data/Thumbs.db")
	require.NoError(t, afero.WriteFile(fs, path, []byte("x"), 0644))

	problem := models.NewProblemInfo(models.JunkFile, path, "Thumbs.db", "", "junk", models.DeleteFile)
	result := New(fs, nil).Apply(problem)

	require.True(t, result.Success)
	assert.Equal(t, "Deleted junk file: Thumbs.db", result.Details)
	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteFileFixCoversScannerJunkSolution(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.FromSlash("/games/Fallout 4/Data/desktop.ini")
	require.NoError(t, afero.WriteFile(fs, path, []byte("x"), 0644))

	// The data walk suggests "delete or ignore" for junk; the fix is the
	// delete half.
	problem := models.NewProblemInfo(models.JunkFile, path, "desktop.ini", "", "junk", models.DeleteOrIgnoreFile)
	fixer := New(fs, nil)

	require.True(t, fixer.Fixable(problem))
	result := fixer.Apply(problem)

	require.True(t, result.Success)
	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteFileFixRejectsDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.FromSlash("/games/Fallout 4/Data/Fomod")
	require.NoError(t, fs.MkdirAll(path, 0755))

	problem := models.NewProblemInfo(models.JunkFile, path, "Fomod", "", "junk", models.DeleteFile)
	result := New(fs, nil).Apply(problem)

	assert.False(t, result.Success)
	assert.Equal(t, "Path is not a file: "+path, result.Details)
}

func TestRenameArchiveFix(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.FromSlash("/games/Fallout 4/Data/MyMod - Main.zip")
	require.NoError(t, afero.WriteFile(fs, path, []byte("x"), 0644))

	problem := models.NewProblemInfo(models.InvalidArchiveName, path, "MyMod - Main.zip", "", "bad name", models.RenameArchive)
	result := New(fs, nil).Apply(problem)

	require.True(t, result.Success)
	assert.Equal(t, "Renamed to: MyMod - Main.ba2", result.Details)

	renamed, err := afero.Exists(fs, filepath.FromSlash("/games/Fallout 4/Data/MyMod - Main.ba2"))
	require.NoError(t, err)
	assert.True(t, renamed)
}

func TestRenameArchiveFixRefusesExistingTarget(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.FromSlash("/games/Fallout 4/Data/MyMod.ba2")
	require.NoError(t, afero.WriteFile(fs, path, []byte("x"), 0644))

	// A .ba2 source resolves to itself, so the collision check refuses it.
	problem := models.NewProblemInfo(models.InvalidArchiveName, path, "MyMod.ba2", "", "bad name", models.RenameArchive)
	result := New(fs, nil).Apply(problem)

	assert.False(t, result.Success)
	assert.Equal(t, "Cannot rename: MyMod.ba2 already exists", result.Details)
}

func TestDeleteListedFilesFix(t *testing.T) {
	fs := afero.NewMemMapFs()
	keep := filepath.FromSlash("/games/Fallout 4/Data/Vis/keep")
	first := filepath.FromSlash("/games/Fallout 4/Data/Vis/a.uvd")
	second := filepath.FromSlash("/games/Fallout 4/Data/Vis/b.uvd")
	require.NoError(t, fs.MkdirAll(keep, 0755))
	require.NoError(t, afero.WriteFile(fs, first, []byte("x"), 0644))
	require.NoError(t, afero.WriteFile(fs, second, []byte("x"), 0644))

	problem := models.NewProblemInfo(models.LoosePrevis, "", "Vis", "", "loose", models.ArchiveOrDeleteFile)
	problem.FileList = []models.FileListEntry{
		{Label: "1", Path: first},
		{Label: "2", Path: second},
		{Label: "3", Path: filepath.FromSlash("/games/Fallout 4/Data/Vis/missing.uvd")},
		{Label: "4", Path: keep},
	}

	result := New(fs, nil).Apply(problem)

	require.True(t, result.Success)
	assert.Equal(t, "Successfully deleted 2 loose previs files", result.Details)
	assert.Equal(t, []string{first, second}, result.FilesAffected)
}

func TestDeleteListedFilesFixCollectsFailures(t *testing.T) {
	base := afero.NewMemMapFs()
	path := filepath.FromSlash("/games/Fallout 4/Data/Vis/a.uvd")
	require.NoError(t, afero.WriteFile(base, path, []byte("x"), 0644))

	problem := models.NewProblemInfo(models.LoosePrevis, "", "Vis", "", "loose", models.ArchiveOrDeleteFile)
	problem.FileList = []models.FileListEntry{{Label: "1", Path: path}}

	result := New(afero.NewReadOnlyFs(base), nil).Apply(problem)

	assert.False(t, result.Success)
	assert.Equal(t, "Deleted 0 files, failed to delete 1 files", result.Details)
}

func TestDeleteListedFilesFixNeedsAList(t *testing.T) {
	problem := models.NewProblemInfo(models.LoosePrevis, "", "Vis", "", "loose", models.ArchiveOrDeleteFile)
	result := New(afero.NewMemMapFs(), nil).Apply(problem)

	assert.False(t, result.Success)
	assert.Equal(t, "No file list provided", result.Details)
}

func TestAnimTextDataFixRenamesMisspelledFolder(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.FromSlash("/games/Fallout 4/Data/Meshes/AnimationTextData")
	require.NoError(t, afero.WriteFile(fs, filepath.Join(path, "run.txt"), []byte("x"), 0644))

	problem := models.NewProblemInfo(
		models.AnimTextDataFolder, path, "Meshes/AnimationTextData", "",
		"unpacked", models.ArchiveOrDeleteFolder,
	)
	result := New(fs, nil).Apply(problem)

	require.True(t, result.Success)
	assert.Equal(t, "Renamed folder to: AnimTextData", result.Details)

	renamed, err := afero.DirExists(fs, filepath.FromSlash("/games/Fallout 4/Data/Meshes/AnimTextData"))
	require.NoError(t, err)
	assert.True(t, renamed)
}

func TestAnimTextDataFixLeavesCorrectNamesAlone(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.FromSlash("/games/Fallout 4/Data/Meshes/AnimTextData")
	require.NoError(t, fs.MkdirAll(path, 0755))

	problem := models.NewProblemInfo(
		models.AnimTextDataFolder, path, "Meshes/AnimTextData", "",
		"unpacked", models.ArchiveOrDeleteFolder,
	)
	result := New(fs, nil).Apply(problem)

	assert.False(t, result.Success)
	assert.Equal(t, "Folder name doesn't match expected pattern", result.Details)
}

func TestApplyRejectsUnknownSolutions(t *testing.T) {
	fixer := New(afero.NewMemMapFs(), nil)
	problem := models.NewProblemInfo(models.WrongVersion, "/x", "x", "", "old", models.DownloadMod)

	assert.False(t, fixer.Fixable(problem))
	result := fixer.Apply(problem)
	assert.False(t, result.Success)
	assert.Equal(t, "No auto-fix available for this solution.", result.Details)
	assert.Same(t, result, problem.AutofixResult)
}

func TestApplyAllReportsProgressAndStopsOnCancel(t *testing.T) {
	fs := afero.NewMemMapFs()
	var problems []*models.ProblemInfo
	for _, name := range []string{"a.db", "b.db", "c.db"} {
		path := filepath.FromSlash("/games/Fallout 4/Data/" + name)
		require.NoError(t, afero.WriteFile(fs, path, []byte("x"), 0644))
		problems = append(problems, models.NewProblemInfo(models.JunkFile, path, name, "", "junk", models.DeleteFile))
	}

	ctx, cancel := context.WithCancel(context.Background())
	var seen []int
	results := New(fs, nil).ApplyAll(ctx, problems, func(index, total int, path string) {
		seen = append(seen, index)
		assert.Equal(t, 3, total)
		if index == 1 {
			cancel()
		}
	})

	assert.Equal(t, []int{0, 1}, seen)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)

	remaining, err := afero.Exists(fs, filepath.FromSlash("/games/Fallout 4/Data/c.db"))
	require.NoError(t, err)
	assert.True(t, remaining, "the cancelled batch must not touch later entries")
}
