package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collective-modding/cm-toolkit/internal/game"
	"github.com/collective-modding/cm-toolkit/internal/models"
)

type scanResult struct {
	stages   []string
	progress []FolderProgress
	batches  [][]*models.ProblemInfo
	problems []*models.ProblemInfo
	done     Done
}

// drainEvents consumes the event channel to exhaustion, checking the
// delivery contract along the way: batches stay within the size limit
// and exactly one Done arrives, last.
func drainEvents(t *testing.T, events <-chan Event) scanResult {
	t.Helper()

	var result scanResult
	doneSeen := false
	for event := range events {
		require.False(t, doneSeen, "no events may follow Done")
		switch typed := event.(type) {
		case StageChanged:
			result.stages = append(result.stages, typed.Stage)
		case FolderProgress:
			result.progress = append(result.progress, typed)
		case ProblemsFound:
			require.NotEmpty(t, typed.Problems)
			require.LessOrEqual(t, len(typed.Problems), batchSize)
			result.batches = append(result.batches, typed.Problems)
			result.problems = append(result.problems, typed.Problems...)
		case Done:
			doneSeen = true
			result.done = typed
		default:
			t.Fatalf("unexpected event type %T", event)
		}
	}
	require.True(t, doneSeen, "the channel must deliver Done before closing")
	return result
}

func stageSettings(stages ...models.ScanSetting) Settings {
	settings := Settings{
		Enabled:         make(map[models.ScanSetting]bool),
		SkipDirectories: map[string]bool{},
	}
	for _, stage := range stages {
		settings.Enabled[stage] = true
	}
	return settings
}

func testGame(dataPath string) *game.Game {
	return &game.Game{
		DataPath:        dataPath,
		BA2Suffixes:     []string{"main", "textures", "voices_en"},
		ArchivesEnabled: map[string]bool{},
	}
}

func junkProblem(relative string) *models.ProblemInfo {
	return models.NewProblemInfo(
		models.JunkFile,
		filepath.Join(filepath.FromSlash("/mods"), filepath.FromSlash(relative)),
		filepath.FromSlash(relative),
		"Some Mod",
		"junk",
		models.DeleteOrIgnoreFile,
	)
}

func TestRunBatchesProblems(t *testing.T) {
	var overview []*models.ProblemInfo
	for i := 0; i < 25; i++ {
		overview = append(overview, junkProblem(fmt.Sprintf("mod/file%02d.tmp", i)))
	}

	scan := New(afero.NewMemMapFs(), testGame(""), stageSettings(models.ScanOverviewIssues), overview, nil)
	result := drainEvents(t, scan.Run(context.Background()))

	require.Len(t, result.batches, 3)
	assert.Len(t, result.batches[0], 10)
	assert.Len(t, result.batches[1], 10)
	assert.Len(t, result.batches[2], 5)
	assert.Equal(t, overview, result.problems)
	assert.Equal(t, 25, result.done.Stats.ProblemsFound)
	assert.NoError(t, result.done.Err)
}

func TestRunDeliversDoneWhenNothingEnabled(t *testing.T) {
	scan := New(afero.NewMemMapFs(), testGame(""), stageSettings(), nil, nil)
	result := drainEvents(t, scan.Run(context.Background()))

	assert.Empty(t, result.stages)
	assert.Empty(t, result.problems)
	assert.Equal(t, Stats{}, result.done.Stats)
	assert.NoError(t, result.done.Err)
}

func TestRunFiltersIgnoredProblems(t *testing.T) {
	overview := []*models.ProblemInfo{
		junkProblem("armor mod/thumbs.db"),
		junkProblem("texture pack/desktop.ini"),
		junkProblem("weapon mod/export.tmp"),
	}

	settings := stageSettings(models.ScanOverviewIssues)
	settings.IgnoredProblems = map[string]bool{"Junk File:armor mod/thumbs.db": true}
	settings.IgnorePatterns = []string{"junk file:texture pack/*"}

	scan := New(afero.NewMemMapFs(), testGame(""), settings, overview, nil)
	result := drainEvents(t, scan.Run(context.Background()))

	require.Len(t, result.problems, 1)
	assert.Equal(t, filepath.FromSlash("weapon mod/export.tmp"), result.problems[0].RelativePath)
	assert.Equal(t, 1, result.done.Stats.ProblemsFound)
}

func TestRunStopsSoonAfterCancel(t *testing.T) {
	fs := afero.NewMemMapFs()
	dataPath := filepath.FromSlash("/games/Fallout 4/Data")
	totalFiles := 0
	for folder := 0; folder < 50; folder++ {
		dir := filepath.Join(dataPath, "Textures", fmt.Sprintf("set%02d", folder))
		require.NoError(t, fs.MkdirAll(dir, 0755))
		for file := 0; file < 40; file++ {
			name := filepath.Join(dir, fmt.Sprintf("tex%02d.dds", file))
			require.NoError(t, afero.WriteFile(fs, name, []byte("x"), 0644))
			totalFiles++
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	scan := New(fs, testGame(dataPath), stageSettings(models.ScanJunkFiles), nil, nil)
	events := scan.Run(ctx)

	var result scanResult
	doneSeen := false
	cancelled := false
	for event := range events {
		switch typed := event.(type) {
		case FolderProgress:
			if !cancelled {
				cancel()
				cancelled = true
			}
		case Done:
			doneSeen = true
			result.done = typed
		default:
		}
	}
	cancel()

	require.True(t, cancelled, "the data walk should report progress before finishing")
	require.True(t, doneSeen)
	assert.ErrorIs(t, result.done.Err, context.Canceled)
	assert.Less(t, result.done.Stats.FilesScanned, totalFiles)
}

func TestRunCountsScannedFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	dataPath := filepath.FromSlash("/games/Fallout 4/Data")
	require.NoError(t, fs.MkdirAll(filepath.Join(dataPath, "Meshes"), 0755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dataPath, "Meshes", "rifle.nif"), []byte("n"), 0644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dataPath, "Meshes", "pistol.nif"), []byte("n"), 0644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dataPath, "Meshes", "Thumbs.db"), []byte("t"), 0644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dataPath, "Meshes", "README"), []byte("r"), 0644))

	scan := New(fs, testGame(dataPath), stageSettings(models.ScanJunkFiles), nil, nil)
	result := drainEvents(t, scan.Run(context.Background()))

	// Junk files and extensionless files are not counted as scanned.
	assert.Equal(t, 2, result.done.Stats.FilesScanned)
	require.Len(t, result.problems, 1)
	assert.Equal(t, models.JunkFile, result.problems[0].Type)
	assert.Equal(t, 1, result.done.Stats.ProblemsFound)
}

func TestRunAnnouncesDataScanStages(t *testing.T) {
	fs := afero.NewMemMapFs()
	dataPath := filepath.FromSlash("/games/Fallout 4/Data")
	require.NoError(t, fs.MkdirAll(filepath.Join(dataPath, "Textures"), 0755))

	scan := New(fs, testGame(dataPath), stageSettings(models.ScanJunkFiles), nil, nil)
	result := drainEvents(t, scan.Run(context.Background()))

	assert.Equal(t, []string{"Building mod file index...", "Scanning data folder..."}, result.stages)
	require.Len(t, result.progress, 1)
	assert.Equal(t, "Textures", result.progress[0].Folder)
	assert.Equal(t, 0, result.progress[0].Index)
	assert.Equal(t, 1, result.progress[0].Total)
}

func TestSignatureUsesSlashes(t *testing.T) {
	problem := junkProblem("mod/sub/file.tmp")
	problem.RelativePath = filepath.FromSlash("mod/sub/file.tmp")
	assert.Equal(t, "Junk File:mod/sub/file.tmp", Signature(problem))
}

func TestWildcardMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		target  string
		want    bool
	}{
		{"exact", "Junk File:a/b.tmp", "Junk File:a/b.tmp", true},
		{"case folded", "junk file:A/B.TMP", "Junk File:a/b.tmp", true},
		{"star spans separators", "Junk File:*", "Junk File:deep/nested/path.tmp", true},
		{"star in middle", "*:textures/*.dds", "Unexpected Format:textures/gun.dds", true},
		{"question mark", "Junk File:file?.tmp", "Junk File:file1.tmp", true},
		{"question mark needs a char", "Junk File:file?.tmp", "Junk File:file.tmp", false},
		{"no partial match", "Junk File:a", "Junk File:a/b.tmp", false},
		{"different type", "Loose Previs:*", "Junk File:a/b.tmp", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, wildcardMatch(test.pattern, test.target))
		})
	}
}
