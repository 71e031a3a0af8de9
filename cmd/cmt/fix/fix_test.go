package fix

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collective-modding/cm-toolkit/internal/autofix"
	"github.com/collective-modding/cm-toolkit/internal/config"
	"github.com/collective-modding/cm-toolkit/internal/game"
	"github.com/collective-modding/cm-toolkit/internal/logger"
	"github.com/collective-modding/cm-toolkit/internal/models"
	"github.com/collective-modding/cm-toolkit/internal/scanner"
)

const settingsPath = "/cmt/settings.json"

func testCommand() (*cobra.Command, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(&bytes.Buffer{})
	return cmd, out
}

func writeSettings(t *testing.T, fs afero.Fs) {
	t.Helper()
	cfg := config.DefaultSettings()
	for _, stage := range models.AllScanSettings() {
		cfg.SetScanEnabled(stage, stage == models.ScanJunkFiles)
	}
	require.NoError(t, config.SaveSettings(fs, config.NewMetadata(settingsPath), cfg))
}

func junkedGame(t *testing.T, fs afero.Fs) *game.Game {
	t.Helper()
	dataPath := filepath.FromSlash("/games/Fallout 4/Data")
	require.NoError(t, fs.MkdirAll(filepath.Join(dataPath, "Meshes"), 0755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dataPath, "Meshes", "Thumbs.db"), []byte("t"), 0644))
	return &game.Game{
		DataPath:        dataPath,
		BA2Suffixes:     []string{"main", "textures"},
		ArchivesEnabled: map[string]bool{},
	}
}

func testDeps(fs afero.Fs, out *bytes.Buffer, g *game.Game) fixDeps {
	return fixDeps{
		fs:        fs,
		logger:    logger.New(out, out, false, false),
		engineLog: logger.NopEngineLog(),
		newGame:   func(afero.Fs, string) (*game.Game, error) { return g, nil },
		overview: func(context.Context, afero.Fs, *game.Game) ([]*models.ProblemInfo, error) {
			return nil, nil
		},
		run:      defaultRun,
		newFixer: autofix.New,
	}
}

func TestFixCommandMetadata(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	cmd := Command()
	assert.Equal(t, "fix", cmd.Use)
	assert.Equal(t, "cmd.fix.short", cmd.Short)

	yes := cmd.Flags().Lookup("yes")
	require.NotNil(t, yes)
	assert.Equal(t, "y", yes.Shorthand)
}

func TestRunFixDeletesJunkWithYes(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	fs := afero.NewMemMapFs()
	writeSettings(t, fs)
	g := junkedGame(t, fs)

	cmd, out := testCommand()
	payload, err := runFix(context.Background(), cmd, fixOptions{SettingsPath: settingsPath, Yes: true}, testDeps(fs, out, g))

	require.NoError(t, err)
	assert.True(t, payload.Success)
	assert.Equal(t, 1, payload.Extra["problems_found"])
	assert.Equal(t, 1, payload.Extra["fixable"])
	assert.Equal(t, 1, payload.Extra["fixed"])
	assert.Equal(t, 0, payload.Extra["failed"])
	assert.Contains(t, out.String(), "cmd.fix.result")
	assert.Contains(t, out.String(), "cmd.fix.summary")
	assert.NotContains(t, out.String(), "cmd.fix.confirm")

	exists, err := afero.Exists(fs, filepath.Join(g.DataPath, "Meshes", "Thumbs.db"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunFixAsksBeforeTouchingFiles(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	fs := afero.NewMemMapFs()
	writeSettings(t, fs)
	g := junkedGame(t, fs)

	cmd, out := testCommand()
	cmd.SetIn(strings.NewReader("n\n"))

	payload, err := runFix(context.Background(), cmd, fixOptions{SettingsPath: settingsPath}, testDeps(fs, out, g))

	require.NoError(t, err)
	assert.True(t, payload.Success)
	assert.Equal(t, 0, payload.Extra["fixed"])
	assert.Contains(t, out.String(), "cmd.fix.candidate")
	assert.Contains(t, out.String(), "cmd.fix.confirm")
	assert.Contains(t, out.String(), "cmd.fix.cancelled")

	exists, err := afero.Exists(fs, filepath.Join(g.DataPath, "Meshes", "Thumbs.db"))
	require.NoError(t, err)
	assert.True(t, exists, "a declined prompt must leave the files alone")
}

func TestRunFixAcceptsYesAnswer(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	fs := afero.NewMemMapFs()
	writeSettings(t, fs)
	g := junkedGame(t, fs)

	cmd, out := testCommand()
	cmd.SetIn(strings.NewReader("y\n"))

	payload, err := runFix(context.Background(), cmd, fixOptions{SettingsPath: settingsPath}, testDeps(fs, out, g))

	require.NoError(t, err)
	assert.Equal(t, 1, payload.Extra["fixed"])

	exists, err := afero.Exists(fs, filepath.Join(g.DataPath, "Meshes", "Thumbs.db"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunFixReportsNothingToDo(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	fs := afero.NewMemMapFs()
	writeSettings(t, fs)
	dataPath := filepath.FromSlash("/games/Fallout 4/Data")
	require.NoError(t, fs.MkdirAll(filepath.Join(dataPath, "Meshes"), 0755))
	g := &game.Game{
		DataPath:        dataPath,
		BA2Suffixes:     []string{"main"},
		ArchivesEnabled: map[string]bool{},
	}

	cmd, out := testCommand()
	payload, err := runFix(context.Background(), cmd, fixOptions{SettingsPath: settingsPath, Yes: true}, testDeps(fs, out, g))

	require.NoError(t, err)
	assert.True(t, payload.Success)
	assert.Equal(t, 0, payload.Extra["fixable"])
	assert.Contains(t, out.String(), "cmd.fix.nothing")
}

func TestRunFixFailsWhenNoGameIsFound(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	fs := afero.NewMemMapFs()
	writeSettings(t, fs)

	cmd, out := testCommand()
	deps := testDeps(fs, out, nil)
	deps.newGame = func(afero.Fs, string) (*game.Game, error) { return nil, game.ErrGameNotFound }

	payload, err := runFix(context.Background(), cmd, fixOptions{SettingsPath: settingsPath}, deps)

	require.ErrorIs(t, err, game.ErrGameNotFound)
	assert.False(t, payload.Success)
	assert.Equal(t, 1, payload.ExitCode)
	assert.Contains(t, out.String(), "cmd.fix.game_not_found")
}

func TestRunFixReportsFailedFixes(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	fs := afero.NewMemMapFs()
	writeSettings(t, fs)
	g := &game.Game{
		DataPath:        filepath.FromSlash("/games/Fallout 4/Data"),
		BA2Suffixes:     []string{"main"},
		ArchivesEnabled: map[string]bool{},
	}

	cmd, out := testCommand()
	deps := testDeps(fs, out, g)
	deps.run = func(context.Context, afero.Fs, *game.Game, scanner.Settings, []*models.ProblemInfo, *logger.EngineLog) <-chan scanner.Event {
		events := make(chan scanner.Event, 2)
		events <- scanner.ProblemsFound{Problems: []*models.ProblemInfo{
			models.NewProblemInfo(models.JunkFile, filepath.FromSlash("/games/Fallout 4/Data/gone.tmp"),
				"gone.tmp", "", "junk", models.DeleteFile),
		}}
		events <- scanner.Done{}
		close(events)
		return events
	}

	payload, err := runFix(context.Background(), cmd, fixOptions{SettingsPath: settingsPath, Yes: true}, deps)

	require.ErrorIs(t, err, errFixesFailed)
	assert.False(t, payload.Success)
	assert.Equal(t, 1, payload.ExitCode)
	assert.Equal(t, 1, payload.Extra["failed"])
	assert.Contains(t, out.String(), "cmd.fix.summary")
}
