package scanner

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collective-modding/cm-toolkit/internal/config"
	"github.com/collective-modding/cm-toolkit/internal/models"
	"github.com/collective-modding/cm-toolkit/internal/modmanager"
)

func TestNewSettingsWithModOrganizer(t *testing.T) {
	cfg := config.DefaultSettings()
	cfg.SetScanEnabled(models.ScanJunkFiles, false)
	cfg.IgnoredProblems = []string{"Junk File:mods/thumbs.db"}

	manager := modmanager.New(modmanager.ModOrganizer, "", "2.5.2")
	manager.SkipDirectories = []string{"Downloads"}

	settings := NewSettings(cfg, manager)

	assert.True(t, settings.UsingStage)
	assert.False(t, settings.StageEnabled(models.ScanJunkFiles))
	assert.True(t, settings.StageEnabled(models.ScanOverviewIssues))
	assert.Contains(t, settings.SkipFileSuffixes, ".vortex_backup")
	assert.Contains(t, settings.SkipFileSuffixes, ".mohidden")
	assert.True(t, settings.SkipDirectories["downloads"])
	assert.True(t, settings.SkipDirectories["bodyslide"])
	assert.True(t, settings.IgnoredProblems["Junk File:mods/thumbs.db"])
}

func TestNewSettingsWithoutManager(t *testing.T) {
	settings := NewSettings(config.DefaultSettings(), nil)

	assert.False(t, settings.UsingStage)
	assert.Equal(t, []string{".vortex_backup"}, settings.SkipFileSuffixes)
}

func TestNewSettingsVortexDoesNotStage(t *testing.T) {
	settings := NewSettings(config.DefaultSettings(), modmanager.New(modmanager.Vortex, "", "1.12"))
	assert.False(t, settings.UsingStage)
}

func TestSkipDataScan(t *testing.T) {
	noWalk := stageSettings(models.ScanOverviewIssues, models.ScanRaceSubgraphs)
	assert.True(t, noWalk.SkipDataScan())

	withWalk := stageSettings(models.ScanJunkFiles)
	assert.False(t, withWalk.SkipDataScan())
}

func TestLoadPathIgnoresPrefersTheStagingRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	dataPath := filepath.FromSlash("/games/Fallout 4/Data")
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dataPath, ".cmtignore"), []byte("FromData/*\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, filepath.FromSlash("/mo2/mods/.cmtignore"), []byte("FromStage/*\n"), 0644))

	g := testGame(dataPath)
	g.Manager = modmanager.New(modmanager.ModOrganizer, "", "2.5.2")
	g.Manager.BaseDirectory = filepath.FromSlash("/mo2")

	settings := stageSettings()
	settings.UsingStage = true
	require.NoError(t, settings.LoadPathIgnores(fs, g, "Extra/*"))

	assert.Contains(t, settings.PathIgnores, "FromStage/*")
	assert.Contains(t, settings.PathIgnores, "Extra/*")
	assert.NotContains(t, settings.PathIgnores, "FromData/*")
}

func TestLoadPathIgnoresFallsBackToData(t *testing.T) {
	fs := afero.NewMemMapFs()
	dataPath := filepath.FromSlash("/games/Fallout 4/Data")
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dataPath, ".cmtignore"), []byte("FromData/*\n"), 0644))

	settings := stageSettings()
	require.NoError(t, settings.LoadPathIgnores(fs, testGame(dataPath)))

	assert.Contains(t, settings.PathIgnores, "FromData/*")
	assert.Contains(t, settings.PathIgnores, "**/*.mohidden")
}
