package ba2

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ba2lib "github.com/collective-modding/cm-toolkit/internal/ba2"
	"github.com/collective-modding/cm-toolkit/internal/game"
	"github.com/collective-modding/cm-toolkit/internal/logger"
	"github.com/collective-modding/cm-toolkit/internal/models"
)

func testCommand() (*cobra.Command, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	return cmd, out
}

func writeArchive(t *testing.T, fs afero.Fs, path string, version uint8) {
	t.Helper()
	data := append([]byte("BTDX"), version, 0, 0, 0)
	data = append(data, []byte("GNRL")...)
	data = append(data, []byte("payload!")...)
	require.NoError(t, afero.WriteFile(fs, path, data, 0644))
}

func readVersionByte(t *testing.T, fs afero.Fs, path string) uint8 {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), ba2lib.HeaderSize)
	return data[4]
}

func patchedGame() *game.Game {
	return &game.Game{
		ArchivesOG: map[string]bool{},
		ArchivesNG: map[string]bool{},
	}
}

func testDeps(fs afero.Fs, out *bytes.Buffer, g *game.Game) ba2Deps {
	return ba2Deps{
		fs:      fs,
		logger:  logger.New(out, out, false, false),
		newGame: func(afero.Fs, string) (*game.Game, error) { return g, nil },
		overview: func(context.Context, afero.Fs, *game.Game) ([]*models.ProblemInfo, error) {
			return nil, nil
		},
		patchAll: ba2lib.PatchAll,
	}
}

func TestBA2CommandMetadata(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	cmd := Command()
	assert.Equal(t, "ba2", cmd.Use)
	assert.Equal(t, "cmd.ba2.short", cmd.Short)
	assert.NotNil(t, cmd.Flags().Lookup("target"))
	assert.NotNil(t, cmd.Flags().Lookup("filter"))
}

func TestRunBA2DowngradesNextGenArchives(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	fs := afero.NewMemMapFs()
	first := filepath.FromSlash("/Data/A - Main.ba2")
	second := filepath.FromSlash("/Data/B - Textures.ba2")
	untouched := filepath.FromSlash("/Data/C - Main.ba2")
	writeArchive(t, fs, first, 8)
	writeArchive(t, fs, second, 7)
	writeArchive(t, fs, untouched, 1)

	g := patchedGame()
	g.ArchivesNG[first] = true
	g.ArchivesNG[second] = true
	g.ArchivesOG[untouched] = true

	cmd, out := testCommand()
	payload, err := runBA2(context.Background(), cmd, ba2Options{Target: "og"}, testDeps(fs, out, g))

	require.NoError(t, err)
	assert.True(t, payload.Success)
	assert.Equal(t, 2, payload.Extra["patched"])
	assert.Equal(t, 0, payload.Extra["failed"])
	assert.Equal(t, "og", payload.Arguments["target"])
	assert.Equal(t, uint8(1), readVersionByte(t, fs, first))
	assert.Equal(t, uint8(1), readVersionByte(t, fs, second))
	assert.Equal(t, uint8(1), readVersionByte(t, fs, untouched))
	assert.Contains(t, out.String(), "cmd.ba2.entry")
	assert.Contains(t, out.String(), "cmd.ba2.summary")
}

func TestRunBA2UpgradesOldGenArchives(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	fs := afero.NewMemMapFs()
	path := filepath.FromSlash("/Data/A - Main.ba2")
	writeArchive(t, fs, path, 1)

	g := patchedGame()
	g.ArchivesOG[path] = true

	cmd, out := testCommand()
	payload, err := runBA2(context.Background(), cmd, ba2Options{Target: "NG"}, testDeps(fs, out, g))

	require.NoError(t, err)
	assert.Equal(t, 1, payload.Extra["patched"])
	assert.Equal(t, "ng", payload.Arguments["target"])
	assert.Equal(t, uint8(8), readVersionByte(t, fs, path))
}

func TestRunBA2FilterSelectsByName(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	fs := afero.NewMemMapFs()
	main := filepath.FromSlash("/Data/A - Main.ba2")
	textures := filepath.FromSlash("/Data/A - Textures.ba2")
	writeArchive(t, fs, main, 8)
	writeArchive(t, fs, textures, 8)

	g := patchedGame()
	g.ArchivesNG[main] = true
	g.ArchivesNG[textures] = true

	cmd, out := testCommand()
	payload, err := runBA2(context.Background(), cmd, ba2Options{Target: "og", Filter: "textures"}, testDeps(fs, out, g))

	require.NoError(t, err)
	assert.Equal(t, 1, payload.Extra["candidates"])
	assert.Equal(t, true, payload.Arguments["filtered"])
	assert.Equal(t, uint8(8), readVersionByte(t, fs, main))
	assert.Equal(t, uint8(1), readVersionByte(t, fs, textures))
}

func TestRunBA2RejectsUnknownTarget(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	cmd, out := testCommand()
	payload, err := runBA2(context.Background(), cmd, ba2Options{Target: "sideways"}, testDeps(afero.NewMemMapFs(), out, patchedGame()))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target version")
	assert.False(t, payload.Success)
	assert.Equal(t, 1, payload.ExitCode)
}

func TestRunBA2ReportsNothingToDo(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	cmd, out := testCommand()
	payload, err := runBA2(context.Background(), cmd, ba2Options{Target: "og"}, testDeps(afero.NewMemMapFs(), out, patchedGame()))

	require.NoError(t, err)
	assert.True(t, payload.Success)
	assert.Equal(t, 0, payload.Extra["candidates"])
	assert.Contains(t, out.String(), "cmd.ba2.nothing")
}

func TestRunBA2CountsFailures(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	fs := afero.NewMemMapFs()
	g := patchedGame()
	g.ArchivesNG[filepath.FromSlash("/Data/Gone - Main.ba2")] = true

	cmd, out := testCommand()
	payload, err := runBA2(context.Background(), cmd, ba2Options{Target: "og"}, testDeps(fs, out, g))

	require.ErrorIs(t, err, errPatchesFailed)
	assert.False(t, payload.Success)
	assert.Equal(t, 1, payload.ExitCode)
	assert.Equal(t, 1, payload.Extra["failed"])
}

func TestRunBA2FailsWhenNoGameIsFound(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	cmd, out := testCommand()
	deps := testDeps(afero.NewMemMapFs(), out, nil)
	deps.newGame = func(afero.Fs, string) (*game.Game, error) { return nil, game.ErrGameNotFound }

	payload, err := runBA2(context.Background(), cmd, ba2Options{Target: "og"}, deps)

	require.ErrorIs(t, err, game.ErrGameNotFound)
	assert.False(t, payload.Success)
	assert.Contains(t, out.String(), "cmd.ba2.game_not_found")
}
