package game

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collective-modding/cm-toolkit/internal/globalerrors"
	"github.com/collective-modding/cm-toolkit/internal/modmanager"
)

type seams struct {
	manager   *modmanager.Manager
	registry  string
	documents string
	appData   string
	cwd       string
}

func stubSeams(t *testing.T, stub seams) {
	t.Helper()

	previousDetect := detectManager
	previousRegistry := gamePathFromRegistry
	previousDocuments := documentsDir
	previousAppData := localAppDataDir
	previousCwd := workingDir
	t.Cleanup(func() {
		detectManager = previousDetect
		gamePathFromRegistry = previousRegistry
		documentsDir = previousDocuments
		localAppDataDir = previousAppData
		workingDir = previousCwd
	})

	detectManager = func(afero.Fs) *modmanager.Manager { return stub.manager }
	gamePathFromRegistry = func() string { return stub.registry }
	documentsDir = func() (string, error) { return stub.documents, nil }
	localAppDataDir = func() (string, error) { return stub.appData, nil }
	workingDir = func() (string, error) { return stub.cwd, nil }
}

func writeFile(t *testing.T, fs afero.Fs, path string, content []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, content, 0o644))
}

func makeInstall(t *testing.T, fs afero.Fs, root string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(root+"/Data", 0o755))
	writeFile(t, fs, root+"/Fallout4.exe", []byte("exe"))
}

func makeDocuments(t *testing.T, fs afero.Fs, docs string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(docs+"/My Games/Fallout4", 0o755))
}

func TestNew_TrustsManagerGamePath(t *testing.T) {
	fs := afero.NewMemMapFs()
	makeDocuments(t, fs, "/users/cm/Documents")

	manager := modmanager.New(modmanager.Vortex, "/apps/Vortex/Vortex.exe", "1.9.0")
	manager.GamePath = "/staging/fo4"
	stubSeams(t, seams{manager: manager, documents: "/users/cm/Documents", cwd: "/"})

	game, err := New(fs, "")

	require.NoError(t, err)
	assert.Equal(t, "/staging/fo4", game.GamePath)
	assert.Same(t, manager, game.Manager)
	assert.Empty(t, game.DataPath)
}

func TestNew_LoadsModOrganizerInstance(t *testing.T) {
	fs := afero.NewMemMapFs()
	makeInstall(t, fs, "/games/fo4")
	makeDocuments(t, fs, "/users/cm/Documents")
	writeFile(t, fs, "/mo2/portable.txt", nil)
	writeFile(t, fs, "/mo2/ModOrganizer.ini", []byte(
		"[General]\n"+
			"gameName=Fallout 4\n"+
			"selected_profile=@ByteArray(Default)\n"+
			"gamePath=@ByteArray(/games/fo4)\n"))

	manager := modmanager.New(modmanager.ModOrganizer, "/mo2/ModOrganizer.exe", "2.5.2")
	stubSeams(t, seams{manager: manager, documents: "/users/cm/Documents", cwd: "/"})

	game, err := New(fs, "")

	require.NoError(t, err)
	assert.Equal(t, "/games/fo4", game.GamePath)
	assert.Equal(t, "/games/fo4/Data", game.DataPath)
	assert.Equal(t, "Default", game.Manager.SelectedProfile)
}

func TestNew_ManagerWithoutPathFallsThrough(t *testing.T) {
	fs := afero.NewMemMapFs()
	makeInstall(t, fs, "/games/fo4")
	makeDocuments(t, fs, "/users/cm/Documents")

	manager := modmanager.New(modmanager.Vortex, "/apps/Vortex/Vortex.exe", "")
	stubSeams(t, seams{manager: manager, documents: "/users/cm/Documents", cwd: "/games/fo4"})

	game, err := New(fs, "")

	require.NoError(t, err)
	assert.Equal(t, "/games/fo4", game.GamePath)
}

func TestNew_FallsBackToWorkingDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	makeInstall(t, fs, "/games/fo4")
	makeDocuments(t, fs, "/users/cm/Documents")
	stubSeams(t, seams{documents: "/users/cm/Documents", cwd: "/games/fo4"})

	game, err := New(fs, "")

	require.NoError(t, err)
	assert.Equal(t, "/games/fo4", game.GamePath)
	assert.Nil(t, game.Manager)
}

func TestNew_UsesRegistryPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	makeInstall(t, fs, "/games/steam-fo4")
	makeDocuments(t, fs, "/users/cm/Documents")
	stubSeams(t, seams{documents: "/users/cm/Documents", cwd: "/", registry: "/games/steam-fo4"})

	game, err := New(fs, "")

	require.NoError(t, err)
	assert.Equal(t, "/games/steam-fo4", game.GamePath)
}

func TestNew_UsesExplicitPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	makeInstall(t, fs, "/games/gog-fo4")
	makeDocuments(t, fs, "/users/cm/Documents")
	stubSeams(t, seams{documents: "/users/cm/Documents", cwd: "/"})

	game, err := New(fs, "/games/gog-fo4")

	require.NoError(t, err)
	assert.Equal(t, "/games/gog-fo4", game.GamePath)
}

func TestNew_ExplicitPathMayBeTheExecutable(t *testing.T) {
	fs := afero.NewMemMapFs()
	makeInstall(t, fs, "/games/fo4")
	makeDocuments(t, fs, "/users/cm/Documents")
	stubSeams(t, seams{documents: "/users/cm/Documents", cwd: "/"})

	game, err := New(fs, "/games/fo4/Fallout4.exe")

	require.NoError(t, err)
	assert.Equal(t, "/games/fo4", game.GamePath)
}

func TestNew_RejectsDirectoryWithoutGame(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/games/skyrim", 0o755))
	stubSeams(t, seams{cwd: "/"})

	_, err := New(fs, "/games/skyrim")

	require.ErrorIs(t, err, ErrGameNotFound)
	assert.ErrorContains(t, err, "/games/skyrim")
}

func TestNew_NoInstallFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	stubSeams(t, seams{cwd: "/"})

	_, err := New(fs, "")

	require.ErrorIs(t, err, ErrGameNotFound)
}

func TestNew_RequiresDocumentsDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	makeInstall(t, fs, "/games/fo4")
	stubSeams(t, seams{documents: "/users/cm/Documents", cwd: "/games/fo4"})

	_, err := New(fs, "")

	var notFound *globalerrors.FileNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "/users/cm/Documents", notFound.Path)
}

func TestNew_ReadsLanguageAndArchiveSuffixes(t *testing.T) {
	fs := afero.NewMemMapFs()
	makeInstall(t, fs, "/games/fo4")
	makeDocuments(t, fs, "/users/cm/Documents")
	writeFile(t, fs, "/users/cm/Documents/My Games/Fallout4/Fallout4.ini", []byte(
		"[General]\nsLanguage=DE\n"))
	stubSeams(t, seams{documents: "/users/cm/Documents", cwd: "/games/fo4"})

	game, err := New(fs, "")

	require.NoError(t, err)
	assert.Equal(t, "de", game.Language.String())
	assert.Equal(t, []string{"main", "textures", "voices_en", "voices_de"}, game.BA2Suffixes)
}

func TestNew_DefaultsToEnglish(t *testing.T) {
	fs := afero.NewMemMapFs()
	makeInstall(t, fs, "/games/fo4")
	makeDocuments(t, fs, "/users/cm/Documents")
	stubSeams(t, seams{documents: "/users/cm/Documents", cwd: "/games/fo4"})

	game, err := New(fs, "")

	require.NoError(t, err)
	assert.Equal(t, "en", game.Language.String())
	assert.Equal(t, []string{"main", "textures", "voices_en"}, game.BA2Suffixes)
}

func TestSetGamePath_DerivesDataAndF4SEPaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/games/bare", 0o755))
	require.NoError(t, fs.MkdirAll("/games/plain/Data", 0o755))
	require.NoError(t, fs.MkdirAll("/games/scripted/Data/F4SE/Plugins", 0o755))

	tests := []struct {
		name     string
		root     string
		dataPath string
		f4sePath string
	}{
		{"no data folder", "/games/bare", "", ""},
		{"data without f4se", "/games/plain", "/games/plain/Data", ""},
		{"data with f4se plugins", "/games/scripted", "/games/scripted/Data", "/games/scripted/Data/F4SE/Plugins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game := &Game{}
			game.SetGamePath(fs, tt.root)

			assert.Equal(t, tt.root, game.GamePath)
			assert.Equal(t, tt.dataPath, game.DataPath)
			assert.Equal(t, tt.f4sePath, game.F4SEPath)
		})
	}
}

func TestIsFO4Dir(t *testing.T) {
	fs := afero.NewMemMapFs()
	makeInstall(t, fs, "/games/fo4")
	require.NoError(t, fs.MkdirAll("/games/other", 0o755))

	assert.True(t, IsFO4Dir(fs, "/games/fo4"))
	assert.False(t, IsFO4Dir(fs, "/games/other"))
	assert.False(t, IsFO4Dir(fs, "/games/fo4/Fallout4.exe"))
	assert.False(t, IsFO4Dir(fs, "/games/missing"))
}

func TestLimitWarning(t *testing.T) {
	assert.False(t, LimitWarning(241, MaxModulesFull))
	assert.True(t, LimitWarning(242, MaxModulesFull))
	assert.True(t, LimitWarning(MaxModulesFull, MaxModulesFull))
	assert.False(t, LimitWarning(0, MaxArchivesGNRL))
}
