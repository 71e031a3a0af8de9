package modmanager

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collective-modding/cm-toolkit/internal/globalerrors"
)

const mo2ExePath = "/modding/MO2/ModOrganizer.exe"

func stubCurrentInstance(t *testing.T, value string) {
	t.Helper()
	original := currentInstance
	currentInstance = func() string { return value }
	t.Cleanup(func() { currentInstance = original })
}

func writeINI(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

const portableINI = `[General]
gameName=Fallout 4
selected_profile=@ByteArray(Default)
gamePath=@ByteArray(C:/Games/Fallout 4)

[Settings]
base_directory=C:/Modding/MO2-Fallout4

[customExecutables]
1\binary=C:/Modding/xEdit/FO4Edit64.exe
1\title=FO4Edit
2\binary=C:/Modding/xEdit/Edit Scripts/Complex Sorter.bat
2\title=Complex Sorter [FO4]
size=2
`

func TestReadINI_ParsesInstanceSettings(t *testing.T) {
	fs := afero.NewMemMapFs()
	iniPath := filepath.Dir(mo2ExePath) + "/ModOrganizer.ini"
	writeINI(t, fs, iniPath, portableINI)

	manager := New(ModOrganizer, mo2ExePath, "2.5.2")
	require.NoError(t, manager.ReadINI(fs, iniPath))

	assert.Equal(t, "Default", manager.SelectedProfile)
	assert.Equal(t, "C:/Games/Fallout 4", manager.GamePath)
	assert.Equal(t, "C:/Modding/MO2-Fallout4", manager.BaseDirectory)
	assert.Equal(t, filepath.Join("C:/Modding/MO2-Fallout4", "mods"), manager.StagePath())
	assert.Equal(t, filepath.Join("C:/Modding/MO2-Fallout4", "profiles"), manager.ProfilesPath())
	assert.Equal(t, filepath.Join("C:/Modding/MO2-Fallout4", "overwrite"), manager.OverwritePath())
	assert.Equal(t, filepath.Join("C:/Modding/MO2-Fallout4", "profiles", "Default", "modlist.txt"), manager.ModlistPath())
	assert.Equal(t, []string{filepath.Clean("C:/Modding/xEdit/Edit Scripts/Complex Sorter.bat")}, manager.Executables[ToolComplexSorter])
}

func TestReadINI_RejectsOtherGames(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeINI(t, fs, "/mo2/ModOrganizer.ini", "[General]\ngameName=Skyrim Special Edition\n")

	manager := New(ModOrganizer, "/mo2/ModOrganizer.exe", "")
	err := manager.ReadINI(fs, "/mo2/ModOrganizer.ini")

	assert.ErrorIs(t, err, ErrUnsupportedGame)
}

func TestReadINI_RequiresProfile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeINI(t, fs, "/mo2/ModOrganizer.ini", "gameName=Fallout 4\nselected_profile=\n")

	manager := New(ModOrganizer, "/mo2/ModOrganizer.exe", "")
	err := manager.ReadINI(fs, "/mo2/ModOrganizer.ini")

	assert.ErrorIs(t, err, ErrProfileNotSet)
}

func TestReadINI_RequiresGamePath(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeINI(t, fs, "/mo2/ModOrganizer.ini", "gameName=Fallout 4\nselected_profile=Default\ngamePath=@ByteArray()\n")

	manager := New(ModOrganizer, "/mo2/ModOrganizer.exe", "")
	err := manager.ReadINI(fs, "/mo2/ModOrganizer.ini")

	assert.ErrorIs(t, err, ErrGamePathNotSet)
}

func TestReadINI_FirstHitWins(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "gameName=Fallout 4\nselected_profile=First\nselected_profile=Second\ngamePath=C:/Games/Fallout 4\n"
	writeINI(t, fs, "/mo2/ModOrganizer.ini", content)

	manager := New(ModOrganizer, "/mo2/ModOrganizer.exe", "")
	require.NoError(t, manager.ReadINI(fs, "/mo2/ModOrganizer.ini"))

	assert.Equal(t, "First", manager.SelectedProfile)
}

func TestReadINI_HandlesWindowsLineEndings(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "gameName=Fallout 4\r\nselected_profile=Default\r\ngamePath=C:/Games/Fallout 4\r\n"
	writeINI(t, fs, "/mo2/ModOrganizer.ini", content)

	manager := New(ModOrganizer, "/mo2/ModOrganizer.exe", "")
	require.NoError(t, manager.ReadINI(fs, "/mo2/ModOrganizer.ini"))

	assert.Equal(t, "Default", manager.SelectedProfile)
	assert.Equal(t, "C:/Games/Fallout 4", manager.GamePath)
}

func TestReadINI_EmptyBaseDirectoryFallsBackToExeDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "gameName=Fallout 4\nselected_profile=Default\ngamePath=C:/Games/Fallout 4\nbase_directory=\n"
	writeINI(t, fs, "/mo2/ModOrganizer.ini", content)

	manager := New(ModOrganizer, "/mo2/ModOrganizer.exe", "")
	require.NoError(t, manager.ReadINI(fs, "/mo2/ModOrganizer.ini"))

	assert.Equal(t, filepath.Dir("/mo2/ModOrganizer.exe"), manager.BaseDirectory)
}

func TestReadINI_MissingBaseDirectoryFallsBackToINIDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "gameName=Fallout 4\nselected_profile=Default\ngamePath=C:/Games/Fallout 4\n"
	iniPath := "/users/test/AppData/Local/ModOrganizer/ModOrganizer.ini"
	writeINI(t, fs, iniPath, content)

	manager := New(ModOrganizer, "/mo2/ModOrganizer.exe", "")
	require.NoError(t, manager.ReadINI(fs, iniPath))

	assert.Equal(t, filepath.Dir(iniPath), manager.BaseDirectory)
}

func TestReadINI_IgnoresUnregisteredTools(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "gameName=Fallout 4\nselected_profile=Default\ngamePath=C:/Games/Fallout 4\n" +
		"[customExecutables]\n1\\binary=C:/Modding/xEdit/FO4Edit64.exe\n1\\title=FO4Edit\nsize=1\n"
	writeINI(t, fs, "/mo2/ModOrganizer.ini", content)

	manager := New(ModOrganizer, "/mo2/ModOrganizer.exe", "")
	require.NoError(t, manager.ReadINI(fs, "/mo2/ModOrganizer.ini"))

	assert.Empty(t, manager.Executables[ToolComplexSorter])
}

func TestReadINI_MissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	manager := New(ModOrganizer, "/mo2/ModOrganizer.exe", "")
	err := manager.ReadINI(fs, "/mo2/ModOrganizer.ini")

	assert.Error(t, err)
}

func TestLoadInstanceINI_ReadsPortableInstall(t *testing.T) {
	stubCurrentInstance(t, "")
	fs := afero.NewMemMapFs()
	exeDir := filepath.Dir(mo2ExePath)
	writeINI(t, fs, filepath.Join(exeDir, "portable.txt"), "")
	writeINI(t, fs, filepath.Join(exeDir, "ModOrganizer.ini"), portableINI)

	manager := New(ModOrganizer, mo2ExePath, "2.5.2")
	require.NoError(t, manager.LoadInstanceINI(fs))

	assert.Equal(t, "Default", manager.SelectedProfile)
	assert.Equal(t, "C:/Games/Fallout 4", manager.GamePath)
}

func TestLoadInstanceINI_PortableMarkerRequiresINI(t *testing.T) {
	stubCurrentInstance(t, "")
	fs := afero.NewMemMapFs()
	exeDir := filepath.Dir(mo2ExePath)
	writeINI(t, fs, filepath.Join(exeDir, "portable.txt"), "")

	manager := New(ModOrganizer, mo2ExePath, "2.5.2")
	err := manager.LoadInstanceINI(fs)

	var notFound *globalerrors.FileNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, filepath.Join(exeDir, "ModOrganizer.ini"), notFound.Path)
}

func TestLoadInstanceINI_ReadsRegistryInstance(t *testing.T) {
	stubCurrentInstance(t, "Fallout 4")
	appData := filepath.FromSlash("/users/test/AppData/Local")
	t.Setenv("LOCALAPPDATA", appData)

	fs := afero.NewMemMapFs()
	writeINI(t, fs, filepath.Join(appData, "ModOrganizer", "ModOrganizer.ini"), portableINI)

	manager := New(ModOrganizer, mo2ExePath, "2.5.2")
	require.NoError(t, manager.LoadInstanceINI(fs))

	assert.Equal(t, "C:/Games/Fallout 4", manager.GamePath)
	assert.Equal(t, "C:/Modding/MO2-Fallout4", manager.BaseDirectory)
}

func TestLoadInstanceINI_FallsBackToPortableINI(t *testing.T) {
	stubCurrentInstance(t, "")
	fs := afero.NewMemMapFs()
	exeDir := filepath.Dir(mo2ExePath)
	writeINI(t, fs, filepath.Join(exeDir, "ModOrganizer.ini"), portableINI)

	manager := New(ModOrganizer, mo2ExePath, "2.5.2")
	require.NoError(t, manager.LoadInstanceINI(fs))

	assert.Equal(t, "C:/Games/Fallout 4", manager.GamePath)
}

func TestLoadInstanceINI_MissingEverywhere(t *testing.T) {
	stubCurrentInstance(t, "")
	fs := afero.NewMemMapFs()

	manager := New(ModOrganizer, mo2ExePath, "2.5.2")
	err := manager.LoadInstanceINI(fs)

	var notFound *globalerrors.FileNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, filepath.Join(filepath.Dir(mo2ExePath), "ModOrganizer.ini"), notFound.Path)
}
