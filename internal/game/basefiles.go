package game

import (
	"path/filepath"

	"github.com/collective-modding/cm-toolkit/internal/models"
)

// Limits the game engine enforces on enabled content.
const (
	MaxModulesFull  = 254
	MaxModulesLight = 4096
	MaxArchivesGNRL = 255
)

// NGStartupBA2CRC is the CRC32, past the header, of the Next-Gen
// "Fallout4 - Startup.ba2". Old-Gen binaries alongside this archive mean
// a Down-Grade install.
const NGStartupBA2CRC = "A5808F5F"

const addressLibraryURL = "https://www.nexusmods.com/fallout4/mods/47327"

// BaseFile describes one game binary whose version or hash identifies
// the installed generation.
type BaseFile struct {
	Name string
	// UseHash switches identification from the version resource to CRC32.
	UseHash bool
	// UseHashFallback retries with CRC32 when no version resource exists.
	UseHashFallback bool
	// OnlyOG marks files the Next-Gen update removed.
	OnlyOG   bool
	Versions map[string]models.InstallType
}

// BaseFiles lists the binaries the overview checks, named relative to the
// install root.
func BaseFiles() []BaseFile {
	return []BaseFile{
		{Name: "Fallout4.exe", Versions: map[string]models.InstallType{
			"1.10.163.0": models.OG,
			"1.10.980.0": models.NG,
			"1.10.984.0": models.NG,
		}},
		{Name: "Fallout4Launcher.exe", UseHash: true, Versions: map[string]models.InstallType{
			"02445570": models.OG,
			"F6A06FF5": models.NG,
		}},
		{Name: "steam_api64.dll", Versions: map[string]models.InstallType{
			"2.89.45.4":  models.OG,
			"7.40.51.27": models.NG,
		}},
		{Name: "f4se_loader.exe", Versions: map[string]models.InstallType{
			"0.0.6.23": models.OG,
			"0.0.7.2":  models.NG,
		}},
		{Name: "f4se_steam_loader.dll", OnlyOG: true, Versions: map[string]models.InstallType{
			"0.0.6.23": models.OG,
		}},
		{Name: "CreationKit.exe", Versions: map[string]models.InstallType{
			"1.10.162.0": models.OG,
			"1.10.982.3": models.NG,
		}},
		{Name: filepath.Join("Tools", "Archive2", "Archive2.exe"), Versions: map[string]models.InstallType{
			"1.1.0.4": models.OG,
			"1.1.0.5": models.NG,
		}},
	}
}

// GameMasters lists the base game and DLC master modules in load order.
func GameMasters() []string {
	return []string{
		"Fallout4.esm",
		"Fallout4_VR.esm",
		"DLCRobot.esm",
		"DLCworkshop01.esm",
		"DLCworkshop02.esm",
		"DLCworkshop03.esm",
		"DLCCoast.esm",
		"DLCNukaWorld.esm",
		"DLCUltraHighResolution.esm",
	}
}

// LimitWarning reports whether count has reached 95% of limit.
func LimitWarning(count, limit int) bool {
	return count*100 >= limit*95
}
