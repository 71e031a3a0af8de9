// Package f4se inspects F4SE script extender plugins.
package f4se

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/models"
	"github.com/collective-modding/cm-toolkit/internal/peinfo"
)

// Entry points the script extender looks up when loading a plugin.
// Query is the Old-Gen protocol, Version the Next-Gen one.
const (
	exportLoad    = "F4SEPlugin_Load"
	exportQuery   = "F4SEPlugin_Query"
	exportVersion = "F4SEPlugin_Version"
)

// ParseDLL reports which entry points the DLL at path exports. Files
// that cannot be parsed as executables yield nil, the same as any
// non-plugin DLL a mod may ship.
func ParseDLL(fs afero.Fs, path string) *models.DLLInfo {
	exports, err := peinfo.ReadExports(fs, path)
	if err != nil {
		return nil
	}

	exported := make(map[string]bool, len(exports))
	for _, name := range exports {
		exported[name] = true
	}

	og := exported[exportQuery]
	ng := exported[exportVersion]
	return &models.DLLInfo{
		IsF4SE:     exported[exportLoad],
		SupportsOG: &og,
		SupportsNG: &ng,
	}
}

// Compatible reports whether the plugin can load into the given install
// generation.
func Compatible(info *models.DLLInfo, install models.InstallType) bool {
	if info == nil || !info.IsF4SE {
		return false
	}

	og := info.SupportsOG != nil && *info.SupportsOG
	ng := info.SupportsNG != nil && *info.SupportsNG
	return (install.RunsOldGen() && og) || (install.RunsNextGen() && ng)
}

// ScanPlugins parses every DLL directly inside pluginsDir, keyed by file
// name. Subfolders are skipped; the script extender only loads top-level
// DLLs.
func ScanPlugins(ctx context.Context, fs afero.Fs, pluginsDir string) (map[string]*models.DLLInfo, error) {
	entries, err := afero.ReadDir(fs, pluginsDir)
	if err != nil {
		return nil, err
	}

	infos := make(map[string]*models.DLLInfo)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".dll") {
			continue
		}
		infos[entry.Name()] = ParseDLL(fs, filepath.Join(pluginsDir, entry.Name()))
	}

	return infos, nil
}
