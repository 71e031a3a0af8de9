//go:build windows

package game

import (
	"os"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

func defaultDocumentsDir() (string, error) {
	return windows.KnownFolderPath(windows.FOLDERID_Documents, windows.KF_FLAG_DEFAULT)
}

func defaultLocalAppDataDir() (string, error) {
	if value := os.Getenv("LOCALAPPDATA"); value != "" {
		return value, nil
	}
	return windows.KnownFolderPath(windows.FOLDERID_LocalAppData, windows.KF_FLAG_DEFAULT)
}

// registryGamePath checks the Steam and GOG install keys.
func registryGamePath() string {
	lookups := []struct {
		path  string
		value string
	}{
		{`SOFTWARE\WOW6432Node\Bethesda Softworks\Fallout4`, "Installed Path"},
		{`SOFTWARE\WOW6432Node\GOG.com\Games\1998527297`, "path"},
	}

	for _, lookup := range lookups {
		key, err := registry.OpenKey(registry.LOCAL_MACHINE, lookup.path, registry.QUERY_VALUE)
		if err != nil {
			continue
		}
		value, _, err := key.GetStringValue(lookup.value)
		key.Close()
		if err == nil && value != "" {
			return value
		}
	}
	return ""
}
