//go:build windows

package modmanager

import "golang.org/x/sys/windows/registry"

const instanceKeyPath = `Software\Mod Organizer Team\Mod Organizer`

func registryCurrentInstance() string {
	key, err := registry.OpenKey(registry.CURRENT_USER, instanceKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return ""
	}
	defer key.Close()

	value, _, err := key.GetStringValue("CurrentInstance")
	if err != nil {
		return ""
	}
	return value
}
