//go:build windows

package sysinfo

import (
	"strings"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

// WINE fills in ntdll.dll but marks itself with an extra export.
func wineHosted() bool {
	ntdll := windows.NewLazySystemDLL("ntdll.dll")
	return ntdll.NewProc("wine_get_version").Find() == nil
}

const videoDeviceMapKey = `HARDWARE\DEVICEMAP\VIDEO`

// videoAdapter resolves the primary display adapter through the device
// map, the same registry path the game's own crash logs report.
func videoAdapter() (string, int) {
	deviceMap, err := registry.OpenKey(registry.LOCAL_MACHINE, videoDeviceMapKey, registry.QUERY_VALUE)
	if err != nil {
		return "Unknown GPU", 0
	}
	defer deviceMap.Close()

	devicePath, _, err := deviceMap.GetStringValue(`\Device\Video0`)
	if err != nil {
		return "Unknown GPU", 0
	}
	devicePath = strings.TrimPrefix(devicePath, `\Registry\Machine\`)

	device, err := registry.OpenKey(registry.LOCAL_MACHINE, devicePath, registry.QUERY_VALUE)
	if err != nil {
		return "Unknown GPU", 0
	}
	defer device.Close()

	model := "Unknown GPU"
	if adapter, _, err := device.GetStringValue("HardwareInformation.AdapterString"); err == nil {
		model = strings.TrimSpace(adapter)
	}
	vramGB := 0
	if memory, _, err := device.GetIntegerValue("HardwareInformation.qwMemorySize"); err == nil {
		vramGB = int((memory + 1<<29) / (1 << 30))
	}
	return model, vramGB
}
