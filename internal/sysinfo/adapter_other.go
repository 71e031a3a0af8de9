//go:build !windows

package sysinfo

func wineHosted() bool {
	return false
}

func videoAdapter() (string, int) {
	return "Unknown GPU (non-Windows)", 0
}
