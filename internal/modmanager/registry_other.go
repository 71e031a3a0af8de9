//go:build !windows

package modmanager

func registryCurrentInstance() string {
	return ""
}
