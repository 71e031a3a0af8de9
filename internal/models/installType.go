package models

// InstallType identifies which release generation of the game a binary
// belongs to. Down-Grade means a Next-Gen install running Old-Gen binaries.
type InstallType string

const (
	OG       InstallType = "Old-Gen"
	DG       InstallType = "Down-Grade"
	NG       InstallType = "Next-Gen"
	Unknown  InstallType = "Unknown"
	NotFound InstallType = "Not Found"
)

func (t InstallType) String() string {
	return string(t)
}

// RunsOldGen reports whether the install executes Old-Gen binaries.
// Down-Grade installs do: Next-Gen content on Old-Gen executables.
func (t InstallType) RunsOldGen() bool {
	return t == OG || t == DG
}

// RunsNextGen reports whether the install executes Next-Gen binaries.
func (t InstallType) RunsNextGen() bool {
	return t == NG
}
