package models

// FileInfo records what the overview learned about one game binary.
// Path is empty when the file was not found.
type FileInfo struct {
	Path        string      `json:"path,omitempty"`
	Version     string      `json:"version,omitempty"`
	InstallType InstallType `json:"installType,omitempty"`
}
