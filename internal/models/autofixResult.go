package models

// AutofixResult reports the outcome of an attempted automatic fix.
type AutofixResult struct {
	Success       bool     `json:"success"`
	Details       string   `json:"details"`
	FilesAffected []string `json:"filesAffected,omitempty"`
	BackupCreated string   `json:"backupCreated,omitempty"`
}
