package config

import (
	"github.com/collective-modding/cm-toolkit/internal/models"
)

const (
	LogLevelDebug   = "DEBUG"
	LogLevelInfo    = "INFO"
	LogLevelWarning = "WARNING"
	LogLevelError   = "ERROR"
)

const (
	UpdateSourceNexus  = "nexus"
	UpdateSourceGithub = "github"
	UpdateSourceBoth   = "both"
	UpdateSourceNone   = "none"
)

// Settings is the persisted user configuration. Field order matches the
// on-disk key order.
type Settings struct {
	LogLevel             string   `json:"log_level"`
	UpdateSource         string   `json:"update_source"`
	ScanOverviewIssues   bool     `json:"scanner_OverviewIssues"`
	ScanErrors           bool     `json:"scanner_Errors"`
	ScanWrongFormat      bool     `json:"scanner_WrongFormat"`
	ScanLoosePrevis      bool     `json:"scanner_LoosePrevis"`
	ScanJunkFiles        bool     `json:"scanner_JunkFiles"`
	ScanProblemOverrides bool     `json:"scanner_ProblemOverrides"`
	ScanRaceSubgraphs    bool     `json:"scanner_RaceSubgraphs"`
	IgnoredProblems      []string `json:"scanner_ignored_problems"`
	IgnorePatterns       []string `json:"scanner_ignore_patterns"`
	KeepBackups          bool     `json:"downgrader_keep_backups"`
	DeleteDeltas         bool     `json:"downgrader_delete_deltas"`
}

func DefaultSettings() Settings {
	return Settings{
		LogLevel:             LogLevelInfo,
		UpdateSource:         UpdateSourceNexus,
		ScanOverviewIssues:   true,
		ScanErrors:           true,
		ScanWrongFormat:      true,
		ScanLoosePrevis:      true,
		ScanJunkFiles:        true,
		ScanProblemOverrides: true,
		ScanRaceSubgraphs:    true,
		IgnoredProblems:      []string{},
		IgnorePatterns:       []string{},
		KeepBackups:          true,
		DeleteDeltas:         true,
	}
}

func AllLogLevels() []string {
	return []string{LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError}
}

func AllUpdateSources() []string {
	return []string{UpdateSourceNexus, UpdateSourceGithub, UpdateSourceBoth, UpdateSourceNone}
}

// ScanEnabled reports whether a scanner stage is switched on.
func (s Settings) ScanEnabled(setting models.ScanSetting) bool {
	switch setting {
	case models.ScanOverviewIssues:
		return s.ScanOverviewIssues
	case models.ScanErrors:
		return s.ScanErrors
	case models.ScanWrongFormat:
		return s.ScanWrongFormat
	case models.ScanLoosePrevis:
		return s.ScanLoosePrevis
	case models.ScanJunkFiles:
		return s.ScanJunkFiles
	case models.ScanProblemOverrides:
		return s.ScanProblemOverrides
	case models.ScanRaceSubgraphs:
		return s.ScanRaceSubgraphs
	default:
		return false
	}
}

func (s *Settings) SetScanEnabled(setting models.ScanSetting, enabled bool) {
	switch setting {
	case models.ScanOverviewIssues:
		s.ScanOverviewIssues = enabled
	case models.ScanErrors:
		s.ScanErrors = enabled
	case models.ScanWrongFormat:
		s.ScanWrongFormat = enabled
	case models.ScanLoosePrevis:
		s.ScanLoosePrevis = enabled
	case models.ScanJunkFiles:
		s.ScanJunkFiles = enabled
	case models.ScanProblemOverrides:
		s.ScanProblemOverrides = enabled
	case models.ScanRaceSubgraphs:
		s.ScanRaceSubgraphs = enabled
	}
}

// EnabledScans lists the stages the scanner should run.
func (s Settings) EnabledScans() []models.ScanSetting {
	enabled := make([]models.ScanSetting, 0, len(models.AllScanSettings()))
	for _, setting := range models.AllScanSettings() {
		if s.ScanEnabled(setting) {
			enabled = append(enabled, setting)
		}
	}
	return enabled
}
