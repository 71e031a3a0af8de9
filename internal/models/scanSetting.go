package models

import "strings"

// ScanSetting toggles one scanner stage. The value is the bare stage name;
// SettingsKey derives the key it is stored under in settings.json.
type ScanSetting string

const (
	ScanOverviewIssues   ScanSetting = "OverviewIssues"
	ScanErrors           ScanSetting = "Errors"
	ScanWrongFormat      ScanSetting = "WrongFormat"
	ScanLoosePrevis      ScanSetting = "LoosePrevis"
	ScanJunkFiles        ScanSetting = "JunkFiles"
	ScanProblemOverrides ScanSetting = "ProblemOverrides"
	ScanRaceSubgraphs    ScanSetting = "RaceSubgraphs"
)

func (s ScanSetting) String() string {
	return string(s)
}

func (s ScanSetting) SettingsKey() string {
	return "scanner_" + string(s)
}

func (s ScanSetting) Label() string {
	switch s {
	case ScanOverviewIssues:
		return "Overview Issues"
	case ScanErrors:
		return "Errors"
	case ScanWrongFormat:
		return "Wrong File Formats"
	case ScanLoosePrevis:
		return "Loose Previs"
	case ScanJunkFiles:
		return "Junk Files"
	case ScanProblemOverrides:
		return "Problem Overrides"
	case ScanRaceSubgraphs:
		return "Race Subgraphs"
	default:
		return string(s)
	}
}

// FlagName is the command-line flag that toggles the stage.
func (s ScanSetting) FlagName() string {
	switch s {
	case ScanOverviewIssues:
		return "overview"
	case ScanErrors:
		return "errors"
	case ScanWrongFormat:
		return "formats"
	case ScanLoosePrevis:
		return "previs"
	case ScanJunkFiles:
		return "junk"
	case ScanProblemOverrides:
		return "overrides"
	case ScanRaceSubgraphs:
		return "race-subgraphs"
	default:
		return strings.ToLower(string(s))
	}
}

func AllScanSettings() []ScanSetting {
	return []ScanSetting{
		ScanOverviewIssues, ScanErrors, ScanWrongFormat, ScanLoosePrevis,
		ScanJunkFiles, ScanProblemOverrides, ScanRaceSubgraphs,
	}
}
