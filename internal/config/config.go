// Package config loads, validates and persists settings.json. Files are
// sanitized on load: unknown keys are dropped, invalid values fall back to
// their defaults, and the cleaned file is written back.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/collective-modding/cm-toolkit/internal/models"
	"github.com/collective-modding/cm-toolkit/internal/perf"
	"github.com/spf13/afero"
)

type settingsField struct {
	key   string
	apply func(*Settings, json.RawMessage) bool
}

func settingsFields() []settingsField {
	return []settingsField{
		{"log_level", func(s *Settings, raw json.RawMessage) bool {
			return applyChoice(&s.LogLevel, raw, AllLogLevels())
		}},
		{"update_source", func(s *Settings, raw json.RawMessage) bool {
			return applyChoice(&s.UpdateSource, raw, AllUpdateSources())
		}},
		{models.ScanOverviewIssues.SettingsKey(), func(s *Settings, raw json.RawMessage) bool {
			return applyBool(&s.ScanOverviewIssues, raw)
		}},
		{models.ScanErrors.SettingsKey(), func(s *Settings, raw json.RawMessage) bool {
			return applyBool(&s.ScanErrors, raw)
		}},
		{models.ScanWrongFormat.SettingsKey(), func(s *Settings, raw json.RawMessage) bool {
			return applyBool(&s.ScanWrongFormat, raw)
		}},
		{models.ScanLoosePrevis.SettingsKey(), func(s *Settings, raw json.RawMessage) bool {
			return applyBool(&s.ScanLoosePrevis, raw)
		}},
		{models.ScanJunkFiles.SettingsKey(), func(s *Settings, raw json.RawMessage) bool {
			return applyBool(&s.ScanJunkFiles, raw)
		}},
		{models.ScanProblemOverrides.SettingsKey(), func(s *Settings, raw json.RawMessage) bool {
			return applyBool(&s.ScanProblemOverrides, raw)
		}},
		{models.ScanRaceSubgraphs.SettingsKey(), func(s *Settings, raw json.RawMessage) bool {
			return applyBool(&s.ScanRaceSubgraphs, raw)
		}},
		{"scanner_ignored_problems", func(s *Settings, raw json.RawMessage) bool {
			return applyStringList(&s.IgnoredProblems, raw)
		}},
		{"scanner_ignore_patterns", func(s *Settings, raw json.RawMessage) bool {
			return applyStringList(&s.IgnorePatterns, raw)
		}},
		{"downgrader_keep_backups", func(s *Settings, raw json.RawMessage) bool {
			return applyBool(&s.KeepBackups, raw)
		}},
		{"downgrader_delete_deltas", func(s *Settings, raw json.RawMessage) bool {
			return applyBool(&s.DeleteDeltas, raw)
		}},
	}
}

// Keys lists every recognised settings key in file order.
func Keys() []string {
	fields := settingsFields()
	keys := make([]string, 0, len(fields))
	for _, field := range fields {
		keys = append(keys, field.key)
	}
	return keys
}

// LoadSettings reads settings.json, falling back to defaults when the file
// is missing. A file that needed sanitizing is rewritten in place.
func LoadSettings(fs afero.Fs, meta Metadata) (Settings, error) {
	region := perf.StartRegion("io.settings.read")
	defer region.End()

	exists, _ := afero.Exists(fs, meta.SettingsPath)
	if !exists {
		return DefaultSettings(), nil
	}

	data, err := afero.ReadFile(fs, meta.SettingsPath)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings, changed := sanitize(data)
	if changed {
		if err := SaveSettings(fs, meta, settings); err != nil {
			return settings, err
		}
	}

	return settings, nil
}

// SaveSettings writes settings.json atomically, tab indented with a
// trailing newline.
func SaveSettings(fs afero.Fs, meta Metadata, settings Settings) error {
	region := perf.StartRegion("io.settings.write")
	defer region.End()

	data, err := json.MarshalIndent(settings, "", "\t")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	return writeFileAtomic(fs, meta.SettingsPath, data)
}

// Apply parses a raw JSON value for a known key and stores it when valid.
func (s *Settings) Apply(key string, raw json.RawMessage) bool {
	for _, field := range settingsFields() {
		if field.key == key {
			return field.apply(s, raw)
		}
	}
	return false
}

// Value returns the current value for a key as it would appear on disk.
func (s Settings) Value(key string) (interface{}, bool) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, false
	}

	var asMap map[string]interface{}
	if err := json.Unmarshal(data, &asMap); err != nil {
		return nil, false
	}

	value, ok := asMap[key]
	return value, ok
}

// sanitize validates the raw file contents against the known keys. The
// second return reports whether the file needs rewriting: unknown keys,
// missing keys, or values that were reset to defaults.
func sanitize(data []byte) (Settings, bool) {
	settings := DefaultSettings()

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return settings, true
	}

	changed := false
	known := 0
	for _, field := range settingsFields() {
		value, present := raw[field.key]
		if !present {
			changed = true
			continue
		}
		known++
		if !field.apply(&settings, value) {
			changed = true
		}
	}
	if known != len(raw) {
		changed = true
	}

	return settings, changed
}

func applyBool(target *bool, raw json.RawMessage) bool {
	var value bool
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}
	*target = value
	return true
}

func applyChoice(target *string, raw json.RawMessage, allowed []string) bool {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}
	for _, candidate := range allowed {
		if value == candidate {
			*target = value
			return true
		}
	}
	return false
}

func applyStringList(target *[]string, raw json.RawMessage) bool {
	var value []string
	if err := json.Unmarshal(raw, &value); err != nil || value == nil {
		return false
	}
	*target = value
	return true
}
