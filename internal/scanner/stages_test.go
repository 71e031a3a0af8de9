package scanner

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collective-modding/cm-toolkit/internal/models"
	"github.com/collective-modding/cm-toolkit/internal/modmanager"
)

// captureEvents drains a buffered message channel after a stage ran
// synchronously into it.
func captureEvents(buffer chan Event) (stages []string, problems []*models.ProblemInfo) {
	close(buffer)
	for event := range buffer {
		switch typed := event.(type) {
		case StageChanged:
			stages = append(stages, typed.Stage)
		case problemFound:
			problems = append(problems, typed.problem)
		}
	}
	return stages, problems
}

func TestSorterINIScanSkipsWithoutRegisteredTool(t *testing.T) {
	scan := New(afero.NewMemMapFs(), testGame(""), stageSettings(), nil, nil)

	messages := make(chan Event, 16)
	require.NoError(t, scan.scanComplexSorterINIs(context.Background(), messages))

	stages, problems := captureEvents(messages)
	assert.Empty(t, stages)
	assert.Empty(t, problems)
}

func TestSorterINIScanFlagsOutdatedINIs(t *testing.T) {
	fs := afero.NewMemMapFs()
	toolDir := filepath.FromSlash("/Tools/Complex Sorter")
	files := []struct {
		name    string
		content string
	}{
		{"outdated.ini", "rule=FindNode OBTS(FindNode \"Addon Index\")\n"},
		{"single quoted.ini", "rule=FindNode OBTS(FindNode 'Addon Index')\n"},
		{"commented.ini", ";rule=FindNode OBTS(FindNode \"Addon Index\")\n"},
		{"modern.ini", "rule=FindNode OBTS(FindNode \"Parent Combination Index\")\n"},
		{"Presets/nested.ini", "x=FindNode OBTS(FindNode \"Addon Index\")\n"},
		{"readme.txt", "FindNode OBTS(FindNode \"Addon Index\")\n"},
	}
	for _, file := range files {
		path := filepath.Join(toolDir, filepath.FromSlash(file.name))
		require.NoError(t, afero.WriteFile(fs, path, []byte(file.content), 0644))
	}

	g := testGame("")
	g.Manager = modmanager.New(modmanager.ModOrganizer, "", "2.5.2")
	g.Manager.Executables[modmanager.ToolComplexSorter] = []string{
		filepath.Join(toolDir, "Complex Sorter.exe"),
	}

	scan := New(fs, g, stageSettings(), nil, nil)
	messages := make(chan Event, 16)
	require.NoError(t, scan.scanComplexSorterINIs(context.Background(), messages))

	stages, problems := captureEvents(messages)
	assert.Equal(t, []string{"Checking Complex Sorter INIs..."}, stages)
	require.Len(t, problems, 3)

	for _, relative := range []string{"outdated.ini", "single quoted.ini", filepath.FromSlash("Presets/nested.ini")} {
		problem := problemByPath(t, problems, filepath.ToSlash(relative))
		assert.Equal(t, models.ComplexSorter, problem.Type)
		assert.Equal(t, models.ComplexSorterFix, problem.Solution)
		assert.Equal(t, "Complex Sorter", problem.Mod)
		assert.Equal(t, outdatedSorterSummary, problem.Summary)
	}
}

func TestUsesOutdatedSorterField(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"double quoted", `rule=FindNode OBTS(FindNode "Addon Index")`, true},
		{"single quoted", "rule=FindNode OBTS(FindNode 'Addon Index')", true},
		{"comment only", `;rule=FindNode OBTS(FindNode "Addon Index")`, false},
		{"renamed field", `rule=FindNode OBTS(FindNode "Parent Combination Index")`, false},
		{"empty", "", false},
		{"match after comment", ";old\nrule=FindNode OBTS(FindNode \"Addon Index\")", true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, usesOutdatedSorterField(test.text))
		})
	}
}

func saddPayload(count int) []byte {
	return append([]byte("TES4 header "), bytes.Repeat(saddRecord, count)...)
}

func TestRaceSubgraphScanReportsHighRecordCounts(t *testing.T) {
	fs := afero.NewMemMapFs()
	heavy := filepath.FromSlash("/games/Fallout 4/Data/Heavy.esp")
	light := filepath.FromSlash("/games/Fallout 4/Data/Light.esp")
	clean := filepath.FromSlash("/games/Fallout 4/Data/Clean.esp")
	require.NoError(t, afero.WriteFile(fs, heavy, saddPayload(60), 0644))
	require.NoError(t, afero.WriteFile(fs, light, saddPayload(50), 0644))
	require.NoError(t, afero.WriteFile(fs, clean, []byte("no records"), 0644))

	g := testGame(filepath.FromSlash("/games/Fallout 4/Data"))
	g.ModulesEnabled = []string{heavy, light, clean, filepath.FromSlash("/games/Fallout 4/Data/Missing.esp")}

	scan := New(fs, g, stageSettings(), nil, nil)
	messages := make(chan Event, 16)
	require.NoError(t, scan.scanRaceSubgraphs(context.Background(), messages))

	stages, problems := captureEvents(messages)
	assert.Equal(t, []string{"Scanning Race Subgraph Records..."}, stages)
	require.Len(t, problems, 1)

	problem := problems[0]
	assert.Equal(t, "110 SADD Records from 2 modules", problem.RelativePath)
	assert.Equal(t, models.ProblemType("Race Subgraph Record Count"), problem.Type)
	assert.Equal(t, raceSubgraphSummary, problem.Summary)
	require.Len(t, problem.FileList, 2)
	assert.Equal(t, models.FileListEntry{Label: "60", Path: heavy}, problem.FileList[0])
	assert.Equal(t, models.FileListEntry{Label: "50", Path: light}, problem.FileList[1])
}

func TestRaceSubgraphScanStaysQuietAtThreshold(t *testing.T) {
	fs := afero.NewMemMapFs()
	module := filepath.FromSlash("/games/Fallout 4/Data/Borderline.esp")
	require.NoError(t, afero.WriteFile(fs, module, saddPayload(100), 0644))

	g := testGame(filepath.FromSlash("/games/Fallout 4/Data"))
	g.ModulesEnabled = []string{module}

	scan := New(fs, g, stageSettings(), nil, nil)
	messages := make(chan Event, 16)
	require.NoError(t, scan.scanRaceSubgraphs(context.Background(), messages))

	_, problems := captureEvents(messages)
	assert.Empty(t, problems)
}
