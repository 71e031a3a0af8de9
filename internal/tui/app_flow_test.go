package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/assert"
)

func TestAppMenuSelectsCommandThroughProgramLoop(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	tm := teatest.NewTestModel(t, NewAppModel(), teatest.WithInitialTermSize(60, 24))
	waitForMenuOutput(t, tm, "cmd.overview.short")

	tm.Send(tea.KeyMsg{Type: tea.KeyDown})
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	final := ensureAppModel(t, tm.FinalModel(t))
	assert.Equal(t, "scan", ChosenCommand(final))
}

func TestAppMenuQuitLeavesNoChoiceThroughProgramLoop(t *testing.T) {
	t.Setenv("CMT_TEST", "true")

	tm := teatest.NewTestModel(t, NewAppModel(), teatest.WithInitialTermSize(60, 24))
	waitForMenuOutput(t, tm, "cmd.overview.short")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	final := ensureAppModel(t, tm.FinalModel(t))
	assert.Equal(t, "", ChosenCommand(final))
}

func waitForMenuOutput(t *testing.T, tm *teatest.TestModel, contains string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return strings.Contains(string(bts), contains)
	}, teatest.WithDuration(2*time.Second))
}

func ensureAppModel(t *testing.T, model tea.Model) AppModel {
	t.Helper()
	typed, ok := model.(AppModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}
	return typed
}
