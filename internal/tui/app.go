package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"

	"github.com/collective-modding/cm-toolkit/internal/constants"
	"github.com/collective-modding/cm-toolkit/internal/environment"
	"github.com/collective-modding/cm-toolkit/internal/i18n"
)

// MenuItem is one selectable command in the root menu.
type MenuItem struct {
	name    string
	summary string
}

func (m MenuItem) FilterValue() string { return m.name }
func (m MenuItem) Title() string       { return m.name }
func (m MenuItem) Description() string { return m.summary }

func menuItems() []list.Item {
	names := []string{
		"overview", "scan", "fix", "ba2", "downgrade",
		"xdelta", "f4se", "settings", "version",
	}

	items := make([]list.Item, 0, len(names))
	for _, name := range names {
		items = append(items, MenuItem{
			name:    name,
			summary: i18n.T("cmd." + name + ".short"),
		})
	}
	return items
}

// AppModel is the root TUI model: a command menu shown when the binary
// runs with no arguments.
type AppModel struct {
	list   list.Model
	width  int
	choice string
}

func NewAppModel() AppModel {
	width, _, _ := term.GetSize(os.Stdout.Fd())

	delegate := list.NewDefaultDelegate()
	delegate.Styles.NormalTitle = ItemStyle
	delegate.Styles.SelectedTitle = SelectedItemStyle

	l := list.New(menuItems(), delegate, width, 22)
	l.Title = constants.AppTitle
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.KeyMap = TranslatedListKeyMap()
	l.Styles.PaginationStyle = PaginationStyle
	l.Styles.HelpStyle = HelpStyle

	return AppModel{list: l, width: width}
}

func (m AppModel) Init() tea.Cmd { return nil }

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(MenuItem); ok {
				m.choice = item.name
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.list.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m AppModel) View() string {
	header := TitleStyle.Bold(true).Render(m.list.Title)
	if m.width > 0 {
		header = Header(Config{
			App:     m.list.Title,
			Version: environment.AppVersion(),
		}, m.width)
	}
	return fmt.Sprintf("%s\n%s", header, m.list.View())
}

// RunApp builds the interactive menu program for a bare `cmt` run.
func RunApp(in io.Reader, out io.Writer) *tea.Program {
	return tea.NewProgram(NewAppModel(), ProgramOptions(in, out)...)
}

// ChosenCommand extracts the selection from the final model of a finished
// menu program. Empty when the user quit without choosing.
func ChosenCommand(model tea.Model) string {
	if app, ok := model.(AppModel); ok {
		return app.choice
	}
	return ""
}
