// Package pager shows one resolved email in a scrollable viewport.
package pager

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inboxpeek/internal/keys"
	"github.com/nhle/inboxpeek/internal/model"
	"github.com/nhle/inboxpeek/internal/render"
	"github.com/nhle/inboxpeek/internal/theme"
)

// Model is the pager view.
type Model struct {
	email    model.Email
	viewport viewport.Model
	help     help.Model
	keys     *keys.KeyMap
	ready    bool
}

// New creates a pager for email. The viewport is sized on the first
// WindowSizeMsg.
func New(email model.Email, km *keys.KeyMap) Model {
	return Model{
		email: email,
		help:  help.New(),
		keys:  km,
	}
}

// Init returns the initial command for the pager.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the pager.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := msg.Height - lipgloss.Height(m.footer())
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.Style = lipgloss.NewStyle()
			m.viewport.SetContent(m.renderContent())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Top):
			m.viewport.GotoTop()
			return m, nil
		case key.Matches(msg, m.keys.Bottom):
			m.viewport.GotoBottom()
			return m, nil
		case key.Matches(msg, m.keys.PageDown):
			m.viewport.PageDown()
			return m, nil
		case key.Matches(msg, m.keys.PageUp):
			m.viewport.PageUp()
			return m, nil
		}
	}

	// Delegate to viewport for line scrolling and the mouse wheel
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the pager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.footer())
}

func (m Model) footer() string {
	pct := fmt.Sprintf("%3.0f%%", m.viewport.ScrollPercent()*100)
	return theme.HelpStyle.Render(pct + "  " + m.help.View(m.keys))
}

// renderContent builds the full content string for the viewport.
func (m Model) renderContent() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		render.DetailPanel(m.email),
		render.BodyPanel(m.email),
	)
}

// Run shows email in the alternate screen until the user quits.
func Run(email model.Email, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(
		New(email, keys.DefaultKeyMap()),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running pager: %w", err)
	}
	return nil
}
