package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/buebu/internal/app"
	"github.com/dori/buebu/internal/ui/theme"
	"github.com/dori/buebu/internal/ui/views"
	"github.com/dori/buebu/internal/validate"
)

const (
	minSidebarWidth = 22
	maxSidebarWidth = 36
)

// RootModel is the main application model. It owns the panes and turns
// their requests into app workflows.
type RootModel struct {
	app     *app.App
	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	width   int
	height  int

	focus       Pane
	sidebar     views.SidebarView
	workspace   views.WorkspaceView
	helpVisible bool

	// session numbers generations so stale chunks can be dropped
	session   int
	improving bool

	statusMsg string
}

// NewRootModel creates a new root model
func NewRootModel(application *app.App) RootModel {
	h := help.New()
	h.ShowAll = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Current.Styles.Spinner

	m := RootModel{
		app:       application,
		keys:      DefaultKeyMap(),
		help:      h,
		spinner:   sp,
		focus:     PanePrompt,
		sidebar:   views.NewSidebarView(),
		workspace: views.NewWorkspaceView(),
	}
	m.workspace, _ = m.workspace.FocusPrompt()
	m.refreshSidebar()
	return m
}

// Init initializes the model
func (m RootModel) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ChunkMsg:
		if msg.Session == m.session {
			m.workspace = m.workspace.AppendChunk(msg.Chunk)
		}
		return m, waitForStream(msg.stream)

	case GenerationDoneMsg:
		if msg.Session != m.session {
			return m, nil
		}
		switch {
		case msg.Err == nil:
			m.statusMsg = fmt.Sprintf("Saved \"%s\"", msg.Project.Title)
			m.refreshSidebar()
			m.sidebar = m.sidebar.FocusActive()
		case errors.Is(msg.Err, app.ErrCanceled):
			m.statusMsg = "Generation stopped"
		}
		// Other errors are already in the status store.
		return m, nil

	case ImprovedMsg:
		m.improving = false
		if msg.Err == nil {
			m.workspace = m.workspace.SetPrompt(msg.Prompt)
			m.statusMsg = "Prompt improved"
		}
		return m, nil

	case views.SelectProjectRequest:
		return m.openProject(msg.ID)

	case views.RenameProjectRequest:
		title, err := m.app.RenameProject(msg.ID, msg.Title)
		if err != nil {
			m.app.Status.SetError(err.Error())
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Renamed to \"%s\"", title)
		m.refreshSidebar()
		return m, nil

	case views.DeleteProjectRequest:
		activeBefore, _ := m.app.Projects.ActiveID()
		if err := m.app.DeleteProject(msg.ID); err != nil {
			m.app.Status.SetError(err.Error())
			return m, nil
		}
		if activeBefore == msg.ID {
			m.workspace = m.workspace.SetPrompt("").SetBlueprint("")
		}
		m.statusMsg = "Project deleted"
		m.refreshSidebar()
		return m, nil

	case ErrorMsg:
		m.app.Status.SetError(msg.Err.Error())
		return m, nil

	case StatusMsg:
		m.statusMsg = msg.Message
		return m, nil

	case ThemeChangedMsg:
		m.statusMsg = fmt.Sprintf("Theme: %s", msg.ThemeName)
		return m, nil
	}

	return m.delegate(msg)
}

func (m RootModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.statusMsg = ""

	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Keys that work everywhere
	switch {
	case key.Matches(msg, m.keys.ThemeCycle):
		next := theme.Next()
		theme.SetTheme(next)
		m.spinner.Style = theme.Current.Styles.Spinner
		return m, func() tea.Msg { return ThemeChangedMsg{ThemeName: next.Name} }

	case key.Matches(msg, m.keys.Generate):
		return m.startGeneration()

	case key.Matches(msg, m.keys.Improve):
		return m.startImprove()

	case key.Matches(msg, m.keys.Stop):
		m.app.CancelGeneration()
		return m, nil

	case key.Matches(msg, m.keys.New):
		return m.newProject()
	}

	if m.helpVisible {
		if msg.String() == "esc" || key.Matches(msg, m.keys.Help) {
			m.helpVisible = false
			m.help.ShowAll = false
		}
		return m, nil
	}

	if m.sidebar.IsInputMode() {
		return m.delegate(msg)
	}

	if key.Matches(msg, m.keys.NextPane) {
		return m.setFocus(m.focus.next())
	}

	if m.focus == PanePrompt {
		if msg.String() == "esc" {
			return m.setFocus(PaneSidebar)
		}
		return m.delegate(msg)
	}

	// Not typing
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.helpVisible = true
		m.help.ShowAll = true
		return m, nil
	case key.Matches(msg, m.keys.Prompt):
		return m.setFocus(PanePrompt)
	}

	return m.delegate(msg)
}

// delegate forwards msg to the focused pane
func (m RootModel) delegate(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case PaneSidebar:
		m.sidebar, cmd = m.sidebar.Update(msg)
	case PanePrompt:
		var changed bool
		m.workspace, cmd, changed = m.workspace.UpdatePrompt(msg)
		if changed {
			m.app.PromptChanged()
		}
	case PaneBlueprint:
		m.workspace, cmd = m.workspace.UpdateOutput(msg)
	}
	return m, cmd
}

func (m RootModel) setFocus(p Pane) (tea.Model, tea.Cmd) {
	m.focus = p
	if p == PanePrompt {
		var cmd tea.Cmd
		m.workspace, cmd = m.workspace.FocusPrompt()
		return m, cmd
	}
	m.workspace = m.workspace.BlurPrompt()
	return m, nil
}

func (m RootModel) startGeneration() (tea.Model, tea.Cmd) {
	prompt := m.workspace.Prompt()
	if err := validate.Prompt(prompt); err != nil {
		m.app.Status.SetError(err.Error())
		return m, nil
	}

	m.session++
	session := m.session
	m.workspace = m.workspace.StartStream()

	stream := make(chan tea.Msg, 64)
	application := m.app
	go func() {
		defer close(stream)
		project, err := application.Generate(context.Background(), prompt, func(chunk string) {
			stream <- ChunkMsg{Session: session, Chunk: chunk, stream: stream}
		})
		stream <- GenerationDoneMsg{Session: session, Project: project, Err: err}
	}()

	return m, tea.Batch(waitForStream(stream), m.spinner.Tick)
}

// waitForStream reads the next message of a generation
func waitForStream(stream <-chan tea.Msg) tea.Cmd {
	if stream == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-stream
		if !ok {
			return nil
		}
		return msg
	}
}

func (m RootModel) startImprove() (tea.Model, tea.Cmd) {
	if m.improving {
		return m, nil
	}
	m.improving = true

	prompt := m.workspace.Prompt()
	application := m.app
	improve := func() tea.Msg {
		improved, err := application.ImprovePrompt(context.Background(), prompt)
		return ImprovedMsg{Prompt: improved, Err: err}
	}
	return m, tea.Batch(improve, m.spinner.Tick)
}

func (m RootModel) newProject() (tea.Model, tea.Cmd) {
	if m.app.Generator.Active() {
		m.app.CancelGeneration()
	}
	m.app.NewProject()
	m.workspace = m.workspace.SetPrompt("").SetBlueprint("")
	m.refreshSidebar()
	return m.setFocus(PanePrompt)
}

func (m RootModel) openProject(id string) (tea.Model, tea.Cmd) {
	if m.app.Generator.Active() {
		m.app.CancelGeneration()
	}
	p, ok := m.app.SelectProject(id)
	if !ok {
		m.app.Status.SetError(app.ErrProjectNotFound.Error())
		return m, nil
	}
	m.workspace = m.workspace.SetPrompt(p.Prompt).SetBlueprint(p.Blueprint)
	m.refreshSidebar()
	return m.setFocus(PaneBlueprint)
}

func (m *RootModel) refreshSidebar() {
	active, _ := m.app.Projects.ActiveID()
	m.sidebar = m.sidebar.SetProjects(m.app.Projects.Projects(), active)
}

func (m RootModel) busy() bool {
	return m.improving || m.app.Status.IsLoading()
}

func (m RootModel) sidebarWidth() int {
	w := m.width / 4
	if w < minSidebarWidth {
		w = minSidebarWidth
	}
	if w > maxSidebarWidth {
		w = maxSidebarWidth
	}
	return w
}

// resize lays out the panes. Header takes one line, footer two.
func (m *RootModel) resize() {
	contentHeight := m.height - 3
	if contentHeight < 5 {
		contentHeight = 5
	}
	sw := m.sidebarWidth()
	m.sidebar = m.sidebar.SetSize(sw, contentHeight)
	m.workspace = m.workspace.SetSize(m.width-sw-1, contentHeight)
}

// View renders the UI
func (m RootModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content string
	if m.helpVisible {
		content = m.renderHelp()
	} else {
		status := ""
		switch {
		case m.app.Status.IsLoading():
			status = m.spinner.View() + " generating"
		case m.improving:
			status = m.spinner.View() + " improving prompt"
		}
		content = lipgloss.JoinHorizontal(lipgloss.Top,
			m.sidebar.View(m.focus == PaneSidebar),
			" ",
			m.workspace.View(m.focus == PanePrompt, m.focus == PaneBlueprint, status),
		)
	}

	return strings.Join([]string{m.renderHeader(), content, m.renderFooter()}, "\n")
}

// renderHeader renders the header bar
func (m RootModel) renderHeader() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	title := styles.Header.Render("buebu")

	infoStyle := lipgloss.NewStyle().
		Foreground(t.Subtle).
		Padding(0, 1)
	paneIndicator := infoStyle.Render(fmt.Sprintf("[%s]", m.focus.String()))
	rightSide := infoStyle.Render(fmt.Sprintf("provider: %s  theme: %s",
		m.app.Generator.Provider().Name(), t.Name))

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, title, paneIndicator)
	gap := m.width - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if gap < 0 {
		gap = 0
	}
	return leftSide + strings.Repeat(" ", gap) + rightSide
}

// renderFooter renders the status line and key hints
func (m RootModel) renderFooter() string {
	styles := theme.Current.Styles

	hint := func(k, desc string) string {
		return styles.HelpKey.Render(k) + styles.HelpDesc.Render(" "+desc)
	}
	sep := styles.HelpSeparator.Render(" │ ")

	var statusLine string
	if msg, ok := m.app.Status.Error(); ok {
		statusLine = styles.Error.Render(msg)
	} else if m.statusMsg != "" {
		statusLine = styles.Status.Render(m.statusMsg)
	}

	var hints string
	switch {
	case m.sidebar.Mode() == views.SidebarModeRename:
		hints = hint("enter", "save") + sep + hint("esc", "cancel")
	case m.sidebar.Mode() == views.SidebarModeConfirmDelete:
		hints = hint("y", "delete") + sep + hint("n", "keep")
	case m.focus == PanePrompt:
		hints = hint("C-g", "generate") + sep +
			hint("C-r", "improve") + sep +
			hint("C-n", "new") + sep +
			hint("tab", "next pane") + sep +
			hint("esc", "projects")
	case m.focus == PaneSidebar:
		hints = hint("enter", "open") + sep +
			hint("r", "rename") + sep +
			hint("d", "delete") + sep +
			hint("i", "prompt") + sep +
			hint("?", "help") + sep +
			hint("q", "quit")
	default:
		hints = hint("↑/↓", "scroll") + sep +
			hint("C-x", "stop") + sep +
			hint("tab", "next pane") + sep +
			hint("?", "help")
	}

	return statusLine + "\n" + hints
}

// renderHelp renders the help overlay
func (m RootModel) renderHelp() string {
	t := theme.Current.Theme

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		MarginBottom(1)

	var b strings.Builder
	b.WriteString(titleStyle.Render("buebu help"))
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(t.Subtle).Render("Press ? or esc to close"))

	height := m.height - 3
	if height < 1 {
		height = 1
	}
	return lipgloss.NewStyle().Width(m.width).Height(height).Padding(0, 1).Render(b.String())
}
