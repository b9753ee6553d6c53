package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/buebu/internal/model"
	"github.com/dori/buebu/internal/ui/theme"
	"github.com/dori/buebu/internal/validate"
)

// SidebarMode represents the current input mode of the sidebar
type SidebarMode int

const (
	SidebarModeNormal SidebarMode = iota
	SidebarModeRename
	SidebarModeConfirmDelete
)

// Requests the sidebar sends to the root model, which owns the app.

// SelectProjectRequest asks to open a project
type SelectProjectRequest struct {
	ID string
}

// RenameProjectRequest asks to rename a project
type RenameProjectRequest struct {
	ID    string
	Title string
}

// DeleteProjectRequest asks to delete a project
type DeleteProjectRequest struct {
	ID string
}

// SidebarView lists saved projects, newest first
type SidebarView struct {
	width  int
	height int

	projects     []model.Project
	activeID     string
	cursor       int
	scrollOffset int

	mode     SidebarMode
	input    textinput.Model
	targetID string // project being renamed or deleted
}

// NewSidebarView creates a new sidebar
func NewSidebarView() SidebarView {
	ti := textinput.New()
	ti.Placeholder = "Project name..."
	ti.CharLimit = validate.MaxTitleLength

	return SidebarView{input: ti}
}

// SetSize sets the view dimensions
func (v SidebarView) SetSize(width, height int) SidebarView {
	v.width = width
	v.height = height
	v.input.Width = width - 4
	return v
}

// SetProjects replaces the listed projects and keeps the cursor in range
func (v SidebarView) SetProjects(projects []model.Project, activeID string) SidebarView {
	v.projects = projects
	v.activeID = activeID
	if v.cursor >= len(v.projects) {
		v.cursor = len(v.projects) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	v.ensureCursorVisible()
	return v
}

// FocusActive moves the cursor to the active project
func (v SidebarView) FocusActive() SidebarView {
	for i, p := range v.projects {
		if p.ID == v.activeID {
			v.cursor = i
			break
		}
	}
	v.ensureCursorVisible()
	return v
}

// IsInputMode returns true when the sidebar is capturing keys
func (v SidebarView) IsInputMode() bool {
	return v.mode != SidebarModeNormal
}

// Mode returns the current mode
func (v SidebarView) Mode() SidebarMode {
	return v.mode
}

// Current returns the project under the cursor
func (v SidebarView) Current() (model.Project, bool) {
	if v.cursor < 0 || v.cursor >= len(v.projects) {
		return model.Project{}, false
	}
	return v.projects[v.cursor], true
}

func (v SidebarView) visibleCount() int {
	// Title line plus blank line
	available := v.height - 2
	if available < 1 {
		available = 1
	}
	return available
}

func (v *SidebarView) ensureCursorVisible() {
	visible := v.visibleCount()

	if v.cursor < v.scrollOffset {
		v.scrollOffset = v.cursor
	}
	if v.cursor >= v.scrollOffset+visible {
		v.scrollOffset = v.cursor - visible + 1
	}

	maxOffset := len(v.projects) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if v.scrollOffset > maxOffset {
		v.scrollOffset = maxOffset
	}
	if v.scrollOffset < 0 {
		v.scrollOffset = 0
	}
}

// Update handles key messages for the sidebar
func (v SidebarView) Update(msg tea.Msg) (SidebarView, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if v.mode == SidebarModeRename {
			var cmd tea.Cmd
			v.input, cmd = v.input.Update(msg)
			return v, cmd
		}
		return v, nil
	}

	switch v.mode {
	case SidebarModeRename:
		return v.handleRenameMode(keyMsg)
	case SidebarModeConfirmDelete:
		return v.handleDeleteConfirm(keyMsg)
	}
	return v.handleNormalMode(keyMsg)
}

func (v SidebarView) handleNormalMode(msg tea.KeyMsg) (SidebarView, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
	case "down", "j":
		if v.cursor < len(v.projects)-1 {
			v.cursor++
		}
	case "g":
		v.cursor = 0
	case "G":
		v.cursor = len(v.projects) - 1
		if v.cursor < 0 {
			v.cursor = 0
		}
	case "enter":
		if p, ok := v.Current(); ok {
			return v, request(SelectProjectRequest{ID: p.ID})
		}
	case "r":
		if p, ok := v.Current(); ok {
			v.mode = SidebarModeRename
			v.targetID = p.ID
			v.input.SetValue(p.Title)
			v.input.CursorEnd()
			return v, v.input.Focus()
		}
	case "d":
		if p, ok := v.Current(); ok {
			v.mode = SidebarModeConfirmDelete
			v.targetID = p.ID
		}
	}
	v.ensureCursorVisible()
	return v, nil
}

func (v SidebarView) handleRenameMode(msg tea.KeyMsg) (SidebarView, tea.Cmd) {
	switch msg.String() {
	case "enter":
		req := RenameProjectRequest{ID: v.targetID, Title: v.input.Value()}
		v = v.leaveMode()
		return v, request(req)
	case "esc":
		return v.leaveMode(), nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v SidebarView) handleDeleteConfirm(msg tea.KeyMsg) (SidebarView, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		req := DeleteProjectRequest{ID: v.targetID}
		return v.leaveMode(), request(req)
	case "n", "N", "esc":
		return v.leaveMode(), nil
	}
	return v, nil
}

func (v SidebarView) leaveMode() SidebarView {
	v.mode = SidebarModeNormal
	v.targetID = ""
	v.input.Blur()
	v.input.SetValue("")
	return v
}

// View renders the sidebar
func (v SidebarView) View(focused bool) string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	titleStyle := styles.PanelTitle
	if !focused {
		titleStyle = titleStyle.Foreground(t.Subtle)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Projects (%d)", len(v.projects))))
	b.WriteString("\n\n")

	if len(v.projects) == 0 {
		b.WriteString(styles.Placeholder.Render(" No projects yet"))
		return v.frame(b.String())
	}

	end := v.scrollOffset + v.visibleCount()
	if end > len(v.projects) {
		end = len(v.projects)
	}

	lineWidth := v.width - 2
	if lineWidth < 4 {
		lineWidth = 4
	}

	for i := v.scrollOffset; i < end; i++ {
		p := v.projects[i]

		if v.mode == SidebarModeRename && p.ID == v.targetID {
			b.WriteString(styles.InputFocused.Width(lineWidth - 2).Render(v.input.View()))
			b.WriteString("\n")
			continue
		}

		marker := "  "
		if p.ID == v.activeID {
			marker = "● "
		}
		line := truncate(marker+p.Title, lineWidth-2)

		style := styles.ItemNormal
		switch {
		case v.mode == SidebarModeConfirmDelete && p.ID == v.targetID:
			style = styles.ItemDanger
			line = truncate("Delete "+p.Title+"? y/n", lineWidth-2)
		case i == v.cursor && focused:
			style = styles.ItemSelected
		case p.ID == v.activeID:
			style = styles.ItemActive
		}
		b.WriteString(style.Width(lineWidth).Render(line))
		b.WriteString("\n")
	}

	return v.frame(strings.TrimRight(b.String(), "\n"))
}

func (v SidebarView) frame(content string) string {
	return lipgloss.NewStyle().Width(v.width).Height(v.height).Render(content)
}

func request(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if width <= 1 || len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
