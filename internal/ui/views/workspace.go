package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/buebu/internal/ui/theme"
	"github.com/dori/buebu/internal/validate"
)

const promptLines = 5

// WorkspaceView holds the prompt editor and the blueprint being shown or
// streamed
type WorkspaceView struct {
	width  int
	height int

	prompt textarea.Model
	output viewport.Model

	blueprint string
	follow    bool // keep the viewport pinned to the bottom while streaming
}

// NewWorkspaceView creates a new workspace
func NewWorkspaceView() WorkspaceView {
	ta := textarea.New()
	ta.Placeholder = "Describe the application you want a blueprint for..."
	ta.CharLimit = validate.MaxPromptLength
	ta.ShowLineNumbers = false
	ta.SetHeight(promptLines)

	return WorkspaceView{
		prompt: ta,
		output: viewport.New(0, 0),
	}
}

// SetSize sets the view dimensions
func (v WorkspaceView) SetSize(width, height int) WorkspaceView {
	v.width = width
	v.height = height

	inner := width - 4
	if inner < 10 {
		inner = 10
	}
	v.prompt.SetWidth(inner)

	// prompt box, two titles, two borders
	outputHeight := height - (promptLines + 2) - 2 - 2
	if outputHeight < 3 {
		outputHeight = 3
	}
	v.output.Width = inner
	v.output.Height = outputHeight
	v.output.SetContent(v.render())
	return v
}

// FocusPrompt moves keyboard focus to the prompt editor
func (v WorkspaceView) FocusPrompt() (WorkspaceView, tea.Cmd) {
	cmd := v.prompt.Focus()
	return v, cmd
}

// BlurPrompt removes keyboard focus from the prompt editor
func (v WorkspaceView) BlurPrompt() WorkspaceView {
	v.prompt.Blur()
	return v
}

// Prompt returns the prompt text
func (v WorkspaceView) Prompt() string {
	return v.prompt.Value()
}

// SetPrompt replaces the prompt text
func (v WorkspaceView) SetPrompt(prompt string) WorkspaceView {
	v.prompt.SetValue(prompt)
	return v
}

// Blueprint returns the text currently shown
func (v WorkspaceView) Blueprint() string {
	return v.blueprint
}

// SetBlueprint replaces the shown blueprint and scrolls to the top
func (v WorkspaceView) SetBlueprint(blueprint string) WorkspaceView {
	v.blueprint = blueprint
	v.follow = false
	v.output.SetContent(v.render())
	v.output.GotoTop()
	return v
}

// StartStream clears the output for a new generation
func (v WorkspaceView) StartStream() WorkspaceView {
	v.blueprint = ""
	v.follow = true
	v.output.SetContent("")
	return v
}

// AppendChunk adds streamed text to the output
func (v WorkspaceView) AppendChunk(chunk string) WorkspaceView {
	v.blueprint += chunk
	v.output.SetContent(v.render())
	if v.follow {
		v.output.GotoBottom()
	}
	return v
}

// UpdatePrompt forwards msg to the prompt editor. changed reports whether the
// text was edited.
func (v WorkspaceView) UpdatePrompt(msg tea.Msg) (WorkspaceView, tea.Cmd, bool) {
	before := v.prompt.Value()
	var cmd tea.Cmd
	v.prompt, cmd = v.prompt.Update(msg)
	return v, cmd, v.prompt.Value() != before
}

// UpdateOutput forwards scrolling keys to the blueprint viewport
func (v WorkspaceView) UpdateOutput(msg tea.Msg) (WorkspaceView, tea.Cmd) {
	var cmd tea.Cmd
	v.output, cmd = v.output.Update(msg)
	v.follow = v.output.AtBottom()
	return v, cmd
}

func (v WorkspaceView) render() string {
	if v.output.Width <= 0 {
		return v.blueprint
	}
	return lipgloss.NewStyle().Width(v.output.Width).Render(v.blueprint)
}

// View renders the workspace. status is shown next to the blueprint title,
// e.g. a spinner while streaming.
func (v WorkspaceView) View(promptFocused, outputFocused bool, status string) string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	title := func(text string, focused bool) string {
		if focused {
			return styles.PanelTitle.Render(text)
		}
		return styles.PanelTitle.Foreground(t.Subtle).Render(text)
	}

	promptBox := styles.Input
	if promptFocused {
		promptBox = styles.InputFocused
	}
	outputBox := styles.Input
	if outputFocused {
		outputBox = styles.InputFocused
	}

	var body string
	if strings.TrimSpace(v.blueprint) == "" && status == "" {
		body = styles.Placeholder.Width(v.output.Width).Height(v.output.Height).
			Render("Your blueprint will appear here.")
	} else {
		body = v.output.View()
	}

	header := title("Blueprint", outputFocused)
	if status != "" {
		header += " " + status
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title("Prompt", promptFocused),
		promptBox.Render(v.prompt.View()),
		header,
		outputBox.Render(body),
	)
}
