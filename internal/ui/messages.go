package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dori/buebu/internal/model"
)

// Pane is the part of the screen that has keyboard focus
type Pane int

const (
	PaneSidebar Pane = iota
	PanePrompt
	PaneBlueprint
)

// String returns the display name for a pane
func (p Pane) String() string {
	switch p {
	case PaneSidebar:
		return "Projects"
	case PanePrompt:
		return "Prompt"
	case PaneBlueprint:
		return "Blueprint"
	default:
		return "Unknown"
	}
}

// next returns the pane after p in tab order
func (p Pane) next() Pane {
	return (p + 1) % 3
}

// Messages for inter-component communication

// ChunkMsg carries one streamed chunk. Session identifies the generation it
// belongs to; chunks from a superseded session are dropped.
type ChunkMsg struct {
	Session int
	Chunk   string
	stream  <-chan tea.Msg
}

// GenerationDoneMsg ends a generation session
type GenerationDoneMsg struct {
	Session int
	Project model.Project
	Err     error
}

// ImprovedMsg carries an improved prompt
type ImprovedMsg struct {
	Prompt string
	Err    error
}

// ErrorMsg contains an error to display
type ErrorMsg struct {
	Err error
}

// StatusMsg contains a status message to display
type StatusMsg struct {
	Message string
}

// ThemeChangedMsg indicates the theme was changed
type ThemeChangedMsg struct {
	ThemeName string
}
