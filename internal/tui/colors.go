package tui

import "github.com/charmbracelet/lipgloss"

// Palette used by the progress view and the outcome report
const (
	ColorAccent  = lipgloss.Color("205")
	ColorSuccess = lipgloss.Color("42")
	ColorFailure = lipgloss.Color("196")
	ColorTitle   = lipgloss.Color("39")
	ColorDim     = lipgloss.Color("240")
	ColorHint    = lipgloss.Color("214")
)
