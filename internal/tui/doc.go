// Package tui provides the terminal user interface for prrebase.
//
// It handles:
//   - Structured logging and status reporting (Splog)
//   - The progress spinner shown while a rebase runs (bubbletea)
//   - Terminal styling and colors (using lipgloss)
package tui
