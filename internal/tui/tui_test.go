package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m ProgressModel, msg tea.Msg) (ProgressModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(ProgressModel)
	require.True(t, ok)
	return model, cmd
}

func TestProgressModel(t *testing.T) {
	t.Run("a new step finishes the previous one", func(t *testing.T) {
		m := NewProgressModel("Rebasing PR #42", nil)
		m, _ = update(t, m, StepMsg{Label: "Validating"})
		m, _ = update(t, m, StepMsg{Label: "Preparing"})

		require.Equal(t, []ProgressStep{
			{Label: "Validating", Status: "done"},
			{Label: "Preparing", Status: "active"},
		}, m.steps)
		require.Contains(t, m.View(), "Rebasing PR #42")
		require.Contains(t, m.View(), "Preparing")
	})

	t.Run("ctrl+c cancels once and waits for the work", func(t *testing.T) {
		cancels := 0
		m := NewProgressModel("Rebasing", func() { cancels++ })
		m, _ = update(t, m, StepMsg{Label: "Rebasing"})

		m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
		require.Nil(t, cmd)
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
		require.Equal(t, 1, cancels)
		require.False(t, m.done)
		require.Contains(t, m.View(), "Canceling")

		m, cmd = update(t, m, WorkDoneMsg{Err: errors.New("canceled")})
		require.True(t, m.done)
		require.NotNil(t, cmd)
		require.Contains(t, m.View(), "✗")
	})

	t.Run("success marks every step done", func(t *testing.T) {
		m := NewProgressModel("Rebasing", nil)
		m, _ = update(t, m, StepMsg{Label: "Pushing"})
		m, _ = update(t, m, WorkDoneMsg{})
		require.Equal(t, "done", m.steps[0].Status)
		require.NotContains(t, m.View(), "Canceling")
	})
}
