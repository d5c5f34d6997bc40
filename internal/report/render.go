package report

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"prrebase.dev/prrebase/internal/tui"
)

type styles struct {
	success lipgloss.Style
	failure lipgloss.Style
	detail  lipgloss.Style
	hint    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		success: r.NewStyle().Foreground(tui.ColorSuccess).Bold(true),
		failure: r.NewStyle().Foreground(tui.ColorFailure).Bold(true),
		detail:  r.NewStyle().Foreground(tui.ColorDim),
		hint:    r.NewStyle().Foreground(tui.ColorHint),
	}
}

// ColorEnabled reports whether output to w should be colored: w must be a
// terminal and NO_COLOR must be unset
func ColorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Render formats an outcome for w, coloring it only when w supports color
func Render(w io.Writer, o Outcome) string {
	r := lipgloss.NewRenderer(w)
	if !ColorEnabled(w) {
		r.SetColorProfile(termenv.Ascii)
	}
	return render(r, o)
}

func render(r *lipgloss.Renderer, o Outcome) string {
	st := newStyles(r)
	msg := Summary(o)

	title := st.failure
	icon := "✗ "
	if o != nil && o.OK() {
		title = st.success
		icon = "✓ "
	}

	var sb strings.Builder
	sb.WriteString(title.Render(icon + msg.Title))
	for _, line := range msg.Details {
		sb.WriteString("\n")
		sb.WriteString(st.detail.Render("  " + line))
	}
	for _, hint := range msg.Hints {
		sb.WriteString("\n")
		sb.WriteString(st.hint.Render(hint))
	}
	return sb.String()
}

// Print writes the rendered outcome and a trailing newline to w
func Print(w io.Writer, o Outcome) error {
	_, err := io.WriteString(w, Render(w, o)+"\n")
	return err
}
