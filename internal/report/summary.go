package report

import (
	"fmt"
	"strings"
	"time"

	"prrebase.dev/prrebase/internal/config"
	prerrors "prrebase.dev/prrebase/internal/errors"
)

// TokenURL is where users create a new access token
const TokenURL = config.TokenGenerateURL

// Message is a rendered outcome: a title line, detail lines and hints
type Message struct {
	Title   string
	Details []string
	Hints   []string
}

func (m Message) String() string {
	var sb strings.Builder
	sb.WriteString(m.Title)
	for _, line := range m.Details {
		sb.WriteString("\n  ")
		sb.WriteString(line)
	}
	for _, hint := range m.Hints {
		sb.WriteString("\n")
		sb.WriteString(hint)
	}
	return sb.String()
}

// Summary describes an outcome for people
func Summary(o Outcome) Message {
	switch o := o.(type) {
	case Success:
		return successSummary(o)
	case Conflict:
		return conflictSummary(o)
	case Failure:
		return failureSummary(o)
	default:
		return Message{Title: "Rebase finished in an unknown state"}
	}
}

func successSummary(s Success) Message {
	if s.NoOp {
		return Message{Title: fmt.Sprintf("PR #%d is already up to date with its base", s.PRNumber)}
	}
	m := Message{
		Title: fmt.Sprintf("Rebased PR #%d: replayed %s", s.PRNumber, plural(s.Replayed, "commit")),
	}
	if s.NewHead != "" {
		m.Details = append(m.Details, "New head: "+shortSHA(s.NewHead))
	}
	if s.Skipped > 0 {
		m.Details = append(m.Details, fmt.Sprintf("Dropped %s already present on the base", plural(s.Skipped, "commit")))
	}
	return m
}

func conflictSummary(c Conflict) Message {
	m := Message{
		Title: fmt.Sprintf("Could not rebase PR #%d: commit %d of %d does not apply cleanly",
			c.PRNumber, c.CommitIndex+1, c.TotalCommits),
	}
	if c.CommitSHA != "" {
		m.Details = append(m.Details, fmt.Sprintf("Commit: %s %s", shortSHA(c.CommitSHA), c.CommitSubject))
	}
	if len(c.Paths) > 0 {
		m.Details = append(m.Details, "Conflicting files:")
		for _, p := range c.Paths {
			m.Details = append(m.Details, "  "+p)
		}
	}
	if len(c.Files) > 0 {
		m.Details = append(m.Details, "Changes in the commit:")
		for _, f := range c.Files {
			m.Details = append(m.Details, fmt.Sprintf("  %s (+%d -%d)", f.Path, f.Added, f.Deleted))
		}
	}
	m.Hints = append(m.Hints, "Nothing was pushed. Rebase the pull request locally and resolve the conflicts.")
	return m
}

func failureSummary(f Failure) Message {
	m := Message{
		Title:   fmt.Sprintf("Could not rebase PR #%d (%s)", f.PRNumber, f.Kind),
		Details: []string{f.Message},
	}
	switch f.Kind {
	case prerrors.KindAuthFailure:
		m.Hints = append(m.Hints, "Check that the token is valid and has the repo scope.",
			"You can generate a token here: "+TokenURL)
	case prerrors.KindNotFound:
		m.Hints = append(m.Hints, "Check the pull request number and the --repo flag.")
	case prerrors.KindRateLimited:
		if f.RetryAfter > 0 {
			m.Hints = append(m.Hints, fmt.Sprintf("GitHub is rate limiting requests. Try again in %s.", f.RetryAfter.Round(time.Second)))
		} else {
			m.Hints = append(m.Hints, "GitHub is rate limiting requests. Try again later.")
		}
	case prerrors.KindFetchFailure:
		m.Hints = append(m.Hints, "Check your network connection and try again.")
	case prerrors.KindConcurrentModification:
		m.Hints = append(m.Hints, "The pull request or its base changed during the rebase. Nothing was overwritten; re-run the command.")
	case prerrors.KindInvalidArgument:
		m.Hints = append(m.Hints, "Pass the pull request number, e.g. prrebase rebase 42.")
	case prerrors.KindCanceled:
		m.Hints = append(m.Hints, "The rebase was interrupted. Re-run the command to try again.")
	}
	return m
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
