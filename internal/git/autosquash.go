package git

import (
	"strings"
)

// ActionType is what a replay step does with its commit
type ActionType string

const (
	// ActionPick replays the commit as a new commit
	ActionPick ActionType = "pick"
	// ActionFixup folds the commit into the previous one, keeping its message
	ActionFixup ActionType = "fixup"
	// ActionSquash folds the commit into the previous one, appending its message body
	ActionSquash ActionType = "squash"
	// ActionAmend folds the commit into the previous one, replacing its message
	ActionAmend ActionType = "amend"
)

// Step is one entry of a replay plan
type Step struct {
	Action ActionType
	Commit Commit
	// Index is the commit's position in the original, unplanned list
	Index int
}

var autosquashPrefixes = map[string]ActionType{
	"fixup! ":  ActionFixup,
	"squash! ": ActionSquash,
	"amend! ":  ActionAmend,
}

// PlanReplay orders commits for replay. Without autosquash every commit is a
// pick in its original order. With autosquash, commits whose subject starts
// with "fixup! ", "squash! " or "amend! " are moved directly after the
// earlier commit they name, matched by subject or SHA prefix. A marker with no
// earlier match stays a plain pick.
func PlanReplay(commits []Commit, autosquash bool) []Step {
	steps := make([]Step, 0, len(commits))
	if !autosquash {
		for i, c := range commits {
			steps = append(steps, Step{Action: ActionPick, Commit: c, Index: i})
		}
		return steps
	}

	var groups []*replayGroup

	for i, c := range commits {
		action, target := parseAutosquashSubject(c.Subject)
		if action != ActionPick {
			if g := findGroup(groups, target); g != nil {
				g.folded = append(g.folded, Step{Action: action, Commit: c, Index: i})
				continue
			}
		}
		groups = append(groups, &replayGroup{
			head:    Step{Action: ActionPick, Commit: c, Index: i},
			subject: c.Subject,
		})
	}

	for _, g := range groups {
		steps = append(steps, g.head)
		steps = append(steps, g.folded...)
	}
	return steps
}

// replayGroup is a pick followed by the commits folded into it
type replayGroup struct {
	head    Step
	folded  []Step
	subject string
}

// findGroup returns the earliest group whose pick matches target
func findGroup(groups []*replayGroup, target string) *replayGroup {
	for _, g := range groups {
		if g.subject == target {
			return g
		}
	}
	if len(target) >= 4 && !strings.ContainsAny(target, " \t") {
		for _, g := range groups {
			if strings.HasPrefix(g.head.Commit.SHA, target) {
				return g
			}
		}
	}
	return nil
}

// parseAutosquashSubject returns the action named by the outermost prefix and
// the subject left after stripping all stacked prefixes
func parseAutosquashSubject(subject string) (ActionType, string) {
	action := ActionPick
	rest := subject
	for {
		matched := false
		for prefix, a := range autosquashPrefixes {
			if strings.HasPrefix(rest, prefix) {
				if action == ActionPick {
					action = a
				}
				rest = strings.TrimPrefix(rest, prefix)
				matched = true
				break
			}
		}
		if !matched {
			return action, strings.TrimSpace(rest)
		}
	}
}
