package engine

import "fmt"

// State is a step of a rebase run
type State int

const (
	// StateIdle is the state before a run starts
	StateIdle State = iota
	// StateValidating reads and checks the pull request
	StateValidating
	// StatePreparing fetches the pull request into a workspace
	StatePreparing
	// StateRebasing replays the pull request's commits
	StateRebasing
	// StatePushing updates the head branch under a lease
	StatePushing
	// StateDone means the pull request is rebased or was already up to date
	StateDone
	// StateConflicted means a commit did not apply and nothing was pushed
	StateConflicted
	// StateFailed means the run stopped on an error
	StateFailed
)

var stateNames = [...]string{
	StateIdle:       "Idle",
	StateValidating: "Validating",
	StatePreparing:  "Preparing",
	StateRebasing:   "Rebasing",
	StatePushing:    "Pushing",
	StateDone:       "Done",
	StateConflicted: "Conflicted",
	StateFailed:     "Failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether a run ends in s
func (s State) Terminal() bool {
	return s == StateDone || s == StateConflicted || s == StateFailed
}

// TransitionFunc observes state changes. It runs on the run's goroutine.
type TransitionFunc func(from, to State)
