package assemble

import "fmt"

// State is the lifecycle position of one section.
type State string

const (
	StatePending          State = "PENDING"
	StateNoImage          State = "NO_IMAGE"
	StateAnchorResolved   State = "ANCHOR_RESOLVED"
	StateAnchorUnresolved State = "ANCHOR_UNRESOLVED"
	StateSkippedNoMatch   State = "SKIPPED_NO_MATCH"
	StateAcquired         State = "ACQUIRED"
	StateFailed           State = "FAILED"
	StateNormalized       State = "NORMALIZED"
	StatePublished        State = "PUBLISHED"
	StateLocalOnly        State = "LOCAL_ONLY"
	StateInserted         State = "INSERTED"
)

var transitions = map[State][]State{
	StatePending:          {StateNoImage, StateAnchorResolved, StateAnchorUnresolved},
	StateAnchorUnresolved: {StateSkippedNoMatch},
	StateAnchorResolved:   {StateAcquired, StateFailed},
	StateAcquired:         {StateNormalized, StateFailed},
	StateNormalized:       {StatePublished, StateLocalOnly},
	StatePublished:        {StateInserted},
	StateLocalOnly:        {StateInserted},
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	_, ok := transitions[s]
	return !ok
}

// CanTransition reports whether s may move to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IllegalTransitionError reports a programming error in the pass logic.
type IllegalTransitionError struct {
	Section int
	From    State
	To      State
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("section %d: illegal transition %s -> %s", e.Section, e.From, e.To)
}

// tracker holds one section's state and the path it took.
type tracker struct {
	section int
	state   State
	history []State
}

func newTracker(section int) *tracker {
	return &tracker{section: section, state: StatePending, history: []State{StatePending}}
}

func (t *tracker) advance(next State) error {
	if !t.state.CanTransition(next) {
		return &IllegalTransitionError{Section: t.section, From: t.state, To: next}
	}
	t.state = next
	t.history = append(t.history, next)
	return nil
}
