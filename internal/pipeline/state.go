package pipeline

import (
	"errors"
	"fmt"
	"slices"
)

// State is a pipeline state. Stage states are named after the work they do;
// COMPLETE, NEEDS_CLARIFICATION and FAILED are terminal.
type State string

const (
	StateInit               State = "INIT"
	StateRecognizingIntent  State = "RECOGNIZING_INTENT"
	StateExtractingEntities State = "EXTRACTING_ENTITIES"
	StateValidatingAssets   State = "VALIDATING_ASSETS"
	StateGeneratingSyntax   State = "GENERATING_SYNTAX"
	StateValidatingDeck     State = "VALIDATING_DECK"
	StateComplete           State = "COMPLETE"
	StateNeedsClarification State = "NEEDS_CLARIFICATION"
	StateFailed             State = "FAILED"
)

// ErrIllegalTransition is returned by the state machine for a transition
// the graph does not contain.
var ErrIllegalTransition = errors.New("pipeline: illegal state transition")

// transitions is the state graph. INIT may enter extraction directly when a
// clarification about entities is resumed.
var transitions = map[State][]State{
	StateInit:               {StateRecognizingIntent, StateExtractingEntities, StateFailed},
	StateRecognizingIntent:  {StateExtractingEntities, StateNeedsClarification, StateFailed},
	StateExtractingEntities: {StateValidatingAssets, StateNeedsClarification, StateFailed},
	StateValidatingAssets:   {StateGeneratingSyntax, StateNeedsClarification, StateFailed},
	StateGeneratingSyntax:   {StateValidatingDeck, StateNeedsClarification, StateFailed},
	StateValidatingDeck:     {StateComplete, StateNeedsClarification, StateFailed},
}

// Terminal reports whether s has no outgoing transitions.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateNeedsClarification || s == StateFailed
}

// IsStage reports whether s is one of the five stage states.
func (s State) IsStage() bool {
	switch s {
	case StateRecognizingIntent, StateExtractingEntities, StateValidatingAssets,
		StateGeneratingSyntax, StateValidatingDeck:
		return true
	}
	return false
}

// machine tracks one run through the state graph.
type machine struct {
	state State
	path  []State
}

func newMachine() *machine {
	return &machine{state: StateInit, path: []State{StateInit}}
}

func (m *machine) to(next State) error {
	if !slices.Contains(transitions[m.state], next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.state, next)
	}
	m.state = next
	m.path = append(m.path, next)
	return nil
}
