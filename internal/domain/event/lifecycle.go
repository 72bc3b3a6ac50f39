package event

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/quorumapp/quorum-api/internal/domain/common"
)

// ErrAlreadyResolved marks a stale or duplicate resolution trigger against an
// event that already reached its terminal stage. Callers treat it as benign.
var ErrAlreadyResolved = errors.New("event already resolved")

// ErrWrongStage is returned when an operation is attempted outside the stage
// that allows it.
var ErrWrongStage = errors.New("event is not in the required stage")

// Transition describes one applied lifecycle step: the stage entered and the
// exact column set to persist as a partial update, so concurrent edits to
// unrelated fields are unaffected.
type Transition struct {
	To     Stage
	Fields map[string]any
}

// BeginVoting moves the event from considering to voting. It fixes the
// tentative choice set, initializes the vote matrix, and drops the category
// snapshot, which is no longer needed once the voting choices are fixed.
func (e *Event) BeginVoting(tentative common.ChoiceMap) (*Transition, error) {
	switch e.Stage() {
	case StageSelected:
		return nil, ErrAlreadyResolved
	case StageVoting:
		return nil, fmt.Errorf("%w: voting already started", ErrWrongStage)
	}

	if len(tentative) == 0 {
		return nil, fmt.Errorf("tentative choice set cannot be empty")
	}

	numbers := make(common.VoteMatrix, len(tentative))
	for choiceID := range tentative {
		numbers[choiceID] = map[string]int{}
	}

	e.TentativeChoices = tentative.Clone()
	e.VotingNumbers = numbers
	e.CategorySnapshot = nil
	e.SeenBy = pq.StringArray{}

	return &Transition{
		To: StageVoting,
		Fields: map[string]any{
			"tentative_choices": e.TentativeChoices,
			"voting_numbers":    e.VotingNumbers,
			"category_snapshot": nil,
			"seen_by":           e.SeenBy,
		},
	}, nil
}

// Finalize fixes the winning choice and makes the event terminal. It is legal
// from voting, or directly from considering when the voting stage is skipped
// (VotingDurationMin == 0). A terminal event is never finalized twice.
func (e *Event) Finalize(choiceLabel string) (*Transition, error) {
	switch e.Stage() {
	case StageSelected:
		return nil, ErrAlreadyResolved
	case StageConsidering:
		if e.VotingDurationMin != 0 {
			return nil, fmt.Errorf("%w: cannot skip voting with a non-zero voting duration", ErrWrongStage)
		}
	}

	if choiceLabel == "" {
		return nil, fmt.Errorf("selected choice cannot be empty")
	}

	e.SelectedChoice = &choiceLabel
	e.CategorySnapshot = nil
	e.SeenBy = pq.StringArray{}

	return &Transition{
		To: StageSelected,
		Fields: map[string]any{
			"selected_choice":   e.SelectedChoice,
			"category_snapshot": nil,
			"seen_by":           e.SeenBy,
		},
	}, nil
}

// CastVote records a member's 0/1 vote for a tentative choice. It is a pure
// data mutation, not a lifecycle transition.
func (e *Event) CastVote(choiceID, username string, value int) error {
	if e.Stage() != StageVoting {
		return fmt.Errorf("%w: votes are only accepted while voting", ErrWrongStage)
	}
	if value != 0 && value != 1 {
		return fmt.Errorf("vote value must be 0 or 1")
	}
	if _, ok := e.TentativeChoices[choiceID]; !ok {
		return fmt.Errorf("choice %q is not a tentative choice", choiceID)
	}
	if !e.IsOptedIn(username) {
		return fmt.Errorf("user %q is not opted in to this event", username)
	}

	if e.VotingNumbers == nil {
		e.VotingNumbers = common.VoteMatrix{}
	}
	if e.VotingNumbers[choiceID] == nil {
		e.VotingNumbers[choiceID] = map[string]int{}
	}
	e.VotingNumbers[choiceID][username] = value
	return nil
}
