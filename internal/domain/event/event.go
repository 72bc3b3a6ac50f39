package event

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/quorumapp/quorum-api/internal/domain/common"
)

// ErrNotFound is returned when an event does not exist
var ErrNotFound = errors.New("event not found")

// Event is the unit being scheduled. Its identity is (GroupID, ID) and is
// immutable once created. The lifecycle stage is never persisted: it is
// derived from TentativeChoices and SelectedChoice alone, so the summary can
// never drift apart from the data it summarizes.
type Event struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	GroupID uuid.UUID `json:"group_id" gorm:"type:uuid;primaryKey"`
	Name    string    `json:"name" gorm:"not null"`

	// Durations are minutes; 0 means the stage is skipped entirely.
	RSVPDurationMin   int `json:"rsvp_duration_min" gorm:"column:rsvp_duration_min;not null"`
	VotingDurationMin int `json:"voting_duration_min" gorm:"column:voting_duration_min;not null"`

	// OptedIn is the group membership snapshot taken at creation.
	OptedIn pq.StringArray `json:"opted_in" gorm:"type:text[]"`

	CategoryID uuid.UUID `json:"category_id" gorm:"type:uuid;not null"`

	// CategorySnapshot is a copy of the category's choice set taken at
	// creation, dropped once the voting choices are fixed.
	CategorySnapshot common.ChoiceMap `json:"category_snapshot,omitempty" gorm:"type:jsonb"`

	// TentativeChoices is populated exactly once, on leaving the considering
	// stage, and kept afterwards as the historical record.
	TentativeChoices common.ChoiceMap `json:"tentative_choices,omitempty" gorm:"type:jsonb"`

	// VotingNumbers holds the 0/1 votes per tentative choice per username.
	VotingNumbers common.VoteMatrix `json:"voting_numbers,omitempty" gorm:"type:jsonb"`

	// SelectedChoice is the final winning label; non-nil means terminal and
	// it is never overwritten.
	SelectedChoice *string `json:"selected_choice,omitempty"`

	// SeenBy is cleared on every transition so members see the change.
	SeenBy pq.StringArray `json:"seen_by" gorm:"type:text[]"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Event) TableName() string {
	return "events"
}

// BeforeCreate sets a UUID before creating the record
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// NewEvent creates an event in the considering stage, snapshotting the
// group's membership and the category's choice set.
func NewEvent(groupID uuid.UUID, name string, rsvpMin, votingMin int, categoryID uuid.UUID, choices common.ChoiceMap, members []string) *Event {
	return &Event{
		ID:                uuid.New(),
		GroupID:           groupID,
		Name:              name,
		RSVPDurationMin:   rsvpMin,
		VotingDurationMin: votingMin,
		OptedIn:           append(pq.StringArray{}, members...),
		CategoryID:        categoryID,
		CategorySnapshot:  choices.Clone(),
		SeenBy:            pq.StringArray{},
	}
}

// Validate checks if the event data is valid
func (e *Event) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	if e.GroupID == uuid.Nil {
		return fmt.Errorf("group_id is required")
	}
	if e.CategoryID == uuid.Nil {
		return fmt.Errorf("category_id is required")
	}
	if e.RSVPDurationMin < 0 || e.VotingDurationMin < 0 {
		return fmt.Errorf("durations must be non-negative")
	}
	if len(e.CategorySnapshot) == 0 {
		return fmt.Errorf("category snapshot must contain at least one choice")
	}
	return nil
}

// IsOptedIn checks whether the username was captured in the opt-in snapshot
func (e *Event) IsOptedIn(username string) bool {
	return slices.Contains(e.OptedIn, username)
}

// Stage derives the lifecycle stage from the two key fields. This is the
// single place the derivation lives.
func (e *Event) Stage() Stage {
	switch {
	case e.SelectedChoice != nil:
		return StageSelected
	case len(e.TentativeChoices) > 0:
		return StageVoting
	default:
		return StageConsidering
	}
}

// Stage represents the derived lifecycle stage of an event
type Stage byte

const (
	StageConsidering Stage = iota
	StageVoting
	StageSelected
)

func (s Stage) String() string {
	switch s {
	case StageConsidering:
		return "considering"
	case StageVoting:
		return "voting"
	case StageSelected:
		return "selected"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaler interface
func (s Stage) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// StageFromString converts a string to a Stage
func StageFromString(s string) (Stage, bool) {
	switch s {
	case "considering":
		return StageConsidering, true
	case "voting":
		return StageVoting, true
	case "selected":
		return StageSelected, true
	default:
		return StageConsidering, false
	}
}
