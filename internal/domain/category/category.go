package category

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quorumapp/quorum-api/internal/domain/common"
)

// ErrNotFound is returned when a category does not exist
var ErrNotFound = errors.New("category not found")

// Category represents a shared pool of choices a group can run events over.
// Events copy the choice set at creation time, so editing or deleting a
// category never changes an in-flight event.
type Category struct {
	ID        uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	GroupID   uuid.UUID        `json:"group_id" gorm:"type:uuid;not null;index"`
	Name      string           `json:"name" gorm:"not null"`
	Choices   common.ChoiceMap `json:"choices" gorm:"type:jsonb"`
	CreatedAt time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Category) TableName() string {
	return "categories"
}

// BeforeCreate sets a UUID before creating the record
func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// NewCategory creates a new category with the given choices
func NewCategory(groupID uuid.UUID, name string, choices common.ChoiceMap) *Category {
	return &Category{
		ID:      uuid.New(),
		GroupID: groupID,
		Name:    name,
		Choices: choices,
	}
}

// Validate checks if the category data is valid
func (c *Category) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.GroupID == uuid.Nil {
		return fmt.Errorf("group_id is required")
	}
	if len(c.Choices) == 0 {
		return fmt.Errorf("at least one choice is required")
	}
	return nil
}

// Rating is a member's standing 0..5 rating of a choice. Ratings feed the
// tentative-choice selection when an event leaves its considering stage.
type Rating struct {
	ChoiceID  string    `json:"choice_id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"primaryKey"`
	Value     int       `json:"value" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Rating) TableName() string {
	return "ratings"
}

// Validate checks if the rating is within the accepted range
func (r *Rating) Validate() error {
	if r.ChoiceID == "" {
		return fmt.Errorf("choice_id is required")
	}
	if r.Username == "" {
		return fmt.Errorf("username is required")
	}
	if r.Value < 0 || r.Value > 5 {
		return fmt.Errorf("value must be between 0 and 5")
	}
	return nil
}
