package group

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a group does not exist. A group vanishing
// while one of its events is still pending is an expected condition, not a
// fault: deletion does not synchronously clean up pending entries.
var ErrNotFound = errors.New("group not found")

// Group represents a decision-making group and its active membership.
type Group struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Name      string         `json:"name" gorm:"not null"`
	Members   pq.StringArray `json:"members" gorm:"type:text[]"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Group) TableName() string {
	return "groups"
}

// BeforeCreate sets a UUID before creating the record
func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// NewGroup creates a new group with the given name and members
func NewGroup(name string, members []string) *Group {
	return &Group{
		ID:      uuid.New(),
		Name:    name,
		Members: members,
	}
}

// IsMember checks if the given username belongs to the group
func (g *Group) IsMember(username string) bool {
	return slices.Contains(g.Members, username)
}

// Validate checks if the group data is valid
func (g *Group) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(g.Members) == 0 {
		return fmt.Errorf("at least one member is required")
	}
	return nil
}
