package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quorumapp/quorum-api/internal/domain/category"
	"github.com/quorumapp/quorum-api/internal/domain/event"
	"github.com/quorumapp/quorum-api/internal/domain/group"
)

// GroupRepository defines the methods to interact with groups in the DB
type GroupRepository interface {
	Create(ctx context.Context, g *group.Group) error
	Get(ctx context.Context, id uuid.UUID) (*group.Group, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryRepository defines the methods to interact with categories and
// their ratings in the DB
type CategoryRepository interface {
	Create(ctx context.Context, c *category.Category) error
	Get(ctx context.Context, id uuid.UUID) (*category.Category, error)
	PutRating(ctx context.Context, r *category.Rating) error
	ForChoices(ctx context.Context, choiceIDs []string) (map[string]map[string]int, error)
}

// EventRepository defines the methods to interact with events in the DB.
// ApplyTransition and CastVote are partial updates, never full overwrites.
type EventRepository interface {
	Create(ctx context.Context, ev *event.Event) error
	Get(ctx context.Context, groupID, eventID uuid.UUID) (*event.Event, error)
	GetByGroup(ctx context.Context, groupID uuid.UUID) ([]*event.Event, error)
	ApplyTransition(ctx context.Context, groupID, eventID uuid.UUID, fields map[string]any) error
	CastVote(ctx context.Context, groupID, eventID uuid.UUID, choiceID, username string, value int) error
}

// PendingRepository defines the methods to interact with the sharded
// pending-event table
type PendingRepository interface {
	Put(ctx context.Context, shard string, groupID, eventID uuid.UUID, expiresAt time.Time) error
	Scan(ctx context.Context, shard string) (map[string]time.Time, error)
	Remove(ctx context.Context, shard string, groupID, eventID uuid.UUID) error
}
