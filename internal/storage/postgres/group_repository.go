package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quorumapp/quorum-api/internal/domain/group"
	"github.com/quorumapp/quorum-api/internal/logger"
)

// PostgresGroupRepository implements GroupRepository using GORM
type PostgresGroupRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresGroupRepository creates a new group repository
func NewPostgresGroupRepository(db *gorm.DB) *PostgresGroupRepository {
	return &PostgresGroupRepository{
		db:  db,
		log: logger.Repository("group"),
	}
}

// Create persists a new group
func (r *PostgresGroupRepository) Create(ctx context.Context, g *group.Group) error {
	if err := r.db.WithContext(ctx).Create(g).Error; err != nil {
		r.log.Error("Failed to create group", "group_id", g.ID, "error", err)
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

// Get loads a group by id
func (r *PostgresGroupRepository) Get(ctx context.Context, id uuid.UUID) (*group.Group, error) {
	var g group.Group
	err := r.db.WithContext(ctx).First(&g, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, group.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &g, nil
}

// Delete removes a group. Pending entries of its events are not cleaned up
// synchronously; the scanner discovers them and reports group_gone.
func (r *PostgresGroupRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&group.Group{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete group: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return group.ErrNotFound
	}
	return nil
}
