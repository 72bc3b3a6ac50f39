package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quorumapp/quorum-api/internal/domain/event"
	"github.com/quorumapp/quorum-api/internal/logger"
)

// PostgresEventRepository implements EventRepository using GORM
type PostgresEventRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresEventRepository creates a new event repository
func NewPostgresEventRepository(db *gorm.DB) *PostgresEventRepository {
	return &PostgresEventRepository{
		db:  db,
		log: logger.Repository("event"),
	}
}

// Create persists a new event
func (r *PostgresEventRepository) Create(ctx context.Context, ev *event.Event) error {
	if err := r.db.WithContext(ctx).Create(ev).Error; err != nil {
		r.log.Error("Failed to create event", "group_id", ev.GroupID, "event_id", ev.ID, "error", err)
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// Get loads an event by its composite identity
func (r *PostgresEventRepository) Get(ctx context.Context, groupID, eventID uuid.UUID) (*event.Event, error) {
	var ev event.Event
	err := r.db.WithContext(ctx).First(&ev, "group_id = ? AND id = ?", groupID, eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, event.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &ev, nil
}

// GetByGroup lists a group's events, newest first
func (r *PostgresEventRepository) GetByGroup(ctx context.Context, groupID uuid.UUID) ([]*event.Event, error) {
	var events []*event.Event
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// ApplyTransition persists a lifecycle transition as a partial update, so
// concurrent edits to unrelated fields are unaffected. The terminal guard is
// duplicated here so a racing duplicate resolution can never overwrite a
// committed selected_choice.
func (r *PostgresEventRepository) ApplyTransition(ctx context.Context, groupID, eventID uuid.UUID, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&event.Event{}).
		Where("group_id = ? AND id = ?", groupID, eventID).
		Where("selected_choice IS NULL").
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to apply transition: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Either the event is gone or it already resolved under us.
		var count int64
		if err := r.db.WithContext(ctx).Model(&event.Event{}).
			Where("group_id = ? AND id = ?", groupID, eventID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to apply transition: %w", err)
		}
		if count == 0 {
			return event.ErrNotFound
		}
		return event.ErrAlreadyResolved
	}
	return nil
}

// CastVote records one member's vote inside voting_numbers. The row is locked
// for the read-modify-write so concurrent voters on the same event are safe.
func (r *PostgresEventRepository) CastVote(ctx context.Context, groupID, eventID uuid.UUID, choiceID, username string, value int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ev event.Event
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&ev, "group_id = ? AND id = ?", groupID, eventID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return event.ErrNotFound
			}
			return fmt.Errorf("failed to load event: %w", err)
		}

		if err := ev.CastVote(choiceID, username, value); err != nil {
			return err
		}

		return tx.Model(&event.Event{}).
			Where("group_id = ? AND id = ?", groupID, eventID).
			Update("voting_numbers", ev.VotingNumbers).Error
	})
}
