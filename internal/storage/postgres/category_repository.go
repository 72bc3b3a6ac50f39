package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quorumapp/quorum-api/internal/domain/category"
	"github.com/quorumapp/quorum-api/internal/logger"
)

// PostgresCategoryRepository implements CategoryRepository using GORM
type PostgresCategoryRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresCategoryRepository creates a new category repository
func NewPostgresCategoryRepository(db *gorm.DB) *PostgresCategoryRepository {
	return &PostgresCategoryRepository{
		db:  db,
		log: logger.Repository("category"),
	}
}

// Create persists a new category
func (r *PostgresCategoryRepository) Create(ctx context.Context, c *category.Category) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		r.log.Error("Failed to create category", "category_id", c.ID, "error", err)
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// Get loads a category by id
func (r *PostgresCategoryRepository) Get(ctx context.Context, id uuid.UUID) (*category.Category, error) {
	var c category.Category
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, category.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// PutRating upserts a member's rating of a choice
func (r *PostgresCategoryRepository) PutRating(ctx context.Context, rating *category.Rating) error {
	if err := rating.Validate(); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "choice_id"}, {Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(rating).Error
	if err != nil {
		return fmt.Errorf("failed to store rating: %w", err)
	}
	return nil
}

// ForChoices loads all ratings for the given choice ids, keyed
// choice id -> username -> rating. Choices nobody rated are simply absent.
func (r *PostgresCategoryRepository) ForChoices(ctx context.Context, choiceIDs []string) (map[string]map[string]int, error) {
	if len(choiceIDs) == 0 {
		return map[string]map[string]int{}, nil
	}

	var ratings []category.Rating
	err := r.db.WithContext(ctx).Where("choice_id IN ?", choiceIDs).Find(&ratings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}

	out := make(map[string]map[string]int, len(choiceIDs))
	for _, rating := range ratings {
		if out[rating.ChoiceID] == nil {
			out[rating.ChoiceID] = map[string]int{}
		}
		out[rating.ChoiceID][rating.Username] = rating.Value
	}
	return out, nil
}
