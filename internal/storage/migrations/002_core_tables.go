package migrations

import (
	"gorm.io/gorm"

	"github.com/quorumapp/quorum-api/internal/domain/category"
	"github.com/quorumapp/quorum-api/internal/domain/event"
	"github.com/quorumapp/quorum-api/internal/domain/group"
)

// AllModels returns every domain model managed through GORM AutoMigrate
func AllModels() []any {
	return []any{
		&group.Group{},
		&category.Category{},
		&category.Rating{},
		&event.Event{},
	}
}

// migration002Up creates the core tables. Domain models go through GORM
// AutoMigrate; pending_shards is plain SQL because its JSONB entry map is
// mutated with raw jsonb operators, not through a model.
func migration002Up(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return err
	}

	return db.Exec(`
        CREATE TABLE IF NOT EXISTS pending_shards (
            shard_key VARCHAR(64) PRIMARY KEY,
            entries JSONB NOT NULL DEFAULT '{}'::jsonb,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )
    `).Error
}

// migration002Down drops all core tables
func migration002Down(db *gorm.DB) error {
	tables := []string{
		"pending_shards",
		"events",
		"ratings",
		"categories",
		"groups",
	}

	for _, table := range tables {
		if err := db.Exec("DROP TABLE IF EXISTS " + table + " CASCADE").Error; err != nil {
			return err
		}
	}
	return nil
}
