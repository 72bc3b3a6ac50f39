package migrations

import "gorm.io/gorm"

// migration003Up creates the indexes the hot paths rely on
func migration003Up(db *gorm.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_events_group_created ON events (group_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_events_unresolved ON events (group_id) WHERE selected_choice IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_categories_group ON categories (group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_choice ON ratings (choice_id)`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// migration003Down drops the indexes
func migration003Down(db *gorm.DB) error {
	statements := []string{
		`DROP INDEX IF EXISTS idx_events_group_created`,
		`DROP INDEX IF EXISTS idx_events_unresolved`,
		`DROP INDEX IF EXISTS idx_categories_group`,
		`DROP INDEX IF EXISTS idx_ratings_choice`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
