package migrations

import "gorm.io/gorm"

// migration001Up enables the extensions the schema depends on
func migration001Up(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error
}

// migration001Down is a no-op: other databases may rely on the extension
func migration001Down(db *gorm.DB) error {
	return nil
}
