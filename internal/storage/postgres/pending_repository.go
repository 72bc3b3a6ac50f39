package postgres

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quorumapp/quorum-api/internal/logger"
	"github.com/quorumapp/quorum-api/internal/scheduler"
)

// PendingShard is one shard of the pending-event table. The whole shard's
// pending set lives in a single flat JSONB map, so the table's row count is
// bounded by the shard count no matter how many events are in flight.
type PendingShard struct {
	ShardKey  string       `json:"shard_key" gorm:"primaryKey;column:shard_key"`
	Entries   shardEntries `json:"entries" gorm:"type:jsonb"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (PendingShard) TableName() string {
	return "pending_shards"
}

// shardEntries maps composite keys to RFC3339 UTC expiration strings
type shardEntries map[string]string

// Value implements the driver.Valuer interface for database serialization
func (e shardEntries) Value() (driver.Value, error) {
	if e == nil {
		return json.Marshal(map[string]string{})
	}
	return json.Marshal(e)
}

// Scan implements the sql.Scanner interface for database deserialization
func (e *shardEntries) Scan(value interface{}) error {
	if value == nil {
		*e = shardEntries{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, e)
	case string:
		return json.Unmarshal([]byte(v), e)
	default:
		return fmt.Errorf("cannot scan %T into shardEntries", value)
	}
}

// PostgresPendingRepository implements PendingRepository over the sharded
// JSONB table. Put and Remove mutate a single key atomically inside the
// shard row, so concurrent resolutions of different events in the same shard
// never clobber each other.
type PostgresPendingRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresPendingRepository creates a new pending repository
func NewPostgresPendingRepository(db *gorm.DB) *PostgresPendingRepository {
	return &PostgresPendingRepository{
		db:  db,
		log: logger.Repository("pending"),
	}
}

// Put upserts the composite-key entry in the named shard. Re-entering a timed
// stage overwrites the entry in place. Failures always propagate: the caller
// must know when an event is lost from scheduling.
func (r *PostgresPendingRepository) Put(ctx context.Context, shard string, groupID, eventID uuid.UUID, expiresAt time.Time) error {
	key := scheduler.CompositeKey(groupID, eventID)
	stamp := expiresAt.UTC().Format(time.RFC3339Nano)

	err := r.db.WithContext(ctx).Exec(`
		INSERT INTO pending_shards (shard_key, entries, updated_at)
		VALUES (?, jsonb_build_object(?::text, ?::text), NOW())
		ON CONFLICT (shard_key)
		DO UPDATE SET entries = pending_shards.entries || excluded.entries, updated_at = NOW()`,
		shard, key, stamp).Error
	if err != nil {
		r.log.Error("Failed to put pending entry", "shard", shard, "key", key, "error", err)
		return fmt.Errorf("failed to put pending entry: %w", err)
	}
	return nil
}

// Scan returns every entry in a shard as a raw key to expiration map. An
// unparseable timestamp is a data-integrity problem: logged with context and
// skipped, never allowed to fail the rest of the shard.
func (r *PostgresPendingRepository) Scan(ctx context.Context, shard string) (map[string]time.Time, error) {
	var row PendingShard
	err := r.db.WithContext(ctx).First(&row, "shard_key = ?", shard).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return map[string]time.Time{}, nil
		}
		return nil, fmt.Errorf("failed to scan shard %s: %w", shard, err)
	}

	entries := make(map[string]time.Time, len(row.Entries))
	for key, stamp := range row.Entries {
		expiresAt, err := time.Parse(time.RFC3339Nano, stamp)
		if err != nil {
			r.log.Error("Skipping entry with unparseable expiration",
				"shard", shard, "raw_key", key, "raw_value", stamp, "error", err)
			continue
		}
		entries[key] = expiresAt
	}
	return entries, nil
}

// Remove deletes the composite-key entry from the named shard. Removing a key
// that is already gone is not an error.
func (r *PostgresPendingRepository) Remove(ctx context.Context, shard string, groupID, eventID uuid.UUID) error {
	key := scheduler.CompositeKey(groupID, eventID)

	err := r.db.WithContext(ctx).Exec(`
		UPDATE pending_shards
		SET entries = entries - ?::text, updated_at = NOW()
		WHERE shard_key = ?`,
		key, shard).Error
	if err != nil {
		r.log.Error("Failed to remove pending entry", "shard", shard, "key", key, "error", err)
		return fmt.Errorf("failed to remove pending entry: %w", err)
	}
	return nil
}
