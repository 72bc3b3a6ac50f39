// Package scheduler implements the pending-event lifecycle engine: the
// sharded pending store contract, the partition scanner that finds expired
// entries, and the resolution executor that advances events one transition
// at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// KeyDelimiter separates group id and event id inside a composite key. It is
// reserved: generated ids are UUIDs and can never contain it.
const KeyDelimiter = ";"

// ErrMalformedKey marks a composite key that does not parse. It is a
// data-integrity error: logged and skipped, never allowed to abort a scan.
var ErrMalformedKey = errors.New("malformed composite key")

// PendingStore is the sharded key/expiration table. Each shard holds a flat
// map of composite keys to an expiration instant; the row count is bounded by
// the shard count regardless of event volume.
//
// Scan returns the raw entry map so callers can report malformed keys
// individually instead of losing the whole shard.
type PendingStore interface {
	Put(ctx context.Context, shard string, groupID, eventID uuid.UUID, expiresAt time.Time) error
	Scan(ctx context.Context, shard string) (map[string]time.Time, error)
	Remove(ctx context.Context, shard string, groupID, eventID uuid.UUID) error
}

// CompositeKey builds the "<groupID>;<eventID>" lookup key
func CompositeKey(groupID, eventID uuid.UUID) string {
	return groupID.String() + KeyDelimiter + eventID.String()
}

// ParseCompositeKey splits and validates a composite key
func ParseCompositeKey(key string) (groupID, eventID uuid.UUID, err error) {
	parts := strings.Split(key, KeyDelimiter)
	if len(parts) != 2 {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}

	groupID, err = uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: bad group id in %q", ErrMalformedKey, key)
	}
	eventID, err = uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: bad event id in %q", ErrMalformedKey, key)
	}
	return groupID, eventID, nil
}
