package scheduler

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"time"
)

// ShardPicker chooses the shard a new pending entry is written to. The pick
// is independent of event identity, so the same event can land on a different
// shard each time it re-enters a timed stage; whoever writes an entry must
// carry the shard key along with the resolution trigger instead of
// recomputing it later.
type ShardPicker interface {
	Pick() string
}

// ShardKey names the nth shard
func ShardKey(n int) string {
	return "shard-" + strconv.Itoa(n)
}

// AllShards lists every shard key for a given shard count
func AllShards(count int) []string {
	shards := make([]string, count)
	for i := range shards {
		shards[i] = ShardKey(i)
	}
	return shards
}

// ValidShardKey reports whether key names one of the shardCount shards
func ValidShardKey(key string, shardCount int) bool {
	for i := 0; i < shardCount; i++ {
		if key == ShardKey(i) {
			return true
		}
	}
	return false
}

// ClockShardPicker hashes the current wall-clock milliseconds over the shard
// count: pseudo-random load balancing, not event-affine placement.
type ClockShardPicker struct {
	shardCount int
	now        func() time.Time
}

// NewClockShardPicker creates a picker over shardCount shards
func NewClockShardPicker(shardCount int) (*ClockShardPicker, error) {
	if shardCount <= 0 {
		return nil, fmt.Errorf("shard count must be positive, got %d", shardCount)
	}
	return &ClockShardPicker{shardCount: shardCount, now: time.Now}, nil
}

// Pick returns the shard key for the current instant
func (p *ClockShardPicker) Pick() string {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d", p.now().UnixMilli())
	return ShardKey(int(h.Sum32() % uint32(p.shardCount)))
}

// FixedShardPicker always picks the same shard; used in tests
type FixedShardPicker struct {
	Shard string
}

// Pick returns the fixed shard key
func (p FixedShardPicker) Pick() string {
	return p.Shard
}
