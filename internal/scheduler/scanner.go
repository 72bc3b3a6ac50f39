package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/quorumapp/quorum-api/internal/logger"
)

// ScanFailure records one entry that could not be processed, with enough
// context to repair it by hand.
type ScanFailure struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// Report is the aggregate result of one shard scan. The scan itself never
// short-circuits; OK is true only if every entry processed cleanly.
type Report struct {
	Shard     string        `json:"shard"`
	Processed int           `json:"processed"`
	Failed    []ScanFailure `json:"failed,omitempty"`
}

// OK reports whether every entry in the shard processed cleanly
func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

// Scanner walks one shard of the pending store per tick and hands every
// expired entry to the resolver. Invocation is fire-and-forget per entry: one
// failing entry never blocks its siblings.
type Scanner struct {
	pending  PendingStore
	resolver *Resolver
	now      func() time.Time
}

// NewScanner creates a scanner over the given store and resolver
func NewScanner(pending PendingStore, resolver *Resolver) *Scanner {
	return &Scanner{
		pending:  pending,
		resolver: resolver,
		now:      time.Now,
	}
}

// RunScan processes a single shard once. Only a failure to load the shard
// itself is returned as an error; per-entry failures are accumulated in the
// report.
func (s *Scanner) RunScan(ctx context.Context, shard string) (*Report, error) {
	log := logger.Scanner(shard)
	report := &Report{Shard: shard}

	entries, err := s.pending.Scan(ctx, shard)
	if err != nil {
		return nil, fmt.Errorf("failed to scan shard %s: %w", shard, err)
	}

	now := s.now().UTC()
	for key, expiresAt := range entries {
		groupID, eventID, err := ParseCompositeKey(key)
		if err != nil {
			log.Error("Skipping malformed pending entry", "raw_key", key, "error", err)
			report.Failed = append(report.Failed, ScanFailure{Key: key, Reason: err.Error()})
			continue
		}

		if expiresAt.After(now) {
			continue
		}

		outcome, err := s.resolver.Resolve(ctx, groupID, eventID, shard)
		if err != nil {
			log.Error("Resolution failed", "raw_key", key, "error", err)
			report.Failed = append(report.Failed, ScanFailure{Key: key, Reason: err.Error()})
			continue
		}

		log.Debug("Resolved pending entry",
			"group_id", groupID, "event_id", eventID, "outcome", outcome.Kind.String())
		report.Processed++
	}

	if !report.OK() {
		log.Warn("Shard scan finished with failures",
			"processed", report.Processed, "failed", len(report.Failed))
	}
	return report, nil
}
