package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/quorumapp/quorum-api/internal/domain/category"
	"github.com/quorumapp/quorum-api/internal/domain/event"
	"github.com/quorumapp/quorum-api/internal/domain/group"
	"github.com/quorumapp/quorum-api/internal/logger"
	"github.com/quorumapp/quorum-api/internal/selection"
)

// EventStore is the event persistence the scheduler depends on. Transitions
// are persisted as partial updates so concurrent edits to unrelated fields
// are unaffected.
type EventStore interface {
	Get(ctx context.Context, groupID, eventID uuid.UUID) (*event.Event, error)
	Create(ctx context.Context, ev *event.Event) error
	ApplyTransition(ctx context.Context, groupID, eventID uuid.UUID, fields map[string]any) error
	CastVote(ctx context.Context, groupID, eventID uuid.UUID, choiceID, username string, value int) error
}

// GroupStore loads groups and their membership
type GroupStore interface {
	Get(ctx context.Context, id uuid.UUID) (*group.Group, error)
}

// CategoryStore loads categories for the creation-time snapshot
type CategoryStore interface {
	Get(ctx context.Context, id uuid.UUID) (*category.Category, error)
}

// RatingStore loads the members' ratings for a set of choice ids,
// keyed choice id -> username -> rating.
type RatingStore interface {
	ForChoices(ctx context.Context, choiceIDs []string) (map[string]map[string]int, error)
}

// Notifier delivers best-effort change notifications after a transition has
// been persisted. Failures never roll the transition back.
type Notifier interface {
	EventChanged(ctx context.Context, groupID, eventID uuid.UUID, stage event.Stage, selected string) error
}

// OutcomeKind classifies the result of one resolution
type OutcomeKind int

const (
	// OutcomeStillPending means the event entered another timed stage and
	// was rescheduled.
	OutcomeStillPending OutcomeKind = iota + 1
	// OutcomeFinalized means the event reached its terminal stage.
	OutcomeFinalized
	// OutcomeAlreadyResolved means a stale or duplicate trigger hit an event
	// that was already terminal. Benign; no writes were performed.
	OutcomeAlreadyResolved
	// OutcomeGroupGone means the owning group no longer exists. Benign; the
	// dangling pending entry is cleaned up.
	OutcomeGroupGone
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeStillPending:
		return "still_pending"
	case OutcomeFinalized:
		return "finalized"
	case OutcomeAlreadyResolved:
		return "already_resolved"
	case OutcomeGroupGone:
		return "group_gone"
	default:
		return "unknown"
	}
}

// Outcome describes what one resolution did, so callers branch on data
// rather than on error types.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	Shard     string      `json:"shard,omitempty"`
	NewExpiry time.Time   `json:"new_expiry,omitempty"`
	Selected  string      `json:"selected,omitempty"`
}

// Resolver is the per-event unit of work: it loads the event, applies exactly
// one lifecycle transition, persists it, and updates the pending store on the
// shard the trigger came from.
type Resolver struct {
	groups   GroupStore
	events   EventStore
	ratings  RatingStore
	pending  PendingStore
	picker   ShardPicker
	selector *selection.Selector
	tally    *selection.Tally
	notifier Notifier
	topN     int
	now      func() time.Time
	log      *log.Logger
}

// NewResolver wires a resolver from its collaborators. topN is the size of
// the tentative set when entering a voting stage.
func NewResolver(
	groups GroupStore,
	events EventStore,
	ratings RatingStore,
	pending PendingStore,
	picker ShardPicker,
	selector *selection.Selector,
	tally *selection.Tally,
	notifier Notifier,
	topN int,
) *Resolver {
	return &Resolver{
		groups:   groups,
		events:   events,
		ratings:  ratings,
		pending:  pending,
		picker:   picker,
		selector: selector,
		tally:    tally,
		notifier: notifier,
		topN:     topN,
		now:      time.Now,
		log:      logger.Scheduler(),
	}
}

// Resolve applies exactly one transition to the event, never more, even if
// the resulting stage would itself already be expired; the next tick handles
// that. originShard is the shard the trigger was read from, or empty for the
// synchronous creation-time path.
func (r *Resolver) Resolve(ctx context.Context, groupID, eventID uuid.UUID, originShard string) (*Outcome, error) {
	if _, err := r.groups.Get(ctx, groupID); err != nil {
		if errors.Is(err, group.ErrNotFound) {
			r.log.Info("Group gone, cleaning up pending entry",
				"group_id", groupID, "event_id", eventID, "shard", originShard)
			r.cleanupEntry(ctx, originShard, groupID, eventID)
			return &Outcome{Kind: OutcomeGroupGone}, nil
		}
		return nil, fmt.Errorf("failed to load group %s: %w", groupID, err)
	}

	ev, err := r.events.Get(ctx, groupID, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event %s/%s: %w", groupID, eventID, err)
	}

	switch stage := ev.Stage(); stage {
	case event.StageSelected:
		// Stale or duplicate trigger. The committed decision is reported as
		// is; re-deriving a winner here would silently overwrite it.
		r.cleanupEntry(ctx, originShard, groupID, eventID)
		return &Outcome{Kind: OutcomeAlreadyResolved, Selected: *ev.SelectedChoice}, nil

	case event.StageConsidering:
		return r.leaveConsidering(ctx, ev, originShard)

	case event.StageVoting:
		return r.finalizeVoting(ctx, ev, originShard)

	default:
		return nil, fmt.Errorf("event %s/%s in unknown stage %v", groupID, eventID, stage)
	}
}

// leaveConsidering selects the tentative choices and either opens voting or,
// when the voting stage is skipped, finalizes directly on the top choice.
func (r *Resolver) leaveConsidering(ctx context.Context, ev *event.Event, originShard string) (*Outcome, error) {
	choiceIDs := make([]string, 0, len(ev.CategorySnapshot))
	for id := range ev.CategorySnapshot {
		choiceIDs = append(choiceIDs, id)
	}

	ratings, err := r.ratings.ForChoices(ctx, choiceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}

	topN := r.topN
	if ev.VotingDurationMin == 0 {
		topN = 1
	}

	chosen, err := r.selector.Select(ev.CategorySnapshot, ratings, ev.OptedIn, topN)
	if err != nil {
		return nil, fmt.Errorf("choice selection failed: %w", err)
	}

	if ev.VotingDurationMin == 0 {
		transition, err := ev.Finalize(chosen[0].Label)
		if err != nil {
			return nil, err
		}
		if err := r.events.ApplyTransition(ctx, ev.GroupID, ev.ID, transition.Fields); err != nil {
			return nil, fmt.Errorf("failed to persist transition: %w", err)
		}

		r.cleanupEntry(ctx, originShard, ev.GroupID, ev.ID)
		r.notify(ctx, ev, chosen[0].Label)
		return &Outcome{Kind: OutcomeFinalized, Selected: chosen[0].Label}, nil
	}

	tentative := make(map[string]string, len(chosen))
	for _, c := range chosen {
		tentative[c.ID] = c.Label
	}

	transition, err := ev.BeginVoting(tentative)
	if err != nil {
		return nil, err
	}
	if err := r.events.ApplyTransition(ctx, ev.GroupID, ev.ID, transition.Fields); err != nil {
		return nil, fmt.Errorf("failed to persist transition: %w", err)
	}

	// Re-entering a timed stage overwrites the entry in place on the shard
	// the trigger came from; only the creation path has no shard yet.
	shard := originShard
	if shard == "" {
		shard = r.picker.Pick()
	}

	expiry := r.now().UTC().Add(time.Duration(ev.VotingDurationMin) * time.Minute)
	if err := r.pending.Put(ctx, shard, ev.GroupID, ev.ID, expiry); err != nil {
		// The event is in the voting stage but unscheduled: surfaced, never
		// swallowed, so the caller knows it is lost from scheduling.
		return nil, fmt.Errorf("failed to schedule voting deadline: %w", err)
	}

	r.notify(ctx, ev, "")
	return &Outcome{Kind: OutcomeStillPending, Shard: shard, NewExpiry: expiry}, nil
}

// finalizeVoting tallies the votes and fixes the winner
func (r *Resolver) finalizeVoting(ctx context.Context, ev *event.Event, originShard string) (*Outcome, error) {
	winnerID, err := r.tally.Winner(ev.VotingNumbers)
	if err != nil {
		return nil, fmt.Errorf("vote tally failed: %w", err)
	}

	label, ok := ev.TentativeChoices[winnerID]
	if !ok {
		return nil, fmt.Errorf("winner %q is not among the tentative choices", winnerID)
	}

	transition, err := ev.Finalize(label)
	if err != nil {
		return nil, err
	}
	if err := r.events.ApplyTransition(ctx, ev.GroupID, ev.ID, transition.Fields); err != nil {
		return nil, fmt.Errorf("failed to persist transition: %w", err)
	}

	r.cleanupEntry(ctx, originShard, ev.GroupID, ev.ID)
	r.notify(ctx, ev, label)
	return &Outcome{Kind: OutcomeFinalized, Selected: label}, nil
}

// cleanupEntry removes a pending entry after the event no longer needs it.
// Removal failures are logged, not returned: the entry self-heals on the next
// tick, which will find the event terminal and retry the cleanup.
func (r *Resolver) cleanupEntry(ctx context.Context, shard string, groupID, eventID uuid.UUID) {
	if shard == "" {
		return
	}
	if err := r.pending.Remove(ctx, shard, groupID, eventID); err != nil {
		r.log.Error("Failed to remove pending entry",
			"shard", shard, "group_id", groupID, "event_id", eventID, "error", err)
	}
}

// notify fires the best-effort change notification after persistence
func (r *Resolver) notify(ctx context.Context, ev *event.Event, selected string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.EventChanged(ctx, ev.GroupID, ev.ID, ev.Stage(), selected); err != nil {
		r.log.Warn("Change notification failed",
			"group_id", ev.GroupID, "event_id", ev.ID, "error", err)
	}
}
