package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/quorumapp/quorum-api/internal/domain/event"
	"github.com/quorumapp/quorum-api/internal/logger"
)

// Scheduler is the surface the surrounding CRUD layer talks to: event
// creation (which schedules or resolves immediately) and vote casting.
type Scheduler struct {
	groups     GroupStore
	categories CategoryStore
	events     EventStore
	pending    PendingStore
	picker     ShardPicker
	resolver   *Resolver
	now        func() time.Time
	log        *log.Logger
}

// NewScheduler wires the scheduler service from its collaborators
func NewScheduler(
	groups GroupStore,
	categories CategoryStore,
	events EventStore,
	pending PendingStore,
	picker ShardPicker,
	resolver *Resolver,
) *Scheduler {
	return &Scheduler{
		groups:     groups,
		categories: categories,
		events:     events,
		pending:    pending,
		picker:     picker,
		resolver:   resolver,
		now:        time.Now,
		log:        logger.Scheduler(),
	}
}

// CreateEventParams carries everything needed to create and schedule an event
type CreateEventParams struct {
	GroupID           uuid.UUID
	CategoryID        uuid.UUID
	Name              string
	RSVPDurationMin   int
	VotingDurationMin int
}

// OnEventCreated creates the event, snapshots membership and category
// choices, and either schedules the consider deadline or, for a zero RSVP
// duration, resolves synchronously so the caller gets the advanced event in
// the same call.
func (s *Scheduler) OnEventCreated(ctx context.Context, p CreateEventParams) (*event.Event, *Outcome, error) {
	grp, err := s.groups.Get(ctx, p.GroupID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load group: %w", err)
	}

	cat, err := s.categories.Get(ctx, p.CategoryID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load category: %w", err)
	}
	if cat.GroupID != grp.ID {
		return nil, nil, fmt.Errorf("category %s does not belong to group %s", cat.ID, grp.ID)
	}

	ev := event.NewEvent(grp.ID, p.Name, p.RSVPDurationMin, p.VotingDurationMin, cat.ID, cat.Choices, grp.Members)
	if err := ev.Validate(); err != nil {
		return nil, nil, err
	}

	if err := s.events.Create(ctx, ev); err != nil {
		return nil, nil, fmt.Errorf("failed to create event: %w", err)
	}

	if p.RSVPDurationMin > 0 {
		shard := s.picker.Pick()
		expiry := s.now().UTC().Add(time.Duration(p.RSVPDurationMin) * time.Minute)

		if err := s.pending.Put(ctx, shard, ev.GroupID, ev.ID, expiry); err != nil {
			return nil, nil, fmt.Errorf("failed to schedule consider deadline: %w", err)
		}

		s.log.Info("Event scheduled",
			"group_id", ev.GroupID, "event_id", ev.ID, "shard", shard, "expires_at", expiry)
		return ev, &Outcome{Kind: OutcomeStillPending, Shard: shard, NewExpiry: expiry}, nil
	}

	// No consider stage: skip straight to tentative-choice selection.
	outcome, err := s.resolver.Resolve(ctx, ev.GroupID, ev.ID, "")
	if err != nil {
		return nil, nil, err
	}

	// Resolve reloads from the store; refresh the copy we hand back.
	ev, err = s.events.Get(ctx, ev.GroupID, ev.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload event: %w", err)
	}
	return ev, outcome, nil
}

// OnVoteCast records a member's yes/no vote on a tentative choice. It is a
// pure store mutation, never a lifecycle transition.
func (s *Scheduler) OnVoteCast(ctx context.Context, groupID, eventID uuid.UUID, choiceID, username string, value int) error {
	return s.events.CastVote(ctx, groupID, eventID, choiceID, username, value)
}
