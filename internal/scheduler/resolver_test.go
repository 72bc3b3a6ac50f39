package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumapp/quorum-api/internal/domain/common"
	"github.com/quorumapp/quorum-api/internal/domain/event"
	"github.com/quorumapp/quorum-api/internal/domain/group"
	"github.com/quorumapp/quorum-api/internal/selection"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type harness struct {
	groups   *fakeGroups
	events   *fakeEvents
	ratings  *fakeRatings
	pending  *fakePending
	notifier *fakeNotifier
	resolver *Resolver

	group *group.Group
	event *event.Event
}

// newHarness wires a resolver over in-memory stores with a deterministic
// selector (no exploration noise) and a fixed clock. The event starts in the
// considering stage with choices c1..c3.
func newHarness(t *testing.T, rsvpMin, votingMin int) *harness {
	t.Helper()

	grp := group.NewGroup("movie club", []string{"alice", "bob"})
	choices := common.ChoiceMap{"c1": "Pizza", "c2": "Sushi", "c3": "Tacos"}
	ev := event.NewEvent(grp.ID, "friday dinner", rsvpMin, votingMin, uuid.New(), choices, grp.Members)

	h := &harness{
		groups:   newFakeGroups(grp),
		events:   newFakeEvents(),
		ratings:  &fakeRatings{data: map[string]map[string]int{}},
		pending:  newFakePending(),
		notifier: &fakeNotifier{},
		group:    grp,
		event:    ev,
	}
	require.NoError(t, h.events.Create(context.Background(), ev))

	selector, err := selection.NewSelector(0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	tally := selection.NewTally(rand.New(rand.NewSource(1)))

	h.resolver = NewResolver(
		h.groups, h.events, h.ratings, h.pending,
		FixedShardPicker{Shard: "shard-0"},
		selector, tally, h.notifier, 2,
	)
	h.resolver.now = func() time.Time { return testNow }
	return h
}

func TestResolveGroupGoneCleansEntry(t *testing.T) {
	h := newHarness(t, 30, 30)
	ctx := context.Background()

	require.NoError(t, h.pending.Put(ctx, "shard-4", h.group.ID, h.event.ID, testNow))
	delete(h.groups.groups, h.group.ID)

	outcome, err := h.resolver.Resolve(ctx, h.group.ID, h.event.ID, "shard-4")
	require.NoError(t, err)

	assert.Equal(t, OutcomeGroupGone, outcome.Kind)
	assert.Zero(t, h.pending.entryCount())
	assert.Zero(t, h.events.writes)
	assert.Empty(t, h.notifier.sent)
}

func TestResolveGroupLoadFailurePropagates(t *testing.T) {
	h := newHarness(t, 30, 30)
	h.groups.err = errors.New("connection refused")

	_, err := h.resolver.Resolve(context.Background(), h.group.ID, h.event.ID, "shard-4")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, group.ErrNotFound)
}

func TestResolveConsideringOpensVoting(t *testing.T) {
	h := newHarness(t, 30, 30)
	ctx := context.Background()

	// Ratings make c1 and c2 the deterministic top 2.
	h.ratings.data = map[string]map[string]int{
		"c1": {"alice": 5, "bob": 5},
		"c2": {"alice": 4, "bob": 4},
		"c3": {"alice": 0, "bob": 0},
	}

	outcome, err := h.resolver.Resolve(ctx, h.group.ID, h.event.ID, "shard-4")
	require.NoError(t, err)

	assert.Equal(t, OutcomeStillPending, outcome.Kind)
	// Re-entering a timed stage keeps the entry on the origin shard.
	assert.Equal(t, "shard-4", outcome.Shard)
	assert.Equal(t, testNow.Add(30*time.Minute), outcome.NewExpiry)

	expiry, ok := h.pending.shards["shard-4"][CompositeKey(h.group.ID, h.event.ID)]
	require.True(t, ok)
	assert.Equal(t, testNow.Add(30*time.Minute), expiry)

	stored := h.events.stored(h.group.ID, h.event.ID)
	assert.Equal(t, event.StageVoting, stored.Stage())
	assert.Equal(t, common.ChoiceMap{"c1": "Pizza", "c2": "Sushi"}, stored.TentativeChoices)
	assert.Nil(t, stored.CategorySnapshot)
	require.Len(t, stored.VotingNumbers, 2)
	assert.NotNil(t, stored.VotingNumbers["c1"])

	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, event.StageVoting, h.notifier.sent[0].stage)
}

func TestResolveConsideringWithoutOriginPicksShard(t *testing.T) {
	h := newHarness(t, 0, 30)

	outcome, err := h.resolver.Resolve(context.Background(), h.group.ID, h.event.ID, "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeStillPending, outcome.Kind)
	assert.Equal(t, "shard-0", outcome.Shard)
	assert.Len(t, h.pending.shards["shard-0"], 1)
}

func TestResolveZeroVotingDurationFinalizesDirectly(t *testing.T) {
	h := newHarness(t, 30, 0)
	ctx := context.Background()

	h.ratings.data = map[string]map[string]int{
		"c2": {"alice": 5, "bob": 5},
	}
	require.NoError(t, h.pending.Put(ctx, "shard-4", h.group.ID, h.event.ID, testNow))

	outcome, err := h.resolver.Resolve(ctx, h.group.ID, h.event.ID, "shard-4")
	require.NoError(t, err)

	assert.Equal(t, OutcomeFinalized, outcome.Kind)
	assert.Equal(t, "Sushi", outcome.Selected)

	stored := h.events.stored(h.group.ID, h.event.ID)
	assert.Equal(t, event.StageSelected, stored.Stage())
	require.NotNil(t, stored.SelectedChoice)
	assert.Equal(t, "Sushi", *stored.SelectedChoice)
	// Skipping voting leaves no tentative set behind.
	assert.Empty(t, stored.TentativeChoices)

	assert.Zero(t, h.pending.entryCount())
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, event.StageSelected, h.notifier.sent[0].stage)
	assert.Equal(t, "Sushi", h.notifier.sent[0].selected)
}

func TestResolveVotingTalliesWinner(t *testing.T) {
	h := newHarness(t, 30, 30)
	ctx := context.Background()

	// First resolution opens voting.
	_, err := h.resolver.Resolve(ctx, h.group.ID, h.event.ID, "shard-4")
	require.NoError(t, err)

	require.NoError(t, h.events.CastVote(ctx, h.group.ID, h.event.ID, "c1", "alice", 1))
	require.NoError(t, h.events.CastVote(ctx, h.group.ID, h.event.ID, "c1", "bob", 1))
	require.NoError(t, h.events.CastVote(ctx, h.group.ID, h.event.ID, "c2", "alice", 0))

	outcome, err := h.resolver.Resolve(ctx, h.group.ID, h.event.ID, "shard-4")
	require.NoError(t, err)

	assert.Equal(t, OutcomeFinalized, outcome.Kind)
	assert.Equal(t, "Pizza", outcome.Selected)
	assert.Zero(t, h.pending.entryCount())

	stored := h.events.stored(h.group.ID, h.event.ID)
	assert.Equal(t, event.StageSelected, stored.Stage())
	// The tentative set survives as the historical record.
	assert.NotEmpty(t, stored.TentativeChoices)
}

// A duplicate trigger against a terminal event reports the committed choice
// and performs no writes.
func TestResolveIdempotentOnTerminalEvent(t *testing.T) {
	h := newHarness(t, 30, 0)
	ctx := context.Background()

	first, err := h.resolver.Resolve(ctx, h.group.ID, h.event.ID, "shard-4")
	require.NoError(t, err)
	require.Equal(t, OutcomeFinalized, first.Kind)
	writesAfterFirst := h.events.writes

	require.NoError(t, h.pending.Put(ctx, "shard-4", h.group.ID, h.event.ID, testNow))

	second, err := h.resolver.Resolve(ctx, h.group.ID, h.event.ID, "shard-4")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAlreadyResolved, second.Kind)
	assert.Equal(t, first.Selected, second.Selected)
	assert.Equal(t, writesAfterFirst, h.events.writes)
	// The stale entry is swept away.
	assert.Zero(t, h.pending.entryCount())
}

// Exactly one transition per invocation: opening voting never finalizes in
// the same call, even though the voting deadline is computed from the same
// clock tick.
func TestResolveAppliesSingleTransition(t *testing.T) {
	h := newHarness(t, 30, 30)

	outcome, err := h.resolver.Resolve(context.Background(), h.group.ID, h.event.ID, "shard-4")
	require.NoError(t, err)

	assert.Equal(t, OutcomeStillPending, outcome.Kind)
	assert.Equal(t, 1, h.events.writes)
	assert.Equal(t, event.StageVoting, h.events.stored(h.group.ID, h.event.ID).Stage())
}

func TestResolvePutFailurePropagates(t *testing.T) {
	h := newHarness(t, 30, 30)
	h.pending.putErr = errors.New("shard row locked")

	_, err := h.resolver.Resolve(context.Background(), h.group.ID, h.event.ID, "shard-4")
	assert.Error(t, err)

	// The transition itself was persisted before the scheduling write failed.
	assert.Equal(t, event.StageVoting, h.events.stored(h.group.ID, h.event.ID).Stage())
}

func TestResolveRemoveFailureIsBestEffort(t *testing.T) {
	h := newHarness(t, 30, 0)
	h.pending.removeErr = errors.New("shard row locked")

	outcome, err := h.resolver.Resolve(context.Background(), h.group.ID, h.event.ID, "shard-4")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinalized, outcome.Kind)
}

func TestResolveNotifyFailureIsBestEffort(t *testing.T) {
	h := newHarness(t, 30, 0)
	h.notifier.err = errors.New("broker down")

	outcome, err := h.resolver.Resolve(context.Background(), h.group.ID, h.event.ID, "shard-4")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinalized, outcome.Kind)
	assert.Equal(t, event.StageSelected, h.events.stored(h.group.ID, h.event.ID).Stage())
}
