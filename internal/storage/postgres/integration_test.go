//go:build integration
// +build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/quorumapp/quorum-api/internal/domain/category"
	"github.com/quorumapp/quorum-api/internal/domain/common"
	"github.com/quorumapp/quorum-api/internal/domain/event"
	"github.com/quorumapp/quorum-api/internal/domain/group"
)

// Integration tests against a real PostgreSQL instance.
// Run with: go test -tags=integration ./internal/storage/postgres/

func setupTestDB(t *testing.T) *Container {
	t.Helper()
	ctx := context.Background()

	pg, err := pgcontainer.Run(ctx, "postgres:15-alpine",
		pgcontainer.WithDatabase("quorum_test"),
		pgcontainer.WithUsername("quorum"),
		pgcontainer.WithPassword("quorum"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))
	return NewContainerWithDB(db)
}

func seedGroupAndCategory(t *testing.T, store *Container) (*group.Group, *category.Category) {
	t.Helper()
	ctx := context.Background()

	grp := group.NewGroup("movie club", []string{"alice", "bob"})
	require.NoError(t, store.Groups().Create(ctx, grp))

	cat := category.NewCategory(grp.ID, "dinner spots", common.ChoiceMap{"c1": "Pizza", "c2": "Sushi"})
	require.NoError(t, store.Categories().Create(ctx, cat))

	return grp, cat
}

func TestGroupRepository(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	grp, _ := seedGroupAndCategory(t, store)

	loaded, err := store.Groups().Get(ctx, grp.ID)
	require.NoError(t, err)
	assert.Equal(t, grp.Name, loaded.Name)
	assert.ElementsMatch(t, []string{"alice", "bob"}, []string(loaded.Members))

	_, err = store.Groups().Get(ctx, uuid.New())
	assert.ErrorIs(t, err, group.ErrNotFound)

	require.NoError(t, store.Groups().Delete(ctx, grp.ID))
	_, err = store.Groups().Get(ctx, grp.ID)
	assert.ErrorIs(t, err, group.ErrNotFound)
}

func TestRatingUpsertAndLookup(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	seedGroupAndCategory(t, store)

	require.NoError(t, store.Categories().PutRating(ctx, &category.Rating{ChoiceID: "c1", Username: "alice", Value: 3}))
	require.NoError(t, store.Categories().PutRating(ctx, &category.Rating{ChoiceID: "c1", Username: "bob", Value: 5}))
	// Upsert overwrites, never duplicates.
	require.NoError(t, store.Categories().PutRating(ctx, &category.Rating{ChoiceID: "c1", Username: "alice", Value: 4}))

	ratings, err := store.Categories().ForChoices(ctx, []string{"c1", "c2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]int{
		"c1": {"alice": 4, "bob": 5},
	}, ratings)
}

func TestEventTransitionGuard(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	grp, cat := seedGroupAndCategory(t, store)
	ev := event.NewEvent(grp.ID, "friday dinner", 30, 30, cat.ID, cat.Choices, grp.Members)
	require.NoError(t, store.Events().Create(ctx, ev))

	tr, err := ev.BeginVoting(common.ChoiceMap{"c1": "Pizza"})
	require.NoError(t, err)
	require.NoError(t, store.Events().ApplyTransition(ctx, grp.ID, ev.ID, tr.Fields))

	loaded, err := store.Events().Get(ctx, grp.ID, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StageVoting, loaded.Stage())
	assert.Nil(t, loaded.CategorySnapshot)

	final, err := loaded.Finalize("Pizza")
	require.NoError(t, err)
	require.NoError(t, store.Events().ApplyTransition(ctx, grp.ID, ev.ID, final.Fields))

	// A racing duplicate transition bounces off the terminal guard.
	err = store.Events().ApplyTransition(ctx, grp.ID, ev.ID, final.Fields)
	assert.ErrorIs(t, err, event.ErrAlreadyResolved)

	err = store.Events().ApplyTransition(ctx, grp.ID, uuid.New(), final.Fields)
	assert.ErrorIs(t, err, event.ErrNotFound)

	terminal, err := store.Events().Get(ctx, grp.ID, ev.ID)
	require.NoError(t, err)
	require.NotNil(t, terminal.SelectedChoice)
	assert.Equal(t, "Pizza", *terminal.SelectedChoice)
}

func TestEventCastVote(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	grp, cat := seedGroupAndCategory(t, store)
	ev := event.NewEvent(grp.ID, "friday dinner", 30, 30, cat.ID, cat.Choices, grp.Members)
	require.NoError(t, store.Events().Create(ctx, ev))

	tr, err := ev.BeginVoting(cat.Choices)
	require.NoError(t, err)
	require.NoError(t, store.Events().ApplyTransition(ctx, grp.ID, ev.ID, tr.Fields))

	require.NoError(t, store.Events().CastVote(ctx, grp.ID, ev.ID, "c1", "alice", 1))
	require.NoError(t, store.Events().CastVote(ctx, grp.ID, ev.ID, "c1", "bob", 0))
	require.NoError(t, store.Events().CastVote(ctx, grp.ID, ev.ID, "c1", "alice", 0))

	loaded, err := store.Events().Get(ctx, grp.ID, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.VotingNumbers["c1"]["alice"])
	assert.Equal(t, 0, loaded.VotingNumbers["c1"]["bob"])

	assert.Error(t, store.Events().CastVote(ctx, grp.ID, ev.ID, "c1", "mallory", 1))
	assert.ErrorIs(t, store.Events().CastVote(ctx, grp.ID, uuid.New(), "c1", "alice", 1), event.ErrNotFound)
}

func TestPendingRepositoryShardRow(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	groupA, eventA := uuid.New(), uuid.New()
	groupB, eventB := uuid.New(), uuid.New()
	expiryA := time.Now().UTC().Add(30 * time.Minute).Truncate(time.Millisecond)
	expiryB := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)

	require.NoError(t, store.Pending().Put(ctx, "shard-0", groupA, eventA, expiryA))
	require.NoError(t, store.Pending().Put(ctx, "shard-0", groupB, eventB, expiryB))

	entries, err := store.Pending().Scan(ctx, "shard-0")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Overwriting a key updates its expiry in place, still one entry.
	require.NoError(t, store.Pending().Put(ctx, "shard-0", groupA, eventA, expiryB))
	entries, err = store.Pending().Scan(ctx, "shard-0")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, store.Pending().Remove(ctx, "shard-0", groupA, eventA))
	entries, err = store.Pending().Scan(ctx, "shard-0")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[groupB.String()+";"+eventB.String()].Equal(expiryB))

	// Removing an absent key, or from an absent shard, is a no-op.
	require.NoError(t, store.Pending().Remove(ctx, "shard-0", groupA, eventA))
	require.NoError(t, store.Pending().Remove(ctx, "shard-9", groupA, eventA))

	empty, err := store.Pending().Scan(ctx, "shard-9")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
