package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quorumapp/quorum-api/internal/domain/category"
	"github.com/quorumapp/quorum-api/internal/domain/common"
	"github.com/quorumapp/quorum-api/internal/domain/event"
	"github.com/quorumapp/quorum-api/internal/domain/group"
)

type fakeGroups struct {
	groups map[uuid.UUID]*group.Group
	err    error
}

func newFakeGroups(groups ...*group.Group) *fakeGroups {
	f := &fakeGroups{groups: map[uuid.UUID]*group.Group{}}
	for _, g := range groups {
		f.groups[g.ID] = g
	}
	return f
}

func (f *fakeGroups) Get(_ context.Context, id uuid.UUID) (*group.Group, error) {
	if f.err != nil {
		return nil, f.err
	}
	g, ok := f.groups[id]
	if !ok {
		return nil, group.ErrNotFound
	}
	return g, nil
}

type fakeCategories struct {
	categories map[uuid.UUID]*category.Category
}

func newFakeCategories(categories ...*category.Category) *fakeCategories {
	f := &fakeCategories{categories: map[uuid.UUID]*category.Category{}}
	for _, c := range categories {
		f.categories[c.ID] = c
	}
	return f
}

func (f *fakeCategories) Get(_ context.Context, id uuid.UUID) (*category.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, category.ErrNotFound
	}
	return c, nil
}

// fakeEvents mimics the partial-update persistence contract: Get hands out
// copies, and only ApplyTransition and CastVote mutate the stored record.
type fakeEvents struct {
	events map[string]*event.Event
	writes int
	getErr error
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{events: map[string]*event.Event{}}
}

func eventKey(groupID, eventID uuid.UUID) string {
	return groupID.String() + "/" + eventID.String()
}

func cloneEvent(ev *event.Event) *event.Event {
	clone := *ev
	clone.OptedIn = append([]string(nil), ev.OptedIn...)
	clone.SeenBy = append([]string(nil), ev.SeenBy...)
	clone.CategorySnapshot = ev.CategorySnapshot.Clone()
	clone.TentativeChoices = ev.TentativeChoices.Clone()
	if ev.VotingNumbers != nil {
		clone.VotingNumbers = make(map[string]map[string]int, len(ev.VotingNumbers))
		for choiceID, votes := range ev.VotingNumbers {
			inner := make(map[string]int, len(votes))
			for username, value := range votes {
				inner[username] = value
			}
			clone.VotingNumbers[choiceID] = inner
		}
	}
	if ev.SelectedChoice != nil {
		selected := *ev.SelectedChoice
		clone.SelectedChoice = &selected
	}
	return &clone
}

func (f *fakeEvents) Create(_ context.Context, ev *event.Event) error {
	f.events[eventKey(ev.GroupID, ev.ID)] = cloneEvent(ev)
	return nil
}

func (f *fakeEvents) Get(_ context.Context, groupID, eventID uuid.UUID) (*event.Event, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	ev, ok := f.events[eventKey(groupID, eventID)]
	if !ok {
		return nil, event.ErrNotFound
	}
	return cloneEvent(ev), nil
}

func (f *fakeEvents) ApplyTransition(_ context.Context, groupID, eventID uuid.UUID, fields map[string]any) error {
	stored, ok := f.events[eventKey(groupID, eventID)]
	if !ok {
		return event.ErrNotFound
	}
	if stored.SelectedChoice != nil {
		return event.ErrAlreadyResolved
	}

	for column, value := range fields {
		switch column {
		case "tentative_choices":
			stored.TentativeChoices, _ = value.(common.ChoiceMap)
		case "voting_numbers":
			stored.VotingNumbers, _ = value.(common.VoteMatrix)
		case "category_snapshot":
			stored.CategorySnapshot = nil
		case "selected_choice":
			stored.SelectedChoice, _ = value.(*string)
		case "seen_by":
			stored.SeenBy = nil
		}
	}
	f.writes++
	return nil
}

func (f *fakeEvents) CastVote(_ context.Context, groupID, eventID uuid.UUID, choiceID, username string, value int) error {
	stored, ok := f.events[eventKey(groupID, eventID)]
	if !ok {
		return event.ErrNotFound
	}
	if err := stored.CastVote(choiceID, username, value); err != nil {
		return err
	}
	f.writes++
	return nil
}

func (f *fakeEvents) stored(groupID, eventID uuid.UUID) *event.Event {
	return f.events[eventKey(groupID, eventID)]
}

type fakeRatings struct {
	data map[string]map[string]int
}

func (f *fakeRatings) ForChoices(_ context.Context, choiceIDs []string) (map[string]map[string]int, error) {
	result := map[string]map[string]int{}
	for _, id := range choiceIDs {
		if votes, ok := f.data[id]; ok {
			result[id] = votes
		}
	}
	return result, nil
}

type fakePending struct {
	shards    map[string]map[string]time.Time
	putErr    error
	scanErr   error
	removeErr error
	removes   int
}

func newFakePending() *fakePending {
	return &fakePending{shards: map[string]map[string]time.Time{}}
}

func (f *fakePending) Put(_ context.Context, shard string, groupID, eventID uuid.UUID, expiresAt time.Time) error {
	if f.putErr != nil {
		return f.putErr
	}
	if f.shards[shard] == nil {
		f.shards[shard] = map[string]time.Time{}
	}
	f.shards[shard][CompositeKey(groupID, eventID)] = expiresAt
	return nil
}

func (f *fakePending) Scan(_ context.Context, shard string) (map[string]time.Time, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	entries := map[string]time.Time{}
	for key, expiresAt := range f.shards[shard] {
		entries[key] = expiresAt
	}
	return entries, nil
}

func (f *fakePending) Remove(_ context.Context, shard string, groupID, eventID uuid.UUID) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.shards[shard], CompositeKey(groupID, eventID))
	f.removes++
	return nil
}

func (f *fakePending) entryCount() int {
	total := 0
	for _, entries := range f.shards {
		total += len(entries)
	}
	return total
}

type notification struct {
	groupID  uuid.UUID
	eventID  uuid.UUID
	stage    event.Stage
	selected string
}

type fakeNotifier struct {
	sent []notification
	err  error
}

func (f *fakeNotifier) EventChanged(_ context.Context, groupID, eventID uuid.UUID, stage event.Stage, selected string) error {
	f.sent = append(f.sent, notification{groupID: groupID, eventID: eventID, stage: stage, selected: selected})
	return f.err
}
