// Package notify delivers best-effort change notifications to downstream
// consumers (push fan-out, denormalized views). The lifecycle transition is
// the authoritative state; a lost notification is an operational signal,
// never a rollback.
package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/quorumapp/quorum-api/internal/domain/event"
)

// EventChange is the message published when an event transitions
type EventChange struct {
	GroupID        string `json:"group_id"`
	EventID        string `json:"event_id"`
	Stage          string `json:"stage"`
	SelectedChoice string `json:"selected_choice,omitempty"`
}

// NopNotifier discards notifications; used when no broker is configured and
// in tests.
type NopNotifier struct{}

// EventChanged implements the scheduler.Notifier interface
func (NopNotifier) EventChanged(ctx context.Context, groupID, eventID uuid.UUID, stage event.Stage, selected string) error {
	return nil
}
