package core

import (
	"context"
	"time"

	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
)

// EventKind names the room mutation that produced an event.
type EventKind string

// Room event kinds.
const (
	EventInstantiated      EventKind = "room.instantiated"
	EventVisibilityChanged EventKind = "item.visibility_changed"
	EventLogicApplied      EventKind = "item.logic_applied"
	EventLogicCleared      EventKind = "item.logic_cleared"
	EventStatusChanged     EventKind = "item.status_changed"
	EventNotesChanged      EventKind = "item.notes_changed"
)

// RoomEvent is published after a room mutation commits.
type RoomEvent struct {
	RoomID   string          `json:"room_id"`
	ItemID   string          `json:"item_id,omitempty"`
	Kind     EventKind       `json:"kind"`
	Progress domain.Progress `json:"progress"`
	ActorID  string          `json:"actor_id"`
	At       time.Time       `json:"at"`
}

// EventPublisher fans committed room events out to listeners.
type EventPublisher interface {
	Publish(ctx context.Context, event RoomEvent) error
}

type noopEventPublisher struct{}

func (noopEventPublisher) Publish(context.Context, RoomEvent) error { return nil }

// publish emits an event for a committed mutation. Failures are logged only.
func (s *Service) publish(ctx context.Context, kind EventKind, roomID, itemID string) {
	if _, ok := s.events.(noopEventPublisher); ok {
		return
	}
	event := RoomEvent{RoomID: roomID, ItemID: itemID, Kind: kind, At: s.clock.Now()}
	if actor, ok := domain.ActorFrom(ctx); ok {
		event.ActorID = actor.ID
	}
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		event.Progress = computeProgress(view, roomID)
		return nil
	})
	if err != nil {
		s.logger.Warn("progress for room event failed", "room_id", roomID, "error", err)
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish room event failed", "room_id", roomID, "kind", kind, "error", err)
	}
}
