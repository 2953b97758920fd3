package core

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
)

// maxNotesLength caps free-text notes, counted in runes.
const maxNotesLength = 10000

// SetStatus records a decision on a visible room item. Any transition among
// the four statuses is allowed.
func (s *Service) SetStatus(ctx context.Context, itemID string, status Status) (RoomItem, Result, error) {
	var (
		updated RoomItem
		res     Result
	)
	status = Status(strings.ToUpper(strings.TrimSpace(string(status))))
	err := s.run(ctx, "set_status", func(ctx context.Context) (string, error) {
		if !status.Valid() {
			return itemID, domain.NewValidationError("unknown status %q", status)
		}
		item, err := s.findRoomItem(ctx, itemID)
		if err != nil {
			return itemID, err
		}
		actor, err := requireRoomEditor(ctx, item.RoomID)
		if err != nil {
			return itemID, err
		}
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateRoomItem(itemID, func(it *RoomItem) error {
				if !it.Visible {
					return domain.NewParentNotVisibleError(itemID, "set status")
				}
				it.Status = status
				it.UpdatedBy = actor.ID
				return nil
			})
			return err
		})
		return itemID, err
	})
	if err != nil {
		return RoomItem{}, res, err
	}
	s.publish(ctx, EventStatusChanged, updated.RoomID, itemID)
	return updated, res, nil
}

// SetNotes replaces an item's notes regardless of visibility or status.
func (s *Service) SetNotes(ctx context.Context, itemID, notes string) (RoomItem, Result, error) {
	var (
		updated RoomItem
		res     Result
	)
	err := s.run(ctx, "set_notes", func(ctx context.Context) (string, error) {
		if utf8.RuneCountInString(notes) > maxNotesLength {
			return itemID, domain.NewValidationError("notes exceed %d characters", maxNotesLength)
		}
		item, err := s.findRoomItem(ctx, itemID)
		if err != nil {
			return itemID, err
		}
		actor, err := requireRoomEditor(ctx, item.RoomID)
		if err != nil {
			return itemID, err
		}
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateRoomItem(itemID, func(it *RoomItem) error {
				it.Notes = notes
				it.UpdatedBy = actor.ID
				return nil
			})
			return err
		})
		return itemID, err
	})
	if err != nil {
		return RoomItem{}, res, err
	}
	s.publish(ctx, EventNotesChanged, updated.RoomID, itemID)
	return updated, res, nil
}
