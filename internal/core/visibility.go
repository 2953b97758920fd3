package core

import (
	"context"

	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
)

// SetVisibility flips an item's Use/Remove flag. Hiding cascades to every
// current descendant; showing affects the item alone.
func (s *Service) SetVisibility(ctx context.Context, itemID string, visible bool) (RoomItem, Result, error) {
	var (
		updated RoomItem
		res     Result
		roomID  string
	)
	err := s.run(ctx, "set_visibility", func(ctx context.Context) (string, error) {
		item, err := s.findRoomItem(ctx, itemID)
		if err != nil {
			return itemID, err
		}
		roomID = item.RoomID
		actor, err := requireRoomEditor(ctx, item.RoomID)
		if err != nil {
			return itemID, err
		}
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateRoomItem(itemID, func(it *RoomItem) error {
				it.Visible = visible
				it.UpdatedBy = actor.ID
				return nil
			})
			if err != nil || visible {
				return err
			}
			return hideDescendants(tx, itemID, actor.ID)
		})
		return itemID, err
	})
	if err != nil {
		return RoomItem{}, res, err
	}
	s.publish(ctx, EventVisibilityChanged, roomID, itemID)
	return updated, res, nil
}

// hideDescendants hides every visible item below rootID, recursing through
// nested expansions.
func hideDescendants(tx domain.Transaction, rootID, actorID string) error {
	queue := []string{rootID}
	seen := map[string]struct{}{rootID: {}}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range tx.Snapshot().ListChildren(id) {
			if _, ok := seen[child.ID]; ok {
				continue
			}
			seen[child.ID] = struct{}{}
			queue = append(queue, child.ID)
			if !child.Visible {
				continue
			}
			if _, err := tx.UpdateRoomItem(child.ID, func(it *RoomItem) error {
				it.Visible = false
				it.UpdatedBy = actorID
				return nil
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) findRoomItem(ctx context.Context, itemID string) (RoomItem, error) {
	var item RoomItem
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		found, ok := view.FindRoomItem(itemID)
		if !ok {
			return domain.NewNotFoundError(EntityRoomItem, itemID)
		}
		item = found
		return nil
	})
	return item, err
}
