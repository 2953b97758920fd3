package core

import (
	"context"
	"strings"

	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
)

// Instantiate records the room and copies every section and item of a
// template into it. A room that was already instantiated, even from an empty
// template, is rejected with a conflict.
func (s *Service) Instantiate(ctx context.Context, roomID, templateID string) (domain.RoomState, Result, error) {
	var (
		state domain.RoomState
		res   Result
	)
	roomID = strings.TrimSpace(roomID)
	err := s.run(ctx, "instantiate", func(ctx context.Context) (string, error) {
		if roomID == "" {
			return "", domain.NewValidationError("room id is required")
		}
		actor, err := requireRoomEditor(ctx, roomID)
		if err != nil {
			return roomID, err
		}
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			view := tx.Snapshot()
			tpl, ok := view.FindTemplate(templateID)
			if !ok {
				return domain.NewNotFoundError(EntityTemplate, templateID)
			}
			if view.RoomExists(roomID) {
				return domain.NewConflictError(EntityRoom, roomID, "room %q already has FFE state", roomID)
			}
			if _, err := tx.CreateRoom(Room{Base: domain.Base{ID: roomID}, TemplateID: tpl.ID, InstantiatedBy: actor.ID}); err != nil {
				return err
			}
			for _, sec := range view.ListSections(tpl.ID) {
				for _, item := range view.ListTemplateItems(sec.ID) {
					if _, err := tx.CreateRoomItem(copyTemplateItem(roomID, sec, item, actor.ID)); err != nil {
						return err
					}
				}
			}
			state = roomState(tx.Snapshot(), roomID, false)
			return nil
		})
		return roomID, err
	})
	if err != nil {
		return domain.RoomState{}, res, err
	}
	s.publish(ctx, EventInstantiated, roomID, "")
	return state, res, nil
}

func copyTemplateItem(roomID string, sec Section, item TemplateItem, actorID string) RoomItem {
	return RoomItem{
		RoomID:          roomID,
		TemplateID:      item.TemplateID,
		SectionID:       sec.ID,
		SectionName:     sec.Name,
		SectionPosition: sec.Position,
		TemplateItemID:  domain.StrPtr(item.ID),
		Name:            item.Name,
		Category:        item.Category,
		Position:        item.Position,
		Visible:         true,
		Status:          domain.StatusPending,
		Notes:           "",
		LogicOptions:    domain.CloneLogicOptions(item.LogicOptions),
		UpdatedBy:       actorID,
	}
}
