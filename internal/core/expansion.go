package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
	"github.com/google/uuid"
)

// ApplyLogicOption expands a logic option on a visible room item. Applying
// the already active option is a no-op returning the current visible
// children. Switching options hides the previous option's children and
// creates fresh ones. The write is conditioned on the active option observed
// before the transaction; a concurrent switch yields a conflict.
func (s *Service) ApplyLogicOption(ctx context.Context, parentID, optionID string) ([]RoomItem, Result, error) {
	var (
		children []RoomItem
		res      Result
		roomID   string
		changed  bool
	)
	err := s.run(ctx, "apply_logic_option", func(ctx context.Context) (string, error) {
		var (
			parent   RoomItem
			option   LogicOption
			observed *string
		)
		err := s.store.View(ctx, func(view domain.TransactionView) error {
			found, ok := view.FindRoomItem(parentID)
			if !ok {
				return domain.NewNotFoundError(EntityRoomItem, parentID)
			}
			parent = found
			return nil
		})
		if err != nil {
			return parentID, err
		}
		roomID = parent.RoomID
		actor, err := requireRoomEditor(ctx, parent.RoomID)
		if err != nil {
			return parentID, err
		}
		if !parent.Visible {
			return parentID, domain.NewParentNotVisibleError(parentID, "apply logic option")
		}
		opt, ok := domain.FindLogicOption(parent.LogicOptions, optionID)
		if !ok {
			return parentID, domain.NewNotFoundError(EntityLogicOption, optionID)
		}
		option = opt
		observed = parent.ActiveLogicOptionID

		if domain.StrValue(observed) == optionID {
			err := s.store.View(ctx, func(view domain.TransactionView) error {
				children = activeChildren(view, parent)
				return nil
			})
			return parentID, err
		}

		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			current, err := tx.SwapActiveLogicOption(parentID, observed, domain.StrPtr(optionID))
			if err != nil {
				return err
			}
			if !current.Visible {
				return domain.NewParentNotVisibleError(parentID, "apply logic option")
			}
			if observed != nil {
				if err := supersedeOption(tx, parentID, *observed, actor.ID, s.clock.Now()); err != nil {
					return err
				}
			}
			children, err = expandOption(tx, current, option, actor.ID)
			return err
		})
		changed = err == nil
		return parentID, err
	})
	if err != nil {
		return nil, res, err
	}
	if changed {
		s.publish(ctx, EventLogicApplied, roomID, parentID)
	}
	return children, res, nil
}

// ClearLogicOption reverts a parent to having no active option. The active
// option's children are hidden and its expansion is marked superseded.
func (s *Service) ClearLogicOption(ctx context.Context, parentID string) (RoomItem, Result, error) {
	var (
		updated RoomItem
		res     Result
		changed bool
	)
	err := s.run(ctx, "clear_logic_option", func(ctx context.Context) (string, error) {
		parent, err := s.findRoomItem(ctx, parentID)
		if err != nil {
			return parentID, err
		}
		updated = parent
		actor, err := requireRoomEditor(ctx, parent.RoomID)
		if err != nil {
			return parentID, err
		}
		if !parent.Visible {
			return parentID, domain.NewParentNotVisibleError(parentID, "clear logic option")
		}
		observed := parent.ActiveLogicOptionID
		if observed == nil {
			return parentID, nil
		}
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, err := tx.SwapActiveLogicOption(parentID, observed, nil); err != nil {
				return err
			}
			if err := supersedeOption(tx, parentID, *observed, actor.ID, s.clock.Now()); err != nil {
				return err
			}
			current, _ := tx.Snapshot().FindRoomItem(parentID)
			updated = current
			return nil
		})
		changed = err == nil
		return parentID, err
	})
	if err != nil {
		return RoomItem{}, res, err
	}
	if changed {
		s.publish(ctx, EventLogicCleared, updated.RoomID, parentID)
	}
	return updated, res, nil
}

// ListExpansions returns the expansion history of a parent ordered by sequence.
func (s *Service) ListExpansions(ctx context.Context, parentID string) ([]Expansion, error) {
	var out []Expansion
	err := s.run(ctx, "list_expansions", func(ctx context.Context) (string, error) {
		parent, err := s.findRoomItem(ctx, parentID)
		if err != nil {
			return parentID, err
		}
		if _, err := requireRoomViewer(ctx, parent.RoomID); err != nil {
			return parentID, err
		}
		return parentID, s.store.View(ctx, func(view domain.TransactionView) error {
			out = view.ListExpansions(parentID)
			return nil
		})
	})
	return out, err
}

// supersedeOption retires the active expansion of optionID on the parent and
// hides every visible item derived from that option, with their descendants.
func supersedeOption(tx domain.Transaction, parentID, optionID, actorID string, at time.Time) error {
	view := tx.Snapshot()
	for _, exp := range view.ListExpansions(parentID) {
		if !exp.Active || exp.LogicOptionID != optionID {
			continue
		}
		if _, err := tx.UpdateExpansion(exp.ID, func(e *Expansion) error {
			e.Active = false
			e.SupersededAt = &at
			return nil
		}); err != nil {
			return err
		}
	}
	for _, child := range view.ListChildren(parentID) {
		if domain.StrValue(child.SourceLogicOptionID) != optionID {
			continue
		}
		if child.Visible {
			if _, err := tx.UpdateRoomItem(child.ID, func(it *RoomItem) error {
				it.Visible = false
				it.UpdatedBy = actorID
				return nil
			}); err != nil {
				return err
			}
		}
		if err := hideDescendants(tx, child.ID, actorID); err != nil {
			return err
		}
	}
	return nil
}

// expandOption creates the children of option under parent and records the
// expansion that owns them.
func expandOption(tx domain.Transaction, parent RoomItem, option LogicOption, actorID string) ([]RoomItem, error) {
	sequence := 1
	for _, exp := range tx.Snapshot().ListExpansions(parent.ID) {
		if exp.Sequence >= sequence {
			sequence = exp.Sequence + 1
		}
	}
	expansionID := uuid.NewString()
	specs := deriveChildren(parent, option)
	children := make([]RoomItem, 0, len(specs))
	childIDs := make([]string, 0, len(specs))
	for _, spec := range specs {
		spec.ExpansionID = domain.StrPtr(expansionID)
		spec.UpdatedBy = actorID
		created, err := tx.CreateRoomItem(spec)
		if err != nil {
			return nil, err
		}
		children = append(children, created)
		childIDs = append(childIDs, created.ID)
	}
	if _, err := tx.CreateExpansion(Expansion{
		Base:          domain.Base{ID: expansionID},
		RoomID:        parent.RoomID,
		ParentItemID:  parent.ID,
		LogicOptionID: option.ID,
		Sequence:      sequence,
		Active:        true,
		ChildIDs:      childIDs,
		CreatedBy:     actorID,
	}); err != nil {
		return nil, err
	}
	return children, nil
}

// deriveChildren computes the children of an option deterministically. Sub
// items name the first children in order; the remainder are named after the
// parent and inherit its category.
func deriveChildren(parent RoomItem, option LogicOption) []RoomItem {
	out := make([]RoomItem, 0, option.ItemsToCreate)
	for i := 0; i < option.ItemsToCreate; i++ {
		child := RoomItem{
			RoomID:              parent.RoomID,
			TemplateID:          parent.TemplateID,
			SectionID:           parent.SectionID,
			SectionName:         parent.SectionName,
			SectionPosition:     parent.SectionPosition,
			ParentItemID:        domain.StrPtr(parent.ID),
			SourceLogicOptionID: domain.StrPtr(option.ID),
			Name:                fmt.Sprintf("%s – Item %d", parent.Name, i+1),
			Category:            parent.Category,
			Position:            i,
			Visible:             true,
			Status:              domain.StatusPending,
			LogicOptions:        []LogicOption{},
		}
		if i < len(option.SubItems) {
			sub := option.SubItems[i]
			child.Name = sub.Name
			if sub.Category != nil {
				child.Category = *sub.Category
			}
			if len(sub.LogicOptions) > 0 {
				child.LogicOptions = domain.CloneLogicOptions(sub.LogicOptions)
			}
		}
		out = append(out, child)
	}
	return out
}

// activeChildren returns the visible children of the parent's active option
// in creation order.
func activeChildren(view domain.TransactionView, parent RoomItem) []RoomItem {
	var out []RoomItem
	for _, child := range view.ListChildren(parent.ID) {
		if child.Visible && domain.SameStr(child.SourceLogicOptionID, parent.ActiveLogicOptionID) {
			out = append(out, child)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
