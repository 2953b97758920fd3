package core

import (
	"context"
	"fmt"

	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
)

// SingleActiveOptionRule blocks any state in which a visible derived item does
// not belong to its parent's active expansion.
func SingleActiveOptionRule() domain.Rule {
	return singleActiveOptionRule{}
}

type singleActiveOptionRule struct{}

func (singleActiveOptionRule) Name() string { return "single_active_option" }

func (singleActiveOptionRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	checked := make(map[string]struct{})
	check := func(child RoomItem) {
		if _, done := checked[child.ID]; done {
			return
		}
		checked[child.ID] = struct{}{}
		if !child.Visible || !child.Derived() {
			return
		}
		parent, ok := view.FindRoomItem(*child.ParentItemID)
		if !ok {
			return
		}
		if !domain.SameStr(parent.ActiveLogicOptionID, child.SourceLogicOptionID) {
			res.Violations = append(res.Violations, activeOptionViolation(child.ID,
				fmt.Sprintf("room item %s belongs to option %s but the active option of %s is %q",
					child.ID, domain.StrValue(child.SourceLogicOptionID), parent.ID, domain.StrValue(parent.ActiveLogicOptionID))))
			return
		}
		if child.ExpansionID == nil {
			return
		}
		if exp, ok := view.FindExpansion(*child.ExpansionID); ok && !exp.Active {
			res.Violations = append(res.Violations, activeOptionViolation(child.ID,
				fmt.Sprintf("room item %s belongs to superseded expansion %s", child.ID, exp.ID)))
		}
	}
	for _, item := range changedRoomItems(changes) {
		current, ok := view.FindRoomItem(item.ID)
		if !ok {
			continue
		}
		check(current)
		for _, child := range view.ListChildren(current.ID) {
			check(child)
		}
	}
	return res, nil
}

func activeOptionViolation(entityID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "single_active_option",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityRoomItem,
		EntityID: entityID,
	}
}
