package core

import (
	"context"
	"fmt"

	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
)

// ExpansionLineageRule enforces that derived room items carry a complete,
// same-room lineage and that template copies carry none.
func ExpansionLineageRule() domain.Rule {
	return expansionLineageRule{}
}

type expansionLineageRule struct{}

func (expansionLineageRule) Name() string { return "expansion_lineage" }

func (expansionLineageRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, item := range changedRoomItems(changes) {
		if !item.Derived() {
			if item.SourceLogicOptionID != nil || item.ExpansionID != nil {
				res.Violations = append(res.Violations, lineageViolation(item.ID,
					fmt.Sprintf("room item %s has an expansion source but no parent", item.ID)))
			}
			continue
		}
		if *item.ParentItemID == item.ID {
			res.Violations = append(res.Violations, lineageViolation(item.ID,
				fmt.Sprintf("room item %s references itself as a parent", item.ID)))
			continue
		}
		if item.SourceLogicOptionID == nil || item.ExpansionID == nil {
			res.Violations = append(res.Violations, lineageViolation(item.ID,
				fmt.Sprintf("derived room item %s is missing its source option or expansion", item.ID)))
			continue
		}
		parent, ok := view.FindRoomItem(*item.ParentItemID)
		if !ok {
			res.Violations = append(res.Violations, lineageViolation(item.ID,
				fmt.Sprintf("room item %s references missing parent %s", item.ID, *item.ParentItemID)))
			continue
		}
		if parent.RoomID != item.RoomID {
			res.Violations = append(res.Violations, lineageViolation(item.ID,
				fmt.Sprintf("room item %s and parent %s belong to different rooms", item.ID, parent.ID)))
		}
	}
	return res, nil
}

func lineageViolation(entityID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "expansion_lineage",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityRoomItem,
		EntityID: entityID,
	}
}
