package core

import "github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(ExpansionLineageRule())
	engine.Register(SingleActiveOptionRule())
	return engine
}

func changedRoomItems(changes []Change) []RoomItem {
	var out []RoomItem
	for _, change := range changes {
		if change.Entity != EntityRoomItem || change.After == nil {
			continue
		}
		if item, ok := change.After.(RoomItem); ok {
			out = append(out, item)
		}
	}
	return out
}
