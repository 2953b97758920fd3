package core

import "github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Base               = domain.Base
	Template           = domain.Template
	Section            = domain.Section
	TemplateItem       = domain.TemplateItem
	LogicOption        = domain.LogicOption
	SubItem            = domain.SubItem
	Room               = domain.Room
	RoomItem           = domain.RoomItem
	Expansion          = domain.Expansion
	Status             = domain.Status
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
)

const (
	EntityTemplate     = domain.EntityTemplate
	EntitySection      = domain.EntitySection
	EntityTemplateItem = domain.EntityTemplateItem
	EntityRoomItem     = domain.EntityRoomItem
	EntityExpansion    = domain.EntityExpansion
	EntityLogicOption  = domain.EntityLogicOption
	EntityRoom         = domain.EntityRoom
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
)
