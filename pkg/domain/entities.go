// Package domain defines the persistent FFE entities, value types, and
// rule evaluation primitives shared by the service and its stores.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityTemplate identifies an admin-authored checklist template.
	EntityTemplate EntityType = "template"
	// EntitySection identifies a template section.
	EntitySection EntityType = "section"
	// EntityTemplateItem identifies an item definition inside a section.
	EntityTemplateItem EntityType = "template_item"
	// EntityRoomItem identifies a room-scoped working copy of an item.
	EntityRoomItem EntityType = "room_item"
	// EntityExpansion identifies one application of a logic option to a parent item.
	EntityExpansion EntityType = "expansion"
	// EntityLogicOption identifies a logic option declared on an item.
	EntityLogicOption EntityType = "logic_option"
	// EntityRoom identifies the instantiation record of a room.
	EntityRoom EntityType = "room"
)

// Status is the completion state of a room item.
type Status string

// Room item statuses. Transitions between any two states are permitted.
const (
	StatusPending       Status = "PENDING"
	StatusUndecided     Status = "UNDECIDED"
	StatusCompleted     Status = "COMPLETED"
	StatusNotApplicable Status = "NOT_APPLICABLE"
)

// Valid reports whether s is one of the recognised statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUndecided, StatusCompleted, StatusNotApplicable:
		return true
	default:
		return false
	}
}

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusPending, StatusUndecided, StatusCompleted, StatusNotApplicable}
}

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Template is a reusable, room-independent checklist definition.
type Template struct {
	Base
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	CreatedBy   string `json:"created_by"`
}

// Section groups template items under a heading.
type Section struct {
	Base
	TemplateID string `json:"template_id"`
	Name       string `json:"name" validate:"required,max=200"`
	Position   int    `json:"position"`
}

// SubItem names one child produced when a logic option is applied. A sub item
// may declare its own logic options, which the derived child inherits.
type SubItem struct {
	Name         string        `json:"name" validate:"required,max=200"`
	Category     *string       `json:"category,omitempty"`
	LogicOptions []LogicOption `json:"logic_options,omitempty" validate:"dive"`
}

// LogicOption is a named branch declared on an item. Applying it to a room
// item expands into ItemsToCreate children.
type LogicOption struct {
	ID            string    `json:"id"`
	Name          string    `json:"name" validate:"required,max=200"`
	Description   string    `json:"description" validate:"max=2000"`
	ItemsToCreate int       `json:"items_to_create" validate:"gte=1,lte=100"`
	SubItems      []SubItem `json:"sub_items" validate:"dive"`
}

// TemplateItem is an item definition inside a template section.
type TemplateItem struct {
	Base
	TemplateID   string        `json:"template_id"`
	SectionID    string        `json:"section_id"`
	Name         string        `json:"name" validate:"required,max=200"`
	Category     string        `json:"category" validate:"max=120"`
	Description  string        `json:"description" validate:"max=2000"`
	Position     int           `json:"position"`
	LogicOptions []LogicOption `json:"logic_options" validate:"dive"`
}

// FindLogicOption returns the option with the given id.
func FindLogicOption(options []LogicOption, id string) (LogicOption, bool) {
	for _, opt := range options {
		if opt.ID == id {
			return opt, true
		}
	}
	return LogicOption{}, false
}

// RoomItem is the room-scoped, mutable working copy of a checklist item.
// Room items are never physically deleted; removal clears Visible.
type RoomItem struct {
	Base
	RoomID              string        `json:"room_id"`
	TemplateID          string        `json:"template_id"`
	SectionID           string        `json:"section_id"`
	SectionName         string        `json:"section_name"`
	SectionPosition     int           `json:"section_position"`
	TemplateItemID      *string       `json:"template_item_id"`
	ParentItemID        *string       `json:"parent_item_id"`
	SourceLogicOptionID *string       `json:"source_logic_option_id"`
	ExpansionID         *string       `json:"expansion_id"`
	Name                string        `json:"name"`
	Category            string        `json:"category"`
	Position            int           `json:"position"`
	Visible             bool          `json:"visible"`
	Status              Status        `json:"status"`
	Notes               string        `json:"notes"`
	ActiveLogicOptionID *string       `json:"active_logic_option_id"`
	LogicOptions        []LogicOption `json:"logic_options"`
	UpdatedBy           string        `json:"updated_by"`
}

// Derived reports whether the item was produced by a logic expansion.
func (i RoomItem) Derived() bool {
	return i.ParentItemID != nil
}

// Room marks that a room has been instantiated from a template. It exists
// even when the template had no items, and its id is the caller's room id.
type Room struct {
	Base
	TemplateID     string `json:"template_id"`
	InstantiatedBy string `json:"instantiated_by"`
}

// Expansion records one application of a logic option to a parent item. At
// most one active expansion exists per (parent, option) pair.
type Expansion struct {
	Base
	RoomID        string     `json:"room_id"`
	ParentItemID  string     `json:"parent_item_id"`
	LogicOptionID string     `json:"logic_option_id"`
	Sequence      int        `json:"sequence"`
	Active        bool       `json:"active"`
	ChildIDs      []string   `json:"child_ids"`
	CreatedBy     string     `json:"created_by"`
	SupersededAt  *time.Time `json:"superseded_at,omitempty"`
}

// Change describes a mutation applied to an entity within a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions captured in the audit trail. Room items have no delete action.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
)

// StrPtr returns a pointer to a copy of s.
func StrPtr(s string) *string {
	return &s
}

// StrValue dereferences p, returning "" for nil.
func StrValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// SameStr reports whether two optional strings hold the same value.
func SameStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
