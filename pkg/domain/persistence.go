package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Room items expose no delete.
type Transaction interface {
	Snapshot() TransactionView
	CreateTemplate(Template) (Template, error)
	UpdateTemplate(id string, mutator func(*Template) error) (Template, error)
	CreateSection(Section) (Section, error)
	CreateTemplateItem(TemplateItem) (TemplateItem, error)
	UpdateTemplateItem(id string, mutator func(*TemplateItem) error) (TemplateItem, error)
	// CreateRoom records an instantiation; a second record for the same room
	// id is a conflict.
	CreateRoom(Room) (Room, error)
	// CreateRoomItem fails with a conflict when the room already holds a copy
	// of the same template item.
	CreateRoomItem(RoomItem) (RoomItem, error)
	// UpdateRoomItem applies mutator to the item. Identity, lineage and the
	// active logic option are restored after the mutator runs.
	UpdateRoomItem(id string, mutator func(*RoomItem) error) (RoomItem, error)
	// SwapActiveLogicOption sets the parent's active option to next only if it
	// still equals observed; otherwise it returns a conflict.
	SwapActiveLogicOption(parentID string, observed, next *string) (RoomItem, error)
	// CreateExpansion fails with a conflict when an active expansion for the
	// same (parent, option) pair or the same (parent, sequence) exists.
	CreateExpansion(Expansion) (Expansion, error)
	UpdateExpansion(id string, mutator func(*Expansion) error) (Expansion, error)
}

// TransactionView provides read-only access to snapshot data for rules and readers.
type TransactionView interface {
	ListTemplates() []Template
	FindTemplate(id string) (Template, bool)
	FindSection(id string) (Section, bool)
	// ListSections returns the template's sections ordered by position.
	ListSections(templateID string) []Section
	FindTemplateItem(id string) (TemplateItem, bool)
	// ListTemplateItems returns the section's items ordered by position.
	ListTemplateItems(sectionID string) []TemplateItem
	FindRoomItem(id string) (RoomItem, bool)
	// ListRoomItems returns every room item of the room, hidden ones included.
	ListRoomItems(roomID string) []RoomItem
	// ListChildren returns every item whose parent is parentID.
	ListChildren(parentID string) []RoomItem
	FindRoom(roomID string) (Room, bool)
	// RoomExists reports whether the room has been instantiated.
	RoomExists(roomID string) bool
	FindExpansion(id string) (Expansion, bool)
	// ListExpansions returns the parent's expansions ordered by sequence.
	ListExpansions(parentID string) []Expansion
}

// PersistentStore is a minimal abstraction over durable backends.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	Close() error
}
