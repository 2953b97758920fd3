package domain

import "context"

// Role is the acting user's role as supplied by the auth collaborator.
type Role string

// Recognised roles.
const (
	RoleAdmin    Role = "admin"
	RoleDesigner Role = "designer"
	RoleMember   Role = "member"
)

// Actor identifies who performs an operation. Rooms lists the room
// assignments of a member; admins and designers may edit every room.
type Actor struct {
	ID    string   `json:"id"`
	Role  Role     `json:"role"`
	Rooms []string `json:"rooms,omitempty"`
}

// CanAuthorTemplates reports whether the actor may edit templates.
func (a Actor) CanAuthorTemplates() bool {
	return a.Role == RoleAdmin || a.Role == RoleDesigner
}

// CanEditRoom reports whether the actor may mutate the room's checklist.
func (a Actor) CanEditRoom(roomID string) bool {
	return a.assignedTo(roomID)
}

// CanViewRoom reports whether the actor may read the room's checklist,
// notes included. Reading follows the same assignment as editing.
func (a Actor) CanViewRoom(roomID string) bool {
	return a.assignedTo(roomID)
}

func (a Actor) assignedTo(roomID string) bool {
	if a.CanAuthorTemplates() {
		return true
	}
	for _, r := range a.Rooms {
		if r == roomID {
			return true
		}
	}
	return false
}

type actorKey struct{}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom extracts the actor set by WithActor.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || a.ID == "" {
		return Actor{}, false
	}
	return a, true
}
