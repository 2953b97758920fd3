package core

import (
	"context"

	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
)

func requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := domain.ActorFrom(ctx)
	if !ok {
		return domain.Actor{}, domain.NewPermissionError("no acting user on request")
	}
	return actor, nil
}

func requireTemplateAuthor(ctx context.Context) (domain.Actor, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return actor, err
	}
	if !actor.CanAuthorTemplates() {
		return actor, domain.NewPermissionError("role %q cannot edit templates", actor.Role)
	}
	return actor, nil
}

func requireRoomViewer(ctx context.Context, roomID string) (domain.Actor, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return actor, err
	}
	if !actor.CanViewRoom(roomID) {
		return actor, domain.NewPermissionError("user %q is not assigned to room %q", actor.ID, roomID)
	}
	return actor, nil
}

func requireRoomEditor(ctx context.Context, roomID string) (domain.Actor, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return actor, err
	}
	if !actor.CanEditRoom(roomID) {
		return actor, domain.NewPermissionError("user %q is not assigned to room %q", actor.ID, roomID)
	}
	return actor, nil
}
