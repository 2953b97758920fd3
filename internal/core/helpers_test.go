package core

import (
	"context"
	"errors"
	"testing"

	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
)

const (
	doubleVanityID = "double-vanity"
	singleVanityID = "single-vanity"
)

func adminCtx() context.Context {
	return domain.WithActor(context.Background(), domain.Actor{ID: "admin-1", Role: domain.RoleAdmin})
}

func memberCtx(rooms ...string) context.Context {
	return domain.WithActor(context.Background(), domain.Actor{ID: "member-1", Role: domain.RoleMember, Rooms: rooms})
}

// bathroomFixture holds a template with one bathroom section: a Vanity item
// carrying single and double options, a Mirror, and a Toilet.
type bathroomFixture struct {
	svc      *Service
	template Template
	section  Section
	vanity   TemplateItem
	mirror   TemplateItem
	toilet   TemplateItem
}

func newBathroomFixture(t *testing.T, opts ...Option) bathroomFixture {
	t.Helper()
	svc := NewInMemoryService(nil, opts...)
	return seedBathroom(t, svc)
}

func seedBathroom(t *testing.T, svc *Service) bathroomFixture {
	t.Helper()
	ctx := adminCtx()
	tpl, _, err := svc.CreateTemplate(ctx, "Bathroom", "standard bath")
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	sec, _, err := svc.AddSection(ctx, tpl.ID, "Plumbing")
	if err != nil {
		t.Fatalf("add section: %v", err)
	}
	vanity, _, err := svc.AddItem(ctx, sec.ID, ItemDefinition{Name: "Vanity", Category: "Cabinetry"}, []LogicOption{
		{ID: doubleVanityID, Name: "Double Vanity", ItemsToCreate: 2, SubItems: []SubItem{{Name: "Left Vanity"}, {Name: "Right Vanity"}}},
		{ID: singleVanityID, Name: "Single Vanity", ItemsToCreate: 3, SubItems: []SubItem{{Name: "Basin", Category: domain.StrPtr("Sanitary")}}},
	})
	if err != nil {
		t.Fatalf("add vanity: %v", err)
	}
	mirror, _, err := svc.AddItem(ctx, sec.ID, ItemDefinition{Name: "Mirror", Category: "Accessories"}, nil)
	if err != nil {
		t.Fatalf("add mirror: %v", err)
	}
	toilet, _, err := svc.AddItem(ctx, sec.ID, ItemDefinition{Name: "Toilet", Category: "Sanitary"}, nil)
	if err != nil {
		t.Fatalf("add toilet: %v", err)
	}
	return bathroomFixture{svc: svc, template: tpl, section: sec, vanity: vanity, mirror: mirror, toilet: toilet}
}

// instantiate creates the room and returns its items keyed by name.
func (f bathroomFixture) instantiate(t *testing.T, roomID string) map[string]RoomItem {
	t.Helper()
	state, _, err := f.svc.Instantiate(adminCtx(), roomID, f.template.ID)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	return itemsByName(state.Items)
}

func (f bathroomFixture) state(t *testing.T, roomID string, includeHidden bool) domain.RoomState {
	t.Helper()
	state, err := f.svc.GetRoomState(adminCtx(), roomID, includeHidden)
	if err != nil {
		t.Fatalf("room state: %v", err)
	}
	return state
}

func itemsByName(items []RoomItem) map[string]RoomItem {
	out := make(map[string]RoomItem, len(items))
	for _, item := range items {
		out[item.Name] = item
	}
	return out
}

func names(items []RoomItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := domain.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
	var de *domain.Error
	var rv domain.RuleViolationError
	if !errors.As(err, &de) && !errors.As(err, &rv) {
		t.Fatalf("expected a classified error, got %T", err)
	}
}
