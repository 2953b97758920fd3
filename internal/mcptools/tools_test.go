package mcptools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/core"
	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
)

func makeReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

type fixture struct {
	tools    map[string]*Tool
	template domain.Template
}

func newFixture(t *testing.T, actor domain.Actor) fixture {
	t.Helper()
	svc := core.NewInMemoryService(nil)
	ctx := domain.WithActor(context.Background(), domain.Actor{ID: "admin-1", Role: domain.RoleAdmin})
	tpl, _, err := svc.CreateTemplate(ctx, "Bedroom", "")
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	sec, _, err := svc.AddSection(ctx, tpl.ID, "Furniture")
	if err != nil {
		t.Fatalf("add section: %v", err)
	}
	_, _, err = svc.AddItem(ctx, sec.ID, core.ItemDefinition{Name: "Nightstand"}, []core.LogicOption{
		{ID: "pair", Name: "Pair", ItemsToCreate: 2},
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	tools := map[string]*Tool{}
	for _, tool := range All(svc, actor) {
		tools[tool.Definition().Name] = tool
	}
	return fixture{tools: tools, template: tpl}
}

func (f fixture) call(t *testing.T, name string, args map[string]any) (string, bool) {
	t.Helper()
	tool, ok := f.tools[name]
	if !ok {
		t.Fatalf("tool %s not registered", name)
	}
	res, err := tool.Handle(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("%s returned protocol error: %v", name, err)
	}
	return resultText(res), res.IsError
}

func TestToolDefinitions(t *testing.T) {
	f := newFixture(t, domain.Actor{ID: "bot", Role: domain.RoleAdmin})
	want := map[string][]string{
		"ffe_instantiate":        {"room_id", "template_id"},
		"ffe_set_visibility":     {"item_id", "visible"},
		"ffe_apply_logic_option": {"item_id", "option_id"},
		"ffe_clear_logic_option": {"item_id"},
		"ffe_set_status":         {"item_id", "status"},
		"ffe_set_notes":          {"item_id", "notes"},
		"ffe_room_state":         {"room_id"},
		"ffe_progress":           {"room_id"},
	}
	if len(f.tools) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(f.tools))
	}
	for name, required := range want {
		def := f.tools[name].Definition()
		for _, key := range required {
			if _, ok := def.InputSchema.Properties[key]; !ok {
				t.Fatalf("%s missing %q property", name, key)
			}
			found := false
			for _, r := range def.InputSchema.Required {
				if r == key {
					found = true
				}
			}
			if !found {
				t.Fatalf("%s: %q should be required", name, key)
			}
		}
	}
}

func TestRoomFlowThroughTools(t *testing.T) {
	f := newFixture(t, domain.Actor{ID: "bot", Role: domain.RoleDesigner})

	text, isErr := f.call(t, "ffe_instantiate", map[string]any{"room_id": "bed-1", "template_id": f.template.ID})
	if isErr {
		t.Fatalf("instantiate failed: %s", text)
	}
	var created struct {
		Data domain.RoomState `json:"data"`
	}
	if err := json.Unmarshal([]byte(text), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(created.Data.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(created.Data.Items))
	}
	nightstand := created.Data.Items[0]

	text, isErr = f.call(t, "ffe_apply_logic_option", map[string]any{"item_id": nightstand.ID, "option_id": "pair"})
	if isErr {
		t.Fatalf("apply failed: %s", text)
	}
	var applied struct {
		Data []domain.RoomItem `json:"data"`
	}
	if err := json.Unmarshal([]byte(text), &applied); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(applied.Data) != 2 || applied.Data[0].Name != "Nightstand – Item 1" {
		t.Fatalf("unexpected children %+v", applied.Data)
	}

	if text, isErr = f.call(t, "ffe_set_status", map[string]any{"item_id": applied.Data[0].ID, "status": "COMPLETED"}); isErr {
		t.Fatalf("set status failed: %s", text)
	}
	if text, isErr = f.call(t, "ffe_set_notes", map[string]any{"item_id": applied.Data[1].ID, "notes": "walnut"}); isErr {
		t.Fatalf("set notes failed: %s", text)
	}

	text, isErr = f.call(t, "ffe_progress", map[string]any{"room_id": "bed-1"})
	if isErr {
		t.Fatalf("progress failed: %s", text)
	}
	var progress domain.Progress
	if err := json.Unmarshal([]byte(text), &progress); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if progress.Total != 3 || progress.Completed != 1 || progress.Percent != 33 {
		t.Fatalf("unexpected progress %+v", progress)
	}

	if text, isErr = f.call(t, "ffe_set_visibility", map[string]any{"item_id": nightstand.ID, "visible": false}); isErr {
		t.Fatalf("set visibility failed: %s", text)
	}
	text, _ = f.call(t, "ffe_room_state", map[string]any{"room_id": "bed-1"})
	var state domain.RoomState
	if err := json.Unmarshal([]byte(text), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(state.Items) != 0 || state.Progress.Percent != 100 {
		t.Fatalf("expected empty visible room, got %+v", state)
	}
	text, _ = f.call(t, "ffe_room_state", map[string]any{"room_id": "bed-1", "include_hidden": true})
	if err := json.Unmarshal([]byte(text), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(state.Items) != 3 {
		t.Fatalf("expected 3 items including hidden, got %d", len(state.Items))
	}

	if text, isErr = f.call(t, "ffe_set_visibility", map[string]any{"item_id": nightstand.ID, "visible": true}); isErr {
		t.Fatalf("restore visibility failed: %s", text)
	}
	if text, isErr = f.call(t, "ffe_clear_logic_option", map[string]any{"item_id": nightstand.ID}); isErr {
		t.Fatalf("clear failed: %s", text)
	}
}

func TestToolErrorsCarryKind(t *testing.T) {
	f := newFixture(t, domain.Actor{ID: "bot", Role: domain.RoleMember, Rooms: []string{"bed-1"}})
	cases := []struct {
		tool string
		args map[string]any
		kind domain.ErrorKind
	}{
		{"ffe_instantiate", map[string]any{"room_id": "bed-1"}, domain.KindValidation},
		{"ffe_set_visibility", map[string]any{"item_id": "x"}, domain.KindValidation},
		{"ffe_set_notes", map[string]any{"item_id": "x"}, domain.KindValidation},
		{"ffe_set_status", map[string]any{"item_id": "missing", "status": "COMPLETED"}, domain.KindNotFound},
		{"ffe_progress", map[string]any{"room_id": "bed-1"}, domain.KindNotFound},
		{"ffe_room_state", map[string]any{"room_id": "bed-2"}, domain.KindPermission},
		{"ffe_instantiate", map[string]any{"room_id": "bed-2", "template_id": f.template.ID}, domain.KindPermission},
	}
	for _, tc := range cases {
		text, isErr := f.call(t, tc.tool, tc.args)
		if !isErr {
			t.Fatalf("%s %v: expected tool error, got %s", tc.tool, tc.args, text)
		}
		if !strings.HasPrefix(text, string(tc.kind)+":") {
			t.Fatalf("%s %v: expected %s error, got %q", tc.tool, tc.args, tc.kind, text)
		}
	}
}

func TestNewServerListsTools(t *testing.T) {
	s := NewServer(core.NewInMemoryService(nil), domain.Actor{ID: "bot", Role: domain.RoleAdmin}, "test")
	msg := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Result.Tools) != 8 {
		t.Fatalf("expected 8 tools, got %s", raw)
	}
}
