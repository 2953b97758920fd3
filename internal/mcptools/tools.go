// Package mcptools exposes room operations as MCP tools. Every call runs as
// the actor the server was configured with.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Workflow is the room surface the tools call.
type Workflow interface {
	Instantiate(ctx context.Context, roomID, templateID string) (domain.RoomState, domain.Result, error)
	SetVisibility(ctx context.Context, itemID string, visible bool) (domain.RoomItem, domain.Result, error)
	ApplyLogicOption(ctx context.Context, parentID, optionID string) ([]domain.RoomItem, domain.Result, error)
	ClearLogicOption(ctx context.Context, parentID string) (domain.RoomItem, domain.Result, error)
	SetStatus(ctx context.Context, itemID string, status domain.Status) (domain.RoomItem, domain.Result, error)
	SetNotes(ctx context.Context, itemID, notes string) (domain.RoomItem, domain.Result, error)
	GetRoomState(ctx context.Context, roomID string, includeHidden bool) (domain.RoomState, error)
	ComputeProgress(ctx context.Context, roomID string) (domain.Progress, error)
}

// Tool is one MCP tool: its schema and handler.
type Tool struct {
	def mcp.Tool
	run func(ctx context.Context, req mcp.CallToolRequest) (any, error)
	as  domain.Actor
}

// Definition returns the MCP tool schema.
func (t *Tool) Definition() mcp.Tool { return t.def }

// Handle runs the tool as the configured actor. Domain failures are returned
// as tool errors carrying the error kind, not as protocol errors.
func (t *Tool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := t.run(domain.WithActor(ctx, t.as), req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", domain.KindOf(err), err)), nil
	}
	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// mutation is the JSON body of tools that write.
type mutation struct {
	Data       any                `json:"data"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

// All returns every room tool bound to wf and actor.
func All(wf Workflow, actor domain.Actor) []*Tool {
	var statuses []string
	for _, s := range domain.Statuses() {
		statuses = append(statuses, string(s))
	}
	tools := []*Tool{
		{
			def: mcp.NewTool("ffe_instantiate",
				mcp.WithDescription("Create a room's FFE checklist by copying every item of a template."),
				mcp.WithString("room_id", mcp.Required(), mcp.Description("Room to populate; must not be instantiated yet")),
				mcp.WithString("template_id", mcp.Required(), mcp.Description("Template to copy")),
			),
			run: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
				roomID, templateID, err := requireTwo(req, "room_id", "template_id")
				if err != nil {
					return nil, err
				}
				state, res, err := wf.Instantiate(ctx, roomID, templateID)
				return mutation{Data: state, Violations: res.Violations}, err
			},
		},
		{
			def: mcp.NewTool("ffe_set_visibility",
				mcp.WithDescription("Include or remove a room item from use. Removing an item also removes everything derived from it."),
				mcp.WithString("item_id", mcp.Required(), mcp.Description("Room item id")),
				mcp.WithBoolean("visible", mcp.Required(), mcp.Description("true to include, false to remove")),
			),
			run: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
				itemID, err := requireString(req, "item_id")
				if err != nil {
					return nil, err
				}
				visible, err := req.RequireBool("visible")
				if err != nil {
					return nil, domain.NewValidationError("%v", err)
				}
				item, res, err := wf.SetVisibility(ctx, itemID, visible)
				return mutation{Data: item, Violations: res.Violations}, err
			},
		},
		{
			def: mcp.NewTool("ffe_apply_logic_option",
				mcp.WithDescription("Choose a logic option on a room item, creating its derived child items. Switching options hides the previous children."),
				mcp.WithString("item_id", mcp.Required(), mcp.Description("Parent room item id")),
				mcp.WithString("option_id", mcp.Required(), mcp.Description("Logic option declared on the item")),
			),
			run: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
				itemID, optionID, err := requireTwo(req, "item_id", "option_id")
				if err != nil {
					return nil, err
				}
				children, res, err := wf.ApplyLogicOption(ctx, itemID, optionID)
				return mutation{Data: children, Violations: res.Violations}, err
			},
		},
		{
			def: mcp.NewTool("ffe_clear_logic_option",
				mcp.WithDescription("Revert a room item to having no active logic option."),
				mcp.WithString("item_id", mcp.Required(), mcp.Description("Parent room item id")),
			),
			run: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
				itemID, err := requireString(req, "item_id")
				if err != nil {
					return nil, err
				}
				item, res, err := wf.ClearLogicOption(ctx, itemID)
				return mutation{Data: item, Violations: res.Violations}, err
			},
		},
		{
			def: mcp.NewTool("ffe_set_status",
				mcp.WithDescription("Set the procurement status of a visible room item."),
				mcp.WithString("item_id", mcp.Required(), mcp.Description("Room item id")),
				mcp.WithString("status", mcp.Required(), mcp.Enum(statuses...), mcp.Description("New status")),
			),
			run: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
				itemID, status, err := requireTwo(req, "item_id", "status")
				if err != nil {
					return nil, err
				}
				item, res, err := wf.SetStatus(ctx, itemID, domain.Status(status))
				return mutation{Data: item, Violations: res.Violations}, err
			},
		},
		{
			def: mcp.NewTool("ffe_set_notes",
				mcp.WithDescription("Replace the free-text notes of a room item."),
				mcp.WithString("item_id", mcp.Required(), mcp.Description("Room item id")),
				mcp.WithString("notes", mcp.Required(), mcp.Description("Notes text; empty clears them")),
			),
			run: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
				itemID, err := requireString(req, "item_id")
				if err != nil {
					return nil, err
				}
				if _, ok := req.GetArguments()["notes"]; !ok {
					return nil, domain.NewValidationError("notes is required")
				}
				item, res, err := wf.SetNotes(ctx, itemID, req.GetString("notes", ""))
				return mutation{Data: item, Violations: res.Violations}, err
			},
		},
		{
			def: mcp.NewTool("ffe_room_state",
				mcp.WithDescription("Return a room's ordered checklist with progress."),
				mcp.WithString("room_id", mcp.Required(), mcp.Description("Room id")),
				mcp.WithBoolean("include_hidden", mcp.Description("Include items removed from use (default false)")),
			),
			run: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
				roomID, err := requireString(req, "room_id")
				if err != nil {
					return nil, err
				}
				return wf.GetRoomState(ctx, roomID, req.GetBool("include_hidden", false))
			},
		},
		{
			def: mcp.NewTool("ffe_progress",
				mcp.WithDescription("Return completion counts and percentage for a room."),
				mcp.WithString("room_id", mcp.Required(), mcp.Description("Room id")),
			),
			run: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
				roomID, err := requireString(req, "room_id")
				if err != nil {
					return nil, err
				}
				return wf.ComputeProgress(ctx, roomID)
			},
		},
	}
	for _, t := range tools {
		t.as = actor
	}
	return tools
}

// NewServer builds an MCP server with every room tool registered.
func NewServer(wf Workflow, actor domain.Actor, version string) *server.MCPServer {
	s := server.NewMCPServer("ffetrack", version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("FFE procurement checklists: instantiate rooms from templates, choose logic options, and track item status."),
	)
	for _, t := range All(wf, actor) {
		s.AddTool(t.Definition(), t.Handle)
	}
	return s
}

func requireString(req mcp.CallToolRequest, key string) (string, error) {
	v, err := req.RequireString(key)
	if err != nil {
		return "", domain.NewValidationError("%v", err)
	}
	if v == "" {
		return "", domain.NewValidationError("%s is required", key)
	}
	return v, nil
}

func requireTwo(req mcp.CallToolRequest, a, b string) (string, string, error) {
	first, err := requireString(req, a)
	if err != nil {
		return "", "", err
	}
	second, err := requireString(req, b)
	if err != nil {
		return "", "", err
	}
	return first, second, nil
}
