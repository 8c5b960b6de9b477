// Package mcpadapter exposes read and decision operations as MCP tools for assistant clients.
package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/irrrl-engine/internal/core/ports"
)

const applicationIDArg = "application_id"

type Tools struct {
	reader    ports.ApplicationReader
	decisions ports.DecisionService
	workflow  ports.WorkflowService
}

func NewTools(reader ports.ApplicationReader, decisions ports.DecisionService, wf ports.WorkflowService) *Tools {
	return &Tools{reader: reader, decisions: decisions, workflow: wf}
}

func NewServer(name, version string, tools *Tools) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(false))
	s.AddTool(applicationTool("get_application", "Fetch an IRRRL application with its status history."), tools.GetApplication)
	s.AddTool(applicationTool("calculate_ntb", "Run the VA net tangible benefit test and store the result."), tools.CalculateNTB)
	s.AddTool(applicationTool("verify_eligibility", "Verify VA IRRRL eligibility and store the verdict."), tools.VerifyEligibility)
	s.AddTool(applicationTool("allowed_transitions", "List the statuses the application can move to next."), tools.AllowedTransitions)
	return s
}

func applicationTool(name, description string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString(applicationIDArg, mcp.Required(), mcp.Description("Application identifier.")),
	)
}

func (t *Tools) GetApplication(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.run(ctx, req, func(ctx context.Context, id string) (any, error) {
		return t.reader.Get(ctx, id)
	})
}

func (t *Tools) CalculateNTB(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.run(ctx, req, func(ctx context.Context, id string) (any, error) {
		return t.decisions.CalculateNTB(ctx, id)
	})
}

func (t *Tools) VerifyEligibility(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.run(ctx, req, func(ctx context.Context, id string) (any, error) {
		return t.decisions.VerifyEligibility(ctx, id)
	})
}

func (t *Tools) AllowedTransitions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.run(ctx, req, func(ctx context.Context, id string) (any, error) {
		allowed, err := t.workflow.AllowedTransitions(ctx, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"allowed": allowed}, nil
	})
}

// run reports domain failures as tool errors so the client sees the message.
func (t *Tools) run(ctx context.Context, req mcp.CallToolRequest, call func(context.Context, string) (any, error)) (*mcp.CallToolResult, error) {
	id, err := req.RequireString(applicationIDArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := call(ctx, id)
	if err != nil {
		slog.Warn("mcp_tool_failed", "tool", req.Params.Name, "application_id", id, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(payload)), nil
}
