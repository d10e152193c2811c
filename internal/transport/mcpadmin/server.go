// Package mcpadmin exposes memory maintenance and knowledge loading as MCP
// tools over stdio, so an operator's MCP client can drive a running agent.
package mcpadmin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/pkg/log"
)

const (
	defaultRecentTurns = 10
	maxRecentTurns     = 50
)

// MemoryAdmin is the maintenance surface of the memory store.
type MemoryAdmin interface {
	Sweep(ctx context.Context, tenantID string) (core.SweepResult, error)
	AuditIsolation(ctx context.Context) (core.IsolationReport, error)
	RepairIsolation(ctx context.Context, tenantID string) (core.RepairResult, error)
	WipeParticipant(ctx context.Context, key core.TenantKey) (int, error)
	GetRecent(ctx context.Context, key core.TenantKey, limit int) ([]core.MemoryTurn, error)
}

type Server struct {
	mcp       *server.MCPServer
	memory    MemoryAdmin
	knowledge core.KnowledgeRepository
	in        io.Reader
	out       io.Writer
}

func NewServer(memory MemoryAdmin, knowledge core.KnowledgeRepository, in io.Reader, out io.Writer) *Server {
	s := &Server{
		mcp:       server.NewMCPServer(core.AgentName, core.AgentVersion, server.WithToolCapabilities(false)),
		memory:    memory,
		knowledge: knowledge,
		in:        in,
		out:       out,
	}
	s.register()
	return s
}

// Start serves until ctx is cancelled or stdin closes.
func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting mcp admin server on stdio")
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, s.in, s.out)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return nil
}

func (s *Server) register() {
	s.mcp.AddTool(mcpproto.NewTool("memory_sweep",
		mcpproto.WithDescription("Purge durable memory past retention and evict idle cache entries. Empty tenant_id sweeps every tenant."),
		mcpproto.WithString("tenant_id", mcpproto.Description("Tenant to sweep")),
	), s.sweep)

	s.mcp.AddTool(mcpproto.NewTool("memory_audit",
		mcpproto.WithDescription("Report cache keys and durable records that carry no tenant."),
	), s.audit)

	s.mcp.AddTool(mcpproto.NewTool("memory_repair",
		mcpproto.WithDescription("Assign tenant_id to every record and cache key found without one."),
		mcpproto.WithString("tenant_id", mcpproto.Required(), mcpproto.Description("Tenant that receives orphaned memory")),
	), s.repair)

	s.mcp.AddTool(mcpproto.NewTool("memory_wipe",
		mcpproto.WithDescription("Delete all memory of one participant within one tenant."),
		mcpproto.WithString("tenant_id", mcpproto.Required()),
		mcpproto.WithString("participant_id", mcpproto.Required()),
	), s.wipe)

	s.mcp.AddTool(mcpproto.NewTool("memory_recent",
		mcpproto.WithDescription("Show the most recent turns for a participant."),
		mcpproto.WithString("tenant_id", mcpproto.Required()),
		mcpproto.WithString("participant_id", mcpproto.Required()),
		mcpproto.WithString("conversation_id", mcpproto.Description("Empty for participant-global memory")),
		mcpproto.WithNumber("limit", mcpproto.DefaultNumber(defaultRecentTurns)),
	), s.recent)

	s.mcp.AddTool(mcpproto.NewTool("knowledge_add",
		mcpproto.WithDescription("Add a product, faq or policy entry to a tenant's knowledge base."),
		mcpproto.WithString("tenant_id", mcpproto.Required()),
		mcpproto.WithString("type", mcpproto.Required(), mcpproto.Description("product, faq or policy")),
		mcpproto.WithString("content", mcpproto.Required()),
		mcpproto.WithString("summary"),
		mcpproto.WithString("metadata", mcpproto.Description("JSON object, e.g. {\"price\": 350}")),
	), s.addKnowledge)
}

func (s *Server) sweep(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	res, err := s.memory.Sweep(ctx, req.GetString("tenant_id", ""))
	if err != nil {
		return mcpproto.NewToolResultErrorFromErr("sweep failed", err), nil
	}
	return jsonResult(res)
}

func (s *Server) audit(ctx context.Context, _ mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	report, err := s.memory.AuditIsolation(ctx)
	if err != nil {
		return mcpproto.NewToolResultErrorFromErr("audit failed", err), nil
	}
	return jsonResult(report)
}

func (s *Server) repair(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	tenantID, err := req.RequireString("tenant_id")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	res, err := s.memory.RepairIsolation(ctx, tenantID)
	if err != nil {
		return mcpproto.NewToolResultErrorFromErr("repair failed", err), nil
	}
	return jsonResult(res)
}

func (s *Server) wipe(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	key, err := keyFrom(req)
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	n, err := s.memory.WipeParticipant(ctx, key)
	if err != nil {
		return mcpproto.NewToolResultErrorFromErr("wipe failed", err), nil
	}
	return mcpproto.NewToolResultText(fmt.Sprintf("deleted %d durable records", n)), nil
}

func (s *Server) recent(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	key, err := keyFrom(req)
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", defaultRecentTurns)
	if limit <= 0 || limit > maxRecentTurns {
		limit = maxRecentTurns
	}
	turns, err := s.memory.GetRecent(ctx, key, limit)
	if err != nil {
		return mcpproto.NewToolResultErrorFromErr("read failed", err), nil
	}
	return jsonResult(turns)
}

func (s *Server) addKnowledge(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	tenantID, err := req.RequireString("tenant_id")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	hit := core.RawHit{
		Type:    strings.ToLower(req.GetString("type", "")),
		Content: req.GetString("content", ""),
		Summary: req.GetString("summary", ""),
	}
	switch core.HitType(hit.Type) {
	case core.HitProduct, core.HitFAQ, core.HitPolicy:
	default:
		return mcpproto.NewToolResultErrorf("unknown type %q", hit.Type), nil
	}
	if strings.TrimSpace(hit.Content) == "" {
		return mcpproto.NewToolResultError("content is required"), nil
	}
	if raw := req.GetString("metadata", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &hit.Metadata); err != nil {
			return mcpproto.NewToolResultErrorFromErr("metadata is not a JSON object", err), nil
		}
	}

	id, err := s.knowledge.SaveHit(ctx, tenantID, hit)
	if err != nil {
		return mcpproto.NewToolResultErrorFromErr("save failed", err), nil
	}
	return mcpproto.NewToolResultText(fmt.Sprintf("saved %s #%d", hit.Type, id)), nil
}

func keyFrom(req mcpproto.CallToolRequest) (core.TenantKey, error) {
	tenantID, err := req.RequireString("tenant_id")
	if err != nil {
		return core.TenantKey{}, err
	}
	participantID, err := req.RequireString("participant_id")
	if err != nil {
		return core.TenantKey{}, err
	}
	key := core.NewTenantKey(tenantID, req.GetString("conversation_id", ""), participantID)
	return key, key.Validate()
}

func jsonResult(v any) (*mcpproto.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcpproto.NewToolResultText(string(data)), nil
}
