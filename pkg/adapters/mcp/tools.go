package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mitchellh/mapstructure"
)

type getFlowArgs struct {
	ID *int64 `mapstructure:"id"`
}

type saveFlowArgs struct {
	Flow string  `mapstructure:"flow"`
	Name *string `mapstructure:"name"`
}

type startSessionArgs struct {
	FlowID *int64 `mapstructure:"flow_id"`
	Flow   string `mapstructure:"flow"`
}

type sessionArgs struct {
	SessionID string `mapstructure:"session_id"`
	Text      string `mapstructure:"text"`
}

// decodeArgs maps tool arguments onto a typed struct. JSON numbers arrive as
// float64, so weak typing is required for the integer ids.
func decodeArgs(request mcp.CallToolRequest, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(request.GetArguments()); err != nil {
		return &domain.ValidationError{Reason: fmt.Sprintf("bad arguments: %v", err)}
	}
	return nil
}

// parseFlow decodes a JSON flow document that must carry both arrays.
func parseFlow(raw string) (domain.Flow, error) {
	var doc struct {
		Nodes []domain.Node `json:"nodes"`
		Edges []domain.Edge `json:"edges"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return domain.Flow{}, &domain.ValidationError{Field: "flow", Reason: "is not valid JSON"}
	}
	if doc.Nodes == nil || doc.Edges == nil {
		return domain.Flow{}, &domain.ValidationError{Reason: "nodes and edges required"}
	}
	return domain.Flow{Nodes: doc.Nodes, Edges: doc.Edges}, nil
}

func (s *Server) handleGetFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args getFlowArgs
	if err := decodeArgs(request, &args); err != nil {
		return s.toolError("get_flow", err)
	}

	var sf *domain.StoredFlow
	var err error
	if args.ID != nil {
		sf, err = s.workspace.Store().Get(ctx, *args.ID)
	} else {
		sf, err = s.workspace.Current(ctx)
	}
	if err != nil {
		return s.toolError("get_flow", err)
	}
	return jsonResult(sf)
}

func (s *Server) handleListFlows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flows, err := s.workspace.Store().List(ctx)
	if err != nil {
		return s.toolError("list_flows", err)
	}
	if flows == nil {
		flows = []domain.StoredFlow{}
	}
	return jsonResult(flows)
}

func (s *Server) handleSaveFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args saveFlowArgs
	if err := decodeArgs(request, &args); err != nil {
		return s.toolError("save_flow", err)
	}
	flow, err := parseFlow(args.Flow)
	if err != nil {
		return s.toolError("save_flow", err)
	}

	sf, err := s.workspace.Save(ctx, args.Name, flow)
	if err != nil {
		return s.toolError("save_flow", err)
	}
	return jsonResult(sf)
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args startSessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return s.toolError("start_session", err)
	}

	var flow domain.Flow
	switch {
	case args.Flow != "":
		f, err := parseFlow(args.Flow)
		if err != nil {
			return s.toolError("start_session", err)
		}
		flow = f
	case args.FlowID != nil:
		sf, err := s.workspace.Store().Get(ctx, *args.FlowID)
		if err != nil {
			return s.toolError("start_session", err)
		}
		flow = sf.FlowData
	default:
		sf, err := s.workspace.Current(ctx)
		if err != nil {
			return s.toolError("start_session", err)
		}
		flow = sf.FlowData
	}

	sess, err := s.sessions.Start(ctx, flow)
	if sess == nil {
		return s.toolError("start_session", err)
	}
	if err != nil {
		s.logger.Warn("MCP start_session: run halted", "session_id", sess.ID, "error", err)
	}
	return jsonResult(sess)
}

func (s *Server) handleSubmitInput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return s.toolError("submit_input", err)
	}

	clean, err := s.policy.Sanitize(args.Text)
	if err != nil {
		return s.toolError("submit_input", err)
	}

	sess, err := s.sessions.Submit(ctx, args.SessionID, clean)
	if sess == nil || errors.Is(err, domain.ErrNotAwaitingInput) || errors.Is(err, domain.ErrEmptyInput) {
		return s.toolError("submit_input", err)
	}
	if err != nil {
		s.logger.Warn("MCP submit_input: run halted", "session_id", sess.ID, "error", err)
	}
	return jsonResult(sess)
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return s.toolError("get_session", err)
	}
	sess, err := s.sessions.Load(ctx, args.SessionID)
	if err != nil {
		return s.toolError("get_session", err)
	}
	return jsonResult(sess)
}
