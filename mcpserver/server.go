// Package mcpserver implements a JSON-RPC 2.0 MCP server over
// newline-delimited stdin/stdout. Stdout carries protocol messages only;
// all logging goes to the structured logger on stderr.
package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"pkt.systems/loopgate/internal/logx"
	"pkt.systems/loopgate/internal/version"
	"pkt.systems/loopgate/schema"
	"pkt.systems/pslog"
)

// maxLineBytes bounds a single request line.
const maxLineBytes = 10 << 20

// FeedbackFunc collects feedback for a project; it blocks until the human
// responds or the context is cancelled.
type FeedbackFunc func(ctx context.Context, projectDir, summary string) (schema.FeedbackResult, error)

// Server reads requests line by line and serves them sequentially. A bad
// request never terminates the loop; only stdin EOF or context
// cancellation does.
type Server struct {
	reader   io.Reader
	feedback FeedbackFunc
	log      pslog.Logger

	writeMu sync.Mutex
	writer  io.Writer
}

// NewServer constructs a protocol server on the given transport.
func NewServer(reader io.Reader, writer io.Writer, feedback FeedbackFunc, logger pslog.Logger) *Server {
	return &Server{
		reader:   reader,
		writer:   writer,
		feedback: feedback,
		log:      logx.WithComponent(logger, "mcp"),
	}
}

// Serve processes requests until EOF or context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.reader)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("mcp server stopping", "reason", ctx.Err())
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("stdin read: %w", err)
					}
				default:
				}
				s.log.Info("mcp server stopping", "reason", "eof")
				return nil
			}
			if len(strings.TrimSpace(string(line))) == 0 {
				continue
			}
			s.handleLine(ctx, line)
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte) {
	var req JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.log.Warn("request parse failed", "err", err)
		s.sendError(nil, codeParseError, "Parse error", nil)
		return
	}
	if req.JSONRPC != "2.0" {
		s.log.Warn("unsupported jsonrpc version", "version", req.JSONRPC)
		s.sendError(req.ID, codeInvalidRequest, "Invalid Request", "jsonrpc must be \"2.0\"")
		return
	}
	s.log.Debug("request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "initialized", "notifications/initialized":
		// notification; no response
	case "tools/list":
		s.sendResult(req.ID, ToolsListResult{Tools: toolDefinitions()})
	case "tools/call":
		s.handleToolCall(ctx, req)
	default:
		if req.ID == nil {
			s.log.Debug("ignoring unknown notification", "method", req.Method)
			return
		}
		s.sendError(req.ID, codeMethodNotFound, "Method not found", req.Method)
	}
}

func (s *Server) handleInitialize(req JSONRPCRequest) {
	var params InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendError(req.ID, codeInvalidParams, "Invalid params", err.Error())
			return
		}
	}
	s.log.Info("client initialized", "client", params.ClientInfo.Name, "client_version", params.ClientInfo.Version)
	s.sendResult(req.ID, InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    Capability{Tools: &ToolCapability{}},
		ServerInfo: ServerInfo{
			Name:    "loopgate",
			Version: version.Current(),
		},
	})
}

func (s *Server) handleToolCall(ctx context.Context, req JSONRPCRequest) {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.sendError(req.ID, codeInvalidParams, "Invalid params", err.Error())
		return
	}
	switch toolKindForName(params.Name) {
	case ToolInteractiveFeedback:
		s.callInteractiveFeedback(ctx, req.ID, params.Arguments)
	case ToolUnknown:
		s.sendError(req.ID, codeInvalidParams, "Invalid params", fmt.Sprintf("unknown tool: %s", params.Name))
	}
}

func (s *Server) callInteractiveFeedback(ctx context.Context, id any, args map[string]any) {
	// A misbehaving handler must fail the request, never the serve loop.
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("tool handler panicked", "tool", toolNameInteractiveFeedback, "panic", r)
			s.sendError(id, codeInternalError, "Internal error", fmt.Sprintf("%v", r))
		}
	}()

	projectDir, ok := stringArg(args, "project_directory")
	if !ok {
		s.sendError(id, codeInvalidParams, "Invalid params", "project_directory is required")
		return
	}
	summary, ok := stringArg(args, "summary")
	if !ok {
		s.sendError(id, codeInvalidParams, "Invalid params", "summary is required")
		return
	}
	projectDir = schema.FirstLine(projectDir)
	summary = schema.FirstLine(summary)

	log := s.log.With("project", projectDir)
	log.Info("feedback session starting")
	result, err := s.feedback(ctx, projectDir, summary)
	if err != nil {
		log.Error("feedback session failed", "err", err)
		s.sendError(id, codeInternalError, "Internal error", err.Error())
		return
	}
	log.Info("feedback session complete", "feedback_len", len(result.InteractiveFeedback), "logs_len", len(result.CommandLogs))

	payload, err := json.Marshal(result)
	if err != nil {
		s.sendError(id, codeInternalError, "Internal error", err.Error())
		return
	}
	s.sendResult(id, ToolCallResult{
		Content: []ContentItem{{Type: "text", Text: string(payload)}},
	})
}

func stringArg(args map[string]any, key string) (string, bool) {
	raw, ok := args[key]
	if !ok {
		return "", false
	}
	value, ok := raw.(string)
	return value, ok
}

func (s *Server) sendResult(id any, result any) {
	s.send(JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) sendError(id any, code int, message string, data any) {
	s.send(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	})
}

// send writes exactly one JSON object per line.
func (s *Server) send(resp JSONRPCResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("response marshal failed", "err", err)
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := fmt.Fprintf(s.writer, "%s\n", data); err != nil {
		s.log.Warn("response write failed", "err", err)
	}
}
