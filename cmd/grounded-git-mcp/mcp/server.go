// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/adina8244/grounded-git-mcp-server/cmd/grounded-git-mcp/cli"
	"github.com/adina8244/grounded-git-mcp-server/lib/approval"
	"github.com/adina8244/grounded-git-mcp-server/lib/git"
	"github.com/adina8244/grounded-git-mcp-server/lib/version"
)

// Server is the MCP server: it exposes git inspection tools and the
// propose/execute approval protocol over JSON-RPC 2.0 on
// newline-delimited stdio.
type Server struct {
	service     *approval.Service
	limits      git.Limits
	defaultRoot string
	logger      *slog.Logger

	tools       []tool
	toolsByName map[string]*tool
	resources   []resourceProvider
	initialized bool
}

// NewServer builds a server around an approval service. defaultRoot,
// when non-empty, is the repository used for calls that omit the root
// parameter; limits bound every git invocation the tools make.
func NewServer(service *approval.Service, limits git.Limits, defaultRoot string, logger *slog.Logger) *Server {
	s := &Server{
		service:     service,
		limits:      limits,
		defaultRoot: defaultRoot,
		logger:      logger,
	}

	s.tools = s.buildTools()
	s.toolsByName = make(map[string]*tool, len(s.tools))
	for i := range s.tools {
		s.toolsByName[s.tools[i].name] = &s.tools[i]
	}

	s.resources = []resourceProvider{newRepoResourceProvider(s)}
	return s
}

// Serve starts the MCP server reading from os.Stdin and writing to
// os.Stdout. This is the entry point for "grounded-git-mcp serve".
func (s *Server) Serve(ctx context.Context) error {
	return s.Run(ctx, os.Stdin, os.Stdout)
}

// maxRequestBytes caps a single request line. MCP messages can be
// large (diff payloads, file contents), but an unbounded line would
// let one request exhaust memory.
const maxRequestBytes = 1024 * 1024

// Run processes JSON-RPC 2.0 requests from input and writes responses
// to output until input reaches EOF. Each request occupies a single
// line (newline-delimited JSON-RPC, not Content-Length framed). An
// oversized line is answered with a parse error and the loop keeps
// serving; it never takes the server down.
func (s *Server) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	reader := bufio.NewReaderSize(input, 64*1024)
	encoder := json.NewEncoder(output)

	for {
		line, tooLong, readErr := readLine(reader, maxRequestBytes)
		if readErr != nil && readErr != io.EOF {
			return readErr
		}

		switch {
		case tooLong:
			s.logger.Warn("dropping oversized request line", "limit_bytes", maxRequestBytes)
			if writeErr := writeError(encoder, json.RawMessage("null"), codeParseError,
				fmt.Sprintf("parse error: request exceeds %d byte line limit", maxRequestBytes)); writeErr != nil {
				return cli.Internal("writing parse error response: %w", writeErr)
			}
		case len(line) > 0:
			if err := s.handleLine(ctx, encoder, line); err != nil {
				return err
			}
		}

		if readErr == io.EOF {
			return nil
		}
	}
}

// readLine reads one newline-terminated line, enforcing limit. A line
// longer than limit is consumed to its newline and reported via
// tooLong with no content.
func readLine(reader *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := reader.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			if len(line) > limit {
				tooLong = true
				line = nil
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return bytes.TrimSuffix(line, []byte("\n")), tooLong, err
	}
}

// handleLine parses and dispatches a single request line.
func (s *Server) handleLine(ctx context.Context, encoder *json.Encoder, line []byte) error {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		if writeErr := writeError(encoder, json.RawMessage("null"), codeParseError, "parse error: "+err.Error()); writeErr != nil {
			return cli.Internal("writing parse error response: %w", writeErr)
		}
		return nil
	}

	if req.JSONRPC != "2.0" {
		if !req.isNotification() {
			if writeErr := writeError(encoder, req.ID, codeInvalidRequest, "unsupported JSON-RPC version"); writeErr != nil {
				return cli.Internal("writing version error response: %w", writeErr)
			}
		}
		return nil
	}

	// Notifications have no ID and receive no response.
	if req.isNotification() {
		return nil
	}

	return s.dispatch(ctx, encoder, &req)
}

// dispatch routes a JSON-RPC request to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, encoder *json.Encoder, req *request) error {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(encoder, req)
	case "ping":
		return s.handlePing(encoder, req)
	case "tools/list":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsList(encoder, req)
	case "tools/call":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsCall(ctx, encoder, req)
	case "resources/list":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleResourcesList(ctx, encoder, req)
	case "resources/read":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleResourcesRead(ctx, encoder, req)
	default:
		return writeError(encoder, req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleInitialize(encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for initialize")
	}

	var params initializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
	}

	// The MCP specification says the server responds with its own
	// protocol version and the client decides whether it can proceed.
	// We do not reject clients that request a different version —
	// all MCP versions are additive, so older clients will simply
	// ignore fields they don't recognize.
	s.initialized = true
	s.logger.Info("client initialized",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version)

	return writeResult(encoder, req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: serverCapabilities{
			Tools:     &toolCapability{},
			Resources: &resourceCapability{},
		},
		ServerInfo: serverInfo{
			Name:    "grounded-git-mcp",
			Version: version.Short(),
		},
	})
}

func (s *Server) handlePing(encoder *json.Encoder, req *request) error {
	return writeResult(encoder, req.ID, map[string]any{})
}

func (s *Server) handleToolsList(encoder *json.Encoder, req *request) error {
	descriptions := make([]toolDescription, 0, len(s.tools))
	for _, t := range s.tools {
		descriptions = append(descriptions, toolDescription{
			Name:        t.name,
			Title:       t.title,
			Description: t.description,
			InputSchema: t.inputSchema,
			Annotations: t.annotations,
		})
	}
	return writeResult(encoder, req.ID, toolsListResult{Tools: descriptions})
}

func (s *Server) handleToolsCall(ctx context.Context, encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for tools/call")
	}

	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}

	t, ok := s.toolsByName[params.Name]
	if !ok {
		return writeError(encoder, req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	payload, runErr := t.handler(ctx, params.Arguments)
	result := buildToolResult(payload, runErr)
	if runErr != nil {
		s.logger.Warn("tool call failed",
			"tool", t.name,
			"category", result.ErrorInfo.Category,
			"error", runErr)
	}
	return writeResult(encoder, req.ID, result)
}

// buildToolResult assembles a toolsCallResult from a tool payload and
// an optional run error. Per the MCP specification, a successful call
// carries the payload both as structuredContent and as a serialized
// text content block.
func buildToolResult(payload any, runErr error) toolsCallResult {
	result := toolsCallResult{}

	if runErr != nil {
		result.IsError = true
		result.Content = []contentBlock{{Type: "text", Text: runErr.Error()}}
		result.ErrorInfo = classifyError(runErr)
		return result
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		result.IsError = true
		result.Content = []contentBlock{{Type: "text", Text: "serializing tool result: " + err.Error()}}
		result.ErrorInfo = &errorInfo{Category: string(cli.CategoryInternal)}
		return result
	}

	result.StructuredContent = payload
	result.Content = []contentBlock{{Type: "text", Text: string(serialized)}}
	return result
}

// classifyError extracts structured error metadata from an error. It
// checks for ToolError first, then maps the approval layer's sentinel
// and typed errors, then falls back to context errors for timeouts.
func classifyError(err error) *errorInfo {
	var toolErr *cli.ToolError
	if errors.As(err, &toolErr) {
		return &errorInfo{
			Category:  string(toolErr.Category),
			Retryable: toolErr.Retryable(),
		}
	}

	switch {
	case errors.Is(err, approval.ErrNotFound):
		return &errorInfo{Category: string(cli.CategoryNotFound)}
	case errors.Is(err, approval.ErrExpired):
		return &errorInfo{Category: string(cli.CategoryExpired)}
	case errors.Is(err, approval.ErrExhausted):
		return &errorInfo{Category: string(cli.CategoryExhausted)}
	case errors.Is(err, approval.ErrScopeMismatch):
		return &errorInfo{Category: string(cli.CategoryScopeMismatch)}
	}

	var preconditionErr *approval.PreconditionError
	if errors.As(err, &preconditionErr) {
		return &errorInfo{Category: string(cli.CategoryPrecondition)}
	}
	var policyErr *approval.PolicyError
	if errors.As(err, &policyErr) {
		return &errorInfo{Category: string(cli.CategoryPolicy)}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &errorInfo{Category: string(cli.CategoryTransient), Retryable: true}
	}

	return &errorInfo{Category: string(cli.CategoryInternal)}
}

// openRepo resolves a tool's root parameter to a repository, falling
// back to the server's default root when the parameter is empty.
func (s *Server) openRepo(path string) (*git.Repository, error) {
	if path == "" {
		path = s.defaultRoot
	}
	if path == "" {
		return nil, cli.Validation("root is required (no default repository configured)")
	}
	repo, err := git.Open(path, s.limits)
	if err != nil {
		return nil, cli.NotFound("opening repository: %v", err)
	}
	return repo, nil
}

// writeResult sends a JSON-RPC 2.0 success response.
func writeResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return encoder.Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

// writeError sends a JSON-RPC 2.0 error response.
func writeError(encoder *json.Encoder, id json.RawMessage, code int, message string) error {
	return encoder.Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message},
	})
}
