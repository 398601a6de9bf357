// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp implements the MCP server: JSON-RPC 2.0 over
// newline-delimited stdio, exposing bounded git inspection tools, the
// propose/execute approval protocol, and read-only repo:// resources.
//
// Tool failures are reported as tool results with isError set and an
// errorInfo{category, retryable} extension block, so agents can decide
// programmatically whether to retry, re-propose, or escalate. JSON-RPC
// level errors are reserved for protocol problems (parse errors,
// unknown methods, unknown tools).
package mcp
