// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers, primarily scratch git
// repositories for exercising the runner, state reader, and approval
// flow against a real git binary.
package testutil
