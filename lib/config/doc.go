// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the server.
//
// Configuration is loaded from a single YAML file specified by:
//   - the GROUNDED_GIT_MCP_CONFIG environment variable, or
//   - the --config flag passed to the command
//
// There are no fallbacks or automatic discovery. When no file is
// specified, built-in defaults apply. This keeps configuration
// deterministic and auditable with no hidden overrides.
package config
