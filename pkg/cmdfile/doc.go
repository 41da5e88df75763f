// SPDX-License-Identifier: MPL-2.0

// Package cmdfile defines the command model and loads it from commands.toml.
//
// A commands file declares project settings, named commands, aliases and
// hooks:
//
//	[config]
//	shell = "bash"
//	strict_mode = true
//
//	[commands.build]
//	cmd = "go build ./..."
//	deps = ["generate"]
//
//	[aliases]
//	b = "build"
//
// Decoded documents are checked against an embedded CUE schema before they
// are turned into typed Command values, so every Command handed to the
// scheduler and orchestrator has a step form, valid platform tags, and
// positive timeouts.
package cmdfile
