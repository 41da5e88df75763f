// SPDX-License-Identifier: MPL-2.0

// Package execute runs execution plans. For each command of each group it
// selects the platform variant, builds the variable context, runs hooks,
// asks for confirmation, expands and validates the step lines, and launches
// them with a timeout, collecting one ExecutionResult per command.
//
// Launching, confirmation, validation and history are collaborators
// injected through Config, so the orchestrator itself never touches a
// terminal or the filesystem.
package execute
