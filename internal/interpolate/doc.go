// SPDX-License-Identifier: MPL-2.0

// Package interpolate expands ${...} tokens in command lines.
//
// Supported forms:
//
//	${NAME}            value of NAME
//	${N}               N-th positional argument, 1-indexed
//	${NAME:-default}   value if set and non-empty, else default
//	${NAME:?message}   value if set and non-empty, else fail with message
//	${NAME:+value}     value if NAME is set and non-empty, else ""
//
// Expansion is text substitution only. Substituted values are never scanned
// again, and nothing is ever handed to a shell. The default and value
// operands may themselves contain tokens; they are expanded on demand with a
// depth counter capped at MaxDepth.
package interpolate
