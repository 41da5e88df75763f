// SPDX-License-Identifier: MPL-2.0

// Package issue turns failures into messages a user can act on: an
// operation, the resource involved, suggestions, and optionally a Markdown
// guide rendered with glamour for well-known problems.
package issue
