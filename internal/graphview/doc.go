// SPDX-License-Identifier: MPL-2.0

// Package graphview renders the dependency graph of a commands file as a
// terminal tree, Graphviz DOT or a Mermaid flowchart.
package graphview
