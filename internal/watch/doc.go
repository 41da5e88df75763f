// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a command when files change.
//
// A Watcher monitors a directory tree with fsnotify, filters events with
// doublestar globs and calls OnChange once per quiet period. Calls never
// overlap: changes seen while a run is in progress trigger exactly one
// follow-up run after it ends.
package watch
