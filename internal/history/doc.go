// SPDX-License-Identifier: MPL-2.0

// Package history persists finished runs to a JSON file so `cmdrun history`
// can list, search and summarize them. Sensitive environment values are
// masked before they are written.
package history
