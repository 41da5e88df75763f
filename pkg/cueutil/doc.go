// SPDX-License-Identifier: MPL-2.0

// Package cueutil checks decoded configuration trees against embedded CUE
// schemas and turns CUE's error lists into path-prefixed messages.
//
// cmdrun documents are TOML, not CUE. Callers decode TOML into a generic
// map first and hand that map to Validate, which encodes it as a CUE value
// and unifies it with the schema definition.
package cueutil
