// SPDX-License-Identifier: MPL-2.0

// Package security decides whether an expanded command line may be launched
// and hides secret values before they are shown or persisted.
package security
