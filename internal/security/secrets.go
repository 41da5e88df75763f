// SPDX-License-Identifier: MPL-2.0

package security

import (
	"strings"
	"unicode/utf8"
)

// MaskedValue replaces short or empty secret values.
const MaskedValue = "***"

var sensitiveParts = []string{
	"PASSWORD",
	"PASSWD",
	"SECRET",
	"TOKEN",
	"API_KEY",
	"APIKEY",
	"PRIVATE_KEY",
	"ACCESS_KEY",
	"CREDENTIAL",
	"AUTH",
	"JWT",
	"BEARER",
	"SESSION",
}

// IsSensitive reports whether an environment variable name looks like it
// holds a secret. Matching is case-insensitive on name fragments.
func IsSensitive(name string) bool {
	upper := strings.ToUpper(name)
	for _, part := range sensitiveParts {
		if strings.Contains(upper, part) {
			return true
		}
	}
	return strings.HasSuffix(upper, "_KEY") || upper == "KEY"
}

// Mask keeps the first two characters of value and hides the rest.
func Mask(value string) string {
	if utf8.RuneCountInString(value) <= 2 {
		return MaskedValue
	}
	_, first := utf8.DecodeRuneInString(value)
	_, second := utf8.DecodeRuneInString(value[first:])
	return value[:first+second] + MaskedValue
}

// MaskEnv returns a copy of env with sensitive values masked.
func MaskEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		if IsSensitive(k) {
			v = Mask(v)
		}
		out[k] = v
	}
	return out
}
