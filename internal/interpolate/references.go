// SPDX-License-Identifier: MPL-2.0

package interpolate

import "strings"

// Reference is a name or position a template mentions.
type Reference struct {
	// Name is the variable name, or the decimal position for ${N}.
	Name string
	// Positional is true for ${N} tokens.
	Positional bool
	// Required is true when the token can only succeed with a value
	// (${NAME} or ${NAME:?...}).
	Required bool
}

// References lists the tokens in template without resolving anything,
// including those nested in default and alternate operands. Each name is
// reported once, in order of first appearance.
func References(template string) []Reference {
	var (
		refs []Reference
		seen = make(map[string]int)
	)
	var walk func(s string, depth int)
	walk = func(s string, depth int) {
		if depth > MaxDepth {
			return
		}
		for {
			start := strings.Index(s, "${")
			if start < 0 {
				return
			}
			end := closingBrace(s, start+2)
			if end < 0 {
				return
			}
			if tok, ok := parseToken(s[start+2 : end]); ok {
				required := tok.op == opNone || tok.op == opRequired
				if i, dup := seen[tok.name]; dup {
					refs[i].Required = refs[i].Required || required
				} else {
					seen[tok.name] = len(refs)
					refs = append(refs, Reference{Name: tok.name, Positional: tok.index > 0, Required: required})
				}
				if tok.op == opDefault || tok.op == opAlt {
					walk(tok.operand, depth+1)
				}
			}
			s = s[end+1:]
		}
	}
	walk(template, 0)
	return refs
}
