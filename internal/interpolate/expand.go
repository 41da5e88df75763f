// SPDX-License-Identifier: MPL-2.0

package interpolate

import (
	"strconv"
	"strings"
)

const (
	// MaxDepth is the deepest nesting of operand expansion allowed. The top
	// level template is depth 0.
	MaxDepth = 10
	// MaxExpansionLength caps the size of an expanded string in bytes.
	MaxExpansionLength = 10240
)

type (
	operator byte

	// token is a parsed ${...} body.
	token struct {
		name    string
		index   int // > 0 for positional tokens
		op      operator
		operand string
	}
)

const (
	opNone     operator = 0
	opDefault  operator = '-'
	opRequired operator = '?'
	opAlt      operator = '+'
)

// Expand replaces every ${...} token in template using ctx. With strict set,
// references to unbound names or positions fail with UndefinedVariableError;
// otherwise they expand to "". Malformed or unterminated tokens are copied
// through unchanged.
func Expand(template string, ctx *Context, strict bool) (string, error) {
	return expand(template, ctx, strict, 0)
}

func expand(template string, ctx *Context, strict bool, depth int) (string, error) {
	if depth > MaxDepth {
		return "", &RecursionLimitError{Limit: MaxDepth}
	}

	var out strings.Builder
	rest := template
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:start])

		end := closingBrace(rest, start+2)
		if end < 0 {
			out.WriteString(rest[start:])
			break
		}

		tok, ok := parseToken(rest[start+2 : end])
		if !ok {
			out.WriteString(rest[start : end+1])
		} else {
			value, err := tok.resolve(ctx, strict, depth)
			if err != nil {
				return "", err
			}
			out.WriteString(value)
		}

		if out.Len() > MaxExpansionLength {
			return "", &ExpansionTooLargeError{Limit: MaxExpansionLength}
		}
		rest = rest[end+1:]
	}

	if out.Len() > MaxExpansionLength {
		return "", &ExpansionTooLargeError{Limit: MaxExpansionLength}
	}
	return out.String(), nil
}

func (t token) lookup(ctx *Context) (string, bool) {
	if t.index > 0 {
		return ctx.Arg(t.index)
	}
	return ctx.Lookup(t.name)
}

func (t token) resolve(ctx *Context, strict bool, depth int) (string, error) {
	value, present := t.lookup(ctx)
	set := present && value != ""

	switch t.op {
	case opDefault:
		if set {
			return value, nil
		}
		return expand(t.operand, ctx, strict, depth+1)
	case opRequired:
		if set {
			return value, nil
		}
		return "", &RequiredVariableError{Name: t.name, Message: t.operand}
	case opAlt:
		if set {
			return expand(t.operand, ctx, strict, depth+1)
		}
		return "", nil
	default:
		if present {
			return value, nil
		}
		if strict {
			return "", &UndefinedVariableError{Name: t.name}
		}
		return "", nil
	}
}

// closingBrace returns the index of the '}' closing a token whose body starts
// at from. Nested "${" open further levels; a lone '{' does not.
func closingBrace(s string, from int) int {
	level := 1
	for i := from; i < len(s); i++ {
		switch {
		case s[i] == '$' && i+1 < len(s) && s[i+1] == '{':
			level++
			i++
		case s[i] == '}':
			level--
			if level == 0 {
				return i
			}
		}
	}
	return -1
}

// parseToken splits a token body into name, operator and operand.
func parseToken(body string) (token, bool) {
	n := 0
	for n < len(body) && isNameByte(body[n]) {
		n++
	}
	name := body[:n]
	if name == "" {
		return token{}, false
	}

	tok := token{name: name}
	switch {
	case isDigit(name[0]):
		idx, err := strconv.Atoi(name)
		if err != nil || idx < 1 || name[0] == '0' {
			return token{}, false
		}
		tok.index = idx
	case !isNameStart(name[0]):
		return token{}, false
	}

	rest := body[n:]
	if rest == "" {
		return tok, true
	}
	if len(rest) < 2 || rest[0] != ':' {
		return token{}, false
	}
	switch operator(rest[1]) {
	case opDefault, opRequired, opAlt:
		tok.op = operator(rest[1])
		tok.operand = rest[2:]
		return tok, true
	default:
		return token{}, false
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isNameByte(c byte) bool { return isNameStart(c) || isDigit(c) }
