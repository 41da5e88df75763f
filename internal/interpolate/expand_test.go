// SPDX-License-Identifier: MPL-2.0

package interpolate

import (
	"errors"
	"strings"
	"testing"
)

func TestExpand(t *testing.T) {
	t.Parallel()

	ctx := NewContext(
		[]string{"in.txt", ""},
		MapLayer{"NAME": "Foo", "EMPTY": "", "NESTED": "${NAME}"},
		MapLayer{"NAME": "shadowed", "LOWER": "low"},
	)

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"no tokens", "echo hello", "echo hello"},
		{"plain name", "echo ${NAME}", "echo Foo"},
		{"first layer wins", "${NAME}", "Foo"},
		{"lower layer", "${LOWER}", "low"},
		{"empty is present", "[${EMPTY}]", "[]"},
		{"default unused", "echo ${NAME:-World}", "echo Foo"},
		{"default used when unset", "echo ${UNSET:-World}", "echo World"},
		{"default used when empty", "${EMPTY:-fallback}", "fallback"},
		{"nested default", "${UNSET:-${LOWER}}", "low"},
		{"default references default", "${A:-${B:-deep}}", "deep"},
		{"alt when set", "${NAME:+--name=${NAME}}", "--name=Foo"},
		{"alt when unset", "x${UNSET:+value}y", "xy"},
		{"alt when empty", "x${EMPTY:+value}y", "xy"},
		{"positional", "cp ${1} ${2:-out.txt}", "cp in.txt out.txt"},
		{"positional with default", "${3:-three}", "three"},
		{"adjacent tokens", "${NAME}${LOWER}", "Foolow"},
		{"values are not rescanned", "${NESTED}", "${NAME}"},
		{"unterminated is literal", "echo ${NAME", "echo ${NAME"},
		{"empty token is literal", "a${}b", "a${}b"},
		{"zero position is literal", "${0}", "${0}"},
		{"invalid name is literal", "${9lives} ${A B}", "${9lives} ${A B}"},
		{"unknown operator is literal", "${NAME:=x}", "${NAME:=x}"},
		{"bare dollar", "cost $5 and $NAME", "cost $5 and $NAME"},
		{"braces in default", "${UNSET:-{a,b}}", "{a,b}"},
		{"colon in default", "${UNSET:-http://x:80}", "http://x:80"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Expand(tt.template, ctx, false)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expand(%q) = %q, want %q", tt.template, got, tt.expected)
			}
		})
	}
}

func TestExpand_Strict(t *testing.T) {
	t.Parallel()

	ctx := NewContext([]string{"a"}, MapLayer{"SET": "v", "EMPTY": ""})

	tests := []struct {
		name     string
		template string
		wantErr  bool
		expected string
	}{
		{"set", "${SET}", false, "v"},
		{"empty is not undefined", "${EMPTY}", false, ""},
		{"unset fails", "${UNSET}", true, ""},
		{"unset with default passes", "${UNSET:-d}", false, "d"},
		{"unset with alt passes", "${UNSET:+x}", false, ""},
		{"position in range", "${1}", false, "a"},
		{"position out of range", "${2}", true, ""},
		{"unset inside default", "${UNSET:-${ALSO_UNSET}}", true, ""},
		{"unchosen operand is not evaluated", "${SET:-${UNSET}}", false, "v"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Expand(tt.template, ctx, true)
			if tt.wantErr {
				var undef *UndefinedVariableError
				if !errors.As(err, &undef) {
					t.Fatalf("expected UndefinedVariableError, got %v", err)
				}
				if !errors.Is(err, ErrUndefinedVariable) {
					t.Error("expected ErrUndefinedVariable")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExpand_NonStrictUnsetIsEmpty(t *testing.T) {
	t.Parallel()

	got, err := Expand("a${UNSET}b${4}c", NewContext(nil), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "abc" {
		t.Errorf("got %q, want abc", got)
	}
}

func TestExpand_Required(t *testing.T) {
	t.Parallel()

	for _, strict := range []bool{true, false} {
		_, err := Expand("echo ${REQ:?must set REQ}", NewContext(nil, MapLayer{"EMPTY": ""}), strict)
		var req *RequiredVariableError
		if !errors.As(err, &req) {
			t.Fatalf("strict=%v: expected RequiredVariableError, got %v", strict, err)
		}
		if !strings.Contains(err.Error(), "must set REQ") {
			t.Errorf("error %q should carry the message", err)
		}
		if req.Name != "REQ" || req.Message != "must set REQ" {
			t.Errorf("unexpected %+v", req)
		}
	}

	// The message is reported verbatim, tokens included.
	_, err := Expand("${EMPTY:?need ${OTHER}}", NewContext(nil, MapLayer{"EMPTY": ""}), false)
	var req *RequiredVariableError
	if !errors.As(err, &req) || req.Message != "need ${OTHER}" {
		t.Fatalf("expected verbatim message, got %v", err)
	}

	got, err := Expand("${REQ:?unused}", NewContext(nil, MapLayer{"REQ": "ok"}), true)
	if err != nil || got != "ok" {
		t.Errorf("got %q, %v", got, err)
	}
}

// nestedDefaults builds ${A:-${A:-...${A:-x}...}} with n tokens.
func nestedDefaults(n int) string {
	return strings.Repeat("${A:-", n) + "x" + strings.Repeat("}", n)
}

func TestExpand_RecursionLimit(t *testing.T) {
	t.Parallel()

	ctx := NewContext(nil)

	got, err := Expand(nestedDefaults(MaxDepth), ctx, false)
	if err != nil {
		t.Fatalf("%d levels should expand: %v", MaxDepth, err)
	}
	if got != "x" {
		t.Errorf("got %q, want x", got)
	}

	for _, n := range []int{MaxDepth + 1, MaxDepth + 5, 200} {
		_, err := Expand(nestedDefaults(n), ctx, false)
		if !errors.Is(err, ErrRecursionLimitExceeded) {
			t.Errorf("%d levels: expected ErrRecursionLimitExceeded, got %v", n, err)
		}
	}
}

func TestExpand_AltRecursionLimit(t *testing.T) {
	t.Parallel()

	n := MaxDepth + 1
	template := strings.Repeat("${A:+", n) + "x" + strings.Repeat("}", n)
	_, err := Expand(template, NewContext(nil, MapLayer{"A": "set"}), false)
	var limit *RecursionLimitError
	if !errors.As(err, &limit) || limit.Limit != MaxDepth {
		t.Fatalf("expected RecursionLimitError, got %v", err)
	}
}

func TestExpand_TooLarge(t *testing.T) {
	t.Parallel()

	big := strings.Repeat("x", MaxExpansionLength/2+1)
	ctx := NewContext(nil, MapLayer{"BIG": big})

	if _, err := Expand("${BIG}", ctx, true); err != nil {
		t.Fatalf("one copy should fit: %v", err)
	}
	_, err := Expand("${BIG}${BIG}", ctx, true)
	if !errors.Is(err, ErrExpansionTooLarge) {
		t.Fatalf("expected ErrExpansionTooLarge, got %v", err)
	}
	_, err = Expand(strings.Repeat("y", MaxExpansionLength+1), ctx, true)
	if !errors.Is(err, ErrExpansionTooLarge) {
		t.Fatalf("literal text counts too, got %v", err)
	}
}

func TestExpand_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := NewContext([]string{"one"}, MapLayer{"X": "1"}, MapLayer{"Y": ""})
	template := "${X} ${Y:-y} ${1} ${Z:+z} ${2:-two}"

	first, err := Expand(template, ctx, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range 10 {
		again, err := Expand(template, ctx, false)
		if err != nil || again != first {
			t.Fatalf("got %q, %v; want %q", again, err, first)
		}
	}
}

func TestExpand_ShellMetacharactersStayLiteral(t *testing.T) {
	t.Parallel()

	ctx := NewContext([]string{"$(rm -rf ~)"}, MapLayer{"EVIL": "`id`; ${HOME}"})
	got, err := Expand("echo ${EVIL} ${1}", ctx, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "echo `id`; ${HOME} $(rm -rf ~)" {
		t.Errorf("got %q", got)
	}
}

func TestContext_Lookup(t *testing.T) {
	t.Parallel()

	var nilCtx *Context
	if _, ok := nilCtx.Lookup("X"); ok {
		t.Error("nil context should not resolve")
	}

	ctx := NewContext(nil, nil, MapLayer{"X": "1"}, LookupFunc(func(name string) (string, bool) {
		return "fn-" + name, true
	}))
	if v, _ := ctx.Lookup("X"); v != "1" {
		t.Errorf("got %q, want 1", v)
	}
	if v, _ := ctx.Lookup("Y"); v != "fn-Y" {
		t.Errorf("got %q, want fn-Y", v)
	}
	if _, ok := ctx.Arg(1); ok {
		t.Error("no args bound")
	}
}

func TestSystemEnv(t *testing.T) {
	t.Setenv("CMDRUN_INTERPOLATE_TEST", "from-env")

	got, err := Expand("${CMDRUN_INTERPOLATE_TEST}", NewContext(nil, SystemEnv()), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-env" {
		t.Errorf("got %q", got)
	}
}
