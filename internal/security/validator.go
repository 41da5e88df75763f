// SPDX-License-Identifier: MPL-2.0

package security

import (
	"fmt"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// DefaultMaxLength is the longest command line accepted by NewValidator.
const DefaultMaxLength = 4096

// DefaultForbidden are patterns no command line may contain, whatever the
// command allows.
var DefaultForbidden = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+-(rf|fr|Rf|fR|rF|Fr)\s+/(\*|\s|$)`),
	regexp.MustCompile(`\bdd\s+if=`),
	regexp.MustCompile(`\bmkfs(\.\w+)?\s`),
	regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`),
}

// Validator checks expanded command lines before launch. Lists (a && b,
// a; b), pipelines and background jobs count as chaining. Command
// substitution, backticks, ( ... ) and process substitution count as
// subshells.
type Validator struct {
	MaxLength int
	Forbidden []*regexp.Regexp
	// Strict rejects lines the bash parser cannot read. Without it such
	// lines fall back to a plain text scan for operators.
	Strict bool
}

// NewValidator returns a strict Validator with the default limits.
func NewValidator() *Validator {
	return &Validator{
		MaxLength: DefaultMaxLength,
		Forbidden: DefaultForbidden,
		Strict:    true,
	}
}

// Validate returns a *PolicyError when line may not be launched.
func (v *Validator) Validate(line string, allowChaining, allowSubshells bool) error {
	if strings.TrimSpace(line) == "" {
		return &PolicyError{Kind: ErrEmptyCommand, Line: line}
	}
	if strings.IndexByte(line, 0) >= 0 {
		return &PolicyError{Kind: ErrNullByte, Line: line}
	}
	if v.MaxLength > 0 && len(line) > v.MaxLength {
		return &PolicyError{
			Kind:   ErrTooLong,
			Line:   line,
			Detail: fmt.Sprintf("%d > %d bytes", len(line), v.MaxLength),
		}
	}
	for _, re := range v.Forbidden {
		if m := re.FindString(line); m != "" {
			return &PolicyError{Kind: ErrForbiddenPattern, Line: line, Detail: strings.TrimSpace(m)}
		}
	}

	if allowChaining && allowSubshells {
		return nil
	}

	shape, err := inspect(line)
	if err != nil {
		if v.Strict {
			return &PolicyError{Kind: ErrUnparseable, Line: line, Detail: err.Error()}
		}
		shape = scan(line)
	}

	if shape.chained && !allowChaining {
		return &PolicyError{Kind: ErrChainingNotAllowed, Line: line, Detail: shape.chainOp}
	}
	if shape.subshell && !allowSubshells {
		return &PolicyError{Kind: ErrSubshellNotAllowed, Line: line, Detail: shape.subshellOp}
	}
	return nil
}

// lineShape records the structural features of a command line.
type lineShape struct {
	chained    bool
	chainOp    string
	subshell   bool
	subshellOp string
}

func (s *lineShape) chain(op string) {
	if !s.chained {
		s.chained, s.chainOp = true, op
	}
}

func (s *lineShape) sub(op string) {
	if !s.subshell {
		s.subshell, s.subshellOp = true, op
	}
}

// inspect parses line as bash and walks the syntax tree.
func inspect(line string) (lineShape, error) {
	parser := syntax.NewParser(
		syntax.Variant(syntax.LangBash),
		syntax.KeepComments(false),
	)
	file, err := parser.Parse(strings.NewReader(line), "")
	if err != nil {
		return lineShape{}, err
	}

	var shape lineShape
	if len(file.Stmts) > 1 {
		shape.chain(";")
	}
	syntax.Walk(file, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.Stmt:
			if n.Background {
				shape.chain("&")
			}
		case *syntax.BinaryCmd:
			shape.chain(n.Op.String())
		case *syntax.Block:
			if len(n.Stmts) > 1 {
				shape.chain(";")
			}
		case *syntax.Subshell:
			shape.sub("( )")
			if len(n.Stmts) > 1 {
				shape.chain(";")
			}
		case *syntax.CmdSubst:
			if n.Backquotes {
				shape.sub("` `")
			} else {
				shape.sub("$( )")
			}
		case *syntax.ProcSubst:
			shape.sub(n.Op.String() + " )")
		}
		return true
	})
	return shape, nil
}

// scan is the text fallback for lines that are not valid bash, such as
// cmd.exe or PowerShell syntax.
func scan(line string) lineShape {
	var shape lineShape
	for _, op := range []string{"&&", "||", ";", "|", "&"} {
		if strings.Contains(line, op) {
			shape.chain(op)
			break
		}
	}
	for _, op := range []string{"$(", "`", "<(", ">("} {
		if strings.Contains(line, op) {
			shape.sub(op)
			break
		}
	}
	return shape
}
