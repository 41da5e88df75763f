// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	CommandsFileNotFoundId Id = iota + 1
	CommandsFileParseErrorId
	CommandNotFoundId
	DependencyCycleId
	UnknownDependencyId
	PlatformNotSupportedId
	ShellNotFoundId
	UndefinedVariableId
	PolicyRejectedId
	ConfigLoadFailedId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id
	mdMsg    MarkdownMsg
	docLinks []HttpLink
	extLinks []HttpLink
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the guide for a terminal. stylePath is a glamour style
// name or JSON style file; "" selects "auto".
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(slices.Clone(i.docLinks), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	if stylePath == "" {
		stylePath = "auto"
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	commandsFileNotFoundIssue = &Issue{
		id: CommandsFileNotFoundId,
		mdMsg: `
# No commands file found!

cmdrun looked for a commands file and could not find one.

## Search order
1. ` + "`commands.toml`, `.cmdrun.toml`, `cmdrun.toml`" + ` in the current directory
2. The same names in every parent directory
3. ` + "`commands.toml`" + ` in the cmdrun config directory

## Things you can try
- Create a ` + "`commands.toml`" + ` next to your project:
~~~toml
[commands.build]
description = "Build the project"
cmd = "go build ./..."

[commands.test]
cmd = "go test ./..."
deps = ["build"]
~~~
- Point cmdrun at a file explicitly:
~~~
$ cmdrun --file path/to/commands.toml list
~~~`,
	}

	commandsFileParseErrorIssue = &Issue{
		id: CommandsFileParseErrorId,
		mdMsg: `
# The commands file is invalid!

The file could not be decoded or does not match the expected schema.

## Things you can try
- Check the TOML syntax near the reported line
- Make sure every command has a ` + "`cmd`" + ` that is a string, a list of strings or a platform table
- Timeouts are integer seconds or duration strings such as ` + "`\"90s\"`" + `
- Run ` + "`cmdrun validate`" + ` to list every problem at once`,
	}

	commandNotFoundIssue = &Issue{
		id: CommandNotFoundId,
		mdMsg: `
# Command not found!

The requested name is neither a command nor an alias of the commands file.

## Things you can try
- List what is available:
~~~
$ cmdrun list
~~~
- Check for typos; close matches are suggested above
- Declare an alias under ` + "`[aliases]`",
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Commands depend on each other in a loop, so no execution order exists.

## Things you can try
- Follow the reported path and remove one of the ` + "`deps`" + ` entries
- Visualize the graph:
~~~
$ cmdrun graph --format tree
~~~`,
	}

	unknownDependencyIssue = &Issue{
		id: UnknownDependencyId,
		mdMsg: `
# Unknown dependency!

A command lists a dependency that is not declared in the commands file.

## Things you can try
- Fix the name in ` + "`deps`" + `; aliases are not accepted there
- Declare the missing command`,
	}

	platformNotSupportedIssue = &Issue{
		id: PlatformNotSupportedId,
		mdMsg: `
# Platform not supported!

The command is restricted to other platforms, or has no steps for this one.

## Things you can try
- Check the command's ` + "`platform`" + ` list
- Add a variant for this platform, or a ` + "`unix`" + ` fallback:
~~~toml
cmd = { unix = "open .", windows = "start ." }
~~~`,
	}

	shellNotFoundIssue = &Issue{
		id: ShellNotFoundId,
		mdMsg: `
# Shell not found!

The configured shell is not installed or not on your PATH.

## Things you can try
- Install the shell, or pick another one in ` + "`[config]`" + `:
~~~toml
[config]
shell = "sh"
~~~
- Use the built-in interpreter, which needs no host shell:
~~~toml
[config]
shell = "virtual"
~~~`,
	}

	undefinedVariableIssue = &Issue{
		id: UndefinedVariableId,
		mdMsg: `
# Undefined variable!

Strict mode is on and a command references a variable that has no value.

## Things you can try
- Define it in the command's ` + "`env`" + `, in ` + "`[config].env`" + ` or in an env file
- Give it a default: ` + "`${NAME:-fallback}`" + `
- Pass the positional argument the command expects: ` + "`cmdrun run deploy prod`" + `
- Turn strict mode off with ` + "`strict_mode = false`",
	}

	policyRejectedIssue = &Issue{
		id: PolicyRejectedId,
		mdMsg: `
# Command rejected by policy!

A command line was refused before launch.

## Why this happens
- It matched a forbidden pattern such as ` + "`rm -rf /`" + `
- It chains commands (` + "`&&`, `||`, `;`, `|`" + `) without ` + "`allow_chaining = true`" + `
- It uses ` + "`$(...)`" + `, backticks or ` + "`( ... )`" + ` without ` + "`allow_subshells = true`" + `

## Things you can try
- Split the line into a list of steps: ` + "`cmd = [\"a\", \"b\"]`" + `
- Opt in on the command if the construct is intended`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The user configuration file could not be read.

## Things you can try
- Show where cmdrun looks and what it loaded:
~~~
$ cmdrun config path
$ cmdrun config show
~~~
- Regenerate a default file with ` + "`cmdrun config init --force`" + `
- Durations are strings such as ` + "`\"5m\"`",
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

The operation touched a file or directory you cannot access.

## Things you can try
- Check permissions of the working directory and of env files
- Check that the history file location is writable, or disable history:
~~~toml
[history]
enabled = false
~~~`,
	}

	issues = []*Issue{
		commandsFileNotFoundIssue,
		commandsFileParseErrorIssue,
		commandNotFoundIssue,
		dependencyCycleIssue,
		unknownDependencyIssue,
		platformNotSupportedIssue,
		shellNotFoundIssue,
		undefinedVariableIssue,
		policyRejectedIssue,
		configLoadFailedIssue,
		permissionDeniedIssue,
	}
)

// Values returns every registered issue ordered by id.
func Values() []*Issue {
	return slices.Clone(issues)
}

// Get returns the issue registered under id, or nil.
func Get(id Id) *Issue {
	i := slices.IndexFunc(issues, func(i *Issue) bool { return i.id == id })
	if i < 0 {
		return nil
	}
	return issues[i]
}
