// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/cmdrun/cmdrun/pkg/cmdfile"
)

type (
	// terminalGate asks for confirmation on the controlling terminal. When
	// stdin is not a terminal nobody can answer, so every command is denied.
	terminalGate struct {
		// mu keeps one prompt on screen at a time.
		mu  sync.Mutex
		in  io.Reader
		out io.Writer
		// interactive reports whether in is attached to a terminal.
		interactive func() bool
	}

	// confirmModel is a yes/no prompt. No is selected initially.
	confirmModel struct {
		id        cmdfile.CommandID
		selection bool
		result    bool
		done      bool
		cancelled bool
	}
)

var (
	confirmActiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(ColorPrimary).
				Bold(true).
				Padding(0, 1)
	confirmInactiveStyle = lipgloss.NewStyle().Foreground(ColorVerbose).Padding(0, 1)
	confirmHelpStyle     = lipgloss.NewStyle().Foreground(ColorMuted)
)

func newTerminalGate(in io.Reader, out io.Writer) *terminalGate {
	return &terminalGate{
		in:  in,
		out: out,
		interactive: func() bool {
			f, ok := in.(*os.File)
			return ok && term.IsTerminal(int(f.Fd()))
		},
	}
}

// Confirm shows the lines of id and runs the prompt until it is answered.
// Escape declines. When ctx ends the prompt is torn down and ctx.Err() is
// returned.
func (g *terminalGate) Confirm(ctx context.Context, id cmdfile.CommandID, line string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.interactive() {
		fmt.Fprintln(g.out, WarningStyle.Render(fmt.Sprintf("%s needs confirmation but stdin is not a terminal; use --yes", id)))
		return false, nil
	}

	fmt.Fprintln(g.out, confirmBoxStyle.Render(line))

	p := tea.NewProgram(&confirmModel{id: id},
		tea.WithInput(g.in),
		tea.WithOutput(g.out),
		tea.WithContext(ctx),
		tea.WithoutSignalHandler(),
	)
	final, err := p.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}

	m, ok := final.(*confirmModel)
	if !ok || m.cancelled {
		return false, nil
	}
	return m.result, nil
}

func (m *confirmModel) Init() tea.Cmd {
	return nil
}

func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc":
		m.done = true
		m.cancelled = true
		return m, tea.Quit
	case "y", "Y":
		return m.submit(true)
	case "n", "N":
		return m.submit(false)
	case "left", "h":
		m.selection = true
	case "right", "l":
		m.selection = false
	case "up", "down", "tab", "shift+tab":
		m.selection = !m.selection
	case "enter", " ":
		return m.submit(m.selection)
	}
	return m, nil
}

func (m *confirmModel) submit(answer bool) (tea.Model, tea.Cmd) {
	m.selection = answer
	m.result = answer
	m.done = true
	return m, tea.Quit
}

func (m *confirmModel) View() string {
	title := fmt.Sprintf("Run %s?", CmdStyle.Render(string(m.id)))
	if m.done {
		answer := "no"
		if m.result && !m.cancelled {
			answer = "yes"
		}
		return title + " " + answer + "\n"
	}

	yes, no := confirmInactiveStyle.Render("Yes"), confirmActiveStyle.Render("No")
	if m.selection {
		yes, no = confirmActiveStyle.Render("Yes"), confirmInactiveStyle.Render("No")
	}

	return strings.Join([]string{
		title,
		yes + "  " + no,
		confirmHelpStyle.Render("enter submit • y yes • n no • esc cancel"),
	}, "\n")
}
