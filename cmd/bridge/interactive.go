package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const prompt = "julia> "

// command runs one REPL line. Lines starting with ':' are bridge
// commands; everything else is evaluated in Main.
func command(rt *runtime.Runtime, line string) (string, error) {
	ctx := context.Background()
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ":") {
		v, err := rt.Eval(ctx, line)
		if err != nil {
			return "", err
		}
		return format(v), nil
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch name {
	case "import":
		mod, err := rt.Import(ctx, rest)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: %s", mod.Name(), strings.Join(mod.Members(), ", ")), nil
	case "call":
		path, args, _ := strings.Cut(rest, " ")
		vals, err := parseArgs(args)
		if err != nil {
			return "", err
		}
		v, err := rt.Invoke(ctx, path, vals...)
		if err != nil {
			return "", err
		}
		return format(v), nil
	case "refs":
		hits, misses := rt.ResolverStats()
		return fmt.Sprintf("references: %d, resolver hits: %d, misses: %d", rt.References(), hits, misses), nil
	}
	return "", fmt.Errorf("unknown command :%s (try :import, :call, :refs, :quit)", name)
}

type replModel struct {
	rt      *runtime.Runtime
	version string
	input   textinput.Model
	view    viewport.Model
	lines   []string
	history []string
	hpos    int
	busy    bool
	ready   bool
}

type evalMsg struct {
	err error
	out string
}

func newReplModel(rt *runtime.Runtime, version string) *replModel {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(prompt)
	ti.Placeholder = "1 + 1, :import testMod, :call sum [1, 2]"
	ti.Focus()
	return &replModel{rt: rt, version: version, input: ti}
}

func (m *replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *replModel) eval(line string) tea.Cmd {
	return func() tea.Msg {
		out, err := command(m.rt, line)
		return evalMsg{out: out, err: err}
	}
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := msg.Height - 4
		if !m.ready {
			m.view = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = height
		}
		m.input.Width = msg.Width - len(prompt) - 1
		m.refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit

		case "up":
			if m.hpos > 0 {
				m.hpos--
				m.input.SetValue(m.history[m.hpos])
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.hpos < len(m.history) {
				m.hpos++
				if m.hpos == len(m.history) {
					m.input.SetValue("")
				} else {
					m.input.SetValue(m.history[m.hpos])
				}
				m.input.CursorEnd()
			}
			return m, nil

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			if line == ":quit" || line == ":q" {
				return m, tea.Quit
			}
			m.history = append(m.history, line)
			m.hpos = len(m.history)
			m.lines = append(m.lines, promptStyle.Render(prompt)+line)
			m.input.SetValue("")
			m.busy = true
			m.refresh()
			return m, m.eval(line)
		}

	case evalMsg:
		m.busy = false
		if msg.err != nil {
			m.lines = append(m.lines, errorStyle.Render("ERROR: "+msg.err.Error()))
		} else {
			m.lines = append(m.lines, resultStyle.Render(msg.out))
		}
		m.lines = append(m.lines, "")
		m.refresh()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.ready {
		m.view, cmd = m.view.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *replModel) refresh() {
	if !m.ready {
		return
	}
	m.view.SetContent(strings.Join(m.lines, "\n"))
	m.view.GotoBottom()
}

func (m *replModel) View() string {
	if !m.ready {
		return "Starting..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("numbridge"))
	b.WriteString(" ")
	b.WriteString(helpStyle.Render("version " + m.version))
	b.WriteString("\n")
	b.WriteString(m.view.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter eval • ↑/↓ history • ctrl+c quit"))
	return b.String()
}

func runInteractive(rt *runtime.Runtime, eng *engine.Engine) error {
	tty := term.IsTerminal(int(os.Stdin.Fd())) &&
		(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
	if !tty {
		return runLines(rt, os.Stdin, os.Stdout)
	}
	p := tea.NewProgram(newReplModel(rt, eng.Version().String()), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// runLines is the plain REPL used when input or output is not a terminal.
func runLines(rt *runtime.Runtime, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == ":quit" || line == ":q" {
			return nil
		}
		res, err := command(rt, line)
		if err != nil {
			fmt.Fprintf(out, "ERROR: %v\n", err)
			continue
		}
		fmt.Fprintln(out, res)
	}
	return sc.Err()
}
