package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/vmod-types/types"
	"github.com/wippyai/vmod-types/vmod"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateModules modelState = iota
	stateMembers
	stateMethods
)

// entry is one selectable line.
type entry struct {
	fn     *types.Func
	module *vmod.Module
	label  string
}

type interactiveModel struct {
	filter   textinput.Model
	modules  []*vmod.Module
	module   *vmod.Module
	object   *types.Func
	source   string
	selected int
	state    modelState
	wit      bool
}

func newInteractiveModel(source string, modules []*vmod.Module, wit bool) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter"
	ti.Width = 40

	m := &interactiveModel{
		filter:  ti,
		modules: modules,
		source:  source,
		state:   stateModules,
		wit:     wit,
	}
	if len(modules) == 1 {
		m.module = modules[0]
		m.state = stateMembers
	}
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

// entries returns the lines of the current view that match the filter.
func (m *interactiveModel) entries() []entry {
	var all []entry
	switch m.state {
	case stateModules:
		for _, mod := range m.modules {
			all = append(all, entry{module: mod, label: mod.Name})
		}
	case stateMembers:
		for _, fn := range m.module.Namespace.Funcs() {
			all = append(all, entry{fn: fn, label: fn.Name})
		}
	case stateMethods:
		for _, fn := range m.object.Constructor().Funcs() {
			all = append(all, entry{fn: fn, label: fn.Name})
		}
	}

	q := strings.ToLower(m.filter.Value())
	if q == "" {
		return all
	}
	var out []entry
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.label), q) {
			out = append(out, e)
		}
	}
	return out
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.filter.Focused() {
		switch key.String() {
		case "enter", "esc":
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.selected = 0
		return m, cmd
	}

	entries := m.entries()
	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "/":
		m.filter.Focus()
		return m, textinput.Blink

	case "w":
		m.wit = !m.wit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(entries)-1 {
			m.selected++
		}

	case "enter":
		if m.selected >= len(entries) {
			return m, nil
		}
		e := entries[m.selected]
		switch m.state {
		case stateModules:
			m.module = e.module
			m.enter(stateMembers)
		case stateMembers:
			if e.fn.Constructor() != nil {
				m.object = e.fn
				m.enter(stateMethods)
			}
		}

	case "esc", "backspace":
		switch m.state {
		case stateMethods:
			m.object = nil
			m.enter(stateMembers)
		case stateMembers:
			if len(m.modules) > 1 {
				m.module = nil
				m.enter(stateModules)
			}
		}
	}

	return m, nil
}

func (m *interactiveModel) enter(s modelState) {
	m.state = s
	m.selected = 0
	m.filter.Reset()
}

func (m *interactiveModel) View() string {
	if len(m.modules) == 0 {
		return errorStyle.Render("No modules could be read.\n\nPress q to quit.")
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("vmod types"))
	b.WriteString(" ")
	b.WriteString(m.source)
	if m.module != nil {
		b.WriteString(" > " + funcStyle.Render(m.module.Name))
	}
	if m.object != nil {
		b.WriteString(" > " + typeStyle.Render(m.object.Name))
	}
	b.WriteString("\n\n")

	if m.filter.Focused() || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
	}

	for i, e := range m.entries() {
		line := m.formatEntry(e)
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.state {
	case stateModules:
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • / filter • q quit"))
	default:
		b.WriteString(helpStyle.Render("↑/↓ select • enter methods • esc back • w wit • / filter • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatEntry(e entry) string {
	if e.module != nil {
		d := e.module.Descriptor
		return fmt.Sprintf("%s  abi %s  %d members", e.module.Name, d.ABIVersion(), e.module.Namespace.Len())
	}
	p := printer{styled: false, wit: m.wit}
	s := p.formatFunc(e.fn)
	if obj := e.fn.Constructor(); obj != nil {
		s += fmt.Sprintf("  [%d methods]", obj.Len())
	}
	return s
}

func runInteractive(source string, modules []*vmod.Module, wit bool) error {
	p := tea.NewProgram(newInteractiveModel(source, modules, wit), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
