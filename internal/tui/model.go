// Package tui is an interactive terminal front end for searching the loaded
// documents.
package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval"
)

// Searcher is the TUI-facing subset of the session store.
type Searcher interface {
	Search(query string, opts retrieval.Options) ([]retrieval.Result, error)
}

type Model struct {
	searcher  Searcher
	opts      retrieval.Options
	input     textinput.Model
	viewport  viewport.Model
	results   []retrieval.Result
	summary   string
	status    string
	cursor    int
	ready     bool
	lastQuery string
}

// New builds the model. summary is shown under the title, typically the
// number of loaded documents.
func New(searcher Searcher, opts retrieval.Options, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a query and press Enter"
	ti.Focus()
	ti.CharLimit = 256
	return Model{
		searcher: searcher,
		opts:     opts,
		input:    ti,
		viewport: viewport.New(0, 0),
		summary:  summary,
		status:   "Type to search. Up/Down to browse, Ctrl+C to quit.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 3 + qh + 1 // header, summary, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if q := strings.TrimSpace(m.input.Value()); q != "" {
				m.search(q)
				return m, nil
			}
		case tea.KeyDown:
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case tea.KeyUp:
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) search(q string) {
	res, err := m.searcher.Search(q, m.opts)
	switch {
	case err != nil:
		m.status = "Error: " + err.Error()
		m.results = nil
	case len(res) == 0:
		m.status = fmt.Sprintf("No documents match %q", q)
		m.results = nil
	default:
		m.status = fmt.Sprintf("%d results for %q", len(res), q)
		m.results = res
	}
	m.cursor = 0
	m.lastQuery = q
	m.viewport.SetContent(m.renderCurrentResult())
	m.viewport.GotoTop()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("Document Query")
	summary := mutedStyle.Render(m.summary)
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	var b strings.Builder
	fmt.Fprintf(&b, "Result %d/%d  %s  score=%.3f\n", m.cursor+1, len(m.results), titleStyle.Render(r.Filename), r.Score)
	for _, s := range r.Snippets {
		b.WriteString("\n• ")
		b.WriteString(RenderSnippet(s))
		b.WriteString("\n")
	}
	return b.String()
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	boldMarkRe     = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// RenderSnippet replaces **term** markers with styled text.
func RenderSnippet(s string) string {
	return boldMarkRe.ReplaceAllStringFunc(s, func(match string) string {
		return highlightStyle.Render(match[2 : len(match)-2])
	})
}
