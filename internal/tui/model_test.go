package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval"
)

type fakeSearcher struct {
	results []retrieval.Result
	err     error
	queries []string
}

func (f *fakeSearcher) Search(query string, _ retrieval.Options) ([]retrieval.Result, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func send(m tea.Model, msgs ...tea.Msg) tea.Model {
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m
}

func typeQuery(q string) []tea.Msg {
	return []tea.Msg{
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(q)},
		tea.KeyMsg{Type: tea.KeyEnter},
	}
}

func TestSearchAndNavigate(t *testing.T) {
	fs := &fakeSearcher{results: []retrieval.Result{
		{DocID: "d1", Filename: "fox.txt", Score: 1, Snippets: []string{"The quick brown **fox** jumps."}},
		{DocID: "d2", Filename: "dog.txt", Score: 0.5, Snippets: []string{"The **fox** watches."}},
	}}
	var m tea.Model = New(fs, retrieval.DefaultOptions(), "2 documents")
	assert.Equal(t, "Loading...", m.View())

	m = send(m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m = send(m, typeQuery("fox")...)
	require.Equal(t, []string{"fox"}, fs.queries)

	view := m.View()
	assert.Contains(t, view, "2 results for \"fox\"")
	assert.Contains(t, view, "fox.txt")
	assert.NotContains(t, view, "**")

	m = send(m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Contains(t, m.View(), "dog.txt")
	m = send(m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Contains(t, m.View(), "fox.txt")
	m = send(m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Contains(t, m.View(), "dog.txt")
}

func TestSearchStatus(t *testing.T) {
	fs := &fakeSearcher{}
	m := send(New(fs, retrieval.DefaultOptions(), ""), tea.WindowSizeMsg{Width: 80, Height: 30})
	m = send(m, typeQuery("zebra")...)
	assert.Contains(t, m.View(), "No documents match")

	fs.err = errors.New("boom")
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.View(), "Error: boom")
}

func TestEmptyQueryIsIgnored(t *testing.T) {
	fs := &fakeSearcher{}
	m := send(New(fs, retrieval.DefaultOptions(), ""), tea.WindowSizeMsg{Width: 80, Height: 30})
	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, fs.queries)
}

func TestQuitKeys(t *testing.T) {
	m := New(&fakeSearcher{}, retrieval.DefaultOptions(), "")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestRenderSnippet(t *testing.T) {
	got := RenderSnippet("The **Fox** and the **fox**.")
	assert.NotContains(t, got, "**")
	assert.Contains(t, got, "Fox")
	assert.Equal(t, "no marks", RenderSnippet("no marks"))
}
