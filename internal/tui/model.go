package tui

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docrag/internal/domain"
)

// QueryPort is the TUI-facing subset of the retrieval service.
type QueryPort interface {
	Query(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}

// Model is the Bubble Tea model for the interactive search browser.
type Model struct {
	ctx       context.Context
	cancel    context.CancelFunc
	service   QueryPort
	topK      int
	input     textinput.Model
	viewport  viewport.Model
	results   []domain.SearchResult
	info      string
	status    string
	cursor    int
	ready     bool
	lastQuery string
	seq       int // id of the newest query; older replies are dropped
}

// queryResultMsg carries the outcome of a query run off the update loop.
type queryResultMsg struct {
	seq     int
	query   string
	results []domain.SearchResult
	err     error
}

// New creates a new TUI model instance. info is shown under the header.
func New(ctx context.Context, service QueryPort, topK int, info string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type query and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	ctx, cancel := context.WithCancel(ctx)
	return Model{
		ctx:      ctx,
		cancel:   cancel,
		service:  service,
		topK:     topK,
		input:    ti,
		viewport: vp,
		info:     info,
		status:   "Loaded. Type to search.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // header + info
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case queryResultMsg:
		m = m.applyResult(msg)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			// abort an in-flight query, including its retry backoff
			m.cancel()
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m.seq++
				m.status = fmt.Sprintf("Searching for %q...", q)
				return m, m.queryCmd(m.seq, q)
			}
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
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

func (m Model) queryCmd(seq int, q string) tea.Cmd {
	ctx, service, topK := m.ctx, m.service, m.topK
	return func() tea.Msg {
		res, err := service.Query(ctx, q, topK)
		return queryResultMsg{seq: seq, query: q, results: res, err: err}
	}
}

func (m Model) applyResult(msg queryResultMsg) Model {
	if msg.seq != m.seq {
		return m
	}
	switch {
	case errors.Is(msg.err, domain.ErrEmptyStore):
		m.status = "Store is empty. Run ingest first."
		m.results = nil
	case msg.err != nil:
		m.status = "Error: " + msg.err.Error()
		m.results = nil
	default:
		m.status = fmt.Sprintf("Results for %q", msg.query)
		m.results = msg.results
		m.cursor = 0
		m.lastQuery = msg.query
	}
	return m
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("docrag search")
	info := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.info)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + info + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Result %d/%d  chunk #%d  score=%.3f", m.cursor+1, len(m.results), r.Index+1, r.Score)
	body := highlightBestSentence(r.Text, m.lastQuery)
	return title + "\n\n" + body
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)
)

// highlightBestSentence emphasises the sentence sharing the most words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	var sentences []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
