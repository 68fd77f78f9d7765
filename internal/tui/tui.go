// Package tui provides the Bubble Tea chat client.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/studyai/internal/backend"
	"github.com/fakeyudi/studyai/internal/chat"
	"github.com/fakeyudi/studyai/internal/classify"
	"github.com/fakeyudi/studyai/internal/export"
	"github.com/fakeyudi/studyai/internal/session"
	"github.com/fakeyudi/studyai/internal/voice"
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabChat tabID = iota
	tabHistory
	tabQuiz
	tabProgress
	tabCount
)

var tabNames = [tabCount]string{"Chat", "History", "Quiz", "Progress"}

// ── Messages ────────────────────

type (
	noticeMsg         chat.Notice
	clearNoticeMsg    struct{ seq int }
	historyChangedMsg struct{ state *session.State }
	voiceResultMsg    struct{ text string }
	sessionMsg        struct{ err error }
	answerMsg         struct {
		pending *chat.Pending
		resp    *backend.AskResponse
		err     error
	}
)

// noticeTTL is how long a notice stays in the status bar.
const noticeTTL = 4 * time.Second

// Options configure the chat screen.
type Options struct {
	StudentName string // used for new sessions; prompted for when empty
	ExportDir   string
	Format      string // default export format
	Timeout     time.Duration
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the chat client.
type Model struct {
	ctrl  *chat.Controller
	voice *voice.Coordinator
	relay *Relay
	opts  Options

	activeTab tabID
	viewports [tabCount]viewport.Model
	input     textarea.Model
	spinner   spinner.Model
	markdown  *markdownRenderer

	width, height int
	ready         bool

	askingName bool
	creating   bool

	notice    *chat.Notice
	noticeSeq int

	historyCursor int
	confirmClear  bool

	quiz       *classify.Attempt
	quizSource string // content the attempt was built from
	quizCursor int
}

// New creates the chat model. relay may be nil when nothing outside the
// program needs to reach it.
func New(ctrl *chat.Controller, vc *voice.Coordinator, relay *Relay, opts Options) Model {
	if vc == nil {
		vc = voice.New()
	}
	if relay == nil {
		relay = &Relay{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = backend.DefaultTimeout
	}
	in := textarea.New()
	in.Placeholder = "Ask about your syllabus…"
	in.ShowLineNumbers = false
	in.CharLimit = 2000
	in.SetHeight(3)
	in.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		ctrl:     ctrl,
		voice:    vc,
		relay:    relay,
		opts:     opts,
		input:    in,
		spinner:  sp,
		markdown: &markdownRenderer{},
	}
	if _, ok := ctrl.Active(); !ok {
		if opts.StudentName == "" {
			m.askingName = true
			m.input.Placeholder = "Your name"
		} else {
			m.creating = true // Init opens the session
		}
	}
	return m
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd {
	if m.creating {
		return tea.Batch(textarea.Blink, m.createSessionCmd(m.opts.StudentName))
	}
	return textarea.Blink
}

func (m *Model) createSession(name string) tea.Cmd {
	m.creating = true
	return m.createSessionCmd(name)
}

func (m *Model) createSessionCmd(name string) tea.Cmd {
	ctrl, timeout := m.ctrl, m.opts.Timeout
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := ctrl.CreateSession(ctx, name)
		return sessionMsg{err: err}
	})
}

func (m *Model) ask(p *chat.Pending) tea.Cmd {
	ctrl, timeout := m.ctrl, m.opts.Timeout
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := ctrl.Fetch(ctx, p)
		return answerMsg{pending: p, resp: resp, err: err}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.input.SetWidth(msg.Width - 2)
		m.initViewports()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionMsg:
		m.creating = false
		if msg.err == nil {
			m.askingName = false
			m.input.Placeholder = "Ask about your syllabus…"
			m.activeTab = tabChat
		}
		m.refresh()
		return m, nil

	case answerMsg:
		m.ctrl.Complete(msg.pending, msg.resp, msg.err)
		if msg.err == nil && msg.resp != nil && m.voice.AutoSpeak() {
			m.voice.Speak(firstNonEmpty(msg.resp.Answer, msg.resp.Message))
		}
		m.refresh()
		return m, nil

	case voiceResultMsg:
		return m.submit(msg.text)

	case historyChangedMsg:
		m.ctrl.ReplaceHistory(msg.state)
		m.refresh()
		return m, nil

	case noticeMsg:
		n := chat.Notice(msg)
		m.notice = &n
		m.noticeSeq++
		seq := m.noticeSeq
		return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} })

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case spinner.TickMsg:
		if !m.ctrl.Loading() && !m.creating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.voice.Stop()
		return m, tea.Quit
	case "tab":
		m.switchTab((m.activeTab + 1) % tabCount)
		return m, nil
	case "shift+tab":
		m.switchTab((m.activeTab - 1 + tabCount) % tabCount)
		return m, nil
	case "ctrl+t":
		m.ctrl.ToggleTheme()
		m.markdown.reset()
		m.refresh()
		return m, nil
	case "ctrl+l":
		if m.voice.State() == voice.Listening {
			m.voice.Stop()
		} else if !m.voice.StartListening(m.relay.Heard) {
			return m, m.flash(chat.NoticeInfo, "Voice input is not available in this terminal")
		}
		return m, nil
	case "ctrl+s":
		if m.voice.State() == voice.Speaking {
			m.voice.Stop()
			return m, nil
		}
		if _, a, ok := m.lastExchange(); ok && m.voice.Speak(a) {
			return m, nil
		}
		return m, m.flash(chat.NoticeInfo, "Nothing to read aloud")
	case "ctrl+g":
		m.voice.SetAutoSpeak(!m.voice.AutoSpeak())
		m.refresh()
		return m, nil
	case "ctrl+o":
		_, _, mode := m.ctrl.Preferences()
		_ = m.ctrl.SetMode(next(session.Modes, mode))
		m.refresh()
		return m, nil
	case "ctrl+y":
		_, level, _ := m.ctrl.Preferences()
		_ = m.ctrl.SetLevel(next(session.Levels, level))
		m.refresh()
		return m, nil
	case "ctrl+e":
		return m, m.exportLast()
	case "ctrl+n":
		if m.opts.StudentName != "" {
			return m, m.createSession(m.opts.StudentName)
		}
		m.askingName = true
		m.input.Reset()
		m.input.Placeholder = "Your name"
		m.switchTab(tabChat)
		return m, nil
	}

	switch m.activeTab {
	case tabHistory:
		return m.handleHistoryKey(msg)
	case tabQuiz:
		return m.handleQuizKey(msg)
	case tabProgress:
		var cmd tea.Cmd
		m.viewports[tabProgress], cmd = m.viewports[tabProgress].Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "enter":
		text := m.input.Value()
		if m.askingName {
			if strings.TrimSpace(text) == "" || m.creating {
				return m, m.flash(chat.NoticeError, "Please enter your name")
			}
			m.input.Reset()
			return m, m.createSession(text)
		}
		return m.submit(text)
	case "alt+1", "alt+2", "alt+3", "alt+4":
		sugg := m.suggestions()
		if i := int(msg.String()[4] - '1'); i < len(sugg) {
			m.input.SetValue(sugg[i])
		}
		return m, nil
	case "pgup", "pgdown", "up", "down":
		if m.input.Value() == "" {
			var cmd tea.Cmd
			m.viewports[tabChat], cmd = m.viewports[tabChat].Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends text for the active session. Rejected text stays in the
// input so nothing the user typed is lost.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	p, ok := m.ctrl.Begin(text)
	if !ok {
		return m, nil
	}
	m.input.Reset()
	m.refresh()
	return m, m.ask(p)
}

func (m *Model) flash(level chat.NoticeLevel, text string) tea.Cmd {
	return func() tea.Msg { return noticeMsg{Level: level, Text: text} }
}

func (m *Model) switchTab(t tabID) {
	m.activeTab = t
	if t == tabChat {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	m.refresh()
}

// lastExchange returns the most recent question and the reply to it.
func (m *Model) lastExchange() (question, answer string, ok bool) {
	msgs := m.ctrl.Transcript()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != session.RoleAssistant {
			continue
		}
		answer = msgs[i].Content
		for j := i - 1; j >= 0; j-- {
			if msgs[j].Role == session.RoleUser {
				question = msgs[j].Content
				break
			}
		}
		return question, answer, true
	}
	return "", "", false
}

func (m *Model) suggestions() []string {
	msgs := m.ctrl.Transcript()
	if len(msgs) == 0 {
		return chat.StarterSuggestions
	}
	last := msgs[len(msgs)-1]
	if last.Role == session.RoleAssistant {
		return last.Suggestions
	}
	return nil
}

func (m *Model) exportLast() tea.Cmd {
	q, a, ok := m.lastExchange()
	if !ok {
		return m.flash(chat.NoticeInfo, "Nothing to export yet")
	}
	r, err := export.ForFormat(m.opts.Format)
	if err != nil {
		return m.flash(chat.NoticeError, err.Error())
	}
	dir := m.opts.ExportDir
	if dir == "" {
		dir = "."
	}
	path, err := export.Write(dir, export.FromPair(q, a, time.Now()), r)
	if err != nil {
		return m.flash(chat.NoticeError, "Export failed: "+err.Error())
	}
	return m.flash(chat.NoticeSuccess, "Saved "+path)
}

func next(vals []string, cur string) string {
	for i, v := range vals {
		if v == cur {
			return vals[(i+1)%len(vals)]
		}
	}
	return vals[0]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	// ── Row 1: title bar ──────────────────────────────────────────────────────
	title := "  studyai"
	if s, ok := m.ctrl.Active(); ok {
		title += fmt.Sprintf("  %s · session %s · %s", s.StudentName, s.ID, m.ctrl.Elapsed())
	}
	titleBar := titleStyle.Width(m.width).Render(title)

	// ── Row 2: tab bar ────────────────────────────────────────────────────────
	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %s ", tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	// ── Row 3…N-1: scrollable content ────────────────────────────────────────
	rows := []string{titleBar, tabRow, m.viewports[m.activeTab].View()}
	if m.activeTab == tabChat {
		rows = append(rows, m.input.View())
	}

	// ── Row N: status / hint bar ──────────────────────────────────────────────
	rows = append(rows, m.statusBar())
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) statusBar() string {
	if m.notice != nil {
		return noticeStyles[m.notice.Level].Width(m.width).Render(m.notice.Text)
	}

	var left string
	switch {
	case m.creating || m.ctrl.Loading():
		left = m.spinner.View() + " thinking…"
	case m.activeTab == tabHistory && m.confirmClear:
		left = "Purge all chat history? y to confirm, any other key to cancel"
	case m.activeTab == tabHistory:
		left = "↑/↓ select  enter open  d delete  D clear all"
	case m.activeTab == tabQuiz:
		left = "↑/↓ question  a-d choose  enter submit  r retry"
	default:
		left = "enter send  tab pane  ctrl+l listen  ctrl+s speak  ctrl+e export  ctrl+n new"
	}

	theme, level, mode := m.ctrl.Preferences()
	right := fmt.Sprintf("%s · %s · %s · %s", level, mode, theme, m.voice.State())
	if m.voice.AutoSpeak() {
		right += " · auto-speak"
	}
	pad := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if pad < 1 {
		pad = 1
	}
	return statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", pad) + right)
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows, plus the input on Chat
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	chatHeight := vpHeight - m.input.Height()
	if chatHeight < 1 {
		chatHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		h := vpHeight
		if i == tabChat {
			h = chatHeight
		}
		m.viewports[i] = viewport.New(m.width, h)
	}
	m.markdown.reset()
	m.refresh()
}

// refresh re-renders every pane from controller state.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.syncQuiz()
	m.viewports[tabChat].SetContent(m.renderChat())
	m.viewports[tabChat].GotoBottom()
	m.viewports[tabHistory].SetContent(m.renderHistory())
	m.viewports[tabQuiz].SetContent(m.renderQuiz())
	m.viewports[tabProgress].SetContent(m.renderProgress())
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func bullet(text string) string {
	return bulletStyle.Render("  •") + "  " + text + "\n"
}

// Run starts the chat client and blocks until the user quits.
func Run(ctrl *chat.Controller, vc *voice.Coordinator, relay *Relay, opts Options) error {
	if relay == nil {
		relay = &Relay{}
	}
	p := tea.NewProgram(New(ctrl, vc, relay, opts), tea.WithAltScreen())
	relay.attach(p)
	_, err := p.Run()
	return err
}
