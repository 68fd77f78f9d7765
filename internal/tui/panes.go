package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fakeyudi/studyai/internal/chat"
	"github.com/fakeyudi/studyai/internal/classify"
	"github.com/fakeyudi/studyai/internal/session"
)

// ── Chat ───────────────────────────

func (m *Model) renderChat() string {
	var sb strings.Builder
	width := m.width - 4

	if m.askingName {
		sb.WriteString(heading("Welcome to studyai"))
		sb.WriteString("  Enter your name below to start a session.\n")
		return sb.String()
	}

	msgs := m.ctrl.Transcript()
	if len(msgs) == 0 {
		sb.WriteString(heading(chat.Greeting(time.Now())))
		sb.WriteString("  Ask anything about your syllabus, or start from one of these:\n\n")
		for i, s := range chat.StarterSuggestions {
			sb.WriteString(bullet(fmt.Sprintf("%s  %s", dimStyle.Render(fmt.Sprintf("alt+%d", i+1)), s)))
		}
		return sb.String()
	}

	theme, _, _ := m.ctrl.Preferences()
	for i, msg := range msgs {
		if msg.Role == session.RoleUser {
			sb.WriteString("\n" + userStyle.Render("  You") + "\n")
			sb.WriteString(indent(msg.Content, "  ") + "\n")
			continue
		}
		sb.WriteString("\n" + assistantStyle.Render("  Tutor") + "\n")
		switch c := classify.ClassifyTagged(msg.Kind, msg.Content).(type) {
		case classify.Quiz:
			sb.WriteString(fmt.Sprintf("  %s\n", labelStyle.Render(fmt.Sprintf("Quiz with %d questions. Open the Quiz tab to answer.", len(c.Items)))))
		case classify.Markdown:
			sb.WriteString(m.markdown.render(c.Text, theme, width) + "\n")
		}
		if i == len(msgs)-1 && len(msg.Suggestions) > 0 {
			sb.WriteString("\n")
			for j, s := range msg.Suggestions {
				if j >= 4 {
					break
				}
				sb.WriteString(bullet(fmt.Sprintf("%s  %s", dimStyle.Render(fmt.Sprintf("alt+%d", j+1)), s)))
			}
		}
	}
	return sb.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

// ── History ────────────────────────

func (m *Model) renderHistory() string {
	entries := m.ctrl.Entries()
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("History (%d)", len(entries))))
	if len(entries) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	if m.historyCursor >= len(entries) {
		m.historyCursor = len(entries) - 1
	}
	active, hasActive := m.ctrl.Active()
	for i, e := range entries {
		marker := "  "
		if hasActive && active.ID == e.ID {
			marker = bulletStyle.Render("● ")
		}
		ts := timeStyle.Render(e.CreatedAt.Local().Format("Jan 02 15:04"))
		row := fmt.Sprintf("  %s%s  %s  %s", marker, ts, e.Title, dimStyle.Render(fmt.Sprintf("(%d messages)", e.Messages)))
		if i == m.historyCursor {
			row = selectedRowStyle.Width(m.width - 2).Render(row)
		}
		sb.WriteString(row + "\n")
	}
	return sb.String()
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmClear {
		m.confirmClear = false
		if msg.String() == "y" {
			if err := m.ctrl.ClearAll(chat.Always); err == nil {
				m.historyCursor = 0
				m.refresh()
				return m, m.flash(chat.NoticeSuccess, "History cleared")
			}
		}
		m.refresh()
		return m, nil
	}

	entries := m.ctrl.Entries()
	switch msg.String() {
	case "up", "k":
		if m.historyCursor > 0 {
			m.historyCursor--
		}
	case "down", "j":
		if m.historyCursor < len(entries)-1 {
			m.historyCursor++
		}
	case "enter":
		if len(entries) > 0 {
			m.ctrl.Select(entries[m.historyCursor].ID)
			m.switchTab(tabChat)
			return m, nil
		}
	case "d", "delete":
		if len(entries) > 0 {
			m.ctrl.Delete(entries[m.historyCursor].ID)
		}
	case "D":
		if len(entries) > 0 {
			m.confirmClear = true
		}
	default:
		var cmd tea.Cmd
		m.viewports[tabHistory], cmd = m.viewports[tabHistory].Update(msg)
		return m, cmd
	}
	m.refresh()
	return m, nil
}

// ── Quiz ───────────────────────────

// syncQuiz starts a fresh attempt when the transcript's latest quiz differs
// from the one being answered.
func (m *Model) syncQuiz() {
	msgs := m.ctrl.Transcript()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != session.RoleAssistant {
			continue
		}
		q, ok := classify.ClassifyTagged(msgs[i].Kind, msgs[i].Content).(classify.Quiz)
		if !ok {
			continue
		}
		if m.quiz == nil || m.quizSource != msgs[i].Content {
			m.quiz = classify.NewAttempt(q)
			m.quizSource = msgs[i].Content
			m.quizCursor = 0
		}
		return
	}
	m.quiz, m.quizSource, m.quizCursor = nil, "", 0
}

func (m *Model) renderQuiz() string {
	var sb strings.Builder
	if m.quiz == nil {
		sb.WriteString(heading("Quiz"))
		sb.WriteString(dimStyle.Render("  No quiz yet. Switch the mode to quiz with ctrl+o, or ask for one.") + "\n")
		return sb.String()
	}
	items := m.quiz.Quiz().Items
	sb.WriteString(heading(fmt.Sprintf("Quiz (%d/%d answered)", m.quiz.Answered(), len(items))))
	for qi, item := range items {
		prefix := "  "
		if qi == m.quizCursor {
			prefix = bulletStyle.Render("▶ ")
		}
		sb.WriteString(fmt.Sprintf("%s%s %s\n", prefix, labelStyle.Render(fmt.Sprintf("%d.", qi+1)), item.Question))
		sel, answered := m.quiz.Selected(qi)
		for oi, opt := range item.Options {
			line := fmt.Sprintf("%s) %s", classify.OptionLetter(oi), opt)
			switch {
			case m.quiz.Submitted() && oi == item.Answer:
				line = correctStyle.Render(line + "  ✓")
			case m.quiz.Submitted() && answered && oi == sel:
				line = wrongStyle.Render(line + "  ✗")
			case answered && oi == sel:
				line = selectedStyle.Render(line)
			}
			sb.WriteString("      " + line + "\n")
		}
		if m.quiz.Submitted() && item.Explanation != "" {
			sb.WriteString("      " + dimStyle.Render(item.Explanation) + "\n")
		}
		sb.WriteString("\n")
	}
	if m.quiz.Submitted() {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  Score: %d/%d", m.quiz.Score(), len(items))) + "\n")
	}
	return sb.String()
}

func (m Model) handleQuizKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.quiz == nil {
		return m, nil
	}
	n := len(m.quiz.Quiz().Items)
	key := msg.String()
	switch key {
	case "up", "k":
		if m.quizCursor > 0 {
			m.quizCursor--
		}
	case "down", "j":
		if m.quizCursor < n-1 {
			m.quizCursor++
		}
	case "a", "b", "c", "d", "1", "2", "3", "4":
		opt := int(key[0] - 'a')
		if key[0] <= '9' {
			opt = int(key[0] - '1')
		}
		if err := m.quiz.Select(m.quizCursor, opt); err != nil {
			return m, m.flash(chat.NoticeError, err.Error())
		}
		if m.quizCursor < n-1 {
			m.quizCursor++
		}
	case "enter":
		if err := m.quiz.Submit(); err != nil {
			return m, m.flash(chat.NoticeError, err.Error())
		}
		m.viewports[tabQuiz].SetContent(m.renderQuiz())
		return m, m.flash(chat.NoticeSuccess, fmt.Sprintf("You scored %d/%d", m.quiz.Score(), n))
	case "r":
		m.quiz = classify.NewAttempt(m.quiz.Quiz())
		m.quizCursor = 0
	default:
		var cmd tea.Cmd
		m.viewports[tabQuiz], cmd = m.viewports[tabQuiz].Update(msg)
		return m, cmd
	}
	m.viewports[tabQuiz].SetContent(m.renderQuiz())
	return m, nil
}

// ── Progress ───────────────────────

func (m *Model) renderProgress() string {
	var sb strings.Builder
	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-14s", label)) + "  " + value + "\n")
	}

	sb.WriteString(heading("Session"))
	if s, ok := m.ctrl.Active(); ok {
		row("Student:", s.StudentName)
		row("Session:", s.ID)
		row("Elapsed:", m.ctrl.Elapsed())
		asked := 0
		for _, msg := range m.ctrl.Transcript() {
			if msg.Role == session.RoleUser {
				asked++
			}
		}
		row("Questions:", fmt.Sprintf("%d", asked))
	} else {
		sb.WriteString(dimStyle.Render("  (no active session)") + "\n")
	}
	row("Stored:", fmt.Sprintf("%d sessions", len(m.ctrl.Entries())))

	theme, level, mode := m.ctrl.Preferences()
	sb.WriteString(heading("Preferences"))
	row("Level:", level+dimStyle.Render("  ctrl+y to change"))
	row("Mode:", mode+dimStyle.Render("  ctrl+o to change"))
	row("Theme:", theme+dimStyle.Render("  ctrl+t to toggle"))
	autoSpeak := "off"
	if m.voice.AutoSpeak() {
		autoSpeak = "on"
	}
	row("Auto-speak:", autoSpeak+dimStyle.Render("  ctrl+g to toggle"))

	topic, stages := m.ctrl.Topic()
	sb.WriteString(heading("Roadmap: " + topic))
	for i, st := range stages {
		sb.WriteString(fmt.Sprintf("  %s %s  %s\n", labelStyle.Render(fmt.Sprintf("%d.", i+1)), st.Title, timeStyle.Render(st.Duration)))
		sb.WriteString("     " + dimStyle.Render(st.Description) + "\n")
	}
	return sb.String()
}
