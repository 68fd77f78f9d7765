package session

import (
	"time"
	"unicode/utf8"
)

// Role identifies who authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UnmarshalText accepts the legacy "ai" spelling written by older clients.
func (r *Role) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ai", string(RoleAssistant):
		*r = RoleAssistant
	default:
		*r = Role(b)
	}
	return nil
}

// Session is a conversation context established with the backend.
type Session struct {
	ID          string    `json:"session_id"`
	StudentName string    `json:"student_name"`
	StartedAt   time.Time `json:"started_at"`
}

// Message is a single transcript line. Messages are never edited after
// they are appended.
type Message struct {
	Role        Role     `json:"role"`
	Content     string   `json:"content"`
	Suggestions []string `json:"suggestions,omitempty"`
	Kind        string   `json:"kind,omitempty"` // explicit render tag from the backend, if any
}

// TranscriptEntry is the stored history of one session.
type TranscriptEntry struct {
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// HistoryIndex maps a session id to its transcript.
type HistoryIndex map[string]TranscriptEntry

// Clone returns a deep copy so callers can hand the index to another
// goroutine without sharing message slices.
func (h HistoryIndex) Clone() HistoryIndex {
	out := make(HistoryIndex, len(h))
	for id, e := range h {
		e.Messages = CloneMessages(e.Messages)
		out[id] = e
	}
	return out
}

// CloneMessages copies msgs including each message's suggestions.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		if m.Suggestions != nil {
			m.Suggestions = append([]string(nil), m.Suggestions...)
		}
		out[i] = m
	}
	return out
}

// Preference values.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"

	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"

	ModeQuick        = "quick"
	ModeStepByStep   = "step-by-step"
	ModeExampleBased = "example-based"
	ModeQuiz         = "quiz"
)

// Levels lists the accepted student levels in display order.
var Levels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced}

// Modes lists the accepted explanation modes in display order.
var Modes = []string{ModeQuick, ModeStepByStep, ModeExampleBased, ModeQuiz}

// State is the persisted subset of client state. The active session and the
// live transcript are deliberately absent.
type State struct {
	Theme       string       `json:"theme"`
	ChatHistory HistoryIndex `json:"chatHistory"`
	Level       string       `json:"level"`
	Mode        string       `json:"mode"`
}

// DefaultState returns an empty history with default preferences.
func DefaultState() *State {
	return &State{
		Theme:       ThemeDark,
		ChatHistory: HistoryIndex{},
		Level:       LevelIntermediate,
		Mode:        ModeQuick,
	}
}

// normalize fills zero fields left by a partial or older file.
func (s *State) normalize() {
	d := DefaultState()
	if s.Theme == "" {
		s.Theme = d.Theme
	}
	if s.Level == "" {
		s.Level = d.Level
	}
	if s.Mode == "" {
		s.Mode = d.Mode
	}
	if s.ChatHistory == nil {
		s.ChatHistory = HistoryIndex{}
	}
}

// titleRunes bounds the history title excerpt.
const titleRunes = 35

// TitleFor derives a history title from the first user message.
func TitleFor(content string) string {
	if utf8.RuneCountInString(content) > titleRunes {
		r := []rune(content)
		content = string(r[:titleRunes])
	}
	return content + "..."
}
