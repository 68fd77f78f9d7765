// Package export writes question/answer pairs and whole transcripts to
// files a student can keep or share.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fakeyudi/studyai/internal/session"
)

// Document is the renderable form of an export.
type Document struct {
	Title      string    `json:"title" yaml:"title"`
	SessionID  string    `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	ExportedAt time.Time `json:"exported_at" yaml:"exported_at"`
	Items      []QA      `json:"items" yaml:"items"`
}

// QA is one question and the answer it received. Answer is empty when the
// transcript ends on an unanswered question.
type QA struct {
	Question    string   `json:"question" yaml:"question"`
	Answer      string   `json:"answer" yaml:"answer"`
	Suggestions []string `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// FromPair builds a single-item document.
func FromPair(question, answer string, now time.Time) *Document {
	return &Document{
		Title:      "StudyAI Q&A",
		ExportedAt: now,
		Items:      []QA{{Question: question, Answer: answer}},
	}
}

// FromTranscript pairs each user message with the assistant messages that
// follow it. Assistant messages before the first question become items
// with an empty question.
func FromTranscript(sessionID string, e session.TranscriptEntry, now time.Time) *Document {
	doc := &Document{
		Title:      strings.TrimSuffix(e.Title, "..."),
		SessionID:  sessionID,
		CreatedAt:  e.CreatedAt,
		ExportedAt: now,
		Items:      []QA{},
	}
	for _, m := range e.Messages {
		if m.Role == session.RoleUser {
			doc.Items = append(doc.Items, QA{Question: m.Content})
			continue
		}
		if n := len(doc.Items); n > 0 && doc.Items[n-1].Answer == "" {
			doc.Items[n-1].Answer = m.Content
			doc.Items[n-1].Suggestions = m.Suggestions
			continue
		}
		doc.Items = append(doc.Items, QA{Answer: m.Content, Suggestions: m.Suggestions})
	}
	return doc
}

// Transcript converts a document back into stored transcript form.
func (d *Document) Transcript() session.TranscriptEntry {
	e := session.TranscriptEntry{CreatedAt: d.CreatedAt, Messages: []session.Message{}}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = d.ExportedAt
	}
	for _, it := range d.Items {
		if it.Question != "" {
			e.Messages = append(e.Messages, session.Message{Role: session.RoleUser, Content: it.Question})
		}
		if it.Answer != "" {
			e.Messages = append(e.Messages, session.Message{
				Role:        session.RoleAssistant,
				Content:     it.Answer,
				Suggestions: it.Suggestions,
			})
		}
	}
	for _, m := range e.Messages {
		if m.Role == session.RoleUser {
			e.Title = session.TitleFor(m.Content)
			break
		}
	}
	if e.Title == "" {
		e.Title = session.TitleFor(d.Title)
	}
	return e
}

// Filename returns StudyAI_QnA_<unix millis>.<ext>.
func Filename(now time.Time, ext string) string {
	return fmt.Sprintf("StudyAI_QnA_%d.%s", now.UnixMilli(), ext)
}

// Write renders doc into dir and returns the file path.
func Write(dir string, doc *Document, r Renderer) (string, error) {
	data, err := r.Render(doc)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, Filename(doc.ExportedAt, r.Ext()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}
