// Package chat owns the conversation state of the client: the active
// session, its live transcript, the history index and the user's
// preferences. Every committed transition is published to observers, which
// is how persistence happens; the controller itself never touches storage.
package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fakeyudi/studyai/internal/backend"
	"github.com/fakeyudi/studyai/internal/session"
)

// Backend is what the controller needs from the remote service.
type Backend interface {
	CreateSession(ctx context.Context, studentName, subject string) (*backend.CreateSessionResponse, error)
	Ask(ctx context.Context, req backend.AskRequest) (*backend.AskResponse, error)
}

// Observer receives a snapshot of the persisted subset after each committed
// transition. Observers run synchronously, in commit order, and must not
// call mutating controller methods.
type Observer func(*session.State)

// placeholderName stands in for the student name of a rehydrated session,
// which the history does not record.
const placeholderName = "User"

const noAnswer = "No data retrieved."

// Controller is the client's state container. It is safe for concurrent
// use; the TUI drives it from its event loop while network calls and
// speech callbacks complete on other goroutines.
type Controller struct {
	backend Backend
	logger  *zap.Logger
	notify  Notifier
	now     func() time.Time
	subject string

	mu       sync.Mutex
	active   *session.Session
	live     []session.Message
	history  session.HistoryIndex
	theme    string
	level    string
	mode     string
	inFlight map[string]bool
	topic    string
	roadmap  []RoadmapStage

	publishMu sync.Mutex
	observers []Observer
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option { return func(c *Controller) { c.logger = l } }

// WithNotifier routes user-facing notices to n.
func WithNotifier(n Notifier) Option { return func(c *Controller) { c.notify = n } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// WithSubject sets the subject sent with session and ask requests.
func WithSubject(s string) Option { return func(c *Controller) { c.subject = s } }

// New builds a controller over a previously persisted state. A nil state
// starts empty with default preferences.
func New(b Backend, st *session.State, opts ...Option) *Controller {
	if st == nil {
		st = session.DefaultState()
	}
	c := &Controller{
		backend:  b,
		logger:   zap.NewNop(),
		notify:   func(Notice) {},
		now:      time.Now,
		history:  st.ChatHistory.Clone(),
		theme:    st.Theme,
		level:    st.Level,
		mode:     st.Mode,
		inFlight: make(map[string]bool),
		topic:    "General Learning",
	}
	if c.history == nil {
		c.history = session.HistoryIndex{}
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Subscribe registers an observer for committed transitions.
func (c *Controller) Subscribe(o Observer) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	c.observers = append(c.observers, o)
}

// unlockAndPublish releases c.mu and hands a snapshot of the committed state
// to every observer. publishMu is taken before c.mu is released so
// snapshots reach observers in commit order.
func (c *Controller) unlockAndPublish() {
	snap := c.snapshotLocked()
	c.publishMu.Lock()
	c.mu.Unlock()
	defer c.publishMu.Unlock()
	for _, o := range c.observers {
		o(snap)
	}
}

func (c *Controller) snapshotLocked() *session.State {
	return &session.State{
		Theme:       c.theme,
		ChatHistory: c.history.Clone(),
		Level:       c.level,
		Mode:        c.mode,
	}
}

// Snapshot returns the persisted subset of the current state.
func (c *Controller) Snapshot() *session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// CreateSession opens a new backend session for name and makes it active
// with an empty transcript. On failure no session is left active.
func (c *Controller) CreateSession(ctx context.Context, name string) (session.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		err := &ValidationError{Field: "name", Message: "please enter your name"}
		c.notify(Notice{Level: NoticeError, Text: "Please enter your name"})
		return session.Session{}, err
	}

	resp, err := c.backend.CreateSession(ctx, name, c.subjectOrDefault())
	if err == nil && resp.SessionID == "" {
		err = &backend.ConnectionError{Message: "backend returned no session id"}
	}
	if err != nil {
		c.mu.Lock()
		c.active = nil
		c.live = nil
		c.unlockAndPublish()
		c.logger.Warn("session not created", zap.String("student", name), zap.Error(err))
		c.notify(Notice{Level: NoticeError, Text: "Could not connect to backend: " + err.Error()})
		return session.Session{}, err
	}

	s := session.Session{
		ID:          resp.SessionID,
		StudentName: resp.StudentName,
		StartedAt:   c.now(),
	}
	if s.StudentName == "" {
		s.StudentName = name
	}

	c.mu.Lock()
	c.active = &s
	c.live = []session.Message{}
	c.unlockAndPublish()

	c.logger.Info("session created", zap.String("session", s.ID), zap.String("student", s.StudentName))
	c.notify(Notice{Level: NoticeSuccess, Text: fmt.Sprintf("Welcome, %s!", s.StudentName)})
	return s, nil
}

func (c *Controller) subjectOrDefault() string {
	if c.subject == "" {
		return "General"
	}
	return c.subject
}

// Pending is an accepted submission waiting for its backend reply.
type Pending struct {
	SessionID string
	Question  string
	Request   backend.AskRequest
}

// Override sends p with level and mode instead of the stored preferences.
// Empty values keep what Begin chose. Both must already be valid.
func (p *Pending) Override(level, mode string) {
	if level != "" {
		p.Request.StudentLevel = level
	}
	if mode != "" {
		p.Request.ExplanationMode = mode
		p.Request.Question = EnrichPrompt(p.Question, mode)
	}
}

// Begin accepts text for the active session: it appends the user message,
// marks the session in flight and returns the request to send. It returns
// false, changing nothing, when text is blank, no session is active, or the
// active session already has a request in flight.
func (c *Controller) Begin(text string) (*Pending, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	c.mu.Lock()
	if c.active == nil || c.inFlight[c.active.ID] {
		c.mu.Unlock()
		return nil, false
	}
	sid := c.active.ID

	if topic, ok := DetectRoadmap(text); ok {
		c.topic = topic
		c.roadmap = slices.Clone(defaultRoadmap)
	}

	c.appendLocked(sid, session.Message{Role: session.RoleUser, Content: text})
	c.inFlight[sid] = true
	p := &Pending{
		SessionID: sid,
		Question:  text,
		Request: backend.AskRequest{
			Question:        EnrichPrompt(text, c.mode),
			SessionID:       sid,
			StudentLevel:    c.level,
			ExplanationMode: c.mode,
			Subject:         c.subject,
		},
	}
	c.unlockAndPublish()
	return p, true
}

// Complete records the outcome of p. A failed call becomes an assistant
// notice in the transcript. If p's session was deleted meanwhile the reply
// is dropped; if the user switched sessions it lands in p's entry only.
func (c *Controller) Complete(p *Pending, resp *backend.AskResponse, callErr error) {
	msg := session.Message{Role: session.RoleAssistant}
	switch {
	case callErr != nil:
		msg.Content = "Failed to get answer: " + callErr.Error()
	case resp == nil:
		msg.Content = noAnswer
	default:
		msg.Content = firstNonEmpty(resp.Answer, resp.Message, noAnswer)
		msg.Suggestions = slices.Clone(resp.FollowUpSuggestions)
		msg.Kind = resp.Kind
	}

	c.mu.Lock()
	delete(c.inFlight, p.SessionID)
	if _, ok := c.history[p.SessionID]; !ok {
		c.mu.Unlock()
		c.logger.Info("reply dropped for removed session", zap.String("session", p.SessionID))
		return
	}
	c.appendLocked(p.SessionID, msg)
	c.unlockAndPublish()

	if callErr != nil {
		c.logger.Warn("ask failed", zap.String("session", p.SessionID), zap.Error(callErr))
		c.notify(Notice{Level: NoticeError, Text: "Failed to get answer."})
	}
}

// Submit runs Begin, the backend call and Complete in sequence. It reports
// whether the text was accepted.
func (c *Controller) Submit(ctx context.Context, text string) bool {
	p, ok := c.Begin(text)
	if !ok {
		return false
	}
	resp, err := c.Fetch(ctx, p)
	c.Complete(p, resp, err)
	return true
}

// Fetch sends p's request to the backend. It touches no controller state,
// so event loops can run it off-loop between Begin and Complete.
func (c *Controller) Fetch(ctx context.Context, p *Pending) (*backend.AskResponse, error) {
	return c.backend.Ask(ctx, p.Request)
}

// appendLocked adds m to sid's history entry, creating it on first use, and
// to the live transcript when sid is active.
func (c *Controller) appendLocked(sid string, m session.Message) {
	e, ok := c.history[sid]
	if !ok {
		e = session.TranscriptEntry{
			Title:     session.TitleFor(m.Content),
			CreatedAt: c.now(),
		}
	}
	e.Messages = append(slices.Clip(e.Messages), m)
	c.history[sid] = e

	if c.active != nil && c.active.ID == sid {
		c.live = append(slices.Clip(c.live), m)
	}
}

// Select makes a stored session active and loads its transcript. Unknown
// ids are ignored.
func (c *Controller) Select(id string) {
	c.mu.Lock()
	e, ok := c.history[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	c.active = &session.Session{ID: id, StudentName: placeholderName, StartedAt: c.now()}
	c.live = session.CloneMessages(e.Messages)
	c.unlockAndPublish()
}

// Delete removes a stored session. Deleting the active session also clears
// the live transcript. Unknown ids are ignored.
func (c *Controller) Delete(id string) {
	c.mu.Lock()
	_, stored := c.history[id]
	isActive := c.active != nil && c.active.ID == id
	if !stored && !isActive {
		c.mu.Unlock()
		return
	}
	delete(c.history, id)
	if isActive {
		c.active = nil
		c.live = nil
	}
	c.unlockAndPublish()
}

// ErrNotConfirmed is returned by ClearAll when the user declines.
var ErrNotConfirmed = errors.New("not confirmed")

// ClearAll purges every stored session and the active state once confirm
// approves.
func (c *Controller) ClearAll(confirm Confirmer) error {
	if confirm == nil || !confirm.Confirm("Purge all chat history? This cannot be undone.") {
		return ErrNotConfirmed
	}
	c.mu.Lock()
	c.history = session.HistoryIndex{}
	c.active = nil
	c.live = nil
	c.unlockAndPublish()
	c.logger.Info("history purged")
	return nil
}

// Import stores e under a fresh local id and returns it. Imported sessions
// can be selected and read but the backend does not know them.
func (c *Controller) Import(e session.TranscriptEntry) string {
	id := "imported-" + uuid.NewString()
	e.Messages = session.CloneMessages(e.Messages)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = c.now()
	}
	c.mu.Lock()
	c.history[id] = e
	c.unlockAndPublish()
	return id
}

// ReplaceHistory adopts state written by another client instance. The
// active session survives unless its stored entry disappeared.
func (c *Controller) ReplaceHistory(st *session.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := st.ChatHistory.Clone()
	if c.active != nil {
		id := c.active.ID
		_, had := c.history[id]
		e, has := next[id]
		switch {
		case had && !has:
			c.active = nil
			c.live = nil
		case has && !c.inFlight[id]:
			c.live = session.CloneMessages(e.Messages)
		case has:
			next[id] = c.history[id] // keep our optimistic message until the reply lands
		}
	}
	c.history = next
	c.theme, c.level, c.mode = st.Theme, st.Level, st.Mode
}

// ValidateLevel reports whether level is a known student level.
func ValidateLevel(level string) error {
	if !slices.Contains(session.Levels, level) {
		return &ValidationError{Field: "level", Message: fmt.Sprintf("%q is not one of %s", level, strings.Join(session.Levels, ", "))}
	}
	return nil
}

// ValidateMode reports whether mode is a known explanation mode.
func ValidateMode(mode string) error {
	if !slices.Contains(session.Modes, mode) {
		return &ValidationError{Field: "mode", Message: fmt.Sprintf("%q is not one of %s", mode, strings.Join(session.Modes, ", "))}
	}
	return nil
}

// SetLevel changes the student level sent with questions.
func (c *Controller) SetLevel(level string) error {
	if err := ValidateLevel(level); err != nil {
		return err
	}
	c.mu.Lock()
	c.level = level
	c.unlockAndPublish()
	return nil
}

// SetMode changes the explanation mode.
func (c *Controller) SetMode(mode string) error {
	if err := ValidateMode(mode); err != nil {
		return err
	}
	c.mu.Lock()
	c.mode = mode
	c.unlockAndPublish()
	return nil
}

// ToggleTheme flips between dark and light and returns the new theme.
func (c *Controller) ToggleTheme() string {
	c.mu.Lock()
	if c.theme == session.ThemeDark {
		c.theme = session.ThemeLight
	} else {
		c.theme = session.ThemeDark
	}
	theme := c.theme
	c.unlockAndPublish()
	return theme
}

// Active returns the active session, if any.
func (c *Controller) Active() (session.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return session.Session{}, false
	}
	return *c.active, true
}

// Transcript returns a copy of the live transcript.
func (c *Controller) Transcript() []session.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return session.CloneMessages(c.live)
}

// Loading reports whether the active session has a request in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil && c.inFlight[c.active.ID]
}

// Preferences returns theme, level and mode.
func (c *Controller) Preferences() (theme, level, mode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.theme, c.level, c.mode
}

// Entry returns the stored transcript for id.
func (c *Controller) Entry(id string) (session.TranscriptEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.history[id]
	if !ok {
		return session.TranscriptEntry{}, false
	}
	e.Messages = session.CloneMessages(e.Messages)
	return e, true
}

// EntrySummary describes one stored session for listings.
type EntrySummary struct {
	ID        string
	Title     string
	CreatedAt time.Time
	Messages  int
}

// Entries lists stored sessions, newest first.
func (c *Controller) Entries() []EntrySummary {
	c.mu.Lock()
	out := make([]EntrySummary, 0, len(c.history))
	for id, e := range c.history {
		out = append(out, EntrySummary{ID: id, Title: e.Title, CreatedAt: e.CreatedAt, Messages: len(e.Messages)})
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Topic returns the current study topic and roadmap, set when a question
// asks to learn something.
func (c *Controller) Topic() (string, []RoadmapStage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topic, slices.Clone(c.roadmap)
}

// Elapsed reports whole minutes since the active session started, e.g. "12m".
func (c *Controller) Elapsed() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil || c.active.StartedAt.IsZero() {
		return "0m"
	}
	return fmt.Sprintf("%dm", int(c.now().Sub(c.active.StartedAt)/time.Minute))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
