// Package voice coordinates speech recognition and speech synthesis as a
// three-state machine. At most one speech operation runs at a time: speaking
// aborts listening and listening cancels any utterance.
package voice

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// State is the coordinator's speech state.
type State int

const (
	Idle State = iota
	Listening
	Speaking
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Speaking:
		return "speaking"
	}
	return "unknown"
}

// Cause names what drove a transition.
type Cause int

const (
	CauseListen      Cause = iota // StartListening accepted
	CauseResult                   // recognition produced a transcript
	CauseListenEnded              // recognition ended without a transcript
	CauseSpeak                    // Speak accepted
	CauseSpeechEnded              // utterance finished or failed
	CauseStop                     // explicit Stop or Close
	CausePreempted                // a new operation replaced the running one
)

// Event is one committed transition.
type Event struct {
	From, To State
	Cause    Cause
	Err      error
}

// ErrUnavailable is returned by platform adapters that cannot recognize or
// synthesize speech here.
var ErrUnavailable = errors.New("speech capability unavailable")

// Recognizer turns one spoken phrase into text. Recognize blocks until a
// result, an error, or ctx is cancelled.
type Recognizer interface {
	Recognize(ctx context.Context, lang string) (string, error)
}

// Synthesizer reads text aloud. Speak blocks until the utterance ends or
// ctx is cancelled, which must stop playback.
type Synthesizer interface {
	Voices(ctx context.Context) ([]Voice, error)
	Speak(ctx context.Context, u Utterance) error
}

// Voice is a synthesis voice offered by the platform.
type Voice struct {
	Name string
	Lang string
}

// Utterance is a single synthesis request.
type Utterance struct {
	Text  string
	Voice Voice
	Rate  float64
	Pitch float64
	Lang  string
}

// Defaults applied to every utterance and recognition.
const (
	DefaultLocale = "en-US"
	DefaultRate   = 1.0
	DefaultPitch  = 1.2
)

// Coordinator is the voice state machine. The zero value is not usable; use
// New.
type Coordinator struct {
	rec    Recognizer
	synth  Synthesizer
	logger *zap.Logger
	locale string

	mu        sync.Mutex
	state     State
	op        uint64
	cancel    context.CancelFunc
	autoSpeak bool
	voice     *Voice

	emitMu    sync.Mutex
	observers []func(Event)

	wg sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRecognizer enables listening.
func WithRecognizer(r Recognizer) Option { return func(c *Coordinator) { c.rec = r } }

// WithSynthesizer enables speaking.
func WithSynthesizer(s Synthesizer) Option { return func(c *Coordinator) { c.synth = s } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Coordinator) { c.logger = l } }

// WithLocale overrides DefaultLocale.
func WithLocale(lang string) Option { return func(c *Coordinator) { c.locale = lang } }

// New returns an idle coordinator. Without a recognizer or synthesizer the
// matching operations are silent no-ops.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{logger: zap.NewNop(), locale: DefaultLocale}
	for _, o := range opts {
		o(c)
	}
	return c
}

// OnTransition registers fn to receive every committed transition, in order.
// fn must not call back into the coordinator.
func (c *Coordinator) OnTransition(fn func(Event)) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.observers = append(c.observers, fn)
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AutoSpeak reports whether replies should be read aloud. It turns on after a
// successful recognition.
func (c *Coordinator) AutoSpeak() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoSpeak
}

// SetAutoSpeak sets the auto-speak preference.
func (c *Coordinator) SetAutoSpeak(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoSpeak = on
}

// CanListen reports whether a recognizer is configured.
func (c *Coordinator) CanListen() bool { return c.rec != nil }

// CanSpeak reports whether a synthesizer is configured.
func (c *Coordinator) CanSpeak() bool { return c.synth != nil }

// StartListening begins a single recognition. onResult receives the
// transcript exactly once, on a coordinator goroutine, if recognition
// succeeds. It returns false and stays Idle when recognition is unavailable.
// A running utterance is cancelled first.
func (c *Coordinator) StartListening(onResult func(string)) bool {
	if c.rec == nil {
		c.logger.Debug("listening unavailable")
		return false
	}

	c.mu.Lock()
	var evs []Event
	if c.state != Idle {
		evs = append(evs, c.abortLocked(CausePreempted))
	}
	op, ctx := c.beginLocked()
	evs = append(evs, c.setLocked(Listening, CauseListen, nil))
	c.wg.Add(1)
	c.unlockAndEmit(evs...)

	go func() {
		defer c.wg.Done()
		text, err := c.rec.Recognize(ctx, c.locale)
		c.finishListening(op, strings.TrimSpace(text), err, onResult)
	}()
	return true
}

func (c *Coordinator) finishListening(op uint64, text string, err error, onResult func(string)) {
	c.mu.Lock()
	if op != c.op {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil
	ok := err == nil && text != ""
	cause := CauseListenEnded
	if ok {
		cause = CauseResult
		c.autoSpeak = true
	}
	ev := c.setLocked(Idle, cause, err)
	c.unlockAndEmit(ev)

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("recognition failed", zap.Error(err))
	}
	if ok && onResult != nil {
		onResult(text)
	}
}

// Speak reads text aloud after stripping code blocks and markdown markers.
// Any running utterance or recognition is cancelled first, even when nothing
// speakable remains. It returns false when synthesis is unavailable or the
// sanitized text is empty.
func (c *Coordinator) Speak(text string) bool {
	if c.synth == nil {
		return false
	}
	text = strings.TrimSpace(Sanitize(text))
	if text == "" {
		// The previous utterance is still cancelled.
		c.mu.Lock()
		if c.state == Idle {
			c.mu.Unlock()
			return false
		}
		ev := c.abortLocked(CausePreempted)
		c.unlockAndEmit(ev)
		return false
	}
	voice := c.pickVoice()

	c.mu.Lock()
	var evs []Event
	if c.state != Idle {
		evs = append(evs, c.abortLocked(CausePreempted))
	}
	op, ctx := c.beginLocked()
	evs = append(evs, c.setLocked(Speaking, CauseSpeak, nil))
	c.wg.Add(1)
	c.unlockAndEmit(evs...)

	u := Utterance{Text: text, Voice: voice, Rate: DefaultRate, Pitch: DefaultPitch, Lang: c.locale}
	go func() {
		defer c.wg.Done()
		err := c.synth.Speak(ctx, u)
		c.finishSpeaking(op, err)
	}()
	return true
}

func (c *Coordinator) finishSpeaking(op uint64, err error) {
	c.mu.Lock()
	if op != c.op {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil
	ev := c.setLocked(Idle, CauseSpeechEnded, err)
	c.unlockAndEmit(ev)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("speech failed", zap.Error(err))
	}
}

// pickVoice resolves the synthesis voice once and caches it.
func (c *Coordinator) pickVoice() Voice {
	c.mu.Lock()
	if c.voice != nil {
		v := *c.voice
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	voices, err := c.synth.Voices(context.Background())
	if err != nil {
		c.logger.Debug("voice list unavailable", zap.Error(err))
	}
	v, ok := PickVoice(voices)

	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.voice = &v
	}
	return v
}

// Stop cancels whatever is running and returns to Idle. A result from an
// aborted recognition is never delivered.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.state == Idle {
		c.mu.Unlock()
		return
	}
	ev := c.abortLocked(CauseStop)
	c.unlockAndEmit(ev)
}

// Close stops any running operation and waits for its goroutine to exit.
func (c *Coordinator) Close() {
	c.Stop()
	c.wg.Wait()
}

// beginLocked starts a new operation generation. Callbacks carrying an older
// generation are ignored.
func (c *Coordinator) beginLocked() (uint64, context.Context) {
	c.op++
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	return c.op, ctx
}

func (c *Coordinator) abortLocked(cause Cause) Event {
	c.op++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return c.setLocked(Idle, cause, nil)
}

func (c *Coordinator) setLocked(to State, cause Cause, err error) Event {
	ev := Event{From: c.state, To: to, Cause: cause, Err: err}
	c.state = to
	return ev
}

// unlockAndEmit releases c.mu and delivers evs. emitMu is taken first so
// events from concurrent operations arrive in commit order.
func (c *Coordinator) unlockAndEmit(evs ...Event) {
	c.emitMu.Lock()
	c.mu.Unlock()
	defer c.emitMu.Unlock()
	for _, ev := range evs {
		c.logger.Debug("voice transition",
			zap.Stringer("from", ev.From), zap.Stringer("to", ev.To), zap.Int("cause", int(ev.Cause)))
		for _, fn := range c.observers {
			fn(ev)
		}
	}
}
