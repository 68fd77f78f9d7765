package voice

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recognition struct {
	text string
	err  error
}

// fakeRecognizer returns whatever is sent on results, or ctx.Err() when
// cancelled first.
type fakeRecognizer struct {
	started chan struct{}
	results chan recognition
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{started: make(chan struct{}, 4), results: make(chan recognition, 4)}
}

func (f *fakeRecognizer) Recognize(ctx context.Context, lang string) (string, error) {
	f.started <- struct{}{}
	select {
	case r := <-f.results:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// fakeSynth plays until released or cancelled.
type fakeSynth struct {
	mu      sync.Mutex
	voices  []Voice
	spoken  []Utterance
	started chan struct{}
	release chan error
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{started: make(chan struct{}, 4), release: make(chan error, 4)}
}

func (f *fakeSynth) Voices(context.Context) ([]Voice, error) { return f.voices, nil }

func (f *fakeSynth) Speak(ctx context.Context, u Utterance) error {
	f.mu.Lock()
	f.spoken = append(f.spoken, u)
	f.mu.Unlock()
	f.started <- struct{}{}
	select {
	case err := <-f.release:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSynth) utterances() []Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Utterance(nil), f.spoken...)
}

type eventLog struct {
	mu  sync.Mutex
	evs []Event
	ch  chan Event
}

func watch(c *Coordinator) *eventLog {
	l := &eventLog{ch: make(chan Event, 32)}
	c.OnTransition(func(ev Event) {
		l.mu.Lock()
		l.evs = append(l.evs, ev)
		l.mu.Unlock()
		l.ch <- ev
	})
	return l
}

// waitFor blocks until an event with the given cause arrives.
func (l *eventLog) waitFor(t *testing.T, cause Cause) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-l.ch:
			if ev.Cause == cause {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for cause %d", cause)
		}
	}
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.evs...)
}

func TestListeningUnavailableStaysIdle(t *testing.T) {
	c := New()
	defer c.Close()
	called := false
	if c.StartListening(func(string) { called = true }) {
		t.Fatal("StartListening accepted without a recognizer")
	}
	if c.State() != Idle {
		t.Fatalf("state = %s, want idle", c.State())
	}
	if c.Speak("hello") {
		t.Fatal("Speak accepted without a synthesizer")
	}
	if called {
		t.Fatal("onResult called")
	}
}

func TestResultDeliveredOnceAndEnablesAutoSpeak(t *testing.T) {
	rec := newFakeRecognizer()
	c := New(WithRecognizer(rec))
	defer c.Close()
	log := watch(c)

	results := make(chan string, 2)
	if !c.StartListening(func(s string) { results <- s }) {
		t.Fatal("StartListening rejected")
	}
	<-rec.started
	if c.State() != Listening {
		t.Fatalf("state = %s, want listening", c.State())
	}

	rec.results <- recognition{text: " what is osmosis "}
	log.waitFor(t, CauseResult)

	if got := <-results; got != "what is osmosis" {
		t.Fatalf("result = %q", got)
	}
	select {
	case extra := <-results:
		t.Fatalf("second result delivered: %q", extra)
	case <-time.After(20 * time.Millisecond):
	}
	if c.State() != Idle {
		t.Fatalf("state = %s, want idle", c.State())
	}
	if !c.AutoSpeak() {
		t.Fatal("auto-speak not enabled after a result")
	}
}

func TestRecognitionErrorReturnsIdle(t *testing.T) {
	rec := newFakeRecognizer()
	c := New(WithRecognizer(rec))
	defer c.Close()
	log := watch(c)

	called := false
	c.StartListening(func(string) { called = true })
	<-rec.started
	rec.results <- recognition{err: errors.New("no-speech")}
	ev := log.waitFor(t, CauseListenEnded)

	if ev.Err == nil || ev.To != Idle {
		t.Fatalf("event = %+v", ev)
	}
	if called || c.AutoSpeak() {
		t.Fatal("failed recognition delivered a result")
	}
}

func TestSpeakSanitizesAndUsesDefaults(t *testing.T) {
	synth := newFakeSynth()
	synth.voices = []Voice{{Name: "Alex"}, {Name: "Samantha", Lang: "en-US"}}
	c := New(WithSynthesizer(synth))
	defer c.Close()
	log := watch(c)

	if !c.Speak("# Osmosis\n**Water** moves.\n```go\nfmt.Println()\n```\nDone") {
		t.Fatal("Speak rejected")
	}
	<-synth.started
	if c.State() != Speaking {
		t.Fatalf("state = %s, want speaking", c.State())
	}
	synth.release <- nil
	log.waitFor(t, CauseSpeechEnded)

	u := synth.utterances()[0]
	if u.Text != "Osmosis\nWater moves.\n\nDone" {
		t.Fatalf("text = %q", u.Text)
	}
	if u.Voice.Name != "Samantha" || u.Rate != 1.0 || u.Pitch != 1.2 || u.Lang != "en-US" {
		t.Fatalf("utterance = %+v", u)
	}
	if c.State() != Idle {
		t.Fatalf("state = %s after completion", c.State())
	}
}

func TestSpeakCancelsPriorUtterance(t *testing.T) {
	synth := newFakeSynth()
	c := New(WithSynthesizer(synth))
	defer c.Close()
	log := watch(c)

	c.Speak("first")
	<-synth.started
	c.Speak("second")
	<-synth.started

	if c.State() != Speaking {
		t.Fatalf("state = %s", c.State())
	}
	synth.release <- nil
	log.waitFor(t, CauseSpeechEnded)

	var ended int
	for _, ev := range log.all() {
		if ev.Cause == CauseSpeechEnded {
			ended++
		}
	}
	if ended != 1 {
		t.Fatalf("%d speech-ended events, want 1 (cancelled utterance must not report)", ended)
	}
	if got := len(synth.utterances()); got != 2 {
		t.Fatalf("%d utterances", got)
	}
}

func TestSpeakAbortsListening(t *testing.T) {
	rec := newFakeRecognizer()
	synth := newFakeSynth()
	c := New(WithRecognizer(rec), WithSynthesizer(synth))
	defer c.Close()
	log := watch(c)

	called := false
	c.StartListening(func(string) { called = true })
	<-rec.started
	c.Speak("answer")
	<-synth.started

	// A late result from the aborted recognition is ignored.
	rec.results <- recognition{text: "too late"}
	if c.State() != Speaking {
		t.Fatalf("state = %s, want speaking", c.State())
	}

	c.Stop()
	if c.State() != Idle {
		t.Fatalf("state = %s after Stop", c.State())
	}
	if called || c.AutoSpeak() {
		t.Fatal("aborted recognition delivered a result")
	}

	want := []Event{
		{From: Idle, To: Listening, Cause: CauseListen},
		{From: Listening, To: Idle, Cause: CausePreempted},
		{From: Idle, To: Speaking, Cause: CauseSpeak},
		{From: Speaking, To: Idle, Cause: CauseStop},
	}
	if got := log.all(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %+v\nwant %+v", got, want)
	}
}

func TestListeningCancelsSpeech(t *testing.T) {
	rec := newFakeRecognizer()
	synth := newFakeSynth()
	c := New(WithRecognizer(rec), WithSynthesizer(synth))
	defer c.Close()

	c.Speak("long answer")
	<-synth.started
	c.StartListening(nil)
	<-rec.started

	if c.State() != Listening {
		t.Fatalf("state = %s, want listening", c.State())
	}
	c.Stop()
}

func TestSpeakNothingSpeakable(t *testing.T) {
	synth := newFakeSynth()
	c := New(WithSynthesizer(synth))
	defer c.Close()
	if c.Speak("```\ncode only\n```\n**") {
		t.Fatal("Speak accepted text with nothing speakable")
	}
	if c.State() != Idle {
		t.Fatalf("state = %s", c.State())
	}
}

func TestSpeakNothingSpeakableStillCancels(t *testing.T) {
	synth := newFakeSynth()
	c := New(WithSynthesizer(synth))
	defer c.Close()
	log := watch(c)

	if !c.Speak("first answer") {
		t.Fatal("Speak rejected")
	}
	<-synth.started
	if c.Speak("```\nonly code\n```") {
		t.Fatal("Speak accepted text with nothing speakable")
	}
	ev := log.waitFor(t, CausePreempted)
	if ev.From != Speaking || ev.To != Idle {
		t.Fatalf("transition = %s -> %s", ev.From, ev.To)
	}
	if c.State() != Idle {
		t.Fatalf("state = %s, want idle", c.State())
	}
	if n := len(synth.utterances()); n != 1 {
		t.Fatalf("%d utterances started, want 1", n)
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain", "plain"},
		{"## Title", " Title"},
		{"a ```x``` b ```y``` c", "a  b  c"},
		{"**bold** and *it*", "bold and it"},
		{"unclosed ``` fence", "unclosed ``` fence"},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPickVoice(t *testing.T) {
	if _, ok := PickVoice(nil); ok {
		t.Fatal("PickVoice(nil) ok")
	}
	cases := []struct {
		names []string
		want  string
	}{
		{[]string{"Alex", "Daniel"}, "Alex"},
		{[]string{"Alex", "Microsoft Zira Desktop"}, "Microsoft Zira Desktop"},
		{[]string{"Victoria", "Google UK English Female"}, "Victoria"},
	}
	for _, tc := range cases {
		var vs []Voice
		for _, n := range tc.names {
			vs = append(vs, Voice{Name: n})
		}
		v, ok := PickVoice(vs)
		if !ok || v.Name != tc.want {
			t.Errorf("PickVoice(%v) = %q, want %q", tc.names, v.Name, tc.want)
		}
	}
}
