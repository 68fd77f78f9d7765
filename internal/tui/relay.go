package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fakeyudi/studyai/internal/chat"
	"github.com/fakeyudi/studyai/internal/session"
)

// Relay forwards callbacks that fire on other goroutines (controller
// notices, speech results, history file changes) into the running program.
// Messages sent before the program starts are dropped.
type Relay struct {
	mu sync.Mutex
	p  *tea.Program
}

func (r *Relay) attach(p *tea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = p
}

func (r *Relay) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		go p.Send(msg)
	}
}

// Notify is a chat.Notifier.
func (r *Relay) Notify(n chat.Notice) { r.send(noticeMsg(n)) }

// HistoryChanged reports state written by another client instance.
func (r *Relay) HistoryChanged(st *session.State) { r.send(historyChangedMsg{state: st}) }

// Heard delivers recognized speech.
func (r *Relay) Heard(text string) { r.send(voiceResultMsg{text: text}) }
