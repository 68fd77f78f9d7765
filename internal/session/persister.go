package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// saveTimeout bounds a single best-effort write.
const saveTimeout = 5 * time.Second

// Persister writes every published snapshot to a Store. Failures are logged
// and otherwise ignored; the in-memory transition that produced the
// snapshot has already been committed.
type Persister struct {
	store  Store
	logger *zap.Logger
}

// NewPersister returns a Persister for st. A nil logger disables logging.
func NewPersister(st Store, logger *zap.Logger) *Persister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister{store: st, logger: logger}
}

// Observe saves s. It has the signature of a controller observer.
func (p *Persister) Observe(s *State) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := p.store.Save(ctx, s); err != nil {
		p.logger.Warn("history not persisted", zap.Error(err), zap.Int("sessions", len(s.ChatHistory)))
		return
	}
	p.logger.Debug("history persisted", zap.Int("sessions", len(s.ChatHistory)))
}
