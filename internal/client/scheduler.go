package client

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wgram/wgram/internal/protocol"
)

// staleAfter is how old a chat's last refresh may be before the next
// wake re-fetches it.
const staleAfter = 1500 * time.Millisecond

// Sender is the outbound half of a gateway connection.
type Sender interface {
	Connected() bool
	Send(ctx context.Context, cmd protocol.Command) error
}

// Scheduler keeps the selected chat fresh by polling, since the
// gateway pushes nothing. Poll frequency backs off with user idleness.
type Scheduler struct {
	conn   Sender
	store  *Store
	logger *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewScheduler(conn Sender, store *Store, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		conn:   conn,
		store:  store,
		logger: logger,
		now:    time.Now,
		sleep:  sleepTimer,
	}
}

// Run polls until ctx is cancelled; cancel it on connection teardown.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		idle := s.now().Sub(s.store.LastActivity())
		if err := s.sleep(ctx, pollInterval(idle)); err != nil {
			return
		}
		s.tick(ctx)
	}
}

// tick issues one GetMessages for the selected chat if the connection
// is live, no fetch is in flight and the chat's data has gone stale.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.conn.Connected() || s.store.Loading() {
		return
	}
	chatID, ok := s.store.Selected()
	if !ok {
		return
	}
	if updated, ok := s.store.UpdatedAt(chatID); ok && s.now().Sub(updated) <= staleAfter {
		return
	}

	s.store.SetLoading(true)
	if err := s.conn.Send(ctx, protocol.GetMessages{ChatID: chatID}); err != nil {
		s.store.SetLoading(false)
		s.logger.Error("Failed to issue poll fetch", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// pollInterval maps time since last user activity to a poll interval.
func pollInterval(idle time.Duration) time.Duration {
	switch {
	case idle > 60*time.Second:
		return 30 * time.Second
	case idle > 30*time.Second:
		return 10 * time.Second
	case idle > 10*time.Second:
		return 5 * time.Second
	default:
		return 2 * time.Second
	}
}

func sleepTimer(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
