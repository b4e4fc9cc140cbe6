// Package session owns the single provider session: the auth state
// machine, the chat index, and the projections served to clients.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wgram/wgram/internal/chatindex"
	"github.com/wgram/wgram/internal/domain"
	"github.com/wgram/wgram/internal/provider"
)

const authRestartDelay = 500 * time.Millisecond

// Manager guards the provider handle, the pending auth tokens and the
// chat index behind one RWMutex. Auth mutations and Dialogs take the
// write lock; Messages, Send and Authorized take the read lock.
type Manager struct {
	mu     sync.RWMutex
	client provider.Client
	logger *zap.Logger

	pendingLogin    map[string]provider.LoginToken
	pendingPassword map[string]provider.PasswordToken
	sessions        map[string]string // session id -> phone
	index           *chatindex.Table

	closeOnce sync.Once
}

func NewManager(client provider.Client, logger *zap.Logger) *Manager {
	return &Manager{
		client:          client,
		logger:          logger,
		pendingLogin:    make(map[string]provider.LoginToken),
		pendingPassword: make(map[string]provider.PasswordToken),
		sessions:        make(map[string]string),
		index:           chatindex.New(),
	}
}

// RequestCode asks the provider for a login code. The session-restart
// fault is retried exactly once after a short delay; any other fault
// surfaces and leaves no pending token. A prior pending token for the
// phone is replaced.
func (m *Manager) RequestCode(ctx context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Requesting login code", zap.String("phone", phone))

	token, err := m.client.RequestCode(ctx, phone)
	if errors.Is(err, provider.ErrSessionRestart) {
		m.logger.Warn("Session restart requested, retrying code request once")
		select {
		case <-time.After(authRestartDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
		token, err = m.client.RequestCode(ctx, phone)
	}
	if err != nil {
		return fmt.Errorf("request code: %w", err)
	}

	m.pendingLogin[phone] = token
	return nil
}

// VerifyCode consumes the pending login token for phone and presents
// it with the code. The token is consumed regardless of outcome: after
// any failure other than provider.ErrPasswordRequired, a fresh
// RequestCode is needed. On success a new session id is returned.
func (m *Manager) VerifyCode(ctx context.Context, phone, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.pendingLogin[phone]
	if !ok {
		return "", ErrNoPendingAuth
	}
	delete(m.pendingLogin, phone)

	if err := m.client.SignIn(ctx, token, code); err != nil {
		if errors.Is(err, provider.ErrPasswordRequired) {
			m.pendingPassword[phone] = provider.PasswordToken{Phone: phone}
			return "", provider.ErrPasswordRequired
		}
		return "", fmt.Errorf("verify code: %w", err)
	}

	return m.mintSession(phone), nil
}

// VerifyPassword consumes the pending password token for phone and
// completes the 2FA check. A failed check does not restore the token.
func (m *Manager) VerifyPassword(ctx context.Context, phone, password string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.pendingPassword[phone]
	if !ok {
		return "", ErrNoPendingAuth
	}
	delete(m.pendingPassword, phone)

	if err := m.client.CheckPassword(ctx, token, password); err != nil {
		return "", fmt.Errorf("verify password: %w", err)
	}

	return m.mintSession(phone), nil
}

// mintSession records phone under a fresh random session id.
// Caller holds the write lock.
func (m *Manager) mintSession(phone string) string {
	id := uuid.NewString()
	m.sessions[id] = phone
	m.logger.Info("Authentication successful", zap.String("session_id", id))
	return id
}

// SessionPhone returns the phone a session id authenticated, if any.
func (m *Manager) SessionPhone(sessionID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	phone, ok := m.sessions[sessionID]
	return phone, ok
}

// Dialogs fetches the full dialog list, assigns ids 1..N in fetch
// order into the chat index and returns the projected summaries.
// Entries from earlier, larger fetches are left in place.
func (m *Manager) Dialogs(ctx context.Context) ([]domain.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list, err := m.client.Dialogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("get dialogs: %w", err)
	}

	gen := m.index.BeginRebuild()
	chats := make([]domain.Chat, 0, len(list))
	for i, d := range list {
		id := int64(i + 1)
		m.index.Put(id, d.Peer)

		name := d.Name
		if name == "" {
			name = "Unknown"
		}
		chats = append(chats, domain.Chat{
			ID:          id,
			Name:        name,
			LastMessage: d.LastMessage,
			UnreadCount: d.UnreadCount,
			IsArchived:  d.Archived,
		})
	}

	m.logger.Info("Fetched dialogs", zap.Int("count", len(chats)), zap.Uint64("generation", gen))
	return chats, nil
}

// Messages returns up to limit messages for a chat in chronological
// (oldest to newest) order.
func (m *Manager) Messages(ctx context.Context, chatID int64, limit int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	peer, err := m.resolve(chatID)
	if err != nil {
		return nil, err
	}

	history, err := m.client.History(ctx, peer, limit)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	if len(history) > limit {
		history = history[:limit]
	}

	msgs := make([]domain.Message, 0, len(history))
	for _, pm := range history {
		msgs = append(msgs, domain.Message{
			ID:         pm.ID,
			Text:       pm.Text,
			SenderName: pm.SenderName,
			IsOutgoing: pm.Outgoing,
			Timestamp:  pm.Time.Unix(),
		})
	}

	// Providers hand history back newest first.
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})

	return msgs, nil
}

// Send delivers a text message to the chat.
func (m *Manager) Send(ctx context.Context, chatID int64, text string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	peer, err := m.resolve(chatID)
	if err != nil {
		return err
	}
	if err := m.client.Send(ctx, peer, text); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Authorized probes provider session validity.
func (m *Manager) Authorized(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client.Authorized(ctx)
}

// Close disconnects the provider transport. Idempotent.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.logger.Info("Disconnecting provider client")
		err = m.client.Close()
	})
	return err
}

// resolve maps a chat id to its peer. Stale entries from superseded
// fetches still resolve; they are logged so the gap stays visible.
func (m *Manager) resolve(chatID int64) (provider.Peer, error) {
	peer, gen, ok := m.index.Resolve(chatID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrChatNotFound, chatID)
	}
	if gen != m.index.Generation() {
		m.logger.Warn("Resolved chat id from a superseded dialog fetch",
			zap.Int64("chat_id", chatID),
			zap.Uint64("entry_generation", gen),
			zap.Uint64("current_generation", m.index.Generation()))
	}
	return peer, nil
}
