// Package gotd implements the provider capability on top of gotd/td.
package gotd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/query/dialogs"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/wgram/wgram/internal/provider"
)

// Client talks to Telegram through gotd/td. One instance per process;
// Run owns the transport pump for the process lifetime.
type Client struct {
	logger *zap.Logger

	client *telegram.Client
	api    *tg.Client
	sender *message.Sender

	mu   sync.Mutex
	self *tg.User

	ready     chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New creates a Client persisting its provider session at sessionFile.
func New(apiID int, apiHash, sessionFile string, logger *zap.Logger) *Client {
	c := &Client{
		logger: logger,
		ready:  make(chan struct{}),
	}
	c.client = telegram.NewClient(apiID, apiHash, telegram.Options{
		Logger:         logger.Named("gotd"),
		SessionStorage: &session.FileStorage{Path: sessionFile},
	})
	return c
}

// Run connects and blocks until ctx is cancelled or the transport
// fails. Ready is closed once other methods may be used.
func (c *Client) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	return c.client.Run(runCtx, func(ctx context.Context) error {
		c.api = c.client.API()
		c.sender = message.NewSender(c.api)

		// Self is only available once signed in; refreshed again
		// after a successful SignIn/CheckPassword.
		if self, err := c.client.Self(ctx); err == nil {
			c.setSelf(self)
		}

		close(c.ready)
		<-ctx.Done()
		return ctx.Err()
	})
}

// Ready is closed when the transport is connected.
func (c *Client) Ready() <-chan struct{} { return c.ready }

// Close stops the transport pump. Idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
	})
	return nil
}

func (c *Client) RequestCode(ctx context.Context, phone string) (provider.LoginToken, error) {
	sent, err := c.client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		if tgerr.Is(err, "AUTH_RESTART") {
			return provider.LoginToken{}, fmt.Errorf("send code: %w", provider.ErrSessionRestart)
		}
		return provider.LoginToken{}, fmt.Errorf("send code: %w", err)
	}

	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return provider.LoginToken{}, fmt.Errorf("unexpected sent code type: %T", sent)
	}

	return provider.LoginToken{Phone: phone, CodeHash: code.PhoneCodeHash}, nil
}

func (c *Client) SignIn(ctx context.Context, token provider.LoginToken, code string) error {
	_, err := c.client.Auth().SignIn(ctx, token.Phone, code, token.CodeHash)
	switch {
	case err == nil:
		c.refreshSelf(ctx)
		return nil
	case errors.Is(err, auth.ErrPasswordAuthNeeded):
		return provider.ErrPasswordRequired
	case errors.Is(err, &auth.SignUpRequired{}):
		return provider.ErrSignUpRequired
	default:
		return fmt.Errorf("sign in: %w", err)
	}
}

func (c *Client) CheckPassword(ctx context.Context, token provider.PasswordToken, password string) error {
	if _, err := c.client.Auth().Password(ctx, password); err != nil {
		return fmt.Errorf("check password: %w", err)
	}
	c.refreshSelf(ctx)
	return nil
}

func (c *Client) Authorized(ctx context.Context) (bool, error) {
	status, err := c.client.Auth().Status(ctx)
	if err != nil {
		return false, fmt.Errorf("auth status: %w", err)
	}
	return status.Authorized, nil
}

// Dialogs iterates the full dialog list in provider order.
func (c *Client) Dialogs(ctx context.Context) ([]provider.Dialog, error) {
	iter := dialogs.NewQueryBuilder(c.api).GetDialogs().BatchSize(100).Iter()

	var result []provider.Dialog
	for iter.Next(ctx) {
		elem := iter.Value()

		var unread int
		var archived bool
		if dlg, ok := elem.Dialog.(*tg.Dialog); ok {
			unread = dlg.UnreadCount
			if folder, ok := dlg.GetFolderID(); ok {
				archived = folder == 1
			}
		}

		var lastMsg string
		if elem.Last != nil {
			if msg, ok := elem.Last.(*tg.Message); ok {
				lastMsg = msg.Message
			}
		}

		result = append(result, provider.Dialog{
			Peer:        elem.Peer,
			Name:        c.titleFromEntities(elem),
			LastMessage: lastMsg,
			UnreadCount: unread,
			Archived:    archived,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("iterate dialogs: %w", err)
	}

	return result, nil
}

// History returns up to limit messages for peer, newest first.
func (c *Client) History(ctx context.Context, peer provider.Peer, limit int) ([]provider.Message, error) {
	inputPeer, ok := peer.(tg.InputPeerClass)
	if !ok {
		return nil, fmt.Errorf("unexpected peer type: %T", peer)
	}

	result, err := c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  inputPeer,
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	return c.convertHistoryResult(result)
}

func (c *Client) Send(ctx context.Context, peer provider.Peer, text string) error {
	inputPeer, ok := peer.(tg.InputPeerClass)
	if !ok {
		return fmt.Errorf("unexpected peer type: %T", peer)
	}
	if _, err := c.sender.To(inputPeer).Text(ctx, text); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (c *Client) setSelf(self *tg.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.self = self
}

func (c *Client) getSelf() *tg.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self
}

func (c *Client) refreshSelf(ctx context.Context) {
	self, err := c.client.Self(ctx)
	if err != nil {
		c.logger.Warn("Failed to load self user", zap.Error(err))
		return
	}
	c.setSelf(self)
}

// convertHistoryResult extracts messages from a MessagesMessagesClass
// response, keeping the provider's newest-first order.
func (c *Client) convertHistoryResult(result tg.MessagesMessagesClass) ([]provider.Message, error) {
	var messages []tg.MessageClass
	var users []tg.UserClass

	switch r := result.(type) {
	case *tg.MessagesMessages:
		messages = r.Messages
		users = r.Users
	case *tg.MessagesMessagesSlice:
		messages = r.Messages
		users = r.Users
	case *tg.MessagesChannelMessages:
		messages = r.Messages
		users = r.Users
	default:
		return nil, fmt.Errorf("unexpected messages type: %T", result)
	}

	userMap := usersToMap(users)

	var out []provider.Message
	for _, m := range messages {
		msg, ok := m.(*tg.Message)
		if !ok {
			continue
		}
		out = append(out, c.convertMessage(msg, userMap))
	}

	return out, nil
}

// convertMessage converts a tg.Message to a provider.Message.
func (c *Client) convertMessage(msg *tg.Message, users map[int64]*tg.User) provider.Message {
	var senderName string

	if fromID := msg.FromID; fromID != nil {
		if p, ok := fromID.(*tg.PeerUser); ok {
			if u, ok := users[p.UserID]; ok {
				senderName = formatUserName(u)
			}
		}
	}

	// In DMs, FromID is often nil. Derive sender from PeerID and Out flag.
	if senderName == "" && !msg.Out {
		if p, ok := msg.PeerID.(*tg.PeerUser); ok {
			if u, ok := users[p.UserID]; ok {
				senderName = formatUserName(u)
			}
		}
	}
	if senderName == "" && msg.Out {
		if self := c.getSelf(); self != nil {
			senderName = formatUserName(self)
		}
	}
	if senderName == "" {
		senderName = "Unknown"
	}

	return provider.Message{
		ID:         msg.ID,
		Text:       msg.Message,
		SenderName: senderName,
		Outgoing:   msg.Out,
		Time:       time.Unix(int64(msg.Date), 0),
	}
}

// titleFromEntities extracts the chat title from dialog entities.
func (c *Client) titleFromEntities(elem dialogs.Elem) string {
	if elem.Peer == nil {
		return ""
	}

	entities := elem.Entities

	switch p := elem.Dialog.GetPeer().(type) {
	case *tg.PeerUser:
		if u, ok := entities.User(p.UserID); ok {
			return formatUserName(u)
		}
	case *tg.PeerChat:
		if ch, ok := entities.Chat(p.ChatID); ok {
			return ch.Title
		}
	case *tg.PeerChannel:
		if ch, ok := entities.Channel(p.ChannelID); ok {
			return ch.Title
		}
	}

	return ""
}

// formatUserName returns a display name for a user.
func formatUserName(u *tg.User) string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "Unknown"
}

// usersToMap converts a UserClass slice to a map of User by ID.
func usersToMap(users []tg.UserClass) map[int64]*tg.User {
	m := make(map[int64]*tg.User, len(users))
	for _, u := range users {
		user, ok := u.(*tg.User)
		if !ok {
			continue
		}
		m[user.ID] = user
	}
	return m
}
