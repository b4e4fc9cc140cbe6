package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/wgram/wgram/internal/protocol"
)

// Conn is the duplex channel to the gateway. The read pump applies
// responses to the store; Close tears everything down.
type Conn struct {
	ws     *websocket.Conn
	store  *Store
	logger *zap.Logger

	cancel    context.CancelFunc
	connected atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the gateway's websocket endpoint and requests the
// dialog list, like a freshly opened client view.
func Dial(ctx context.Context, url string, store *Store, logger *zap.Logger) (*Conn, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		ws:     ws,
		store:  store,
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.connected.Store(true)

	go c.readLoop(pumpCtx)

	if err := c.Send(ctx, protocol.GetDialogs{}); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Conn) Connected() bool { return c.connected.Load() }

// Done is closed when the read pump exits.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) Send(ctx context.Context, cmd protocol.Command) error {
	data, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	return nil
}

// Close releases the connection and stops the read pump. Idempotent.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.connected.Store(false)
		c.cancel()
		_ = c.ws.Close(websocket.StatusNormalClosure, "")
	})
	return nil
}

func (c *Conn) readLoop(ctx context.Context) {
	defer close(c.done)
	defer c.connected.Store(false)

	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			c.logger.Warn("Connection read ended", zap.Error(err))
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		resp, err := protocol.ParseResponse(data)
		if err != nil {
			c.logger.Error("Failed to parse response", zap.Error(err))
			continue
		}
		c.apply(ctx, resp)
	}
}

func (c *Conn) apply(ctx context.Context, resp protocol.Response) {
	switch r := resp.(type) {
	case protocol.Dialogs:
		c.logger.Info("Received dialogs", zap.Int("count", len(r.Data)))
		c.store.SetChats(r.Data)
	case protocol.Messages:
		c.store.SetMessages(r.ChatID, r.Data)
		c.store.MarkUpdated(r.ChatID, time.Now())
		c.store.SetLoading(false)
	case protocol.MessageSent:
		c.afterSend(ctx, "message", r.ChatID, r.Success, r.Message)
	case protocol.FileSent:
		c.afterSend(ctx, "file", r.ChatID, r.Success, r.Message)
	case protocol.NewMessage:
		c.store.ApplyNewMessage(r.ChatID, r.Message)
	}
}

// afterSend re-fetches the chat after a confirmed send so the echoed
// message shows up without waiting for the next poll.
func (c *Conn) afterSend(ctx context.Context, what string, chatID int64, success bool, msg string) {
	if !success {
		c.logger.Error("Send failed",
			zap.String("what", what), zap.Int64("chat_id", chatID), zap.String("message", msg))
		return
	}
	if err := c.Send(ctx, protocol.GetMessages{ChatID: chatID}); err != nil {
		c.logger.Error("Failed to refresh after send", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
