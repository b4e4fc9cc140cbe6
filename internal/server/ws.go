package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/wgram/wgram/internal/domain"
	"github.com/wgram/wgram/internal/protocol"
)

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Error("Websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	s.logger.Info("Websocket connection established")
	s.commandLoop(r.Context(), conn)
	s.logger.Info("Websocket connection closed")
}

// commandLoop processes commands strictly sequentially: one frame in,
// one response out. Malformed frames are logged and skipped, the
// connection stays open; a failed write ends the loop.
func (s *Server) commandLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			s.logger.Info("Websocket read ended", zap.Error(err))
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		cmd, err := protocol.ParseCommand(data)
		if err != nil {
			s.logger.Error("Failed to parse command", zap.Error(err), zap.ByteString("frame", data))
			continue
		}

		resp := s.dispatch(ctx, cmd)

		out, err := protocol.EncodeResponse(resp)
		if err != nil {
			s.logger.Error("Failed to encode response", zap.Error(err))
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, out); err != nil {
			s.logger.Error("Failed to send response", zap.Error(err))
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, cmd protocol.Command) protocol.Response {
	switch c := cmd.(type) {
	case protocol.GetDialogs:
		return s.dispatchGetDialogs(ctx)
	case protocol.GetMessages:
		return s.dispatchGetMessages(ctx, c)
	case protocol.SendMessage:
		return s.dispatchSendMessage(ctx, c)
	case protocol.SendFile:
		s.logger.Error("File sending not yet implemented")
		return protocol.FileSent{
			ChatID:  c.ChatID,
			Success: false,
			Message: "File sending not yet implemented",
		}
	default:
		// ParseCommand only yields the variants above.
		panic(fmt.Sprintf("unhandled command %T", cmd))
	}
}

// dispatchGetDialogs returns an empty list when unauthorized or on
// fetch failure; the client cannot tell the cases apart by design.
func (s *Server) dispatchGetDialogs(ctx context.Context) protocol.Response {
	authorized, err := s.gateway.Authorized(ctx)
	if err != nil {
		s.logger.Error("Failed to check authorization", zap.Error(err))
		return protocol.Dialogs{Data: []domain.Chat{}}
	}
	if !authorized {
		s.logger.Error("Provider client is not authorized")
		return protocol.Dialogs{Data: []domain.Chat{}}
	}

	chats, err := s.gateway.Dialogs(ctx)
	if err != nil {
		s.logger.Error("Failed to get dialogs", zap.Error(err))
		return protocol.Dialogs{Data: []domain.Chat{}}
	}
	if chats == nil {
		chats = []domain.Chat{}
	}
	s.logger.Info("Fetched dialogs", zap.Int("count", len(chats)))
	return protocol.Dialogs{Data: chats}
}

func (s *Server) dispatchGetMessages(ctx context.Context, c protocol.GetMessages) protocol.Response {
	msgs, err := s.gateway.Messages(ctx, c.ChatID, historyLimit)
	if err != nil {
		s.logger.Error("Failed to get messages", zap.Int64("chat_id", c.ChatID), zap.Error(err))
		return protocol.Messages{ChatID: c.ChatID, Data: []domain.Message{}}
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return protocol.Messages{ChatID: c.ChatID, Data: msgs}
}

func (s *Server) dispatchSendMessage(ctx context.Context, c protocol.SendMessage) protocol.Response {
	if err := s.gateway.Send(ctx, c.ChatID, c.Text); err != nil {
		s.logger.Error("Failed to send message", zap.Int64("chat_id", c.ChatID), zap.Error(err))
		return protocol.MessageSent{
			ChatID:  c.ChatID,
			Success: false,
			Message: fmt.Sprintf("Failed to send message: %v", err),
		}
	}
	return protocol.MessageSent{
		ChatID:  c.ChatID,
		Success: true,
		Message: "Message sent successfully",
	}
}
