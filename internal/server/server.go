// Package server exposes the gateway over HTTP: the auth endpoints and
// the websocket command channel.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/wgram/wgram/internal/domain"
)

// historyLimit is how many messages one GetMessages command pulls.
const historyLimit = 50

// Gateway is what the transport layer needs from the session manager.
type Gateway interface {
	RequestCode(ctx context.Context, phone string) error
	VerifyCode(ctx context.Context, phone, code string) (string, error)
	VerifyPassword(ctx context.Context, phone, password string) (string, error)
	Dialogs(ctx context.Context) ([]domain.Chat, error)
	Messages(ctx context.Context, chatID int64, limit int) ([]domain.Message, error)
	Send(ctx context.Context, chatID int64, text string) error
	Authorized(ctx context.Context) (bool, error)
}

type Server struct {
	gateway Gateway
	logger  *zap.Logger
	http    *http.Server
}

func New(addr string, gateway Gateway, logger *zap.Logger) *Server {
	s := &Server{
		gateway: gateway,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/auth/request-code", s.handleRequestCode)
	r.Post("/auth/verify-code", s.handleVerifyCode)
	r.Post("/auth/verify-password", s.handleVerifyPassword)
	r.Get("/ws", s.handleWebsocket)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Gateway listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
