// Package provider defines the capability boundary to the messaging
// backend. The gateway only ever talks to Telegram through this
// interface; the concrete implementation lives in provider/gotd.
package provider

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPasswordRequired signals that sign-in needs a follow-up
	// 2FA password check. It is control flow, not a hard failure.
	ErrPasswordRequired = errors.New("2FA password required")

	// ErrSignUpRequired means the phone number has no account.
	ErrSignUpRequired = errors.New("phone number is not registered")

	// ErrSessionRestart is the one transient transport fault that
	// callers may retry (the provider asked for a session restart
	// mid-login).
	ErrSessionRestart = errors.New("provider requested session restart")
)

// Peer is an opaque provider-native conversation handle. It is never
// serialized to the client; the chat index maps stable integers to it.
type Peer any

// LoginToken is the single-use credential issued when a login code is
// requested. It must be presented together with the code.
type LoginToken struct {
	Phone    string
	CodeHash string
}

// PasswordToken is the single-use credential issued when sign-in
// reports that a 2FA password is required.
type PasswordToken struct {
	Phone string
}

// Dialog is one entry of the provider's conversation list.
type Dialog struct {
	Peer        Peer
	Name        string
	LastMessage string
	UnreadCount int
	Archived    bool
}

// Message is a provider message. Providers return history newest
// first; callers reorder.
type Message struct {
	ID         int
	Text       string
	SenderName string
	Outgoing   bool
	Time       time.Time
}

// Client is the provider capability. One instance per process, owning
// one transport connection and its background pump.
type Client interface {
	// Run drives the transport until ctx is cancelled. Other methods
	// may only be called while Run is active.
	Run(ctx context.Context) error

	// RequestCode asks for a login code to be delivered to phone and
	// returns the token to present alongside it. May fail with
	// ErrSessionRestart.
	RequestCode(ctx context.Context, phone string) (LoginToken, error)

	// SignIn presents a login token and the received code. Fails with
	// ErrPasswordRequired when a 2FA check must follow and
	// ErrSignUpRequired for unregistered numbers.
	SignIn(ctx context.Context, token LoginToken, code string) error

	// CheckPassword completes a 2FA sign-in.
	CheckPassword(ctx context.Context, token PasswordToken, password string) error

	// Dialogs lists all conversations in provider order.
	Dialogs(ctx context.Context) ([]Dialog, error)

	// History returns up to limit messages for peer, newest first.
	History(ctx context.Context, peer Peer, limit int) ([]Message, error)

	// Send delivers a text message to peer.
	Send(ctx context.Context, peer Peer, text string) error

	// Authorized reports whether the provider session is signed in.
	Authorized(ctx context.Context) (bool, error)

	// Close disconnects the transport. Idempotent.
	Close() error
}
