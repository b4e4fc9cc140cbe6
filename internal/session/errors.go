package session

import "errors"

var (
	// ErrNoPendingAuth means verify was called without a matching
	// request for that phone, or its token was already consumed.
	ErrNoPendingAuth = errors.New("no pending auth for this phone, request a code first")

	// ErrChatNotFound means the chat id does not resolve in the index.
	ErrChatNotFound = errors.New("chat not found")
)
