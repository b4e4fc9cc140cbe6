// Package client is the gateway client library: the HTTP auth calls,
// the websocket connection and the adaptive sync scheduler.
package client

import (
	"sync"
	"time"

	"github.com/wgram/wgram/internal/domain"
)

// Store caches the client's view of chats and messages and tracks the
// bookkeeping the scheduler polls against: user activity, per-chat
// update times, selection and the fetch-in-flight flag.
type Store struct {
	mu           sync.RWMutex
	chats        []domain.Chat
	messages     map[int64][]domain.Message
	selected     int64 // 0 = no chat selected
	loading      bool
	lastActivity time.Time
	lastUpdate   map[int64]time.Time
}

func NewStore() *Store {
	return &Store{
		messages:     make(map[int64][]domain.Message),
		lastUpdate:   make(map[int64]time.Time),
		lastActivity: time.Now(),
	}
}

func (s *Store) SetChats(chats []domain.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = chats
}

func (s *Store) Chats() []domain.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Chat, len(s.chats))
	copy(out, s.chats)
	return out
}

func (s *Store) SetMessages(chatID int64, msgs []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[chatID] = msgs
}

func (s *Store) Messages(chatID int64) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[chatID]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out
}

// ApplyNewMessage appends a pushed message and refreshes the chat's
// preview line.
func (s *Store) ApplyNewMessage(chatID int64, msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[chatID] = append(s.messages[chatID], msg)
	for i := range s.chats {
		if s.chats[i].ID == chatID {
			s.chats[i].LastMessage = msg.Text
			break
		}
	}
}

// Select marks chatID as the open conversation; 0 clears selection.
func (s *Store) Select(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = chatID
}

func (s *Store) Selected() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected, s.selected != 0
}

func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Touch records user activity at t.
func (s *Store) Touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = t
}

func (s *Store) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// MarkUpdated records that chatID's messages were refreshed at t.
func (s *Store) MarkUpdated(chatID int64, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdate[chatID] = t
}

func (s *Store) UpdatedAt(chatID int64) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.lastUpdate[chatID]
	return t, ok
}
