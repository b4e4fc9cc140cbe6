package client_test

import (
	"testing"
	"time"

	"github.com/wgram/wgram/internal/client"
	"github.com/wgram/wgram/internal/domain"
)

func TestStore_ChatsAndMessages(t *testing.T) {
	s := client.NewStore()

	s.SetChats([]domain.Chat{
		{ID: 1, Name: "Alice"},
		{ID: 2, Name: "Bob"},
	})
	if got := s.Chats(); len(got) != 2 || got[0].Name != "Alice" {
		t.Errorf("Chats() = %v", got)
	}

	s.SetMessages(1, []domain.Message{{ID: 10, Text: "hi"}})
	msgs := s.Messages(1)
	if len(msgs) != 1 || msgs[0].Text != "hi" {
		t.Errorf("Messages(1) = %v", msgs)
	}
	if got := s.Messages(2); len(got) != 0 {
		t.Errorf("Messages(2) = %v, want empty", got)
	}
}

func TestStore_Selection(t *testing.T) {
	s := client.NewStore()

	if _, ok := s.Selected(); ok {
		t.Error("new store should have no selection")
	}
	s.Select(5)
	if id, ok := s.Selected(); !ok || id != 5 {
		t.Errorf("Selected() = %d, %v", id, ok)
	}
	s.Select(0)
	if _, ok := s.Selected(); ok {
		t.Error("Select(0) should clear selection")
	}
}

func TestStore_ActivityAndStaleness(t *testing.T) {
	s := client.NewStore()

	at := time.Now().Add(-time.Minute)
	s.Touch(at)
	if !s.LastActivity().Equal(at) {
		t.Errorf("LastActivity = %v, want %v", s.LastActivity(), at)
	}

	if _, ok := s.UpdatedAt(1); ok {
		t.Error("chat 1 should have no update time yet")
	}
	now := time.Now()
	s.MarkUpdated(1, now)
	if got, ok := s.UpdatedAt(1); !ok || !got.Equal(now) {
		t.Errorf("UpdatedAt(1) = %v, %v", got, ok)
	}
}

func TestStore_ApplyNewMessage(t *testing.T) {
	s := client.NewStore()
	s.SetChats([]domain.Chat{{ID: 1, Name: "Alice", LastMessage: "old"}})
	s.SetMessages(1, []domain.Message{{ID: 10, Text: "old"}})

	s.ApplyNewMessage(1, domain.Message{ID: 11, Text: "fresh"})

	msgs := s.Messages(1)
	if len(msgs) != 2 || msgs[1].Text != "fresh" {
		t.Errorf("Messages(1) = %v", msgs)
	}
	if got := s.Chats()[0].LastMessage; got != "fresh" {
		t.Errorf("LastMessage = %q, want fresh", got)
	}
}
