package protocol_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/wgram/wgram/internal/domain"
	"github.com/wgram/wgram/internal/protocol"
)

func TestParseCommand(t *testing.T) {
	cmd, err := protocol.ParseCommand([]byte(`{"type":"GetMessages","chat_id":7}`))
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	got, ok := cmd.(protocol.GetMessages)
	if !ok {
		t.Fatalf("got %T, want GetMessages", cmd)
	}
	if got.ChatID != 7 {
		t.Errorf("ChatID = %d, want 7", got.ChatID)
	}

	cmd, err = protocol.ParseCommand([]byte(`{"type":"SendMessage","chat_id":2,"text":"hi"}`))
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if sm := cmd.(protocol.SendMessage); sm.ChatID != 2 || sm.Text != "hi" {
		t.Errorf("SendMessage = %+v", sm)
	}

	if _, err := protocol.ParseCommand([]byte(`{"type":"GetDialogs"}`)); err != nil {
		t.Errorf("GetDialogs should parse: %v", err)
	}
}

func TestParseCommand_UnknownTag(t *testing.T) {
	_, err := protocol.ParseCommand([]byte(`{"type":"DropTables"}`))
	if !errors.Is(err, protocol.ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
}

func TestParseCommand_Malformed(t *testing.T) {
	if _, err := protocol.ParseCommand([]byte(`not json at all`)); err == nil {
		t.Error("malformed frame should fail to parse")
	}
}

func TestEncodeResponse_CarriesTag(t *testing.T) {
	data, err := protocol.EncodeResponse(protocol.Messages{
		ChatID: 3,
		Data:   []domain.Message{{ID: 1, Text: "hello", Timestamp: 1700000000}},
	})
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(raw["type"]) != `"Messages"` {
		t.Errorf("type = %s, want \"Messages\"", raw["type"])
	}
	if string(raw["chat_id"]) != "3" {
		t.Errorf("chat_id = %s, want 3", raw["chat_id"])
	}
}

func TestCommandRoundTrip(t *testing.T) {
	data, err := protocol.EncodeCommand(protocol.SendMessage{ChatID: 9, Text: "yo"})
	if err != nil {
		t.Fatalf("EncodeCommand: %v", err)
	}
	cmd, err := protocol.ParseCommand(data)
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if got := cmd.(protocol.SendMessage); got.ChatID != 9 || got.Text != "yo" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestParseResponse(t *testing.T) {
	resp, err := protocol.ParseResponse([]byte(`{"type":"MessageSent","chat_id":4,"success":false,"message":"nope"}`))
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	ms, ok := resp.(protocol.MessageSent)
	if !ok {
		t.Fatalf("got %T, want MessageSent", resp)
	}
	if ms.Success || ms.Message != "nope" || ms.ChatID != 4 {
		t.Errorf("MessageSent = %+v", ms)
	}

	if _, err := protocol.ParseResponse([]byte(`{"type":"Telepathy"}`)); !errors.Is(err, protocol.ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
}
