// Package protocol defines the tagged JSON envelopes exchanged over the
// websocket channel between client and gateway.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wgram/wgram/internal/domain"
)

// ErrUnknownType is returned when an envelope carries a tag this
// protocol version does not define.
var ErrUnknownType = errors.New("unknown envelope type")

// Command is a client-to-server envelope.
type Command interface{ commandType() string }

type GetDialogs struct{}

type GetMessages struct {
	ChatID int64 `json:"chat_id"`
}

type SendMessage struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type SendFile struct {
	ChatID   int64  `json:"chat_id"`
	FileName string `json:"file_name"`
	FileData []byte `json:"file_data"`
}

func (GetDialogs) commandType() string  { return "GetDialogs" }
func (GetMessages) commandType() string { return "GetMessages" }
func (SendMessage) commandType() string { return "SendMessage" }
func (SendFile) commandType() string    { return "SendFile" }

// Response is a server-to-client envelope.
type Response interface{ responseType() string }

type Dialogs struct {
	Data []domain.Chat `json:"data"`
}

type Messages struct {
	ChatID int64            `json:"chat_id"`
	Data   []domain.Message `json:"data"`
}

type MessageSent struct {
	ChatID  int64  `json:"chat_id"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type FileSent struct {
	ChatID  int64  `json:"chat_id"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewMessage is defined for protocol completeness; the gateway does not
// emit it, delivery of fresh messages relies on client polling.
type NewMessage struct {
	ChatID  int64          `json:"chat_id"`
	Message domain.Message `json:"message"`
}

func (Dialogs) responseType() string     { return "Dialogs" }
func (Messages) responseType() string    { return "Messages" }
func (MessageSent) responseType() string { return "MessageSent" }
func (FileSent) responseType() string    { return "FileSent" }
func (NewMessage) responseType() string  { return "NewMessage" }

type probe struct {
	Type string `json:"type"`
}

// ParseCommand decodes a client frame. Unknown tags fail with
// ErrUnknownType so the dispatcher can log and keep the connection.
func ParseCommand(data []byte) (Command, error) {
	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse command: %w", err)
	}

	var (
		cmd Command
		err error
	)
	switch p.Type {
	case "GetDialogs":
		cmd = GetDialogs{}
	case "GetMessages":
		var c GetMessages
		err = json.Unmarshal(data, &c)
		cmd = c
	case "SendMessage":
		var c SendMessage
		err = json.Unmarshal(data, &c)
		cmd = c
	case "SendFile":
		var c SendFile
		err = json.Unmarshal(data, &c)
		cmd = c
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, p.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.Type, err)
	}
	return cmd, nil
}

// ParseResponse decodes a server frame on the client side.
func ParseResponse(data []byte) (Response, error) {
	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	var (
		resp Response
		err  error
	)
	switch p.Type {
	case "Dialogs":
		var r Dialogs
		err = json.Unmarshal(data, &r)
		resp = r
	case "Messages":
		var r Messages
		err = json.Unmarshal(data, &r)
		resp = r
	case "MessageSent":
		var r MessageSent
		err = json.Unmarshal(data, &r)
		resp = r
	case "FileSent":
		var r FileSent
		err = json.Unmarshal(data, &r)
		resp = r
	case "NewMessage":
		var r NewMessage
		err = json.Unmarshal(data, &r)
		resp = r
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, p.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.Type, err)
	}
	return resp, nil
}

// EncodeCommand serializes a command with its type tag.
func EncodeCommand(c Command) ([]byte, error) {
	return encodeTagged(c.commandType(), c)
}

// EncodeResponse serializes a response with its type tag.
func EncodeResponse(r Response) ([]byte, error) {
	return encodeTagged(r.responseType(), r)
}

func encodeTagged(tag string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", tag, err)
	}

	// Splice the tag into the object rather than duplicating every
	// variant as a second struct with a Type field.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", tag, err)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage, 1)
	}
	tagJSON, err := json.Marshal(tag)
	if err != nil {
		return nil, err
	}
	fields["type"] = tagJSON

	return json.Marshal(fields)
}
