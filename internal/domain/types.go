package domain

// Chat is the client-visible summary of a conversation. The id is a
// small stable integer assigned by the gateway, not a provider id.
type Chat struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	LastMessage string `json:"last_message"`
	UnreadCount int    `json:"unread_count"`
	IsArchived  bool   `json:"is_archived"`
}

// Message is a single message as sent to the client. Timestamp is
// seconds since epoch.
type Message struct {
	ID         int     `json:"id"`
	Text       string  `json:"text"`
	SenderName string  `json:"sender_name"`
	IsOutgoing bool    `json:"is_outgoing"`
	Timestamp  int64   `json:"timestamp"`
	IsFile     bool    `json:"is_file"`
	FileName   *string `json:"file_name"`
}
