package chat

import "context"

// Document is a file attached to an inbound or outbound chat message.
type Document struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Update is one inbound chat message: a textual command, a file upload, or
// both. UserID identifies the caller for the allowlist check; ChatID is where
// replies go.
type Update struct {
	ChatID   int64     `json:"chat_id"`
	UserID   int64     `json:"user_id"`
	Text     string    `json:"text"`
	Document *Document `json:"document,omitempty"`
}

// Transport delivers updates from a chat system and carries replies back.
// The bot treats it as an opaque collaborator; implementations decide whether
// the other end is a webhook, a long poller, or a test fake.
type Transport interface {
	// Updates yields inbound messages until the transport is closed.
	Updates() <-chan Update
	// Send delivers a textual reply to chatID.
	Send(ctx context.Context, chatID int64, text string) error
	// SendDocument delivers a file to chatID.
	SendDocument(ctx context.Context, chatID int64, doc Document) error
}
