package mail

import (
	"context"
	"time"
)

// Attachment is a named binary part of an outbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is an outbound email handed to a relay backend.
type Message struct {
	To          []string
	Subject     string
	TextBody    string
	SenderName  string // display name shown to the recipient
	ReplyTo     string // portal address replies should land on
	Attachments []Attachment
}

// InboundMessage is an external email pulled in during a mailbox sync.
type InboundMessage struct {
	To         string // portal address the message was sent to
	From       string
	FromName   string
	Subject    string
	TextBody   string
	ReceivedAt time.Time
}

// Relay delivers messages to external recipients. Implementations must be
// safe for concurrent use.
type Relay interface {
	Send(ctx context.Context, msg Message) error
}

// Fetcher pulls external messages destined for a portal mailbox. Backends
// without an inbound side return an empty slice.
type Fetcher interface {
	Fetch(ctx context.Context, limit int) ([]InboundMessage, error)
}
