package mail

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ConsoleRelay logs outbound messages instead of delivering them. It is the
// development and test backend; sent messages are retained for inspection.
type ConsoleRelay struct {
	logger *zap.Logger

	mu   sync.Mutex
	sent []Message
}

var _ Relay = (*ConsoleRelay)(nil)

// NewConsoleRelay builds a console relay.
func NewConsoleRelay(logger *zap.Logger) *ConsoleRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleRelay{logger: logger}
}

// Send records the message and writes a log line.
func (r *ConsoleRelay) Send(ctx context.Context, msg Message) error {
	r.mu.Lock()
	r.sent = append(r.sent, msg)
	r.mu.Unlock()

	r.logger.Sugar().Infow("outbound email",
		"to", strings.Join(msg.To, ", "),
		"subject", msg.Subject,
		"sender", msg.SenderName,
		"attachments", len(msg.Attachments),
	)
	return nil
}

// Sent returns a copy of every message passed to Send.
func (r *ConsoleRelay) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}

// Reset clears the recorded messages.
func (r *ConsoleRelay) Reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}

// NopFetcher is a Fetcher with no inbound side.
type NopFetcher struct{}

var _ Fetcher = (*NopFetcher)(nil)

// Fetch always returns no messages.
func (NopFetcher) Fetch(ctx context.Context, limit int) ([]InboundMessage, error) {
	return nil, nil
}
