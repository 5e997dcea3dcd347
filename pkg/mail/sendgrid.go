package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/tejaskp/portal-api/pkg/config"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendgridRelay delivers external mail through the SendGrid API.
type SendgridRelay struct {
	key  string
	from *sgmail.Email
}

var _ Relay = (*SendgridRelay)(nil)

// NewSendgridRelay builds a relay from mail configuration.
func NewSendgridRelay(cfg config.MailConfig) *SendgridRelay {
	return &SendgridRelay{
		key:  cfg.SendgridKey,
		from: sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
	}
}

// Send delivers a single message, returning an error on any non-2xx response.
func (r *SendgridRelay) Send(ctx context.Context, msg Message) error {
	if r.key == "" {
		return fmt.Errorf("sendgrid relay: no api key configured")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("sendgrid relay: no recipients")
	}

	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail("", to))
	}

	m := sgmail.NewV3Mail()
	from := r.from
	if msg.SenderName != "" {
		from = sgmail.NewEmail(msg.SenderName+" via Portal", r.from.Address)
	}
	m.SetFrom(from)
	if msg.ReplyTo != "" {
		m.SetReplyTo(sgmail.NewEmail("", msg.ReplyTo))
	}
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.TextBody))

	for _, at := range msg.Attachments {
		m.AddAttachment(&sgmail.Attachment{
			Content:     base64.StdEncoding.EncodeToString(at.Content),
			Type:        at.ContentType,
			Filename:    at.Filename,
			Disposition: "attachment",
		})
	}

	req := sendgrid.GetRequest(r.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid relay: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid relay: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
