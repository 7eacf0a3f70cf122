package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wolfman30/leadchat-ai/pkg/logging"
)

const defaultFromName = "PipelogicAI Assistant"

var errNoRecipients = errors.New("notify: email has no recipients")

// EmailSender delivers one message. Implementations: SendGrid, SES, stub.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// Mailbox is an address with an optional display name.
type Mailbox struct {
	Name    string
	Address string
}

func (m Mailbox) String() string {
	if m.Name == "" {
		return m.Address
	}
	return fmt.Sprintf("%s <%s>", m.Name, m.Address)
}

// EmailMessage is one e-mail sent to every address in To at once. Replies go
// to ReplyTo when set, so the team can answer the visitor directly.
type EmailMessage struct {
	To      []string
	ReplyTo *Mailbox
	Subject string
	Text    string
	HTML    string
}

func (m EmailMessage) validate() error {
	if len(m.To) == 0 {
		return errNoRecipients
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("notify: email subject is required")
	}
	if m.Text == "" && m.HTML == "" {
		return errors.New("notify: email body is required")
	}
	return nil
}

func newFrom(address, name string) Mailbox {
	if strings.TrimSpace(name) == "" {
		name = defaultFromName
	}
	return Mailbox{Name: name, Address: address}
}

// sendgridAPI is the part of *sendgrid.Client used here.
type sendgridAPI interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender sends through the SendGrid v3 mail API.
type SendGridSender struct {
	client sendgridAPI
	from   Mailbox
	logger *logging.Logger
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	return newSendGridSender(sendgrid.NewSendClient(cfg.APIKey), newFrom(cfg.FromEmail, cfg.FromName), logger)
}

func newSendGridSender(client sendgridAPI, from Mailbox, logger *logging.Logger) *SendGridSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGridSender{client: client, from: from, logger: logger}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return errors.New("notify: sendgrid client not configured")
	}
	if err := msg.validate(); err != nil {
		return err
	}

	resp, err := s.client.SendWithContext(ctx, s.build(msg))
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "recipients", len(msg.To))
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", resp.StatusCode, "body", resp.Body)
		return fmt.Errorf("notify: sendgrid returned status %d", resp.StatusCode)
	}
	s.logger.Info("email sent via sendgrid", "subject", msg.Subject, "recipients", len(msg.To), "status", resp.StatusCode)
	return nil
}

// build maps the message onto a single personalization. SendGrid requires
// text/plain ahead of text/html.
func (s *SendGridSender) build(msg EmailMessage) *mail.SGMailV3 {
	v3 := mail.NewV3Mail()
	v3.SetFrom(mail.NewEmail(s.from.Name, s.from.Address))
	v3.Subject = msg.Subject

	p := mail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(mail.NewEmail("", to))
	}
	v3.AddPersonalizations(p)

	if msg.ReplyTo != nil {
		v3.SetReplyTo(mail.NewEmail(msg.ReplyTo.Name, msg.ReplyTo.Address))
	}
	if msg.Text != "" {
		v3.AddContent(mail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		v3.AddContent(mail.NewContent("text/html", msg.HTML))
	}
	return v3
}

// StubEmailSender logs instead of sending.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	s.logger.Info("stub email sender: would send email", "to", strings.Join(msg.To, ","), "subject", msg.Subject)
	return nil
}

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
