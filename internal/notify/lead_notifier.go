package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/leadchat-ai/internal/leads"
	"github.com/wolfman30/leadchat-ai/pkg/logging"
)

// LeadNotifier e-mails the sales team when a conversation finishes.
type LeadNotifier struct {
	email      EmailSender
	recipients []string
	logger     *logging.Logger
}

var _ leads.Notifier = (*LeadNotifier)(nil)

// NewLeadNotifier creates a notifier; with no recipients it does nothing.
func NewLeadNotifier(email EmailSender, recipients []string, logger *logging.Logger) *LeadNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	clean := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			clean = append(clean, r)
		}
	}
	return &LeadNotifier{email: email, recipients: clean, logger: logger}
}

// NotifyLead implements leads.Notifier. The whole team gets one message.
func (n *LeadNotifier) NotifyLead(ctx context.Context, lead *leads.Lead) error {
	if n.email == nil || len(n.recipients) == 0 {
		n.logger.Debug("lead notification skipped: no email recipients", "session_id", lead.SessionID)
		return nil
	}
	if err := n.email.Send(ctx, LeadEmail(lead, n.recipients)); err != nil {
		return fmt.Errorf("notify: lead email: %w", err)
	}
	return nil
}

// LeadEmail renders a lead for the sales team.
func LeadEmail(lead *leads.Lead, recipients []string) EmailMessage {
	msg := EmailMessage{
		To:      append([]string(nil), recipients...),
		Subject: leadSubject(lead),
		Text:    leadText(lead),
		HTML:    leadHTML(lead),
	}
	if strings.Contains(lead.Email, "@") {
		msg.ReplyTo = &Mailbox{Name: strings.TrimSpace(lead.Name), Address: strings.TrimSpace(lead.Email)}
	}
	return msg
}

func leadSubject(lead *leads.Lead) string {
	name := strings.TrimSpace(lead.Name)
	if name == "" {
		name = "unnamed visitor"
	}
	if lead.Status == leads.StatusFull {
		return "New lead: " + name
	}
	return "Incomplete lead: " + name
}

func meetingOf(lead *leads.Lead) string {
	if lead.MeetingTime == "" {
		return "not selected"
	}
	return lead.MeetingTime
}

func leadText(lead *leads.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", lead.Name)
	fmt.Fprintf(&b, "Phone: %s\n", lead.Phone)
	fmt.Fprintf(&b, "Email: %s\n", lead.Email)
	fmt.Fprintf(&b, "Meeting: %s\n", meetingOf(lead))
	fmt.Fprintf(&b, "Status: %s\n\n", lead.Status)

	fmt.Fprintf(&b, "Project:\n%s\n\n", lead.Description)
	if len(lead.Answers) > 0 {
		b.WriteString("Answers:\n")
		for _, a := range lead.Answers {
			fmt.Fprintf(&b, "- %s: %s\n", a.Question, a.Answer)
		}
		b.WriteString("\n")
	}
	if strings.TrimSpace(lead.Report) != "" {
		fmt.Fprintf(&b, "Report:\n%s\n", lead.Report)
	}
	return b.String()
}

func leadHTML(lead *leads.Lead) string {
	esc := html.EscapeString
	var b strings.Builder
	b.WriteString(`<div style="font-family: sans-serif; max-width: 600px;">`)
	fmt.Fprintf(&b, `<h2 style="color: #1f2937;">%s</h2>`, esc(leadSubject(lead)))
	b.WriteString(`<table style="border-collapse: collapse;">`)
	for _, row := range [][2]string{
		{"Name", lead.Name},
		{"Phone", lead.Phone},
		{"Email", lead.Email},
		{"Meeting", meetingOf(lead)},
		{"Status", string(lead.Status)},
	} {
		fmt.Fprintf(&b, `<tr><td style="padding: 4px 12px 4px 0;"><strong>%s</strong></td><td>%s</td></tr>`, row[0], esc(row[1]))
	}
	b.WriteString(`</table>`)
	fmt.Fprintf(&b, `<h3>Project</h3><p>%s</p>`, esc(lead.Description))
	if len(lead.Answers) > 0 {
		b.WriteString(`<h3>Answers</h3><ul>`)
		for _, a := range lead.Answers {
			fmt.Fprintf(&b, `<li><strong>%s</strong> %s</li>`, esc(a.Question), esc(a.Answer))
		}
		b.WriteString(`</ul>`)
	}
	if report := strings.TrimSpace(lead.Report); report != "" {
		fmt.Fprintf(&b, `<h3>Report</h3><pre style="white-space: pre-wrap;">%s</pre>`, esc(report))
	}
	b.WriteString(`</div>`)
	return b.String()
}
