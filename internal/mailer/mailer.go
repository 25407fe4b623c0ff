// Package mailer delivers actionable-alert digests by email.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/misscmunoz/holiday-deals/internal/alerts"
)

// Mailer sends one digest for a run summary and returns the provider's
// message id.
type Mailer interface {
	Send(ctx context.Context, summary *alerts.Summary) (string, error)
}

// Resend delivers digests through the Resend API.
type Resend struct {
	client *resend.Client
	to     string
	from   string
}

func NewResend(apiKey, to, from string) *Resend {
	return &Resend{client: resend.NewClient(apiKey), to: to, from: from}
}

func (m *Resend) Send(ctx context.Context, summary *alerts.Summary) (string, error) {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{m.to},
		Subject: Subject(summary),
		Text:    Body(summary),
	}

	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	return sent.Id, nil
}

// Subject summarises the digest, e.g.
// "3 deals under £150 (MAN, LPL)".
func Subject(s *alerts.Summary) string {
	return fmt.Sprintf("%d deals under £%.0f (%s)",
		s.Alerts.Actionable, s.Thresholds.AlertMaxGBP, strings.Join(s.Origins, ", "))
}

// Body renders the plain-text digest: one bullet per sampled alert plus the
// run stats.
func Body(s *alerts.Summary) string {
	var b strings.Builder
	b.WriteString("New actionable deals:\n\n")
	for _, a := range s.AlertsSample {
		d := a.Deal
		dates := d.DepartDate
		if d.ReturnDate != "" {
			dates = fmt.Sprintf("%s → %s", d.DepartDate, d.ReturnDate)
		}
		fmt.Fprintf(&b, "• %s → %s (%s) — £%.2f [%s]\n", d.Origin, d.Destination, dates, d.PriceGBP, a.Reason)
	}
	fmt.Fprintf(&b, "\nStats:\n- actionable: %d\n- detected: %d\n- suppressed by budget: %d\n",
		s.Alerts.Actionable, s.Alerts.TotalDetected, s.Alerts.SuppressedByBudget)
	return b.String()
}
