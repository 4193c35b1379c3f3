package alerting

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sonic-alerts/internal/storage"
)

// Notification carries the context of one triggered alert.
type Notification struct {
	Kind          string
	PositionID    string
	RuleID        string
	Asset         string
	Zone          Zone
	TravelPercent float64
	Condition     string
	TriggerValue  decimal.Decimal
	CurrentPrice  decimal.Decimal
	At            time.Time
}

// Notifier delivers a rendered alert over one channel.
type Notifier interface {
	Notify(ctx context.Context, note Notification) error
}

// EmailOptions configure the shared SMTP account.
type EmailOptions struct {
	SMTPServer string
	SMTPPort   int
	User       string
	Password   string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends alerts through plain SMTP with STARTTLS. The SMS
// channel reuses it with an email-to-SMS gateway recipient.
type EmailNotifier struct {
	opts     EmailOptions
	to       string
	subject  string
	logger   zerolog.Logger
	sendMail sendMailFunc
}

// NewEmailNotifier constructs the EMAIL channel notifier.
func NewEmailNotifier(opts EmailOptions, recipient string, logger zerolog.Logger) *EmailNotifier {
	return &EmailNotifier{
		opts:     opts,
		to:       recipient,
		subject:  "Sonic Alert",
		logger:   logger.With().Str("component", "alert_email").Logger(),
		sendMail: smtp.SendMail,
	}
}

// NewSMSNotifier constructs the SMS channel notifier. Delivery is an
// email send to number@carrier_gateway over the same SMTP account.
func NewSMSNotifier(opts EmailOptions, number, gateway string, logger zerolog.Logger) *EmailNotifier {
	return &EmailNotifier{
		opts:     opts,
		to:       number + "@" + gateway,
		subject:  "Sonic Price/Travel Alert",
		logger:   logger.With().Str("component", "alert_sms").Logger(),
		sendMail: smtp.SendMail,
	}
}

// Notify renders the alert and hands it to the SMTP server.
func (n *EmailNotifier) Notify(ctx context.Context, note Notification) error {
	if n.opts.SMTPServer == "" {
		return errors.New("smtp server not configured")
	}
	if n.to == "" || n.to == "@" {
		return errors.New("recipient not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body := renderMessage(note)
	msg := strings.Builder{}
	msg.WriteString("From: " + n.opts.User + "\r\n")
	msg.WriteString("To: " + n.to + "\r\n")
	msg.WriteString("Subject: " + n.subject + "\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", n.opts.SMTPServer, n.opts.SMTPPort)
	auth := smtp.PlainAuth("", n.opts.User, n.opts.Password, n.opts.SMTPServer)

	if err := n.sendMail(addr, auth, n.opts.User, []string{n.to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", n.to, err)
	}

	n.logger.Info().Str("recipient", n.to).Str("kind", note.Kind).Msg("alert sent")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	switch note.Kind {
	case storage.KindPriceThreshold:
		builder.WriteString("Price ALERT\n")
		builder.WriteString(fmt.Sprintf("Alert ID: %s\n", note.RuleID))
		builder.WriteString(fmt.Sprintf("Asset: %s\n", note.Asset))
		builder.WriteString(fmt.Sprintf("Condition: %s\n", strings.ToUpper(note.Condition)))
		builder.WriteString(fmt.Sprintf("Trigger Value: %s\n", note.TriggerValue.String()))
		builder.WriteString(fmt.Sprintf("Current Price: %s\n", note.CurrentPrice.String()))
	default:
		builder.WriteString("Travel Percent Liquid ALERT\n")
		builder.WriteString(fmt.Sprintf("Position ID: %s, Asset: %s\n", note.PositionID, note.Asset))
		builder.WriteString(fmt.Sprintf("Current Travel%%=%.2f%% => %s zone.", note.TravelPercent, note.Zone))
	}
	return builder.String()
}

var _ Notifier = (*EmailNotifier)(nil)
