package alerting

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"sonic-alerts/internal/storage"
)

func testEmailOptions() EmailOptions {
	return EmailOptions{
		SMTPServer: "smtp.example.com",
		SMTPPort:   587,
		User:       "alerts@example.com",
		Password:   "secret",
	}
}

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func captureSend(captured *capturedMail) sendMailFunc {
	return func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		captured.addr = addr
		captured.from = from
		captured.to = to
		captured.msg = string(msg)
		return nil
	}
}

func TestEmailNotifierSendsRenderedAlert(t *testing.T) {
	var captured capturedMail
	notifier := NewEmailNotifier(testEmailOptions(), "trader@example.com", zerolog.Nop())
	notifier.sendMail = captureSend(&captured)

	note := Notification{
		Kind:          storage.KindTravelPercentLiquid,
		PositionID:    "p1",
		Asset:         "BTC",
		Zone:          ZoneHigh,
		TravelPercent: -80,
	}
	if err := notifier.Notify(context.Background(), note); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if captured.addr != "smtp.example.com:587" {
		t.Fatalf("wrong smtp address: %q", captured.addr)
	}
	if len(captured.to) != 1 || captured.to[0] != "trader@example.com" {
		t.Fatalf("wrong recipients: %v", captured.to)
	}
	if !strings.Contains(captured.msg, "Subject: Sonic Alert") {
		t.Fatalf("missing subject header in %q", captured.msg)
	}
	if !strings.Contains(captured.msg, "Travel Percent Liquid ALERT") {
		t.Fatalf("missing travel alert body in %q", captured.msg)
	}
	if !strings.Contains(captured.msg, "HIGH zone") {
		t.Fatalf("missing zone in %q", captured.msg)
	}
}

func TestSMSNotifierTargetsCarrierGateway(t *testing.T) {
	var captured capturedMail
	notifier := NewSMSNotifier(testEmailOptions(), "5551234567", "vtext.com", zerolog.Nop())
	notifier.sendMail = captureSend(&captured)

	note := Notification{Kind: storage.KindTravelPercentLiquid, PositionID: "p1", Asset: "ETH", Zone: ZoneLow, TravelPercent: -30}
	if err := notifier.Notify(context.Background(), note); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if len(captured.to) != 1 || captured.to[0] != "5551234567@vtext.com" {
		t.Fatalf("sms should deliver to the gateway address, got %v", captured.to)
	}
	if !strings.Contains(captured.msg, "Subject: Sonic Price/Travel Alert") {
		t.Fatalf("missing sms subject in %q", captured.msg)
	}
}

func TestEmailNotifierRejectsMissingServer(t *testing.T) {
	notifier := NewEmailNotifier(EmailOptions{}, "trader@example.com", zerolog.Nop())
	if err := notifier.Notify(context.Background(), Notification{}); err == nil {
		t.Fatal("missing smtp server should be an error")
	}
}

func TestRenderMessagePriceThreshold(t *testing.T) {
	note := Notification{
		Kind:      storage.KindPriceThreshold,
		RuleID:    "r1",
		Asset:     "BTC",
		Condition: "above",
	}
	body := renderMessage(note)
	for _, want := range []string{"Price ALERT", "Alert ID: r1", "Asset: BTC", "Condition: ABOVE"} {
		if !strings.Contains(body, want) {
			t.Fatalf("rendered message missing %q:\n%s", want, body)
		}
	}
}
