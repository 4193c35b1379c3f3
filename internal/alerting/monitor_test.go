package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sonic-alerts/internal/storage"
)

type fakeStore struct {
	positions    []storage.Position
	rules        []storage.AlertRule
	quotes       map[string]*storage.PriceQuote
	positionsErr error
	rulesErr     error

	positionReads int
	ruleReads     int
	quoteReads    int
	touched       map[string]time.Time
}

func (f *fakeStore) ListPositions(ctx context.Context) ([]storage.Position, error) {
	f.positionReads++
	if f.positionsErr != nil {
		return nil, f.positionsErr
	}
	return f.positions, nil
}

func (f *fakeStore) LatestQuote(ctx context.Context, asset string) (*storage.PriceQuote, error) {
	f.quoteReads++
	return f.quotes[asset], nil
}

func (f *fakeStore) ListActiveRules(ctx context.Context, kind string) ([]storage.AlertRule, error) {
	f.ruleReads++
	if f.rulesErr != nil {
		return nil, f.rulesErr
	}
	return f.rules, nil
}

func (f *fakeStore) TouchRuleTriggered(ctx context.Context, id string, at time.Time) error {
	if f.touched == nil {
		f.touched = make(map[string]time.Time)
	}
	f.touched[id] = at
	return nil
}

type fakeNotifier struct {
	notes []Notification
	err   error
}

func (f *fakeNotifier) Notify(ctx context.Context, note Notification) error {
	if f.err != nil {
		return f.err
	}
	f.notes = append(f.notes, note)
	return nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestMonitor(store *fakeStore, opts MonitorOptions) (*Monitor, *fakeNotifier, *fakeNotifier, *testClock) {
	email := &fakeNotifier{}
	sms := &fakeNotifier{}
	dispatcher := NewDispatcher(zerolog.Nop())
	dispatcher.Register(storage.ChannelEmail, email)
	dispatcher.Register(storage.ChannelSMS, sms)

	monitor := NewMonitor(store, dispatcher, NewCooldownGate(), opts, zerolog.Nop())
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	monitor.now = func() time.Time { return clock.now }
	return monitor, email, sms, clock
}

func enabledOptions() MonitorOptions {
	return MonitorOptions{
		Boundaries: defaultBoundaries(),
		Cooldown:   900 * time.Second,
		Enabled:    true,
	}
}

func TestCheckOnceTravelPercentHighZone(t *testing.T) {
	store := &fakeStore{
		positions: []storage.Position{{ID: "p1", Asset: "BTC", TravelPercent: -80}},
	}
	monitor, email, sms, _ := newTestMonitor(store, enabledOptions())

	if err := monitor.CheckOnce(context.Background()); err != nil {
		t.Fatalf("CheckOnce failed: %v", err)
	}

	if len(email.notes) != 1 || len(sms.notes) != 1 {
		t.Fatalf("expected one notification per channel, got email=%d sms=%d", len(email.notes), len(sms.notes))
	}
	note := email.notes[0]
	if note.Kind != storage.KindTravelPercentLiquid || note.PositionID != "p1" || note.Zone != ZoneHigh {
		t.Fatalf("unexpected notification: %+v", note)
	}
	if monitor.gate.ShouldFire("p1-HIGH", monitor.now(), monitor.opts.Cooldown) {
		t.Fatal("cooldown key p1-HIGH should have been recorded")
	}
}

func TestCheckOnceTravelPercentCooldownSuppression(t *testing.T) {
	store := &fakeStore{
		positions: []storage.Position{{ID: "p1", Asset: "BTC", TravelPercent: -80}},
	}
	monitor, email, _, clock := newTestMonitor(store, enabledOptions())

	for i := 0; i < 3; i++ {
		if err := monitor.CheckOnce(context.Background()); err != nil {
			t.Fatalf("pass %d failed: %v", i, err)
		}
		clock.advance(time.Minute)
	}
	if len(email.notes) != 1 {
		t.Fatalf("expected a single notification within the cooldown window, got %d", len(email.notes))
	}

	clock.advance(monitor.opts.Cooldown)
	if err := monitor.CheckOnce(context.Background()); err != nil {
		t.Fatalf("post-cooldown pass failed: %v", err)
	}
	if len(email.notes) != 2 {
		t.Fatalf("expected a second notification after the cooldown elapsed, got %d", len(email.notes))
	}
}

func TestCheckOnceZonesCoolDownIndependently(t *testing.T) {
	store := &fakeStore{
		positions: []storage.Position{{ID: "p1", Asset: "ETH", TravelPercent: -60}},
	}
	monitor, email, _, clock := newTestMonitor(store, enabledOptions())

	if err := monitor.CheckOnce(context.Background()); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	if email.notes[0].Zone != ZoneMedium {
		t.Fatalf("expected MEDIUM zone first, got %q", email.notes[0].Zone)
	}

	// Position deteriorates into HIGH; MEDIUM's cooldown must not
	// suppress the HIGH alert.
	store.positions[0].TravelPercent = -80
	clock.advance(time.Minute)
	if err := monitor.CheckOnce(context.Background()); err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if len(email.notes) != 2 || email.notes[1].Zone != ZoneHigh {
		t.Fatalf("expected an independent HIGH notification, got %+v", email.notes)
	}
}

func TestCheckOncePriceThresholdAbove(t *testing.T) {
	trigger := decimal.NewFromInt(50000)
	store := &fakeStore{
		rules: []storage.AlertRule{{
			ID:           "r1",
			Kind:         storage.KindPriceThreshold,
			Asset:        "BTC",
			TriggerValue: trigger,
			Condition:    storage.ConditionAbove,
			Channel:      storage.ChannelEmail,
			Status:       storage.StatusActive,
		}},
		quotes: map[string]*storage.PriceQuote{
			"BTC": {Asset: "BTC", Price: decimal.NewFromInt(49000), Source: "CoinGecko"},
		},
	}
	monitor, email, sms, clock := newTestMonitor(store, enabledOptions())

	if err := monitor.CheckOnce(context.Background()); err != nil {
		t.Fatalf("below-trigger pass failed: %v", err)
	}
	if len(email.notes) != 0 {
		t.Fatalf("49000 must not cross an ABOVE 50000 trigger, got %d notifications", len(email.notes))
	}

	store.quotes["BTC"].Price = decimal.NewFromInt(50000)
	for i := 0; i < 3; i++ {
		if err := monitor.CheckOnce(context.Background()); err != nil {
			t.Fatalf("at-trigger pass %d failed: %v", i, err)
		}
		clock.advance(time.Minute)
	}

	if len(email.notes) != 1 {
		t.Fatalf("expected exactly one notification per cooldown window, got %d", len(email.notes))
	}
	if len(sms.notes) != 0 {
		t.Fatal("price alert routed to EMAIL must not reach the SMS channel")
	}
	note := email.notes[0]
	if note.Kind != storage.KindPriceThreshold || note.RuleID != "r1" || !note.CurrentPrice.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("unexpected notification: %+v", note)
	}
	if _, ok := store.touched["r1"]; !ok {
		t.Fatal("last_triggered should have been persisted for r1")
	}
}

func TestCheckOncePriceThresholdMissingQuote(t *testing.T) {
	store := &fakeStore{
		rules: []storage.AlertRule{{
			ID:           "r1",
			Kind:         storage.KindPriceThreshold,
			Asset:        "SOL",
			TriggerValue: decimal.NewFromInt(100),
			Condition:    storage.ConditionBelow,
			Channel:      storage.ChannelSMS,
			Status:       storage.StatusActive,
		}},
	}
	monitor, email, sms, _ := newTestMonitor(store, enabledOptions())

	if err := monitor.CheckOnce(context.Background()); err != nil {
		t.Fatalf("pass with missing quote should not fail: %v", err)
	}
	if len(email.notes) != 0 || len(sms.notes) != 0 {
		t.Fatal("a rule without price data must be skipped silently")
	}
}

func TestCheckOnceDisabledSkipsEverything(t *testing.T) {
	store := &fakeStore{
		positions: []storage.Position{{ID: "p1", Asset: "BTC", TravelPercent: -80}},
	}
	opts := enabledOptions()
	opts.Enabled = false
	monitor, email, sms, _ := newTestMonitor(store, opts)

	if err := monitor.CheckOnce(context.Background()); err != nil {
		t.Fatalf("disabled pass failed: %v", err)
	}
	if store.positionReads != 0 || store.ruleReads != 0 || store.quoteReads != 0 {
		t.Fatal("a disabled pass must perform zero store reads")
	}
	if len(email.notes) != 0 || len(sms.notes) != 0 {
		t.Fatal("a disabled pass must emit zero notifications")
	}
}

func TestCheckOnceStoreReadFailureAbortsPass(t *testing.T) {
	store := &fakeStore{positionsErr: errors.New("connection refused")}
	monitor, _, _, _ := newTestMonitor(store, enabledOptions())

	if err := monitor.CheckOnce(context.Background()); err == nil {
		t.Fatal("a whole-set store read failure should abort the pass")
	}
}

func TestCheckOnceNotifierFailureDoesNotAbort(t *testing.T) {
	store := &fakeStore{
		positions: []storage.Position{
			{ID: "p1", Asset: "BTC", TravelPercent: -80},
			{ID: "p2", Asset: "ETH", TravelPercent: -80},
		},
	}
	monitor, email, sms, _ := newTestMonitor(store, enabledOptions())
	email.err = errors.New("smtp unavailable")

	if err := monitor.CheckOnce(context.Background()); err != nil {
		t.Fatalf("a channel failure must not escape the pass: %v", err)
	}
	if len(sms.notes) != 2 {
		t.Fatalf("the healthy channel should still receive both alerts, got %d", len(sms.notes))
	}
}
