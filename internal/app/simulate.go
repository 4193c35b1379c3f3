package app

import (
	"context"
	"errors"
	"time"

	"sonic-alerts/internal/alerting"
	"sonic-alerts/internal/storage"
)

// SimulateAlert pushes a synthetic position through a full evaluation
// pass, exercising the real notification channels end to end.
func (a *App) SimulateAlert(ctx context.Context, asset string, travelPercent float64) error {
	if travelPercent >= 0 {
		return errors.New("travel percent must be negative to trigger a zone")
	}

	pos := storage.Position{
		ID:            "simulated",
		Asset:         asset,
		PositionType:  "LONG",
		TravelPercent: travelPercent,
		Wallet:        "Default",
		LastUpdated:   time.Now().UTC(),
	}

	store := &staticAlertStore{positions: []storage.Position{pos}}
	monitor := a.newMonitor(store, alerting.NewCooldownGate())
	return monitor.CheckOnce(ctx)
}

type staticAlertStore struct {
	positions []storage.Position
}

func (s *staticAlertStore) ListPositions(ctx context.Context) ([]storage.Position, error) {
	return s.positions, nil
}

func (s *staticAlertStore) LatestQuote(ctx context.Context, asset string) (*storage.PriceQuote, error) {
	return nil, nil
}

func (s *staticAlertStore) ListActiveRules(ctx context.Context, kind string) ([]storage.AlertRule, error) {
	return nil, nil
}

func (s *staticAlertStore) TouchRuleTriggered(ctx context.Context, id string, at time.Time) error {
	return nil
}

var _ alerting.Store = (*staticAlertStore)(nil)
