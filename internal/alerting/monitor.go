package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sonic-alerts/internal/storage"
)

// Store is the slice of persistence the evaluation loop reads.
type Store interface {
	ListPositions(ctx context.Context) ([]storage.Position, error)
	LatestQuote(ctx context.Context, asset string) (*storage.PriceQuote, error)
	ListActiveRules(ctx context.Context, kind string) ([]storage.AlertRule, error)
	TouchRuleTriggered(ctx context.Context, id string, at time.Time) error
}

// MonitorOptions tune one evaluation pass.
type MonitorOptions struct {
	Boundaries TravelBoundaries
	Cooldown   time.Duration
	Enabled    bool
}

// Monitor runs alert evaluation passes: travel-percent zones over the
// position book, then directional price-threshold rules. Passes are
// driven sequentially by the scheduler, so the cooldown gate is only
// ever touched from one goroutine.
type Monitor struct {
	store      Store
	dispatcher *Dispatcher
	gate       *CooldownGate
	opts       MonitorOptions
	logger     zerolog.Logger
	now        func() time.Time
}

// NewMonitor constructs a Monitor with a caller-owned cooldown gate.
func NewMonitor(store Store, dispatcher *Dispatcher, gate *CooldownGate, opts MonitorOptions, logger zerolog.Logger) *Monitor {
	return &Monitor{
		store:      store,
		dispatcher: dispatcher,
		gate:       gate,
		opts:       opts,
		logger:     logger.With().Str("component", "alert_monitor").Logger(),
		now:        time.Now,
	}
}

// CheckOnce executes a single evaluation pass. A whole-set store read
// failure aborts only this pass; per-position and per-rule problems are
// logged and skipped.
func (m *Monitor) CheckOnce(ctx context.Context) error {
	if !m.opts.Enabled {
		m.logger.Debug().Msg("alert monitoring disabled, skipping pass")
		return nil
	}

	if err := m.checkTravelPercent(ctx); err != nil {
		return err
	}
	return m.checkPriceThresholds(ctx)
}

func (m *Monitor) checkTravelPercent(ctx context.Context) error {
	positions, err := m.store.ListPositions(ctx)
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}
	m.logger.Debug().Int("positions", len(positions)).Msg("evaluating travel percent")

	for _, pos := range positions {
		zone := ClassifyTravelPercent(pos.TravelPercent, m.opts.Boundaries)
		if zone == ZoneNone {
			continue
		}

		key := TravelKey(pos.ID, zone)
		now := m.now()
		if !m.gate.ShouldFire(key, now, m.opts.Cooldown) {
			m.logger.Debug().Str("position_id", pos.ID).Str("zone", string(zone)).Msg("travel alert suppressed by cooldown")
			continue
		}

		note := Notification{
			Kind:          storage.KindTravelPercentLiquid,
			PositionID:    pos.ID,
			Asset:         pos.Asset,
			Zone:          zone,
			TravelPercent: pos.TravelPercent,
			At:            now,
		}
		m.logger.Info().
			Str("position_id", pos.ID).
			Str("asset", pos.Asset).
			Str("zone", string(zone)).
			Float64("travel_percent", pos.TravelPercent).
			Msg("travel percent alert triggered")

		m.dispatcher.Dispatch(ctx, []string{storage.ChannelEmail, storage.ChannelSMS}, note)
		m.gate.Record(key, now)
	}
	return nil
}

func (m *Monitor) checkPriceThresholds(ctx context.Context) error {
	rules, err := m.store.ListActiveRules(ctx, storage.KindPriceThreshold)
	if err != nil {
		return fmt.Errorf("list active rules: %w", err)
	}
	m.logger.Debug().Int("rules", len(rules)).Msg("evaluating price thresholds")

	for _, rule := range rules {
		quote, quoteErr := m.store.LatestQuote(ctx, rule.Asset)
		if quoteErr != nil {
			m.logger.Error().Err(quoteErr).Str("rule_id", rule.ID).Str("asset", rule.Asset).Msg("failed to read latest quote")
			continue
		}
		if quote == nil {
			// Price data not available yet is not an error.
			m.logger.Debug().Str("rule_id", rule.ID).Str("asset", rule.Asset).Msg("no quote for asset, skipping rule")
			continue
		}

		if !CrossesThreshold(quote.Price, rule.TriggerValue, rule.Condition) {
			continue
		}

		key := PriceRuleKey(rule.ID)
		now := m.now()
		if !m.gate.ShouldFire(key, now, m.opts.Cooldown) {
			m.logger.Debug().Str("rule_id", rule.ID).Msg("price alert suppressed by cooldown")
			continue
		}

		note := Notification{
			Kind:         storage.KindPriceThreshold,
			RuleID:       rule.ID,
			Asset:        rule.Asset,
			Condition:    rule.Condition,
			TriggerValue: rule.TriggerValue,
			CurrentPrice: quote.Price,
			At:           now,
		}
		m.logger.Info().
			Str("rule_id", rule.ID).
			Str("asset", rule.Asset).
			Str("condition", rule.Condition).
			Str("current_price", quote.Price.String()).
			Msg("price threshold alert triggered")

		channel := rule.Channel
		if channel == "" {
			channel = storage.ChannelSMS
		}
		m.dispatcher.Dispatch(ctx, []string{channel}, note)
		m.gate.Record(key, now)

		// Informational only; gating never reads this back.
		if touchErr := m.store.TouchRuleTriggered(ctx, rule.ID, now); touchErr != nil {
			m.logger.Error().Err(touchErr).Str("rule_id", rule.ID).Msg("failed to persist last_triggered")
		}
	}
	return nil
}
