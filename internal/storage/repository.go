package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	listPositionsSQL = `SELECT
        id,
        asset_type,
        position_type,
        entry_price,
        liquidation_price,
        current_price,
        current_travel_percent,
        size,
        collateral,
        leverage,
        wallet_name,
        last_updated
    FROM positions
    ORDER BY id;`

	insertQuoteSQL = `INSERT INTO prices (
        asset_type,
        current_price,
        source,
        fetched_at
    ) VALUES (
        $1,$2,$3,$4
    );`

	latestQuoteSQL = `SELECT
        id,
        asset_type,
        current_price,
        source,
        fetched_at
    FROM prices
    WHERE asset_type = $1
    ORDER BY fetched_at DESC, id DESC
    LIMIT 1;`

	listQuotesBetweenSQL = `SELECT
        id,
        asset_type,
        current_price,
        source,
        fetched_at
    FROM prices
    WHERE asset_type = $1
      AND fetched_at >= $2
      AND fetched_at < $3
    ORDER BY fetched_at;`

	listRecentQuotesSQL = `SELECT
        id,
        asset_type,
        current_price,
        source,
        fetched_at
    FROM prices
    ORDER BY fetched_at DESC, id DESC
    LIMIT $1;`

	listActiveRulesSQL = `SELECT
        id,
        alert_type,
        asset_type,
        trigger_value,
        condition,
        notification_type,
        status,
        last_triggered,
        created_at
    FROM alerts
    WHERE alert_type = $1
      AND UPPER(status) = 'ACTIVE'
    ORDER BY created_at;`

	touchRuleTriggeredSQL = `UPDATE alerts
    SET last_triggered = $2
    WHERE id = $1;`

	incrementCounterSQL = `INSERT INTO api_status_counters (api_name, total_reports, last_updated)
    VALUES ($1, 1, $2)
    ON CONFLICT (api_name) DO UPDATE
    SET total_reports = api_status_counters.total_reports + 1,
        last_updated  = EXCLUDED.last_updated;`

	listCountersSQL = `SELECT api_name, total_reports, last_updated
    FROM api_status_counters
    ORDER BY api_name;`

	resetCountersSQL = `UPDATE api_status_counters SET total_reports = 0;`
)

// PositionStore reads the externally maintained position book.
type PositionStore interface {
	ListPositions(ctx context.Context) ([]Position, error)
}

// QuoteStore persists and reads price quote history.
type QuoteStore interface {
	InsertQuote(ctx context.Context, quote PriceQuote) error
	LatestQuote(ctx context.Context, asset string) (*PriceQuote, error)
	ListQuotesBetween(ctx context.Context, asset string, from, to time.Time) ([]PriceQuote, error)
	ListRecentQuotes(ctx context.Context, limit int) ([]PriceQuote, error)
}

// RuleStore reads alert rules and records trigger timestamps.
type RuleStore interface {
	ListActiveRules(ctx context.Context, kind string) ([]AlertRule, error)
	TouchRuleTriggered(ctx context.Context, id string, at time.Time) error
}

// CounterStore tracks per-source fetch accounting.
type CounterStore interface {
	IncrementSourceCounter(ctx context.Context, sourceName string, now time.Time) error
	ListSourceCounters(ctx context.Context) ([]SourceCounter, error)
	ResetSourceCounters(ctx context.Context) error
}

// Store aggregates access to positions, quotes, rules, and counters.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// ListPositions returns all tracked positions.
func (s *Store) ListPositions(ctx context.Context) ([]Position, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPositionsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list positions: %w", queryErr)
	}
	defer rows.Close()

	positions := make([]Position, 0)
	for rows.Next() {
		pos, scanErr := scanPosition(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		positions = append(positions, pos)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return positions, nil
}

// InsertQuote appends a new quote row; history is never mutated.
func (s *Store) InsertQuote(ctx context.Context, quote PriceQuote) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertQuoteSQL,
		quote.Asset,
		quote.Price.String(),
		quote.Source,
		quote.FetchedAt,
	)
	if execErr != nil {
		return fmt.Errorf("insert quote: %w", execErr)
	}
	return nil
}

// LatestQuote returns the most recent quote for an asset, or nil when no
// quote has been recorded yet.
func (s *Store) LatestQuote(ctx context.Context, asset string) (*PriceQuote, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, latestQuoteSQL, asset)
	quote, scanErr := scanQuoteRow(row)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest quote: %w", scanErr)
	}
	return &quote, nil
}

// ListQuotesBetween lists quotes for an asset within a time window.
func (s *Store) ListQuotesBetween(ctx context.Context, asset string, from, to time.Time) ([]PriceQuote, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listQuotesBetweenSQL, asset, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list quotes between: %w", queryErr)
	}
	defer rows.Close()

	return collectQuotes(rows)
}

// ListRecentQuotes lists the most recent quotes across all assets.
func (s *Store) ListRecentQuotes(ctx context.Context, limit int) ([]PriceQuote, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentQuotesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent quotes: %w", queryErr)
	}
	defer rows.Close()

	return collectQuotes(rows)
}

// ListActiveRules lists active alert rules of the given kind.
func (s *Store) ListActiveRules(ctx context.Context, kind string) ([]AlertRule, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listActiveRulesSQL, kind)
	if queryErr != nil {
		return nil, fmt.Errorf("list active rules: %w", queryErr)
	}
	defer rows.Close()

	rules := make([]AlertRule, 0)
	for rows.Next() {
		rule, scanErr := scanRule(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rules = append(rules, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rules, nil
}

// TouchRuleTriggered records the persisted last-trigger timestamp. The
// value is informational; cooldown gating never reads it back.
func (s *Store) TouchRuleTriggered(ctx context.Context, id string, at time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, touchRuleTriggeredSQL, id, at)
	if execErr != nil {
		return fmt.Errorf("touch rule triggered: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// IncrementSourceCounter bumps total_reports for a source.
func (s *Store) IncrementSourceCounter(ctx context.Context, sourceName string, now time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, incrementCounterSQL, sourceName, now); execErr != nil {
		return fmt.Errorf("increment source counter: %w", execErr)
	}
	return nil
}

// ListSourceCounters returns all per-source counters.
func (s *Store) ListSourceCounters(ctx context.Context) ([]SourceCounter, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listCountersSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list source counters: %w", queryErr)
	}
	defer rows.Close()

	counters := make([]SourceCounter, 0)
	for rows.Next() {
		var counter SourceCounter
		var last *time.Time
		if err := rows.Scan(&counter.SourceName, &counter.TotalReports, &last); err != nil {
			return nil, err
		}
		counter.LastUpdated = last
		counters = append(counters, counter)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return counters, nil
}

// ResetSourceCounters zeroes total_reports for every source.
func (s *Store) ResetSourceCounters(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, resetCountersSQL); execErr != nil {
		return fmt.Errorf("reset source counters: %w", execErr)
	}
	return nil
}

func collectQuotes(rows pgx.Rows) ([]PriceQuote, error) {
	quotes := make([]PriceQuote, 0)
	for rows.Next() {
		quote, scanErr := scanQuoteRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		quotes = append(quotes, quote)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return quotes, nil
}

func scanQuoteRow(row pgx.Row) (PriceQuote, error) {
	var (
		quote    PriceQuote
		priceStr string
	)
	if err := row.Scan(
		&quote.ID,
		&quote.Asset,
		&priceStr,
		&quote.Source,
		&quote.FetchedAt,
	); err != nil {
		return PriceQuote{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return PriceQuote{}, fmt.Errorf("parse quote price: %w", err)
	}
	quote.Price = price
	return quote, nil
}

func scanPosition(rows pgx.Rows) (Position, error) {
	var (
		pos        Position
		entryStr   string
		liqStr     string
		currentStr string
		sizeStr    string
		collatStr  string
	)

	if err := rows.Scan(
		&pos.ID,
		&pos.Asset,
		&pos.PositionType,
		&entryStr,
		&liqStr,
		&currentStr,
		&pos.TravelPercent,
		&sizeStr,
		&collatStr,
		&pos.Leverage,
		&pos.Wallet,
		&pos.LastUpdated,
	); err != nil {
		return Position{}, err
	}

	var err error
	if pos.EntryPrice, err = decimal.NewFromString(entryStr); err != nil {
		return Position{}, fmt.Errorf("parse entry price: %w", err)
	}
	if pos.LiquidationPrice, err = decimal.NewFromString(liqStr); err != nil {
		return Position{}, fmt.Errorf("parse liquidation price: %w", err)
	}
	if pos.CurrentPrice, err = decimal.NewFromString(currentStr); err != nil {
		return Position{}, fmt.Errorf("parse current price: %w", err)
	}
	if pos.Size, err = decimal.NewFromString(sizeStr); err != nil {
		return Position{}, fmt.Errorf("parse size: %w", err)
	}
	if pos.Collateral, err = decimal.NewFromString(collatStr); err != nil {
		return Position{}, fmt.Errorf("parse collateral: %w", err)
	}

	return pos, nil
}

func scanRule(rows pgx.Rows) (AlertRule, error) {
	var (
		rule       AlertRule
		triggerStr string
		last       *time.Time
	)

	if err := rows.Scan(
		&rule.ID,
		&rule.Kind,
		&rule.Asset,
		&triggerStr,
		&rule.Condition,
		&rule.Channel,
		&rule.Status,
		&last,
		&rule.CreatedAt,
	); err != nil {
		return AlertRule{}, err
	}

	trigger, err := decimal.NewFromString(triggerStr)
	if err != nil {
		return AlertRule{}, fmt.Errorf("parse trigger value: %w", err)
	}
	rule.TriggerValue = trigger
	rule.LastTriggered = last
	return rule, nil
}
