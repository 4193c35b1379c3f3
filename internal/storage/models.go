package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rule kinds persisted in the alerts table.
const (
	KindTravelPercentLiquid = "TRAVEL_PERCENT_LIQUID"
	KindPriceThreshold      = "PRICE_THRESHOLD"
)

// Rule conditions for PRICE_THRESHOLD alerts.
const (
	ConditionAbove = "ABOVE"
	ConditionBelow = "BELOW"
)

// Rule statuses.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// Notification channels.
const (
	ChannelEmail = "EMAIL"
	ChannelSMS   = "SMS"
)

// Position is a leveraged position as maintained by external ingestion.
// The alert engine only reads these rows.
type Position struct {
	ID               string
	Asset            string
	PositionType     string
	EntryPrice       decimal.Decimal
	LiquidationPrice decimal.Decimal
	CurrentPrice     decimal.Decimal
	TravelPercent    float64
	Size             decimal.Decimal
	Collateral       decimal.Decimal
	Leverage         float64
	Wallet           string
	LastUpdated      time.Time
}

// PriceQuote is one observation of an asset price from one source.
// Quote history is append-only; the latest quote per asset is the row
// with the greatest FetchedAt.
type PriceQuote struct {
	ID        int64
	Asset     string
	Price     decimal.Decimal
	Source    string
	FetchedAt time.Time
}

// AlertRule is a user-authored alert definition.
type AlertRule struct {
	ID            string
	Kind          string
	Asset         string
	TriggerValue  decimal.Decimal
	Condition     string
	Channel       string
	Status        string
	LastTriggered *time.Time
	CreatedAt     time.Time
}

// SourceCounter tracks successful fetch cycles per price source.
type SourceCounter struct {
	SourceName   string
	TotalReports int64
	LastUpdated  *time.Time
}
