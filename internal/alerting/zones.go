package alerting

import (
	"strings"

	"github.com/shopspring/decimal"

	"sonic-alerts/internal/storage"
)

// Zone is a discrete severity tier for travel-percent alerts.
type Zone string

const (
	ZoneNone   Zone = ""
	ZoneLow    Zone = "LOW"
	ZoneMedium Zone = "MEDIUM"
	ZoneHigh   Zone = "HIGH"
)

// TravelBoundaries are negative zone boundaries with High the most
// negative (most severe). A nil boundary leaves that tier unconfigured;
// classification falls through to the next configured tier.
type TravelBoundaries struct {
	Low    *float64
	Medium *float64
	High   *float64
}

// ClassifyTravelPercent maps a signed travel percent onto a zone.
// Non-negative values never alert. Boundary comparisons are inclusive.
func ClassifyTravelPercent(value float64, b TravelBoundaries) Zone {
	if value >= 0 {
		return ZoneNone
	}
	if b.High != nil && value <= *b.High {
		return ZoneHigh
	}
	if b.Medium != nil && value <= *b.Medium {
		return ZoneMedium
	}
	if b.Low != nil && value <= *b.Low {
		return ZoneLow
	}
	return ZoneNone
}

// CrossesThreshold evaluates the directional crossing test for a
// PRICE_THRESHOLD rule. ABOVE fires at or beyond the trigger from
// below; BELOW at or beyond from above. An unrecognised condition is
// treated as ABOVE, matching rule defaults.
func CrossesThreshold(current, trigger decimal.Decimal, condition string) bool {
	if strings.EqualFold(condition, storage.ConditionBelow) {
		return current.LessThanOrEqual(trigger)
	}
	return current.GreaterThanOrEqual(trigger)
}
