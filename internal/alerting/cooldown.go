package alerting

import (
	"fmt"
	"time"
)

// CooldownGate suppresses repeat notifications per alert identity.
// State lives only in process memory and is only touched from the
// evaluation loop's goroutine, so access is lock-free. A restart
// resets all suppression.
type CooldownGate struct {
	lastTriggered map[string]time.Time
}

// NewCooldownGate returns an empty gate.
func NewCooldownGate() *CooldownGate {
	return &CooldownGate{lastTriggered: make(map[string]time.Time)}
}

// ShouldFire reports whether the key may trigger at now. A key that has
// never fired always may. ShouldFire does not commit; callers that go
// on to dispatch must call Record.
func (g *CooldownGate) ShouldFire(key string, now time.Time, cooldown time.Duration) bool {
	last, ok := g.lastTriggered[key]
	if !ok {
		return true
	}
	return now.Sub(last) >= cooldown
}

// Record commits a trigger time for the key.
func (g *CooldownGate) Record(key string, now time.Time) {
	g.lastTriggered[key] = now
}

// TravelKey derives the suppression key for a position/zone pair. Zones
// cool down independently, so a position oscillating between MEDIUM and
// HIGH alerts once per zone.
func TravelKey(positionID string, zone Zone) string {
	return fmt.Sprintf("%s-%s", positionID, zone)
}

// PriceRuleKey derives the suppression key for a price-threshold rule.
func PriceRuleKey(ruleID string) string {
	return "price-alert-" + ruleID
}
