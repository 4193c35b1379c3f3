package alerting

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Dispatcher routes one alert to its requested channels. A failure on
// one channel is logged and never blocks the others, and nothing here
// escapes into the evaluation loop.
type Dispatcher struct {
	channels map[string]Notifier
	logger   zerolog.Logger
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		channels: make(map[string]Notifier),
		logger:   logger.With().Str("component", "alert_dispatcher").Logger(),
	}
}

// Register binds a notifier to a channel name (EMAIL, SMS).
func (d *Dispatcher) Register(channel string, notifier Notifier) {
	d.channels[strings.ToUpper(channel)] = notifier
}

// Dispatch delivers the notification to each requested channel in turn.
func (d *Dispatcher) Dispatch(ctx context.Context, channels []string, note Notification) {
	for _, channel := range channels {
		name := strings.ToUpper(channel)
		notifier, ok := d.channels[name]
		if !ok {
			d.logger.Warn().Str("channel", name).Msg("no notifier registered for channel")
			continue
		}
		if err := notifier.Notify(ctx, note); err != nil {
			d.logger.Error().Err(err).
				Str("channel", name).
				Str("kind", note.Kind).
				Str("asset", note.Asset).
				Msg("notification failed")
		}
	}
}
