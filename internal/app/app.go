package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sonic-alerts/internal/alerting"
	"sonic-alerts/internal/config"
	"sonic-alerts/internal/fetcher"
	"sonic-alerts/internal/prices"
	"sonic-alerts/internal/scheduler"
	"sonic-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) enabledSources() []fetcher.Source {
	apis := a.Config.APIs
	priceCfg := a.Config.Prices
	timeout := priceCfg.RequestTimeout

	var sources []fetcher.Source
	if config.Enabled(apis.CoinGeckoEnabled) {
		sources = append(sources, fetcher.NewCoinGecko(fetcher.CoinGeckoOptions{
			Currency: priceCfg.Currency,
			Timeout:  timeout,
		}, a.Logger))
	}
	if config.Enabled(apis.CoinPaprikaEnabled) {
		sources = append(sources, fetcher.NewCoinPaprika(fetcher.CoinPaprikaOptions{
			Currency: priceCfg.Currency,
			Timeout:  timeout,
		}, a.Logger))
	}
	if config.Enabled(apis.BinanceEnabled) {
		sources = append(sources, fetcher.NewBinance(fetcher.BinanceOptions{
			Timeout: timeout,
		}, a.Logger))
	}
	if config.Enabled(apis.CoinMarketCapEnabled) {
		sources = append(sources, fetcher.NewCoinMarketCap(fetcher.CoinMarketCapOptions{
			APIKey:   priceCfg.CMCAPIKey,
			Currency: priceCfg.Currency,
			Timeout:  timeout,
		}, a.Logger))
	}
	if config.Enabled(apis.ChainlinkEnabled) {
		sources = append(sources, fetcher.NewChainlink(fetcher.ChainlinkOptions{
			RPCURL:  priceCfg.ChainlinkRPCURL,
			Feeds:   priceCfg.ChainlinkFeeds,
			Timeout: timeout,
		}, a.Logger))
	}
	return sources
}

func (a *App) newDispatcher() *alerting.Dispatcher {
	dispatcher := alerting.NewDispatcher(a.Logger)

	email := a.Config.Notification.Email
	opts := alerting.EmailOptions{
		SMTPServer: email.SMTPServer,
		SMTPPort:   email.SMTPPort,
		User:       email.SMTPUser,
		Password:   email.SMTPPassword,
	}

	if email.SMTPServer != "" && email.RecipientEmail != "" {
		dispatcher.Register(storage.ChannelEmail, alerting.NewEmailNotifier(opts, email.RecipientEmail, a.Logger))
	}

	sms := a.Config.Notification.SMS
	if email.SMTPServer != "" && sms.CarrierGateway != "" && sms.RecipientNumber != "" {
		dispatcher.Register(storage.ChannelSMS, alerting.NewSMSNotifier(opts, sms.RecipientNumber, sms.CarrierGateway, a.Logger))
	}

	return dispatcher
}

func (a *App) travelBoundaries() alerting.TravelBoundaries {
	ranges := a.Config.AlertRanges.TravelPercentLiquidRanges
	return alerting.TravelBoundaries{
		Low:    ranges.Low,
		Medium: ranges.Medium,
		High:   ranges.High,
	}
}

func (a *App) newMonitor(store alerting.Store, gate *alerting.CooldownGate) *alerting.Monitor {
	return alerting.NewMonitor(store, a.newDispatcher(), gate, alerting.MonitorOptions{
		Boundaries: a.travelBoundaries(),
		Cooldown:   a.Config.Cooldown(),
		Enabled:    a.Config.System.AlertMonitorEnabled,
	}, a.Logger)
}

func (a *App) newAggregator(store prices.QuoteRecorder) *prices.Aggregator {
	return prices.New(a.enabledSources(), store, a.Config.Prices.Assets, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) requireStore(ctx context.Context) (*storage.Store, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errors.New("database.dsn not configured")
	}
	return store, closeStore, nil
}

// Run executes the long-running engine: the alert evaluation loop and
// the price refresh loop, each on its own fixed-interval scheduler.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	gate := alerting.NewCooldownGate()
	monitor := a.newMonitor(store, gate)
	aggregator := a.newAggregator(store)

	checkSched := scheduler.New(scheduler.Options{
		Name:         "alert_scheduler",
		Interval:     a.Config.Monitor.CheckInterval,
		AlignToStart: a.Config.Monitor.AlignToInterval,
		StartupDelay: a.Config.Monitor.StartupDelay,
	}, a.Logger)

	refreshSched := scheduler.New(scheduler.Options{
		Name:         "price_scheduler",
		Interval:     a.Config.Monitor.RefreshInterval,
		AlignToStart: a.Config.Monitor.AlignToInterval,
		StartupDelay: a.Config.Monitor.StartupDelay,
	}, a.Logger)

	a.Logger.Info().
		Dur("check_interval", a.Config.Monitor.CheckInterval).
		Dur("refresh_interval", a.Config.Monitor.RefreshInterval).
		Int("cooldown_seconds", a.Config.CooldownSeconds).
		Msg("starting alert engine")

	errCh := make(chan error, 2)
	go func() {
		errCh <- checkSched.Run(ctx, func(ctx context.Context, _ time.Time) error {
			return monitor.CheckOnce(ctx)
		})
	}()
	go func() {
		errCh <- refreshSched.Run(ctx, func(ctx context.Context, _ time.Time) error {
			return aggregator.RefreshOnce(ctx)
		})
	}()

	var runErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		a.Logger.Error().Err(runErr).Msg("engine terminated with error")
		return runErr
	}

	a.Logger.Info().Msg("alert engine stopped")
	return nil
}

// CheckAlertsOnce triggers a single evaluation pass. The cooldown gate
// is fresh per invocation; suppression state lives only in the
// long-running engine.
func (a *App) CheckAlertsOnce(ctx context.Context) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	monitor := a.newMonitor(store, alerting.NewCooldownGate())
	return monitor.CheckOnce(ctx)
}

// RefreshPricesOnce triggers a single aggregation cycle.
func (a *App) RefreshPricesOnce(ctx context.Context) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	return a.newAggregator(store).RefreshOnce(ctx)
}

// ExportOptions hold parameters for exporting quote history.
type ExportOptions struct {
	Asset     string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// SourcesOptions configure the sources command.
type SourcesOptions struct {
	Reset bool
}
