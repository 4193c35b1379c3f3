package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints the most recent price quotes.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	quotes, err := store.ListRecentQuotes(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(quotes) == 0 {
		fmt.Fprintln(os.Stdout, "no quotes found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Fetched (UTC)\tAsset\tPrice\tSource")

	for _, quote := range quotes {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\n",
			quote.FetchedAt.UTC().Format(time.RFC3339),
			quote.Asset,
			quote.Price.StringFixed(2),
			quote.Source,
		)
	}

	writer.Flush()
	return nil
}

// Sources prints per-source fetch counters, optionally resetting them
// first.
func (a *App) Sources(ctx context.Context, opts SourcesOptions) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.Reset {
		if err := store.ResetSourceCounters(ctx); err != nil {
			return err
		}
		a.Logger.Info().Msg("source counters reset")
	}

	counters, err := store.ListSourceCounters(ctx)
	if err != nil {
		return err
	}
	if len(counters) == 0 {
		fmt.Fprintln(os.Stdout, "no source counters found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Source\tReports\tLast Updated (UTC)")

	for _, counter := range counters {
		last := "never"
		if counter.LastUpdated != nil {
			last = counter.LastUpdated.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(writer, "%s\t%d\t%s\n", counter.SourceName, counter.TotalReports, last)
	}

	writer.Flush()
	return nil
}
