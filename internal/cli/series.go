package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/tally/internal/export"
	"github.com/runnerr0/tally/internal/storage"
)

// Execute implements the go-flags Commander interface for SeriesListCommand.
func (c *SeriesListCommand) Execute(args []string) error {
	return withEnv(c.globals, c.run)
}

func (c *SeriesListCommand) run(ctx context.Context, e *env) error {
	var (
		entries []storage.TimeSeriesEntry
		err     error
	)
	if c.Counter != "" {
		entries, err = e.series.QueryByCounter(ctx, c.Counter)
	} else {
		entries, err = e.series.QueryAll(ctx)
	}
	if err != nil {
		return err
	}

	if e.json {
		if entries == nil {
			entries = []storage.TimeSeriesEntry{}
		}
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No recorded changes.")
		return nil
	}
	fmt.Printf("%-10s %-24s %-10s %6s  %s\n", "ELAPSED", "COUNTER", "ACTION", "VALUE", "TIMESTAMP")
	for _, en := range entries {
		fmt.Printf("%-10s %-24s %-10s %6d  %s\n",
			export.FormatElapsed(en.ElapsedTime), en.CounterName, en.Action, en.Value, storage.FormatISO(en.Timestamp))
	}
	return nil
}

// Execute implements the go-flags Commander interface for SeriesClearCommand.
func (c *SeriesClearCommand) Execute(args []string) error {
	return withEnv(c.globals, c.run)
}

func (c *SeriesClearCommand) run(ctx context.Context, e *env) error {
	if err := e.series.Clear(ctx); err != nil {
		return err
	}
	if e.json {
		return printJSON(map[string]interface{}{"cleared": true})
	}
	fmt.Println("Cleared time series.")
	return nil
}
