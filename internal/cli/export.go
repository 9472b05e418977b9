package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/runnerr0/tally/internal/export"
)

// Execute implements the go-flags Commander interface for ExportCommand.
func (c *ExportCommand) Execute(args []string) error {
	return withEnv(c.globals, c.run)
}

func (c *ExportCommand) run(ctx context.Context, e *env) error {
	st, err := e.tracker.Load(ctx)
	if err != nil {
		return err
	}
	series, err := e.series.QueryAll(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	data := export.Data{Counters: st.Counters, ElapsedTime: st.Elapsed(now), Series: series}

	if c.Out == "-" {
		return export.WriteCSV(os.Stdout, data)
	}

	path := c.Out
	if path == "" {
		dir, err := e.cfg.ExportDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, export.FileName(now))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := export.WriteCSV(f, data); err != nil {
		f.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	e.log.Debug().Str("path", path).Int("entries", len(series)).Msg("export written")

	if e.json {
		return printJSON(map[string]interface{}{
			"path":     path,
			"counters": len(st.Counters),
			"entries":  len(series),
		})
	}
	fmt.Printf("Exported %d counters and %d entries to %s\n", len(st.Counters), len(series), path)
	return nil
}
