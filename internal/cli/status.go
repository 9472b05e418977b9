package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/tally/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version       string `json:"version"`
	DatabasePath  string `json:"database_path"`
	DatabaseBytes int64  `json:"database_size_bytes"`
	SchemaVersion int    `json:"schema_version"`
	ElapsedMS     int64  `json:"elapsed_ms"`
	Running       bool   `json:"running"`
	Counters      int64  `json:"counters"`
	Sessions      int64  `json:"sessions"`
	SeriesEntries int64  `json:"series_entries"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	return withEnv(c.globals, c.run)
}

func (c *StatusCommand) run(ctx context.Context, e *env) error {
	st, err := e.tracker.Load(ctx)
	if err != nil {
		return err
	}
	version, err := e.store.Version(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	counts := make(map[string]int64, 3)
	for _, coll := range []string{storage.CollectionCounters, storage.CollectionSessions, storage.CollectionTimeSeries} {
		n, err := e.store.Count(ctx, coll)
		if err != nil {
			return err
		}
		counts[coll] = n
	}

	now := time.Now()
	out := statusJSON{
		Version:       c.version,
		DatabasePath:  e.dbPath,
		DatabaseBytes: databaseSize(ctx, e),
		SchemaVersion: version,
		ElapsedMS:     st.Elapsed(now),
		Running:       st.Running,
		Counters:      counts[storage.CollectionCounters],
		Sessions:      counts[storage.CollectionSessions],
		SeriesEntries: counts[storage.CollectionTimeSeries],
	}
	if e.json {
		return printJSON(out)
	}

	fmt.Println("Tally Status")
	fmt.Println("============")
	fmt.Printf("Version:       %s\n", out.Version)
	fmt.Printf("Database:      %s (%s)\n", out.DatabasePath, formatBytes(out.DatabaseBytes))
	fmt.Printf("Schema:        v%d\n", out.SchemaVersion)
	fmt.Printf("Stopwatch:     %s\n", stopwatchLabel(st, now))
	fmt.Printf("Counters:      %s\n", formatNumber(out.Counters))
	fmt.Printf("Sessions:      %s\n", formatNumber(out.Sessions))
	fmt.Printf("Series:        %s entries\n", formatNumber(out.SeriesEntries))
	return nil
}

// databaseSize returns the database file size in bytes. For in-memory
// databases it queries page_count * page_size.
func databaseSize(ctx context.Context, e *env) int64 {
	if info, err := os.Stat(e.dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	db := e.store.DB()
	if err := db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if i > 0 {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
