package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/runnerr0/tally/internal/storage"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if err := c.confirm(); err != nil {
		return err
	}
	return withEnv(c.globals, c.run)
}

func (c *PurgeCommand) confirm() error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}
	if c.Force {
		return nil
	}

	fmt.Println("⚠ WARNING: This will permanently delete ALL tally data.")
	fmt.Println("  - Stopwatch state")
	fmt.Println("  - All counters")
	fmt.Println("  - All saved sessions")
	fmt.Println("  - All recorded counter changes")
	fmt.Println()
	fmt.Println("This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "PURGE" to confirm: `)

	var in io.Reader = os.Stdin
	if c.stdin != nil {
		in = c.stdin
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "PURGE" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

func (c *PurgeCommand) run(ctx context.Context, e *env) error {
	err := e.store.Update(ctx, func(tx *storage.Tx) error {
		for _, coll := range storage.Collections() {
			if err := tx.Clear(ctx, coll.Name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	e.log.Info().Msg("purged all data")

	if e.json {
		return printJSON(map[string]interface{}{
			"purged":  true,
			"message": "all data deleted",
		})
	}

	fmt.Println("Purged all data. Tally is empty.")
	return nil
}
