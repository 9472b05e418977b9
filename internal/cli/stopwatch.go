package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/tally/internal/tracker"
)

type stopwatchJSON struct {
	ElapsedMS int64  `json:"elapsed_ms"`
	Elapsed   string `json:"elapsed"`
	Running   bool   `json:"running"`
}

func (e *env) printStopwatch(st *tracker.State) error {
	now := time.Now()
	if e.json {
		return printJSON(stopwatchJSON{
			ElapsedMS: st.Elapsed(now),
			Elapsed:   formatClock(st.Elapsed(now)),
			Running:   st.Running,
		})
	}
	fmt.Printf("Stopwatch: %s\n", stopwatchLabel(st, now))
	return nil
}

// Execute implements the go-flags Commander interface for StartCommand.
func (c *StartCommand) Execute(args []string) error {
	return withEnv(c.globals, c.run)
}

func (c *StartCommand) run(ctx context.Context, e *env) error {
	st, err := e.tracker.Load(ctx)
	if err != nil {
		return err
	}
	if err := e.tracker.Start(ctx, st); err != nil {
		return err
	}
	return e.printStopwatch(st)
}

// Execute implements the go-flags Commander interface for StopCommand.
func (c *StopCommand) Execute(args []string) error {
	return withEnv(c.globals, c.run)
}

func (c *StopCommand) run(ctx context.Context, e *env) error {
	st, err := e.tracker.Load(ctx)
	if err != nil {
		return err
	}
	if err := e.tracker.Stop(ctx, st); err != nil {
		return err
	}
	return e.printStopwatch(st)
}

// Execute implements the go-flags Commander interface for ResetCommand.
func (c *ResetCommand) Execute(args []string) error {
	return withEnv(c.globals, c.run)
}

func (c *ResetCommand) run(ctx context.Context, e *env) error {
	st, err := e.tracker.Load(ctx)
	if err != nil {
		return err
	}
	if err := e.tracker.Reset(ctx, st); err != nil {
		return err
	}
	return e.printStopwatch(st)
}
