package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/runnerr0/tally/internal/storage"
	"github.com/runnerr0/tally/internal/tracker"
)

func (e *env) printCounters(counters []storage.Counter) error {
	if e.json {
		if counters == nil {
			counters = []storage.Counter{}
		}
		return printJSON(counters)
	}
	if len(counters) == 0 {
		fmt.Println("No counters.")
		return nil
	}
	for i, c := range counters {
		fmt.Printf("%3d. %-24s %d\n", i+1, c.Name, c.Value)
	}
	return nil
}

func (e *env) printCounter(c storage.Counter) error {
	if e.json {
		return printJSON(c)
	}
	fmt.Printf("%s: %d\n", c.Name, c.Value)
	return nil
}

// Execute implements the go-flags Commander interface for CounterAddCommand.
func (c *CounterAddCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error { return c.run(ctx, e, args) })
}

func (c *CounterAddCommand) run(ctx context.Context, e *env, args []string) error {
	name := joinArgs(args)
	if name == "" {
		return fmt.Errorf("usage: tally counter add <name>")
	}
	st, err := e.tracker.Load(ctx)
	if err != nil {
		return err
	}
	if err := e.tracker.AddCounter(ctx, st, name); err != nil {
		return err
	}
	return e.printCounter(st.Counters[len(st.Counters)-1])
}

// Execute implements the go-flags Commander interface for CounterIncCommand.
func (c *CounterIncCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error { return c.run(ctx, e, args) })
}

func (c *CounterIncCommand) run(ctx context.Context, e *env, args []string) error {
	return stepCounter(ctx, e, args, c.Times, "inc", e.tracker.Increment)
}

// Execute implements the go-flags Commander interface for CounterDecCommand.
func (c *CounterDecCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error { return c.run(ctx, e, args) })
}

func (c *CounterDecCommand) run(ctx context.Context, e *env, args []string) error {
	return stepCounter(ctx, e, args, c.Times, "dec", e.tracker.Decrement)
}

type stepFunc func(ctx context.Context, st *tracker.State, i int) error

func stepCounter(ctx context.Context, e *env, args []string, times int, verb string, step stepFunc) error {
	if err := requireArgs(args, 1, "tally counter "+verb+" <position|name>"); err != nil {
		return err
	}
	if times < 1 {
		return fmt.Errorf("--times must be at least 1")
	}
	st, err := e.tracker.Load(ctx)
	if err != nil {
		return err
	}
	i, err := resolveCounter(ctx, e, st, joinArgs(args))
	if err != nil {
		return err
	}
	for n := 0; n < times; n++ {
		if err := step(ctx, st, i); err != nil {
			return err
		}
	}
	return e.printCounter(st.Counters[i])
}

// Execute implements the go-flags Commander interface for CounterRmCommand.
func (c *CounterRmCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error { return c.run(ctx, e, args) })
}

func (c *CounterRmCommand) run(ctx context.Context, e *env, args []string) error {
	if err := requireArgs(args, 1, "tally counter rm <position|name>"); err != nil {
		return err
	}
	st, err := e.tracker.Load(ctx)
	if err != nil {
		return err
	}
	i, err := resolveCounter(ctx, e, st, joinArgs(args))
	if err != nil {
		return err
	}
	if err := e.tracker.DeleteCounter(ctx, st, i); err != nil {
		return err
	}
	return e.printCounters(st.Counters)
}

// Execute implements the go-flags Commander interface for CounterMvCommand.
func (c *CounterMvCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error { return c.run(ctx, e, args) })
}

func (c *CounterMvCommand) run(ctx context.Context, e *env, args []string) error {
	const usage = "tally counter mv <position|name> <new position>"
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", usage)
	}
	to, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("usage: %s", usage)
	}
	st, err := e.tracker.Load(ctx)
	if err != nil {
		return err
	}
	from, err := resolveCounter(ctx, e, st, args[0])
	if err != nil {
		return err
	}
	if err := e.tracker.MoveCounter(ctx, st, from, to-1); err != nil {
		return err
	}
	return e.printCounters(st.Counters)
}

// Execute implements the go-flags Commander interface for CounterListCommand.
func (c *CounterListCommand) Execute(args []string) error {
	return withEnv(c.globals, c.run)
}

func (c *CounterListCommand) run(ctx context.Context, e *env) error {
	counters, err := e.counters.LoadAll(ctx)
	if err != nil {
		return err
	}
	return e.printCounters(counters)
}
