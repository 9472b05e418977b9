package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/tally/internal/storage"
)

func (e *env) printSessions(sessions []storage.Session) error {
	if e.json {
		if sessions == nil {
			sessions = []storage.Session{}
		}
		return printJSON(sessions)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions.")
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("%s  %-32s %s  %d counters\n", s.ID, s.Name, formatClock(s.ElapsedTime), len(s.Counters))
	}
	return nil
}

func (e *env) printSession(s *storage.Session) error {
	if e.json {
		return printJSON(s)
	}
	fmt.Printf("ID:        %s\n", s.ID)
	fmt.Printf("Name:      %s\n", s.Name)
	fmt.Printf("Date:      %s\n", s.Date.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Elapsed:   %s\n", formatClock(s.ElapsedTime))
	fmt.Println("Counters:")
	if len(s.Counters) == 0 {
		fmt.Println("  (none)")
	}
	for _, c := range s.Counters {
		fmt.Printf("  %-24s %d\n", c.Name, c.Value)
	}
	return nil
}

// Execute implements the go-flags Commander interface for SessionSaveCommand.
func (c *SessionSaveCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error { return c.run(ctx, e, args) })
}

func (c *SessionSaveCommand) run(ctx context.Context, e *env, args []string) error {
	st, err := e.tracker.Load(ctx)
	if err != nil {
		return err
	}
	s, err := e.tracker.SaveSession(ctx, st, joinArgs(args))
	if err != nil {
		return err
	}
	return e.printSession(s)
}

// Execute implements the go-flags Commander interface for SessionListCommand.
func (c *SessionListCommand) Execute(args []string) error {
	return withEnv(c.globals, c.run)
}

func (c *SessionListCommand) filter() (storage.SessionFilter, error) {
	if c.Name != "" && (c.From != "" || c.To != "") {
		return storage.SessionFilter{}, fmt.Errorf("--name cannot be combined with --from/--to")
	}
	if c.Name != "" {
		return storage.ByName(c.Name), nil
	}
	if c.From == "" && c.To == "" {
		return storage.AllSessions(), nil
	}

	start := time.Unix(0, 0).UTC()
	end := time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
	var err error
	if c.From != "" {
		if start, err = parseDateBound(c.From, false); err != nil {
			return storage.SessionFilter{}, err
		}
	}
	if c.To != "" {
		if end, err = parseDateBound(c.To, true); err != nil {
			return storage.SessionFilter{}, err
		}
	}
	if end.Before(start) {
		return storage.SessionFilter{}, fmt.Errorf("--to is before --from")
	}
	return storage.ByDateRange(start, end), nil
}

func (c *SessionListCommand) run(ctx context.Context, e *env) error {
	f, err := c.filter()
	if err != nil {
		return err
	}
	sessions, err := e.sessions.LoadAll(ctx, f)
	if err != nil {
		return err
	}
	return e.printSessions(sessions)
}

// Execute implements the go-flags Commander interface for SessionSearchCommand.
func (c *SessionSearchCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error { return c.run(ctx, e, args) })
}

func (c *SessionSearchCommand) run(ctx context.Context, e *env, args []string) error {
	if err := requireArgs(args, 1, "tally session search <term>"); err != nil {
		return err
	}
	sessions, err := e.sessions.SearchByName(ctx, joinArgs(args))
	if err != nil {
		return err
	}
	return e.printSessions(sessions)
}

// Execute implements the go-flags Commander interface for SessionShowCommand.
func (c *SessionShowCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error { return c.run(ctx, e, args) })
}

func (c *SessionShowCommand) run(ctx context.Context, e *env, args []string) error {
	if err := requireArgs(args, 1, "tally session show <id>"); err != nil {
		return err
	}
	s, err := e.sessions.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("show session: %w", err)
	}
	return e.printSession(s)
}

// Execute implements the go-flags Commander interface for SessionRenameCommand.
func (c *SessionRenameCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error { return c.run(ctx, e, args) })
}

func (c *SessionRenameCommand) run(ctx context.Context, e *env, args []string) error {
	if err := requireArgs(args, 2, "tally session rename <id> <new name>"); err != nil {
		return err
	}
	name := joinArgs(args[1:])
	if name == "" {
		return fmt.Errorf("new session name is empty")
	}
	if err := e.sessions.Rename(ctx, args[0], name); err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	s, err := e.sessions.Get(ctx, args[0])
	if err != nil {
		return err
	}
	return e.printSession(s)
}

// Execute implements the go-flags Commander interface for SessionRmCommand.
func (c *SessionRmCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error { return c.run(ctx, e, args) })
}

func (c *SessionRmCommand) run(ctx context.Context, e *env, args []string) error {
	if err := requireArgs(args, 1, "tally session rm <id>"); err != nil {
		return err
	}
	if err := e.sessions.Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if e.json {
		return printJSON(map[string]interface{}{"deleted": args[0]})
	}
	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}

// Execute implements the go-flags Commander interface for SessionLoadCommand.
func (c *SessionLoadCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error { return c.run(ctx, e, args) })
}

func (c *SessionLoadCommand) run(ctx context.Context, e *env, args []string) error {
	if err := requireArgs(args, 1, "tally session load <id>"); err != nil {
		return err
	}
	st, err := e.tracker.Load(ctx)
	if err != nil {
		return err
	}
	if err := e.tracker.LoadSession(ctx, st, args[0]); err != nil {
		return err
	}
	if e.json {
		return printJSON(map[string]interface{}{
			"loaded":     args[0],
			"elapsed_ms": st.ElapsedTime,
			"counters":   st.Counters,
		})
	}
	fmt.Printf("Loaded session %s\n", args[0])
	if err := e.printStopwatch(st); err != nil {
		return err
	}
	return e.printCounters(st.Counters)
}
