package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Status *StatusCommand
	Start  *StartCommand
	Stop   *StopCommand
	Reset  *ResetCommand

	CounterAdd  *CounterAddCommand
	CounterInc  *CounterIncCommand
	CounterDec  *CounterDecCommand
	CounterRm   *CounterRmCommand
	CounterMv   *CounterMvCommand
	CounterList *CounterListCommand

	SessionSave   *SessionSaveCommand
	SessionList   *SessionListCommand
	SessionSearch *SessionSearchCommand
	SessionShow   *SessionShowCommand
	SessionRename *SessionRenameCommand
	SessionRm     *SessionRmCommand
	SessionLoad   *SessionLoadCommand

	SeriesList  *SeriesListCommand
	SeriesClear *SeriesClearCommand

	Export *ExportCommand
	Purge  *PurgeCommand
}

// group is a parent command that only dispatches to its subcommands.
type group struct{}

type subcommand struct {
	name, short, long string
	data              interface{}
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags
	g := &globals

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "tally"
	parser.LongDescription = "Local stopwatch with named counters, change history and saved sessions."

	cmds := &commands{
		Status: &StatusCommand{globals: g, version: version},
		Start:  &StartCommand{globals: g},
		Stop:   &StopCommand{globals: g},
		Reset:  &ResetCommand{globals: g},

		CounterAdd:  &CounterAddCommand{globals: g},
		CounterInc:  &CounterIncCommand{globals: g},
		CounterDec:  &CounterDecCommand{globals: g},
		CounterRm:   &CounterRmCommand{globals: g},
		CounterMv:   &CounterMvCommand{globals: g},
		CounterList: &CounterListCommand{globals: g},

		SessionSave:   &SessionSaveCommand{globals: g},
		SessionList:   &SessionListCommand{globals: g},
		SessionSearch: &SessionSearchCommand{globals: g},
		SessionShow:   &SessionShowCommand{globals: g},
		SessionRename: &SessionRenameCommand{globals: g},
		SessionRm:     &SessionRmCommand{globals: g},
		SessionLoad:   &SessionLoadCommand{globals: g},

		SeriesList:  &SeriesListCommand{globals: g},
		SeriesClear: &SeriesClearCommand{globals: g},

		Export: &ExportCommand{globals: g},
		Purge:  &PurgeCommand{globals: g},
	}

	parser.AddCommand("status", "Show stopwatch and storage summary", "Show the stopwatch reading, record counts and schema version.", cmds.Status)
	parser.AddCommand("start", "Start the stopwatch", "Start the stopwatch. It keeps running between invocations.", cmds.Start)
	parser.AddCommand("stop", "Stop the stopwatch", "Stop the stopwatch, keeping the elapsed time.", cmds.Stop)
	parser.AddCommand("reset", "Reset the stopwatch", "Stop the stopwatch at zero and clear the time series.", cmds.Reset)

	addGroup(parser, "counter", "Manage counters", "Add, change, reorder and list counters. Counters are addressed by position (1-based) or name.", []subcommand{
		{"add", "Add a counter", "Append a new counter at zero.", cmds.CounterAdd},
		{"inc", "Increment a counter", "Increment a counter and record the change.", cmds.CounterInc},
		{"dec", "Decrement a counter", "Decrement a counter and record the change.", cmds.CounterDec},
		{"rm", "Delete a counter", "Delete a counter. Its recorded history is kept.", cmds.CounterRm},
		{"mv", "Move a counter", "Move a counter to a new position.", cmds.CounterMv},
		{"list", "List counters", "List counters in display order.", cmds.CounterList},
	})

	addGroup(parser, "session", "Manage saved sessions", "Save, inspect, rename, delete and restore session snapshots.", []subcommand{
		{"save", "Save a session", "Snapshot the current counters and stopwatch under an optional name.", cmds.SessionSave},
		{"list", "List sessions", "List sessions newest first, optionally filtered by name or date range.", cmds.SessionList},
		{"search", "Search sessions by name", "Find sessions whose name contains the term, ignoring case.", cmds.SessionSearch},
		{"show", "Show a session", "Print one session with its counters.", cmds.SessionShow},
		{"rename", "Rename a session", "Change a session's name.", cmds.SessionRename},
		{"rm", "Delete a session", "Delete a saved session.", cmds.SessionRm},
		{"load", "Restore a session", "Replace the current counters and stopwatch with a session. Clears the time series.", cmds.SessionLoad},
	})

	addGroup(parser, "series", "Inspect the time series", "List or clear recorded counter changes.", []subcommand{
		{"list", "List recorded changes", "List recorded counter changes by elapsed time.", cmds.SeriesList},
		{"clear", "Clear recorded changes", "Delete every recorded counter change.", cmds.SeriesClear},
	})

	parser.AddCommand("export", "Export data as CSV", "Write counters, stopwatch time and time series as CSV.", cmds.Export)
	parser.AddCommand("purge", "Delete ALL tally data", "Delete ALL tally data. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

func addGroup(parser *goflags.Parser, name, short, long string, subs []subcommand) {
	parent, err := parser.AddCommand(name, short, long, &group{})
	if err != nil {
		panic(fmt.Sprintf("register %s: %v", name, err))
	}
	for _, s := range subs {
		if _, err := parent.AddCommand(s.name, s.short, s.long, s.data); err != nil {
			panic(fmt.Sprintf("register %s %s: %v", name, s.name, err))
		}
	}
}

// Run is the main entry point for the tally CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("tally %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
