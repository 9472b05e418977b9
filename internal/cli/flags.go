package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DBPath  string `long:"db-path" description:"Override the database file from config"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable debug logging on stderr"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// StatusCommand is the command to show stopwatch, counts and schema version.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// StartCommand is the command to start the stopwatch.
type StartCommand struct {
	globals *GlobalFlags
}

// StopCommand is the command to stop the stopwatch, keeping its reading.
type StopCommand struct {
	globals *GlobalFlags
}

// ResetCommand is the command to zero the stopwatch and clear the time series.
type ResetCommand struct {
	globals *GlobalFlags
}

// CounterAddCommand is the command to append a counter at zero.
type CounterAddCommand struct {
	globals *GlobalFlags
}

// CounterIncCommand is the command to increment a counter, recording the change.
type CounterIncCommand struct {
	Times int `long:"times" short:"n" description:"Repeat the increment N times" default:"1"`

	globals *GlobalFlags
}

// CounterDecCommand is the command to decrement a counter, recording the change.
type CounterDecCommand struct {
	Times int `long:"times" short:"n" description:"Repeat the decrement N times" default:"1"`

	globals *GlobalFlags
}

// CounterRmCommand is the command to delete a counter.
type CounterRmCommand struct {
	globals *GlobalFlags
}

// CounterMvCommand is the command to move a counter to another position.
type CounterMvCommand struct {
	globals *GlobalFlags
}

// CounterListCommand is the command to list counters in display order.
type CounterListCommand struct {
	globals *GlobalFlags
}

// SessionSaveCommand is the command to snapshot the current counters and stopwatch.
type SessionSaveCommand struct {
	globals *GlobalFlags
}

// SessionListCommand is the command to list saved sessions, newest first.
type SessionListCommand struct {
	Name string `long:"name" description:"Only sessions with exactly this name"`
	From string `long:"from" description:"Only sessions dated on or after (YYYY-MM-DD or RFC 3339)"`
	To   string `long:"to" description:"Only sessions dated on or before (YYYY-MM-DD or RFC 3339)"`

	globals *GlobalFlags
}

// SessionSearchCommand is the command to find sessions by name substring.
type SessionSearchCommand struct {
	globals *GlobalFlags
}

// SessionShowCommand is the command to print one session.
type SessionShowCommand struct {
	globals *GlobalFlags
}

// SessionRenameCommand is the command to change a session's name.
type SessionRenameCommand struct {
	globals *GlobalFlags
}

// SessionRmCommand is the command to delete a session.
type SessionRmCommand struct {
	globals *GlobalFlags
}

// SessionLoadCommand is the command to replace the current state with a session.
type SessionLoadCommand struct {
	globals *GlobalFlags
}

// SeriesListCommand is the command to print recorded counter changes.
type SeriesListCommand struct {
	Counter string `long:"counter" description:"Only entries for this counter"`

	globals *GlobalFlags
}

// SeriesClearCommand is the command to delete every recorded counter change.
type SeriesClearCommand struct {
	globals *GlobalFlags
}

// ExportCommand is the command to write counters, stopwatch and time series as CSV.
type ExportCommand struct {
	Out string `long:"out" short:"o" description:"Output file, or - for stdout (default: export dir from config)"`

	globals *GlobalFlags
}

// PurgeCommand is the command to delete ALL tally data with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	stdin   io.Reader // injectable for testing; nil means os.Stdin
}
