// Package export renders tracker data as CSV.
package export

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/runnerr0/tally/internal/storage"
)

// Data is everything one export contains.
type Data struct {
	Counters    []storage.Counter
	ElapsedTime int64
	Series      []storage.TimeSeriesEntry
}

// FileName returns the default export file name for the UTC date of t.
func FileName(t time.Time) string {
	return "stopwatch-counter-export-" + t.UTC().Format("2006-01-02") + ".csv"
}

// FormatElapsed renders milliseconds as HH:MM:SS. Hours are not capped.
func FormatElapsed(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", ms/3600000, ms%3600000/60000, ms%60000/1000)
}

// WriteCSV writes the counters, then the stopwatch reading, then the time
// series sorted by timestamp. The series section is omitted when empty.
// Text cells are always quoted.
func WriteCSV(w io.Writer, d Data) error {
	bw := bufio.NewWriter(w)

	fmt.Fprint(bw, "Counter Name,Value\n")
	for _, c := range d.Counters {
		fmt.Fprintf(bw, "%s,%d\n", quote(c.Name), c.Value)
	}
	fmt.Fprintf(bw, "\nStopwatch Time,%s\n\n", FormatElapsed(d.ElapsedTime))

	if len(d.Series) > 0 {
		series := slices.Clone(d.Series)
		slices.SortStableFunc(series, func(a, b storage.TimeSeriesEntry) int {
			return a.Timestamp.Compare(b.Timestamp)
		})

		fmt.Fprint(bw, "\nTime Series Data\n")
		fmt.Fprint(bw, "Timestamp,Counter Name,Action,Value,Elapsed Time (ms),Elapsed Time (formatted)\n")
		for _, e := range series {
			fmt.Fprintf(bw, "%s,%s,%s,%d,%d,%s\n",
				quote(storage.FormatISO(e.Timestamp)),
				quote(e.CounterName),
				quote(string(e.Action)),
				e.Value,
				e.ElapsedTime,
				quote(FormatElapsed(e.ElapsedTime)),
			)
		}
	}

	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
