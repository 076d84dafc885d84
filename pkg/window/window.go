package window

import (
	"fmt"
	"time"

	"dbextract/pkg/errors"
)

// Window is a half-open time interval [Start, End). Adjacent windows share a
// boundary instant but never overlap.
type Window struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the window
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls inside the half-open interval
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// Generator partitions a time range into consecutive fetch windows of a fixed
// granularity. The final window is truncated to the range end. Windows are
// produced lazily so a resumed run does not materialize the full plan.
type Generator struct {
	start       time.Time
	end         time.Time
	granularity time.Duration
	cursor      time.Time
}

// NewGenerator creates a generator over [start, end). A start at or past end
// yields an empty plan rather than an error.
func NewGenerator(start, end time.Time, granularity time.Duration) (*Generator, error) {
	if granularity <= 0 {
		return nil, errors.NewConfig(fmt.Sprintf("fetch granularity must be positive, got %v", granularity))
	}

	return &Generator{
		start:       start,
		end:         end,
		granularity: granularity,
		cursor:      start,
	}, nil
}

// Next returns the next window in the plan. The second return value is false
// once the range is exhausted.
func (g *Generator) Next() (Window, bool) {
	if !g.cursor.Before(g.end) {
		return Window{}, false
	}

	windowEnd := g.cursor.Add(g.granularity)
	if windowEnd.After(g.end) {
		windowEnd = g.end
	}

	w := Window{Start: g.cursor, End: windowEnd}
	g.cursor = windowEnd
	return w, true
}

// Reset rewinds the generator to the start of the range
func (g *Generator) Reset() {
	g.cursor = g.start
}

// Count returns the total number of windows the generator will produce,
// without consuming it.
func (g *Generator) Count() int {
	if !g.start.Before(g.end) {
		return 0
	}

	total := g.end.Sub(g.start)
	count := int(total / g.granularity)
	if total%g.granularity != 0 {
		count++
	}
	return count
}
