package analysis

import (
	"errors"
	"fmt"
	"time"

	"github.com/ademuri/spotify-history-tools/internal/history"
	"github.com/ademuri/spotify-history-tools/internal/metadata"
)

var (
	ErrNoEvents      = errors.New("no listening history")
	ErrUnknownReport = errors.New("unknown report")
)

// Options control a pipeline run. The zero value runs every report over the
// whole history with default thresholds and no metadata.
type Options struct {
	Metadata   *metadata.Tables
	Thresholds *Thresholds
	// Start and End bound the reported events to [Start, End). Zero values
	// leave that side open.
	Start time.Time
	End   time.Time
	// Reports restricts the run to the named reports. Empty means all.
	Reports []string
}

type Result struct {
	Tables []Table
	Totals Totals
	Stats  NormalizeStats
	// Scored holds the events inside the window, in chronological order.
	Scored []ScoredEvent
}

// Table returns the named table of the result.
func (r *Result) Table(name string) (Table, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Run normalizes and scores the full history, then builds reports over the
// events that fall inside the requested window. Canonical URIs and streaks are
// always derived from everything in events, so a window never changes how an
// event is scored.
func Run(events []history.RawEvent, opts Options) (*Result, error) {
	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	specs, err := selectReports(opts)
	if err != nil {
		return nil, err
	}

	canonical, stats := Normalize(events, opts.Metadata)
	scored := inWindow(ScoreAll(canonical), opts.Start, opts.End)

	result := &Result{
		Totals: totals(scored),
		Stats:  stats,
		Scored: scored,
	}

	var eventRows, genreRows []Row
	for _, spec := range specs {
		var rows []Row
		switch spec.Source {
		case GenreSource:
			if genreRows == nil {
				genreRows = GenreRows(scored, func(e ScoredEvent) []string {
					return opts.Metadata.Genres(history.TrackID(e.CanonicalURI), e.Artist.String)
				})
			}
			rows = genreRows
		default:
			if eventRows == nil {
				eventRows = EventRows(scored)
			}
			rows = eventRows
		}
		result.Tables = append(result.Tables, Build(spec, rows))
	}
	return result, nil
}

func selectReports(opts Options) ([]ReportSpec, error) {
	th := DefaultThresholds()
	if opts.Thresholds != nil {
		th = *opts.Thresholds
	}

	all := Reports(th)
	if len(opts.Reports) == 0 {
		var specs []ReportSpec
		for _, spec := range all {
			if spec.Source == GenreSource && opts.Metadata.Empty() {
				continue
			}
			specs = append(specs, spec)
		}
		return specs, nil
	}

	byName := make(map[string]ReportSpec, len(all))
	for _, spec := range all {
		byName[spec.Name] = spec
	}
	specs := make([]ReportSpec, 0, len(opts.Reports))
	for _, name := range opts.Reports {
		spec, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownReport, name)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// ReportNames lists every report name in output order.
func ReportNames() []string {
	var names []string
	for _, spec := range Reports(DefaultThresholds()) {
		names = append(names, spec.Name)
	}
	return names
}

func inWindow(events []ScoredEvent, start, end time.Time) []ScoredEvent {
	if start.IsZero() && end.IsZero() {
		return events
	}
	var out []ScoredEvent
	for _, e := range events {
		if !start.IsZero() && e.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && !e.Timestamp.Before(end) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func totals(events []ScoredEvent) Totals {
	tracks := make(map[string]struct{})
	artists := make(map[history.Pair]struct{})
	var t Totals
	for _, e := range events {
		t.Hours += e.Hours
		t.Plays += e.Plays
		tracks[e.CanonicalURI] = struct{}{}
		artists[history.Pair{Artist: e.Artist}] = struct{}{}
	}
	t.Tracks = len(tracks)
	t.Artists = len(artists)
	return t
}
