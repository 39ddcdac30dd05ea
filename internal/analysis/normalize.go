package analysis

import (
	"sort"

	"github.com/ademuri/spotify-history-tools/internal/history"
	"github.com/ademuri/spotify-history-tools/internal/metadata"
)

const (
	msPerSecond = 1000
	msPerHour   = 1000 * 3600
)

// Normalize filters events down to well-formed track playbacks, resolves each
// (artist, track) pair to a single canonical URI and derives the per-event
// quantities the scorer needs. The result is in chronological order; events
// with equal timestamps keep their input order.
//
// The canonical URI of a pair is the URI of its latest event, so a re-release
// that changed the URI pulls all older plays onto the current one. This needs
// the whole history up front, hence the two passes.
func Normalize(events []history.RawEvent, meta *metadata.Tables) ([]CanonicalEvent, NormalizeStats) {
	stats := NormalizeStats{Input: len(events)}

	valid := make([]history.RawEvent, 0, len(events))
	for _, e := range events {
		if !history.IsTrackURI(e.URI) {
			stats.Dropped++
			continue
		}
		valid = append(valid, e)
	}

	canonical := resolveCanonicalURIs(valid)
	stats.Pairs = len(canonical)

	out := make([]CanonicalEvent, len(valid))
	for i, e := range valid {
		uri := canonical[e.Pair()]
		if uri != e.URI {
			stats.Redirected++
		}
		out[i] = CanonicalEvent{
			RawEvent:     e,
			CanonicalURI: uri,
			Hours:        float64(e.MsPlayed) / msPerHour,
			Seconds:      float64(e.MsPlayed) / msPerSecond,
			Plays:        1,
		}
	}

	durations := EstimateDurations(out, meta)
	for i := range out {
		out[i].DurationMs = durations[out[i].CanonicalURI]
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, stats
}

// resolveCanonicalURIs maps every pair to the URI of its temporally-last
// event. On equal timestamps the later event in input order wins.
func resolveCanonicalURIs(events []history.RawEvent) map[history.Pair]string {
	last := make(map[history.Pair]history.RawEvent)
	for _, e := range events {
		p := e.Pair()
		cur, ok := last[p]
		if !ok || !e.Timestamp.Before(cur.Timestamp) {
			last[p] = e
		}
	}

	canonical := make(map[history.Pair]string, len(last))
	for p, e := range last {
		canonical[p] = e.URI
	}
	return canonical
}
