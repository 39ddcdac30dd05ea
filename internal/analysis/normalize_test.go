package analysis_test

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/ademuri/spotify-history-tools/internal/analysis"
	"github.com/ademuri/spotify-history-tools/internal/history"
)

var epoch = time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)

func uri(n int) string {
	return fmt.Sprintf("spotify:track:%022d", n)
}

func name(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// play builds a valid event minutes after epoch.
func play(minutes int, artist, track string, uriN int, ms int64, start, end string) history.RawEvent {
	return history.RawEvent{
		Timestamp:   epoch.Add(time.Duration(minutes) * time.Minute),
		MsPlayed:    ms,
		Artist:      name(artist),
		Track:       name(track),
		URI:         uri(uriN),
		ReasonStart: start,
		ReasonEnd:   end,
	}
}

func TestNormalizeDropsMalformedURIs(t *testing.T) {
	events := []history.RawEvent{
		play(0, "A", "T", 1, 1000, "clickrow", "trackdone"),
		{Timestamp: epoch, URI: "spotify:episode:0000000000000000000001", MsPlayed: 1000},
		{Timestamp: epoch, URI: "", MsPlayed: 1000},
		{Timestamp: epoch, URI: "spotify:track:short", MsPlayed: 1000},
	}

	got, stats := analysis.Normalize(events, nil)
	if len(got) != 1 {
		t.Fatalf("Normalize() kept %d events, want 1", len(got))
	}
	if stats.Input != 4 || stats.Dropped != 3 {
		t.Errorf("stats = %+v, want Input 4, Dropped 3", stats)
	}
}

func TestNormalizeCanonicalURI(t *testing.T) {
	// Input order deliberately differs from time order.
	events := []history.RawEvent{
		play(10, "A", "T", 2, 1000, "trackdone", "trackdone"),
		play(0, "A", "T", 1, 1000, "trackdone", "trackdone"),
		play(5, "B", "T", 3, 1000, "trackdone", "trackdone"),
	}

	got, stats := analysis.Normalize(events, nil)
	for _, e := range got {
		want := uri(2)
		if e.Artist.String == "B" {
			want = uri(3)
		}
		if e.CanonicalURI != want {
			t.Errorf("event at %v has canonical URI %s, want %s", e.Timestamp, e.CanonicalURI, want)
		}
	}
	if stats.Pairs != 2 {
		t.Errorf("stats.Pairs = %d, want 2", stats.Pairs)
	}
	if stats.Redirected != 1 {
		t.Errorf("stats.Redirected = %d, want 1", stats.Redirected)
	}
}

func TestNormalizeTiesPreferLaterInput(t *testing.T) {
	events := []history.RawEvent{
		play(0, "A", "T", 1, 1000, "trackdone", "trackdone"),
		play(0, "A", "T", 2, 1000, "trackdone", "trackdone"),
	}

	got, _ := analysis.Normalize(events, nil)
	for _, e := range got {
		if e.CanonicalURI != uri(2) {
			t.Errorf("CanonicalURI = %s, want %s", e.CanonicalURI, uri(2))
		}
	}
	if got[0].URI != uri(1) || got[1].URI != uri(2) {
		t.Errorf("events with equal timestamps were reordered")
	}
}

func TestNormalizeNullNamesGroupTogether(t *testing.T) {
	a := play(0, "", "", 1, 1000, "trackdone", "trackdone")
	a.Artist, a.Track = sql.NullString{}, sql.NullString{}
	b := play(1, "", "", 2, 1000, "trackdone", "trackdone")
	b.Artist, b.Track = sql.NullString{}, sql.NullString{}
	// An empty but present name is a different key from a null one.
	c := play(2, "", "", 3, 1000, "trackdone", "trackdone")

	got, stats := analysis.Normalize([]history.RawEvent{a, b, c}, nil)
	if got[0].CanonicalURI != uri(2) || got[1].CanonicalURI != uri(2) {
		t.Errorf("null pair resolved to %s and %s, want %s", got[0].CanonicalURI, got[1].CanonicalURI, uri(2))
	}
	if got[2].CanonicalURI != uri(3) {
		t.Errorf("empty-name pair resolved to %s, want %s", got[2].CanonicalURI, uri(3))
	}
	if stats.Pairs != 2 {
		t.Errorf("stats.Pairs = %d, want 2", stats.Pairs)
	}
}

func TestNormalizeDerivedQuantities(t *testing.T) {
	got, _ := analysis.Normalize([]history.RawEvent{
		play(1, "A", "T", 1, 90000, "trackdone", "trackdone"),
		play(0, "A", "T", 1, 180000, "trackdone", "trackdone"),
	}, nil)

	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Fatalf("events not in chronological order")
	}
	e := got[0]
	if e.Seconds != 180 {
		t.Errorf("Seconds = %v, want 180", e.Seconds)
	}
	if e.Hours != 0.05 {
		t.Errorf("Hours = %v, want 0.05", e.Hours)
	}
	if e.Plays != 1 {
		t.Errorf("Plays = %d, want 1", e.Plays)
	}
	for _, e := range got {
		if e.DurationMs != 180000 {
			t.Errorf("DurationMs = %d, want 180000", e.DurationMs)
		}
	}
}
