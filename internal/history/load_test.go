package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleExport = `[
  {
    "ts": "2023-04-01T10:00:00Z",
    "ms_played": 215000,
    "master_metadata_track_name": "Song",
    "master_metadata_album_artist_name": "Band",
    "spotify_track_uri": "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
    "reason_start": "clickrow",
    "reason_end": "trackdone"
  },
  {
    "ts": "2023-04-01T10:05:00Z",
    "ms_played": 600000,
    "master_metadata_track_name": null,
    "master_metadata_album_artist_name": null,
    "spotify_track_uri": null,
    "spotify_episode_uri": "spotify:episode:0Q86acNRm6V9GYx55SXKwf",
    "reason_start": "trackdone",
    "reason_end": "endplay"
  },
  {
    "ts": "2023-04-01T10:15:00Z",
    "ms_played": 1000,
    "master_metadata_track_name": "Other",
    "master_metadata_album_artist_name": null,
    "spotify_track_uri": "spotify:track:1",
    "reason_start": "fwdbtn",
    "reason_end": "fwdbtn"
  }
]`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Streaming_History_Audio_2023.json", sampleExport)
	writeFile(t, dir, "Streaming_History_Video_2023.json", `[{"ts": "bogus"}]`)
	writeFile(t, dir, "notes.txt", "ignored")

	events, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 track events, got %d", len(events))
	}

	first := events[0]
	if !first.Timestamp.Equal(time.Date(2023, 4, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %v", first.Timestamp)
	}
	if first.MsPlayed != 215000 || first.Track.String != "Song" || first.Artist.String != "Band" {
		t.Errorf("unexpected event %+v", first)
	}
	if first.ReasonStart != ReasonClickRow || first.ReasonEnd != ReasonTrackDone {
		t.Errorf("unexpected reasons %q/%q", first.ReasonStart, first.ReasonEnd)
	}

	// Malformed URIs are kept here; the normalizer is responsible for them.
	if events[1].URI != "spotify:track:1" {
		t.Errorf("expected second event to keep its URI, got %q", events[1].URI)
	}
	if events[1].Artist.Valid {
		t.Errorf("expected null artist, got %q", events[1].Artist.String)
	}
}

func TestLoadFileInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Streaming_History_Audio_bad.json", `{"not": "an array"`)

	_, err := LoadDir(dir)
	if err == nil {
		t.Fatalf("LoadDir should have failed on invalid JSON")
	}
}

func TestIsTrackURI(t *testing.T) {
	tests := []struct {
		uri  string
		want bool
	}{
		{"spotify:track:4uLU6hMCjMI75M1A2tKUQC", true},
		{"spotify:track:4uLU6hMCjMI75M1A2tKUQ", false},
		{"spotify:episode:4uLU6hMCjMI75M1A2tKUQC", false},
		{"spotify:track:4uLU6hMCjMI75M1A2tKUQ!", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsTrackURI(tt.uri); got != tt.want {
			t.Errorf("IsTrackURI(%q) = %v, want %v", tt.uri, got, tt.want)
		}
	}
}

func TestTrackID(t *testing.T) {
	uri := "spotify:track:4uLU6hMCjMI75M1A2tKUQC"
	id := TrackID(uri)
	if id != "4uLU6hMCjMI75M1A2tKUQC" {
		t.Errorf("TrackID(%q) = %q", uri, id)
	}
	if TrackURI(id) != uri {
		t.Errorf("TrackURI(%q) = %q", id, TrackURI(id))
	}
}
