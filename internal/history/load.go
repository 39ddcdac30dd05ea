package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// exportEntry mirrors one element of an "Streaming_History_Audio_*.json" file.
// Only the fields used downstream are decoded.
type exportEntry struct {
	Timestamp   string  `json:"ts"`
	MsPlayed    int64   `json:"ms_played"`
	Track       *string `json:"master_metadata_track_name"`
	Artist      *string `json:"master_metadata_album_artist_name"`
	URI         *string `json:"spotify_track_uri"`
	ReasonStart string  `json:"reason_start"`
	ReasonEnd   string  `json:"reason_end"`
}

// IsExportFile reports whether name looks like an audio history file.
func IsExportFile(name string) bool {
	return strings.HasSuffix(name, ".json") && strings.Contains(name, "Audio")
}

// LoadDir reads every audio history file in dir, in file name order, and
// concatenates their entries. Entries without a track URI (podcast episodes,
// audiobooks) are not tracks and are skipped.
func LoadDir(dir string) ([]RawEvent, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var events []RawEvent
	for _, entry := range entries {
		if entry.IsDir() || !IsExportFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		fileEvents, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		events = append(events, fileEvents...)
	}
	return events, nil
}

// LoadFile reads a single export file.
func LoadFile(path string) ([]RawEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw []exportEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	events := make([]RawEvent, 0, len(raw))
	for i, r := range raw {
		if r.URI == nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339, r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: entry %d: %w", path, i, err)
		}
		events = append(events, RawEvent{
			Timestamp:   ts.UTC(),
			MsPlayed:    r.MsPlayed,
			Track:       nullString(r.Track),
			Artist:      nullString(r.Artist),
			URI:         *r.URI,
			ReasonStart: r.ReasonStart,
			ReasonEnd:   r.ReasonEnd,
		})
	}
	return events, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
