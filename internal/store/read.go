package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ademuri/spotify-history-tools/internal/history"
	"github.com/ademuri/spotify-history-tools/internal/metadata"
)

// Events returns every stored event in import order.
func (s *Store) Events() ([]history.RawEvent, error) {
	rows, err := s.db.Query(`
		SELECT ts, ms_played, track, artist, uri, reason_start, reason_end
		FROM Event
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []history.RawEvent
	for rows.Next() {
		var e history.RawEvent
		var ts int64
		if err := rows.Scan(&ts, &e.MsPlayed, &e.Track, &e.Artist, &e.URI, &e.ReasonStart, &e.ReasonEnd); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) CountEvents() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM Event").Scan(&count)
	return count, err
}

func (s *Store) GetLastImported() (time.Time, error) {
	row := s.db.QueryRow("SELECT value FROM ImportState WHERE name = 'last_imported'")
	var t sql.NullTime
	err := row.Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("getting last imported: %w", err)
	}
	return t.Time, nil
}

// Metadata loads every cached metadata table.
func (s *Store) Metadata() (*metadata.Tables, error) {
	tables := metadata.NewTables()

	trackRows, err := s.db.Query("SELECT id, name, duration_ms, popularity, is_local, album, artists FROM TrackMeta")
	if err != nil {
		return nil, fmt.Errorf("querying tracks: %w", err)
	}
	defer trackRows.Close()
	for trackRows.Next() {
		var t metadata.Track
		var artists string
		if err := trackRows.Scan(&t.ID, &t.Name, &t.DurationMs, &t.Popularity, &t.IsLocal, &t.AlbumID, &artists); err != nil {
			return nil, fmt.Errorf("scanning track: %w", err)
		}
		if err := decodeList(artists, &t.ArtistIDs); err != nil {
			return nil, fmt.Errorf("decoding artists of track %q: %w", t.ID, err)
		}
		tables.Tracks[t.ID] = t
	}
	if err := trackRows.Err(); err != nil {
		return nil, err
	}

	artistRows, err := s.db.Query("SELECT id, name, popularity, genres FROM ArtistMeta")
	if err != nil {
		return nil, fmt.Errorf("querying artists: %w", err)
	}
	defer artistRows.Close()
	for artistRows.Next() {
		var a metadata.Artist
		var genres string
		if err := artistRows.Scan(&a.ID, &a.Name, &a.Popularity, &genres); err != nil {
			return nil, fmt.Errorf("scanning artist: %w", err)
		}
		if err := decodeList(genres, &a.Genres); err != nil {
			return nil, fmt.Errorf("decoding genres of artist %q: %w", a.ID, err)
		}
		tables.Artists[a.ID] = a
	}
	if err := artistRows.Err(); err != nil {
		return nil, err
	}

	albumRows, err := s.db.Query("SELECT id, name, popularity, release_date, genres FROM AlbumMeta")
	if err != nil {
		return nil, fmt.Errorf("querying albums: %w", err)
	}
	defer albumRows.Close()
	for albumRows.Next() {
		var a metadata.Album
		var genres string
		if err := albumRows.Scan(&a.ID, &a.Name, &a.Popularity, &a.ReleaseDate, &genres); err != nil {
			return nil, fmt.Errorf("scanning album: %w", err)
		}
		if err := decodeList(genres, &a.Genres); err != nil {
			return nil, fmt.Errorf("decoding genres of album %q: %w", a.ID, err)
		}
		tables.Albums[a.ID] = a
	}
	if err := albumRows.Err(); err != nil {
		return nil, err
	}

	tagRows, err := s.db.Query("SELECT artist, tag FROM ArtistTag ORDER BY artist, count DESC, tag")
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var artist, tag string
		if err := tagRows.Scan(&artist, &tag); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tables.Tags[artist] = append(tables.Tags[artist], tag)
	}
	return tables, tagRows.Err()
}

func decodeList(raw string, out *[]string) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

var metadataTables = map[metadata.Kind]string{
	metadata.KindTrack:  "TrackMeta",
	metadata.KindAlbum:  "AlbumMeta",
	metadata.KindArtist: "ArtistMeta",
}

// CachedIDs returns the ids already stored for one kind of metadata.
func (s *Store) CachedIDs(kind metadata.Kind) (map[string]bool, error) {
	table, ok := metadataTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown metadata kind %q", kind)
	}

	rows, err := s.db.Query(fmt.Sprintf("SELECT id FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("querying %s ids: %w", table, err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// Tag Update Helpers

// GetArtistsNeedingTagUpdate returns artists with more than minPlays stored
// events whose tags were never fetched or are older than interval.
func (s *Store) GetArtistsNeedingTagUpdate(interval time.Duration, minPlays int) ([]string, error) {
	threshold := time.Now().Add(-interval)
	query := `
		SELECT e.artist
		FROM Event e
		LEFT JOIN TagState ts ON e.artist = ts.artist
		WHERE e.artist IS NOT NULL
		AND (ts.tags_last_updated IS NULL OR ts.tags_last_updated < ?)
		GROUP BY e.artist
		HAVING COUNT(*) > ?
		ORDER BY COUNT(*) DESC, e.artist
	`
	rows, err := s.db.Query(query, threshold, minPlays)
	if err != nil {
		return nil, fmt.Errorf("querying artists for tag update: %w", err)
	}
	defer rows.Close()

	var artists []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}
