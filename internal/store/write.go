package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ademuri/spotify-history-tools/internal/history"
	"github.com/ademuri/spotify-history-tools/internal/metadata"
)

// AddEvents inserts a batch of events transactionally, preserving their
// order. Events already present (same timestamp, URI and duration) are
// skipped, so importing the same export twice is harmless. Returns the number
// of newly stored events.
func (s *Store) AddEvents(events []history.RawEvent) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO Event (ts, ms_played, track, artist, uri, reason_start, reason_end)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	var added int64
	for _, e := range events {
		res, err := stmt.Exec(e.Timestamp.Unix(), e.MsPlayed, e.Track, e.Artist, e.URI, e.ReasonStart, e.ReasonEnd)
		if err != nil {
			return 0, fmt.Errorf("inserting event %s at %s: %w", e.URI, e.Timestamp.Format(time.RFC3339), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("inserting event: %w", err)
		}
		added += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return added, nil
}

func (s *Store) SetLastImported(imported time.Time) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO ImportState (name, value) VALUES ('last_imported', ?)", imported)
	if err != nil {
		return fmt.Errorf("updating last_imported: %w", err)
	}
	return nil
}

// Metadata Operations

func (s *Store) SaveTracks(tracks []metadata.Track) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range tracks {
		artists, err := json.Marshal(t.ArtistIDs)
		if err != nil {
			return fmt.Errorf("encoding artists of track %q: %w", t.ID, err)
		}
		_, err = tx.Exec(
			"INSERT OR REPLACE INTO TrackMeta (id, name, duration_ms, popularity, is_local, album, artists) VALUES (?, ?, ?, ?, ?, ?, ?)",
			t.ID, t.Name, t.DurationMs, t.Popularity, t.IsLocal, t.AlbumID, string(artists))
		if err != nil {
			return fmt.Errorf("saving track %q: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) SaveArtists(artists []metadata.Artist) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, a := range artists {
		genres, err := json.Marshal(a.Genres)
		if err != nil {
			return fmt.Errorf("encoding genres of artist %q: %w", a.ID, err)
		}
		_, err = tx.Exec(
			"INSERT OR REPLACE INTO ArtistMeta (id, name, popularity, genres) VALUES (?, ?, ?, ?)",
			a.ID, a.Name, a.Popularity, string(genres))
		if err != nil {
			return fmt.Errorf("saving artist %q: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) SaveAlbums(albums []metadata.Album) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, a := range albums {
		genres, err := json.Marshal(a.Genres)
		if err != nil {
			return fmt.Errorf("encoding genres of album %q: %w", a.ID, err)
		}
		_, err = tx.Exec(
			"INSERT OR REPLACE INTO AlbumMeta (id, name, popularity, release_date, genres) VALUES (?, ?, ?, ?, ?)",
			a.ID, a.Name, a.Popularity, a.ReleaseDate, string(genres))
		if err != nil {
			return fmt.Errorf("saving album %q: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// Tag Operations

func (s *Store) SaveArtistTags(artist string, tags []string, counts []int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM ArtistTag WHERE artist = ?", artist); err != nil {
		return fmt.Errorf("clearing tags of artist %q: %w", artist, err)
	}
	for i, tag := range tags {
		count := 0
		if i < len(counts) {
			count = counts[i]
		}

		_, err := tx.Exec("INSERT OR REPLACE INTO ArtistTag (artist, tag, count) VALUES (?, ?, ?)", artist, tag, count)
		if err != nil {
			return fmt.Errorf("linking tag %q to artist %q: %w", tag, artist, err)
		}
	}

	if err := s.MarkArtistTagsUpdated(tx, artist); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) MarkArtistTagsUpdated(tx *sql.Tx, artist string) error {
	query := "INSERT OR REPLACE INTO TagState (artist, tags_last_updated) VALUES (?, ?)"

	var err error
	if tx != nil {
		_, err = tx.Exec(query, artist, time.Now())
	} else {
		_, err = s.db.Exec(query, artist, time.Now())
	}

	if err != nil {
		return fmt.Errorf("updating artist tag timestamp: %w", err)
	}
	return nil
}
