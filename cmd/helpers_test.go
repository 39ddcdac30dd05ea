package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ademuri/spotify-history-tools/internal/logger"
)

func testTrackURI(n int) string {
	return fmt.Sprintf("spotify:track:%022d", n)
}

func exportEntry(ts time.Time, ms int64, artist, track, uri, start, end string) map[string]interface{} {
	return map[string]interface{}{
		"ts":                                ts.Format(time.RFC3339),
		"ms_played":                         ms,
		"master_metadata_track_name":        track,
		"master_metadata_album_artist_name": artist,
		"spotify_track_uri":                 uri,
		"reason_start":                      start,
		"reason_end":                        end,
	}
}

// listeningHistory is twelve full plays of "Song A" in January 2023 and
// twenty-five skipped plays of "Song B" in February, plus one local file.
func listeningHistory() []map[string]interface{} {
	var entries []map[string]interface{}
	jan := time.Date(2023, 1, 10, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		entries = append(entries, exportEntry(jan.Add(time.Duration(i)*4*time.Minute), 200000,
			"Alpha", "Song A", testTrackURI(1), "trackdone", "trackdone"))
	}
	feb := time.Date(2023, 2, 5, 20, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		entries = append(entries, exportEntry(feb.Add(time.Duration(i)*10*time.Second), 6000,
			"Beta & Gamma", "Song <B>", testTrackURI(2), "clickrow", "fwdbtn"))
	}
	entries = append(entries, exportEntry(feb.Add(time.Hour), 90000,
		"Local", "Home Recording", "spotify:local:Local::Home+Recording:90", "clickrow", "trackdone"))
	return entries
}

func writeExport(t *testing.T, dir string, entries []map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	path := filepath.Join(dir, "Streaming_History_Audio_2023.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// importedDb imports listeningHistory into a fresh database and returns its
// path.
func importedDb(t *testing.T) string {
	t.Helper()
	dataDir := t.TempDir()
	writeExport(t, dataDir, listeningHistory())

	dbPath := filepath.Join(t.TempDir(), "spotify-history.db")
	if _, err := importHistory(logger.NewNop(), ImportConfig{DbPath: dbPath, DataDir: dataDir}); err != nil {
		t.Fatalf("importHistory: %v", err)
	}
	return dbPath
}
