package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ademuri/spotify-history-tools/internal/analysis"
	"github.com/ademuri/spotify-history-tools/internal/logger"
	"github.com/ademuri/spotify-history-tools/internal/metadata"
	"github.com/ademuri/spotify-history-tools/internal/store"
)

// newSpotifyServer answers every lookup with one album and one artist per
// track, tagged "rock".
func newSpotifyServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		endpoint := strings.TrimPrefix(r.URL.Path, "/v1/")
		var items []interface{}
		for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
			switch endpoint {
			case "tracks":
				items = append(items, map[string]interface{}{
					"id":          id,
					"name":        "Track",
					"duration_ms": 240000,
					"album":       map[string]string{"id": "album-" + id},
					"artists":     []map[string]string{{"id": "artist-" + id}},
				})
			case "albums":
				items = append(items, map[string]interface{}{"id": id, "name": "Album"})
			case "artists":
				items = append(items, map[string]interface{}{"id": id, "name": "Artist", "genres": []string{"rock"}})
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{endpoint: items})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchMetadata(t *testing.T) {
	dbPath := importedDb(t)
	srv := newSpotifyServer(t)
	config := FetchMetadataConfig{
		DbPath: dbPath,
		Spotify: metadata.SpotifyConfig{
			ClientID:     "id",
			ClientSecret: "secret",
			BaseURL:      srv.URL,
			TokenURL:     srv.URL + "/api/token",
			Interval:     time.Millisecond,
		},
	}

	stats, err := fetchMetadata(context.Background(), logger.NewNop(), config)
	if err != nil {
		t.Fatalf("fetchMetadata: %v", err)
	}
	// The local file is not a Spotify track and is never looked up.
	if stats.Tracks != 2 || stats.Albums != 2 || stats.Artists != 2 {
		t.Fatalf("Unexpected stats %+v", stats)
	}

	stats, err = fetchMetadata(context.Background(), logger.NewNop(), config)
	if err != nil {
		t.Fatalf("second fetchMetadata: %v", err)
	}
	if stats != (metadata.FetchStats{}) {
		t.Fatalf("Expected everything to be cached, fetched %+v", stats)
	}

	th := analysis.DefaultThresholds()
	th.MinGenreHours = 0
	result, err := writeReports(logger.NewNop(), ReportConfig{
		DbPath:      dbPath,
		OutDir:      t.TempDir(),
		Format:      "csv",
		UseMetadata: true,
		Thresholds:  th,
	})
	if err != nil {
		t.Fatalf("writeReports: %v", err)
	}
	genres, ok := result.Table(analysis.ReportGenres)
	if !ok || len(genres.Rows) != 1 || genres.Rows[0].Key.Genre != "rock" {
		t.Fatalf("Expected a single rock genre, got %+v", genres)
	}
}

func TestFetchMetadata_errors(t *testing.T) {
	emptyDb := filepath.Join(t.TempDir(), "empty.db")
	_, err := fetchMetadata(context.Background(), logger.NewNop(), FetchMetadataConfig{DbPath: emptyDb})
	if err == nil || !strings.Contains(err.Error(), "Run 'import' first") {
		t.Fatalf("Expected an error for an empty database, got %v", err)
	}

	dbPath := importedDb(t)
	_, err = fetchMetadata(context.Background(), logger.NewNop(), FetchMetadataConfig{DbPath: dbPath})
	if err == nil || !strings.Contains(err.Error(), "client id") {
		t.Fatalf("Expected a missing credentials error, got %v", err)
	}
}

type fakeTagSource map[string][]string

func (f fakeTagSource) ArtistTopTags(ctx context.Context, artist string) ([]string, []int, error) {
	tags, ok := f[artist]
	if !ok {
		return nil, nil, errors.New("The artist you supplied could not be found")
	}
	return tags, make([]int, len(tags)), nil
}

func TestFetchTags(t *testing.T) {
	dbPath := importedDb(t)
	src := fakeTagSource{"Alpha": {"shoegaze", "dream pop"}}
	config := FetchTagsConfig{DbPath: dbPath, TagUpdateInterval: time.Hour, MinPlays: 10}

	updated, err := fetchTags(context.Background(), logger.NewNop(), src, config)
	if err != nil {
		t.Fatalf("fetchTags: %v", err)
	}
	// Beta & Gamma is looked up but unknown to last.fm.
	if updated != 1 {
		t.Fatalf("Expected 1 artist updated, got %d", updated)
	}

	db, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer db.Close()
	tables, err := db.Metadata()
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if got := tables.Tags["Alpha"]; len(got) != 2 {
		t.Fatalf("Expected two tags for Alpha, got %v", got)
	}

	updated, err = fetchTags(context.Background(), logger.NewNop(), src, config)
	if err != nil {
		t.Fatalf("second fetchTags: %v", err)
	}
	if updated != 0 {
		t.Fatalf("Expected fresh tags to be kept, updated %d", updated)
	}
}

func TestPlayedTrackIDs(t *testing.T) {
	dbPath := importedDb(t)
	db, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer db.Close()
	events, err := db.Events()
	if err != nil {
		t.Fatalf("Events: %v", err)
	}

	ids := playedTrackIDs(events)
	want := []string{"0000000000000000000001", "0000000000000000000002"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Fatalf("playedTrackIDs() = %v, want %v", ids, want)
	}
}
