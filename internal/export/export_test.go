package export

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ademuri/spotify-history-tools/internal/analysis"
	"github.com/ademuri/spotify-history-tools/internal/history"
	"gopkg.in/yaml.v3"
)

func testTable() analysis.Table {
	return analysis.Table{
		Name:       "tracks",
		KeyColumns: []string{analysis.KeyArtist, analysis.KeyTrack, analysis.KeyURI},
		Columns:    []string{analysis.ColHours, analysis.ColPlays},
		Rows: []analysis.Row{
			{
				Key: analysis.Key{
					Artist: sql.NullString{String: "Big, Band", Valid: true},
					Track:  sql.NullString{String: "Song", Valid: true},
					URI:    "spotify:track:0000000000000000000001",
				},
				Values: map[string]float64{analysis.ColHours: 0.25, analysis.ColPlays: 3},
			},
			{
				Key: analysis.Key{
					Track: sql.NullString{String: "Untitled", Valid: true},
					URI:   "spotify:track:0000000000000000000002",
				},
				Values: map[string]float64{analysis.ColHours: 1.0 / 3, analysis.ColPlays: 1},
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testTable()); err != nil {
		t.Fatalf("WriteCSV() failed: %v", err)
	}
	want := "artist,track,uri,hours_played,plays\n" +
		"\"Big, Band\",Song,spotify:track:0000000000000000000001,0.25,3\n" +
		",Untitled,spotify:track:0000000000000000000002,0.3333333333333333,1\n"
	if buf.String() != want {
		t.Errorf("WriteCSV() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, testTable()); err != nil {
		t.Fatalf("WriteJSON() failed: %v", err)
	}
	var got []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d objects, want 2", len(got))
	}
	if got[0]["artist"] != "Big, Band" || got[0]["plays"] != 3.0 {
		t.Errorf("first object = %v", got[0])
	}
	if v, ok := got[1]["artist"]; !ok || v != nil {
		t.Errorf("null artist encoded as %v (present %v), want null", v, ok)
	}
}

func TestWriteFilesIsReproducible(t *testing.T) {
	var events []history.RawEvent
	base := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		start := history.ReasonTrackDone
		if i%3 == 0 {
			start = history.ReasonClickRow
		}
		events = append(events, history.RawEvent{
			Timestamp:   base.Add(time.Duration(i) * 3 * time.Minute),
			MsPlayed:    int64(20000 + i*5000),
			Artist:      sql.NullString{String: fmt.Sprintf("Artist %d", i%3), Valid: true},
			Track:       sql.NullString{String: fmt.Sprintf("Track %d", i%7), Valid: true},
			URI:         fmt.Sprintf("spotify:track:%022d", i%7),
			ReasonStart: start,
			ReasonEnd:   history.ReasonFwdBtn,
		})
	}

	write := func(dir string) map[string][]byte {
		result, err := analysis.Run(events, analysis.Options{Thresholds: &analysis.Thresholds{}})
		if err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		paths, err := WriteFiles(dir, FormatCSV, result.Tables)
		if err != nil {
			t.Fatalf("WriteFiles() failed: %v", err)
		}
		out := make(map[string][]byte)
		for _, p := range paths {
			b, err := os.ReadFile(p)
			if err != nil {
				t.Fatalf("reading %s: %v", p, err)
			}
			out[filepath.Base(p)] = b
		}
		return out
	}

	first := write(filepath.Join(t.TempDir(), "a"))
	second := write(filepath.Join(t.TempDir(), "b"))
	if len(first) == 0 {
		t.Fatalf("no files written")
	}
	for name, b := range first {
		if !bytes.Equal(b, second[name]) {
			t.Errorf("%s differs between runs", name)
		}
	}
	if _, ok := first["track_scores.csv"]; !ok {
		t.Errorf("track_scores.csv not written")
	}
}

func TestWriteFilesErrors(t *testing.T) {
	if _, err := WriteFiles(t.TempDir(), "xml", nil); err == nil {
		t.Errorf("WriteFiles() with unknown format succeeded")
	}

	// A file where the output directory should be.
	blocker := filepath.Join(t.TempDir(), "out")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	_, err := WriteFiles(blocker, FormatCSV, []analysis.Table{testTable()})
	if err == nil {
		t.Errorf("WriteFiles() into a file succeeded")
	}
}

func TestWriteSummary(t *testing.T) {
	result := &analysis.Result{
		Tables: []analysis.Table{testTable()},
		Totals: analysis.Totals{Hours: 1.5, Plays: 4, Tracks: 2, Artists: 1},
		Stats:  analysis.NormalizeStats{Input: 5, Dropped: 1},
	}
	path := filepath.Join(t.TempDir(), "summary.yaml")
	s := NewSummary("run-1", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), result)
	if err := WriteSummary(path, s); err != nil {
		t.Fatalf("WriteSummary() failed: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Summary
	if err := yaml.Unmarshal(b, &got); err != nil {
		t.Fatalf("summary is not YAML: %v", err)
	}
	if got.RunID != "run-1" || got.Totals.Plays != 4 || got.Normalize.Dropped != 1 || got.Reports["tracks"] != 2 {
		t.Errorf("summary = %+v", got)
	}
}

func TestMetricsTextfile(t *testing.T) {
	m := NewMetrics()
	m.Observe(&analysis.Result{
		Tables: []analysis.Table{testTable()},
		Totals: analysis.Totals{Hours: 2, Plays: 7},
		Stats:  analysis.NormalizeStats{Input: 9, Dropped: 2, Redirected: 1},
	})

	path := filepath.Join(t.TempDir(), "spotify_history.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() failed: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"spotify_history_events_input_total 9",
		"spotify_history_events_dropped_total 2",
		"spotify_history_plays 7",
		`spotify_history_report_rows{report="tracks"} 2`,
	} {
		if !strings.Contains(string(b), want) {
			t.Errorf("textfile missing %q:\n%s", want, b)
		}
	}
}
