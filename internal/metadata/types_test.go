package metadata

import "testing"

func TestTablesLookups(t *testing.T) {
	var none *Tables
	if _, ok := none.DurationMs("x"); ok {
		t.Errorf("nil tables reported a duration")
	}
	if !none.Empty() || none.Genres("x", "A") != nil {
		t.Errorf("nil tables are not empty")
	}

	tables := NewTables()
	if !tables.Empty() {
		t.Errorf("new tables are not empty")
	}
	tables.Tracks["t1"] = Track{ID: "t1", DurationMs: 1000, ArtistIDs: []string{"a1", "a2"}}
	tables.Tracks["t2"] = Track{ID: "t2", ArtistIDs: []string{"a2"}}
	tables.Artists["a1"] = Artist{ID: "a1", Genres: []string{"jazz"}}
	tables.Artists["a2"] = Artist{ID: "a2"}
	tables.Tags["Band"] = []string{"post-rock"}

	if d, ok := tables.DurationMs("t1"); !ok || d != 1000 {
		t.Errorf("DurationMs(t1) = %d, %v", d, ok)
	}
	if _, ok := tables.DurationMs("t2"); ok {
		t.Errorf("zero duration reported as known")
	}

	tests := []struct {
		track, artist string
		want          string
	}{
		{"t1", "Band", "jazz"},
		{"t2", "Band", "post-rock"},
		{"unknown", "Band", "post-rock"},
		{"unknown", "Other", ""},
	}
	for _, tt := range tests {
		got := tables.Genres(tt.track, tt.artist)
		first := ""
		if len(got) > 0 {
			first = got[0]
		}
		if first != tt.want {
			t.Errorf("Genres(%q, %q) = %v, want first genre %q", tt.track, tt.artist, got, tt.want)
		}
	}
}
