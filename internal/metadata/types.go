// Package metadata fetches optional track, artist and album metadata that
// enriches the listening history.
package metadata

// Track is Spotify track metadata, keyed by the track's base-62 id.
type Track struct {
	ID         string
	Name       string
	DurationMs int64
	Popularity int
	IsLocal    bool
	AlbumID    string
	// At most the first five credited artists.
	ArtistIDs []string
}

type Artist struct {
	ID         string
	Name       string
	Popularity int
	Genres     []string
}

type Album struct {
	ID          string
	Name        string
	Popularity  int
	ReleaseDate string
	Genres      []string
}

// maxArtistsPerTrack bounds Track.ArtistIDs.
const maxArtistsPerTrack = 5

// Kind names one of the three metadata lookups.
type Kind string

const (
	KindTrack  Kind = "track"
	KindAlbum  Kind = "album"
	KindArtist Kind = "artist"
)

// Tables holds every piece of metadata known for a run. A nil *Tables or
// missing entries are valid and mean "unknown".
type Tables struct {
	Tracks  map[string]Track
	Artists map[string]Artist
	Albums  map[string]Album
	// Tags maps an artist name to its last.fm tags, most popular first.
	Tags map[string][]string
}

func NewTables() *Tables {
	return &Tables{
		Tracks:  make(map[string]Track),
		Artists: make(map[string]Artist),
		Albums:  make(map[string]Album),
		Tags:    make(map[string][]string),
	}
}

// DurationMs returns the known duration of a track, or false when there is no
// usable value.
func (t *Tables) DurationMs(trackID string) (int64, bool) {
	if t == nil {
		return 0, false
	}
	track, ok := t.Tracks[trackID]
	if !ok || track.DurationMs <= 0 {
		return 0, false
	}
	return track.DurationMs, true
}

// Genres returns the genres of a track's primary artist. Spotify genres are
// preferred; last.fm tags for artistName are the fallback.
func (t *Tables) Genres(trackID, artistName string) []string {
	if t == nil {
		return nil
	}
	if track, ok := t.Tracks[trackID]; ok && len(track.ArtistIDs) > 0 {
		if artist, ok := t.Artists[track.ArtistIDs[0]]; ok && len(artist.Genres) > 0 {
			return artist.Genres
		}
	}
	return t.Tags[artistName]
}

// Empty reports whether no metadata at all is available.
func (t *Tables) Empty() bool {
	return t == nil || len(t.Tracks)+len(t.Artists)+len(t.Albums)+len(t.Tags) == 0
}
