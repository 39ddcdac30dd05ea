// Package history reads Spotify extended streaming-history exports.
package history

import (
	"database/sql"
	"regexp"
	"strings"
	"time"
)

// Reason codes reported by Spotify for why playback started or ended.
const (
	ReasonTrackDone = "trackdone"
	ReasonFwdBtn    = "fwdbtn"
	ReasonBackBtn   = "backbtn"
	ReasonClickRow  = "clickrow"
)

const trackURIPrefix = "spotify:track:"

var trackURIPattern = regexp.MustCompile(`^spotify:track:[0-9A-Za-z]{22}$`)

// RawEvent is a single playback as recorded in the export.
type RawEvent struct {
	Timestamp   time.Time
	MsPlayed    int64
	Track       sql.NullString
	Artist      sql.NullString
	URI         string
	ReasonStart string
	ReasonEnd   string
}

// Pair identifies a track by its names. Null names are valid members of the
// key, so all events with a missing artist group together.
type Pair struct {
	Artist sql.NullString
	Track  sql.NullString
}

func (e RawEvent) Pair() Pair {
	return Pair{Artist: e.Artist, Track: e.Track}
}

// IsTrackURI reports whether uri has the shape of a Spotify track reference.
func IsTrackURI(uri string) bool {
	return trackURIPattern.MatchString(uri)
}

// TrackID returns the base-62 id at the end of a track URI.
func TrackID(uri string) string {
	return strings.TrimPrefix(uri, trackURIPrefix)
}

// TrackURI is the inverse of TrackID.
func TrackURI(id string) string {
	return trackURIPrefix + id
}
