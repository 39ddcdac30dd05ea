package analysis

import (
	"database/sql"
)

// Value columns carried by rows.
const (
	ColHours         = "hours_played"
	ColPlays         = "plays"
	ColScore         = "score"
	ColWeight        = "weight"
	ColWeightedScore = "weighted_score"
	ColDayHours      = "day_hours"
	ColMaxDayHours   = "max_day_hours"
	ColMaxPlayHours  = "max_play_hours"

	ColSecondsPerPlay   = "seconds_per_play"
	ColAssumedLength    = "assumed_song_length_minute"
	ColRelAverageListen = "rel_avg_listen"
)

// Key columns.
const (
	KeyArtist = "artist"
	KeyTrack  = "track"
	KeyURI    = "uri"
	KeyDay    = "day"
	KeyGenre  = "genre"
)

const dayFormat = "2006-01-02"

// Key is the grouping identity of a row. Unused fields stay zero.
type Key struct {
	Artist sql.NullString
	Track  sql.NullString
	URI    string
	Day    string
	Genre  string
}

// Column returns the named key column. Null names report valid == false.
func (k Key) Column(name string) (value string, valid bool) {
	switch name {
	case KeyArtist:
		return k.Artist.String, k.Artist.Valid
	case KeyTrack:
		return k.Track.String, k.Track.Valid
	case KeyURI:
		return k.URI, true
	case KeyDay:
		return k.Day, true
	case KeyGenre:
		return k.Genre, true
	}
	return "", false
}

// Row is one line of an aggregated table.
type Row struct {
	Key    Key
	Values map[string]float64
}

// KeyFunc projects a key onto the fields a grouping uses.
type KeyFunc func(Key) Key

func ByArtist(k Key) Key { return Key{Artist: k.Artist} }

func ByTrack(k Key) Key { return Key{Artist: k.Artist, Track: k.Track, URI: k.URI} }

func ByTrackDay(k Key) Key { return Key{Artist: k.Artist, Track: k.Track, URI: k.URI, Day: k.Day} }

func ByGenre(k Key) Key { return Key{Genre: k.Genre} }

type Reducer int

const (
	Sum Reducer = iota
	Max
)

// Reduction folds column In of every row in a group into column Out.
type Reduction struct {
	Out    string
	In     string
	Reduce Reducer
}

// Aggregate groups rows by key and reduces each group to a single row. A
// group exists only if at least one input row maps to it. Callers must not
// depend on the order of the result.
func Aggregate(rows []Row, key KeyFunc, reductions []Reduction) []Row {
	index := make(map[Key]int)
	var out []Row
	for _, r := range rows {
		k := key(r.Key)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			values := make(map[string]float64, len(reductions))
			for _, red := range reductions {
				values[red.Out] = r.Values[red.In]
			}
			out = append(out, Row{Key: k, Values: values})
			continue
		}

		values := out[i].Values
		for _, red := range reductions {
			v := r.Values[red.In]
			switch red.Reduce {
			case Sum:
				values[red.Out] += v
			case Max:
				if v > values[red.Out] {
					values[red.Out] = v
				}
			}
		}
	}
	return out
}

// EventRows turns scored events into rows keyed by artist, track, canonical
// URI and UTC day.
func EventRows(events []ScoredEvent) []Row {
	rows := make([]Row, len(events))
	for i, e := range events {
		rows[i] = Row{
			Key: Key{
				Artist: e.Artist,
				Track:  e.Track,
				URI:    e.CanonicalURI,
				Day:    e.Timestamp.UTC().Format(dayFormat),
			},
			Values: map[string]float64{
				ColHours:         e.Hours,
				ColPlays:         float64(e.Plays),
				ColScore:         e.Score,
				ColWeight:        e.Weight,
				ColWeightedScore: e.Score * e.Weight,
			},
		}
	}
	return rows
}

// GenreRows emits one row per (event, genre) pair. Events with no known
// genre are left out.
func GenreRows(events []ScoredEvent, genres func(ScoredEvent) []string) []Row {
	var rows []Row
	for _, e := range events {
		for _, g := range genres(e) {
			rows = append(rows, Row{
				Key: Key{Genre: g},
				Values: map[string]float64{
					ColHours: e.Hours,
					ColPlays: float64(e.Plays),
				},
			})
		}
	}
	return rows
}
