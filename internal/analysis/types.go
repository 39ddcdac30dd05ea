package analysis

import (
	"github.com/ademuri/spotify-history-tools/internal/history"
)

// CanonicalEvent is a track playback whose URI has been resolved to the one
// canonical URI of its (artist, track) pair.
type CanonicalEvent struct {
	history.RawEvent

	CanonicalURI string
	Hours        float64
	Seconds      float64
	Plays        int
	// DurationMs is the track length used to judge completion. Always > 0.
	DurationMs int64
}

// ScoredEvent carries the engagement signal derived for one playback.
type ScoredEvent struct {
	CanonicalEvent

	// Streak is the number of immediately preceding events, across the whole
	// history, that started because the previous track finished.
	Streak  int
	RelTime float64
	Score   float64
	Weight  float64
}

// NormalizeStats describes what the normalizer did to its input.
type NormalizeStats struct {
	Input   int `yaml:"input"`
	Dropped int `yaml:"dropped"`
	Pairs   int `yaml:"pairs"`
	// Redirected counts events whose URI was replaced by the canonical one.
	Redirected int `yaml:"redirected"`
}

// Totals summarise the events a report run covered.
type Totals struct {
	Hours   float64 `yaml:"hours_played"`
	Plays   int     `yaml:"plays"`
	Tracks  int     `yaml:"tracks"`
	Artists int     `yaml:"artists"`
}
