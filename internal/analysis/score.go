package analysis

import (
	"math"

	"github.com/ademuri/spotify-history-tools/internal/history"
	"github.com/ademuri/spotify-history-tools/internal/metadata"
)

// Hand-tuned engagement heuristics.
const (
	// Bounds for the duration guessed from the longest observed play.
	minEstimatedDurationMs = 2 * 60 * 1000
	maxEstimatedDurationMs = 5 * 60 * 1000

	// Allows slight overshoot from clock skew but caps looped playback.
	maxRelTime = 1.5

	// rel_time_3m: absolute listening time relative to three minutes.
	absoluteListenSeconds = 180

	baseScore            = 0.2
	completionPivot      = 0.5
	absoluteListenFactor = 0.1
	// Skipping after a passive run is an active rejection.
	skipPenaltyPerTrack = 0.3
	maxPenalizedStreak  = 5
	// Picking a row or going back to a track is a deliberate choice.
	deliberateBonus = 0.4

	passiveWeightScale  = 0.5
	passiveWeightOffset = 4
	// Back-skipping straight past a track is navigation.
	immediateBackSkipRelTime = 0.1
	immediateBackSkipWeight  = 0.3
)

// EstimateDurations returns a duration in ms for every canonical URI in
// events. Known metadata durations win; otherwise the longest observed play is
// used, clamped to [2 min, 5 min].
func EstimateDurations(events []CanonicalEvent, meta *metadata.Tables) map[string]int64 {
	longest := make(map[string]int64)
	for _, e := range events {
		if cur, ok := longest[e.CanonicalURI]; !ok || e.MsPlayed > cur {
			longest[e.CanonicalURI] = e.MsPlayed
		}
	}

	durations := make(map[string]int64, len(longest))
	for uri, ms := range longest {
		if known, ok := meta.DurationMs(history.TrackID(uri)); ok {
			durations[uri] = known
			continue
		}
		durations[uri] = clampInt(ms, minEstimatedDurationMs, maxEstimatedDurationMs)
	}
	return durations
}

// RelTime is the fraction of the track that was played, clamped to [0, 1.5].
func RelTime(e CanonicalEvent) float64 {
	duration := e.DurationMs
	if duration <= 0 {
		duration = minEstimatedDurationMs
	}
	return clamp(float64(e.MsPlayed)/float64(duration), 0, maxRelTime)
}

// nextStreak advances the natural-start counter by one event.
func nextStreak(streak int, reasonStart string) int {
	if reasonStart != history.ReasonTrackDone {
		return 0
	}
	return streak + 1
}

// Streaks returns, for each event, the counter of consecutive natural starts
// up to and including that event. events must be in chronological order.
func Streaks(events []CanonicalEvent) []int {
	out := make([]int, len(events))
	streak := 0
	for i, e := range events {
		streak = nextStreak(streak, e.ReasonStart)
		out[i] = streak
	}
	return out
}

// ScoreAll scores every event. The streak flows across artists, so this must
// be a single left-to-right pass over the whole chronological history.
func ScoreAll(events []CanonicalEvent) []ScoredEvent {
	out := make([]ScoredEvent, len(events))
	streak := 0
	for i, e := range events {
		out[i] = Score(e, streak)
		streak = nextStreak(streak, e.ReasonStart)
	}
	return out
}

// Score computes the engagement score and its reliability weight for one
// event, given the number of natural starts immediately preceding it.
func Score(e CanonicalEvent, streak int) ScoredEvent {
	relTime := RelTime(e)
	relTime3m := e.Seconds / absoluteListenSeconds

	score := baseScore
	score += relTime - completionPivot
	score += absoluteListenFactor * (relTime3m - completionPivot)
	if e.ReasonEnd == history.ReasonFwdBtn {
		score -= skipPenaltyPerTrack * clamp(float64(streak), 0, maxPenalizedStreak)
	}
	if e.ReasonStart == history.ReasonClickRow {
		score += deliberateBonus * relTime
	}
	if e.ReasonStart == history.ReasonBackBtn {
		score += deliberateBonus * relTime
	}

	weight := 1.0
	if e.ReasonEnd == history.ReasonTrackDone {
		// Long passive runs say little about any single track.
		weight /= passiveWeightScale * math.Sqrt(float64(streak+passiveWeightOffset))
	}
	if e.ReasonStart == history.ReasonBackBtn && e.ReasonEnd == history.ReasonBackBtn && relTime < immediateBackSkipRelTime {
		weight *= immediateBackSkipWeight
	}

	return ScoredEvent{
		CanonicalEvent: e,
		Streak:         streak,
		RelTime:        relTime,
		Score:          score,
		Weight:         weight,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
