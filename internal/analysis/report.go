package analysis

import (
	"sort"
)

// Report names.
const (
	ReportArtists             = "artists"
	ReportTracks              = "tracks"
	ReportTracksByPlays       = "tracks_by_plays"
	ReportTracksByPeak        = "tracks_by_peak"
	ReportAnnoyingTracks      = "annoying_tracks"
	ReportLeastSkippedTracks  = "least_skipped_tracks"
	ReportTrackScores         = "track_scores"
	ReportTrackWeightedScores = "track_weighted_scores"
	ReportGenres              = "genres"
)

// Source selects which rows a report starts from.
type Source int

const (
	EventSource Source = iota
	// GenreSource needs artist genres and is skipped without metadata.
	GenreSource
)

// Stage is one grouping step. Stages run in order, each over the previous
// stage's output.
type Stage struct {
	Key        KeyFunc
	Reductions []Reduction
}

// Derived computes a column from a row's reduced values. Returning false
// drops the row, for ratios that are undefined for that group.
type Derived struct {
	Name    string
	Compute func(values map[string]float64) (float64, bool)
}

// Threshold keeps rows whose Column is at least Min.
type Threshold struct {
	Column string
	Min    float64
}

// ReportSpec declares a report: how rows are grouped and reduced, which
// columns are derived, which rows are kept and how the result is ordered.
type ReportSpec struct {
	Name       string
	Source     Source
	KeyColumns []string
	Stages     []Stage
	Derived    []Derived
	Filter     Threshold
	SortBy     string
	Ascending  bool
	Columns    []string
}

// Table is a built report, ready to be written out.
type Table struct {
	Name       string
	KeyColumns []string
	Columns    []string
	Rows       []Row
}

// Header returns the key columns followed by the value columns.
func (t Table) Header() []string {
	header := make([]string, 0, len(t.KeyColumns)+len(t.Columns))
	header = append(header, t.KeyColumns...)
	return append(header, t.Columns...)
}

// Build evaluates spec over rows.
func Build(spec ReportSpec, rows []Row) Table {
	for _, stage := range spec.Stages {
		rows = Aggregate(rows, stage.Key, stage.Reductions)
	}

	kept := make([]Row, 0, len(rows))
	for _, r := range rows {
		if !derive(spec.Derived, r) {
			continue
		}
		if r.Values[spec.Filter.Column] < spec.Filter.Min {
			continue
		}
		kept = append(kept, r)
	}

	sortRows(kept, spec.SortBy, spec.Ascending, spec.KeyColumns)

	return Table{
		Name:       spec.Name,
		KeyColumns: spec.KeyColumns,
		Columns:    spec.Columns,
		Rows:       kept,
	}
}

func derive(derived []Derived, r Row) bool {
	for _, d := range derived {
		v, ok := d.Compute(r.Values)
		if !ok {
			return false
		}
		r.Values[d.Name] = v
	}
	return true
}

// sortRows orders by column, then by key columns ascending so equal metrics
// always come out in the same order. Null names sort first.
func sortRows(rows []Row, column string, ascending bool, keyColumns []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Values[column], rows[j].Values[column]
		if a != b {
			if ascending {
				return a < b
			}
			return a > b
		}
		for _, k := range keyColumns {
			av, aValid := rows[i].Key.Column(k)
			bv, bValid := rows[j].Key.Column(k)
			if aValid != bValid {
				return !aValid
			}
			if av != bv {
				return av < bv
			}
		}
		return false
	})
}

// Thresholds are the minimum values a row needs to appear in each report.
// Boundaries are inclusive.
type Thresholds struct {
	MinArtistHours       float64
	MinTrackHours        float64
	MinTrackPlays        float64
	MinAnnoyingPlays     float64
	MinLeastSkippedPlays float64
	MinScorePlays        float64
	MinGenreHours        float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinArtistHours:       1,
		MinTrackHours:        0.1,
		MinTrackPlays:        10,
		MinAnnoyingPlays:     20,
		MinLeastSkippedPlays: 10,
		MinScorePlays:        10,
		MinGenreHours:        1,
	}
}

var trackKeyColumns = []string{KeyArtist, KeyTrack, KeyURI}

var totalsReductions = []Reduction{
	{Out: ColHours, In: ColHours, Reduce: Sum},
	{Out: ColPlays, In: ColPlays, Reduce: Sum},
}

// trackPeakStages sums listening time per track and day, then keeps each
// track's busiest day.
var trackPeakStages = []Stage{
	{Key: ByTrackDay, Reductions: []Reduction{
		{Out: ColHours, In: ColHours, Reduce: Sum},
		{Out: ColPlays, In: ColPlays, Reduce: Sum},
		{Out: ColDayHours, In: ColHours, Reduce: Sum},
	}},
	{Key: ByTrack, Reductions: []Reduction{
		{Out: ColHours, In: ColHours, Reduce: Sum},
		{Out: ColPlays, In: ColPlays, Reduce: Sum},
		{Out: ColMaxDayHours, In: ColDayHours, Reduce: Max},
	}},
}

var trackPeakColumns = []string{ColHours, ColPlays, ColMaxDayHours}

// Reports returns every report, in the order they are written.
func Reports(th Thresholds) []ReportSpec {
	return []ReportSpec{
		{
			Name:       ReportArtists,
			KeyColumns: []string{KeyArtist},
			Stages:     []Stage{{Key: ByArtist, Reductions: totalsReductions}},
			Filter:     Threshold{Column: ColHours, Min: th.MinArtistHours},
			SortBy:     ColHours,
			Columns:    []string{ColHours, ColPlays},
		},
		{
			Name:       ReportTracks,
			KeyColumns: trackKeyColumns,
			Stages:     trackPeakStages,
			Filter:     Threshold{Column: ColHours, Min: th.MinTrackHours},
			SortBy:     ColHours,
			Columns:    trackPeakColumns,
		},
		{
			Name:       ReportTracksByPlays,
			KeyColumns: trackKeyColumns,
			Stages:     trackPeakStages,
			Filter:     Threshold{Column: ColPlays, Min: th.MinTrackPlays},
			SortBy:     ColPlays,
			Columns:    trackPeakColumns,
		},
		{
			Name:       ReportTracksByPeak,
			KeyColumns: trackKeyColumns,
			Stages:     trackPeakStages,
			Filter:     Threshold{Column: ColHours, Min: th.MinTrackHours},
			SortBy:     ColMaxDayHours,
			Columns:    trackPeakColumns,
		},
		{
			Name:       ReportAnnoyingTracks,
			KeyColumns: trackKeyColumns,
			Stages:     []Stage{{Key: ByTrack, Reductions: totalsReductions}},
			Derived: []Derived{{Name: ColSecondsPerPlay, Compute: func(v map[string]float64) (float64, bool) {
				return v[ColHours] / v[ColPlays] * 3600, v[ColPlays] > 0
			}}},
			Filter:    Threshold{Column: ColPlays, Min: th.MinAnnoyingPlays},
			SortBy:    ColSecondsPerPlay,
			Ascending: true,
			Columns:   []string{ColHours, ColPlays, ColSecondsPerPlay},
		},
		{
			Name:       ReportLeastSkippedTracks,
			KeyColumns: trackKeyColumns,
			Stages: []Stage{{Key: ByTrack, Reductions: []Reduction{
				{Out: ColHours, In: ColHours, Reduce: Sum},
				{Out: ColMaxPlayHours, In: ColHours, Reduce: Max},
				{Out: ColPlays, In: ColPlays, Reduce: Sum},
			}}},
			Derived: []Derived{
				{Name: ColAssumedLength, Compute: func(v map[string]float64) (float64, bool) {
					return v[ColMaxPlayHours] * 60, true
				}},
				{Name: ColRelAverageListen, Compute: func(v map[string]float64) (float64, bool) {
					return v[ColHours] / v[ColPlays] / v[ColMaxPlayHours], v[ColPlays] > 0 && v[ColMaxPlayHours] > 0
				}},
			},
			Filter:  Threshold{Column: ColPlays, Min: th.MinLeastSkippedPlays},
			SortBy:  ColRelAverageListen,
			Columns: []string{ColHours, ColMaxPlayHours, ColPlays, ColAssumedLength, ColRelAverageListen},
		},
		{
			Name:       ReportTrackScores,
			KeyColumns: trackKeyColumns,
			Stages: []Stage{{Key: ByTrack, Reductions: []Reduction{
				{Out: ColPlays, In: ColPlays, Reduce: Sum},
				{Out: ColHours, In: ColHours, Reduce: Sum},
				{Out: ColScore, In: ColScore, Reduce: Sum},
			}}},
			Filter:  Threshold{Column: ColPlays, Min: th.MinScorePlays},
			SortBy:  ColScore,
			Columns: []string{ColPlays, ColHours, ColScore},
		},
		{
			Name:       ReportTrackWeightedScores,
			KeyColumns: trackKeyColumns,
			Stages: []Stage{{Key: ByTrack, Reductions: []Reduction{
				{Out: ColPlays, In: ColPlays, Reduce: Sum},
				{Out: ColHours, In: ColHours, Reduce: Sum},
				{Out: ColWeightedScore, In: ColWeightedScore, Reduce: Sum},
				{Out: ColWeight, In: ColWeight, Reduce: Sum},
			}}},
			Derived: []Derived{{Name: ColScore, Compute: WeightedMean}},
			Filter:  Threshold{Column: ColPlays, Min: th.MinScorePlays},
			SortBy:  ColScore,
			Columns: []string{ColPlays, ColHours, ColWeight, ColScore},
		},
		{
			Name:       ReportGenres,
			Source:     GenreSource,
			KeyColumns: []string{KeyGenre},
			Stages:     []Stage{{Key: ByGenre, Reductions: totalsReductions}},
			Filter:     Threshold{Column: ColHours, Min: th.MinGenreHours},
			SortBy:     ColHours,
			Columns:    []string{ColHours, ColPlays},
		},
	}
}

// WeightedMean is sum(score*weight) / sum(weight). A group with no weight has
// no meaningful score and is dropped rather than reported as zero.
func WeightedMean(v map[string]float64) (float64, bool) {
	if v[ColWeight] == 0 {
		return 0, false
	}
	return v[ColWeightedScore] / v[ColWeight], true
}
