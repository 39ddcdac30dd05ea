package metadata

import (
	"context"
	"fmt"
	"sort"

	"github.com/ademuri/spotify-history-tools/internal/logger"
)

// Source looks up metadata for one batch of ids.
type Source interface {
	Tracks(ctx context.Context, ids []string) ([]Track, error)
	Albums(ctx context.Context, ids []string) ([]Album, error)
	Artists(ctx context.Context, ids []string) ([]Artist, error)
}

// Cache is where fetched metadata is kept between runs.
type Cache interface {
	CachedIDs(kind Kind) (map[string]bool, error)
	SaveTracks(tracks []Track) error
	SaveAlbums(albums []Album) error
	SaveArtists(artists []Artist) error
	Metadata() (*Tables, error)
}

type FetchStats struct {
	Tracks  int
	Albums  int
	Artists int
}

// Fetch looks up every track in trackIDs that is not cached yet, then every
// album and artist those tracks reference. Each batch is saved as soon as it
// arrives, so an interrupted fetch resumes where it stopped.
func Fetch(ctx context.Context, log *logger.Logger, src Source, cache Cache, trackIDs []string) (FetchStats, error) {
	var stats FetchStats

	missing, err := uncached(cache, KindTrack, trackIDs)
	if err != nil {
		return stats, err
	}
	log.Info("fetching track metadata", "missing", len(missing), "total", len(trackIDs))
	for _, batch := range Batches(missing, TrackBatchSize) {
		tracks, err := src.Tracks(ctx, batch)
		if err != nil {
			return stats, fmt.Errorf("fetching tracks: %w", err)
		}
		if err := cache.SaveTracks(tracks); err != nil {
			return stats, fmt.Errorf("saving tracks: %w", err)
		}
		stats.Tracks += len(tracks)
	}

	tables, err := cache.Metadata()
	if err != nil {
		return stats, err
	}
	var albumIDs, artistIDs []string
	for _, id := range trackIDs {
		t, ok := tables.Tracks[id]
		if !ok {
			continue
		}
		if t.AlbumID != "" {
			albumIDs = append(albumIDs, t.AlbumID)
		}
		artistIDs = append(artistIDs, t.ArtistIDs...)
	}

	missing, err = uncached(cache, KindAlbum, albumIDs)
	if err != nil {
		return stats, err
	}
	log.Info("fetching album metadata", "missing", len(missing))
	for _, batch := range Batches(missing, AlbumBatchSize) {
		albums, err := src.Albums(ctx, batch)
		if err != nil {
			return stats, fmt.Errorf("fetching albums: %w", err)
		}
		if err := cache.SaveAlbums(albums); err != nil {
			return stats, fmt.Errorf("saving albums: %w", err)
		}
		stats.Albums += len(albums)
	}

	missing, err = uncached(cache, KindArtist, artistIDs)
	if err != nil {
		return stats, err
	}
	log.Info("fetching artist metadata", "missing", len(missing))
	for _, batch := range Batches(missing, ArtistBatchSize) {
		artists, err := src.Artists(ctx, batch)
		if err != nil {
			return stats, fmt.Errorf("fetching artists: %w", err)
		}
		if err := cache.SaveArtists(artists); err != nil {
			return stats, fmt.Errorf("saving artists: %w", err)
		}
		stats.Artists += len(artists)
	}

	return stats, nil
}

// uncached returns the distinct ids of kind not yet in cache, sorted.
func uncached(cache Cache, kind Kind, ids []string) ([]string, error) {
	cached, err := cache.CachedIDs(kind)
	if err != nil {
		return nil, fmt.Errorf("reading cached %s ids: %w", kind, err)
	}
	seen := make(map[string]bool)
	var out []string
	for _, id := range ids {
		if id == "" || cached[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Batches splits ids into consecutive chunks of at most size.
func Batches(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
