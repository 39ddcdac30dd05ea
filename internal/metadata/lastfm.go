package metadata

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ademuri/lastfm-go/lastfm"
	"github.com/avast/retry-go"
	"golang.org/x/time/rate"

	"github.com/ademuri/spotify-history-tools/internal/logger"
)

// TagSource returns an artist's top last.fm tags with their counts, most
// popular first.
type TagSource interface {
	ArtistTopTags(ctx context.Context, artist string) ([]string, []int, error)
}

// TagCache tracks which artists have tags and when they were fetched.
type TagCache interface {
	GetArtistsNeedingTagUpdate(interval time.Duration, minPlays int) ([]string, error)
	SaveArtistTags(artist string, tags []string, counts []int) error
}

type LastFM struct {
	log     *logger.Logger
	client  *lastfm.Api
	limiter *rate.Limiter
}

func NewLastFM(log *logger.Logger, apiKey, secret string) (*LastFM, error) {
	if apiKey == "" || secret == "" {
		return nil, fmt.Errorf("missing last.fm api key or secret")
	}
	client := lastfm.New(apiKey, secret)
	client.SetUserAgent("spotify-history-tools/1.0")
	return &LastFM{
		log:     log.With("client", "LastFMClient"),
		client:  client,
		limiter: rate.NewLimiter(rate.Every(1*time.Second), 1),
	}, nil
}

func (l *LastFM) ArtistTopTags(ctx context.Context, artist string) ([]string, []int, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	var topTags lastfm.ArtistGetTopTags
	err := retry.Do(
		func() error {
			var err error
			topTags, err = l.client.Artist.GetTopTags(lastfm.P{
				"artist":      artist,
				"autocorrect": 1,
			})
			return err
		},
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			var lerr *lastfm.LastfmError
			if errors.As(err, &lerr) && lerr.Code/100 == 5 {
				l.log.Warn("last.fm errored, retrying", "artist", artist, "code", lerr.Code)
				return true
			}
			return false
		}),
	)
	if err != nil {
		return nil, nil, err
	}

	var tags []string
	var counts []int
	for _, t := range topTags.Tags {
		tags = append(tags, t.Name)
		c, _ := strconv.Atoi(t.Count)
		counts = append(counts, c)
	}
	return tags, counts, nil
}

// FetchTags refreshes tags for every artist played more than minPlays times
// whose tags are missing or older than interval. A failure for one artist is
// logged and skipped. Returns the number of artists updated.
func FetchTags(ctx context.Context, log *logger.Logger, src TagSource, cache TagCache, interval time.Duration, minPlays int) (int, error) {
	artists, err := cache.GetArtistsNeedingTagUpdate(interval, minPlays)
	if err != nil {
		return 0, err
	}
	log.Info("found artists needing tag updates", "artists", len(artists))

	updated := 0
	for i, artist := range artists {
		log.Debug("fetching tags", "artist", artist, "n", i+1, "of", len(artists))
		tags, counts, err := src.ArtistTopTags(ctx, artist)
		if err != nil {
			if ctx.Err() != nil {
				return updated, ctx.Err()
			}
			log.Warn("fetching tags failed", "artist", artist, "error", err)
			continue
		}
		if err := cache.SaveArtistTags(artist, tags, counts); err != nil {
			return updated, fmt.Errorf("saving tags for artist %s: %w", artist, err)
		}
		updated++
	}
	return updated, nil
}
