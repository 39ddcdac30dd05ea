package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/ademuri/spotify-history-tools/internal/logger"
)

// Largest id lists the Spotify Web API accepts per request.
const (
	TrackBatchSize  = 50
	AlbumBatchSize  = 20
	ArtistBatchSize = 50
)

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
	// Interval is the minimum time between two requests.
	Interval time.Duration
	Timeout  time.Duration
	// Attempts bounds tries per request, including the first.
	Attempts   uint
	RetryDelay time.Duration
}

// StatusError is a non-2xx answer from the Web API.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotify %s http %d: %s", e.Endpoint, e.Code, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code/100 == 5
}

type Spotify struct {
	log     *logger.Logger
	cfg     SpotifyConfig
	http    *http.Client
	limiter *rate.Limiter
}

// NewSpotify returns a client authenticated with the client-credentials flow.
// ctx is used for token requests.
func NewSpotify(ctx context.Context, log *logger.Logger, cfg SpotifyConfig) (*Spotify, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, fmt.Errorf("missing Spotify client id or secret")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.spotify.com"
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		cfg.TokenURL = "https://accounts.spotify.com/api/token"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 300 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	httpClient := cc.Client(ctx)
	httpClient.Timeout = cfg.Timeout

	return &Spotify{
		log:     log.With("client", "SpotifyClient"),
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
	}, nil
}

type spotifyTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
	Popularity int    `json:"popularity"`
	IsLocal    bool   `json:"is_local"`
	Album      struct {
		ID string `json:"id"`
	} `json:"album"`
	Artists []struct {
		ID string `json:"id"`
	} `json:"artists"`
}

type spotifyAlbum struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Popularity  int      `json:"popularity"`
	ReleaseDate string   `json:"release_date"`
	Genres      []string `json:"genres"`
}

type spotifyArtist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Popularity int      `json:"popularity"`
	Genres     []string `json:"genres"`
}

// Tracks looks up at most TrackBatchSize tracks. Unknown ids are left out of
// the result.
func (s *Spotify) Tracks(ctx context.Context, ids []string) ([]Track, error) {
	if len(ids) > TrackBatchSize {
		return nil, fmt.Errorf("%d track ids exceed batch size %d", len(ids), TrackBatchSize)
	}
	var resp struct {
		Tracks []*spotifyTrack `json:"tracks"`
	}
	if err := s.get(ctx, "tracks", ids, &resp); err != nil {
		return nil, err
	}

	var out []Track
	for _, t := range resp.Tracks {
		if t == nil {
			continue
		}
		track := Track{
			ID:         t.ID,
			Name:       t.Name,
			DurationMs: t.DurationMs,
			Popularity: t.Popularity,
			IsLocal:    t.IsLocal,
			AlbumID:    t.Album.ID,
		}
		for i, a := range t.Artists {
			if i == maxArtistsPerTrack {
				break
			}
			track.ArtistIDs = append(track.ArtistIDs, a.ID)
		}
		out = append(out, track)
	}
	return out, nil
}

// Albums looks up at most AlbumBatchSize albums.
func (s *Spotify) Albums(ctx context.Context, ids []string) ([]Album, error) {
	if len(ids) > AlbumBatchSize {
		return nil, fmt.Errorf("%d album ids exceed batch size %d", len(ids), AlbumBatchSize)
	}
	var resp struct {
		Albums []*spotifyAlbum `json:"albums"`
	}
	if err := s.get(ctx, "albums", ids, &resp); err != nil {
		return nil, err
	}

	var out []Album
	for _, a := range resp.Albums {
		if a == nil {
			continue
		}
		out = append(out, Album{
			ID:          a.ID,
			Name:        a.Name,
			Popularity:  a.Popularity,
			ReleaseDate: a.ReleaseDate,
			Genres:      a.Genres,
		})
	}
	return out, nil
}

// Artists looks up at most ArtistBatchSize artists.
func (s *Spotify) Artists(ctx context.Context, ids []string) ([]Artist, error) {
	if len(ids) > ArtistBatchSize {
		return nil, fmt.Errorf("%d artist ids exceed batch size %d", len(ids), ArtistBatchSize)
	}
	var resp struct {
		Artists []*spotifyArtist `json:"artists"`
	}
	if err := s.get(ctx, "artists", ids, &resp); err != nil {
		return nil, err
	}

	var out []Artist
	for _, a := range resp.Artists {
		if a == nil {
			continue
		}
		out = append(out, Artist{
			ID:         a.ID,
			Name:       a.Name,
			Popularity: a.Popularity,
			Genres:     a.Genres,
		})
	}
	return out, nil
}

// get fetches /v1/<endpoint>?ids=... into out, waiting for the limiter before
// every attempt and retrying throttled or failed requests.
func (s *Spotify) get(ctx context.Context, endpoint string, ids []string, out interface{}) error {
	u := strings.TrimRight(s.cfg.BaseURL, "/") + "/v1/" + endpoint + "?" + url.Values{"ids": {strings.Join(ids, ",")}}.Encode()

	var raw []byte
	err := retry.Do(
		func() error {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			var err error
			raw, err = s.do(ctx, endpoint, u)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(s.cfg.Attempts),
		retry.Delay(s.cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var serr *StatusError
			if errors.As(err, &serr) && serr.Retryable() {
				s.log.Warn("spotify errored, retrying", "endpoint", endpoint, "status", serr.Code)
				return true
			}
			return false
		}),
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("spotify %s decode: %w", endpoint, err)
	}
	return nil
}

func (s *Spotify) do(ctx context.Context, endpoint, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
