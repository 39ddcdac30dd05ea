/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/spotify-history-tools/internal/analysis"
	"github.com/ademuri/spotify-history-tools/internal/history"
	"github.com/ademuri/spotify-history-tools/internal/logger"
	"github.com/ademuri/spotify-history-tools/internal/metadata"
	"github.com/ademuri/spotify-history-tools/internal/store"
)

type FetchMetadataConfig struct {
	DbPath  string
	Spotify metadata.SpotifyConfig
}

var fetchMetadataCmd = &cobra.Command{
	Use:   "fetch-metadata",
	Short: "Fetches track, album and artist metadata from Spotify",
	Long: `Looks up every played track that is not cached yet, then the albums and artists
of those tracks, and stores them in the local SQLite database. Needs --client_id
and --client_secret of a Spotify Web API app.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log, err := newLogger()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		config := FetchMetadataConfig{
			DbPath: viper.GetString("database"),
			Spotify: metadata.SpotifyConfig{
				ClientID:     viper.GetString("client_id"),
				ClientSecret: viper.GetString("client_secret"),
			},
		}
		stats, err := fetchMetadata(ctx, log, config)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("Fetched %d tracks, %d albums, %d artists\n", stats.Tracks, stats.Albums, stats.Artists)
	},
}

func init() {
	rootCmd.AddCommand(fetchMetadataCmd)
}

func fetchMetadata(ctx context.Context, log *logger.Logger, config FetchMetadataConfig) (metadata.FetchStats, error) {
	db, err := store.New(config.DbPath)
	if err != nil {
		return metadata.FetchStats{}, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	events, err := db.Events()
	if err != nil {
		return metadata.FetchStats{}, err
	}
	if len(events) == 0 {
		return metadata.FetchStats{}, fmt.Errorf("database empty or missing. Run 'import' first")
	}

	client, err := metadata.NewSpotify(ctx, log, config.Spotify)
	if err != nil {
		return metadata.FetchStats{}, err
	}
	return metadata.Fetch(ctx, log, client, db, playedTrackIDs(events))
}

// playedTrackIDs returns the Spotify id of every canonical track in events.
// Only canonical URIs are looked up, since those are what reports key on.
func playedTrackIDs(events []history.RawEvent) []string {
	canonical, _ := analysis.Normalize(events, nil)
	seen := make(map[string]bool)
	var ids []string
	for _, e := range canonical {
		id := history.TrackID(e.CanonicalURI)
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
