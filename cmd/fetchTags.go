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
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/spotify-history-tools/internal/logger"
	"github.com/ademuri/spotify-history-tools/internal/metadata"
	"github.com/ademuri/spotify-history-tools/internal/store"
)

type FetchTagsConfig struct {
	DbPath            string
	TagUpdateInterval time.Duration
	MinPlays          int
}

var fetchTagsCmd = &cobra.Command{
	Use:   "fetch-tags",
	Short: "Fetches artist tags from last.fm",
	Long: `Fetches last.fm top tags for played artists. Tags stand in for genres when
Spotify has none for an artist. Needs --lastfm_api_key and --lastfm_secret.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		intervalStr := viper.GetString("tag_update_interval")
		interval, err := time.ParseDuration(intervalStr)
		if err != nil {
			fmt.Printf("Invalid tag_update_interval: %v. Using default 1 year.\n", err)
			interval = 24 * 365 * time.Hour
		}

		log, err := newLogger()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer log.Sync()

		client, err := metadata.NewLastFM(log, viper.GetString("lastfm_api_key"), viper.GetString("lastfm_secret"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		config := FetchTagsConfig{
			DbPath:            viper.GetString("database"),
			TagUpdateInterval: interval,
			MinPlays:          viper.GetInt("min_plays"),
		}
		updated, err := fetchTags(ctx, log, client, config)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("Updated tags for %d artists\n", updated)
	},
}

func init() {
	rootCmd.AddCommand(fetchTagsCmd)

	var tagUpdateInterval string
	fetchTagsCmd.Flags().StringVar(&tagUpdateInterval, "tag_update_interval", "8760h", "Time duration after which to re-fetch tags (e.g., 24h)")
	viper.BindPFlag("tag_update_interval", fetchTagsCmd.Flags().Lookup("tag_update_interval"))

	var minPlays int
	fetchTagsCmd.Flags().IntVar(&minPlays, "min_plays", 10, "Only fetch tags for artists with more than this many plays")
	viper.BindPFlag("min_plays", fetchTagsCmd.Flags().Lookup("min_plays"))
}

func fetchTags(ctx context.Context, log *logger.Logger, src metadata.TagSource, config FetchTagsConfig) (int, error) {
	db, err := store.New(config.DbPath)
	if err != nil {
		return 0, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return metadata.FetchTags(ctx, log, src, db, config.TagUpdateInterval, config.MinPlays)
}
