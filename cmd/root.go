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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/ademuri/spotify-history-tools/internal/analysis"
	"github.com/ademuri/spotify-history-tools/internal/logger"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spotify-history-tools",
	Short: "Performs analysis on Spotify streaming history",
	Long: `Imports a Spotify extended streaming history export and reports which
artists and tracks you listen to, and which ones you actually like.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// thresholdFlags maps each --min_* flag to the threshold it sets.
var thresholdFlags = []struct {
	name  string
	usage string
	field func(*analysis.Thresholds) *float64
}{
	{"min_artist_hours", "Minimum hours for the artists report", func(t *analysis.Thresholds) *float64 { return &t.MinArtistHours }},
	{"min_track_hours", "Minimum hours for the tracks and tracks_by_peak reports", func(t *analysis.Thresholds) *float64 { return &t.MinTrackHours }},
	{"min_track_plays", "Minimum plays for the tracks_by_plays report", func(t *analysis.Thresholds) *float64 { return &t.MinTrackPlays }},
	{"min_annoying_plays", "Minimum plays for the annoying_tracks report", func(t *analysis.Thresholds) *float64 { return &t.MinAnnoyingPlays }},
	{"min_least_skipped_plays", "Minimum plays for the least_skipped_tracks report", func(t *analysis.Thresholds) *float64 { return &t.MinLeastSkippedPlays }},
	{"min_score_plays", "Minimum plays for the score reports", func(t *analysis.Thresholds) *float64 { return &t.MinScorePlays }},
	{"min_genre_hours", "Minimum hours for the genres report", func(t *analysis.Thresholds) *float64 { return &t.MinGenreHours }},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(
		&cfgFile, "config", "", "config file (default is $HOME/.spotify-history-tools.yaml)")

	flags.StringP("database", "d", "./spotify-history.db", "Path to the SQLite database")
	flags.String("data_dir", "./Data", "Directory containing the streaming history export")
	flags.String("out_dir", "./Results", "Directory reports are written to")
	flags.String("log_level", "info", "Log level (debug, info, warn, error)")

	flags.String("client_id", "", "Spotify Web API client id")
	flags.String("client_secret", "", "Spotify Web API client secret")
	flags.String("lastfm_api_key", "", "last.fm API key")
	flags.String("lastfm_secret", "", "last.fm secret")
	flags.String("sendgrid_api_key", "", "SendGrid API key")
	flags.String("from", "", "From email address")
	flags.Bool("use_metadata", false, "Use fetched Spotify metadata for track lengths and genres")

	defaults := analysis.DefaultThresholds()
	for _, f := range thresholdFlags {
		flags.Float64(f.name, *f.field(&defaults), f.usage)
	}

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name != "config" {
			viper.BindPFlag(f.Name, f)
		}
	})
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".spotify-history-tools" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".spotify-history-tools")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// See https://github.com/spf13/viper/pull/852
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			rootCmd.Flags().Set(f.Name, viper.GetString(f.Name))
		}
	})
}

func newLogger() (*logger.Logger, error) {
	log, err := logger.New(viper.GetString("log_level"))
	if err != nil {
		return nil, fmt.Errorf("--log_level: %w", err)
	}
	return log, nil
}

func thresholdsFromConfig() analysis.Thresholds {
	th := analysis.DefaultThresholds()
	for _, f := range thresholdFlags {
		if viper.IsSet(f.name) {
			*f.field(&th) = viper.GetFloat64(f.name)
		}
	}
	return th
}
