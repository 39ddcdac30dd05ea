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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/spotify-history-tools/internal/analysis"
	"github.com/ademuri/spotify-history-tools/internal/export"
	"github.com/ademuri/spotify-history-tools/internal/logger"
	"github.com/ademuri/spotify-history-tools/internal/store"
)

type ReportConfig struct {
	DbPath      string
	OutDir      string
	Format      string
	MetricsFile string
	UseMetadata bool
	Thresholds  analysis.Thresholds
	Start       time.Time
	End         time.Time
}

var reportCmd = &cobra.Command{
	Use:   "report [date] [date]",
	Short: "Writes every report to --out_dir",
	Long: `Scores the imported history and writes each report as <out_dir>/<name>.<format>,
plus a summary.yaml describing the run.
  Optional date arguments restrict the reports to a range (e.g. '2023', '2023-01 2023-06' or '90d').
  Scoring always uses the whole history.`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		start, end, err := parseDateRangeFromArgs(args)
		if err != nil {
			fmt.Printf("Error parsing dates: %v\n", err)
			os.Exit(1)
		}

		log, err := newLogger()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer log.Sync()

		config := ReportConfig{
			DbPath:      viper.GetString("database"),
			OutDir:      viper.GetString("out_dir"),
			Format:      viper.GetString("format"),
			MetricsFile: viper.GetString("metrics_file"),
			UseMetadata: viper.GetBool("use_metadata"),
			Thresholds:  thresholdsFromConfig(),
			Start:       start,
			End:         end,
		}
		result, err := writeReports(log, config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Total hours played: %s\n", export.FormatFloat(result.Totals.Hours))
		fmt.Printf("Total plays: %d\n", result.Totals.Plays)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("format", export.FormatCSV, "Output format, csv or json")
	viper.BindPFlag("format", reportCmd.Flags().Lookup("format"))

	reportCmd.Flags().String("metrics_file", "", "Also write run metrics in the Prometheus text format to this file")
	viper.BindPFlag("metrics_file", reportCmd.Flags().Lookup("metrics_file"))
}

// runPipeline scores everything in the database at dbPath.
func runPipeline(log *logger.Logger, dbPath string, useMetadata bool, opts analysis.Options) (*analysis.Result, error) {
	db, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	events, err := db.Events()
	if err != nil {
		return nil, err
	}
	if useMetadata {
		opts.Metadata, err = db.Metadata()
		if err != nil {
			return nil, fmt.Errorf("loading metadata: %w", err)
		}
		if opts.Metadata.Empty() {
			log.Warn("no metadata cached, run fetch-metadata first")
		}
	}

	result, err := analysis.Run(events, opts)
	if errors.Is(err, analysis.ErrNoEvents) {
		return nil, fmt.Errorf("database empty or missing. Run 'import' first")
	}
	if err != nil {
		return nil, err
	}
	log.Info("scored history",
		"input", result.Stats.Input,
		"dropped", result.Stats.Dropped,
		"pairs", result.Stats.Pairs,
		"redirected", result.Stats.Redirected)
	return result, nil
}

func writeReports(log *logger.Logger, config ReportConfig) (*analysis.Result, error) {
	runID := uuid.NewString()
	log = log.With("run_id", runID)

	th := config.Thresholds
	result, err := runPipeline(log, config.DbPath, config.UseMetadata, analysis.Options{
		Thresholds: &th,
		Start:      config.Start,
		End:        config.End,
	})
	if err != nil {
		return nil, err
	}

	paths, err := export.WriteFiles(config.OutDir, config.Format, result.Tables)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		log.Debug("wrote report", "path", p)
	}

	summary := export.NewSummary(runID, time.Now(), result)
	if !config.Start.IsZero() || !config.End.IsZero() {
		summary.From, summary.To = formatRange(config.Start, config.End)
	}
	summaryPath := filepath.Join(config.OutDir, "summary.yaml")
	if err := export.WriteSummary(summaryPath, summary); err != nil {
		return nil, err
	}

	if config.MetricsFile != "" {
		metrics := export.NewMetrics()
		metrics.Observe(result)
		if err := metrics.WriteTextfile(config.MetricsFile); err != nil {
			return nil, err
		}
	}

	log.Info("wrote reports", "dir", config.OutDir, "reports", len(paths))
	return result, nil
}
