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
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/spotify-history-tools/internal/analysis"
	"github.com/ademuri/spotify-history-tools/internal/logger"
)

type TopConfig struct {
	DbPath      string
	Report      string
	NumToReturn int
	UseMetadata bool
	Thresholds  analysis.Thresholds
	Start       time.Time
	End         time.Time
}

var topCmd = &cobra.Command{
	Use:   "top <report> [date] [date]",
	Short: "Prints one report as a table",
	Long: `Prints the top rows of a single report.
  <report> is one of: ` + strings.Join(analysis.ReportNames(), ", ") + `.
  Optional date arguments restrict the report to a range.`,
	Args: cobra.RangeArgs(1, 3),
	Run: func(cmd *cobra.Command, args []string) {
		start, end, err := parseDateRangeFromArgs(args[1:])
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

		config := TopConfig{
			DbPath:      viper.GetString("database"),
			Report:      args[0],
			NumToReturn: viper.GetInt("number"),
			UseMetadata: viper.GetBool("use_metadata"),
			Thresholds:  thresholdsFromConfig(),
			Start:       start,
			End:         end,
		}
		out, err := printTop(log, config)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(topCmd)

	var number int
	topCmd.Flags().IntVarP(&number, "number", "n", 20, "Number of rows to print, 0 for all")
	viper.BindPFlag("number", topCmd.Flags().Lookup("number"))
}

func printTop(log *logger.Logger, config TopConfig) (string, error) {
	th := config.Thresholds
	result, err := runPipeline(log, config.DbPath, config.UseMetadata, analysis.Options{
		Thresholds: &th,
		Start:      config.Start,
		End:        config.End,
		Reports:    []string{config.Report},
	})
	if err != nil {
		return "", err
	}

	table, _ := result.Table(config.Report)
	from, to := formatRange(config.Start, config.End)
	summary := fmt.Sprintf("%s from %s to %s: %d rows, %s hours over %d plays",
		table.Name, from, to, len(table.Rows), formatHours(result.Totals.Hours), result.Totals.Plays)
	return newAnalysis(table, config.NumToReturn, summary).String(), nil
}

func formatHours(h float64) string {
	return fmt.Sprintf("%.1f", h)
}
