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
	"html"
	"os"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/spotify-history-tools/internal/analysis"
	"github.com/ademuri/spotify-history-tools/internal/logger"
)

type SendEmailConfig struct {
	DbPath         string
	From           string
	To             string
	Reports        []string
	NumToReturn    int
	DryRun         bool
	SendgridAPIKey string
	UseMetadata    bool
	Thresholds     analysis.Thresholds
	Start          time.Time
	End            time.Time
}

var emailCmd = &cobra.Command{
	Use:   "email <address> [date] [date]",
	Short: "Sends an email report",
	Long: `Emails the report tables to the given address through SendGrid.
  Optional date arguments restrict the reports to a range (e.g. '2023-01' or '2023-01 2023-06').
  If no dates are provided, the whole history is reported.`,
	Args: cobra.RangeArgs(1, 3),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("from") == "" {
			return fmt.Errorf("required flag(s) \"from\" not set")
		}
		return nil
	},
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

		reports, _ := cmd.Flags().GetStringSlice("reports")
		config := SendEmailConfig{
			DbPath:         viper.GetString("database"),
			From:           viper.GetString("from"),
			To:             args[0],
			Reports:        reports,
			NumToReturn:    viper.GetInt("email_rows"),
			DryRun:         viper.GetBool("dryRun"),
			SendgridAPIKey: viper.GetString("sendgrid_api_key"),
			UseMetadata:    viper.GetBool("use_metadata"),
			Thresholds:     thresholdsFromConfig(),
			Start:          start,
			End:            end,
		}
		err = sendEmail(log, config)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(emailCmd)

	var dryRun bool
	emailCmd.Flags().BoolVarP(&dryRun, "dry_run", "n", false, "When true, just print instead of emailing")
	viper.BindPFlag("dryRun", emailCmd.Flags().Lookup("dry_run"))

	emailCmd.Flags().StringSlice("reports", nil, "Reports to include, default is all")

	var rows int
	emailCmd.Flags().IntVar(&rows, "rows", 20, "Number of rows per report, 0 for all")
	viper.BindPFlag("email_rows", emailCmd.Flags().Lookup("rows"))
}

func sendEmail(log *logger.Logger, config SendEmailConfig) error {
	th := config.Thresholds
	result, err := runPipeline(log, config.DbPath, config.UseMetadata, analysis.Options{
		Thresholds: &th,
		Start:      config.Start,
		End:        config.End,
		Reports:    config.Reports,
	})
	if err != nil {
		return err
	}

	subject, out := generateEmailContent(config, result)

	if config.DryRun {
		fmt.Printf("Would have sent email: \nsubject: %s\n%s\n", subject, out)
		return nil
	}

	if config.SendgridAPIKey == "" {
		return fmt.Errorf("sendgrid_api_key must be set in order to send emails")
	}

	from := mail.NewEmail("spotify-history-tools", config.From)
	to := mail.NewEmail(config.To, config.To)
	plainText := fmt.Sprintf("%s\nTotal hours played: %s, total plays: %d", subject, formatHours(result.Totals.Hours), result.Totals.Plays)
	message := mail.NewSingleEmail(from, subject, to, plainText, out)
	client := sendgrid.NewSendClient(config.SendgridAPIKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sendEmail: %w", err)
	}
	if response.StatusCode/100 != 2 {
		return fmt.Errorf("sendEmail: sendgrid http %d: %s", response.StatusCode, response.Body)
	}
	log.Info("sent email", "to", config.To, "reports", len(result.Tables))
	return nil
}

func generateEmailContent(config SendEmailConfig, result *analysis.Result) (subject string, body string) {
	from, to := formatRange(config.Start, config.End)

	out := `
<html>
  <head>
<style>
td {
  padding: 0.1em 0.2em;
}
table, th, td {
  border: 1px solid black;
  border-collapse: collapse;
}
</style>
  </head>
  <body>
`
	out += fmt.Sprintf("<div>Total hours played: %s, total plays: %d</div>\n", formatHours(result.Totals.Hours), result.Totals.Plays)

	for _, table := range result.Tables {
		a := newAnalysis(table, config.NumToReturn, fmt.Sprintf("%d rows in total", len(table.Rows)))
		out += `
		<div>
`
		out += fmt.Sprintf("<h2>%s %s to %s:</h2>\n", table.Name, from, to)
		if len(a.results) <= 1 {
			out += "<div>No plays found.</div>\n"
		} else {
			out += `
			<table>
				<thead>
					<tr>
`
			for _, header := range a.results[0] {
				out += fmt.Sprintf("<th>%s</th>", html.EscapeString(header))
			}
			out += `				</tr>
			</thead>
			<tbody>
`
			for _, row := range a.results[1:] {
				out += "<tr>\n"
				for _, column := range row {
					out += fmt.Sprintf("<td>%s</td>\n", html.EscapeString(column))
				}
				out += "</tr>\n"
			}
			out += `
				</tbody>
			</table>
`
		}
		out += fmt.Sprintf(`<div>%s</div>
		</div>`, a.summary)
	}
	out += `
  </body>
</html>
`

	// Subject line format: Listening report <Start> to <End>
	subject = fmt.Sprintf("Listening report %s to %s", from, to)
	return subject, out
}
