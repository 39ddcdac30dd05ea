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
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/spotify-history-tools/internal/history"
	"github.com/ademuri/spotify-history-tools/internal/logger"
	"github.com/ademuri/spotify-history-tools/internal/store"
)

type ImportConfig struct {
	DbPath  string
	DataDir string
	Force   bool
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Imports the streaming history export",
	Long: `Reads every *Audio*.json file in --data_dir and stores the events in the
local SQLite database. Skipped if events were already imported, unless --force.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log, err := newLogger()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer log.Sync()

		config := ImportConfig{
			DbPath:  viper.GetString("database"),
			DataDir: viper.GetString("data_dir"),
			Force:   viper.GetBool("force"),
		}
		added, err := importHistory(log, config)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d new events\n", added)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	var force bool
	importCmd.Flags().BoolVarP(&force, "force", "f", false, "Re-read the export even if events were already imported (idempotent)")
	viper.BindPFlag("force", importCmd.Flags().Lookup("force"))
}

// importHistory loads the export into the store. Returns the number of events
// that were not stored yet.
func importHistory(log *logger.Logger, config ImportConfig) (int64, error) {
	db, err := store.New(config.DbPath)
	if err != nil {
		return 0, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	count, err := db.CountEvents()
	if err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	if count > 0 && !config.Force {
		lastImported, err := db.GetLastImported()
		if err != nil {
			return 0, err
		}
		log.Info("history already imported, use --force to re-read it",
			"events", count, "last_imported", lastImported.Format("2006-01-02"))
		return 0, nil
	}

	events, err := history.LoadDir(config.DataDir)
	if err != nil {
		return 0, fmt.Errorf("loading history: %w", err)
	}
	if len(events) == 0 {
		return 0, fmt.Errorf("no track events found in %s", config.DataDir)
	}
	log.Info("loaded history", "dir", config.DataDir, "events", len(events))

	added, err := db.AddEvents(events)
	if err != nil {
		return 0, fmt.Errorf("storing events: %w", err)
	}
	if err := db.SetLastImported(time.Now()); err != nil {
		return added, err
	}
	log.Info("stored events", "new", added, "skipped", int64(len(events))-added)
	return added, nil
}
