package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ademuri/spotify-history-tools/internal/logger"
)

func TestImportHistory(t *testing.T) {
	dataDir := t.TempDir()
	writeExport(t, dataDir, listeningHistory())
	// Not an audio history file.
	if err := os.WriteFile(filepath.Join(dataDir, "Userdata.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	config := ImportConfig{
		DbPath:  filepath.Join(t.TempDir(), "spotify-history.db"),
		DataDir: dataDir,
	}
	added, err := importHistory(logger.NewNop(), config)
	if err != nil {
		t.Fatalf("importHistory: %v", err)
	}
	if added != 38 {
		t.Fatalf("Expected 38 events, got %d", added)
	}

	added, err = importHistory(logger.NewNop(), config)
	if err != nil {
		t.Fatalf("second importHistory: %v", err)
	}
	if added != 0 {
		t.Fatalf("Expected the second import to be skipped, got %d events", added)
	}

	config.Force = true
	added, err = importHistory(logger.NewNop(), config)
	if err != nil {
		t.Fatalf("forced importHistory: %v", err)
	}
	if added != 0 {
		t.Fatalf("Expected a forced re-import to add nothing, got %d events", added)
	}
}

func TestImportHistory_errors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "spotify-history.db")

	_, err := importHistory(logger.NewNop(), ImportConfig{DbPath: dbPath, DataDir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "no track events") {
		t.Fatalf("Expected an error for an empty data dir, got %v", err)
	}

	dataDir := t.TempDir()
	path := filepath.Join(dataDir, "Streaming_History_Audio_2023.json")
	if err := os.WriteFile(path, []byte("[{"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = importHistory(logger.NewNop(), ImportConfig{DbPath: dbPath, DataDir: dataDir})
	if err == nil || !strings.Contains(err.Error(), "Streaming_History_Audio_2023.json") {
		t.Fatalf("Expected an error naming the broken file, got %v", err)
	}
}
