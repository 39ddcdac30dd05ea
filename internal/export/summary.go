package export

import (
	"fmt"
	"os"
	"time"

	"github.com/ademuri/spotify-history-tools/internal/analysis"
	"gopkg.in/yaml.v3"
)

// Summary describes one report run.
type Summary struct {
	RunID       string                  `yaml:"run_id"`
	GeneratedAt time.Time               `yaml:"generated_at"`
	From        string                  `yaml:"from,omitempty"`
	To          string                  `yaml:"to,omitempty"`
	Totals      analysis.Totals         `yaml:"totals"`
	Normalize   analysis.NormalizeStats `yaml:"normalize"`
	// Reports maps each report name to its row count.
	Reports map[string]int `yaml:"reports"`
}

func NewSummary(runID string, now time.Time, result *analysis.Result) Summary {
	s := Summary{
		RunID:       runID,
		GeneratedAt: now.UTC(),
		Totals:      result.Totals,
		Normalize:   result.Stats,
		Reports:     make(map[string]int, len(result.Tables)),
	}
	for _, t := range result.Tables {
		s.Reports[t.Name] = len(t.Rows)
	}
	return s
}

func WriteSummary(path string, s Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer f.Close()

	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)
	if err := encoder.Encode(s); err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return nil
}
