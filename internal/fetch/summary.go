// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// Summary is the outcome of a Run.
type Summary struct {
	RunID    string    `yaml:"run_id"`
	Output   string    `yaml:"output,omitempty"`
	Started  time.Time `yaml:"started"`
	Finished time.Time `yaml:"finished"`

	Identifiers       int `yaml:"identifiers"`
	Batches           int `yaml:"batches"`
	BatchesRegistered int `yaml:"batches_registered"`
	BatchesSkipped    int `yaml:"batches_skipped"`

	Pages        int   `yaml:"pages"`
	PagesWritten int   `yaml:"pages_written"`
	PagesSkipped int   `yaml:"pages_skipped"`
	PagesEmpty   int   `yaml:"pages_empty"`
	BytesWritten int64 `yaml:"bytes_written"`

	Requests int `yaml:"requests"`
	Retries  int `yaml:"retries"`

	InvalidIDs []string `yaml:"invalid_ids,omitempty"`
	Skips      []Skip   `yaml:"skips,omitempty"`
}

// Skip records a batch or page given up on. Page is empty when the whole
// batch was skipped.
type Skip struct {
	Batch  int    `yaml:"batch"`
	Page   string `yaml:"page,omitempty"`
	Reason string `yaml:"reason"`
}

// Complete reports whether no batch or page was skipped.
func (s Summary) Complete() bool {
	return s.BatchesSkipped == 0 && s.PagesSkipped == 0
}

// WriteYAML saves the summary to path.
func (s Summary) WriteYAML(path string) error {
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// ReadSummary loads a summary written by WriteYAML.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing summary: %w", err)
	}
	return &s, nil
}
